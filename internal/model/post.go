package model

import (
	"math"
	"time"

	"github.com/rotisserie/eris"
)

// Post is a collected social-media document. Posts are immutable once
// stored; the core only reads them.
type Post struct {
	PostID       string    `json:"post_id"`
	Subreddit    string    `json:"subreddit"`
	Title        string    `json:"title"`
	Body         string    `json:"body,omitempty"`
	CleanedText  string    `json:"cleaned_text"`
	Score        int       `json:"score"`
	NumComments  int       `json:"num_comments"`
	UpvoteRatio  float64   `json:"upvote_ratio"`
	CreatedUTC   time.Time `json:"created_utc"`
	FoodMentions []string  `json:"food_mentions"`
	CollectedAt  time.Time `json:"collected_at"`
}

// Validate checks the fields the aggregation stages depend on. It returns an
// error wrapping ErrMalformedRecord.
func (p Post) Validate() error {
	var missing string
	switch {
	case p.PostID == "":
		missing = "post_id"
	case p.Subreddit == "":
		missing = "subreddit"
	case p.CreatedUTC.IsZero():
		missing = "created_utc"
	}
	if missing != "" {
		return &StageError{Stage: "validate", ID: p.PostID, Err: eris.Wrapf(ErrMalformedRecord, "missing %s", missing)}
	}
	if math.IsNaN(p.UpvoteRatio) || p.UpvoteRatio < 0 || p.UpvoteRatio > 1 {
		return &StageError{Stage: "validate", ID: p.PostID, Err: eris.Wrapf(ErrMalformedRecord, "upvote_ratio %v out of range", p.UpvoteRatio)}
	}
	return nil
}

// Text returns the representative text of the post.
func (p Post) Text() string {
	if p.CleanedText == "" {
		return p.Title
	}
	return p.Title + " " + p.CleanedText
}
