package model

import "time"

// Temporal holds calendar features derived from a timestamp.
type Temporal struct {
	DayOfWeek int  `json:"day_of_week"` // Monday=0 .. Sunday=6
	Hour      int  `json:"hour"`
	IsWeekend bool `json:"is_weekend"`
	Month     int  `json:"month"`
}

// Mention is one (item, post) pair flattened from a post's extracted items.
type Mention struct {
	Item        string    `json:"item"`
	PostID      string    `json:"post_id"`
	Subreddit   string    `json:"subreddit"`
	Score       int       `json:"score"`
	NumComments int       `json:"num_comments"`
	UpvoteRatio float64   `json:"upvote_ratio"`
	Engagement  float64   `json:"engagement"`
	CreatedUTC  time.Time `json:"created_utc"`
	Temporal    Temporal  `json:"temporal"`
	Text        string    `json:"text,omitempty"`
}
