package model

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// Error kinds shared by the pipeline stages. Callers match them with
// errors.Is; StageError adds the stage and record identifier.
var (
	ErrUpstreamUnavailable = eris.New("upstream unavailable")
	ErrEmptyDataset        = eris.New("empty dataset")
	ErrInsufficientHistory = eris.New("insufficient history")
	ErrMalformedRecord     = eris.New("malformed record")
)

// StageError attaches the failing stage and the item or document id.
type StageError struct {
	Stage string
	ID    string
	Err   error
}

func (e *StageError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.ID, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
