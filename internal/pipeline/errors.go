package pipeline

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure surfaced by a run wraps exactly one of
// these, so callers can dispatch with errors.Is.
var (
	// ErrInput marks malformed or missing inputs; nothing has been
	// executed when it is returned.
	ErrInput = errors.New("input error")
	// ErrRender marks a text layout or image-writing failure.
	ErrRender = errors.New("render error")
	// ErrComposition marks a media-processing failure or timeout; no
	// partial output is left at the final path.
	ErrComposition = errors.New("composition error")
	// ErrIntegrity marks a produced but unpublishable output.
	ErrIntegrity = errors.New("integrity error")
)

// StageError attaches the failing stage to an underlying cause and one
// of the error kinds above.
type StageError struct {
	Stage string
	Kind  error
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func stageErr(stage string, kind, err error) error {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}
