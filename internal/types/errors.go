package types

import (
	"errors"
	"fmt"
)

// StageError attributes a failure to a pipeline stage. Fatal errors halt the
// run and keep Success false; non-fatal ones are recorded and the run
// continues.
type StageError struct {
	Stage string
	Err   error
	Fatal bool
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func NewStageError(stage string, err error, fatal bool) *StageError {
	return &StageError{Stage: stage, Err: err, Fatal: fatal}
}

// IsFatal reports whether err carries a hard-fatal stage failure.
func IsFatal(err error) bool {
	var se *StageError
	if errors.As(err, &se) {
		return se.Fatal
	}
	return false
}
