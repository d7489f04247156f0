package dataset

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is wrapped by EmptyInputError.
var ErrEmptyInput = errors.New("empty input")

// EmptyInputError reports a stage that produced nothing when output was required.
type EmptyInputError struct {
	Stage string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, ErrEmptyInput)
}

func (e *EmptyInputError) Unwrap() error { return ErrEmptyInput }
