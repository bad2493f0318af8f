package pipeline

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrShapeMismatch is reported when the classifier returns a different
// number of predictions than it was given crops.
var ErrShapeMismatch = errors.New("classifier result count does not match candidate count")

// InputError reports an upload that cannot be analysed. No stage has run
// when it is returned.
type InputError struct {
	Err error
}

func (e *InputError) Error() string { return "invalid input: " + e.Err.Error() }

// Unwrap returns the underlying error.
func (e *InputError) Unwrap() error { return e.Err }

// Cause returns the underlying error for github.com/pkg/errors.
func (e *InputError) Cause() error { return e.Err }

// StageError reports a stage that failed after the upload was accepted.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err) }

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error { return e.Err }

// Cause returns the underlying error for github.com/pkg/errors.
func (e *StageError) Cause() error { return e.Err }

// IsInputError reports whether err, or anything it wraps, is an InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}
