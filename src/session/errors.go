package session

import (
	"errors"
	"fmt"
	"runtime/debug"

	"snip-ocr/src/selection"
)

// ErrSelectionCancelled is returned when the overlay closes without a gesture.
var ErrSelectionCancelled = selection.ErrCancelled

// Stage names one step of the pipeline; every fatal error carries one.
type Stage string

const (
	StageOverlay    Stage = "overlay"
	StageCapture    Stage = "capture"
	StagePreprocess Stage = "preprocess"
	StageRecognize  Stage = "recognize"
	StageClipboard  Stage = "clipboard"
)

// StageError is a fatal pipeline failure with the stack where it was wrapped.
type StageError struct {
	Stage   Stage
	Message string
	Cause   error
	stack   []byte
}

func newStageError(stage Stage, message string, cause error) *StageError {
	return &StageError{Stage: stage, Message: message, Cause: cause, stack: debug.Stack()}
}

func (e *StageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// Trace returns the goroutine stack captured when the failure was wrapped.
func (e *StageError) Trace() string {
	return string(e.stack)
}

// StageOf reports the pipeline stage err belongs to, if any.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
