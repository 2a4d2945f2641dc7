package pipeline

import (
	"errors"
	"fmt"
)

// ErrBusy is returned when the same action is already running. Callers treat it as a no-op.
var ErrBusy = errors.New("action already in progress")

// ErrNoBaseResume is returned when an action needs a base resume and none was imported.
var ErrNoBaseResume = errors.New("no base resume: import a profile first")

// ErrNoJobDescription is returned when an action needs job description text and none is stored.
var ErrNoJobDescription = errors.New("no job description provided")

// ErrNoTailoredResume is returned when an action needs a tailored resume and none exists.
var ErrNoTailoredResume = errors.New("no tailored resume: run tailor first")

// snippetLength bounds the raw model output quoted in an ExtractionError.
const snippetLength = 200

// ExtractionError reports model output that should have been JSON but was not.
type ExtractionError struct {
	Step    string
	Snippet string
	Cause   error
}

func (e *ExtractionError) Error() string {
	msg := fmt.Sprintf("%s: model returned invalid JSON", e.Step)
	if e.Cause != nil {
		msg += fmt.Sprintf(" (%v)", e.Cause)
	}
	if e.Snippet != "" {
		msg += fmt.Sprintf(": %q", e.Snippet)
	}
	return msg
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// StepError wraps a failure with the state the run was in.
type StepError struct {
	Step  string
	Cause error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Step, e.Cause)
}

func (e *StepError) Unwrap() error {
	return e.Cause
}

func stepError(step State, err error) error {
	if err == nil {
		return nil
	}
	var ext *ExtractionError
	var se *StepError
	if errors.As(err, &ext) || errors.As(err, &se) {
		return err
	}
	return &StepError{Step: string(step), Cause: err}
}
