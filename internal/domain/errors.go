package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuizNotFound indicates the quiz feed could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrMalformedData is returned when a question feed cannot be parsed.
	ErrMalformedData = errors.New("malformed question data")
	// ErrEmptyQuestionSet is returned when both question lists are empty.
	ErrEmptyQuestionSet = errors.New("quiz has no questions")
	// ErrSnapshotNotFound is returned by snapshot backends for a missing key.
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrIndexOutOfRange is returned when jumping outside the global index space.
	ErrIndexOutOfRange = errors.New("question index out of range")
	// ErrInvalidOption is returned when an MCQ answer names no existing option.
	ErrInvalidOption = errors.New("invalid option")
	// ErrNotOnQuestion is returned when answering or flagging on the completion screen.
	ErrNotOnQuestion = errors.New("no question is currently shown")
	// ErrSubmissionInFlight rejects a second submission while one is pending.
	ErrSubmissionInFlight = errors.New("submission already in progress")
	// ErrAlreadySubmitted rejects any mutation after a successful submission.
	ErrAlreadySubmitted = errors.New("quiz already submitted")
	// ErrSubmissionCancelled is returned when the user declines the confirmation prompt.
	ErrSubmissionCancelled = errors.New("submission cancelled")
	// ErrNetwork marks submission failures before a response was received.
	ErrNetwork = errors.New("network error")
	// ErrServer marks non-success responses from the results endpoint.
	ErrServer = errors.New("server error")
)

// SubmissionError describes a failed submission attempt.
type SubmissionError struct {
	Kind       error // ErrNetwork or ErrServer
	StatusCode int
	Message    string
	Err        error
}

func (e *SubmissionError) Error() string {
	switch {
	case e.Message != "" && e.StatusCode != 0:
		return fmt.Sprintf("%v: status %d: %s", e.Kind, e.StatusCode, e.Message)
	case e.Message != "":
		return fmt.Sprintf("%v: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return e.Kind.Error()
	}
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *SubmissionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
