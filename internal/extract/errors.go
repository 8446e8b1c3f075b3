package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCompletionChoices matches *NoCompletionChoicesError.
	ErrNoCompletionChoices = errors.New("no completion choices")
	// ErrMalformedResponse matches *MalformedResponseError.
	ErrMalformedResponse = errors.New("malformed model response")
)

// NoCompletionChoicesError: the model answered with an empty choice list.
type NoCompletionChoicesError struct {
	Model string
	Raw   string
}

func (e *NoCompletionChoicesError) Error() string {
	return fmt.Sprintf("%s from %s", ErrNoCompletionChoices, e.Model)
}

func (e *NoCompletionChoicesError) Is(target error) bool { return target == ErrNoCompletionChoices }

// MalformedResponseError: the content was not a JSON object after sanitizing.
type MalformedResponseError struct {
	Model   string
	Content string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s from %s: %v", ErrMalformedResponse, e.Model, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }

// Error wraps any attempt failure with the document, the model and the
// metadata gathered before failing. errors.Is/As reach the cause.
type Error struct {
	Document string
	Model    string
	Meta     AttemptMeta
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extract %q with %s: %v", e.Document, e.Model, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
