package llm

import (
	"errors"
	"fmt"
)

// ErrTransport matches every *TransportError.
var ErrTransport = errors.New("llm transport error")

const maxErrorBody = 512

// TransportError is a network or HTTP failure that survived the retry policy,
// or a non-retryable HTTP status.
type TransportError struct {
	Model      string
	URL        string
	StatusCode int // 0 when no response was received
	Body       string
	Attempts   int
	Err        error
}

func (e *TransportError) Error() string {
	where := e.URL
	if e.Model != "" {
		where = e.Model
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("llm transport %s: status %d after %d attempt(s): %s", where, e.StatusCode, e.Attempts, e.Body)
	}
	return fmt.Sprintf("llm transport %s: after %d attempt(s): %v", where, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

func truncateBody(b []byte) string {
	if len(b) <= maxErrorBody {
		return string(b)
	}
	return string(b[:maxErrorBody]) + "…"
}
