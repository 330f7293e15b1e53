package claims

import (
	"errors"
	"fmt"
)

// ErrInvalidPayload indicates a webhook payload missing required fields.
var ErrInvalidPayload = errors.New("invalid webhook payload")

// ErrNotFound indicates the claim does not exist.
var ErrNotFound = errors.New("claim not found")

// CallError describes a failed call to an external collaborator. StatusCode
// is zero for transport-level failures (timeout, connection refused).
type CallError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *CallError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// Transient reports whether the call is worth retrying: network failures,
// server errors and rate limits. Other 4xx responses are terminal.
func (e *CallError) Transient() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

// IsTransient classifies any error per the pipeline retry contract. Errors
// that are not CallError (template rendering, SQL, bad AI output) are
// terminal: retrying them cannot change the outcome.
func IsTransient(err error) bool {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Transient()
	}
	return false
}
