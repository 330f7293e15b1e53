package analysis

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrBadOutput indicates the model response could not be parsed as the
// expected JSON document.
var ErrBadOutput = errors.New("unparseable ai output")
