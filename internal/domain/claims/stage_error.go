package claims

import "time"

// StageError is a persisted record of a pipeline stage failure, kept for
// operator visibility.
type StageError struct {
	ID          int64     `json:"id"`
	ClaimID     string    `json:"claim_id"`
	Stage       string    `json:"stage"`
	Message     string    `json:"message"`
	DetailsJSON string    `json:"details_json,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
