package analysis

import "context"

// Analyzer is the AI rater: medical records in, structured findings out.
type Analyzer interface {
	Analyze(ctx context.Context, records string, veteranName, claimID string) (*Result, error)
}
