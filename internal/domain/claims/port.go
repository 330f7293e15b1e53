package claims

import "context"

// Repository port (interface untuk persistence)
type Repository interface {
	Save(ctx context.Context, rec *ClaimRecord) error
	Get(ctx context.Context, id ClaimID) (*ClaimRecord, error)
	Latest(ctx context.Context, limit int) ([]*ClaimRecord, error)
}

// StageErrorRepository persists stage failures
type StageErrorRepository interface {
	Save(ctx context.Context, e *StageError) error
	ListByClaim(ctx context.Context, claimID string, limit int) ([]*StageError, error)
}

// DocumentFetcher downloads the medical records referenced by the webhook
type DocumentFetcher interface {
	FetchDocuments(ctx context.Context, downloadURL string) (string, error)
}

// StoredReport is the handle returned by the file-storage service
type StoredReport struct {
	FileID string
	URL    string
}

// ReportStore port (file-storage service: upload + public link)
type ReportStore interface {
	UploadReport(ctx context.Context, filename string, html []byte) (StoredReport, error)
	CreateShareLink(ctx context.Context, fileID string) (string, error)
}

// ArtifactArchive port (internal object store used as the report checkpoint)
type ArtifactArchive interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Notifier sends the client-facing report-ready email
type Notifier interface {
	NotifyReportReady(ctx context.Context, rec *ClaimRecord) error
}

// CRMLogger writes the analysis outcome into the CRM, returning the record id
type CRMLogger interface {
	LogOutcome(ctx context.Context, rec *ClaimRecord) (string, error)
}
