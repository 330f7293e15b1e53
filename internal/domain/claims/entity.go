package claims

import (
	"fmt"
	"time"
)

// ClaimID identifier type, format VAR-YYYYMMDD-xxxxxxxx
type ClaimID string

// Status enum: last durable checkpoint of the pipeline
type Status string

const (
	StatusReceived  Status = "received"
	StatusAnalyzing Status = "analyzing"
	StatusReported  Status = "reported"
	StatusUploaded  Status = "uploaded"
	StatusShared    Status = "shared"
	StatusNotified  Status = "notified"
	StatusLogged    Status = "logged"
	StatusFailed    Status = "failed"
)

// Stage enum, pipeline order is fixed
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageAnalyze Stage = "analyze"
	StageReport  Stage = "report"
	StageUpload  Stage = "upload"
	StageShare   Stage = "share"
	StageNotify  Stage = "notify"
	StageLog     Stage = "log"
)

var stageOrder = []Stage{
	StageFetch, StageAnalyze, StageReport,
	StageUpload, StageShare, StageNotify, StageLog,
}

// StageRank returns the position of a stage in the pipeline, or -1.
func StageRank(st Stage) int {
	for i, s := range stageOrder {
		if s == st {
			return i
		}
	}
	return -1
}

// ResumeStage maps a checkpoint status to the first stage that still has to run.
// The analysis result is never persisted, so anything before the "reported"
// checkpoint restarts at fetch. An empty stage means the claim is complete.
func ResumeStage(s Status) Stage {
	switch s {
	case StatusReceived, StatusAnalyzing:
		return StageFetch
	case StatusReported:
		return StageUpload
	case StatusUploaded:
		return StageShare
	case StatusShared:
		return StageNotify
	case StatusNotified:
		return StageLog
	case StatusLogged:
		return ""
	}
	return StageFetch
}

// RestartStage returns where a failed claim picks up again. Stages whose
// inputs live only in memory (the downloaded records and the analysis
// result) restart at fetch.
func RestartStage(failed Stage) Stage {
	switch failed {
	case StageFetch, StageAnalyze, StageReport:
		return StageFetch
	}
	return failed
}

// CheckpointBefore is the durable status a claim is rolled back to when a
// failed run restarts at the given stage.
func CheckpointBefore(st Stage) Status {
	switch st {
	case StageUpload:
		return StatusReported
	case StageShare:
		return StatusUploaded
	case StageNotify:
		return StatusShared
	case StageLog:
		return StatusNotified
	}
	return StatusReceived
}

// Aggregate Root: ClaimRecord
type ClaimRecord struct {
	ID           ClaimID   `json:"id"`
	VeteranName  string    `json:"veteran_name"`
	VeteranEmail string    `json:"veteran_email"`
	FileID       string    `json:"file_id"`
	FileName     string    `json:"file_name"`
	FileSize     string    `json:"file_size,omitempty"`
	FileType     string    `json:"file_type,omitempty"`
	DownloadURL  string    `json:"download_url"`
	UploadedTime string    `json:"uploaded_time,omitempty"`
	Status       Status    `json:"status"`

	// Stage outputs kept on the record so a re-run resumes instead of
	// repeating completed stages.
	ArchiveKey         string `json:"archive_key,omitempty"`
	StorageFileID      string `json:"storage_file_id,omitempty"`
	ReportURL          string `json:"report_url,omitempty"`
	ShareURL           string `json:"share_url,omitempty"`
	CRMRecordID        string `json:"crm_record_id,omitempty"`
	ConditionsReviewed int    `json:"conditions_reviewed"`
	MonthlyIncrease    int    `json:"monthly_increase"`

	FailedStage Stage  `json:"failed_stage,omitempty"`
	LastError   string `json:"last_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewClaimID builds the report identifier from the upload date and the
// source file ID, e.g. VAR-20250823-1a2b3c4d.
func NewClaimID(now time.Time, fileID string) ClaimID {
	suffix := fileID
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return ClaimID(fmt.Sprintf("VAR-%s-%s", now.Format("20060102"), suffix))
}
