package claims

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePayload() *WebhookPayload {
	return &WebhookPayload{
		Event:        "file_created",
		FileID:       "a1b2c3d4e5f6",
		FileName:     "John-Smith_john.smith@example.com.pdf",
		FileType:     "pdf",
		FileSize:     "12 KB",
		DownloadURL:  "https://workdrive.example/download/a1b2c3d4e5f6",
		UploadedTime: "2025-08-23T10:00:00Z",
		UserEmail:    "staff@vetletters.example",
		UserName:     "Intake Staff",
	}
}

func TestValidateReportsAllMissingFields(t *testing.T) {
	p := &WebhookPayload{}
	err := p.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPayload)
	for _, field := range []string{"id", "name", "download_url", "event_by_user_email_id"} {
		assert.Contains(t, err.Error(), field)
	}

	assert.NoError(t, samplePayload().Validate())
}

func TestExtractClaimParsesVeteranFromFilename(t *testing.T) {
	now := time.Date(2025, 8, 23, 10, 30, 0, 0, time.UTC)
	rec := ExtractClaim(samplePayload(), now)

	assert.Equal(t, ClaimID("VAR-20250823-a1b2c3d4"), rec.ID)
	assert.Equal(t, "John Smith", rec.VeteranName)
	assert.Equal(t, "john.smith@example.com", rec.VeteranEmail)
	assert.Equal(t, StatusReceived, rec.Status)
	assert.Equal(t, now, rec.CreatedAt)
}

func TestExtractClaimHandlesURLEncodedNames(t *testing.T) {
	p := samplePayload()
	p.FileName = "jane%20doe_jane@example.com.txt"
	p.FileType = "txt"

	rec := ExtractClaim(p, time.Now())
	assert.Equal(t, "Jane Doe", rec.VeteranName)
	assert.Equal(t, "jane@example.com", rec.VeteranEmail)
}

func TestExtractClaimFallsBackToUploader(t *testing.T) {
	p := samplePayload()
	p.FileName = "medical-records.pdf"

	rec := ExtractClaim(p, time.Now())
	assert.Equal(t, "Intake Staff", rec.VeteranName)
	assert.Equal(t, "staff@vetletters.example", rec.VeteranEmail)
}

func TestNewClaimIDTruncatesLongFileIDs(t *testing.T) {
	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, ClaimID("VAR-20250102-abcdefgh"), NewClaimID(now, "abcdefghijkl"))
	assert.Equal(t, ClaimID("VAR-20250102-abc"), NewClaimID(now, "abc"))
}

func TestResumeAndRestartStages(t *testing.T) {
	assert.Equal(t, StageFetch, ResumeStage(StatusReceived))
	assert.Equal(t, StageFetch, ResumeStage(StatusAnalyzing))
	assert.Equal(t, StageUpload, ResumeStage(StatusReported))
	assert.Equal(t, StageShare, ResumeStage(StatusUploaded))
	assert.Equal(t, StageNotify, ResumeStage(StatusShared))
	assert.Equal(t, StageLog, ResumeStage(StatusNotified))
	assert.Equal(t, Stage(""), ResumeStage(StatusLogged))

	// in-memory stages restart at fetch, durable ones restart in place
	assert.Equal(t, StageFetch, RestartStage(StageAnalyze))
	assert.Equal(t, StageFetch, RestartStage(StageReport))
	assert.Equal(t, StageUpload, RestartStage(StageUpload))
	assert.Equal(t, StageNotify, RestartStage(StageNotify))

	assert.Equal(t, StatusReceived, CheckpointBefore(StageFetch))
	assert.Equal(t, StatusReported, CheckpointBefore(StageUpload))
	assert.Equal(t, StatusNotified, CheckpointBefore(StageLog))

	assert.Less(t, StageRank(StageFetch), StageRank(StageAnalyze))
	assert.Less(t, StageRank(StageNotify), StageRank(StageLog))
	assert.Equal(t, -1, StageRank(Stage("bogus")))
}
