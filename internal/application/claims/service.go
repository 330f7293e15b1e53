package claims

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vetletters/claims-intake/internal/application"
	"github.com/vetletters/claims-intake/internal/domain/analysis"
	domain "github.com/vetletters/claims-intake/internal/domain/claims"
)

// Retry/backoff defaults; operations can tune these through config.
const (
	DefaultMaxAttempts  = 3
	DefaultBaseDelay    = 500 * time.Millisecond
	DefaultStageTimeout = 60 * time.Second
)

// RetryPolicy bounds per-stage retries of transient external failures.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// ReportRenderer turns an analysis result into the client-facing HTML report.
type ReportRenderer interface {
	Render(rec *domain.ClaimRecord, res *analysis.Result) ([]byte, error)
}

// Service implements the claim intake use-cases. Each pipeline run is
// sequential; distinct claims are independent and may run concurrently.
type Service struct {
	Repo     domain.Repository
	Errors   domain.StageErrorRepository
	Fetcher  domain.DocumentFetcher
	Analyzer analysis.Analyzer
	Renderer ReportRenderer
	Archive  domain.ArtifactArchive
	Store    domain.ReportStore
	Notifier domain.Notifier
	CRM      domain.CRMLogger
	Clock    application.Clock
	Log      *zap.Logger

	Retry        RetryPolicy
	StageTimeout time.Duration
}

// Intake validates the webhook payload and creates the claim record. When a
// record already exists for the same file the existing one is returned, so a
// redelivered webhook never forks a second claim.
func (s *Service) Intake(ctx context.Context, p *domain.WebhookPayload) (*domain.ClaimRecord, bool, error) {
	if err := p.Validate(); err != nil {
		return nil, false, err
	}

	rec := domain.ExtractClaim(p, s.Clock.Now())
	existing, err := s.Repo.Get(ctx, rec.ID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	if err := s.Repo.Save(ctx, rec); err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// RunUntilDone executes the pipeline with context.Background(); meant to be
// called from a goroutine in the router so the run survives the request.
func (s *Service) RunUntilDone(id domain.ClaimID) (*domain.ClaimRecord, error) {
	return s.Run(context.Background(), id)
}

// Run executes the pipeline for a claim, resuming from the persisted
// checkpoint. Completed claims are a no-op. Transient stage errors are
// retried with bounded exponential backoff; terminal errors stop the run and
// leave the record failed with the offending stage recorded.
func (s *Service) Run(ctx context.Context, id domain.ClaimID) (*domain.ClaimRecord, error) {
	rec, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	start := domain.ResumeStage(rec.Status)
	if rec.Status == domain.StatusFailed {
		// roll back to the checkpoint preceding the failed stage so the
		// stage conditions below see the last durable state
		start = domain.RestartStage(rec.FailedStage)
		rec.Status = domain.CheckpointBefore(start)
	}

	log := s.log().With(zap.String("claim_id", string(id)))
	if start == "" {
		log.Info("claim already complete, nothing to do")
		return rec, nil
	}

	runID := uuid.New().String()
	log = log.With(zap.String("run_id", runID))
	log.Info("pipeline run starting",
		zap.String("status", string(rec.Status)),
		zap.String("from_stage", string(start)))

	rec.FailedStage = ""
	rec.LastError = ""

	var (
		records string
		result  *analysis.Result
		report  []byte
	)

	// fetch + analyze: the analysis result lives only in memory, so these
	// always rerun together when the claim has not reached "reported".
	if rec.Status == domain.StatusReceived || rec.Status == domain.StatusAnalyzing {
		if err := s.runStage(ctx, domain.StageFetch, log, func(c context.Context) error {
			var ferr error
			records, ferr = s.Fetcher.FetchDocuments(c, rec.DownloadURL)
			return ferr
		}); err != nil {
			return s.fail(rec, domain.StageFetch, err, log)
		}

		if err := s.checkpoint(ctx, rec, domain.StatusAnalyzing); err != nil {
			return s.fail(rec, domain.StageAnalyze, err, log)
		}
		if err := s.runStage(ctx, domain.StageAnalyze, log, func(c context.Context) error {
			var aerr error
			result, aerr = s.Analyzer.Analyze(c, records, rec.VeteranName, string(rec.ID))
			return aerr
		}); err != nil {
			return s.fail(rec, domain.StageAnalyze, err, log)
		}

		analysis.Enrich(result, s.Clock.Now())
		rec.ConditionsReviewed = len(result.Conditions)
		rec.MonthlyIncrease = result.ExecutiveSummary.MonthlyIncreasePotential

		report, err = s.Renderer.Render(rec, result)
		if err != nil {
			return s.fail(rec, domain.StageReport, err, log)
		}
		key := fmt.Sprintf("reports/%s.html", rec.ID)
		if err := s.runStage(ctx, domain.StageReport, log, func(c context.Context) error {
			return s.Archive.Put(c, key, report, "text/html")
		}); err != nil {
			return s.fail(rec, domain.StageReport, err, log)
		}
		rec.ArchiveKey = key
		if err := s.checkpoint(ctx, rec, domain.StatusReported); err != nil {
			return s.fail(rec, domain.StageReport, err, log)
		}
	}

	if rec.Status == domain.StatusReported {
		// resuming past analysis: the rendered report comes back from the
		// archive instead of being rebuilt
		if report == nil {
			if err := s.runStage(ctx, domain.StageUpload, log, func(c context.Context) error {
				var gerr error
				report, gerr = s.Archive.Get(c, rec.ArchiveKey)
				return gerr
			}); err != nil {
				return s.fail(rec, domain.StageUpload, err, log)
			}
		}
		if err := s.runStage(ctx, domain.StageUpload, log, func(c context.Context) error {
			stored, uerr := s.Store.UploadReport(c, reportFilename(rec), report)
			if uerr != nil {
				return uerr
			}
			rec.StorageFileID = stored.FileID
			rec.ReportURL = stored.URL
			return nil
		}); err != nil {
			return s.fail(rec, domain.StageUpload, err, log)
		}
		if err := s.checkpoint(ctx, rec, domain.StatusUploaded); err != nil {
			return s.fail(rec, domain.StageUpload, err, log)
		}
	}

	if rec.Status == domain.StatusUploaded {
		if err := s.runStage(ctx, domain.StageShare, log, func(c context.Context) error {
			url, serr := s.Store.CreateShareLink(c, rec.StorageFileID)
			if serr != nil {
				return serr
			}
			rec.ShareURL = url
			return nil
		}); err != nil {
			return s.fail(rec, domain.StageShare, err, log)
		}
		if err := s.checkpoint(ctx, rec, domain.StatusShared); err != nil {
			return s.fail(rec, domain.StageShare, err, log)
		}
	}

	if rec.Status == domain.StatusShared {
		if err := s.runStage(ctx, domain.StageNotify, log, func(c context.Context) error {
			return s.Notifier.NotifyReportReady(c, rec)
		}); err != nil {
			return s.fail(rec, domain.StageNotify, err, log)
		}
		if err := s.checkpoint(ctx, rec, domain.StatusNotified); err != nil {
			return s.fail(rec, domain.StageNotify, err, log)
		}
	}

	if rec.Status == domain.StatusNotified {
		if err := s.runStage(ctx, domain.StageLog, log, func(c context.Context) error {
			crmID, lerr := s.CRM.LogOutcome(c, rec)
			if lerr != nil {
				return lerr
			}
			rec.CRMRecordID = crmID
			return nil
		}); err != nil {
			return s.fail(rec, domain.StageLog, err, log)
		}
		if err := s.checkpoint(ctx, rec, domain.StatusLogged); err != nil {
			return s.fail(rec, domain.StageLog, err, log)
		}
	}

	log.Info("pipeline run finished",
		zap.String("status", string(rec.Status)),
		zap.String("share_url", rec.ShareURL))
	return rec, nil
}

// Get returns one claim by id.
func (s *Service) Get(ctx context.Context, id domain.ClaimID) (*domain.ClaimRecord, error) {
	return s.Repo.Get(ctx, id)
}

// Latest returns the most recent claims.
func (s *Service) Latest(ctx context.Context, limit int) ([]*domain.ClaimRecord, error) {
	return s.Repo.Latest(ctx, limit)
}

// StageErrors lists persisted failures for a claim.
func (s *Service) StageErrors(ctx context.Context, id domain.ClaimID, limit int) ([]*domain.StageError, error) {
	return s.Errors.ListByClaim(ctx, string(id), limit)
}

// runStage invokes fn with a per-call timeout, retrying transient failures
// with exponential backoff up to the configured bound.
func (s *Service) runStage(ctx context.Context, stage domain.Stage, log *zap.Logger, fn func(context.Context) error) error {
	attempts := s.Retry.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	base := s.Retry.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	timeout := s.StageTimeout
	if timeout <= 0 {
		timeout = DefaultStageTimeout
	}

	var err error
	for attempt := 1; ; attempt++ {
		cctx, cancel := context.WithTimeout(ctx, timeout)
		err = fn(cctx)
		cancel()
		if err == nil {
			return nil
		}
		if !domain.IsTransient(err) || attempt >= attempts {
			return err
		}

		delay := base << (attempt - 1)
		log.Warn("stage failed, retrying",
			zap.String("stage", string(stage)),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Service) checkpoint(ctx context.Context, rec *domain.ClaimRecord, status domain.Status) error {
	rec.Status = status
	rec.UpdatedAt = s.Clock.Now()
	return s.Repo.Save(ctx, rec)
}

// fail marks the record failed at the given stage and persists a StageError
// row. Writes use a fresh context so a canceled run still leaves a trace.
func (s *Service) fail(rec *domain.ClaimRecord, stage domain.Stage, err error, log *zap.Logger) (*domain.ClaimRecord, error) {
	log.Error("pipeline stage failed",
		zap.String("stage", string(stage)),
		zap.Error(err))

	ctx := context.Background()
	rec.Status = domain.StatusFailed
	rec.FailedStage = stage
	rec.LastError = err.Error()
	rec.UpdatedAt = s.Clock.Now()
	if serr := s.Repo.Save(ctx, rec); serr != nil {
		log.Error("failed to persist failure state", zap.Error(serr))
	}

	if s.Errors != nil {
		e := &domain.StageError{
			ClaimID:     string(rec.ID),
			Stage:       string(stage),
			Message:     err.Error(),
			DetailsJSON: errorDetails(err),
			CreatedAt:   s.Clock.Now(),
		}
		if serr := s.Errors.Save(ctx, e); serr != nil {
			log.Error("failed to persist stage error", zap.Error(serr))
		}
	}

	return rec, fmt.Errorf("stage %s: %w", stage, err)
}

func (s *Service) log() *zap.Logger {
	if s.Log != nil {
		return s.Log
	}
	return zap.NewNop()
}

func errorDetails(err error) string {
	var ce *domain.CallError
	if !errors.As(err, &ce) {
		return ""
	}
	b, _ := json.Marshal(map[string]any{
		"service":     ce.Service,
		"status_code": ce.StatusCode,
		"transient":   ce.Transient(),
	})
	return string(b)
}

func reportFilename(rec *domain.ClaimRecord) string {
	return fmt.Sprintf("va_senior_rater_analysis_%s.html", rec.ID)
}
