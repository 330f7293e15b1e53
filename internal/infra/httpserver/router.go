package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appclaims "github.com/vetletters/claims-intake/internal/application/claims"
	"github.com/vetletters/claims-intake/internal/config"
	"github.com/vetletters/claims-intake/internal/domain/analysis"
	domain "github.com/vetletters/claims-intake/internal/domain/claims"
	"github.com/vetletters/claims-intake/internal/middleware"
)

const serviceVersion = "3.0"

type Router struct {
	claimsSvc *appclaims.Service
	cfg       *config.Config
	db        *sql.DB
	log       *zap.Logger
}

func NewRouter(claimsSvc *appclaims.Service, cfg *config.Config, db *sql.DB, log *zap.Logger) http.Handler {
	r := &Router{claimsSvc: claimsSvc, cfg: cfg, db: db, log: log}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))
	mux.Use(middleware.LoggingMiddleware(log))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.RateLimitMiddleware(60, 2))
	mux.Use(middleware.WebhookAuth(cfg.Auth.WebhookToken))

	mux.Get("/", r.handleRoot)
	mux.Get("/health", middleware.HealthHandler(map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	}))
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Post("/process-va-records", r.wrap(r.handleProcessRecords))
	mux.Get("/test", r.wrap(r.handleTest))
	mux.Post("/webhook-test", r.wrap(r.handleWebhookTest))

	mux.Get("/claims/latest", r.wrap(r.handleLatest))
	mux.Get("/claims/{id}", r.wrap(r.handleGet))
	mux.Get("/claims/{id}/errors", r.wrap(r.handleStageErrors))
	mux.Post("/claims/{id}/rerun", r.wrap(r.handleRerun))

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidPayload):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, domain.ErrNotFound), errors.Is(err, sql.ErrNoRows):
				http.Error(w, "not found", http.StatusNotFound)
			case errors.Is(err, analysis.ErrQuotaExceeded):
				http.Error(w, "ai quota exceeded", http.StatusTooManyRequests)
			default:
				r.log.Error("request failed",
					zap.String("path", req.URL.Path), zap.Error(err))
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

// GET /
func (r *Router) handleRoot(w http.ResponseWriter, req *http.Request) {
	model := r.cfg.AI.Model
	if model == "" {
		model = "gpt-4o-2024-08-06"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "active",
		"service":    "VA Claims Analysis System",
		"version":    serviceVersion,
		"ai_backend": model,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

// POST /process-va-records
// WorkDrive webhook: registers the claim and runs the pipeline in the
// background so the webhook sender gets its answer right away.
func (r *Router) handleProcessRecords(w http.ResponseWriter, req *http.Request) error {
	var payload domain.WebhookPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		return domain.ErrInvalidPayload
	}
	sanitizePayload(&payload)
	if payload.DownloadURL != "" {
		if err := middleware.ValidateDownloadURL(payload.DownloadURL); err != nil {
			return domain.ErrInvalidPayload
		}
	}

	rec, created, err := r.claimsSvc.Intake(req.Context(), &payload)
	if err != nil {
		return err
	}

	if created {
		middleware.IncrementClaims()
		go r.runPipeline(rec.ID)
	}

	return writeJSON(w, http.StatusAccepted, map[string]any{
		"claim_id":  rec.ID,
		"status":    rec.Status,
		"duplicate": !created,
		"queued_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// runPipeline jalan di background, biar jalan sampai selesai
func (r *Router) runPipeline(id domain.ClaimID) {
	middleware.IncrementClaimsRunning()
	defer middleware.DecrementClaimsRunning()

	if _, err := r.claimsSvc.RunUntilDone(id); err != nil {
		middleware.IncrementClaimsFailed()
		r.log.Error("background pipeline failed",
			zap.String("claim_id", string(id)), zap.Error(err))
	}
}

// GET /test
// Configuration smoke check: which integrations carry credentials and
// whether the database answers.
func (r *Router) handleTest(w http.ResponseWriter, req *http.Request) error {
	dbStatus := "ok"
	if err := r.db.PingContext(req.Context()); err != nil {
		dbStatus = err.Error()
	}

	return writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"database": dbStatus,
		"services_configured": map[string]bool{
			"ai":        r.cfg.AI.APIKey != "",
			"workdrive": r.cfg.WorkDrive.AccessToken != "",
			"crm":       r.cfg.CRM.AccessToken != "",
			"mail":      r.cfg.Mail.AccessToken != "",
		},
		"pipeline": map[string]any{
			"max_attempts":      r.cfg.Pipeline.MaxAttempts,
			"retry_backoff_ms":  r.cfg.Pipeline.RetryBackoffMs,
			"stage_timeout_sec": r.cfg.Pipeline.StageTimeoutSec,
		},
	})
}

// POST /webhook-test
// Parses a webhook payload and reports what the intake would make of it,
// without creating a claim or touching any external service.
func (r *Router) handleWebhookTest(w http.ResponseWriter, req *http.Request) error {
	var payload domain.WebhookPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		return domain.ErrInvalidPayload
	}
	sanitizePayload(&payload)

	resp := map[string]any{"valid": true}
	if err := payload.Validate(); err != nil {
		resp["valid"] = false
		resp["error"] = err.Error()
	} else {
		rec := domain.ExtractClaim(&payload, time.Now())
		resp["claim_id"] = rec.ID
		resp["veteran_name"] = rec.VeteranName
		resp["veteran_email"] = rec.VeteranEmail
		resp["file_name"] = rec.FileName
	}
	return writeJSON(w, http.StatusOK, resp)
}

// GET /claims/latest?limit=20
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.claimsSvc.Latest(req.Context(), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /claims/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateClaimID(id); err != nil {
		return domain.ErrNotFound
	}
	rec, err := r.claimsSvc.Get(req.Context(), domain.ClaimID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rec)
}

// GET /claims/{id}/errors?limit=20
func (r *Router) handleStageErrors(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.claimsSvc.StageErrors(req.Context(), domain.ClaimID(id), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// POST /claims/{id}/rerun
// Resumes a failed or interrupted claim from its last checkpoint.
func (r *Router) handleRerun(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	rec, err := r.claimsSvc.Get(req.Context(), domain.ClaimID(id))
	if err != nil {
		return err
	}

	go r.runPipeline(rec.ID)

	return writeJSON(w, http.StatusAccepted, map[string]any{
		"claim_id":  rec.ID,
		"status":    rec.Status,
		"queued_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// sanitizePayload scrubs the free-text webhook fields that end up in reports
// and emails.
func sanitizePayload(p *domain.WebhookPayload) {
	p.FileName = middleware.SanitizeString(p.FileName)
	p.UserName = middleware.SanitizeString(p.UserName)
	p.UserEmail = middleware.SanitizeString(p.UserEmail)
}

func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}
