package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appclaims "github.com/vetletters/claims-intake/internal/application/claims"
	"github.com/vetletters/claims-intake/internal/config"
	"github.com/vetletters/claims-intake/internal/domain/analysis"
	domain "github.com/vetletters/claims-intake/internal/domain/claims"
)

// ---- stubs wiring a working in-memory pipeline behind the router ----

type memRepo struct {
	mu   sync.Mutex
	recs map[domain.ClaimID]*domain.ClaimRecord
}

func (m *memRepo) Save(_ context.Context, rec *domain.ClaimRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.recs[rec.ID] = &cp
	return nil
}

func (m *memRepo) Get(_ context.Context, id domain.ClaimID) (*domain.ClaimRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memRepo) Latest(_ context.Context, _ int) ([]*domain.ClaimRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ClaimRecord
	for _, rec := range m.recs {
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

type memErrs struct{}

func (memErrs) Save(context.Context, *domain.StageError) error { return nil }
func (memErrs) ListByClaim(context.Context, string, int) ([]*domain.StageError, error) {
	return nil, nil
}

type stubFetcher struct{}

func (stubFetcher) FetchDocuments(context.Context, string) (string, error) { return "records", nil }

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(context.Context, string, string, string) (*analysis.Result, error) {
	return &analysis.Result{}, nil
}

type stubRenderer struct{}

func (stubRenderer) Render(*domain.ClaimRecord, *analysis.Result) ([]byte, error) {
	return []byte("<html></html>"), nil
}

type stubArchive struct{}

func (stubArchive) Put(context.Context, string, []byte, string) error { return nil }
func (stubArchive) Get(context.Context, string) ([]byte, error)       { return []byte("<html></html>"), nil }

type stubStore struct{}

func (stubStore) UploadReport(context.Context, string, []byte) (domain.StoredReport, error) {
	return domain.StoredReport{FileID: "res-1", URL: "https://wd/file/res-1"}, nil
}
func (stubStore) CreateShareLink(context.Context, string) (string, error) {
	return "https://wd/share/res-1", nil
}

type stubNotifier struct{}

func (stubNotifier) NotifyReportReady(context.Context, *domain.ClaimRecord) error { return nil }

type stubCRM struct{}

func (stubCRM) LogOutcome(context.Context, *domain.ClaimRecord) (string, error) {
	return "crm-1", nil
}

type stubClock struct{}

func (stubClock) Now() time.Time { return time.Date(2025, 8, 23, 12, 0, 0, 0, time.UTC) }

func newTestRouter(t *testing.T, token string) (http.Handler, *memRepo) {
	t.Helper()

	repo := &memRepo{recs: map[domain.ClaimID]*domain.ClaimRecord{}}
	svc := &appclaims.Service{
		Repo:     repo,
		Errors:   memErrs{},
		Fetcher:  stubFetcher{},
		Analyzer: stubAnalyzer{},
		Renderer: stubRenderer{},
		Archive:  stubArchive{},
		Store:    stubStore{},
		Notifier: stubNotifier{},
		CRM:      stubCRM{},
		Clock:    stubClock{},
		Log:      zap.NewNop(),
		Retry:    appclaims.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond},
	}

	cfg := &config.Config{}
	cfg.AI.APIKey = "key"
	cfg.WorkDrive.AccessToken = "tok"
	cfg.Auth.WebhookToken = token

	// lazy handle; the router only pings it on /test and /health
	db, err := sql.Open("mysql", "user:pw@tcp(127.0.0.1:1)/claims")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewRouter(svc, cfg, db, zap.NewNop()), repo
}

const webhookBody = `{
  "webhook_event": "file_created",
  "id": "a1b2c3d4e5f6",
  "name": "John-Smith_john.smith@example.com.pdf",
  "type": "pdf",
  "download_url": "https://workdrive.example/download/a1b2c3d4e5f6",
  "event_by_user_email_id": "staff@vetletters.example",
  "event_by_user_display_name": "Intake Staff"
}`

func TestRootEndpoint(t *testing.T) {
	h, _ := newTestRouter(t, "")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "active", body["status"])
	assert.Equal(t, "3.0", body["version"])
}

func TestProcessRecordsAcceptsWebhook(t *testing.T) {
	h, _ := newTestRouter(t, "")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/process-va-records", strings.NewReader(webhookBody)))

	require.Equal(t, http.StatusAccepted, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "VAR-20250823-a1b2c3d4", body["claim_id"])
	assert.Equal(t, false, body["duplicate"])
}

func TestProcessRecordsDuplicateWebhook(t *testing.T) {
	h, _ := newTestRouter(t, "")

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/process-va-records", strings.NewReader(webhookBody)))
	require.Equal(t, http.StatusAccepted, first.Code)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/process-va-records", strings.NewReader(webhookBody)))
	require.Equal(t, http.StatusAccepted, second.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &body))
	assert.Equal(t, true, body["duplicate"])
}

func TestProcessRecordsRejectsMalformedPayload(t *testing.T) {
	h, _ := newTestRouter(t, "")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/process-va-records", strings.NewReader("{not json")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/process-va-records", strings.NewReader(`{"id":"x"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestProcessRecordsRejectsInternalDownloadURL(t *testing.T) {
	h, _ := newTestRouter(t, "")

	payload := strings.Replace(webhookBody,
		"https://workdrive.example/download/a1b2c3d4e5f6",
		"http://127.0.0.1:8500/secrets", 1)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/process-va-records", strings.NewReader(payload)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetClaimNotFound(t *testing.T) {
	h, _ := newTestRouter(t, "")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/claims/VAR-20250823-deadbeef", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetClaimReturnsRecord(t *testing.T) {
	h, repo := newTestRouter(t, "")

	rec := &domain.ClaimRecord{ID: "VAR-20250823-a1b2c3d4", VeteranName: "John Smith", Status: domain.StatusLogged}
	require.NoError(t, repo.Save(context.Background(), rec))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/claims/VAR-20250823-a1b2c3d4", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body domain.ClaimRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "John Smith", body.VeteranName)
	assert.Equal(t, domain.StatusLogged, body.Status)
}

func TestWebhookTestEcho(t *testing.T) {
	h, _ := newTestRouter(t, "")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhook-test", strings.NewReader(webhookBody)))

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "John Smith", body["veteran_name"])

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhook-test", strings.NewReader(`{"id":"x"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, false, body["valid"])
}

func TestWebhookTestScrubsControlCharacters(t *testing.T) {
	h, _ := newTestRouter(t, "")

	// no veteran identity in the filename, so intake falls back to the
	// uploader fields, which arrive with embedded control bytes
	body := `{
	  "webhook_event": "file_created",
	  "id": "a1b2c3d4e5f6",
	  "name": "medical-records.pdf",
	  "type": "pdf",
	  "download_url": "https://workdrive.example/download/a1b2c3d4e5f6",
	  "event_by_user_email_id": "staff@vetletters.example\u0000",
	  "event_by_user_display_name": "  Intake\u0000 Staff\u0007  "
	}`

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhook-test", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["valid"])
	assert.Equal(t, "Intake Staff", resp["veteran_name"])
	assert.Equal(t, "staff@vetletters.example", resp["veteran_email"])
}

func TestWebhookAuthGuardsEndpoints(t *testing.T) {
	h, _ := newTestRouter(t, "secret-token")

	// root stays open for uptime monitors
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/process-va-records", strings.NewReader(webhookBody)))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/process-va-records", strings.NewReader(webhookBody))
	req.Header.Set("Authorization", "Bearer secret-token")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusAccepted, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestRouter(t, "")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Contains(t, body, "requests_total")
	assert.Contains(t, body, "claims_total")
}
