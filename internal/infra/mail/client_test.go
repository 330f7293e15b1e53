package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/vetletters/claims-intake/internal/domain/claims"
)

func TestNotifyReportReady(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/accounts/acct-1/messages", r.URL.Path)
		assert.Equal(t, "Zoho-oauthtoken tok-mail", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"status":{"code":200}}`))
	}))
	defer srv.Close()

	rec := &domain.ClaimRecord{
		ID:                 "VAR-20250823-a1b2c3d4",
		VeteranName:        "John Smith",
		VeteranEmail:       "john.smith@example.com",
		ShareURL:           "https://wd/share/abc",
		ConditionsReviewed: 2,
		MonthlyIncrease:    525,
	}

	c := New(srv.URL, "tok-mail", "acct-1", "reports@vetletters.example", time.Second)
	require.NoError(t, c.NotifyReportReady(context.Background(), rec))

	assert.Equal(t, "reports@vetletters.example", got["fromAddress"])
	assert.Equal(t, "john.smith@example.com", got["toAddress"])
	assert.Equal(t, "html", got["mailFormat"])
	assert.Contains(t, got["subject"], "VAR-20250823-a1b2c3d4")
	assert.Contains(t, got["content"], "https://wd/share/abc")
	assert.Contains(t, got["content"], "$525")
}

func TestNotifyReportReadyServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "mail backend down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", "acct-1", "reports@vetletters.example", time.Second)
	err := c.NotifyReportReady(context.Background(), &domain.ClaimRecord{VeteranEmail: "x@example.com"})
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}
