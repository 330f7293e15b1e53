package crm

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

func doneClaim() *domain.ClaimRecord {
	return &domain.ClaimRecord{
		ID:                 "VAR-20250823-a1b2c3d4",
		VeteranName:        "John Smith",
		VeteranEmail:       "john.smith@example.com",
		FileName:           "John-Smith_john.smith@example.com.pdf",
		ReportURL:          "https://wd/file/res-9",
		ShareURL:           "https://wd/share/abc",
		ConditionsReviewed: 2,
		MonthlyIncrease:    525,
		Status:             domain.StatusNotified,
	}
}

func TestLogOutcome(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/crm/v2/VA_Analyses", r.URL.Path)
		assert.Equal(t, "Zoho-oauthtoken tok-crm", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"data":[{"code":"SUCCESS","details":{"id":"crm-777"}}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok-crm", "", time.Second)
	id, err := c.LogOutcome(context.Background(), doneClaim())
	require.NoError(t, err)
	assert.Equal(t, "crm-777", id)

	rows, ok := gotBody["data"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, "John Smith", row["Veteran_Name"])
	assert.Equal(t, "https://wd/share/abc", row["Share_URL"])
	assert.Equal(t, float64(525), row["Monthly_Increase_Potential"])
}

func TestLogOutcomeMissingRecordID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", "", time.Second)
	_, err := c.LogOutcome(context.Background(), doneClaim())
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}

func TestLogOutcomeRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", "", time.Second)
	_, err := c.LogOutcome(context.Background(), doneClaim())
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}
