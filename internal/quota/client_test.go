package quota

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCheckFallbackWhenDisabled(t *testing.T) {
	client := NewClient(&config.QuotaConfig{
		Enabled:        false,
		FallbackLimits: map[string]int64{"contacts": 10},
	}, zap.NewNop())

	orgID := uuid.New()

	result := client.Check(context.Background(), orgID, "contacts", 1, 9)
	assert.True(t, result.Allowed)
	assert.Equal(t, int64(10), result.Limit)

	result = client.Check(context.Background(), orgID, "contacts", 1, 10)
	assert.False(t, result.Allowed, "current plus additional exceeds the limit")
	assert.Equal(t, int64(10), result.Current)

	// Features without a configured limit are unlimited
	result = client.Check(context.Background(), orgID, "activities", 1, 1_000_000)
	assert.True(t, result.Allowed)
	assert.Zero(t, result.Limit)
}

func TestCheckConsultsService(t *testing.T) {
	var gotBody checkRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/quota/check", r.URL.Path)
		require.Equal(t, "crm", r.Header.Get("X-Service-Name"))
		require.Equal(t, "s3cret", r.Header.Get("X-Service-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Result{Allowed: false, Limit: 5, Current: 5})
	}))
	defer srv.Close()

	client := NewClient(&config.QuotaConfig{
		Enabled:       true,
		BaseURL:       srv.URL,
		ServiceName:   "crm",
		ServiceSecret: "s3cret",
		CheckTimeout:  2,
	}, zap.NewNop())

	orgID := uuid.New()
	result := client.Check(context.Background(), orgID, "deals", 1, 5)
	assert.False(t, result.Allowed)
	assert.Equal(t, int64(5), result.Limit)
	assert.Equal(t, orgID.String(), gotBody.OrgID)
	assert.Equal(t, "deals", gotBody.Feature)
	assert.Equal(t, int64(1), gotBody.Additional)
}

func TestCheckDegradesOnServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(&config.QuotaConfig{
		Enabled:        true,
		BaseURL:        srv.URL,
		CheckTimeout:   2,
		FallbackLimits: map[string]int64{"deals": 3},
	}, zap.NewNop())

	result := client.Check(context.Background(), uuid.New(), "deals", 1, 3)
	assert.False(t, result.Allowed, "fallback limits apply when the service errors")
	assert.Equal(t, int64(3), result.Limit)
}

func TestSyncUsageReportsCount(t *testing.T) {
	var gotBody syncRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/quota/usage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
	}))
	defer srv.Close()

	client := NewClient(&config.QuotaConfig{
		Enabled:     true,
		BaseURL:     srv.URL,
		SyncTimeout: 2,
	}, zap.NewNop())

	client.SyncUsage(context.Background(), uuid.New(), "contacts", 42)
	assert.Equal(t, "contacts", gotBody.Feature)
	assert.Equal(t, int64(42), gotBody.Count)
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	healthy := NewClient(&config.QuotaConfig{Enabled: true, BaseURL: srv.URL, CheckTimeout: 2}, zap.NewNop())
	assert.NoError(t, healthy.Health(context.Background()))

	disabled := NewClient(&config.QuotaConfig{Enabled: false}, zap.NewNop())
	assert.NoError(t, disabled.Health(context.Background()), "a disabled dependency is always healthy")

	unreachable := NewClient(&config.QuotaConfig{Enabled: true, BaseURL: "http://127.0.0.1:1", CheckTimeout: 1}, zap.NewNop())
	assert.Error(t, unreachable.Health(context.Background()))
}
