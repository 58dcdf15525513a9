package pricing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdpower/ccusage-statusline-go/internal/types"
)

const tableJSON = `{
	"sample_spec": {"input_cost_per_token": "not a number", "max_tokens": "LEGACY"},
	"claude-sonnet-4-20250514": {"input_cost_per_token": 3e-06, "output_cost_per_token": 1.5e-05, "input_cost_per_token_above_200k_tokens": 6e-06},
	"gpt-5": {"input_cost_per_token": 1.25e-06}
}`

type tableServer struct {
	*httptest.Server
	hits atomic.Int32
}

func newTableServer(t *testing.T, status int, body string) *tableServer {
	t.Helper()
	ts := &tableServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.hits.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func writeCacheFile(t *testing.T, dir string, ts time.Time, models map[string]Entry) {
	t.Helper()
	data, err := json.Marshal(cacheFile{Timestamp: ts.Unix(), Models: models})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, CacheFileName), data, 0o600))
}

func TestServiceLoad_FetchesAndPersists(t *testing.T) {
	dir := t.TempDir()
	srv := newTableServer(t, http.StatusOK, tableJSON)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	svc := NewService(dir, WithURL(srv.URL), WithClock(func() time.Time { return now }))
	models, err := svc.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, models, 2, "entries that fail to decode are skipped")
	assert.Equal(t, 3e-6, *models["claude-sonnet-4-20250514"].InputCostPerToken)
	assert.Equal(t, int32(1), srv.hits.Load())

	cached, err := svc.readCache()
	require.NoError(t, err)
	assert.Equal(t, now.Unix(), cached.Timestamp)
	assert.Len(t, cached.Models, 2)

	// second load within the TTL is served from disk
	_, err = svc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), srv.hits.Load())
}

func TestServiceLoad_FreshCacheSkipsNetwork(t *testing.T) {
	dir := t.TempDir()
	srv := newTableServer(t, http.StatusOK, tableJSON)
	now := time.Now()
	writeCacheFile(t, dir, now.Add(-23*time.Hour), map[string]Entry{"cached-model": {}})

	svc := NewService(dir, WithURL(srv.URL))
	models, err := svc.Load(context.Background())
	require.NoError(t, err)

	assert.Contains(t, models, "cached-model")
	assert.Equal(t, int32(0), srv.hits.Load())
}

func TestServiceLoad_StaleCacheRefreshes(t *testing.T) {
	dir := t.TempDir()
	srv := newTableServer(t, http.StatusOK, tableJSON)
	writeCacheFile(t, dir, time.Now().Add(-25*time.Hour), map[string]Entry{"cached-model": {}})

	svc := NewService(dir, WithURL(srv.URL))
	models, err := svc.Load(context.Background())
	require.NoError(t, err)

	assert.NotContains(t, models, "cached-model")
	assert.Contains(t, models, "gpt-5")
	assert.Equal(t, int32(1), srv.hits.Load())
}

func TestServiceLoad_FetchFailureUsesStaleCache(t *testing.T) {
	dir := t.TempDir()
	srv := newTableServer(t, http.StatusInternalServerError, "boom")
	writeCacheFile(t, dir, time.Now().Add(-30*24*time.Hour), map[string]Entry{"cached-model": {}})

	svc := NewService(dir, WithURL(srv.URL))
	models, err := svc.Load(context.Background())
	require.NoError(t, err)

	assert.Contains(t, models, "cached-model")
	assert.Equal(t, int32(1), srv.hits.Load())
}

func TestServiceLoad_NoCacheAndNoNetwork(t *testing.T) {
	dir := t.TempDir()
	srv := newTableServer(t, http.StatusBadGateway, "")

	svc := NewService(dir, WithURL(srv.URL))
	_, err := svc.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNoPricing)

	var statusErr types.HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
}

func TestServiceLoad_CorruptCacheIsIgnored(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, CacheFileName), []byte("{not json"), 0o600))
	srv := newTableServer(t, http.StatusOK, tableJSON)

	svc := NewService(dir, WithURL(srv.URL))
	models, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, models, 2)
}

func TestServiceLoad_Timeout(t *testing.T) {
	dir := t.TempDir()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	svc := NewService(dir, WithURL(srv.URL), WithTimeout(50*time.Millisecond))
	start := time.Now()
	_, err := svc.Load(context.Background())
	require.ErrorIs(t, err, types.ErrNoPricing)
	assert.Less(t, time.Since(start), time.Second)
}

func TestServiceLoad_Offline(t *testing.T) {
	dir := t.TempDir()
	srv := newTableServer(t, http.StatusOK, tableJSON)

	svc := NewService(dir, WithURL(srv.URL), WithOffline(true))
	_, err := svc.Load(context.Background())
	require.ErrorIs(t, err, types.ErrNoPricing)
	require.ErrorIs(t, err, types.ErrOffline)

	writeCacheFile(t, dir, time.Now().Add(-48*time.Hour), map[string]Entry{"cached-model": {}})
	models, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, models, "cached-model")
	assert.Equal(t, int32(0), srv.hits.Load())
}

func TestNewService_EmptyURLKeepsDefault(t *testing.T) {
	svc := NewService(t.TempDir(), WithURL(""))
	assert.Equal(t, LiteLLMURL, svc.url)
}
