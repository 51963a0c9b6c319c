package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsecli/internal/config"
	"pulsecli/internal/services"
	"pulsecli/internal/store"
)

func newHealthServer(t *testing.T) *httptest.Server {
	t.Helper()

	paths := config.PathsUnder(t.TempDir())
	require.NoError(t, paths.EnsureDirectories())

	st := store.New(paths.DatabaseFile)
	t.Cleanup(func() { _ = st.Close() })

	logger := testLogger()
	handler := NewHealthHandler(services.NewHealthService("1.2.3", paths, st, logger), logger)

	r := chi.NewRouter()
	r.Mount("/api/health", handler.Routes())
	r.Get("/api/version", handler.Version)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestHealthEndpoint(t *testing.T) {
	srv := newHealthServer(t)

	var status services.HealthStatus
	code := getJSON(t, srv.URL+"/api/health", &status)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "1.2.3", status.Version)
	assert.Equal(t, "up", status.Checks["run_history"].Status)
}

func TestReadinessEndpoint(t *testing.T) {
	srv := newHealthServer(t)

	var status services.HealthStatus
	code := getJSON(t, srv.URL+"/api/health/ready", &status)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", status.Status)
}

func TestLivenessEndpoint(t *testing.T) {
	srv := newHealthServer(t)

	var status services.HealthStatus
	code := getJSON(t, srv.URL+"/api/health/live", &status)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alive", status.Status)
}

func TestVersionEndpoint(t *testing.T) {
	srv := newHealthServer(t)

	var v map[string]string
	code := getJSON(t, srv.URL+"/api/version", &v)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, config.AppName, v["name"])
	assert.Equal(t, "1.2.3", v["version"])
}
