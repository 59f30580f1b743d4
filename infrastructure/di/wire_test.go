package di

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nodal/infrastructure/config"
)

func testConfig(backend string) *config.Config {
	return &config.Config{
		Environment:             "test",
		StorageBackend:          backend,
		AIProvider:              "echo",
		LogLevel:                "error",
		EmbeddingTTL:            time.Hour,
		AIRateLimit:             10,
		AIRateWindow:            time.Minute,
		PersistFailureThreshold: 3,
		EnableMetrics:           true,
	}
}

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestInitializeContainer_Memory(t *testing.T) {
	container, cleanup, err := InitializeContainer(context.Background(), testConfig(config.StorageMemory))
	require.NoError(t, err)
	defer cleanup()

	assert.Nil(t, container.Rules.Watcher)
	assert.NotNil(t, container.Metrics)
	assert.Equal(t, config.StorageMemory, container.Storage.Backend)

	h := container.Router.Setup()
	assert.Equal(t, http.StatusOK, serve(t, h, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusCreated, serve(t, h, http.MethodPost, "/api/v1/workspaces/ws/notes", `{"x":1,"y":2}`).Code)

	w := serve(t, h, http.MethodPost, "/api/v1/workspaces/ws/smart-view", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "one note is not enough to cluster")
}

func TestInitializeContainer_SQLiteSurvivesRestart(t *testing.T) {
	cfg := testConfig(config.StorageSQLite)
	cfg.SQLitePath = filepath.Join(t.TempDir(), "nodal.db")

	first, cleanup, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	w := serve(t, first.Router.Setup(), http.MethodPost, "/api/v1/workspaces/ws/notes", `{"x":10,"y":20,"title":"kept"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	cleanup()

	second, cleanup, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	w = serve(t, second.Router.Setup(), http.MethodGet, "/api/v1/workspaces/ws/canvas", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var env struct {
		Data struct {
			Notes []struct {
				Title string `json:"title"`
			} `json:"notes"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.Len(t, env.Data.Notes, 1)
	assert.Equal(t, "kept", env.Data.Notes[0].Title)
}

func TestInitializeContainer_RejectsBadConfig(t *testing.T) {
	cfg := testConfig(config.StorageMemory)
	cfg.LogLevel = "loud"
	_, _, err := InitializeContainer(context.Background(), cfg)
	assert.Error(t, err)

	cfg = testConfig("postgres")
	_, _, err = InitializeContainer(context.Background(), cfg)
	assert.Error(t, err)
}
