package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainconfig "nodal/domain/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("AI_PROVIDER", "")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, StorageSQLite, cfg.StorageBackend)
	assert.Equal(t, "ollama", cfg.AIProvider)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "DynamoDB")
	t.Setenv("TABLE_NAME", "canvas-prod")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("EMBEDDING_TTL", "1h")
	t.Setenv("ENABLE_METRICS", "no")
	t.Setenv("AI_RATE_LIMIT", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, StorageDynamoDB, cfg.StorageBackend)
	assert.Equal(t, "canvas-prod", cfg.DynamoDBTable)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, time.Hour, cfg.EmbeddingTTL)
	assert.False(t, cfg.EnableMetrics)
	assert.Equal(t, 5, cfg.AIRateLimit)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoadConfig_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"STORAGE_BACKEND": "postgres"}},
		{"production without secret", map[string]string{"ENVIRONMENT": "production", "JWT_SECRET": ""}},
		{"negative ai rate limit", map[string]string{"AI_RATE_LIMIT": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestParseCanvasConfig_OverlaysDefaults(t *testing.T) {
	data := []byte("card_width: 300\ndouble_tap_window: 250ms\nsmart_view_layout:\n  columns: 4\n")

	cfg, err := ParseCanvasConfig(data, domainconfig.DefaultDomainConfig())

	require.NoError(t, err)
	assert.Equal(t, 300.0, cfg.CardWidth)
	assert.Equal(t, 200.0, cfg.CardHeight)
	assert.Equal(t, 250*time.Millisecond, cfg.DoubleTapWindow)
	assert.Equal(t, 4, cfg.SmartViewLayout.Columns)
	assert.Equal(t, 420.0, cfg.SmartViewLayout.ZoneWidth)
}

func TestParseCanvasConfig_Rejects(t *testing.T) {
	tests := map[string]string{
		"unknown key":    "card_wdth: 300\n",
		"invalid values": "min_zoom: 2\nmax_zoom: 1\n",
		"bad yaml":       "card_width: [\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCanvasConfig([]byte(data), domainconfig.DefaultDomainConfig())
			assert.Error(t, err)
		})
	}
}

func TestLoadCanvasConfig_EmptyPathUsesEnvironmentDefaults(t *testing.T) {
	cfg, err := LoadCanvasConfig("", "development")

	require.NoError(t, err)
	assert.Equal(t, 2, cfg.EmbedConcurrency)
}

func TestCanvasConfigWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canvas.yaml")
	require.NoError(t, os.WriteFile(path, []byte("card_width: 300\n"), 0o600))

	w, err := NewCanvasConfigWatcher(path, "production", zap.NewNop())
	require.NoError(t, err)
	w.debounce = 10 * time.Millisecond
	assert.Equal(t, 300.0, w.Current().CardWidth)

	changed := make(chan *domainconfig.DomainConfig, 4)
	w.OnChange(func(cfg *domainconfig.DomainConfig) { changed <- cfg })
	w.Start()
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("card_width: 320\n"), 0o600))

	select {
	case cfg := <-changed:
		assert.Equal(t, 320.0, cfg.CardWidth)
		assert.Equal(t, 320.0, w.Current().CardWidth)
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not observed")
	}
}

func TestCanvasConfigWatcher_KeepsCurrentOnInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canvas.yaml")
	require.NoError(t, os.WriteFile(path, []byte("card_width: 300\n"), 0o600))
	w, err := NewCanvasConfigWatcher(path, "production", zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("card_width: -1\n"), 0o600))
	w.reload()

	assert.Equal(t, 300.0, w.Current().CardWidth)
}
