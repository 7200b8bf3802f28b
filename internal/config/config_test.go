package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("YANDEX_FOLDER_ID", "folder")
	t.Setenv("YANDEX_API_KEY", "key")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("JWT_SECRET", "secret")
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.Store.Type)
	assert.Equal(t, 254, cfg.Pipeline.MaxQueryLength)
	assert.Equal(t, 3, cfg.Pipeline.TopK)
	assert.True(t, cfg.Pipeline.ReuseEmbeddings)
	assert.Equal(t, 30*time.Second, cfg.Inference.Timeout)
	require.Len(t, cfg.Links, 3)
	assert.Equal(t, "Habr", cfg.Links[0].Site)
	assert.Equal(t, "folder", cfg.Inference.FolderID)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_URL", "postgres://localhost/studymate")
	t.Setenv("QDRANT_SERVICE_HOST", "qdrant")
	t.Setenv("QDRANT_SERVICE_PORT", "6334")

	path := writeConfig(t, `
store:
  type: postgres
vectors:
  type: qdrant
inference:
  timeout: 5s
  rate_per_second: 2.5
  burst: 3
pipeline:
  workers: 8
  reuse_embeddings: false
links:
  - site: Wikipedia
    prefix: "https://en.wikipedia.org/w/index.php?search="
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.Store.Type)
	assert.Equal(t, "postgres://localhost/studymate", cfg.Store.DatabaseURL)
	assert.Equal(t, "qdrant:6334", cfg.Vectors.QdrantAddr)
	assert.Equal(t, 5*time.Second, cfg.Inference.Timeout)
	assert.Equal(t, 2.5, cfg.Inference.RatePerSecond)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, 64, cfg.Pipeline.QueueSize)
	assert.False(t, cfg.Pipeline.ReuseEmbeddings)
	require.Len(t, cfg.Links, 1)
	assert.Equal(t, "Wikipedia", cfg.Links[0].Site)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{name: "unknown store", body: "store:\n  type: sqlite\n"},
		{name: "postgres without url", body: "store:\n  type: postgres\n"},
		{name: "qdrant without address", body: "vectors:\n  type: qdrant\n"},
		{name: "zero workers", body: "pipeline:\n  workers: 0\n"},
		{name: "bad worker env", body: "", env: map[string]string{"PIPELINE_WORKERS": "many"}},
		{name: "missing token", body: "", env: map[string]string{"TELEGRAM_BOT_TOKEN": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	setRequiredEnv(t)
	_, err := Load(writeConfig(t, "store: [unclosed"))
	assert.ErrorContains(t, err, "parse")
}
