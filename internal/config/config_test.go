package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
moderation:
  subreddit: science
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "science", cfg.Moderation.Subreddit)
	assert.Equal(t, "perspective-modbot", cfg.Service.Name)
	assert.Equal(t, 5, cfg.Scorer.Workers)
	assert.Equal(t, 5*time.Second, cfg.Scorer.QuotaRetryDelay)
	assert.Equal(t, 100, cfg.Moderation.DedupWindow)
	assert.Equal(t, 100, cfg.Reconcile.MaxBatchSize)
	assert.Equal(t, 5*time.Minute, cfg.Reconcile.MaxBatchDelay)
	assert.Equal(t, 12*time.Hour, cfg.Reconcile.WaitDelta)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_YAMLValues(t *testing.T) {
	path := writeConfig(t, `
scorer:
  api_key: secret
  qps: 3
reconcile:
  max_batch_size: 25
  wait_delta: 2h
  has_mod_creds: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Scorer.APIKey)
	assert.Equal(t, 3, cfg.Scorer.QPS)
	assert.Equal(t, 25, cfg.Reconcile.MaxBatchSize)
	assert.Equal(t, 2*time.Hour, cfg.Reconcile.WaitDelta)
	assert.True(t, cfg.Reconcile.HasModCreds)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PERSPECTIVE_API_KEY", "from-env")
	t.Setenv("MODBOT_PORT", "9999")
	t.Setenv("APP_DEBUG", "true")

	path := writeConfig(t, `
scorer:
  api_key: from-yaml
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Scorer.APIKey, "environment wins over yaml")
	assert.Equal(t, 9999, cfg.Service.Port)
	assert.True(t, cfg.Service.Debug)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "https://commentanalyzer.googleapis.com/v1alpha1", cfg.Scorer.BaseURL)
	assert.Equal(t, "en", cfg.Scorer.Language)
}
