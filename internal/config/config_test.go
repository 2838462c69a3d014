package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.NotNil(t, cfg)
	assert.NotEmpty(t, cfg.ListenAddr)
	assert.NotEmpty(t, cfg.VisionBackend)
	assert.NotEmpty(t, cfg.UploadBackend)
	assert.Positive(t, cfg.StepTimeout)
}

func TestLoadCustomValues(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("DB_PATH", "/custom/journal.db")
	t.Setenv("VISION_BACKEND", "claude")
	t.Setenv("CLAUDE_API_KEY", "sk-test123")
	t.Setenv("STEP_TIMEOUT", "15s")
	t.Setenv("PLAYBACK_RATE_CONTROLS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "/custom/journal.db", cfg.DBPath)
	assert.Equal(t, "claude", cfg.VisionBackend)
	assert.Equal(t, "sk-test123", cfg.ClaudeAPIKey)
	assert.Equal(t, 15*time.Second, cfg.StepTimeout)
	assert.False(t, cfg.PlaybackRateControls)
}

func TestLoadInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("RETRY_DELAY", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.RetryDelay)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipecam.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
UPLOAD_BACKEND: s3
S3_BUCKET: recipes
STEP_TIMEOUT: 30s
PLAYBACK_RATE_CONTROLS: false
`), 0600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("S3_BUCKET", "from-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "s3", cfg.UploadBackend)
	assert.Equal(t, "from-env", cfg.S3Bucket, "environment must win over the config file")
	assert.Equal(t, 30*time.Second, cfg.StepTimeout)
	assert.False(t, cfg.PlaybackRateControls)
}

func TestLoadConfigFileMissing(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			VisionBackend:          "openai",
			OpenAIAPIKey:           "sk-test",
			UploadBackend:          "cloudinary",
			CloudinaryCloudName:    "demo",
			CloudinaryUploadPreset: "unsigned",
			TTSBackend:             "none",
			StepTimeout:            time.Minute,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing openai key", mutate: func(c *Config) { c.OpenAIAPIKey = "" }, wantErr: true},
		{name: "claude without key", mutate: func(c *Config) { c.VisionBackend = "claude" }, wantErr: true},
		{name: "ollama needs no key", mutate: func(c *Config) { c.VisionBackend = "ollama"; c.OpenAIAPIKey = "" }},
		{name: "unknown vision backend", mutate: func(c *Config) { c.VisionBackend = "gemini" }, wantErr: true},
		{name: "cloudinary without preset", mutate: func(c *Config) { c.CloudinaryUploadPreset = "" }, wantErr: true},
		{name: "s3 without bucket", mutate: func(c *Config) { c.UploadBackend = "s3" }, wantErr: true},
		{name: "local upload", mutate: func(c *Config) { c.UploadBackend = "local" }},
		{name: "unknown tts backend", mutate: func(c *Config) { c.TTSBackend = "espeak" }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.StepTimeout = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
