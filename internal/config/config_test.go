package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/apierror/internal/apierror"
	ferrors "git.home.luguber.info/inful/apierror/internal/foundation/errors"
	"git.home.luguber.info/inful/apierror/internal/logging"
	"git.home.luguber.info/inful/apierror/internal/retry"
	"git.home.luguber.info/inful/apierror/internal/tracker"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, CurrentVersion, cfg.Version)
	assert.Equal(t, DefaultListenAddr, cfg.Server.ListenAddr)
	assert.Equal(t, LogLevelInfo, cfg.Logging.Level)
	assert.Equal(t, logging.FormatText, cfg.Logging.Format)
	assert.True(t, cfg.ReporterEnabled())
	assert.Equal(t, DefaultReporterInterval, cfg.Reporter.Interval)
	assert.False(t, cfg.NATSEnabled())
	assert.False(t, cfg.RedisEnabled())
	assert.Equal(t, retry.DefaultPolicy(), cfg.RetryPolicy())

	engine := cfg.EngineConfig()
	assert.True(t, engine.EnableLogging)
	assert.True(t, engine.EnableTracking)
	assert.True(t, engine.NotifyUI)
	assert.Equal(t, tracker.DefaultWindow, engine.Window)
	assert.Equal(t, apierror.SeverityWarning, engine.UIMinSeverity)
}

func TestLoad_File(t *testing.T) {
	t.Setenv("TEST_NATS_URL", "nats://broker:4222")
	path := writeConfig(t, `
version: "1"
engine:
  notify_ui: false
  max_tracking_size: 50
  window: 2m
  burst_threshold: 3
  burst_alert: EVERY
  ui_min_severity: " Error "
logging:
  level: WARNING
  format: pretty
notify:
  nats:
    url: ${TEST_NATS_URL}
    jetstream: true
server:
  listen_addr: 127.0.0.1:9000
reporter:
  enabled: false
retry:
  mode: linear
  initial_delay: 500ms
  max_delay: 5s
  max_retries: 4
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	engine := cfg.EngineConfig()
	assert.True(t, engine.EnableLogging, "omitted switches stay enabled")
	assert.False(t, engine.NotifyUI)
	assert.Equal(t, 50, engine.MaxTrackingSize)
	assert.Equal(t, 2*time.Minute, engine.Window)
	assert.Equal(t, 3, engine.BurstThreshold)
	assert.Equal(t, tracker.AlertEvery, engine.BurstAlert)
	assert.Equal(t, apierror.SeverityError, engine.UIMinSeverity)

	assert.Equal(t, LogLevelWarn, cfg.Logging.Level)
	assert.Equal(t, logging.FormatPretty, cfg.Logging.Format)
	require.True(t, cfg.NATSEnabled())
	assert.Equal(t, "nats://broker:4222", cfg.Notify.NATS.URL)
	assert.True(t, cfg.Notify.NATS.JetStream)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.ListenAddr)
	assert.False(t, cfg.ReporterEnabled())

	p := cfg.RetryPolicy()
	assert.Equal(t, retry.ModeLinear, p.Mode)
	assert.Equal(t, 500*time.Millisecond, p.Initial)
	assert.Equal(t, 5*time.Second, p.Max)
	assert.Equal(t, 4, p.MaxRetries)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")
	t.Setenv("APIERROR_LOG_LEVEL", "debug")
	t.Setenv("APIERROR_ENABLE_TRACKING", "false")
	t.Setenv("APIERROR_WINDOW", "30s")
	t.Setenv("APIERROR_LISTEN_ADDR", ":1234")
	t.Setenv("APIERROR_REDIS_URL", "redis://cache:6379/0")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, LogLevelDebug, cfg.Logging.Level)
	assert.False(t, cfg.EngineConfig().EnableTracking)
	assert.Equal(t, 30*time.Second, cfg.Engine.Window)
	assert.Equal(t, ":1234", cfg.Server.ListenAddr)
	require.True(t, cfg.RedisEnabled())
	assert.Equal(t, "redis://cache:6379/0", cfg.Notify.Redis.URL)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "engine: [unterminated"))
		require.Error(t, err)
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
	})

	t.Run("unknown enum", func(t *testing.T) {
		_, err := Load(writeConfig(t, "engine:\n  ui_min_severity: loud\n"))
		require.Error(t, err)
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
	})

	t.Run("bad env override", func(t *testing.T) {
		t.Setenv("APIERROR_BURST_THRESHOLD", "many")
		_, err := Load("")
		require.Error(t, err)
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
		assert.Contains(t, err.Error(), "invalid environment override")
	})

	t.Run("validation", func(t *testing.T) {
		_, err := Load(writeConfig(t, "version: \"2\"\nengine:\n  max_tracking_size: -1\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "version: unsupported value")
		assert.Contains(t, err.Error(), "max_tracking_size")
	})
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, Init(path, false))
	err := Init(path, false)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, logging.FormatJSON, cfg.Logging.Format)
	assert.Equal(t, 1000, cfg.Engine.MaxTrackingSize)
	assert.Equal(t, tracker.DefaultWindow, cfg.Engine.Window)
}
