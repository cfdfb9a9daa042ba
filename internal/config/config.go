// Package config loads the apierror host configuration from YAML, .env files
// and APIERROR_* environment variables, and watches the file for changes.
package config

import (
	"strings"
	"time"

	"git.home.luguber.info/inful/apierror/internal/apierror"
	"git.home.luguber.info/inful/apierror/internal/handler"
	"git.home.luguber.info/inful/apierror/internal/logging"
	"git.home.luguber.info/inful/apierror/internal/retry"
	"git.home.luguber.info/inful/apierror/internal/tracker"
)

// CurrentVersion is the only supported configuration file version.
const CurrentVersion = "1"

// Config is the root of config.yaml.
type Config struct {
	Version  string         `yaml:"version"`
	Engine   EngineConfig   `yaml:"engine"`
	Logging  LoggingConfig  `yaml:"logging"`
	Notify   NotifyConfig   `yaml:"notify"`
	Server   ServerConfig   `yaml:"server"`
	Reporter ReporterConfig `yaml:"reporter"`
	Retry    RetryConfig    `yaml:"retry"`
}

// EngineConfig mirrors handler.Config. Omitted switches default to enabled.
type EngineConfig struct {
	EnableLogging   *bool             `yaml:"enable_logging,omitempty"`
	EnableTracking  *bool             `yaml:"enable_tracking,omitempty"`
	NotifyUI        *bool             `yaml:"notify_ui,omitempty"`
	MaxTrackingSize int               `yaml:"max_tracking_size"`
	Window          time.Duration     `yaml:"window"`
	BurstThreshold  int               `yaml:"burst_threshold"`
	BurstAlert      tracker.AlertMode `yaml:"burst_alert"`
	UIMinSeverity   apierror.Severity `yaml:"ui_min_severity"`
}

// LoggingConfig selects the log level and handler.
type LoggingConfig struct {
	Level  LogLevel       `yaml:"level"`
	Format logging.Format `yaml:"format"`
}

// NotifyConfig configures the optional out-of-process UI notification transports.
type NotifyConfig struct {
	NATS  *NATSConfig  `yaml:"nats,omitempty"`
	Redis *RedisConfig `yaml:"redis,omitempty"`
}

// NATSConfig enables publishing UI envelopes to a NATS subject. An empty URL disables it.
type NATSConfig struct {
	URL       string        `yaml:"url"`
	Subject   string        `yaml:"subject"`
	JetStream bool          `yaml:"jetstream"`
	Timeout   time.Duration `yaml:"timeout"`
}

// RedisConfig enables publishing UI envelopes to a Redis pub/sub channel. An empty URL disables it.
type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	Channel  string `yaml:"channel"`
}

// ServerConfig configures the admin HTTP server.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// ReporterConfig configures the periodic stats reporter.
type ReporterConfig struct {
	Enabled  *bool         `yaml:"enabled,omitempty"`
	Interval time.Duration `yaml:"interval"`
}

// RetryConfig configures the advisory retry policy.
type RetryConfig struct {
	Mode         retry.Mode    `yaml:"mode"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	MaxRetries   int           `yaml:"max_retries"`
}

// Defaults for fields left empty.
const (
	DefaultListenAddr       = ":9464"
	DefaultReporterInterval = time.Minute
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{Version: CurrentVersion}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}

	e := &cfg.Engine
	if e.EnableLogging == nil {
		e.EnableLogging = boolPtr(true)
	}
	if e.EnableTracking == nil {
		e.EnableTracking = boolPtr(true)
	}
	if e.NotifyUI == nil {
		e.NotifyUI = boolPtr(true)
	}
	if e.Window == 0 {
		e.Window = tracker.DefaultWindow
	}
	if e.BurstThreshold == 0 {
		e.BurstThreshold = tracker.DefaultThreshold
	}
	if e.BurstAlert == "" {
		e.BurstAlert = tracker.AlertOnce
	}
	if e.UIMinSeverity == "" {
		e.UIMinSeverity = apierror.SeverityWarning
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogLevelInfo
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = logging.FormatText
	}

	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}

	if cfg.Reporter.Enabled == nil {
		cfg.Reporter.Enabled = boolPtr(true)
	}
	if cfg.Reporter.Interval == 0 {
		cfg.Reporter.Interval = DefaultReporterInterval
	}

	d := retry.DefaultPolicy()
	if cfg.Retry.Mode == "" {
		cfg.Retry.Mode = d.Mode
	}
	if cfg.Retry.InitialDelay == 0 {
		cfg.Retry.InitialDelay = d.Initial
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = d.Max
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry.MaxRetries = d.MaxRetries
	}
}

// EnginePatch converts the engine section into a patch for Engine.UpdateConfig.
func (c *Config) EnginePatch() handler.ConfigPatch {
	e := c.Engine
	return handler.ConfigPatch{
		EnableLogging:   e.EnableLogging,
		EnableTracking:  e.EnableTracking,
		NotifyUI:        e.NotifyUI,
		MaxTrackingSize: &e.MaxTrackingSize,
		Window:          &e.Window,
		BurstThreshold:  &e.BurstThreshold,
		BurstAlert:      &e.BurstAlert,
		UIMinSeverity:   &e.UIMinSeverity,
	}
}

// EngineConfig returns the engine section as a complete handler.Config.
func (c *Config) EngineConfig() handler.Config {
	return handler.DefaultConfig().Apply(c.EnginePatch())
}

// RetryPolicy returns the configured advisory retry policy.
func (c *Config) RetryPolicy() retry.Policy {
	return retry.NewPolicy(c.Retry.Mode, c.Retry.InitialDelay, c.Retry.MaxDelay, c.Retry.MaxRetries)
}

// ReporterEnabled reports whether the periodic stats reporter should run.
func (c *Config) ReporterEnabled() bool {
	return c.Reporter.Enabled == nil || *c.Reporter.Enabled
}

// NATSEnabled reports whether a NATS URL is configured.
func (c *Config) NATSEnabled() bool {
	return c.Notify.NATS != nil && strings.TrimSpace(c.Notify.NATS.URL) != ""
}

// RedisEnabled reports whether a Redis URL is configured.
func (c *Config) RedisEnabled() bool {
	return c.Notify.Redis != nil && strings.TrimSpace(c.Notify.Redis.URL) != ""
}

func boolPtr(b bool) *bool { return &b }
