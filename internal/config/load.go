package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/apierror/internal/foundation"
	ferrors "git.home.luguber.info/inful/apierror/internal/foundation/errors"
	"git.home.luguber.info/inful/apierror/internal/logfields"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "APIERROR_"

// envFiles are loaded in order before the configuration is read. Variables that
// are already set in the process environment are never overwritten.
var envFiles = []string{".env", ".env.local"}

// Load reads the configuration at path, expands ${VAR} references, applies
// defaults and APIERROR_* overrides and validates the result. An empty path
// yields the defaults plus environment overrides.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ferrors.NotFoundError("configuration file not found").
				WithContext("path", path).
				Build()
		}
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read configuration file").
				WithContext("path", path).
				Fatal().
				Build()
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to parse configuration file").
				WithContext("path", path).
				Fatal().
				Build()
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := normalize(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFiles() {
	for _, name := range envFiles {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			slog.Warn("Failed to load env file", logfields.Path(name), logfields.Error(err))
			continue
		}
		slog.Debug("Loaded environment variables", logfields.Path(name))
	}
}

type lookupFunc func(string) (string, bool)

// applyEnv overrides file values with APIERROR_* variables.
func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	boolean := func(name string, dst **bool) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, envError(name, v, err))
				return
			}
			*dst = &b
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, envError(name, v, err))
				return
			}
			*dst = n
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, envError(name, v, err))
				return
			}
			*dst = d
		}
	}

	boolean("ENABLE_LOGGING", &cfg.Engine.EnableLogging)
	boolean("ENABLE_TRACKING", &cfg.Engine.EnableTracking)
	boolean("NOTIFY_UI", &cfg.Engine.NotifyUI)
	integer("MAX_TRACKING_SIZE", &cfg.Engine.MaxTrackingSize)
	duration("WINDOW", &cfg.Engine.Window)
	integer("BURST_THRESHOLD", &cfg.Engine.BurstThreshold)
	str("BURST_ALERT", (*string)(&cfg.Engine.BurstAlert))
	str("UI_MIN_SEVERITY", (*string)(&cfg.Engine.UIMinSeverity))

	str("LOG_LEVEL", (*string)(&cfg.Logging.Level))
	str("LOG_FORMAT", (*string)(&cfg.Logging.Format))

	str("LISTEN_ADDR", &cfg.Server.ListenAddr)
	duration("REPORT_INTERVAL", &cfg.Reporter.Interval)

	if v, ok := lookup(EnvPrefix + "NATS_URL"); ok && v != "" {
		if cfg.Notify.NATS == nil {
			cfg.Notify.NATS = &NATSConfig{}
		}
		cfg.Notify.NATS.URL = v
	}
	if v, ok := lookup(EnvPrefix + "REDIS_URL"); ok && v != "" {
		if cfg.Notify.Redis == nil {
			cfg.Notify.Redis = &RedisConfig{}
		}
		cfg.Notify.Redis.URL = v
	}

	return errors.Join(errs...)
}

func envError(name, value string, err error) error {
	return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid environment override").
		WithContext("variable", EnvPrefix+name).
		WithContext("value", value).
		UserAction().
		Build()
}

// Validate checks bounds that normalization cannot repair.
func Validate(cfg *Config) error {
	result := foundation.Valid().Combine(
		foundation.Equal("version", CurrentVersion)(cfg.Version),
		foundation.NonNegative[int]("engine.max_tracking_size")(cfg.Engine.MaxTrackingSize),
		foundation.NonNegative[time.Duration]("engine.window")(cfg.Engine.Window),
		foundation.NonNegative[int]("engine.burst_threshold")(cfg.Engine.BurstThreshold),
		foundation.AtLeast("reporter.interval", time.Second)(cfg.Reporter.Interval),
		foundation.Check("retry", cfg.RetryPolicy().Validate()),
	)
	return result.ToError("configuration validation failed")
}
