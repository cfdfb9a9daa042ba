package config

import (
	"log/slog"

	"git.home.luguber.info/inful/apierror/internal/apierror"
	"git.home.luguber.info/inful/apierror/internal/foundation/normalization"
	"git.home.luguber.info/inful/apierror/internal/logging"
	"git.home.luguber.info/inful/apierror/internal/retry"
	"git.home.luguber.info/inful/apierror/internal/tracker"
)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Slog converts the level for slog handlers.
func (l LogLevel) Slog() slog.Level {
	lvl, err := logging.ParseLevel(string(l))
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

var logLevels = normalization.NewNormalizer("log level", map[string]LogLevel{
	"debug":   LogLevelDebug,
	"info":    LogLevelInfo,
	"warn":    LogLevelWarn,
	"warning": LogLevelWarn,
	"error":   LogLevelError,
}, LogLevelInfo)

var logFormats = normalization.NewNormalizer("log format", map[string]logging.Format{
	"text":   logging.FormatText,
	"json":   logging.FormatJSON,
	"pretty": logging.FormatPretty,
}, logging.FormatText)

var severities = normalization.NewNormalizer("severity", map[string]apierror.Severity{
	"critical": apierror.SeverityCritical,
	"error":    apierror.SeverityError,
	"warning":  apierror.SeverityWarning,
	"info":     apierror.SeverityInfo,
}, apierror.SeverityWarning)

var alertModes = normalization.NewNormalizer("burst alert mode", map[string]tracker.AlertMode{
	"once":  tracker.AlertOnce,
	"every": tracker.AlertEvery,
}, tracker.AlertOnce)

var retryModes = normalization.NewNormalizer("retry mode", map[string]retry.Mode{
	"fixed":       retry.ModeFixed,
	"linear":      retry.ModeLinear,
	"exponential": retry.ModeExponential,
}, retry.ModeExponential)

// normalize folds enumerations to their canonical spelling and returns the
// first unknown value as a validation error.
func normalize(cfg *Config) error {
	var err error
	if cfg.Logging.Level, err = logLevels.Parse(string(cfg.Logging.Level)); err != nil {
		return err
	}
	if cfg.Logging.Format, err = logFormats.Parse(string(cfg.Logging.Format)); err != nil {
		return err
	}
	if cfg.Engine.UIMinSeverity, err = severities.Parse(string(cfg.Engine.UIMinSeverity)); err != nil {
		return err
	}
	if cfg.Engine.BurstAlert, err = alertModes.Parse(string(cfg.Engine.BurstAlert)); err != nil {
		return err
	}
	if cfg.Retry.Mode, err = retryModes.Parse(string(cfg.Retry.Mode)); err != nil {
		return err
	}
	return nil
}
