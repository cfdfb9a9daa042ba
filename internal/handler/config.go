package handler

import (
	"time"

	"git.home.luguber.info/inful/apierror/internal/apierror"
	"git.home.luguber.info/inful/apierror/internal/tracker"
)

// Config is the engine-wide configuration. It is read once per Handle call.
type Config struct {
	EnableLogging  bool `json:"enable_logging"`
	EnableTracking bool `json:"enable_tracking"`
	NotifyUI       bool `json:"notify_ui"`
	// MaxTrackingSize bounds the number of tracked code:status keys. Zero means unbounded.
	MaxTrackingSize int               `json:"max_tracking_size"`
	Window          time.Duration     `json:"window"`
	BurstThreshold  int               `json:"burst_threshold"`
	BurstAlert      tracker.AlertMode `json:"burst_alert"`
	UIMinSeverity   apierror.Severity `json:"ui_min_severity"`
}

// DefaultConfig returns logging, tracking and UI notification enabled with a
// five minute window, a burst threshold of 5 and WARNING as the lowest UI severity.
func DefaultConfig() Config {
	return Config{
		EnableLogging:  true,
		EnableTracking: true,
		NotifyUI:       true,
		Window:         tracker.DefaultWindow,
		BurstThreshold: tracker.DefaultThreshold,
		BurstAlert:     tracker.AlertOnce,
		UIMinSeverity:  apierror.SeverityWarning,
	}
}

// ConfigPatch is a partial update. Nil fields leave the current value untouched.
type ConfigPatch struct {
	EnableLogging   *bool
	EnableTracking  *bool
	NotifyUI        *bool
	MaxTrackingSize *int
	Window          *time.Duration
	BurstThreshold  *int
	BurstAlert      *tracker.AlertMode
	UIMinSeverity   *apierror.Severity
}

// Apply returns c with the non-nil fields of p applied. Invalid values are
// replaced by the defaults.
func (c Config) Apply(p ConfigPatch) Config {
	if p.EnableLogging != nil {
		c.EnableLogging = *p.EnableLogging
	}
	if p.EnableTracking != nil {
		c.EnableTracking = *p.EnableTracking
	}
	if p.NotifyUI != nil {
		c.NotifyUI = *p.NotifyUI
	}
	if p.MaxTrackingSize != nil {
		c.MaxTrackingSize = *p.MaxTrackingSize
	}
	if p.Window != nil {
		c.Window = *p.Window
	}
	if p.BurstThreshold != nil {
		c.BurstThreshold = *p.BurstThreshold
	}
	if p.BurstAlert != nil {
		c.BurstAlert = *p.BurstAlert
	}
	if p.UIMinSeverity != nil {
		c.UIMinSeverity = *p.UIMinSeverity
	}
	return c.normalized()
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.MaxTrackingSize < 0 {
		c.MaxTrackingSize = 0
	}
	if c.Window <= 0 {
		c.Window = d.Window
	}
	if c.BurstThreshold <= 0 {
		c.BurstThreshold = d.BurstThreshold
	}
	if _, ok := tracker.ParseAlertMode(string(c.BurstAlert)); !ok {
		c.BurstAlert = d.BurstAlert
	}
	if s, ok := apierror.ParseSeverity(string(c.UIMinSeverity)); ok {
		c.UIMinSeverity = s
	} else {
		c.UIMinSeverity = d.UIMinSeverity
	}
	return c
}

// Options control a single Handle call.
type Options struct {
	ShowNotification bool
	LogError         bool
	ThrowError       bool
	// Retryable marks the call as one the caller intends to retry. The log entry
	// then carries the advisory retry strategy.
	Retryable bool
	// Silent suppresses the UI notification even when ShowNotification is set.
	Silent bool
	// CustomHandler runs last with the final canonical error.
	CustomHandler func(*apierror.Response)
}

// DefaultOptions returns notification, logging and throwing enabled.
func DefaultOptions() Options {
	return Options{ShowNotification: true, LogError: true, ThrowError: true}
}

// Option adjusts the Options of one Handle call.
type Option func(*Options)

// WithoutNotification suppresses the UI notification.
func WithoutNotification() Option { return func(o *Options) { o.ShowNotification = false } }

// WithoutLogging suppresses the log entry.
func WithoutLogging() Option { return func(o *Options) { o.LogError = false } }

// NoThrow makes Handle return a nil error.
func NoThrow() Option { return func(o *Options) { o.ThrowError = false } }

// Retryable marks the call as retryable.
func Retryable() Option { return func(o *Options) { o.Retryable = true } }

// Silent forces the UI notification off.
func Silent() Option { return func(o *Options) { o.Silent = true } }

// WithCustomHandler registers fn to run last.
func WithCustomHandler(fn func(*apierror.Response)) Option {
	return func(o *Options) { o.CustomHandler = fn }
}

// WithOptions replaces all options at once.
func WithOptions(opts Options) Option { return func(o *Options) { *o = opts } }
