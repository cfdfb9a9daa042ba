// Package handler is the single entry point that turns any failure into a
// canonical API error and runs the configured side effects: logging, frequency
// tracking, listener fan-out, UI notification and the per-call custom handler.
//
// Engine replaces a process-wide singleton: construct one at startup and pass it
// to the code that issues requests.
package handler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/apierror/internal/apierror"
	"git.home.luguber.info/inful/apierror/internal/classify"
	"git.home.luguber.info/inful/apierror/internal/logfields"
	"git.home.luguber.info/inful/apierror/internal/metrics"
	"git.home.luguber.info/inful/apierror/internal/notify"
	"git.home.luguber.info/inful/apierror/internal/observability"
	"git.home.luguber.info/inful/apierror/internal/retry"
	"git.home.luguber.info/inful/apierror/internal/tracker"
)

// Engine is safe for concurrent use.
type Engine struct {
	mu  sync.RWMutex
	cfg Config

	classifier *classify.Classifier
	tracker    *tracker.Tracker
	dispatcher *notify.Dispatcher

	logger   *slog.Logger
	recorder metrics.Recorder
	clock    clockwork.Clock
	notifier notify.Notifier
}

// EngineOption configures an Engine at construction.
type EngineOption func(*Engine)

// WithLogger sets the logger used for error logs and burst warnings.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithNotifier sets the UI notification sink.
func WithNotifier(n notify.Notifier) EngineOption {
	return func(e *Engine) { e.notifier = n }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithClock sets the clock used for timestamps and the tracking window.
func WithClock(c clockwork.Clock) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithConfig sets the initial engine configuration.
func WithConfig(c Config) EngineOption {
	return func(e *Engine) { e.cfg = c.normalized() }
}

// New creates an Engine.
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		cfg:      DefaultConfig(),
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.classifier = classify.New(e.clock)
	e.tracker = tracker.New(tracker.Options{
		Window:    e.cfg.Window,
		Threshold: e.cfg.BurstThreshold,
		Alert:     e.cfg.BurstAlert,
		MaxKeys:   e.cfg.MaxTrackingSize,
		Clock:     e.clock,
		Logger:    e.logger,
	})
	e.dispatcher = notify.NewDispatcher(e.notifier, e.logger).WithRecorder(e.recorder)
	e.dispatcher.SetMinSeverity(e.cfg.UIMinSeverity)
	return e
}

// Handle classifies raw and runs the side effects selected by the engine
// configuration and opts. The canonical error is always returned. The error
// result is the same canonical error when ThrowError is set, except for
// cancelled requests, which never produce side effects or an error.
func (e *Engine) Handle(ctx context.Context, raw any, opts ...Option) (*apierror.Response, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Silent {
		o.ShowNotification = false
	}
	cfg := e.Config()

	start := e.clock.Now()
	resp := e.classifier.Classify(raw)
	if resp.Code() == apierror.CodeCancelled {
		e.recorder.IncCancelled()
		return resp, nil
	}
	defer func() { e.recorder.ObserveHandleDuration(e.clock.Since(start)) }()
	e.recorder.IncHandled(string(resp.Code()), string(resp.Severity()))

	if o.LogError && cfg.EnableLogging {
		e.log(ctx, resp, o)
	}

	if cfg.EnableTracking {
		obs := e.tracker.Record(resp.Code(), resp.Status)
		if obs.Burst {
			e.recorder.IncBurst(string(resp.Code()))
		}
		e.recorder.SetTrackedKeys(e.tracker.Len())
	}

	e.dispatcher.Dispatch(resp)

	if o.ShowNotification && cfg.NotifyUI {
		e.dispatcher.NotifyUI(ctx, notify.NewEnvelope(resp))
	}

	if o.CustomHandler != nil {
		o.CustomHandler(resp)
	}

	if o.ThrowError {
		return resp, resp
	}
	return resp, nil
}

// HandleSilently handles raw without UI notification and never returns an error.
func (e *Engine) HandleSilently(ctx context.Context, raw any) *apierror.Response {
	resp, _ := e.Handle(ctx, raw, WithoutNotification(), NoThrow(), Silent())
	return resp
}

// HandleRetryable handles raw as a retryable call without returning an error.
// onRetry runs after handling when the classification is retryable.
func (e *Engine) HandleRetryable(ctx context.Context, raw any, onRetry func()) *apierror.Response {
	resp, _ := e.Handle(ctx, raw, NoThrow(), Retryable())
	if onRetry != nil && retry.IsRetryable(resp.Code()) {
		onRetry()
	}
	return resp
}

func (e *Engine) log(ctx context.Context, resp *apierror.Response, o Options) {
	attrs := []slog.Attr{
		logfields.Code(string(resp.Code())),
		logfields.Status(resp.Status),
		logfields.Severity(string(resp.Severity())),
		slog.String("message", resp.Message()),
		slog.Time("timestamp", resp.Timestamp),
	}
	if u, ok := resp.Err.Details.GetString(apierror.DetailURL); ok {
		attrs = append(attrs, logfields.URL(u))
	}
	if m, ok := resp.Err.Details.GetString(apierror.DetailMethod); ok {
		attrs = append(attrs, logfields.Method(m))
	}
	if o.Retryable {
		attrs = append(attrs,
			logfields.Retryable(retry.IsRetryable(resp.Code())),
			slog.String("retry_strategy", string(retry.StrategyFor(resp.Code()))))
	}
	attrs = append(attrs, observability.Attrs(ctx)...)

	level, msg := slog.LevelInfo, "API error (info)"
	switch resp.Severity() {
	case apierror.SeverityCritical:
		level, msg = slog.LevelError, "Critical API error"
	case apierror.SeverityError:
		level, msg = slog.LevelError, "API error"
	case apierror.SeverityWarning:
		level, msg = slog.LevelWarn, "API warning"
	}
	e.logger.LogAttrs(ctx, level, msg, attrs...)
}

// AddListener registers l for every handled, non-cancelled error.
func (e *Engine) AddListener(l notify.Listener) notify.Subscription {
	return e.dispatcher.AddListener(l)
}

// RemoveListener unregisters the listener with the given subscription ID.
func (e *Engine) RemoveListener(id string) {
	e.dispatcher.RemoveListener(id)
}

// SetNotifier replaces the UI notification sink.
func (e *Engine) SetNotifier(n notify.Notifier) {
	e.dispatcher.SetNotifier(n)
}

// Stats returns a snapshot of the frequency tracker.
func (e *Engine) Stats() tracker.Stats {
	return e.tracker.Stats()
}

// ClearStats resets the frequency tracker.
func (e *Engine) ClearStats() {
	e.tracker.Clear()
	e.recorder.SetTrackedKeys(0)
	e.recorder.SetRecentErrors(0)
}

// Config returns a copy of the current configuration.
func (e *Engine) Config() Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// UpdateConfig applies p and returns the resulting configuration. The tracker
// and dispatcher change under the same lock as the stored configuration.
func (e *Engine) UpdateConfig(p ConfigPatch) Config {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cfg = e.cfg.Apply(p)
	e.tracker.Configure(e.cfg.Window, e.cfg.BurstThreshold, e.cfg.BurstAlert, e.cfg.MaxTrackingSize)
	e.dispatcher.SetMinSeverity(e.cfg.UIMinSeverity)
	return e.cfg
}
