// Package notify fans handled errors out to registered listeners and emits UI
// notifications through an injected Notifier.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/apierror/internal/apierror"
	"git.home.luguber.info/inful/apierror/internal/logfields"
	"git.home.luguber.info/inful/apierror/internal/metrics"
)

// Listener observes every handled, non-cancelled error.
type Listener interface {
	OnError(resp *apierror.Response)
}

// ListenerFunc adapts a function to a Listener.
type ListenerFunc func(resp *apierror.Response)

func (f ListenerFunc) OnError(resp *apierror.Response) { f(resp) }

// Subscription identifies a registered listener.
type Subscription struct {
	ID string
	d  *Dispatcher
}

// Cancel removes the listener. It is safe to call more than once.
func (s Subscription) Cancel() {
	if s.d != nil {
		s.d.RemoveListener(s.ID)
	}
}

type registered struct {
	id string
	l  Listener
}

// Dispatcher is safe for concurrent use.
type Dispatcher struct {
	mu        sync.Mutex
	listeners []registered

	notifyMu    sync.RWMutex
	notifier    Notifier
	minSeverity apierror.Severity

	logger   *slog.Logger
	recorder metrics.Recorder
}

// NewDispatcher creates a dispatcher emitting UI notifications through n.
// A nil notifier drops notifications and a nil logger uses slog.Default().
func NewDispatcher(n Notifier, logger *slog.Logger) *Dispatcher {
	if n == nil {
		n = NoopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		notifier:    n,
		minSeverity: apierror.SeverityWarning,
		logger:      logger,
		recorder:    metrics.NoopRecorder{},
	}
}

// WithRecorder sets the metrics recorder.
func (d *Dispatcher) WithRecorder(r metrics.Recorder) *Dispatcher {
	if r != nil {
		d.recorder = r
	}
	return d
}

// SetMinSeverity sets the lowest severity that reaches the UI.
func (d *Dispatcher) SetMinSeverity(s apierror.Severity) {
	d.notifyMu.Lock()
	defer d.notifyMu.Unlock()
	d.minSeverity = s
}

// MinSeverity returns the lowest severity that reaches the UI.
func (d *Dispatcher) MinSeverity() apierror.Severity {
	d.notifyMu.Lock()
	defer d.notifyMu.Unlock()
	return d.minSeverity
}

// SetNotifier replaces the notifier. A nil notifier drops notifications.
func (d *Dispatcher) SetNotifier(n Notifier) {
	if n == nil {
		n = NoopNotifier{}
	}
	d.notifyMu.Lock()
	defer d.notifyMu.Unlock()
	d.notifier = n
}

// AddListener registers l and returns its subscription.
func (d *Dispatcher) AddListener(l Listener) Subscription {
	id := uuid.NewString()
	d.mu.Lock()
	d.listeners = append(d.listeners, registered{id: id, l: l})
	d.mu.Unlock()
	return Subscription{ID: id, d: d}
}

// RemoveListener unregisters the listener with the given subscription ID.
// Unknown IDs are ignored.
func (d *Dispatcher) RemoveListener(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, r := range d.listeners {
		if r.id == id {
			// Copy so snapshots taken by in-flight dispatches stay intact.
			next := make([]registered, 0, len(d.listeners)-1)
			next = append(next, d.listeners[:i]...)
			d.listeners = append(next, d.listeners[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered listeners.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners)
}

// Dispatch invokes every listener registered when the call starts, in
// registration order. Listener panics are recovered and logged.
func (d *Dispatcher) Dispatch(resp *apierror.Response) {
	d.mu.Lock()
	snapshot := d.listeners
	d.mu.Unlock()

	for _, r := range snapshot {
		d.invoke(r, resp)
	}
}

func (d *Dispatcher) invoke(r registered, resp *apierror.Response) {
	defer func() {
		if p := recover(); p != nil {
			d.recorder.IncListenerPanic()
			d.logger.Error("Error listener panicked",
				logfields.ListenerID(r.id),
				logfields.Code(string(resp.Code())),
				slog.Any("panic", p))
		}
	}()
	r.l.OnError(resp)
}

// NotifyUI emits env unless its severity is below the configured minimum.
// Delivery failures are logged and counted; they never reach the caller.
func (d *Dispatcher) NotifyUI(ctx context.Context, env Envelope) {
	d.notifyMu.RLock()
	n, minSeverity := d.notifier, d.minSeverity
	d.notifyMu.RUnlock()

	if !env.Severity.AtLeast(minSeverity) {
		return
	}
	if err := deliver(ctx, n, env); err != nil {
		d.recorder.IncNotifyFailure(NameOf(n))
		d.logger.Warn("UI notification failed",
			logfields.Notifier(NameOf(n)),
			logfields.Code(string(env.Code)),
			logfields.Error(err))
		return
	}
	d.recorder.IncNotified(string(env.Type))
}

func deliver(ctx context.Context, n Notifier, env Envelope) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("notifier panicked: %v", p)
		}
	}()
	return n.Notify(ctx, env)
}
