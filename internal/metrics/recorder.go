package metrics

import "time"

// Recorder defines observability hooks for the error engine. Implementations may
// forward to Prometheus or any other backend. All methods on PrometheusRecorder are
// safe for nil receivers, and NoopRecorder is the default when metrics are not configured.
type Recorder interface {
	IncHandled(code, severity string)
	IncCancelled()
	ObserveHandleDuration(d time.Duration)
	IncBurst(code string)
	IncListenerPanic()
	IncNotified(kind string)
	IncNotifyFailure(notifier string)
	SetTrackedKeys(n int)
	SetRecentErrors(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncHandled(string, string)           {}
func (NoopRecorder) IncCancelled()                       {}
func (NoopRecorder) ObserveHandleDuration(time.Duration) {}
func (NoopRecorder) IncBurst(string)                     {}
func (NoopRecorder) IncListenerPanic()                   {}
func (NoopRecorder) IncNotified(string)                  {}
func (NoopRecorder) IncNotifyFailure(string)             {}
func (NoopRecorder) SetTrackedKeys(int)                  {}
func (NoopRecorder) SetRecentErrors(int)                 {}
