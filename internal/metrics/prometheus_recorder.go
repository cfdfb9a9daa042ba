package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "apierror"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once           sync.Once
	handled        *prom.CounterVec
	cancelled      prom.Counter
	handleDuration prom.Histogram
	bursts         *prom.CounterVec
	listenerPanics prom.Counter
	notified       *prom.CounterVec
	notifyFailures *prom.CounterVec
	trackedKeys    prom.Gauge
	recentErrors   prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.handled = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "handled_total",
			Help:      "Failures handled by the engine by canonical code and severity",
		}, []string{"code", "severity"})
		pr.cancelled = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cancelled_total",
			Help:      "Cancelled requests short-circuited by the engine",
		})
		pr.handleDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "handle_duration_seconds",
			Help:      "Time spent handling one failure",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		})
		pr.bursts = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "bursts_total",
			Help:      "Frequency threshold crossings by canonical code",
		}, []string{"code"})
		pr.listenerPanics = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "listener_panics_total",
			Help:      "Listener invocations that panicked and were recovered",
		})
		pr.notified = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "ui_notifications_total",
			Help:      "UI notifications emitted by envelope type",
		}, []string{"type"})
		pr.notifyFailures = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "notify_failures_total",
			Help:      "UI notifications that the notifier failed to deliver",
		}, []string{"notifier"})
		pr.trackedKeys = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_keys",
			Help:      "Distinct code:status keys held by the frequency tracker",
		})
		pr.recentErrors = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "recent_errors",
			Help:      "Errors recorded within the trailing tracking window",
		})
		reg.MustRegister(pr.handled, pr.cancelled, pr.handleDuration, pr.bursts, pr.listenerPanics,
			pr.notified, pr.notifyFailures, pr.trackedKeys, pr.recentErrors)
	})
	return pr
}

func (p *PrometheusRecorder) IncHandled(code, severity string) {
	if p == nil || p.handled == nil {
		return
	}
	p.handled.WithLabelValues(code, severity).Inc()
}

func (p *PrometheusRecorder) IncCancelled() {
	if p == nil || p.cancelled == nil {
		return
	}
	p.cancelled.Inc()
}

func (p *PrometheusRecorder) ObserveHandleDuration(d time.Duration) {
	if p == nil || p.handleDuration == nil {
		return
	}
	p.handleDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBurst(code string) {
	if p == nil || p.bursts == nil {
		return
	}
	p.bursts.WithLabelValues(code).Inc()
}

func (p *PrometheusRecorder) IncListenerPanic() {
	if p == nil || p.listenerPanics == nil {
		return
	}
	p.listenerPanics.Inc()
}

func (p *PrometheusRecorder) IncNotified(kind string) {
	if p == nil || p.notified == nil {
		return
	}
	p.notified.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) IncNotifyFailure(notifier string) {
	if p == nil || p.notifyFailures == nil {
		return
	}
	p.notifyFailures.WithLabelValues(notifier).Inc()
}

func (p *PrometheusRecorder) SetTrackedKeys(n int) {
	if p == nil || p.trackedKeys == nil {
		return
	}
	p.trackedKeys.Set(float64(n))
}

func (p *PrometheusRecorder) SetRecentErrors(n int) {
	if p == nil || p.recentErrors == nil {
		return
	}
	p.recentErrors.Set(float64(n))
}
