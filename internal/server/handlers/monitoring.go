package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	ferrors "git.home.luguber.info/inful/apierror/internal/foundation/errors"
	"git.home.luguber.info/inful/apierror/internal/server/responses"
	"git.home.luguber.info/inful/apierror/internal/version"
)

// MonitoringHandlers serves the health probe.
type MonitoringHandlers struct {
	clock        clockwork.Clock
	startedAt    time.Time
	errorAdapter *ferrors.HTTPErrorAdapter
}

// NewMonitoringHandlers creates the monitoring handlers. Uptime counts from the call.
func NewMonitoringHandlers(clock clockwork.Clock, adapter *ferrors.HTTPErrorAdapter) *MonitoringHandlers {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if adapter == nil {
		adapter = ferrors.NewHTTPErrorAdapter(slog.Default())
	}
	return &MonitoringHandlers{clock: clock, startedAt: clock.Now(), errorAdapter: adapter}
}

// HandleHealthCheck handles the health check endpoint.
func (h *MonitoringHandlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	health := &responses.HealthResponse{
		Status:    "healthy",
		Timestamp: h.clock.Now().UTC(),
		Version:   version.Version,
		Uptime:    h.clock.Since(h.startedAt).Seconds(),
	}
	if err := writeJSONPretty(w, r, http.StatusOK, health); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			ferrors.WrapError(err, ferrors.CategoryInternal, "failed to write health response").Build())
	}
}
