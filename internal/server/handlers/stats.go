package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jonboulle/clockwork"

	ferrors "git.home.luguber.info/inful/apierror/internal/foundation/errors"
	"git.home.luguber.info/inful/apierror/internal/server/responses"
)

// StatsHandlers exposes tracker statistics and the engine configuration.
type StatsHandlers struct {
	engine       Engine
	clock        clockwork.Clock
	errorAdapter *ferrors.HTTPErrorAdapter
}

// NewStatsHandlers creates the stats handlers. A nil clock uses the real clock.
func NewStatsHandlers(engine Engine, clock clockwork.Clock, adapter *ferrors.HTTPErrorAdapter) *StatsHandlers {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if adapter == nil {
		adapter = ferrors.NewHTTPErrorAdapter(slog.Default())
	}
	return &StatsHandlers{engine: engine, clock: clock, errorAdapter: adapter}
}

// HandleStats writes the current tracker snapshot.
func (h *StatsHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	body := responses.StatsResponse{Stats: h.engine.Stats(), Timestamp: h.clock.Now().UTC()}
	if err := writeJSONPretty(w, r, http.StatusOK, body); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			ferrors.WrapError(err, ferrors.CategoryInternal, "failed to write stats response").Build())
	}
}

// HandleClearStats resets the tracker.
func (h *StatsHandlers) HandleClearStats(w http.ResponseWriter, _ *http.Request) {
	h.engine.ClearStats()
	w.WriteHeader(http.StatusNoContent)
}

// HandleConfig writes the engine configuration.
func (h *StatsHandlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	if err := writeJSONPretty(w, r, http.StatusOK, responses.NewConfigResponse(h.engine.Config())); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			ferrors.WrapError(err, ferrors.CategoryInternal, "failed to write config response").Build())
	}
}
