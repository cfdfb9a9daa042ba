package errors

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/apierror/internal/apierror"
)

// HTTPErrorAdapter renders errors as canonical API error bodies and logs them by severity.
type HTTPErrorAdapter struct {
	logger *slog.Logger
	clock  clockwork.Clock
}

// NewHTTPErrorAdapter creates a new HTTP error adapter with an optional slog logger.
// If logger is nil, the default package logger will be used.
func NewHTTPErrorAdapter(logger *slog.Logger) *HTTPErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPErrorAdapter{logger: logger, clock: clockwork.NewRealClock()}
}

// WithClock replaces the clock used to stamp rendered errors.
func (a *HTTPErrorAdapter) WithClock(clock clockwork.Clock) *HTTPErrorAdapter {
	a.clock = clock
	return a
}

// StatusCodeFor determines the HTTP status code for err. Canonical errors keep
// their own status when it is a valid HTTP status.
func (a *HTTPErrorAdapter) StatusCodeFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if resp, ok := apierror.As(err); ok {
		if resp.Status >= 100 && resp.Status <= 599 {
			return resp.Status
		}
		return http.StatusBadGateway
	}
	if c, ok := AsClassified(err); ok {
		switch c.Category() {
		case CategoryValidation, CategoryConfig:
			return http.StatusBadRequest
		case CategoryNotFound:
			return http.StatusNotFound
		case CategoryNetwork, CategoryNotify, CategoryEvents, CategoryRuntime:
			return http.StatusServiceUnavailable
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

// FormatErrorResponse converts err into a canonical error body.
func (a *HTTPErrorAdapter) FormatErrorResponse(err error) *apierror.Response {
	if resp, ok := apierror.As(err); ok {
		return resp
	}

	status := a.StatusCodeFor(err)
	code := apierror.CodeFromStatus(status)
	message := err.Error()
	var details apierror.Details

	if c, ok := AsClassified(err); ok {
		message = c.Message()
		if len(c.Context()) > 0 || c.CanRetry() {
			details = make(apierror.Details, len(c.Context())+2)
			for k, v := range c.Context() {
				details[k] = v
			}
			details["category"] = string(c.Category())
			if c.CanRetry() {
				details["retryable"] = true
			}
		}
	}
	return apierror.New(code, message, status, details, a.clock.Now())
}

// WriteErrorResponse writes a JSON error response and logs with appropriate level.
func (a *HTTPErrorAdapter) WriteErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	status := a.StatusCodeFor(err)
	body, jerr := json.Marshal(a.FormatErrorResponse(err))
	if jerr != nil {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"code":"INTERNAL_SERVER_ERROR","message":"internal error"}}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)

	if c, ok := AsClassified(err); ok {
		a.logger.Log(r.Context(), slogLevel(c.Severity()), c.Error(),
			slog.String("path", r.URL.Path))
		return
	}
	a.logger.Error(err.Error(), slog.String("path", r.URL.Path))
}

func slogLevel(s ErrorSeverity) slog.Level {
	switch s {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
