package errors

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/apierror/internal/apierror"
)

func TestHTTPErrorAdapter_StatusCodeFor(t *testing.T) {
	adapter := NewHTTPErrorAdapter(slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, http.StatusOK},
		{"validation", ValidationError("invalid input").Build(), http.StatusBadRequest},
		{"not found", NotFoundError("missing").Build(), http.StatusNotFound},
		{"notify", NotifyError("publish failed").Build(), http.StatusServiceUnavailable},
		{"internal", InternalError("boom").Build(), http.StatusInternalServerError},
		{"canonical", apierror.New(apierror.CodeConflict, "", 409, nil, time.Now()), http.StatusConflict},
		{"canonical without status", apierror.New(apierror.CodeNetworkError, "", 0, nil, time.Now()), http.StatusBadGateway},
		{"unclassified", errors.New("unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.StatusCodeFor(tt.err))
		})
	}
}

func TestHTTPErrorAdapter_WriteErrorResponse(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	adapter := NewHTTPErrorAdapter(logger).WithClock(clockwork.NewFakeClockAt(now))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/failures", nil)
	adapter.WriteErrorResponse(rec, req, ValidationError("body is not JSON").WithContext("field", "body").Build())

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	resp, ok := apierror.FromMap(body, time.Time{})
	require.True(t, ok)
	assert.Equal(t, apierror.CodeValidationError, resp.Code())
	assert.Equal(t, "body is not JSON", resp.Message())
	assert.Equal(t, 400, resp.Status)
	assert.True(t, now.Equal(resp.Timestamp))
	field, _ := resp.Err.Details.GetString("field")
	assert.Equal(t, "body", field)
	assert.Contains(t, logs.String(), "body is not JSON")
}

func TestHTTPErrorAdapter_CanonicalPassthrough(t *testing.T) {
	adapter := NewHTTPErrorAdapter(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	canonical := apierror.New(apierror.CodeRateLimitExceeded, "slow down", 429, nil, time.Now())

	rec := httptest.NewRecorder()
	adapter.WriteErrorResponse(rec, httptest.NewRequest(http.MethodGet, "/", nil), canonical)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"RATE_LIMIT_EXCEEDED"`)
	assert.Contains(t, rec.Body.String(), `"message":"slow down"`)
}

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, 0},
		{"validation", ValidationError("bad flag").Build(), 2},
		{"not found", NotFoundError("no file").Build(), 3},
		{"config", ConfigError("bad config").Build(), 7},
		{"network", NetworkError("dial").Build(), 8},
		{"internal", InternalError("bug").Build(), 10},
		{"runtime", RuntimeError("server").Build(), 12},
		{"plain", errors.New("x"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.ExitCodeFor(tt.err))
		})
	}
}

func TestCLIErrorAdapter_HandleError(t *testing.T) {
	var out, logs bytes.Buffer
	adapter := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(&logs, nil)))
	adapter.out = &out
	var code int
	adapter.exit = func(c int) { code = c }

	adapter.HandleError(ConfigError("missing listen address").WithContext("path", "apierror.yaml").Build())

	assert.Equal(t, 7, code)
	assert.True(t, strings.HasPrefix(out.String(), "Error: [config:fatal] missing listen address"))
	assert.Contains(t, logs.String(), "category=config")
	assert.Contains(t, logs.String(), "path=apierror.yaml")
}

func TestCLIErrorAdapter_FormatInternalHidesDetail(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, nil)
	verbose := NewCLIErrorAdapter(true, nil)
	err := InternalError("nil map").Build()

	assert.Equal(t, "Internal error occurred (use -v for details)", quiet.FormatError(err))
	assert.Equal(t, "Error: [internal:fatal] nil map", verbose.FormatError(err))
}
