package handlers

import (
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"git.home.luguber.info/inful/apierror/internal/classify"
	ferrors "git.home.luguber.info/inful/apierror/internal/foundation/errors"
	"git.home.luguber.info/inful/apierror/internal/handler"
	"git.home.luguber.info/inful/apierror/internal/observability"
	"git.home.luguber.info/inful/apierror/internal/retry"
)

// MaxFailureBody bounds the size of an ingested failure document.
const MaxFailureBody = 1 << 20

// Retry advice headers set on ingest responses for retryable failures.
const (
	HeaderRetryAttempt  = "X-Retry-Attempt"
	HeaderRetryStrategy = "X-Retry-Strategy"
	HeaderRetryAfter    = "Retry-After"
	// HeaderSource names the reporting client; it is attached to the engine's log lines.
	HeaderSource = "X-Error-Source"
)

// FailureHandlers ingests transport failures reported by out-of-process clients.
type FailureHandlers struct {
	engine       Engine
	policy       retry.Policy
	errorAdapter *ferrors.HTTPErrorAdapter
}

// NewFailureHandlers creates the ingest handlers.
func NewFailureHandlers(engine Engine, policy retry.Policy, adapter *ferrors.HTTPErrorAdapter) *FailureHandlers {
	if adapter == nil {
		adapter = ferrors.NewHTTPErrorAdapter(slog.Default())
	}
	return &FailureHandlers{engine: engine, policy: policy, errorAdapter: adapter}
}

// HandleIngest decodes a failure document, runs it through the engine and
// responds 200 with the canonical error. The client may pass its attempt number
// in X-Retry-Attempt to receive retry advice for the next attempt.
func (h *FailureHandlers) HandleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxFailureBody))
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			ferrors.WrapError(err, ferrors.CategoryValidation, "failed to read failure document").
				WithContext("limit", MaxFailureBody).
				Build())
		return
	}

	raw, err := classify.Decode(body)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	attempt := 1
	if v := r.Header.Get(HeaderRetryAttempt); v != "" {
		n, perr := strconv.Atoi(v)
		if perr != nil || n < 1 {
			h.errorAdapter.WriteErrorResponse(w, r,
				ferrors.ValidationError("invalid retry attempt header").
					WithContext("header", HeaderRetryAttempt).
					WithContext("value", v).
					Build())
			return
		}
		attempt = n
	}

	ctx := observability.WithAttempt(r.Context(), attempt)
	if src := r.Header.Get(HeaderSource); src != "" {
		ctx = observability.WithSource(ctx, src)
	}
	resp, _ := h.engine.Handle(ctx, raw, handler.NoThrow())

	if advice := h.policy.Advise(resp, attempt); advice.Retryable {
		w.Header().Set(HeaderRetryStrategy, string(advice.Strategy))
		w.Header().Set(HeaderRetryAfter, strconv.Itoa(int(math.Ceil(advice.Delay.Seconds()))))
	}

	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			ferrors.WrapError(err, ferrors.CategoryInternal, "failed to write canonical error").Build())
	}
}
