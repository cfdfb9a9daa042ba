package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/apierror/internal/apierror"
	"git.home.luguber.info/inful/apierror/internal/classify"
	"git.home.luguber.info/inful/apierror/internal/notify"
	"git.home.luguber.info/inful/apierror/internal/observability"
	"git.home.luguber.info/inful/apierror/internal/tracker"
)

type harness struct {
	engine *Engine
	clock  *clockwork.FakeClock
	logs   *bytes.Buffer
	ui     *[]notify.Envelope
}

func newHarness(t *testing.T, opts ...EngineOption) harness {
	t.Helper()
	var logs bytes.Buffer
	var ui []notify.Envelope
	var mu sync.Mutex
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))

	base := []EngineOption{
		WithClock(clock),
		WithLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))),
		WithNotifier(notify.NotifierFunc(func(_ context.Context, env notify.Envelope) error {
			mu.Lock()
			defer mu.Unlock()
			ui = append(ui, env)
			return nil
		})),
	}
	return harness{
		engine: New(append(base, opts...)...),
		clock:  clock,
		logs:   &logs,
		ui:     &ui,
	}
}

func httpFailure(status int, data any) *classify.TransportError {
	return &classify.TransportError{
		Message:  "Request failed",
		Response: &classify.HTTPResponse{Status: status, Data: data},
	}
}

var cancelled = &classify.TransportError{Code: classify.CodeCanceled, Message: "canceled"}

func TestHandle_ScenarioA_Unauthorized(t *testing.T) {
	h := newHarness(t)

	resp, err := h.engine.Handle(context.Background(), map[string]any{
		"response": map[string]any{"status": 401, "data": map[string]any{}},
	})

	require.Error(t, err)
	assert.Same(t, resp, err.(*apierror.Response))
	assert.Equal(t, apierror.CodeUnauthorized, resp.Code())
	assert.Equal(t, 401, resp.Status)
}

func TestHandle_ScenarioB_ValidationMessage(t *testing.T) {
	h := newHarness(t)

	resp, _ := h.engine.Handle(context.Background(), httpFailure(400, map[string]any{
		"error": map[string]any{"code": "VALIDATION_ERROR", "message": "Invalid input"},
	}))

	assert.Equal(t, apierror.CodeValidationError, resp.Code())
	assert.Equal(t, "Invalid input", resp.Message())
	assert.Equal(t, 400, resp.Status)
}

func TestHandle_ScenarioC_PlainError(t *testing.T) {
	h := newHarness(t)

	resp, err := h.engine.Handle(context.Background(), errors.New("Something went wrong"))

	require.Error(t, err)
	assert.True(t, apierror.HasCode(err, apierror.CodeUnknownError))
	assert.Equal(t, "Something went wrong", resp.Message())
	assert.Equal(t, 500, resp.Status)
}

func TestHandle_ScenarioD_BurstWithinWindow(t *testing.T) {
	h := newHarness(t)

	for range 5 {
		_, _ = h.engine.Handle(context.Background(), httpFailure(503, nil))
		h.clock.Advance(10 * time.Second)
	}

	stats := h.engine.Stats()
	assert.Equal(t, 5, stats.RecentErrors)
	assert.Equal(t, 5, stats.TotalErrors)
	assert.Equal(t, 5, stats.ErrorsByCode["SERVICE_UNAVAILABLE:503"].Count)
	assert.Contains(t, h.logs.String(), "High frequency of errors")
}

func TestHandle_ScenarioE_Cancelled(t *testing.T) {
	h := newHarness(t)
	invoked := false
	h.engine.AddListener(notify.ListenerFunc(func(*apierror.Response) { invoked = true }))
	custom := false

	resp, err := h.engine.Handle(context.Background(), cancelled,
		WithOptions(Options{ThrowError: true, ShowNotification: true, LogError: true}),
		WithCustomHandler(func(*apierror.Response) { custom = true }))

	require.NoError(t, err)
	assert.Equal(t, apierror.CodeCancelled, resp.Code())
	assert.False(t, invoked)
	assert.False(t, custom)
	assert.Zero(t, h.engine.Stats().TotalErrors)
	assert.Empty(t, *h.ui)
	assert.Empty(t, h.logs.String())

	resp, err = h.engine.Handle(context.Background(), context.Canceled)
	require.NoError(t, err)
	assert.Equal(t, apierror.CodeCancelled, resp.Code())
}

func TestHandle_StatusWithoutResponse(t *testing.T) {
	h := newHarness(t)
	cases := map[string]struct {
		raw    any
		status int
	}{
		"network": {&classify.TransportError{Code: classify.CodeNetwork, Message: "Network Error"}, 0},
		"timeout": {&classify.TransportError{Code: classify.CodeConnAborted, Message: "timeout of 1000ms exceeded"}, 504},
		"other":   {&classify.TransportError{Message: "weird"}, 500},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			resp, _ := h.engine.Handle(context.Background(), tc.raw)
			assert.Equal(t, tc.status, resp.Status)
		})
	}
}

func TestHandle_CanonicalPassthrough(t *testing.T) {
	h := newHarness(t)
	canonical := apierror.New(apierror.CodeConflict, "exists", 409, nil, h.clock.Now())

	resp, err := h.engine.Handle(context.Background(), canonical)
	assert.Same(t, canonical, resp)
	assert.Same(t, canonical, err)
}

func TestHandle_CanonicalWithUnknownCodeIsTrackedAsUnknown(t *testing.T) {
	h := newHarness(t)

	resp, _ := h.engine.Handle(context.Background(),
		&apierror.Response{Err: apierror.Body{Code: "BOGUS", Message: "odd"}}, NoThrow())
	assert.Equal(t, apierror.CodeUnknownError, resp.Code())

	stats := h.engine.Stats()
	assert.Contains(t, stats.ErrorsByCode, "UNKNOWN_ERROR:0")
	assert.NotContains(t, stats.ErrorsByCode, "BOGUS:0")
}

func TestHandle_ListenerPanicDoesNotEscape(t *testing.T) {
	h := newHarness(t)
	var later bool
	h.engine.AddListener(notify.ListenerFunc(func(*apierror.Response) { panic("boom") }))
	h.engine.AddListener(notify.ListenerFunc(func(*apierror.Response) { later = true }))

	require.NotPanics(t, func() {
		_, _ = h.engine.Handle(context.Background(), httpFailure(404, nil), NoThrow())
	})
	assert.True(t, later)
	assert.Contains(t, h.logs.String(), "Error listener panicked")
}

func TestHandle_RemoveListener(t *testing.T) {
	h := newHarness(t)
	calls := 0
	sub := h.engine.AddListener(notify.ListenerFunc(func(*apierror.Response) { calls++ }))

	_, _ = h.engine.Handle(context.Background(), httpFailure(404, nil))
	h.engine.RemoveListener(sub.ID)
	_, _ = h.engine.Handle(context.Background(), httpFailure(404, nil))

	assert.Equal(t, 1, calls)
}

func TestHandle_LogLevelsBySeverity(t *testing.T) {
	cases := []struct {
		status int
		level  string
		msg    string
	}{
		{500, "level=ERROR", `msg="Critical API error"`},
		{504, "level=ERROR", `msg="API error"`},
		{404, "level=WARN", `msg="API warning"`},
	}
	for _, tc := range cases {
		h := newHarness(t)
		_, _ = h.engine.Handle(context.Background(), httpFailure(tc.status, nil), NoThrow())
		out := h.logs.String()
		assert.Contains(t, out, tc.level)
		assert.Contains(t, out, tc.msg)
		assert.Contains(t, out, fmt.Sprintf("status=%d", tc.status))
	}

	h := newHarness(t)
	_, _ = h.engine.Handle(context.Background(), httpFailure(499, nil))
	assert.Empty(t, h.logs.String(), "client closed requests are cancellations")
}

func TestHandle_LogsRequestCorrelation(t *testing.T) {
	h := newHarness(t)
	ctx := observability.WithSource(observability.WithRequestID(context.Background(), "req-7"), "checkout")

	_, _ = h.engine.Handle(ctx, httpFailure(500, nil), NoThrow())

	out := h.logs.String()
	assert.Contains(t, out, "request.id=req-7")
	assert.Contains(t, out, "source=checkout")
}

func TestHandle_UIMinimumSeverity(t *testing.T) {
	h := newHarness(t)

	_, _ = h.engine.Handle(context.Background(), httpFailure(404, nil), NoThrow())
	require.Len(t, *h.ui, 1)
	assert.Equal(t, notify.TypeWarning, (*h.ui)[0].Type)

	h.engine.UpdateConfig(ConfigPatch{UIMinSeverity: ptr(apierror.SeverityCritical)})
	_, _ = h.engine.Handle(context.Background(), httpFailure(404, nil), NoThrow())
	assert.Len(t, *h.ui, 1, "warnings are below the raised minimum")

	_, _ = h.engine.Handle(context.Background(), httpFailure(500, nil), NoThrow())
	assert.Len(t, *h.ui, 2)
}

func TestHandle_OptionsControlSideEffects(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.Handle(context.Background(), httpFailure(503, nil),
		WithoutNotification(), WithoutLogging(), NoThrow())
	require.NoError(t, err)
	assert.Empty(t, *h.ui)
	assert.Empty(t, h.logs.String())
	assert.Equal(t, 1, h.engine.Stats().TotalErrors, "tracking is engine-level")

	_, _ = h.engine.Handle(context.Background(), httpFailure(503, nil), Silent())
	assert.Empty(t, *h.ui, "silent overrides showNotification")

	_, _ = h.engine.Handle(context.Background(), httpFailure(503, nil))
	require.Len(t, *h.ui, 1)
	assert.Equal(t, notify.TypeError, (*h.ui)[0].Type)
	assert.Equal(t, apierror.CodeServiceUnavailable, (*h.ui)[0].Code)
}

func TestHandle_CustomHandlerRunsLast(t *testing.T) {
	h := newHarness(t)
	var order []string
	h.engine.AddListener(notify.ListenerFunc(func(*apierror.Response) { order = append(order, "listener") }))

	resp, _ := h.engine.Handle(context.Background(), httpFailure(409, nil),
		WithoutNotification(), WithoutLogging(),
		WithCustomHandler(func(r *apierror.Response) {
			order = append(order, "custom")
			assert.Equal(t, apierror.CodeConflict, r.Code())
		}))

	assert.Equal(t, []string{"listener", "custom"}, order)
	assert.Equal(t, apierror.CodeConflict, resp.Code())
}

func TestHandle_EngineConfigDisablesSideEffects(t *testing.T) {
	h := newHarness(t)
	h.engine.UpdateConfig(ConfigPatch{
		EnableLogging:  ptr(false),
		EnableTracking: ptr(false),
		NotifyUI:       ptr(false),
	})

	_, _ = h.engine.Handle(context.Background(), httpFailure(500, nil))
	assert.Empty(t, h.logs.String())
	assert.Empty(t, *h.ui)
	assert.Zero(t, h.engine.Stats().TotalErrors)
}

func TestHandleSilently(t *testing.T) {
	h := newHarness(t)

	resp := h.engine.HandleSilently(context.Background(), httpFailure(500, nil))
	assert.Equal(t, apierror.CodeInternalServerError, resp.Code())
	assert.Empty(t, *h.ui)
	assert.Contains(t, h.logs.String(), "Critical API error")
}

func TestHandleRetryable(t *testing.T) {
	h := newHarness(t)
	retries := 0
	onRetry := func() { retries++ }

	resp := h.engine.HandleRetryable(context.Background(), httpFailure(503, nil), onRetry)
	assert.Equal(t, apierror.CodeServiceUnavailable, resp.Code())
	assert.Equal(t, 1, retries)
	assert.Contains(t, h.logs.String(), "retry_strategy=backoff")

	h.engine.HandleRetryable(context.Background(), httpFailure(400, nil), onRetry)
	assert.Equal(t, 1, retries)

	h.engine.HandleRetryable(context.Background(), httpFailure(429, nil), nil)
}

func TestStatsAndClear(t *testing.T) {
	h := newHarness(t)
	_, _ = h.engine.Handle(context.Background(), httpFailure(404, nil))
	_, _ = h.engine.Handle(context.Background(), httpFailure(404, nil))
	h.clock.Advance(5*time.Minute + time.Second)

	resp, _ := h.engine.Handle(context.Background(), httpFailure(404, nil))
	assert.Equal(t, 1, h.engine.Stats().ErrorsByCode[resp.Key()].Count, "count resets after the window")
	assert.Equal(t, 3, h.engine.Stats().TotalErrors)

	h.engine.ClearStats()
	assert.Zero(t, h.engine.Stats().TotalErrors)
	assert.Empty(t, h.engine.Stats().ErrorsByCode)
}

func TestUpdateConfig(t *testing.T) {
	h := newHarness(t)

	cfg := h.engine.UpdateConfig(ConfigPatch{
		BurstThreshold:  ptr(2),
		BurstAlert:      ptr(tracker.AlertEvery),
		MaxTrackingSize: ptr(1),
	})
	assert.Equal(t, 2, cfg.BurstThreshold)
	assert.True(t, cfg.EnableLogging, "untouched fields keep their value")
	assert.Equal(t, cfg, h.engine.Config())

	_, _ = h.engine.Handle(context.Background(), httpFailure(404, nil))
	_, _ = h.engine.Handle(context.Background(), httpFailure(409, nil))
	_, _ = h.engine.Handle(context.Background(), httpFailure(409, nil))
	_, _ = h.engine.Handle(context.Background(), httpFailure(409, nil))

	stats := h.engine.Stats()
	assert.Len(t, stats.ErrorsByCode, 1)
	assert.Equal(t, 2, strings.Count(h.logs.String(), "High frequency of errors"))

	got := h.engine.Config()
	got.EnableLogging = false
	assert.True(t, h.engine.Config().EnableLogging, "Config returns a copy")
}

func TestUpdateConfig_ConcurrentUpdatesStayConsistent(t *testing.T) {
	h := newHarness(t)

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sev := apierror.SeverityWarning
			if n%2 == 0 {
				sev = apierror.SeverityInfo
			}
			h.engine.UpdateConfig(ConfigPatch{BurstThreshold: ptr(n), UIMinSeverity: ptr(sev)})
		}(i)
	}
	wg.Wait()

	cfg := h.engine.Config()
	opts := h.engine.tracker.Options()
	assert.Equal(t, cfg.BurstThreshold, opts.Threshold)
	assert.Equal(t, cfg.Window, opts.Window)
	assert.Equal(t, cfg.UIMinSeverity, h.engine.dispatcher.MinSeverity())
}

func TestConfig_ApplyNormalizes(t *testing.T) {
	cfg := DefaultConfig().Apply(ConfigPatch{
		Window:          ptr(time.Duration(-1)),
		BurstThreshold:  ptr(0),
		BurstAlert:      ptr(tracker.AlertMode("loud")),
		UIMinSeverity:   ptr(apierror.Severity("INFO")),
		MaxTrackingSize: ptr(-3),
	})
	assert.Equal(t, tracker.DefaultWindow, cfg.Window)
	assert.Equal(t, tracker.DefaultThreshold, cfg.BurstThreshold)
	assert.Equal(t, tracker.AlertOnce, cfg.BurstAlert)
	assert.Equal(t, apierror.SeverityInfo, cfg.UIMinSeverity)
	assert.Zero(t, cfg.MaxTrackingSize)
}

func TestHandle_ConcurrentUse(t *testing.T) {
	h := newHarness(t)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				_, _ = h.engine.Handle(context.Background(), httpFailure(500+i%4, nil), NoThrow())
				if i == 0 {
					h.engine.UpdateConfig(ConfigPatch{BurstThreshold: ptr(10)})
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 400, h.engine.Stats().TotalErrors)
}

func ptr[T any](v T) *T { return &v }
