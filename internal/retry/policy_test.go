package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"git.home.luguber.info/inful/apierror/internal/apierror"
)

// TestDefaultPolicy verifies the baseline default values.
func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, ModeExponential, p.Mode)
	assert.Equal(t, time.Second, p.Initial)
	assert.Equal(t, 30*time.Second, p.Max)
	assert.Equal(t, 3, p.MaxRetries)
	assert.NoError(t, p.Validate())
}

// TestNewPolicyOverrides checks override precedence and clamping when initial > max.
func TestNewPolicyOverrides(t *testing.T) {
	p := NewPolicy(ModeFixed, 5*time.Second, 2*time.Second, 5)
	assert.Equal(t, 2*time.Second, p.Initial)
	assert.Equal(t, 2*time.Second, p.Max)
	assert.Equal(t, ModeFixed, p.Mode)
	assert.Equal(t, 5, p.MaxRetries)

	unknown := NewPolicy("jittered", 0, 0, -1)
	assert.Equal(t, DefaultPolicy(), unknown)
}

// TestDelayModes ensures fixed, linear, exponential behave and respect cap.
func TestDelayModes(t *testing.T) {
	fixed := NewPolicy(ModeFixed, 100*time.Millisecond, 500*time.Millisecond, 3)
	for i := 1; i <= 3; i++ {
		assert.Equal(t, 100*time.Millisecond, fixed.Delay(i), "fixed attempt %d", i)
	}

	linear := NewPolicy(ModeLinear, 100*time.Millisecond, 250*time.Millisecond, 5)
	for attempt, want := range map[int]time.Duration{1: 100 * time.Millisecond, 2: 200 * time.Millisecond, 3: 250 * time.Millisecond, 4: 250 * time.Millisecond} {
		assert.Equal(t, want, linear.Delay(attempt), "linear attempt %d", attempt)
	}

	exp := NewPolicy(ModeExponential, 50*time.Millisecond, 160*time.Millisecond, 5)
	for attempt, want := range map[int]time.Duration{1: 50 * time.Millisecond, 2: 100 * time.Millisecond, 3: 160 * time.Millisecond, 40: 160 * time.Millisecond} {
		assert.Equal(t, want, exp.Delay(attempt), "exponential attempt %d", attempt)
	}

	assert.Zero(t, exp.Delay(0))
}

func TestPolicyValidate(t *testing.T) {
	assert.Error(t, Policy{Initial: 0, Max: time.Second}.Validate())
	assert.Error(t, Policy{Initial: time.Second, Max: 0}.Validate())
	assert.Error(t, Policy{Initial: time.Second, Max: time.Second, MaxRetries: -1}.Validate())
}

func TestIsRetryable(t *testing.T) {
	want := map[apierror.ErrorCode]bool{
		apierror.CodeServiceUnavailable:  true,
		apierror.CodeTimeout:             true,
		apierror.CodeNetworkError:        true,
		apierror.CodeRateLimitExceeded:   true,
		apierror.CodeInternalServerError: false,
		apierror.CodeValidationError:     false,
		apierror.CodeUnauthorized:        false,
		apierror.CodeForbidden:           false,
		apierror.CodeNotFound:            false,
		apierror.CodeConflict:            false,
		apierror.CodeCancelled:           false,
		apierror.CodeUnknownError:        false,
	}
	for _, code := range apierror.Codes() {
		assert.Equal(t, want[code], IsRetryable(code), code.String())
		assert.Equal(t, apierror.Lookup(code).Retryable, IsRetryable(code), "registry agrees for %s", code)
	}
	assert.False(t, IsRetryable("SOMETHING_ELSE"))
}

func TestStrategyFor(t *testing.T) {
	assert.Equal(t, StrategyBackoff, StrategyFor(apierror.CodeTimeout))
	assert.Equal(t, StrategyRateLimit, StrategyFor(apierror.CodeRateLimitExceeded))
	assert.Equal(t, StrategyNever, StrategyFor(apierror.CodeConflict))
}

func TestAdvise(t *testing.T) {
	p := NewPolicy(ModeLinear, time.Second, 10*time.Second, 2)
	now := time.Now()

	a := p.Advise(apierror.New(apierror.CodeServiceUnavailable, "", 503, nil, now), 2)
	assert.Equal(t, Advice{Retryable: true, Strategy: StrategyBackoff, Delay: 2 * time.Second}, a)

	a = p.Advise(apierror.New(apierror.CodeRateLimitExceeded, "", 429, nil, now), 1)
	assert.Equal(t, 10*time.Second, a.Delay)
	assert.Equal(t, StrategyRateLimit, a.Strategy)

	a = p.Advise(apierror.New(apierror.CodeTimeout, "", 504, nil, now), 3)
	assert.False(t, a.Retryable, "attempts beyond MaxRetries are exhausted")

	a = p.Advise(apierror.New(apierror.CodeNotFound, "", 404, nil, now), 1)
	assert.Equal(t, Advice{Strategy: StrategyNever}, a)

	assert.False(t, p.Advise(nil, 1).Retryable)
}
