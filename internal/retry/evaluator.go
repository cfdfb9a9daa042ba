// Package retry decides whether a canonical error is worth retrying.
//
// The engine never retries on its own. IsRetryable answers the yes/no question
// from the error code alone; Policy.Advise adds a strategy and a suggested delay
// for callers that schedule retries themselves.
package retry

import (
	"time"

	"git.home.luguber.info/inful/apierror/internal/apierror"
)

// Strategy is an advisory label for how a caller should retry.
type Strategy string

const (
	StrategyNever     Strategy = "never"
	StrategyBackoff   Strategy = "backoff"
	StrategyRateLimit Strategy = "rate_limit"
)

var retryable = map[apierror.ErrorCode]Strategy{
	apierror.CodeServiceUnavailable: StrategyBackoff,
	apierror.CodeTimeout:            StrategyBackoff,
	apierror.CodeNetworkError:       StrategyBackoff,
	apierror.CodeRateLimitExceeded:  StrategyRateLimit,
}

// IsRetryable reports whether failures with code may succeed when retried.
func IsRetryable(code apierror.ErrorCode) bool {
	_, ok := retryable[code]
	return ok
}

// StrategyFor returns the advisory retry strategy for code.
func StrategyFor(code apierror.ErrorCode) Strategy {
	if s, ok := retryable[code]; ok {
		return s
	}
	return StrategyNever
}

// Advice is the retry recommendation for one failed attempt.
type Advice struct {
	Retryable bool          `json:"retryable"`
	Strategy  Strategy      `json:"strategy"`
	Delay     time.Duration `json:"delay"`
}

// Advise recommends whether and when to retry after the given 1-based attempt.
// Rate limited failures wait the policy maximum; attempts past MaxRetries are
// not retryable regardless of code.
func (p Policy) Advise(resp *apierror.Response, attempt int) Advice {
	if resp == nil {
		return Advice{Strategy: StrategyNever}
	}
	strategy := StrategyFor(resp.Code())
	if strategy == StrategyNever || attempt > p.MaxRetries {
		return Advice{Strategy: StrategyNever}
	}
	a := Advice{Retryable: true, Strategy: strategy}
	if strategy == StrategyRateLimit {
		a.Delay = p.Max
	} else {
		a.Delay = p.Delay(attempt)
	}
	return a
}
