// Package classify converts raw transport failures into canonical API errors.
//
// Classification happens in two steps. Resolve maps the raw value onto one tagged
// Failure variant using an ordered list of predicates (canonical input, canonical
// body, HTTP response, network, timeout, cancellation, unknown). Classify then turns
// the variant into an *apierror.Response using the taxonomy registry.
package classify

import (
	"fmt"
	"net/http"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/apierror/internal/apierror"
)

// Classifier stamps canonical errors using an injected clock.
type Classifier struct {
	clock clockwork.Clock
}

// New creates a Classifier. A nil clock uses the real clock.
func New(clock clockwork.Clock) *Classifier {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Classifier{clock: clock}
}

var defaultClassifier = New(nil)

// Classify converts raw using the real clock.
func Classify(raw any) *apierror.Response {
	return defaultClassifier.Classify(raw)
}

// Classify converts any raw failure into a canonical error. It never returns nil
// and never panics: anything that cannot be interpreted becomes UNKNOWN_ERROR/500.
// Canonical input is returned unchanged unless its code is outside the taxonomy,
// in which case it becomes UNKNOWN_ERROR with the same status and timestamp.
func (c *Classifier) Classify(raw any) (resp *apierror.Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = apierror.New(apierror.CodeUnknownError,
				fmt.Sprintf("unclassifiable failure: %v", r),
				http.StatusInternalServerError, nil, c.clock.Now())
		}
	}()

	return c.FromFailure(Resolve(raw))
}

// FromFailure converts a resolved Failure into a canonical error.
func (c *Classifier) FromFailure(f Failure) *apierror.Response {
	now := c.clock.Now()

	switch v := f.(type) {
	case CanonicalFailure:
		if v.Decoded && v.Response.Timestamp.IsZero() {
			v.Response.Timestamp = now.UTC()
		}
		return v.Response

	case HTTPFailure:
		code := apierror.CodeFromStatus(v.Status)
		return apierror.New(code, extractMessage(v.Data), v.Status,
			details(v.Data, v.Request), now)

	case NetworkFailure:
		return apierror.New(apierror.CodeNetworkError, "", 0,
			details(v.Message, v.Request), now)

	case TimeoutFailure:
		d := details(v.Message, v.Request)
		if v.Request.Timeout > 0 {
			d[apierror.DetailTimeout] = v.Request.Timeout.Milliseconds()
		}
		return apierror.New(apierror.CodeTimeout, "", http.StatusGatewayTimeout, d, now)

	case CancelFailure:
		return apierror.New(apierror.CodeCancelled, "", 0,
			details(v.Message, v.Request), now)

	case UnknownFailure:
		status := v.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return apierror.New(apierror.CodeUnknownError, v.Message, status,
			details(v.Original, v.Request), now)

	default:
		return apierror.New(apierror.CodeUnknownError, "", http.StatusInternalServerError,
			details(nil, RequestInfo{}), now)
	}
}

func details(original any, req RequestInfo) apierror.Details {
	d := apierror.Details{apierror.DetailOriginalError: original}
	if req.URL != "" {
		d[apierror.DetailURL] = req.URL
	}
	if req.Method != "" {
		d[apierror.DetailMethod] = req.Method
	}
	return d
}
