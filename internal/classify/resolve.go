package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
	"time"

	"git.home.luguber.info/inful/apierror/internal/apierror"
)

// observed is the normalized view of a raw failure that predicates inspect.
type observed struct {
	raw       any
	response  *HTTPResponse
	status    int
	hasStatus bool
	code      string
	name      string
	message   string
	request   RequestInfo
	err       error
}

// predicate reports whether the observed failure matches one variant.
type predicate func(o *observed) (Failure, bool)

// predicates are evaluated in order; the first match wins.
var predicates = []predicate{
	canonicalInput,
	canonicalBody,
	httpResponse,
	networkSignal,
	timeoutSignal,
	cancelSignal,
}

// Resolve maps a raw failure onto its Failure variant. It never panics on
// well-behaved input and always returns a non-nil Failure.
func Resolve(raw any) Failure {
	o := observe(raw)
	for _, p := range predicates {
		if f, ok := p(o); ok {
			return f
		}
	}
	return unknown(o)
}

func canonicalInput(o *observed) (Failure, bool) {
	switch v := o.raw.(type) {
	case *apierror.Response:
		if v != nil {
			return canonical(v), true
		}
	case apierror.Response:
		return canonical(&v), true
	case map[string]any:
		if resp, ok := apierror.FromMap(v, time.Time{}); ok {
			return CanonicalFailure{Response: resp, Decoded: true}, true
		}
	case error:
		if resp, ok := apierror.As(v); ok {
			return canonical(resp), true
		}
	}
	return nil, false
}

// canonical passes r through when its code is known and otherwise replaces it
// with an UNKNOWN_ERROR copy.
func canonical(r *apierror.Response) Failure {
	if r.Err.Code.Valid() {
		return CanonicalFailure{Response: r}
	}
	return CanonicalFailure{Response: apierror.Normalize(r), Decoded: true}
}

func canonicalBody(o *observed) (Failure, bool) {
	if o.response == nil {
		return nil, false
	}
	if m, ok := decodeBody(o.response.Data).(map[string]any); ok {
		if resp, ok := apierror.FromMap(m, time.Time{}); ok {
			return CanonicalFailure{Response: resp, Decoded: true}, true
		}
	}
	return nil, false
}

func httpResponse(o *observed) (Failure, bool) {
	if o.response == nil {
		return nil, false
	}
	return HTTPFailure{
		Status:  o.response.Status,
		Data:    decodeBody(o.response.Data),
		Request: o.request,
	}, true
}

func networkSignal(o *observed) (Failure, bool) {
	if o.code == CodeNetwork || o.message == MessageNetwork || isGoNetworkError(o.err) {
		return NetworkFailure{Message: o.message, Request: o.request}, true
	}
	return nil, false
}

func timeoutSignal(o *observed) (Failure, bool) {
	if o.code == CodeConnAborted || o.code == CodeTimedOut ||
		strings.Contains(strings.ToLower(o.message), "timeout") || isGoTimeout(o.err) {
		return TimeoutFailure{Message: o.message, Request: o.request}, true
	}
	return nil, false
}

func cancelSignal(o *observed) (Failure, bool) {
	if o.code == CodeCanceled || o.name == NameCanceled ||
		o.message == messageCanceled || o.message == messageCancelled ||
		(o.err != nil && errors.Is(o.err, context.Canceled)) {
		return CancelFailure{Message: o.message, Request: o.request}, true
	}
	return nil, false
}

func unknown(o *observed) Failure {
	f := UnknownFailure{
		Message:  o.message,
		Original: original(o),
		Request:  o.request,
	}
	if o.hasStatus {
		f.Status = o.status
	}
	return f
}

// isGoNetworkError matches connection-level failures from the net stack. Timeouts
// and context cancellation are left to their own predicates.
func isGoNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && !ne.Timeout()
}

func isGoTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

type statusCoder interface {
	StatusCode() int
}

type httpStatuser interface {
	HTTPStatus() int
}

func observe(raw any) *observed {
	raw = decodeBody(raw)
	o := &observed{raw: raw}

	switch v := raw.(type) {
	case nil:
	case *apierror.Response:
		if v == nil {
			o.raw = nil
		} else {
			o.fromError(v)
		}
	case *TransportError:
		if v == nil {
			o.raw = nil
		} else {
			o.fromTransport(v)
			o.err = v
		}
	case TransportError:
		o.fromTransport(&v)
		o.err = &v
	case error:
		o.fromError(v)
	case string:
		o.message = v
	case map[string]any:
		o.fromMap(v)
	default:
		o.message = fmt.Sprint(v)
	}
	return o
}

func (o *observed) fromTransport(te *TransportError) {
	o.response = te.Response
	o.code = te.Code
	o.name = te.Name
	o.message = te.Message
	o.request = requestInfo(te.Config)
	if te.Status != 0 {
		o.status, o.hasStatus = te.Status, true
	}
	if o.message == "" && te.Cause != nil {
		o.message = te.Cause.Error()
	}
}

func (o *observed) fromError(err error) {
	o.err = err
	var te *TransportError
	if errors.As(err, &te) && te != nil {
		o.fromTransport(te)
	}
	if o.message == "" {
		o.message = err.Error()
	}

	var sc statusCoder
	var hs httpStatuser
	switch {
	case o.hasStatus:
	case errors.As(err, &sc):
		o.status, o.hasStatus = sc.StatusCode(), true
	case errors.As(err, &hs):
		o.status, o.hasStatus = hs.HTTPStatus(), true
	}
}

func (o *observed) fromMap(m map[string]any) {
	o.code = stringValue(m["code"])
	o.name = stringValue(m["name"])
	o.message = stringValue(m["message"])
	if status, ok := apierror.Int(m["status"]); ok {
		o.status, o.hasStatus = status, true
	}
	if r, ok := m["response"].(map[string]any); ok {
		if status, ok := apierror.Int(r["status"]); ok {
			o.response = &HTTPResponse{Status: status, Data: r["data"]}
		}
	}
	if c, ok := m["config"].(map[string]any); ok {
		timeout, _ := apierror.Int(c["timeout"])
		o.request = RequestInfo{
			URL:     stringValue(c["url"]),
			Method:  stringValue(c["method"]),
			Timeout: time.Duration(timeout) * time.Millisecond,
		}
	}
	if o.message == "" && o.code == "" && o.response == nil {
		o.message = fmt.Sprint(m)
	}
}

func original(o *observed) any {
	switch o.raw.(type) {
	case nil:
		return nil
	case map[string]any, string:
		return o.raw
	default:
		return o.message
	}
}

// decodeBody turns JSON documents held as bytes into their decoded form.
// Anything else is returned unchanged.
func decodeBody(v any) any {
	var b []byte
	switch t := v.(type) {
	case []byte:
		b = t
	case json.RawMessage:
		b = t
	default:
		return v
	}
	var decoded any
	if err := json.Unmarshal(b, &decoded); err != nil {
		return string(b)
	}
	return decoded
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
