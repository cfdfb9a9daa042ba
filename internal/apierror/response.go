package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"
)

// Well-known detail keys attached during classification.
const (
	DetailOriginalError = "original_error"
	DetailURL           = "url"
	DetailMethod        = "method"
	DetailTimeout       = "timeout"
)

// Details carries diagnostic context for a canonical error.
type Details map[string]any

// Get retrieves a detail value.
func (d Details) Get(key string) (any, bool) {
	if d == nil {
		return nil, false
	}
	v, ok := d[key]
	return v, ok
}

// GetString retrieves a string detail value.
func (d Details) GetString(key string) (string, bool) {
	if v, ok := d.Get(key); ok {
		if s, ok := v.(string); ok {
			return s, true
		}
	}
	return "", false
}

// Body is the "error" member of a canonical error.
type Body struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details Details   `json:"details,omitempty"`
}

// Response is the canonical error representation (StandardErrorResponse).
//
// Status 0 is reserved for transport-level failures where no response was received.
// Timestamp is set once when the value is created and is never changed afterwards.
type Response struct {
	Err       Body      `json:"error"`
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// New creates a canonical error. Codes outside the taxonomy become CodeUnknownError
// and an empty message falls back to the registry default for the resolved code.
func New(code ErrorCode, message string, status int, details Details, at time.Time) *Response {
	if !code.Valid() {
		code = CodeUnknownError
	}
	if message == "" {
		message = DefaultMessage(code)
	}
	return &Response{
		Err: Body{
			Code:    code,
			Message: message,
			Details: details,
		},
		Status:    status,
		Timestamp: at.UTC(),
	}
}

// Error implements the error interface.
func (r *Response) Error() string {
	return fmt.Sprintf("%s (%d): %s", r.Err.Code, r.Status, r.Err.Message)
}

// Code returns the canonical error code.
func (r *Response) Code() ErrorCode {
	return r.Err.Code
}

// Message returns the human readable message.
func (r *Response) Message() string {
	return r.Err.Message
}

// Details returns a copy of the diagnostic details.
func (r *Response) Details() Details {
	if r.Err.Details == nil {
		return nil
	}
	return maps.Clone(r.Err.Details)
}

// Severity derives the severity from the error code.
func (r *Response) Severity() Severity {
	return SeverityOf(r.Err.Code)
}

// Retryable reports whether the registry marks the code as retryable.
func (r *Response) Retryable() bool {
	return Lookup(r.Err.Code).Retryable
}

// Key returns the "<code>:<status>" identity used for frequency tracking.
func (r *Response) Key() string {
	return fmt.Sprintf("%s:%d", r.Err.Code, r.Status)
}

// Is matches another *Response with the same code.
func (r *Response) Is(target error) bool {
	if other, ok := target.(*Response); ok {
		return r.Err.Code == other.Err.Code
	}
	return false
}

// As extracts a canonical error from err's chain.
func As(err error) (*Response, bool) {
	var resp *Response
	if errors.As(err, &resp) && resp != nil {
		return resp, true
	}
	return nil, false
}

// HasCode reports whether err carries a canonical error with the given code.
func HasCode(err error, code ErrorCode) bool {
	if resp, ok := As(err); ok {
		return resp.Err.Code == code
	}
	return false
}

// FromMap converts a decoded JSON object with canonical shape into a Response.
// The object must contain "error" with string "code" and "message" members and a
// numeric "status". A missing or unparsable timestamp is replaced by now.
func FromMap(m map[string]any, now time.Time) (*Response, bool) {
	if m == nil {
		return nil, false
	}
	body, ok := m["error"].(map[string]any)
	if !ok {
		return nil, false
	}
	rawCode, ok := body["code"].(string)
	if !ok {
		return nil, false
	}
	message, ok := body["message"].(string)
	if !ok {
		return nil, false
	}
	status, ok := Int(m["status"])
	if !ok {
		return nil, false
	}

	code, _ := ParseCode(rawCode)
	ts := now
	if s, ok := m["timestamp"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
			ts = parsed
		}
	}

	var details Details
	if d, ok := body["details"].(map[string]any); ok {
		details = Details(maps.Clone(d))
	}

	return New(code, message, status, details, ts), true
}

// Normalize returns r unchanged when its code belongs to the taxonomy. Otherwise it
// returns a new CodeUnknownError response carrying r's message, status, details
// and timestamp.
func Normalize(r *Response) *Response {
	if r == nil || r.Err.Code.Valid() {
		return r
	}
	return New(CodeUnknownError, r.Err.Message, r.Status, r.Details(), r.Timestamp)
}

// IsCanonical reports whether v already has the canonical shape. Responses
// whose code is outside the taxonomy are not canonical. Decoded objects are,
// since FromMap maps unknown codes to CodeUnknownError.
func IsCanonical(v any) bool {
	switch t := v.(type) {
	case *Response:
		return t != nil && t.Err.Code.Valid()
	case Response:
		return t.Err.Code.Valid()
	case map[string]any:
		_, ok := FromMap(t, time.Time{})
		return ok
	default:
		return false
	}
}

// Int converts a decoded numeric value to int. Fractional floats are rejected.
func Int(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}
