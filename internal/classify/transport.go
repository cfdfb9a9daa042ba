package classify

import (
	"fmt"
	"time"
)

// Transport error codes and names produced by HTTP clients.
const (
	CodeNetwork      = "ERR_NETWORK"
	CodeConnAborted  = "ECONNABORTED"
	CodeTimedOut     = "ETIMEDOUT"
	CodeCanceled     = "ERR_CANCELED"
	NameCanceled     = "CanceledError"
	MessageNetwork   = "Network Error"
	messageCanceled  = "canceled"
	messageCancelled = "cancelled"
)

// TransportError is the failure shape produced by the HTTP transport layer.
//
// Response is nil when no response was received. The JSON form mirrors what browser
// HTTP clients serialize, so failures can be ingested from out-of-process transports.
type TransportError struct {
	Response *HTTPResponse  `json:"response,omitempty"`
	Status   int            `json:"status,omitempty"`
	Code     string         `json:"code,omitempty"`
	Name     string         `json:"name,omitempty"`
	Message  string         `json:"message"`
	Config   *RequestConfig `json:"config,omitempty"`
	Cause    error          `json:"-"`
}

// HTTPResponse is the received response of a failed request.
type HTTPResponse struct {
	Status int `json:"status"`
	Data   any `json:"data,omitempty"`
}

// RequestConfig describes the request that failed.
type RequestConfig struct {
	URL     string `json:"url,omitempty"`
	Method  string `json:"method,omitempty"`
	Timeout int    `json:"timeout,omitempty"` // milliseconds
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Response != nil {
		return fmt.Sprintf("request failed with status code %d", e.Response.Status)
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "transport error"
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// RequestInfo is the request context carried into canonical error details.
type RequestInfo struct {
	URL     string
	Method  string
	Timeout time.Duration
}

func requestInfo(cfg *RequestConfig) RequestInfo {
	if cfg == nil {
		return RequestInfo{}
	}
	return RequestInfo{
		URL:     cfg.URL,
		Method:  cfg.Method,
		Timeout: time.Duration(cfg.Timeout) * time.Millisecond,
	}
}
