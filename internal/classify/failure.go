package classify

import "git.home.luguber.info/inful/apierror/internal/apierror"

// Kind names a Failure variant.
type Kind string

const (
	KindCanonical Kind = "canonical"
	KindHTTP      Kind = "http"
	KindNetwork   Kind = "network"
	KindTimeout   Kind = "timeout"
	KindCancel    Kind = "cancel"
	KindUnknown   Kind = "unknown"
)

// Failure is the tagged variant a raw failure resolves to.
type Failure interface {
	Kind() Kind
	failure()
}

// CanonicalFailure is input that already has the canonical shape.
// Decoded is true when the Response was built during resolution rather than passed in.
type CanonicalFailure struct {
	Response *apierror.Response
	Decoded  bool
}

// HTTPFailure is a received response with a non-canonical body.
type HTTPFailure struct {
	Status  int
	Data    any
	Request RequestInfo
}

// NetworkFailure means no connection could be made or it was lost.
type NetworkFailure struct {
	Message string
	Request RequestInfo
}

// TimeoutFailure means the request did not complete in time.
type TimeoutFailure struct {
	Message string
	Request RequestInfo
}

// CancelFailure means the caller abandoned the request.
type CancelFailure struct {
	Message string
	Request RequestInfo
}

// UnknownFailure is anything else.
type UnknownFailure struct {
	Status   int // 0 when no status was embedded
	Message  string
	Original any
	Request  RequestInfo
}

func (CanonicalFailure) Kind() Kind { return KindCanonical }
func (HTTPFailure) Kind() Kind      { return KindHTTP }
func (NetworkFailure) Kind() Kind   { return KindNetwork }
func (TimeoutFailure) Kind() Kind   { return KindTimeout }
func (CancelFailure) Kind() Kind    { return KindCancel }
func (UnknownFailure) Kind() Kind   { return KindUnknown }

func (CanonicalFailure) failure() {}
func (HTTPFailure) failure()      {}
func (NetworkFailure) failure()   {}
func (TimeoutFailure) failure()   {}
func (CancelFailure) failure()    {}
func (UnknownFailure) failure()   {}
