package notify

import "git.home.luguber.info/inful/apierror/internal/apierror"

// EnvelopeType is the presentation type of a UI notification.
type EnvelopeType string

const (
	TypeError   EnvelopeType = "error"
	TypeWarning EnvelopeType = "warning"
	TypeInfo    EnvelopeType = "info"
)

// TypeFor maps a severity to its notification type. CRITICAL and ERROR are both
// shown as errors.
func TypeFor(s apierror.Severity) EnvelopeType {
	switch s {
	case apierror.SeverityCritical, apierror.SeverityError:
		return TypeError
	case apierror.SeverityWarning:
		return TypeWarning
	default:
		return TypeInfo
	}
}

// Envelope is the UI notification emitted for a handled failure.
type Envelope struct {
	Type     EnvelopeType       `json:"type"`
	Message  string             `json:"message"`
	Code     apierror.ErrorCode `json:"code"`
	Details  apierror.Details   `json:"details,omitempty"`
	Severity apierror.Severity  `json:"-"`
}

// NewEnvelope builds the UI notification for resp.
func NewEnvelope(resp *apierror.Response) Envelope {
	sev := resp.Severity()
	return Envelope{
		Type:     TypeFor(sev),
		Message:  resp.Message(),
		Code:     resp.Code(),
		Details:  resp.Details(),
		Severity: sev,
	}
}
