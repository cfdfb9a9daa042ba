package apierror

import (
	"slices"
	"strings"
)

// ErrorCode is a member of the closed canonical error taxonomy.
type ErrorCode string

const (
	// Transport-level failures (no response was received).
	CodeNetworkError ErrorCode = "NETWORK_ERROR"
	CodeTimeout      ErrorCode = "TIMEOUT"
	CodeCancelled    ErrorCode = "CANCELLED"

	// Client errors.
	CodeValidationError   ErrorCode = "VALIDATION_ERROR"
	CodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	CodeForbidden         ErrorCode = "FORBIDDEN"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeConflict          ErrorCode = "CONFLICT"
	CodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Server errors.
	CodeInternalServerError ErrorCode = "INTERNAL_SERVER_ERROR"
	CodeServiceUnavailable  ErrorCode = "SERVICE_UNAVAILABLE"

	// CodeUnknownError is the fallback for anything that cannot be classified.
	CodeUnknownError ErrorCode = "UNKNOWN_ERROR"
)

var allCodes = []ErrorCode{
	CodeNetworkError,
	CodeTimeout,
	CodeCancelled,
	CodeValidationError,
	CodeUnauthorized,
	CodeForbidden,
	CodeNotFound,
	CodeConflict,
	CodeRateLimitExceeded,
	CodeInternalServerError,
	CodeServiceUnavailable,
	CodeUnknownError,
}

// Codes returns every member of the taxonomy in declaration order.
func Codes() []ErrorCode {
	return slices.Clone(allCodes)
}

// Valid reports whether c belongs to the taxonomy.
func (c ErrorCode) Valid() bool {
	return slices.Contains(allCodes, c)
}

// String implements fmt.Stringer.
func (c ErrorCode) String() string {
	return string(c)
}

// ParseCode converts raw input (case-insensitive, surrounding space ignored) into an ErrorCode.
func ParseCode(raw string) (ErrorCode, bool) {
	code := ErrorCode(strings.ToUpper(strings.TrimSpace(raw)))
	if code.Valid() {
		return code, true
	}
	return CodeUnknownError, false
}

// Severity indicates the impact level of a canonical error.
type Severity string

const (
	SeverityCritical Severity = "critical" // Server-side breakage, needs attention
	SeverityError    Severity = "error"    // The operation failed
	SeverityWarning  Severity = "warning"  // Caller-correctable problem
	SeverityInfo     Severity = "info"     // Expected outcome, log only
)

func (s Severity) rank() int {
	switch s {
	case SeverityInfo:
		return 0
	case SeverityWarning:
		return 1
	case SeverityCritical:
		return 3
	default:
		return 2
	}
}

// AtLeast reports whether s is as severe as or more severe than minimum.
func (s Severity) AtLeast(minimum Severity) bool {
	return s.rank() >= minimum.rank()
}

// ParseSeverity converts raw input into a Severity.
func ParseSeverity(raw string) (Severity, bool) {
	switch Severity(strings.ToLower(strings.TrimSpace(raw))) {
	case SeverityCritical:
		return SeverityCritical, true
	case SeverityError:
		return SeverityError, true
	case SeverityWarning:
		return SeverityWarning, true
	case SeverityInfo:
		return SeverityInfo, true
	default:
		return SeverityError, false
	}
}
