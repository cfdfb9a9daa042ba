package apierror

import "net/http"

// Entry holds the registry defaults for one ErrorCode.
type Entry struct {
	Code      ErrorCode
	Message   string
	Severity  Severity
	Retryable bool
}

var registry = map[ErrorCode]Entry{
	CodeNetworkError: {
		Code:      CodeNetworkError,
		Message:   "A network error occurred. Please check your connection.",
		Severity:  SeverityError,
		Retryable: true,
	},
	CodeTimeout: {
		Code:      CodeTimeout,
		Message:   "The request timed out.",
		Severity:  SeverityError,
		Retryable: true,
	},
	CodeCancelled: {
		Code:     CodeCancelled,
		Message:  "The request was cancelled.",
		Severity: SeverityInfo,
	},
	CodeValidationError: {
		Code:     CodeValidationError,
		Message:  "The submitted data is invalid.",
		Severity: SeverityWarning,
	},
	CodeUnauthorized: {
		Code:     CodeUnauthorized,
		Message:  "Authentication is required.",
		Severity: SeverityWarning,
	},
	CodeForbidden: {
		Code:     CodeForbidden,
		Message:  "You do not have permission to perform this operation.",
		Severity: SeverityWarning,
	},
	CodeNotFound: {
		Code:     CodeNotFound,
		Message:  "The requested resource was not found.",
		Severity: SeverityWarning,
	},
	CodeConflict: {
		Code:     CodeConflict,
		Message:  "The request conflicts with the current state of the resource.",
		Severity: SeverityWarning,
	},
	CodeRateLimitExceeded: {
		Code:      CodeRateLimitExceeded,
		Message:   "Too many requests. Please wait and try again.",
		Severity:  SeverityWarning,
		Retryable: true,
	},
	CodeInternalServerError: {
		Code:     CodeInternalServerError,
		Message:  "An internal server error occurred.",
		Severity: SeverityCritical,
	},
	CodeServiceUnavailable: {
		Code:      CodeServiceUnavailable,
		Message:   "The service is temporarily unavailable.",
		Severity:  SeverityCritical,
		Retryable: true,
	},
	CodeUnknownError: {
		Code:     CodeUnknownError,
		Message:  "An unexpected error occurred.",
		Severity: SeverityError,
	},
}

// Lookup returns the registry entry for code. Codes outside the taxonomy resolve to
// the CodeUnknownError entry.
func Lookup(code ErrorCode) Entry {
	if e, ok := registry[code]; ok {
		return e
	}
	return registry[CodeUnknownError]
}

// DefaultMessage returns the registry message for code.
func DefaultMessage(code ErrorCode) string {
	return Lookup(code).Message
}

// SeverityOf returns the registry severity for code.
func SeverityOf(code ErrorCode) Severity {
	return Lookup(code).Severity
}

// statusClientClosedRequest is the de facto status for requests abandoned by the client.
const statusClientClosedRequest = 499

// CodeFromStatus maps an HTTP-like status onto the taxonomy. Status 0 means no
// response was received. Unmapped values resolve to CodeUnknownError.
func CodeFromStatus(status int) ErrorCode {
	switch status {
	case 0:
		return CodeNetworkError
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CodeValidationError
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return CodeTimeout
	case http.StatusConflict:
		return CodeConflict
	case http.StatusTooManyRequests:
		return CodeRateLimitExceeded
	case statusClientClosedRequest:
		return CodeCancelled
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return CodeServiceUnavailable
	}

	switch {
	case status >= 500 && status < 600:
		return CodeInternalServerError
	case status >= 400 && status < 500:
		return CodeValidationError
	default:
		return CodeUnknownError
	}
}
