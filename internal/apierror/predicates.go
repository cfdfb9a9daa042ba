package apierror

import "net/http"

// IsNetworkError reports whether err carries a transport-level network failure.
func IsNetworkError(err error) bool {
	return HasCode(err, CodeNetworkError)
}

// IsAuthenticationError reports whether err carries a 401 or 403 canonical error.
func IsAuthenticationError(err error) bool {
	resp, ok := As(err)
	if !ok {
		return false
	}
	return resp.Status == http.StatusUnauthorized || resp.Status == http.StatusForbidden
}

// IsValidationError reports whether err carries a validation failure.
func IsValidationError(err error) bool {
	return HasCode(err, CodeValidationError)
}

// IsServerError reports whether err carries a canonical error with a 5xx status.
func IsServerError(err error) bool {
	resp, ok := As(err)
	if !ok {
		return false
	}
	return resp.Status >= http.StatusInternalServerError
}
