// Package apierror defines the canonical API error representation and the closed
// error taxonomy it is built on.
//
// Every failure observed by the API layer, whatever its origin, is converted into a
// single *Response value (wire name StandardErrorResponse):
//
//	{
//	  "error":     {"code": "UNAUTHORIZED", "message": "...", "details": {...}},
//	  "status":    401,
//	  "timestamp": "2024-05-01T10:00:00Z"
//	}
//
// Key pieces:
//   - ErrorCode: closed enumeration; anything unrecognized becomes CodeUnknownError
//   - Severity: critical, error, warning or info, derived from the code
//   - Registry: CodeFromStatus and Lookup are total functions, so callers never need
//     their own fallback logic
//   - Response: implements error, so a canonical error can travel through ordinary
//     Go error returns and be recovered with As
package apierror
