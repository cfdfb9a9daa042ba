// Package errors provides the classified error primitives used by the engine host.
//
// Failures of the host itself (reading configuration, connecting to a broker,
// running the admin server) are ClassifiedError values built with the fluent
// ErrorBuilder. The HTTP and CLI adapters turn them into responses and exit codes.
// Failures the engine classifies on behalf of callers are *apierror.Response values
// and are rendered by the HTTP adapter in their canonical shape.
//
//	err := errors.WrapError(cause, errors.CategoryNetwork, "connect to nats").
//		WithContext("url", url).
//		Build()
package errors
