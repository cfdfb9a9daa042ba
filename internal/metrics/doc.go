// Package metrics provides the observability hooks of the error engine.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no nil checks are needed at call sites:
//
//	engine := handler.New(handler.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// The host serves the registry through HTTPHandler on the admin server.
package metrics
