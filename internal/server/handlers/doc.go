// Package handlers contains the admin HTTP API handlers.
//
// Failure ingest runs externally reported transport failures through the engine,
// stats and config expose engine state, and monitoring serves the health probe.
// Errors are written through the foundation/errors HTTP adapter so every error
// body has the canonical shape.
package handlers
