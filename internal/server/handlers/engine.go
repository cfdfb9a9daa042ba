package handlers

import (
	"context"

	"git.home.luguber.info/inful/apierror/internal/apierror"
	"git.home.luguber.info/inful/apierror/internal/handler"
	"git.home.luguber.info/inful/apierror/internal/tracker"
)

// Engine is the part of *handler.Engine the admin API uses.
type Engine interface {
	Handle(ctx context.Context, raw any, opts ...handler.Option) (*apierror.Response, error)
	Stats() tracker.Stats
	ClearStats()
	Config() handler.Config
}
