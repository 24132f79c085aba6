package events

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"github.com/Tatenda/fullstori/pkg/auth"
	"github.com/Tatenda/fullstori/pkg/logger"
)

// Module provides the graph change stream.
var Module = fx.Module("events",
	fx.Provide(NewService, NewHandler),
	fx.Invoke(register),
)

type params struct {
	fx.In

	LC             fx.Lifecycle
	Echo           *echo.Echo
	Handler        *Handler
	AuthMiddleware *auth.Middleware
	Log            *slog.Logger
}

// register mounts the stream endpoints and disconnects subscribers on shutdown
// so the HTTP server can drain.
func register(p params) {
	api := p.Echo.Group("/api", p.AuthMiddleware.RequireAuth())
	api.GET("/graphs/:graphId/stream", p.Handler.HandleStream)
	api.GET("/streams/count", p.Handler.HandleConnectionsCount)

	log := p.Log.With(logger.Scope("events"))
	p.LC.Append(fx.Hook{
		OnStop: func(context.Context) error {
			log.Info("closing graph streams")
			p.Handler.Stop()
			return nil
		},
	})
}
