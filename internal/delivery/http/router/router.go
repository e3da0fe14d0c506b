// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"chat/config"
	"chat/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	Config           *config.Config
	StatusHandler    *handler.StatusHandler
	WebSocketHandler *handler.WebSocketHandler
}

// router holds all the handlers that need to be registered.
type router struct {
	wsPath           string
	statusHandler    *handler.StatusHandler
	webSocketHandler *handler.WebSocketHandler
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		wsPath:           params.Config.HTTP.WebSocketPath,
		statusHandler:    params.StatusHandler,
		webSocketHandler: params.WebSocketHandler,
	}
}

// RegisterRoutes sets up all the routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.HealthCheck)
	e.GET("/status", r.statusHandler.Status)
	e.GET(r.wsPath, r.webSocketHandler.Upgrade)
}
