package handler

import (
	"context"
	"log/slog"
	"net/http"

	deliverycontext "chat/internal/delivery/context"
	"chat/internal/delivery/supervisor"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// WebSocketHandlerParams defines the required parameters
type WebSocketHandlerParams struct {
	fx.In

	Logger     *slog.Logger
	Supervisor *supervisor.Supervisor
}

// WebSocketHandler upgrades requests and runs them as chat connections.
type WebSocketHandler struct {
	logger     *slog.Logger
	supervisor *supervisor.Supervisor
	upgrader   websocket.Upgrader
}

func NewWebSocketHandler(params WebSocketHandlerParams) *WebSocketHandler {
	return &WebSocketHandler{
		logger:     params.Logger,
		supervisor: params.Supervisor,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients are served from other origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Upgrade blocks for the lifetime of the websocket connection.
func (h *WebSocketHandler) Upgrade(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		deliverycontext.GetLoggerOrDefault(c.Request().Context(), h.logger).
			Info("WebSocket upgrade failed", slog.String("error", err.Error()))

		return nil
	}

	h.supervisor.Serve(context.WithoutCancel(c.Request().Context()), newWSConn(conn), "websocket")

	return nil
}
