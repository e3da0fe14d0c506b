package handler

import (
	"net/http"

	"chat/config"
	"chat/internal/delivery/http/response"
	"chat/internal/delivery/supervisor"
	"chat/internal/util"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// StatusHandlerParams defines the required parameters
type StatusHandlerParams struct {
	fx.In

	Config     *config.Config
	Supervisor *supervisor.Supervisor
}

// StatusHandler reports liveness and connection counts.
type StatusHandler struct {
	service    string
	supervisor *supervisor.Supervisor
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Service     string `json:"service"`
	Online      int    `json:"online"`
	Sessions    int    `json:"sessions"`
	Connections int    `json:"connections"`
	Uptime      string `json:"uptime"`
}

func NewStatusHandler(params StatusHandlerParams) *StatusHandler {
	return &StatusHandler{
		service:    params.Config.Env.ServiceName,
		supervisor: params.Supervisor,
	}
}

// HealthCheck is a simple handler to check if the service is up.
func HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Status returns the current connection counts.
func (h *StatusHandler) Status(c echo.Context) error {
	stats := h.supervisor.Stats()

	return response.Success(c, http.StatusOK, StatusResponse{
		Service:     h.service,
		Online:      stats.Online,
		Sessions:    stats.Sessions,
		Connections: stats.Connections,
		Uptime:      util.FormatDuration(stats.Uptime),
	})
}
