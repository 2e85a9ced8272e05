// Package http provides the HTTP server implementation for the discussion engine.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/xiaot623/roundtable/internal/logging"
	"github.com/xiaot623/roundtable/internal/metrics"
	"github.com/xiaot623/roundtable/internal/service"
	v1 "github.com/xiaot623/roundtable/internal/transport/http/v1"
	"github.com/xiaot623/roundtable/internal/transport/ws"
)

// NewServer creates and configures the HTTP server.
// It serves the REST API, the discussion WebSocket and Prometheus metrics.
func NewServer(svc *service.Service, wsServer *ws.Server, m *metrics.Metrics, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(logging.RequestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(svc)

	// Register Routes
	v1Handler.RegisterRoutes(e)
	e.GET("/v1/discussions/:discussion_id/ws", wsServer.HandleWebSocket)
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}

	return e
}
