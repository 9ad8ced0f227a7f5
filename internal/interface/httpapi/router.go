package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// NewRouter wires the admin endpoints and the metrics handler
func NewRouter(h *AdminHandler, metricsHandler http.Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	e.GET("/health", h.Health)
	e.GET("/status", h.Status)
	e.GET("/runs", h.Runs)
	e.GET("/metrics", echo.WrapHandler(metricsHandler))

	return e
}
