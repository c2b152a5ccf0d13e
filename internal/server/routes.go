package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/version", s.handleVersion)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Root - point the operator at the login flow
	s.echo.GET("/", func(c echo.Context) error {
		return c.Redirect(302, "/login")
	})

	// OAuth flow
	s.echo.GET("/login", s.handleLogin)
	s.echo.GET("/callback", s.handleCallback)
	s.echo.POST("/subscribe", s.handleSubscribe)

	// Webhook delivery target (Kick posts events here)
	s.echo.POST("/kick/webhook", s.handleWebhook)

	// OBS scene control (503 when not configured)
	s.echo.GET("/obs/scenes", s.handleOBSScenes)
	s.echo.POST("/obs/scene", s.handleOBSSetScene)
}
