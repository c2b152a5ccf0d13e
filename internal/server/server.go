// Package server exposes the HTTP surface: the OAuth login flow for
// the operator's browser, the webhook endpoint for Kick, and optional
// OBS scene control.
package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/AnthonyMosley/OpenStreamKit/internal/app"
	"github.com/AnthonyMosley/OpenStreamKit/internal/config"
	"github.com/AnthonyMosley/OpenStreamKit/internal/correlation"
	"github.com/AnthonyMosley/OpenStreamKit/internal/kick"
	"github.com/AnthonyMosley/OpenStreamKit/internal/obs"
)

// appService is the subset of app.Service the HTTP layer uses.
type appService interface {
	StartLogin() (string, error)
	CompleteLogin(ctx context.Context, code, state string) (*app.LoginOutcome, error)
	Subscribe(ctx context.Context) (*kick.SubscriptionResult, error)
	HandleWebhook(ctx context.Context, payload map[string]any) kick.EventKind
	HasToken() bool
}

// SceneController is the subset of obs.Client the HTTP layer uses.
// Nil when OBS is not configured.
type SceneController interface {
	Scenes() ([]obs.Scene, error)
	SetScene(name string) error
}

type Server struct {
	echo           *echo.Echo
	config         *config.Config
	app            appService
	scenes         SceneController
	loginTemplate  *template.Template
	resultTemplate *template.Template
	startTime      time.Time
}

func New(cfg *config.Config, svc appService, scenes SceneController) (*Server, error) {
	loginTmpl, err := template.ParseFiles("web/templates/login.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse login template: %w", err)
	}
	resultTmpl, err := template.ParseFiles("web/templates/result.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse result template: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(correlationMiddleware)
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	srv := &Server{
		echo:           e,
		config:         cfg,
		app:            svc,
		scenes:         scenes,
		loginTemplate:  loginTmpl,
		resultTemplate: resultTmpl,
		startTime:      time.Now(),
	}

	srv.registerRoutes()

	return srv, nil
}

// correlationMiddleware copies the request ID into the request context
// so slog lines emitted anywhere below carry it.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Response().Header().Get(echo.HeaderXRequestID)
		if id == "" {
			id = correlation.NewID()
		}
		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP makes the server usable as a plain http.Handler in tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
