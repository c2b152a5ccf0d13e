package server

import (
	"bytes"
	"errors"
	"html/template"
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/AnthonyMosley/OpenStreamKit/internal/app"
	"github.com/AnthonyMosley/OpenStreamKit/internal/kick"
)

func (s *Server) handleLogin(c echo.Context) error {
	authURL, err := s.app.StartLogin()
	if err != nil {
		slog.Error("failed to start login", "error", err)
		return c.String(500, "Internal error")
	}

	if wantsJSON(c) {
		return c.JSON(200, map[string]string{"authorization_url": authURL})
	}

	return renderTemplate(c, 200, s.loginTemplate, map[string]any{
		"AuthURL": authURL,
	})
}

func (s *Server) handleCallback(c echo.Context) error {
	code := c.QueryParam("code")
	state := c.QueryParam("state")
	if code == "" || state == "" {
		return s.renderResult(c, 400, "Missing code or state parameter.", false)
	}

	outcome, err := s.app.CompleteLogin(c.Request().Context(), code, state)
	if err != nil {
		return s.renderLoginFailure(c, err)
	}

	// Full diagnostic detail stays server-side; the browser gets a
	// short summary.
	if outcome.SubscriptionOK() {
		return s.renderResult(c, 200, "Logged in and subscribed to events.", true)
	}
	return s.renderResult(c, 200, "Logged in, but event subscription failed. Retry with POST /subscribe.", true)
}

func (s *Server) renderLoginFailure(c echo.Context, err error) error {
	if errors.Is(err, app.ErrUnknownState) {
		return s.renderResult(c, 400, "Unknown or expired login state. Restart login at /login.", false)
	}

	var exchangeErr *kick.TokenExchangeError
	if errors.As(err, &exchangeErr) {
		slog.Error("token exchange failed", "status", exchangeErr.StatusCode, "body", exchangeErr.Body, "error", err)
		return s.renderResult(c, 502, "Failed to authenticate with Kick. Please try again.", false)
	}

	slog.Error("login callback failed", "error", err)
	return s.renderResult(c, 502, "Login failed. Please try again.", false)
}

// renderResult renders the result page, or a JSON equivalent for
// non-browser clients.
func (s *Server) renderResult(c echo.Context, status int, message string, ok bool) error {
	if wantsJSON(c) {
		if ok {
			return c.JSON(status, map[string]any{"ok": true, "message": message, "webhook_url": s.config.WebhookURL()})
		}
		return c.JSON(status, map[string]any{"error": message})
	}

	return renderTemplate(c, status, s.resultTemplate, map[string]any{
		"Message":    message,
		"Success":    ok,
		"WebhookURL": s.config.WebhookURL(),
	})
}

func renderTemplate(c echo.Context, status int, tmpl *template.Template, data any) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		slog.Error("template execution failed", "path", c.Request().URL.Path, "error", err)
		return c.String(500, "Failed to render page")
	}
	return c.HTMLBlob(status, buf.Bytes())
}

func wantsJSON(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get("Accept"), "application/json")
}
