package server

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
)

func (s *Server) handleSubscribe(c echo.Context) error {
	if !s.app.HasToken() {
		return c.JSON(401, map[string]string{"error": "no token"})
	}

	result, err := s.app.Subscribe(c.Request().Context())
	if err != nil {
		slog.Error("subscription request failed", "error", err)
		return c.JSON(502, map[string]string{"error": "subscription request failed"})
	}

	response := any(result.Text)
	if result.JSON != nil {
		response = result.JSON
	}
	return c.JSON(200, map[string]any{
		"status_code": result.StatusCode,
		"response":    response,
	})
}

// handleWebhook ingests event deliveries from Kick. It always
// acknowledges with 200 so the upstream never retries: a payload this
// tool cannot classify is logged for schema discovery, not rejected.
func (s *Server) handleWebhook(c echo.Context) error {
	payload := map[string]any{}
	if err := json.NewDecoder(c.Request().Body).Decode(&payload); err != nil {
		slog.Warn("failed to decode webhook body", "error", err)
	}

	s.app.HandleWebhook(c.Request().Context(), payload)

	return c.JSON(200, map[string]bool{"ok": true})
}

func (s *Server) handleOBSScenes(c echo.Context) error {
	if s.scenes == nil {
		return c.JSON(503, map[string]string{"error": "obs not configured"})
	}

	scenes, err := s.scenes.Scenes()
	if err != nil {
		slog.Error("failed to list OBS scenes", "error", err)
		return c.JSON(502, map[string]string{"error": "failed to list scenes"})
	}
	return c.JSON(200, map[string]any{"scenes": scenes})
}

func (s *Server) handleOBSSetScene(c echo.Context) error {
	if s.scenes == nil {
		return c.JSON(503, map[string]string{"error": "obs not configured"})
	}

	var body struct {
		Scene string `json:"scene"`
	}
	if err := c.Bind(&body); err != nil || strings.TrimSpace(body.Scene) == "" {
		return c.JSON(400, map[string]string{"error": "scene name required"})
	}

	if err := s.scenes.SetScene(body.Scene); err != nil {
		slog.Error("failed to switch OBS scene", "scene", body.Scene, "error", err)
		return c.JSON(502, map[string]string{"error": "failed to switch scene"})
	}
	return c.JSON(200, map[string]any{"ok": true, "scene": body.Scene})
}
