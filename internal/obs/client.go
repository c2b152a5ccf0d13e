// Package obs provides thin scene control over the obs-websocket v5
// protocol: connect, list scenes, switch scene. No retry or state
// machine; a failed call surfaces directly to the caller.
package obs

import (
	"fmt"

	"github.com/andreykaipov/goobs"
	"github.com/andreykaipov/goobs/api/requests/scenes"
)

// Scene is one OBS scene as reported by GetSceneList.
type Scene struct {
	Name    string `json:"name"`
	Current bool   `json:"current"`
}

// Client wraps a connected goobs client.
type Client struct {
	ws *goobs.Client
}

// Connect dials the OBS websocket server and authenticates.
func Connect(host string, port int, password string) (*Client, error) {
	ws, err := goobs.New(fmt.Sprintf("%s:%d", host, port), goobs.WithPassword(password))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to OBS at %s:%d: %w", host, port, err)
	}
	return &Client{ws: ws}, nil
}

// Scenes lists all scenes, flagging the current program scene.
func (c *Client) Scenes() ([]Scene, error) {
	resp, err := c.ws.Scenes.GetSceneList()
	if err != nil {
		return nil, fmt.Errorf("failed to list scenes: %w", err)
	}

	out := make([]Scene, 0, len(resp.Scenes))
	for _, s := range resp.Scenes {
		out = append(out, Scene{
			Name:    s.SceneName,
			Current: s.SceneName == resp.CurrentProgramSceneName,
		})
	}
	return out, nil
}

// SetScene switches the current program scene.
func (c *Client) SetScene(name string) error {
	_, err := c.ws.Scenes.SetCurrentProgramScene(
		scenes.NewSetCurrentProgramSceneParams().WithSceneName(name),
	)
	if err != nil {
		return fmt.Errorf("failed to switch scene to %q: %w", name, err)
	}
	return nil
}

// Close disconnects from OBS.
func (c *Client) Close() error {
	return c.ws.Disconnect()
}
