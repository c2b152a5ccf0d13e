package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv string `env:"APP_ENV" default:"development"`
	Port   string `env:"PORT" default:"8000"`

	KickClientID         string `env:"KICK_CLIENT_ID"`
	KickClientSecret     string `env:"KICK_CLIENT_SECRET"`
	KickRedirectURI      string `env:"KICK_REDIRECT_URI" default:"http://localhost:8000/callback"`
	KickWebhookPublicURL string `env:"KICK_WEBHOOK_PUBLIC_URL"`

	DataDir       string `env:"DATA_DIR" default:"json"`
	DebugPayloads bool   `env:"DEBUG_PAYLOADS" default:"false"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	OBSHost     string `env:"OBS_HOST"`
	OBSPort     int    `env:"OBS_PORT" default:"4455"`
	OBSPassword string `env:"OBS_PASSWORD"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate reports every missing required key in a single error so the
// operator can fix the whole .env in one pass.
func validate(cfg *Config) error {
	required := []struct {
		name  string
		value string
	}{
		{"KICK_CLIENT_ID", cfg.KickClientID},
		{"KICK_CLIENT_SECRET", cfg.KickClientSecret},
		{"KICK_WEBHOOK_PUBLIC_URL", cfg.KickWebhookPublicURL},
	}

	var missing []string
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return nil
}

// WebhookURL is the public endpoint Kick delivers events to.
func (c *Config) WebhookURL() string {
	return strings.TrimRight(c.KickWebhookPublicURL, "/") + "/kick/webhook"
}

// OBSEnabled reports whether OBS scene control was configured.
func (c *Config) OBSEnabled() bool {
	return c.OBSHost != ""
}
