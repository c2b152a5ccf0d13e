package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/AnthonyMosley/OpenStreamKit/internal/app"
	"github.com/AnthonyMosley/OpenStreamKit/internal/config"
	"github.com/AnthonyMosley/OpenStreamKit/internal/kick"
	"github.com/AnthonyMosley/OpenStreamKit/internal/logging"
	"github.com/AnthonyMosley/OpenStreamKit/internal/obs"
	"github.com/AnthonyMosley/OpenStreamKit/internal/server"
	"github.com/AnthonyMosley/OpenStreamKit/internal/store"
	"github.com/AnthonyMosley/OpenStreamKit/internal/version"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupService(cfg *config.Config) *app.Service {
	fileStore, err := store.New(cfg.DataDir)
	if err != nil {
		slog.Error("Failed to create data directory", "error", err)
		os.Exit(1)
	}

	var dumper kick.PayloadDumper
	if cfg.DebugPayloads {
		dumper = fileStore
	}
	events := kick.NewEventHandler(logging.WithComponent("events"), dumper)

	logins := kick.NewLoginStateStore(clockwork.NewRealClock())
	oauthClient := kick.NewOAuthClient(cfg.KickClientID, cfg.KickClientSecret, cfg.KickRedirectURI)
	subsClient := kick.NewSubscriptionClient()

	svc, err := app.NewService(logins, oauthClient, subsClient, fileStore, events, logging.WithComponent("app"))
	if err != nil {
		// A corrupt token file must fail loudly, not start as if
		// no token existed.
		slog.Error("Failed to initialize application state", "error", err)
		os.Exit(1)
	}
	return svc
}

func setupOBS(cfg *config.Config) *obs.Client {
	if !cfg.OBSEnabled() {
		return nil
	}

	client, err := obs.Connect(cfg.OBSHost, cfg.OBSPort, cfg.OBSPassword)
	if err != nil {
		slog.Error("Failed to connect to OBS", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to OBS", "host", cfg.OBSHost, "port", cfg.OBSPort)
	return client
}

func runGracefulShutdown(srv *server.Server, obsClient *obs.Client) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		if obsClient != nil {
			if err := obsClient.Close(); err != nil {
				slog.Error("Failed to disconnect from OBS", "error", err)
			}
		}

		close(done)
	}()

	return done
}

func main() {
	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	info := version.Get()
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", info.Version, "commit", info.Commit)

	svc := setupService(cfg)
	obsClient := setupOBS(cfg)

	var scenes server.SceneController
	if obsClient != nil {
		scenes = obsClient
	}
	srv, err := server.New(cfg, svc, scenes)
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	done := runGracefulShutdown(srv, obsClient)

	slog.Info("Server starting", "port", cfg.Port, "webhook_url", cfg.WebhookURL())
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
