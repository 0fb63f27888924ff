package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ossira/launchkit/interfaces"
	"github.com/ossira/launchkit/models"
	"github.com/ossira/launchkit/services/docker"
	"github.com/ossira/launchkit/services/supervisor"
	"github.com/ossira/launchkit/services/translate"
)

const defaultConfigPath = "/run/config.json"

func loadConfiguration(path string) (models.Configuration, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return models.Configuration{}, fmt.Errorf("read config file %q: %w", path, err)
	}

	var cfg models.Configuration
	if err := json.Unmarshal(b, &cfg); err != nil {
		return models.Configuration{}, fmt.Errorf("parse config json %q: %w", path, err)
	}

	return cfg, nil
}

func selectPlatform(platform string) (interfaces.Platform, error) {
	switch platform {
	case "", "docker":
		return docker.NewDockerPlatform()
	// case "k8s":
	//     return k8s.New(...), nil
	default:
		return nil, fmt.Errorf("%q is not a valid platform", platform)
	}
}

// appHandler builds the statically bound application entry point the workers
// serve. The service config lives next to the binary, like the original
// deployment layout.
func appHandler(logger *slog.Logger) (http.Handler, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}

	cfg, err := translate.LoadAppConfig(filepath.Join(filepath.Dir(exe), "config.json"))
	if err != nil {
		return nil, err
	}

	return translate.NewService(cfg, logger).Handler(), nil
}

func serve(ctx context.Context, spec *models.LaunchSpec, logger *slog.Logger) error {
	if spec == nil {
		def := models.DefaultLaunchSpec()
		spec = &def
	}
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("invalid launch spec: %w", err)
	}

	cfg := supervisor.FromLaunchCommand(spec.Command)
	cfg.Logger = logger

	sup, err := supervisor.New(cfg)
	if err != nil {
		return err
	}
	return sup.Run(ctx)
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Worker mode: spawned by the supervisor with an inherited socket.
	if supervisor.IsWorker() {
		handler, err := appHandler(logger)
		if err != nil {
			log.Fatal(err)
		}
		if err := supervisor.RunWorker(ctx, handler, supervisor.WorkerOptions{Logger: logger}); err != nil {
			log.Fatal(err)
		}
		return
	}

	configPath := defaultConfigPath
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := loadConfiguration(configPath)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.Action == "serve" {
		if err := serve(ctx, cfg.Spec, logger); err != nil {
			log.Fatal(err)
		}
		return
	}

	p, err := selectPlatform(cfg.Platform)
	if err != nil {
		log.Fatal(err)
	}

	if err := p.Run(ctx, cfg); err != nil {
		log.Fatal(err)
	}
}
