package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v2"

	httpapi "github.com/i474232898/crop-recommendation/internal/api/http"
	"github.com/i474232898/crop-recommendation/internal/config"
	"github.com/i474232898/crop-recommendation/internal/logging"
	"github.com/i474232898/crop-recommendation/internal/scheduler"
)

const appName = "crop-advisor"

var version = "dev"

func main() {
	app := &cli.App{
		Name:    appName,
		Usage:   "Location-aware crop recommendations from weather, soil and market data",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
				EnvVars: []string{config.PathEnvVar},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override the configured log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			recommendCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration and installs the logger.
func setup(c *cli.Context) (*config.AppConfig, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Color)
	return cfg, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "port",
				Usage: "Override the configured listen port",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := setup(c)
			if err != nil {
				return err
			}
			if p := c.Int("port"); p > 0 {
				cfg.Server.Port = p
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.AppConfig) error {
	comps := build(cfg)

	// Background cache reaper and optional warm-up.
	sched := scheduler.New(cfg.SchedulerConfig(), comps.cache, comps.service)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	app := httpapi.NewApp(httpapi.ServerConfig{
		AppName:      appName,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		AccessLog:    cfg.Server.AccessLog,
	})
	httpapi.RegisterOps(app, appName, version)
	httpapi.RegisterRoutes(app, comps.service, comps.resilience)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		slog.Info("http server listening", "addr", addr)
		if err := app.Listen(addr); err != nil {
			slog.Error("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("error during shutdown: %w", err)
	}
	return nil
}

func recommendCommand() *cli.Command {
	return &cli.Command{
		Name:  "recommend",
		Usage: "Print a recommendation for one coordinate as JSON",
		Flags: []cli.Flag{
			&cli.Float64Flag{
				Name:     "lat",
				Usage:    "Latitude in degrees",
				Required: true,
			},
			&cli.Float64Flag{
				Name:     "lon",
				Usage:    "Longitude in degrees",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Indent the JSON output",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := setup(c)
			if err != nil {
				return err
			}
			comps := build(cfg)

			ctx, cancel := context.WithTimeout(c.Context, cfg.Server.RequestTimeout+5*time.Second)
			defer cancel()

			resp, err := comps.service.Predict(ctx, c.Float64("lat"), c.Float64("lon"))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			if c.Bool("pretty") {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(resp)
		},
	}
}
