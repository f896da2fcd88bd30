package main

import (
	"fmt"
	"os"

	"github.com/anukritich/AyushSetu/internal/config"
	"github.com/anukritich/AyushSetu/internal/logger"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const serviceName = "ayushsetu"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  serviceName,
		Usage: "AYUSH terminology ingestion and search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error (overrides LOG_LEVEL)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "json or console (overrides LOG_FORMAT)",
			},
		},
		Commands: []*cli.Command{
			buildCommand(),
			namasteCommand(),
			searchCommand(),
			serveCommand(),
			checkCommand(),
		},
	}
}

// loadConfig reads the environment and applies global flag overrides.
func loadConfig(c *cli.Context) *config.Config {
	cfg := config.Load()
	if v := c.String("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v := c.String("log-format"); v != "" {
		cfg.Log.Format = v
	}
	return cfg
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return log, nil
}
