package main

import (
	"context"
	"fmt"
	"time"

	"github.com/anukritich/AyushSetu/internal/database"
	"github.com/anukritich/AyushSetu/internal/store"
	"github.com/urfave/cli/v2"
)

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Verify that configured folders, catalogs and backing services are reachable",
		Action: func(c *cli.Context) error {
			cfg := loadConfig(c)
			out := c.App.Writer
			failed := 0

			for _, p := range cfg.MissingPaths() {
				fmt.Fprintf(out, "missing: %s\n", p)
				failed++
			}

			if cfg.DBEnabled {
				db, err := database.NewPostgresDB(&cfg.Database)
				if err != nil {
					fmt.Fprintf(out, "database %s: %v\n", cfg.Database.Target(), err)
					failed++
				} else {
					fmt.Fprintf(out, "database %s: ok\n", cfg.Database.Target())
					_ = database.Close(db)
				}
			}

			if cfg.Redis.Enabled {
				client := store.NewRedisClient(cfg)
				ctx, cancel := context.WithTimeout(c.Context, 2*time.Second)
				err := store.NewRedisKV(client).Ping(ctx)
				cancel()
				_ = client.Close()
				if err != nil {
					fmt.Fprintf(out, "redis %s: %v\n", cfg.Redis.Addr, err)
					failed++
				} else {
					fmt.Fprintf(out, "redis %s: ok\n", cfg.Redis.Addr)
				}
			}

			if failed > 0 {
				return cli.Exit(fmt.Sprintf("check: %d problem(s) found", failed), 1)
			}
			fmt.Fprintln(out, "all checks passed")
			return nil
		},
	}
}
