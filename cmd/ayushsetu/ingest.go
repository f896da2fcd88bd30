package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anukritich/AyushSetu/internal/config"
	"github.com/anukritich/AyushSetu/internal/database"
	"github.com/anukritich/AyushSetu/internal/domain"
	"github.com/anukritich/AyushSetu/internal/ingest"
	"github.com/anukritich/AyushSetu/internal/repository"
	"github.com/anukritich/AyushSetu/internal/schema"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func ingestFlags(folderUsage string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "folder",
			Aliases: []string{"f"},
			Usage:   folderUsage,
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "parallel file parsers (overrides INGEST_WORKERS)",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "print the run report as JSON",
		},
	}
}

func buildCommand() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Import WHO terminology JSON files into the per-system tables",
		Flags: ingestFlags("WHO terminology JSON folder (overrides WHO_TERMINOLOGIES_JSON_FOLDER)"),
		Action: func(c *cli.Context) error {
			cfg := loadConfig(c)
			return runIngest(c, cfg, schema.DefaultWHO(), cfg.WHOJSONFolder, false)
		},
	}
}

func namasteCommand() *cli.Command {
	return &cli.Command{
		Name:  "namaste",
		Usage: "Import NAMASTE code sheets (xlsx/csv) into the namaste_* tables",
		Flags: ingestFlags("NAMASTE codes folder (overrides NAMASTE_CODES_FOLDER)"),
		Action: func(c *cli.Context) error {
			cfg := loadConfig(c)
			return runIngest(c, cfg, schema.DefaultNAMASTE(), cfg.NAMASTEFolder, true)
		},
	}
}

// openTermTables 启用 DB 时写 Postgres，否则写内存（运行结束打印各表内容）
func openTermTables(cfg *config.Config, log *zap.Logger) (repository.TermTablesRepository, *sql.DB, error) {
	if !cfg.DBEnabled {
		log.Info("DB disabled, importing into memory")
		return repository.NewMemoryTermTablesRepo(), nil, nil
	}
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewPostgresTermTablesRepo(db, cfg.Database.Target()), db, nil
}

func runIngest(c *cli.Context, cfg *config.Config, reg *schema.Registry, folder string, tabular bool) error {
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	if v := c.String("folder"); v != "" {
		folder = v
	}
	workers := cfg.IngestWorkers
	if v := c.Int("workers"); v > 0 {
		workers = v
	}

	repo, db, err := openTermTables(cfg, log)
	if err != nil {
		return err
	}
	defer database.Close(db)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := ingest.New(repo, log,
		ingest.WithRegistry(reg),
		ingest.WithWorkers(workers),
		ingest.WithTabular(tabular),
	)
	report, err := p.Build(ctx, folder)
	if err != nil {
		return err
	}

	out := c.App.Writer
	if c.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printReport(out, report)
	}

	if mem, ok := repo.(*repository.MemoryTermTablesRepo); ok && !c.Bool("json") {
		if err := printTables(ctx, out, mem, p.Definitions()); err != nil {
			return err
		}
	}

	return nil
}

func printReport(w io.Writer, r *domain.RunReport) {
	fmt.Fprintf(w, "Run %s\n", r.RunID)
	fmt.Fprintf(w, "Source: %s\nTarget: %s\n", r.Folder, r.Target)
	for _, f := range r.Files {
		switch f.Outcome {
		case domain.OutcomeImported:
			fmt.Fprintf(w, "  %-40s %-10s -> %s: %d rows (%d empty, %d without key)\n",
				f.File, f.System, f.Table, f.Written, f.Empty, f.MissingPK)
		default:
			fmt.Fprintf(w, "  %-40s %s: %s\n", f.File, f.Outcome, f.Error)
		}
	}
	fmt.Fprintf(w, "Imported %d of %d files, %d rows in %s\n",
		r.Count(domain.OutcomeImported), len(r.Files), r.RowsWritten(), r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
}

func printTables(ctx context.Context, w io.Writer, repo *repository.MemoryTermTablesRepo, defs []domain.SchemaDefinition) error {
	for _, def := range defs {
		rows, err := repo.ListRows(ctx, def)
		if err != nil {
			return err
		}
		cols := def.ColumnList()
		fmt.Fprintf(w, "\n%s (%d rows)\n", def.TableName, len(rows))
		fmt.Fprintf(w, "  %s\n", strings.Join(cols, " | "))
		for _, row := range rows {
			vals := make([]string, len(cols))
			for i, col := range cols {
				if s, ok := row[col].(string); ok {
					vals[i] = s
				}
			}
			fmt.Fprintf(w, "  %s\n", strings.Join(vals, " | "))
		}
	}
	return nil
}
