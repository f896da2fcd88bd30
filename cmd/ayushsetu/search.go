package main

import (
	"fmt"
	"strings"

	"github.com/anukritich/AyushSetu/internal/mapper"
	"github.com/urfave/cli/v2"
)

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search a WHO terminology catalog",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "system",
				Aliases: []string{"s"},
				Usage:   "terminology system (ayurveda, siddha, unani)",
				Value:   "ayurveda",
			},
			&cli.StringFlag{
				Name:  "file",
				Usage: "catalog JSON file (overrides WHO_<SYSTEM>_JSON)",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Value:   mapper.DefaultLimit,
			},
			&cli.IntFlag{
				Name:  "threshold",
				Usage: "minimum fuzzy score",
				Value: mapper.DefaultThreshold,
			},
		},
		Action: func(c *cli.Context) error {
			query := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(query) == "" {
				return cli.Exit("search: query is required", 2)
			}
			cfg := loadConfig(c)
			system := strings.ToLower(c.String("system"))
			path := c.String("file")
			if path == "" {
				path = cfg.WHOCatalogs[system]
			}
			if path == "" {
				return cli.Exit(fmt.Sprintf("search: no catalog configured for %q", system), 2)
			}

			m, err := mapper.NewFromJSON(path, mapper.WithThreshold(c.Int("threshold")))
			if err != nil {
				return err
			}
			results := m.Search(query, c.Int("limit"))
			out := c.App.Writer
			if len(results) == 0 {
				fmt.Fprintln(out, "No matches found.")
				return nil
			}
			for i, r := range results {
				fmt.Fprintf(out, "%2d. [%3d] %-12s %s\n", i+1, r.Score, r.Term.ID, r.Term.EnglishTerm)
			}
			return nil
		},
	}
}
