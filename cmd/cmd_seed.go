// Copyright 2026 The Prasat Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/vireak/prasat/catalog"
	"github.com/vireak/prasat/utils"
)

var (
	seedFile   string
	seedEnrich bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with destinations from a JSON file",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		repo := catalog.NewRepository(db)
		if err := repo.CreateSchema(); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}

		seeded, n, err := catalog.SeedIfEmpty(repo, seedFile)
		if err != nil {
			return err
		}

		if seeded {
			fmt.Printf("Seeded %s destinations from %s\n", utils.FormatInt(int64(n)), seedFile)
		} else {
			fmt.Printf("Database already has %s destinations, nothing seeded\n", utils.FormatInt(int64(n)))
		}

		if seedEnrich {
			return enrichDestinations(repo)
		}

		return nil
	},
}

// enrichDestinations backfills missing summaries from each destination's
// source page.
func enrichDestinations(repo catalog.Repository) error {
	destinations, err := repo.List(catalog.ListFilter{})
	if err != nil {
		return err
	}

	var pending []*catalog.Destination

	for _, d := range destinations {
		if d.SourceURL != "" && d.Summary == "" {
			pending = append(pending, d)
		}
	}

	if len(pending) == 0 {
		fmt.Println("Nothing to enrich.")

		return nil
	}

	var bar *progressbar.ProgressBar
	if isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(len(pending),
			progressbar.OptionSetDescription("Enriching destinations"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	client := &http.Client{Timeout: 15 * time.Second}
	enriched := 0

	for _, d := range pending {
		meta, err := catalog.FetchPageMetadata(context.Background(), client, d.SourceURL)
		if err != nil {
			log.Printf("enriching %s: %v", d.Slug, err)
		} else {
			d.Summary = meta.Description
			if d.Summary == "" {
				d.Summary = meta.Title
			}

			if err := repo.Save(d); err != nil {
				return fmt.Errorf("saving %s: %w", d.Slug, err)
			}

			enriched++
		}

		if bar != nil {
			_ = bar.Add(1)
		}
	}

	fmt.Printf("Enriched %s of %s destinations\n",
		utils.FormatInt(int64(enriched)), utils.FormatInt(int64(len(pending))))

	return nil
}

func init() {
	seedCmd.Flags().StringVar(
		&seedFile,
		"file",
		"db/seed.json",
		"seed file with destinations",
	)
	seedCmd.Flags().BoolVar(
		&seedEnrich,
		"enrich",
		false,
		"backfill missing summaries from source pages",
	)

	rootCmd.AddCommand(seedCmd)
}
