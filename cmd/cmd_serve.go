// Copyright 2026 The Prasat Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/vireak/prasat/catalog"
	"github.com/vireak/prasat/places"
	"github.com/vireak/prasat/web"
)

var serveHTTPTrace bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the destinations web server (local only)",
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

		token := os.Getenv("MAPBOX_ACCESS_TOKEN")
		if token == "" {
			log.Print("MAPBOX_ACCESS_TOKEN is not set. Live place search will be unavailable.")
		}

		var searcherOpts []places.MapboxOption
		if serveHTTPTrace {
			searcherOpts = append(searcherOpts, places.WithHTTPTrace(os.Stderr))
		}

		searcher := places.NewMapboxSearcher(token, searcherOpts...)

		apiKey := os.Getenv("GOOGLE_MAPS_API_KEY")
		if apiKey == "" {
			log.Println("GOOGLE_MAPS_API_KEY is not set. Attempting to retrieve via ADC...")

			apiKey, err = places.ResolveGoogleMapsAPIKey(context.Background())
			if err != nil {
				log.Printf("Failed to retrieve API key via ADC: %v", err)
				log.Print("Geocoding suggestions will be unavailable.")
			} else {
				log.Println("✅ Successfully retrieved Google Maps API Key via ADC")
			}
		}

		server := web.NewServer(repo, searcher, places.NewGoogleMapsGeocoder(apiKey))

		return server.Run()
	},
}

func init() {
	serveCmd.Flags().BoolVar(
		&serveHTTPTrace,
		"http-trace",
		false,
		"log provider HTTP requests and responses to stderr",
	)

	rootCmd.AddCommand(serveCmd)
}
