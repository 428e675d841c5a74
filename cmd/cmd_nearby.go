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
	"github.com/vireak/prasat/geoloc"
	"github.com/vireak/prasat/nearby"
	"github.com/vireak/prasat/places"
	"github.com/vireak/prasat/spatial"
)

var (
	nearbyLat      float64
	nearbyLng      float64
	nearbyRadiusKm float64
	nearbyLimit    int
	nearbyLive     bool
	nearbyMode     string
)

// flagSource adapts the --lat/--lng flags into a position source so the CLI
// goes through the same acquisition lifecycle as a device client.
type flagSource struct {
	point spatial.Coordinate
	set   bool
}

func (f *flagSource) Position(_ context.Context) (geoloc.Fix, error) {
	if !f.set {
		return geoloc.Fix{}, geoloc.NewPositionUnavailable(nil)
	}

	return geoloc.Fix{Point: f.point}, nil
}

func (f *flagSource) Permission(_ context.Context) geoloc.Permission {
	if !f.set {
		return geoloc.PermissionPrompt
	}

	return geoloc.PermissionGranted
}

var nearbyCmd = &cobra.Command{
	Use:   "nearby",
	Short: "Dev tool: print destinations near a coordinate",
	Long: `Ranks catalog destinations (and, with --live, provider places) by distance
from the given position.

$ prasat nearby --lat 13.4125 --lng 103.8670 --radius 25
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		source := &flagSource{
			point: spatial.Coordinate{Lat: nearbyLat, Lng: nearbyLng},
			set:   cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng"),
		}

		session := geoloc.NewSession(source)

		ref, err := session.Request(context.Background())
		if err != nil {
			return fmt.Errorf("acquiring position: %w", err)
		}

		if err := ref.Point.Validate(); err != nil {
			return err
		}

		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		repo := catalog.NewRepository(db)
		if err := repo.CreateSchema(); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}

		curated, err := repo.List(catalog.ListFilter{PublishedOnly: true, WithGeodata: true})
		if err != nil {
			return err
		}

		var provider []places.Place

		if nearbyLive {
			searcher := places.NewMapboxSearcher(os.Getenv("MAPBOX_ACCESS_TOKEN"))

			provider, err = searcher.SearchNearby(context.Background(), ref.Point, nearbyRadiusKm, nearbyLimit)
			if err != nil {
				log.Printf("live place search failed: %v", err)
			}
		}

		ranked := nearby.Rank(&ref.Point, curated, provider, nearby.Options{
			MaxDistanceKm: nearbyRadiusKm,
			Limit:         nearbyLimit,
		})

		for _, rp := range ranked {
			fmt.Printf("%s\t%s\t%s\t%s\t%s\n",
				spatial.FormatDistance(rp.DistanceKm),
				spatial.EstimateTravelTime(rp.DistanceKm, spatial.TravelMode(nearbyMode)),
				rp.Source,
				rp.Name,
				rp.Category,
			)
		}

		if len(ranked) == 0 {
			fmt.Fprintln(os.Stderr, "No destinations found in range.")
		}

		return nil
	},
}

func init() {
	nearbyCmd.Flags().Float64Var(&nearbyLat, "lat", 0, "reference latitude")
	nearbyCmd.Flags().Float64Var(&nearbyLng, "lng", 0, "reference longitude")
	nearbyCmd.Flags().Float64Var(&nearbyRadiusKm, "radius", 100, "maximum distance in km")
	nearbyCmd.Flags().IntVar(&nearbyLimit, "limit", 20, "maximum results")
	nearbyCmd.Flags().BoolVar(&nearbyLive, "live", false, "include live provider places")
	nearbyCmd.Flags().StringVar(&nearbyMode, "mode", "driving", "travel mode: driving, walking or flying")

	rootCmd.AddCommand(nearbyCmd)
}
