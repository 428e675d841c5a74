// Copyright 2026 The Prasat Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"context"
	"fmt"

	"github.com/vireak/prasat/spatial"
	"github.com/vireak/prasat/utils"
)

// Place is a normalized result from the external place-search provider. Raw
// provider JSON never leaks past the adapter; every consumer sees this shape.
type Place struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Point    spatial.Coordinate `json:"point"`
	Category string             `json:"category"`
	Address  string             `json:"address"`
}

// Searcher is the provider-facing contract for place discovery.
type Searcher interface {
	// SearchByText runs a free-text search, biased towards near when set.
	// Results keep the provider's relevance order.
	SearchByText(ctx context.Context, query string, near *spatial.Coordinate, limit int) ([]Place, error)

	// SearchNearby finds tourism points of interest around center, at most
	// radiusKm away, sorted ascending by distance.
	SearchNearby(ctx context.Context, center spatial.Coordinate, radiusKm float64, limit int) ([]Place, error)
}

// nearbyTerms is the fixed list of tourism category terms used for the
// nearby fan-out. The provider has free-text search but no category-nearby
// endpoint, so each term becomes one proximity-biased query.
var nearbyTerms = []string{
	"museum",
	"temple",
	"monument",
	"palace",
	"fort",
	"park",
	"church",
	"historical",
	"heritage",
}

// categoryLabels maps provider place-type codes to the closed label set
// shown to users. Unknown codes fall back to "Attraction".
var categoryLabels = map[string]string{
	"poi":          "Point of Interest",
	"place":        "Place",
	"locality":     "Town",
	"neighborhood": "Neighborhood",
	"address":      "Address",
	"region":       "Region",
	"country":      "Country",
	"district":     "District",
}

// CategoryLabel translates a provider place-type code into a human label.
func CategoryLabel(placeType string) string {
	if label, ok := categoryLabels[placeType]; ok {
		return label
	}

	return "Attraction"
}

// dedupKey identifies a place across overlapping queries: the provider id
// when present, otherwise folded name plus coordinate rounded to ~11 m.
func dedupKey(p Place) string {
	if p.ID != "" {
		return p.ID
	}

	return fmt.Sprintf("%s|%.4f,%.4f", utils.LowerASCIIFolding(p.Name), p.Point.Lat, p.Point.Lng)
}
