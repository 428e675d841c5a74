// Copyright 2026 The Prasat Authors
// SPDX-License-Identifier: Apache-2.0

// Package nearby ranks curated destinations and provider places by distance
// from a reference coordinate.
package nearby

import (
	"sort"

	"github.com/vireak/prasat/catalog"
	"github.com/vireak/prasat/places"
	"github.com/vireak/prasat/spatial"
	"github.com/vireak/prasat/utils"
)

// Source identifies where a ranked place came from.
type Source string

const (
	SourceCurated  Source = "curated"
	SourceProvider Source = "provider"
)

// DefaultCuratedCutoffKm bounds curated results when the caller gives no
// explicit maximum. Provider results arrive pre-filtered by radius, curated
// rows cover the whole catalog and need a cutoff of their own.
const DefaultCuratedCutoffKm = 500

// RankedPlace is a curated destination or provider place together with its
// distance from the reference coordinate.
type RankedPlace struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Category   string             `json:"category,omitempty"`
	Slug       string             `json:"slug,omitempty"`
	Point      spatial.Coordinate `json:"point"`
	DistanceKm float64            `json:"distance_km"`
	Source     Source             `json:"source"`
}

// Options adjusts how Rank filters and truncates its results.
type Options struct {
	// ExcludeID drops the curated destination with this ID, used so a
	// destination page does not list itself among its neighbors.
	ExcludeID string

	// MaxDistanceKm caps the distance of curated results. Zero means
	// DefaultCuratedCutoffKm.
	MaxDistanceKm float64

	// Limit truncates the ranked list. Zero means no limit.
	Limit int
}

// Rank merges curated destinations and provider places, computes the distance
// of each from ref and returns them ordered nearest first. Ties are broken by
// folded name so the ordering is stable across runs. A nil reference yields an
// empty list. Curated destinations without coordinates are skipped.
func Rank(ref *spatial.Coordinate, curated []*catalog.Destination, provider []places.Place, opts Options) []RankedPlace {
	if ref == nil {
		return []RankedPlace{}
	}

	cutoff := opts.MaxDistanceKm
	if cutoff <= 0 {
		cutoff = DefaultCuratedCutoffKm
	}

	ranked := make([]RankedPlace, 0, len(curated)+len(provider))

	for _, d := range curated {
		if d == nil || d.Point == nil {
			continue
		}

		if opts.ExcludeID != "" && d.ID == opts.ExcludeID {
			continue
		}

		dist := spatial.DistanceKm(*ref, *d.Point)
		if dist > cutoff {
			continue
		}

		ranked = append(ranked, RankedPlace{
			ID:         d.ID,
			Name:       d.Name,
			Category:   d.Category,
			Slug:       d.Slug,
			Point:      *d.Point,
			DistanceKm: dist,
			Source:     SourceCurated,
		})
	}

	for _, p := range provider {
		ranked = append(ranked, RankedPlace{
			ID:         p.ID,
			Name:       p.Name,
			Category:   p.Category,
			Point:      p.Point,
			DistanceKm: spatial.DistanceKm(*ref, p.Point),
			Source:     SourceProvider,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].DistanceKm != ranked[j].DistanceKm {
			return ranked[i].DistanceKm < ranked[j].DistanceKm
		}

		return utils.LowerASCIIFolding(ranked[i].Name) < utils.LowerASCIIFolding(ranked[j].Name)
	})

	if opts.Limit > 0 && len(ranked) > opts.Limit {
		ranked = ranked[:opts.Limit]
	}

	return ranked
}
