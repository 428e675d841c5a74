// Copyright 2026 The Prasat Authors
// SPDX-License-Identifier: Apache-2.0

// Package catalog is the curated destination store: editorially maintained
// heritage sites with optional geodata, persisted in DuckDB.
package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/uber/h3-go/v4"
	"github.com/vireak/prasat/spatial"
)

// h3Resolutions is the number of H3 resolutions (1..8) indexed per destination.
const h3Resolutions = 8

// Destination is a curated heritage site. Point may be nil when the entity
// has no geodata yet; such destinations are excluded from distance-based
// operations.
type Destination struct {
	ID        string               `json:"id"`
	Slug      string               `json:"slug"`
	Name      string               `json:"name"`
	Category  string               `json:"category"`
	Summary   string               `json:"summary"`
	SourceURL string               `json:"source_url"`
	Point     *spatial.Coordinate  `json:"point"`
	Published bool                 `json:"published"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
	H3Cells   [h3Resolutions]int64 `json:"-"`
}

func (d *Destination) computeH3() error {
	if d.Point == nil {
		d.H3Cells = [h3Resolutions]int64{}

		return nil
	}

	latLng := h3.NewLatLng(d.Point.Lat, d.Point.Lng)

	for res := 1; res <= h3Resolutions; res++ {
		cell, err := h3.LatLngToCell(latLng, res)
		if err != nil {
			return fmt.Errorf("error converting to h3 cell at res %d: %w", res, err)
		}

		d.H3Cells[res-1] = int64(cell)
	}

	return nil
}

// validCategories contains the allowed destination categories.
var validCategories = map[string]bool{
	"temple":   true,
	"museum":   true,
	"monument": true,
	"palace":   true,
	"fort":     true,
	"park":     true,
	"church":   true,
	"site":     true,
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Validate checks that a destination has valid data before it is saved.
func (d *Destination) Validate() error {
	if d == nil {
		return errors.New("destination can't be nil")
	}

	if strings.TrimSpace(d.ID) == "" {
		return errors.New("id can't be empty")
	}

	if strings.TrimSpace(d.Name) == "" {
		return errors.New("name can't be empty")
	}

	if len(d.Name) > 200 {
		return errors.New("name too long (maximum 200 characters)")
	}

	if !slugPattern.MatchString(d.Slug) {
		return fmt.Errorf("invalid slug: %q", d.Slug)
	}

	if len(d.Slug) > 100 {
		return errors.New("slug too long (maximum 100 characters)")
	}

	if d.Category != "" && !validCategories[d.Category] {
		return fmt.Errorf("invalid category: %s", d.Category)
	}

	if len(d.Summary) > 2000 {
		return errors.New("summary too long (maximum 2000 characters)")
	}

	if d.Point != nil {
		if err := d.Point.Validate(); err != nil {
			return fmt.Errorf("invalid coordinates: %w", err)
		}
	}

	return nil
}
