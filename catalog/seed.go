// Copyright 2026 The Prasat Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// SeedData represents the JSON seed file format.
type SeedData struct {
	Version      string         `json:"version"`
	LastUpdated  time.Time      `json:"last_updated"`
	Destinations []*Destination `json:"destinations"`
}

// ExportToJSON exports all destinations to a JSON file, sorted by the
// repository's default order to minimize diffs under version control.
func ExportToJSON(repo Repository, filepath string) error {
	destinations, err := repo.List(ListFilter{})
	if err != nil {
		return fmt.Errorf("listing destinations: %w", err)
	}

	seed := &SeedData{
		Version:      "1.0",
		LastUpdated:  time.Now(),
		Destinations: destinations,
	}

	data, err := json.MarshalIndent(seed, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}

	err = os.WriteFile(filepath, data, 0o600)
	if err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}

// ImportFromJSON imports destinations from a JSON file.
func ImportFromJSON(repo Repository, filepath string) (int, error) {
	data, err := os.ReadFile(filepath) // #nosec G304 - filepath is provided by admin
	if err != nil {
		return 0, fmt.Errorf("reading file: %w", err)
	}

	var seed SeedData
	if err := json.Unmarshal(data, &seed); err != nil {
		return 0, fmt.Errorf("parsing JSON: %w", err)
	}

	imported := 0

	for _, d := range seed.Destinations {
		if err := repo.Save(d); err != nil {
			return imported, fmt.Errorf("saving destination %s: %w", d.Slug, err)
		}

		imported++
	}

	return imported, nil
}

// SeedIfEmpty seeds the database from a JSON file if no destinations exist.
// It refuses to touch a store that already has rows, so local curation work
// is never clobbered by a stale seed file.
func SeedIfEmpty(repo Repository, filepath string) (bool, int, error) {
	count, err := repo.Count()
	if err != nil {
		return false, 0, fmt.Errorf("counting destinations: %w", err)
	}

	if count > 0 {
		return false, count, nil
	}

	if _, err := os.Stat(filepath); os.IsNotExist(err) {
		// No seed file exists, that's okay
		return false, 0, nil
	}

	imported, err := ImportFromJSON(repo, filepath)
	if err != nil {
		return false, 0, err
	}

	return true, imported, nil
}
