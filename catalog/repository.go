// Copyright 2026 The Prasat Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vireak/prasat/spatial"
)

// ErrNotFound is returned when a destination does not exist.
var ErrNotFound = errors.New("catalog: destination not found")

// ListFilter narrows List results.
type ListFilter struct {
	PublishedOnly bool
	WithGeodata   bool
	Category      string
	Limit         int
	Offset        int
}

// Repository handles persistence of curated destinations.
type Repository interface {
	// CreateSchema creates the destinations table
	CreateSchema() error

	// Save inserts or updates a destination
	Save(d *Destination) error

	// Get returns the destination with the given slug
	Get(slug string) (*Destination, error)

	// List returns destinations matching the filter, ordered by name
	List(f ListFilter) ([]*Destination, error)

	// BulkInsert inserts a slice of destinations in one transaction
	BulkInsert(destinations []*Destination) error

	// Count returns the total number of destinations
	Count() (int, error)

	// DuplicateScan groups destinations whose coordinates sit within
	// thresholdKm of each other; clusters of one are dropped
	DuplicateScan(thresholdKm float64) ([][]*Destination, error)

	// DB returns the underlying database connection
	DB() *sql.DB
}

type sqlRepository struct {
	db *sql.DB
}

// NewRepository creates a new destination repository.
func NewRepository(db *sql.DB) Repository {
	return &sqlRepository{db: db}
}

// DB returns the underlying database connection for advanced queries.
func (r *sqlRepository) DB() *sql.DB {
	return r.db
}

func (r *sqlRepository) CreateSchema() error {
	// DuckDB needs to load the spatial extension
	_, err := r.db.Exec(`INSTALL spatial; LOAD spatial;`)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		CREATE TABLE IF NOT EXISTS destinations (
			id VARCHAR PRIMARY KEY,
			slug VARCHAR NOT NULL UNIQUE,
			name VARCHAR NOT NULL,
			category VARCHAR,
			summary TEXT,
			source_url VARCHAR,
			point POINT_2D,
			published BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			h3_res1 UBIGINT,
			h3_res2 UBIGINT,
			h3_res3 UBIGINT,
			h3_res4 UBIGINT,
			h3_res5 UBIGINT,
			h3_res6 UBIGINT,
			h3_res7 UBIGINT,
			h3_res8 UBIGINT
		);
	`)

	return err
}

func (r *sqlRepository) Save(d *Destination) error {
	if err := d.Validate(); err != nil {
		return err
	}

	if err := d.computeH3(); err != nil {
		return err
	}

	existing, err := r.Get(d.Slug)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	d.UpdatedAt = time.Now()

	if existing != nil {
		_, err = r.db.Exec(`
			UPDATE destinations
			SET name = ?, category = ?, summary = ?, source_url = ?,
			    point = CASE WHEN ? THEN ST_Point(?, ?) ELSE NULL END,
			    published = ?, updated_at = ?,
			    h3_res1 = ?, h3_res2 = ?, h3_res3 = ?, h3_res4 = ?,
			    h3_res5 = ?, h3_res6 = ?, h3_res7 = ?, h3_res8 = ?
			WHERE slug = ?
		`, append(append([]any{
			d.Name,
			d.Category,
			d.Summary,
			d.SourceURL,
			d.Point != nil,
			pointLng(d.Point),
			pointLat(d.Point),
			d.Published,
			d.UpdatedAt,
		}, h3Args(d)...), d.Slug)...)

		return err
	}

	d.CreatedAt = d.UpdatedAt

	return r.BulkInsert([]*Destination{d})
}

func pointLng(p *spatial.Coordinate) float64 {
	if p == nil {
		return 0
	}

	return p.Lng
}

func pointLat(p *spatial.Coordinate) float64 {
	if p == nil {
		return 0
	}

	return p.Lat
}

func h3Args(d *Destination) []any {
	args := make([]any, h3Resolutions)
	for i, cell := range d.H3Cells {
		args[i] = cell
	}

	return args
}

func (r *sqlRepository) BulkInsert(destinations []*Destination) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO destinations(
			id,
			slug,
			name,
			category,
			summary,
			source_url,
			point,
			published,
			created_at,
			updated_at,
			h3_res1,
			h3_res2,
			h3_res3,
			h3_res4,
			h3_res5,
			h3_res6,
			h3_res7,
			h3_res8
		)
		VALUES (?, ?, ?, ?, ?, ?, CASE WHEN ? THEN ST_Point(?, ?) ELSE NULL END, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		if rErr := tx.Rollback(); rErr != nil {
			err = rErr
		}

		return err
	}
	defer stmt.Close()

	for _, d := range destinations {
		if err = d.computeH3(); err != nil {
			if rErr := tx.Rollback(); rErr != nil {
				err = rErr
			}

			return err
		}

		_, err := stmt.Exec(append([]any{
			d.ID,
			d.Slug,
			d.Name,
			d.Category,
			d.Summary,
			d.SourceURL,
			d.Point != nil,
			pointLng(d.Point),
			pointLat(d.Point),
			d.Published,
			d.CreatedAt,
			d.UpdatedAt,
		}, h3Args(d)...)...)
		if err != nil {
			if rErr := tx.Rollback(); rErr != nil {
				err = rErr
			}

			return err
		}
	}

	return tx.Commit()
}

var baseSelect = `
	SELECT id, slug, name, category, summary, source_url,
	       point, point IS NOT NULL AS has_point, published,
	       created_at, updated_at,
	       h3_res1, h3_res2, h3_res3, h3_res4, h3_res5, h3_res6, h3_res7, h3_res8
	FROM destinations
`

func (r *sqlRepository) scanDestination(scan func(dest ...any) error) (*Destination, error) {
	d := &Destination{}

	var point spatial.Coordinate

	var hasPoint bool

	var category, summary, sourceURL sql.NullString

	h3Cells := make([]sql.NullInt64, h3Resolutions)

	args := []any{
		&d.ID, &d.Slug, &d.Name, &category, &summary, &sourceURL,
		&point, &hasPoint, &d.Published,
		&d.CreatedAt, &d.UpdatedAt,
	}
	for i := range h3Cells {
		args = append(args, &h3Cells[i])
	}

	if err := scan(args...); err != nil {
		return nil, err
	}

	if hasPoint {
		d.Point = &point
	}

	d.Category = category.String
	d.Summary = summary.String
	d.SourceURL = sourceURL.String

	for i, cell := range h3Cells {
		if cell.Valid {
			d.H3Cells[i] = cell.Int64
		}
	}

	return d, nil
}

func (r *sqlRepository) Get(slug string) (*Destination, error) {
	row := r.db.QueryRow(baseSelect+` WHERE slug = ?`, slug)

	d, err := r.scanDestination(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return d, nil
}

func (r *sqlRepository) List(f ListFilter) ([]*Destination, error) {
	query := baseSelect + ` WHERE 1=1`

	args := []any{}

	if f.PublishedOnly {
		query += ` AND published`
	}

	if f.WithGeodata {
		query += ` AND point IS NOT NULL`
	}

	if f.Category != "" {
		query += ` AND category = ?`

		args = append(args, f.Category)
	}

	query += ` ORDER BY name`

	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`

		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var destinations []*Destination

	for rows.Next() {
		d, err := r.scanDestination(rows.Scan)
		if err != nil {
			return nil, err
		}

		destinations = append(destinations, d)
	}

	return destinations, rows.Err()
}

func (r *sqlRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM destinations",
	).Scan(&count)

	return count, err
}

// DuplicateScan walks all destinations with geodata and groups those whose
// coordinates sit within thresholdKm of any member of the group. Used by the
// admin map explorer to flag near-identical entries.
func (r *sqlRepository) DuplicateScan(thresholdKm float64) ([][]*Destination, error) {
	destinations, err := r.List(ListFilter{WithGeodata: true})
	if err != nil {
		return nil, fmt.Errorf("listing destinations: %w", err)
	}

	clusters := clusterDestinations(destinations, thresholdKm)

	result := make([][]*Destination, 0, len(clusters))

	for _, cluster := range clusters {
		if len(cluster) < 2 {
			continue
		}

		result = append(result, cluster)
	}

	return result, nil
}

// clusterDestinations groups destinations into clusters based on a distance
// threshold in kilometers.
func clusterDestinations(destinations []*Destination, thresholdKm float64) [][]*Destination {
	clusters := make([][]*Destination, 0, len(destinations))

	visited := make([]bool, len(destinations))

	for i, d1 := range destinations {
		if visited[i] {
			continue
		}

		cluster := []*Destination{d1}
		visited[i] = true

		for j, d2 := range destinations {
			if visited[j] {
				continue
			}

			// Check distance against all members of the current cluster
			for _, member := range cluster {
				if spatial.DistanceKm(*d2.Point, *member.Point) <= thresholdKm {
					cluster = append(cluster, d2)
					visited[j] = true

					break
				}
			}
		}

		clusters = append(clusters, cluster)
	}

	return clusters
}
