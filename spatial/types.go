// Copyright 2026 The Prasat Authors
//
// SPDX-License-Identifier: Apache-2.0
package spatial

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
)

const earthRadiusKm = 6371.0

// ErrInvalidCoordinate reports a latitude or longitude outside the valid range.
var ErrInvalidCoordinate = errors.New("spatial: invalid coordinate")

// Coordinate represents a geographical point with latitude and longitude.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String returns a string representation of the Coordinate.
func (c Coordinate) String() string {
	return fmt.Sprintf("POINT(%f %f)", c.Lng, c.Lat)
}

// Validate checks that latitude is in [-90,90] and longitude in [-180,180].
func (c Coordinate) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude must be between -90 and 90 (got %f)", ErrInvalidCoordinate, c.Lat)
	}

	if c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("%w: longitude must be between -180 and 180 (got %f)", ErrInvalidCoordinate, c.Lng)
	}

	return nil
}

// Value implements the driver.Valuer interface for database serialization.
func (c Coordinate) Value() (driver.Value, error) {
	return c.String(), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (c *Coordinate) Scan(value interface{}) error {
	if value == nil {
		c.Lat, c.Lng = 0, 0

		return nil
	}

	switch v := value.(type) {
	case []byte:
		// The format from DuckDB is "POINT (lng lat)"
		_, err := fmt.Sscanf(string(v), "POINT (%f %f)", &c.Lng, &c.Lat)

		return err
	case map[string]interface{}:
		x, okX := v["x"].(float64)
		y, okY := v["y"].(float64)

		if !okX || !okY {
			return fmt.Errorf("spatial: invalid map for coordinate: expected 'x' and 'y' float64 fields, got %+v", v)
		}

		c.Lng = x
		c.Lat = y

		return nil
	default:
		return fmt.Errorf("spatial: unsupported type for Coordinate scan: %T", value)
	}
}

// DistanceKm calculates the great-circle distance between two coordinates in
// kilometers using the haversine formula. Identical points yield exactly 0.
func DistanceKm(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	// Rounding can push h a hair outside [0,1], which would make
	// Sqrt(1-h) produce NaN for near-antipodal points.
	if h < 0 {
		h = 0
	} else if h > 1 {
		h = 1
	}

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// DistanceKmChecked validates both coordinates before computing the distance.
func DistanceKmChecked(a, b Coordinate) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}

	if err := b.Validate(); err != nil {
		return 0, err
	}

	return DistanceKm(a, b), nil
}
