// Copyright 2026 The Prasat Authors
// SPDX-License-Identifier: Apache-2.0

package places

// GeocodingResult represents a geocoding result from any provider.
type GeocodingResult struct {
	Latitude    float64
	Longitude   float64
	Confidence  string // high, medium, low
	Provider    string
	DisplayName string
}

// Geocoder interface for different geocoding providers. Used by the admin
// workflow to suggest a coordinate for a destination address.
type Geocoder interface {
	Geocode(address string, region string) (*GeocodingResult, error)
}
