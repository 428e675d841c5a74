// Copyright 2026 The Prasat Authors
//
// SPDX-License-Identifier: Apache-2.0
package spatial

import (
	"fmt"
	"math"
)

// TravelMode selects the average speed used for travel-time estimation.
type TravelMode string

const (
	ModeDriving TravelMode = "driving"
	ModeWalking TravelMode = "walking"
	ModeFlying  TravelMode = "flying"
)

// Average speeds in km/h per travel mode.
var modeSpeeds = map[TravelMode]float64{
	ModeDriving: 60,
	ModeWalking: 5,
	ModeFlying:  800,
}

// FormatDistance renders a distance in kilometers as a short human-readable
// string: "450 m", "3.2 km", "42 km", "1.5k km".
func FormatDistance(km float64) string {
	switch {
	case km < 1:
		return fmt.Sprintf("%.0f m", km*1000)
	case km < 10:
		return fmt.Sprintf("%.1f km", km)
	case km < 1000:
		return fmt.Sprintf("%.0f km", km)
	default:
		return fmt.Sprintf("%.1fk km", km/1000)
	}
}

// EstimateTravelTime returns a rough travel duration for the given distance
// and mode, e.g. "12 min", "2h", "3h 45m", "1d 6h". An empty or unknown mode
// falls back to driving.
func EstimateTravelTime(km float64, mode TravelMode) string {
	speed, ok := modeSpeeds[mode]
	if !ok {
		speed = modeSpeeds[ModeDriving]
	}

	hours := km / speed

	if hours < 1 {
		return fmt.Sprintf("%.0f min", math.Round(hours*60))
	}

	if hours < 24 {
		h := int(hours)
		m := int(math.Round((hours - float64(h)) * 60))

		if m == 60 {
			h++
			m = 0
		}

		if m == 0 {
			return fmt.Sprintf("%dh", h)
		}

		return fmt.Sprintf("%dh %dm", h, m)
	}

	d := int(hours / 24)
	h := int(math.Round(hours - float64(d)*24))

	if h == 24 {
		d++
		h = 0
	}

	if h == 0 {
		return fmt.Sprintf("%dd", d)
	}

	return fmt.Sprintf("%dd %dh", d, h)
}
