// Copyright 2026 The Prasat Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/vireak/prasat/spatial"
	"github.com/vireak/prasat/utils"
	"github.com/vireak/prasat/utils/httputils"
)

const defaultMapboxBaseURL = "https://api.mapbox.com"

// MapboxSearcher implements Searcher on top of the Mapbox forward-geocoding
// API. It does not retry: geocoding calls are rate and cost sensitive, so
// retry policy belongs to the caller.
type MapboxSearcher struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// MapboxOption configures a MapboxSearcher.
type MapboxOption func(*MapboxSearcher)

// WithHTTPTrace dumps provider requests and responses to w.
func WithHTTPTrace(w io.Writer) MapboxOption {
	return func(m *MapboxSearcher) {
		m.httpClient.Transport = &httputils.LoggingRoundTripper{
			Transport: http.DefaultTransport,
			Writer:    w,
			DumpBody:  true,
		}
	}
}

// withBaseURL points the searcher at a different endpoint; used in tests.
func withBaseURL(base string) MapboxOption {
	return func(m *MapboxSearcher) {
		m.baseURL = base
	}
}

// NewMapboxSearcher creates a searcher using the given access token.
func NewMapboxSearcher(token string, opts ...MapboxOption) *MapboxSearcher {
	m := &MapboxSearcher{
		token:   token,
		baseURL: defaultMapboxBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	for _, o := range opts {
		o(m)
	}

	return m
}

type mapboxResponse struct {
	Features []struct {
		ID         string    `json:"id"`
		PlaceType  []string  `json:"place_type"`
		Text       string    `json:"text"`
		PlaceName  string    `json:"place_name"`
		Center     []float64 `json:"center"` // lng, lat
		Properties struct {
			Category string `json:"category"`
		} `json:"properties"`
	} `json:"features"`
	Message string `json:"message"`
}

func (m *MapboxSearcher) search(ctx context.Context, query string, params url.Values) ([]Place, error) {
	if m.token == "" {
		return nil, &ProviderError{
			Type:    ErrorTypeUnauthorized,
			Message: "mapbox access token is not configured",
		}
	}

	params.Set("access_token", m.token)
	params.Set("language", "en")

	reqURL := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json?%s",
		m.baseURL, url.PathEscape(query), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{
			Type:    ErrorTypeUnavailable,
			Message: "place search request failed",
			Err:     err,
		}
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ClassifyHTTPError(resp.StatusCode, "")
	}

	var mbResp mapboxResponse
	if err := json.NewDecoder(resp.Body).Decode(&mbResp); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	places := make([]Place, 0, len(mbResp.Features))

	for _, f := range mbResp.Features {
		// The provider contract guarantees a coordinate; drop anything
		// malformed at the normalization boundary.
		if len(f.Center) < 2 {
			continue
		}

		point := spatial.Coordinate{Lat: f.Center[1], Lng: f.Center[0]}
		if err := point.Validate(); err != nil {
			continue
		}

		placeType := ""
		if len(f.PlaceType) > 0 {
			placeType = f.PlaceType[0]
		}

		places = append(places, Place{
			ID:       f.ID,
			Name:     f.Text,
			Point:    point,
			Category: CategoryLabel(placeType),
			Address:  f.PlaceName,
		})
	}

	return places, nil
}

// SearchByText implements Searcher. Results keep the provider's relevance
// order; no re-sorting happens at this layer.
func (m *MapboxSearcher) SearchByText(ctx context.Context, query string, near *spatial.Coordinate, limit int) ([]Place, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	if near != nil {
		if err := near.Validate(); err != nil {
			return nil, err
		}

		params.Set("proximity", fmt.Sprintf("%f,%f", near.Lng, near.Lat))
	}

	places, err := m.search(ctx, query, params)
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(places) > limit {
		places = places[:limit]
	}

	return places, nil
}

// SearchNearby implements Searcher. The provider has no category-nearby
// endpoint, so one proximity-biased query is issued per tourism term and the
// results are merged, deduplicated by provider id, cut at radiusKm, and
// sorted ascending by distance from center.
func (m *MapboxSearcher) SearchNearby(ctx context.Context, center spatial.Coordinate, radiusKm float64, limit int) ([]Place, error) {
	if err := center.Validate(); err != nil {
		return nil, err
	}

	type ranked struct {
		place      Place
		distanceKm float64
	}

	seen := make(map[string]bool)

	var merged []ranked

	failures := 0

	var lastErr error

	for _, term := range nearbyTerms {
		params := url.Values{}
		params.Set("proximity", fmt.Sprintf("%f,%f", center.Lng, center.Lat))
		params.Set("types", "poi")
		params.Set("limit", "10")

		results, err := m.search(ctx, term, params)
		if err != nil {
			// One failed term must not abort the whole fan-out.
			log.Printf("nearby search term %q failed: %v", term, err)

			failures++
			lastErr = err

			continue
		}

		for _, p := range results {
			key := dedupKey(p)
			if seen[key] {
				continue
			}

			seen[key] = true

			d := spatial.DistanceKm(center, p.Point)
			if d > radiusKm {
				continue
			}

			merged = append(merged, ranked{place: p, distanceKm: d})
		}
	}

	if failures == len(nearbyTerms) {
		return nil, lastErr
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].distanceKm != merged[j].distanceKm {
			return merged[i].distanceKm < merged[j].distanceKm
		}

		return utils.LowerASCIIFolding(merged[i].place.Name) < utils.LowerASCIIFolding(merged[j].place.Name)
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}

	places := make([]Place, len(merged))
	for i, r := range merged {
		places[i] = r.place
	}

	return places, nil
}
