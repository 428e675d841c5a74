// Copyright 2026 The Prasat Authors
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vireak/prasat/catalog"
	"github.com/vireak/prasat/places"
	"github.com/vireak/prasat/spatial"
)

type fakeSearcher struct {
	places      []places.Place
	err         error
	textCalls   int
	nearbyCalls int
}

func (f *fakeSearcher) SearchByText(_ context.Context, _ string, _ *spatial.Coordinate, _ int) ([]places.Place, error) {
	f.textCalls++

	return f.places, f.err
}

func (f *fakeSearcher) SearchNearby(_ context.Context, _ spatial.Coordinate, _ float64, _ int) ([]places.Place, error) {
	f.nearbyCalls++

	return f.places, f.err
}

type fakeGeocoder struct {
	result *places.GeocodingResult
	err    error
}

func (f *fakeGeocoder) Geocode(_, _ string) (*places.GeocodingResult, error) {
	return f.result, f.err
}

func setupServerTest(t *testing.T) (*gin.Engine, *sql.DB, catalog.Repository, *fakeSearcher, *fakeGeocoder) {
	gin.SetMode(gin.TestMode)

	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)

	repo := catalog.NewRepository(db)
	require.NoError(t, repo.CreateSchema())

	searcher := &fakeSearcher{}
	geocoder := &fakeGeocoder{}
	server := NewServer(repo, searcher, geocoder)

	return server.Router(), db, repo, searcher, geocoder
}

func seedDestinations(t *testing.T, repo catalog.Repository) {
	destinations := []*catalog.Destination{
		{
			ID:        "dest-angkor-wat",
			Slug:      "angkor-wat",
			Name:      "Angkor Wat",
			Category:  "temple",
			Point:     &spatial.Coordinate{Lat: 13.4125, Lng: 103.8670},
			Published: true,
		},
		{
			ID:        "dest-bayon",
			Slug:      "bayon",
			Name:      "Bayon",
			Category:  "temple",
			Point:     &spatial.Coordinate{Lat: 13.4413, Lng: 103.8590},
			Published: true,
		},
		{
			ID:        "dest-draft",
			Slug:      "draft-site",
			Name:      "Draft Site",
			Point:     &spatial.Coordinate{Lat: 13.42, Lng: 103.86},
			Published: false,
		},
		{
			ID:        "dest-no-geo",
			Slug:      "no-geo",
			Name:      "Unmapped Site",
			Published: true,
		},
	}

	for _, d := range destinations {
		require.NoError(t, repo.Save(d))
	}
}

func get(t *testing.T, router *gin.Engine, url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	router.ServeHTTP(w, req)

	return w
}

type nearbyResponse struct {
	Markers     []Marker `json:"markers"`
	PlacesError string   `json:"places_error"`
}

func TestNearbyAPI(t *testing.T) {
	router, db, repo, searcher, _ := setupServerTest(t)
	defer db.Close()

	seedDestinations(t, repo)

	searcher.places = []places.Place{
		{
			ID:       "poi.ta-prohm",
			Name:     "Ta Prohm",
			Category: "Point of Interest",
			Point:    spatial.Coordinate{Lat: 13.4350, Lng: 103.8892},
		},
	}

	w := get(t, router, "/api/nearby?lat=13.4125&lng=103.8670&radius_km=50")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp nearbyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.PlacesError)

	// Angkor Wat itself, Bayon and the provider hit. The draft and unmapped
	// destinations never appear.
	require.Len(t, resp.Markers, 3)
	assert.Equal(t, "dest-angkor-wat", resp.Markers[0].ID)

	for i := 1; i < len(resp.Markers); i++ {
		assert.LessOrEqual(t, resp.Markers[i-1].DistanceKm, resp.Markers[i].DistanceKm)
	}

	for _, m := range resp.Markers {
		assert.NotEmpty(t, m.Distance)
		assert.NotEmpty(t, m.TravelTime)
		assert.NotEmpty(t, m.Source)
	}
}

func TestNearbyAPIExclude(t *testing.T) {
	router, db, repo, _, _ := setupServerTest(t)
	defer db.Close()

	seedDestinations(t, repo)

	w := get(t, router, "/api/nearby?lat=13.4125&lng=103.8670&exclude=dest-angkor-wat")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp nearbyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	for _, m := range resp.Markers {
		assert.NotEqual(t, "dest-angkor-wat", m.ID)
	}
}

func TestNearbyAPIInvalidCoordinates(t *testing.T) {
	router, db, _, _, _ := setupServerTest(t)
	defer db.Close()

	for _, url := range []string{
		"/api/nearby",
		"/api/nearby?lat=abc&lng=103",
		"/api/nearby?lat=91&lng=103",
		"/api/nearby?lat=13&lng=le",
	} {
		w := get(t, router, url)
		assert.Equal(t, http.StatusBadRequest, w.Code, url)
	}
}

func TestNearbyAPIDegradesOnProviderFailure(t *testing.T) {
	router, db, repo, searcher, _ := setupServerTest(t)
	defer db.Close()

	seedDestinations(t, repo)

	searcher.err = places.ClassifyHTTPError(http.StatusServiceUnavailable, "provider down")

	w := get(t, router, "/api/nearby?lat=13.4125&lng=103.8670")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp nearbyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.NotEmpty(t, resp.PlacesError)
	require.Len(t, resp.Markers, 2)

	for _, m := range resp.Markers {
		assert.Equal(t, "curated", m.Source)
	}
}

func TestNearbyAPICachesProviderResults(t *testing.T) {
	router, db, repo, searcher, _ := setupServerTest(t)
	defer db.Close()

	seedDestinations(t, repo)

	get(t, router, "/api/nearby?lat=13.4125&lng=103.8670")
	get(t, router, "/api/nearby?lat=13.4125&lng=103.8670")
	assert.Equal(t, 1, searcher.nearbyCalls)

	// Different parameters miss the cache.
	get(t, router, "/api/nearby?lat=13.4125&lng=103.8670&radius_km=10")
	assert.Equal(t, 2, searcher.nearbyCalls)
}

func TestSearchPlacesAPI(t *testing.T) {
	router, db, _, searcher, _ := setupServerTest(t)
	defer db.Close()

	searcher.places = []places.Place{
		{ID: "poi.1", Name: "National Museum", Point: spatial.Coordinate{Lat: 11.5601, Lng: 104.9299}},
	}

	w := get(t, router, "/api/places/search?query=museum")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Places []places.Place `json:"places"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Places, 1)
	assert.Equal(t, "National Museum", resp.Places[0].Name)

	// Identical query hits the cache.
	get(t, router, "/api/places/search?query=museum")
	assert.Equal(t, 1, searcher.textCalls)
}

func TestSearchPlacesAPIMissingQuery(t *testing.T) {
	router, db, _, _, _ := setupServerTest(t)
	defer db.Close()

	w := get(t, router, "/api/places/search")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchPlacesAPIProviderErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantStatus int
	}{
		{"unauthorized", http.StatusUnauthorized, http.StatusBadGateway},
		{"rate limited", http.StatusTooManyRequests, http.StatusTooManyRequests},
		{"unavailable", http.StatusServiceUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, db, _, searcher, _ := setupServerTest(t)
			defer db.Close()

			searcher.err = places.ClassifyHTTPError(tt.status, "")

			w := get(t, router, "/api/places/search?query=museum")
			assert.Equal(t, tt.wantStatus, w.Code)

			var resp map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp["error"])
		})
	}
}

func TestListDestinationsAPI(t *testing.T) {
	router, db, repo, _, _ := setupServerTest(t)
	defer db.Close()

	seedDestinations(t, repo)

	w := get(t, router, "/api/destinations")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Destinations []catalog.Destination `json:"destinations"`
		Total        int                   `json:"total"`
		Page         int                   `json:"page"`
		PerPage      int                   `json:"per_page"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	// Drafts are hidden unless all= is set.
	assert.Len(t, resp.Destinations, 3)
	assert.Equal(t, 4, resp.Total)
	assert.Equal(t, 1, resp.Page)

	w = get(t, router, "/api/destinations?all=1")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Destinations, 4)

	w = get(t, router, "/api/destinations?per_page=2&page=2&all=1")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Destinations, 2)
	assert.Equal(t, 2, resp.Page)
}

func TestDestinationNearbyAPI(t *testing.T) {
	router, db, repo, _, _ := setupServerTest(t)
	defer db.Close()

	seedDestinations(t, repo)

	w := get(t, router, "/api/destinations/angkor-wat/nearby")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Destination string   `json:"destination"`
		Markers     []Marker `json:"markers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "angkor-wat", resp.Destination)
	require.Len(t, resp.Markers, 1)
	assert.Equal(t, "dest-bayon", resp.Markers[0].ID)
}

func TestDestinationNearbyAPINotFound(t *testing.T) {
	router, db, _, _, _ := setupServerTest(t)
	defer db.Close()

	w := get(t, router, "/api/destinations/missing/nearby")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDestinationNearbyAPIWithoutGeodata(t *testing.T) {
	router, db, repo, _, _ := setupServerTest(t)
	defer db.Close()

	seedDestinations(t, repo)

	w := get(t, router, "/api/destinations/no-geo/nearby")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Markers []Marker `json:"markers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Markers)
}

func TestGeocodeSuggestAPI(t *testing.T) {
	router, db, _, _, geocoder := setupServerTest(t)
	defer db.Close()

	geocoder.result = &places.GeocodingResult{
		Latitude:   11.5564,
		Longitude:  104.9282,
		Confidence: "high",
		Provider:   "google_maps",
	}

	w := get(t, router, "/api/geocode/suggest?address=Royal+Palace+Phnom+Penh")
	assert.Equal(t, http.StatusOK, w.Code)

	var result places.GeocodingResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.InDelta(t, 11.5564, result.Latitude, 1e-6)
	assert.Equal(t, "high", result.Confidence)
}

func TestGeocodeSuggestAPIErrors(t *testing.T) {
	router, db, _, _, geocoder := setupServerTest(t)
	defer db.Close()

	w := get(t, router, "/api/geocode/suggest")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	geocoder.err = fmt.Errorf("no results")

	w = get(t, router, "/api/geocode/suggest?address=nowhere")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMapBucketsAPI(t *testing.T) {
	router, db, repo, _, _ := setupServerTest(t)
	defer db.Close()

	seedDestinations(t, repo)

	w := get(t, router, "/api/map/buckets?res=1")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Res     int         `json:"res"`
		Buckets []MapBucket `json:"buckets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, 1, resp.Res)

	// Angkor Wat and Bayon share one coarse cell. Drafts and unmapped
	// destinations are excluded.
	require.Len(t, resp.Buckets, 1)
	assert.Equal(t, 2, resp.Buckets[0].Count)
}

func TestMapBucketsAPIInvalidRes(t *testing.T) {
	router, db, _, _, _ := setupServerTest(t)
	defer db.Close()

	w := get(t, router, "/api/map/buckets?res=9")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(t, router, "/api/map/buckets?res=12")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
