// Copyright 2026 The Prasat Authors
// SPDX-License-Identifier: Apache-2.0

// Package web exposes the nearby search, place search and admin assist
// endpoints over HTTP. Handlers degrade on provider failure instead of
// erroring out: curated results still render when the live provider is down.
package web

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vireak/prasat/catalog"
	"github.com/vireak/prasat/nearby"
	"github.com/vireak/prasat/places"
	"github.com/vireak/prasat/spatial"
)

const (
	defaultRadiusKm    = 50.0
	defaultNearbyLimit = 20
	searchCacheTTL     = 5 * time.Minute
)

type Server struct {
	repo     catalog.Repository
	searcher places.Searcher
	geocoder places.Geocoder
	cache    *places.SearchCache
}

func NewServer(repo catalog.Repository, searcher places.Searcher, geocoder places.Geocoder) *Server {
	return &Server{
		repo:     repo,
		searcher: searcher,
		geocoder: geocoder,
		cache:    places.NewSearchCache(searchCacheTTL),
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/api/nearby", s.getNearby)
	r.GET("/api/places/search", s.searchPlaces)
	r.GET("/api/destinations", s.listDestinations)
	r.GET("/api/destinations/:slug/nearby", s.getDestinationNearby)
	r.GET("/api/geocode/suggest", s.suggestCoordinates)
	r.GET("/api/map/buckets", s.getMapBuckets)

	return r
}

func (s *Server) Run() error {
	return s.Router().Run("localhost:8080")
}

// Marker is a ranked place shaped for map and list rendering.
type Marker struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Category   string  `json:"category,omitempty"`
	Slug       string  `json:"slug,omitempty"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	DistanceKm float64 `json:"distance_km"`
	Distance   string  `json:"distance"`
	TravelTime string  `json:"travel_time"`
	Source     string  `json:"source"`
}

func toMarkers(ranked []nearby.RankedPlace, mode spatial.TravelMode) []Marker {
	markers := make([]Marker, 0, len(ranked))

	for _, rp := range ranked {
		markers = append(markers, Marker{
			ID:         rp.ID,
			Name:       rp.Name,
			Category:   rp.Category,
			Slug:       rp.Slug,
			Lat:        rp.Point.Lat,
			Lng:        rp.Point.Lng,
			DistanceKm: rp.DistanceKm,
			Distance:   spatial.FormatDistance(rp.DistanceKm),
			TravelTime: spatial.EstimateTravelTime(rp.DistanceKm, mode),
			Source:     string(rp.Source),
		})
	}

	return markers
}

func parseCoordinate(ctx *gin.Context) (*spatial.Coordinate, error) {
	lat, err := strconv.ParseFloat(ctx.Query("lat"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid lat parameter")
	}

	lng, err := strconv.ParseFloat(ctx.Query("lng"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid lng parameter")
	}

	c := &spatial.Coordinate{Lat: lat, Lng: lng}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func intQuery(ctx *gin.Context, name string, fallback int) int {
	raw := ctx.Query(name)
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}

	return v
}

func floatQuery(ctx *gin.Context, name string, fallback float64) float64 {
	raw := ctx.Query(name)
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return fallback
	}

	return v
}

// searchNearbyCached is the read-through path in front of the provider's
// multi-term nearby fan-out.
func (s *Server) searchNearbyCached(ctx *gin.Context, center spatial.Coordinate, radiusKm float64, limit int) ([]places.Place, error) {
	key := places.Key("", &center, radiusKm, limit)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	result, err := s.searcher.SearchNearby(ctx.Request.Context(), center, radiusKm, limit)
	if err != nil {
		return nil, err
	}

	s.cache.Put(key, result)

	return result, nil
}

func (s *Server) getNearby(ctx *gin.Context) {
	ref, err := parseCoordinate(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	radiusKm := floatQuery(ctx, "radius_km", defaultRadiusKm)
	limit := intQuery(ctx, "limit", defaultNearbyLimit)
	mode := spatial.TravelMode(ctx.Query("mode"))

	curated, err := s.repo.List(catalog.ListFilter{PublishedOnly: true, WithGeodata: true})
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	response := gin.H{}

	provider, err := s.searchNearbyCached(ctx, *ref, radiusKm, limit)
	if err != nil {
		// Curated results still render without the live provider.
		response["places_error"] = providerErrorMessage(err)
		provider = nil
	}

	ranked := nearby.Rank(ref, curated, provider, nearby.Options{
		ExcludeID:     ctx.Query("exclude"),
		MaxDistanceKm: radiusKm,
		Limit:         limit,
	})

	response["markers"] = toMarkers(ranked, mode)
	ctx.JSON(http.StatusOK, response)
}

func (s *Server) searchPlaces(ctx *gin.Context) {
	query := ctx.Query("query")
	if query == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "query parameter is required"})

		return
	}

	var near *spatial.Coordinate

	if ctx.Query("lat") != "" || ctx.Query("lng") != "" {
		var err error

		near, err = parseCoordinate(ctx)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

			return
		}
	}

	limit := intQuery(ctx, "limit", 10)

	key := places.Key(query, near, 0, limit)

	result, ok := s.cache.Get(key)
	if !ok {
		var err error

		result, err = s.searcher.SearchByText(ctx.Request.Context(), query, near, limit)
		if err != nil {
			ctx.JSON(providerErrorStatus(err), gin.H{"error": providerErrorMessage(err)})

			return
		}

		s.cache.Put(key, result)
	}

	ctx.JSON(http.StatusOK, gin.H{"places": result})
}

func providerErrorMessage(err error) string {
	switch {
	case places.IsUnauthorized(err):
		return "place search is not configured"
	case places.IsRateLimitError(err):
		return "place search is rate limited, try again shortly"
	case places.IsUnavailable(err):
		return "place search is temporarily unavailable"
	default:
		return "place search failed"
	}
}

func providerErrorStatus(err error) int {
	switch {
	case places.IsUnauthorized(err):
		return http.StatusBadGateway
	case places.IsRateLimitError(err):
		return http.StatusTooManyRequests
	default:
		return http.StatusServiceUnavailable
	}
}

func (s *Server) listDestinations(ctx *gin.Context) {
	page := intQuery(ctx, "page", 1)
	perPage := intQuery(ctx, "per_page", 50)

	filter := catalog.ListFilter{
		PublishedOnly: ctx.Query("all") == "",
		Category:      ctx.Query("category"),
		Limit:         perPage,
		Offset:        (page - 1) * perPage,
	}

	destinations, err := s.repo.List(filter)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	total, err := s.repo.Count()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"destinations": destinations,
		"total":        total,
		"page":         page,
		"per_page":     perPage,
	})
}

func (s *Server) getDestinationNearby(ctx *gin.Context) {
	slug := ctx.Param("slug")

	destination, err := s.repo.Get(slug)
	if err != nil {
		if err == catalog.ErrNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "destination not found"})

			return
		}

		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	limit := intQuery(ctx, "limit", defaultNearbyLimit)
	mode := spatial.TravelMode(ctx.Query("mode"))

	curated, err := s.repo.List(catalog.ListFilter{PublishedOnly: true, WithGeodata: true})
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	// Point may be nil when the destination lacks geodata, which ranks to an
	// empty list rather than an error.
	ranked := nearby.Rank(destination.Point, curated, nil, nearby.Options{
		ExcludeID: destination.ID,
		Limit:     limit,
	})

	ctx.JSON(http.StatusOK, gin.H{
		"destination": destination.Slug,
		"markers":     toMarkers(ranked, mode),
	})
}

func (s *Server) suggestCoordinates(ctx *gin.Context) {
	address := ctx.Query("address")
	if address == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "address parameter is required"})

		return
	}

	result, err := s.geocoder.Geocode(address, ctx.Query("region"))
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "no suggestion available", "details": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, result)
}

// MapBucket aggregates destinations sharing an H3 cell at one resolution.
type MapBucket struct {
	Cell  int64 `json:"cell"`
	Count int   `json:"count"`
}

func (s *Server) getMapBuckets(ctx *gin.Context) {
	res := intQuery(ctx, "res", 4)
	if res < 1 || res > 8 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "res must be between 1 and 8"})

		return
	}

	query := fmt.Sprintf(`
		SELECT h3_res%d, COUNT(*)
		FROM destinations
		WHERE point IS NOT NULL AND published
		GROUP BY 1
		ORDER BY 2 DESC
	`, res)

	rows, err := s.repo.DB().Query(query)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}
	defer rows.Close()

	var buckets []MapBucket

	for rows.Next() {
		var b MapBucket
		if err := rows.Scan(&b.Cell, &b.Count); err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

			return
		}

		buckets = append(buckets, b)
	}

	if err := rows.Err(); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"res": res, "buckets": buckets})
}
