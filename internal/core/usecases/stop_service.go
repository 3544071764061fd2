package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samirrijal/campusride/internal/core/domain"
	"github.com/samirrijal/campusride/internal/core/ports"
	"github.com/samirrijal/campusride/internal/pkg/geospatial"
	"github.com/samirrijal/campusride/internal/pkg/metrics"
)

// StopService handles stop-related business logic.
type StopService struct {
	stops ports.StopRepository
	cache ports.CacheService
}

// NewStopService creates a new StopService.
func NewStopService(stops ports.StopRepository, cache ports.CacheService) *StopService {
	return &StopService{stops: stops, cache: cache}
}

// List returns every stop in the network.
func (s *StopService) List(ctx context.Context) ([]domain.Stop, error) {
	var stops []domain.Stop
	if s.cacheGet(ctx, "stops:all", &stops) {
		return stops, nil
	}

	stops, err := s.stops.List(ctx)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, "stops:all", stops, 300)
	return stops, nil
}

// FindNearby returns stops within radiusMeters of the given point, nearest first.
func (s *StopService) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Stop, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	if radiusMeters <= 0 {
		radiusMeters = 500
	}

	cacheKey := fmt.Sprintf("stops:nearby:%.4f:%.4f:%.0f:%d", lat, lon, radiusMeters, limit)
	var stops []domain.Stop
	if s.cacheGet(ctx, cacheKey, &stops) {
		return stops, nil
	}

	stops, err := s.stops.FindNearby(ctx, lat, lon, radiusMeters, limit)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, cacheKey, stops, 300)
	return stops, nil
}

// Search matches stop names case-insensitively.
func (s *StopService) Search(ctx context.Context, query string, limit int) ([]domain.Stop, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query must not be empty", domain.ErrInvalidInput)
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	cacheKey := fmt.Sprintf("stops:search:%s:%d", strings.ToLower(query), limit)
	var stops []domain.Stop
	if s.cacheGet(ctx, cacheKey, &stops) {
		return stops, nil
	}

	stops, err := s.stops.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, cacheKey, stops, 300)
	return stops, nil
}

// GetByID returns a single stop.
func (s *StopService) GetByID(ctx context.Context, id string) (*domain.Stop, error) {
	cacheKey := "stops:id:" + id
	var stop domain.Stop
	if s.cacheGet(ctx, cacheKey, &stop) {
		return &stop, nil
	}

	found, err := s.stops.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, cacheKey, found, 600) // 10 min for single stop
	return found, nil
}

// Nearest returns the stop closest to p over the whole network.
func (s *StopService) Nearest(ctx context.Context, p domain.GeoPoint) (*domain.Stop, error) {
	stops, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	stop, ok := geospatial.NearestStop(p, stops)
	if !ok {
		return nil, domain.ErrNoStops
	}
	d := geospatial.DistanceMeters(p, stop.Location)
	stop.Distance = &d
	return &stop, nil
}

func (s *StopService) cacheGet(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheMisses.WithLabelValues("stops").Inc()
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false
	}
	metrics.CacheHits.WithLabelValues("stops").Inc()
	return true
}

func (s *StopService) cacheSet(ctx context.Context, key string, v any, ttlSeconds int) {
	if s.cache == nil {
		return
	}
	if data, err := json.Marshal(v); err == nil {
		_ = s.cache.Set(ctx, key, data, ttlSeconds)
	}
}
