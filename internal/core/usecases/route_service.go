package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulmach/orb"
	"github.com/samirrijal/campusride/internal/core/domain"
	"github.com/samirrijal/campusride/internal/core/ports"
	"github.com/samirrijal/campusride/internal/pkg/geospatial"
	"github.com/samirrijal/campusride/internal/pkg/metrics"
	"github.com/samirrijal/campusride/internal/pkg/telemetry"
)

// RouteService handles route-related business logic.
type RouteService struct {
	routes      ports.RouteRepository
	directions  ports.DirectionsProvider
	cache       ports.CacheService
	shapeTTL    time.Duration
	overlapTolM float64
}

// NewRouteService creates a new RouteService. directions and cache may be nil,
// in which case shapes fall back to straight lines through the stops.
func NewRouteService(
	routes ports.RouteRepository,
	directions ports.DirectionsProvider,
	cache ports.CacheService,
	shapeTTL time.Duration,
	overlapToleranceMeters float64,
) *RouteService {
	if overlapToleranceMeters <= 0 {
		overlapToleranceMeters = geospatial.DefaultOverlapToleranceMeters
	}
	return &RouteService{
		routes:      routes,
		directions:  directions,
		cache:       cache,
		shapeTTL:    shapeTTL,
		overlapTolM: overlapToleranceMeters,
	}
}

// List returns all routes with their ordered stops.
func (s *RouteService) List(ctx context.Context) ([]domain.Route, error) {
	return s.routes.List(ctx)
}

// GetByID returns a route by id.
func (s *RouteService) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	return s.routes.GetByID(ctx, id)
}

// ListByStop returns the distinct routes that serve a given stop.
func (s *RouteService) ListByStop(ctx context.Context, stopID string) ([]domain.Route, error) {
	return s.routes.ListByStop(ctx, stopID)
}

// Shape returns the road geometry of a route.
func (s *RouteService) Shape(ctx context.Context, id string) (orb.LineString, error) {
	route, err := s.routes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.ResolveShape(ctx, route), nil
}

// ListWithShapes returns all routes with Shape filled in.
func (s *RouteService) ListWithShapes(ctx context.Context) ([]domain.Route, error) {
	routes, err := s.routes.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range routes {
		routes[i].Shape = s.ResolveShape(ctx, &routes[i])
	}
	return routes, nil
}

// ResolveShape picks the best geometry available for route: the stored shape,
// then a directions lookup through its stops, then straight lines between stops.
func (s *RouteService) ResolveShape(ctx context.Context, route *domain.Route) orb.LineString {
	if len(route.Shape) >= 2 {
		return route.Shape
	}
	stopLine := route.StopLine()
	if s.directions == nil || len(stopLine) < 2 {
		return stopLine
	}

	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanResolveShape)
	defer span.End()

	cacheKey := "routes:shape:" + route.ID
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var line orb.LineString
			if err := json.Unmarshal(data, &line); err == nil && len(line) >= 2 {
				metrics.CacheHits.WithLabelValues("route_shape").Inc()
				return line
			}
		}
		metrics.CacheMisses.WithLabelValues("route_shape").Inc()
	}

	waypoints := make([]domain.GeoPoint, len(stopLine))
	for i, p := range stopLine {
		waypoints[i] = domain.FromLngLat(p)
	}
	dir, err := s.directions.Directions(ctx, ports.ProfileDriving, waypoints)
	if err != nil || dir == nil || len(dir.Geometry) < 2 {
		slog.DebugContext(ctx, "route shape fallback to stop line", "route", route.ID, "error", err)
		metrics.UpstreamFallbacks.WithLabelValues("directions").Inc()
		return stopLine
	}

	if s.cache != nil {
		if data, err := json.Marshal(dir.Geometry); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, int(s.shapeTTL.Seconds()))
		}
	}
	return dir.Geometry
}

// Overlaps splits route id's geometry into runs shared with, or distinct from,
// route withID.
func (s *RouteService) Overlaps(ctx context.Context, id, withID string) ([]geospatial.Run, error) {
	if id == withID {
		return nil, fmt.Errorf("%w: overlap needs two distinct routes", domain.ErrInvalidInput)
	}
	a, err := s.Shape(ctx, id)
	if err != nil {
		return nil, err
	}
	b, err := s.Shape(ctx, withID)
	if err != nil {
		return nil, err
	}
	return geospatial.SplitOverlaps(a, b, s.overlapTolM), nil
}

// OverlapTolerance returns the configured corridor overlap tolerance in meters.
func (s *RouteService) OverlapTolerance() float64 { return s.overlapTolM }
