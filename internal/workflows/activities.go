package workflows

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/paulmach/orb"

	"github.com/samirrijal/campusride/internal/core/domain"
	"github.com/samirrijal/campusride/internal/core/ports"
	"github.com/samirrijal/campusride/internal/pkg/metrics"
)

// RouteWaypoints is the ordered stop sequence a shape is requested through.
type RouteWaypoints struct {
	RouteID   string
	Waypoints []domain.GeoPoint
}

// GeometryActivities holds the activity implementations for the route geometry workflow.
type GeometryActivities struct {
	Routes     ports.RouteRepository
	Directions ports.DirectionsProvider
	Shapes     ports.ShapeStore
}

// ListRouteWaypoints returns the stop sequence of each requested route, or of
// every route when ids is empty. Loops are closed back to their first stop.
func (a *GeometryActivities) ListRouteWaypoints(ctx context.Context, ids []string) ([]RouteWaypoints, error) {
	var routes []domain.Route
	if len(ids) == 0 {
		all, err := a.Routes.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list routes: %w", err)
		}
		routes = all
	} else {
		for _, id := range ids {
			r, err := a.Routes.GetByID(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("get route %s: %w", id, err)
			}
			routes = append(routes, *r)
		}
	}

	out := make([]RouteWaypoints, 0, len(routes))
	for i := range routes {
		line := routes[i].StopLine()
		if len(line) < 2 {
			slog.InfoContext(ctx, "skipping route with fewer than two stops", "route", routes[i].ID)
			continue
		}
		wp := make([]domain.GeoPoint, len(line))
		for j, p := range line {
			wp[j] = domain.FromLngLat(p)
		}
		out = append(out, RouteWaypoints{RouteID: routes[i].ID, Waypoints: wp})
	}
	return out, nil
}

// FetchRouteShape asks the directions provider for a driving path through the waypoints.
func (a *GeometryActivities) FetchRouteShape(ctx context.Context, rw RouteWaypoints) (orb.LineString, error) {
	dir, err := a.Directions.Directions(ctx, ports.ProfileDriving, rw.Waypoints)
	if err != nil {
		metrics.GeometrySynced.WithLabelValues("fetch_error").Inc()
		return nil, fmt.Errorf("directions for %s: %w", rw.RouteID, err)
	}
	if dir == nil || len(dir.Geometry) < 2 {
		metrics.GeometrySynced.WithLabelValues("empty").Inc()
		return nil, fmt.Errorf("directions for %s: empty geometry", rw.RouteID)
	}
	return dir.Geometry, nil
}

// SaveRouteShape persists the fetched geometry.
func (a *GeometryActivities) SaveRouteShape(ctx context.Context, routeID string, shape orb.LineString) error {
	if err := a.Shapes.SaveShape(ctx, routeID, shape); err != nil {
		metrics.GeometrySynced.WithLabelValues("save_error").Inc()
		return fmt.Errorf("save shape %s: %w", routeID, err)
	}
	metrics.GeometrySynced.WithLabelValues("updated").Inc()
	slog.InfoContext(ctx, "route shape stored", "route", routeID, "points", len(shape))
	return nil
}
