package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/campusride/internal/core/domain"
)

// RouteRepo implements ports.RouteRepository, ports.ShapeStore and the route
// half of ports.CatalogWriter.
type RouteRepo struct {
	q Querier
}

func NewRouteRepo(q Querier) *RouteRepo { return &RouteRepo{q: q} }

const routeSelect = `
	SELECT r.id, r.name, r.color, r.is_loop, COALESCE(ST_AsGeoJSON(sh.shape), '')
	FROM routes r
	LEFT JOIN route_shapes sh ON sh.route_id = r.id`

// List returns all routes with their ordered stops and stored shapes.
func (r *RouteRepo) List(ctx context.Context) ([]domain.Route, error) {
	return r.load(ctx, routeSelect+` ORDER BY r.id`)
}

// GetByID returns one route.
func (r *RouteRepo) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	routes, err := r.load(ctx, routeSelect+` WHERE r.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(routes) == 0 {
		return nil, fmt.Errorf("get route %s: %w", id, domain.ErrNotFound)
	}
	return &routes[0], nil
}

// ListByStop returns the routes serving stopID.
func (r *RouteRepo) ListByStop(ctx context.Context, stopID string) ([]domain.Route, error) {
	return r.load(ctx, routeSelect+`
		WHERE r.id IN (SELECT route_id FROM route_stops WHERE stop_id = $1)
		ORDER BY r.id`, stopID)
}

func (r *RouteRepo) load(ctx context.Context, sql string, args ...any) ([]domain.Route, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapErr(err, "query routes")
	}
	defer rows.Close()

	routes := []domain.Route{}
	for rows.Next() {
		var rt domain.Route
		var shape string
		if err := rows.Scan(&rt.ID, &rt.Name, &rt.Color, &rt.Loop, &shape); err != nil {
			return nil, err
		}
		if shape != "" {
			line, err := decodeLine(shape)
			if err != nil {
				return nil, fmt.Errorf("route %s shape: %w", rt.ID, err)
			}
			rt.Shape = line
		}
		routes = append(routes, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(routes) == 0 {
		return routes, nil
	}
	return routes, r.attachStops(ctx, routes)
}

func (r *RouteRepo) attachStops(ctx context.Context, routes []domain.Route) error {
	ids := make([]string, len(routes))
	index := make(map[string]int, len(routes))
	for i, rt := range routes {
		ids[i] = rt.ID
		index[rt.ID] = i
	}

	rows, err := r.q.Query(ctx, `
		SELECT rs.route_id, rs.stop_order, s.id, s.name,
		       ST_Y(s.location::geometry) AS lat, ST_X(s.location::geometry) AS lon
		FROM route_stops rs
		JOIN stops s ON s.id = rs.stop_id
		WHERE rs.route_id = ANY($1)
		ORDER BY rs.route_id, rs.stop_order
	`, ids)
	if err != nil {
		return mapErr(err, "query route stops")
	}
	defer rows.Close()

	for rows.Next() {
		var routeID string
		var rs domain.RouteStop
		if err := rows.Scan(&routeID, &rs.Order, &rs.Stop.ID, &rs.Stop.Name,
			&rs.Stop.Location.Lat, &rs.Stop.Location.Lon); err != nil {
			return err
		}
		if i, ok := index[routeID]; ok {
			routes[i].Stops = append(routes[i].Stops, rs)
		}
	}
	return rows.Err()
}

// SaveShape stores the road geometry of a route, replacing any previous one.
func (r *RouteRepo) SaveShape(ctx context.Context, routeID string, shape orb.LineString) error {
	data, err := geojson.NewGeometry(shape).MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode shape: %w", err)
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO route_shapes (route_id, shape, updated_at)
		VALUES ($1, ST_SetSRID(ST_GeomFromGeoJSON($2), 4326), now())
		ON CONFLICT (route_id) DO UPDATE
		SET shape = EXCLUDED.shape, updated_at = EXCLUDED.updated_at
	`, routeID, string(data))
	return mapErr(err, "save shape for route "+routeID)
}

// UpsertRoutes writes routes and replaces their stop sequences in one
// transaction. Stops must already exist.
func (r *RouteRepo) UpsertRoutes(ctx context.Context, routes []domain.Route) error {
	return inTx(ctx, r.q, func(tx pgx.Tx) error {
		for _, rt := range routes {
			if _, err := tx.Exec(ctx, `
				INSERT INTO routes (id, name, color, is_loop)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (id) DO UPDATE
				SET name = EXCLUDED.name, color = EXCLUDED.color, is_loop = EXCLUDED.is_loop
			`, rt.ID, rt.Name, rt.Color, rt.Loop); err != nil {
				return mapErr(err, "upsert route "+rt.ID)
			}
			if _, err := tx.Exec(ctx, `DELETE FROM route_stops WHERE route_id = $1`, rt.ID); err != nil {
				return mapErr(err, "clear route stops "+rt.ID)
			}
			for _, rs := range rt.Stops {
				if _, err := tx.Exec(ctx, `
					INSERT INTO route_stops (route_id, stop_id, stop_order)
					VALUES ($1, $2, $3)
				`, rt.ID, rs.Stop.ID, rs.Order); err != nil {
					return mapErr(err, "insert route stop "+rs.Stop.ID)
				}
			}
		}
		return nil
	})
}

func decodeLine(data string) (orb.LineString, error) {
	g, err := geojson.UnmarshalGeometry([]byte(data))
	if err != nil {
		return nil, err
	}
	line, ok := g.Geometry().(orb.LineString)
	if !ok {
		return nil, fmt.Errorf("expected LineString, got %s", g.Type)
	}
	return line, nil
}
