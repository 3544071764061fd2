// Package static serves the campus stop network from an embedded JSON
// catalog. It backs the API when no database is configured and seeds the
// database through cmd/ingestor.
package static

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"github.com/samirrijal/campusride/internal/core/domain"
	"github.com/samirrijal/campusride/internal/pkg/geospatial"
)

//go:embed catalog.json
var embedded []byte

type catalogFile struct {
	Stops []struct {
		ID   string  `json:"id"`
		Name string  `json:"name"`
		Lat  float64 `json:"lat"`
		Lon  float64 `json:"lon"`
	} `json:"stops"`
	Routes []struct {
		ID    string   `json:"id"`
		Name  string   `json:"name"`
		Color string   `json:"color"`
		Loop  bool     `json:"loop"`
		Stops []string `json:"stops"`
	} `json:"routes"`
}

// Catalog is an in-memory stop network. Stops and routes never change after
// loading; shapes may be attached later through RouteRepo.SaveShape.
type Catalog struct {
	stops  []domain.Stop
	byID   map[string]domain.Stop
	routes []domain.Route

	mu     sync.RWMutex
	shapes map[string]orb.LineString
}

// Load parses the embedded campus catalog.
func Load() (*Catalog, error) {
	return Parse(embedded)
}

// Parse builds a catalog from JSON, checking that every route stop exists.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{
		byID:   make(map[string]domain.Stop, len(f.Stops)),
		shapes: make(map[string]orb.LineString),
	}
	for _, s := range f.Stops {
		stop := domain.Stop{ID: s.ID, Name: s.Name, Location: domain.GeoPoint{Lat: s.Lat, Lon: s.Lon}}
		if stop.ID == "" || !stop.Location.Valid() {
			return nil, fmt.Errorf("catalog stop %q: invalid id or coordinates", s.ID)
		}
		if _, dup := c.byID[stop.ID]; dup {
			return nil, fmt.Errorf("catalog stop %q: duplicate id", stop.ID)
		}
		c.byID[stop.ID] = stop
		c.stops = append(c.stops, stop)
	}

	for _, r := range f.Routes {
		route := domain.Route{ID: r.ID, Name: r.Name, Color: r.Color, Loop: r.Loop}
		for i, id := range r.Stops {
			stop, ok := c.byID[id]
			if !ok {
				return nil, fmt.Errorf("catalog route %q: unknown stop %q", r.ID, id)
			}
			route.Stops = append(route.Stops, domain.RouteStop{Stop: stop, Order: i + 1})
		}
		c.routes = append(c.routes, route)
	}
	return c, nil
}

// Stops returns a StopRepository view of the catalog.
func (c *Catalog) Stops() *StopRepo { return &StopRepo{c: c} }

// Routes returns a RouteRepository view of the catalog.
func (c *Catalog) Routes() *RouteRepo { return &RouteRepo{c: c} }

// StopRepo implements ports.StopRepository.
type StopRepo struct{ c *Catalog }

func (r *StopRepo) List(ctx context.Context) ([]domain.Stop, error) {
	return append([]domain.Stop(nil), r.c.stops...), nil
}

func (r *StopRepo) GetByID(ctx context.Context, id string) (*domain.Stop, error) {
	s, ok := r.c.byID[id]
	if !ok {
		return nil, fmt.Errorf("stop %s: %w", id, domain.ErrNotFound)
	}
	return &s, nil
}

func (r *StopRepo) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Stop, error) {
	p := domain.GeoPoint{Lat: lat, Lon: lon}
	var out []domain.Stop
	for _, s := range r.c.stops {
		d := geospatial.DistanceMeters(p, s.Location)
		if d > radiusMeters {
			continue
		}
		s.Distance = &d
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return *out[i].Distance < *out[j].Distance })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *StopRepo) Search(ctx context.Context, query string, limit int) ([]domain.Stop, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	var prefix, contains []domain.Stop
	for _, s := range r.c.stops {
		name := strings.ToLower(s.Name)
		switch {
		case strings.HasPrefix(name, q):
			prefix = append(prefix, s)
		case strings.Contains(name, q):
			contains = append(contains, s)
		}
	}
	out := append(prefix, contains...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RouteRepo implements ports.RouteRepository and ports.ShapeStore.
type RouteRepo struct{ c *Catalog }

func (r *RouteRepo) List(ctx context.Context) ([]domain.Route, error) {
	out := make([]domain.Route, len(r.c.routes))
	for i, route := range r.c.routes {
		out[i] = r.withShape(route)
	}
	return out, nil
}

func (r *RouteRepo) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	for _, route := range r.c.routes {
		if route.ID == id {
			out := r.withShape(route)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("route %s: %w", id, domain.ErrNotFound)
}

func (r *RouteRepo) ListByStop(ctx context.Context, stopID string) ([]domain.Route, error) {
	var out []domain.Route
	for _, route := range r.c.routes {
		if route.Serves(stopID) {
			out = append(out, r.withShape(route))
		}
	}
	return out, nil
}

// SaveShape attaches road geometry to a route for the life of the process.
func (r *RouteRepo) SaveShape(ctx context.Context, routeID string, shape orb.LineString) error {
	found := false
	for _, route := range r.c.routes {
		if route.ID == routeID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("route %s: %w", routeID, domain.ErrNotFound)
	}
	r.c.mu.Lock()
	r.c.shapes[routeID] = append(orb.LineString(nil), shape...)
	r.c.mu.Unlock()
	return nil
}

func (r *RouteRepo) withShape(route domain.Route) domain.Route {
	route.Stops = append([]domain.RouteStop(nil), route.Stops...)
	r.c.mu.RLock()
	route.Shape = r.c.shapes[route.ID]
	r.c.mu.RUnlock()
	return route
}
