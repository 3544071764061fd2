package ports

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/samirrijal/campusride/internal/core/domain"
)

// StopRepository provides read access to the stop network.
type StopRepository interface {
	List(ctx context.Context) ([]domain.Stop, error)
	GetByID(ctx context.Context, id string) (*domain.Stop, error)
	FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Stop, error)
	Search(ctx context.Context, query string, limit int) ([]domain.Stop, error)
}

// RouteRepository provides routes with their ordered stops.
type RouteRepository interface {
	List(ctx context.Context) ([]domain.Route, error)
	GetByID(ctx context.Context, id string) (*domain.Route, error)
	ListByStop(ctx context.Context, stopID string) ([]domain.Route, error)
}

// ShapeStore persists fetched road geometry per route.
type ShapeStore interface {
	SaveShape(ctx context.Context, routeID string, shape orb.LineString) error
}

// CatalogWriter loads reference data, used by the ingestor.
type CatalogWriter interface {
	UpsertStops(ctx context.Context, stops []domain.Stop) error
	UpsertRoutes(ctx context.Context, routes []domain.Route) error
}

// RecentSearchRepository persists a client's recent destination searches.
type RecentSearchRepository interface {
	Load(ctx context.Context, clientID string) ([]domain.RecentSearch, error)
	Save(ctx context.Context, clientID string, searches []domain.RecentSearch) error
}
