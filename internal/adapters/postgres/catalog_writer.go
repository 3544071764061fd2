package postgres

import (
	"context"

	"github.com/samirrijal/campusride/internal/core/domain"
)

// CatalogWriter implements ports.CatalogWriter over the stop and route repos.
type CatalogWriter struct {
	stops  *StopRepo
	routes *RouteRepo
}

func NewCatalogWriter(q Querier) *CatalogWriter {
	return &CatalogWriter{stops: NewStopRepo(q), routes: NewRouteRepo(q)}
}

func (w *CatalogWriter) UpsertStops(ctx context.Context, stops []domain.Stop) error {
	return w.stops.UpsertStops(ctx, stops)
}

func (w *CatalogWriter) UpsertRoutes(ctx context.Context, routes []domain.Route) error {
	return w.routes.UpsertRoutes(ctx, routes)
}
