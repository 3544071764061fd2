package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samirrijal/campusride/internal/core/ports"
)

// IngestResult counts what IngestCatalog wrote.
type IngestResult struct {
	Stops  int
	Routes int
}

// IngestCatalog copies every stop, then every route with its stop sequence,
// from a source catalog into w. Stops go first so route_stops can reference them.
func IngestCatalog(ctx context.Context, stops ports.StopRepository, routes ports.RouteRepository, w ports.CatalogWriter) (IngestResult, error) {
	allStops, err := stops.List(ctx)
	if err != nil {
		return IngestResult{}, fmt.Errorf("list stops: %w", err)
	}
	allRoutes, err := routes.List(ctx)
	if err != nil {
		return IngestResult{}, fmt.Errorf("list routes: %w", err)
	}

	known := make(map[string]bool, len(allStops))
	for _, s := range allStops {
		known[s.ID] = true
	}
	for _, r := range allRoutes {
		for _, rs := range r.Stops {
			if !known[rs.Stop.ID] {
				return IngestResult{}, fmt.Errorf("route %s references unknown stop %s", r.ID, rs.Stop.ID)
			}
		}
	}

	if err := w.UpsertStops(ctx, allStops); err != nil {
		return IngestResult{}, fmt.Errorf("upsert stops: %w", err)
	}
	if err := w.UpsertRoutes(ctx, allRoutes); err != nil {
		return IngestResult{Stops: len(allStops)}, fmt.Errorf("upsert routes: %w", err)
	}

	slog.Info("catalog ingested", "stops", len(allStops), "routes", len(allRoutes))
	return IngestResult{Stops: len(allStops), Routes: len(allRoutes)}, nil
}
