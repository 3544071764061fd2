// Package catalog opens the configured stop network source.
package catalog

import (
	"context"
	"fmt"

	"github.com/samirrijal/campusride/internal/adapters/postgres"
	"github.com/samirrijal/campusride/internal/adapters/static"
	"github.com/samirrijal/campusride/internal/core/ports"
	"github.com/samirrijal/campusride/internal/pkg/config"
)

// Source bundles the repositories backing one catalog.
type Source struct {
	Stops  ports.StopRepository
	Routes ports.RouteRepository
	Shapes ports.ShapeStore

	// DB is set for the postgres source only.
	DB *postgres.DB
}

// Open returns the static campus catalog or the postgres one, per cfg.Source.
func Open(ctx context.Context, cfg config.CatalogConfig, db config.DatabaseConfig) (*Source, error) {
	switch cfg.Source {
	case "", config.CatalogStatic:
		c, err := static.Load()
		if err != nil {
			return nil, fmt.Errorf("static catalog: %w", err)
		}
		routes := c.Routes()
		return &Source{Stops: c.Stops(), Routes: routes, Shapes: routes}, nil

	case config.CatalogPostgres:
		pg, err := postgres.New(ctx, db.DSN())
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		routes := postgres.NewRouteRepo(pg.Pool)
		return &Source{
			Stops:  postgres.NewStopRepo(pg.Pool),
			Routes: routes,
			Shapes: routes,
			DB:     pg,
		}, nil

	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Source)
	}
}

// Close releases the database pool, if any.
func (s *Source) Close() {
	if s.DB != nil {
		s.DB.Close()
	}
}
