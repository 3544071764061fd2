package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/samirrijal/campusride/internal/adapters/catalog"
	"github.com/samirrijal/campusride/internal/adapters/mapbox"
	natsadapter "github.com/samirrijal/campusride/internal/adapters/nats"
	"github.com/samirrijal/campusride/internal/core/ports"
	"github.com/samirrijal/campusride/internal/core/usecases"
	"github.com/samirrijal/campusride/internal/pkg/config"
	"github.com/samirrijal/campusride/internal/pkg/geospatial"
	"github.com/samirrijal/campusride/internal/pkg/logging"
)

// fleet animates the shuttles outside the API process and publishes every
// tick to NATS. API instances run with fleet.enabled=false and mirror it.
func main() {
	cfg, err := config.Load("campusride-fleet")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, "service", cfg.Telemetry.ServiceName)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	src, err := catalog.Open(ctx, cfg.Catalog, cfg.Database)
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}
	defer src.Close()

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer pub.Close()

	var directions ports.DirectionsProvider
	if cfg.Mapbox.Token != "" {
		directions = mapbox.New(cfg.Mapbox.BaseURL, cfg.Mapbox.Token, cfg.Mapbox.Timeout)
	}
	routeSvc := usecases.NewRouteService(src.Routes, directions, nil, 0, cfg.Geometry.OverlapToleranceMeters)

	routes, err := routeSvc.ListWithShapes(ctx)
	if err != nil {
		log.Fatalf("load routes: %v", err)
	}

	fleet := usecases.NewFleetService(
		geospatial.NewInterpolatorCache(cfg.Geometry.InterpolatorCacheSize),
		pub,
		usecases.FleetOptions{
			Tick:             cfg.Fleet.Tick,
			VehiclesPerRoute: cfg.Fleet.VehiclesPerRoute,
			SpeedMps:         cfg.Fleet.SpeedMps,
		},
	)
	fleet.SetRoutes(routes)

	slog.Info("fleet animator started",
		"routes", len(routes),
		"vehicles", len(fleet.Vehicles()),
		"tick", cfg.Fleet.Tick,
		"subject", natsadapter.VehicleSubjects,
	)
	fleet.Run(ctx)
	slog.Info("fleet animator stopped")
}
