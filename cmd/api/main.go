package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/campusride/internal/adapters/catalog"
	"github.com/samirrijal/campusride/internal/adapters/gemini"
	"github.com/samirrijal/campusride/internal/adapters/http"
	"github.com/samirrijal/campusride/internal/adapters/mapbox"
	natsadapter "github.com/samirrijal/campusride/internal/adapters/nats"
	redisadapter "github.com/samirrijal/campusride/internal/adapters/redis"
	"github.com/samirrijal/campusride/internal/adapters/valkey"
	"github.com/samirrijal/campusride/internal/core/ports"
	"github.com/samirrijal/campusride/internal/core/usecases"
	"github.com/samirrijal/campusride/internal/pkg/config"
	"github.com/samirrijal/campusride/internal/pkg/geospatial"
	"github.com/samirrijal/campusride/internal/pkg/logging"
	"github.com/samirrijal/campusride/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("campusride-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format, "service", cfg.Telemetry.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Catalog
	src, err := catalog.Open(ctx, cfg.Catalog, cfg.Database)
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}
	defer src.Close()

	// Cache
	var sharedCache ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		sharedCache = cache
	}

	// Upstream providers
	var (
		geocoder   ports.Geocoder
		directions ports.DirectionsProvider
		summarizer ports.Summarizer
	)
	if cfg.Mapbox.Token != "" {
		mb := mapbox.New(cfg.Mapbox.BaseURL, cfg.Mapbox.Token, cfg.Mapbox.Timeout)
		geocoder, directions = mb, mb
	} else {
		slog.Warn("mapbox token not set; geocoding and directions disabled")
	}
	if cfg.Gemini.APIKey != "" {
		summarizer = gemini.New(cfg.Gemini.BaseURL, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.Timeout)
	}

	proxySvc := usecases.NewProxyService(geocoder, directions, summarizer, sharedCache, usecases.ProxyTTLs{
		Geocode:    cfg.Proxy.GeocodeTTL,
		Directions: cfg.Proxy.DirectionsTTL,
		Summary:    cfg.Proxy.SummaryTTL,
	})

	var routeDirections ports.DirectionsProvider
	if directions != nil {
		routeDirections = proxySvc
	}
	stopSvc := usecases.NewStopService(src.Stops, sharedCache)
	routeSvc := usecases.NewRouteService(src.Routes, routeDirections, sharedCache, cfg.Proxy.DirectionsTTL, cfg.Geometry.OverlapToleranceMeters)

	// NATS
	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Fleet: animate in-process, or mirror a standalone animator over NATS.
	fleetOpts := usecases.FleetOptions{
		Tick:             cfg.Fleet.Tick,
		VehiclesPerRoute: cfg.Fleet.VehiclesPerRoute,
		SpeedMps:         cfg.Fleet.SpeedMps,
	}
	var fleetPublisher ports.EventPublisher
	if cfg.Fleet.Enabled {
		fleetPublisher = publisher
	} else {
		fleetOpts.VehiclesPerRoute = 0
	}
	interps := geospatial.NewInterpolatorCache(cfg.Geometry.InterpolatorCacheSize)
	fleetSvc := usecases.NewFleetService(interps, fleetPublisher, fleetOpts)

	shaped, err := routeSvc.ListWithShapes(ctx)
	if err != nil {
		log.Fatalf("load routes: %v", err)
	}
	fleetSvc.SetRoutes(shaped)

	var natsConn *nats.Conn
	if cfg.Fleet.Enabled {
		go fleetSvc.Run(ctx)
		slog.Info("fleet animator running", "routes", len(shaped), "tick", cfg.Fleet.Tick)
	} else {
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("fleet relay unavailable", "error", err)
		} else {
			defer sub.Close()
			if err := sub.SubscribeVehiclePositions(fleetSvc.Observe); err != nil {
				slog.Warn("subscribe vehicle positions failed", "error", err)
			}
			natsConn = sub.Conn()
		}
	}
	// Raw NATS connection for the WebSocket relay
	if natsConn == nil && pub != nil {
		conn, err := natsadapter.RawConn(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats ws conn unavailable", "error", err)
		} else {
			defer conn.Close()
			natsConn = conn
		}
	}

	// Recent searches
	var recentSvc *usecases.RecentSearchService
	if rc := redisadapter.Connect(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); rc != nil {
		defer rc.Close()
		recentSvc = usecases.NewRecentSearchService(redisadapter.NewRecentStore(rc, usecases.RecentSearchTTL))
	}

	planner := usecases.PlannerOptions{
		WalkPreferredMeters: cfg.Planner.WalkPreferredMeters,
		BusSpeedMps:         cfg.Planner.BusSpeedMps,
		DefaultWaitMin:      cfg.Planner.DefaultWaitMin,
		LeaveBuffer:         cfg.Planner.LeaveBuffer,
		LiveDirections:      cfg.Planner.LiveDirections,
	}
	var plannerGeocoder ports.Geocoder
	if geocoder != nil {
		plannerGeocoder = proxySvc
	}
	journeySvc := usecases.NewJourneyService(src.Stops, src.Routes, fleetSvc, routeDirections, plannerGeocoder, planner)

	deps := &http.Dependencies{
		Stops:            stopSvc,
		Routes:           routeSvc,
		Journeys:         journeySvc,
		Fleet:            fleetSvc,
		Proxy:            proxySvc,
		Recent:           recentSvc,
		NATS:             natsConn,
		DB:               src.DB,
		Cache:            cache,
		SearchDebounce:   cfg.Proxy.SearchDebounce,
		SnapshotInterval: time.Second,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "CampusRide API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, " + http.ClientIDHeader,
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "catalog", cfg.Catalog.Source)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
