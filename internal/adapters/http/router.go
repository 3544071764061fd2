package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/campusride/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c *fiber.Ctx) bool {
			// protobuf feed is already compact
			return c.Path() == "/v1/gtfs-rt/vehicle-positions"
		},
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 240 requests per minute per IP. Search-as-you-type goes
	// over /ws, so this bounds REST polling only.
	app.Use(limiter.New(limiter.Config{
		Max:        240,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/v1/health" || c.Path() == "/metrics"
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(etag.New(etag.Config{Weak: true}))
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	get := func(path string, h fiber.Handler) {
		v1.Get(path, timeout.NewWithContext(h, requestTimeout))
	}
	post := func(path string, h fiber.Handler) {
		v1.Post(path, timeout.NewWithContext(h, requestTimeout))
	}

	// Catalog
	get("/stops", ListStopsHandler(deps))
	get("/stops/nearby", NearbyStopsHandler(deps))
	get("/stops/search", SearchStopsHandler(deps))
	get("/stops/:id", GetStopHandler(deps))
	get("/stops/:id/routes", StopRoutesHandler(deps))
	get("/routes", ListRoutesHandler(deps))
	get("/routes/:id", GetRouteHandler(deps))
	get("/routes/:id/shape", RouteShapeHandler(deps))
	get("/routes/:id/overlaps", RouteOverlapsHandler(deps))
	get("/routes/:id/vehicles", RouteVehiclesHandler(deps))

	// Live fleet
	get("/vehicles", ListVehiclesHandler(deps))
	get("/vehicles/:id", GetVehicleHandler(deps))
	get("/gtfs-rt/vehicle-positions", VehiclePositionsFeedHandler(deps))

	// Journey planner
	get("/journeys", JourneyHandler(deps))

	// Map sources
	get("/map/routes", MapRoutesHandler(deps))
	get("/map/vehicles", MapVehiclesHandler(deps))
	get("/map/stops", MapStopsHandler(deps))

	// Upstream proxy
	get("/geocode", GeocodeHandler(deps))
	get("/directions", DirectionsHandler(deps))
	post("/summaries", SummaryHandler(deps))

	// Recent searches
	get("/recent-searches", ListRecentHandler(deps))
	post("/recent-searches", AddRecentHandler(deps))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app, DefaultSpecPath)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps)))
}
