package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Handlers that set their own header win.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if existing := c.GetRespHeader(fiber.HeaderCacheControl); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/metrics":
			ttl = "no-cache"

		// Live positions move every tick
		case path == "/v1/vehicles" || strings.HasPrefix(path, "/v1/vehicles/") ||
			strings.HasSuffix(path, "/vehicles") || strings.HasPrefix(path, "/v1/gtfs-rt/"):
			ttl = "no-cache"

		case strings.HasPrefix(path, "/v1/recent-searches"):
			ttl = "private, no-store"

		case strings.HasPrefix(path, "/v1/journeys"):
			ttl = "no-store"

		case strings.HasPrefix(path, "/v1/geocode"):
			ttl = "public, max-age=300"

		case strings.HasPrefix(path, "/v1/directions"):
			ttl = "public, max-age=3600"

		case strings.HasPrefix(path, "/v1/stops/nearby"), strings.HasPrefix(path, "/v1/stops/search"):
			ttl = "public, max-age=300"

		// Reference data changes only when the catalog is reloaded
		case strings.HasPrefix(path, "/v1/stops"), strings.HasPrefix(path, "/v1/routes"),
			path == "/v1/map/routes", path == "/v1/map/stops":
			ttl = "public, max-age=600"

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=60"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}
