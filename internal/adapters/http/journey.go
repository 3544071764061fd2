package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/campusride/internal/adapters/mapsource"
	"github.com/samirrijal/campusride/internal/core/domain"
	"github.com/samirrijal/campusride/internal/core/usecases"
)

// JourneyResponse is a planned journey, with map sources when include=geojson.
type JourneyResponse struct {
	Journey *domain.Journey    `json:"journey"`
	Map     *mapsource.Sources `json:"map,omitempty"`
}

// JourneyHandler plans a walk/bus journey.
// Query params: from_lat, from_lon, then either to_lat, to_lon (and optional
// to_name) or q for a free-text destination. at (RFC 3339) defaults to now.
func JourneyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Journeys == nil {
			return errUnavailable(c, "journey planner not configured")
		}
		origin, ok := queryPoint(c, "from_lat", "from_lon")
		if !ok {
			return errBadRequest(c, "from_lat and from_lon are required")
		}

		at := time.Now()
		if raw := c.Query("at"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return errBadRequest(c, "at must be an RFC 3339 timestamp")
			}
			at = t
		}

		ctx := c.UserContext()
		var (
			journey *domain.Journey
			err     error
		)
		if to, ok := queryPoint(c, "to_lat", "to_lon"); ok {
			name := c.Query("to_name", "Destination")
			journey, err = deps.Journeys.Plan(ctx, origin, domain.Destination{Name: name, Location: to}, at)
		} else if q := c.Query("q"); q != "" {
			if len(q) > 200 {
				return errBadRequest(c, "query too long (max 200 characters)")
			}
			journey, err = deps.Journeys.PlanToQuery(ctx, origin, q, at)
		} else {
			return errBadRequest(c, "either to_lat and to_lon or q is required")
		}
		if err != nil {
			return errFromDomain(c, err)
		}

		resp := JourneyResponse{Journey: journey}
		if c.Query("include") == "geojson" {
			src := mapsource.JourneySources(journey, shapeLookup(ctx, deps.Routes))
			resp.Map = &src
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(resp)
	}
}

// shapeLookup resolves route geometry for map sources.
func shapeLookup(ctx context.Context, routes *usecases.RouteService) mapsource.ShapeLookup {
	if routes == nil {
		return nil
	}
	return func(routeID string) (mapsource.RouteShape, bool) {
		route, err := routes.GetByID(ctx, routeID)
		if err != nil {
			return mapsource.RouteShape{}, false
		}
		return mapsource.RouteShape{Line: routes.ResolveShape(ctx, route), Loop: route.Loop}, true
	}
}
