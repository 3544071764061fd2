package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/campusride/internal/core/domain"
)

// ListStopsHandler returns every stop, paginated.
func ListStopsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stops, err := deps.Stops.List(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		page, pg := paginate(c, stops, 100, 500)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// NearbyStopsHandler returns stops within a radius of a point.
func NearbyStopsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := queryPoint(c, "lat", "lon")
		if !ok {
			return errBadRequest(c, "lat and lon are required")
		}
		radius := c.QueryFloat("radius", 500)
		if radius <= 0 || radius > 10000 {
			return errBadRequest(c, "radius must be between 1 and 10000 meters")
		}
		limit := c.QueryInt("limit", 20)

		stops, err := deps.Stops.FindNearby(c.UserContext(), p.Lat, p.Lon, radius, limit)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(stops)
	}
}

// SearchStopsHandler matches stop names.
func SearchStopsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := c.Query("q")
		if query == "" {
			return errBadRequest(c, "q query parameter is required")
		}
		if len(query) > 200 {
			return errBadRequest(c, "query too long (max 200 characters)")
		}
		limit := c.QueryInt("limit", 20)
		if limit <= 0 || limit > 100 {
			limit = 20
		}

		stops, err := deps.Stops.Search(c.UserContext(), query, limit)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(stops)
	}
}

// GetStopHandler returns a single stop by ID.
func GetStopHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stop, err := deps.Stops.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(stop)
	}
}

// StopRoutesHandler returns the routes serving a stop.
func StopRoutesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		id := c.Params("id")
		if _, err := deps.Stops.GetByID(ctx, id); err != nil {
			return errFromDomain(c, err)
		}
		routes, err := deps.Routes.ListByStop(ctx, id)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(routes)
	}
}

// ListRoutesHandler returns every route with its ordered stops.
func ListRoutesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		routes, err := deps.Routes.List(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		page, pg := paginate(c, routes, 100, 500)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// GetRouteHandler returns a route by ID.
func GetRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		route, err := deps.Routes.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(route)
	}
}

// RouteShapeHandler returns the route's resolved geometry as a GeoJSON Feature.
func RouteShapeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		route, err := deps.Routes.GetByID(ctx, c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		f := geojson.NewFeature(deps.Routes.ResolveShape(ctx, route))
		f.ID = route.ID
		f.Properties["routeId"] = route.ID
		f.Properties["name"] = route.Name
		f.Properties["color"] = route.Color
		f.Properties["loop"] = route.Loop
		return c.JSON(f)
	}
}

// RouteOverlapsHandler splits a route's geometry into runs shared with, or
// distinct from, the route named by the with query parameter.
func RouteOverlapsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		with := c.Query("with")
		if with == "" {
			return errBadRequest(c, "with query parameter is required")
		}
		runs, err := deps.Routes.Overlaps(c.UserContext(), id, with)
		if err != nil {
			return errFromDomain(c, err)
		}

		fc := geojson.NewFeatureCollection()
		for i, run := range runs {
			f := geojson.NewFeature(run.Line)
			f.ID = fmt.Sprintf("%s-%d", id, i)
			f.Properties["routeId"] = id
			f.Properties["with"] = with
			f.Properties["overlap"] = run.Overlapping
			fc.Append(f)
		}
		return c.JSON(fc)
	}
}

// RouteVehiclesHandler returns live vehicles on a route.
func RouteVehiclesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := deps.Routes.GetByID(c.UserContext(), id); err != nil {
			return errFromDomain(c, err)
		}
		if deps.Fleet == nil {
			return c.JSON([]domain.Vehicle{})
		}
		return c.JSON(deps.Fleet.VehiclesByRoute(id))
	}
}

// ListVehiclesHandler returns the whole live fleet, optionally filtered by route_id.
func ListVehiclesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Fleet == nil {
			return c.JSON([]domain.Vehicle{})
		}
		if routeID := c.Query("route_id"); routeID != "" {
			return c.JSON(deps.Fleet.VehiclesByRoute(routeID))
		}
		return c.JSON(deps.Fleet.Vehicles())
	}
}

// GetVehicleHandler returns one vehicle.
func GetVehicleHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Fleet == nil {
			return errNotFound(c, "vehicle not found")
		}
		v, ok := deps.Fleet.Vehicle(c.Params("id"))
		if !ok {
			return errNotFound(c, "vehicle not found")
		}
		return c.JSON(v)
	}
}

// queryPoint parses a coordinate pair from the query string.
func queryPoint(c *fiber.Ctx, latKey, lonKey string) (domain.GeoPoint, bool) {
	if c.Query(latKey) == "" || c.Query(lonKey) == "" {
		return domain.GeoPoint{}, false
	}
	p := domain.GeoPoint{Lat: c.QueryFloat(latKey, 0), Lon: c.QueryFloat(lonKey, 0)}
	return p, p.Valid()
}
