package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/campusride/internal/adapters/gtfsrt"
	"github.com/samirrijal/campusride/internal/adapters/mapsource"
	"github.com/samirrijal/campusride/internal/core/domain"
)

// MapRoutesHandler returns every route as GeoJSON, split into shared and own corridor runs.
func MapRoutesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		routes, err := deps.Routes.ListWithShapes(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(mapsource.RouteSources(routes, deps.Routes.OverlapTolerance()))
	}
}

// MapVehiclesHandler returns the live fleet as GeoJSON points.
func MapVehiclesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(mapsource.VehicleSources(fleetSnapshot(deps)))
	}
}

// MapStopsHandler returns all stops as GeoJSON points, flagging ?selected=.
func MapStopsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stops, err := deps.Stops.List(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(mapsource.StopSources(stops, c.Query("selected")))
	}
}

// VehiclePositionsFeedHandler serves the fleet as a GTFS-Realtime FeedMessage.
func VehiclePositionsFeedHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, err := gtfsrt.Encode(fleetSnapshot(deps), time.Now())
		if err != nil {
			return errInternal(c, "encode feed: "+err.Error())
		}
		c.Set(fiber.HeaderContentType, gtfsrt.ContentType)
		c.Set("Cache-Control", "no-cache")
		return c.Send(data)
	}
}

func fleetSnapshot(deps *Dependencies) []domain.Vehicle {
	if deps.Fleet == nil {
		return []domain.Vehicle{}
	}
	return deps.Fleet.Vehicles()
}
