package http

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/campusride/internal/core/domain"
	"github.com/samirrijal/campusride/internal/core/ports"
)

// GeocodeHandler resolves free text into places, optionally biased by lat/lon.
func GeocodeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Proxy == nil {
			return errUnavailable(c, "geocoding not configured")
		}
		q := strings.TrimSpace(c.Query("q"))
		if q == "" {
			return errBadRequest(c, "q query parameter is required")
		}
		if len(q) > 200 {
			return errBadRequest(c, "query too long (max 200 characters)")
		}
		var near *domain.GeoPoint
		if p, ok := queryPoint(c, "lat", "lon"); ok {
			near = &p
		}

		places, err := deps.Proxy.Geocode(c.UserContext(), q, near)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(places)
	}
}

// DirectionsHandler proxies the directions provider.
// waypoints is a semicolon separated list of lon,lat pairs.
func DirectionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Proxy == nil {
			return errUnavailable(c, "directions not configured")
		}
		profile := c.Query("profile", ports.ProfileWalking)
		if profile != ports.ProfileWalking && profile != ports.ProfileDriving {
			return errBadRequest(c, "profile must be walking or driving")
		}
		waypoints, err := parseWaypoints(c.Query("waypoints"))
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		dir, err := deps.Proxy.Directions(c.UserContext(), profile, waypoints)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(dir)
	}
}

func parseWaypoints(raw string) ([]domain.GeoPoint, error) {
	if raw == "" {
		return nil, fiber.NewError(fiber.StatusBadRequest, "waypoints query parameter is required")
	}
	parts := strings.Split(raw, ";")
	if len(parts) < 2 || len(parts) > 25 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "waypoints must hold between 2 and 25 lon,lat pairs")
	}
	out := make([]domain.GeoPoint, 0, len(parts))
	for _, part := range parts {
		lonStr, latStr, ok := strings.Cut(strings.TrimSpace(part), ",")
		if !ok {
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid waypoint "+part)
		}
		lon, errLon := strconv.ParseFloat(lonStr, 64)
		lat, errLat := strconv.ParseFloat(latStr, 64)
		p := domain.GeoPoint{Lat: lat, Lon: lon}
		if errLon != nil || errLat != nil || !p.Valid() {
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid waypoint "+part)
		}
		out = append(out, p)
	}
	return out, nil
}

type summaryRequest struct {
	Text string `json:"text"`
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

// SummaryHandler condenses a service notice with the language model.
func SummaryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Proxy == nil {
			return errUnavailable(c, "summaries not configured")
		}
		var req summaryRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if len(req.Text) > 8000 {
			return errBadRequest(c, "text too long (max 8000 characters)")
		}
		summary, err := deps.Proxy.Summarize(c.UserContext(), req.Text)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(summaryResponse{Summary: summary})
	}
}
