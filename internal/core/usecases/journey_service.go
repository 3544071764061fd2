package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/campusride/internal/core/domain"
	"github.com/samirrijal/campusride/internal/core/ports"
	"github.com/samirrijal/campusride/internal/pkg/geospatial"
	"github.com/samirrijal/campusride/internal/pkg/metrics"
	"github.com/samirrijal/campusride/internal/pkg/telemetry"
)

// PlannerOptions tunes journey composition.
type PlannerOptions struct {
	// WalkPreferredMeters collapses a journey to walking when the nearest
	// stops to origin and destination are closer than this.
	WalkPreferredMeters float64
	BusSpeedMps         float64
	DefaultWaitMin      int
	LeaveBuffer         time.Duration
	LiveDirections      bool
}

// DefaultPlannerOptions mirrors the configuration defaults.
func DefaultPlannerOptions() PlannerOptions {
	return PlannerOptions{
		WalkPreferredMeters: 200,
		BusSpeedMps:         5.56,
		DefaultWaitMin:      5,
		LeaveBuffer:         90 * time.Second,
		LiveDirections:      true,
	}
}

// JourneyService composes walk/bus itineraries over the stop network.
type JourneyService struct {
	stops      ports.StopRepository
	routes     ports.RouteRepository
	arrivals   ports.ArrivalEstimator
	directions ports.DirectionsProvider
	geocoder   ports.Geocoder
	opts       PlannerOptions
}

// NewJourneyService creates a new JourneyService. arrivals, directions and
// geocoder are optional.
func NewJourneyService(
	stops ports.StopRepository,
	routes ports.RouteRepository,
	arrivals ports.ArrivalEstimator,
	directions ports.DirectionsProvider,
	geocoder ports.Geocoder,
	opts PlannerOptions,
) *JourneyService {
	if opts.BusSpeedMps <= 0 {
		opts.BusSpeedMps = DefaultPlannerOptions().BusSpeedMps
	}
	return &JourneyService{
		stops:      stops,
		routes:     routes,
		arrivals:   arrivals,
		directions: directions,
		geocoder:   geocoder,
		opts:       opts,
	}
}

// candidate is one walk + bus + walk option.
type candidate struct {
	route      domain.Route
	chain      []domain.Stop
	walkIn     float64
	walkInMin  int
	busMeters  float64
	busMin     int
	waitMin    int
	eta        *float64
	walkOut    float64
	walkOutMin int
}

func (c *candidate) total() int { return c.walkInMin + c.waitMin + c.busMin + c.walkOutMin }

// Plan composes a journey from origin to dest starting at at.
func (s *JourneyService) Plan(ctx context.Context, origin domain.GeoPoint, dest domain.Destination, at time.Time) (*domain.Journey, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanPlanJourney)
	defer span.End()
	start := time.Now()
	defer func() { metrics.JourneyPlanDuration.Observe(time.Since(start).Seconds()) }()

	if !origin.Valid() || !dest.Location.Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range", domain.ErrInvalidInput)
	}

	stops, err := s.stops.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stops: %w", err)
	}
	originStop, ok := geospatial.NearestStop(origin, stops)
	if !ok {
		return nil, domain.ErrNoStops
	}
	destStop, _ := geospatial.NearestStop(dest.Location, stops)

	walkMeters := geospatial.DistanceMeters(origin, dest.Location)
	walkMin := geospatial.WalkTimeMinutes(walkMeters)

	var best *candidate
	stopGap := geospatial.DistanceMeters(originStop.Location, destStop.Location)
	if originStop.ID != destStop.ID && stopGap >= s.opts.WalkPreferredMeters {
		routes, err := s.routes.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("load routes: %w", err)
		}
		for _, r := range routes {
			c := s.evaluate(r, origin, dest.Location)
			if c == nil {
				continue
			}
			if best == nil || c.total() < best.total() {
				best = c
			}
		}
	}

	var segments []domain.Segment
	var guidance domain.Guidance
	if best == nil || walkMin <= best.total() {
		segments = []domain.Segment{s.walkSegment(origin, "Your location", dest.Location, dest.Name, walkMeters)}
		guidance = LeaveBy(at, walkMin, nil, s.opts.LeaveBuffer)
		metrics.JourneysPlanned.WithLabelValues(string(domain.SegmentWalk)).Inc()
	} else {
		segments = s.transitSegments(origin, dest, best)
		guidance = LeaveBy(at, best.walkInMin, best.eta, s.opts.LeaveBuffer)
		metrics.JourneysPlanned.WithLabelValues(string(domain.SegmentBus)).Inc()
		span.SetAttributes(attribute.String("route.id", best.route.ID))
	}

	if s.opts.LiveDirections && s.directions != nil {
		s.enrichWalks(ctx, segments)
	}

	total := 0
	for _, seg := range segments {
		total += seg.Base().DurationMin + seg.Wait()
	}
	span.SetAttributes(attribute.Int("journey.segments", len(segments)), attribute.Int("journey.total_min", total))

	return &domain.Journey{
		ID:               uuid.NewString(),
		Origin:           origin,
		Destination:      dest,
		Segments:         segments,
		TotalDurationMin: total,
		StartTime:        at,
		ArrivalTime:      at.Add(time.Duration(total) * time.Minute),
		Guidance:         &guidance,
	}, nil
}

// PlanToQuery geocodes query near origin and plans to the best match.
func (s *JourneyService) PlanToQuery(ctx context.Context, origin domain.GeoPoint, query string, at time.Time) (*domain.Journey, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: destination query must not be empty", domain.ErrInvalidInput)
	}
	if s.geocoder == nil {
		return nil, domain.ErrDestinationUnresolved
	}
	places, err := s.geocoder.Geocode(ctx, query, &origin)
	if err != nil {
		slog.WarnContext(ctx, "destination geocode failed", "query", query, "error", err)
		return nil, domain.ErrDestinationUnresolved
	}
	if len(places) == 0 {
		return nil, domain.ErrDestinationUnresolved
	}
	return s.Plan(ctx, origin, places[0].Destination(), at)
}

// evaluate builds the candidate for riding r, or nil when r cannot carry the
// rider toward the destination.
func (s *JourneyService) evaluate(r domain.Route, origin, dest domain.GeoPoint) *candidate {
	if len(r.Stops) < 2 {
		return nil
	}
	routeStops := make([]domain.Stop, len(r.Stops))
	for i, rs := range r.Stops {
		routeStops[i] = rs.Stop
	}
	board, _ := geospatial.NearestStop(origin, routeStops)
	alight, _ := geospatial.NearestStop(dest, routeStops)
	bi, ai := r.StopIndex(board.ID), r.StopIndex(alight.ID)
	if bi == ai {
		return nil
	}
	if !r.Loop && ai < bi {
		return nil
	}

	chain := []domain.Stop{routeStops[bi]}
	var busMeters float64
	for i := bi; i != ai; {
		next := (i + 1) % len(routeStops)
		busMeters += geospatial.DistanceMeters(routeStops[i].Location, routeStops[next].Location)
		chain = append(chain, routeStops[next])
		i = next
	}

	c := &candidate{
		route:     r,
		chain:     chain,
		walkIn:    geospatial.DistanceMeters(origin, board.Location),
		busMeters: busMeters,
		walkOut:   geospatial.DistanceMeters(alight.Location, dest),
	}
	c.walkInMin = geospatial.WalkTimeMinutes(c.walkIn)
	c.walkOutMin = geospatial.WalkTimeMinutes(c.walkOut)
	c.busMin = geospatial.TravelMinutes(busMeters, s.opts.BusSpeedMps)
	if c.busMin < 1 {
		c.busMin = 1
	}

	c.waitMin = s.opts.DefaultWaitMin
	if s.arrivals != nil {
		walkIn := time.Duration(c.walkInMin) * time.Minute
		if eta, ok := s.arrivals.NextArrival(r.ID, board.ID, walkIn); ok {
			c.eta = &eta
			c.waitMin = int(math.Ceil(eta - float64(c.walkInMin)))
			if c.waitMin < 0 {
				c.waitMin = 0
			}
		}
	}
	return c
}

func (s *JourneyService) walkSegment(from domain.GeoPoint, fromName string, to domain.GeoPoint, toName string, meters float64) *domain.WalkSegment {
	return &domain.WalkSegment{Leg: domain.Leg{
		From:           from,
		To:             to,
		FromName:       fromName,
		ToName:         toName,
		DurationMin:    geospatial.WalkTimeMinutes(meters),
		DistanceMeters: meters,
		Instruction:    "Walk to " + toName,
		Geometry:       orb.LineString{from.LngLat(), to.LngLat()},
	}}
}

func (s *JourneyService) transitSegments(origin domain.GeoPoint, dest domain.Destination, c *candidate) []domain.Segment {
	board := c.chain[0]
	alight := c.chain[len(c.chain)-1]

	ids := make([]string, len(c.chain))
	line := make(orb.LineString, len(c.chain))
	for i, st := range c.chain {
		ids[i] = st.ID
		line[i] = st.Location.LngLat()
	}

	bus := &domain.BusSegment{
		Leg: domain.Leg{
			From:           board.Location,
			To:             alight.Location,
			FromName:       board.Name,
			ToName:         alight.Name,
			DurationMin:    c.busMin,
			DistanceMeters: c.busMeters,
			Instruction:    fmt.Sprintf("Take %s from %s to %s", c.route.Name, board.Name, alight.Name),
			Geometry:       line,
		},
		RouteID:     c.route.ID,
		RouteName:   c.route.Name,
		StopsCount:  len(c.chain) - 1,
		WaitTimeMin: c.waitMin,
		StopIDs:     ids,
	}

	return []domain.Segment{
		s.walkSegment(origin, "Your location", board.Location, board.Name, c.walkIn),
		bus,
		s.walkSegment(alight.Location, alight.Name, dest.Location, dest.Name, c.walkOut),
	}
}

// enrichWalks swaps straight-line walk estimates for routed ones. Failures keep
// the estimate.
func (s *JourneyService) enrichWalks(ctx context.Context, segments []domain.Segment) {
	for _, seg := range segments {
		if seg.Type() != domain.SegmentWalk {
			continue
		}
		leg := seg.Base()
		if leg.DistanceMeters <= 0 {
			continue
		}
		dir, err := s.directions.Directions(ctx, ports.ProfileWalking, []domain.GeoPoint{leg.From, leg.To})
		if err != nil || dir == nil || len(dir.Geometry) < 2 {
			slog.DebugContext(ctx, "walking directions unavailable, keeping estimate", "error", err)
			metrics.UpstreamFallbacks.WithLabelValues("directions").Inc()
			continue
		}
		leg.DistanceMeters = dir.DistanceMeters
		leg.DurationMin = int(math.Ceil(dir.DurationSec / 60))
		if leg.DurationMin < 1 {
			leg.DurationMin = 1
		}
		// keep endpoints exact so consecutive legs still join
		geom := make(orb.LineString, 0, len(dir.Geometry)+2)
		geom = append(geom, leg.From.LngLat())
		geom = append(geom, dir.Geometry...)
		geom = append(geom, leg.To.LngLat())
		leg.Geometry = geom
		leg.Steps = dir.Steps
	}
}

// LeaveBy turns the next bus ETA at the boarding stop into departure advice.
// Without an ETA it falls back to the walking estimate alone.
func LeaveBy(now time.Time, walkMin int, busETAMin *float64, buffer time.Duration) domain.Guidance {
	if busETAMin == nil {
		return domain.Guidance{
			Message: fmt.Sprintf("About %d min on foot", walkMin),
		}
	}
	slack := time.Duration(*busETAMin*float64(time.Minute)) - time.Duration(walkMin)*time.Minute - buffer
	if slack <= 0 {
		return domain.Guidance{LeaveNow: true, Message: "Leave now"}
	}
	at := now.Add(slack)
	return domain.Guidance{
		LeaveAt: &at,
		Message: "Leave at " + at.Format("15:04"),
	}
}
