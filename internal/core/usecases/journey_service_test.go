package usecases_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/samirrijal/campusride/internal/adapters/static"
	"github.com/samirrijal/campusride/internal/core/domain"
	"github.com/samirrijal/campusride/internal/core/usecases"
)

var (
	studentUnion = domain.GeoPoint{Lat: 35.9105, Lon: -79.0478}
	deanSmith    = domain.GeoPoint{Lat: 35.8999, Lon: -79.0438}
	planAt       = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
)

func campusPlanner(t *testing.T, opts usecases.PlannerOptions) *usecases.JourneyService {
	t.Helper()
	c, err := static.Load()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return usecases.NewJourneyService(c.Stops(), c.Routes(), nil, nil, nil, opts)
}

func assertContinuous(t *testing.T, j *domain.Journey) {
	t.Helper()
	for i := 1; i < len(j.Segments); i++ {
		prev, next := j.Segments[i-1].Base(), j.Segments[i].Base()
		if prev.To != next.From {
			t.Errorf("segment %d ends at %v but segment %d starts at %v", i-1, prev.To, i, next.From)
		}
		if prev.ToName != next.FromName {
			t.Errorf("segment %d ends at %q but segment %d starts at %q", i-1, prev.ToName, i, next.FromName)
		}
	}
}

func TestJourneyService_UnionToDeanSmith(t *testing.T) {
	svc := campusPlanner(t, usecases.DefaultPlannerOptions())

	j, err := svc.Plan(context.Background(), studentUnion,
		domain.Destination{ID: "dean", Name: "Dean Smith Center", Location: deanSmith}, planAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(j.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(j.Segments))
	}
	want := []domain.SegmentType{domain.SegmentWalk, domain.SegmentBus, domain.SegmentWalk}
	for i, seg := range j.Segments {
		if seg.Type() != want[i] {
			t.Errorf("segment %d: expected %s, got %s", i, want[i], seg.Type())
		}
	}
	assertContinuous(t, j)

	bus, ok := j.Bus()
	if !ok {
		t.Fatal("expected a bus segment")
	}
	if bus.RouteID != "RU" {
		t.Errorf("expected RU route, got %s", bus.RouteID)
	}
	if bus.StopsCount != 4 || len(bus.StopIDs) != 5 {
		t.Errorf("expected 4 hops over 5 stops, got %d hops, %v", bus.StopsCount, bus.StopIDs)
	}
	if bus.WaitTimeMin != 5 {
		t.Errorf("expected default 5 min wait, got %d", bus.WaitTimeMin)
	}

	if j.TotalDurationMin <= 0 {
		t.Fatalf("expected positive duration, got %d", j.TotalDurationMin)
	}
	sum := 0
	for _, seg := range j.Segments {
		sum += seg.Base().DurationMin + seg.Wait()
	}
	if sum != j.TotalDurationMin {
		t.Errorf("total %d does not match segment sum %d", j.TotalDurationMin, sum)
	}
	if !j.ArrivalTime.Equal(planAt.Add(time.Duration(j.TotalDurationMin) * time.Minute)) {
		t.Errorf("arrival %v inconsistent with total %d", j.ArrivalTime, j.TotalDurationMin)
	}
	if j.ID == "" {
		t.Error("expected journey id")
	}
}

func TestJourneyService_ShortHopWalks(t *testing.T) {
	svc := campusPlanner(t, usecases.DefaultPlannerOptions())

	origin := domain.GeoPoint{Lat: 35.9106, Lon: -79.0479}
	dest := domain.Destination{Name: "Union Plaza", Location: domain.GeoPoint{Lat: 35.9104, Lon: -79.0477}}

	j, err := svc.Plan(context.Background(), origin, dest, planAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !j.WalkOnly() {
		t.Fatalf("expected a single walk segment, got %d segments", len(j.Segments))
	}
	leg := j.Segments[0].Base()
	if leg.From != origin || leg.To != dest.Location {
		t.Errorf("walk should run from raw origin to raw destination")
	}
	if j.Guidance == nil || j.Guidance.LeaveAt != nil {
		t.Errorf("walk-only guidance should carry no leave time: %+v", j.Guidance)
	}
}

func TestJourneyService_NoStops(t *testing.T) {
	svc := usecases.NewJourneyService(&mockStopRepo{}, &mockRouteRepo{}, nil, nil, nil, usecases.DefaultPlannerOptions())

	_, err := svc.Plan(context.Background(), studentUnion, domain.Destination{Location: deanSmith}, planAt)
	if !errors.Is(err, domain.ErrNoStops) {
		t.Fatalf("expected ErrNoStops, got %v", err)
	}
}

func TestJourneyService_InvalidCoordinates(t *testing.T) {
	svc := campusPlanner(t, usecases.DefaultPlannerOptions())

	_, err := svc.Plan(context.Background(), domain.GeoPoint{Lat: 91}, domain.Destination{Location: deanSmith}, planAt)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

// twoStopNetwork is a single open route A → B running north to south.
func twoStopNetwork() (*mockStopRepo, *mockRouteRepo) {
	a := domain.Stop{ID: "a", Name: "A", Location: domain.GeoPoint{Lat: 35.9200, Lon: -79.0500}}
	b := domain.Stop{ID: "b", Name: "B", Location: domain.GeoPoint{Lat: 35.8900, Lon: -79.0500}}
	stops := &mockStopRepo{listFn: func(ctx context.Context) ([]domain.Stop, error) {
		return []domain.Stop{a, b}, nil
	}}
	routes := &mockRouteRepo{routes: []domain.Route{{
		ID:    "line",
		Name:  "Line",
		Stops: []domain.RouteStop{{Stop: a, Order: 1}, {Stop: b, Order: 2}},
	}}}
	return stops, routes
}

func TestJourneyService_OpenRouteWrongDirectionWalks(t *testing.T) {
	stops, routes := twoStopNetwork()
	svc := usecases.NewJourneyService(stops, routes, nil, nil, nil, usecases.DefaultPlannerOptions())

	// B → A against an open route
	j, err := svc.Plan(context.Background(),
		domain.GeoPoint{Lat: 35.8900, Lon: -79.0500},
		domain.Destination{Name: "A", Location: domain.GeoPoint{Lat: 35.9200, Lon: -79.0500}}, planAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !j.WalkOnly() {
		t.Fatalf("expected walk-only journey against route direction")
	}
}

func TestJourneyService_LoopRouteWrapsAround(t *testing.T) {
	stops, routes := twoStopNetwork()
	routes.routes[0].Loop = true
	svc := usecases.NewJourneyService(stops, routes, nil, nil, nil, usecases.DefaultPlannerOptions())

	j, err := svc.Plan(context.Background(),
		domain.GeoPoint{Lat: 35.8900, Lon: -79.0500},
		domain.Destination{Name: "A", Location: domain.GeoPoint{Lat: 35.9200, Lon: -79.0500}}, planAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bus, ok := j.Bus()
	if !ok {
		t.Fatalf("expected bus on loop route")
	}
	if bus.StopIDs[0] != "b" || bus.StopIDs[len(bus.StopIDs)-1] != "a" {
		t.Errorf("expected ride b → a, got %v", bus.StopIDs)
	}
}

func TestJourneyService_WalkWinsTies(t *testing.T) {
	stops, routes := twoStopNetwork()
	opts := usecases.DefaultPlannerOptions()
	// a 3.3 km ride that takes as long as walking it
	opts.BusSpeedMps = 1.4
	opts.DefaultWaitMin = 0
	svc := usecases.NewJourneyService(stops, routes, nil, nil, nil, opts)

	j, err := svc.Plan(context.Background(),
		domain.GeoPoint{Lat: 35.9200, Lon: -79.0500},
		domain.Destination{Name: "B", Location: domain.GeoPoint{Lat: 35.8900, Lon: -79.0500}}, planAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !j.WalkOnly() {
		t.Fatalf("expected walking to win an equal-duration comparison")
	}
}

func TestJourneyService_UsesFleetETA(t *testing.T) {
	c, _ := static.Load()
	arrivals := &mockArrivals{eta: map[string]float64{"RU|student-union": 1.2}}
	svc := usecases.NewJourneyService(c.Stops(), c.Routes(), arrivals, nil, nil, usecases.DefaultPlannerOptions())

	j, err := svc.Plan(context.Background(), studentUnion, domain.Destination{Name: "Dean Smith Center", Location: deanSmith}, planAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bus, ok := j.Bus()
	if !ok {
		t.Fatal("expected bus")
	}
	if bus.WaitTimeMin != 2 {
		t.Errorf("expected wait rounded up to 2, got %d", bus.WaitTimeMin)
	}
	if j.Guidance == nil || !j.Guidance.LeaveNow {
		t.Errorf("expected leave-now guidance, got %+v", j.Guidance)
	}
}

func TestJourneyService_LiveDirections(t *testing.T) {
	c, _ := static.Load()
	dirs := &mockDirections{fn: func(profile string, wp []domain.GeoPoint) (*domain.Directions, error) {
		return &domain.Directions{
			Geometry:       orb.LineString{wp[0].LngLat(), {-79.0470, 35.9100}, wp[1].LngLat()},
			DistanceMeters: 150,
			DurationSec:    130,
			Steps:          []domain.Step{{Instruction: "Head south", DistanceMeters: 150}},
		}, nil
	}}
	svc := usecases.NewJourneyService(c.Stops(), c.Routes(), nil, dirs, nil, usecases.DefaultPlannerOptions())

	origin := domain.GeoPoint{Lat: 35.9106, Lon: -79.0479}
	dest := domain.Destination{Name: "Plaza", Location: domain.GeoPoint{Lat: 35.9104, Lon: -79.0477}}
	j, err := svc.Plan(context.Background(), origin, dest, planAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	leg := j.Segments[0].Base()
	if leg.DistanceMeters != 150 || leg.DurationMin != 3 {
		t.Errorf("expected routed 150m/3min, got %.0fm/%dmin", leg.DistanceMeters, leg.DurationMin)
	}
	if len(leg.Steps) != 1 {
		t.Errorf("expected steps from directions")
	}
	if leg.Geometry[0] != origin.LngLat() || leg.Geometry[len(leg.Geometry)-1] != dest.Location.LngLat() {
		t.Errorf("routed geometry must start and end at the leg endpoints")
	}
}

func TestJourneyService_DirectionsFailureFallsBack(t *testing.T) {
	c, _ := static.Load()
	dirs := &mockDirections{} // always fails
	svc := usecases.NewJourneyService(c.Stops(), c.Routes(), nil, dirs, nil, usecases.DefaultPlannerOptions())

	j, err := svc.Plan(context.Background(), studentUnion, domain.Destination{Name: "Dean Smith Center", Location: deanSmith}, planAt)
	if err != nil {
		t.Fatalf("directions failure must not surface: %v", err)
	}
	if len(j.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(j.Segments))
	}
	assertContinuous(t, j)
}

func TestJourneyService_PlanToQuery(t *testing.T) {
	c, _ := static.Load()
	geo := &mockGeocoder{fn: func(q string) ([]domain.Place, error) {
		return []domain.Place{{ID: "poi.1", DisplayName: "Dean Smith Center", Location: deanSmith}}, nil
	}}
	svc := usecases.NewJourneyService(c.Stops(), c.Routes(), nil, nil, geo, usecases.DefaultPlannerOptions())

	j, err := svc.PlanToQuery(context.Background(), studentUnion, "dean dome", planAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if j.Destination.Name != "Dean Smith Center" {
		t.Errorf("expected geocoded destination, got %q", j.Destination.Name)
	}
}

func TestJourneyService_PlanToQuery_Unresolved(t *testing.T) {
	c, _ := static.Load()
	tests := []struct {
		name string
		geo  *mockGeocoder
	}{
		{"no matches", &mockGeocoder{}},
		{"geocoder error", &mockGeocoder{fn: func(string) ([]domain.Place, error) { return nil, errors.New("boom") }}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := usecases.NewJourneyService(c.Stops(), c.Routes(), nil, nil, tt.geo, usecases.DefaultPlannerOptions())
			_, err := svc.PlanToQuery(context.Background(), studentUnion, "nowhere", planAt)
			if !errors.Is(err, domain.ErrDestinationUnresolved) {
				t.Fatalf("expected ErrDestinationUnresolved, got %v", err)
			}
		})
	}
}

func TestJourney_JSONDiscriminator(t *testing.T) {
	svc := campusPlanner(t, usecases.DefaultPlannerOptions())
	j, err := svc.Plan(context.Background(), studentUnion, domain.Destination{Name: "Dean Smith Center", Location: deanSmith}, planAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := json.Marshal(j)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded domain.Journey
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	bus, ok := decoded.Segments[1].(*domain.BusSegment)
	if !ok {
		t.Fatalf("expected *BusSegment, got %T", decoded.Segments[1])
	}
	if bus.RouteID != "RU" || len(bus.StopIDs) != 5 {
		t.Errorf("bus fields lost in round trip: %+v", bus)
	}
}

func TestLeaveBy(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	t.Run("no eta", func(t *testing.T) {
		g := usecases.LeaveBy(now, 7, nil, 90*time.Second)
		if g.LeaveNow || g.LeaveAt != nil {
			t.Errorf("expected no leave advice, got %+v", g)
		}
		if g.Message != "About 7 min on foot" {
			t.Errorf("unexpected message %q", g.Message)
		}
	})

	t.Run("tight", func(t *testing.T) {
		eta := 5.0
		g := usecases.LeaveBy(now, 4, &eta, 90*time.Second)
		if !g.LeaveNow {
			t.Errorf("expected leave now, got %+v", g)
		}
	})

	t.Run("slack", func(t *testing.T) {
		eta := 12.0
		g := usecases.LeaveBy(now, 4, &eta, 90*time.Second)
		if g.LeaveAt == nil {
			t.Fatalf("expected leave time, got %+v", g)
		}
		want := now.Add(6*time.Minute + 30*time.Second)
		if !g.LeaveAt.Equal(want) {
			t.Errorf("expected %v, got %v", want, g.LeaveAt)
		}
		if g.Message != "Leave at 09:06" {
			t.Errorf("unexpected message %q", g.Message)
		}
	})
}
