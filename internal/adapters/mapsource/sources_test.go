package mapsource

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/campusride/internal/core/domain"
)

var (
	union  = domain.GeoPoint{Lat: 35.9105, Lon: -79.0478}
	kenan  = domain.GeoPoint{Lat: 35.9069, Lon: -79.0478}
	dean   = domain.GeoPoint{Lat: 35.8999, Lon: -79.0438}
	target = domain.GeoPoint{Lat: 35.8995, Lon: -79.0435}
)

func ruShape() orb.LineString {
	return orb.LineString{
		union.LngLat(),
		{-79.0479, 35.9090},
		kenan.LngLat(),
		{-79.0460, 35.9030},
		dean.LngLat(),
		{-79.0450, 35.9060},
		union.LngLat(),
	}
}

func ruLookup(id string) (RouteShape, bool) {
	if id == "RU" {
		return RouteShape{Line: ruShape(), Loop: true}, true
	}
	return RouteShape{}, false
}

func sampleJourney() *domain.Journey {
	return &domain.Journey{
		ID:          "j-1",
		Destination: domain.Destination{Name: "Dean Smith Center", Location: target},
		Segments: []domain.Segment{
			&domain.WalkSegment{Leg: domain.Leg{From: union, To: union, FromName: "Your location", ToName: "Student Union"}},
			&domain.BusSegment{
				Leg:        domain.Leg{From: union, To: dean, FromName: "Student Union", ToName: "Dean Smith Center", DurationMin: 4},
				RouteID:    "RU",
				RouteName:  "RU Route",
				StopIDs:    []string{"student-union", "kenan-stadium", "dean-smith-center"},
				StopsCount: 2,
			},
			&domain.WalkSegment{Leg: domain.Leg{
				From: dean, To: target, FromName: "Dean Smith Center", ToName: "Dean Smith Center",
				Geometry: orb.LineString{dean.LngLat(), {-79.0437, 35.8997}, target.LngLat()},
			}},
		},
	}
}

func TestJourneySources_Empty(t *testing.T) {
	for _, j := range []*domain.Journey{nil, {ID: "empty"}} {
		src := JourneySources(j, nil)
		require.NotNil(t, src.Lines)
		require.NotNil(t, src.Points)
		assert.Empty(t, src.Lines.Features)
		assert.Empty(t, src.Points.Features)

		data, err := json.Marshal(src)
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(data), `"features":[]`), string(data))
	}
}

func TestJourneySources_BusFollowsShape(t *testing.T) {
	src := JourneySources(sampleJourney(), ruLookup)

	require.Len(t, src.Lines.Features, 3)
	walk, bus, tail := src.Lines.Features[0], src.Lines.Features[1], src.Lines.Features[2]

	assert.Equal(t, SegmentWalk, walk.Properties["segmentType"])
	assert.Equal(t, true, walk.Properties["dashed"])

	assert.Equal(t, SegmentBus, bus.Properties["segmentType"])
	assert.Equal(t, "RU", bus.Properties["routeId"])
	line := bus.Geometry.(orb.LineString)
	assert.Equal(t, ruShape()[:5], line, "bus leg should follow the road from union to dean")

	assert.Len(t, tail.Geometry.(orb.LineString), 3, "walk geometry from directions is kept")

	require.Len(t, src.Points.Features, 3)
	assert.Equal(t, StopBoarding, src.Points.Features[0].Properties["stopType"])
	assert.Equal(t, "student-union", src.Points.Features[0].ID)
	assert.Equal(t, StopAlighting, src.Points.Features[1].Properties["stopType"])
	assert.Equal(t, "dean-smith-center", src.Points.Features[1].ID)
	dest := src.Points.Features[2]
	assert.Equal(t, StopDestination, dest.Properties["stopType"])
	assert.Equal(t, "Dean Smith Center", dest.Properties["name"])
	assert.Equal(t, target.LngLat(), dest.Geometry)
}

func TestJourneySources_LoopRideWrapsForward(t *testing.T) {
	// Dean Smith back to the Student Union continues around the loop
	j := &domain.Journey{
		ID:          "j-2",
		Destination: domain.Destination{Name: "Student Union", Location: union},
		Segments: []domain.Segment{
			&domain.BusSegment{
				Leg:        domain.Leg{From: dean, To: union, FromName: "Dean Smith Center", ToName: "Student Union", DurationMin: 3},
				RouteID:    "RU",
				RouteName:  "RU Route",
				StopIDs:    []string{"dean-smith-center", "student-union"},
				StopsCount: 1,
			},
		},
	}
	src := JourneySources(j, ruLookup)
	require.Len(t, src.Lines.Features, 1)
	line := src.Lines.Features[0].Geometry.(orb.LineString)
	assert.Equal(t, ruShape()[4:], line)
	assert.NotContains(t, line, kenan.LngLat(), "must not run back past Kenan Stadium")

	// Dean Smith to Kenan passes through the union at the loop seam
	bus := j.Segments[0].(*domain.BusSegment)
	bus.To, bus.ToName = kenan, "Kenan Stadium"
	bus.StopIDs = []string{"dean-smith-center", "student-union", "kenan-stadium"}
	src = JourneySources(j, ruLookup)
	line = src.Lines.Features[0].Geometry.(orb.LineString)
	want := append(orb.LineString{}, ruShape()[4:]...)
	want = append(want, ruShape()[1:3]...)
	assert.Equal(t, want, line)
}

func TestJourneySources_BusWithoutShapeIsStraight(t *testing.T) {
	src := JourneySources(sampleJourney(), nil)
	line := src.Lines.Features[1].Geometry.(orb.LineString)
	assert.Equal(t, orb.LineString{union.LngLat(), dean.LngLat()}, line)
}

func TestVehicleSources(t *testing.T) {
	fc := VehicleSources([]domain.Vehicle{
		{ID: "RU-1", RouteID: "RU", Location: kenan, Heading: 180, NextStopID: "dean-smith-center", NextStopETAMin: 1.5},
	})
	require.Len(t, fc.Features, 1)
	f := fc.Features[0]
	assert.Equal(t, "RU-1", f.Properties["busId"])
	assert.Equal(t, "RU", f.Properties["routeId"])
	assert.Equal(t, 180.0, f.Properties["bearing"])
	assert.Equal(t, kenan.LngLat(), f.Geometry)
}

func TestStopSources_Selected(t *testing.T) {
	fc := StopSources([]domain.Stop{
		{ID: "student-union", Name: "Student Union", Location: union},
		{ID: "kenan-stadium", Name: "Kenan Stadium", Location: kenan},
	}, "kenan-stadium")
	require.Len(t, fc.Features, 2)
	assert.Equal(t, false, fc.Features[0].Properties["selected"])
	assert.Equal(t, true, fc.Features[1].Properties["selected"])
}

func TestRouteSources_SplitsSharedCorridor(t *testing.T) {
	ru := domain.Route{ID: "RU", Shape: orb.LineString{
		{-79.060, 35.910}, {-79.058, 35.910}, {-79.056, 35.910}, {-79.054, 35.910}, {-79.052, 35.910},
	}}
	ns := domain.Route{ID: "NS", Shape: orb.LineString{
		{-79.056, 35.910}, {-79.054, 35.910}, {-79.052, 35.910}, {-79.052, 35.920},
	}}

	fc := RouteSources([]domain.Route{ru, ns}, 4)

	var ruRuns []bool
	for _, f := range fc.Features {
		if f.Properties["routeId"] == "RU" {
			ruRuns = append(ruRuns, f.Properties["overlap"].(bool))
		}
	}
	assert.Equal(t, []bool{false, true}, ruRuns)
}

func TestRouteSources_SingleRouteIsOneRun(t *testing.T) {
	fc := RouteSources([]domain.Route{{ID: "U", Shape: ruShape()}}, 4)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, false, fc.Features[0].Properties["overlap"])
}
