package usecases_test

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/campusride/internal/core/domain"
	"github.com/samirrijal/campusride/internal/core/ports"
	"github.com/samirrijal/campusride/internal/core/usecases"
	"github.com/samirrijal/campusride/internal/pkg/geospatial"
)

func newTestFleet(pub ports.EventPublisher, routes ...domain.Route) *usecases.FleetService {
	f := usecases.NewFleetService(geospatial.NewInterpolatorCache(16), pub, usecases.FleetOptions{
		Tick:             10 * time.Millisecond,
		VehiclesPerRoute: 2,
		SpeedMps:         10,
	})
	f.SetRoutes(routes)
	return f
}

func trackLength(t *testing.T, r domain.Route) *geospatial.Interpolator {
	t.Helper()
	mode := geospatial.Open
	if r.Loop {
		mode = geospatial.Loop
	}
	ip, err := geospatial.NewInterpolator(r.StopLine(), mode)
	require.NoError(t, err)
	return ip
}

func TestFleet_SeedsEvenlySpaced(t *testing.T) {
	r := loopRoute()
	f := newTestFleet(nil, r)
	ip := trackLength(t, r)

	vs := f.VehiclesByRoute("RU")
	require.Len(t, vs, 2)
	assert.Equal(t, "RU-1", vs[0].ID)
	assert.Equal(t, "RU-2", vs[1].ID)
	assert.InDelta(t, 0, vs[0].DistanceTraveled, 1e-9)
	assert.InDelta(t, ip.Length()/2, vs[1].DistanceTraveled, 1e-6)

	// the first vehicle starts on the first stop
	assert.InDelta(t, studentUnion.Lat, vs[0].Location.Lat, 1e-9)
	assert.InDelta(t, studentUnion.Lon, vs[0].Location.Lon, 1e-9)
}

func TestFleet_UpcomingStops(t *testing.T) {
	r := loopRoute()
	f := newTestFleet(nil, r)
	ip := trackLength(t, r)

	v, ok := f.Vehicle("RU-1")
	require.True(t, ok)
	require.Len(t, v.UpcomingStops, 3)

	// sitting on the union means it is being served now
	assert.Equal(t, "student-union", v.NextStopID)
	assert.Zero(t, v.NextStopETAMin)
	assert.Equal(t, "kenan-stadium", v.UpcomingStops[1].StopID)
	assert.Equal(t, "dean-smith-center", v.UpcomingStops[2].StopID)

	kenan := ip.DistanceAlong(r.Stops[1].Stop.Location.LngLat())
	assert.InDelta(t, kenan/10/60, v.UpcomingStops[1].ETAMin, 1e-9)

	for i := 1; i < len(v.UpcomingStops); i++ {
		assert.Greater(t, v.UpcomingStops[i].ETAMin, v.UpcomingStops[i-1].ETAMin)
	}
}

func TestFleet_TickAdvancesAndWraps(t *testing.T) {
	r := loopRoute()
	f := newTestFleet(nil, r)
	ip := trackLength(t, r)

	f.Tick(time.Second)
	v, _ := f.Vehicle("RU-1")
	assert.InDelta(t, 10, v.DistanceTraveled, 1e-6)

	// one and a half laps later the first vehicle is half way round
	lap := time.Duration(ip.Length() / 10 * float64(time.Second))
	f.Tick(lap + lap/2)
	v, _ = f.Vehicle("RU-1")
	assert.InDelta(t, ip.Length()/2+10, v.DistanceTraveled, 0.01)
	assert.Less(t, v.DistanceTraveled, ip.Length())
}

func TestFleet_OpenRouteRestarts(t *testing.T) {
	r := loopRoute()
	r.ID = "NS"
	r.Loop = false
	f := newTestFleet(nil, r)
	ip := trackLength(t, r)

	lap := time.Duration(ip.Length() / 10 * float64(time.Second))
	f.Tick(lap + 3*time.Second)
	v, _ := f.Vehicle("NS-1")
	assert.InDelta(t, 30, v.DistanceTraveled, 0.01)
}

func TestFleet_NextArrival(t *testing.T) {
	r := loopRoute()
	f := newTestFleet(nil, r)
	ip := trackLength(t, r)
	kenan := ip.DistanceAlong(r.Stops[1].Stop.Location.LngLat())

	eta, ok := f.NextArrival("RU", "kenan-stadium", 0)
	require.True(t, ok)
	assert.InDelta(t, kenan/10/60, eta, 1e-9)

	// a rider who cannot be there in time waits for a later bus
	notBefore := time.Duration(ip.Length() / 10 * float64(time.Second))
	eta, ok = f.NextArrival("RU", "kenan-stadium", notBefore)
	require.True(t, ok)
	assert.GreaterOrEqual(t, eta, notBefore.Minutes()-1e-9)
	assert.Less(t, eta, notBefore.Minutes()+ip.Length()/10/60)

	// RU-1 starts on the union, so no lap is added
	eta, ok = f.NextArrival("RU", "student-union", 0)
	require.True(t, ok)
	assert.Zero(t, eta)

	_, ok = f.NextArrival("RU", "old-well", 0)
	assert.False(t, ok)
	_, ok = f.NextArrival("ZZ", "kenan-stadium", 0)
	assert.False(t, ok)
}

func TestFleet_DegenerateRouteStaysPinned(t *testing.T) {
	r := domain.Route{ID: "X", Stops: []domain.RouteStop{
		{Stop: domain.Stop{ID: "student-union", Location: studentUnion}, Order: 1},
	}}
	f := newTestFleet(nil, r)

	f.Tick(10 * time.Second)
	vs := f.VehiclesByRoute("X")
	require.Len(t, vs, 2)
	for _, v := range vs {
		assert.Equal(t, studentUnion, v.Location)
		assert.Zero(t, v.DistanceTraveled)
		assert.Empty(t, v.UpcomingStops)
	}
	_, ok := f.NextArrival("X", "student-union", 0)
	assert.False(t, ok)
}

func TestFleet_SnapshotsAreCopies(t *testing.T) {
	f := newTestFleet(nil, loopRoute())

	vs := f.Vehicles()
	require.NotEmpty(t, vs[0].UpcomingStops)
	vs[0].UpcomingStops[0].StopID = "mutated"
	vs[0].Location = domain.GeoPoint{}

	v, _ := f.Vehicle(vs[0].ID)
	assert.NotEqual(t, "mutated", v.UpcomingStops[0].StopID)
	assert.NotEqual(t, domain.GeoPoint{}, v.Location)
}

func TestFleet_Observe(t *testing.T) {
	r := loopRoute()
	f := newTestFleet(nil, r)
	ip := trackLength(t, r)

	f.Observe(domain.Vehicle{ID: "RU-1", RouteID: "RU", SpeedMps: 10, DistanceTraveled: ip.Length() + 5})
	v, ok := f.Vehicle("RU-1")
	require.True(t, ok)
	assert.InDelta(t, 5, v.DistanceTraveled, 1e-6)
	assert.Equal(t, "kenan-stadium", v.NextStopID)

	f.Observe(domain.Vehicle{ID: "remote-9", RouteID: "RU", SpeedMps: 10})
	assert.Len(t, f.Vehicles(), 3)

	// no speed reported: fleet speed is assumed and ETAs stay finite
	f.Observe(domain.Vehicle{ID: "remote-10", RouteID: "RU", DistanceTraveled: 5})
	v, ok = f.Vehicle("remote-10")
	require.True(t, ok)
	assert.Equal(t, 10.0, v.SpeedMps)
	for _, u := range v.UpcomingStops {
		assert.False(t, math.IsInf(u.ETAMin, 0) || math.IsNaN(u.ETAMin), u.StopID)
	}
	_, err := json.Marshal(f.Vehicles())
	assert.NoError(t, err)
}

func TestFleet_RunPublishes(t *testing.T) {
	pub := &mockPublisher{}
	f := newTestFleet(pub, loopRoute())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	f.Run(ctx)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Positive(t, pub.broadcasts)
	assert.Equal(t, 2*pub.broadcasts, pub.positions)
}
