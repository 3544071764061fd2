package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/samirrijal/campusride/internal/core/domain"
	"github.com/samirrijal/campusride/internal/core/ports"
	"github.com/samirrijal/campusride/internal/pkg/geospatial"
	"github.com/samirrijal/campusride/internal/pkg/metrics"
)

const upcomingStopsShown = 3

// arrivingMeters is how close a vehicle must be to a stop to count as at it.
const arrivingMeters = 1.0

// FleetOptions tunes the synthetic fleet.
type FleetOptions struct {
	Tick             time.Duration
	VehiclesPerRoute int
	SpeedMps         float64
}

// track is a route prepared for animation. ip is nil when the route has no
// usable geometry, in which case its vehicles stay pinned to the first stop.
type track struct {
	route    domain.Route
	ip       *geospatial.Interpolator
	stopDist []float64
}

// FleetService animates shuttles along their route shapes. It owns every
// Vehicle; callers only ever receive copies.
type FleetService struct {
	mu       sync.RWMutex
	tracks   map[string]*track
	vehicles []*domain.Vehicle

	interps   *geospatial.InterpolatorCache
	publisher ports.EventPublisher
	opts      FleetOptions
	now       func() time.Time
}

// NewFleetService creates an empty fleet. publisher may be nil.
func NewFleetService(interps *geospatial.InterpolatorCache, publisher ports.EventPublisher, opts FleetOptions) *FleetService {
	if opts.Tick <= 0 {
		opts.Tick = 300 * time.Millisecond
	}
	if opts.SpeedMps <= 0 {
		opts.SpeedMps = 6
	}
	if interps == nil {
		interps = geospatial.NewInterpolatorCache(0)
	}
	return &FleetService{
		tracks:    make(map[string]*track),
		interps:   interps,
		publisher: publisher,
		opts:      opts,
		now:       time.Now,
	}
}

// SetRoutes replaces the animated network and seeds VehiclesPerRoute vehicles
// per route, evenly spaced along its length. Routes should carry resolved shapes.
func (f *FleetService) SetRoutes(routes []domain.Route) {
	tracks := make(map[string]*track, len(routes))
	var vehicles []*domain.Vehicle
	now := f.now()

	for _, r := range routes {
		if len(r.Stops) == 0 {
			continue
		}
		tr := f.buildTrack(r)
		tracks[r.ID] = tr

		for i := 0; i < f.opts.VehiclesPerRoute; i++ {
			v := &domain.Vehicle{
				ID:        fmt.Sprintf("%s-%d", r.ID, i+1),
				RouteID:   r.ID,
				SpeedMps:  f.opts.SpeedMps,
				UpdatedAt: now,
			}
			if tr.ip != nil {
				v.DistanceTraveled = tr.ip.Length() * float64(i) / float64(f.opts.VehiclesPerRoute)
			}
			f.place(v, tr)
			vehicles = append(vehicles, v)
		}
	}

	f.mu.Lock()
	f.tracks = tracks
	f.vehicles = vehicles
	f.mu.Unlock()

	metrics.FleetVehicles.Set(float64(len(vehicles)))
}

func (f *FleetService) buildTrack(r domain.Route) *track {
	tr := &track{route: r}
	shape := r.Shape
	if len(shape) < 2 {
		shape = r.StopLine()
	}
	mode := geospatial.Open
	if r.Loop {
		mode = geospatial.Loop
	}
	ip, err := f.interps.Get(shape, mode)
	if err != nil || ip.Length() <= 0 {
		return tr
	}
	tr.ip = ip
	tr.stopDist = make([]float64, len(r.Stops))
	for i, rs := range r.Stops {
		tr.stopDist[i] = ip.DistanceAlong(rs.Stop.Location.LngLat())
	}
	return tr
}

// Tick advances every vehicle by its speed times dt.
func (f *FleetService) Tick(dt time.Duration) {
	start := time.Now()
	now := f.now()

	f.mu.Lock()
	for _, v := range f.vehicles {
		tr := f.tracks[v.RouteID]
		if tr == nil || tr.ip == nil {
			continue
		}
		v.DistanceTraveled = wrap(v.DistanceTraveled+v.SpeedMps*dt.Seconds(), tr.ip.Length())
		v.UpdatedAt = now
		f.place(v, tr)
	}
	f.mu.Unlock()

	metrics.FleetTickDuration.Observe(time.Since(start).Seconds())
}

// wrap keeps d in [0, length). Open routes restart from the first stop once
// they reach the end, so both modes share it.
func wrap(d, length float64) float64 {
	if length <= 0 {
		return 0
	}
	d = math.Mod(d, length)
	if d < 0 {
		d += length
	}
	return d
}

// place derives position, heading and upcoming stops from DistanceTraveled.
func (f *FleetService) place(v *domain.Vehicle, tr *track) {
	if tr.ip == nil {
		v.Location = tr.route.Stops[0].Stop.Location
		v.Heading = 0
		v.NextStopID = ""
		v.NextStopETAMin = 0
		v.UpcomingStops = nil
		return
	}

	d := v.DistanceTraveled
	v.Location = domain.FromLngLat(tr.ip.PointAt(d))
	v.Heading = tr.ip.BearingAt(d)

	type ahead struct {
		idx    int
		meters float64
	}
	list := make([]ahead, len(tr.stopDist))
	for i, sd := range tr.stopDist {
		list[i] = ahead{i, aheadMeters(sd, d, tr.ip.Length())}
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].meters < list[j].meters })

	n := upcomingStopsShown
	if n > len(list) {
		n = len(list)
	}
	upcoming := make([]domain.UpcomingStop, 0, n)
	for _, a := range list[:n] {
		stop := tr.route.Stops[a.idx].Stop
		us := domain.UpcomingStop{StopID: stop.ID, Name: stop.Name}
		// a parked vehicle has no ETA
		if v.SpeedMps > 0 {
			us.ETAMin = a.meters / v.SpeedMps / 60
		}
		upcoming = append(upcoming, us)
	}
	v.UpcomingStops = upcoming
	if len(upcoming) > 0 {
		v.NextStopID = upcoming[0].StopID
		v.NextStopETAMin = upcoming[0].ETAMin
	}
}

// aheadMeters is the distance a vehicle at d still has to cover to reach a
// stop at stopDist, in [0, length). A stop within arrivingMeters either side
// of the vehicle is being served now.
func aheadMeters(stopDist, d, length float64) float64 {
	a := stopDist - d
	if math.Abs(a) <= arrivingMeters {
		return 0
	}
	if a < 0 {
		a += length
	}
	return a
}

// Vehicles returns a snapshot of every vehicle.
func (f *FleetService) Vehicles() []domain.Vehicle {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]domain.Vehicle, 0, len(f.vehicles))
	for _, v := range f.vehicles {
		out = append(out, copyVehicle(v))
	}
	return out
}

// VehiclesByRoute returns a snapshot of the vehicles serving routeID.
func (f *FleetService) VehiclesByRoute(routeID string) []domain.Vehicle {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := []domain.Vehicle{}
	for _, v := range f.vehicles {
		if v.RouteID == routeID {
			out = append(out, copyVehicle(v))
		}
	}
	return out
}

// Vehicle returns one vehicle by id.
func (f *FleetService) Vehicle(id string) (domain.Vehicle, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, v := range f.vehicles {
		if v.ID == id {
			return copyVehicle(v), true
		}
	}
	return domain.Vehicle{}, false
}

func copyVehicle(v *domain.Vehicle) domain.Vehicle {
	c := *v
	c.UpcomingStops = append([]domain.UpcomingStop(nil), v.UpcomingStops...)
	return c
}

// NextArrival returns the minutes until the first vehicle on routeID reaches
// stopID no earlier than notBefore from now. Later laps count, so a rider who
// arrives after a bus has left gets the following one.
func (f *FleetService) NextArrival(routeID, stopID string, notBefore time.Duration) (float64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	tr := f.tracks[routeID]
	if tr == nil || tr.ip == nil {
		return 0, false
	}
	idx := tr.route.StopIndex(stopID)
	if idx < 0 {
		return 0, false
	}
	length := tr.ip.Length()
	floor := notBefore.Seconds()

	best := math.Inf(1)
	for _, v := range f.vehicles {
		if v.RouteID != routeID || v.SpeedMps <= 0 {
			continue
		}
		eta := aheadMeters(tr.stopDist[idx], v.DistanceTraveled, length) / v.SpeedMps
		if eta < floor {
			lap := length / v.SpeedMps
			eta += math.Ceil((floor-eta)/lap) * lap
		}
		if eta < best {
			best = eta
		}
	}
	if math.IsInf(best, 1) {
		return 0, false
	}
	return best / 60, true
}

// Observe applies a vehicle state produced elsewhere, e.g. by a standalone
// animator relayed over NATS. Unknown vehicles are added. A vehicle reported
// without a speed is assumed to run at the fleet speed.
func (f *FleetService) Observe(v domain.Vehicle) {
	f.mu.Lock()
	defer f.mu.Unlock()

	nv := copyVehicle(&v)
	if nv.SpeedMps <= 0 {
		nv.SpeedMps = f.opts.SpeedMps
	}
	if tr := f.tracks[v.RouteID]; tr != nil {
		if tr.ip != nil {
			nv.DistanceTraveled = wrap(nv.DistanceTraveled, tr.ip.Length())
		}
		f.place(&nv, tr)
	}
	for i, cur := range f.vehicles {
		if cur.ID == v.ID {
			f.vehicles[i] = &nv
			return
		}
	}
	f.vehicles = append(f.vehicles, &nv)
	metrics.FleetVehicles.Set(float64(len(f.vehicles)))
}

// Run ticks the fleet until ctx is cancelled, publishing a snapshot after every
// tick. Publish failures are logged and otherwise ignored.
func (f *FleetService) Run(ctx context.Context) {
	ticker := time.NewTicker(f.opts.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.Tick(f.opts.Tick)
			f.publish(ctx)
		}
	}
}

func (f *FleetService) publish(ctx context.Context) {
	if f.publisher == nil {
		return
	}
	snapshot := f.Vehicles()
	for i := range snapshot {
		if err := f.publisher.PublishVehiclePosition(ctx, &snapshot[i]); err != nil {
			slog.Debug("publish vehicle position failed", "vehicle", snapshot[i].ID, "error", err)
		}
	}
	data, err := json.Marshal(map[string]any{"type": "vehicles", "vehicles": snapshot})
	if err != nil {
		return
	}
	if err := f.publisher.PublishBroadcast(ctx, data); err != nil {
		slog.Debug("publish fleet broadcast failed", "error", err)
	}
}
