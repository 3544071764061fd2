package domain

import (
	"time"

	"github.com/paulmach/orb"
)

// Stop represents a shuttle stop.
type Stop struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Location GeoPoint `json:"location"`
	Distance *float64 `json:"distance,omitempty"` // computed field
}

// RouteStop places a stop on a route. Order is strictly increasing along the
// route but need not be contiguous.
type RouteStop struct {
	Stop  Stop `json:"stop"`
	Order int  `json:"order"`
}

// Route represents a shuttle route with its ordered stops.
type Route struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Color string      `json:"color"`
	Loop  bool        `json:"loop"`
	Stops []RouteStop `json:"stops"`
	// Shape is the road-following polyline, [lon, lat] per vertex. Empty when
	// no geometry has been fetched yet.
	Shape orb.LineString `json:"shape,omitempty"`
}

// StopIndex returns the index of stopID within r.Stops, or -1.
func (r *Route) StopIndex(stopID string) int {
	for i, rs := range r.Stops {
		if rs.Stop.ID == stopID {
			return i
		}
	}
	return -1
}

// Serves reports whether the route stops at stopID.
func (r *Route) Serves(stopID string) bool {
	return r.StopIndex(stopID) >= 0
}

// StopLine returns the straight-line polyline through the route's stops, closed
// back to the first stop when the route loops.
func (r *Route) StopLine() orb.LineString {
	line := make(orb.LineString, 0, len(r.Stops)+1)
	for _, rs := range r.Stops {
		line = append(line, rs.Stop.Location.LngLat())
	}
	if r.Loop && len(r.Stops) > 1 {
		line = append(line, r.Stops[0].Stop.Location.LngLat())
	}
	return line
}

// UpcomingStop is a stop ahead of a vehicle with its estimated arrival.
type UpcomingStop struct {
	StopID string  `json:"stop_id"`
	Name   string  `json:"name"`
	ETAMin float64 `json:"eta_min"`
}

// Vehicle is a shuttle's live state. Position and heading are derived by the
// fleet animator on every tick.
type Vehicle struct {
	ID               string         `json:"id"`
	RouteID          string         `json:"route_id"`
	Location         GeoPoint       `json:"location"`
	Heading          float64        `json:"heading"`
	SpeedMps         float64        `json:"speed"`
	NextStopID       string         `json:"next_stop_id,omitempty"`
	NextStopETAMin   float64        `json:"next_stop_eta_min"`
	UpcomingStops    []UpcomingStop `json:"upcoming_stops,omitempty"`
	DistanceTraveled float64        `json:"distance_traveled"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Destination is a rider-chosen target.
type Destination struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Location GeoPoint `json:"location"`
	Address  string   `json:"address,omitempty"`
}

// Place is a geocoder match.
type Place struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	Location    GeoPoint `json:"location"`
}

// Destination converts the place into a planning target.
func (p Place) Destination() Destination {
	return Destination{ID: p.ID, Name: p.DisplayName, Location: p.Location}
}

// Step is one turn-by-turn instruction.
type Step struct {
	Instruction    string  `json:"instruction"`
	DistanceMeters float64 `json:"distance_meters"`
}

// Directions is a routing service response reduced to what the planner uses.
type Directions struct {
	Geometry       orb.LineString `json:"geometry"`
	DistanceMeters float64        `json:"distance_meters"`
	DurationSec    float64        `json:"duration_sec"`
	Steps          []Step         `json:"steps,omitempty"`
}

// RecentSearch is a persisted destination search.
type RecentSearch struct {
	Name       string    `json:"name"`
	Address    string    `json:"address,omitempty"`
	Location   GeoPoint  `json:"location"`
	SearchedAt time.Time `json:"searched_at"`
}
