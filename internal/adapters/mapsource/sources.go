// Package mapsource converts journeys and fleet state into GeoJSON feature
// collections a map layer can render directly.
package mapsource

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/campusride/internal/core/domain"
	"github.com/samirrijal/campusride/internal/pkg/geospatial"
)

// Feature property values.
const (
	SegmentWalk = "walk"
	SegmentBus  = "bus"

	StopBoarding    = "boarding"
	StopAlighting   = "alighting"
	StopDestination = "destination"
)

// RouteShape is the road geometry of a route. Loop routes are ridden past the
// end of Line back to its start.
type RouteShape struct {
	Line orb.LineString
	Loop bool
}

// ShapeLookup returns the road geometry of a route when one is known.
type ShapeLookup func(routeID string) (RouteShape, bool)

// Sources is the pair of collections drawn for a journey.
type Sources struct {
	Lines  *geojson.FeatureCollection `json:"lines"`
	Points *geojson.FeatureCollection `json:"points"`
}

// JourneySources renders j. Bus legs follow the route shape between boarding
// and alighting stops when shapes knows it; walk legs use their own geometry.
// A nil or empty journey yields empty collections, never nil ones.
func JourneySources(j *domain.Journey, shapes ShapeLookup) Sources {
	out := Sources{
		Lines:  geojson.NewFeatureCollection(),
		Points: geojson.NewFeatureCollection(),
	}
	if j == nil || len(j.Segments) == 0 {
		return out
	}

	for i, seg := range j.Segments {
		leg := seg.Base()
		switch s := seg.(type) {
		case *domain.WalkSegment:
			f := geojson.NewFeature(legLine(leg))
			f.ID = fmt.Sprintf("segment-%d", i)
			f.Properties["segmentType"] = SegmentWalk
			f.Properties["dashed"] = true
			f.Properties["durationMin"] = leg.DurationMin
			out.Lines.Append(f)

		case *domain.BusSegment:
			line := busLine(s, shapes)
			f := geojson.NewFeature(line)
			f.ID = fmt.Sprintf("segment-%d", i)
			f.Properties["segmentType"] = SegmentBus
			f.Properties["dashed"] = false
			f.Properties["routeId"] = s.RouteID
			f.Properties["durationMin"] = leg.DurationMin
			out.Lines.Append(f)

			out.Points.Append(stopPoint(s, leg.From, leg.FromName, StopBoarding, 0))
			out.Points.Append(stopPoint(s, leg.To, leg.ToName, StopAlighting, len(s.StopIDs)-1))
		}
	}

	dest := geojson.NewFeature(j.Destination.Location.LngLat())
	dest.ID = "destination"
	dest.Properties["name"] = j.Destination.Name
	dest.Properties["stopType"] = StopDestination
	out.Points.Append(dest)

	return out
}

func legLine(leg *domain.Leg) orb.LineString {
	if len(leg.Geometry) >= 2 {
		return leg.Geometry
	}
	return orb.LineString{leg.From.LngLat(), leg.To.LngLat()}
}

func busLine(s *domain.BusSegment, shapes ShapeLookup) orb.LineString {
	if shapes != nil {
		if shape, ok := shapes(s.RouteID); ok && len(shape.Line) >= 2 {
			if sliced := geospatial.SliceForward(shape.Line, s.From.LngLat(), s.To.LngLat(), shape.Loop); len(sliced) >= 2 {
				return sliced
			}
		}
	}
	return legLine(&s.Leg)
}

func stopPoint(s *domain.BusSegment, at domain.GeoPoint, name, kind string, idIndex int) *geojson.Feature {
	f := geojson.NewFeature(at.LngLat())
	if idIndex >= 0 && idIndex < len(s.StopIDs) {
		f.ID = s.StopIDs[idIndex]
	} else {
		f.ID = kind
	}
	f.Properties["name"] = name
	f.Properties["stopType"] = kind
	f.Properties["routeId"] = s.RouteID
	return f
}

// VehicleSources renders vehicles as points keyed by busId.
func VehicleSources(vehicles []domain.Vehicle) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, v := range vehicles {
		f := geojson.NewFeature(v.Location.LngLat())
		f.ID = v.ID
		f.Properties["busId"] = v.ID
		f.Properties["routeId"] = v.RouteID
		f.Properties["bearing"] = v.Heading
		if v.NextStopID != "" {
			f.Properties["nextStopId"] = v.NextStopID
			f.Properties["nextStopEtaMin"] = v.NextStopETAMin
		}
		fc.Append(f)
	}
	return fc
}

// StopSources renders stops, flagging selectedID.
func StopSources(stops []domain.Stop, selectedID string) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, s := range stops {
		f := geojson.NewFeature(s.Location.LngLat())
		f.ID = s.ID
		f.Properties["id"] = s.ID
		f.Properties["name"] = s.Name
		f.Properties["selected"] = s.ID == selectedID
		fc.Append(f)
	}
	return fc
}

// RouteSources renders each route's geometry split into runs that share a
// corridor with any other route (overlap=true) and runs of its own, so a
// renderer can offset shared stretches.
func RouteSources(routes []domain.Route, toleranceMeters float64) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	lines := make([]orb.LineString, len(routes))
	for i := range routes {
		lines[i] = routes[i].Shape
		if len(lines[i]) < 2 {
			lines[i] = routes[i].StopLine()
		}
	}

	for i, r := range routes {
		var others orb.LineString
		for j, l := range lines {
			if j != i {
				others = append(others, l...)
			}
		}
		for k, run := range geospatial.SplitOverlaps(lines[i], others, toleranceMeters) {
			f := geojson.NewFeature(run.Line)
			f.ID = fmt.Sprintf("%s-%d", r.ID, k)
			f.Properties["routeId"] = r.ID
			f.Properties["name"] = r.Name
			f.Properties["color"] = r.Color
			f.Properties["overlap"] = run.Overlapping
			fc.Append(f)
		}
	}
	return fc
}
