package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulmach/orb"
)

// SegmentType discriminates journey segments.
type SegmentType string

const (
	SegmentWalk SegmentType = "walk"
	SegmentBus  SegmentType = "bus"
)

// Leg holds the fields shared by every segment kind.
type Leg struct {
	From           GeoPoint       `json:"from_coords"`
	To             GeoPoint       `json:"to_coords"`
	FromName       string         `json:"from_name"`
	ToName         string         `json:"to_name"`
	DurationMin    int            `json:"duration_min"`
	DistanceMeters float64        `json:"distance_meters"`
	Instruction    string         `json:"instruction"`
	Geometry       orb.LineString `json:"geometry,omitempty"`
	Steps          []Step         `json:"steps,omitempty"`
}

// Segment is one leg of a journey: either a *WalkSegment or a *BusSegment.
type Segment interface {
	Type() SegmentType
	Base() *Leg
	// Wait returns the minutes spent waiting before the leg starts.
	Wait() int
}

// WalkSegment is a walking leg.
type WalkSegment struct {
	Leg
}

func (s *WalkSegment) Type() SegmentType { return SegmentWalk }
func (s *WalkSegment) Base() *Leg        { return &s.Leg }
func (s *WalkSegment) Wait() int         { return 0 }

// BusSegment is a ride between a boarding and an alighting stop.
type BusSegment struct {
	Leg
	RouteID     string   `json:"route_id"`
	RouteName   string   `json:"route_name"`
	StopsCount  int      `json:"stops_count"`
	WaitTimeMin int      `json:"wait_time_min"`
	StopIDs     []string `json:"bus_ordered_stop_ids,omitempty"`
}

func (s *BusSegment) Type() SegmentType { return SegmentBus }
func (s *BusSegment) Base() *Leg        { return &s.Leg }
func (s *BusSegment) Wait() int         { return s.WaitTimeMin }

// Guidance tells the rider when to set off.
type Guidance struct {
	LeaveNow bool       `json:"leave_now"`
	LeaveAt  *time.Time `json:"leave_at,omitempty"`
	Message  string     `json:"message"`
}

// Journey is an immutable itinerary from an origin to a destination.
type Journey struct {
	ID               string      `json:"id"`
	Origin           GeoPoint    `json:"origin"`
	Destination      Destination `json:"destination"`
	Segments         []Segment   `json:"segments"`
	TotalDurationMin int         `json:"total_duration_min"`
	StartTime        time.Time   `json:"start_time"`
	ArrivalTime      time.Time   `json:"arrival_time"`
	Guidance         *Guidance   `json:"guidance,omitempty"`
}

// WalkOnly reports whether the journey is a single walking leg.
func (j *Journey) WalkOnly() bool {
	return len(j.Segments) == 1 && j.Segments[0].Type() == SegmentWalk
}

// Bus returns the first bus segment, if any.
func (j *Journey) Bus() (*BusSegment, bool) {
	for _, s := range j.Segments {
		if b, ok := s.(*BusSegment); ok {
			return b, true
		}
	}
	return nil, false
}

type journeyJSON struct {
	ID               string            `json:"id"`
	Origin           GeoPoint          `json:"origin"`
	Destination      Destination       `json:"destination"`
	Segments         []json.RawMessage `json:"segments"`
	TotalDurationMin int               `json:"total_duration_min"`
	StartTime        time.Time         `json:"start_time"`
	ArrivalTime      time.Time         `json:"arrival_time"`
	Guidance         *Guidance         `json:"guidance,omitempty"`
}

// MarshalJSON tags every segment with its "type".
func (j Journey) MarshalJSON() ([]byte, error) {
	out := journeyJSON{
		ID:               j.ID,
		Origin:           j.Origin,
		Destination:      j.Destination,
		Segments:         make([]json.RawMessage, 0, len(j.Segments)),
		TotalDurationMin: j.TotalDurationMin,
		StartTime:        j.StartTime,
		ArrivalTime:      j.ArrivalTime,
		Guidance:         j.Guidance,
	}
	for _, s := range j.Segments {
		raw, err := MarshalSegment(s)
		if err != nil {
			return nil, err
		}
		out.Segments = append(out.Segments, raw)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes segments by their "type" discriminator.
func (j *Journey) UnmarshalJSON(data []byte) error {
	var in journeyJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	segs := make([]Segment, 0, len(in.Segments))
	for i, raw := range in.Segments {
		s, err := UnmarshalSegment(raw)
		if err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
		segs = append(segs, s)
	}
	*j = Journey{
		ID:               in.ID,
		Origin:           in.Origin,
		Destination:      in.Destination,
		Segments:         segs,
		TotalDurationMin: in.TotalDurationMin,
		StartTime:        in.StartTime,
		ArrivalTime:      in.ArrivalTime,
		Guidance:         in.Guidance,
	}
	return nil
}

// MarshalSegment encodes a segment with a "type" field.
func MarshalSegment(s Segment) (json.RawMessage, error) {
	switch v := s.(type) {
	case *WalkSegment:
		return json.Marshal(struct {
			Type SegmentType `json:"type"`
			*WalkSegment
		}{SegmentWalk, v})
	case *BusSegment:
		return json.Marshal(struct {
			Type SegmentType `json:"type"`
			*BusSegment
		}{SegmentBus, v})
	default:
		return nil, fmt.Errorf("unknown segment %T", s)
	}
}

// UnmarshalSegment decodes a segment produced by MarshalSegment.
func UnmarshalSegment(raw []byte) (Segment, error) {
	var head struct {
		Type SegmentType `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	switch head.Type {
	case SegmentWalk:
		var w WalkSegment
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return &w, nil
	case SegmentBus:
		var b BusSegment
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return &b, nil
	default:
		return nil, fmt.Errorf("unknown segment type %q", head.Type)
	}
}
