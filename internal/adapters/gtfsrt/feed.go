// Package gtfsrt exports the live fleet as a GTFS-Realtime vehicle positions feed.
package gtfsrt

import (
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/samirrijal/campusride/internal/core/domain"
)

// ContentType is the media type served for the binary feed.
const ContentType = "application/x-protobuf"

// VehicleFeed builds a full-dataset FeedMessage with one entity per vehicle.
func VehicleFeed(vehicles []domain.Vehicle, now time.Time) *gtfs.FeedMessage {
	feed := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Incrementality:      gtfs.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(uint64(now.Unix())),
		},
	}

	for _, v := range vehicles {
		ts := v.UpdatedAt
		if ts.IsZero() {
			ts = now
		}
		pos := &gtfs.VehiclePosition{
			Trip:    &gtfs.TripDescriptor{RouteId: proto.String(v.RouteID)},
			Vehicle: &gtfs.VehicleDescriptor{Id: proto.String(v.ID), Label: proto.String(v.ID)},
			Position: &gtfs.Position{
				Latitude:  proto.Float32(float32(v.Location.Lat)),
				Longitude: proto.Float32(float32(v.Location.Lon)),
				Bearing:   proto.Float32(float32(v.Heading)),
				Speed:     proto.Float32(float32(v.SpeedMps)),
			},
			Timestamp: proto.Uint64(uint64(ts.Unix())),
		}
		if v.NextStopID != "" {
			pos.StopId = proto.String(v.NextStopID)
			pos.CurrentStatus = gtfs.VehiclePosition_IN_TRANSIT_TO.Enum()
		}
		feed.Entity = append(feed.Entity, &gtfs.FeedEntity{
			Id:      proto.String(v.ID),
			Vehicle: pos,
		})
	}
	return feed
}

// Encode serializes the vehicle feed.
func Encode(vehicles []domain.Vehicle, now time.Time) ([]byte, error) {
	return proto.Marshal(VehicleFeed(vehicles, now))
}
