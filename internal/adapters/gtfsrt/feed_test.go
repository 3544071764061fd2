package gtfsrt

import (
	"testing"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/samirrijal/campusride/internal/core/domain"
)

func TestVehicleFeed(t *testing.T) {
	now := time.Date(2024, 9, 2, 12, 0, 0, 0, time.UTC)
	data, err := Encode([]domain.Vehicle{
		{ID: "RU-1", RouteID: "RU", Location: domain.GeoPoint{Lat: 35.9069, Lon: -79.0478}, Heading: 180, SpeedMps: 6, NextStopID: "dean-smith-center"},
		{ID: "U-1", RouteID: "U", Location: domain.GeoPoint{Lat: 35.9105, Lon: -79.0478}, UpdatedAt: now.Add(-time.Second)},
	}, now)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var feed gtfs.FeedMessage
	if err := proto.Unmarshal(data, &feed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if feed.GetHeader().GetIncrementality() != gtfs.FeedHeader_FULL_DATASET {
		t.Errorf("expected full dataset")
	}
	if feed.GetHeader().GetTimestamp() != uint64(now.Unix()) {
		t.Errorf("unexpected header timestamp %d", feed.GetHeader().GetTimestamp())
	}
	if len(feed.GetEntity()) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(feed.GetEntity()))
	}

	ru := feed.GetEntity()[0].GetVehicle()
	if ru.GetTrip().GetRouteId() != "RU" || ru.GetStopId() != "dean-smith-center" {
		t.Errorf("unexpected vehicle %v", ru)
	}
	if ru.GetCurrentStatus() != gtfs.VehiclePosition_IN_TRANSIT_TO {
		t.Errorf("expected IN_TRANSIT_TO, got %v", ru.GetCurrentStatus())
	}
	if ru.GetPosition().GetBearing() != 180 {
		t.Errorf("unexpected bearing %v", ru.GetPosition().GetBearing())
	}

	u := feed.GetEntity()[1].GetVehicle()
	if u.GetStopId() != "" {
		t.Errorf("vehicle without next stop should carry no stop id")
	}
	if u.GetTimestamp() != uint64(now.Add(-time.Second).Unix()) {
		t.Errorf("vehicle timestamp should come from UpdatedAt")
	}
}
