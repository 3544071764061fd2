package natsadapter

import (
	"encoding/json"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/campusride/internal/core/domain"
)

func TestVehicleSubject(t *testing.T) {
	if got := VehicleSubject("RU-1"); got != "campus.vehicle.RU-1" {
		t.Fatalf("unexpected subject %q", got)
	}
}

func TestVehicleStreamConfig_KeepsLatestOnly(t *testing.T) {
	cfg := VehicleStreamConfig()
	if cfg.MaxMsgsPerSubject != 1 {
		t.Errorf("expected one message per subject, got %d", cfg.MaxMsgsPerSubject)
	}
	if cfg.Retention != nats.LimitsPolicy {
		t.Errorf("expected limits retention, got %v", cfg.Retention)
	}
	if len(cfg.Subjects) != 1 || cfg.Subjects[0] != VehicleSubjects {
		t.Errorf("unexpected subjects %v", cfg.Subjects)
	}
}

func TestDecodeVehicle(t *testing.T) {
	data, _ := json.Marshal(domain.Vehicle{ID: "U-2", RouteID: "U", DistanceTraveled: 120})
	v, err := DecodeVehicle(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.ID != "U-2" || v.DistanceTraveled != 120 {
		t.Fatalf("unexpected vehicle %+v", v)
	}

	if _, err := DecodeVehicle([]byte(`{"id":"U-2"}`)); err == nil {
		t.Error("expected error for vehicle without route")
	}
	if _, err := DecodeVehicle([]byte(`{`)); err == nil {
		t.Error("expected error for malformed json")
	}
}
