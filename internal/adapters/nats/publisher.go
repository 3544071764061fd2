package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/campusride/internal/core/domain"
)

// Subjects and streams shared by the fleet animator and the API.
const (
	VehicleStream     = "CAMPUS_VEHICLES"
	VehicleSubjects   = "campus.vehicle.>"
	BroadcastSubject  = "campus.fleet.broadcast"
	vehicleSubjectFmt = "campus.vehicle.%s"
)

// VehicleSubject returns the subject a vehicle's positions are published on.
func VehicleSubject(vehicleID string) string {
	return fmt.Sprintf(vehicleSubjectFmt, vehicleID)
}

// VehicleStreamConfig keeps only the latest position per vehicle, so a late
// subscriber can catch up on the whole fleet at once.
func VehicleStreamConfig() nats.StreamConfig {
	return nats.StreamConfig{
		Name:              VehicleStream,
		Subjects:          []string{VehicleSubjects},
		Retention:         nats.LimitsPolicy,
		MaxMsgsPerSubject: 1,
		MaxAge:            10 * time.Minute,
		Storage:           nats.MemoryStorage,
	}
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the vehicle stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := VehicleStreamConfig()
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist; try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishVehiclePosition stores the vehicle's latest state on its subject.
func (p *Publisher) PublishVehiclePosition(ctx context.Context, v *domain.Vehicle) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(VehicleSubject(v.ID), data, nats.Context(ctx))
	return err
}

// PublishBroadcast sends a fleet snapshot to live WebSocket relays. Core NATS:
// a missed snapshot is superseded by the next tick.
func (p *Publisher) PublishBroadcast(ctx context.Context, data []byte) error {
	return p.conn.Publish(BroadcastSubject, data)
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("campusride"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
