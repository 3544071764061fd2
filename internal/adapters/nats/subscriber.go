package natsadapter

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/campusride/internal/core/domain"
)

// Subscriber mirrors fleet state published by a standalone animator.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// Conn exposes the underlying connection for relays that subscribe directly.
func (s *Subscriber) Conn() *nats.Conn { return s.conn }

// SubscribeVehiclePositions delivers the latest state of every vehicle, then
// each update as it arrives. Every API instance gets its own ephemeral
// consumer so all of them see the whole fleet.
func (s *Subscriber) SubscribeVehiclePositions(handler func(v domain.Vehicle)) error {
	sub, err := s.js.Subscribe(VehicleSubjects, func(msg *nats.Msg) {
		v, err := DecodeVehicle(msg.Data)
		if err != nil {
			slog.Debug("drop malformed vehicle position", "subject", msg.Subject, "error", err)
			return
		}
		handler(v)
	},
		nats.DeliverLastPerSubject(),
		nats.AckNone(),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// SubscribeBroadcast delivers raw fleet snapshots.
func (s *Subscriber) SubscribeBroadcast(handler func(data []byte)) error {
	sub, err := s.conn.Subscribe(BroadcastSubject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// DecodeVehicle parses a published vehicle position.
func DecodeVehicle(data []byte) (domain.Vehicle, error) {
	var v domain.Vehicle
	if err := json.Unmarshal(data, &v); err != nil {
		return domain.Vehicle{}, err
	}
	if v.ID == "" || v.RouteID == "" {
		return domain.Vehicle{}, fmt.Errorf("vehicle position without id or route")
	}
	return v, nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
