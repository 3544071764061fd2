package http

import (
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/campusride/internal/adapters/postgres"
	"github.com/samirrijal/campusride/internal/adapters/valkey"
	"github.com/samirrijal/campusride/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Stops    *usecases.StopService
	Routes   *usecases.RouteService
	Journeys *usecases.JourneyService
	Fleet    *usecases.FleetService
	Proxy    *usecases.ProxyService
	Recent   *usecases.RecentSearchService

	// Optional infrastructure, nil when not configured.
	NATS  *nats.Conn
	DB    *postgres.DB
	Cache *valkey.Cache

	// SearchDebounce is the quiet period before a WebSocket search query hits the geocoder.
	SearchDebounce time.Duration
	// SnapshotInterval paces local fleet snapshots on /ws when NATS is not configured.
	SnapshotInterval time.Duration
}
