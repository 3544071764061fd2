package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/campusride/internal/adapters/nats"
	"github.com/samirrijal/campusride/internal/core/domain"
	"github.com/samirrijal/campusride/internal/core/usecases"
	"github.com/samirrijal/campusride/internal/pkg/metrics"
)

// wsMessage is sent from client to server.
type wsMessage struct {
	Action string   `json:"action"` // "search" | "subscribe" | "unsubscribe"
	Query  string   `json:"query"`  // search text
	Lat    *float64 `json:"lat"`    // optional search bias
	Lon    *float64 `json:"lon"`
	Route  string   `json:"route"` // vehicle filter for subscribe
}

type vehiclesMessage struct {
	Type     string           `json:"type"`
	Vehicles []domain.Vehicle `json:"vehicles"`
}

type searchResultsMessage struct {
	Type    string         `json:"type"`
	Token   uint64         `json:"token"`
	Query   string         `json:"query"`
	Results []domain.Place `json:"results"`
}

// WebSocketHandler streams fleet snapshots to the client and answers
// search-as-you-type queries. Snapshots come from the NATS broadcast when
// connected, otherwise from the in-process fleet.
// Clients send JSON such as {"action":"search","query":"dean"} or
// {"action":"subscribe","route":"RU"}.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		var filterMu sync.RWMutex
		routeFilter := ""
		sendVehicles := func(vehicles []domain.Vehicle) {
			filterMu.RLock()
			route := routeFilter
			filterMu.RUnlock()
			if route != "" {
				kept := make([]domain.Vehicle, 0, len(vehicles))
				for _, v := range vehicles {
					if v.RouteID == route {
						kept = append(kept, v)
					}
				}
				vehicles = kept
			}
			_ = writeJSON(vehiclesMessage{Type: "vehicles", Vehicles: vehicles})
		}

		done := make(chan struct{})
		defer close(done)

		if deps.NATS != nil {
			sub, err := deps.NATS.Subscribe(natsadapter.BroadcastSubject, func(msg *nats.Msg) {
				var snap vehiclesMessage
				if err := json.Unmarshal(msg.Data, &snap); err != nil {
					return
				}
				sendVehicles(snap.Vehicles)
			})
			if err != nil {
				slog.Error("ws broadcast subscribe failed", "error", err)
				return
			}
			defer func() { _ = sub.Unsubscribe() }()
		} else if deps.Fleet != nil {
			interval := deps.SnapshotInterval
			if interval <= 0 {
				interval = time.Second
			}
			go func() {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						sendVehicles(deps.Fleet.Vehicles())
					case <-done:
						return
					}
				}
			}()
		}

		// Keep-alive ping
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		var session *usecases.SearchSession
		if deps.Proxy != nil {
			session = usecases.NewSearchSession(deps.Proxy, deps.SearchDebounce)
			defer session.Close()
		}

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			switch m.Action {
			case "search":
				if session == nil {
					_ = writeJSON(map[string]string{"error": "search not available"})
					continue
				}
				var near *domain.GeoPoint
				if m.Lat != nil && m.Lon != nil {
					near = &domain.GeoPoint{Lat: *m.Lat, Lon: *m.Lon}
				}
				query := m.Query
				session.Submit(ctx, query, near, func(token uint64, places []domain.Place) {
					_ = writeJSON(searchResultsMessage{Type: "search_results", Token: token, Query: query, Results: places})
				})

			case "subscribe":
				filterMu.Lock()
				routeFilter = m.Route
				filterMu.Unlock()
				_ = writeJSON(map[string]string{"status": "subscribed", "route": m.Route})

			case "unsubscribe":
				filterMu.Lock()
				routeFilter = ""
				filterMu.Unlock()
				_ = writeJSON(map[string]string{"status": "unsubscribed"})

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}
