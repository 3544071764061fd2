package usecases_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/samirrijal/campusride/internal/core/domain"
)

// --- Mock StopRepository ---

type mockStopRepo struct {
	listFn       func(ctx context.Context) ([]domain.Stop, error)
	findNearbyFn func(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.Stop, error)
	getByIDFn    func(ctx context.Context, id string) (*domain.Stop, error)
	searchFn     func(ctx context.Context, query string, limit int) ([]domain.Stop, error)
}

func (m *mockStopRepo) List(ctx context.Context) ([]domain.Stop, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockStopRepo) FindNearby(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.Stop, error) {
	if m.findNearbyFn != nil {
		return m.findNearbyFn(ctx, lat, lon, radius, limit)
	}
	return nil, nil
}

func (m *mockStopRepo) GetByID(ctx context.Context, id string) (*domain.Stop, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockStopRepo) Search(ctx context.Context, query string, limit int) ([]domain.Stop, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, limit)
	}
	return nil, nil
}

// --- Mock RouteRepository ---

type mockRouteRepo struct {
	routes []domain.Route
	err    error
}

func (m *mockRouteRepo) List(ctx context.Context) ([]domain.Route, error) {
	if m.err != nil {
		return nil, m.err
	}
	return append([]domain.Route(nil), m.routes...), nil
}

func (m *mockRouteRepo) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	for _, r := range m.routes {
		if r.ID == id {
			r := r
			return &r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockRouteRepo) ListByStop(ctx context.Context, stopID string) ([]domain.Route, error) {
	var out []domain.Route
	for _, r := range m.routes {
		if r.Serves(stopID) {
			out = append(out, r)
		}
	}
	return out, nil
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttl  map[string]int
}

func newMockCache() *mockCache {
	return &mockCache{data: map[string][]byte{}, ttl: map[string]int{}}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttl[key] = ttlSeconds
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock Geocoder ---

type mockGeocoder struct {
	mu      sync.Mutex
	queries []string
	delay   time.Duration
	fn      func(query string) ([]domain.Place, error)
}

func (m *mockGeocoder) Geocode(ctx context.Context, query string, near *domain.GeoPoint) ([]domain.Place, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.delay):
		}
	}
	if m.fn != nil {
		return m.fn(query)
	}
	return nil, nil
}

func (m *mockGeocoder) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

// --- Mock DirectionsProvider ---

type mockDirections struct {
	calls int
	fn    func(profile string, waypoints []domain.GeoPoint) (*domain.Directions, error)
}

func (m *mockDirections) Directions(ctx context.Context, profile string, waypoints []domain.GeoPoint) (*domain.Directions, error) {
	m.calls++
	if m.fn != nil {
		return m.fn(profile, waypoints)
	}
	return nil, errors.New("no route")
}

// --- Mock Summarizer ---

type mockSummarizer struct {
	calls int
	err   error
}

func (m *mockSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return "summary: " + text[:min(len(text), 10)], nil
}

// --- Mock ArrivalEstimator ---

type mockArrivals struct {
	eta map[string]float64 // routeID|stopID → minutes
}

func (m *mockArrivals) NextArrival(routeID, stopID string, notBefore time.Duration) (float64, bool) {
	eta, ok := m.eta[routeID+"|"+stopID]
	if !ok {
		return 0, false
	}
	if eta < notBefore.Minutes() {
		eta = notBefore.Minutes()
	}
	return eta, true
}

// --- Mock RecentSearchRepository ---

type mockRecentRepo struct {
	data map[string][]domain.RecentSearch
}

func (m *mockRecentRepo) Load(ctx context.Context, clientID string) ([]domain.RecentSearch, error) {
	return append([]domain.RecentSearch(nil), m.data[clientID]...), nil
}

func (m *mockRecentRepo) Save(ctx context.Context, clientID string, searches []domain.RecentSearch) error {
	if m.data == nil {
		m.data = map[string][]domain.RecentSearch{}
	}
	m.data[clientID] = append([]domain.RecentSearch(nil), searches...)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu         sync.Mutex
	positions  int
	broadcasts int
}

func (m *mockPublisher) PublishVehiclePosition(ctx context.Context, v *domain.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions++
	return nil
}

func (m *mockPublisher) PublishBroadcast(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcasts++
	return nil
}

// --- Mock CatalogWriter ---

type mockCatalogWriter struct {
	stops     []domain.Stop
	routes    []domain.Route
	order     []string
	routesErr error
}

func (m *mockCatalogWriter) UpsertStops(ctx context.Context, stops []domain.Stop) error {
	m.order = append(m.order, "stops")
	m.stops = append(m.stops, stops...)
	return nil
}

func (m *mockCatalogWriter) UpsertRoutes(ctx context.Context, routes []domain.Route) error {
	if m.routesErr != nil {
		return m.routesErr
	}
	m.order = append(m.order, "routes")
	m.routes = append(m.routes, routes...)
	return nil
}
