package ports

import (
	"context"
	"time"

	"github.com/samirrijal/campusride/internal/core/domain"
)

// Directions profiles understood by DirectionsProvider.
const (
	ProfileWalking = "walking"
	ProfileDriving = "driving"
)

// Geocoder resolves free text into places, biased toward a proximity point.
type Geocoder interface {
	Geocode(ctx context.Context, query string, near *domain.GeoPoint) ([]domain.Place, error)
}

// DirectionsProvider returns a road-following route through ordered waypoints.
type DirectionsProvider interface {
	Directions(ctx context.Context, profile string, waypoints []domain.GeoPoint) (*domain.Directions, error)
}

// Summarizer condenses free text with a language model.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// ArrivalEstimator predicts when the next vehicle reaches a stop.
type ArrivalEstimator interface {
	// NextArrival returns minutes until the first vehicle on routeID reaches
	// stopID no sooner than notBefore from now.
	NextArrival(routeID, stopID string, notBefore time.Duration) (float64, bool)
}

// EventPublisher publishes live events to a message broker.
type EventPublisher interface {
	PublishVehiclePosition(ctx context.Context, v *domain.Vehicle) error
	PublishBroadcast(ctx context.Context, data []byte) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
