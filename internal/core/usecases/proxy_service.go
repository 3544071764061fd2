package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bluele/gcache"

	"github.com/samirrijal/campusride/internal/core/domain"
	"github.com/samirrijal/campusride/internal/core/ports"
	"github.com/samirrijal/campusride/internal/pkg/metrics"
	"github.com/samirrijal/campusride/internal/pkg/telemetry"
)

// ProxyTTLs controls how long upstream answers are reused.
type ProxyTTLs struct {
	Geocode    time.Duration
	Directions time.Duration
	Summary    time.Duration
}

// ProxyService fronts the geocoding, directions and summarization providers
// with TTL memoization. It satisfies ports.Geocoder and ports.DirectionsProvider
// so the planner and search sessions share its caches.
type ProxyService struct {
	geocoder   ports.Geocoder
	directions ports.DirectionsProvider
	summarizer ports.Summarizer
	cache      ports.CacheService
	local      gcache.Cache
	ttl        ProxyTTLs
}

// NewProxyService creates a new ProxyService. Any provider and the shared
// cache may be nil.
func NewProxyService(
	geocoder ports.Geocoder,
	directions ports.DirectionsProvider,
	summarizer ports.Summarizer,
	cache ports.CacheService,
	ttl ProxyTTLs,
) *ProxyService {
	return &ProxyService{
		geocoder:   geocoder,
		directions: directions,
		summarizer: summarizer,
		cache:      cache,
		local:      gcache.New(512).LRU().Build(),
		ttl:        ttl,
	}
}

// Geocode returns matches for query biased toward near. Upstream failures
// yield an empty list.
func (s *ProxyService) Geocode(ctx context.Context, query string, near *domain.GeoPoint) ([]domain.Place, error) {
	query = strings.TrimSpace(query)
	if query == "" || s.geocoder == nil {
		return []domain.Place{}, nil
	}

	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanGeocode)
	defer span.End()

	key := "geocode:" + strings.ToLower(query)
	if near != nil {
		key += fmt.Sprintf(":%.3f:%.3f", near.Lat, near.Lon)
	}
	var places []domain.Place
	if s.lookup(ctx, "geocode", key, &places) {
		return places, nil
	}

	places, err := s.geocoder.Geocode(ctx, query, near)
	if err != nil {
		if ctx.Err() == nil {
			slog.WarnContext(ctx, "geocode upstream failed", "error", err)
			metrics.UpstreamErrors.WithLabelValues("geocode").Inc()
		}
		return []domain.Place{}, nil
	}
	if places == nil {
		places = []domain.Place{}
	}
	s.store(ctx, key, places, s.ttl.Geocode)
	return places, nil
}

// Directions returns a route through waypoints.
func (s *ProxyService) Directions(ctx context.Context, profile string, waypoints []domain.GeoPoint) (*domain.Directions, error) {
	if len(waypoints) < 2 {
		return nil, fmt.Errorf("%w: directions need at least two waypoints", domain.ErrInvalidInput)
	}
	if s.directions == nil {
		return nil, fmt.Errorf("%w: directions provider not configured", domain.ErrUpstream)
	}

	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanDirections)
	defer span.End()

	var b strings.Builder
	b.WriteString("directions:")
	b.WriteString(profile)
	for _, p := range waypoints {
		// ~10 m grid so nearby requests share an entry
		fmt.Fprintf(&b, ":%.4f,%.4f", p.Lat, p.Lon)
	}
	key := b.String()

	var dir domain.Directions
	if v, err := s.local.Get(key); err == nil {
		metrics.CacheHits.WithLabelValues("directions_local").Inc()
		d := v.(domain.Directions)
		return &d, nil
	}
	if s.lookup(ctx, "directions", key, &dir) {
		_ = s.local.SetWithExpire(key, dir, s.ttl.Directions)
		return &dir, nil
	}

	got, err := s.directions.Directions(ctx, profile, waypoints)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("directions").Inc()
		return nil, fmt.Errorf("%w: directions: %v", domain.ErrUpstream, err)
	}
	_ = s.local.SetWithExpire(key, *got, s.ttl.Directions)
	s.store(ctx, key, got, s.ttl.Directions)
	return got, nil
}

// Summarize condenses text with the language model.
func (s *ProxyService) Summarize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: text must not be empty", domain.ErrInvalidInput)
	}
	if s.summarizer == nil {
		return "", fmt.Errorf("%w: summarizer not configured", domain.ErrUpstream)
	}

	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanSummarize)
	defer span.End()

	sum := sha256.Sum256([]byte(text))
	key := "summary:" + hex.EncodeToString(sum[:])

	var summary string
	if s.lookup(ctx, "summary", key, &summary) {
		return summary, nil
	}

	summary, err := s.summarizer.Summarize(ctx, text)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("summary").Inc()
		return "", fmt.Errorf("%w: summarize: %v", domain.ErrUpstream, err)
	}
	s.store(ctx, key, summary, s.ttl.Summary)
	return summary, nil
}

func (s *ProxyService) lookup(ctx context.Context, op, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheMisses.WithLabelValues(op).Inc()
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false
	}
	metrics.CacheHits.WithLabelValues(op).Inc()
	return true
}

func (s *ProxyService) store(ctx context.Context, key string, v any, ttl time.Duration) {
	if s.cache == nil || ttl <= 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, key, data, int(ttl.Seconds()))
}
