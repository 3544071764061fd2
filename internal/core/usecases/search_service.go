package usecases

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/samirrijal/campusride/internal/core/domain"
	"github.com/samirrijal/campusride/internal/core/ports"
)

// DefaultSearchDebounce is the quiet period before a typed query is sent.
const DefaultSearchDebounce = 280 * time.Millisecond

// SearchSession runs search-as-you-type for one client. Each Submit supersedes
// the previous one: the older request is cancelled and only results belonging
// to the most recent submission are ever applied.
type SearchSession struct {
	geocoder ports.Geocoder
	debounce time.Duration

	mu     sync.Mutex
	token  uint64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSearchSession creates a session. debounce <= 0 uses DefaultSearchDebounce.
func NewSearchSession(geocoder ports.Geocoder, debounce time.Duration) *SearchSession {
	if debounce <= 0 {
		debounce = DefaultSearchDebounce
	}
	return &SearchSession{geocoder: geocoder, debounce: debounce}
}

// Submit schedules a lookup for query and returns its token. apply receives the
// matches if the submission is still the latest when they arrive; a geocoder
// failure is applied as an empty list. Submit does not block.
func (s *SearchSession) Submit(ctx context.Context, query string, near *domain.GeoPoint, apply func(token uint64, places []domain.Place)) uint64 {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.token++
	token := s.token
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer cancel()
		s.run(ctx, token, query, near, apply)
	}()
	return token
}

func (s *SearchSession) run(ctx context.Context, token uint64, query string, near *domain.GeoPoint, apply func(uint64, []domain.Place)) {
	timer := time.NewTimer(s.debounce)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	var places []domain.Place
	if q := strings.TrimSpace(query); q != "" && s.geocoder != nil {
		var err error
		places, err = s.geocoder.Geocode(ctx, q, near)
		if ctx.Err() != nil {
			// superseded or closed; not an error
			return
		}
		if err != nil {
			places = nil
		}
	}
	if places == nil {
		places = []domain.Place{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.token || ctx.Err() != nil {
		return
	}
	apply(token, places)
}

// Latest returns the token of the most recent submission.
func (s *SearchSession) Latest() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Close cancels any pending lookup and waits for it to finish.
func (s *SearchSession) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}
