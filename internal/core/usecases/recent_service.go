package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samirrijal/campusride/internal/core/domain"
	"github.com/samirrijal/campusride/internal/core/ports"
)

const (
	// MaxRecentSearches caps the list kept per client.
	MaxRecentSearches = 8
	// RecentSearchTTL is how long an entry survives without being searched again.
	RecentSearchTTL = 14 * 24 * time.Hour
)

// RecentSearchService keeps each client's most recent destination searches.
type RecentSearchService struct {
	repo ports.RecentSearchRepository
	now  func() time.Time
}

// NewRecentSearchService creates a new RecentSearchService.
func NewRecentSearchService(repo ports.RecentSearchRepository) *RecentSearchService {
	return &RecentSearchService{repo: repo, now: time.Now}
}

// List returns the client's unexpired searches, newest first.
func (s *RecentSearchService) List(ctx context.Context, clientID string) ([]domain.RecentSearch, error) {
	if clientID == "" {
		return nil, fmt.Errorf("%w: client id is required", domain.ErrInvalidInput)
	}
	list, err := s.repo.Load(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("load recent searches: %w", err)
	}
	return PruneRecent(list, s.now()), nil
}

// Add records a search and returns the updated list.
func (s *RecentSearchService) Add(ctx context.Context, clientID string, entry domain.RecentSearch) ([]domain.RecentSearch, error) {
	if clientID == "" {
		return nil, fmt.Errorf("%w: client id is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(entry.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	list, err := s.repo.Load(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("load recent searches: %w", err)
	}
	list = AddRecent(list, entry, s.now())
	if err := s.repo.Save(ctx, clientID, list); err != nil {
		return nil, fmt.Errorf("save recent searches: %w", err)
	}
	return list, nil
}

// RecentKey normalizes a (name, address) pair for deduplication.
func RecentKey(name, address string) string {
	norm := func(s string) string {
		return strings.Join(strings.Fields(strings.ToLower(s)), " ")
	}
	return norm(name) + "|" + norm(address)
}

// AddRecent puts entry at the front stamped with now, dropping any older entry
// with the same key, expired entries, and anything past MaxRecentSearches.
func AddRecent(list []domain.RecentSearch, entry domain.RecentSearch, now time.Time) []domain.RecentSearch {
	entry.SearchedAt = now
	key := RecentKey(entry.Name, entry.Address)

	out := make([]domain.RecentSearch, 0, MaxRecentSearches)
	out = append(out, entry)
	for _, r := range PruneRecent(list, now) {
		if len(out) == MaxRecentSearches {
			break
		}
		if RecentKey(r.Name, r.Address) == key {
			continue
		}
		out = append(out, r)
	}
	return out
}

// PruneRecent drops entries older than RecentSearchTTL.
func PruneRecent(list []domain.RecentSearch, now time.Time) []domain.RecentSearch {
	out := make([]domain.RecentSearch, 0, len(list))
	for _, r := range list {
		if now.Sub(r.SearchedAt) > RecentSearchTTL {
			continue
		}
		out = append(out, r)
	}
	return out
}
