package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/campusride/internal/core/domain"
	"github.com/samirrijal/campusride/internal/core/usecases"
)

func TestRecentKey(t *testing.T) {
	assert.Equal(t, usecases.RecentKey("Dean  Smith Center", " 300 Skipper Bowles Dr"),
		usecases.RecentKey("dean smith center", "300 skipper bowles dr "))
	assert.NotEqual(t, usecases.RecentKey("Dean Smith Center", ""), usecases.RecentKey("Dean Smith Center", "Chapel Hill"))
}

func TestAddRecent_DedupeMovesToFront(t *testing.T) {
	now := time.Date(2024, 9, 2, 12, 0, 0, 0, time.UTC)
	list := []domain.RecentSearch{
		{Name: "Old Well", SearchedAt: now.Add(-time.Hour)},
		{Name: "Dean Smith Center", SearchedAt: now.Add(-2 * time.Hour)},
	}

	got := usecases.AddRecent(list, domain.RecentSearch{Name: "dean smith  center"}, now)
	require.Len(t, got, 2)
	assert.Equal(t, "dean smith  center", got[0].Name)
	assert.Equal(t, now, got[0].SearchedAt)
	assert.Equal(t, "Old Well", got[1].Name)
}

func TestAddRecent_Cap(t *testing.T) {
	now := time.Now()
	var list []domain.RecentSearch
	for i := 0; i < 12; i++ {
		list = usecases.AddRecent(list, domain.RecentSearch{Name: fmt.Sprintf("place %d", i)}, now)
	}
	require.Len(t, list, usecases.MaxRecentSearches)
	assert.Equal(t, "place 11", list[0].Name)
	assert.Equal(t, "place 4", list[len(list)-1].Name)
}

func TestPruneRecent(t *testing.T) {
	now := time.Now()
	list := []domain.RecentSearch{
		{Name: "fresh", SearchedAt: now.Add(-time.Hour)},
		{Name: "stale", SearchedAt: now.Add(-usecases.RecentSearchTTL - time.Minute)},
	}
	got := usecases.PruneRecent(list, now)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].Name)
}

func TestRecentSearchService_AddAndList(t *testing.T) {
	repo := &mockRecentRepo{}
	svc := usecases.NewRecentSearchService(repo)
	ctx := context.Background()

	_, err := svc.Add(ctx, "client-1", domain.RecentSearch{Name: "Kenan Stadium", Location: domain.GeoPoint{Lat: 35.9069, Lon: -79.0478}})
	require.NoError(t, err)
	_, err = svc.Add(ctx, "client-1", domain.RecentSearch{Name: "Old Well"})
	require.NoError(t, err)

	list, err := svc.List(ctx, "client-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Old Well", list[0].Name)

	other, err := svc.List(ctx, "client-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRecentSearchService_InvalidInput(t *testing.T) {
	svc := usecases.NewRecentSearchService(&mockRecentRepo{})
	ctx := context.Background()

	_, err := svc.List(ctx, "")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = svc.Add(ctx, "client-1", domain.RecentSearch{Name: "  "})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}
