package services

import (
	"context"

	"prizedrop/internal/datastore"
	"prizedrop/internal/models"
	"prizedrop/internal/pkg/caching"

	"github.com/samber/do"
	"github.com/uptrace/bun"
)

type ServiceLeaderboard struct {
	container  *do.Injector
	postgresDB *bun.DB
	cache      caching.Cache
}

func NewServiceLeaderboard(container *do.Injector) (*ServiceLeaderboard, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	return &ServiceLeaderboard{container, postgresDB, cache}, nil
}

// Top returns the first limit participants by number of wins.
func (service *ServiceLeaderboard) Top(ctx context.Context, limit int) ([]*models.LeaderboardItem, error) {
	if limit <= 0 {
		limit = LEADERBOARD_DEFAULT_LIMIT
	}
	if limit > LEADERBOARD_CACHED_SIZE {
		return datastore.Leaderboard(ctx, service.postgresDB, limit)
	}

	callback := func() ([]*models.LeaderboardItem, error) {
		return datastore.Leaderboard(ctx, service.postgresDB, LEADERBOARD_CACHED_SIZE)
	}

	items, err := caching.UseCache(ctx, service.cache, DBKeyLeaderboard(), CACHE_TTL_15_SECONDS, callback)
	if err != nil {
		return nil, err
	}

	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (service *ServiceLeaderboard) Invalidate(ctx context.Context) error {
	return service.cache.Delete(ctx, DBKeyLeaderboard())
}
