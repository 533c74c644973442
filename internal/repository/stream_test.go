package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog/crawler/internal/config"
	"catalog/crawler/internal/domain"
	"catalog/crawler/internal/queue"
)

func TestStreamRepositoryPublishes(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	q := queue.NewRedisQueue(rdb, config.RedisConfig{StreamPrefix: "catalog:stream:"})
	repo := NewStreamRepository(q)

	require.NoError(t, repo.SaveDailyProducts(ctx, &domain.DailyProducts{Year: 2024, Month: 1, Day: 2}))

	n, err := repo.SaveMonths(ctx, []*domain.Month{{Year: 2024, Month: 1}, {Year: 2024, Month: 2}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	daily, err := rdb.XLen(ctx, "catalog:stream:DailyProductsTask").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, daily)

	monthly, err := rdb.XLen(ctx, "catalog:stream:MonthlyCatalogTask").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 2, monthly)
	assert.NoError(t, repo.Close(ctx))
}
