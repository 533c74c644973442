package container

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog/crawler/internal/config"
	"catalog/crawler/internal/domain"
	"catalog/crawler/internal/parser"
	"catalog/crawler/internal/repository"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())

	cfg, err := config.LoadWith(viper.New(), "")
	require.NoError(t, err)
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "root.json")
	return cfg
}

func useMiniredis(t *testing.T, cfg *config.Config) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	cfg.Store.Redis.Host = mr.Host()
	cfg.Store.Redis.Port = port
	return mr
}

func TestNewFailsOnBadSelector(t *testing.T) {
	cfg := testConfig(t)
	cfg.Selectors.Pages.Anchor = "a[href"
	cfg.Store.Backends = []string{"mongo"}
	cfg.Store.Mongo.URI = "mongodb://127.0.0.1:1"

	_, err := New(context.Background(), cfg, Needs{Source: true, Store: true})
	require.ErrorIs(t, err, parser.ErrSelectorCompile)
}

func TestNewSeedNeedsNothingOutward(t *testing.T) {
	cfg := testConfig(t)

	app, err := New(context.Background(), cfg, Needs{})
	require.NoError(t, err)
	defer app.Close(context.Background())

	assert.Nil(t, app.Client)
	assert.Nil(t, app.Repository)
	assert.NotNil(t, app.Service)
}

func TestNewRequiresURLRoot(t *testing.T) {
	cfg := testConfig(t)
	cfg.Source.URLRoot = ""

	_, err := New(context.Background(), cfg, Needs{Source: true})
	require.Error(t, err)
}

func TestNewUnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Backends = []string{"cassandra"}

	_, err := New(context.Background(), cfg, Needs{Store: true})
	require.ErrorIs(t, err, repository.ErrUnknownBackend)
}

func TestNewUnknownCatalogBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Catalog.Backend = "s3"

	_, err := New(context.Background(), cfg, Needs{})
	require.Error(t, err)
}

func TestNewRedisBackends(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	mr := useMiniredis(t, cfg)
	cfg.Source.URLRoot = "https://example.com"
	cfg.Catalog.Backend = "redis"
	cfg.Store.Backends = []string{"redis", "redis"}

	app, err := New(ctx, cfg, Needs{Source: true, Store: true})
	require.NoError(t, err)
	defer app.Close(ctx)

	require.NoError(t, app.Snapshots.Save(ctx, domain.Catalog{
		{Year: 2024, Month: 1, URL: "https://example.com/202401", Days: []domain.Day{}},
	}))
	assert.True(t, mr.Exists(cfg.Catalog.RedisKey))

	n, err := app.Service.LoadCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	length, err := app.redis.XLen(ctx, cfg.Store.Redis.StreamPrefix+"MonthlyCatalogTask").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), length, "duplicate backend names are wired once")
}
