package container

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"catalog/crawler/internal/client"
	"catalog/crawler/internal/config"
	"catalog/crawler/internal/domain/task"
	"catalog/crawler/internal/parser"
	"catalog/crawler/internal/proxy"
	"catalog/crawler/internal/queue"
	"catalog/crawler/internal/repository"
	"catalog/crawler/internal/service"
	"catalog/crawler/internal/state"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Needs tells New which outward connections a stage uses.
type Needs struct {
	Source bool // catalog site
	Store  bool // record sinks
}

// Container holds all initialized components
type Container struct {
	Config     *config.Config
	Selectors  *parser.Selectors
	Snapshots  state.SnapshotStore
	Client     client.SourceClient
	Repository repository.CatalogRepository

	Service *service.Service

	redis *redis.Client
}

// New creates a container with the dependencies the stage needs. Selectors
// are compiled before anything is opened, so a bad selector fails fast.
func New(ctx context.Context, cfg *config.Config, needs Needs) (*Container, error) {
	selectors, err := parser.CompileSet(cfg.Selectors)
	if err != nil {
		return nil, err
	}

	container := &Container{
		Config:    cfg,
		Selectors: selectors,
	}

	if err := container.init(ctx, needs); err != nil {
		container.Close(ctx)
		return nil, err
	}

	container.Service = service.NewService(
		container.Client,
		selectors,
		container.Snapshots,
		container.Repository,
		cfg.Source,
	)

	return container, nil
}

func (c *Container) init(ctx context.Context, needs Needs) error {
	cfg := c.Config

	switch cfg.Catalog.Backend {
	case "", "file":
		c.Snapshots = state.NewFileSnapshotStore(cfg.Catalog.Path, cfg.Catalog.BackupSuffix)
	case "redis":
		rdb, err := c.redisClient(ctx)
		if err != nil {
			return err
		}
		c.Snapshots = state.NewRedisSnapshotStore(rdb, cfg.Catalog.RedisKey)
	default:
		return fmt.Errorf("unknown catalog backend %q", cfg.Catalog.Backend)
	}

	if needs.Source {
		if err := cfg.RequireSource(); err != nil {
			return err
		}
		var opts []client.Option
		if len(cfg.Source.Proxies) > 0 {
			supplier, err := proxy.NewSupplier(ctx, cfg.Source.Proxies, cfg.Source.ProxyCheckURL)
			if err != nil {
				return fmt.Errorf("failed to initialize proxy supplier: %w", err)
			}
			opts = append(opts, client.WithProxySupplier(supplier))
		}
		c.Client = client.NewSourceClient(cfg.Source, opts...)
	}

	if needs.Store {
		repo, err := c.repositories(ctx)
		if err != nil {
			return err
		}
		c.Repository = repo
	}

	return nil
}

func (c *Container) repositories(ctx context.Context) (repository.CatalogRepository, error) {
	cfg := c.Config.Store
	if len(cfg.Backends) == 0 {
		return nil, errors.New("store.backends is empty")
	}

	var backends []repository.CatalogRepository
	closeAll := func() {
		for _, b := range backends {
			_ = b.Close(ctx)
		}
	}

	for _, name := range slices.Compact(slices.Sorted(slices.Values(cfg.Backends))) {
		var (
			repo repository.CatalogRepository
			err  error
		)

		switch name {
		case "mongo":
			repo, err = repository.NewMongoRepository(ctx, cfg.Mongo)
		case "postgres":
			repo, err = repository.NewPostgresRepository(ctx, cfg.Postgres)
		case "redis":
			repo, err = c.streamRepository(ctx)
		default:
			err = fmt.Errorf("%w: %q", repository.ErrUnknownBackend, name)
		}

		if err != nil {
			closeAll()
			return nil, err
		}

		log.Infof("✅ Store backend %s ready", name)
		backends = append(backends, repo)
	}

	return repository.NewMultiRepository(backends...), nil
}

func (c *Container) streamRepository(ctx context.Context) (repository.CatalogRepository, error) {
	rdb, err := c.redisClient(ctx)
	if err != nil {
		return nil, err
	}

	cfg := c.Config.Store.Redis
	q := queue.NewRedisQueue(rdb, cfg)
	if cfg.ConsumerGroup != "" {
		types := []string{(&task.DailyProductsTask{}).TaskType(), (&task.MonthlyCatalogTask{}).TaskType()}
		if err := q.EnsureGroup(ctx, cfg.ConsumerGroup, types...); err != nil {
			return nil, err
		}
	}

	return repository.NewStreamRepository(q), nil
}

// redisClient connects once and is shared by the snapshot store and the stream sink.
func (c *Container) redisClient(ctx context.Context) (*redis.Client, error) {
	if c.redis != nil {
		return c.redis, nil
	}

	cfg := c.Config.Store.Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.Database,
	})

	// Test connection
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("✅ Connected to Redis successfully")
	c.redis = rdb
	return rdb, nil
}

// Close performs cleanup when shutting down
func (c *Container) Close(ctx context.Context) {
	log.Debug("Shutting down container...")

	if c.Repository != nil {
		if err := c.Repository.Close(ctx); err != nil {
			log.WithError(err).Warn("Failed to close store")
		}
	}
	if c.Client != nil {
		_ = c.Client.Close()
	}
	if c.redis != nil {
		_ = c.redis.Close()
	}

	log.Debug("Container shut down successfully")
}
