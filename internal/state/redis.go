package state

import (
	"context"
	"errors"
	"fmt"

	"catalog/crawler/internal/domain"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

type redisSnapshotStore struct {
	redisClient *redis.Client
	key         string
	backupKey   string
}

// NewRedisSnapshotStore keeps the catalog JSON under key and the previous
// version under key+":backup".
func NewRedisSnapshotStore(redisClient *redis.Client, key string) SnapshotStore {
	return &redisSnapshotStore{
		redisClient: redisClient,
		key:         key,
		backupKey:   key + ":backup",
	}
}

func (s *redisSnapshotStore) Load(ctx context.Context) (domain.Catalog, error) {
	data, err := s.redisClient.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: redis key %s", ErrSnapshotNotFound, s.key)
		}
		return nil, fmt.Errorf("failed to get catalog %s: %w", s.key, err)
	}
	return decode(data, "redis key "+s.key)
}

// current returns the persisted snapshot, or nil when there is none.
func (s *redisSnapshotStore) current(ctx context.Context) ([]byte, error) {
	data, err := s.redisClient.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get catalog %s: %w", s.key, err)
	}
	return data, nil
}

func (s *redisSnapshotStore) Backup(ctx context.Context) error {
	data, err := s.current(ctx)
	if err != nil || data == nil {
		return err
	}
	if err := s.redisClient.Set(ctx, s.backupKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set backup %s: %w", s.backupKey, err)
	}
	return nil
}

func (s *redisSnapshotStore) Save(ctx context.Context, catalog domain.Catalog) error {
	data, err := encode(catalog)
	if err != nil {
		return err
	}

	previous, err := s.current(ctx)
	if err != nil {
		return err
	}

	_, err = s.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if previous != nil {
			pipe.Set(ctx, s.backupKey, previous, 0)
		}
		pipe.Set(ctx, s.key, data, 0) // No expiration
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save catalog %s: %w", s.key, err)
	}

	log.Infof("💾 Saved catalog with %d months, %d days to redis key %s", len(catalog), catalog.TotalDays(), s.key)
	return nil
}
