package queue

import (
	"context"
	"fmt"
	"strings"

	"catalog/crawler/internal/config"
	"catalog/crawler/internal/domain/task"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const defaultStreamPrefix = "catalog:stream:"

// Queue publishes finished records for downstream consumers.
type Queue interface {
	Publish(ctx context.Context, t task.Task) (string, error) // Returns message ID
	StreamName(taskType string) string
}

type RedisQueue struct {
	redisClient  *redis.Client
	streamPrefix string
	maxLen       int64
}

func NewRedisQueue(redisClient *redis.Client, cfg config.RedisConfig) *RedisQueue {
	prefix := cfg.StreamPrefix
	if prefix == "" {
		prefix = defaultStreamPrefix
	}
	return &RedisQueue{
		redisClient:  redisClient,
		streamPrefix: prefix,
		maxLen:       cfg.StreamMaxLen,
	}
}

func (q *RedisQueue) StreamName(taskType string) string {
	return q.streamPrefix + taskType
}

// EnsureGroup creates group on the stream of every task type, creating the
// streams as needed, so consumers attached later read from the first record.
func (q *RedisQueue) EnsureGroup(ctx context.Context, group string, taskTypes ...string) error {
	for _, taskType := range taskTypes {
		stream := q.StreamName(taskType)
		err := q.redisClient.XGroupCreateMkStream(ctx, stream, group, "0").Err()
		if err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP") {
			log.Debugf("Group %s already exists for stream %s", group, stream)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create group %s on %s: %w", group, stream, err)
		}
		log.Infof("✅ Created group %s on stream %s", group, stream)
	}
	return nil
}

func (q *RedisQueue) Publish(ctx context.Context, t task.Task) (string, error) {
	taskType := t.TaskType()
	streamName := q.StreamName(taskType)

	data, err := t.TaskValue()
	if err != nil {
		return "", fmt.Errorf("failed to serialize task: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: streamName,
		Values: map[string]interface{}{
			"task_type": taskType,
			"task_key":  t.TaskKey(),
			"task_data": string(data),
		},
	}
	if q.maxLen > 0 {
		args.MaxLen = q.maxLen
		args.Approx = true
	}

	messageID, err := q.redisClient.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("failed to add %s %s to Redis stream %s: %w", taskType, t.TaskKey(), streamName, err)
	}

	log.Debugf("Published %s %s to %s as %s", taskType, t.TaskKey(), streamName, messageID)
	return messageID, nil
}
