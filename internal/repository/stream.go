package repository

import (
	"context"
	"fmt"

	"catalog/crawler/internal/domain"
	"catalog/crawler/internal/domain/task"
	"catalog/crawler/internal/queue"
)

type streamRepository struct {
	queue queue.Queue
}

// NewStreamRepository publishes records to Redis streams instead of storing them.
func NewStreamRepository(q queue.Queue) CatalogRepository {
	return &streamRepository{queue: q}
}

func (r *streamRepository) SaveDailyProducts(ctx context.Context, products *domain.DailyProducts) error {
	if _, err := r.queue.Publish(ctx, &task.DailyProductsTask{DailyProducts: *products}); err != nil {
		return fmt.Errorf("failed to publish daily products: %w", err)
	}
	return nil
}

func (r *streamRepository) SaveMonths(ctx context.Context, months []*domain.Month) (int, error) {
	for i, m := range months {
		if _, err := r.queue.Publish(ctx, &task.MonthlyCatalogTask{Month: *m}); err != nil {
			return i, fmt.Errorf("failed to publish month %d/%d: %w", m.Year, m.Month, err)
		}
	}
	return len(months), nil
}

// Close is a no-op; the queue's Redis client belongs to the container.
func (r *streamRepository) Close(_ context.Context) error {
	return nil
}
