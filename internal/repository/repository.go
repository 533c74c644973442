package repository

import (
	"context"
	"errors"

	"catalog/crawler/internal/domain"
)

// CatalogRepository is the write-only sink for finished records.
type CatalogRepository interface {
	// SaveDailyProducts stores one crawled day.
	SaveDailyProducts(ctx context.Context, products *domain.DailyProducts) error
	// SaveMonths stores the catalog as one record per month and returns how many were written.
	SaveMonths(ctx context.Context, months []*domain.Month) (int, error)
	Close(ctx context.Context) error
}

// ErrUnknownBackend is returned for a store backend name that has no implementation.
var ErrUnknownBackend = errors.New("unknown store backend")
