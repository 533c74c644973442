package repository

import (
	"context"
	"errors"

	"catalog/crawler/internal/domain"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type multiRepository struct {
	backends []CatalogRepository
}

// NewMultiRepository writes every record to all backends. A single backend is
// returned unwrapped.
func NewMultiRepository(backends ...CatalogRepository) CatalogRepository {
	if len(backends) == 1 {
		return backends[0]
	}
	return &multiRepository{backends: backends}
}

func (r *multiRepository) SaveDailyProducts(ctx context.Context, products *domain.DailyProducts) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, backend := range r.backends {
		g.Go(func() error {
			return backend.SaveDailyProducts(ctx, products)
		})
	}
	return g.Wait()
}

func (r *multiRepository) SaveMonths(ctx context.Context, months []*domain.Month) (int, error) {
	if len(r.backends) == 0 {
		return 0, nil
	}
	counts := make([]int, len(r.backends))

	g, ctx := errgroup.WithContext(ctx)
	for i, backend := range r.backends {
		g.Go(func() error {
			n, err := backend.SaveMonths(ctx, months)
			counts[i] = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	for i, n := range counts[1:] {
		if n != counts[0] {
			log.Warnf("⚠️ Store backend %d wrote %d months, backend 0 wrote %d", i+1, n, counts[0])
		}
	}
	return counts[0], nil
}

func (r *multiRepository) Close(ctx context.Context) error {
	var errs []error
	for _, backend := range r.backends {
		if err := backend.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
