package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"catalog/crawler/internal/config"
	"catalog/crawler/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

type pgxIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

type postgresRepository struct {
	db           pgxIface
	dailyTable   string
	monthlyTable string
}

// NewPostgresRepository connects a pool and stores records as JSONB rows.
func NewPostgresRepository(ctx context.Context, cfg config.PostgresConfig) (CatalogRepository, error) {
	db, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return NewPostgresRepositoryWithPool(db, cfg)
}

// NewPostgresRepositoryWithPool wraps an existing pool.
func NewPostgresRepositoryWithPool(db pgxIface, cfg config.PostgresConfig) (CatalogRepository, error) {
	for _, table := range []string{cfg.DailyTable, cfg.MonthlyTable} {
		if !validTableName.MatchString(table) {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
	}
	return &postgresRepository{
		db:           db,
		dailyTable:   cfg.DailyTable,
		monthlyTable: cfg.MonthlyTable,
	}, nil
}

func (r *postgresRepository) SaveDailyProducts(ctx context.Context, products *domain.DailyProducts) error {
	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("failed to encode daily products: %w", err)
	}

	query := fmt.Sprintf(`
	INSERT INTO %s (year, month, day, data)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (year, month, day)
	DO UPDATE SET data = EXCLUDED.data`, r.dailyTable)
	_, err = r.db.Exec(ctx, query, products.Year, products.Month, products.Day, data)
	if err != nil {
		return fmt.Errorf("failed to save daily products %d/%d/%d: %w", products.Year, products.Month, products.Day, err)
	}

	return nil
}

func (r *postgresRepository) SaveMonths(ctx context.Context, months []*domain.Month) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := fmt.Sprintf(`
	INSERT INTO %s (year, month, url, data)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (year, month)
	DO UPDATE SET url = EXCLUDED.url, data = EXCLUDED.data`, r.monthlyTable)

	for _, m := range months {
		data, err := json.Marshal(m)
		if err != nil {
			_ = tx.Rollback(ctx)
			return 0, fmt.Errorf("failed to encode month %d/%d: %w", m.Year, m.Month, err)
		}
		if _, err := tx.Exec(ctx, query, m.Year, m.Month, m.URL, data); err != nil {
			_ = tx.Rollback(ctx)
			return 0, fmt.Errorf("failed to save month %d/%d: %w", m.Year, m.Month, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit months: %w", err)
	}
	return len(months), nil
}

func (r *postgresRepository) Close(_ context.Context) error {
	r.db.Close()
	return nil
}
