package repository

import (
	"context"
	"fmt"

	"catalog/crawler/internal/config"
	"catalog/crawler/internal/domain"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// inserter is the part of a collection the repository needs.
type inserter interface {
	InsertOne(ctx context.Context, document any) error
	InsertMany(ctx context.Context, documents []any) (int, error)
}

type mongoCollection struct {
	coll *mongo.Collection
}

func (c mongoCollection) InsertOne(ctx context.Context, document any) error {
	_, err := c.coll.InsertOne(ctx, document)
	return err
}

func (c mongoCollection) InsertMany(ctx context.Context, documents []any) (int, error) {
	result, err := c.coll.InsertMany(ctx, documents)
	if err != nil {
		return 0, err
	}
	return len(result.InsertedIDs), nil
}

type mongoRepository struct {
	client  *mongo.Client
	daily   inserter
	monthly inserter
}

// NewMongoRepository writes daily records and months into two collections.
func NewMongoRepository(ctx context.Context, cfg config.MongoConfig) (CatalogRepository, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	db := client.Database(cfg.Database)
	return &mongoRepository{
		client:  client,
		daily:   mongoCollection{coll: db.Collection(cfg.DailyCollection)},
		monthly: mongoCollection{coll: db.Collection(cfg.MonthlyCollection)},
	}, nil
}

func (r *mongoRepository) SaveDailyProducts(ctx context.Context, products *domain.DailyProducts) error {
	if err := r.daily.InsertOne(ctx, products); err != nil {
		return fmt.Errorf("failed to insert daily products %d/%d/%d: %w", products.Year, products.Month, products.Day, err)
	}
	return nil
}

func (r *mongoRepository) SaveMonths(ctx context.Context, months []*domain.Month) (int, error) {
	if len(months) == 0 {
		return 0, nil
	}

	documents := make([]any, 0, len(months))
	for _, m := range months {
		documents = append(documents, m)
	}

	n, err := r.monthly.InsertMany(ctx, documents)
	if err != nil {
		return n, fmt.Errorf("failed to insert months: %w", err)
	}
	return n, nil
}

func (r *mongoRepository) Close(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	return r.client.Disconnect(ctx)
}
