package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sellerhub/stocksync/internal/domain"
)

// AggregateRepository persists materialized stock rows, one document per
// (warehouse, article) pair.
type AggregateRepository struct {
	collection *mongo.Collection
}

func NewAggregateRepository(db *mongo.Database) *AggregateRepository {
	repo := &AggregateRepository{collection: db.Collection("stock_aggregates")}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *AggregateRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "warehouseId", Value: 1},
				{Key: "article", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "article", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// Get returns the row for a key, or nil when none exists.
func (r *AggregateRepository) Get(ctx context.Context, key domain.StockKey) (*domain.StockAggregate, error) {
	filter := bson.M{"warehouseId": key.WarehouseID, "article": key.Article}

	var aggregate domain.StockAggregate
	err := r.collection.FindOne(ctx, filter).Decode(&aggregate)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find stock aggregate: %w", err)
	}
	return &aggregate, nil
}

// Put upserts the row keyed by its (warehouse, article) pair.
func (r *AggregateRepository) Put(ctx context.Context, aggregate *domain.StockAggregate) error {
	filter := bson.M{"warehouseId": aggregate.WarehouseID, "article": aggregate.Article}
	update := bson.M{"$set": aggregate}
	opts := options.Update().SetUpsert(true)

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save stock aggregate: %w", err)
	}
	return nil
}

// List returns the warehouse's rows ordered by article.
func (r *AggregateRepository) List(ctx context.Context, warehouseID string, filter domain.AggregateFilter) ([]*domain.StockAggregate, error) {
	query := bson.M{"warehouseId": warehouseID}
	if filter.Article != "" {
		query["article"] = filter.Article
	}
	if filter.BelowThreshold {
		query["alertThreshold"] = bson.M{"$gt": 0}
		query["$expr"] = bson.M{
			"$lte": bson.A{
				bson.M{"$subtract": bson.A{"$quantity", "$reserved"}},
				"$alertThreshold",
			},
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "article", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock aggregates: %w", err)
	}
	defer cursor.Close(ctx)

	var aggregates []*domain.StockAggregate
	if err := cursor.All(ctx, &aggregates); err != nil {
		return nil, fmt.Errorf("failed to decode stock aggregates: %w", err)
	}
	return aggregates, nil
}

// ListAll returns every row, used by the periodic full re-sync sweep.
func (r *AggregateRepository) ListAll(ctx context.Context) ([]*domain.StockAggregate, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "warehouseId", Value: 1},
		{Key: "article", Value: 1},
	})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock aggregates: %w", err)
	}
	defer cursor.Close(ctx)

	var aggregates []*domain.StockAggregate
	if err := cursor.All(ctx, &aggregates); err != nil {
		return nil, fmt.Errorf("failed to decode stock aggregates: %w", err)
	}
	return aggregates, nil
}
