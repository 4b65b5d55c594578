package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sellerhub/stocksync/internal/domain"
)

// AuditRepository persists the append-only sync attempt log.
type AuditRepository struct {
	collection *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	repo := &AuditRepository{collection: db.Collection("sync_attempts")}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *AuditRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "linkId", Value: 1},
				{Key: "article", Value: 1},
				{Key: "attemptedAt", Value: -1},
			},
		},
		{Keys: bson.D{{Key: "marketplace", Value: 1}, {Key: "attemptedAt", Value: -1}}},
		{Keys: bson.D{{Key: "warehouseId", Value: 1}, {Key: "attemptedAt", Value: -1}}},
		{Keys: bson.D{{Key: "attemptId", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// Append inserts one attempt row. Rows are never updated afterwards.
func (r *AuditRepository) Append(ctx context.Context, attempt *domain.SyncAttempt) error {
	if _, err := r.collection.InsertOne(ctx, attempt); err != nil {
		return fmt.Errorf("failed to record sync attempt: %w", err)
	}
	return nil
}

// List returns attempts matching the filter, newest first.
func (r *AuditRepository) List(ctx context.Context, filter domain.SyncHistoryFilter) ([]*domain.SyncAttempt, error) {
	query := bson.M{}
	if filter.Marketplace != "" {
		query["marketplace"] = filter.Marketplace
	}
	if filter.WarehouseID != "" {
		query["warehouseId"] = filter.WarehouseID
	}
	if filter.Article != "" {
		query["article"] = filter.Article
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	timeRange := bson.M{}
	if !filter.From.IsZero() {
		timeRange["$gte"] = filter.From
	}
	if !filter.To.IsZero() {
		timeRange["$lte"] = filter.To
	}
	if len(timeRange) > 0 {
		query["attemptedAt"] = timeRange
	}

	opts := options.Find().SetSort(bson.D{{Key: "attemptedAt", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync attempts: %w", err)
	}
	defer cursor.Close(ctx)

	var attempts []*domain.SyncAttempt
	if err := cursor.All(ctx, &attempts); err != nil {
		return nil, fmt.Errorf("failed to decode sync attempts: %w", err)
	}
	return attempts, nil
}

// Latest returns the newest attempt for a (link, article) pair, or nil when
// the pair was never pushed.
func (r *AuditRepository) Latest(ctx context.Context, linkID, article string) (*domain.SyncAttempt, error) {
	filter := bson.M{"linkId": linkID, "article": article}
	opts := options.FindOne().SetSort(bson.D{{Key: "attemptedAt", Value: -1}})

	var attempt domain.SyncAttempt
	err := r.collection.FindOne(ctx, filter, opts).Decode(&attempt)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find latest sync attempt: %w", err)
	}
	return &attempt, nil
}
