package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sellerhub/stocksync/internal/domain"
)

// LedgerRepository is the append-only event log on MongoDB. Events live in
// stock_ledger; per-stream sequence counters live in stock_counters. The
// unique (warehouseId, article, sequenceNo) index turns any racing insert
// into a duplicate key error, which surfaces as ErrConcurrentAppendConflict.
type LedgerRepository struct {
	collection *mongo.Collection
	counters   *mongo.Collection
	db         *mongo.Database
}

func NewLedgerRepository(db *mongo.Database) *LedgerRepository {
	repo := &LedgerRepository{
		collection: db.Collection("stock_ledger"),
		counters:   db.Collection("stock_counters"),
		db:         db,
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *LedgerRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "warehouseId", Value: 1},
				{Key: "article", Value: 1},
				{Key: "sequenceNo", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "warehouseId", Value: 1},
				{Key: "article", Value: 1},
				{Key: "referenceId", Value: 1},
			},
		},
		{Keys: bson.D{{Key: "eventId", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// Append allocates the stream's next sequence number and inserts the event.
func (r *LedgerRepository) Append(ctx context.Context, event *domain.StockEvent) (int64, error) {
	seq, err := r.nextSequence(ctx, event.Key())
	if err != nil {
		return 0, err
	}

	event.SequenceNo = seq
	if _, err := r.collection.InsertOne(ctx, event); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return 0, domain.ErrConcurrentAppendConflict
		}
		return 0, fmt.Errorf("failed to append stock event: %w", err)
	}
	return seq, nil
}

func (r *LedgerRepository) nextSequence(ctx context.Context, key domain.StockKey) (int64, error) {
	filter := bson.M{"warehouseId": key.WarehouseID, "article": key.Article}
	update := bson.M{"$inc": bson.M{"seq": int64(1)}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	if err := r.counters.FindOneAndUpdate(ctx, filter, update, opts).Decode(&counter); err != nil {
		return 0, fmt.Errorf("failed to allocate sequence number: %w", err)
	}
	return counter.Seq, nil
}

// Replay streams the events after fromSeq in ascending sequence order.
func (r *LedgerRepository) Replay(ctx context.Context, key domain.StockKey, fromSeq int64) (domain.EventCursor, error) {
	filter := bson.M{
		"warehouseId": key.WarehouseID,
		"article":     key.Article,
		"sequenceNo":  bson.M{"$gt": fromSeq},
	}
	opts := options.Find().SetSort(bson.D{{Key: "sequenceNo", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to replay ledger: %w", err)
	}
	return &mongoCursor{cursor: cursor}, nil
}

// FindByReference returns the stream's events for one reference ID.
func (r *LedgerRepository) FindByReference(ctx context.Context, key domain.StockKey, referenceID string) ([]*domain.StockEvent, error) {
	filter := bson.M{
		"warehouseId": key.WarehouseID,
		"article":     key.Article,
		"referenceId": referenceID,
	}
	opts := options.Find().SetSort(bson.D{{Key: "sequenceNo", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find events by reference: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*domain.StockEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return events, nil
}

type mongoCursor struct {
	cursor  *mongo.Cursor
	current *domain.StockEvent
	err     error
}

func (c *mongoCursor) Next(ctx context.Context) bool {
	if !c.cursor.Next(ctx) {
		c.err = c.cursor.Err()
		return false
	}
	var event domain.StockEvent
	if err := c.cursor.Decode(&event); err != nil {
		c.err = err
		return false
	}
	c.current = &event
	return true
}

func (c *mongoCursor) Event() *domain.StockEvent { return c.current }

func (c *mongoCursor) Err() error { return c.err }

func (c *mongoCursor) Close(ctx context.Context) error { return c.cursor.Close(ctx) }
