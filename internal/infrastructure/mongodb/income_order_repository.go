package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sellerhub/stocksync/internal/domain"
)

// IncomeOrderRepository persists supplier receipts keyed by order ID.
type IncomeOrderRepository struct {
	collection *mongo.Collection
}

func NewIncomeOrderRepository(db *mongo.Database) *IncomeOrderRepository {
	repo := &IncomeOrderRepository{collection: db.Collection("income_orders")}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *IncomeOrderRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "orderId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "warehouseId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// Save upserts the order keyed by its order ID.
func (r *IncomeOrderRepository) Save(ctx context.Context, order *domain.IncomeOrder) error {
	filter := bson.M{"orderId": order.OrderID}
	update := bson.M{"$set": order}
	opts := options.Update().SetUpsert(true)

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save income order: %w", err)
	}
	return nil
}

// FindByID returns the order or ErrOrderNotFound.
func (r *IncomeOrderRepository) FindByID(ctx context.Context, orderID string) (*domain.IncomeOrder, error) {
	var order domain.IncomeOrder
	err := r.collection.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&order)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find income order: %w", err)
	}
	return &order, nil
}

// List returns orders filtered by warehouse and status, newest first.
func (r *IncomeOrderRepository) List(ctx context.Context, warehouseID string, status domain.IncomeOrderStatus, limit, offset int) ([]*domain.IncomeOrder, error) {
	query := bson.M{}
	if warehouseID != "" {
		query["warehouseId"] = warehouseID
	}
	if status != "" {
		query["status"] = status
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list income orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []*domain.IncomeOrder
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode income orders: %w", err)
	}
	return orders, nil
}
