package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sellerhub/stocksync/internal/domain"
)

// LinkRepository persists warehouse links. The unique (warehouseId,
// marketplace) index enforces at most one link per pair.
type LinkRepository struct {
	collection *mongo.Collection
}

func NewLinkRepository(db *mongo.Database) *LinkRepository {
	repo := &LinkRepository{collection: db.Collection("warehouse_links")}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *LinkRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "linkId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{
			Keys: bson.D{
				{Key: "warehouseId", Value: 1},
				{Key: "marketplace", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// Save upserts the link keyed by its link ID.
func (r *LinkRepository) Save(ctx context.Context, link *domain.WarehouseLink) error {
	filter := bson.M{"linkId": link.LinkID}
	update := bson.M{"$set": link}
	opts := options.Update().SetUpsert(true)

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrLinkAlreadyExists
		}
		return fmt.Errorf("failed to save warehouse link: %w", err)
	}
	return nil
}

// FindByID returns the link or ErrLinkNotFound.
func (r *LinkRepository) FindByID(ctx context.Context, linkID string) (*domain.WarehouseLink, error) {
	var link domain.WarehouseLink
	err := r.collection.FindOne(ctx, bson.M{"linkId": linkID}).Decode(&link)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to find warehouse link: %w", err)
	}
	return &link, nil
}

// FindByWarehouse returns the warehouse's links. An empty warehouseID
// matches every link.
func (r *LinkRepository) FindByWarehouse(ctx context.Context, warehouseID string, enabledOnly bool) ([]*domain.WarehouseLink, error) {
	query := bson.M{}
	if warehouseID != "" {
		query["warehouseId"] = warehouseID
	}
	if enabledOnly {
		query["enabled"] = true
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "warehouseId", Value: 1},
		{Key: "marketplace", Value: 1},
	})

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list warehouse links: %w", err)
	}
	defer cursor.Close(ctx)

	var links []*domain.WarehouseLink
	if err := cursor.All(ctx, &links); err != nil {
		return nil, fmt.Errorf("failed to decode warehouse links: %w", err)
	}
	return links, nil
}

// Delete removes the link.
func (r *LinkRepository) Delete(ctx context.Context, linkID string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"linkId": linkID})
	if err != nil {
		return fmt.Errorf("failed to delete warehouse link: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrLinkNotFound
	}
	return nil
}
