package domain

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Marketplace identifies an external sales channel.
type Marketplace string

const (
	MarketplaceOzon         Marketplace = "ozon"
	MarketplaceWildberries  Marketplace = "wildberries"
	MarketplaceYandexMarket Marketplace = "yandex_market"
	MarketplaceLocalSite    Marketplace = "local_site"
)

// IsValid checks if the marketplace is valid
func (m Marketplace) IsValid() bool {
	switch m {
	case MarketplaceOzon, MarketplaceWildberries, MarketplaceYandexMarket, MarketplaceLocalSite:
		return true
	default:
		return false
	}
}

// WarehouseLink binds an internal warehouse to one external marketplace
// warehouse. Disabled links are skipped when sync intents are generated;
// disabling does not cancel in-flight pushes (a late push re-states a
// quantity, which is harmless).
type WarehouseLink struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	LinkID              string             `bson:"linkId" json:"linkId"`
	WarehouseID         string             `bson:"warehouseId" json:"warehouseId"`
	Marketplace         Marketplace        `bson:"marketplace" json:"marketplace"`
	ExternalWarehouseID string             `bson:"externalWarehouseId" json:"externalWarehouseId"`
	Enabled             bool               `bson:"enabled" json:"enabled"`
	CreatedAt           time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// NewWarehouseLink creates an enabled link.
func NewWarehouseLink(warehouseID string, marketplace Marketplace, externalWarehouseID string) (*WarehouseLink, error) {
	if !marketplace.IsValid() {
		return nil, ErrUnknownMarketplace
	}
	now := time.Now().UTC()
	return &WarehouseLink{
		LinkID:              "WHL-" + uuid.New().String(),
		WarehouseID:         warehouseID,
		Marketplace:         marketplace,
		ExternalWarehouseID: externalWarehouseID,
		Enabled:             true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// SetEnabled toggles the link.
func (l *WarehouseLink) SetEnabled(enabled bool) {
	l.Enabled = enabled
	l.UpdatedAt = time.Now().UTC()
}
