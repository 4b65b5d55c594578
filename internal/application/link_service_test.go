package application

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerhub/stocksync/internal/domain"
	"github.com/sellerhub/stocksync/internal/infrastructure/memory"
	"github.com/sellerhub/stocksync/pkg/logging"
)

type stubAdapter struct {
	marketplace domain.Marketplace
	warehouses  []domain.ExternalWarehouse
}

func (a *stubAdapter) Marketplace() domain.Marketplace { return a.marketplace }

func (a *stubAdapter) PushStock(ctx context.Context, externalWarehouseID, article string, quantity int) error {
	return nil
}

func (a *stubAdapter) ListWarehouses(ctx context.Context) ([]domain.ExternalWarehouse, error) {
	return a.warehouses, nil
}

func newLinkService() *LinkService {
	registry := domain.NewAdapterRegistry()
	registry.Register(&stubAdapter{
		marketplace: domain.MarketplaceOzon,
		warehouses:  []domain.ExternalWarehouse{{ID: "101", Name: "Moscow FBS"}},
	})
	logger := logging.New(&logging.Config{Level: logging.LevelError, ServiceName: "test", Output: io.Discard})
	return NewLinkService(memory.NewLinkStore(), registry, logger)
}

func TestLinkCreateAndList(t *testing.T) {
	svc := newLinkService()
	ctx := context.Background()

	link, err := svc.Create(ctx, CreateLinkCommand{
		WarehouseID:         "WH-1",
		Marketplace:         "ozon",
		ExternalWarehouseID: "101",
	})
	require.NoError(t, err)
	assert.True(t, link.Enabled)
	assert.NotEmpty(t, link.LinkID)

	links, err := svc.List(ctx, "WH-1")
	require.NoError(t, err)
	require.Len(t, links, 1)

	// Second link for the same (warehouse, marketplace) pair is rejected.
	_, err = svc.Create(ctx, CreateLinkCommand{
		WarehouseID:         "WH-1",
		Marketplace:         "ozon",
		ExternalWarehouseID: "102",
	})
	require.ErrorIs(t, err, domain.ErrLinkAlreadyExists)
}

func TestLinkCreateUnknownMarketplace(t *testing.T) {
	svc := newLinkService()

	_, err := svc.Create(context.Background(), CreateLinkCommand{
		WarehouseID: "WH-1",
		Marketplace: "amazon",
	})
	require.ErrorIs(t, err, domain.ErrUnknownMarketplace)
}

func TestLinkCreateUnregisteredAdapter(t *testing.T) {
	svc := newLinkService()

	// wildberries is a valid marketplace but no adapter is registered here.
	_, err := svc.Create(context.Background(), CreateLinkCommand{
		WarehouseID: "WH-1",
		Marketplace: "wildberries",
	})
	require.ErrorIs(t, err, domain.ErrUnknownMarketplace)
}

func TestLinkToggleAndActiveFilter(t *testing.T) {
	svc := newLinkService()
	ctx := context.Background()

	link, err := svc.Create(ctx, CreateLinkCommand{
		WarehouseID:         "WH-1",
		Marketplace:         "ozon",
		ExternalWarehouseID: "101",
	})
	require.NoError(t, err)

	toggled, err := svc.SetEnabled(ctx, SetLinkEnabledCommand{LinkID: link.LinkID, Enabled: false})
	require.NoError(t, err)
	assert.False(t, toggled.Enabled)

	active, err := svc.ActiveLinksFor(ctx, "WH-1")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestLinkDelete(t *testing.T) {
	svc := newLinkService()
	ctx := context.Background()

	link, err := svc.Create(ctx, CreateLinkCommand{
		WarehouseID:         "WH-1",
		Marketplace:         "ozon",
		ExternalWarehouseID: "101",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, link.LinkID))
	require.ErrorIs(t, svc.Delete(ctx, link.LinkID), domain.ErrLinkNotFound)
}

func TestListExternalWarehouses(t *testing.T) {
	svc := newLinkService()

	warehouses, err := svc.ListExternalWarehouses(context.Background(), "ozon")
	require.NoError(t, err)
	require.Len(t, warehouses, 1)
	assert.Equal(t, "Moscow FBS", warehouses[0].Name)
}
