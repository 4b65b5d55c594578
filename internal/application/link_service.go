package application

import (
	"context"
	"fmt"

	"github.com/sellerhub/stocksync/internal/domain"
	"github.com/sellerhub/stocksync/pkg/logging"
)

// LinkService manages warehouse links and the marketplace warehouse lookups
// used when creating them.
type LinkService struct {
	links    domain.LinkStore
	registry *domain.AdapterRegistry
	logger   *logging.Logger
}

// NewLinkService creates a LinkService.
func NewLinkService(links domain.LinkStore, registry *domain.AdapterRegistry, logger *logging.Logger) *LinkService {
	return &LinkService{
		links:    links,
		registry: registry,
		logger:   logger.WithComponent("link-service"),
	}
}

// Create binds a warehouse to a marketplace warehouse. At most one link per
// (warehouse, marketplace) pair may exist.
func (s *LinkService) Create(ctx context.Context, cmd CreateLinkCommand) (*WarehouseLinkDTO, error) {
	link, err := domain.NewWarehouseLink(cmd.WarehouseID, domain.Marketplace(cmd.Marketplace), cmd.ExternalWarehouseID)
	if err != nil {
		return nil, err
	}
	if _, err := s.registry.Get(link.Marketplace); err != nil {
		return nil, err
	}

	if err := s.links.Save(ctx, link); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Warehouse link created",
		"linkId", link.LinkID, "warehouseId", cmd.WarehouseID, "marketplace", cmd.Marketplace)
	return ToLinkDTO(link), nil
}

// Get returns one link.
func (s *LinkService) Get(ctx context.Context, linkID string) (*WarehouseLinkDTO, error) {
	link, err := s.links.FindByID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	return ToLinkDTO(link), nil
}

// List returns links, optionally narrowed to one warehouse.
func (s *LinkService) List(ctx context.Context, warehouseID string) ([]*WarehouseLinkDTO, error) {
	links, err := s.links.FindByWarehouse(ctx, warehouseID, false)
	if err != nil {
		return nil, err
	}
	return ToLinkDTOs(links), nil
}

// ActiveLinksFor returns the enabled links of one warehouse, for intent
// generation.
func (s *LinkService) ActiveLinksFor(ctx context.Context, warehouseID string) ([]*domain.WarehouseLink, error) {
	return s.links.FindByWarehouse(ctx, warehouseID, true)
}

// SetEnabled toggles a link. Disabling stops future intent generation; it
// does not cancel pushes already in flight.
func (s *LinkService) SetEnabled(ctx context.Context, cmd SetLinkEnabledCommand) (*WarehouseLinkDTO, error) {
	link, err := s.links.FindByID(ctx, cmd.LinkID)
	if err != nil {
		return nil, err
	}
	link.SetEnabled(cmd.Enabled)
	if err := s.links.Save(ctx, link); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Warehouse link toggled", "linkId", cmd.LinkID, "enabled", cmd.Enabled)
	return ToLinkDTO(link), nil
}

// Delete removes a link.
func (s *LinkService) Delete(ctx context.Context, linkID string) error {
	if err := s.links.Delete(ctx, linkID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Warehouse link deleted", "linkId", linkID)
	return nil
}

// ListExternalWarehouses asks one marketplace for its warehouses, for link
// setup in the console.
func (s *LinkService) ListExternalWarehouses(ctx context.Context, marketplace string) ([]ExternalWarehouseDTO, error) {
	adapter, err := s.registry.Get(domain.Marketplace(marketplace))
	if err != nil {
		return nil, err
	}

	warehouses, err := adapter.ListWarehouses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s warehouses: %w", marketplace, err)
	}

	out := make([]ExternalWarehouseDTO, 0, len(warehouses))
	for _, w := range warehouses {
		out = append(out, ExternalWarehouseDTO{ID: w.ID, Name: w.Name})
	}
	return out, nil
}
