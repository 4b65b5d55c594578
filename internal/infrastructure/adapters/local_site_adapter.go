package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/sellerhub/stocksync/internal/domain"
)

// LocalSiteConfig carries the bearer token for the seller's own storefront.
type LocalSiteConfig struct {
	BaseURL string
	Token   string
}

// LocalSiteAdapter pushes stock to the seller's own site over its admin API.
type LocalSiteAdapter struct {
	config     LocalSiteConfig
	httpClient *http.Client
}

// NewLocalSiteAdapter creates a local site adapter.
func NewLocalSiteAdapter(config LocalSiteConfig) *LocalSiteAdapter {
	return &LocalSiteAdapter{config: config, httpClient: newHTTPClient()}
}

// Marketplace returns the channel this adapter handles.
func (a *LocalSiteAdapter) Marketplace() domain.Marketplace {
	return domain.MarketplaceLocalSite
}

type localStockRequest struct {
	WarehouseID string `json:"warehouse_id"`
	Article     string `json:"article"`
	Quantity    int    `json:"quantity"`
}

// PushStock re-states one article's availability on the site.
func (a *LocalSiteAdapter) PushStock(ctx context.Context, externalWarehouseID, article string, quantity int) (err error) {
	ctx, finish := startCall(ctx, domain.MarketplaceLocalSite, "local_site.PushStock",
		attribute.String("warehouse.external_id", externalWarehouseID),
		attribute.String("article", article),
		attribute.Int("quantity", quantity))
	defer func() { finish(err) }()

	body, err := json.Marshal(localStockRequest{
		WarehouseID: externalWarehouseID,
		Article:     article,
		Quantity:    quantity,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal stock request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/api/stock", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.config.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to push stock to local site: %w", err)
	}
	defer resp.Body.Close()

	return classifyStatus(ctx, domain.MarketplaceLocalSite, resp)
}

// ListWarehouses returns the site's warehouses.
func (a *LocalSiteAdapter) ListWarehouses(ctx context.Context) (_ []domain.ExternalWarehouse, err error) {
	ctx, finish := startCall(ctx, domain.MarketplaceLocalSite, "local_site.ListWarehouses")
	defer func() { finish(err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.BaseURL+"/api/warehouses", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+a.config.Token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list local site warehouses: %w", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(ctx, domain.MarketplaceLocalSite, resp); err != nil {
		return nil, err
	}

	var warehouses []domain.ExternalWarehouse
	if err := json.NewDecoder(resp.Body).Decode(&warehouses); err != nil {
		return nil, fmt.Errorf("failed to decode warehouse list: %w", err)
	}
	return warehouses, nil
}
