package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"github.com/sellerhub/stocksync/internal/domain"
)

// WildberriesConfig carries the supplier API token for Wildberries.
type WildberriesConfig struct {
	BaseURL string
	Token   string
}

// WildberriesAdapter pushes stock through the Wildberries supplier API.
type WildberriesAdapter struct {
	config     WildberriesConfig
	httpClient *http.Client
}

// NewWildberriesAdapter creates a Wildberries adapter.
func NewWildberriesAdapter(config WildberriesConfig) *WildberriesAdapter {
	return &WildberriesAdapter{config: config, httpClient: newHTTPClient()}
}

// Marketplace returns the channel this adapter handles.
func (a *WildberriesAdapter) Marketplace() domain.Marketplace {
	return domain.MarketplaceWildberries
}

type wbStocksRequest struct {
	Stocks []struct {
		SKU    string `json:"sku"`
		Amount int    `json:"amount"`
	} `json:"stocks"`
}

// PushStock re-states one article's availability on one Wildberries warehouse.
func (a *WildberriesAdapter) PushStock(ctx context.Context, externalWarehouseID, article string, quantity int) (err error) {
	ctx, finish := startCall(ctx, domain.MarketplaceWildberries, "wildberries.PushStock",
		attribute.String("warehouse.external_id", externalWarehouseID),
		attribute.String("article", article),
		attribute.Int("quantity", quantity))
	defer func() { finish(err) }()

	var payload wbStocksRequest
	payload.Stocks = append(payload.Stocks, struct {
		SKU    string `json:"sku"`
		Amount int    `json:"amount"`
	}{SKU: article, Amount: quantity})

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal stock request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v3/stocks/%s", a.config.BaseURL, externalWarehouseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", a.config.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to push stock to wildberries: %w", err)
	}
	defer resp.Body.Close()

	return classifyStatus(ctx, domain.MarketplaceWildberries, resp)
}

// ListWarehouses returns the supplier's Wildberries warehouses.
func (a *WildberriesAdapter) ListWarehouses(ctx context.Context) (_ []domain.ExternalWarehouse, err error) {
	ctx, finish := startCall(ctx, domain.MarketplaceWildberries, "wildberries.ListWarehouses")
	defer func() { finish(err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.BaseURL+"/api/v3/warehouses", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", a.config.Token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list wildberries warehouses: %w", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(ctx, domain.MarketplaceWildberries, resp); err != nil {
		return nil, err
	}

	var response []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode warehouse list: %w", err)
	}

	warehouses := make([]domain.ExternalWarehouse, 0, len(response))
	for _, w := range response {
		warehouses = append(warehouses, domain.ExternalWarehouse{
			ID:   strconv.FormatInt(w.ID, 10),
			Name: w.Name,
		})
	}
	return warehouses, nil
}
