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

// OzonConfig carries the seller API credentials for Ozon.
type OzonConfig struct {
	BaseURL  string
	ClientID string
	APIKey   string
}

// OzonAdapter pushes stock through the Ozon seller API.
type OzonAdapter struct {
	config     OzonConfig
	httpClient *http.Client
}

// NewOzonAdapter creates an Ozon adapter.
func NewOzonAdapter(config OzonConfig) *OzonAdapter {
	return &OzonAdapter{config: config, httpClient: newHTTPClient()}
}

// Marketplace returns the channel this adapter handles.
func (a *OzonAdapter) Marketplace() domain.Marketplace {
	return domain.MarketplaceOzon
}

type ozonStockItem struct {
	OfferID     string `json:"offer_id"`
	WarehouseID int64  `json:"warehouse_id"`
	Stock       int    `json:"stock"`
}

type ozonStocksRequest struct {
	Stocks []ozonStockItem `json:"stocks"`
}

// PushStock re-states one article's availability on one Ozon warehouse.
func (a *OzonAdapter) PushStock(ctx context.Context, externalWarehouseID, article string, quantity int) (err error) {
	ctx, finish := startCall(ctx, domain.MarketplaceOzon, "ozon.PushStock",
		attribute.String("warehouse.external_id", externalWarehouseID),
		attribute.String("article", article),
		attribute.Int("quantity", quantity))
	defer func() { finish(err) }()

	warehouseID, err := strconv.ParseInt(externalWarehouseID, 10, 64)
	if err != nil {
		return domain.NewPermanentError(domain.MarketplaceOzon, "BAD_WAREHOUSE_ID",
			fmt.Sprintf("warehouse id %q is not numeric", externalWarehouseID))
	}

	payload := ozonStocksRequest{
		Stocks: []ozonStockItem{{OfferID: article, WarehouseID: warehouseID, Stock: quantity}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal stock request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/v2/products/stocks", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Client-Id", a.config.ClientID)
	req.Header.Set("Api-Key", a.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to push stock to ozon: %w", err)
	}
	defer resp.Body.Close()

	return classifyStatus(ctx, domain.MarketplaceOzon, resp)
}

type ozonWarehousesResponse struct {
	Result []struct {
		WarehouseID int64  `json:"warehouse_id"`
		Name        string `json:"name"`
	} `json:"result"`
}

// ListWarehouses returns the seller's Ozon warehouses.
func (a *OzonAdapter) ListWarehouses(ctx context.Context) (_ []domain.ExternalWarehouse, err error) {
	ctx, finish := startCall(ctx, domain.MarketplaceOzon, "ozon.ListWarehouses")
	defer func() { finish(err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/v1/warehouse/list", bytes.NewReader([]byte("{}")))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Client-Id", a.config.ClientID)
	req.Header.Set("Api-Key", a.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list ozon warehouses: %w", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(ctx, domain.MarketplaceOzon, resp); err != nil {
		return nil, err
	}

	var response ozonWarehousesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode warehouse list: %w", err)
	}

	warehouses := make([]domain.ExternalWarehouse, 0, len(response.Result))
	for _, w := range response.Result {
		warehouses = append(warehouses, domain.ExternalWarehouse{
			ID:   strconv.FormatInt(w.WarehouseID, 10),
			Name: w.Name,
		})
	}
	return warehouses, nil
}
