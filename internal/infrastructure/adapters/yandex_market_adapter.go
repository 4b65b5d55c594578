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

// YandexMarketConfig carries the campaign credentials for Yandex Market.
type YandexMarketConfig struct {
	BaseURL    string
	APIKey     string
	CampaignID string
}

// YandexMarketAdapter pushes stock through the Yandex Market partner API.
// One campaign maps to one external warehouse in link terms.
type YandexMarketAdapter struct {
	config     YandexMarketConfig
	httpClient *http.Client
}

// NewYandexMarketAdapter creates a Yandex Market adapter.
func NewYandexMarketAdapter(config YandexMarketConfig) *YandexMarketAdapter {
	return &YandexMarketAdapter{config: config, httpClient: newHTTPClient()}
}

// Marketplace returns the channel this adapter handles.
func (a *YandexMarketAdapter) Marketplace() domain.Marketplace {
	return domain.MarketplaceYandexMarket
}

type ymStockItem struct {
	SKU   string `json:"sku"`
	Items []struct {
		Count int `json:"count"`
	} `json:"items"`
}

type ymStocksRequest struct {
	SKUs []ymStockItem `json:"skus"`
}

// PushStock re-states one article's availability on one campaign warehouse.
func (a *YandexMarketAdapter) PushStock(ctx context.Context, externalWarehouseID, article string, quantity int) (err error) {
	ctx, finish := startCall(ctx, domain.MarketplaceYandexMarket, "yandex_market.PushStock",
		attribute.String("warehouse.external_id", externalWarehouseID),
		attribute.String("article", article),
		attribute.Int("quantity", quantity))
	defer func() { finish(err) }()

	item := ymStockItem{SKU: article}
	item.Items = append(item.Items, struct {
		Count int `json:"count"`
	}{Count: quantity})

	body, err := json.Marshal(ymStocksRequest{SKUs: []ymStockItem{item}})
	if err != nil {
		return fmt.Errorf("failed to marshal stock request: %w", err)
	}

	url := fmt.Sprintf("%s/campaigns/%s/offers/stocks", a.config.BaseURL, externalWarehouseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Api-Key", a.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to push stock to yandex market: %w", err)
	}
	defer resp.Body.Close()

	return classifyStatus(ctx, domain.MarketplaceYandexMarket, resp)
}

type ymCampaignsResponse struct {
	Campaigns []struct {
		ID     int64  `json:"id"`
		Domain string `json:"domain"`
	} `json:"campaigns"`
}

// ListWarehouses returns the seller's campaigns as external warehouses.
func (a *YandexMarketAdapter) ListWarehouses(ctx context.Context) (_ []domain.ExternalWarehouse, err error) {
	ctx, finish := startCall(ctx, domain.MarketplaceYandexMarket, "yandex_market.ListWarehouses")
	defer func() { finish(err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.BaseURL+"/campaigns", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Api-Key", a.config.APIKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list yandex market campaigns: %w", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(ctx, domain.MarketplaceYandexMarket, resp); err != nil {
		return nil, err
	}

	var response ymCampaignsResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode campaign list: %w", err)
	}

	warehouses := make([]domain.ExternalWarehouse, 0, len(response.Campaigns))
	for _, c := range response.Campaigns {
		warehouses = append(warehouses, domain.ExternalWarehouse{
			ID:   strconv.FormatInt(c.ID, 10),
			Name: c.Domain,
		})
	}
	return warehouses, nil
}
