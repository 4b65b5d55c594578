package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sellerhub/stocksync/internal/domain"
)

func TestOzonMarketplace(t *testing.T) {
	adapter := NewOzonAdapter(OzonConfig{})
	require.Equal(t, domain.MarketplaceOzon, adapter.Marketplace())
}

func TestOzonPushStock(t *testing.T) {
	var got ozonStocksRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/products/stocks", r.URL.Path)
		require.Equal(t, "client-1", r.Header.Get("Client-Id"))
		require.Equal(t, "key-1", r.Header.Get("Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	adapter := NewOzonAdapter(OzonConfig{BaseURL: server.URL, ClientID: "client-1", APIKey: "key-1"})
	err := adapter.PushStock(context.Background(), "777", "SKU-100", 42)
	require.NoError(t, err)

	require.Len(t, got.Stocks, 1)
	require.Equal(t, "SKU-100", got.Stocks[0].OfferID)
	require.Equal(t, int64(777), got.Stocks[0].WarehouseID)
	require.Equal(t, 42, got.Stocks[0].Stock)
}

func TestOzonPushStockBadWarehouseID(t *testing.T) {
	adapter := NewOzonAdapter(OzonConfig{BaseURL: "http://unused"})
	err := adapter.PushStock(context.Background(), "not-a-number", "SKU-100", 1)
	require.Error(t, err)
	require.False(t, domain.IsRetryable(err))
}

func TestOzonPushStockErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
		{"bad gateway", http.StatusBadGateway, true},
		{"auth failed", http.StatusUnauthorized, false},
		{"not found", http.StatusNotFound, false},
		{"validation", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			adapter := NewOzonAdapter(OzonConfig{BaseURL: server.URL})
			err := adapter.PushStock(context.Background(), "1", "SKU-100", 5)
			require.Error(t, err)
			require.Equal(t, tt.retryable, domain.IsRetryable(err))
		})
	}
}

func TestOzonListWarehouses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/warehouse/list", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"warehouse_id": 101, "name": "Moscow FBS"},
				{"warehouse_id": 102, "name": "Tver FBS"},
			},
		})
	}))
	defer server.Close()

	adapter := NewOzonAdapter(OzonConfig{BaseURL: server.URL})
	warehouses, err := adapter.ListWarehouses(context.Background())
	require.NoError(t, err)
	require.Len(t, warehouses, 2)
	require.Equal(t, "101", warehouses[0].ID)
	require.Equal(t, "Moscow FBS", warehouses[0].Name)
}
