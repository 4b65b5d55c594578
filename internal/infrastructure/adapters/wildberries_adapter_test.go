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

func TestWildberriesPushStock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/api/v3/stocks/WB-7", r.URL.Path)
		require.Equal(t, "wb-token", r.Header.Get("Authorization"))

		var got wbStocksRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		require.Len(t, got.Stocks, 1)
		require.Equal(t, "SKU-200", got.Stocks[0].SKU)
		require.Equal(t, 15, got.Stocks[0].Amount)

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	adapter := NewWildberriesAdapter(WildberriesConfig{BaseURL: server.URL, Token: "wb-token"})
	err := adapter.PushStock(context.Background(), "WB-7", "SKU-200", 15)
	require.NoError(t, err)
}

func TestWildberriesPushStockRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	adapter := NewWildberriesAdapter(WildberriesConfig{BaseURL: server.URL})
	err := adapter.PushStock(context.Background(), "WB-7", "SKU-200", 15)
	require.Error(t, err)
	require.True(t, domain.IsRetryable(err))
}

func TestWildberriesListWarehouses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/warehouses", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"id": 7, "name": "Koledino"},
		})
	}))
	defer server.Close()

	adapter := NewWildberriesAdapter(WildberriesConfig{BaseURL: server.URL})
	warehouses, err := adapter.ListWarehouses(context.Background())
	require.NoError(t, err)
	require.Len(t, warehouses, 1)
	require.Equal(t, "7", warehouses[0].ID)
	require.Equal(t, "Koledino", warehouses[0].Name)
}
