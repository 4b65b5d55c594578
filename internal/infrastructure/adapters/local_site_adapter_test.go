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

func TestLocalSitePushStock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/stock", r.URL.Path)
		require.Equal(t, "Bearer site-token", r.Header.Get("Authorization"))

		var got localStockRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		require.Equal(t, "main", got.WarehouseID)
		require.Equal(t, "SKU-300", got.Article)
		require.Equal(t, 3, got.Quantity)

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	adapter := NewLocalSiteAdapter(LocalSiteConfig{BaseURL: server.URL, Token: "site-token"})
	err := adapter.PushStock(context.Background(), "main", "SKU-300", 3)
	require.NoError(t, err)
}

func TestLocalSitePushStockServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	adapter := NewLocalSiteAdapter(LocalSiteConfig{BaseURL: server.URL})
	err := adapter.PushStock(context.Background(), "main", "SKU-300", 3)
	require.Error(t, err)
	require.True(t, domain.IsRetryable(err))
}

func TestLocalSiteListWarehouses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/warehouses", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]domain.ExternalWarehouse{
			{ID: "main", Name: "Main store"},
		})
	}))
	defer server.Close()

	adapter := NewLocalSiteAdapter(LocalSiteConfig{BaseURL: server.URL})
	warehouses, err := adapter.ListWarehouses(context.Background())
	require.NoError(t, err)
	require.Len(t, warehouses, 1)
	require.Equal(t, "main", warehouses[0].ID)
}
