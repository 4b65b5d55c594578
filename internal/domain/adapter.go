package domain

import (
	"context"
	"errors"
	"fmt"
)

// AdapterError is the marketplace-side error taxonomy. Retryable errors
// (network failures, rate limits, 5xx) are re-queued with backoff;
// non-retryable ones (unknown article, validation) stop the retry loop.
type AdapterError struct {
	Marketplace Marketplace
	Code        string
	Message     string
	Retryable   bool
}

// Error implements the error interface
func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s adapter: %s: %s", e.Marketplace, e.Code, e.Message)
}

// NewRetryableError creates a retryable adapter error.
func NewRetryableError(marketplace Marketplace, code, message string) *AdapterError {
	return &AdapterError{Marketplace: marketplace, Code: code, Message: message, Retryable: true}
}

// NewPermanentError creates a non-retryable adapter error.
func NewPermanentError(marketplace Marketplace, code, message string) *AdapterError {
	return &AdapterError{Marketplace: marketplace, Code: code, Message: message, Retryable: false}
}

// IsRetryable reports whether an error should be retried. Errors that are not
// AdapterErrors (timeouts, transport failures) are treated as retryable: the
// push is not assumed to have succeeded and trying again is harmless.
func IsRetryable(err error) bool {
	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		return adapterErr.Retryable
	}
	return true
}

// ExternalWarehouse is one warehouse as the marketplace reports it.
type ExternalWarehouse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MarketplaceAdapter translates availability pushes into one marketplace's
// API calls. One implementation per marketplace; each push fully re-states
// availability, so repeating or reordering pushes for a key converges on the
// last requested quantity.
type MarketplaceAdapter interface {
	// Marketplace returns the channel this adapter handles.
	Marketplace() Marketplace

	// PushStock re-states the availability of one article on one external
	// warehouse.
	PushStock(ctx context.Context, externalWarehouseID, article string, quantity int) error

	// ListWarehouses returns the marketplace's warehouses for link setup.
	ListWarehouses(ctx context.Context) ([]ExternalWarehouse, error)
}

// AdapterRegistry resolves adapters by marketplace.
type AdapterRegistry struct {
	adapters map[Marketplace]MarketplaceAdapter
}

// NewAdapterRegistry creates an empty registry.
func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{adapters: make(map[Marketplace]MarketplaceAdapter)}
}

// Register registers an adapter for its marketplace.
func (r *AdapterRegistry) Register(adapter MarketplaceAdapter) {
	r.adapters[adapter.Marketplace()] = adapter
}

// Get returns the adapter for a marketplace.
func (r *AdapterRegistry) Get(marketplace Marketplace) (MarketplaceAdapter, error) {
	adapter, ok := r.adapters[marketplace]
	if !ok {
		return nil, ErrUnknownMarketplace
	}
	return adapter, nil
}

// Marketplaces returns the registered marketplaces.
func (r *AdapterRegistry) Marketplaces() []Marketplace {
	out := make([]Marketplace, 0, len(r.adapters))
	for m := range r.adapters {
		out = append(out, m)
	}
	return out
}
