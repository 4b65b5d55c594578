package application

import "github.com/sellerhub/stocksync/internal/domain"

// ToStockDTO converts a stock aggregate to its response shape.
func ToStockDTO(aggregate *domain.StockAggregate) StockDTO {
	return StockDTO{
		WarehouseID:    aggregate.WarehouseID,
		Article:        aggregate.Article,
		Quantity:       aggregate.Quantity,
		Reserved:       aggregate.Reserved,
		Available:      aggregate.Available(),
		AlertThreshold: aggregate.AlertThreshold,
		LastSequenceNo: aggregate.LastSequenceNo,
		UpdatedAt:      aggregate.UpdatedAt,
	}
}

// ToStockDTOs converts a slice of aggregates.
func ToStockDTOs(aggregates []*domain.StockAggregate) []StockDTO {
	out := make([]StockDTO, 0, len(aggregates))
	for _, aggregate := range aggregates {
		out = append(out, ToStockDTO(aggregate))
	}
	return out
}

// ToIncomeOrderDTO converts an income order to its response shape.
func ToIncomeOrderDTO(order *domain.IncomeOrder) *IncomeOrderDTO {
	items := make([]IncomeOrderItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, IncomeOrderItemDTO{
			Article:   item.Article,
			Quantity:  item.Quantity,
			UnitCost:  item.UnitCost,
			ExtraCost: item.ExtraCost,
		})
	}
	return &IncomeOrderDTO{
		OrderID:     order.OrderID,
		WarehouseID: order.WarehouseID,
		SupplierID:  order.SupplierID,
		Status:      string(order.Status),
		Items:       items,
		AcceptedAt:  order.AcceptedAt,
		CancelledAt: order.CancelledAt,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
}

// ToIncomeOrderDTOs converts a slice of orders.
func ToIncomeOrderDTOs(orders []*domain.IncomeOrder) []*IncomeOrderDTO {
	out := make([]*IncomeOrderDTO, 0, len(orders))
	for _, order := range orders {
		out = append(out, ToIncomeOrderDTO(order))
	}
	return out
}

// ToLinkDTO converts a warehouse link to its response shape.
func ToLinkDTO(link *domain.WarehouseLink) *WarehouseLinkDTO {
	return &WarehouseLinkDTO{
		LinkID:              link.LinkID,
		WarehouseID:         link.WarehouseID,
		Marketplace:         string(link.Marketplace),
		ExternalWarehouseID: link.ExternalWarehouseID,
		Enabled:             link.Enabled,
		CreatedAt:           link.CreatedAt,
		UpdatedAt:           link.UpdatedAt,
	}
}

// ToLinkDTOs converts a slice of links.
func ToLinkDTOs(links []*domain.WarehouseLink) []*WarehouseLinkDTO {
	out := make([]*WarehouseLinkDTO, 0, len(links))
	for _, link := range links {
		out = append(out, ToLinkDTO(link))
	}
	return out
}

// ToSyncAttemptDTO converts an audit row to its response shape.
func ToSyncAttemptDTO(attempt *domain.SyncAttempt) *SyncAttemptDTO {
	return &SyncAttemptDTO{
		AttemptID:    attempt.AttemptID,
		LinkID:       attempt.LinkID,
		WarehouseID:  attempt.WarehouseID,
		Marketplace:  string(attempt.Marketplace),
		Article:      attempt.Article,
		QuantitySent: attempt.QuantitySent,
		Status:       string(attempt.Status),
		ErrorMessage: attempt.ErrorMessage,
		Retryable:    attempt.Retryable,
		AttemptNo:    attempt.AttemptNo,
		AttemptedAt:  attempt.AttemptedAt,
	}
}

// ToSyncAttemptDTOs converts a slice of audit rows.
func ToSyncAttemptDTOs(attempts []*domain.SyncAttempt) []*SyncAttemptDTO {
	out := make([]*SyncAttemptDTO, 0, len(attempts))
	for _, attempt := range attempts {
		out = append(out, ToSyncAttemptDTO(attempt))
	}
	return out
}

func toDomainItems(inputs []IncomeOrderItemInput) []domain.IncomeOrderItem {
	items := make([]domain.IncomeOrderItem, 0, len(inputs))
	for _, input := range inputs {
		items = append(items, domain.IncomeOrderItem{
			Article:   input.Article,
			Quantity:  input.Quantity,
			UnitCost:  input.UnitCost,
			ExtraCost: input.ExtraCost,
		})
	}
	return items
}
