package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sellerhub/stocksync/internal/application"
	"github.com/sellerhub/stocksync/internal/dispatcher"
	apperrors "github.com/sellerhub/stocksync/pkg/errors"
)

func respondError(c *gin.Context, err error) {
	appErr := apperrors.MapDomainError(err)
	c.JSON(appErr.HTTPStatus, appErr)
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func listStockHandler(service *application.QueryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := service.ListStock(c.Request.Context(), application.ListStockQuery{
			WarehouseID:    c.Param("warehouseId"),
			Article:        c.Query("article"),
			BelowThreshold: c.Query("belowThreshold") == "true",
			Limit:          intQuery(c, "limit", 50),
			Offset:         intQuery(c, "offset", 0),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"stock": rows, "count": len(rows)})
	}
}

func getStockHandler(service *application.QueryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		stock, err := service.GetStock(c.Request.Context(), c.Param("warehouseId"), c.Param("article"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stock)
	}
}

func ledgerHistoryHandler(service *application.QueryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		fromSeq, _ := strconv.ParseInt(c.DefaultQuery("fromSeq", "0"), 10, 64)
		events, err := service.LedgerHistory(c.Request.Context(),
			c.Param("warehouseId"), c.Param("article"), fromSeq, intQuery(c, "limit", 100))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
	}
}

func getReservationHandler(service *application.QueryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		reservation, err := service.GetReservation(c.Request.Context(),
			c.Param("warehouseId"), c.Param("article"), c.Param("referenceId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, reservation)
	}
}

func adjustHandler(service *application.InventoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Delta   int    `json:"delta" binding:"required"`
			Note    string `json:"note"`
			ActorID string `json:"actorId"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		stock, err := service.Adjust(c.Request.Context(), application.AdjustStockCommand{
			WarehouseID: c.Param("warehouseId"),
			Article:     c.Param("article"),
			Delta:       req.Delta,
			Note:        req.Note,
			ActorID:     req.ActorID,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stock)
	}
}

func reserveHandler(service *application.InventoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Quantity    int    `json:"quantity" binding:"required,gt=0"`
			ReferenceID string `json:"referenceId" binding:"required"`
			ActorID     string `json:"actorId"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		reservation, err := service.Reserve(c.Request.Context(), application.ReserveStockCommand{
			WarehouseID: c.Param("warehouseId"),
			Article:     c.Param("article"),
			Quantity:    req.Quantity,
			ReferenceID: req.ReferenceID,
			ActorID:     req.ActorID,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, reservation)
	}
}

func releaseHandler(service *application.InventoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ReferenceID string `json:"referenceId" binding:"required"`
			ActorID     string `json:"actorId"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		reservation, err := service.Release(c.Request.Context(), application.ReleaseReservationCommand{
			WarehouseID: c.Param("warehouseId"),
			Article:     c.Param("article"),
			ReferenceID: req.ReferenceID,
			ActorID:     req.ActorID,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, reservation)
	}
}

func fulfillHandler(service *application.InventoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ReferenceID string `json:"referenceId" binding:"required"`
			ActorID     string `json:"actorId"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		reservation, err := service.Fulfill(c.Request.Context(), application.FulfillReservationCommand{
			WarehouseID: c.Param("warehouseId"),
			Article:     c.Param("article"),
			ReferenceID: req.ReferenceID,
			ActorID:     req.ActorID,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, reservation)
	}
}

func alertThresholdHandler(service *application.InventoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			AlertThreshold int `json:"alertThreshold" binding:"gte=0"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		stock, err := service.SetAlertThreshold(c.Request.Context(), application.SetAlertThresholdCommand{
			WarehouseID:    c.Param("warehouseId"),
			Article:        c.Param("article"),
			AlertThreshold: req.AlertThreshold,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stock)
	}
}

func rebuildHandler(service *application.InventoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := service.Rebuild(c.Request.Context(), application.RebuildAggregateCommand{
			WarehouseID: c.Param("warehouseId"),
			Article:     c.Param("article"),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

type incomeOrderItemReq struct {
	Article   string `json:"article" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	UnitCost  int64  `json:"unitCost" binding:"gte=0"`
	ExtraCost int64  `json:"extraCost" binding:"gte=0"`
}

func toItemInputs(items []incomeOrderItemReq) []application.IncomeOrderItemInput {
	inputs := make([]application.IncomeOrderItemInput, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, application.IncomeOrderItemInput{
			Article:   item.Article,
			Quantity:  item.Quantity,
			UnitCost:  item.UnitCost,
			ExtraCost: item.ExtraCost,
		})
	}
	return inputs
}

func createOrderHandler(service *application.IncomeOrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			WarehouseID string               `json:"warehouseId" binding:"required"`
			SupplierID  string               `json:"supplierId"`
			Items       []incomeOrderItemReq `json:"items"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		order, err := service.Create(c.Request.Context(), application.CreateIncomeOrderCommand{
			WarehouseID: req.WarehouseID,
			SupplierID:  req.SupplierID,
			Items:       toItemInputs(req.Items),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, order)
	}
}

func listOrdersHandler(service *application.IncomeOrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := service.List(c.Request.Context(),
			c.Query("warehouseId"), c.Query("status"),
			intQuery(c, "limit", 50), intQuery(c, "offset", 0))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
	}
}

func getOrderHandler(service *application.IncomeOrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := service.Get(c.Request.Context(), c.Param("orderId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func updateOrderItemsHandler(service *application.IncomeOrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Items []incomeOrderItemReq `json:"items" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		order, err := service.UpdateItems(c.Request.Context(), application.UpdateIncomeOrderCommand{
			OrderID: c.Param("orderId"),
			Items:   toItemInputs(req.Items),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func acceptOrderHandler(service *application.IncomeOrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ActorID string `json:"actorId"`
		}
		// Body is optional, accept works with no payload.
		_ = c.ShouldBindJSON(&req)
		result, err := service.Accept(c.Request.Context(), application.AcceptIncomeOrderCommand{
			OrderID: c.Param("orderId"),
			ActorID: req.ActorID,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func cancelOrderHandler(service *application.IncomeOrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ActorID string `json:"actorId"`
		}
		_ = c.ShouldBindJSON(&req)
		result, err := service.Cancel(c.Request.Context(), application.CancelIncomeOrderCommand{
			OrderID: c.Param("orderId"),
			ActorID: req.ActorID,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func createLinkHandler(service *application.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			WarehouseID         string `json:"warehouseId" binding:"required"`
			Marketplace         string `json:"marketplace" binding:"required"`
			ExternalWarehouseID string `json:"externalWarehouseId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		link, err := service.Create(c.Request.Context(), application.CreateLinkCommand{
			WarehouseID:         req.WarehouseID,
			Marketplace:         req.Marketplace,
			ExternalWarehouseID: req.ExternalWarehouseID,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, link)
	}
}

func listLinksHandler(service *application.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		links, err := service.List(c.Request.Context(), c.Query("warehouseId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"links": links, "count": len(links)})
	}
}

func getLinkHandler(service *application.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		link, err := service.Get(c.Request.Context(), c.Param("linkId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, link)
	}
}

func setLinkEnabledHandler(service *application.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Enabled *bool `json:"enabled" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		link, err := service.SetEnabled(c.Request.Context(), application.SetLinkEnabledCommand{
			LinkID:  c.Param("linkId"),
			Enabled: *req.Enabled,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, link)
	}
}

func deleteLinkHandler(service *application.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := service.Delete(c.Request.Context(), c.Param("linkId")); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func externalWarehousesHandler(service *application.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		warehouses, err := service.ListExternalWarehouses(c.Request.Context(), c.Param("marketplace"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"warehouses": warehouses, "count": len(warehouses)})
	}
}

func syncHistoryHandler(service *application.QueryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := application.SyncHistoryQuery{
			Marketplace: c.Query("marketplace"),
			WarehouseID: c.Query("warehouseId"),
			Article:     c.Query("article"),
			Status:      c.Query("status"),
			Limit:       intQuery(c, "limit", 50),
			Offset:      intQuery(c, "offset", 0),
		}
		if raw := c.Query("from"); raw != "" {
			if t, err := time.Parse(time.RFC3339, raw); err == nil {
				query.From = t
			}
		}
		if raw := c.Query("to"); raw != "" {
			if t, err := time.Parse(time.RFC3339, raw); err == nil {
				query.To = t
			}
		}
		attempts, err := service.SyncHistory(c.Request.Context(), query)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"attempts": attempts, "count": len(attempts)})
	}
}

func latestSyncHandler(service *application.QueryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		linkID := c.Query("linkId")
		article := c.Query("article")
		if linkID == "" || article == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "linkId and article are required"})
			return
		}
		attempt, err := service.LatestSync(c.Request.Context(), linkID, article)
		if err != nil {
			respondError(c, err)
			return
		}
		if attempt == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no sync attempts recorded"})
			return
		}
		c.JSON(http.StatusOK, attempt)
	}
}

func resyncHandler(d *dispatcher.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := d.Resync(c.Request.Context()); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "resync scheduled"})
	}
}
