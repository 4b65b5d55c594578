package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/sellerhub/stocksync/internal/application"
	"github.com/sellerhub/stocksync/internal/config"
	"github.com/sellerhub/stocksync/internal/dispatcher"
	"github.com/sellerhub/stocksync/internal/domain"
	"github.com/sellerhub/stocksync/internal/infrastructure/adapters"
	"github.com/sellerhub/stocksync/internal/infrastructure/locking"
	mongoRepo "github.com/sellerhub/stocksync/internal/infrastructure/mongodb"
	"github.com/sellerhub/stocksync/pkg/kafka"
	"github.com/sellerhub/stocksync/pkg/logging"
	"github.com/sellerhub/stocksync/pkg/metrics"
	"github.com/sellerhub/stocksync/pkg/outbox"
)

const serviceName = "stocksync"

func main() {
	cfg, err := config.Load(os.Getenv("STOCKSYNC_CONFIG"))
	if err != nil {
		logging.New(logging.DefaultConfig(serviceName)).WithError(err).Error("Failed to load config")
		os.Exit(1)
	}

	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(cfg.Log.Level)
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting stocksync API")
	ctx := context.Background()

	m := metrics.New(metrics.DefaultConfig(serviceName))

	mongoClient, err := mongoRepo.Connect(ctx, cfg.MongoDB.URI)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Disconnect(ctx)
	db := mongoClient.Database(cfg.MongoDB.Database)
	logger.Info("Connected to MongoDB", "database", cfg.MongoDB.Database)

	ledgerRepo := mongoRepo.NewLedgerRepository(db)
	aggregateRepo := mongoRepo.NewAggregateRepository(db)
	auditRepo := mongoRepo.NewAuditRepository(db)
	orderRepo := mongoRepo.NewIncomeOrderRepository(db)
	linkRepo := mongoRepo.NewLinkRepository(db)
	outboxRepo := mongoRepo.NewOutboxRepository(db)
	txRunner := mongoRepo.NewTxRunner(mongoClient)

	var locker locking.KeyLocker = locking.NewStripedLocker()
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		locker = locking.NewRedisLocker(rdb)
		logger.Info("Using Redis key locking", "addr", cfg.Redis.Addr)
	}

	kafkaConfig := kafka.DefaultConfig()
	kafkaConfig.Brokers = cfg.Kafka.Brokers
	kafkaConfig.ClientID = cfg.Kafka.ClientID
	producer := kafka.NewProducer(kafkaConfig)
	defer producer.Close()

	publisher := outbox.NewPublisher(outboxRepo, producer, logger, m, &outbox.PublisherConfig{
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
	})
	if err := publisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer publisher.Stop()
	logger.Info("Outbox publisher started", "brokers", cfg.Kafka.Brokers)

	registry := buildAdapterRegistry(cfg)

	syncDispatcher := dispatcher.New(dispatcher.Config{
		WorkersPerMarketplace: cfg.Sync.WorkersPerMarketplace,
		QueueSize:             cfg.Sync.QueueSize,
		MaxAttempts:           cfg.Sync.MaxAttempts,
		PushTimeout:           cfg.Sync.PushTimeout,
		InitialBackoff:        cfg.Sync.InitialBackoff,
		MaxBackoff:            cfg.Sync.MaxBackoff,
		ResyncInterval:        cfg.Sync.ResyncInterval,
	}, linkRepo, registry, auditRepo, aggregateRepo, outboxRepo, logger, m)
	syncDispatcher.Start(ctx)
	defer syncDispatcher.Stop()

	inventoryService := application.NewInventoryService(ledgerRepo, aggregateRepo, outboxRepo, locker, syncDispatcher, logger, m)
	orderService := application.NewIncomeOrderService(orderRepo, ledgerRepo, aggregateRepo, outboxRepo, txRunner, locker, syncDispatcher, logger, m)
	linkService := application.NewLinkService(linkRepo, registry, logger)
	queryService := application.NewQueryService(aggregateRepo, ledgerRepo, auditRepo)

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
	})
	router.GET("/ready", func(c *gin.Context) {
		if err := mongoClient.Ping(c.Request.Context(), nil); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "queueDepth": syncDispatcher.QueueDepth()})
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))

	api := router.Group("/api/v1")
	{
		stock := api.Group("/warehouses/:warehouseId/stock")
		stock.GET("", listStockHandler(queryService))
		stock.GET("/:article", getStockHandler(queryService))
		stock.GET("/:article/ledger", ledgerHistoryHandler(queryService))
		stock.GET("/:article/reservations/:referenceId", getReservationHandler(queryService))
		stock.POST("/:article/adjust", adjustHandler(inventoryService))
		stock.POST("/:article/reserve", reserveHandler(inventoryService))
		stock.POST("/:article/release", releaseHandler(inventoryService))
		stock.POST("/:article/fulfill", fulfillHandler(inventoryService))
		stock.PUT("/:article/alert-threshold", alertThresholdHandler(inventoryService))
		stock.POST("/:article/rebuild", rebuildHandler(inventoryService))

		orders := api.Group("/income-orders")
		orders.POST("", createOrderHandler(orderService))
		orders.GET("", listOrdersHandler(orderService))
		orders.GET("/:orderId", getOrderHandler(orderService))
		orders.PUT("/:orderId/items", updateOrderItemsHandler(orderService))
		orders.POST("/:orderId/accept", acceptOrderHandler(orderService))
		orders.POST("/:orderId/cancel", cancelOrderHandler(orderService))

		links := api.Group("/links")
		links.POST("", createLinkHandler(linkService))
		links.GET("", listLinksHandler(linkService))
		links.GET("/:linkId", getLinkHandler(linkService))
		links.PUT("/:linkId/enabled", setLinkEnabledHandler(linkService))
		links.DELETE("/:linkId", deleteLinkHandler(linkService))

		api.GET("/marketplaces/:marketplace/warehouses", externalWarehousesHandler(linkService))

		sync := api.Group("/sync")
		sync.GET("/history", syncHistoryHandler(queryService))
		sync.GET("/latest", latestSyncHandler(queryService))
		sync.POST("/resync", resyncHandler(syncDispatcher))
	}

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "port", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	logger.Info("Server stopped")
}

func buildAdapterRegistry(cfg *config.Config) *domain.AdapterRegistry {
	registry := domain.NewAdapterRegistry()
	registry.Register(adapters.NewOzonAdapter(adapters.OzonConfig{
		BaseURL:  cfg.Adapters.Ozon.BaseURL,
		ClientID: cfg.Adapters.Ozon.ClientID,
		APIKey:   cfg.Adapters.Ozon.APIKey,
	}))
	registry.Register(adapters.NewWildberriesAdapter(adapters.WildberriesConfig{
		BaseURL: cfg.Adapters.Wildberries.BaseURL,
		Token:   cfg.Adapters.Wildberries.Token,
	}))
	registry.Register(adapters.NewYandexMarketAdapter(adapters.YandexMarketConfig{
		BaseURL:    cfg.Adapters.YandexMarket.BaseURL,
		APIKey:     cfg.Adapters.YandexMarket.APIKey,
		CampaignID: cfg.Adapters.YandexMarket.CampaignID,
	}))
	registry.Register(adapters.NewLocalSiteAdapter(adapters.LocalSiteConfig{
		BaseURL: cfg.Adapters.LocalSite.BaseURL,
		Token:   cfg.Adapters.LocalSite.Token,
	}))
	return registry
}
