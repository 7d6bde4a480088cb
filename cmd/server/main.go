package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/albertomartinsanchez/breakfast-backend/internal/auth"
	"github.com/albertomartinsanchez/breakfast-backend/internal/cache"
	"github.com/albertomartinsanchez/breakfast-backend/internal/config"
	"github.com/albertomartinsanchez/breakfast-backend/internal/database"
	"github.com/albertomartinsanchez/breakfast-backend/internal/db"
	"github.com/albertomartinsanchez/breakfast-backend/internal/handlers"
	"github.com/albertomartinsanchez/breakfast-backend/internal/health"
	hr "github.com/albertomartinsanchez/breakfast-backend/internal/http"
	"github.com/albertomartinsanchez/breakfast-backend/internal/middleware"
	"github.com/albertomartinsanchez/breakfast-backend/internal/notify"
	"github.com/albertomartinsanchez/breakfast-backend/internal/repositories"
	"github.com/albertomartinsanchez/breakfast-backend/internal/services"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	pool := db.Connect(cfg)
	defer pool.Close()

	migrator := database.NewMigrator(pool)
	if err := migrator.RunMigrations(context.Background()); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	statusCache := cache.New(cfg, logger)
	defer statusCache.Close()

	saleRepo := repositories.NewSaleRepository(pool)
	stepRepo := repositories.NewDeliveryStepRepository(pool)
	customerRepo := repositories.NewCustomerRepository(pool)
	productRepo := repositories.NewProductRepository(pool)
	deviceRepo := repositories.NewPushDeviceRepository(pool)

	gateway := notify.NewPushGateway(cfg.Push.Endpoint, cfg.Push.APIKey)
	dispatcher := notify.NewDispatcher(gateway, deviceRepo, logger, cfg.Notify.Workers, cfg.Notify.QueueSize)
	dispatcher.Start()
	defer dispatcher.Stop()

	saleService := services.NewSaleService(saleRepo, customerRepo, productRepo, dispatcher, logger, cfg.Orders.CutoffHours)
	deliveryService := services.NewDeliveryService(saleRepo, stepRepo, customerRepo, dispatcher, statusCache, logger)
	portalService := services.NewPortalService(customerRepo, saleRepo, productRepo, stepRepo, deviceRepo, statusCache, logger, cfg.Orders.CutoffHours)

	jwtManager := auth.NewJWTManager(cfg)
	authMiddleware := middleware.NewAuthMiddleware(jwtManager)
	accessLog := middleware.NewAccessLogMiddleware(logger)

	saleHandler := handlers.NewSaleHandler(saleService)
	deliveryHandler := handlers.NewDeliveryHandler(deliveryService)
	portalHandler := handlers.NewPortalHandler(portalService, logger,
		time.Duration(cfg.Stream.PollIntervalSeconds)*time.Second)
	healthHandler := handlers.NewHealthHandler(health.NewHealthChecker(pool, statusCache))

	router := hr.NewRouter(saleHandler, deliveryHandler, portalHandler, healthHandler, authMiddleware, accessLog)

	handler := middleware.NewCORS(cfg)(middleware.PanicRecovery(logger)(router))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
