package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/consumers"
	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/events"
	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/handler"
	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/repository"
	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/service"
	"github.com/rxdesk/pharmacy-backend/pkg/config"
	"github.com/rxdesk/pharmacy-backend/pkg/database"
	"github.com/rxdesk/pharmacy-backend/pkg/httputil"
	"github.com/rxdesk/pharmacy-backend/pkg/logger"
	"github.com/rxdesk/pharmacy-backend/pkg/messaging"
	"github.com/shopspring/decimal"
)

func main() {
	// A local .env is for development only
	if !config.IsProductionLike() {
		_ = godotenv.Load()
	}

	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Money travels as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	log := logger.New(config.ServiceName, cfg.Server.Environment)
	log.Info().Msg("starting Pharmacy Service")

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// RabbitMQ is optional. Without it events are dropped and alerts only
	// refresh on the scheduler or on demand.
	var (
		rmq       *messaging.RabbitMQ
		publisher *events.PharmacyEventPublisher
	)
	if cfg.RabbitMQ.Enabled {
		rmq, err = messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		publisher, err = events.NewPharmacyEventPublisher(rmq, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
	} else {
		log.Warn().Msg("RabbitMQ disabled, events will not be published")
	}

	// Initialize repositories
	stores := service.Stores{
		Medicines:  repository.NewMedicineRepository(db),
		Suppliers:  repository.NewSupplierRepository(db),
		Purchases:  repository.NewPurchaseRepository(db),
		Items:      repository.NewPurchaseItemRepository(db),
		Inventory:  repository.NewInventoryRepository(db),
		Ledger:     repository.NewStockTransactionRepository(db),
		Alerts:     repository.NewExpiryAlertRepository(db),
		References: repository.NewReferenceChecker(db, log),
		Pharmacies: repository.NewPharmacyRepository(db),
	}

	// Initialize services
	purchaseService := service.NewPurchaseService(db, stores, publisher, log)
	cascadeService := service.NewCascadeService(db, stores, publisher, log)
	catalogService := service.NewCatalogService(db, stores, publisher, log)
	expiryService := service.NewExpiryService(db, stores, cfg.Pharmacy.ExpiryWindowDays, cfg.Pharmacy.MaxPageSize, log)
	inventoryService := service.NewInventoryService(db, stores, cfg.Pharmacy.LowStockThreshold, log)
	dashboardService := service.NewDashboardService(db, stores, log)
	alertScanner := service.NewAlertScanner(db, stores, publisher, log)

	// Initialize handlers
	handlers := &handler.Handlers{
		Purchases: handler.NewPurchaseHandler(purchaseService, cascadeService, cfg.Pharmacy.MaxPageSize, log),
		Expiry:    handler.NewExpiryHandler(expiryService, alertScanner, log),
		Inventory: handler.NewInventoryHandler(inventoryService, cfg.Pharmacy.MaxPageSize, log),
		Suppliers: handler.NewSupplierHandler(catalogService, cfg.Pharmacy.MaxPageSize, log),
		Medicines: handler.NewMedicineHandler(catalogService, cfg.Pharmacy.MaxPageSize, log),
		Dashboard: handler.NewDashboardHandler(dashboardService, log),
	}

	// Purchase events from other instances trigger an alert rescan
	if rmq != nil {
		purchaseConsumer, err := consumers.NewPurchaseEventConsumer(rmq, alertScanner, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create purchase event consumer")
		}
		if err := purchaseConsumer.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to start purchase event consumer")
		}
	}

	var scheduler *service.AlertScheduler
	if cfg.Alerts.Enabled {
		scheduler = service.NewAlertScheduler(alertScanner, cfg.Alerts.Interval, log)
		scheduler.Start(ctx)
	}

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", httputil.RequestIDHeader, httputil.PharmacyHeader},
		ExposedHeaders:   []string{httputil.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{
			"status":   "healthy",
			"service":  config.ServiceName,
			"database": db.Health(r.Context()),
		}
		if rmq != nil {
			status["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, status)
	})

	// API routes
	handlers.Mount(r, cfg.Pharmacy.DefaultID)

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Stop the scheduler and consumers
	cancel()
	if scheduler != nil {
		scheduler.Stop()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
