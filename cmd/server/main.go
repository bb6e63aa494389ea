package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homecare_manager/internal/config"
	"homecare_manager/internal/database"
	"homecare_manager/internal/handlers"
	"homecare_manager/internal/logger"
	"homecare_manager/internal/migrations"
	rediscache "homecare_manager/internal/redis"
	"homecare_manager/internal/repository"
	"homecare_manager/internal/services"
	"homecare_manager/pkg/whatsapp"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.NewStructured(cfg.LogLevel, cfg.LogFormat)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Initialize(cfg.DatabaseURL, database.LogLevel(cfg.LogLevel))
	if err != nil {
		return err
	}

	// Redis only backs the progress cache and the submission guard, so the
	// service still runs without it.
	var (
		cache services.ProgressCache
		guard services.SubmissionGuard
	)
	checks := map[string]handlers.HealthCheck{
		"database": func(ctx context.Context) error { return database.Health(ctx, db) },
	}
	redisClient, err := rediscache.Initialize(cfg.RedisURL)
	if err != nil {
		log.WithError(err).Warn("redis unavailable, running without progress cache", nil)
	} else {
		defer redisClient.Close()
		cache, guard = redisClient, redisClient
		checks["redis"] = redisClient.Ping
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	workerRepo := repository.NewWorkerRepository(db)
	clientRepo := repository.NewClientRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	serviceRepo := repository.NewServiceRepository(db)
	visitRepo := repository.NewVisitRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	// Services
	userService := services.NewUserService(userRepo)
	authService := services.NewAuthService(userService, workerRepo, cfg.JWTSecret, cfg.TokenTTL)
	workerService := services.NewWorkerService(workerRepo, userService, log)
	clientService := services.NewClientService(clientRepo, log)
	catalogService := services.NewCatalogService(catalogRepo, catalogSeeds(cfg), log)
	ledgerService := services.NewLedgerService(services.LedgerDeps{
		Services: serviceRepo,
		Visits:   visitRepo,
		Workers:  workerRepo,
		Clients:  clientRepo,
		Catalog:  catalogRepo,
		Ledger:   ledgerRepo,
		Cache:    cache,
		Guard:    guard,
		CacheTTL: cfg.ProgressCacheTTL,
		GuardTTL: cfg.SubmissionTTL,
		Log:      log,
	})
	financeService := services.NewFinanceService(services.FinanceDeps{
		Ledger:            ledgerRepo,
		Payments:          paymentRepo,
		Services:          serviceRepo,
		Visits:            visitRepo,
		DefaultCommission: decimal.NewFromFloat(cfg.DefaultCommission),
		Log:               log,
	})
	exportService := services.NewExportService(ledgerService, financeService, workerService, clientService)

	var sender services.MessageSender
	if cfg.WhatsAppEnabled() {
		sender = whatsapp.NewClient(cfg.WhatsAppAPIURL, cfg.WhatsAppUsername, cfg.WhatsAppPassword, cfg.WhatsAppPath, cfg.WhatsAppCountryCode)
	} else {
		log.Info("whatsapp gateway not configured, notifications will only produce chat links", nil)
	}
	notificationService := services.NewNotificationService(serviceRepo, workerRepo, sender, services.NotificationOptions{
		CurrencySymbol: cfg.CurrencySymbol,
		CountryCode:    cfg.WhatsAppCountryCode,
	}, log)

	admin := migrations.Admin{Username: cfg.AdminUsername, Email: cfg.AdminEmail, Password: cfg.AdminPassword}
	if err := migrations.RunMigrations(ctx, db, catalogService, userService, financeService, admin, log); err != nil {
		return err
	}

	// Handlers
	apiHandler := handlers.NewAPIHandler(authService, userService, workerService, clientService,
		catalogService, ledgerService, financeService, exportService, log)
	whatsappHandler := handlers.NewWhatsAppHandler(notificationService, sender, cfg.WhatsAppCountryCode, log)
	router := handlers.NewRouter(apiHandler, whatsappHandler, authService, checks, log)

	return serve(ctx, ":"+cfg.ServerPort, router, log)
}

func catalogSeeds(cfg *config.Config) []services.CatalogSeed {
	seeds := make([]services.CatalogSeed, 0, len(cfg.Catalog.Defaults))
	for _, entry := range cfg.Catalog.Defaults {
		seeds = append(seeds, services.CatalogSeed{
			Name:        entry.Name,
			Icon:        entry.Icon,
			Description: entry.Description,
			BasePrice:   decimal.NewFromFloat(entry.BasePrice),
		})
	}
	return seeds
}

// serve runs the HTTP server until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, addr string, handler http.Handler, log logger.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", map[string]interface{}{"addr": addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		log.Info("server shutting down", nil)
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
