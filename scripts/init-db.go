package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"homecare_manager/internal/config"
	"homecare_manager/internal/database"
	"homecare_manager/internal/logger"
	"homecare_manager/internal/migrations"
	"homecare_manager/internal/models"
	"homecare_manager/internal/repository"
	"homecare_manager/internal/services"

	"github.com/shopspring/decimal"
)

// init-db prepares a database without starting the server. With -reset every
// table is dropped first.
func main() {
	reset := flag.Bool("reset", false, "drop all tables before migrating")
	flag.Parse()

	if err := run(*reset); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(reset bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.NewStructured(cfg.LogLevel, "console")

	db, err := database.Initialize(cfg.DatabaseURL, database.LogLevel(cfg.LogLevel))
	if err != nil {
		return err
	}

	if reset {
		log.Warn("dropping existing tables", nil)
		if err := db.Migrator().DropTable(
			&models.PaymentRecord{},
			&models.ExpenseEntry{},
			&models.IncomeEntry{},
			&models.Visit{},
			&models.Service{},
			&models.ServiceType{},
			&models.Client{},
			&models.User{},
			&models.Worker{},
		); err != nil {
			return fmt.Errorf("failed to drop tables: %w", err)
		}
	}

	finance := services.NewFinanceService(services.FinanceDeps{
		Ledger:            repository.NewLedgerRepository(db),
		Payments:          repository.NewPaymentRepository(db),
		Services:          repository.NewServiceRepository(db),
		Visits:            repository.NewVisitRepository(db),
		DefaultCommission: decimal.NewFromFloat(cfg.DefaultCommission),
		Log:               log,
	})
	catalog := services.NewCatalogService(repository.NewCatalogRepository(db), nil, log)
	users := services.NewUserService(repository.NewUserRepository(db))
	admin := migrations.Admin{Username: cfg.AdminUsername, Email: cfg.AdminEmail, Password: cfg.AdminPassword}

	if err := migrations.RunMigrations(context.Background(), db, catalog, users, finance, admin, log); err != nil {
		return err
	}
	log.Info("database initialized", map[string]interface{}{"reset": reset})
	return nil
}
