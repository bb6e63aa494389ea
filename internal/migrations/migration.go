package migrations

import (
	"context"
	"fmt"

	"homecare_manager/internal/database"
	"homecare_manager/internal/logger"
	"homecare_manager/internal/services"

	"gorm.io/gorm"
)

// Admin is the bootstrap administrator account. It is only created when
// Password is set.
type Admin struct {
	Username string
	Email    string
	Password string
}

// RunMigrations brings the schema up to date and creates default data: the
// service catalog, the bootstrap admin and any visit income missing from the
// ledger.
func RunMigrations(
	ctx context.Context,
	db *gorm.DB,
	catalog services.CatalogService,
	users services.UserService,
	finance services.FinanceService,
	admin Admin,
	log logger.Logger,
) error {
	log.Info("running database migrations", nil)
	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := createDefaultData(ctx, catalog, users, admin, log); err != nil {
		log.WithError(err).Warn("failed to create default data", nil)
	}

	booked, err := finance.BackfillVisitIncome(ctx)
	if err != nil {
		return fmt.Errorf("failed to backfill visit income: %w", err)
	}
	if len(booked) > 0 {
		log.Info("booked missing visit income", map[string]interface{}{"count": len(booked)})
	}

	log.Info("database migrations completed", nil)
	return nil
}

func createDefaultData(ctx context.Context, catalog services.CatalogService, users services.UserService, admin Admin, log logger.Logger) error {
	seeded, err := catalog.EnsureSeeded(ctx)
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	if seeded > 0 {
		log.Info("seeded service catalog", map[string]interface{}{"entries": seeded})
	}

	if admin.Password == "" {
		log.Debug("no admin password configured, skipping admin bootstrap", nil)
		return nil
	}
	created, err := users.EnsureAdmin(ctx, admin.Username, admin.Email, admin.Password)
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	if created {
		log.Info("admin user created", map[string]interface{}{"username": admin.Username})
	}
	return nil
}
