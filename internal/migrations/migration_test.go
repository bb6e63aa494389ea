package migrations

import (
	"context"
	"testing"

	"homecare_manager/internal/database/dbtest"
	"homecare_manager/internal/logger"
	"homecare_manager/internal/models"
	"homecare_manager/internal/repository"
	"homecare_manager/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	log := logger.NewTestLogger(t)

	catalog := services.NewCatalogService(repository.NewCatalogRepository(db), nil, log)
	users := services.NewUserService(repository.NewUserRepository(db))
	finance := services.NewFinanceService(services.FinanceDeps{
		Ledger:   repository.NewLedgerRepository(db),
		Payments: repository.NewPaymentRepository(db),
		Services: repository.NewServiceRepository(db),
		Visits:   repository.NewVisitRepository(db),
		Log:      log,
	})
	admin := Admin{Username: "admin", Email: "admin@example.com", Password: "adminpass"}

	for i := 0; i < 2; i++ {
		require.NoError(t, RunMigrations(ctx, db, catalog, users, finance, admin, log))
	}

	var entries, admins int64
	require.NoError(t, db.Model(&models.ServiceType{}).Count(&entries).Error)
	require.NoError(t, db.Model(&models.User{}).Where("username = ?", "admin").Count(&admins).Error)
	assert.EqualValues(t, len(services.DefaultCatalogSeeds()), entries)
	assert.EqualValues(t, 1, admins)
}

func TestRunMigrations_NoAdminPassword(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	log := logger.NewNoOpLogger()

	catalog := services.NewCatalogService(repository.NewCatalogRepository(db), nil, log)
	users := services.NewUserService(repository.NewUserRepository(db))
	finance := services.NewFinanceService(services.FinanceDeps{
		Ledger:   repository.NewLedgerRepository(db),
		Payments: repository.NewPaymentRepository(db),
		Services: repository.NewServiceRepository(db),
		Visits:   repository.NewVisitRepository(db),
		Log:      log,
	})

	require.NoError(t, RunMigrations(ctx, db, catalog, users, finance, Admin{Username: "admin"}, log))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}
