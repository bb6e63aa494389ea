package services

import (
	"context"
	"testing"

	"homecare_manager/internal/apperrors"
	"homecare_manager/internal/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogService_EnsureSeededOnlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	catalog := NewCatalogService(f.catalogRepo, nil, logger.NewTestLogger(t))

	inserted, err := catalog.EnsureSeeded(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultCatalogSeeds()), inserted)

	inserted, err = catalog.EnsureSeeded(ctx)
	require.NoError(t, err)
	assert.Zero(t, inserted)

	entries, err := catalog.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, entries, 7)
}

func TestCatalogService_SeedsSkipNonEmptyCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.serviceType(t, "Custom", true)
	catalog := NewCatalogService(f.catalogRepo, []CatalogSeed{{Name: "Other", BasePrice: decimal.NewFromInt(10)}}, logger.NewTestLogger(t))

	inserted, err := catalog.EnsureSeeded(ctx)
	require.NoError(t, err)
	assert.Zero(t, inserted)
}

func TestCatalogService_CRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	catalog := NewCatalogService(f.catalogRepo, nil, logger.NewTestLogger(t))

	entry, err := catalog.Create(ctx, CatalogInput{Name: " Cocina ", Icon: "🍳", BasePrice: decimal.NewFromInt(2000)})
	require.NoError(t, err)
	assert.Equal(t, "Cocina", entry.Name)
	assert.True(t, entry.Active)

	_, err = catalog.Create(ctx, CatalogInput{Name: ""})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = catalog.Create(ctx, CatalogInput{Name: "Bad", BasePrice: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	updated, err := catalog.Update(ctx, entry.ID, CatalogInput{Name: "Cocina gourmet", Icon: "🍳", BasePrice: decimal.NewFromInt(2500)})
	require.NoError(t, err)
	assert.Equal(t, "Cocina gourmet", updated.Name)

	require.NoError(t, catalog.SetActive(ctx, entry.ID, false))
	active, err := catalog.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := catalog.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, catalog.Delete(ctx, entry.ID))
	_, err = catalog.Get(ctx, entry.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
