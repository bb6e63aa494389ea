package repository

import (
	"context"

	"homecare_manager/internal/models"

	"gorm.io/gorm"
)

// LedgerRepository stores the append-only income and expense rows.
type LedgerRepository interface {
	CreateIncome(ctx context.Context, entry *models.IncomeEntry) error
	// FindIncomeByVisit returns nil without error when the visit has no income entry.
	FindIncomeByVisit(ctx context.Context, visitID uint) (*models.IncomeEntry, error)
	ListIncome(ctx context.Context, period TimeRange) ([]models.IncomeEntry, error)
	CreateExpense(ctx context.Context, entry *models.ExpenseEntry) error
	ListExpenses(ctx context.Context, period TimeRange) ([]models.ExpenseEntry, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) CreateIncome(ctx context.Context, entry *models.IncomeEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *ledgerRepository) FindIncomeByVisit(ctx context.Context, visitID uint) (*models.IncomeEntry, error) {
	var entries []models.IncomeEntry
	err := r.db.WithContext(ctx).Where("visit_id = ?", visitID).Limit(1).Find(&entries).Error
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (r *ledgerRepository) ListIncome(ctx context.Context, period TimeRange) ([]models.IncomeEntry, error) {
	var entries []models.IncomeEntry
	q := period.apply(r.db.WithContext(ctx), "created_at")
	err := q.Order("created_at DESC, id DESC").Find(&entries).Error
	return entries, err
}

func (r *ledgerRepository) CreateExpense(ctx context.Context, entry *models.ExpenseEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *ledgerRepository) ListExpenses(ctx context.Context, period TimeRange) ([]models.ExpenseEntry, error) {
	var entries []models.ExpenseEntry
	q := period.apply(r.db.WithContext(ctx), "created_at")
	err := q.Order("created_at DESC, id DESC").Find(&entries).Error
	return entries, err
}
