package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// IncomeEntry is an append-only income row. Automatic entries point back at the
// visit that produced them; VisitID is unique so a visit is never booked twice.
type IncomeEntry struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	Kind        string          `json:"kind" gorm:"index;not null"` // automatic, manual
	ServiceID   *uint           `json:"service_id" gorm:"index"`
	VisitID     *uint           `json:"visit_id" gorm:"uniqueIndex"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	Category    string          `json:"category"`
	CreatedAt   time.Time       `json:"created_at" gorm:"index"`
}

func (IncomeEntry) TableName() string {
	return "income_entries"
}

type IncomeKind string

const (
	IncomeAutomatic IncomeKind = "automatic"
	IncomeManual    IncomeKind = "manual"
)

type IncomeCategory string

const (
	CategoryBonus        IncomeCategory = "bonus"
	CategoryCommission   IncomeCategory = "commission"
	CategoryExtraPayment IncomeCategory = "extra_payment"
	CategoryGift         IncomeCategory = "gift"
	CategoryOther        IncomeCategory = "other"
)

func (c IncomeCategory) Valid() bool {
	switch c {
	case CategoryBonus, CategoryCommission, CategoryExtraPayment, CategoryGift, CategoryOther:
		return true
	}
	return false
}

type ExpenseEntry struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	Type        string          `json:"type" gorm:"index;not null"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	WorkerName  string          `json:"worker_name"`
	CreatedAt   time.Time       `json:"created_at" gorm:"index"`
}

func (ExpenseEntry) TableName() string {
	return "expense_entries"
}

type ExpenseType string

const (
	ExpenseWorkerPayout ExpenseType = "worker_payout"
	ExpenseTransport    ExpenseType = "transport"
	ExpenseMaterials    ExpenseType = "materials"
	ExpenseAdvertising  ExpenseType = "advertising"
	ExpenseOperations   ExpenseType = "operations"
	ExpenseOther        ExpenseType = "other"
)

func (t ExpenseType) Valid() bool {
	switch t {
	case ExpenseWorkerPayout, ExpenseTransport, ExpenseMaterials, ExpenseAdvertising, ExpenseOperations, ExpenseOther:
		return true
	}
	return false
}

// PaymentRecord settles a completed service between the business and the worker.
type PaymentRecord struct {
	ID                uint            `json:"id" gorm:"primaryKey"`
	Reference         string          `json:"reference" gorm:"uniqueIndex;not null"`
	ServiceID         uint            `json:"service_id" gorm:"index;not null"`
	WorkerID          uint            `json:"worker_id" gorm:"index"`
	WorkerName        string          `json:"worker_name"`
	ClientName        string          `json:"client_name"`
	ServiceTypeName   string          `json:"service_type"`
	TotalAmount       decimal.Decimal `json:"total_amount" gorm:"type:decimal(12,2);not null"`
	CommissionPercent decimal.Decimal `json:"commission_percent" gorm:"type:decimal(5,2);not null"`
	Earnings          decimal.Decimal `json:"earnings" gorm:"type:decimal(12,2);not null"`
	WorkerPayout      decimal.Decimal `json:"worker_payout" gorm:"type:decimal(12,2);not null"`
	Notes             string          `json:"notes" gorm:"type:text"`
	CreatedAt         time.Time       `json:"created_at" gorm:"index"`
}

func (PaymentRecord) TableName() string {
	return "payment_records"
}
