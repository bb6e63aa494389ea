package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Visit is one scheduled occurrence of a Service. (ServiceID, Sequence) is unique.
type Visit struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	ServiceID       uint            `json:"service_id" gorm:"not null;uniqueIndex:idx_visits_service_sequence"`
	Sequence        int             `json:"sequence" gorm:"not null;uniqueIndex:idx_visits_service_sequence"`
	TotalVisits     int             `json:"total_visits"`
	WorkerID        uint            `json:"worker_id" gorm:"index;not null"`
	WorkerName      string          `json:"worker_name"`
	ClientName      string          `json:"client_name"`
	ServiceTypeName string          `json:"service_type"`
	ScheduledDate   time.Time       `json:"scheduled_date" gorm:"index;not null"`
	Hours           float64         `json:"hours"`
	Price           decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	State           string          `json:"state" gorm:"index;not null;default:'pending'"` // pending, completed, cancelled
	Paid            bool            `json:"paid"`
	CompletedAt     *time.Time      `json:"completed_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type VisitState string

const (
	VisitPending   VisitState = "pending"
	VisitCompleted VisitState = "completed"
	VisitCancelled VisitState = "cancelled"
)

func (v *Visit) IsTerminal() bool {
	return v.State == string(VisitCompleted) || v.State == string(VisitCancelled)
}
