package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service is a contracted engagement between one worker and one client. Worker,
// client and service type fields are snapshots taken at creation time.
type Service struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	WorkerID        uint            `json:"worker_id" gorm:"index;not null"`
	WorkerName      string          `json:"worker_name"`
	ClientID        uint            `json:"client_id" gorm:"index"`
	ClientName      string          `json:"client_name" gorm:"not null"`
	ClientPhone     string          `json:"client_phone"`
	ClientAddress   string          `json:"client_address"`
	ServiceTypeName string          `json:"service_type" gorm:"not null"`
	ServiceTypeIcon string          `json:"service_type_icon"`
	TotalPrice      decimal.Decimal `json:"total_price" gorm:"type:decimal(12,2);not null"`
	PerVisitPrice   decimal.Decimal `json:"per_visit_price" gorm:"type:decimal(12,2);not null"`
	Weeks           int             `json:"weeks" gorm:"not null"`
	VisitsPerWeek   int             `json:"visits_per_week" gorm:"not null"`
	HoursPerVisit   float64         `json:"hours_per_visit" gorm:"not null"`
	StartDate       time.Time       `json:"start_date" gorm:"not null"`
	TotalVisits     int             `json:"total_visits"`
	TotalHours      float64         `json:"total_hours"`
	State           string          `json:"state" gorm:"index;not null;default:'active'"` // active, completed, cancelled
	Notes           string          `json:"notes" gorm:"type:text"`
	CreatedAt       time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Visits []Visit `json:"visits,omitempty" gorm:"-"`
}

type ServiceState string

const (
	ServiceActive    ServiceState = "active"
	ServiceCompleted ServiceState = "completed"
	ServiceCancelled ServiceState = "cancelled"
)

func (s ServiceState) Valid() bool {
	switch s {
	case ServiceActive, ServiceCompleted, ServiceCancelled:
		return true
	}
	return false
}

// Recompute derives the visit and hour totals from the configuration.
func (s *Service) Recompute() {
	s.TotalVisits = s.Weeks * s.VisitsPerWeek
	s.TotalHours = float64(s.TotalVisits) * s.HoursPerVisit
}

func (s *Service) BeforeCreate(tx *gorm.DB) error {
	s.Recompute()
	return nil
}

// ScheduleSummary is the human-readable duration line used in messages.
func (s *Service) ScheduleSummary() string {
	return pluralize(s.Weeks, "week") + ", " + pluralize(s.VisitsPerWeek, "visit") + "/week"
}
