package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ServiceType is a catalog entry offered to clients.
type ServiceType struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	Name        string          `json:"name" gorm:"uniqueIndex;not null"`
	Icon        string          `json:"icon"`
	Description string          `json:"description" gorm:"type:text"`
	BasePrice   decimal.Decimal `json:"base_price" gorm:"type:decimal(12,2);not null"`
	Active      bool            `json:"active" gorm:"index"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Label is the icon-prefixed name shown in messages.
func (s *ServiceType) Label() string {
	if s.Icon == "" {
		return s.Name
	}
	return s.Icon + " " + s.Name
}
