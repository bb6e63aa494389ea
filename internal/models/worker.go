package models

import (
	"time"

	"gorm.io/gorm"
)

// Worker is a domestic-services professional who can be assigned to services.
type Worker struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	Name          string         `json:"name" gorm:"not null"`
	Phone         string         `json:"phone"`
	Email         string         `json:"email"`
	Age           int            `json:"age"`
	Sector        string         `json:"sector"`
	Address       string         `json:"address"`
	Lat           *float64       `json:"lat" gorm:"type:decimal(10,8)"`
	Lng           *float64       `json:"lng" gorm:"type:decimal(11,8)"`
	Experience    string         `json:"experience" gorm:"default:'none'"`
	Transport     string         `json:"transport" gorm:"default:'none'"`
	Available     bool           `json:"available"`
	ApprovalState string         `json:"approval_state" gorm:"index;not null;default:'pending'"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

type ApprovalState string

const (
	ApprovalPending ApprovalState = "pending"
	ApprovalActive  ApprovalState = "active"
	ApprovalBlocked ApprovalState = "blocked"
)

// approvalTransitions lists the allowed approval moves. Blocked workers can be reactivated.
var approvalTransitions = map[ApprovalState][]ApprovalState{
	ApprovalPending: {ApprovalActive, ApprovalBlocked},
	ApprovalActive:  {ApprovalBlocked},
	ApprovalBlocked: {ApprovalActive},
}

func (s ApprovalState) Valid() bool {
	_, ok := approvalTransitions[s]
	return ok
}

func (s ApprovalState) CanTransitionTo(next ApprovalState) bool {
	for _, allowed := range approvalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type ExperienceTier string

const (
	ExperienceNone        ExperienceTier = "none"
	ExperienceUnderOne    ExperienceTier = "under_1"
	ExperienceOneToThree  ExperienceTier = "1_3"
	ExperienceThreeToFive ExperienceTier = "3_5"
	ExperienceOverFive    ExperienceTier = "over_5"
)

func (e ExperienceTier) Valid() bool {
	switch e {
	case ExperienceNone, ExperienceUnderOne, ExperienceOneToThree, ExperienceThreeToFive, ExperienceOverFive:
		return true
	}
	return false
}

type TransportTier string

const (
	TransportNone    TransportTier = "none"
	TransportSome    TransportTier = "some"
	TransportDepends TransportTier = "depends"
)

func (t TransportTier) Valid() bool {
	switch t {
	case TransportNone, TransportSome, TransportDepends:
		return true
	}
	return false
}

func (w *Worker) IsAssignable() bool {
	return w.ApprovalState == string(ApprovalActive)
}
