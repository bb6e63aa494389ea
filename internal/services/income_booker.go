package services

import (
	"context"
	"fmt"
	"time"

	"homecare_manager/internal/logger"
	"homecare_manager/internal/metrics"
	"homecare_manager/internal/models"
	"homecare_manager/internal/repository"
)

// incomeBooker writes the automatic income entry of a completed visit. The
// visit id is the dedup key: a visit that already has an entry is never booked again.
type incomeBooker struct {
	ledgerRepo repository.LedgerRepository
	now        func() time.Time
	log        logger.Logger
}

func visitIncomeDescription(v *models.Visit) string {
	return fmt.Sprintf("Visit #%d - %s (%s)", v.Sequence, v.ClientName, v.ServiceTypeName)
}

// book returns the visit's income entry and whether this call created it.
func (b *incomeBooker) book(ctx context.Context, visit *models.Visit) (*models.IncomeEntry, bool, error) {
	existing, err := b.ledgerRepo.FindIncomeByVisit(ctx, visit.ID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	serviceID, visitID := visit.ServiceID, visit.ID
	entry := &models.IncomeEntry{
		Kind:        string(models.IncomeAutomatic),
		ServiceID:   &serviceID,
		VisitID:     &visitID,
		Description: visitIncomeDescription(visit),
		Amount:      visit.Price,
		CreatedAt:   b.now(),
	}
	if err := b.ledgerRepo.CreateIncome(ctx, entry); err != nil {
		// A concurrent writer may have won the unique visit_id index.
		if again, findErr := b.ledgerRepo.FindIncomeByVisit(ctx, visit.ID); findErr == nil && again != nil {
			return again, false, nil
		}
		return nil, false, err
	}

	metrics.IncomeRecorded.WithLabelValues(entry.Kind).Inc()
	b.log.Info("visit income booked", map[string]interface{}{
		"visit_id":   visit.ID,
		"service_id": visit.ServiceID,
		"amount":     entry.Amount.String(),
	})
	return entry, true, nil
}
