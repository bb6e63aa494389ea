package repository

import (
	"context"
	"time"

	"homecare_manager/internal/models"

	"gorm.io/gorm"
)

// VisitCounts summarizes the visits of one service.
type VisitCounts struct {
	Total     int64
	Completed int64
	Cancelled int64
}

// VisitStats summarizes visits across all services.
type VisitStats struct {
	Completed      int64
	Pending        int64
	CompletedHours float64
}

type VisitRepository interface {
	Create(ctx context.Context, visit *models.Visit) error
	GetByID(ctx context.Context, id uint) (*models.Visit, error)
	ListByService(ctx context.Context, serviceID uint) ([]models.Visit, error)
	ListByWorker(ctx context.Context, workerID uint, state string) ([]models.Visit, error)
	ListAll(ctx context.Context) ([]models.Visit, error)
	// TransitionState applies the update only while the visit is still in state from.
	// It reports false when the row did not match, leaving the visit untouched.
	TransitionState(ctx context.Context, id uint, from, to string, completedAt *time.Time) (bool, error)
	SetPaid(ctx context.Context, id uint, paid bool) error
	Delete(ctx context.Context, id uint) error
	CountByService(ctx context.Context, serviceID uint) (VisitCounts, error)
	Stats(ctx context.Context) (VisitStats, error)
	ListCompletedWithoutIncome(ctx context.Context) ([]models.Visit, error)
}

type visitRepository struct {
	db *gorm.DB
}

func NewVisitRepository(db *gorm.DB) VisitRepository {
	return &visitRepository{db: db}
}

func (r *visitRepository) Create(ctx context.Context, visit *models.Visit) error {
	return r.db.WithContext(ctx).Create(visit).Error
}

func (r *visitRepository) GetByID(ctx context.Context, id uint) (*models.Visit, error) {
	var visit models.Visit
	if err := r.db.WithContext(ctx).First(&visit, id).Error; err != nil {
		return nil, notFound(err, "visit", id)
	}
	return &visit, nil
}

func (r *visitRepository) ListByService(ctx context.Context, serviceID uint) ([]models.Visit, error) {
	var visits []models.Visit
	err := r.db.WithContext(ctx).
		Where("service_id = ?", serviceID).
		Order("sequence ASC").
		Find(&visits).Error
	return visits, err
}

func (r *visitRepository) ListByWorker(ctx context.Context, workerID uint, state string) ([]models.Visit, error) {
	var visits []models.Visit
	q := r.db.WithContext(ctx).Where("worker_id = ?", workerID).Order("scheduled_date ASC, id ASC")
	if state != "" {
		q = q.Where("state = ?", state)
	}
	err := q.Find(&visits).Error
	return visits, err
}

func (r *visitRepository) ListAll(ctx context.Context) ([]models.Visit, error) {
	var visits []models.Visit
	err := r.db.WithContext(ctx).Order("service_id ASC, sequence ASC").Find(&visits).Error
	return visits, err
}

func (r *visitRepository) TransitionState(ctx context.Context, id uint, from, to string, completedAt *time.Time) (bool, error) {
	updates := map[string]interface{}{
		"state": to,
	}
	if completedAt != nil {
		updates["completed_at"] = *completedAt
	}

	res := r.db.WithContext(ctx).Model(&models.Visit{}).
		Where("id = ? AND state = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *visitRepository) SetPaid(ctx context.Context, id uint, paid bool) error {
	res := r.db.WithContext(ctx).Model(&models.Visit{}).Where("id = ?", id).Update("paid", paid)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "visit", id)
	}
	return nil
}

func (r *visitRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Visit{}, id).Error
}

func (r *visitRepository) CountByService(ctx context.Context, serviceID uint) (VisitCounts, error) {
	var rows []struct {
		State string
		Count int64
	}
	err := r.db.WithContext(ctx).Model(&models.Visit{}).
		Select("state, COUNT(*) AS count").
		Where("service_id = ?", serviceID).
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return VisitCounts{}, err
	}

	var counts VisitCounts
	for _, row := range rows {
		counts.Total += row.Count
		switch row.State {
		case string(models.VisitCompleted):
			counts.Completed = row.Count
		case string(models.VisitCancelled):
			counts.Cancelled = row.Count
		}
	}
	return counts, nil
}

func (r *visitRepository) Stats(ctx context.Context) (VisitStats, error) {
	var stats VisitStats
	if err := r.db.WithContext(ctx).Model(&models.Visit{}).Where("state = ?", string(models.VisitCompleted)).Count(&stats.Completed).Error; err != nil {
		return stats, err
	}
	if err := r.db.WithContext(ctx).Model(&models.Visit{}).Where("state = ?", string(models.VisitPending)).Count(&stats.Pending).Error; err != nil {
		return stats, err
	}
	var hours struct{ Total float64 }
	err := r.db.WithContext(ctx).Model(&models.Visit{}).
		Select("COALESCE(SUM(hours), 0) AS total").
		Where("state = ?", string(models.VisitCompleted)).
		Scan(&hours).Error
	stats.CompletedHours = hours.Total
	return stats, err
}

// ListCompletedWithoutIncome finds completed visits whose automatic income entry
// was never written.
func (r *visitRepository) ListCompletedWithoutIncome(ctx context.Context) ([]models.Visit, error) {
	var visits []models.Visit
	err := r.db.WithContext(ctx).
		Where("state = ?", string(models.VisitCompleted)).
		Where("NOT EXISTS (SELECT 1 FROM income_entries ie WHERE ie.visit_id = visits.id)").
		Order("id ASC").
		Find(&visits).Error
	return visits, err
}
