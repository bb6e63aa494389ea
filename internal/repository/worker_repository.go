package repository

import (
	"context"

	"homecare_manager/internal/models"

	"gorm.io/gorm"
)

type WorkerRepository interface {
	Create(ctx context.Context, worker *models.Worker) error
	GetByID(ctx context.Context, id uint) (*models.Worker, error)
	List(ctx context.Context, approvalState string) ([]models.Worker, error)
	Update(ctx context.Context, worker *models.Worker) error
	// UpdateApprovalState moves a worker from one approval state to another and
	// reports whether the worker was still in the expected state.
	UpdateApprovalState(ctx context.Context, id uint, from, to string) (bool, error)
	CountByApprovalState(ctx context.Context) (map[string]int64, error)
	// Delete soft-deletes the worker.
	Delete(ctx context.Context, id uint) error
}

type workerRepository struct {
	db *gorm.DB
}

func NewWorkerRepository(db *gorm.DB) WorkerRepository {
	return &workerRepository{db: db}
}

func (r *workerRepository) Create(ctx context.Context, worker *models.Worker) error {
	return r.db.WithContext(ctx).Create(worker).Error
}

func (r *workerRepository) GetByID(ctx context.Context, id uint) (*models.Worker, error) {
	var worker models.Worker
	if err := r.db.WithContext(ctx).First(&worker, id).Error; err != nil {
		return nil, notFound(err, "worker", id)
	}
	return &worker, nil
}

func (r *workerRepository) List(ctx context.Context, approvalState string) ([]models.Worker, error) {
	var workers []models.Worker
	q := r.db.WithContext(ctx).Order("name ASC")
	if approvalState != "" {
		q = q.Where("approval_state = ?", approvalState)
	}
	err := q.Find(&workers).Error
	return workers, err
}

func (r *workerRepository) Update(ctx context.Context, worker *models.Worker) error {
	return r.db.WithContext(ctx).Save(worker).Error
}

func (r *workerRepository) UpdateApprovalState(ctx context.Context, id uint, from, to string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Worker{}).
		Where("id = ? AND approval_state = ?", id, from).
		Update("approval_state", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *workerRepository) CountByApprovalState(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		ApprovalState string
		Count         int64
	}
	err := r.db.WithContext(ctx).Model(&models.Worker{}).
		Select("approval_state, COUNT(*) AS count").
		Group("approval_state").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.ApprovalState] = row.Count
	}
	return counts, nil
}

func (r *workerRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Worker{}, id).Error
}
