package repository

import (
	"context"

	"homecare_manager/internal/models"

	"gorm.io/gorm"
)

type ServiceFilter struct {
	State    string
	WorkerID uint
}

type ServiceRepository interface {
	Create(ctx context.Context, service *models.Service) error
	GetByID(ctx context.Context, id uint) (*models.Service, error)
	List(ctx context.Context, filter ServiceFilter) ([]models.Service, error)
	UpdateState(ctx context.Context, id uint, state string) error
	Delete(ctx context.Context, id uint) error
	CountByState(ctx context.Context, state string) (int64, error)
}

type serviceRepository struct {
	db *gorm.DB
}

func NewServiceRepository(db *gorm.DB) ServiceRepository {
	return &serviceRepository{db: db}
}

func (r *serviceRepository) Create(ctx context.Context, service *models.Service) error {
	return r.db.WithContext(ctx).Create(service).Error
}

func (r *serviceRepository) GetByID(ctx context.Context, id uint) (*models.Service, error) {
	var service models.Service
	if err := r.db.WithContext(ctx).First(&service, id).Error; err != nil {
		return nil, notFound(err, "service", id)
	}
	return &service, nil
}

func (r *serviceRepository) List(ctx context.Context, filter ServiceFilter) ([]models.Service, error) {
	var services []models.Service
	q := r.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if filter.State != "" {
		q = q.Where("state = ?", filter.State)
	}
	if filter.WorkerID != 0 {
		q = q.Where("worker_id = ?", filter.WorkerID)
	}
	err := q.Find(&services).Error
	return services, err
}

func (r *serviceRepository) UpdateState(ctx context.Context, id uint, state string) error {
	res := r.db.WithContext(ctx).Model(&models.Service{}).Where("id = ?", id).Update("state", state)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "service", id)
	}
	return nil
}

func (r *serviceRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Service{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "service", id)
	}
	return nil
}

func (r *serviceRepository) CountByState(ctx context.Context, state string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Service{}).Where("state = ?", state).Count(&count).Error
	return count, err
}
