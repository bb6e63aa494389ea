package repository

import (
	"context"

	"homecare_manager/internal/models"

	"gorm.io/gorm"
)

type CatalogRepository interface {
	Create(ctx context.Context, serviceType *models.ServiceType) error
	GetByID(ctx context.Context, id uint) (*models.ServiceType, error)
	GetByName(ctx context.Context, name string) (*models.ServiceType, error)
	List(ctx context.Context, activeOnly bool) ([]models.ServiceType, error)
	Update(ctx context.Context, serviceType *models.ServiceType) error
	SetActive(ctx context.Context, id uint, active bool) error
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context) (int64, error)
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) Create(ctx context.Context, serviceType *models.ServiceType) error {
	return r.db.WithContext(ctx).Create(serviceType).Error
}

func (r *catalogRepository) GetByID(ctx context.Context, id uint) (*models.ServiceType, error) {
	var serviceType models.ServiceType
	if err := r.db.WithContext(ctx).First(&serviceType, id).Error; err != nil {
		return nil, notFound(err, "service type", id)
	}
	return &serviceType, nil
}

func (r *catalogRepository) GetByName(ctx context.Context, name string) (*models.ServiceType, error) {
	var serviceType models.ServiceType
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&serviceType).Error; err != nil {
		return nil, notFound(err, "service type", name)
	}
	return &serviceType, nil
}

func (r *catalogRepository) List(ctx context.Context, activeOnly bool) ([]models.ServiceType, error) {
	var types []models.ServiceType
	q := r.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	err := q.Find(&types).Error
	return types, err
}

func (r *catalogRepository) Update(ctx context.Context, serviceType *models.ServiceType) error {
	return r.db.WithContext(ctx).Save(serviceType).Error
}

func (r *catalogRepository) SetActive(ctx context.Context, id uint, active bool) error {
	res := r.db.WithContext(ctx).Model(&models.ServiceType{}).Where("id = ?", id).Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "service type", id)
	}
	return nil
}

func (r *catalogRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.ServiceType{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "service type", id)
	}
	return nil
}

func (r *catalogRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ServiceType{}).Count(&count).Error
	return count, err
}
