package repository

import (
	"context"

	"homecare_manager/internal/models"

	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *models.PaymentRecord) error
	GetByID(ctx context.Context, id uint) (*models.PaymentRecord, error)
	List(ctx context.Context, period TimeRange) ([]models.PaymentRecord, error)
	ListByService(ctx context.Context, serviceID uint) ([]models.PaymentRecord, error)
	ListByWorker(ctx context.Context, workerID uint) ([]models.PaymentRecord, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.PaymentRecord) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepository) GetByID(ctx context.Context, id uint) (*models.PaymentRecord, error) {
	var payment models.PaymentRecord
	if err := r.db.WithContext(ctx).First(&payment, id).Error; err != nil {
		return nil, notFound(err, "payment", id)
	}
	return &payment, nil
}

func (r *paymentRepository) List(ctx context.Context, period TimeRange) ([]models.PaymentRecord, error) {
	var payments []models.PaymentRecord
	q := period.apply(r.db.WithContext(ctx), "created_at")
	err := q.Order("created_at DESC, id DESC").Find(&payments).Error
	return payments, err
}

func (r *paymentRepository) ListByService(ctx context.Context, serviceID uint) ([]models.PaymentRecord, error) {
	var payments []models.PaymentRecord
	err := r.db.WithContext(ctx).Where("service_id = ?", serviceID).Order("created_at ASC").Find(&payments).Error
	return payments, err
}

func (r *paymentRepository) ListByWorker(ctx context.Context, workerID uint) ([]models.PaymentRecord, error) {
	var payments []models.PaymentRecord
	err := r.db.WithContext(ctx).Where("worker_id = ?", workerID).Order("created_at DESC, id DESC").Find(&payments).Error
	return payments, err
}
