package repository

import (
	"context"
	"strings"

	"homecare_manager/internal/models"

	"gorm.io/gorm"
)

type ClientRepository interface {
	Create(ctx context.Context, client *models.Client) error
	GetByID(ctx context.Context, id uint) (*models.Client, error)
	FindByNameAndPhone(ctx context.Context, name, phone string) (*models.Client, error)
	List(ctx context.Context, search string) ([]models.Client, error)
	Update(ctx context.Context, client *models.Client) error
	Delete(ctx context.Context, id uint) error
}

type clientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) Create(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).Create(client).Error
}

func (r *clientRepository) GetByID(ctx context.Context, id uint) (*models.Client, error) {
	var client models.Client
	if err := r.db.WithContext(ctx).First(&client, id).Error; err != nil {
		return nil, notFound(err, "client", id)
	}
	return &client, nil
}

// FindByNameAndPhone returns nil without error when no client matches.
func (r *clientRepository) FindByNameAndPhone(ctx context.Context, name, phone string) (*models.Client, error) {
	var clients []models.Client
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = ? AND phone = ?", strings.ToLower(name), phone).
		Limit(1).
		Find(&clients).Error
	if err != nil {
		return nil, err
	}
	if len(clients) == 0 {
		return nil, nil
	}
	return &clients[0], nil
}

func (r *clientRepository) List(ctx context.Context, search string) ([]models.Client, error) {
	var clients []models.Client
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR phone LIKE ?", like, like)
	}
	err := q.Find(&clients).Error
	return clients, err
}

func (r *clientRepository) Update(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).Save(client).Error
}

func (r *clientRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Client{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "client", id)
	}
	return nil
}
