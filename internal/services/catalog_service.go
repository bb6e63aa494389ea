package services

import (
	"context"
	"strings"

	"homecare_manager/internal/apperrors"
	"homecare_manager/internal/logger"
	"homecare_manager/internal/models"
	"homecare_manager/internal/repository"

	"github.com/shopspring/decimal"
)

// CatalogSeed is a service type inserted into an empty catalog.
type CatalogSeed struct {
	Name        string
	Icon        string
	Description string
	BasePrice   decimal.Decimal
}

// DefaultCatalogSeeds is used when no seeds are configured.
func DefaultCatalogSeeds() []CatalogSeed {
	return []CatalogSeed{
		{Name: "Limpieza general", Icon: "🧹", Description: "Limpieza completa del hogar", BasePrice: decimal.NewFromInt(1500)},
		{Name: "Cocina", Icon: "🍳", Description: "Preparación de alimentos y limpieza de cocina", BasePrice: decimal.NewFromInt(2000)},
		{Name: "Lavado y planchado", Icon: "👕", Description: "Lavado, secado y planchado de ropa", BasePrice: decimal.NewFromInt(1200)},
		{Name: "Cuidado de niños", Icon: "👶", Description: "Cuidado y supervisión de niños", BasePrice: decimal.NewFromInt(2500)},
		{Name: "Limpieza profunda", Icon: "🧼", Description: "Limpieza exhaustiva de todas las áreas", BasePrice: decimal.NewFromInt(3000)},
		{Name: "Jardinería", Icon: "🌿", Description: "Mantenimiento de jardín y áreas verdes", BasePrice: decimal.NewFromInt(1800)},
		{Name: "Solo planchado", Icon: "👔", Description: "Servicio exclusivo de planchado", BasePrice: decimal.NewFromInt(800)},
	}
}

type CatalogInput struct {
	Name        string          `json:"name" binding:"required"`
	Icon        string          `json:"icon"`
	Description string          `json:"description"`
	BasePrice   decimal.Decimal `json:"base_price"`
	Active      *bool           `json:"active"`
}

type CatalogService interface {
	// EnsureSeeded inserts the seed entries when the catalog is empty and
	// reports how many were inserted. It is safe to call on every startup.
	EnsureSeeded(ctx context.Context) (int, error)
	List(ctx context.Context, activeOnly bool) ([]models.ServiceType, error)
	Get(ctx context.Context, id uint) (*models.ServiceType, error)
	Create(ctx context.Context, input CatalogInput) (*models.ServiceType, error)
	Update(ctx context.Context, id uint, input CatalogInput) (*models.ServiceType, error)
	SetActive(ctx context.Context, id uint, active bool) error
	Delete(ctx context.Context, id uint) error
}

type catalogService struct {
	catalogRepo repository.CatalogRepository
	seeds       []CatalogSeed
	log         logger.Logger
}

func NewCatalogService(catalogRepo repository.CatalogRepository, seeds []CatalogSeed, log logger.Logger) CatalogService {
	if len(seeds) == 0 {
		seeds = DefaultCatalogSeeds()
	}
	return &catalogService{catalogRepo: catalogRepo, seeds: seeds, log: log}
}

func (s *catalogService) EnsureSeeded(ctx context.Context) (int, error) {
	count, err := s.catalogRepo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	inserted := 0
	for _, seed := range s.seeds {
		entry := &models.ServiceType{
			Name:        seed.Name,
			Icon:        seed.Icon,
			Description: seed.Description,
			BasePrice:   seed.BasePrice,
			Active:      true,
		}
		if err := s.catalogRepo.Create(ctx, entry); err != nil {
			return inserted, err
		}
		inserted++
	}

	s.log.Info("catalog seeded", map[string]interface{}{"entries": inserted})
	return inserted, nil
}

func (s *catalogService) List(ctx context.Context, activeOnly bool) ([]models.ServiceType, error) {
	return s.catalogRepo.List(ctx, activeOnly)
}

func (s *catalogService) Get(ctx context.Context, id uint) (*models.ServiceType, error) {
	return s.catalogRepo.GetByID(ctx, id)
}

func validateCatalogInput(input *CatalogInput) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return apperrors.Validation("name", "is required")
	}
	if input.BasePrice.IsNegative() {
		return apperrors.Validation("base_price", "must not be negative")
	}
	return nil
}

func (s *catalogService) Create(ctx context.Context, input CatalogInput) (*models.ServiceType, error) {
	if err := validateCatalogInput(&input); err != nil {
		return nil, err
	}

	entry := &models.ServiceType{
		Name:        input.Name,
		Icon:        input.Icon,
		Description: input.Description,
		BasePrice:   input.BasePrice,
		Active:      input.Active == nil || *input.Active,
	}
	if err := s.catalogRepo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *catalogService) Update(ctx context.Context, id uint, input CatalogInput) (*models.ServiceType, error) {
	if err := validateCatalogInput(&input); err != nil {
		return nil, err
	}

	entry, err := s.catalogRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	entry.Name = input.Name
	entry.Icon = input.Icon
	entry.Description = input.Description
	entry.BasePrice = input.BasePrice
	if input.Active != nil {
		entry.Active = *input.Active
	}

	if err := s.catalogRepo.Update(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// SetActive toggles availability for new assignments. Existing services keep
// their name snapshot.
func (s *catalogService) SetActive(ctx context.Context, id uint, active bool) error {
	return s.catalogRepo.SetActive(ctx, id, active)
}

func (s *catalogService) Delete(ctx context.Context, id uint) error {
	return s.catalogRepo.Delete(ctx, id)
}
