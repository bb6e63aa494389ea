package services

import (
	"context"
	"strings"

	"homecare_manager/internal/apperrors"
	"homecare_manager/internal/logger"
	"homecare_manager/internal/models"
	"homecare_manager/internal/repository"
)

type ClientInput struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (in *ClientInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	if in.Name == "" {
		return apperrors.Validation("client.name", "is required")
	}
	return nil
}

// resolveClient returns the client referenced by id, or upserts input by name
// and phone so that a new client is persisted before it is referenced.
func resolveClient(ctx context.Context, repo repository.ClientRepository, id uint, input *ClientInput) (*models.Client, error) {
	if id != 0 {
		return repo.GetByID(ctx, id)
	}
	if input == nil {
		return nil, apperrors.Validation("client.name", "is required")
	}
	in := *input
	if err := in.normalize(); err != nil {
		return nil, err
	}

	existing, err := repo.FindByNameAndPhone(ctx, in.Name, in.Phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	client := &models.Client{Name: in.Name, Phone: in.Phone, Address: in.Address}
	if err := repo.Create(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

type ClientService interface {
	Create(ctx context.Context, input ClientInput) (*models.Client, error)
	Upsert(ctx context.Context, input ClientInput) (*models.Client, error)
	Get(ctx context.Context, id uint) (*models.Client, error)
	List(ctx context.Context, search string) ([]models.Client, error)
	Update(ctx context.Context, id uint, input ClientInput) (*models.Client, error)
	Delete(ctx context.Context, id uint) error
}

type clientService struct {
	clientRepo repository.ClientRepository
	log        logger.Logger
}

func NewClientService(clientRepo repository.ClientRepository, log logger.Logger) ClientService {
	return &clientService{clientRepo: clientRepo, log: log}
}

func (s *clientService) Create(ctx context.Context, input ClientInput) (*models.Client, error) {
	if err := input.normalize(); err != nil {
		return nil, err
	}
	client := &models.Client{Name: input.Name, Phone: input.Phone, Address: input.Address}
	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

func (s *clientService) Upsert(ctx context.Context, input ClientInput) (*models.Client, error) {
	return resolveClient(ctx, s.clientRepo, 0, &input)
}

func (s *clientService) Get(ctx context.Context, id uint) (*models.Client, error) {
	return s.clientRepo.GetByID(ctx, id)
}

func (s *clientService) List(ctx context.Context, search string) ([]models.Client, error) {
	return s.clientRepo.List(ctx, search)
}

// Update edits the client record only; services keep the snapshot taken when
// they were created.
func (s *clientService) Update(ctx context.Context, id uint, input ClientInput) (*models.Client, error) {
	if err := input.normalize(); err != nil {
		return nil, err
	}
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	client.Name = input.Name
	client.Phone = input.Phone
	client.Address = input.Address
	if err := s.clientRepo.Update(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

func (s *clientService) Delete(ctx context.Context, id uint) error {
	if err := s.clientRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("client deleted", map[string]interface{}{"client_id": id})
	return nil
}
