package services

import (
	"context"
	"strings"

	"homecare_manager/internal/apperrors"
	"homecare_manager/internal/logger"
	"homecare_manager/internal/models"
	"homecare_manager/internal/repository"
)

type RegisterWorkerRequest struct {
	Name       string `json:"name" binding:"required"`
	Username   string `json:"username" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	Phone      string `json:"phone"`
	Age        int    `json:"age"`
	Sector     string `json:"sector"`
	Address    string `json:"address"`
	Experience string `json:"experience"`
	Transport  string `json:"transport"`
}

// WorkerProfile holds the fields a worker or admin may edit after registration.
type WorkerProfile struct {
	Name       *string  `json:"name"`
	Phone      *string  `json:"phone"`
	Sector     *string  `json:"sector"`
	Address    *string  `json:"address"`
	Lat        *float64 `json:"lat"`
	Lng        *float64 `json:"lng"`
	Experience *string  `json:"experience"`
	Transport  *string  `json:"transport"`
	Available  *bool    `json:"available"`
}

type WorkerService interface {
	Register(ctx context.Context, req RegisterWorkerRequest) (*models.Worker, *models.User, error)
	Get(ctx context.Context, id uint) (*models.Worker, error)
	List(ctx context.Context, approvalState string) ([]models.Worker, error)
	SetApprovalState(ctx context.Context, id uint, state string) (*models.Worker, error)
	UpdateProfile(ctx context.Context, id uint, profile WorkerProfile) (*models.Worker, error)
	CountByApprovalState(ctx context.Context) (map[string]int64, error)
}

type workerService struct {
	workerRepo repository.WorkerRepository
	users      UserService
	log        logger.Logger
}

func NewWorkerService(workerRepo repository.WorkerRepository, users UserService, log logger.Logger) WorkerService {
	return &workerService{workerRepo: workerRepo, users: users, log: log}
}

func validateTiers(experience, transport string) error {
	if experience != "" && !models.ExperienceTier(experience).Valid() {
		return apperrors.Validation("experience", "unknown experience tier %q", experience)
	}
	if transport != "" && !models.TransportTier(transport).Valid() {
		return apperrors.Validation("transport", "unknown transport tier %q", transport)
	}
	return nil
}

// Register creates a pending worker and the user account it signs in with.
// The worker cannot be assigned until an admin approves it.
func (s *workerService) Register(ctx context.Context, req RegisterWorkerRequest) (*models.Worker, *models.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, nil, apperrors.Validation("name", "is required")
	}
	if err := validateTiers(req.Experience, req.Transport); err != nil {
		return nil, nil, err
	}
	if len(req.Password) < minPasswordLength {
		return nil, nil, apperrors.Validation("password", "must be at least %d characters", minPasswordLength)
	}
	if req.Experience == "" {
		req.Experience = string(models.ExperienceNone)
	}
	if req.Transport == "" {
		req.Transport = string(models.TransportNone)
	}
	if err := s.users.EnsureAvailable(ctx, req.Username, req.Email); err != nil {
		return nil, nil, err
	}

	worker := &models.Worker{
		Name:          req.Name,
		Phone:         strings.TrimSpace(req.Phone),
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		Age:           req.Age,
		Sector:        req.Sector,
		Address:       req.Address,
		Experience:    req.Experience,
		Transport:     req.Transport,
		Available:     true,
		ApprovalState: string(models.ApprovalPending),
	}
	if err := s.workerRepo.Create(ctx, worker); err != nil {
		return nil, nil, err
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Role:     string(models.RoleWorker),
		WorkerID: &worker.ID,
	}
	if err := s.users.CreateUser(ctx, user, req.Password); err != nil {
		// A concurrent registration took the login; drop the worker row with it.
		if delErr := s.workerRepo.Delete(ctx, worker.ID); delErr != nil {
			s.log.WithError(delErr).Error("failed to remove worker without login", map[string]interface{}{"worker_id": worker.ID})
		}
		return nil, nil, err
	}

	s.log.Info("worker registered", map[string]interface{}{"worker_id": worker.ID, "user_id": user.ID})
	return worker, user, nil
}

func (s *workerService) Get(ctx context.Context, id uint) (*models.Worker, error) {
	return s.workerRepo.GetByID(ctx, id)
}

func (s *workerService) List(ctx context.Context, approvalState string) ([]models.Worker, error) {
	if approvalState != "" && !models.ApprovalState(approvalState).Valid() {
		return nil, apperrors.Validation("approval_state", "unknown approval state %q", approvalState)
	}
	return s.workerRepo.List(ctx, approvalState)
}

func (s *workerService) SetApprovalState(ctx context.Context, id uint, state string) (*models.Worker, error) {
	next := models.ApprovalState(state)
	if !next.Valid() {
		return nil, apperrors.Validation("approval_state", "unknown approval state %q", state)
	}

	worker, err := s.workerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	current := models.ApprovalState(worker.ApprovalState)
	if !current.CanTransitionTo(next) {
		return nil, apperrors.Precondition("worker %d cannot move from %s to %s", id, current, next)
	}

	ok, err := s.workerRepo.UpdateApprovalState(ctx, id, string(current), string(next))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.Precondition("worker %d changed approval state concurrently", id)
	}

	s.log.Info("worker approval changed", map[string]interface{}{
		"worker_id": id,
		"from":      string(current),
		"to":        string(next),
	})
	worker.ApprovalState = string(next)
	return worker, nil
}

func (s *workerService) UpdateProfile(ctx context.Context, id uint, profile WorkerProfile) (*models.Worker, error) {
	worker, err := s.workerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if profile.Experience != nil && *profile.Experience != "" {
		if err := validateTiers(*profile.Experience, ""); err != nil {
			return nil, err
		}
		worker.Experience = *profile.Experience
	}
	if profile.Transport != nil && *profile.Transport != "" {
		if err := validateTiers("", *profile.Transport); err != nil {
			return nil, err
		}
		worker.Transport = *profile.Transport
	}
	if profile.Name != nil {
		name := strings.TrimSpace(*profile.Name)
		if name == "" {
			return nil, apperrors.Validation("name", "is required")
		}
		worker.Name = name
	}
	if profile.Phone != nil {
		worker.Phone = strings.TrimSpace(*profile.Phone)
	}
	if profile.Sector != nil {
		worker.Sector = *profile.Sector
	}
	if profile.Address != nil {
		worker.Address = *profile.Address
	}
	if profile.Lat != nil || profile.Lng != nil {
		if profile.Lat == nil || profile.Lng == nil {
			return nil, apperrors.Validation("lat", "lat and lng must be set together")
		}
		if *profile.Lat < -90 || *profile.Lat > 90 || *profile.Lng < -180 || *profile.Lng > 180 {
			return nil, apperrors.Validation("lat", "coordinates out of range")
		}
		worker.Lat, worker.Lng = profile.Lat, profile.Lng
	}
	if profile.Available != nil {
		worker.Available = *profile.Available
	}

	if err := s.workerRepo.Update(ctx, worker); err != nil {
		return nil, err
	}
	return worker, nil
}

func (s *workerService) CountByApprovalState(ctx context.Context) (map[string]int64, error) {
	return s.workerRepo.CountByApprovalState(ctx)
}
