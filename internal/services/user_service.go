package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"homecare_manager/internal/apperrors"
	"homecare_manager/internal/models"
	"homecare_manager/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

var ErrInvalidCredentials = apperrors.Unauthorized("invalid credentials")

type UserService interface {
	CreateUser(ctx context.Context, user *models.User, password string) error
	// EnsureAvailable fails when the username or email is already registered.
	EnsureAvailable(ctx context.Context, username, email string) error
	Authenticate(ctx context.Context, login, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	ChangePassword(ctx context.Context, id uint, oldPassword, newPassword string) error
	// EnsureAdmin creates the admin account when no user has its username.
	EnsureAdmin(ctx context.Context, username, email, password string) (bool, error)

	ListAdmins(ctx context.Context) ([]models.User, error)
	// PromoteToAdmin grants the admin role to the registered user with this email.
	PromoteToAdmin(ctx context.Context, email string) (*models.User, error)
	// DemoteAdmin returns an admin to the worker role. Admins cannot demote themselves.
	DemoteAdmin(ctx context.Context, id, callerID uint) (*models.User, error)
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func hashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", apperrors.Validation("password", "must be at least %d characters", minPasswordLength)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func (s *userService) CreateUser(ctx context.Context, user *models.User, password string) error {
	user.Username = strings.TrimSpace(user.Username)
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if err := s.EnsureAvailable(ctx, user.Username, user.Email); err != nil {
		return err
	}

	hashed, err := hashPassword(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hashed
	if user.Role == "" {
		user.Role = string(models.RoleWorker)
	}

	return s.userRepo.Create(ctx, user)
}

func (s *userService) EnsureAvailable(ctx context.Context, username, email string) error {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" {
		return apperrors.Validation("username", "is required")
	}
	if email == "" {
		return apperrors.Validation("email", "is required")
	}

	if existing, err := s.userRepo.GetByLogin(ctx, username); err == nil && existing != nil {
		return apperrors.Precondition("username %q is already registered", username)
	}
	if existing, err := s.userRepo.GetByLogin(ctx, email); err == nil && existing != nil {
		return apperrors.Precondition("email %q is already registered", email)
	}
	return nil
}

func (s *userService) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	user, err := s.userRepo.GetByLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *userService) ChangePassword(ctx context.Context, id uint, oldPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}
	hashed, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hashed
	return s.userRepo.Update(ctx, user)
}

func (s *userService) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	_, err := s.userRepo.GetByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return false, err
	}

	admin := &models.User{Username: username, Email: email, Role: string(models.RoleAdmin)}
	if err := s.CreateUser(ctx, admin, password); err != nil {
		return false, err
	}
	return true, nil
}

func (s *userService) ListAdmins(ctx context.Context) ([]models.User, error) {
	return s.userRepo.ListByRole(ctx, string(models.RoleAdmin))
}

func (s *userService) PromoteToAdmin(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperrors.Validation("email", "is required")
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user.IsAdmin() {
		return user, nil
	}

	user.Role = string(models.RoleAdmin)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("promote user %d: %w", user.ID, err)
	}
	return user, nil
}

func (s *userService) DemoteAdmin(ctx context.Context, id, callerID uint) (*models.User, error) {
	if id == callerID {
		return nil, apperrors.Precondition("admins cannot remove their own admin access")
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, apperrors.Precondition("user %d is not an admin", id)
	}

	user.Role = string(models.RoleWorker)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("demote user %d: %w", id, err)
	}
	return user, nil
}
