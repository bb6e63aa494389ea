package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"homecare_manager/internal/apperrors"
	"homecare_manager/internal/models"
	"homecare_manager/internal/repository"

	"github.com/golang-jwt/jwt/v5"
)

var errInvalidToken = apperrors.Unauthorized("invalid token")

// Principal is the authenticated caller of an operation.
type Principal struct {
	UserID        uint   `json:"user_id"`
	Username      string `json:"username"`
	Role          string `json:"role"`
	WorkerID      *uint  `json:"worker_id,omitempty"`
	ApprovalState string `json:"approval_state"`
}

func (p *Principal) IsAdmin() bool {
	return p.Role == string(models.RoleAdmin)
}

// IsActive reports whether the caller may use the console. Admins always can;
// workers only once approved.
func (p *Principal) IsActive() bool {
	return p.IsAdmin() || p.ApprovalState == string(models.ApprovalActive)
}

// OwnsWorker reports whether the caller is the given worker.
func (p *Principal) OwnsWorker(workerID uint) bool {
	return p.WorkerID != nil && *p.WorkerID == workerID
}

type LoginResult struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      *Principal `json:"user"`
}

type AuthService interface {
	Login(ctx context.Context, login, password string) (*LoginResult, error)
	IssueToken(user *models.User) (string, time.Time, error)
	CurrentUser(ctx context.Context, token string) (*Principal, error)
	RequireAdmin(p *Principal) error
	RequireActive(p *Principal) error
	AuthorizeVisitCompletion(p *Principal, visit *models.Visit) error
	AuthorizeService(p *Principal, service *models.Service) error
}

type authService struct {
	users      UserService
	workerRepo repository.WorkerRepository
	secret     []byte
	tokenTTL   time.Duration
	now        func() time.Time
}

func NewAuthService(users UserService, workerRepo repository.WorkerRepository, secret string, tokenTTL time.Duration) AuthService {
	return &authService{
		users:      users,
		workerRepo: workerRepo,
		secret:     []byte(secret),
		tokenTTL:   tokenTTL,
		now:        time.Now,
	}
}

func (s *authService) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	user, err := s.users.Authenticate(ctx, login, password)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}
	principal, err := s.principalFor(ctx, user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: principal}, nil
}

func (s *authService) IssueToken(user *models.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        strconv.FormatUint(uint64(user.ID), 10),
		"role":       user.Role,
		"token_type": "access",
		"exp":        expiresAt.Unix(),
		"iat":        now.Unix(),
	}).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// CurrentUser resolves a bearer token. Role and approval state are read from
// storage, so blocking a worker takes effect before the token expires.
func (s *authService) CurrentUser(ctx context.Context, tokenStr string) (*Principal, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["token_type"] != "access" {
		return nil, errInvalidToken
	}
	sub, _ := claims["sub"].(string)
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil {
		return nil, errInvalidToken
	}

	user, err := s.users.GetUserByID(ctx, uint(id))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, errInvalidToken
		}
		return nil, err
	}
	return s.principalFor(ctx, user)
}

func (s *authService) principalFor(ctx context.Context, user *models.User) (*Principal, error) {
	p := &Principal{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		WorkerID: user.WorkerID,
	}
	if user.IsAdmin() {
		p.ApprovalState = string(models.ApprovalActive)
		return p, nil
	}
	if user.WorkerID == nil {
		p.ApprovalState = string(models.ApprovalPending)
		return p, nil
	}
	worker, err := s.workerRepo.GetByID(ctx, *user.WorkerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			p.ApprovalState = string(models.ApprovalBlocked)
			return p, nil
		}
		return nil, err
	}
	p.ApprovalState = worker.ApprovalState
	return p, nil
}

func (s *authService) RequireAdmin(p *Principal) error {
	if p == nil {
		return apperrors.Unauthorized("authentication required")
	}
	if !p.IsAdmin() {
		return apperrors.Forbidden("admin role required")
	}
	return nil
}

func (s *authService) RequireActive(p *Principal) error {
	if p == nil {
		return apperrors.Unauthorized("authentication required")
	}
	if !p.IsActive() {
		return apperrors.Forbidden("account is " + p.ApprovalState)
	}
	return nil
}

func (s *authService) AuthorizeVisitCompletion(p *Principal, visit *models.Visit) error {
	if err := s.RequireActive(p); err != nil {
		return err
	}
	if p.IsAdmin() || p.OwnsWorker(visit.WorkerID) {
		return nil
	}
	return apperrors.Forbidden("visit belongs to another worker")
}

func (s *authService) AuthorizeService(p *Principal, service *models.Service) error {
	if err := s.RequireActive(p); err != nil {
		return err
	}
	if p.IsAdmin() || p.OwnsWorker(service.WorkerID) {
		return nil
	}
	return apperrors.Forbidden("service belongs to another worker")
}
