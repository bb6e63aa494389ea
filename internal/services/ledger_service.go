package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"homecare_manager/internal/apperrors"
	"homecare_manager/internal/logger"
	"homecare_manager/internal/metrics"
	"homecare_manager/internal/models"
	rediscache "homecare_manager/internal/redis"
	"homecare_manager/internal/repository"
	"homecare_manager/internal/scheduler"

	"github.com/shopspring/decimal"
)

const (
	deleteAttempts   = 3
	startDateLayout  = "2006-01-02"
	defaultStartHour = 8
)

// ProgressCache stores per-service progress snapshots.
type ProgressCache interface {
	SetServiceProgress(ctx context.Context, serviceID uint, snapshot rediscache.ProgressSnapshot, ttl time.Duration) error
	GetServiceProgress(ctx context.Context, serviceID uint) (*rediscache.ProgressSnapshot, error)
	DeleteServiceProgress(ctx context.Context, serviceID uint) error
}

// SubmissionGuard rejects a create request whose key is already in flight.
type SubmissionGuard interface {
	AcquireSubmission(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseSubmission(ctx context.Context, key string) error
}

type CreateServiceRequest struct {
	WorkerID      uint            `json:"worker_id" binding:"required"`
	ClientID      uint            `json:"client_id"`
	NewClient     *ClientInput    `json:"new_client"`
	ServiceTypeID uint            `json:"service_type_id" binding:"required"`
	Weeks         int             `json:"weeks"`
	VisitsPerWeek int             `json:"visits_per_week"`
	HoursPerVisit float64         `json:"hours_per_visit"`
	StartDate     string          `json:"start_date"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Notes         string          `json:"notes"`

	// SubmissionKey deduplicates repeated submissions of the same form.
	SubmissionKey string `json:"-"`
}

// Progress is the completion ratio of one service's visits.
type Progress struct {
	ServiceID uint `json:"service_id"`
	Completed int  `json:"completed"`
	Total     int  `json:"total"`
	Percent   int  `json:"percent"`
}

// NewProgress rounds 100*completed/total half up. Percent reaches 100 only when
// every visit is completed.
func NewProgress(serviceID uint, completed, total int) Progress {
	p := Progress{ServiceID: serviceID, Completed: completed, Total: total}
	if total <= 0 {
		return p
	}
	p.Percent = (200*completed + total) / (2 * total)
	if p.Percent >= 100 && completed < total {
		p.Percent = 99
	}
	return p
}

type LedgerService interface {
	CreateService(ctx context.Context, req CreateServiceRequest) (*models.Service, error)
	RepairVisits(ctx context.Context, serviceID uint) (*models.Service, int, error)
	SetServiceState(ctx context.Context, serviceID uint, state string) (*models.Service, error)
	CompleteVisit(ctx context.Context, visitID uint) (*models.Visit, *models.IncomeEntry, error)
	CancelVisit(ctx context.Context, visitID uint) (*models.Visit, error)
	SetVisitPaid(ctx context.Context, visitID uint, paid bool) (*models.Visit, error)
	Progress(ctx context.Context, serviceID uint) (Progress, error)
	DeleteService(ctx context.Context, serviceID uint) error

	GetService(ctx context.Context, serviceID uint) (*models.Service, error)
	GetVisit(ctx context.Context, visitID uint) (*models.Visit, error)
	ListServices(ctx context.Context, filter repository.ServiceFilter) ([]models.Service, error)
	ListVisits(ctx context.Context, serviceID uint) ([]models.Visit, error)
	ListAllVisits(ctx context.Context) ([]models.Visit, error)
	ListVisitsForWorker(ctx context.Context, workerID uint, state string) ([]models.Visit, error)
}

type LedgerDeps struct {
	Services repository.ServiceRepository
	Visits   repository.VisitRepository
	Workers  repository.WorkerRepository
	Clients  repository.ClientRepository
	Catalog  repository.CatalogRepository
	Ledger   repository.LedgerRepository
	Cache    ProgressCache
	Guard    SubmissionGuard
	CacheTTL time.Duration
	GuardTTL time.Duration
	Now      func() time.Time
	Log      logger.Logger
}

type ledgerService struct {
	serviceRepo repository.ServiceRepository
	visitRepo   repository.VisitRepository
	workerRepo  repository.WorkerRepository
	clientRepo  repository.ClientRepository
	catalogRepo repository.CatalogRepository
	cache       ProgressCache
	guard       SubmissionGuard
	cacheTTL    time.Duration
	guardTTL    time.Duration
	now         func() time.Time
	income      *incomeBooker
	log         logger.Logger
}

func NewLedgerService(deps LedgerDeps) LedgerService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Log == nil {
		deps.Log = logger.NewNoOpLogger()
	}
	if deps.CacheTTL == 0 {
		deps.CacheTTL = 5 * time.Minute
	}
	if deps.GuardTTL == 0 {
		deps.GuardTTL = 30 * time.Second
	}
	return &ledgerService{
		serviceRepo: deps.Services,
		visitRepo:   deps.Visits,
		workerRepo:  deps.Workers,
		clientRepo:  deps.Clients,
		catalogRepo: deps.Catalog,
		cache:       deps.Cache,
		guard:       deps.Guard,
		cacheTTL:    deps.CacheTTL,
		guardTTL:    deps.GuardTTL,
		now:         deps.Now,
		income:      &incomeBooker{ledgerRepo: deps.Ledger, now: deps.Now, log: deps.Log},
		log:         deps.Log,
	}
}

// parseStartDate accepts a calendar date (scheduled at 08:00 UTC) or a full RFC 3339 timestamp.
func parseStartDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, apperrors.Validation("start_date", "is required")
	}
	if d, err := time.Parse(startDateLayout, value); err == nil {
		return d.Add(defaultStartHour * time.Hour), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, apperrors.Validation("start_date", "must be YYYY-MM-DD or RFC 3339, got %q", value)
	}
	return t, nil
}

// CreateService expands the request into a service and its visits. Visits are
// written one by one after the service; if a write fails the service is kept and
// a *apperrors.PartialWriteError names the missing sequence numbers, which
// RepairVisits can fill in later.
func (s *ledgerService) CreateService(ctx context.Context, req CreateServiceRequest) (*models.Service, error) {
	if s.guard != nil && req.SubmissionKey != "" {
		ok, err := s.guard.AcquireSubmission(ctx, req.SubmissionKey, s.guardTTL)
		if err != nil {
			s.log.WithError(err).Warn("submission guard unavailable", map[string]interface{}{"key": req.SubmissionKey})
		} else if !ok {
			return nil, apperrors.Precondition("submission %s is already being processed", req.SubmissionKey)
		}
	}

	service, err := s.createService(ctx, req)
	if err != nil && s.guard != nil && req.SubmissionKey != "" && service == nil {
		// Nothing was written, so the same key may be resubmitted.
		if relErr := s.guard.ReleaseSubmission(ctx, req.SubmissionKey); relErr != nil {
			s.log.WithError(relErr).Warn("failed to release submission", map[string]interface{}{"key": req.SubmissionKey})
		}
	}
	return service, err
}

func (s *ledgerService) createService(ctx context.Context, req CreateServiceRequest) (*models.Service, error) {
	startDate, err := parseStartDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	plan, err := scheduler.Expand(scheduler.Config{
		Weeks:         req.Weeks,
		VisitsPerWeek: req.VisitsPerWeek,
		HoursPerVisit: req.HoursPerVisit,
		StartDate:     startDate,
		TotalPrice:    req.TotalPrice,
	})
	if err != nil {
		return nil, err
	}

	worker, err := s.workerRepo.GetByID(ctx, req.WorkerID)
	if err != nil {
		return nil, err
	}
	if !worker.IsAssignable() {
		return nil, apperrors.Precondition("worker %d is %s and cannot be assigned", worker.ID, worker.ApprovalState)
	}

	serviceType, err := s.catalogRepo.GetByID(ctx, req.ServiceTypeID)
	if err != nil {
		return nil, err
	}
	if !serviceType.Active {
		return nil, apperrors.Precondition("service type %q is inactive", serviceType.Name)
	}

	client, err := resolveClient(ctx, s.clientRepo, req.ClientID, req.NewClient)
	if err != nil {
		return nil, err
	}

	service := &models.Service{
		WorkerID:        worker.ID,
		WorkerName:      worker.Name,
		ClientID:        client.ID,
		ClientName:      client.Name,
		ClientPhone:     client.Phone,
		ClientAddress:   client.Address,
		ServiceTypeName: serviceType.Name,
		ServiceTypeIcon: serviceType.Icon,
		TotalPrice:      req.TotalPrice,
		PerVisitPrice:   plan.PerVisitPrice,
		Weeks:           req.Weeks,
		VisitsPerWeek:   req.VisitsPerWeek,
		HoursPerVisit:   req.HoursPerVisit,
		StartDate:       startDate,
		State:           string(models.ServiceActive),
		Notes:           req.Notes,
		CreatedAt:       s.now(),
	}
	if err := s.serviceRepo.Create(ctx, service); err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	visits, err := s.writeVisits(ctx, service, plan.Visits, "create_service")
	service.Visits = visits
	if err != nil {
		return service, err
	}

	metrics.ServicesCreated.Inc()
	s.log.Info("service created", map[string]interface{}{
		"service_id":   service.ID,
		"worker_id":    service.WorkerID,
		"client":       service.ClientName,
		"total_visits": service.TotalVisits,
	})
	return service, nil
}

func (s *ledgerService) newVisit(service *models.Service, draft scheduler.VisitDraft) *models.Visit {
	return &models.Visit{
		ServiceID:       service.ID,
		Sequence:        draft.Sequence,
		TotalVisits:     service.TotalVisits,
		WorkerID:        service.WorkerID,
		WorkerName:      service.WorkerName,
		ClientName:      service.ClientName,
		ServiceTypeName: service.ServiceTypeName,
		ScheduledDate:   draft.ScheduledDate,
		Hours:           draft.Hours,
		Price:           draft.Price,
		State:           string(models.VisitPending),
	}
}

// writeVisits persists drafts in order and stops at the first failure.
func (s *ledgerService) writeVisits(ctx context.Context, service *models.Service, drafts []scheduler.VisitDraft, operation string) ([]models.Visit, error) {
	written := make([]models.Visit, 0, len(drafts))
	for i, draft := range drafts {
		visit := s.newVisit(service, draft)
		if err := s.visitRepo.Create(ctx, visit); err != nil {
			remaining := make([]string, 0, len(drafts)-i)
			for _, d := range drafts[i:] {
				remaining = append(remaining, strconv.Itoa(d.Sequence))
			}
			metrics.PartialWrites.WithLabelValues(operation).Inc()
			s.log.WithError(err).Error("visit write interrupted", map[string]interface{}{
				"service_id": service.ID,
				"operation":  operation,
				"written":    len(written),
				"total":      len(drafts),
			})
			return written, &apperrors.PartialWriteError{
				Operation: operation,
				Written:   len(written),
				Total:     len(drafts),
				Remaining: remaining,
				Err:       err,
			}
		}
		written = append(written, *visit)
	}
	return written, nil
}

func (s *ledgerService) RepairVisits(ctx context.Context, serviceID uint) (*models.Service, int, error) {
	service, err := s.serviceRepo.GetByID(ctx, serviceID)
	if err != nil {
		return nil, 0, err
	}

	drafts, err := scheduler.GenerateVisits(scheduler.Config{
		Weeks:         service.Weeks,
		VisitsPerWeek: service.VisitsPerWeek,
		HoursPerVisit: service.HoursPerVisit,
		StartDate:     service.StartDate,
		TotalPrice:    service.TotalPrice,
	})
	if err != nil {
		return nil, 0, err
	}

	existing, err := s.visitRepo.ListByService(ctx, serviceID)
	if err != nil {
		return nil, 0, err
	}
	have := make(map[int]bool, len(existing))
	for _, v := range existing {
		have[v.Sequence] = true
	}

	missing := make([]scheduler.VisitDraft, 0)
	for _, d := range drafts {
		if !have[d.Sequence] {
			d.Price = service.PerVisitPrice
			missing = append(missing, d)
		}
	}

	written, err := s.writeVisits(ctx, service, missing, "repair_visits")
	s.invalidateProgress(ctx, serviceID)
	if len(written) > 0 {
		s.log.Info("service visits repaired", map[string]interface{}{
			"service_id": serviceID,
			"inserted":   len(written),
		})
	}

	visits, listErr := s.visitRepo.ListByService(ctx, serviceID)
	if listErr == nil {
		service.Visits = visits
	}
	return service, len(written), err
}

// SetServiceState moves a service to any of its states. There is no transition
// order between active, completed and cancelled.
func (s *ledgerService) SetServiceState(ctx context.Context, serviceID uint, state string) (*models.Service, error) {
	if !models.ServiceState(state).Valid() {
		return nil, apperrors.Validation("state", "must be one of active, completed, cancelled, got %q", state)
	}
	if err := s.serviceRepo.UpdateState(ctx, serviceID, state); err != nil {
		return nil, err
	}
	s.log.Info("service state changed", map[string]interface{}{"service_id": serviceID, "state": state})
	return s.serviceRepo.GetByID(ctx, serviceID)
}

// CompleteVisit moves a pending visit to completed and books its income. The
// state change is a conditional update, so concurrent callers get exactly one
// winner; the losers see a precondition failure and no second income entry.
func (s *ledgerService) CompleteVisit(ctx context.Context, visitID uint) (*models.Visit, *models.IncomeEntry, error) {
	visit, err := s.visitRepo.GetByID(ctx, visitID)
	if err != nil {
		return nil, nil, err
	}
	if visit.IsTerminal() {
		return visit, nil, apperrors.Precondition("visit %d already %s", visitID, visit.State)
	}

	completedAt := s.now()
	ok, err := s.visitRepo.TransitionState(ctx, visitID, string(models.VisitPending), string(models.VisitCompleted), &completedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to complete visit %d: %w", visitID, err)
	}
	if !ok {
		current, getErr := s.visitRepo.GetByID(ctx, visitID)
		if getErr != nil {
			return nil, nil, getErr
		}
		return current, nil, apperrors.Precondition("visit %d already %s", visitID, current.State)
	}

	visit.State = string(models.VisitCompleted)
	visit.CompletedAt = &completedAt
	metrics.VisitTransitions.WithLabelValues(visit.State).Inc()
	s.invalidateProgress(ctx, visit.ServiceID)

	entry, _, err := s.income.book(ctx, visit)
	if err != nil {
		s.log.WithError(err).Error("visit completed without income entry", map[string]interface{}{
			"visit_id":   visitID,
			"service_id": visit.ServiceID,
		})
		return visit, nil, fmt.Errorf("visit %d completed but income entry was not written: %w", visitID, err)
	}
	return visit, entry, nil
}

func (s *ledgerService) CancelVisit(ctx context.Context, visitID uint) (*models.Visit, error) {
	visit, err := s.visitRepo.GetByID(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if visit.IsTerminal() {
		return visit, apperrors.Precondition("visit %d already %s", visitID, visit.State)
	}

	ok, err := s.visitRepo.TransitionState(ctx, visitID, string(models.VisitPending), string(models.VisitCancelled), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel visit %d: %w", visitID, err)
	}
	if !ok {
		current, getErr := s.visitRepo.GetByID(ctx, visitID)
		if getErr != nil {
			return nil, getErr
		}
		return current, apperrors.Precondition("visit %d already %s", visitID, current.State)
	}

	visit.State = string(models.VisitCancelled)
	metrics.VisitTransitions.WithLabelValues(visit.State).Inc()
	s.invalidateProgress(ctx, visit.ServiceID)
	return visit, nil
}

func (s *ledgerService) SetVisitPaid(ctx context.Context, visitID uint, paid bool) (*models.Visit, error) {
	if err := s.visitRepo.SetPaid(ctx, visitID, paid); err != nil {
		return nil, err
	}
	return s.visitRepo.GetByID(ctx, visitID)
}

func (s *ledgerService) Progress(ctx context.Context, serviceID uint) (Progress, error) {
	if _, err := s.serviceRepo.GetByID(ctx, serviceID); err != nil {
		return Progress{}, err
	}

	if s.cache != nil {
		snapshot, err := s.cache.GetServiceProgress(ctx, serviceID)
		if err == nil {
			return NewProgress(serviceID, snapshot.Completed, snapshot.Total), nil
		}
		if !errors.Is(err, rediscache.ErrCacheMiss) {
			s.log.WithError(err).Warn("progress cache read failed", map[string]interface{}{"service_id": serviceID})
		}
	}

	counts, err := s.visitRepo.CountByService(ctx, serviceID)
	if err != nil {
		return Progress{}, err
	}
	progress := NewProgress(serviceID, int(counts.Completed), int(counts.Total))

	if s.cache != nil {
		snapshot := rediscache.ProgressSnapshot{Completed: progress.Completed, Total: progress.Total, CachedAt: s.now()}
		if err := s.cache.SetServiceProgress(ctx, serviceID, snapshot, s.cacheTTL); err != nil {
			s.log.WithError(err).Warn("progress cache write failed", map[string]interface{}{"service_id": serviceID})
		}
	}
	return progress, nil
}

// DeleteService removes every visit, retrying each one, and then the service.
// If any visit survives the service is kept so it can be deleted again.
func (s *ledgerService) DeleteService(ctx context.Context, serviceID uint) error {
	if _, err := s.serviceRepo.GetByID(ctx, serviceID); err != nil {
		return err
	}

	visits, err := s.visitRepo.ListByService(ctx, serviceID)
	if err != nil {
		return err
	}

	var (
		remaining []string
		lastErr   error
	)
	deleted := 0
	for _, v := range visits {
		if err := s.deleteVisit(ctx, v.ID); err != nil {
			remaining = append(remaining, strconv.FormatUint(uint64(v.ID), 10))
			lastErr = err
			continue
		}
		deleted++
	}
	s.invalidateProgress(ctx, serviceID)

	if len(remaining) > 0 {
		metrics.PartialWrites.WithLabelValues("delete_service").Inc()
		s.log.WithError(lastErr).Error("service delete interrupted", map[string]interface{}{
			"service_id": serviceID,
			"deleted":    deleted,
			"remaining":  len(remaining),
		})
		return &apperrors.PartialWriteError{
			Operation: "delete_service",
			Written:   deleted,
			Total:     len(visits),
			Remaining: remaining,
			Err:       lastErr,
		}
	}

	if err := s.serviceRepo.Delete(ctx, serviceID); err != nil {
		return err
	}
	s.log.Info("service deleted", map[string]interface{}{"service_id": serviceID, "visits": deleted})
	return nil
}

func (s *ledgerService) deleteVisit(ctx context.Context, visitID uint) error {
	var err error
	for attempt := 1; attempt <= deleteAttempts; attempt++ {
		if err = s.visitRepo.Delete(ctx, visitID); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Debug("retrying visit delete", map[string]interface{}{"visit_id": visitID, "attempt": attempt})
	}
	return err
}

func (s *ledgerService) invalidateProgress(ctx context.Context, serviceID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteServiceProgress(ctx, serviceID); err != nil {
		s.log.WithError(err).Warn("progress cache invalidation failed", map[string]interface{}{"service_id": serviceID})
	}
}

func (s *ledgerService) GetService(ctx context.Context, serviceID uint) (*models.Service, error) {
	service, err := s.serviceRepo.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	visits, err := s.visitRepo.ListByService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	service.Visits = visits
	return service, nil
}

func (s *ledgerService) GetVisit(ctx context.Context, visitID uint) (*models.Visit, error) {
	return s.visitRepo.GetByID(ctx, visitID)
}

func (s *ledgerService) ListServices(ctx context.Context, filter repository.ServiceFilter) ([]models.Service, error) {
	return s.serviceRepo.List(ctx, filter)
}

func (s *ledgerService) ListVisits(ctx context.Context, serviceID uint) ([]models.Visit, error) {
	if _, err := s.serviceRepo.GetByID(ctx, serviceID); err != nil {
		return nil, err
	}
	return s.visitRepo.ListByService(ctx, serviceID)
}

// ListAllVisits returns every visit ordered by service and sequence.
func (s *ledgerService) ListAllVisits(ctx context.Context) ([]models.Visit, error) {
	return s.visitRepo.ListAll(ctx)
}

func (s *ledgerService) ListVisitsForWorker(ctx context.Context, workerID uint, state string) ([]models.Visit, error) {
	return s.visitRepo.ListByWorker(ctx, workerID, state)
}
