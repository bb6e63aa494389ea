package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"homecare_manager/internal/database/dbtest"
	"homecare_manager/internal/logger"
	"homecare_manager/internal/models"
	rediscache "homecare_manager/internal/redis"
	"homecare_manager/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var errInjected = errors.New("injected failure")

// flakyVisitRepository fails selected writes of the wrapped repository.
type flakyVisitRepository struct {
	repository.VisitRepository

	mu           sync.Mutex
	creates      int
	failCreateAt int // 1-based create call to fail from; 0 disables
	failDelete   map[uint]bool
}

func (r *flakyVisitRepository) Create(ctx context.Context, visit *models.Visit) error {
	r.mu.Lock()
	r.creates++
	fail := r.failCreateAt > 0 && r.creates >= r.failCreateAt
	r.mu.Unlock()
	if fail {
		return errInjected
	}
	return r.VisitRepository.Create(ctx, visit)
}

func (r *flakyVisitRepository) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	fail := r.failDelete[id]
	r.mu.Unlock()
	if fail {
		return errInjected
	}
	return r.VisitRepository.Delete(ctx, id)
}

func (r *flakyVisitRepository) heal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failCreateAt = 0
	r.failDelete = nil
}

type fixture struct {
	db  *gorm.DB
	now time.Time
	mr  *miniredis.Miniredis

	serviceRepo repository.ServiceRepository
	visitRepo   *flakyVisitRepository
	workerRepo  repository.WorkerRepository
	clientRepo  repository.ClientRepository
	catalogRepo repository.CatalogRepository
	ledgerRepo  repository.LedgerRepository
	paymentRepo repository.PaymentRepository
	userRepo    repository.UserRepository

	cache   *rediscache.Client
	ledger  LedgerService
	finance FinanceService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := dbtest.New(t)
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	f := &fixture{
		db:          db,
		now:         time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC),
		mr:          mr,
		serviceRepo: repository.NewServiceRepository(db),
		visitRepo:   &flakyVisitRepository{VisitRepository: repository.NewVisitRepository(db)},
		workerRepo:  repository.NewWorkerRepository(db),
		clientRepo:  repository.NewClientRepository(db),
		catalogRepo: repository.NewCatalogRepository(db),
		ledgerRepo:  repository.NewLedgerRepository(db),
		paymentRepo: repository.NewPaymentRepository(db),
		userRepo:    repository.NewUserRepository(db),
		cache:       rediscache.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()})),
	}
	clock := func() time.Time { return f.now }
	log := logger.NewTestLogger(t)

	f.ledger = NewLedgerService(LedgerDeps{
		Services: f.serviceRepo,
		Visits:   f.visitRepo,
		Workers:  f.workerRepo,
		Clients:  f.clientRepo,
		Catalog:  f.catalogRepo,
		Ledger:   f.ledgerRepo,
		Cache:    f.cache,
		Guard:    f.cache,
		CacheTTL: time.Minute,
		GuardTTL: 30 * time.Second,
		Now:      clock,
		Log:      log,
	})
	f.finance = NewFinanceService(FinanceDeps{
		Ledger:            f.ledgerRepo,
		Payments:          f.paymentRepo,
		Services:          f.serviceRepo,
		Visits:            f.visitRepo,
		DefaultCommission: decimal.NewFromInt(25),
		Now:               clock,
		Log:               log,
	})
	return f
}

func (f *fixture) worker(t *testing.T, name, phone string, state models.ApprovalState) *models.Worker {
	t.Helper()
	w := &models.Worker{Name: name, Phone: phone, ApprovalState: string(state), Available: true}
	require.NoError(t, f.workerRepo.Create(context.Background(), w))
	return w
}

func (f *fixture) serviceType(t *testing.T, name string, active bool) *models.ServiceType {
	t.Helper()
	st := &models.ServiceType{Name: name, Icon: "🧹", BasePrice: decimal.NewFromInt(1500), Active: true}
	require.NoError(t, f.catalogRepo.Create(context.Background(), st))
	if !active {
		require.NoError(t, f.catalogRepo.SetActive(context.Background(), st.ID, false))
		st.Active = false
	}
	return st
}

// scenarioRequest is two weeks, three visits a week, four hours each, 3600 total.
func (f *fixture) scenarioRequest(t *testing.T) CreateServiceRequest {
	t.Helper()
	w := f.worker(t, "Ana", "809-555-1234", models.ApprovalActive)
	st := f.serviceType(t, "Limpieza general", true)
	return CreateServiceRequest{
		WorkerID:      w.ID,
		NewClient:     &ClientInput{Name: "Maria Perez", Phone: "809-555-0000", Address: "Calle 1"},
		ServiceTypeID: st.ID,
		Weeks:         2,
		VisitsPerWeek: 3,
		HoursPerVisit: 4,
		StartDate:     "2024-01-01",
		TotalPrice:    decimal.NewFromInt(3600),
		Notes:         "Bring supplies",
	}
}

func (f *fixture) createScenario(t *testing.T) *models.Service {
	t.Helper()
	svc, err := f.ledger.CreateService(context.Background(), f.scenarioRequest(t))
	require.NoError(t, err)
	require.Len(t, svc.Visits, 6)
	return svc
}

func (f *fixture) countIncome(t *testing.T) int {
	t.Helper()
	entries, err := f.ledgerRepo.ListIncome(context.Background(), repository.TimeRange{})
	require.NoError(t, err)
	return len(entries)
}

func uintString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
