package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"homecare_manager/internal/apperrors"
	"homecare_manager/internal/models"
	"homecare_manager/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateService_ExpandsVisits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	svc := f.createScenario(t)

	assert.Equal(t, 6, svc.TotalVisits)
	assert.Equal(t, 24.0, svc.TotalHours)
	assert.True(t, decimal.NewFromInt(600).Equal(svc.PerVisitPrice))
	assert.Equal(t, string(models.ServiceActive), svc.State)
	assert.Equal(t, "Ana", svc.WorkerName)
	assert.Equal(t, "Maria Perez", svc.ClientName)
	assert.Equal(t, "Limpieza general", svc.ServiceTypeName)

	wantDays := []int{1, 3, 5, 8, 10, 12}
	visits, err := f.ledger.ListVisits(ctx, svc.ID)
	require.NoError(t, err)
	require.Len(t, visits, 6)
	for i, v := range visits {
		assert.Equal(t, i+1, v.Sequence)
		assert.Equal(t, 6, v.TotalVisits)
		assert.Equal(t, string(models.VisitPending), v.State)
		assert.True(t, decimal.NewFromInt(600).Equal(v.Price))
		want := time.Date(2024, time.January, wantDays[i], 8, 0, 0, 0, time.UTC)
		assert.True(t, want.Equal(v.ScheduledDate), "visit %d scheduled %s, want %s", v.Sequence, v.ScheduledDate, want)
	}

	clients, err := f.clientRepo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, clients[0].ID, svc.ClientID)
}

func TestCreateService_ReusesExistingClient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.scenarioRequest(t)
	first, err := f.ledger.CreateService(ctx, req)
	require.NoError(t, err)

	second, err := f.ledger.CreateService(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ClientID, second.ClientID)

	clients, err := f.clientRepo.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, clients, 1)
}

func TestCreateService_RejectsWorkerThatIsNotActive(t *testing.T) {
	for _, state := range []models.ApprovalState{models.ApprovalPending, models.ApprovalBlocked} {
		t.Run(string(state), func(t *testing.T) {
			f := newFixture(t)
			req := f.scenarioRequest(t)
			w := f.worker(t, "Luisa", "809-555-9999", state)
			req.WorkerID = w.ID

			_, err := f.ledger.CreateService(context.Background(), req)
			assert.ErrorIs(t, err, apperrors.ErrPrecondition)

			services, err := f.serviceRepo.List(context.Background(), repository.ServiceFilter{})
			require.NoError(t, err)
			assert.Empty(t, services)
		})
	}
}

func TestCreateService_RejectsInactiveServiceType(t *testing.T) {
	f := newFixture(t)
	req := f.scenarioRequest(t)
	st := f.serviceType(t, "Planchado", false)
	req.ServiceTypeID = st.ID

	_, err := f.ledger.CreateService(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrPrecondition)
}

func TestCreateService_ValidatesBeforeWriting(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateServiceRequest)
	}{
		{"zero weeks", func(r *CreateServiceRequest) { r.Weeks = 0 }},
		{"too many visits per week", func(r *CreateServiceRequest) { r.VisitsPerWeek = 8 }},
		{"no hours", func(r *CreateServiceRequest) { r.HoursPerVisit = 0 }},
		{"no price", func(r *CreateServiceRequest) { r.TotalPrice = decimal.Zero }},
		{"bad start date", func(r *CreateServiceRequest) { r.StartDate = "01/02/2024" }},
		{"missing start date", func(r *CreateServiceRequest) { r.StartDate = "" }},
		{"blank client name", func(r *CreateServiceRequest) { r.NewClient = &ClientInput{Name: "  "} }},
		{"no client", func(r *CreateServiceRequest) { r.NewClient = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			req := f.scenarioRequest(t)
			tt.mutate(&req)

			_, err := f.ledger.CreateService(ctx, req)
			assert.ErrorIs(t, err, apperrors.ErrValidation)

			services, err := f.serviceRepo.List(ctx, repository.ServiceFilter{})
			require.NoError(t, err)
			assert.Empty(t, services)
			clients, err := f.clientRepo.List(ctx, "")
			require.NoError(t, err)
			assert.Empty(t, clients)
		})
	}
}

func TestCreateService_UnknownWorker(t *testing.T) {
	f := newFixture(t)
	req := f.scenarioRequest(t)
	req.WorkerID = 999

	_, err := f.ledger.CreateService(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCreateService_AcceptsRFC3339StartDate(t *testing.T) {
	f := newFixture(t)
	req := f.scenarioRequest(t)
	req.StartDate = "2024-01-01T14:30:00Z"

	svc, err := f.ledger.CreateService(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, time.Date(2024, time.January, 1, 14, 30, 0, 0, time.UTC).Equal(svc.Visits[0].ScheduledDate))
}

func TestCreateService_PartialWriteThenRepair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.scenarioRequest(t)
	f.visitRepo.failCreateAt = 4

	svc, err := f.ledger.CreateService(ctx, req)
	require.Error(t, err)
	require.NotNil(t, svc, "service is kept when visits are missing")

	var partial *apperrors.PartialWriteError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, "create_service", partial.Operation)
	assert.Equal(t, 3, partial.Written)
	assert.Equal(t, 6, partial.Total)
	assert.Equal(t, []string{"4", "5", "6"}, partial.Remaining)
	assert.ErrorIs(t, err, errInjected)
	assert.Equal(t, apperrors.CodePartialWrite, apperrors.CodeOf(err))

	progress, err := f.ledger.Progress(ctx, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, progress.Total)

	f.visitRepo.heal()
	repaired, inserted, err := f.ledger.RepairVisits(ctx, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)
	require.Len(t, repaired.Visits, 6)
	for i, v := range repaired.Visits {
		assert.Equal(t, i+1, v.Sequence)
	}

	progress, err = f.ledger.Progress(ctx, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, progress.Total, "repair invalidates the cached progress")

	_, inserted, err = f.ledger.RepairVisits(ctx, svc.ID)
	require.NoError(t, err)
	assert.Zero(t, inserted)
}

func TestCreateService_SubmissionKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.scenarioRequest(t)

	bad := req
	bad.Weeks = 0
	bad.SubmissionKey = "form-1"
	_, err := f.ledger.CreateService(ctx, bad)
	require.ErrorIs(t, err, apperrors.ErrValidation)

	// A rejected submission releases its key.
	req.SubmissionKey = "form-1"
	_, err = f.ledger.CreateService(ctx, req)
	require.NoError(t, err)

	_, err = f.ledger.CreateService(ctx, req)
	assert.ErrorIs(t, err, apperrors.ErrPrecondition)

	services, err := f.serviceRepo.List(ctx, repository.ServiceFilter{})
	require.NoError(t, err)
	assert.Len(t, services, 1)
}

func TestCompleteVisit_BooksIncomeOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.createScenario(t)
	visitID := svc.Visits[0].ID

	visit, entry, err := f.ledger.CompleteVisit(ctx, visitID)
	require.NoError(t, err)
	assert.Equal(t, string(models.VisitCompleted), visit.State)
	require.NotNil(t, visit.CompletedAt)
	assert.True(t, f.now.Equal(*visit.CompletedAt))

	require.NotNil(t, entry)
	assert.Equal(t, string(models.IncomeAutomatic), entry.Kind)
	assert.True(t, decimal.NewFromInt(600).Equal(entry.Amount))
	require.NotNil(t, entry.VisitID)
	assert.Equal(t, visitID, *entry.VisitID)
	require.NotNil(t, entry.ServiceID)
	assert.Equal(t, svc.ID, *entry.ServiceID)
	assert.Equal(t, "Visit #1 - Maria Perez (Limpieza general)", entry.Description)

	_, _, err = f.ledger.CompleteVisit(ctx, visitID)
	assert.ErrorIs(t, err, apperrors.ErrPrecondition)
	assert.Equal(t, 1, f.countIncome(t))
}

func TestCompleteVisit_ConcurrentCallersHaveOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.createScenario(t)
	visitID := svc.Visits[2].ID

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.ledger.CompleteVisit(ctx, visitID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, apperrors.ErrPrecondition):
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, rejected)
	assert.Equal(t, 1, f.countIncome(t))
}

func TestCompleteVisit_NotFound(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.ledger.CompleteVisit(context.Background(), 42)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCancelVisit_IsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.createScenario(t)
	visitID := svc.Visits[1].ID

	visit, err := f.ledger.CancelVisit(ctx, visitID)
	require.NoError(t, err)
	assert.Equal(t, string(models.VisitCancelled), visit.State)
	assert.True(t, visit.IsTerminal())

	_, _, err = f.ledger.CompleteVisit(ctx, visitID)
	assert.ErrorIs(t, err, apperrors.ErrPrecondition)
	_, err = f.ledger.CancelVisit(ctx, visitID)
	assert.ErrorIs(t, err, apperrors.ErrPrecondition)
	assert.Zero(t, f.countIncome(t))

	progress, err := f.ledger.Progress(ctx, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, progress.Completed)
	assert.Equal(t, 6, progress.Total)
}

func TestSetVisitPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.createScenario(t)

	visit, err := f.ledger.SetVisitPaid(ctx, svc.Visits[0].ID, true)
	require.NoError(t, err)
	assert.True(t, visit.Paid)
	assert.Equal(t, string(models.VisitPending), visit.State)

	_, err = f.ledger.SetVisitPaid(ctx, 999, true)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProgress_TracksCompletionsThroughCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.createScenario(t)

	progress, err := f.ledger.Progress(ctx, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, Progress{ServiceID: svc.ID, Completed: 0, Total: 6, Percent: 0}, progress)
	assert.True(t, f.mr.Exists("service_progress:"+uintString(svc.ID)))

	for _, v := range svc.Visits[:3] {
		_, _, err := f.ledger.CompleteVisit(ctx, v.ID)
		require.NoError(t, err)
	}
	progress, err = f.ledger.Progress(ctx, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, progress.Completed)
	assert.Equal(t, 50, progress.Percent)

	_, _, err = f.ledger.CompleteVisit(ctx, svc.Visits[3].ID)
	require.NoError(t, err)
	progress, err = f.ledger.Progress(ctx, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, 67, progress.Percent)
}

func TestProgress_UnknownService(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.Progress(context.Background(), 77)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestNewProgress(t *testing.T) {
	tests := []struct {
		completed, total, want int
	}{
		{0, 0, 0},
		{0, 6, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{1, 8, 13},
		{199, 200, 99},
		{6, 6, 100},
	}
	for _, tt := range tests {
		got := NewProgress(1, tt.completed, tt.total)
		assert.Equal(t, tt.want, got.Percent, "%d/%d", tt.completed, tt.total)
	}
}

func TestDeleteService_RemovesVisitsKeepsIncome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.createScenario(t)
	_, _, err := f.ledger.CompleteVisit(ctx, svc.Visits[0].ID)
	require.NoError(t, err)
	_, err = f.ledger.Progress(ctx, svc.ID)
	require.NoError(t, err)

	require.NoError(t, f.ledger.DeleteService(ctx, svc.ID))

	_, err = f.ledger.GetService(ctx, svc.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = f.ledger.Progress(ctx, svc.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	visits, err := f.visitRepo.ListByService(ctx, svc.ID)
	require.NoError(t, err)
	assert.Empty(t, visits)
	assert.False(t, f.mr.Exists("service_progress:"+uintString(svc.ID)))
	assert.Equal(t, 1, f.countIncome(t), "ledger entries outlive the service")
}

func TestDeleteService_KeepsServiceWhenVisitSurvives(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.createScenario(t)
	stuck := svc.Visits[4].ID
	f.visitRepo.failDelete = map[uint]bool{stuck: true}

	err := f.ledger.DeleteService(ctx, svc.ID)
	var partial *apperrors.PartialWriteError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, "delete_service", partial.Operation)
	assert.Equal(t, 5, partial.Written)
	assert.Equal(t, []string{uintString(stuck)}, partial.Remaining)

	got, err := f.ledger.GetService(ctx, svc.ID)
	require.NoError(t, err)
	require.Len(t, got.Visits, 1)
	assert.Equal(t, stuck, got.Visits[0].ID)

	f.visitRepo.heal()
	require.NoError(t, f.ledger.DeleteService(ctx, svc.ID))
	_, err = f.ledger.GetService(ctx, svc.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSetServiceState_AllowsAnyMove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.createScenario(t)

	for _, state := range []models.ServiceState{models.ServiceCompleted, models.ServiceActive, models.ServiceCancelled, models.ServiceActive} {
		got, err := f.ledger.SetServiceState(ctx, svc.ID, string(state))
		require.NoError(t, err)
		assert.Equal(t, string(state), got.State)
	}

	_, err := f.ledger.SetServiceState(ctx, svc.ID, "paused")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = f.ledger.SetServiceState(ctx, 999, string(models.ServiceCompleted))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListServicesAndWorkerVisits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.createScenario(t)
	_, _, err := f.ledger.CompleteVisit(ctx, svc.Visits[0].ID)
	require.NoError(t, err)

	services, err := f.ledger.ListServices(ctx, repository.ServiceFilter{WorkerID: svc.WorkerID})
	require.NoError(t, err)
	assert.Len(t, services, 1)

	pending, err := f.ledger.ListVisitsForWorker(ctx, svc.WorkerID, string(models.VisitPending))
	require.NoError(t, err)
	assert.Len(t, pending, 5)

	all, err := f.ledger.ListVisitsForWorker(ctx, svc.WorkerID, "")
	require.NoError(t, err)
	assert.Len(t, all, 6)

	_, err = f.ledger.ListVisits(ctx, 999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
