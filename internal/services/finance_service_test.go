package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"homecare_manager/internal/apperrors"
	"homecare_manager/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPeriodRange(t *testing.T) {
	now := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

	week, err := PeriodWeek.Range(now)
	require.NoError(t, err)
	require.NotNil(t, week.From)
	assert.True(t, week.From.Equal(time.Date(2024, time.March, 8, 12, 0, 0, 0, time.UTC)))
	assert.Nil(t, week.Until)

	month, err := PeriodMonth.Range(now)
	require.NoError(t, err)
	assert.True(t, month.From.Equal(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, month.Until.Equal(time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)))

	all, err := PeriodAll.Range(now)
	require.NoError(t, err)
	assert.Nil(t, all.From)
	assert.Nil(t, all.Until)

	// Calendar months are UTC months whatever the caller's zone.
	santoDomingo := time.FixedZone("AST", -4*60*60)
	lateNight := time.Date(2024, time.March, 31, 22, 0, 0, 0, santoDomingo)
	utcMonth, err := PeriodMonth.Range(lateNight)
	require.NoError(t, err)
	assert.True(t, utcMonth.From.Equal(time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.UTC, utcMonth.From.Location())

	_, err = Period("year").Range(now)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRecordManualIncome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.finance.RecordManualIncome(ctx, ManualIncomeRequest{Description: " Holiday bonus ", Amount: dec("250.50"), Category: "bonus"})
	require.NoError(t, err)
	assert.Equal(t, string(models.IncomeManual), entry.Kind)
	assert.Equal(t, "Holiday bonus", entry.Description)
	assert.Nil(t, entry.VisitID)

	defaulted, err := f.finance.RecordManualIncome(ctx, ManualIncomeRequest{Description: "Tip", Amount: dec("10")})
	require.NoError(t, err)
	assert.Equal(t, string(models.CategoryOther), defaulted.Category)

	_, err = f.finance.RecordManualIncome(ctx, ManualIncomeRequest{Description: "x", Amount: dec("0")})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = f.finance.RecordManualIncome(ctx, ManualIncomeRequest{Description: "", Amount: dec("5")})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = f.finance.RecordManualIncome(ctx, ManualIncomeRequest{Description: "x", Amount: dec("5"), Category: "lottery"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	assert.Equal(t, 2, f.countIncome(t))
}

func TestRecordExpense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.finance.RecordExpense(ctx, ExpenseRequest{Description: "Bus fare", Amount: dec("120"), Type: "transport", WorkerName: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "transport", entry.Type)
	assert.Equal(t, "Ana", entry.WorkerName)

	_, err = f.finance.RecordExpense(ctx, ExpenseRequest{Description: "Refund", Amount: dec("-5")})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = f.finance.RecordExpense(ctx, ExpenseRequest{Description: "Rent", Amount: dec("5"), Type: "rent"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRegisterPayment_CompletedService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.createScenario(t)
	_, err := f.ledger.SetServiceState(ctx, svc.ID, string(models.ServiceCompleted))
	require.NoError(t, err)

	pct := dec("20")
	result, err := f.finance.RegisterPayment(ctx, RegisterPaymentRequest{ServiceID: svc.ID, TotalAmount: dec("3600"), CommissionPercent: &pct, Notes: "cash"})
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)

	p := result.Payment
	assert.True(t, dec("720").Equal(p.Earnings))
	assert.True(t, dec("2880").Equal(p.WorkerPayout))
	assert.True(t, p.TotalAmount.Equal(p.Earnings.Add(p.WorkerPayout)))
	assert.Equal(t, svc.WorkerID, p.WorkerID)
	assert.Equal(t, "Maria Perez", p.ClientName)
	assert.True(t, strings.HasPrefix(p.Reference, "PAY-"))

	mine, err := f.finance.ListPaymentsForWorker(ctx, svc.WorkerID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestRegisterPayment_DefaultCommissionAndRounding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.createScenario(t)

	result, err := f.finance.RegisterPayment(ctx, RegisterPaymentRequest{ServiceID: svc.ID, TotalAmount: dec("1000.33")})
	require.NoError(t, err)
	assert.True(t, dec("25").Equal(result.Payment.CommissionPercent))
	assert.True(t, dec("250.08").Equal(result.Payment.Earnings), result.Payment.Earnings.String())
	assert.True(t, dec("750.25").Equal(result.Payment.WorkerPayout), result.Payment.WorkerPayout.String())
}

func TestRegisterPayment_WarnsForUnfinishedService(t *testing.T) {
	f := newFixture(t)
	svc := f.createScenario(t)

	result, err := f.finance.RegisterPayment(context.Background(), RegisterPaymentRequest{ServiceID: svc.ID, TotalAmount: dec("3600")})
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, apperrors.WarnServiceNotCompleted, result.Warnings[0].Code)
	assert.NotZero(t, result.Payment.ID)
}

func TestRegisterPayment_Rejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.createScenario(t)

	over := dec("120")
	_, err := f.finance.RegisterPayment(ctx, RegisterPaymentRequest{ServiceID: svc.ID, TotalAmount: dec("100"), CommissionPercent: &over})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.finance.RegisterPayment(ctx, RegisterPaymentRequest{ServiceID: svc.ID, TotalAmount: dec("0")})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.finance.RegisterPayment(ctx, RegisterPaymentRequest{ServiceID: 999, TotalAmount: dec("100")})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSummarize_Periods(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	at := func(month time.Month, day, hour int) time.Time {
		return time.Date(2024, month, day, hour, 0, 0, 0, time.UTC)
	}
	income := []models.IncomeEntry{
		{Kind: string(models.IncomeManual), Description: "old", Amount: dec("100"), Category: "other", CreatedAt: at(time.February, 20, 9)},
		{Kind: string(models.IncomeManual), Description: "recent", Amount: dec("200"), Category: "bonus", CreatedAt: at(time.February, 25, 9)},
		{Kind: string(models.IncomeAutomatic), Description: "today", Amount: dec("400"), CreatedAt: at(time.March, 1, 8)},
	}
	for i := range income {
		require.NoError(t, f.ledgerRepo.CreateIncome(ctx, &income[i]))
	}
	expenses := []models.ExpenseEntry{
		{Type: "transport", Description: "bus", Amount: dec("50"), CreatedAt: at(time.February, 20, 9)},
		{Type: "materials", Description: "soap", Amount: dec("75"), CreatedAt: at(time.March, 1, 9)},
	}
	for i := range expenses {
		require.NoError(t, f.ledgerRepo.CreateExpense(ctx, &expenses[i]))
	}

	all, err := f.finance.Summarize(ctx, PeriodAll)
	require.NoError(t, err)
	assert.True(t, dec("700").Equal(all.TotalIncome))
	assert.True(t, dec("125").Equal(all.TotalExpense))
	assert.True(t, dec("575").Equal(all.NetProfit))
	assert.True(t, dec("300").Equal(all.IncomeByKind["manual"]))
	assert.True(t, dec("400").Equal(all.IncomeByKind["automatic"]))
	assert.Equal(t, 3, all.IncomeCount)

	week, err := f.finance.Summarize(ctx, PeriodWeek)
	require.NoError(t, err)
	assert.True(t, dec("600").Equal(week.TotalIncome))
	assert.True(t, dec("75").Equal(week.TotalExpense))

	month, err := f.finance.Summarize(ctx, PeriodMonth)
	require.NoError(t, err)
	assert.True(t, dec("400").Equal(month.TotalIncome))
	assert.True(t, dec("325").Equal(month.NetProfit))

	byDefault, err := f.finance.Summarize(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, PeriodAll, byDefault.Period)
	assert.True(t, all.TotalIncome.Equal(byDefault.TotalIncome))

	_, err = f.finance.Summarize(ctx, "decade")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSummarize_EmptyMonthOnFirstDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.finance.RecordManualIncome(ctx, ManualIncomeRequest{Description: "before", Amount: dec("90")})
	require.NoError(t, err)

	f.now = time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	sum, err := f.finance.Summarize(ctx, PeriodMonth)
	require.NoError(t, err)
	assert.True(t, sum.TotalIncome.IsZero())
	assert.True(t, sum.TotalExpense.IsZero())
	assert.True(t, sum.NetProfit.IsZero())
	assert.Zero(t, sum.IncomeCount)
	assert.Empty(t, sum.IncomeByKind)
}

func TestSummarize_OperationalCounters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.createScenario(t)
	for _, v := range svc.Visits[:2] {
		_, _, err := f.ledger.CompleteVisit(ctx, v.ID)
		require.NoError(t, err)
	}
	_, err := f.ledger.CancelVisit(ctx, svc.Visits[5].ID)
	require.NoError(t, err)

	sum, err := f.finance.Summarize(ctx, PeriodAll)
	require.NoError(t, err)
	assert.EqualValues(t, 1, sum.ActiveServices)
	assert.EqualValues(t, 2, sum.CompletedVisits)
	assert.EqualValues(t, 3, sum.PendingVisits)
	assert.Equal(t, 8.0, sum.CompletedHours)
	assert.True(t, dec("1200").Equal(sum.IncomeByKind["automatic"]))
}

func TestBackfillVisitIncome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.createScenario(t)

	// A completion whose income write never happened.
	completedAt := f.now
	ok, err := f.visitRepo.TransitionState(ctx, svc.Visits[0].ID, string(models.VisitPending), string(models.VisitCompleted), &completedAt)
	require.NoError(t, err)
	require.True(t, ok)
	_, _, err = f.ledger.CompleteVisit(ctx, svc.Visits[1].ID)
	require.NoError(t, err)

	booked, err := f.finance.BackfillVisitIncome(ctx)
	require.NoError(t, err)
	require.Len(t, booked, 1)
	assert.Equal(t, svc.Visits[0].ID, *booked[0].VisitID)
	assert.Equal(t, 2, f.countIncome(t))

	booked, err = f.finance.BackfillVisitIncome(ctx)
	require.NoError(t, err)
	assert.Empty(t, booked)
}
