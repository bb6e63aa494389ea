package services

import (
	"context"
	"strings"
	"time"

	"homecare_manager/internal/apperrors"
	"homecare_manager/internal/logger"
	"homecare_manager/internal/metrics"
	"homecare_manager/internal/models"
	"homecare_manager/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

var hundred = decimal.NewFromInt(100)

// Range returns the created_at window of the period as seen at now. Week is the
// rolling last seven days; month is the calendar month containing now.
func (p Period) Range(now time.Time) (repository.TimeRange, error) {
	switch p {
	case PeriodWeek:
		from := now.AddDate(0, 0, -7)
		return repository.TimeRange{From: &from}, nil
	case PeriodMonth:
		now = now.UTC()
		from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		until := from.AddDate(0, 1, 0)
		return repository.TimeRange{From: &from, Until: &until}, nil
	case PeriodAll, "":
		return repository.TimeRange{}, nil
	}
	return repository.TimeRange{}, apperrors.Validation("period", "must be one of week, month, all, got %q", string(p))
}

type ManualIncomeRequest struct {
	Description string          `json:"description" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
}

type ExpenseRequest struct {
	Description string          `json:"description" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	WorkerName  string          `json:"worker_name"`
}

type RegisterPaymentRequest struct {
	ServiceID         uint             `json:"service_id" binding:"required"`
	TotalAmount       decimal.Decimal  `json:"total_amount"`
	CommissionPercent *decimal.Decimal `json:"commission_percent"`
	Notes             string           `json:"notes"`
}

type PaymentResult struct {
	Payment  *models.PaymentRecord `json:"payment"`
	Warnings []apperrors.Warning   `json:"warnings,omitempty"`
}

type Summary struct {
	Period        Period                     `json:"period"`
	From          *time.Time                 `json:"from,omitempty"`
	Until         *time.Time                 `json:"until,omitempty"`
	TotalIncome   decimal.Decimal            `json:"total_income"`
	TotalExpense  decimal.Decimal            `json:"total_expense"`
	NetProfit     decimal.Decimal            `json:"net_profit"`
	IncomeByKind  map[string]decimal.Decimal `json:"income_by_kind"`
	ExpenseByType map[string]decimal.Decimal `json:"expense_by_type"`
	IncomeCount   int                        `json:"income_count"`
	ExpenseCount  int                        `json:"expense_count"`

	PaymentCount       int             `json:"payment_count"`
	PaymentsTotal      decimal.Decimal `json:"payments_total"`
	TotalEarnings      decimal.Decimal `json:"total_earnings"`
	TotalWorkerPayouts decimal.Decimal `json:"total_worker_payouts"`

	ActiveServices  int64   `json:"active_services"`
	CompletedVisits int64   `json:"completed_visits"`
	PendingVisits   int64   `json:"pending_visits"`
	CompletedHours  float64 `json:"completed_hours"`
}

type FinanceService interface {
	RecordManualIncome(ctx context.Context, req ManualIncomeRequest) (*models.IncomeEntry, error)
	RecordExpense(ctx context.Context, req ExpenseRequest) (*models.ExpenseEntry, error)
	RegisterPayment(ctx context.Context, req RegisterPaymentRequest) (*PaymentResult, error)
	Summarize(ctx context.Context, period Period) (*Summary, error)
	// BackfillVisitIncome books income for completed visits that have none,
	// finishing completions whose income write was interrupted.
	BackfillVisitIncome(ctx context.Context) ([]models.IncomeEntry, error)
	ListIncome(ctx context.Context, period Period) ([]models.IncomeEntry, error)
	ListExpenses(ctx context.Context, period Period) ([]models.ExpenseEntry, error)
	ListPayments(ctx context.Context, period Period) ([]models.PaymentRecord, error)
	ListPaymentsForWorker(ctx context.Context, workerID uint) ([]models.PaymentRecord, error)
}

type FinanceDeps struct {
	Ledger            repository.LedgerRepository
	Payments          repository.PaymentRepository
	Services          repository.ServiceRepository
	Visits            repository.VisitRepository
	DefaultCommission decimal.Decimal
	Now               func() time.Time
	Log               logger.Logger
}

type financeService struct {
	ledgerRepo        repository.LedgerRepository
	paymentRepo       repository.PaymentRepository
	serviceRepo       repository.ServiceRepository
	visitRepo         repository.VisitRepository
	defaultCommission decimal.Decimal
	now               func() time.Time
	income            *incomeBooker
	log               logger.Logger
}

func NewFinanceService(deps FinanceDeps) FinanceService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Log == nil {
		deps.Log = logger.NewNoOpLogger()
	}
	return &financeService{
		ledgerRepo:        deps.Ledger,
		paymentRepo:       deps.Payments,
		serviceRepo:       deps.Services,
		visitRepo:         deps.Visits,
		defaultCommission: deps.DefaultCommission,
		now:               deps.Now,
		income:            &incomeBooker{ledgerRepo: deps.Ledger, now: deps.Now, log: deps.Log},
		log:               deps.Log,
	}
}

func requirePositive(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.Validation(field, "must be greater than 0")
	}
	return nil
}

func (s *financeService) RecordManualIncome(ctx context.Context, req ManualIncomeRequest) (*models.IncomeEntry, error) {
	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		return nil, apperrors.Validation("description", "is required")
	}
	if err := requirePositive("amount", req.Amount); err != nil {
		return nil, err
	}
	if req.Category == "" {
		req.Category = string(models.CategoryOther)
	}
	if !models.IncomeCategory(req.Category).Valid() {
		return nil, apperrors.Validation("category", "unknown income category %q", req.Category)
	}

	entry := &models.IncomeEntry{
		Kind:        string(models.IncomeManual),
		Description: req.Description,
		Amount:      req.Amount,
		Category:    req.Category,
		CreatedAt:   s.now(),
	}
	if err := s.ledgerRepo.CreateIncome(ctx, entry); err != nil {
		return nil, err
	}
	metrics.IncomeRecorded.WithLabelValues(entry.Kind).Inc()
	return entry, nil
}

func (s *financeService) RecordExpense(ctx context.Context, req ExpenseRequest) (*models.ExpenseEntry, error) {
	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		return nil, apperrors.Validation("description", "is required")
	}
	if err := requirePositive("amount", req.Amount); err != nil {
		return nil, err
	}
	if req.Type == "" {
		req.Type = string(models.ExpenseOther)
	}
	if !models.ExpenseType(req.Type).Valid() {
		return nil, apperrors.Validation("type", "unknown expense type %q", req.Type)
	}

	entry := &models.ExpenseEntry{
		Type:        req.Type,
		Description: req.Description,
		Amount:      req.Amount,
		WorkerName:  strings.TrimSpace(req.WorkerName),
		CreatedAt:   s.now(),
	}
	if err := s.ledgerRepo.CreateExpense(ctx, entry); err != nil {
		return nil, err
	}
	metrics.ExpensesRecorded.WithLabelValues(entry.Type).Inc()
	return entry, nil
}

// RegisterPayment settles a service. A service that is not marked completed is
// still accepted; the result carries a warning instead.
func (s *financeService) RegisterPayment(ctx context.Context, req RegisterPaymentRequest) (*PaymentResult, error) {
	if err := requirePositive("total_amount", req.TotalAmount); err != nil {
		return nil, err
	}
	pct := s.defaultCommission
	if req.CommissionPercent != nil {
		pct = *req.CommissionPercent
	}
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return nil, apperrors.Validation("commission_percent", "must be between 0 and 100, got %s", pct.String())
	}

	service, err := s.serviceRepo.GetByID(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}

	var warnings []apperrors.Warning
	if service.State != string(models.ServiceCompleted) {
		w := apperrors.Warning{
			Code:    apperrors.WarnServiceNotCompleted,
			Message: "service " + service.ClientName + " is " + service.State + ", not completed",
		}
		warnings = append(warnings, w)
		s.log.Warn("payment registered for unfinished service", map[string]interface{}{
			"service_id": service.ID,
			"state":      service.State,
		})
	}

	earnings := req.TotalAmount.Mul(pct).Div(hundred).Round(2)
	payment := &models.PaymentRecord{
		Reference:         "PAY-" + strings.ToUpper(uuid.NewString()),
		ServiceID:         service.ID,
		WorkerID:          service.WorkerID,
		WorkerName:        service.WorkerName,
		ClientName:        service.ClientName,
		ServiceTypeName:   service.ServiceTypeName,
		TotalAmount:       req.TotalAmount,
		CommissionPercent: pct,
		Earnings:          earnings,
		WorkerPayout:      req.TotalAmount.Sub(earnings),
		Notes:             req.Notes,
		CreatedAt:         s.now(),
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, err
	}

	metrics.PaymentsRegistered.Inc()
	s.log.Info("payment registered", map[string]interface{}{
		"payment_id": payment.ID,
		"reference":  payment.Reference,
		"service_id": service.ID,
		"earnings":   payment.Earnings.String(),
	})
	return &PaymentResult{Payment: payment, Warnings: warnings}, nil
}

func (s *financeService) Summarize(ctx context.Context, period Period) (*Summary, error) {
	if period == "" {
		period = PeriodAll
	}
	window, err := period.Range(s.now())
	if err != nil {
		return nil, err
	}

	income, err := s.ledgerRepo.ListIncome(ctx, window)
	if err != nil {
		return nil, err
	}
	expenses, err := s.ledgerRepo.ListExpenses(ctx, window)
	if err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.List(ctx, window)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Period:             period,
		From:               window.From,
		Until:              window.Until,
		TotalIncome:        decimal.Zero,
		TotalExpense:       decimal.Zero,
		IncomeByKind:       map[string]decimal.Decimal{},
		ExpenseByType:      map[string]decimal.Decimal{},
		IncomeCount:        len(income),
		ExpenseCount:       len(expenses),
		PaymentCount:       len(payments),
		PaymentsTotal:      decimal.Zero,
		TotalEarnings:      decimal.Zero,
		TotalWorkerPayouts: decimal.Zero,
	}
	for _, e := range income {
		summary.TotalIncome = summary.TotalIncome.Add(e.Amount)
		summary.IncomeByKind[e.Kind] = summary.IncomeByKind[e.Kind].Add(e.Amount)
	}
	for _, e := range expenses {
		summary.TotalExpense = summary.TotalExpense.Add(e.Amount)
		summary.ExpenseByType[e.Type] = summary.ExpenseByType[e.Type].Add(e.Amount)
	}
	for _, p := range payments {
		summary.PaymentsTotal = summary.PaymentsTotal.Add(p.TotalAmount)
		summary.TotalEarnings = summary.TotalEarnings.Add(p.Earnings)
		summary.TotalWorkerPayouts = summary.TotalWorkerPayouts.Add(p.WorkerPayout)
	}
	summary.NetProfit = summary.TotalIncome.Sub(summary.TotalExpense)

	if summary.ActiveServices, err = s.serviceRepo.CountByState(ctx, string(models.ServiceActive)); err != nil {
		return nil, err
	}
	stats, err := s.visitRepo.Stats(ctx)
	if err != nil {
		return nil, err
	}
	summary.CompletedVisits = stats.Completed
	summary.PendingVisits = stats.Pending
	summary.CompletedHours = stats.CompletedHours

	return summary, nil
}

func (s *financeService) BackfillVisitIncome(ctx context.Context) ([]models.IncomeEntry, error) {
	visits, err := s.visitRepo.ListCompletedWithoutIncome(ctx)
	if err != nil {
		return nil, err
	}

	booked := make([]models.IncomeEntry, 0, len(visits))
	for i := range visits {
		entry, created, err := s.income.book(ctx, &visits[i])
		if err != nil {
			return booked, err
		}
		if created {
			booked = append(booked, *entry)
		}
	}
	if len(booked) > 0 {
		s.log.Info("visit income backfilled", map[string]interface{}{"entries": len(booked)})
	}
	return booked, nil
}

func (s *financeService) ListIncome(ctx context.Context, period Period) ([]models.IncomeEntry, error) {
	window, err := period.Range(s.now())
	if err != nil {
		return nil, err
	}
	return s.ledgerRepo.ListIncome(ctx, window)
}

func (s *financeService) ListExpenses(ctx context.Context, period Period) ([]models.ExpenseEntry, error) {
	window, err := period.Range(s.now())
	if err != nil {
		return nil, err
	}
	return s.ledgerRepo.ListExpenses(ctx, window)
}

func (s *financeService) ListPayments(ctx context.Context, period Period) ([]models.PaymentRecord, error) {
	window, err := period.Range(s.now())
	if err != nil {
		return nil, err
	}
	return s.paymentRepo.List(ctx, window)
}

func (s *financeService) ListPaymentsForWorker(ctx context.Context, workerID uint) ([]models.PaymentRecord, error) {
	return s.paymentRepo.ListByWorker(ctx, workerID)
}
