package services

import (
	"context"
	"sort"
	"strings"

	"homecare_manager/internal/apperrors"
	"homecare_manager/internal/export"
	"homecare_manager/internal/repository"
)

const (
	SheetServices = "services"
	SheetVisits   = "visits"
	SheetIncome   = "income"
	SheetExpenses = "expenses"
	SheetPayments = "payments"
	SheetSummary  = "summary"
	SheetWorkers  = "workers"
	SheetClients  = "clients"
)

// SheetNames lists every exportable view in workbook order.
var SheetNames = []string{
	SheetServices, SheetVisits, SheetIncome, SheetExpenses,
	SheetPayments, SheetSummary, SheetWorkers, SheetClients,
}

type ExportService interface {
	Sheet(ctx context.Context, name string, period Period) (*export.Sheet, error)
	All(ctx context.Context, period Period) ([]*export.Sheet, error)
}

type exportService struct {
	ledger  LedgerService
	finance FinanceService
	workers WorkerService
	clients ClientService
}

func NewExportService(ledger LedgerService, finance FinanceService, workers WorkerService, clients ClientService) ExportService {
	return &exportService{ledger: ledger, finance: finance, workers: workers, clients: clients}
}

func (s *exportService) Sheet(ctx context.Context, name string, period Period) (*export.Sheet, error) {
	switch strings.ToLower(name) {
	case SheetServices:
		return s.services(ctx)
	case SheetVisits:
		return s.visits(ctx)
	case SheetIncome:
		return s.income(ctx, period)
	case SheetExpenses:
		return s.expenses(ctx, period)
	case SheetPayments:
		return s.payments(ctx, period)
	case SheetSummary:
		return s.summary(ctx, period)
	case SheetWorkers:
		return s.workerSheet(ctx)
	case SheetClients:
		return s.clientSheet(ctx)
	}
	return nil, apperrors.NotFound("sheet", name)
}

func (s *exportService) All(ctx context.Context, period Period) ([]*export.Sheet, error) {
	sheets := make([]*export.Sheet, 0, len(SheetNames))
	for _, name := range SheetNames {
		sheet, err := s.Sheet(ctx, name, period)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

func (s *exportService) services(ctx context.Context) (*export.Sheet, error) {
	services, err := s.ledger.ListServices(ctx, repository.ServiceFilter{})
	if err != nil {
		return nil, err
	}
	sheet := export.NewSheet("Services",
		"id", "worker", "client", "client_phone", "service_type", "start_date",
		"weeks", "visits_per_week", "hours_per_visit", "total_visits", "total_hours",
		"total_price", "per_visit_price", "state", "completed", "progress_percent")
	for _, svc := range services {
		progress, err := s.ledger.Progress(ctx, svc.ID)
		if err != nil {
			return nil, err
		}
		sheet.AddRow(svc.ID, svc.WorkerName, svc.ClientName, svc.ClientPhone, svc.ServiceTypeName, svc.StartDate,
			svc.Weeks, svc.VisitsPerWeek, svc.HoursPerVisit, svc.TotalVisits, svc.TotalHours,
			svc.TotalPrice.InexactFloat64(), svc.PerVisitPrice.InexactFloat64(), svc.State,
			progress.Completed, progress.Percent)
	}
	return sheet, nil
}

func (s *exportService) visits(ctx context.Context) (*export.Sheet, error) {
	visits, err := s.ledger.ListAllVisits(ctx)
	if err != nil {
		return nil, err
	}
	sheet := export.NewSheet("Visits",
		"id", "service_id", "sequence", "total_visits", "worker", "client", "service_type",
		"scheduled_date", "hours", "price", "state", "paid", "completed_at")
	for _, v := range visits {
		sheet.AddRow(v.ID, v.ServiceID, v.Sequence, v.TotalVisits, v.WorkerName, v.ClientName, v.ServiceTypeName,
			v.ScheduledDate, v.Hours, v.Price.InexactFloat64(), v.State, v.Paid, v.CompletedAt)
	}
	return sheet, nil
}

func (s *exportService) income(ctx context.Context, period Period) (*export.Sheet, error) {
	entries, err := s.finance.ListIncome(ctx, period)
	if err != nil {
		return nil, err
	}
	sheet := export.NewSheet("Income", "id", "date", "kind", "category", "description", "amount", "service_id", "visit_id")
	for _, e := range entries {
		var serviceID, visitID interface{}
		if e.ServiceID != nil {
			serviceID = *e.ServiceID
		}
		if e.VisitID != nil {
			visitID = *e.VisitID
		}
		sheet.AddRow(e.ID, e.CreatedAt, e.Kind, e.Category, e.Description, e.Amount.InexactFloat64(), serviceID, visitID)
	}
	return sheet, nil
}

func (s *exportService) expenses(ctx context.Context, period Period) (*export.Sheet, error) {
	entries, err := s.finance.ListExpenses(ctx, period)
	if err != nil {
		return nil, err
	}
	sheet := export.NewSheet("Expenses", "id", "date", "type", "description", "amount", "worker")
	for _, e := range entries {
		sheet.AddRow(e.ID, e.CreatedAt, e.Type, e.Description, e.Amount.InexactFloat64(), e.WorkerName)
	}
	return sheet, nil
}

func (s *exportService) payments(ctx context.Context, period Period) (*export.Sheet, error) {
	payments, err := s.finance.ListPayments(ctx, period)
	if err != nil {
		return nil, err
	}
	sheet := export.NewSheet("Payments",
		"id", "reference", "date", "service_id", "worker", "client", "service_type",
		"total_amount", "commission_percent", "earnings", "worker_payout", "notes")
	for _, p := range payments {
		sheet.AddRow(p.ID, p.Reference, p.CreatedAt, p.ServiceID, p.WorkerName, p.ClientName, p.ServiceTypeName,
			p.TotalAmount.InexactFloat64(), p.CommissionPercent.InexactFloat64(), p.Earnings.InexactFloat64(),
			p.WorkerPayout.InexactFloat64(), p.Notes)
	}
	return sheet, nil
}

func (s *exportService) summary(ctx context.Context, period Period) (*export.Sheet, error) {
	sum, err := s.finance.Summarize(ctx, period)
	if err != nil {
		return nil, err
	}
	sheet := export.NewSheet("Summary", "metric", "value")
	sheet.AddRow("period", string(sum.Period))
	sheet.AddRow("total_income", sum.TotalIncome.InexactFloat64())
	sheet.AddRow("total_expense", sum.TotalExpense.InexactFloat64())
	sheet.AddRow("net_profit", sum.NetProfit.InexactFloat64())
	for _, kind := range sortedKeys(sum.IncomeByKind) {
		sheet.AddRow("income_"+kind, sum.IncomeByKind[kind].InexactFloat64())
	}
	for _, typ := range sortedKeys(sum.ExpenseByType) {
		sheet.AddRow("expense_"+typ, sum.ExpenseByType[typ].InexactFloat64())
	}
	sheet.AddRow("payments_total", sum.PaymentsTotal.InexactFloat64())
	sheet.AddRow("total_earnings", sum.TotalEarnings.InexactFloat64())
	sheet.AddRow("total_worker_payouts", sum.TotalWorkerPayouts.InexactFloat64())
	sheet.AddRow("active_services", sum.ActiveServices)
	sheet.AddRow("completed_visits", sum.CompletedVisits)
	sheet.AddRow("pending_visits", sum.PendingVisits)
	sheet.AddRow("completed_hours", sum.CompletedHours)
	return sheet, nil
}

func (s *exportService) workerSheet(ctx context.Context) (*export.Sheet, error) {
	workers, err := s.workers.List(ctx, "")
	if err != nil {
		return nil, err
	}
	sheet := export.NewSheet("Workers", "id", "name", "phone", "email", "sector", "experience", "transport", "available", "approval_state")
	for _, w := range workers {
		sheet.AddRow(w.ID, w.Name, w.Phone, w.Email, w.Sector, w.Experience, w.Transport, w.Available, w.ApprovalState)
	}
	return sheet, nil
}

func (s *exportService) clientSheet(ctx context.Context) (*export.Sheet, error) {
	clients, err := s.clients.List(ctx, "")
	if err != nil {
		return nil, err
	}
	sheet := export.NewSheet("Clients", "id", "name", "phone", "address", "created_at")
	for _, c := range clients {
		sheet.AddRow(c.ID, c.Name, c.Phone, c.Address, c.CreatedAt)
	}
	return sheet, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
