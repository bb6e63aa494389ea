// Package scheduler expands a recurring service configuration into dated visits.
package scheduler

import (
	"time"

	"homecare_manager/internal/apperrors"

	"github.com/shopspring/decimal"
)

const (
	daysInWeek       = 7
	MaxVisitsPerWeek = 7
	// MaxWeeks bounds an engagement to two years of visits.
	MaxWeeks = 104
)

// Config describes a recurring engagement.
type Config struct {
	Weeks         int
	VisitsPerWeek int
	HoursPerVisit float64
	StartDate     time.Time
	TotalPrice    decimal.Decimal
}

// VisitDraft is one generated occurrence, not yet persisted.
type VisitDraft struct {
	Sequence      int
	ScheduledDate time.Time
	Hours         float64
	Price         decimal.Decimal
}

// Plan is the full expansion of a Config.
type Plan struct {
	TotalVisits   int
	TotalHours    float64
	PerVisitPrice decimal.Decimal
	DaySpacing    int
	Visits        []VisitDraft
}

// Validate rejects configurations that cannot be expanded.
func (c Config) Validate() error {
	if c.Weeks < 1 || c.Weeks > MaxWeeks {
		return apperrors.Validation("weeks", "must be between 1 and %d, got %d", MaxWeeks, c.Weeks)
	}
	if c.VisitsPerWeek < 1 || c.VisitsPerWeek > MaxVisitsPerWeek {
		return apperrors.Validation("visits_per_week", "must be between 1 and %d, got %d", MaxVisitsPerWeek, c.VisitsPerWeek)
	}
	if c.HoursPerVisit <= 0 {
		return apperrors.Validation("hours_per_visit", "must be greater than 0")
	}
	if c.StartDate.IsZero() {
		return apperrors.Validation("start_date", "is required")
	}
	if !c.TotalPrice.IsPositive() {
		return apperrors.Validation("total_price", "is required and must be greater than 0")
	}
	return nil
}

// TotalVisits is weeks × visits per week.
func (c Config) TotalVisits() int {
	return c.Weeks * c.VisitsPerWeek
}

// TotalHours is total visits × hours per visit.
func (c Config) TotalHours() float64 {
	return float64(c.TotalVisits()) * c.HoursPerVisit
}

// PerVisitPrice rounds total price / total visits to a whole currency unit.
// The rounding remainder is not redistributed, so the visit prices may sum to
// up to totalVisits-1 units away from the total price.
func PerVisitPrice(total decimal.Decimal, totalVisits int) decimal.Decimal {
	if totalVisits <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(totalVisits))).Round(0)
}

// DaySpacing is floor(7 / visitsPerWeek). When visitsPerWeek does not divide 7 the
// visits of a week bunch toward its start.
func DaySpacing(visitsPerWeek int) int {
	if visitsPerWeek <= 0 {
		return 0
	}
	return daysInWeek / visitsPerWeek
}

// Expand validates cfg and produces the ordered visit plan.
func Expand(cfg Config) (*Plan, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	total := cfg.TotalVisits()
	spacing := DaySpacing(cfg.VisitsPerWeek)
	price := PerVisitPrice(cfg.TotalPrice, total)

	plan := &Plan{
		TotalVisits:   total,
		TotalHours:    cfg.TotalHours(),
		PerVisitPrice: price,
		DaySpacing:    spacing,
		Visits:        make([]VisitDraft, 0, total),
	}

	seq := 0
	for week := 0; week < cfg.Weeks; week++ {
		for day := 0; day < cfg.VisitsPerWeek; day++ {
			seq++
			plan.Visits = append(plan.Visits, VisitDraft{
				Sequence:      seq,
				ScheduledDate: cfg.StartDate.AddDate(0, 0, week*daysInWeek+day*spacing),
				Hours:         cfg.HoursPerVisit,
				Price:         price,
			})
		}
	}
	return plan, nil
}

// GenerateVisits returns just the drafts of Expand.
func GenerateVisits(cfg Config) ([]VisitDraft, error) {
	plan, err := Expand(cfg)
	if err != nil {
		return nil, err
	}
	return plan.Visits, nil
}

// Sum adds up the prices of drafts.
func Sum(drafts []VisitDraft) decimal.Decimal {
	sum := decimal.Zero
	for _, d := range drafts {
		sum = sum.Add(d.Price)
	}
	return sum
}
