// Package progress computes how far each goal is from its target.
package progress

import (
	"context"
	"math"
	"time"

	"github.com/Veraticus/goalpost/internal/ledger"
	"github.com/Veraticus/goalpost/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Precision is the number of decimal places kept by divisions.
const Precision = 8

// DaysPerMonth approximates a month when converting days to months.
const DaysPerMonth = 30

var hundred = decimal.NewFromInt(100)

// Funding supplies converted goal totals.
type Funding interface {
	FundGoals(ctx context.Context, goals []model.Goal) (map[uuid.UUID]ledger.GoalFunding, error)
}

// GoalProgress is the computed state of one goal at a point in time.
type GoalProgress struct {
	Goal            model.Goal
	CurrentTotal    decimal.Decimal
	Remaining       decimal.Decimal
	Ratio           decimal.Decimal
	Percent         decimal.Decimal
	DailyRequired   decimal.Decimal
	RequiredMonthly decimal.Decimal
	Rates           map[string]decimal.Decimal
	DaysRemaining   int
	MonthsRemaining int

	// Stale is set when an allocation was excluded for lack of a rate.
	Stale bool
}

// IsFunded reports whether nothing remains to be saved.
func (p GoalProgress) IsFunded() bool {
	return !p.Remaining.IsPositive()
}

// Calculator turns funding totals into GoalProgress.
type Calculator struct {
	funding Funding
	now     func() time.Time
}

// NewCalculator creates a calculator. A nil now uses time.Now.
func NewCalculator(funding Funding, now func() time.Time) *Calculator {
	if now == nil {
		now = time.Now
	}
	return &Calculator{funding: funding, now: now}
}

// Compute returns the progress of a single goal.
func (c *Calculator) Compute(ctx context.Context, goal model.Goal) (GoalProgress, error) {
	all, err := c.ComputeAll(ctx, []model.Goal{goal})
	if err != nil {
		return GoalProgress{}, err
	}
	return all[0], nil
}

// ComputeAll returns progress for each goal in input order.
func (c *Calculator) ComputeAll(ctx context.Context, goals []model.Goal) ([]GoalProgress, error) {
	funding, err := c.funding.FundGoals(ctx, goals)
	if err != nil {
		return nil, err
	}

	today := c.now()
	result := make([]GoalProgress, 0, len(goals))
	for _, goal := range goals {
		f := funding[goal.ID]
		p := Evaluate(goal, f.Total, today)
		p.Stale = f.Stale()
		p.Rates = f.Rates
		result = append(result, p)
	}
	return result, nil
}

// Evaluate computes progress from an already known current total.
func Evaluate(goal model.Goal, currentTotal decimal.Decimal, today time.Time) GoalProgress {
	days := DaysRemaining(goal.Deadline, today)
	months := MonthsRemaining(days)
	remaining := Remaining(goal.TargetAmount, currentTotal)
	ratio := Ratio(currentTotal, goal.TargetAmount)

	return GoalProgress{
		Goal:            goal,
		CurrentTotal:    currentTotal,
		Remaining:       remaining,
		Ratio:           ratio,
		Percent:         Percent(ratio),
		DaysRemaining:   days,
		MonthsRemaining: months,
		DailyRequired:   divCeil(remaining, max(1, days)),
		RequiredMonthly: divCeil(remaining, months),
	}
}

// Remaining is the amount still to save, floored at zero.
func Remaining(target, current decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, target.Sub(current))
}

// Ratio is current/target clamped below at zero. Over-funded goals keep
// values above one.
func Ratio(current, target decimal.Decimal) decimal.Decimal {
	if !target.IsPositive() {
		return decimal.Zero
	}
	return decimal.Max(decimal.Zero, current.DivRound(target, Precision))
}

// Percent converts a ratio to a display percentage between 0 and 100.
func Percent(ratio decimal.Decimal) decimal.Decimal {
	pct := ratio.Mul(hundred)
	return decimal.Min(hundred, decimal.Max(decimal.Zero, pct))
}

// DaysRemaining counts whole days from today until the deadline, floored
// at zero.
func DaysRemaining(deadline, today time.Time) int {
	return max(0, model.DaysBetween(today, deadline))
}

// MonthsRemaining converts days into months, rounding up, with a floor of
// one so overdue goals are due this period.
func MonthsRemaining(days int) int {
	return max(1, int(math.Ceil(float64(days)/DaysPerMonth)))
}

// RequiredMonthly is the monthly contribution that reaches target by the
// deadline. It rounds up so that paying it every month never leaves a
// rounding remainder past the deadline.
func RequiredMonthly(target, current decimal.Decimal, deadline, today time.Time) decimal.Decimal {
	months := MonthsRemaining(DaysRemaining(deadline, today))
	return divCeil(Remaining(target, current), months)
}

// divCeil divides amount into n equal parts at Precision, rounding up so
// n parts always cover amount.
func divCeil(amount decimal.Decimal, n int) decimal.Decimal {
	count := decimal.NewFromInt(int64(n))
	part := amount.DivRound(count, Precision)
	if part.Mul(count).LessThan(amount) {
		part = part.Add(decimal.New(1, -Precision))
	}
	return part
}
