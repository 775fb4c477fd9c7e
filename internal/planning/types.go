// Package planning builds monthly contribution schedules and decides
// whether a budget can fund every active goal by its deadline.
//
// The analyzer and scheduler are pure functions over GoalState values whose
// funding and exchange rates were resolved beforehand by the Planner.
package planning

import (
	"time"

	"github.com/Veraticus/goalpost/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Epsilon is the amount below which a goal's remaining balance counts as
// settled.
var Epsilon = decimal.New(1, -7)

// FeasibilityTolerance is how far below the minimum a budget may fall and
// still be feasible.
var FeasibilityTolerance = Epsilon

// DefaultHorizonMonths caps schedules when no horizon is given.
const DefaultHorizonMonths = 120

// GoalState is a goal with its funding resolved.
type GoalState struct {
	Goal model.Goal

	// CurrentTotal is in the goal's currency.
	CurrentTotal decimal.Decimal

	// Rate converts the goal's currency into the budget currency. Nil
	// means no rate was available.
	Rate *decimal.Decimal
}

// toBudget converts a goal-currency amount into the budget currency.
func (s GoalState) toBudget(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(*s.Rate)
}

// fromBudget converts a budget-currency amount into the goal currency.
func (s GoalState) fromBudget(amount decimal.Decimal) decimal.Decimal {
	if s.Rate.IsZero() {
		return decimal.Zero
	}
	return amount.DivRound(*s.Rate, 8)
}

// StatusLevel grades how far a budget is from funding every goal.
type StatusLevel string

// Status levels.
const (
	StatusAchievable StatusLevel = "achievable"
	StatusAtRisk     StatusLevel = "atRisk"
	StatusCritical   StatusLevel = "critical"
)

// GoalContribution is the part of one payment assigned to a goal. Amounts
// are in the budget currency.
type GoalContribution struct {
	GoalName       string
	Amount         decimal.Decimal
	RunningTotal   decimal.Decimal
	GoalID         uuid.UUID
	IsGoalComplete bool
}

// ScheduledPayment is one monthly payment split across goals.
type ScheduledPayment struct {
	PaymentDate   time.Time
	Contributions []GoalContribution
	PaymentNumber int
}

// Total sums the payment's contributions.
func (p ScheduledPayment) Total() decimal.Decimal {
	total := decimal.Zero
	for _, c := range p.Contributions {
		total = total.Add(c.Amount)
	}
	return total
}

// ScheduledGoalBlock is a contiguous run of payments funding one goal.
type ScheduledGoalBlock struct {
	StartDate          time.Time
	EndDate            time.Time
	GoalName           string
	TotalAmount        decimal.Decimal
	GoalID             uuid.UUID
	StartPaymentNumber int
	EndPaymentNumber   int
	PaymentCount       int
	IsComplete         bool
}

// Plan is a computed contribution schedule.
type Plan struct {
	Remaining     map[uuid.UUID]decimal.Decimal
	Currency      string
	MonthlyBudget decimal.Decimal
	Payments      []ScheduledPayment
	Blocks        []ScheduledGoalBlock
	SkippedGoals  []uuid.UUID

	// Completions maps each goal to the date its last contribution lands.
	// Goals already funded complete on the plan's start date.
	Completions map[uuid.UUID]time.Time

	// CompletedIn maps each completed goal to its final payment number,
	// zero for goals funded before the first payment.
	CompletedIn map[uuid.UUID]int

	// HorizonReached is set when goals were still unfunded when the
	// schedule ended, at the horizon or for lack of budget.
	HorizonReached bool
}

// HasWarnings reports whether some goal could not be scheduled.
func (p Plan) HasWarnings() bool {
	return len(p.SkippedGoals) > 0 || p.HorizonReached
}

// TotalPaid sums every contribution in the plan.
func (p Plan) TotalPaid() decimal.Decimal {
	total := decimal.Zero
	for _, payment := range p.Payments {
		total = total.Add(payment.Total())
	}
	return total
}

// InfeasibleGoal describes a goal the budget cannot fund in time. Amounts
// are monthly, in the goal's currency.
type InfeasibleGoal struct {
	GoalName        string
	Currency        string
	RequiredMonthly decimal.Decimal
	FairShare       decimal.Decimal
	Shortfall       decimal.Decimal
	GoalID          uuid.UUID
}

// FeasibilityResult is the outcome of checking a budget against the goals.
type FeasibilityResult struct {
	Currency        string
	StatusLevel     StatusLevel
	MinimumRequired decimal.Decimal
	TotalShortfall  decimal.Decimal // budget currency
	InfeasibleGoals []InfeasibleGoal
	Suggestions     []Suggestion
	SkippedGoals    []uuid.UUID
	IsFeasible      bool
}

// Stale reports whether goals without rates were left out.
func (r FeasibilityResult) Stale() bool {
	return len(r.SkippedGoals) > 0
}
