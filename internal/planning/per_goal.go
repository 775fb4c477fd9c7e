package planning

import (
	"time"

	"github.com/Veraticus/goalpost/internal/progress"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GoalRequirement is one goal's own monthly minimum, used when no single
// budget is configured. Amounts are in the goal's currency.
type GoalRequirement struct {
	Deadline        time.Time
	GoalName        string
	Currency        string
	Status          StatusLevel
	Remaining       decimal.Decimal
	RequiredMonthly decimal.Decimal
	GoalID          uuid.UUID
	MonthsRemaining int
}

// PerGoalPlan is per-goal mode's view: every goal's own minimum and what
// they add up to in the planning currency.
type PerGoalPlan struct {
	Currency string
	Goals    []GoalRequirement
	Total    decimal.Decimal
	// SkippedGoals had no rate and are missing from Total.
	SkippedGoals []uuid.UUID
}

// PerGoalRequirements lists each goal's monthly minimum in priority order.
// Every goal is feasible against its own budget; Status only warns about
// overdue goals and goals due within a month.
func PerGoalRequirements(goals []GoalState, today time.Time) []GoalRequirement {
	ordered := Prioritize(goals)
	result := make([]GoalRequirement, 0, len(ordered))

	for _, g := range ordered {
		p := progress.Evaluate(g.Goal, g.CurrentTotal, today)

		status := StatusAchievable
		switch {
		case p.IsFunded():
		case p.DaysRemaining == 0:
			status = StatusCritical
		case p.DaysRemaining < progress.DaysPerMonth:
			status = StatusAtRisk
		}

		result = append(result, GoalRequirement{
			GoalID:          g.Goal.ID,
			GoalName:        g.Goal.Name,
			Currency:        g.Goal.Currency,
			Deadline:        g.Goal.Deadline,
			Remaining:       p.Remaining,
			RequiredMonthly: p.RequiredMonthly,
			MonthsRemaining: p.MonthsRemaining,
			Status:          status,
		})
	}

	return result
}

// TotalRequired sums the requirements converted into the budget currency.
// Goals without a rate are left out and reported.
func TotalRequired(goals []GoalState, today time.Time) (decimal.Decimal, []uuid.UUID) {
	var skipped []uuid.UUID
	total := decimal.Zero
	for _, r := range requirements(goals, today, &skipped) {
		total = total.Add(r.required)
	}
	return total, skipped
}
