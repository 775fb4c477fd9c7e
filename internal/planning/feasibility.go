package planning

import (
	"math"
	"time"

	"github.com/Veraticus/goalpost/internal/model"
	"github.com/Veraticus/goalpost/internal/progress"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// criticalShare is the fraction of the minimum above which a shortfall is
// critical.
var criticalShare = decimal.NewFromFloat(0.25)

// FeasibilityRequest is the input to AnalyzeFeasibility.
type FeasibilityRequest struct {
	Today    time.Time
	Budget   decimal.Decimal
	Currency string
	Goals    []GoalState
}

// requirement is one goal's monthly need measured in the budget currency.
type requirement struct {
	state    GoalState
	required decimal.Decimal
	share    decimal.Decimal
	months   int
}

// AnalyzeFeasibility decides whether a fixed monthly budget funds every goal
// by its deadline. When it does not, each goal's fair share is what the
// scheduler's priority order leaves for it in one period, and every goal
// whose requirement exceeds that share gets a shortfall and remediations.
func AnalyzeFeasibility(req FeasibilityRequest) FeasibilityResult {
	result := FeasibilityResult{
		Currency:        req.Currency,
		MinimumRequired: decimal.Zero,
		TotalShortfall:  decimal.Zero,
		StatusLevel:     StatusAchievable,
	}

	reqs := requirements(req.Goals, req.Today, &result.SkippedGoals)
	for _, r := range reqs {
		result.MinimumRequired = result.MinimumRequired.Add(r.required)
	}

	budgetLeft := decimal.Max(decimal.Zero, req.Budget)
	for i := range reqs {
		reqs[i].share = decimal.Min(reqs[i].required, budgetLeft)
		budgetLeft = budgetLeft.Sub(reqs[i].share)
	}

	result.IsFeasible = req.Budget.GreaterThanOrEqual(result.MinimumRequired.Sub(FeasibilityTolerance))
	if result.IsFeasible {
		return result
	}

	for _, r := range reqs {
		gap := r.required.Sub(r.share)
		if gap.LessThanOrEqual(Epsilon) {
			continue
		}
		result.TotalShortfall = result.TotalShortfall.Add(gap)
		result.InfeasibleGoals = append(result.InfeasibleGoals, InfeasibleGoal{
			GoalID:          r.state.Goal.ID,
			GoalName:        r.state.Goal.Name,
			Currency:        r.state.Goal.Currency,
			RequiredMonthly: r.state.fromBudget(r.required),
			FairShare:       r.state.fromBudget(r.share),
			Shortfall:       r.state.fromBudget(gap),
		})
	}

	result.StatusLevel = statusLevel(result.TotalShortfall, result.MinimumRequired)
	result.Suggestions = suggest(reqs, result.MinimumRequired, req.Currency, req.Today)
	return result
}

// requirements computes each rated goal's monthly need in priority order.
// Goals without a rate are appended to skipped.
func requirements(goals []GoalState, today time.Time, skipped *[]uuid.UUID) []requirement {
	var reqs []requirement
	for _, g := range Prioritize(goals) {
		if g.Rate == nil {
			*skipped = append(*skipped, g.Goal.ID)
			continue
		}
		months := progress.MonthsRemaining(progress.DaysRemaining(g.Goal.Deadline, today))
		monthly := progress.RequiredMonthly(g.Goal.TargetAmount, g.CurrentTotal, g.Goal.Deadline, today)
		reqs = append(reqs, requirement{
			state:    g,
			required: g.toBudget(monthly),
			months:   months,
		})
	}
	return reqs
}

func statusLevel(shortfall, minimum decimal.Decimal) StatusLevel {
	if !shortfall.IsPositive() {
		return StatusAchievable
	}
	if shortfall.GreaterThan(minimum.Mul(criticalShare)) {
		return StatusCritical
	}
	return StatusAtRisk
}

func suggest(reqs []requirement, minimum decimal.Decimal, currency string, today time.Time) []Suggestion {
	suggestions := []Suggestion{
		IncreaseBudget{To: minimum.RoundCeil(2), Currency: currency},
	}

	for _, r := range reqs {
		if r.required.Sub(r.share).LessThanOrEqual(Epsilon) {
			continue
		}
		g := r.state.Goal
		if !r.share.IsPositive() {
			suggestions = append(suggestions, EditGoal{GoalID: g.ID, GoalName: g.Name})
			continue
		}

		remaining := r.state.toBudget(progress.Remaining(g.TargetAmount, r.state.CurrentTotal))
		months := remaining.Div(r.share).Ceil().IntPart()
		if months > int64(math.MaxInt32) {
			suggestions = append(suggestions, EditGoal{GoalID: g.ID, GoalName: g.Name})
			continue
		}
		suggestions = append(suggestions, ExtendDeadline{
			GoalID:   g.ID,
			GoalName: g.Name,
			NewDate:  model.StartOfDay(today).AddDate(0, 0, int(months)*progress.DaysPerMonth),
		})

		fair := r.state.fromBudget(r.share)
		newTarget := r.state.CurrentTotal.Add(fair.Mul(decimal.NewFromInt(int64(r.months)))).RoundFloor(2)
		if newTarget.IsPositive() && newTarget.LessThan(g.TargetAmount) {
			suggestions = append(suggestions, ReduceTarget{
				GoalID:    g.ID,
				GoalName:  g.Name,
				Currency:  g.Currency,
				NewAmount: newTarget,
			})
		}
	}

	return suggestions
}
