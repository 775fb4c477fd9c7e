package planning

import (
	"time"

	"github.com/Veraticus/goalpost/internal/model"
	"github.com/Veraticus/goalpost/internal/progress"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ScheduleRequest is the input to BuildSchedule.
type ScheduleRequest struct {
	Today         time.Time
	Budget        decimal.Decimal
	Currency      string
	Goals         []GoalState
	PaymentDay    int
	HorizonMonths int
}

// BuildSchedule distributes the monthly budget across goals as a
// deadline-first waterfall. Each period funds goals strictly in priority
// order; whatever a goal does not need flows to the next one in the same
// period. Goals without a rate are skipped and reported on the plan.
func BuildSchedule(req ScheduleRequest) Plan {
	horizon := req.HorizonMonths
	if horizon <= 0 {
		horizon = DefaultHorizonMonths
	}
	paymentDay := req.PaymentDay
	if paymentDay <= 0 {
		paymentDay = 1
	}
	start := model.StartOfDay(req.Today)

	plan := Plan{
		Currency:      req.Currency,
		MonthlyBudget: req.Budget,
		Completions:   make(map[uuid.UUID]time.Time),
		CompletedIn:   make(map[uuid.UUID]int),
		Remaining:     make(map[uuid.UUID]decimal.Decimal),
	}

	var order []GoalState
	for _, g := range Prioritize(req.Goals) {
		if g.Rate == nil {
			plan.SkippedGoals = append(plan.SkippedGoals, g.Goal.ID)
			continue
		}
		remaining := g.toBudget(progress.Remaining(g.Goal.TargetAmount, g.CurrentTotal))
		if remaining.LessThanOrEqual(Epsilon) {
			plan.Completions[g.Goal.ID] = start
			plan.CompletedIn[g.Goal.ID] = 0
			plan.Remaining[g.Goal.ID] = decimal.Zero
			continue
		}
		plan.Remaining[g.Goal.ID] = remaining
		order = append(order, g)
	}

	paid := make(map[uuid.UUID]decimal.Decimal, len(order))
	first := NextPaymentDate(start, paymentDay)
	outstanding := len(order)

	for n := 0; n < horizon && outstanding > 0 && req.Budget.IsPositive(); n++ {
		payment := ScheduledPayment{
			PaymentNumber: n + 1,
			PaymentDate:   AddPaymentMonths(first, n, paymentDay),
		}
		budgetLeft := req.Budget

		for _, g := range order {
			if budgetLeft.LessThanOrEqual(decimal.Zero) {
				break
			}
			id := g.Goal.ID
			remaining := plan.Remaining[id]
			if remaining.LessThanOrEqual(Epsilon) {
				continue
			}

			amount := decimal.Min(remaining, budgetLeft)
			remaining = remaining.Sub(amount)
			budgetLeft = budgetLeft.Sub(amount)
			paid[id] = paid[id].Add(amount)

			complete := remaining.LessThanOrEqual(Epsilon)
			if complete {
				remaining = decimal.Zero
				plan.Completions[id] = payment.PaymentDate
				plan.CompletedIn[id] = payment.PaymentNumber
				outstanding--
			}
			plan.Remaining[id] = remaining

			payment.Contributions = append(payment.Contributions, GoalContribution{
				GoalID:         id,
				GoalName:       g.Goal.Name,
				Amount:         amount,
				RunningTotal:   paid[id],
				IsGoalComplete: complete,
			})
		}

		plan.Payments = append(plan.Payments, payment)
	}

	plan.HorizonReached = outstanding > 0
	plan.Blocks = BuildBlocks(plan.Payments)
	return plan
}
