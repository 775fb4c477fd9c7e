package planning

import (
	"testing"
	"time"

	"github.com/Veraticus/goalpost/internal/model"
	"github.com/Veraticus/goalpost/internal/progress"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func rate(s string) *decimal.Decimal {
	r := d(s)
	return &r
}

func state(name, target string, deadlineDays int) GoalState {
	return GoalState{
		Goal: model.Goal{
			ID:           uuid.New(),
			Name:         name,
			Currency:     "USD",
			TargetAmount: d(target),
			StartDate:    today.AddDate(-1, 0, 0),
			Deadline:     model.StartOfDay(today).AddDate(0, 0, deadlineDays),
			Status:       model.GoalStatusActive,
		},
		CurrentTotal: decimal.Zero,
		Rate:         rate("1"),
	}
}

func request(budget string, goals ...GoalState) ScheduleRequest {
	return ScheduleRequest{
		Today:         today,
		Budget:        d(budget),
		Currency:      "USD",
		Goals:         goals,
		PaymentDay:    1,
		HorizonMonths: 120,
	}
}

func TestBuildSchedule_Waterfall(t *testing.T) {
	a := state("A", "1000", 60)
	b := state("B", "1200", 120)

	plan := BuildSchedule(request("800", b, a))

	require.Len(t, plan.Payments, 3)

	p1 := plan.Payments[0]
	assert.Equal(t, 1, p1.PaymentNumber)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), p1.PaymentDate)
	require.Len(t, p1.Contributions, 1)
	assert.Equal(t, a.Goal.ID, p1.Contributions[0].GoalID)
	assert.Equal(t, "800", p1.Contributions[0].Amount.String())
	assert.False(t, p1.Contributions[0].IsGoalComplete)

	p2 := plan.Payments[1]
	require.Len(t, p2.Contributions, 2)
	assert.Equal(t, "200", p2.Contributions[0].Amount.String())
	assert.Equal(t, "1000", p2.Contributions[0].RunningTotal.String())
	assert.True(t, p2.Contributions[0].IsGoalComplete)
	assert.Equal(t, b.Goal.ID, p2.Contributions[1].GoalID)
	assert.Equal(t, "600", p2.Contributions[1].Amount.String(), "leftover rolls to the next goal in the same period")

	p3 := plan.Payments[2]
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), p3.PaymentDate)
	require.Len(t, p3.Contributions, 1)
	assert.Equal(t, "1200", p3.Contributions[0].RunningTotal.String())
	assert.True(t, p3.Contributions[0].IsGoalComplete)

	assert.Equal(t, "2200", plan.TotalPaid().String())
	assert.False(t, plan.HasWarnings())
	assert.Equal(t, 2, plan.CompletedIn[a.Goal.ID])
	assert.Equal(t, 3, plan.CompletedIn[b.Goal.ID])
}

func TestBuildSchedule_NeverExceedsBudget(t *testing.T) {
	goals := []GoalState{
		state("A", "1234.56", 45),
		state("B", "99.99", 45),
		state("C", "5000", 400),
		state("D", "310.10", 200),
	}

	for _, budget := range []string{"1", "77.77", "500", "10000"} {
		t.Run(budget, func(t *testing.T) {
			plan := BuildSchedule(request(budget, goals...))
			for _, p := range plan.Payments {
				assert.True(t, p.Total().LessThanOrEqual(d(budget)),
					"payment %d total %s exceeds budget", p.PaymentNumber, p.Total())
			}
		})
	}
}

func TestBuildSchedule_FeasibleBudgetMeetsDeadlines(t *testing.T) {
	goals := []GoalState{
		state("Emergency", "3000", 90),
		state("Laptop", "1500", 45),
		state("Trip", "4000", 240),
		state("Car", "10000", 720),
	}

	feasibility := AnalyzeFeasibility(FeasibilityRequest{Today: today, Budget: d("0"), Currency: "USD", Goals: goals})

	for _, budget := range []decimal.Decimal{feasibility.MinimumRequired, feasibility.MinimumRequired.RoundCeil(2)} {
		t.Run(budget.String(), func(t *testing.T) {
			plan := BuildSchedule(request(budget.String(), goals...))
			require.False(t, plan.HasWarnings())

			for _, g := range goals {
				months := int(((model.DaysBetween(today, g.Goal.Deadline)) + 29) / 30)
				assert.LessOrEqual(t, plan.CompletedIn[g.Goal.ID], months, "%s finished late", g.Goal.Name)
				assert.True(t, plan.Remaining[g.Goal.ID].IsZero())
			}
		})
	}
}

func TestBuildSchedule_MinimumBudgetFinishesOnTime(t *testing.T) {
	targets := []string{"1000", "777.77", "12345.67", "50"}

	for _, target := range targets {
		for days := 300; days <= 3500; days += 73 {
			g := state("Goal", target, days)
			months := progress.MonthsRemaining(days)

			minimum := feasibility("0", g).MinimumRequired
			result := WhatIf(request(minimum.String(), g), nil)

			require.True(t, result.Feasibility.IsFeasible, "target=%s days=%d", target, days)
			require.Len(t, result.Projections, 1)
			assert.True(t, result.Projections[0].OnTime,
				"target=%s days=%d budget=%s finished in %d of %d payments",
				target, days, minimum, result.Plan.CompletedIn[g.Goal.ID], months)
			assert.LessOrEqual(t, len(result.Plan.Payments), months)

			below := minimum.Sub(d("0.009"))
			assert.False(t, feasibility(below.String(), g).IsFeasible, "target=%s days=%d budget=%s", target, days, below)
		}
	}
}

func TestBuildSchedule_ExactMinimumAcrossDeadlines(t *testing.T) {
	// 1000 over 28 months does not divide evenly at eight places.
	g := state("Trip", "1000", 811)

	result := feasibility("0", g)
	assert.Equal(t, "35.71428572", result.MinimumRequired.String())

	plan := BuildSchedule(request(result.MinimumRequired.String(), g))
	assert.Equal(t, 28, plan.CompletedIn[g.Goal.ID])
	assert.Len(t, plan.Payments, 28)
}

func TestBuildSchedule_DeadlinePriority(t *testing.T) {
	later := state("Later", "500", 300)
	sooner := state("Sooner", "900", 100)

	plan := BuildSchedule(request("400", later, sooner))

	require.Contains(t, plan.CompletedIn, sooner.Goal.ID)
	require.Contains(t, plan.CompletedIn, later.Goal.ID)
	assert.LessOrEqual(t, plan.CompletedIn[sooner.Goal.ID], plan.CompletedIn[later.Goal.ID])
	assert.Equal(t, sooner.Goal.ID, plan.Payments[0].Contributions[0].GoalID)
}

func TestBuildSchedule_Horizon(t *testing.T) {
	g := state("House", "1000", 3650)
	req := request("10", g)
	req.HorizonMonths = 12

	plan := BuildSchedule(req)

	assert.Len(t, plan.Payments, 12)
	assert.True(t, plan.HorizonReached)
	assert.Equal(t, "880", plan.Remaining[g.Goal.ID].String())
	assert.NotContains(t, plan.Completions, g.Goal.ID)
}

func TestBuildSchedule_ZeroBudget(t *testing.T) {
	g := state("House", "1000", 365)

	plan := BuildSchedule(request("0", g))

	assert.Empty(t, plan.Payments)
	assert.True(t, plan.HasWarnings())
}

func TestBuildSchedule_SkipsGoalsWithoutRate(t *testing.T) {
	usd := state("USD goal", "100", 60)
	btc := state("BTC goal", "1", 30)
	btc.Goal.Currency = "BTC"
	btc.Rate = nil

	plan := BuildSchedule(request("100", usd, btc))

	assert.Equal(t, []uuid.UUID{btc.Goal.ID}, plan.SkippedGoals)
	assert.True(t, plan.HasWarnings())
	require.Len(t, plan.Payments, 1)
	assert.Equal(t, usd.Goal.ID, plan.Payments[0].Contributions[0].GoalID)
}

func TestBuildSchedule_ConvertsGoalCurrency(t *testing.T) {
	eur := state("Paris", "100", 90)
	eur.Goal.Currency = "EUR"
	eur.Rate = rate("1.1")

	plan := BuildSchedule(request("50", eur))

	require.Len(t, plan.Payments, 3)
	assert.Equal(t, "10", plan.Payments[2].Contributions[0].Amount.String())
	assert.Equal(t, "110", plan.Payments[2].Contributions[0].RunningTotal.String())
}

func TestBuildSchedule_AlreadyFunded(t *testing.T) {
	done := state("Done", "500", 60)
	done.CurrentTotal = d("650")
	open := state("Open", "100", 90)

	plan := BuildSchedule(request("100", done, open))

	assert.Equal(t, 0, plan.CompletedIn[done.Goal.ID])
	assert.Equal(t, model.StartOfDay(today), plan.Completions[done.Goal.ID])
	require.Len(t, plan.Payments, 1)
	assert.Equal(t, open.Goal.ID, plan.Payments[0].Contributions[0].GoalID)
}

func TestBuildSchedule_OverdueGoalFirst(t *testing.T) {
	overdue := state("Overdue", "300", -10)
	upcoming := state("Upcoming", "100", 20)

	plan := BuildSchedule(request("350", upcoming, overdue))

	require.Len(t, plan.Payments, 2)
	first := plan.Payments[0].Contributions
	require.Len(t, first, 2)
	assert.Equal(t, overdue.Goal.ID, first[0].GoalID)
	assert.Equal(t, "300", first[0].Amount.String())
	assert.Equal(t, "50", first[1].Amount.String())
}

func TestBuildBlocks(t *testing.T) {
	a := state("A", "1000", 60)
	b := state("B", "1200", 120)

	plan := BuildSchedule(request("800", a, b))

	require.Len(t, plan.Blocks, 2)

	blockA := plan.Blocks[0]
	assert.Equal(t, a.Goal.ID, blockA.GoalID)
	assert.Equal(t, 1, blockA.StartPaymentNumber)
	assert.Equal(t, 2, blockA.EndPaymentNumber)
	assert.Equal(t, 2, blockA.PaymentCount)
	assert.Equal(t, "1000", blockA.TotalAmount.String())
	assert.True(t, blockA.IsComplete)

	blockB := plan.Blocks[1]
	assert.Equal(t, 2, blockB.StartPaymentNumber)
	assert.Equal(t, 3, blockB.EndPaymentNumber)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), blockB.StartDate)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), blockB.EndDate)
}

func TestBuildBlocks_SplitsOnGaps(t *testing.T) {
	id := uuid.New()
	payments := []ScheduledPayment{
		{PaymentNumber: 1, Contributions: []GoalContribution{{GoalID: id, Amount: d("10")}}},
		{PaymentNumber: 2},
		{PaymentNumber: 3, Contributions: []GoalContribution{{GoalID: id, Amount: d("5"), IsGoalComplete: true}}},
	}

	blocks := BuildBlocks(payments)

	require.Len(t, blocks, 2)
	assert.False(t, blocks[0].IsComplete)
	assert.Equal(t, 3, blocks[1].StartPaymentNumber)
	assert.True(t, blocks[1].IsComplete)
}

func TestPrioritize(t *testing.T) {
	early := state("early", "900", 30)
	smallTie := state("small", "100", 60)
	bigTie := state("big", "500", 60)
	idA := state("x", "500", 90)
	idB := state("y", "500", 90)
	if idB.Goal.ID.String() < idA.Goal.ID.String() {
		idA, idB = idB, idA
	}

	ordered := Prioritize([]GoalState{idB, bigTie, idA, smallTie, early})

	names := make([]uuid.UUID, len(ordered))
	for i, g := range ordered {
		names[i] = g.Goal.ID
	}
	assert.Equal(t, []uuid.UUID{early.Goal.ID, smallTie.Goal.ID, bigTie.Goal.ID, idA.Goal.ID, idB.Goal.ID}, names)
}

func TestPaymentDates(t *testing.T) {
	tests := []struct {
		name  string
		today time.Time
		day   int
		want  time.Time
	}{
		{name: "later this month", today: time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC), day: 15, want: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)},
		{name: "today", today: time.Date(2026, 1, 15, 23, 0, 0, 0, time.UTC), day: 15, want: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)},
		{name: "next month", today: time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC), day: 15, want: time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)},
		{name: "year rollover", today: time.Date(2026, 12, 20, 0, 0, 0, 0, time.UTC), day: 1, want: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "clamped", today: time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC), day: 31, want: time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextPaymentDate(tt.today, tt.day))
		})
	}

	first := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), AddPaymentMonths(first, 1, 31))
	assert.Equal(t, time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), AddPaymentMonths(first, 2, 31))
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), LastDayOfMonth(first.AddDate(0, 0, 5)))
}
