package planning

import (
	"time"

	"github.com/Veraticus/goalpost/internal/progress"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Override replaces a goal's deadline or target for a projection.
type Override struct {
	Deadline     *time.Time
	TargetAmount *decimal.Decimal
}

// Projection is when a goal finishes under a hypothetical budget.
type Projection struct {
	Deadline       time.Time
	CompletionDate *time.Time
	GoalName       string
	GoalID         uuid.UUID
	// OnTime is set when the goal completes within its own number of
	// remaining months.
	OnTime bool
}

// WhatIfResult bundles the feasibility and schedule of a hypothetical
// budget.
type WhatIfResult struct {
	Feasibility FeasibilityResult
	Plan        Plan
	Projections []Projection
}

// WhatIf re-runs feasibility and scheduling with overrides applied. The
// stored goals are not touched.
func WhatIf(req ScheduleRequest, overrides map[uuid.UUID]Override) WhatIfResult {
	goals := make([]GoalState, len(req.Goals))
	for i, g := range req.Goals {
		if o, ok := overrides[g.Goal.ID]; ok {
			if o.Deadline != nil {
				g.Goal.Deadline = *o.Deadline
			}
			if o.TargetAmount != nil {
				g.Goal.TargetAmount = *o.TargetAmount
			}
		}
		goals[i] = g
	}
	req.Goals = goals

	result := WhatIfResult{
		Feasibility: AnalyzeFeasibility(FeasibilityRequest{
			Today:    req.Today,
			Budget:   req.Budget,
			Currency: req.Currency,
			Goals:    goals,
		}),
		Plan: BuildSchedule(req),
	}

	for _, g := range Prioritize(goals) {
		if g.Rate == nil {
			continue
		}
		p := Projection{
			GoalID:   g.Goal.ID,
			GoalName: g.Goal.Name,
			Deadline: g.Goal.Deadline,
		}
		if date, ok := result.Plan.Completions[g.Goal.ID]; ok {
			p.CompletionDate = &date
			months := progress.MonthsRemaining(progress.DaysRemaining(g.Goal.Deadline, req.Today))
			p.OnTime = result.Plan.CompletedIn[g.Goal.ID] <= months
		}
		result.Projections = append(result.Projections, p)
	}

	return result
}
