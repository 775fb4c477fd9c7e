package planning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/goalpost/internal/common"
	"github.com/Veraticus/goalpost/internal/config"
	"github.com/Veraticus/goalpost/internal/progress"
	"github.com/Veraticus/goalpost/internal/rates"
	"github.com/Veraticus/goalpost/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNoBudget is returned by fixed-budget operations in per-goal mode.
var ErrNoBudget = fmt.Errorf("%w: planning.monthly_budget is not set", common.ErrMissingConfig)

// Planner loads active goals, resolves their funding and rates, and feeds
// them to the analyzer and scheduler.
type Planner struct {
	goals    service.GoalStore
	calc     *progress.Calculator
	rates    service.RateProvider
	now      func() time.Time
	settings config.PlanningSettings
}

// NewPlanner creates a planner. A nil now uses time.Now.
func NewPlanner(goals service.GoalStore, calc *progress.Calculator, provider service.RateProvider, settings config.PlanningSettings, now func() time.Time) *Planner {
	if now == nil {
		now = time.Now
	}
	return &Planner{
		goals:    goals,
		calc:     calc,
		rates:    provider,
		settings: settings,
		now:      now,
	}
}

// States returns every active goal with its funding in the goal currency
// and its rate into the planning currency.
func (p *Planner) States(ctx context.Context) ([]GoalState, error) {
	goals, err := p.goals.ListGoals(ctx, service.ActiveGoals)
	if err != nil {
		return nil, fmt.Errorf("failed to load goals: %w", err)
	}

	progresses, err := p.calc.ComputeAll(ctx, goals)
	if err != nil {
		return nil, fmt.Errorf("failed to compute progress: %w", err)
	}

	resolved := make(map[string]*decimal.Decimal)
	states := make([]GoalState, 0, len(progresses))
	for _, gp := range progresses {
		rate, ok := resolved[gp.Goal.Currency]
		if !ok {
			rate, err = p.resolveRate(ctx, gp.Goal.Currency)
			if err != nil {
				return nil, err
			}
			resolved[gp.Goal.Currency] = rate
		}
		states = append(states, GoalState{
			Goal:         gp.Goal,
			CurrentTotal: gp.CurrentTotal,
			Rate:         rate,
		})
	}
	return states, nil
}

func (p *Planner) resolveRate(ctx context.Context, currency string) (*decimal.Decimal, error) {
	if rates.SameCurrency(currency, p.settings.Currency) {
		one := decimal.NewFromInt(1)
		return &one, nil
	}
	rate, err := p.rates.Rate(ctx, currency, p.settings.Currency)
	if err != nil {
		if errors.Is(err, common.ErrRateUnavailable) {
			slog.Warn("planning without rate", "from", currency, "to", p.settings.Currency, "error", err)
			return nil, nil
		}
		return nil, err
	}
	return &rate, nil
}

func (p *Planner) budget(override *decimal.Decimal) (decimal.Decimal, error) {
	if override != nil {
		if override.IsNegative() {
			return decimal.Zero, common.NewValidationError("budget", "cannot be negative")
		}
		return *override, nil
	}
	if !p.settings.FixedBudget() {
		return decimal.Zero, ErrNoBudget
	}
	return *p.settings.MonthlyBudget, nil
}

func (p *Planner) scheduleRequest(goals []GoalState, budget decimal.Decimal) ScheduleRequest {
	return ScheduleRequest{
		Today:         p.now(),
		Budget:        budget,
		Currency:      p.settings.Currency,
		Goals:         goals,
		PaymentDay:    p.settings.PaymentDay,
		HorizonMonths: p.settings.HorizonMonths,
	}
}

// Feasibility checks a budget against the active goals. A nil budget uses
// the configured one.
func (p *Planner) Feasibility(ctx context.Context, budget *decimal.Decimal) (FeasibilityResult, error) {
	b, err := p.budget(budget)
	if err != nil {
		return FeasibilityResult{}, err
	}
	goals, err := p.States(ctx)
	if err != nil {
		return FeasibilityResult{}, err
	}

	result := AnalyzeFeasibility(FeasibilityRequest{
		Today:    p.now(),
		Budget:   b,
		Currency: p.settings.Currency,
		Goals:    goals,
	})
	slog.Debug("analyzed feasibility",
		"budget", b.String(),
		"minimum", result.MinimumRequired.String(),
		"feasible", result.IsFeasible,
		"status", result.StatusLevel,
	)
	return result, nil
}

// Schedule builds the contribution plan for a budget. A nil budget uses
// the configured one.
func (p *Planner) Schedule(ctx context.Context, budget *decimal.Decimal) (Plan, error) {
	b, err := p.budget(budget)
	if err != nil {
		return Plan{}, err
	}
	goals, err := p.States(ctx)
	if err != nil {
		return Plan{}, err
	}

	plan := BuildSchedule(p.scheduleRequest(goals, b))
	if plan.HasWarnings() {
		slog.Warn("plan is incomplete",
			"skipped_goals", len(plan.SkippedGoals),
			"horizon_reached", plan.HorizonReached,
		)
	}
	return plan, nil
}

// PerGoal returns each active goal's own monthly minimum and their sum in
// the planning currency.
func (p *Planner) PerGoal(ctx context.Context) (PerGoalPlan, error) {
	goals, err := p.States(ctx)
	if err != nil {
		return PerGoalPlan{}, err
	}
	total, skipped := TotalRequired(goals, p.now())
	return PerGoalPlan{
		Currency:     p.settings.Currency,
		Goals:        PerGoalRequirements(goals, p.now()),
		Total:        total,
		SkippedGoals: skipped,
	}, nil
}

// WhatIf projects the active goals under a hypothetical budget and
// per-goal overrides.
func (p *Planner) WhatIf(ctx context.Context, budget decimal.Decimal, overrides map[uuid.UUID]Override) (WhatIfResult, error) {
	b, err := p.budget(&budget)
	if err != nil {
		return WhatIfResult{}, err
	}
	goals, err := p.States(ctx)
	if err != nil {
		return WhatIfResult{}, err
	}
	for id, o := range overrides {
		if o.TargetAmount != nil && !o.TargetAmount.IsPositive() {
			return WhatIfResult{}, common.NewValidationError("target", fmt.Sprintf("override for goal %s must be positive", id))
		}
	}
	return WhatIf(p.scheduleRequest(goals, b), overrides), nil
}
