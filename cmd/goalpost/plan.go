package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/goalpost/internal/cli"
	"github.com/Veraticus/goalpost/internal/common"
	"github.com/Veraticus/goalpost/internal/planning"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func planCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan monthly contributions",
		Long: `Check whether a monthly budget covers every active goal, build the
month-by-month contribution schedule, or project hypothetical budgets.

Without --budget the configured planning.monthly_budget is used.`,
	}

	cmd.AddCommand(feasibilityCmd())
	cmd.AddCommand(scheduleCmd())
	cmd.AddCommand(perGoalCmd())
	cmd.AddCommand(whatIfCmd())

	return cmd
}

func budgetFlag(raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	amount, err := parseAmount("--budget", raw)
	if err != nil {
		return nil, err
	}
	return &amount, nil
}

func explainNoBudget(err error) error {
	if errors.Is(err, planning.ErrNoBudget) {
		return common.NewUserError("no monthly budget: pass --budget, set planning.monthly_budget, or run 'goalpost plan per-goal'", err)
	}
	return err
}

func feasibilityCmd() *cobra.Command {
	var budget string

	cmd := &cobra.Command{
		Use:   "feasibility",
		Short: "Check a monthly budget against every active goal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			override, err := budgetFlag(budget)
			if err != nil {
				return err
			}

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.planner.Feasibility(ctx, override)
			if err != nil {
				return explainNoBudget(err)
			}

			used := override
			if used == nil {
				used = a.settings.Planning.MonthlyBudget
			}
			fmt.Print(cli.RenderFeasibility(result, *used))
			return nil
		},
	}

	cmd.Flags().StringVarP(&budget, "budget", "b", "", "monthly budget in the planning currency")
	return cmd
}

func scheduleCmd() *cobra.Command {
	var budget string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Build the month-by-month contribution schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			override, err := budgetFlag(budget)
			if err != nil {
				return err
			}

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			plan, err := a.planner.Schedule(ctx, override)
			if err != nil {
				return explainNoBudget(err)
			}

			fmt.Print(cli.RenderSchedule(plan))
			return nil
		},
	}

	cmd.Flags().StringVarP(&budget, "budget", "b", "", "monthly budget in the planning currency")
	return cmd
}

func perGoalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "per-goal",
		Short: "Show what each goal needs per month on its own",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			perGoal, err := a.planner.PerGoal(ctx)
			if err != nil {
				return err
			}

			fmt.Print(cli.RenderPerGoal(perGoal))
			return nil
		},
	}
}

func whatIfCmd() *cobra.Command {
	var (
		budget    string
		deadlines []string
		targets   []string
	)

	cmd := &cobra.Command{
		Use:   "what-if",
		Short: "Project goals under a hypothetical budget",
		Long: `Re-run feasibility and scheduling with a hypothetical budget and
optional per-goal overrides. Nothing is saved.

Example:
  goalpost plan what-if --budget 800 --deadline Vacation=2027-06-01 --target "New car"=12000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			amount, err := parseAmount("--budget", budget)
			if err != nil {
				return err
			}

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			overrides := make(map[uuid.UUID]planning.Override)
			for _, arg := range deadlines {
				id, raw, err := splitOverride(cmd, a, arg)
				if err != nil {
					return err
				}
				due, err := parseDate("--deadline", raw)
				if err != nil {
					return err
				}
				o := overrides[id]
				o.Deadline = &due
				overrides[id] = o
			}
			for _, arg := range targets {
				id, raw, err := splitOverride(cmd, a, arg)
				if err != nil {
					return err
				}
				target, err := parseAmount("--target", raw)
				if err != nil {
					return err
				}
				o := overrides[id]
				o.TargetAmount = &target
				overrides[id] = o
			}

			result, err := a.planner.WhatIf(ctx, amount, overrides)
			if err != nil {
				return err
			}

			fmt.Print(cli.RenderWhatIf(result))
			return nil
		},
	}

	cmd.Flags().StringVarP(&budget, "budget", "b", "", "hypothetical monthly budget")
	cmd.Flags().StringArrayVar(&deadlines, "deadline", nil, "override a deadline as <goal>=YYYY-MM-DD")
	cmd.Flags().StringArrayVar(&targets, "target", nil, "override a target as <goal>=<amount>")
	_ = cmd.MarkFlagRequired("budget")
	return cmd
}

func splitOverride(cmd *cobra.Command, a *app, arg string) (uuid.UUID, string, error) {
	ref, value, ok := strings.Cut(arg, "=")
	if !ok {
		return uuid.Nil, "", common.NewUserError(fmt.Sprintf("override %q must look like <goal>=<value>", arg), nil)
	}
	goal, err := a.findGoal(cmd.Context(), ref)
	if err != nil {
		return uuid.Nil, "", err
	}
	return goal.ID, value, nil
}
