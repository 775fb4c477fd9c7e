package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/goalpost/internal/cli"
	"github.com/Veraticus/goalpost/internal/model"
	"github.com/Veraticus/goalpost/internal/service"
	"github.com/spf13/cobra"
)

func goalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goals",
		Short: "Manage savings goals",
		Long:  `Add, list, archive, complete, and delete savings goals.`,
	}

	cmd.AddCommand(addGoalCmd())
	cmd.AddCommand(listGoalsCmd())
	cmd.AddCommand(setGoalStatusCmd("archive", "Archive a goal so it stops taking part in planning", model.GoalStatusArchived))
	cmd.AddCommand(setGoalStatusCmd("complete", "Mark a goal as completed", model.GoalStatusCompleted))
	cmd.AddCommand(setGoalStatusCmd("reactivate", "Return an archived or completed goal to planning", model.GoalStatusActive))
	cmd.AddCommand(deleteGoalCmd())

	return cmd
}

func addGoalCmd() *cobra.Command {
	var (
		currency    string
		target      string
		deadline    string
		start       string
		emoji       string
		description string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			amount, err := parseAmount("--target", target)
			if err != nil {
				return err
			}
			due, err := parseDate("--deadline", deadline)
			if err != nil {
				return err
			}

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if currency == "" {
				currency = a.settings.Planning.Currency
			}

			goal := model.NewGoal(strings.TrimSpace(args[0]), strings.ToUpper(currency), amount, due)
			if start != "" {
				startDate, err := parseDate("--start", start)
				if err != nil {
					return err
				}
				goal.StartDate = model.StartOfDay(startDate)
			}
			goal.Emoji = emoji
			goal.Description = description

			if err := a.store.CreateGoal(ctx, goal); err != nil {
				return fmt.Errorf("failed to create goal: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created goal %q (%s)", goal.Name, shortID(goal.ID))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&currency, "currency", "c", "", "goal currency (default: planning currency)")
	cmd.Flags().StringVarP(&target, "target", "t", "", "target amount")
	cmd.Flags().StringVarP(&deadline, "deadline", "d", "", "deadline (YYYY-MM-DD)")
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD, default: today)")
	cmd.Flags().StringVar(&emoji, "emoji", "", "emoji shown next to the goal")
	cmd.Flags().StringVar(&description, "description", "", "free-form description")
	_ = cmd.MarkFlagRequired("target")
	_ = cmd.MarkFlagRequired("deadline")

	return cmd
}

func listGoalsCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List goals with their progress",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			filter := service.ActiveGoals
			if all {
				filter = service.GoalFilter{}
			}
			goals, err := a.store.ListGoals(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to list goals: %w", err)
			}

			progress, err := a.calc.ComputeAll(ctx, goals)
			if err != nil {
				return err
			}

			fmt.Print(cli.RenderGoals(progress))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "include archived and completed goals")
	return cmd
}

func setGoalStatusCmd(use, short string, status model.GoalStatus) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <goal>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			goal, err := a.findGoal(ctx, args[0])
			if err != nil {
				return err
			}
			if goal.Status == status {
				fmt.Println(cli.FormatInfo(fmt.Sprintf("Goal %q is already %s", goal.Name, status)))
				return nil
			}

			goal.Status = status
			if err := a.store.UpdateGoal(ctx, goal); err != nil {
				return fmt.Errorf("failed to update goal: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Goal %q is now %s", goal.Name, status)))
			return nil
		},
	}
}

func deleteGoalCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <goal>",
		Short: "Delete a goal and its allocations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			goal, err := a.findGoal(ctx, args[0])
			if err != nil {
				return err
			}

			if !yes {
				reader := cli.NewNonBlockingReader(os.Stdin)
				ok, err := reader.Confirm(ctx, os.Stdout, fmt.Sprintf("Delete goal %q and all its allocations?", goal.Name))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println(cli.FormatInfo("Canceled"))
					return nil
				}
			}

			if err := a.store.DeleteGoal(ctx, goal.ID); err != nil {
				return fmt.Errorf("failed to delete goal: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted goal %q", goal.Name)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func formatDay(t time.Time) string {
	return t.Format(dateLayout)
}
