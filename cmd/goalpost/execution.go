package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/goalpost/internal/cli"
	"github.com/Veraticus/goalpost/internal/model"
	"github.com/spf13/cobra"
)

func executionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "execution",
		Aliases: []string{"exec"},
		Short:   "Track a month's contributions",
		Long: `Move a month through draft, executing and closed. Starting a month
snapshots every active goal's funded total; completing it freezes the
totals. Each step can be undone within execution.undo_grace_hours.

The month defaults to the current one (YYYY-MM).`,
	}

	cmd.AddCommand(executionStatusCmd())
	cmd.AddCommand(executionStepCmd("start", "Start tracking the month", func(ctx context.Context, a *app, month string) (*model.MonthlyExecutionRecord, error) {
		if _, err := a.tracker.EnsureRecord(ctx, month); err != nil {
			return nil, err
		}
		return a.tracker.StartTracking(ctx, month)
	}))
	cmd.AddCommand(executionStepCmd("complete", "Close the month and freeze its totals", func(ctx context.Context, a *app, month string) (*model.MonthlyExecutionRecord, error) {
		return a.tracker.MarkComplete(ctx, month)
	}))
	cmd.AddCommand(executionStepCmd("undo-start", "Return an executing month to draft", func(ctx context.Context, a *app, month string) (*model.MonthlyExecutionRecord, error) {
		return a.tracker.UndoStartTracking(ctx, month)
	}))
	cmd.AddCommand(executionStepCmd("undo-complete", "Reopen a closed month", func(ctx context.Context, a *app, month string) (*model.MonthlyExecutionRecord, error) {
		return a.tracker.UndoCompletion(ctx, month)
	}))

	return cmd
}

func monthArg(a *app, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return a.tracker.CurrentMonth()
}

func executionStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [month]",
		Short: "Show the month's state and each goal's change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			month := monthArg(a, args)
			if _, err := a.tracker.EnsureRecord(ctx, month); err != nil {
				return err
			}
			progress, err := a.tracker.Progress(ctx, month)
			if err != nil {
				return err
			}

			fmt.Print(cli.RenderMonth(progress, time.Now()))
			return nil
		},
	}
}

func executionStepCmd(use, short string, step func(context.Context, *app, string) (*model.MonthlyExecutionRecord, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [month]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			month := monthArg(a, args)
			record, err := step(ctx, a, month)
			if err != nil {
				return err
			}

			msg := fmt.Sprintf("%s is now %s", record.MonthLabel, record.Status)
			if record.CanUndoUntil != nil {
				msg += fmt.Sprintf(" (undo until %s)", record.CanUndoUntil.Local().Format("2006-01-02 15:04"))
			}
			fmt.Println(cli.FormatSuccess(msg))
			return nil
		},
	}
}
