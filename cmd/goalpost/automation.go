package main

import (
	"fmt"
	"os"
	"time"

	"github.com/Veraticus/goalpost/internal/automation"
	"github.com/Veraticus/goalpost/internal/cli"
	"github.com/spf13/cobra"
)

func automationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "automation",
		Short: "Start and close months automatically",
		Long: `Apply the calendar rules: with automation.auto_start the month starts
tracking on its first day, with automation.auto_complete it closes on its
last day. Calendar days are taken in UTC.`,
	}

	cmd.AddCommand(automationRunOnceCmd())
	cmd.AddCommand(automationServeCmd())

	return cmd
}

func automationRunOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run-once",
		Short: "Apply the calendar rules for today and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			report := automation.NewScheduler(a.tracker, a.settings.Automation).RunOnce(ctx, time.Now())

			switch {
			case report.Failed:
				fmt.Println(cli.FormatWarning(fmt.Sprintf("Automation for %s failed, see the log for details", report.Month)))
			case report.Started:
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Started tracking %s", report.Month)))
			case report.Completed:
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Closed %s", report.Month)))
			default:
				fmt.Println(cli.FormatInfo(fmt.Sprintf("Nothing to do for %s today", report.Month)))
			}
			return nil
		},
	}
}

func automationServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the calendar rules on the configured cron schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := automation.ValidateSchedule(a.settings.Automation.Schedule); err != nil {
				return err
			}

			handler := cli.NewInterruptHandler(os.Stdout, "Automation").
				WithHint("Months already started or closed stay that way.")
			ctx := handler.HandleInterrupts(cmd.Context())

			fmt.Println(cli.FormatInfo(fmt.Sprintf("Automation running on %q (UTC), press Ctrl+C to stop", a.settings.Automation.Schedule)))
			return automation.NewScheduler(a.tracker, a.settings.Automation).Start(ctx)
		},
	}
}
