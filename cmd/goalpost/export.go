package main

import (
	"fmt"
	"os"

	"github.com/Veraticus/goalpost/internal/cli"
	"github.com/Veraticus/goalpost/internal/export"
	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Write goals, assets and balance changes as CSV",
		Long: fmt.Sprintf(`Write %s, %s and %s into dir, creating it if needed.
Existing files are overwritten.`, export.GoalsFile, export.AssetsFile, export.ValueChangesFile),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			bar := cli.NewProgressBar(os.Stderr, 3, "Exporting...")
			exporter := export.NewExporter(a.store, a.calc, a.ledger)
			paths, err := exporter.WriteDir(ctx, args[0], func(string) { cli.Step(bar) })
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			for _, path := range paths {
				fmt.Println(cli.FormatSuccess("Wrote " + path))
			}
			return nil
		},
	}
}
