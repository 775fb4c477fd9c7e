package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Veraticus/goalpost/internal/cli"
	"github.com/spf13/cobra"
)

func importOFXCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-ofx <asset> <files...>",
		Short: "Import OFX/QFX statements into an asset",
		Long: `Record every statement entry as a manual transaction on the asset.
Entries imported before (same FITID) are skipped, so re-importing an
overlapping statement is safe. The statement currency must match the asset.

Examples:
  goalpost import-ofx 3f2a1b9c ~/Downloads/savings_2026-03.qfx
  goalpost import-ofx 3f2a1b9c ~/Downloads/savings_*.qfx`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			files, err := expandFiles(args[1:])
			if err != nil {
				return err
			}

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			asset, err := a.findAsset(ctx, args[0])
			if err != nil {
				return err
			}

			var imported, skipped int
			for _, path := range files {
				f, err := os.Open(path) //nolint:gosec // user-supplied statement file
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", path, err)
				}

				bar := cli.NewProgressBar(os.Stderr, -1, "Importing "+filepath.Base(path))
				result, err := a.assets.ImportOFX(ctx, asset.ID, f, func() { cli.Step(bar) })
				_ = f.Close()
				_ = bar.Finish()
				if err != nil {
					return fmt.Errorf("failed to import %s: %w", filepath.Base(path), err)
				}

				imported += result.Imported
				skipped += result.Skipped
				slog.Info("Processed file",
					"file", filepath.Base(path),
					"entries", result.Total,
					"imported", result.Imported,
					"skipped", result.Skipped)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d transactions into %s (%d already present)",
				imported, shortID(asset.ID), skipped)))
			return nil
		},
	}
}

func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil {
				files = append(files, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
			continue
		}
		files = append(files, matches...)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no files found to import")
	}
	return files, nil
}
