package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Veraticus/goalpost/internal/cli"
	"github.com/Veraticus/goalpost/internal/common"
	"github.com/Veraticus/goalpost/internal/export"
	"github.com/Veraticus/goalpost/internal/sheets"
	"github.com/spf13/cobra"
)

func sheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Publish goals and assets to Google Sheets",
	}

	cmd.AddCommand(sheetsPushCmd())
	cmd.AddCommand(sheetsAuthCmd())
	return cmd
}

func sheetsPushCmd() *cobra.Command {
	var spreadsheetID string

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Write the export tables to a spreadsheet",
		Long: `Write the goals, assets and value-change tables to one tab each.
Without sheets.spreadsheet_id (or --spreadsheet) a new spreadsheet is created.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := sheets.FromSettings(a.settings.Sheets)
			if spreadsheetID != "" {
				cfg.SpreadsheetID = spreadsheetID
			}

			writer, err := sheets.NewWriter(ctx, cfg, slog.Default())
			if err != nil {
				return common.NewUserError("Google Sheets is not configured", err)
			}

			tables, err := export.NewExporter(a.store, a.calc, a.ledger).Tables(ctx)
			if err != nil {
				return fmt.Errorf("failed to build export: %w", err)
			}

			id, err := writer.Write(ctx, tables)
			if err != nil {
				return fmt.Errorf("failed to publish to Google Sheets: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Published %d tabs", len(tables))))
			fmt.Printf("https://docs.google.com/spreadsheets/d/%s\n", id)
			if cfg.SpreadsheetID == "" {
				fmt.Println(cli.FormatInfo("Set sheets.spreadsheet_id to " + id + " to update this spreadsheet next time"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&spreadsheetID, "spreadsheet", "", "Spreadsheet id to update")
	return cmd
}

func sheetsAuthCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize goalpost to edit your spreadsheets",
		Long: `Run the Google OAuth consent flow and save the token to sheets.token_file.
Requires sheets.client_id and sheets.client_secret.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			s := settings.Sheets
			if s.ClientID == "" || s.ClientSecret == "" {
				return common.NewUserError("set sheets.client_id and sheets.client_secret first",
					fmt.Errorf("%w: sheets oauth client", common.ErrMissingConfig))
			}

			_, err = sheets.Authorize(cmd.Context(), sheets.OAuth2Config{
				ClientID:     s.ClientID,
				ClientSecret: s.ClientSecret,
				TokenFile:    s.TokenFile,
				ListenAddr:   listen,
			}, func(url string) {
				fmt.Fprintln(os.Stderr, cli.FormatTitle("Google Sheets authorization"))
				fmt.Fprintln(os.Stderr, "Open this URL in your browser:")
				fmt.Fprintln(os.Stderr, url)
			})
			if err != nil {
				return fmt.Errorf("authorization failed: %w", err)
			}

			fmt.Println(cli.FormatSuccess("Saved token to " + s.TokenFile))
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "localhost:8080", "Address for the OAuth callback")
	return cmd
}
