package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/goalpost/internal/common"
	"github.com/Veraticus/goalpost/internal/export"
	"github.com/Veraticus/goalpost/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Writer publishes export tables to a spreadsheet, one tab per table.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a new Google Sheets writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return NewWriterWithService(srv, config, logger), nil
}

// NewWriterWithService wraps an existing Sheets client.
func NewWriterWithService(srv *sheets.Service, config Config, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{service: srv, config: config, logger: logger}
}

// Write replaces the contents of each table's tab and returns the
// spreadsheet id. A new spreadsheet is created when none is configured.
func (w *Writer) Write(ctx context.Context, tables []export.Table) (string, error) {
	titles := make([]string, 0, len(tables))
	for _, t := range tables {
		titles = append(titles, t.Name)
	}

	spreadsheetID, sheetIDs, err := w.prepareSpreadsheet(ctx, titles)
	if err != nil {
		return "", err
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	for _, table := range tables {
		values := tableValues(table)
		err := common.WithRetry(ctx, func() error {
			if clearErr := w.clearTab(ctx, spreadsheetID, table.Name); clearErr != nil {
				return fmt.Errorf("failed to clear %s: %w", table.Name, clearErr)
			}
			return w.writeData(ctx, spreadsheetID, table.Name, values)
		}, retryOpts)
		if err != nil {
			return spreadsheetID, fmt.Errorf("failed to write %s: %w", table.Name, err)
		}
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			return w.applyFormatting(ctx, spreadsheetID, tables, sheetIDs)
		}, retryOpts)
		if err != nil {
			// Formatting is cosmetic; the data is already written.
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("published export to google sheets",
		"spreadsheet_id", spreadsheetID,
		"tabs", len(tables))

	return spreadsheetID, nil
}

func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		token := &oauth2.Token{RefreshToken: config.RefreshToken, TokenType: "Bearer"}
		if config.RefreshToken == "" {
			saved, err := LoadToken(config.TokenFile)
			if err != nil {
				return nil, fmt.Errorf("%w: no refresh token configured and no saved token at %s; run `goalpost sheets auth`",
					common.ErrMissingConfig, config.TokenFile)
			}
			token = saved
		}

		oauthConfig := OAuth2Config{ClientID: config.ClientID, ClientSecret: config.ClientSecret}.oauthConfig("")
		tokenSource = oauthConfig.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// prepareSpreadsheet returns the spreadsheet id and the sheet id of every
// title, creating the spreadsheet or missing tabs as needed.
func (w *Writer) prepareSpreadsheet(ctx context.Context, titles []string) (string, map[string]int64, error) {
	if w.config.SpreadsheetID == "" {
		return w.createSpreadsheet(ctx, titles)
	}

	existing, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
	}

	sheetIDs := make(map[string]int64, len(titles))
	for _, s := range existing.Sheets {
		if s.Properties != nil {
			sheetIDs[s.Properties.Title] = s.Properties.SheetId
		}
	}

	var requests []*sheets.Request
	for _, title := range titles {
		if _, ok := sheetIDs[title]; !ok {
			requests = append(requests, &sheets.Request{
				AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: title}},
			})
		}
	}
	if len(requests) == 0 {
		return w.config.SpreadsheetID, sheetIDs, nil
	}

	resp, err := w.service.Spreadsheets.BatchUpdate(w.config.SpreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("unable to add tabs: %w", err)
	}
	for _, reply := range resp.Replies {
		if reply.AddSheet != nil && reply.AddSheet.Properties != nil {
			props := reply.AddSheet.Properties
			sheetIDs[props.Title] = props.SheetId
		}
	}

	w.logger.Debug("added tabs", "spreadsheet_id", w.config.SpreadsheetID, "count", len(requests))
	return w.config.SpreadsheetID, sheetIDs, nil
}

func (w *Writer) createSpreadsheet(ctx context.Context, titles []string) (string, map[string]int64, error) {
	tabs := make([]*sheets.Sheet, 0, len(titles))
	for _, title := range titles {
		tabs = append(tabs, &sheets.Sheet{Properties: &sheets.SheetProperties{Title: title}})
	}

	created, err := w.service.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
		Sheets: tabs,
	}).Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	sheetIDs := make(map[string]int64, len(created.Sheets))
	for _, s := range created.Sheets {
		if s.Properties != nil {
			sheetIDs[s.Properties.Title] = s.Properties.SheetId
		}
	}

	w.logger.Info("created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)

	return created.SpreadsheetId, sheetIDs, nil
}

// quoteTitle renders a tab name for A1 notation.
func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func (w *Writer) clearTab(ctx context.Context, spreadsheetID, title string) error {
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, quoteTitle(title)+"!A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// tableValues lays a table out as header row followed by data rows.
func tableValues(table export.Table) [][]any {
	values := make([][]any, 0, len(table.Rows)+1)
	values = append(values, toCells(table.Header))
	for _, row := range table.Rows {
		values = append(values, toCells(row))
	}
	return values
}

func toCells(row []string) []any {
	cells := make([]any, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}

func (w *Writer) writeData(ctx context.Context, spreadsheetID, title string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(values))
		batch := values[i:end]

		rangeStr := fmt.Sprintf("%s!A%d", quoteTitle(title), i+1)
		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, rangeStr, &sheets.ValueRange{Values: batch}).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("wrote batch", "tab", title, "start_row", i+1, "rows", len(batch))
	}

	return nil
}

// applyFormatting bolds and freezes each header row and fits the columns.
func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string, tables []export.Table, sheetIDs map[string]int64) error {
	requests := make([]*sheets.Request, 0, 3*len(tables))
	for _, table := range tables {
		sheetID, ok := sheetIDs[table.Name]
		if !ok {
			continue
		}
		requests = append(requests,
			&sheets.Request{
				RepeatCell: &sheets.RepeatCellRequest{
					Range: &sheets.GridRange{
						SheetId:          sheetID,
						StartRowIndex:    0,
						EndRowIndex:      1,
						StartColumnIndex: 0,
						EndColumnIndex:   int64(len(table.Header)),
					},
					Cell: &sheets.CellData{
						UserEnteredFormat: &sheets.CellFormat{
							TextFormat: &sheets.TextFormat{Bold: true},
						},
					},
					Fields: "userEnteredFormat.textFormat",
				},
			},
			&sheets.Request{
				UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
					Properties: &sheets.SheetProperties{
						SheetId:        sheetID,
						GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
					},
					Fields: "gridProperties.frozenRowCount",
				},
			},
			&sheets.Request{
				AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
					Dimensions: &sheets.DimensionRange{
						SheetId:    sheetID,
						Dimension:  "COLUMNS",
						StartIndex: 0,
						EndIndex:   int64(len(table.Header)),
					},
				},
			},
		)
	}
	if len(requests) == 0 {
		return nil
	}

	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	return err
}
