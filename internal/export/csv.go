// Package export turns goals, assets and balance changes into flat tables
// and writes them as CSV files.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/goalpost/internal/ledger"
	"github.com/Veraticus/goalpost/internal/model"
	"github.com/Veraticus/goalpost/internal/progress"
	"github.com/Veraticus/goalpost/internal/service"
)

// File names written by Exporter.WriteDir.
const (
	GoalsFile        = "goals.csv"
	AssetsFile       = "assets.csv"
	ValueChangesFile = "value_changes.csv"
)

const dateLayout = "2006-01-02"

var (
	goalsHeader        = []string{"id", "name", "currency", "target_amount", "current_total", "progress_percent", "start_date", "deadline", "status"}
	assetsHeader       = []string{"id", "currency", "chain_id", "address", "manual_balance", "on_chain_balance", "current_amount", "allocated", "unallocated"}
	valueChangesHeader = []string{"asset_id", "transaction_id", "date", "amount", "currency", "source", "counterparty", "comment"}
)

// Store is the persistence the exporter reads.
type Store interface {
	service.GoalStore
	service.AssetStore
	service.TransactionStore
}

// Exporter renders the current state as tables.
type Exporter struct {
	store  Store
	calc   *progress.Calculator
	ledger *ledger.Ledger
}

// NewExporter creates an exporter. Goal totals come from calc so they
// match every other view.
func NewExporter(store Store, calc *progress.Calculator, l *ledger.Ledger) *Exporter {
	return &Exporter{store: store, calc: calc, ledger: l}
}

// WriteDir writes the three export files into dir, creating it if needed,
// and returns their paths. done, if set, is called after each file.
func (e *Exporter) WriteDir(ctx context.Context, dir string, done func(name string)) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	writers := []struct {
		name  string
		write func(context.Context, io.Writer) error
	}{
		{GoalsFile, e.WriteGoals},
		{AssetsFile, e.WriteAssets},
		{ValueChangesFile, e.WriteValueChanges},
	}

	paths := make([]string, 0, len(writers))
	for _, w := range writers {
		path := filepath.Join(dir, w.name)
		if err := writeFile(ctx, path, w.write); err != nil {
			return paths, err
		}
		paths = append(paths, path)
		if done != nil {
			done(w.name)
		}
	}

	slog.Info("exported data", "dir", dir, "files", len(paths))
	return paths, nil
}

func writeFile(ctx context.Context, path string, write func(context.Context, io.Writer) error) (err error) {
	f, err := os.Create(path) //nolint:gosec // path is built from the export directory
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", filepath.Base(path), cerr)
		}
	}()
	return write(ctx, f)
}

// Table is one export sheet: a header and its rows, all rendered as text.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Tables builds every export table in file order.
func (e *Exporter) Tables(ctx context.Context) ([]Table, error) {
	builders := []struct {
		build  func(context.Context) ([][]string, error)
		name   string
		header []string
	}{
		{e.goalRows, "Goals", goalsHeader},
		{e.assetRows, "Assets", assetsHeader},
		{e.valueChangeRows, "Value Changes", valueChangesHeader},
	}

	tables := make([]Table, 0, len(builders))
	for _, b := range builders {
		rows, err := b.build(ctx)
		if err != nil {
			return nil, err
		}
		tables = append(tables, Table{Name: b.name, Header: b.header, Rows: rows})
	}
	return tables, nil
}

// WriteGoals writes every goal with its funded total.
func (e *Exporter) WriteGoals(ctx context.Context, w io.Writer) error {
	rows, err := e.goalRows(ctx)
	if err != nil {
		return err
	}
	return writeCSV(w, goalsHeader, rows)
}

// WriteAssets writes every asset with its allocation totals.
func (e *Exporter) WriteAssets(ctx context.Context, w io.Writer) error {
	rows, err := e.assetRows(ctx)
	if err != nil {
		return err
	}
	return writeCSV(w, assetsHeader, rows)
}

// WriteValueChanges writes every transaction, oldest first within each
// asset.
func (e *Exporter) WriteValueChanges(ctx context.Context, w io.Writer) error {
	rows, err := e.valueChangeRows(ctx)
	if err != nil {
		return err
	}
	return writeCSV(w, valueChangesHeader, rows)
}

func (e *Exporter) goalRows(ctx context.Context) ([][]string, error) {
	goals, err := e.store.ListGoals(ctx, service.GoalFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load goals: %w", err)
	}
	progresses, err := e.calc.ComputeAll(ctx, goals)
	if err != nil {
		return nil, fmt.Errorf("failed to compute progress: %w", err)
	}

	rows := make([][]string, 0, len(progresses))
	for _, p := range progresses {
		rows = append(rows, []string{
			p.Goal.ID.String(),
			p.Goal.Name,
			p.Goal.Currency,
			p.Goal.TargetAmount.String(),
			p.CurrentTotal.StringFixed(2),
			p.Percent.StringFixed(2),
			p.Goal.StartDate.Format(dateLayout),
			p.Goal.Deadline.Format(dateLayout),
			string(p.Goal.Status),
		})
	}
	return rows, nil
}

func (e *Exporter) assetRows(ctx context.Context) ([][]string, error) {
	summaries, err := e.ledger.SummarizeAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize assets: %w", err)
	}

	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			s.Asset.ID.String(),
			s.Asset.Currency,
			s.Asset.ChainID,
			s.Asset.Address,
			s.Asset.ManualBalance.String(),
			s.Asset.CachedOnChainBalance.String(),
			s.Asset.CurrentAmount().String(),
			s.Allocated.String(),
			s.Unallocated.String(),
		})
	}
	return rows, nil
}

func (e *Exporter) valueChangeRows(ctx context.Context) ([][]string, error) {
	assets, err := e.store.ListAssets(ctx, service.AssetFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}

	var rows [][]string
	for _, asset := range assets {
		id := asset.ID
		txns, err := e.store.ListTransactions(ctx, service.TransactionFilter{AssetID: &id})
		if err != nil {
			return nil, fmt.Errorf("failed to load transactions: %w", err)
		}
		for i := len(txns) - 1; i >= 0; i-- {
			rows = append(rows, valueChangeRow(asset, txns[i]))
		}
	}
	return rows, nil
}

func valueChangeRow(asset model.Asset, txn model.Transaction) []string {
	return []string{
		asset.ID.String(),
		txn.ID.String(),
		txn.Date.UTC().Format(time.RFC3339),
		txn.Amount.String(),
		asset.Currency,
		string(txn.Source),
		txn.Counterparty,
		txn.Comment,
	}
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}
