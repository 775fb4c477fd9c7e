package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/goalpost/internal/assets"
	"github.com/Veraticus/goalpost/internal/common"
	"github.com/Veraticus/goalpost/internal/config"
	"github.com/Veraticus/goalpost/internal/execution"
	"github.com/Veraticus/goalpost/internal/ledger"
	"github.com/Veraticus/goalpost/internal/model"
	"github.com/Veraticus/goalpost/internal/planning"
	"github.com/Veraticus/goalpost/internal/progress"
	"github.com/Veraticus/goalpost/internal/rates"
	"github.com/Veraticus/goalpost/internal/service"
	"github.com/Veraticus/goalpost/internal/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const dateLayout = "2006-01-02"

// app holds the services a command needs, built from one settings load.
type app struct {
	store      *storage.SQLiteStorage
	ledger     *ledger.Ledger
	calc       *progress.Calculator
	planner    *planning.Planner
	tracker    *execution.Tracker
	assets     *assets.Service
	closeRates func()
	settings   config.Settings
}

func loadSettings() (config.Settings, error) {
	settings, err := config.Load(viper.GetViper())
	if err != nil {
		return settings, common.NewUserError("invalid configuration", err)
	}
	return settings, nil
}

// initStorage opens the database and applies pending migrations.
func initStorage(ctx context.Context, dbPath string) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func newApp(ctx context.Context) (*app, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}

	store, err := initStorage(ctx, settings.DatabasePath)
	if err != nil {
		return nil, err
	}

	converter, closeRates, err := rates.FromSettings(settings.Rates)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	l := ledger.New(store, converter)
	calc := progress.NewCalculator(l, nil)

	return &app{
		settings:   settings,
		store:      store,
		closeRates: closeRates,
		ledger:     l,
		calc:       calc,
		planner:    planning.NewPlanner(store, calc, converter, settings.Planning, nil),
		tracker:    execution.NewTracker(store, calc, settings.Execution, nil),
		assets:     assets.NewService(store, nil),
	}, nil
}

func (a *app) Close() {
	a.closeRates()
	_ = a.store.Close()
}

func parseAmount(name, raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, common.NewUserError(fmt.Sprintf("%s must be a number, got %q", name, raw), err)
	}
	return amount, nil
}

func parseDate(name, raw string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, common.NewUserError(fmt.Sprintf("%s must look like YYYY-MM-DD, got %q", name, raw), err)
	}
	return t, nil
}

// findGoal resolves a goal by full id, id prefix or case-insensitive name.
func (a *app) findGoal(ctx context.Context, ref string) (*model.Goal, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, common.NewValidationError("goal", "reference must not be blank")
	}
	if id, err := uuid.Parse(ref); err == nil {
		return a.store.GetGoal(ctx, id)
	}

	goals, err := a.store.ListGoals(ctx, service.GoalFilter{})
	if err != nil {
		return nil, err
	}

	var matches []model.Goal
	for _, g := range goals {
		if strings.EqualFold(g.Name, ref) || strings.HasPrefix(g.ID.String(), strings.ToLower(ref)) {
			matches = append(matches, g)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: goal %q", common.ErrNotFound, ref)
	case 1:
		return &matches[0], nil
	default:
		return nil, common.NewUserError(fmt.Sprintf("%q matches %d goals, use the id", ref, len(matches)), nil)
	}
}

// findAsset resolves an asset by full id or id prefix.
func (a *app) findAsset(ctx context.Context, ref string) (*model.Asset, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, common.NewValidationError("asset", "reference must not be blank")
	}
	if id, err := uuid.Parse(ref); err == nil {
		return a.store.GetAsset(ctx, id)
	}

	list, err := a.store.ListAssets(ctx, service.AssetFilter{})
	if err != nil {
		return nil, err
	}

	var matches []model.Asset
	for _, asset := range list {
		if strings.HasPrefix(asset.ID.String(), strings.ToLower(ref)) {
			matches = append(matches, asset)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: asset %q", common.ErrNotFound, ref)
	case 1:
		return &matches[0], nil
	default:
		return nil, common.NewUserError(fmt.Sprintf("%q matches %d assets, use a longer id", ref, len(matches)), nil)
	}
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
