package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/goalpost/internal/common"
	"github.com/Veraticus/goalpost/internal/model"
	"github.com/Veraticus/goalpost/internal/planning"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupApp(t *testing.T) *app {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("database.path", filepath.Join(t.TempDir(), "goalpost.db"))

	a, err := newApp(context.Background())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "integer", raw: "500", want: "500"},
		{name: "decimal with spaces", raw: " 12.75 ", want: "12.75"},
		{name: "negative", raw: "-40", want: "-40"},
		{name: "not a number", raw: "lots", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAmount("amount", tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				var userErr *common.UserError
				assert.True(t, errors.As(err, &userErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseDate(t *testing.T) {
	got, err := parseDate("--deadline", "2027-06-01")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2027, 6, 1, 0, 0, 0, 0, time.UTC)))

	_, err = parseDate("--deadline", "06/01/2027")
	assert.Error(t, err)
}

func TestBudgetFlag(t *testing.T) {
	budget, err := budgetFlag("")
	require.NoError(t, err)
	assert.Nil(t, budget)

	budget, err = budgetFlag("750")
	require.NoError(t, err)
	require.NotNil(t, budget)
	assert.True(t, budget.Equal(decimal.NewFromInt(750)))

	_, err = budgetFlag("abc")
	assert.Error(t, err)
}

func TestExplainNoBudget(t *testing.T) {
	err := explainNoBudget(planning.ErrNoBudget)
	var userErr *common.UserError
	require.True(t, errors.As(err, &userErr))
	assert.Contains(t, userErr.UserMessage, "per-goal")
	assert.True(t, errors.Is(err, common.ErrMissingConfig))

	other := errors.New("boom")
	assert.Equal(t, other, explainNoBudget(other))
}

func TestExpandFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.qfx", "b.qfx", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}

	files, err := expandFiles([]string{filepath.Join(dir, "*.qfx")})
	require.NoError(t, err)
	assert.Len(t, files, 2)

	files, err = expandFiles([]string{filepath.Join(dir, "notes.txt"), filepath.Join(dir, "missing.qfx")})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "notes.txt")}, files)

	_, err = expandFiles([]string{filepath.Join(dir, "*.ofx")})
	assert.Error(t, err)
}

func TestFindGoal(t *testing.T) {
	a := setupApp(t)
	ctx := context.Background()

	trip := model.NewGoal("Trip", "USD", decimal.NewFromInt(1000), time.Now().AddDate(1, 0, 0))
	car := model.NewGoal("Car", "USD", decimal.NewFromInt(9000), time.Now().AddDate(2, 0, 0))
	require.NoError(t, a.store.CreateGoal(ctx, trip))
	require.NoError(t, a.store.CreateGoal(ctx, car))

	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr error
	}{
		{name: "full id", ref: trip.ID.String(), want: "Trip"},
		{name: "id prefix", ref: car.ID.String()[:8], want: "Car"},
		{name: "name ignores case", ref: "trip", want: "Trip"},
		{name: "unknown", ref: "boat", wantErr: common.ErrNotFound},
		{name: "padded name", ref: "  Car ", want: "Car"},
		{name: "blank", ref: "", wantErr: common.ErrValidation},
		{name: "whitespace only", ref: "   ", wantErr: common.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			goal, err := a.findGoal(ctx, tt.ref)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, goal.Name)
		})
	}
}

func TestFindAsset(t *testing.T) {
	a := setupApp(t)
	ctx := context.Background()

	asset, err := a.assets.CreateAsset(ctx, "eur", "", "")
	require.NoError(t, err)

	found, err := a.findAsset(ctx, shortID(asset.ID))
	require.NoError(t, err)
	assert.Equal(t, asset.ID, found.ID)
	assert.Equal(t, "EUR", found.Currency)

	_, err = a.findAsset(ctx, "zzzz")
	assert.True(t, errors.Is(err, common.ErrNotFound))

	_, err = a.assets.CreateAsset(ctx, "usd", "", "")
	require.NoError(t, err)
	for _, ref := range []string{"", " \t"} {
		_, err = a.findAsset(ctx, ref)
		var vErr *common.ValidationError
		require.True(t, errors.As(err, &vErr), "ref %q: %v", ref, err)
		assert.Equal(t, "asset", vErr.Field)
	}
}

func TestNewApp_InvalidConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("database.path", filepath.Join(t.TempDir(), "goalpost.db"))
	viper.Set("planning.payment_day", 31)

	_, err := newApp(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidConfig))
}
