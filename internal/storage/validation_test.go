package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/goalpost/internal/common"
	"github.com/Veraticus/goalpost/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestValidateContext(t *testing.T) {
	tests := []struct {
		ctx     context.Context
		wantErr error
		name    string
	}{
		{
			name:    "valid context",
			ctx:     context.Background(),
			wantErr: nil,
		},
		{
			name:    "nil context",
			ctx:     nil,
			wantErr: ErrNilContext,
		},
		{
			name:    "canceled context is still valid",
			ctx:     canceledContext(),
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateContext(tt.ctx)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("validateContext() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func canceledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func TestValidateString(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		paramName string
		wantErr   bool
	}{
		{name: "valid string", input: "hello", paramName: "test", wantErr: false},
		{name: "empty string", input: "", paramName: "test", wantErr: true},
		{name: "whitespace only", input: "   \t\n", paramName: "test", wantErr: true},
		{name: "padded string", input: "  FITID  ", paramName: "test", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateString(tt.input, tt.paramName)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrEmptyString) {
				t.Errorf("validateString() error should wrap ErrEmptyString")
			}
		})
	}
}

func TestValidateAsset(t *testing.T) {
	tests := []struct {
		asset   *model.Asset
		wantErr error
		name    string
	}{
		{name: "manual asset", asset: &model.Asset{ID: uuid.New(), Currency: "USD"}},
		{name: "on-chain asset", asset: &model.Asset{ID: uuid.New(), Currency: "ETH", ChainID: "eth", Address: "0x1"}},
		{name: "nil asset", asset: nil, wantErr: ErrNilParameter},
		{name: "nil id", asset: &model.Asset{Currency: "USD"}, wantErr: ErrNilID},
		{name: "blank currency", asset: &model.Asset{ID: uuid.New(), Currency: " "}, wantErr: common.ErrValidation},
		{name: "half an address", asset: &model.Asset{ID: uuid.New(), Currency: "ETH", ChainID: "eth"}, wantErr: common.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAsset(tt.asset)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("validateAsset() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateGoalUpdate_AllowsPassedDeadline(t *testing.T) {
	goal := model.NewGoal("Old", "USD", decimal.NewFromInt(100), time.Now().AddDate(1, 0, 0))
	goal.Deadline = goal.StartDate.AddDate(0, 0, -1)

	if err := validateGoalUpdate(goal); err != nil {
		t.Errorf("validateGoalUpdate() error = %v, want nil", err)
	}
	if err := validateGoal(goal); !errors.Is(err, common.ErrValidation) {
		t.Errorf("validateGoal() error = %v, want ErrValidation", err)
	}
	if err := validateGoalUpdate(nil); !errors.Is(err, ErrNilParameter) {
		t.Errorf("validateGoalUpdate(nil) error = %v, want ErrNilParameter", err)
	}
}

func TestValidateAllocationAmount(t *testing.T) {
	tests := []struct {
		amount  string
		wantErr bool
	}{
		{amount: "0", wantErr: false},
		{amount: "0.00000001", wantErr: false},
		{amount: "1500", wantErr: false},
		{amount: "-0.01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			err := validateAllocationAmount(decimal.RequireFromString(tt.amount))
			if (err != nil) != tt.wantErr {
				t.Errorf("validateAllocationAmount(%s) error = %v, wantErr %v", tt.amount, err, tt.wantErr)
			}
		})
	}
}

func TestValidateMonthLabel(t *testing.T) {
	tests := []struct {
		label   string
		wantErr bool
	}{
		{label: "2026-01", wantErr: false},
		{label: "1999-12", wantErr: false},
		{label: "2026-1", wantErr: true},
		{label: "2026-00", wantErr: true},
		{label: "26-01", wantErr: true},
		{label: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			err := validateMonthLabel(tt.label)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateMonthLabel(%q) error = %v, wantErr %v", tt.label, err, tt.wantErr)
			}
		})
	}
}

func TestValidateExecutionRecord(t *testing.T) {
	if err := validateExecutionRecord(nil); !errors.Is(err, ErrNilParameter) {
		t.Errorf("validateExecutionRecord(nil) error = %v, want ErrNilParameter", err)
	}

	record := model.NewExecutionRecord("2026-07", time.Now())
	record.ID = uuid.Nil
	if err := validateExecutionRecord(record); !errors.Is(err, ErrNilID) {
		t.Errorf("validateExecutionRecord(nil id) error = %v, want ErrNilID", err)
	}

	for _, status := range []model.ExecutionStatus{model.ExecutionDraft, model.ExecutionExecuting, model.ExecutionClosed} {
		record := model.NewExecutionRecord("2026-07", time.Now())
		record.Status = status
		if err := validateExecutionRecord(record); err != nil {
			t.Errorf("validateExecutionRecord(%s) error = %v", status, err)
		}
	}
}
