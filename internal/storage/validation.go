package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/goalpost/internal/common"
	"github.com/Veraticus/goalpost/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrNilParameter = errors.New("parameter cannot be nil")
	ErrNilID        = errors.New("id cannot be nil")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateID(id uuid.UUID, paramName string) error {
	if id == uuid.Nil {
		return fmt.Errorf("%w: %s", ErrNilID, paramName)
	}
	return nil
}

func validateCurrency(currency string) error {
	if strings.TrimSpace(currency) == "" {
		return common.NewValidationError("currency", "cannot be empty")
	}
	return nil
}

// validateGoal enforces the goal invariants at creation.
func validateGoal(goal *model.Goal) error {
	if err := validateGoalUpdate(goal); err != nil {
		return err
	}
	if !goal.Deadline.After(goal.StartDate) {
		return common.NewValidationError("deadline", "must be after the start date")
	}
	return nil
}

// validateGoalUpdate skips the deadline rule: it only binds at creation, so
// an existing goal may keep a deadline that has since passed.
func validateGoalUpdate(goal *model.Goal) error {
	if goal == nil {
		return fmt.Errorf("%w: goal", ErrNilParameter)
	}
	if err := validateID(goal.ID, "goal.ID"); err != nil {
		return err
	}
	if strings.TrimSpace(goal.Name) == "" {
		return common.NewValidationError("name", "cannot be empty")
	}
	if err := validateCurrency(goal.Currency); err != nil {
		return err
	}
	if !goal.TargetAmount.IsPositive() {
		return common.NewValidationError("target_amount", "must be greater than zero")
	}
	if !goal.Status.Valid() {
		return common.NewValidationError("status", fmt.Sprintf("unknown status %q", goal.Status))
	}
	return nil
}

func validateAsset(asset *model.Asset) error {
	if asset == nil {
		return fmt.Errorf("%w: asset", ErrNilParameter)
	}
	if err := validateID(asset.ID, "asset.ID"); err != nil {
		return err
	}
	if err := validateCurrency(asset.Currency); err != nil {
		return err
	}
	if (asset.ChainID == "") != (asset.Address == "") {
		return common.NewValidationError("address", "chain id and address must be set together")
	}
	return nil
}

func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if err := validateID(txn.ID, "transaction.ID"); err != nil {
		return err
	}
	if err := validateID(txn.AssetID, "transaction.AssetID"); err != nil {
		return err
	}
	if txn.Date.IsZero() {
		return common.NewValidationError("date", "cannot be empty")
	}
	switch txn.Source {
	case model.SourceManual, model.SourceOnChain:
	default:
		return common.NewValidationError("source", fmt.Sprintf("unknown source %q", txn.Source))
	}
	return nil
}

func validateAllocationAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return common.NewValidationError("amount", "cannot be negative")
	}
	return nil
}

func validateMonthLabel(label string) error {
	if _, err := model.ParseMonthLabel(label); err != nil {
		return common.NewValidationError("month_label", err.Error())
	}
	return nil
}

func validateExecutionRecord(record *model.MonthlyExecutionRecord) error {
	if record == nil {
		return fmt.Errorf("%w: execution record", ErrNilParameter)
	}
	if err := validateID(record.ID, "record.ID"); err != nil {
		return err
	}
	if err := validateMonthLabel(record.MonthLabel); err != nil {
		return err
	}
	switch record.Status {
	case model.ExecutionDraft, model.ExecutionExecuting, model.ExecutionClosed:
	default:
		return common.NewValidationError("status", fmt.Sprintf("unknown status %q", record.Status))
	}
	return nil
}
