package planning

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SuggestionKind names a remediation.
type SuggestionKind string

// Suggestion kinds.
const (
	KindIncreaseBudget SuggestionKind = "increaseBudget"
	KindExtendDeadline SuggestionKind = "extendDeadline"
	KindReduceTarget   SuggestionKind = "reduceTarget"
	KindEditGoal       SuggestionKind = "editGoal"
)

// Suggestion is one way to resolve a shortfall. The concrete types are
// IncreaseBudget, ExtendDeadline, ReduceTarget and EditGoal.
type Suggestion interface {
	Kind() SuggestionKind
}

// IncreaseBudget raises the monthly budget to To.
type IncreaseBudget struct {
	To       decimal.Decimal
	Currency string
}

// ExtendDeadline moves a goal's deadline to NewDate.
type ExtendDeadline struct {
	NewDate  time.Time
	GoalName string
	GoalID   uuid.UUID
}

// ReduceTarget shrinks a goal's target to NewAmount.
type ReduceTarget struct {
	NewAmount decimal.Decimal
	GoalName  string
	Currency  string
	GoalID    uuid.UUID
}

// EditGoal asks the user to revisit a goal that no mechanical change fixes.
type EditGoal struct {
	GoalName string
	GoalID   uuid.UUID
}

func (IncreaseBudget) Kind() SuggestionKind { return KindIncreaseBudget }
func (ExtendDeadline) Kind() SuggestionKind { return KindExtendDeadline }
func (ReduceTarget) Kind() SuggestionKind   { return KindReduceTarget }
func (EditGoal) Kind() SuggestionKind       { return KindEditGoal }
