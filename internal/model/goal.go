// Package model defines the core domain models used throughout the application.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GoalStatus is the lifecycle state of a savings goal.
type GoalStatus string

// Goal lifecycle states.
const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusArchived  GoalStatus = "archived"
)

// Valid reports whether s is a known lifecycle state.
func (s GoalStatus) Valid() bool {
	switch s {
	case GoalStatusActive, GoalStatusCompleted, GoalStatusArchived:
		return true
	}
	return false
}

// Goal is a savings target in a single currency with a deadline.
type Goal struct {
	StartDate    time.Time
	Deadline     time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	TargetAmount decimal.Decimal
	Name         string
	Currency     string
	Status       GoalStatus
	Emoji        string
	Description  string
	ID           uuid.UUID
}

// NewGoal creates an active goal starting today.
func NewGoal(name, currency string, target decimal.Decimal, deadline time.Time) *Goal {
	now := time.Now().UTC()
	return &Goal{
		ID:           uuid.New(),
		Name:         name,
		Currency:     currency,
		TargetAmount: target,
		StartDate:    StartOfDay(now),
		Deadline:     StartOfDay(deadline),
		Status:       GoalStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsActive reports whether the goal still takes part in planning.
func (g *Goal) IsActive() bool {
	return g.Status == GoalStatusActive
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole days from a to b, using calendar
// dates in UTC. The result is negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(StartOfDay(b).Sub(StartOfDay(a)).Hours() / 24)
}
