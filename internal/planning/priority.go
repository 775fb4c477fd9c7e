package planning

import (
	"sort"
)

// Prioritize returns goals in funding order: earliest deadline first, then
// smaller target, then id. The input is not modified.
func Prioritize(goals []GoalState) []GoalState {
	ordered := make([]GoalState, len(goals))
	copy(ordered, goals)

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i].Goal, ordered[j].Goal
		if !a.Deadline.Equal(b.Deadline) {
			return a.Deadline.Before(b.Deadline)
		}
		if cmp := a.TargetAmount.Cmp(b.TargetAmount); cmp != 0 {
			return cmp < 0
		}
		return a.ID.String() < b.ID.String()
	})

	return ordered
}
