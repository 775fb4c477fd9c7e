package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/goalpost/internal/execution"
	"github.com/Veraticus/goalpost/internal/ledger"
	"github.com/Veraticus/goalpost/internal/planning"
	"github.com/Veraticus/goalpost/internal/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Money formats an amount with two decimals and its currency.
func Money(amount decimal.Decimal, currency string) string {
	return amount.StringFixed(2) + " " + currency
}

// StatusBadge colors a status level.
func StatusBadge(level planning.StatusLevel) string {
	switch level {
	case planning.StatusAchievable:
		return SuccessStyle.Render(SuccessIcon + " achievable")
	case planning.StatusAtRisk:
		return WarningStyle.Render(WarningIcon + " at risk")
	default:
		return ErrorStyle.Render(ErrorIcon + " critical")
	}
}

// Table renders rows under a bold header with padded columns.
func Table(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	var b strings.Builder
	for i, h := range headers {
		b.WriteString(TableHeaderStyle.Width(widths[i] + 2).Render(h))
	}
	b.WriteString("\n")
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				b.WriteString(TableCellStyle.Width(widths[i] + 2).Render(cell))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderGoals lists goals with their funding progress.
func RenderGoals(goals []progress.GoalProgress) string {
	if len(goals) == 0 {
		return SubtleStyle.Render("No goals yet.") + "\n"
	}

	rows := make([][]string, 0, len(goals))
	stale := false
	for _, g := range goals {
		name := g.Goal.Name
		if g.Stale {
			name += " *"
			stale = true
		}
		rows = append(rows, []string{
			name,
			Money(g.CurrentTotal, g.Goal.Currency),
			Money(g.Goal.TargetAmount, g.Goal.Currency),
			g.Percent.StringFixed(1) + "%",
			g.Goal.Deadline.Format(dateLayout),
			Money(g.RequiredMonthly, g.Goal.Currency),
			string(g.Goal.Status),
		})
	}

	out := Table([]string{"Goal", "Funded", "Target", "Progress", "Deadline", "Monthly", "Status"}, rows)
	if stale {
		out += FormatWarning("* rates unavailable, some allocations were left out") + "\n"
	}
	return out
}

// RenderAssets lists assets with their allocation state.
func RenderAssets(summaries []ledger.AssetSummary) string {
	if len(summaries) == 0 {
		return SubtleStyle.Render("No assets yet.") + "\n"
	}

	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		source := "manual"
		if s.Asset.IsOnChain() {
			source = s.Asset.ChainID + ":" + s.Asset.Address
		}
		unallocated := s.Unallocated.String()
		if s.OverAllocated {
			unallocated = WarningStyle.Render("over-allocated")
		}
		rows = append(rows, []string{
			s.Asset.ID.String()[:8],
			s.Asset.Currency,
			source,
			s.Asset.CurrentAmount().String(),
			s.Allocated.String(),
			unallocated,
		})
	}
	return Table([]string{"ID", "Currency", "Source", "Balance", "Allocated", "Unallocated"}, rows)
}

// RenderFeasibility summarizes a feasibility check.
func RenderFeasibility(r planning.FeasibilityResult, budget decimal.Decimal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Budget: %s   Minimum required: %s   %s\n",
		BoldStyle.Render(Money(budget, r.Currency)),
		BoldStyle.Render(Money(r.MinimumRequired, r.Currency)),
		StatusBadge(r.StatusLevel))

	if len(r.InfeasibleGoals) > 0 {
		b.WriteString("\n")
		rows := make([][]string, 0, len(r.InfeasibleGoals))
		for _, g := range r.InfeasibleGoals {
			rows = append(rows, []string{
				g.GoalName,
				Money(g.RequiredMonthly, g.Currency),
				Money(g.FairShare, g.Currency),
				ErrorStyle.Render(Money(g.Shortfall, g.Currency)),
			})
		}
		b.WriteString(Table([]string{"Goal", "Needs / month", "Gets / month", "Short"}, rows))
	}

	if len(r.Suggestions) > 0 {
		b.WriteString("\n" + BoldStyle.Render("Suggestions") + "\n")
		for _, s := range r.Suggestions {
			b.WriteString("  • " + DescribeSuggestion(s) + "\n")
		}
	}

	if r.Stale() {
		b.WriteString("\n" + FormatWarning(fmt.Sprintf("%d goal(s) left out: exchange rate unavailable", len(r.SkippedGoals))) + "\n")
	}
	return b.String()
}

// DescribeSuggestion renders one suggestion as a sentence.
func DescribeSuggestion(s planning.Suggestion) string {
	switch v := s.(type) {
	case planning.IncreaseBudget:
		return "Increase the monthly budget to " + Money(v.To, v.Currency)
	case planning.ExtendDeadline:
		return fmt.Sprintf("Move the deadline of %s to %s", v.GoalName, v.NewDate.Format(dateLayout))
	case planning.ReduceTarget:
		return fmt.Sprintf("Reduce the target of %s to %s", v.GoalName, Money(v.NewAmount, v.Currency))
	case planning.EditGoal:
		return fmt.Sprintf("Revisit %s: it gets nothing from this budget", v.GoalName)
	default:
		return string(s.Kind())
	}
}

// RenderSchedule lists payments with their per-goal split, then the goal
// timeline.
func RenderSchedule(plan planning.Plan) string {
	var b strings.Builder

	if len(plan.Payments) == 0 {
		b.WriteString(SubtleStyle.Render("Nothing to schedule.") + "\n")
	} else {
		rows := make([][]string, 0, len(plan.Payments))
		for _, p := range plan.Payments {
			parts := make([]string, 0, len(p.Contributions))
			for _, c := range p.Contributions {
				part := c.GoalName + " " + c.Amount.StringFixed(2)
				if c.IsGoalComplete {
					part += " " + SuccessIcon
				}
				parts = append(parts, part)
			}
			rows = append(rows, []string{
				strconv.Itoa(p.PaymentNumber),
				p.PaymentDate.Format(dateLayout),
				p.Total().StringFixed(2),
				strings.Join(parts, ", "),
			})
		}
		b.WriteString(Table([]string{"#", "Date", "Total " + plan.Currency, "Split"}, rows))
	}

	if len(plan.Blocks) > 0 {
		b.WriteString("\n" + BoldStyle.Render(CalendarIcon+" Timeline") + "\n")
		rows := make([][]string, 0, len(plan.Blocks))
		for _, blk := range plan.Blocks {
			state := SubtleStyle.Render("in progress")
			if blk.IsComplete {
				state = SuccessStyle.Render("funded")
			}
			rows = append(rows, []string{
				blk.GoalName,
				blk.StartDate.Format(dateLayout) + " → " + blk.EndDate.Format(dateLayout),
				strconv.Itoa(blk.PaymentCount),
				Money(blk.TotalAmount, plan.Currency),
				state,
			})
		}
		b.WriteString(Table([]string{"Goal", "Dates", "Payments", "Total", ""}, rows))
	}

	if plan.HorizonReached {
		b.WriteString("\n" + FormatWarning("Some goals are still unfunded at the end of the schedule") + "\n")
	}
	if len(plan.SkippedGoals) > 0 {
		b.WriteString(FormatWarning(fmt.Sprintf("%d goal(s) left out: exchange rate unavailable", len(plan.SkippedGoals))) + "\n")
	}
	return b.String()
}

// RenderPerGoal lists each goal's own monthly requirement and their total.
func RenderPerGoal(plan planning.PerGoalPlan) string {
	if len(plan.Goals) == 0 {
		return SubtleStyle.Render("No active goals.") + "\n"
	}

	rows := make([][]string, 0, len(plan.Goals))
	for _, r := range plan.Goals {
		rows = append(rows, []string{
			r.GoalName,
			Money(r.Remaining, r.Currency),
			r.Deadline.Format(dateLayout),
			strconv.Itoa(r.MonthsRemaining),
			Money(r.RequiredMonthly, r.Currency),
			StatusBadge(r.Status),
		})
	}
	var b strings.Builder
	b.WriteString(Table([]string{"Goal", "Remaining", "Deadline", "Months", "Monthly", "Status"}, rows))
	b.WriteString("\n" + BoldStyle.Render("Total per month: ") + Money(plan.Total, plan.Currency) + "\n")
	if len(plan.SkippedGoals) > 0 {
		b.WriteString(FormatWarning(fmt.Sprintf("%d goal(s) left out of the total: exchange rate unavailable", len(plan.SkippedGoals))) + "\n")
	}
	return b.String()
}

// RenderWhatIf shows a hypothetical plan's verdict and projected
// completion dates.
func RenderWhatIf(result planning.WhatIfResult) string {
	var b strings.Builder
	b.WriteString(RenderFeasibility(result.Feasibility, result.Plan.MonthlyBudget))
	b.WriteString("\n")

	rows := make([][]string, 0, len(result.Projections))
	for _, p := range result.Projections {
		completion := ErrorStyle.Render("beyond schedule")
		if p.CompletionDate != nil {
			completion = p.CompletionDate.Format(dateLayout)
		}
		verdict := SuccessStyle.Render("on time")
		if !p.OnTime {
			verdict = ErrorStyle.Render("late")
		}
		rows = append(rows, []string{p.GoalName, p.Deadline.Format(dateLayout), completion, verdict})
	}
	b.WriteString(Table([]string{"Goal", "Deadline", "Funded by", ""}, rows))
	return b.String()
}

// RenderMonth shows an execution month and how each tracked goal moved.
func RenderMonth(m execution.MonthProgress, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", BoldStyle.Render(m.Record.MonthLabel), string(m.Record.Status))

	if m.Record.CanUndoUntil != nil && m.Record.CanUndo(now) {
		b.WriteString(SubtleStyle.Render("Undo available until "+m.Record.CanUndoUntil.Local().Format("2006-01-02 15:04")) + "\n")
	}
	if len(m.Goals) == 0 {
		return b.String()
	}

	b.WriteString("\n")
	rows := make([][]string, 0, len(m.Goals))
	for _, g := range m.Goals {
		delta := g.Delta.StringFixed(2)
		if g.Delta.IsPositive() {
			delta = SuccessStyle.Render("+" + delta)
		}
		rows = append(rows, []string{
			g.Goal.Name,
			Money(g.Baseline, g.Goal.Currency),
			Money(g.Current, g.Goal.Currency),
			delta,
			Money(g.Target, g.Goal.Currency),
		})
	}
	b.WriteString(Table([]string{"Goal", "Start of month", "Now", "Change", "Target"}, rows))

	if m.Frozen {
		b.WriteString(SubtleStyle.Render("Totals frozen when the month was closed.") + "\n")
	} else if m.Stale() {
		b.WriteString(FormatWarning("rates unavailable, some allocations were left out") + "\n")
	}
	return b.String()
}
