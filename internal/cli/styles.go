// Package cli renders goalpost state for the terminal using lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette. Status colors follow the feasibility levels: achievable, at
// risk and critical.
var (
	AccentColor   = lipgloss.Color("#5B8DEF")
	FundedColor   = lipgloss.Color("#4ECDC4")
	AtRiskColor   = lipgloss.Color("#FFE66D")
	CriticalColor = lipgloss.Color("#FF6B6B")
	NoteColor     = lipgloss.Color("#95E1D3")
	MutedColor    = lipgloss.Color("#666666")
)

var (
	TitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(AccentColor).MarginBottom(1)
	SuccessStyle  = lipgloss.NewStyle().Foreground(FundedColor)
	WarningStyle  = lipgloss.NewStyle().Foreground(AtRiskColor)
	ErrorStyle    = lipgloss.NewStyle().Foreground(CriticalColor)
	InfoStyle     = lipgloss.NewStyle().Foreground(NoteColor)
	SubtleStyle   = lipgloss.NewStyle().Foreground(MutedColor)
	BoldStyle     = lipgloss.NewStyle().Bold(true)
	PromptStyle   = lipgloss.NewStyle().Bold(true).Foreground(AccentColor)

	// TableHeaderStyle and TableCellStyle get a per-column Width in Table.
	TableHeaderStyle = lipgloss.NewStyle().Bold(true).PaddingRight(2)
	TableCellStyle   = lipgloss.NewStyle().PaddingRight(2)
)

const (
	SuccessIcon  = "✓"
	ErrorIcon    = "✗"
	WarningIcon  = "⚠️"
	InfoIcon     = "ℹ️"
	GoalIcon     = "🎯"
	CalendarIcon = "📅"
)

// FormatSuccess prefixes a message with a check mark.
func FormatSuccess(message string) string {
	return SuccessStyle.Render(SuccessIcon + " " + message)
}

func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

func FormatInfo(message string) string {
	return InfoStyle.Render(InfoIcon + " " + message)
}

// FormatTitle renders a section heading.
func FormatTitle(title string) string {
	return TitleStyle.Render(GoalIcon + " " + title)
}

// FormatPrompt renders a question waiting for input on the same line.
func FormatPrompt(prompt string) string {
	return PromptStyle.Render(prompt + " → ")
}
