package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/tally/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

// Predefined lipgloss styles.
var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// ProjectStatusPill returns a colored indicator such as "● Active".
func ProjectStatusPill(status domain.ProjectStatus) string {
	switch status {
	case domain.ProjectPlanning:
		return StyleBlue.Render("○ Planning")
	case domain.ProjectActive:
		return StyleGreen.Render("● Active")
	case domain.ProjectOnHold:
		return StyleYellow.Render("◐ On hold")
	case domain.ProjectCompleted:
		return StyleDim.Render("✔ Completed")
	case domain.ProjectCancelled:
		return StyleDim.Render("✖ Cancelled")
	default:
		return placeholderPill(string(status))
	}
}

func TaskStatusPill(status domain.TaskStatus) string {
	switch status {
	case domain.TaskTodo:
		return StyleBlue.Render("○ Todo")
	case domain.TaskInProgress:
		return StyleGreen.Render("● In progress")
	case domain.TaskReview:
		return StylePurple.Render("◐ Review")
	case domain.TaskDone:
		return StyleDim.Render("✔ Done")
	default:
		return placeholderPill(string(status))
	}
}

func SprintStatusPill(status domain.SprintStatus) string {
	switch status {
	case domain.SprintPlanned:
		return StyleBlue.Render("○ Planned")
	case domain.SprintActive:
		return StyleGreen.Render("● Active")
	case domain.SprintCompleted:
		return StyleDim.Render("✔ Completed")
	default:
		return placeholderPill(string(status))
	}
}

func ContractStatusPill(status domain.ContractStatus) string {
	switch status {
	case domain.ContractDraft:
		return StyleBlue.Render("○ Draft")
	case domain.ContractActive:
		return StyleGreen.Render("● Active")
	case domain.ContractExpired:
		return StyleYellow.Render("◌ Expired")
	case domain.ContractTerminated:
		return StyleRed.Render("✖ Terminated")
	default:
		return placeholderPill(string(status))
	}
}

// PriorityBadge colors a task priority; urgent work stands out in red.
func PriorityBadge(p domain.TaskPriority) string {
	switch p {
	case domain.PriorityUrgent:
		return StyleRed.Render("▲ urgent")
	case domain.PriorityHigh:
		return StyleYellow.Render("high")
	case domain.PriorityMedium:
		return StyleFg.Render("medium")
	case domain.PriorityLow:
		return StyleDim.Render("low")
	default:
		return Dim("--")
	}
}

func placeholderPill(s string) string {
	if s == "" {
		return Dim("--")
	}
	return StyleDim.Render(s)
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", lipgloss.Width(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

// Dim renders text in the muted/dim color.
func Dim(text string) string {
	return StyleDim.Render(text)
}

// Bold renders text in bold with the foreground color.
func Bold(text string) string {
	return StyleBold.Render(text)
}
