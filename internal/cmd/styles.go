package cmd

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/conflux/internal/approval"
	"github.com/Iron-Ham/conflux/internal/conflict"
)

var (
	primaryColor   = lipgloss.Color("#A78BFA") // Purple
	secondaryColor = lipgloss.Color("#10B981") // Green
	warningColor   = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#F87171") // Red
	mutedColor     = lipgloss.Color("#9CA3AF") // Gray
	orangeColor    = lipgloss.Color("#FB923C")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	successStyle = lipgloss.NewStyle().Foreground(secondaryColor)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	labelStyle   = lipgloss.NewStyle().Foreground(mutedColor).Width(14)
)

func priorityStyle(p conflict.Priority) lipgloss.Style {
	switch p {
	case conflict.PriorityCritical:
		return lipgloss.NewStyle().Bold(true).Foreground(errorColor)
	case conflict.PriorityHigh:
		return lipgloss.NewStyle().Foreground(orangeColor)
	case conflict.PriorityMedium:
		return warningStyle
	default:
		return mutedStyle
	}
}

func stepStyle(s approval.StepStatus) lipgloss.Style {
	switch s {
	case approval.StepApproved:
		return successStyle
	case approval.StepRejected:
		return errorStyle
	case approval.StepSkipped:
		return mutedStyle
	default:
		return warningStyle
	}
}

func workflowStyle(s approval.Status) lipgloss.Style {
	switch s {
	case approval.StatusComplete:
		return successStyle
	case approval.StatusBlocked:
		return errorStyle
	default:
		return warningStyle
	}
}
