// Package ui holds the grove CLI theme.
// Kept intentionally small: reusable styles, a few icons, and the XP bar.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	IconTree    = "🌳"
	IconSprout  = "🌱"
	IconSparkle = "✨"
	IconCloud   = "☁️"
	IconWarn    = "⚠️"
	IconError   = "🧨"
)

var (
	cPrimary = lipgloss.Color("35")  // green
	cAccent  = lipgloss.Color("205") // magenta
	cGood    = lipgloss.Color("42")
	cWarn    = lipgloss.Color("214") // orange
	cBad     = lipgloss.Color("196") // red
	cMuted   = lipgloss.Color("244") // gray
	cGold    = lipgloss.Color("220")
)

var (
	Title = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	Key   = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Good  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	Warn  = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	Bad   = lipgloss.NewStyle().Bold(true).Foreground(cBad)
	Gold  = lipgloss.NewStyle().Bold(true).Foreground(cGold)
	Muted = lipgloss.NewStyle().Foreground(cMuted)

	BadgeLevelUp = lipgloss.NewStyle().Bold(true).Foreground(cGold).Render("LEVEL UP")
)

func Heading(icon string, title string) string {
	icon = strings.TrimSpace(icon)
	if icon != "" {
		icon += " "
	}
	return Title.Render(icon + title)
}

func LabelValue(label string, value any) string {
	return fmt.Sprintf("%s %v", Key.Render(label+":"), value)
}

// SyncStatusText colors a sync status word.
func SyncStatusText(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "synced", "online":
		return Good.Render(status)
	case "syncing":
		return Warn.Render(status)
	case "offline", "error":
		return Bad.Render(status)
	default:
		return Muted.Render(status)
	}
}

// ProgressBar renders a fixed-width bar for a [0,1] fraction.
func ProgressBar(fraction float64, width int) string {
	if width <= 3 {
		width = 3
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction * float64(width))
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("[%s] %3.0f%%", bar, fraction*100)
}
