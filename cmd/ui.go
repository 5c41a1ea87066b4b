package cmd

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kilianp07/droneops/core/model"
)

var (
	colorPass   = lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#c2d94c"}
	colorWarn   = lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"}
	colorFail   = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}
	colorAccent = lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"}

	passStyle     = lipgloss.NewStyle().Foreground(colorPass)
	warnStyle     = lipgloss.NewStyle().Foreground(colorWarn)
	failStyle     = lipgloss.NewStyle().Foreground(colorFail)
	mutedStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	categoryStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	boxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorMuted).Padding(0, 1)
)

const separator = "──────────────────────────────────────────"

func category(s string) string { return categoryStyle.Render(strings.ToUpper(s)) }

func muted(s string) string { return mutedStyle.Render(s) }

func severity(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return failStyle.Render("✗ " + s.String())
	case model.SeverityWarning:
		return warnStyle.Render("⚠ " + s.String())
	default:
		return mutedStyle.Render("ℹ " + s.String())
	}
}

func ok(s string) string { return passStyle.Render("✓ " + s) }

func fail(s string) string { return failStyle.Render("✗ " + s) }
