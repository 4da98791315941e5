package formatter

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/quintalabs/fieldplan/internal/domain"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
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
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// BandStyle returns the style for a performance band.
func BandStyle(band domain.PerformanceBand) lipgloss.Style {
	switch band {
	case domain.BandExcellent, domain.BandGood:
		return StyleGreen
	case domain.BandAverage:
		return StyleYellow
	case domain.BandBelowAverage, domain.BandPoor:
		return StyleRed
	default:
		return StyleDim
	}
}

// StatusStyle returns the style for a plan status.
func StatusStyle(status domain.PlanStatus) lipgloss.Style {
	switch status {
	case domain.PlanActive:
		return StyleGreen
	case domain.PlanDrafted:
		return StyleYellow
	case domain.PlanAnalyzed, domain.PlanRevised:
		return StyleBlue
	case domain.PlanClosed:
		return StyleDim
	default:
		return StyleFg
	}
}

// VerdictIndicator returns a colored marker for an area verdict.
func VerdictIndicator(v domain.AreaVerdict) string {
	switch v {
	case domain.AreaCovered:
		return StyleGreen.Render("● COVERED")
	case domain.AreaMissed:
		return StyleRed.Render("● MISSED")
	case domain.AreaUnplanned:
		return StyleYellow.Render("● UNPLANNED")
	default:
		return StyleDim.Render("● UNKNOWN")
	}
}
