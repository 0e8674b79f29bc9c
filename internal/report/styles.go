package report

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/unbound-force/sounding/internal/aposd"
	"github.com/unbound-force/sounding/internal/taxonomy"
)

// Styles defines the visual theme for terminal report output.
// Lipgloss automatically degrades to no-color when output is not a TTY.
type Styles struct {
	// Header is used for section headers.
	Header lipgloss.Style

	// SubHeader is used for secondary information lines.
	SubHeader lipgloss.Style

	// TierCritical, TierHigh and TierMedium color-code finding tiers.
	TierCritical lipgloss.Style
	TierHigh     lipgloss.Style
	TierMedium   lipgloss.Style

	// TableHeader styles the header row of tables.
	TableHeader lipgloss.Style

	// TableCell styles regular table cells.
	TableCell lipgloss.Style

	// Shallow styles shallow depth classes and high loads.
	Shallow lipgloss.Style

	// Deep styles deep depth classes and low loads.
	Deep lipgloss.Style

	// SummaryLabel styles summary line labels.
	SummaryLabel lipgloss.Style

	// SummaryValue styles summary line values.
	SummaryValue lipgloss.Style

	// Border is used for table borders.
	Border lipgloss.Style

	// Muted is used for de-emphasized text.
	Muted lipgloss.Style
}

// DefaultStyles returns the default color scheme for terminal reports.
func DefaultStyles() Styles {
	return Styles{
		Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		SubHeader: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),

		TierCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		TierHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		TierMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("220")),

		TableHeader: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		TableCell:   lipgloss.NewStyle().PaddingRight(1),

		Shallow: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Deep:    lipgloss.NewStyle().Foreground(lipgloss.Color("40")),

		SummaryLabel: lipgloss.NewStyle().Bold(true).Width(24),
		SummaryValue: lipgloss.NewStyle(),

		Border: lipgloss.NewStyle().Foreground(lipgloss.Color("63")),

		Muted: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// TierStyle returns the appropriate style for a finding tier.
func (s Styles) TierStyle(tier taxonomy.Tier) lipgloss.Style {
	switch tier {
	case taxonomy.TierCritical:
		return s.TierCritical
	case taxonomy.TierHigh:
		return s.TierHigh
	case taxonomy.TierMedium:
		return s.TierMedium
	default:
		return s.Muted
	}
}

// DepthStyle returns the style for a depth class.
func (s Styles) DepthStyle(c aposd.DepthClass) lipgloss.Style {
	switch c {
	case aposd.Shallow, aposd.VeryShallow:
		return s.Shallow
	case aposd.Deep, aposd.VeryDeep:
		return s.Deep
	default:
		return s.TableCell
	}
}

// LoadStyle returns the style for a cognitive load level.
func (s Styles) LoadStyle(l aposd.LoadLevel) lipgloss.Style {
	switch l {
	case aposd.LoadHigh, aposd.LoadVeryHigh:
		return s.Shallow
	case aposd.LoadLow:
		return s.Deep
	default:
		return s.TableCell
	}
}
