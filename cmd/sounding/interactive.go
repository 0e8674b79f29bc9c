package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"

	"github.com/unbound-force/sounding/internal/engine"
	"github.com/unbound-force/sounding/internal/taxonomy"
)

// keyMap defines keybindings for the interactive TUI.
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Quit     key.Binding
	Help     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Quit, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Quit, k.Help},
	}
}

var defaultKeyMap = keyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("^/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("v/j", "down")),
	PageUp:   key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
	PageDown: key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
}

// Styles for the TUI.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			MarginBottom(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	tuiHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	tuiBorderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63"))

	tierCriticalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	tierHighStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	tierMediumStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

// maxMessage is the widest finding message shown before truncation.
const maxMessage = 50

// analyzeModel is the Bubble Tea model for browsing a report.
type analyzeModel struct {
	rpt      *engine.Report
	viewport viewport.Model
	help     help.Model
	keys     keyMap
	ready    bool
	content  string
}

func newAnalyzeModel(rpt *engine.Report) analyzeModel {
	return analyzeModel{
		rpt:     rpt,
		help:    help.New(),
		keys:    defaultKeyMap,
		content: renderAnalyzeContent(rpt),
	}
}

func renderAnalyzeContent(rpt *engine.Report) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(
		fmt.Sprintf("Sounding Analysis: %d module(s), %d issue(s)",
			rpt.Summary.Modules, rpt.Summary.TotalIssues)))
	sb.WriteString("\n\n")

	for _, m := range rpt.Modules {
		sb.WriteString(tuiHeaderStyle.Render(fmt.Sprintf("=== %s ===", m.Name)))
		sb.WriteString("\n")
		detail := fmt.Sprintf("    %s, %d file(s)", m.Language, m.Files)
		if m.APOSD != nil {
			detail += fmt.Sprintf(", %s, %s cognitive load",
				m.APOSD.Depth.Classification().Label(),
				m.APOSD.Cognitive.Level().Label())
		}
		sb.WriteString(statusStyle.Render(detail))
		sb.WriteString("\n")

		findings := rpt.FindingsFor(m.Name)
		if len(findings) == 0 {
			sb.WriteString(statusStyle.Render("    No findings."))
			sb.WriteString("\n\n")
			continue
		}

		rows := make([][]string, 0, len(findings))
		for _, f := range findings {
			rows = append(rows, []string{
				string(f.Tier),
				f.Kind,
				ansi.Truncate(f.Message, maxMessage, "..."),
			})
		}

		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(tuiBorderStyle).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return tuiHeaderStyle
				}
				if col == 0 && row >= 0 && row < len(rows) {
					switch taxonomy.Tier(rows[row][0]) {
					case taxonomy.TierCritical:
						return tierCriticalStyle
					case taxonomy.TierHigh:
						return tierHighStyle
					case taxonomy.TierMedium:
						return tierMediumStyle
					}
				}
				return lipgloss.NewStyle()
			}).
			Headers("TIER", "KIND", "MESSAGE").
			Rows(rows...)

		sb.WriteString(t.String())
		sb.WriteString("\n\n")
	}

	if n := len(rpt.Warnings); n > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("%d warning(s):", n)))
		sb.WriteString("\n")
		for _, w := range rpt.Warnings {
			sb.WriteString(statusStyle.Render("    " + w))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func (m analyzeModel) Init() tea.Cmd {
	return nil
}

func (m analyzeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		footerHeight := 2

		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-footerHeight)
			m.viewport.SetContent(m.content)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - footerHeight
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m analyzeModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	footer := statusStyle.Render(
		fmt.Sprintf(" %3.f%% ", m.viewport.ScrollPercent()*100)) +
		" " + m.help.View(m.keys)

	return m.viewport.View() + "\n" + footer
}

// runInteractiveAnalyze launches the Bubble Tea TUI for browsing the
// report.
func runInteractiveAnalyze(rpt *engine.Report) error {
	model := newAnalyzeModel(rpt)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}
