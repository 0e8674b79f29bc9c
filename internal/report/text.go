package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"

	"github.com/unbound-force/sounding/internal/aposd"
	"github.com/unbound-force/sounding/internal/engine"
	"github.com/unbound-force/sounding/internal/taxonomy"
)

// noValue fills cells that do not apply to a module.
const noValue = "-"

// WriteText writes the report as human-readable styled text to the
// writer. Output uses lipgloss for color and formatting when the
// output is a TTY; degrades gracefully for pipes and CI.
func WriteText(w io.Writer, rpt *engine.Report) error {
	s := DefaultStyles()

	fmt.Fprintln(w, s.Header.Render("=== Design Quality ==="))
	fmt.Fprintln(w, s.SubHeader.Render(fmt.Sprintf("    %s", rpt.Root)))
	fmt.Fprintln(w)

	writeModules(w, rpt, s)

	if pts := rpt.APOSD.ConfirmedPassthroughs(); len(pts) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, s.Header.Render("Pass-through methods"))
		writePassthroughs(w, pts, s)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, s.Header.Render("High-severity findings"))
	if high := rpt.HighFindings(); len(high) > 0 {
		writeFindings(w, high, s)
	} else {
		fmt.Fprintln(w, s.Muted.Render("    No high-severity findings."))
	}

	fmt.Fprintln(w)
	writeSummary(w, rpt, s)
	return nil
}

func writeModules(w io.Writer, rpt *engine.Report, s Styles) {
	type styled struct {
		depth, load lipgloss.Style
	}
	rows := make([][]string, 0, len(rpt.Modules))
	cellStyles := make([]styled, 0, len(rpt.Modules))
	for _, m := range rpt.Modules {
		depth, ratio, load := noValue, noValue, noValue
		st := styled{depth: s.TableCell, load: s.TableCell}
		if m.APOSD != nil {
			class := m.APOSD.Depth.Classification()
			depth = class.Label()
			st.depth = s.DepthStyle(class)
			if r, ok := m.APOSD.Depth.DepthRatio(); ok {
				ratio = fmt.Sprintf("%.2f", r)
			}
			level := m.APOSD.Cognitive.Level()
			load = fmt.Sprintf("%.1f", m.APOSD.Cognitive.Score())
			st.load = s.LoadStyle(level)
		}
		rows = append(rows, []string{
			m.Name,
			m.Language,
			depth,
			ratio,
			load,
			fmt.Sprintf("%d", len(rpt.FindingsFor(m.Name))),
		})
		cellStyles = append(cellStyles, st)
	}

	t := table.New().
		Width(76).
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.Border).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.TableHeader
			}
			if row >= 0 && row < len(cellStyles) {
				switch col {
				case 2:
					return cellStyles[row].depth
				case 4:
					return cellStyles[row].load
				}
			}
			return s.TableCell
		}).
		Headers("MODULE", "LANG", "DEPTH", "RATIO", "LOAD", "ISSUES").
		Rows(rows...)

	fmt.Fprintln(w, t)
}

func writePassthroughs(w io.Writer, pts []aposd.PassThroughMethodInfo, s Styles) {
	rows := make([][]string, 0, len(pts))
	for _, p := range pts {
		rows = append(rows, []string{
			p.MethodName,
			truncate(p.DelegatedTo, 28),
			fmt.Sprintf("%.0f%%", p.Confidence*100),
			p.ModuleName,
		})
	}

	t := table.New().
		Width(76).
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.Border).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.TableHeader
			}
			return s.TableCell
		}).
		Headers("METHOD", "DELEGATES TO", "CONF", "MODULE").
		Rows(rows...)

	fmt.Fprintln(w, t)
}

func writeFindings(w io.Writer, findings []taxonomy.Finding, s Styles) {
	// TIER=8, MODULE=16, KIND=16; the message gets what is left of 76.
	const maxMessage = 24
	rows := make([][]string, 0, len(findings))
	tiers := make([]taxonomy.Tier, 0, len(findings))
	for _, f := range findings {
		rows = append(rows, []string{
			string(f.Tier),
			truncate(f.Module, 16),
			f.Kind,
			truncate(f.Message, maxMessage),
		})
		tiers = append(tiers, f.Tier)
	}

	t := table.New().
		Width(76).
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.Border).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.TableHeader
			}
			if col == 0 && row >= 0 && row < len(tiers) {
				return s.TierStyle(tiers[row])
			}
			return s.TableCell
		}).
		Headers("TIER", "MODULE", "KIND", "MESSAGE").
		Rows(rows...)

	fmt.Fprintln(w, t)

	counts := make(map[taxonomy.Tier]int)
	for _, tier := range tiers {
		counts[tier]++
	}
	var parts []string
	for _, tier := range []taxonomy.Tier{taxonomy.TierCritical, taxonomy.TierHigh, taxonomy.TierMedium} {
		if c, ok := counts[tier]; ok {
			parts = append(parts, s.TierStyle(tier).Render(fmt.Sprintf("%s: %d", tier, c)))
		}
	}
	fmt.Fprintf(w, "    Tiers: %s\n", strings.Join(parts, ", "))
}

func writeSummary(w io.Writer, rpt *engine.Report, s Styles) {
	sum := rpt.Summary
	ratio := noValue
	if sum.AverageDepthRatio != nil {
		ratio = fmt.Sprintf("%.2f", *sum.AverageDepthRatio)
	}

	line := func(label, value string) {
		fmt.Fprintf(w, "%s%s\n", s.SummaryLabel.Render(label), s.SummaryValue.Render(value))
	}
	line("Modules", fmt.Sprintf("%d", sum.Modules))
	line("Shallow modules", fmt.Sprintf("%d", sum.APOSD.ShallowModules))
	line("Pass-through methods", fmt.Sprintf("%d", sum.APOSD.PassthroughMethods))
	line("High cognitive load", fmt.Sprintf("%d", sum.APOSD.HighCognitiveLoad))
	line("Average depth ratio", ratio)
	line("Average cognitive load", fmt.Sprintf("%.1f", sum.AverageCognitiveLoad))
	line("Connascence", fmt.Sprintf("%d instance(s), average strength %.2f, %d high",
		sum.ConnascenceTotal, sum.ConnascenceAverageStrength, sum.ConnascenceHighStrength))
	line("Temporal coupling", fmt.Sprintf("%d issue(s), %d high",
		sum.TemporalIssues, sum.TemporalHighSeverity))

	fmt.Fprintf(w, "\n%s\n", s.Header.Render(fmt.Sprintf(
		"%d module(s) analyzed, %d issue(s) detected", sum.Modules, sum.TotalIssues)))
	if n := len(rpt.Warnings); n > 0 {
		fmt.Fprintln(w, s.Muted.Render(fmt.Sprintf("%d unit(s) skipped with warnings", n)))
	}
}

func truncate(s string, max int) string {
	return ansi.Truncate(s, max, "...")
}
