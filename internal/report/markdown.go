package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/unbound-force/sounding/internal/connascence"
	"github.com/unbound-force/sounding/internal/engine"
)

// WriteMarkdown writes the report as markdown. Each module section
// embeds the connascence and temporal summaries unchanged.
func WriteMarkdown(w io.Writer, rpt *engine.Report) error {
	var b strings.Builder
	b.WriteString("# Design Quality Report\n\n")
	fmt.Fprintf(&b, "**Root**: `%s`\n", rpt.Root)
	fmt.Fprintf(&b, "**Modules**: %d\n", rpt.Summary.Modules)
	fmt.Fprintf(&b, "**Total Issues**: %d\n\n", rpt.Summary.TotalIssues)

	writeAPOSDMarkdown(&b, rpt)

	b.WriteString(connascence.RenderSummary(rpt.Connascence))
	b.WriteString("\n")

	for _, m := range rpt.Modules {
		fmt.Fprintf(&b, "# Module: %s\n\n", m.Name)
		b.WriteString(m.Connascence.Summary())
		b.WriteString("\n")
		b.WriteString(m.Temporal.Summary())
		b.WriteString("\n")
	}

	if len(rpt.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, warn := range rpt.Warnings {
			fmt.Fprintf(&b, "- %s\n", warn)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeAPOSDMarkdown(b *strings.Builder, rpt *engine.Report) {
	b.WriteString("## Module Depth (APOSD)\n\n")
	if len(rpt.APOSD.ModuleDepths) == 0 {
		b.WriteString("No Go modules scored.\n\n")
		return
	}

	b.WriteString("| Module | Depth | Ratio | Cognitive Load | Level |\n")
	b.WriteString("|--------|-------|-------|----------------|-------|\n")
	for _, m := range rpt.Modules {
		if m.APOSD == nil {
			continue
		}
		ratio := noValue
		if r, ok := m.APOSD.Depth.DepthRatio(); ok {
			ratio = fmt.Sprintf("%.2f", r)
		}
		fmt.Fprintf(b, "| %s | %s | %s | %.1f | %s |\n",
			m.Name,
			m.APOSD.Depth.Classification().Label(),
			ratio,
			m.APOSD.Cognitive.Score(),
			m.APOSD.Cognitive.Level().Label())
	}
	b.WriteString("\n")

	if pts := rpt.APOSD.ConfirmedPassthroughs(); len(pts) > 0 {
		b.WriteString("### Pass-through Methods\n\n")
		for _, p := range pts {
			fmt.Fprintf(b, "- `%s` delegates to `%s` (%.0f%% confidence)\n",
				p.MethodName, p.DelegatedTo, p.Confidence*100)
		}
		b.WriteString("\n")
	}
}
