package temporal

import (
	"fmt"
	"strings"

	"github.com/unbound-force/sounding/internal/taxonomy"
)

// maxListedMethods is how many lifecycle methods a summary row names
// before eliding the rest.
const maxListedMethods = 3

// Summary renders the analysis as markdown.
func (a *Analyzer) Summary() string {
	var b strings.Builder
	b.WriteString("## Temporal Coupling Analysis\n\n")

	s := a.Stats
	if len(a.Instances) == 0 && len(s.Destructors) == 0 && len(s.GuardPatterns) == 0 {
		b.WriteString("No temporal coupling patterns detected.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "**Total Issues**: %d\n\n", s.TotalIssues)

	if len(s.Destructors) > 0 || len(s.GuardPatterns) > 0 {
		b.WriteString("### RAII Patterns (Positive)\n\n")
		b.WriteString("These patterns help prevent temporal coupling issues:\n\n")
		if len(s.Destructors) > 0 {
			fmt.Fprintf(&b, "- **Destructor implementations**: %d types with automatic cleanup\n", len(s.Destructors))
		}
		if len(s.GuardPatterns) > 0 {
			fmt.Fprintf(&b, "- **Guard patterns**: %d auto-release guards used\n", len(s.GuardPatterns))
		}
		b.WriteString("\n")
	}

	if len(s.PairedOperations) > 0 {
		b.WriteString("### Paired Operations\n\n")
		b.WriteString("| Operation | Open | Close | Status |\n")
		b.WriteString("|-----------|------|-------|--------|\n")
		for _, p := range s.PairedOperations {
			status := "Imbalanced"
			if p.Balanced() {
				status = "Balanced"
			}
			fmt.Fprintf(&b, "| %s | %d | %d | %s |\n", p.Operation, p.OpenCount, p.CloseCount, status)
		}
		b.WriteString("\n")
	}

	if s.AsyncSpawns > 0 || s.AsyncJoins > 0 {
		b.WriteString("### Async Task Management\n\n")
		b.WriteString("| Metric | Count |\n")
		b.WriteString("|--------|-------|\n")
		fmt.Fprintf(&b, "| Spawns | %d |\n", s.AsyncSpawns)
		fmt.Fprintf(&b, "| Joins/Awaits | %d |\n", s.AsyncJoins)
		if s.AsyncSpawns > s.AsyncJoins {
			b.WriteString("\n**Warning**: More spawns than joins detected.\n")
		}
		b.WriteString("\n")
	}

	if len(s.LifecycleMethods) > 0 {
		b.WriteString("### Lifecycle Methods\n\n")
		b.WriteString("| Phase | Methods |\n")
		b.WriteString("|-------|--------|\n")
		for _, phase := range AllPhases {
			methods := s.LifecycleMethods[phase]
			if len(methods) == 0 {
				continue
			}
			list := strings.Join(methods, ", ")
			if len(methods) > maxListedMethods {
				list = fmt.Sprintf("%s, ... (%d total)",
					strings.Join(methods[:maxListedMethods], ", "), len(methods))
			}
			fmt.Fprintf(&b, "| %s | %s |\n", phase.Description(), list)
		}
		b.WriteString("\n")
	}

	if len(s.ManualAllocations) > 0 {
		b.WriteString("### Unsafe Manual Resource Management\n\n")
		b.WriteString("**Warning**: Manual memory management detected. Ensure proper cleanup.\n\n")
		for _, op := range s.ManualAllocations {
			fmt.Fprintf(&b, "- `%s`\n", op)
		}
		b.WriteString("\n")
	}

	if high := a.HighSeverityInstances(); len(high) > 0 {
		b.WriteString("### Issues Detected\n\n")
		for _, inst := range high {
			fmt.Fprintf(&b, "- **[%s]** %s\n", taxonomy.TierOf(inst.Severity), inst.Description)
			fmt.Fprintf(&b, "  - Suggestion: %s\n", inst.Suggestion)
		}
		b.WriteString("\n")
	}

	return b.String()
}
