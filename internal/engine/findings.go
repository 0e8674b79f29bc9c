package engine

import (
	"fmt"
	"sort"

	"github.com/unbound-force/sounding/internal/aposd"
	"github.com/unbound-force/sounding/internal/taxonomy"
	"github.com/unbound-force/sounding/internal/temporal"
)

// Finding kinds for APOSD issues.
const (
	KindShallowModule     = "ShallowModule"
	KindHighCognitiveLoad = "HighCognitiveLoad"
	KindPassThrough       = "PassThrough"
)

// APOSD severities. The scorer classifies but does not weigh its
// issues; these place them among the other analyzers' tiers.
const (
	veryShallowSeverity  = 0.7
	shallowSeverity      = 0.5
	veryHighLoadSeverity = 0.8
	highLoadSeverity     = 0.6
	passthroughSeverity  = 0.4
)

func aposdFindings(a *aposd.Analysis) []taxonomy.Finding {
	var out []taxonomy.Finding

	for _, m := range a.ShallowModules() {
		sev := shallowSeverity
		class := m.Classification()
		if class == aposd.VeryShallow {
			sev = veryShallowSeverity
		}
		ratio, _ := m.DepthRatio()
		out = append(out, taxonomy.NewFinding(taxonomy.CategoryAPOSD, KindShallowModule,
			m.ModuleName, "", sev,
			fmt.Sprintf("%s module: depth ratio %.2f", class.Label(), ratio),
			"Hide more implementation behind fewer public functions, or merge the module into its callers"))
	}

	for _, c := range a.HighLoadModules() {
		sev := highLoadSeverity
		level := c.Level()
		if level == aposd.LoadVeryHigh {
			sev = veryHighLoadSeverity
		}
		out = append(out, taxonomy.NewFinding(taxonomy.CategoryAPOSD, KindHighCognitiveLoad,
			c.ModuleName, "", sev,
			fmt.Sprintf("%s cognitive load: score %.1f", level.Label(), c.Score()),
			"Reduce the public surface and dependencies, or split the module by responsibility"))
	}

	for _, p := range a.ConfirmedPassthroughs() {
		f := taxonomy.NewFinding(taxonomy.CategoryAPOSD, KindPassThrough,
			p.ModuleName, p.MethodName, passthroughSeverity,
			fmt.Sprintf("%s only forwards to %s (%d of %d parameters)",
				p.MethodName, p.DelegatedTo, p.ParamsPassedThrough, p.TotalParams),
			"Inline the method into its callers or give it behavior of its own")
		f.File, f.Line = p.File, p.Line
		out = append(out, f)
	}
	return out
}

// connascenceFindings reports the high-strength instances; weaker
// kinds are counted in the stats only.
func connascenceFindings(res ModuleResult) []taxonomy.Finding {
	var out []taxonomy.Finding
	for _, inst := range res.Connascence.HighStrengthInstances() {
		msg := inst.Context
		if msg == "" {
			msg = inst.Kind.Description()
		}
		f := taxonomy.NewFinding(taxonomy.CategoryConnascence, string(inst.Kind),
			res.Name, inst.Target, inst.Kind.Strength(), msg, inst.Kind.Suggestion())
		f.Line = inst.Line
		out = append(out, f)
	}
	return out
}

func temporalFindings(res ModuleResult) []taxonomy.Finding {
	out := make([]taxonomy.Finding, 0, len(res.Temporal.Instances))
	for _, inst := range res.Temporal.Instances {
		out = append(out, taxonomy.NewFinding(taxonomy.CategoryTemporal,
			string(inst.Pattern.Kind()), res.Name, temporal.Subject(inst.Pattern),
			inst.Severity, inst.Description, inst.Suggestion))
	}
	return out
}

// sortFindings orders by severity, most severe first, then by module,
// category and ID for a stable report.
func sortFindings(fs []taxonomy.Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.ID < b.ID
	})
}

// HighFindings returns the findings at High tier or above.
func (r *Report) HighFindings() []taxonomy.Finding {
	var out []taxonomy.Finding
	for _, f := range r.Findings {
		if taxonomy.IsHigh(f.Severity) {
			out = append(out, f)
		}
	}
	return out
}

// FindingsFor returns the findings of one module, in report order.
func (r *Report) FindingsFor(module string) []taxonomy.Finding {
	var out []taxonomy.Finding
	for _, f := range r.Findings {
		if f.Module == module {
			out = append(out, f)
		}
	}
	return out
}
