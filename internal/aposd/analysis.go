package aposd

import "sort"

// confirmedConfidence is the confidence a pass-through verdict must
// exceed to count as an issue.
const confirmedConfidence = 0.7

// Analysis aggregates per-module scores for a project.
type Analysis struct {
	ModuleDepths       map[string]ModuleDepthMetrics   `json:"module_depths"`
	CognitiveLoads     map[string]CognitiveLoadMetrics `json:"cognitive_loads"`
	PassthroughMethods []PassThroughMethodInfo         `json:"passthrough_methods"`
}

// NewAnalysis returns an empty Analysis.
func NewAnalysis() *Analysis {
	return &Analysis{
		ModuleDepths:       make(map[string]ModuleDepthMetrics),
		CognitiveLoads:     make(map[string]CognitiveLoadMetrics),
		PassthroughMethods: []PassThroughMethodInfo{},
	}
}

// Add merges one module's score. The caller must not add the same
// module twice.
func (a *Analysis) Add(s *ModuleScore) {
	a.ModuleDepths[s.Depth.ModuleName] = s.Depth
	a.CognitiveLoads[s.Cognitive.ModuleName] = s.Cognitive
	a.PassthroughMethods = append(a.PassthroughMethods, s.Passthroughs...)
}

// ShallowModules returns the shallow modules sorted by name.
func (a *Analysis) ShallowModules() []ModuleDepthMetrics {
	var out []ModuleDepthMetrics
	for _, m := range a.ModuleDepths {
		if m.IsShallow() {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModuleName < out[j].ModuleName })
	return out
}

// HighLoadModules returns the high-load modules sorted by name.
func (a *Analysis) HighLoadModules() []CognitiveLoadMetrics {
	var out []CognitiveLoadMetrics
	for _, m := range a.CognitiveLoads {
		if m.IsHighLoad() {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModuleName < out[j].ModuleName })
	return out
}

// ConfirmedPassthroughs returns pass-throughs whose verdict holds
// with confidence above 0.7.
func (a *Analysis) ConfirmedPassthroughs() []PassThroughMethodInfo {
	var out []PassThroughMethodInfo
	for _, p := range a.PassthroughMethods {
		if p.IsPassthrough && p.Confidence > confirmedConfidence {
			out = append(out, p)
		}
	}
	return out
}

// AverageDepthRatio is the mean over modules with a defined ratio.
// ok is false when no module has one.
func (a *Analysis) AverageDepthRatio() (avg float64, ok bool) {
	var sum float64
	n := 0
	for _, m := range a.ModuleDepths {
		if r, defined := m.DepthRatio(); defined {
			sum += r
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// AverageCognitiveLoad is the mean load score, 0 when empty.
func (a *Analysis) AverageCognitiveLoad() float64 {
	if len(a.CognitiveLoads) == 0 {
		return 0
	}
	var sum float64
	for _, m := range a.CognitiveLoads {
		sum += m.Score()
	}
	return sum / float64(len(a.CognitiveLoads))
}

// IssueCounts tallies APOSD issues by category.
type IssueCounts struct {
	ShallowModules     int `json:"shallow_modules"`
	PassthroughMethods int `json:"passthrough_methods"`
	HighCognitiveLoad  int `json:"high_cognitive_load"`
}

// Total is the sum of all categories.
func (c IssueCounts) Total() int {
	return c.ShallowModules + c.PassthroughMethods + c.HighCognitiveLoad
}

// HasIssues reports whether any category is non-zero.
func (c IssueCounts) HasIssues() bool {
	return c.Total() > 0
}

// IssueCounts computes the per-category issue tallies.
func (a *Analysis) IssueCounts() IssueCounts {
	return IssueCounts{
		ShallowModules:     len(a.ShallowModules()),
		PassthroughMethods: len(a.ConfirmedPassthroughs()),
		HighCognitiveLoad:  len(a.HighLoadModules()),
	}
}
