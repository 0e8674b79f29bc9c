package temporal

import (
	"fmt"
	"strings"

	"github.com/unbound-force/sounding/internal/taxonomy"
)

// projectWide is the source used for findings that aggregate calls
// when no module has been set.
const projectWide = "project-wide"

// Severities for findings without a table-driven value.
const (
	lifecycleSeverity  = 0.5
	stateCheckSeverity = 0.4
	spawnSeverity      = 0.6
	allocSeverity      = 0.9
	builderSeverity    = 0.3
)

// builderOrderThreshold is the setter count from which a builder is
// reported as order-sensitive.
const builderOrderThreshold = 3

type located struct {
	module string
	name   string
}

// Analyzer accumulates call and definition facts and turns them into
// temporal coupling findings on Analyze. It is not safe for
// concurrent use.
type Analyzer struct {
	Instances []Instance `json:"instances"`
	Stats     Stats      `json:"stats"`

	module string

	// calls maps a lowercased call name to the module of each call.
	calls        map[string][]string
	functionDefs []located
	destructors  []located
	guards       []located
	spawns       []string
	joins        []string
	allocs       []located
	builderOrder []string
	builders     map[string][]string

	analyzed bool
}

// NewAnalyzer returns an empty Analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		Instances: []Instance{},
		Stats:     Stats{LifecycleMethods: make(map[LifecyclePhase][]string)},
		calls:     make(map[string][]string),
		builders:  make(map[string][]string),
	}
}

// SetModule sets the module for subsequent records.
func (a *Analyzer) SetModule(module string) {
	a.module = module
}

func (a *Analyzer) source() string {
	if a.module == "" {
		return projectWide
	}
	return a.module
}

// RecordCall records one call of name. Names are compared
// case-insensitively.
func (a *Analyzer) RecordCall(name string) {
	name = strings.ToLower(name)
	a.calls[name] = append(a.calls[name], a.module)
}

// RecordFunctionDef records a function or method definition.
func (a *Analyzer) RecordFunctionDef(name string) {
	a.functionDefs = append(a.functionDefs, located{a.module, strings.ToLower(name)})
}

// RecordDestructor records a type with automatic or conventional
// cleanup.
func (a *Analyzer) RecordDestructor(typeName string) {
	a.destructors = append(a.destructors, located{a.module, typeName})
}

// RecordGuardUsage records use of a scoped guard.
func (a *Analyzer) RecordGuardUsage(guardType string) {
	a.guards = append(a.guards, located{a.module, guardType})
}

// RecordAsyncSpawn records a call that starts a concurrent task.
func (a *Analyzer) RecordAsyncSpawn(call string) {
	a.spawns = append(a.spawns, call)
}

// RecordAsyncJoin records a call that waits for a concurrent task.
func (a *Analyzer) RecordAsyncJoin(call string) {
	a.joins = append(a.joins, call)
}

// RecordManualAlloc records a manual memory operation.
func (a *Analyzer) RecordManualAlloc(op string) {
	a.allocs = append(a.allocs, located{a.module, op})
}

// RecordBuilderPattern records the chainable setters of a builder
// type. Repeated records for the same type extend its method list.
func (a *Analyzer) RecordBuilderPattern(typeName string, methods []string) {
	existing, ok := a.builders[typeName]
	if !ok {
		a.builderOrder = append(a.builderOrder, typeName)
	}
	for _, m := range methods {
		if !contains(existing, m) {
			existing = append(existing, m)
		}
	}
	a.builders[typeName] = existing
}

// Analyze derives findings and stats from the recorded facts. Only
// the first call has an effect.
func (a *Analyzer) Analyze() {
	if a.analyzed {
		return
	}
	a.analyzed = true

	a.detectPairedOperations()
	a.detectLifecyclePatterns()
	a.detectStateChecks()
	a.detectLanguageSignals()
}

func (a *Analyzer) add(inst Instance, counted bool) {
	a.Instances = append(a.Instances, inst)
	if counted {
		a.Stats.TotalIssues++
	}
}

func (a *Analyzer) detectPairedOperations() {
	for _, p := range PairedOps {
		opens := a.calls[p.Open]
		closes := a.calls[p.Close]
		if len(opens) == 0 && len(closes) == 0 {
			continue
		}

		locations := make([]string, 0, len(opens)+len(closes))
		locations = append(locations, opens...)
		locations = append(locations, closes...)
		a.Stats.PairedOperations = append(a.Stats.PairedOperations, PairedOperationStats{
			Operation:  p.Open + "/" + p.Close,
			OpenCount:  len(opens),
			CloseCount: len(closes),
			Locations:  locations,
		})

		if len(opens) == 0 || len(closes) == 0 || len(opens) == len(closes) {
			continue
		}

		var desc, suggestion string
		if len(opens) > len(closes) {
			desc = fmt.Sprintf("More %s() calls (%d) than %s() calls (%d)",
				p.Open, len(opens), p.Close, len(closes))
			suggestion = fmt.Sprintf("Ensure every %s() has a matching %s(). Consider using defer or a scoped guard.",
				p.Open, p.Close)
		} else {
			desc = fmt.Sprintf("More %s() calls (%d) than %s() calls (%d)",
				p.Close, len(closes), p.Open, len(opens))
			suggestion = fmt.Sprintf("Check if %s() is called without prior %s()", p.Close, p.Open)
		}
		a.add(Instance{
			Pattern:     PairedOperation{Open: p.Open, Close: p.Close},
			Source:      a.source(),
			Severity:    p.Severity,
			Description: desc,
			Suggestion:  suggestion,
		}, true)
	}
}

// phaseOf returns the first phase whose keywords match name.
func phaseOf(name string) (LifecyclePhase, bool) {
	for _, phase := range AllPhases {
		for _, kw := range LifecycleKeywords[phase] {
			if strings.Contains(name, kw) {
				return phase, true
			}
		}
	}
	return 0, false
}

func (a *Analyzer) detectLifecyclePatterns() {
	for _, fn := range a.functionDefs {
		phase, ok := phaseOf(fn.name)
		if !ok {
			continue
		}
		a.Stats.LifecycleMethods[phase] = append(a.Stats.LifecycleMethods[phase], qualify(fn))
	}

	has := func(p LifecyclePhase) bool { return len(a.Stats.LifecycleMethods[p]) > 0 }

	if has(PhaseInitialize) && !has(PhaseCleanup) {
		a.add(Instance{
			Pattern:     LifecycleSequence{Phase: PhaseInitialize, Method: "init*"},
			Source:      a.source(),
			Severity:    lifecycleSeverity,
			Description: "Initialization methods found but no cleanup/teardown methods",
			Suggestion:  "Consider adding cleanup methods to properly release resources",
		}, true)
	}
	if has(PhaseStart) && !has(PhaseStop) {
		a.add(Instance{
			Pattern:     LifecycleSequence{Phase: PhaseStart, Method: "start*"},
			Source:      a.source(),
			Severity:    lifecycleSeverity,
			Description: "Start methods found but no stop methods",
			Suggestion:  "Consider adding stop/shutdown methods for graceful termination",
		}, true)
	}
}

func (a *Analyzer) detectStateChecks() {
	for _, fn := range a.functionDefs {
		for _, sc := range StateCheckPatterns {
			if !strings.Contains(fn.name, sc.Check) {
				continue
			}
			a.Stats.StateChecks = append(a.Stats.StateChecks, qualify(fn))
			a.add(Instance{
				Pattern:     StateCheck{CheckMethod: fn.name, ImpliedPrerequisite: sc.Implies},
				Source:      sourceOf(fn.module),
				Severity:    stateCheckSeverity,
				Description: fmt.Sprintf("State check '%s' implies temporal dependency on %s", fn.name, sc.Implies),
				Suggestion:  "Document the required call order or use type-state pattern to enforce it at compile time",
			}, true)
			break
		}
	}
}

func (a *Analyzer) detectLanguageSignals() {
	for _, d := range a.destructors {
		a.Stats.Destructors = append(a.Stats.Destructors, qualify(d))
	}
	for _, g := range a.guards {
		a.Stats.GuardPatterns = append(a.Stats.GuardPatterns, qualify(g))
	}

	a.Stats.AsyncSpawns = len(a.spawns)
	a.Stats.AsyncJoins = len(a.joins)
	if a.Stats.AsyncSpawns > 0 && a.Stats.AsyncJoins == 0 {
		a.add(Instance{
			Pattern:     SpawnWithoutJoin{},
			Source:      a.source(),
			Severity:    spawnSeverity,
			Description: fmt.Sprintf("Found %d async spawn(s) but no explicit join/await. Tasks may be orphaned.", a.Stats.AsyncSpawns),
			Suggestion:  "Ensure spawned tasks are awaited or their handles are joined",
		}, true)
	}

	released := false
	for _, op := range a.allocs {
		if IsReleaseOp(op.name) {
			released = true
			break
		}
	}
	for _, op := range a.allocs {
		a.Stats.ManualAllocations = append(a.Stats.ManualAllocations, qualify(op))
		if !strings.Contains(op.name, "alloc") || released {
			continue
		}
		a.add(Instance{
			Pattern:     ManualResource{Operation: op.name},
			Source:      sourceOf(op.module),
			Severity:    allocSeverity,
			Description: fmt.Sprintf("Unsafe allocation '%s' detected without corresponding deallocation", op.name),
			Suggestion:  "Ensure manual allocations have corresponding deallocations, or use safe wrappers",
		}, true)
	}

	for _, typ := range a.builderOrder {
		methods := a.builders[typ]
		a.Stats.BuilderPatterns = append(a.Stats.BuilderPatterns,
			fmt.Sprintf("%s (%s)", typ, strings.Join(methods, " -> ")))
		if len(methods) < builderOrderThreshold {
			continue
		}
		a.add(Instance{
			Pattern:     BuilderPattern{Type: typ, Methods: methods},
			Source:      a.source(),
			Severity:    builderSeverity,
			Description: fmt.Sprintf("Builder pattern for '%s' has %d methods that may require specific order", typ, len(methods)),
			Suggestion:  "Consider using type-state pattern to enforce build order at compile time",
		}, false)
	}
}

// HighSeverityInstances returns instances at or above the High tier.
func (a *Analyzer) HighSeverityInstances() []Instance {
	var out []Instance
	for _, inst := range a.Instances {
		if taxonomy.IsHigh(inst.Severity) {
			out = append(out, inst)
		}
	}
	return out
}

// PositivePatterns returns the destructors and guards found, which
// guard against temporal coupling rather than cause it.
func (a *Analyzer) PositivePatterns() []Pattern {
	var out []Pattern
	for _, d := range a.destructors {
		out = append(out, DestructorImpl{Type: d.name})
	}
	for _, g := range a.guards {
		out = append(out, GuardPattern{GuardType: g.name, Resource: sourceOf(g.module)})
	}
	return out
}

func qualify(l located) string {
	return l.module + "::" + l.name
}

func sourceOf(module string) string {
	if module == "" {
		return projectWide
	}
	return module
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
