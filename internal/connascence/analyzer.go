package connascence

import (
	"fmt"
	"strings"
)

// positionalThreshold is the argument count from which a signature
// counts as positional coupling.
const positionalThreshold = 4

// acceptableLiterals are values common enough not to carry hidden
// meaning.
var acceptableLiterals = map[string]bool{
	"0": true, "1": true, "2": true, "-1": true,
	"0.0": true, "1.0": true, "0.5": true,
	"100": true, "1000": true,
	"true": true, "false": true,
}

// RecordOption adjusts a recorded instance.
type RecordOption func(*Instance)

// AtLine attaches a source line to the recorded instance.
func AtLine(line int) RecordOption {
	return func(i *Instance) { i.Line = line }
}

// MagicValue is a literal reported as connascence of meaning.
type MagicValue struct {
	Location string `json:"location"`
	Value    string `json:"value"`
}

// Analyzer records connascence for one module at a time. It is not
// safe for concurrent use; give each module its own Analyzer.
type Analyzer struct {
	Instances []Instance `json:"instances"`
	Stats     Stats      `json:"stats"`

	module      string
	signatures  map[string]int
	magicValues []MagicValue
}

// NewAnalyzer returns an empty Analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		Instances:  []Instance{},
		Stats:      Stats{ByType: make(map[Kind]int)},
		signatures: make(map[string]int),
	}
}

// SetModule sets the source module for subsequent records.
func (a *Analyzer) SetModule(module string) {
	a.module = module
}

func (a *Analyzer) record(k Kind, target, context string, opts []RecordOption) {
	inst := Instance{Kind: k, Source: a.module, Target: target, Context: context}
	for _, o := range opts {
		o(&inst)
	}
	a.Instances = append(a.Instances, inst)
	a.Stats.add(k)
}

// RecordNameDependency records that the module refers to target by
// name.
func (a *Analyzer) RecordNameDependency(target, context string, opts ...RecordOption) {
	a.record(KindName, target, context, opts)
}

// RecordTypeDependency records that the module depends on typeName.
func (a *Analyzer) RecordTypeDependency(typeName, usage string, opts ...RecordOption) {
	a.record(KindType, typeName, usage, opts)
}

// RecordPositionDependency remembers fn's arity and records positional
// coupling when it takes four or more arguments.
func (a *Analyzer) RecordPositionDependency(fn string, argCount int, opts ...RecordOption) {
	if argCount >= positionalThreshold {
		a.record(KindPosition, fn,
			fmt.Sprintf("Function with %d positional arguments", argCount), opts)
	}
	a.signatures[fn] = argCount
}

// RecordMagicNumber records a literal as connascence of meaning unless
// it is a common value.
func (a *Analyzer) RecordMagicNumber(location, value string, opts ...RecordOption) {
	if isAcceptableLiteral(value) {
		return
	}
	a.record(KindMeaning, location, "Magic value: "+value, opts)
	a.magicValues = append(a.magicValues, MagicValue{Location: location, Value: value})
}

// RecordAlgorithmDependency records that the module shares an
// algorithm with another party.
func (a *Analyzer) RecordAlgorithmDependency(pattern, context string, opts ...RecordOption) {
	a.record(KindAlgorithm, pattern, context, opts)
}

// Signatures returns a copy of the recorded function arities.
func (a *Analyzer) Signatures() map[string]int {
	out := make(map[string]int, len(a.signatures))
	for k, v := range a.signatures {
		out[k] = v
	}
	return out
}

// MagicValues returns the literals reported so far.
func (a *Analyzer) MagicValues() []MagicValue {
	return append([]MagicValue(nil), a.magicValues...)
}

// HighStrengthInstances returns instances of strength 0.6 or more.
func (a *Analyzer) HighStrengthInstances() []Instance {
	var out []Instance
	for _, i := range a.Instances {
		if i.Kind.Strength() >= highStrength {
			out = append(out, i)
		}
	}
	return out
}

// Summary renders the markdown table of kinds with a non-zero count.
func (a *Analyzer) Summary() string {
	return RenderSummary(a.Stats)
}

// RenderSummary renders stats in the Summary format. It is shared by
// the per-module and the project-wide reports.
func RenderSummary(s Stats) string {
	var b strings.Builder
	b.WriteString("## Connascence Analysis\n\n")
	fmt.Fprintf(&b, "**Total Instances**: %d\n", s.Total)
	fmt.Fprintf(&b, "**Average Strength**: %.2f\n\n", s.AverageStrength())
	b.WriteString("| Type | Count | % | Strength | Description |\n")
	b.WriteString("|------|-------|---|----------|-------------|\n")
	for _, k := range AllKinds {
		n := s.Count(k)
		if n == 0 {
			continue
		}
		fmt.Fprintf(&b, "| %s | %d | %.1f%% | %.1f | %s |\n",
			k, n, s.Percentage(k), k.Strength(), k.Description())
	}
	return b.String()
}

// isAcceptableLiteral filters out common numbers and trivial strings.
// Quoted literals are judged on their content; both the escaped and
// the literal newline count as trivial.
func isAcceptableLiteral(value string) bool {
	if acceptableLiterals[value] {
		return true
	}
	if value == "" {
		return false
	}
	switch value[0] {
	case '"', '\'', '`':
	default:
		return false
	}
	inner := strings.Trim(value, "\"'`")
	switch inner {
	case "", " ", "\n", `\n`, ",", ":", "/":
		return true
	}
	return len(inner) == 1 || strings.HasPrefix(inner, "http")
}
