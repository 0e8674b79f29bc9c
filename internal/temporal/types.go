// Package temporal detects temporal coupling: places where callers
// must invoke operations in a particular order, such as paired
// open/close calls, lifecycle phases, and state checks implying a
// prerequisite call.
//
// Detection is heuristic. The analyzer consumes call and definition
// facts gathered by a separate extraction stage and never sees the
// syntax tree, so it cannot verify real call order.
package temporal

import (
	"encoding/json"
	"fmt"
)

// PatternKind names a Pattern variant.
type PatternKind string

// Pattern kinds.
const (
	KindPairedOperation   PatternKind = "PairedOperation"
	KindLifecycleSequence PatternKind = "LifecycleSequence"
	KindStateCheck        PatternKind = "StateCheck"
	KindDestructorImpl    PatternKind = "DestructorImpl"
	KindGuardPattern      PatternKind = "GuardPattern"
	KindSpawnWithoutJoin  PatternKind = "SpawnWithoutJoin"
	KindManualResource    PatternKind = "ManualResource"
	KindBuilderPattern    PatternKind = "BuilderPattern"
)

// Pattern is the closed set of temporal coupling patterns. Only the
// types in this package implement it.
type Pattern interface {
	Kind() PatternKind
	pattern()
}

// PairedOperation is an open/close style pair whose calls must
// balance.
type PairedOperation struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// LifecycleSequence is a lifecycle phase with a missing counterpart.
type LifecycleSequence struct {
	Phase  LifecyclePhase `json:"phase"`
	Method string         `json:"method"`
}

// StateCheck is a predicate implying that a prerequisite operation
// has already run.
type StateCheck struct {
	CheckMethod         string `json:"check_method"`
	ImpliedPrerequisite string `json:"implied_prerequisite"`
}

// DestructorImpl is a type that releases its resources automatically
// or through a conventional Close method.
type DestructorImpl struct {
	Type string `json:"type"`
}

// GuardPattern is a scoped guard that releases a resource on exit.
type GuardPattern struct {
	GuardType string `json:"guard_type"`
	Resource  string `json:"resource"`
}

// SpawnWithoutJoin flags concurrent tasks that are never joined.
type SpawnWithoutJoin struct{}

// ManualResource is a manual allocation with no visible release.
type ManualResource struct {
	Operation string `json:"operation"`
}

// BuilderPattern is a builder whose setters may need a fixed order.
type BuilderPattern struct {
	Type    string   `json:"type"`
	Methods []string `json:"methods"`
}

func (PairedOperation) Kind() PatternKind   { return KindPairedOperation }
func (LifecycleSequence) Kind() PatternKind { return KindLifecycleSequence }
func (StateCheck) Kind() PatternKind        { return KindStateCheck }
func (DestructorImpl) Kind() PatternKind    { return KindDestructorImpl }
func (GuardPattern) Kind() PatternKind      { return KindGuardPattern }
func (SpawnWithoutJoin) Kind() PatternKind  { return KindSpawnWithoutJoin }
func (ManualResource) Kind() PatternKind    { return KindManualResource }
func (BuilderPattern) Kind() PatternKind    { return KindBuilderPattern }

func (PairedOperation) pattern()   {}
func (LifecycleSequence) pattern() {}
func (StateCheck) pattern()        {}
func (DestructorImpl) pattern()    {}
func (GuardPattern) pattern()      {}
func (SpawnWithoutJoin) pattern()  {}
func (ManualResource) pattern()    {}
func (BuilderPattern) pattern()    {}

// Subject returns the operation, method or type a pattern is about.
func Subject(p Pattern) string {
	switch v := p.(type) {
	case PairedOperation:
		return v.Open + "/" + v.Close
	case LifecycleSequence:
		return v.Method
	case StateCheck:
		return v.CheckMethod
	case DestructorImpl:
		return v.Type
	case GuardPattern:
		return v.GuardType
	case SpawnWithoutJoin:
		return "spawn"
	case ManualResource:
		return v.Operation
	case BuilderPattern:
		return v.Type
	}
	return ""
}

// LifecyclePhase orders the stages of a component's life.
type LifecyclePhase int

// Lifecycle phases in order.
const (
	PhaseCreate LifecyclePhase = iota
	PhaseConfigure
	PhaseInitialize
	PhaseStart
	PhaseActive
	PhaseStop
	PhaseCleanup
)

// AllPhases lists the phases in order.
var AllPhases = []LifecyclePhase{
	PhaseCreate, PhaseConfigure, PhaseInitialize, PhaseStart,
	PhaseActive, PhaseStop, PhaseCleanup,
}

var phaseNames = map[LifecyclePhase]string{
	PhaseCreate:     "Create",
	PhaseConfigure:  "Configure",
	PhaseInitialize: "Initialize",
	PhaseStart:      "Start",
	PhaseActive:     "Active",
	PhaseStop:       "Stop",
	PhaseCleanup:    "Cleanup",
}

func (p LifecyclePhase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("LifecyclePhase(%d)", int(p))
}

// MarshalText encodes the phase by name so it can key JSON objects.
func (p LifecyclePhase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *LifecyclePhase) UnmarshalText(text []byte) error {
	for phase, name := range phaseNames {
		if name == string(text) {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown lifecycle phase %q", text)
}

// Description is the phase's display text.
func (p LifecyclePhase) Description() string {
	switch p {
	case PhaseCreate:
		return "Object creation"
	case PhaseConfigure:
		return "Configuration"
	case PhaseInitialize:
		return "Initialization"
	case PhaseStart:
		return "Start/Connect"
	case PhaseActive:
		return "Active operation"
	case PhaseStop:
		return "Stop/Disconnect"
	case PhaseCleanup:
		return "Cleanup/Destroy"
	}
	return p.String()
}

// Instance is one detected temporal coupling.
type Instance struct {
	Pattern     Pattern `json:"pattern"`
	Source      string  `json:"source"`
	Severity    float64 `json:"severity"`
	Description string  `json:"description"`
	Suggestion  string  `json:"suggestion"`
}

// MarshalJSON adds the pattern kind next to the pattern fields.
func (i Instance) MarshalJSON() ([]byte, error) {
	type plain Instance
	return json.Marshal(struct {
		plain
		PatternKind PatternKind `json:"pattern_kind"`
	}{plain(i), i.Pattern.Kind()})
}

// PairedOperationStats counts both sides of one pair.
type PairedOperationStats struct {
	Operation  string   `json:"operation"`
	OpenCount  int      `json:"open_count"`
	CloseCount int      `json:"close_count"`
	Locations  []string `json:"locations"`
}

// Balanced reports whether both sides were called equally often.
func (p PairedOperationStats) Balanced() bool {
	return p.OpenCount == p.CloseCount
}

// Stats summarizes the facts behind the findings.
type Stats struct {
	// PairedOperations holds one entry per pair with at least one
	// call, in pair-table order.
	PairedOperations []PairedOperationStats     `json:"paired_operations"`
	LifecycleMethods map[LifecyclePhase][]string `json:"lifecycle_methods"`
	StateChecks      []string                    `json:"state_checks"`

	// TotalIssues counts every finding except builder-order hints,
	// which are informational.
	TotalIssues int `json:"total_issues"`

	Destructors       []string `json:"destructors"`
	GuardPatterns     []string `json:"guard_patterns"`
	AsyncSpawns       int      `json:"async_spawns"`
	AsyncJoins        int      `json:"async_joins"`
	ManualAllocations []string `json:"manual_allocations"`
	BuilderPatterns   []string `json:"builder_patterns"`
}
