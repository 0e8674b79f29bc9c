// Package aposd scores modules for depth and cognitive load and
// detects pass-through methods, following the deep-module vocabulary
// of "A Philosophy of Software Design".
//
// A deep module hides a complex implementation behind a small
// interface. A shallow module exposes roughly as much surface as it
// implements. The scorer walks Go syntax trees once per module and
// fills the counters below; everything else is derived.
package aposd

// DepthClass classifies a module's depth ratio.
type DepthClass string

// Depth classes, deepest first.
const (
	VeryDeep    DepthClass = "VeryDeep"
	Deep        DepthClass = "Deep"
	Moderate    DepthClass = "Moderate"
	Shallow     DepthClass = "Shallow"
	VeryShallow DepthClass = "VeryShallow"
	Unknown     DepthClass = "Unknown"
)

// Label returns the human-readable form used in reports.
func (c DepthClass) Label() string {
	switch c {
	case VeryDeep:
		return "Very Deep"
	case Deep:
		return "Deep"
	case Moderate:
		return "Moderate"
	case Shallow:
		return "Shallow"
	case VeryShallow:
		return "Very Shallow"
	default:
		return "Unknown"
	}
}

// LoadLevel classifies a module's cognitive load score.
type LoadLevel string

// Cognitive load levels, lightest first.
const (
	LoadLow      LoadLevel = "Low"
	LoadModerate LoadLevel = "Moderate"
	LoadHigh     LoadLevel = "High"
	LoadVeryHigh LoadLevel = "VeryHigh"
)

// Label returns the human-readable form used in reports.
func (l LoadLevel) Label() string {
	switch l {
	case LoadLow:
		return "Low"
	case LoadModerate:
		return "Moderate"
	case LoadHigh:
		return "High"
	default:
		return "Very High"
	}
}

// minInterfaceComplexity is the floor below which a depth ratio is
// undefined.
const minInterfaceComplexity = 0.01

// ModuleDepthMetrics holds the interface and implementation counters
// for one module.
type ModuleDepthMetrics struct {
	// ModuleName identifies the module (directory path relative to
	// the analysed root).
	ModuleName string `json:"module"`

	PubFunctionCount  int `json:"pub_function_count"`
	PubTypeCount      int `json:"pub_type_count"`
	PubConstCount     int `json:"pub_const_count"`
	TotalPubParams    int `json:"total_pub_params"`
	GenericParamCount int `json:"generic_param_count"`

	// TraitBoundCount counts type-parameter constraints in the public
	// surface other than any.
	TraitBoundCount int `json:"trait_bound_count"`

	// ImplementationLOC is the number of non-empty source lines.
	ImplementationLOC    int `json:"implementation_loc"`
	PrivateFunctionCount int `json:"private_function_count"`
	PrivateTypeCount     int `json:"private_type_count"`

	// ComplexityEstimate counts branching constructs (if, switch,
	// select, for, range) anywhere in the module.
	ComplexityEstimate int `json:"complexity_estimate"`
}

// InterfaceComplexity weighs what a caller has to learn to use the
// module.
func (m ModuleDepthMetrics) InterfaceComplexity() float64 {
	return 1.0*float64(m.PubFunctionCount) +
		0.5*float64(m.PubTypeCount) +
		0.3*float64(m.TotalPubParams) +
		0.5*float64(m.GenericParamCount) +
		0.3*float64(m.TraitBoundCount) +
		0.1*float64(m.PubConstCount)
}

// ImplementationComplexity weighs what the module hides.
func (m ModuleDepthMetrics) ImplementationComplexity() float64 {
	return 0.1*float64(m.ImplementationLOC) +
		1.0*float64(m.PrivateFunctionCount) +
		0.5*float64(m.PrivateTypeCount) +
		0.5*float64(m.ComplexityEstimate)
}

// DepthRatio returns implementation over interface complexity. ok is
// false when the interface is too small for the ratio to mean
// anything.
func (m ModuleDepthMetrics) DepthRatio() (ratio float64, ok bool) {
	iface := m.InterfaceComplexity()
	if iface < minInterfaceComplexity {
		return 0, false
	}
	return m.ImplementationComplexity() / iface, true
}

// Classification maps the depth ratio onto a DepthClass.
func (m ModuleDepthMetrics) Classification() DepthClass {
	ratio, ok := m.DepthRatio()
	if !ok {
		return Unknown
	}
	switch {
	case ratio >= 10:
		return VeryDeep
	case ratio >= 5:
		return Deep
	case ratio >= 2:
		return Moderate
	case ratio >= 1:
		return Shallow
	default:
		return VeryShallow
	}
}

// IsShallow reports whether the module is Shallow or VeryShallow.
func (m ModuleDepthMetrics) IsShallow() bool {
	c := m.Classification()
	return c == Shallow || c == VeryShallow
}

// AvgParamsPerFunction is the mean parameter count of public
// functions, or 0 when there are none.
func (m ModuleDepthMetrics) AvgParamsPerFunction() float64 {
	if m.PubFunctionCount == 0 {
		return 0
	}
	return float64(m.TotalPubParams) / float64(m.PubFunctionCount)
}

// CognitiveLoadMetrics holds the inputs to a module's cognitive load
// score.
type CognitiveLoadMetrics struct {
	ModuleName       string  `json:"module"`
	PublicAPICount   int     `json:"public_api_count"`
	DependencyCount  int     `json:"dependency_count"`
	AvgParamCount    float64 `json:"avg_param_count"`
	TypeVariety      int     `json:"type_variety"`
	GenericsCount    int     `json:"generics_count"`
	TraitBoundsCount int     `json:"trait_bounds_count"`
	MaxNestingDepth  int     `json:"max_nesting_depth"`
	BranchCount      int     `json:"branch_count"`
}

// Score returns the weighted cognitive load. Higher is harder to
// understand.
func (c CognitiveLoadMetrics) Score() float64 {
	return 0.25*float64(c.PublicAPICount) +
		0.20*float64(c.DependencyCount) +
		0.15*c.AvgParamCount +
		0.10*float64(c.TypeVariety) +
		0.10*float64(c.GenericsCount) +
		0.10*float64(c.TraitBoundsCount) +
		0.05*float64(c.MaxNestingDepth) +
		0.05*float64(c.BranchCount)
}

// Level maps the score onto a LoadLevel.
func (c CognitiveLoadMetrics) Level() LoadLevel {
	s := c.Score()
	switch {
	case s < 5:
		return LoadLow
	case s < 15:
		return LoadModerate
	case s < 30:
		return LoadHigh
	default:
		return LoadVeryHigh
	}
}

// IsHighLoad reports whether the level is High or VeryHigh.
func (c CognitiveLoadMetrics) IsHighLoad() bool {
	l := c.Level()
	return l == LoadHigh || l == LoadVeryHigh
}

// PassThroughMethodInfo describes a function whose body only
// forwards to another callable.
//
// ParamsPassedThrough is the arity of the delegating call. It is not
// matched against the identities of the function's own parameters, so
// a call with the same number of unrelated arguments is
// indistinguishable from a true forward.
type PassThroughMethodInfo struct {
	MethodName          string  `json:"method"`
	ModuleName          string  `json:"module"`
	DelegatedTo         string  `json:"delegated_to"`
	ParamsPassedThrough int     `json:"params_passed_through"`
	TotalParams         int     `json:"total_params"`
	IsPassthrough       bool    `json:"is_passthrough"`
	Confidence          float64 `json:"confidence"`
	File                string  `json:"file,omitempty"`
	Line                int     `json:"line,omitempty"`
}

// PassthroughRatio is the forwarded fraction of the parameters, 1.0
// when the function declares none.
func (p PassThroughMethodInfo) PassthroughRatio() float64 {
	if p.TotalParams == 0 {
		return 1.0
	}
	return float64(p.ParamsPassedThrough) / float64(p.TotalParams)
}
