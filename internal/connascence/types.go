// Package connascence classifies static coupling between modules by
// connascence kind, from the weakest (Name) to the strongest
// (Algorithm).
package connascence

// Kind is one of the statically detectable connascence kinds.
type Kind string

// Connascence kinds, weakest first.
const (
	KindName      Kind = "Name"
	KindType      Kind = "Type"
	KindMeaning   Kind = "Meaning"
	KindPosition  Kind = "Position"
	KindAlgorithm Kind = "Algorithm"
)

// AllKinds lists every kind in report order.
var AllKinds = []Kind{KindName, KindType, KindMeaning, KindPosition, KindAlgorithm}

// highStrength is the strength at or above which an instance should
// be reviewed.
const highStrength = 0.6

// Strength returns the coupling strength in [0,1].
func (k Kind) Strength() float64 {
	switch k {
	case KindName:
		return 0.2
	case KindType:
		return 0.4
	case KindMeaning:
		return 0.6
	case KindPosition:
		return 0.7
	case KindAlgorithm:
		return 0.9
	}
	return 0
}

// Description explains what the two sides must agree on.
func (k Kind) Description() string {
	switch k {
	case KindName:
		return "Agreement on names (renaming affects both)"
	case KindType:
		return "Agreement on types (type changes affect both)"
	case KindMeaning:
		return "Agreement on semantic values (magic values)"
	case KindPosition:
		return "Agreement on ordering (positional coupling)"
	case KindAlgorithm:
		return "Agreement on algorithm (algorithm changes affect both)"
	}
	return ""
}

// Suggestion is the refactoring that weakens this kind.
func (k Kind) Suggestion() string {
	switch k {
	case KindName:
		return "Use IDE rename refactoring to change safely"
	case KindType:
		return "Consider using traits/generics to reduce type coupling"
	case KindMeaning:
		return "Replace magic values with named constants or enums"
	case KindPosition:
		return "Use named parameters or builder pattern"
	case KindAlgorithm:
		return "Extract algorithm into shared module with clear contract"
	}
	return ""
}

// Instance is one detected connascence.
type Instance struct {
	Kind    Kind   `json:"kind"`
	Source  string `json:"source"`
	Target  string `json:"target"`
	Context string `json:"context"`

	// Line is the 1-based source line, or 0 when unknown.
	Line int `json:"line,omitempty"`
}

// Stats accumulates counts and strength per kind.
type Stats struct {
	ByType           map[Kind]int `json:"by_type"`
	Total            int          `json:"total"`
	WeightedStrength float64      `json:"weighted_strength"`
}

func (s *Stats) add(k Kind) {
	if s.ByType == nil {
		s.ByType = make(map[Kind]int)
	}
	s.ByType[k]++
	s.Total++
	s.WeightedStrength += k.Strength()
}

// AverageStrength is the mean strength, 0 when empty.
func (s Stats) AverageStrength() float64 {
	if s.Total == 0 {
		return 0
	}
	return s.WeightedStrength / float64(s.Total)
}

// Count returns the number of instances of kind k.
func (s Stats) Count(k Kind) int {
	return s.ByType[k]
}

// Percentage returns the share of kind k in [0,100].
func (s Stats) Percentage(k Kind) float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Count(k)) / float64(s.Total) * 100
}

// Merge folds other into s.
func (s *Stats) Merge(other Stats) {
	for k, n := range other.ByType {
		if s.ByType == nil {
			s.ByType = make(map[Kind]int)
		}
		s.ByType[k] += n
	}
	s.Total += other.Total
	s.WeightedStrength += other.WeightedStrength
}
