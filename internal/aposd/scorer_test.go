package aposd_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/unbound-force/sounding/internal/aposd"
)

func loadUnit(t *testing.T, path string) aposd.SourceUnit {
	t.Helper()
	src, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return aposd.SourceUnit{Path: path, Src: src}
}

func scoreFacade(t *testing.T, opts aposd.Options) *aposd.ModuleScore {
	t.Helper()
	unit := loadUnit(t, filepath.Join("testdata", "src", "facade", "facade.go"))
	counts := aposd.StructuralCounts{PublicTypes: 1, PrivateTypes: 1, ExternalDeps: 2}
	return aposd.ScoreModule("facade", []aposd.SourceUnit{unit}, counts, opts)
}

func TestScoreModule_DepthCounters(t *testing.T) {
	s := scoreFacade(t, aposd.DefaultOptions())
	if len(s.Errors) != 0 {
		t.Fatalf("unexpected parse errors: %v", s.Errors)
	}

	d := s.Depth
	checks := []struct {
		name      string
		got, want int
	}{
		{"PubFunctionCount", d.PubFunctionCount, 6},
		{"PrivateFunctionCount", d.PrivateFunctionCount, 5},
		{"TotalPubParams", d.TotalPubParams, 9},
		{"GenericParamCount", d.GenericParamCount, 2},
		{"TraitBoundCount", d.TraitBoundCount, 1},
		{"PubConstCount", d.PubConstCount, 1},
		{"PubTypeCount", d.PubTypeCount, 1},
		{"PrivateTypeCount", d.PrivateTypeCount, 1},
		{"ComplexityEstimate", d.ComplexityEstimate, 4},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}
	if d.ImplementationLOC == 0 {
		t.Error("ImplementationLOC should count non-empty lines")
	}
}

func TestScoreModule_CognitiveLoad(t *testing.T) {
	c := scoreFacade(t, aposd.DefaultOptions()).Cognitive
	if c.PublicAPICount != 8 {
		t.Errorf("PublicAPICount = %d, want 8", c.PublicAPICount)
	}
	if c.DependencyCount != 2 {
		t.Errorf("DependencyCount = %d, want 2", c.DependencyCount)
	}
	if c.AvgParamCount != 1.5 {
		t.Errorf("AvgParamCount = %f, want 1.5", c.AvgParamCount)
	}
	if c.MaxNestingDepth != 3 {
		t.Errorf("MaxNestingDepth = %d, want 3", c.MaxNestingDepth)
	}
	if c.BranchCount != 4 {
		t.Errorf("BranchCount = %d, want 4", c.BranchCount)
	}
	if c.TypeVariety != 7 {
		t.Errorf("TypeVariety = %d, want 7", c.TypeVariety)
	}
	if c.GenericsCount != 2 || c.TraitBoundsCount != 1 {
		t.Errorf("GenericsCount = %d, TraitBoundsCount = %d", c.GenericsCount, c.TraitBoundsCount)
	}
}

func TestScoreModule_Passthroughs(t *testing.T) {
	s := scoreFacade(t, aposd.DefaultOptions())

	got := make(map[string]aposd.PassThroughMethodInfo)
	for _, p := range s.Passthroughs {
		got[p.MethodName] = p
	}
	if len(s.Passthroughs) != 3 {
		t.Fatalf("got %d passthroughs, want 3: %+v", len(s.Passthroughs), s.Passthroughs)
	}

	load, ok := got["Store.Load"]
	if !ok {
		t.Fatal("Store.Load not detected")
	}
	if load.DelegatedTo != "s.inner.load" || load.ParamsPassedThrough != 2 || load.TotalParams != 2 {
		t.Errorf("Store.Load = %+v", load)
	}
	if !load.IsPassthrough || load.Confidence != 1.0 {
		t.Errorf("Store.Load verdict = %v confidence %f", load.IsPassthrough, load.Confidence)
	}
	if load.ModuleName != "facade" || load.Line == 0 {
		t.Errorf("Store.Load location = %q:%d", load.ModuleName, load.Line)
	}

	results, ok := got["Store.Results"]
	if !ok {
		t.Fatal("channel receive delegation Store.Results not detected")
	}
	if results.DelegatedTo != "s.inner.results" || !results.IsPassthrough {
		t.Errorf("Store.Results = %+v", results)
	}

	partial, ok := got["Store.Partial"]
	if !ok {
		t.Fatal("Store.Partial not detected")
	}
	if partial.IsPassthrough {
		t.Error("forwarding one of three parameters is not a pass-through")
	}
	if partial.Confidence < 0.33 || partial.Confidence > 0.34 {
		t.Errorf("Store.Partial confidence = %f, want 1/3", partial.Confidence)
	}

	if _, ok := got["Store.Save"]; ok {
		t.Error("error-wrapping forward Store.Save should be skipped")
	}
	if _, ok := got["Store.GetName"]; ok {
		t.Error("accessor Store.GetName should be excluded as idiomatic")
	}
}

func TestScoreModule_CustomIdiomPolicy(t *testing.T) {
	opts := aposd.DefaultOptions()
	opts.Idioms = aposd.IdiomPolicy{Builtin: false, Methods: []string{"Load"}, Prefixes: []string{"part"}}
	s := scoreFacade(t, opts)

	names := make(map[string]bool)
	for _, p := range s.Passthroughs {
		names[p.MethodName] = true
	}
	if names["Store.Load"] {
		t.Error("custom exact-name exclusion ignored")
	}
	if names["Store.Partial"] {
		t.Error("custom prefix exclusion ignored")
	}
	if !names["Store.GetName"] {
		t.Error("built-in exclusions should not apply when disabled")
	}
}

func TestScoreModule_Hotspots(t *testing.T) {
	opts := aposd.DefaultOptions()
	opts.HotspotThreshold = 1
	opts.HotspotTop = 2
	s := scoreFacade(t, opts)
	if len(s.Hotspots) != 2 {
		t.Fatalf("got %d hotspots, want 2", len(s.Hotspots))
	}
	first := s.Hotspots[0]
	if !strings.Contains(first.Function, "load") || first.Complexity != 4 {
		t.Errorf("top hotspot = %+v, want load with complexity 4", first)
	}

	if got := scoreFacade(t, aposd.DefaultOptions()).Hotspots; len(got) != 0 {
		t.Errorf("no function reaches complexity 10, got %+v", got)
	}
}

func TestScoreModule_ParseFailureIsLocal(t *testing.T) {
	good := loadUnit(t, filepath.Join("testdata", "src", "facade", "facade.go"))
	bad := aposd.SourceUnit{Path: "broken.go", Src: []byte("package facade\n\nfunc (\n")}

	s := aposd.ScoreModule("facade", []aposd.SourceUnit{bad, good}, aposd.StructuralCounts{}, aposd.DefaultOptions())
	if len(s.Errors) != 1 {
		t.Fatalf("Errors = %v, want exactly one", s.Errors)
	}
	if !strings.Contains(s.Errors[0].Error(), "broken.go") {
		t.Errorf("error should name the unit: %v", s.Errors[0])
	}
	if s.Depth.PubFunctionCount != 6 {
		t.Errorf("good unit should still be scored, PubFunctionCount = %d", s.Depth.PubFunctionCount)
	}
	if s.Depth.ImplementationLOC != aposd.CountNonEmptyLines(good.Src) {
		t.Errorf("failed unit should contribute no lines, LOC = %d", s.Depth.ImplementationLOC)
	}
}

func TestScoreModule_AllUnitsBroken(t *testing.T) {
	bad := aposd.SourceUnit{Path: "broken.go", Src: []byte("not go at all")}
	s := aposd.ScoreModule("m", []aposd.SourceUnit{bad}, aposd.StructuralCounts{}, aposd.DefaultOptions())
	if s.Depth.PubFunctionCount != 0 || s.Depth.ImplementationLOC != 0 || s.Depth.ComplexityEstimate != 0 {
		t.Errorf("broken module should have zero metrics, got %+v", s.Depth)
	}
	if s.Depth.Classification() != aposd.Unknown {
		t.Errorf("Classification() = %s, want Unknown", s.Depth.Classification())
	}
}

// TestScoreModule_AllUnitsBrokenIgnoresCounts verifies that structural
// counts do not classify a module none of whose units parsed.
func TestScoreModule_AllUnitsBrokenIgnoresCounts(t *testing.T) {
	bad := aposd.SourceUnit{
		Path: "broken.go",
		Src:  []byte("package m\ntype A struct{}\ntype B struct{}\nfunc ("),
	}
	counts := aposd.StructuralCounts{PublicTypes: 2, PrivateTypes: 1, ExternalDeps: 3, InternalDeps: 1}
	s := aposd.ScoreModule("m", []aposd.SourceUnit{bad}, counts, aposd.DefaultOptions())

	if len(s.Errors) != 1 {
		t.Fatalf("Errors = %v, want one parse error", s.Errors)
	}
	if s.Depth.PubTypeCount != 0 || s.Depth.PrivateTypeCount != 0 {
		t.Errorf("type counts = %d/%d, want 0/0", s.Depth.PubTypeCount, s.Depth.PrivateTypeCount)
	}
	if s.Depth.Classification() != aposd.Unknown || s.Depth.IsShallow() {
		t.Errorf("Classification() = %s, want Unknown and not shallow", s.Depth.Classification())
	}
	if s.Cognitive.DependencyCount != 0 || s.Cognitive.PublicAPICount != 0 {
		t.Errorf("Cognitive = %+v, want zero counts", s.Cognitive)
	}
	if got := s.Cognitive.Score(); got != 0 {
		t.Errorf("Cognitive.Score() = %.2f, want 0", got)
	}
	if s.Cognitive.ModuleName != "m" {
		t.Errorf("Cognitive.ModuleName = %q, want m", s.Cognitive.ModuleName)
	}
}

func TestIdiomPolicy_Builtin(t *testing.T) {
	p := aposd.DefaultIdiomPolicy()
	for _, name := range []string{
		"AsBytes", "IntoInner", "FromConfig", "ToString", "GetUser", "SetUser",
		"NameRef", "ValueMut", "Deref", "Clone", "String", "Error", "Unwrap",
		"WithTimeout", "AndThen", "Iter", "Len", "IsEmpty", "Get", "New", "NewClient",
		"MarshalJSON", "as_ref", "into_iter",
	} {
		if !p.Excludes(name) {
			t.Errorf("Excludes(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"Process", "Dispatch", "Load", "Handle"} {
		if p.Excludes(name) {
			t.Errorf("Excludes(%q) = true, want false", name)
		}
	}
}
