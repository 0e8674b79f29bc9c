package aposd

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"

	"github.com/fzipp/gocyclo"
	"golang.org/x/tools/go/ast/inspector"
)

// SourceUnit is one file of a module.
type SourceUnit struct {
	Path string
	Src  []byte
}

// StructuralCounts are the per-module facts supplied by the structure
// collaborator. The scorer uses them as given.
type StructuralCounts struct {
	PublicTypes  int `json:"public_types"`
	PrivateTypes int `json:"private_types"`
	ExternalDeps int `json:"external_deps"`
	InternalDeps int `json:"internal_deps"`
}

// Options configures ScoreModule.
type Options struct {
	Idioms IdiomPolicy

	// HotspotThreshold is the cyclomatic complexity at or above which
	// a function is listed as a hotspot. Zero disables hotspots.
	HotspotThreshold int

	// HotspotTop caps the hotspot list. Zero means no cap.
	HotspotTop int
}

// DefaultOptions returns options with the built-in idiom tables and a
// hotspot threshold of 10.
func DefaultOptions() Options {
	return Options{
		Idioms:           DefaultIdiomPolicy(),
		HotspotThreshold: 10,
		HotspotTop:       5,
	}
}

// Hotspot is a function whose cyclomatic complexity crosses the
// configured threshold.
type Hotspot struct {
	Function   string `json:"function"`
	File       string `json:"file"`
	Line       int    `json:"line"`
	Complexity int    `json:"complexity"`
}

// ModuleScore is the result of scoring one module.
type ModuleScore struct {
	Depth        ModuleDepthMetrics      `json:"depth"`
	Cognitive    CognitiveLoadMetrics    `json:"cognitive"`
	Passthroughs []PassThroughMethodInfo `json:"passthroughs"`
	Hotspots     []Hotspot               `json:"hotspots"`

	// Errors holds one entry per unit that failed to parse. Such a
	// unit contributes nothing to the counters.
	Errors []error `json:"-"`
}

// branchNodes are the control statements counted by the complexity
// estimate and the nesting depth.
var branchNodes = []ast.Node{
	(*ast.IfStmt)(nil),
	(*ast.SwitchStmt)(nil),
	(*ast.TypeSwitchStmt)(nil),
	(*ast.SelectStmt)(nil),
	(*ast.ForStmt)(nil),
	(*ast.RangeStmt)(nil),
}

func isBranch(n ast.Node) bool {
	switch n.(type) {
	case *ast.IfStmt, *ast.SwitchStmt, *ast.TypeSwitchStmt,
		*ast.SelectStmt, *ast.ForStmt, *ast.RangeStmt:
		return true
	}
	return false
}

// ScoreModule parses every unit and derives the module's depth,
// cognitive load, pass-through methods and complexity hotspots. A
// unit that fails to parse is reported in Errors and skipped; the
// remaining units are still scored. When no unit parses, the supplied
// counts are ignored and every metric stays zero.
func ScoreModule(name string, units []SourceUnit, counts StructuralCounts, opts Options) *ModuleScore {
	score := &ModuleScore{
		Depth: ModuleDepthMetrics{
			ModuleName:       name,
			PubTypeCount:     counts.PublicTypes,
			PrivateTypeCount: counts.PrivateTypes,
		},
		Passthroughs: []PassThroughMethodInfo{},
		Hotspots:     []Hotspot{},
	}

	fset := token.NewFileSet()
	var files []*ast.File
	for _, u := range units {
		f, err := parser.ParseFile(fset, u.Path, u.Src, parser.SkipObjectResolution)
		if err != nil {
			score.Errors = append(score.Errors, fmt.Errorf("parsing %s: %w", u.Path, err))
			continue
		}
		files = append(files, f)
		score.Depth.ImplementationLOC += countNonEmptyLines(u.Src)
	}
	if len(units) > 0 && len(files) == 0 {
		score.Depth.PubTypeCount = 0
		score.Depth.PrivateTypeCount = 0
		score.Cognitive.ModuleName = name
		return score
	}

	w := &walker{
		depth:       &score.Depth,
		fset:        fset,
		module:      name,
		idioms:      opts.Idioms,
		typeVariety: make(map[string]bool),
	}
	for _, f := range files {
		w.file(f)
	}
	score.Passthroughs = append(score.Passthroughs, w.passthroughs...)

	maxNesting := 0
	insp := inspector.New(files)
	insp.WithStack(branchNodes, func(n ast.Node, push bool, stack []ast.Node) bool {
		if !push {
			return true
		}
		score.Depth.ComplexityEstimate++
		nesting := 0
		for _, s := range stack {
			if isBranch(s) {
				nesting++
			}
		}
		if nesting > maxNesting {
			maxNesting = nesting
		}
		return true
	})

	if opts.HotspotThreshold > 0 {
		score.Hotspots = hotspots(files, fset, opts)
	}

	d := score.Depth
	score.Cognitive = CognitiveLoadMetrics{
		ModuleName:       name,
		PublicAPICount:   d.PubFunctionCount + d.PubTypeCount + d.PubConstCount,
		DependencyCount:  counts.ExternalDeps + counts.InternalDeps,
		AvgParamCount:    d.AvgParamsPerFunction(),
		TypeVariety:      len(w.typeVariety),
		GenericsCount:    d.GenericParamCount,
		TraitBoundsCount: d.TraitBoundCount,
		MaxNestingDepth:  maxNesting,
		BranchCount:      d.ComplexityEstimate,
	}
	return score
}

// walker accumulates declaration-level counts for one module.
type walker struct {
	depth        *ModuleDepthMetrics
	fset         *token.FileSet
	module       string
	idioms       IdiomPolicy
	typeVariety  map[string]bool
	passthroughs []PassThroughMethodInfo
}

func (w *walker) file(f *ast.File) {
	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			w.funcDecl(d)
		case *ast.GenDecl:
			w.genDecl(d)
		}
	}
}

func (w *walker) funcDecl(fn *ast.FuncDecl) {
	if fn.Name.IsExported() {
		w.depth.PubFunctionCount++
		w.depth.TotalPubParams += countParams(fn.Type.Params)
		w.typeParams(fn.Type.TypeParams)
		w.signatureTypes(fn.Type.Params)
		w.signatureTypes(fn.Type.Results)
	} else {
		w.depth.PrivateFunctionCount++
	}

	if info, ok := detectPassthrough(fn, w.idioms); ok {
		pos := w.fset.Position(fn.Pos())
		info.ModuleName = w.module
		info.File = pos.Filename
		info.Line = pos.Line
		w.passthroughs = append(w.passthroughs, info)
	}
}

func (w *walker) genDecl(gd *ast.GenDecl) {
	switch gd.Tok {
	case token.CONST:
		for _, spec := range gd.Specs {
			vs := spec.(*ast.ValueSpec)
			for _, n := range vs.Names {
				if n.IsExported() {
					w.depth.PubConstCount++
				}
			}
		}
	case token.TYPE:
		for _, spec := range gd.Specs {
			ts := spec.(*ast.TypeSpec)
			if ts.Name.IsExported() {
				w.typeParams(ts.TypeParams)
			}
		}
	}
}

// typeParams counts generic parameters and the constraints that are
// narrower than any.
func (w *walker) typeParams(fl *ast.FieldList) {
	if fl == nil {
		return
	}
	for _, f := range fl.List {
		n := len(f.Names)
		w.depth.GenericParamCount += n
		if !isAnyConstraint(f.Type) {
			w.depth.TraitBoundCount += n
		}
	}
}

func isAnyConstraint(expr ast.Expr) bool {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name == "any"
	case *ast.InterfaceType:
		return t.Methods == nil || len(t.Methods.List) == 0
	}
	return false
}

func (w *walker) signatureTypes(fl *ast.FieldList) {
	if fl == nil {
		return
	}
	for _, f := range fl.List {
		w.typeVariety[types.ExprString(f.Type)] = true
	}
}

func hotspots(files []*ast.File, fset *token.FileSet, opts Options) []Hotspot {
	var stats gocyclo.Stats
	for _, f := range files {
		stats = gocyclo.AnalyzeASTFile(f, fset, stats)
	}
	top := opts.HotspotTop
	if top <= 0 {
		top = -1
	}
	out := []Hotspot{}
	for _, s := range stats.SortAndFilter(top, opts.HotspotThreshold-1) {
		out = append(out, Hotspot{
			Function:   s.FuncName,
			File:       s.Pos.Filename,
			Line:       s.Pos.Line,
			Complexity: s.Complexity,
		})
	}
	return out
}

func countNonEmptyLines(src []byte) int {
	n := 0
	for _, line := range bytes.Split(src, []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			n++
		}
	}
	return n
}
