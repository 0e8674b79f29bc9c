// Package facts extracts language-neutral observations from source
// files and feeds them to the connascence and temporal analyzers.
//
// An Extractor turns one file into Facts. Three implementations
// exist: GoExtractor parses Go with go/ast, TreeSitterExtractor parses
// Python, Java, JavaScript, TypeScript and Go with tree-sitter, and
// LexicalExtractor scans text with regular expressions for languages
// without a grammar (Rust) or when parsing is not wanted.
package facts

import (
	"errors"
	"strings"

	"github.com/unbound-force/sounding/internal/connascence"
	"github.com/unbound-force/sounding/internal/naming"
	"github.com/unbound-force/sounding/internal/temporal"
)

// ErrUnsupported is returned for files no extractor handles.
var ErrUnsupported = errors.New("unsupported language")

// Signature is a function and the number of arguments callers pass.
type Signature struct {
	Name  string `json:"name"`
	Arity int    `json:"arity"`
	Line  int    `json:"line,omitempty"`
}

// Literal is a literal value and the function it appears in.
type Literal struct {
	Location string `json:"location"`
	Value    string `json:"value"`
	Line     int    `json:"line,omitempty"`
}

// Ref is a reference to a name or type defined elsewhere.
type Ref struct {
	Target  string `json:"target"`
	Context string `json:"context"`
	Line    int    `json:"line,omitempty"`
}

// Builder is a type with chainable setter methods.
type Builder struct {
	Type    string   `json:"type"`
	Methods []string `json:"methods"`
}

// Facts are the observations made about one file.
type Facts struct {
	Language string `json:"language"`

	FunctionDefs []string  `json:"function_defs"`
	Calls        []string  `json:"calls"`
	Destructors  []string  `json:"destructors"`
	Guards       []string  `json:"guards"`
	Allocations  []string  `json:"allocations"`
	Spawns       []string  `json:"spawns"`
	Joins        []string  `json:"joins"`
	Builders     []Builder `json:"builders"`

	Signatures []Signature `json:"signatures"`
	Literals   []Literal   `json:"literals"`
	NameRefs   []Ref       `json:"name_refs"`
	TypeRefs   []Ref       `json:"type_refs"`

	// AlgorithmText is the text scanned for shared-algorithm keywords:
	// identifiers and import paths, without comments.
	AlgorithmText string `json:"-"`
}

// Extractor produces Facts for one source file.
type Extractor interface {
	Extract(path string, src []byte) (*Facts, error)
}

// Feed records f in the given analyzers. Either analyzer may be nil.
// Function and call names are converted to snake_case so camelCase
// sources match the keyword tables.
func Feed(f *Facts, t *temporal.Analyzer, c *connascence.Analyzer) {
	if f == nil {
		return
	}
	if t != nil {
		for _, name := range f.FunctionDefs {
			t.RecordFunctionDef(naming.SnakeCase(name))
		}
		for _, name := range f.Calls {
			t.RecordCall(naming.SnakeCase(name))
		}
		for _, d := range f.Destructors {
			t.RecordDestructor(d)
		}
		for _, g := range f.Guards {
			t.RecordGuardUsage(g)
		}
		for _, s := range f.Spawns {
			t.RecordAsyncSpawn(s)
		}
		for _, j := range f.Joins {
			t.RecordAsyncJoin(j)
		}
		for _, a := range f.Allocations {
			t.RecordManualAlloc(a)
		}
		for _, b := range f.Builders {
			t.RecordBuilderPattern(b.Type, b.Methods)
		}
	}
	if c != nil {
		for _, r := range f.NameRefs {
			c.RecordNameDependency(r.Target, r.Context, lineOpt(r.Line)...)
		}
		for _, r := range f.TypeRefs {
			c.RecordTypeDependency(r.Target, r.Context, lineOpt(r.Line)...)
		}
		for _, s := range f.Signatures {
			c.RecordPositionDependency(s.Name, s.Arity, lineOpt(s.Line)...)
		}
		for _, l := range f.Literals {
			c.RecordMagicNumber(l.Location, l.Value, lineOpt(l.Line)...)
		}
		for _, p := range connascence.DetectAlgorithmPatterns(f.AlgorithmText) {
			c.RecordAlgorithmDependency(p.Pattern, p.Context)
		}
	}
}

func lineOpt(line int) []connascence.RecordOption {
	if line <= 0 {
		return nil
	}
	return []connascence.RecordOption{connascence.AtLine(line)}
}

// AnalyzeTemporal runs the lexical extractor over src and returns an
// analyzed temporal.Analyzer for module. It is the quick path for a
// single file when no Registry is at hand.
func AnalyzeTemporal(path string, src []byte, module string) (*temporal.Analyzer, error) {
	f, err := NewLexicalExtractor(LanguageOf(path)).Extract(path, src)
	if err != nil {
		return nil, err
	}
	a := temporal.NewAnalyzer()
	a.SetModule(module)
	Feed(f, a, nil)
	a.Analyze()
	return a, nil
}

// set collects strings once each, keeping first-seen order.
type set struct {
	seen  map[string]bool
	items []string
}

func (s *set) add(v string) bool {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if v == "" || s.seen[v] {
		return false
	}
	s.seen[v] = true
	s.items = append(s.items, v)
	return true
}

// algorithmText joins the identifiers worth scanning for algorithm
// keywords.
func algorithmText(parts ...[]string) string {
	var b strings.Builder
	for _, p := range parts {
		for _, s := range p {
			b.WriteString(s)
			b.WriteByte(' ')
		}
	}
	return b.String()
}
