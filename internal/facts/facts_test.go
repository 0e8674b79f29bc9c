package facts_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/unbound-force/sounding/internal/connascence"
	"github.com/unbound-force/sounding/internal/facts"
	"github.com/unbound-force/sounding/internal/temporal"
)

const goSource = `package store

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

type Pool struct{ mu sync.Mutex }

func (p *Pool) Close() error { return nil }

func (p *Pool) WithSize(n int) *Pool   { return p }
func (p *Pool) WithName(s string) *Pool { return p }

func Open(ctx context.Context, a, b, c int) (*Pool, error) {
	p := &Pool{}
	p.mu.Lock()
	defer p.mu.Unlock()
	if a == 42 {
		return nil, nil
	}
	if mode := "fast"; mode == "turbo" {
		go p.run()
	}
	var g errgroup.Group
	g.Go(func() error { return nil })
	_ = g.Wait()
	return p, nil
}

func (p *Pool) run() {}

func (p *Pool) IsInitialized() bool { return true }
`

func extractGo(t *testing.T) *facts.Facts {
	t.Helper()
	f, err := facts.NewGoExtractor().Extract("store.go", []byte(goSource))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	return f
}

func TestGoExtractor_Definitions(t *testing.T) {
	f := extractGo(t)

	want := []string{"Close", "WithSize", "WithName", "Open", "run", "IsInitialized"}
	if !slices.Equal(f.FunctionDefs, want) {
		t.Errorf("FunctionDefs = %v, want %v", f.FunctionDefs, want)
	}
	if !slices.Equal(f.Destructors, []string{"Pool"}) {
		t.Errorf("Destructors = %v, want [Pool]", f.Destructors)
	}
	if len(f.Builders) != 1 || f.Builders[0].Type != "Pool" ||
		!slices.Equal(f.Builders[0].Methods, []string{"WithSize", "WithName"}) {
		t.Errorf("Builders = %+v", f.Builders)
	}

	var open *facts.Signature
	for i := range f.Signatures {
		if f.Signatures[i].Name == "Open" {
			open = &f.Signatures[i]
		}
	}
	if open == nil || open.Arity != 4 {
		t.Fatalf("Open signature = %+v, want arity 4", open)
	}
	if open.Line != 17 {
		t.Errorf("Open line = %d, want 17", open.Line)
	}
}

func TestGoExtractor_Calls(t *testing.T) {
	f := extractGo(t)

	for _, name := range []string{"Lock", "Unlock", "run", "Go", "Wait"} {
		if !slices.Contains(f.Calls, name) {
			t.Errorf("Calls missing %s: %v", name, f.Calls)
		}
	}
	if !slices.Equal(f.Guards, []string{"defer Unlock"}) {
		t.Errorf("Guards = %v", f.Guards)
	}
	if !slices.Equal(f.Spawns, []string{"go", "Go"}) {
		t.Errorf("Spawns = %v, want [go Go]", f.Spawns)
	}
	if !slices.Equal(f.Joins, []string{"Wait"}) {
		t.Errorf("Joins = %v, want [Wait]", f.Joins)
	}
}

func TestGoExtractor_Literals(t *testing.T) {
	f := extractGo(t)

	if len(f.Literals) != 2 {
		t.Fatalf("Literals = %+v, want 42 and the compared string", f.Literals)
	}
	if f.Literals[0].Value != "42" || f.Literals[0].Location != "Open" {
		t.Errorf("Literals[0] = %+v", f.Literals[0])
	}
	if f.Literals[1].Value != `"turbo"` {
		t.Errorf("Literals[1] = %+v, assigned strings should be skipped", f.Literals[1])
	}
}

func TestGoExtractor_References(t *testing.T) {
	f := extractGo(t)

	var names []string
	for _, r := range f.NameRefs {
		names = append(names, r.Target)
	}
	want := []string{"sync.Mutex", "context.Context", "errgroup.Group"}
	if !slices.Equal(names, want) {
		t.Errorf("NameRefs = %v, want %v", names, want)
	}

	var typesSeen []string
	for _, r := range f.TypeRefs {
		typesSeen = append(typesSeen, r.Target)
	}
	if !slices.Equal(typesSeen, []string{"Pool", "context.Context"}) {
		t.Errorf("TypeRefs = %v", typesSeen)
	}
}

func TestGoExtractor_ParseError(t *testing.T) {
	_, err := facts.NewGoExtractor().Extract("bad.go", []byte("package x\nfunc {"))
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFeed(t *testing.T) {
	f := extractGo(t)
	ta := temporal.NewAnalyzer()
	ta.SetModule("store")
	ca := connascence.NewAnalyzer()
	ca.SetModule("store")

	facts.Feed(f, ta, ca)
	ta.Analyze()

	var lockStats *temporal.PairedOperationStats
	for i := range ta.Stats.PairedOperations {
		if ta.Stats.PairedOperations[i].Operation == "lock/unlock" {
			lockStats = &ta.Stats.PairedOperations[i]
		}
	}
	if lockStats == nil || !lockStats.Balanced() {
		t.Errorf("lock/unlock stats = %+v, want balanced", lockStats)
	}
	if !slices.Contains(ta.Stats.StateChecks, "store::is_initialized") {
		t.Errorf("StateChecks = %v", ta.Stats.StateChecks)
	}
	if !slices.Equal(ta.Stats.Destructors, []string{"store::Pool"}) {
		t.Errorf("Destructors = %v", ta.Stats.Destructors)
	}

	if got := ca.Stats.Count(connascence.KindPosition); got != 1 {
		t.Errorf("Position count = %d, want 1", got)
	}
	if got := ca.Stats.Count(connascence.KindMeaning); got != 2 {
		t.Errorf("Meaning count = %d, want 2", got)
	}
	if got := ca.Stats.Count(connascence.KindName); got != 3 {
		t.Errorf("Name count = %d, want 3", got)
	}
	if got := ca.Stats.Count(connascence.KindType); got != 2 {
		t.Errorf("Type count = %d, want 2", got)
	}
}

func TestFeed_NilSafe(t *testing.T) {
	facts.Feed(nil, temporal.NewAnalyzer(), connascence.NewAnalyzer())
	facts.Feed(&facts.Facts{Calls: []string{"open"}}, nil, nil)
}

const rustSource = `
fn initialize(&mut self) {
    self.ready = true;
}

fn process(&mut self) {
    if self.is_initialized() {
        self.handle_request();
    }
}

fn cleanup(&mut self) {
    self.close();
}
`

func TestLexicalExtractor_Rust(t *testing.T) {
	f, err := facts.NewLexicalExtractor(facts.LangRust).Extract("lib.rs", []byte(rustSource))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !slices.Equal(f.FunctionDefs, []string{"initialize", "process", "cleanup"}) {
		t.Errorf("FunctionDefs = %v", f.FunctionDefs)
	}
	if slices.Contains(f.Calls, "initialize") {
		t.Errorf("definition counted as a call: %v", f.Calls)
	}
	count := 0
	for _, c := range f.Calls {
		if c == "close" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("close() counted %d times, want 1", count)
	}
	for _, s := range f.Signatures {
		if s.Arity != 0 {
			t.Errorf("%s arity = %d, self should not count", s.Name, s.Arity)
		}
	}
}

func TestLexicalExtractor_RustSignals(t *testing.T) {
	src := `
impl Drop for Conn {
    fn drop(&mut self) {}
}

fn run(a: i32, b: i32, c: i32, d: i32) {
    let g: MutexGuard<i32> = m.lock().unwrap();
    tokio::spawn(async move {});
    fut.await;
    if x == 42 {}
    let p = alloc(layout);
}
`
	f, err := facts.NewLexicalExtractor(facts.LangRust).Extract("conn.rs", []byte(src))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !slices.Equal(f.Destructors, []string{"Conn"}) {
		t.Errorf("Destructors = %v", f.Destructors)
	}
	if !slices.Contains(f.Guards, "MutexGuard") {
		t.Errorf("Guards = %v", f.Guards)
	}
	if !slices.Equal(f.Spawns, []string{"spawn"}) {
		t.Errorf("Spawns = %v, want [spawn]", f.Spawns)
	}
	if !slices.Equal(f.Joins, []string{"await"}) {
		t.Errorf("Joins = %v, want [await]", f.Joins)
	}
	if !slices.Contains(f.Allocations, "alloc") {
		t.Errorf("Allocations = %v", f.Allocations)
	}
	if len(f.Literals) != 1 || f.Literals[0].Value != "42" || f.Literals[0].Location != "conn.rs" {
		t.Errorf("Literals = %+v", f.Literals)
	}
	var run facts.Signature
	for _, s := range f.Signatures {
		if s.Name == "run" {
			run = s
		}
	}
	if run.Arity != 4 || run.Line != 6 {
		t.Errorf("run signature = %+v, want arity 4 on line 6", run)
	}
}

// TestLexicalExtractor_RustNestedGenerics verifies that definitions
// with nested generic parameters are found and scored.
func TestLexicalExtractor_RustNestedGenerics(t *testing.T) {
	src := `
fn initialize<T: Into<String>>(name: T) {}

fn is_initialized<F: Fn(u8) -> Option<u8>>(check: F) -> bool { true }

fn start(&self) {}
`
	f, err := facts.NewLexicalExtractor(facts.LangRust).Extract("lib.rs", []byte(src))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !slices.Equal(f.FunctionDefs, []string{"initialize", "is_initialized", "start"}) {
		t.Errorf("FunctionDefs = %v", f.FunctionDefs)
	}
	for _, s := range f.Signatures {
		want := 1
		if s.Name == "start" {
			want = 0
		}
		if s.Arity != want {
			t.Errorf("%s arity = %d, want %d", s.Name, s.Arity, want)
		}
	}

	a, err := facts.AnalyzeTemporal("lib.rs", []byte(src), "m")
	if err != nil {
		t.Fatalf("AnalyzeTemporal: %v", err)
	}
	kinds := make(map[temporal.PatternKind]int)
	for _, inst := range a.Instances {
		kinds[inst.Pattern.Kind()]++
	}
	if kinds[temporal.KindStateCheck] != 1 {
		t.Errorf("StateCheck instances = %d, want 1", kinds[temporal.KindStateCheck])
	}
	if kinds[temporal.KindLifecycleSequence] != 2 {
		t.Errorf("LifecycleSequence instances = %d, want 2 (init and start)", kinds[temporal.KindLifecycleSequence])
	}
}

// TestLexicalExtractor_ArityIgnoresNestedCommas verifies that commas
// inside generic, tuple and default-value brackets do not count as
// parameters.
func TestLexicalExtractor_ArityIgnoresNestedCommas(t *testing.T) {
	tests := []struct {
		name string
		lang string
		path string
		src  string
		fn   string
		want int
	}{
		{"rust generics and tuples", facts.LangRust, "lib.rs",
			"fn put(map: HashMap<String, u32>, pair: (u8, u8)) {}", "put", 2},
		{"rust closure bound", facts.LangRust, "lib.rs",
			"fn apply(f: impl Fn(u8, u8) -> u8, x: u8) {}", "apply", 2},
		{"python hints and defaults", facts.LangPython, "app.py",
			"def f(a: Dict[str, int], b=(1, 2)):\n    pass\n", "f", 2},
		{"go channel directions", facts.LangGo, "pipe.go",
			"func pipe(in <-chan int, out chan<- int) {}", "pipe", 2},
		{"go type parameters", facts.LangGo, "pipe.go",
			"func merge[K comparable, V any](a, b map[K]V) {}", "merge", 2},
		{"typescript generics", facts.LangTypeScript, "index.ts",
			"function load<T>(m: Map<string, T>, keys: string[]) {}", "load", 2},
		{"unclosed list", facts.LangRust, "lib.rs",
			"fn broken(a: u8, b: u8", "broken", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := facts.NewLexicalExtractor(tt.lang).Extract(tt.path, []byte(tt.src))
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if !slices.Contains(f.FunctionDefs, tt.fn) {
				t.Fatalf("FunctionDefs = %v, want %s", f.FunctionDefs, tt.fn)
			}
			got := -1
			for _, s := range f.Signatures {
				if s.Name == tt.fn {
					got = s.Arity
				}
			}
			if got != tt.want {
				t.Errorf("%s arity = %d, want %d", tt.fn, got, tt.want)
			}
		})
	}
}

// TestLexicalExtractor_CallsStartAtWords verifies that a call name is
// never the tail of a longer identifier.
func TestLexicalExtractor_CallsStartAtWords(t *testing.T) {
	src := `
fn check(v: Result<u8, E>) -> Box<dyn Fn(u8)> {
    let r = Ok(v);
    Box::new(move |x| helper(x))
}
`
	f, err := facts.NewLexicalExtractor(facts.LangRust).Extract("lib.rs", []byte(src))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for _, bad := range []string{"k", "n", "x"} {
		if slices.Contains(f.Calls, bad) {
			t.Errorf("Calls = %v, should not contain %q", f.Calls, bad)
		}
	}
	for _, want := range []string{"new", "helper"} {
		if !slices.Contains(f.Calls, want) {
			t.Errorf("Calls = %v, want %q", f.Calls, want)
		}
	}
}

func TestLexicalExtractor_LineNumbers(t *testing.T) {
	src := "package p\n\nfunc a() {}\n\nfunc b(x int) {\n\tif x == 42 {\n\t}\n}\n"
	f, err := facts.NewLexicalExtractor(facts.LangGo).Extract("p.go", []byte(src))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	lines := make(map[string]int)
	for _, s := range f.Signatures {
		lines[s.Name] = s.Line
	}
	if lines["a"] != 3 || lines["b"] != 5 {
		t.Errorf("signature lines = %v, want a:3 b:5", lines)
	}
	if len(f.Literals) != 1 || f.Literals[0].Line != 6 {
		t.Errorf("Literals = %+v, want 42 on line 6", f.Literals)
	}
}

func TestLexicalExtractor_Go(t *testing.T) {
	src := `package conn

func (c *Conn) Close() error { return nil }

func serve(c *Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	go handle(c)
	wg.Wait()
}
`
	f, err := facts.NewLexicalExtractor(facts.LangGo).Extract("conn.go", []byte(src))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !slices.Equal(f.FunctionDefs, []string{"Close", "serve"}) {
		t.Errorf("FunctionDefs = %v", f.FunctionDefs)
	}
	if !slices.Equal(f.Destructors, []string{"Conn"}) {
		t.Errorf("Destructors = %v", f.Destructors)
	}
	if !slices.Equal(f.Guards, []string{"defer Unlock"}) {
		t.Errorf("Guards = %v", f.Guards)
	}
	if !slices.Equal(f.Spawns, []string{"go"}) || !slices.Equal(f.Joins, []string{"Wait"}) {
		t.Errorf("Spawns = %v, Joins = %v", f.Spawns, f.Joins)
	}
	for _, name := range []string{"Lock", "Unlock", "handle", "Wait"} {
		if !slices.Contains(f.Calls, name) {
			t.Errorf("Calls missing %s: %v", name, f.Calls)
		}
	}
}

func TestAnalyzeTemporal(t *testing.T) {
	a, err := facts.AnalyzeTemporal("lib.rs", []byte(rustSource), "test_module")
	if err != nil {
		t.Fatalf("AnalyzeTemporal: %v", err)
	}
	got := a.Stats.LifecycleMethods[temporal.PhaseInitialize]
	if !slices.Equal(got, []string{"test_module::initialize"}) {
		t.Errorf("Initialize methods = %v", got)
	}
	if got := a.Stats.LifecycleMethods[temporal.PhaseCleanup]; !slices.Equal(got, []string{"test_module::cleanup"}) {
		t.Errorf("Cleanup methods = %v", got)
	}
	for _, inst := range a.Instances {
		if inst.Pattern.Kind() == temporal.KindLifecycleSequence {
			t.Errorf("initialize has a cleanup, got %+v", inst)
		}
	}
}

func TestLanguageOf(t *testing.T) {
	tests := map[string]string{
		"main.go":        facts.LangGo,
		"src/lib.rs":     facts.LangRust,
		"app.py":         facts.LangPython,
		"Main.java":      facts.LangJava,
		"index.mjs":      facts.LangJavaScript,
		"view.tsx":       facts.LangTypeScript,
		"README.md":      "",
		"Makefile":       "",
		"UPPER.GO":       facts.LangGo,
		"types.d.ts":     facts.LangTypeScript,
		"component.jsx":  facts.LangJavaScript,
		"server.cts":     facts.LangTypeScript,
		"notes.txt":      "",
		"archive.tar.gz": "",
	}
	for path, want := range tests {
		if got := facts.LanguageOf(path); got != want {
			t.Errorf("LanguageOf(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestRegistry(t *testing.T) {
	if _, err := facts.NewRegistry("bogus"); err == nil {
		t.Error("expected error for unknown mode")
	}

	r, err := facts.NewRegistry(facts.ModeAuto)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	defer r.Close()

	if _, err := r.ForPath("notes.txt"); !errors.Is(err, facts.ErrUnsupported) {
		t.Errorf("ForPath(notes.txt) error = %v, want ErrUnsupported", err)
	}
	e, err := r.ForPath("lib.rs")
	if err != nil {
		t.Fatalf("ForPath(lib.rs): %v", err)
	}
	if _, ok := e.(*facts.LexicalExtractor); !ok {
		t.Errorf("rust extractor = %T, want *LexicalExtractor", e)
	}

	// A Go file that does not parse still yields lexical facts.
	e, err = r.ForPath("broken.go")
	if err != nil {
		t.Fatalf("ForPath(broken.go): %v", err)
	}
	f, err := e.Extract("broken.go", []byte("package x\nfunc open( {\n\tx.Close()\n"))
	if err != nil {
		t.Fatalf("Extract with fallback: %v", err)
	}
	if !slices.Contains(f.Calls, "Close") {
		t.Errorf("fallback Calls = %v", f.Calls)
	}
}

func TestRegistry_Lexical(t *testing.T) {
	r, err := facts.NewRegistry(facts.ModeLexical)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	defer r.Close()

	for _, path := range []string{"a.go", "b.py", "c.ts"} {
		e, err := r.ForPath(path)
		if err != nil {
			t.Fatalf("ForPath(%s): %v", path, err)
		}
		if _, ok := e.(*facts.LexicalExtractor); !ok {
			t.Errorf("ForPath(%s) = %T, want *LexicalExtractor", path, e)
		}
	}
}

func TestLexicalExtractor_Generic(t *testing.T) {
	src := `
def connect(host, port):
    sock.open()
    if port == 8080:
        pass

async function load(url) {
    await fetch(url)
}
`
	f, err := facts.NewLexicalExtractor(facts.LangPython).Extract("mixed.py", []byte(src))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !slices.Equal(f.FunctionDefs, []string{"connect", "load"}) {
		t.Errorf("FunctionDefs = %v", f.FunctionDefs)
	}
	if f.Language != facts.LangPython {
		t.Errorf("Language = %q", f.Language)
	}
	if !slices.Contains(f.Calls, "open") || !slices.Contains(f.Calls, "fetch") {
		t.Errorf("Calls = %v", f.Calls)
	}
	if !slices.Equal(f.Joins, []string{"await"}) {
		t.Errorf("Joins = %v", f.Joins)
	}
	if len(f.Literals) != 1 || f.Literals[0].Value != "8080" {
		t.Errorf("Literals = %+v", f.Literals)
	}
}
