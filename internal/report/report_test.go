package report

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/unbound-force/sounding/internal/engine"
	"github.com/unbound-force/sounding/internal/taxonomy"
)

const storeSource = `package store

import "sync"

type Store struct {
	mu   sync.Mutex
	data map[string]int
}

func (s *Store) Put(k string, v int) {
	s.mu.Lock()
	s.data[k] = v
}

func (s *Store) Get(k string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[k]
}

func (s *Store) Fetch(k string) int {
	return s.Get(k)
}
`

const workerSource = `def start_worker():
    pass
`

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("creating dir for %s: %v", rel, err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("writing %s: %v", rel, err)
		}
	}
	return root
}

func analyze(t *testing.T, files map[string]string) *engine.Report {
	t.Helper()
	rpt, err := engine.Run(context.Background(), writeTree(t, files), engine.Options{Version: "test"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return rpt
}

func sampleReport(t *testing.T) *engine.Report {
	return analyze(t, map[string]string{
		"go.mod":         "module example.com/app\n",
		"store/store.go": storeSource,
		"worker/jobs.py": workerSource,
	})
}

// pythonOnlyReport has no Go module, so nothing is APOSD-scored.
func pythonOnlyReport(t *testing.T) *engine.Report {
	return analyze(t, map[string]string{
		"worker/jobs.py": workerSource,
	})
}

func compileSchema(t *testing.T) *jsonschema.Schema {
	t.Helper()
	sch, err := jsonschema.UnmarshalJSON(strings.NewReader(Schema))
	if err != nil {
		t.Fatalf("failed to parse schema JSON: %v", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", sch); err != nil {
		t.Fatalf("failed to add schema resource: %v", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		t.Fatalf("failed to compile schema: %v", err)
	}
	return compiled
}

func TestWriteJSON_ValidJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleReport(t), "0.1.0"); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v\noutput:\n%s", err, buf.String())
	}
	if parsed["version"] != "0.1.0" {
		t.Errorf("version = %v, want 0.1.0", parsed["version"])
	}
}

func TestWriteJSON_ContainsAllFields(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleReport(t), "0.1.0"); err != nil {
		t.Fatal(err)
	}

	output := buf.String()
	requiredFields := []string{
		`"version"`, `"report"`, `"modules"`, `"findings"`,
		`"module_depths"`, `"cognitive_loads"`, `"passthrough_methods"`,
		`"pattern_kind"`, `"by_type"`, `"tier"`, `"summary"`,
		`"total_issues"`, `"sounding_version"`, `"go_version"`,
	}

	for _, field := range requiredFields {
		if !strings.Contains(output, field) {
			t.Errorf("JSON output missing field %s", field)
		}
	}
}

func TestWriteJSON_ValidAgainstSchema(t *testing.T) {
	compiled := compileSchema(t)

	tests := []struct {
		name string
		rpt  func(*testing.T) *engine.Report
	}{
		{"mixed languages", sampleReport},
		{"no APOSD modules", pythonOnlyReport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteJSON(&buf, tt.rpt(t), "0.1.0"); err != nil {
				t.Fatalf("WriteJSON failed: %v", err)
			}

			inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(buf.Bytes()))
			if err != nil {
				t.Fatalf("failed to parse JSON output: %v", err)
			}
			if err := compiled.Validate(inst); err != nil {
				t.Errorf("JSON output does not conform to schema:\n%v", err)
			}
		})
	}
}

func TestWriteJSON_NullDepthRatio(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, pythonOnlyReport(t), "0.1.0"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"average_depth_ratio": null`) {
		t.Error("average_depth_ratio should be null when no module has a ratio")
	}
}

func TestWriteText_HasModules(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, sampleReport(t)); err != nil {
		t.Fatal(err)
	}

	output := buf.String()
	for _, want := range []string{"MODULE", "store", "worker [python]", "python"} {
		if !strings.Contains(output, want) {
			t.Errorf("text output missing %q", want)
		}
	}
}

func TestWriteText_HasPassthroughs(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, sampleReport(t)); err != nil {
		t.Fatal(err)
	}

	output := buf.String()
	if !strings.Contains(output, "Pass-through methods") {
		t.Error("text output missing pass-through section")
	}
	if !strings.Contains(output, "Store.Fetch") {
		t.Error("text output missing Store.Fetch")
	}
}

func TestWriteText_HasHighFindings(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, sampleReport(t)); err != nil {
		t.Fatal(err)
	}

	output := buf.String()
	if !strings.Contains(output, "Critical") {
		t.Error("text output missing the Critical lock/unlock finding")
	}
	if !strings.Contains(output, "PairedOperation") {
		t.Error("text output missing the finding kind")
	}
}

func TestWriteText_HasSummary(t *testing.T) {
	rpt := sampleReport(t)
	var buf bytes.Buffer
	if err := WriteText(&buf, rpt); err != nil {
		t.Fatal(err)
	}

	output := buf.String()
	if !strings.Contains(output, "2 module(s) analyzed") {
		t.Error("text output missing module count summary")
	}
	if !strings.Contains(output, "Temporal coupling") {
		t.Error("text output missing temporal summary line")
	}
}

func TestWriteText_NoHighFindings(t *testing.T) {
	rpt := analyze(t, map[string]string{
		"calc/calc.go": "package calc\n\nfunc add(a, b int) int { return a + b }\n",
	})

	var buf bytes.Buffer
	if err := WriteText(&buf, rpt); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No high-severity findings") {
		t.Errorf("expected 'No high-severity findings', got:\n%s", buf.String())
	}
}

// stripANSI removes ANSI escape sequences from text for width measurement.
var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}

func TestWriteText_FitsIn80Columns(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, sampleReport(t)); err != nil {
		t.Fatal(err)
	}

	const maxWidth = 80
	lines := strings.Split(buf.String(), "\n")
	for i, line := range lines {
		plain := stripANSI(line)
		if strings.HasPrefix(strings.TrimSpace(plain), "/") {
			// The root path line is as wide as the temp dir.
			continue
		}
		width := utf8.RuneCountInString(plain)
		if width > maxWidth {
			t.Errorf("line %d exceeds %d columns (%d runes): %q",
				i+1, maxWidth, width, plain)
		}
	}
}

func TestWriteMarkdown_Sections(t *testing.T) {
	rpt := sampleReport(t)
	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, rpt); err != nil {
		t.Fatal(err)
	}

	output := buf.String()
	for _, want := range []string{
		"# Design Quality Report",
		"## Module Depth (APOSD)",
		"| Module | Depth | Ratio | Cognitive Load | Level |",
		"`Store.Fetch`",
		"# Module: store",
		"# Module: worker [python]",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("markdown output missing %q", want)
		}
	}
}

func TestWriteMarkdown_EmbedsAnalyzerSummaries(t *testing.T) {
	rpt := sampleReport(t)
	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, rpt); err != nil {
		t.Fatal(err)
	}

	output := buf.String()
	for _, m := range rpt.Modules {
		if !strings.Contains(output, m.Temporal.Summary()) {
			t.Errorf("%s: temporal summary not embedded verbatim", m.Name)
		}
		if !strings.Contains(output, m.Connascence.Summary()) {
			t.Errorf("%s: connascence summary not embedded verbatim", m.Name)
		}
	}
}

func TestWriteMarkdown_NoGoModules(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, pythonOnlyReport(t)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No Go modules scored.") {
		t.Error("expected placeholder for an empty APOSD table")
	}
}

func TestTierStyle(t *testing.T) {
	s := DefaultStyles()
	for _, tier := range []taxonomy.Tier{taxonomy.TierCritical, taxonomy.TierHigh, taxonomy.TierMedium, "unknown"} {
		if got := stripANSI(s.TierStyle(tier).Render(string(tier))); got != string(tier) {
			t.Errorf("TierStyle(%s).Render = %q", tier, got)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"abcdefghij", 10, "abcdefghij"},
		{"abcdefghijk", 10, "abcdefg..."},
		{"ééééééééééé", 10, "ééééééé..."},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.max)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) split a character", tt.in, tt.max)
		}
	}
}
