package facts

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/unbound-force/sounding/internal/temporal"
)

// profile holds the patterns the lexical extractor uses for one
// language family.
type profile struct {
	language string

	// funcDef captures a function name in group 1 and ends on the
	// bracket that opens its generic or parameter list.
	funcDef    *regexp.Regexp
	methodCall *regexp.Regexp
	bareCall   *regexp.Regexp
	keywords   map[string]bool

	// destructor captures the type name of a destructor definition.
	destructor *regexp.Regexp
	guards     []string
	allocs     []string

	// spawn and join match concurrency statements that are not calls.
	spawn *regexp.Regexp
	join  *regexp.Regexp

	// receivers are parameter names that are not arguments.
	receivers map[string]bool
}

// comparedNumber matches a numeric literal on the right of a
// comparison.
var comparedNumber = regexp.MustCompile(`(?:==|!=|<=|>=|<|>)\s*(-?\d+(?:\.\d+)?)\b`)

var rustProfile = &profile{
	language:   LangRust,
	funcDef:    regexp.MustCompile(`\bfn\s+([a-z_][a-z0-9_]*)\s*[<(]`),
	methodCall: regexp.MustCompile(`\.([a-z_][a-z0-9_]*)\s*\(`),
	bareCall:   regexp.MustCompile(`\b([a-z_][a-z0-9_]*)\s*\(`),
	keywords: toSet("if", "while", "for", "match", "fn", "let", "return",
		"Some", "None", "Ok", "Err"),
	destructor: regexp.MustCompile(`impl\s+Drop\s+for\s+([A-Z][a-zA-Z0-9_]*)`),
	guards:     temporal.GuardTypes,
	allocs:     temporal.ManualAllocPatterns,
	join:       regexp.MustCompile(`\.await\b`),
	receivers:  toSet("self", "&self", "&mut self", "mut self"),
}

var goProfile = &profile{
	language:   LangGo,
	funcDef:    regexp.MustCompile(`\bfunc\s+(?:\([^)]*\)\s*)?([A-Za-z_][A-Za-z0-9_]*)\s*[\[(]`),
	methodCall: regexp.MustCompile(`\.([A-Za-z_][A-Za-z0-9_]*)\s*\(`),
	bareCall:   regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\s*\(`),
	keywords: toSet("if", "for", "switch", "select", "func", "return", "go",
		"defer", "range", "append", "cap", "close", "copy", "delete",
		"len", "make", "new", "panic", "recover"),
	destructor: regexp.MustCompile(`func\s+\(\s*\w+\s+\*?([A-Z]\w*)(?:\[[^\]]*\])?\s*\)\s+(?:Close|Release)\s*\(`),
	allocs:     []string{"C.malloc", "C.calloc", "C.realloc", "C.free", "syscall.Mmap", "syscall.Munmap"},
	spawn:      regexp.MustCompile(`\bgo\s+(?:func\b|[A-Za-z_][\w.]*\()`),
	join:       regexp.MustCompile(`\.Wait\s*\(`),
}

var genericProfile = &profile{
	language:   "",
	funcDef:    regexp.MustCompile(`\b(?:def|function)\s+([A-Za-z_$][\w$]*)\s*[<(]`),
	methodCall: regexp.MustCompile(`\.([A-Za-z_$][\w$]*)\s*\(`),
	bareCall:   regexp.MustCompile(`([A-Za-z_$][\w$]*)\s*\(`),
	keywords: toSet("if", "while", "for", "switch", "catch", "return", "function",
		"def", "class", "new", "print", "elif", "with", "except", "super"),
	join:      regexp.MustCompile(`\bawait\b`),
	receivers: toSet("self", "cls"),
}

var goDeferCall = regexp.MustCompile(`\bdefer\s+(?:[\w.]+\.)?(\w+)\s*\(`)

// LexicalExtractor finds facts with regular expressions. It needs no
// grammar and tolerates any input, at the cost of matching inside
// comments and strings.
type LexicalExtractor struct {
	p *profile
}

// NewLexicalExtractor returns a LexicalExtractor for language. Rust
// and Go have dedicated profiles; every other language uses a profile
// built from def/function definitions and call syntax.
func NewLexicalExtractor(language string) *LexicalExtractor {
	switch language {
	case LangRust:
		return &LexicalExtractor{p: rustProfile}
	case LangGo:
		return &LexicalExtractor{p: goProfile}
	}
	return &LexicalExtractor{p: genericProfile}
}

// Extract scans src. It never fails.
func (e *LexicalExtractor) Extract(path string, src []byte) (*Facts, error) {
	p := e.p
	content := string(src)
	lang := p.language
	if lang == "" {
		lang = LanguageOf(path)
	}
	f := &Facts{Language: lang}
	location := filepath.Base(path)
	lines := newLineIndex(content)

	// Spans of definitions, so a definition is not also counted as a
	// call to itself.
	var defSpans [][]int
	for _, m := range p.funcDef.FindAllStringSubmatchIndex(content, -1) {
		name := content[m[2]:m[3]]
		f.FunctionDefs = append(f.FunctionDefs, name)
		defSpans = append(defSpans, []int{m[2], m[3]})
		if params, ok := paramList(content, m[1]-1); ok {
			f.Signatures = append(f.Signatures, Signature{
				Name:  name,
				Arity: p.arity(params),
				Line:  lines.line(m[0]),
			})
		}
	}

	for _, m := range p.methodCall.FindAllStringSubmatch(content, -1) {
		name := m[1]
		f.Calls = append(f.Calls, name)
		p.classifyCall(f, name)
	}

	for _, m := range p.bareCall.FindAllStringSubmatchIndex(content, -1) {
		start := m[2]
		name := content[start:m[3]]
		if p.keywords[name] || inSpans(start, defSpans) {
			continue
		}
		if start > 0 && (content[start-1] == '.' || isIdentByte(content[start-1])) {
			continue
		}
		f.Calls = append(f.Calls, name)
		p.classifyCall(f, name)
	}

	if p.destructor != nil {
		for _, m := range p.destructor.FindAllStringSubmatch(content, -1) {
			f.Destructors = append(f.Destructors, m[1])
		}
	}
	for _, g := range p.guards {
		if strings.Contains(content, g) {
			f.Guards = append(f.Guards, g)
		}
	}
	if p == goProfile {
		for _, m := range goDeferCall.FindAllStringSubmatch(content, -1) {
			f.Guards = append(f.Guards, "defer "+m[1])
		}
	}
	for _, a := range p.allocs {
		if strings.Contains(content, a) {
			f.Allocations = append(f.Allocations, a)
		}
	}
	if p.spawn != nil {
		for range p.spawn.FindAllStringIndex(content, -1) {
			f.Spawns = append(f.Spawns, "go")
		}
	}
	if p.join != nil {
		for _, m := range p.join.FindAllString(content, -1) {
			f.Joins = append(f.Joins, strings.TrimLeft(strings.TrimRight(m, "( "), "."))
		}
	}

	for _, m := range comparedNumber.FindAllStringSubmatchIndex(content, -1) {
		f.Literals = append(f.Literals, Literal{
			Location: location,
			Value:    content[m[2]:m[3]],
			Line:     lines.line(m[2]),
		})
	}

	f.AlgorithmText = algorithmText(f.FunctionDefs, f.Calls)
	return f, nil
}

// classifyCall records spawn and join calls.
func (p *profile) classifyCall(f *Facts, name string) {
	lower := strings.ToLower(name)
	if temporal.IsSpawnCall(lower) {
		f.Spawns = append(f.Spawns, name)
	}
	if temporal.IsJoinCall(lower) {
		f.Joins = append(f.Joins, name)
	}
}

// arity counts the top-level comma-separated parameters in params,
// ignoring receivers such as self.
func (p *profile) arity(params string) int {
	params = strings.TrimSpace(params)
	if params == "" {
		return 0
	}
	n := 0
	for _, part := range splitTopLevel(params) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		head := part
		if i := strings.IndexAny(part, ":="); i >= 0 {
			head = strings.TrimSpace(part[:i])
		}
		if p.receivers[head] || p.receivers[part] {
			continue
		}
		n++
	}
	return n
}

func inSpans(pos int, spans [][]int) bool {
	for _, s := range spans {
		if pos >= s[0] && pos < s[1] {
			return true
		}
	}
	return false
}

// paramList returns the text inside the parameter list of a
// definition whose generic or parameter bracket opens at
// content[open]. ok is false when the list is not closed.
func paramList(content string, open int) (params string, ok bool) {
	i := open
	if c := content[i]; c == '<' || c == '[' {
		end, ok := closing(content, i)
		if !ok {
			return "", false
		}
		i = end + 1
		for i < len(content) && isSpace(content[i]) {
			i++
		}
		if i >= len(content) || content[i] != '(' {
			return "", false
		}
	}
	end, ok := closing(content, i)
	if !ok {
		return "", false
	}
	return content[i+1 : end], true
}

// closing returns the index of the bracket that closes the one at
// content[open]. Every bracket kind nests; '<' opens only directly
// after an identifier (or at open) and '>' closes only an open '<',
// so comparisons, channel arrows and return arrows are skipped.
func closing(content string, open int) (int, bool) {
	var stack []byte
	for i := open; i < len(content); i++ {
		if closer, ok := opener(content, i, open); ok {
			stack = append(stack, closer)
			continue
		}
		c := content[i]
		if !isCloser(content, i, stack) {
			continue
		}
		for len(stack) > 0 && stack[len(stack)-1] != c {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			return 0, false
		}
		stack = stack[:len(stack)-1]
		if len(stack) == 0 {
			return i, true
		}
	}
	return 0, false
}

// splitTopLevel splits s on commas that are not nested in brackets.
func splitTopLevel(s string) []string {
	var (
		parts []string
		stack []byte
		start int
	)
	for i := 0; i < len(s); i++ {
		if closer, ok := opener(s, i, -1); ok {
			stack = append(stack, closer)
			continue
		}
		c := s[i]
		if isCloser(s, i, stack) {
			for len(stack) > 0 && stack[len(stack)-1] != c {
				stack = stack[:len(stack)-1]
			}
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			continue
		}
		if c == ',' && len(stack) == 0 {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// opener reports whether s[i] opens a bracket and returns the byte
// that closes it.
func opener(s string, i, open int) (byte, bool) {
	switch s[i] {
	case '(':
		return ')', true
	case '[':
		return ']', true
	case '{':
		return '}', true
	case '<':
		if i+1 < len(s) && (s[i+1] == '-' || s[i+1] == '=' || s[i+1] == '<') {
			return 0, false
		}
		if i == open || (i > 0 && isIdentByte(s[i-1])) {
			return '>', true
		}
	}
	return 0, false
}

// isCloser reports whether s[i] closes a bracket on stack.
func isCloser(s string, i int, stack []byte) bool {
	switch s[i] {
	case ')', ']', '}':
		return true
	case '>':
		if i > 0 && (s[i-1] == '-' || s[i-1] == '=') {
			return false
		}
		for _, c := range stack {
			if c == '>' {
				return true
			}
		}
	}
	return false
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// lineIndex maps byte offsets to 1-based line numbers.
type lineIndex []int

func newLineIndex(content string) lineIndex {
	var idx lineIndex
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			idx = append(idx, i)
		}
	}
	return idx
}

// line returns the 1-based line of byte offset off.
func (idx lineIndex) line(off int) int {
	return sort.SearchInts(idx, off) + 1
}

func toSet(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}
