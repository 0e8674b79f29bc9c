package facts

import (
	"fmt"
	"strings"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	golang "github.com/tree-sitter/tree-sitter-go/bindings/go"
	java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/unbound-force/sounding/internal/naming"
	"github.com/unbound-force/sounding/internal/temporal"
)

// grammar lists the node kinds one tree-sitter grammar uses for the
// constructs the extractor cares about.
type grammar struct {
	functions   map[string]bool
	calls       map[string]bool
	constructs  map[string]bool
	classes     map[string]bool
	imports     map[string]bool
	numbers     map[string]bool
	strings     map[string]bool
	comparisons map[string]bool
	guards      map[string]string
	spawnStmts  map[string]bool
	joinExprs   map[string]bool
	destructors map[string]bool
	receivers   map[string]bool
	primitives  map[string]bool
}

var grammars = map[string]*grammar{
	LangGo: {
		functions:   toSet("function_declaration", "method_declaration"),
		calls:       toSet("call_expression"),
		imports:     toSet("import_spec"),
		numbers:     toSet("int_literal", "float_literal", "imaginary_literal"),
		strings:     toSet("interpreted_string_literal", "raw_string_literal", "rune_literal"),
		comparisons: toSet("binary_expression"),
		guards:      map[string]string{"defer_statement": "defer"},
		spawnStmts:  toSet("go_statement"),
		destructors: toSet("Close", "Release"),
		primitives: toSet("bool", "byte", "error", "float32", "float64", "int", "int8",
			"int16", "int32", "int64", "rune", "string", "uint", "uint8", "uint16",
			"uint32", "uint64", "uintptr", "any"),
	},
	LangPython: {
		functions:   toSet("function_definition"),
		calls:       toSet("call"),
		classes:     toSet("class_definition"),
		imports:     toSet("import_statement", "import_from_statement"),
		numbers:     toSet("integer", "float"),
		strings:     toSet("string"),
		comparisons: toSet("comparison_operator"),
		guards:      map[string]string{"with_statement": "with"},
		joinExprs:   toSet("await"),
		destructors: toSet("__exit__", "__del__", "close"),
		receivers:   toSet("self", "cls"),
		primitives:  toSet("int", "float", "str", "bool", "bytes", "None", "object"),
	},
	LangJava: {
		functions:  toSet("method_declaration", "constructor_declaration"),
		calls:      toSet("method_invocation"),
		constructs: toSet("object_creation_expression"),
		classes:    toSet("class_declaration", "enum_declaration", "record_declaration"),
		imports:    toSet("import_declaration"),
		numbers: toSet("decimal_integer_literal", "hex_integer_literal", "octal_integer_literal",
			"binary_integer_literal", "decimal_floating_point_literal", "hex_floating_point_literal"),
		strings:     toSet("string_literal", "character_literal"),
		comparisons: toSet("binary_expression"),
		guards:      map[string]string{"try_with_resources_statement": "try-with-resources", "synchronized_statement": "synchronized"},
		destructors: toSet("close"),
		receivers:   toSet("receiver_parameter"),
		primitives:  toSet("int", "long", "short", "byte", "char", "boolean", "float", "double", "void", "String", "Object"),
	},
	LangJavaScript: {
		functions:   toSet("function_declaration", "generator_function_declaration", "method_definition"),
		calls:       toSet("call_expression"),
		constructs:  toSet("new_expression"),
		classes:     toSet("class_declaration", "class"),
		imports:     toSet("import_statement"),
		numbers:     toSet("number"),
		strings:     toSet("string"),
		comparisons: toSet("binary_expression"),
		joinExprs:   toSet("await_expression"),
		destructors: toSet("close", "dispose", "destroy"),
	},
}

func init() {
	ts := *grammars[LangJavaScript]
	ts.functions = toSet("function_declaration", "generator_function_declaration",
		"method_definition", "function_signature")
	ts.classes = toSet("class_declaration", "abstract_class_declaration", "class")
	ts.primitives = toSet("string", "number", "boolean", "any", "unknown", "void", "never", "object")
	grammars[LangTypeScript] = &ts
}

// equality operators whose string operands carry meaning.
var equalityOps = toSet("==", "!=", "===", "!==")

// Calls that start or wait for concurrent work in languages where the
// keyword tables do not apply.
var (
	spawnCalls = toSet("Thread", "create_task", "ensure_future", "submit", "start_new_thread",
		"Worker", "runAsync", "supplyAsync", "Go")
	joinCalls = toSet("gather", "wait", "wait_for", "as_completed", "all", "allSettled",
		"awaitTermination", "Wait")
)

// TreeSitterExtractor extracts facts by walking a tree-sitter syntax
// tree. It is safe for concurrent use; parses are serialized because
// tree-sitter parsers are not thread-safe.
type TreeSitterExtractor struct {
	lang     string
	g        *grammar
	parser   *tree_sitter.Parser
	language *tree_sitter.Language
	mu       sync.Mutex
}

// NewTreeSitterExtractor returns an extractor for lang. tsx selects
// the TSX dialect of TypeScript.
func NewTreeSitterExtractor(lang string, tsx bool) (*TreeSitterExtractor, error) {
	g, ok := grammars[lang]
	if !ok {
		return nil, fmt.Errorf("tree-sitter %s: %w", lang, ErrUnsupported)
	}

	var language *tree_sitter.Language
	switch lang {
	case LangGo:
		language = tree_sitter.NewLanguage(golang.Language())
	case LangPython:
		language = tree_sitter.NewLanguage(python.Language())
	case LangJava:
		language = tree_sitter.NewLanguage(java.Language())
	case LangJavaScript:
		language = tree_sitter.NewLanguage(javascript.Language())
	case LangTypeScript:
		if tsx {
			language = tree_sitter.NewLanguage(typescript.LanguageTSX())
		} else {
			language = tree_sitter.NewLanguage(typescript.LanguageTypescript())
		}
	}

	parser := tree_sitter.NewParser()
	if err := parser.SetLanguage(language); err != nil {
		parser.Close()
		return nil, fmt.Errorf("failed to set %s language: %w", lang, err)
	}
	return &TreeSitterExtractor{lang: lang, g: g, parser: parser, language: language}, nil
}

// Close releases the parser.
func (e *TreeSitterExtractor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.parser.Close()
}

// Extract parses src and walks the tree. Syntax errors do not fail the
// extraction; tree-sitter recovers and the readable parts are used.
func (e *TreeSitterExtractor) Extract(path string, src []byte) (*Facts, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tree := e.parser.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse %s source %s", e.lang, path)
	}
	defer tree.Close()

	w := &tsWalker{
		g:        e.g,
		lang:     e.lang,
		src:      src,
		f:        &Facts{Language: e.lang},
		builders: make(map[string][]string),
	}
	w.walk(tree.RootNode(), nil, scope{})
	return w.facts(), nil
}

// scope is the enclosing class and function of a node.
type scope struct {
	class string
	fn    string
}

type tsWalker struct {
	g    *grammar
	lang string
	src  []byte
	f    *Facts

	destructors, typeRefs, imports set
	builderOrder                   []string
	builders                       map[string][]string
}

func (w *tsWalker) text(n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Utf8Text(w.src)
}

func nodeLine(n *tree_sitter.Node) int {
	return int(n.StartPosition().Row) + 1
}

func (w *tsWalker) walk(node, parent *tree_sitter.Node, sc scope) {
	if node == nil {
		return
	}
	kind := node.Kind()
	g := w.g

	switch {
	case kind == "comment" || kind == "line_comment" || kind == "block_comment":
		return
	case g.classes[kind]:
		sc.class = w.text(node.ChildByFieldName("name"))
	case g.functions[kind]:
		sc.fn = w.function(node, sc)
	case kind == "variable_declarator" && w.isFunctionValue(node):
		sc.fn = w.functionValue(node)
	case g.calls[kind]:
		w.call(node)
	case g.constructs[kind]:
		w.construct(node)
	case g.imports[kind]:
		w.importRef(node)
		return
	case g.spawnStmts[kind]:
		w.f.Spawns = append(w.f.Spawns, "go")
	case g.joinExprs[kind]:
		w.f.Joins = append(w.f.Joins, "await")
	case g.numbers[kind]:
		if sc.fn != "" {
			w.literal(node, sc)
		}
		return
	case g.strings[kind]:
		if sc.fn != "" && w.isComparison(parent) {
			w.literal(node, sc)
		}
		return
	}
	if guard, ok := g.guards[kind]; ok {
		w.f.Guards = append(w.f.Guards, guard)
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		w.walk(node.Child(i), node, sc)
	}
}

// function records a definition and returns its qualified name.
func (w *tsWalker) function(node *tree_sitter.Node, sc scope) string {
	name := w.text(node.ChildByFieldName("name"))
	if name == "" {
		return sc.fn
	}
	owner := sc.class
	if recv := node.ChildByFieldName("receiver"); recv != nil {
		owner = w.goReceiverType(recv)
	}
	qualified := name
	if owner != "" {
		qualified = owner + "." + name
	}

	w.f.FunctionDefs = append(w.f.FunctionDefs, name)
	params := node.ChildByFieldName("parameters")
	w.f.Signatures = append(w.f.Signatures, Signature{
		Name:  qualified,
		Arity: w.arity(params),
		Line:  nodeLine(node),
	})
	w.paramTypes(params)

	if owner != "" {
		if w.g.destructors[name] {
			w.destructors.add(owner)
		}
		if w.isBuilder(node, name, owner) {
			if _, seen := w.builders[owner]; !seen {
				w.builderOrder = append(w.builderOrder, owner)
			}
			w.builders[owner] = append(w.builders[owner], name)
		}
	}
	return qualified
}

func (w *tsWalker) isFunctionValue(node *tree_sitter.Node) bool {
	v := node.ChildByFieldName("value")
	if v == nil {
		return false
	}
	k := v.Kind()
	return k == "arrow_function" || k == "function_expression" || k == "function"
}

// functionValue records `const name = (...) => ...` style definitions.
func (w *tsWalker) functionValue(node *tree_sitter.Node) string {
	name := w.text(node.ChildByFieldName("name"))
	value := node.ChildByFieldName("value")
	params := value.ChildByFieldName("parameters")
	arity := w.arity(params)
	if params == nil && value.ChildByFieldName("parameter") != nil {
		arity = 1
	}
	w.f.FunctionDefs = append(w.f.FunctionDefs, name)
	w.f.Signatures = append(w.f.Signatures, Signature{Name: name, Arity: arity, Line: nodeLine(node)})
	return name
}

func (w *tsWalker) goReceiverType(recv *tree_sitter.Node) string {
	t := strings.Trim(w.text(recv), "()")
	fields := strings.Fields(t)
	if len(fields) == 0 {
		return ""
	}
	typ := strings.TrimPrefix(fields[len(fields)-1], "*")
	if i := strings.IndexByte(typ, '['); i >= 0 {
		typ = typ[:i]
	}
	return typ
}

// arity counts the parameters of a parameter list node.
func (w *tsWalker) arity(params *tree_sitter.Node) int {
	if params == nil {
		return 0
	}
	n := 0
	for i := uint(0); i < params.NamedChildCount(); i++ {
		p := params.NamedChild(i)
		kind := p.Kind()
		switch {
		case strings.Contains(kind, "comment"):
			continue
		case w.g.receivers[kind], w.g.receivers[w.text(p)]:
			continue
		case kind == "parameter_declaration":
			names := 0
			for j := uint(0); j < p.NamedChildCount(); j++ {
				if p.NamedChild(j).Kind() == "identifier" {
					names++
				}
			}
			if names == 0 {
				names = 1
			}
			n += names
		default:
			n++
		}
	}
	return n
}

// paramTypes records named parameter types as type dependencies.
func (w *tsWalker) paramTypes(params *tree_sitter.Node) {
	if params == nil {
		return
	}
	for i := uint(0); i < params.NamedChildCount(); i++ {
		p := params.NamedChild(i)
		t := p.ChildByFieldName("type")
		if t == nil {
			continue
		}
		name := strings.TrimSpace(strings.TrimPrefix(w.text(t), ":"))
		name = strings.TrimLeft(name, "*&[]. ")
		if i := strings.IndexAny(name, "<[ |"); i >= 0 {
			name = name[:i]
		}
		if name == "" || w.g.primitives[name] || !w.typeRefs.add(name) {
			continue
		}
		w.f.TypeRefs = append(w.f.TypeRefs, Ref{Target: name, Context: "parameter type", Line: nodeLine(p)})
	}
}

// isBuilder reports whether a with/set method returns its own class.
func (w *tsWalker) isBuilder(node *tree_sitter.Node, name, owner string) bool {
	lower := naming.SnakeCase(name)
	if !strings.HasPrefix(lower, "with") && !strings.HasPrefix(lower, "set") {
		return false
	}
	for _, field := range []string{"type", "result", "return_type"} {
		if t := node.ChildByFieldName(field); t != nil {
			ret := strings.TrimLeft(strings.TrimSpace(strings.TrimPrefix(w.text(t), ":")), "*")
			return ret == owner || ret == "this" || ret == "Self"
		}
	}
	return false
}

func (w *tsWalker) call(node *tree_sitter.Node) {
	var name string
	if n := node.ChildByFieldName("name"); n != nil {
		name = w.text(n)
	} else if fn := node.ChildByFieldName("function"); fn != nil {
		switch fn.Kind() {
		case "identifier":
			name = w.text(fn)
		case "selector_expression":
			name = w.text(fn.ChildByFieldName("field"))
		case "attribute":
			name = w.text(fn.ChildByFieldName("attribute"))
		case "member_expression":
			name = w.text(fn.ChildByFieldName("property"))
		}
	}
	if name == "" {
		return
	}
	w.recordCall(name)
}

func (w *tsWalker) construct(node *tree_sitter.Node) {
	t := node.ChildByFieldName("type")
	if t == nil {
		t = node.ChildByFieldName("constructor")
	}
	name := w.text(t)
	if i := strings.IndexByte(name, '<'); i >= 0 {
		name = name[:i]
	}
	if name != "" {
		w.recordCall(name)
	}
}

func (w *tsWalker) recordCall(name string) {
	w.f.Calls = append(w.f.Calls, name)
	snake := naming.SnakeCase(name)
	if spawnCalls[name] || temporal.IsSpawnCall(snake) {
		w.f.Spawns = append(w.f.Spawns, name)
	}
	if joinCalls[name] || temporal.IsJoinCall(snake) {
		w.f.Joins = append(w.f.Joins, name)
	}
}

func (w *tsWalker) importRef(node *tree_sitter.Node) {
	var target string
	switch w.lang {
	case LangGo:
		target = strings.Trim(w.text(node.ChildByFieldName("path")), "\"`")
	case LangJavaScript, LangTypeScript:
		target = strings.Trim(w.text(node.ChildByFieldName("source")), "\"'`")
	default:
		target = strings.TrimSpace(w.text(node))
		target = strings.TrimSuffix(target, ";")
		for _, kw := range []string{"import static ", "import ", "from "} {
			target = strings.TrimPrefix(target, kw)
		}
		if i := strings.Index(target, " import "); i >= 0 {
			target = target[:i]
		}
	}
	if target == "" || !w.imports.add(target) {
		return
	}
	w.f.NameRefs = append(w.f.NameRefs, Ref{Target: target, Context: "import", Line: nodeLine(node)})
}

func (w *tsWalker) isComparison(parent *tree_sitter.Node) bool {
	if parent == nil || !w.g.comparisons[parent.Kind()] {
		return false
	}
	if parent.Kind() == "comparison_operator" {
		return true
	}
	return equalityOps[w.text(parent.ChildByFieldName("operator"))]
}

func (w *tsWalker) literal(node *tree_sitter.Node, sc scope) {
	w.f.Literals = append(w.f.Literals, Literal{
		Location: sc.fn,
		Value:    w.text(node),
		Line:     nodeLine(node),
	})
}

func (w *tsWalker) facts() *Facts {
	f := w.f
	f.Destructors = w.destructors.items
	for _, typ := range w.builderOrder {
		f.Builders = append(f.Builders, Builder{Type: typ, Methods: w.builders[typ]})
	}
	f.AlgorithmText = algorithmText(w.imports.items, f.FunctionDefs, f.Calls)
	return f
}
