package facts

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"path"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/tools/go/ast/inspector"

	"github.com/unbound-force/sounding/internal/naming"
	"github.com/unbound-force/sounding/internal/temporal"
)

// builtins are predeclared functions. A call to one says nothing
// about temporal coupling, and the builtin close acts on channels.
var builtins = map[string]bool{
	"append": true, "cap": true, "clear": true, "close": true,
	"complex": true, "copy": true, "delete": true, "imag": true,
	"len": true, "make": true, "max": true, "min": true, "new": true,
	"panic": true, "print": true, "println": true, "real": true,
	"recover": true,
}

// predeclared types, skipped when collecting type references.
var predeclared = map[string]bool{
	"any": true, "bool": true, "byte": true, "comparable": true,
	"complex64": true, "complex128": true, "error": true,
	"float32": true, "float64": true, "int": true, "int8": true,
	"int16": true, "int32": true, "int64": true, "rune": true,
	"string": true, "uint": true, "uint8": true, "uint16": true,
	"uint32": true, "uint64": true, "uintptr": true,
}

// manualMemory lists package-qualified calls that allocate or release
// memory outside the garbage collector.
var manualMemory = map[string]bool{
	"C.malloc": true, "C.calloc": true, "C.realloc": true, "C.free": true,
	"syscall.Mmap": true, "syscall.Munmap": true,
	"unix.Mmap": true, "unix.Munmap": true,
}

// destructorMethods mark a type as releasing its own resources.
var destructorMethods = map[string]bool{"Close": true, "Release": true}

var versionSuffix = regexp.MustCompile(`\.v\d+$`)

// GoExtractor extracts facts from Go source with go/ast.
type GoExtractor struct{}

// NewGoExtractor returns a GoExtractor.
func NewGoExtractor() *GoExtractor {
	return &GoExtractor{}
}

// Extract parses src and collects facts. A parse error is returned
// as is; the caller decides whether to fall back.
func (e *GoExtractor) Extract(filename string, src []byte) (*Facts, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}

	c := &goCollector{
		fset:     fset,
		imports:  importNames(file),
		builders: make(map[string][]string),
	}
	c.collectDecls(file)
	c.collectBodies(file)
	return c.facts(), nil
}

type goCollector struct {
	fset    *token.FileSet
	imports map[string]string

	defs, calls, spawns, joins, guards, allocs []string
	destructors, nameRefs, typeRefs            set
	builderOrder                               []string
	builders                                   map[string][]string
	signatures                                 []Signature
	literals                                   []Literal
	typeRefList                                []Ref
	nameRefList                                []Ref
}

func (c *goCollector) line(n ast.Node) int {
	return c.fset.Position(n.Pos()).Line
}

// importNames maps each import's local name to its path. Blank and
// dot imports are skipped.
func importNames(f *ast.File) map[string]string {
	names := make(map[string]string)
	for _, spec := range f.Imports {
		p, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		name := ""
		if spec.Name != nil {
			name = spec.Name.Name
		} else {
			name = defaultImportName(p)
		}
		if name == "_" || name == "." {
			continue
		}
		names[name] = p
	}
	return names
}

// defaultImportName guesses the package name from an import path.
func defaultImportName(p string) string {
	base := path.Base(p)
	if strings.HasPrefix(base, "v") && len(base) > 1 && strings.Trim(base[1:], "0123456789") == "" {
		base = path.Base(path.Dir(p))
	}
	base = versionSuffix.ReplaceAllString(base, "")
	if i := strings.LastIndex(base, "-"); i >= 0 {
		base = base[i+1:]
	}
	return base
}

func (c *goCollector) collectDecls(file *ast.File) {
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		name := fn.Name.Name
		c.defs = append(c.defs, name)
		c.signatures = append(c.signatures, Signature{
			Name:  qualifiedName(fn),
			Arity: fieldCount(fn.Type.Params),
			Line:  c.line(fn),
		})
		c.addTypeRefs(fn.Type.Params, "parameter type")
		c.addTypeRefs(fn.Type.Results, "result type")

		recv := receiverType(fn)
		if recv == "" {
			continue
		}
		if destructorMethods[name] {
			c.destructors.add(recv)
		}
		if isBuilderMethod(fn, recv) {
			if _, seen := c.builders[recv]; !seen {
				c.builderOrder = append(c.builderOrder, recv)
			}
			c.builders[recv] = append(c.builders[recv], name)
		}
	}
}

func (c *goCollector) addTypeRefs(fl *ast.FieldList, context string) {
	if fl == nil {
		return
	}
	for _, field := range fl.List {
		name := namedType(field.Type)
		if name == "" || !c.typeRefs.add(name) {
			continue
		}
		c.typeRefList = append(c.typeRefList, Ref{Target: name, Context: context, Line: c.line(field)})
	}
}

// namedType returns the named type at the core of expr, or "" for
// predeclared and literal types.
func namedType(expr ast.Expr) string {
	for {
		switch t := expr.(type) {
		case *ast.StarExpr:
			expr = t.X
		case *ast.ArrayType:
			expr = t.Elt
		case *ast.Ellipsis:
			expr = t.Elt
		case *ast.IndexExpr:
			expr = t.X
		case *ast.IndexListExpr:
			expr = t.X
		case *ast.Ident:
			if predeclared[t.Name] {
				return ""
			}
			return t.Name
		case *ast.SelectorExpr:
			return types.ExprString(t)
		default:
			return ""
		}
	}
}

func (c *goCollector) collectBodies(file *ast.File) {
	insp := inspector.New([]*ast.File{file})
	filter := []ast.Node{
		(*ast.CallExpr)(nil),
		(*ast.GoStmt)(nil),
		(*ast.DeferStmt)(nil),
		(*ast.BasicLit)(nil),
		(*ast.SelectorExpr)(nil),
	}
	insp.WithStack(filter, func(n ast.Node, push bool, stack []ast.Node) bool {
		if !push {
			return true
		}
		switch n := n.(type) {
		case *ast.CallExpr:
			c.addCall(n)
		case *ast.GoStmt:
			c.spawns = append(c.spawns, "go")
		case *ast.DeferStmt:
			if name := callName(n.Call); name != "" {
				c.guards = append(c.guards, "defer "+name)
			}
		case *ast.BasicLit:
			c.addLiteral(n, stack)
		case *ast.SelectorExpr:
			c.addNameRef(n)
		}
		return true
	})
}

func (c *goCollector) addCall(call *ast.CallExpr) {
	switch fun := ast.Unparen(call.Fun).(type) {
	case *ast.Ident:
		if builtins[fun.Name] {
			return
		}
		c.recordCall(fun.Name)
	case *ast.SelectorExpr:
		name := fun.Sel.Name
		if pkg, ok := fun.X.(*ast.Ident); ok {
			if op := pkg.Name + "." + name; manualMemory[op] {
				c.allocs = append(c.allocs, op)
			}
		}
		switch name {
		case "Go":
			c.spawns = append(c.spawns, name)
		case "Wait":
			c.joins = append(c.joins, name)
		}
		c.recordCall(name)
	}
}

func (c *goCollector) recordCall(name string) {
	c.calls = append(c.calls, name)
	snake := naming.SnakeCase(name)
	if temporal.IsSpawnCall(snake) {
		c.spawns = append(c.spawns, name)
	}
	if temporal.IsJoinCall(snake) {
		c.joins = append(c.joins, name)
	}
}

// addLiteral records numbers anywhere outside declarations and
// strings only where they are compared or switched on.
func (c *goCollector) addLiteral(lit *ast.BasicLit, stack []ast.Node) {
	if len(stack) < 2 {
		return
	}
	for _, anc := range stack[:len(stack)-1] {
		switch anc.(type) {
		case *ast.GenDecl, *ast.Field:
			return
		}
	}
	parent := stack[len(stack)-2]
	value := lit.Value
	switch lit.Kind {
	case token.INT, token.FLOAT, token.IMAG:
		if u, ok := parent.(*ast.UnaryExpr); ok && u.Op == token.SUB {
			value = "-" + value
		}
	case token.STRING, token.CHAR:
		if !isComparison(parent) {
			return
		}
	}
	c.literals = append(c.literals, Literal{
		Location: enclosingFunc(stack),
		Value:    value,
		Line:     c.line(lit),
	})
}

func isComparison(n ast.Node) bool {
	switch p := n.(type) {
	case *ast.BinaryExpr:
		return p.Op == token.EQL || p.Op == token.NEQ
	case *ast.CaseClause:
		return true
	}
	return false
}

func enclosingFunc(stack []ast.Node) string {
	for i := len(stack) - 1; i >= 0; i-- {
		if fn, ok := stack[i].(*ast.FuncDecl); ok {
			return qualifiedName(fn)
		}
	}
	return "package"
}

func (c *goCollector) addNameRef(sel *ast.SelectorExpr) {
	pkg, ok := sel.X.(*ast.Ident)
	if !ok {
		return
	}
	if _, imported := c.imports[pkg.Name]; !imported {
		return
	}
	target := pkg.Name + "." + sel.Sel.Name
	if !c.nameRefs.add(target) {
		return
	}
	c.nameRefList = append(c.nameRefList, Ref{
		Target:  target,
		Context: "reference to " + c.imports[pkg.Name],
		Line:    c.line(sel),
	})
}

func (c *goCollector) facts() *Facts {
	f := &Facts{
		Language:     LangGo,
		FunctionDefs: c.defs,
		Calls:        c.calls,
		Destructors:  c.destructors.items,
		Guards:       c.guards,
		Allocations:  c.allocs,
		Spawns:       c.spawns,
		Joins:        c.joins,
		Signatures:   c.signatures,
		Literals:     c.literals,
		NameRefs:     c.nameRefList,
		TypeRefs:     c.typeRefList,
	}
	for _, typ := range c.builderOrder {
		f.Builders = append(f.Builders, Builder{Type: typ, Methods: c.builders[typ]})
	}
	var importPaths []string
	for _, p := range c.imports {
		importPaths = append(importPaths, p)
	}
	f.AlgorithmText = algorithmText(importPaths, c.defs, c.calls, c.nameRefs.items)
	return f
}

// isBuilderMethod reports whether fn is a With/Set method returning
// its own receiver type.
func isBuilderMethod(fn *ast.FuncDecl, recv string) bool {
	name := fn.Name.Name
	if !strings.HasPrefix(name, "With") && !strings.HasPrefix(name, "Set") {
		return false
	}
	res := fn.Type.Results
	if res == nil || len(res.List) != 1 {
		return false
	}
	return namedType(res.List[0].Type) == recv
}

func callName(call *ast.CallExpr) string {
	switch fun := ast.Unparen(call.Fun).(type) {
	case *ast.Ident:
		return fun.Name
	case *ast.SelectorExpr:
		return fun.Sel.Name
	case *ast.FuncLit:
		return "func"
	}
	return ""
}

func receiverType(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return ""
	}
	return namedType(fn.Recv.List[0].Type)
}

func qualifiedName(fn *ast.FuncDecl) string {
	if recv := receiverType(fn); recv != "" {
		return recv + "." + fn.Name.Name
	}
	return fn.Name.Name
}

// fieldCount counts parameters, one per name or one per unnamed field.
func fieldCount(fl *ast.FieldList) int {
	if fl == nil {
		return 0
	}
	n := 0
	for _, f := range fl.List {
		if len(f.Names) == 0 {
			n++
		} else {
			n += len(f.Names)
		}
	}
	return n
}
