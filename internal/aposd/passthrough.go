package aposd

import (
	"go/ast"
	"go/token"
	"go/types"
)

// Ratio at or above which a delegating function is a pass-through.
const passthroughThreshold = 0.8

// errorWrappers are the package-qualified calls that decorate an
// error on its way up. A function body that is nothing but such a
// call is error forwarding, not delegation.
var errorWrappers = map[string]map[string]bool{
	"errors": {
		"Wrap": true, "Wrapf": true, "WithStack": true,
		"WithMessage": true, "WithMessagef": true,
	},
	"fmt": {"Errorf": true},
}

// detectPassthrough inspects a single function declaration. It
// returns false when the function is excluded, has more than one
// statement, or does not end in a call.
func detectPassthrough(fn *ast.FuncDecl, policy IdiomPolicy) (PassThroughMethodInfo, bool) {
	if fn.Body == nil || policy.Excludes(fn.Name.Name) {
		return PassThroughMethodInfo{}, false
	}
	if len(fn.Body.List) != 1 {
		return PassThroughMethodInfo{}, false
	}

	expr, ok := singleExpr(fn.Body.List[0])
	if !ok || !isSimpleDelegation(expr) {
		return PassThroughMethodInfo{}, false
	}
	if _, wrapped := errorWrapperInner(expr); wrapped {
		return PassThroughMethodInfo{}, false
	}

	call, ok := unwrapDelegation(expr).(*ast.CallExpr)
	if !ok {
		return PassThroughMethodInfo{}, false
	}

	total := countParams(fn.Type.Params)
	passed := len(call.Args)
	ratio := 1.0
	if total > 0 {
		ratio = float64(passed) / float64(total)
	}

	return PassThroughMethodInfo{
		MethodName:          funcName(fn),
		DelegatedTo:         delegationTarget(call),
		ParamsPassedThrough: passed,
		TotalParams:         total,
		IsPassthrough:       ratio >= passthroughThreshold && total > 0,
		Confidence:          ratio,
	}, true
}

// singleExpr extracts the expression of an expression statement or a
// single-value return.
func singleExpr(stmt ast.Stmt) (ast.Expr, bool) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		return s.X, true
	case *ast.ReturnStmt:
		if len(s.Results) == 1 {
			return s.Results[0], true
		}
	}
	return nil, false
}

// isSimpleDelegation accepts calls and channel receives from calls.
func isSimpleDelegation(e ast.Expr) bool {
	switch x := ast.Unparen(e).(type) {
	case *ast.CallExpr:
		return true
	case *ast.UnaryExpr:
		if x.Op != token.ARROW {
			return false
		}
		_, ok := ast.Unparen(x.X).(*ast.CallExpr)
		return ok
	}
	return false
}

// errorWrapperInner reports whether e is an error-wrapping call and
// returns the first call among its arguments, if any.
func errorWrapperInner(e ast.Expr) (ast.Expr, bool) {
	call, ok := ast.Unparen(e).(*ast.CallExpr)
	if !ok {
		return nil, false
	}
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return nil, false
	}
	pkg, ok := sel.X.(*ast.Ident)
	if !ok || !errorWrappers[pkg.Name][sel.Sel.Name] {
		return nil, false
	}
	for _, arg := range call.Args {
		if inner, ok := ast.Unparen(arg).(*ast.CallExpr); ok {
			return inner, true
		}
	}
	return nil, true
}

// unwrapDelegation strips receives and error wrappers down to the
// innermost delegating call.
func unwrapDelegation(e ast.Expr) ast.Expr {
	for {
		switch x := ast.Unparen(e).(type) {
		case *ast.UnaryExpr:
			if x.Op != token.ARROW {
				return x
			}
			e = x.X
		case *ast.CallExpr:
			inner, wrapped := errorWrapperInner(x)
			if !wrapped || inner == nil {
				return x
			}
			e = inner
		default:
			return x
		}
	}
}

// delegationTarget renders the callee: "recv.field.Method" for method
// calls, "pkg.Func" for package calls, "_.field" for a call through a
// parenthesized field, the bare name for local functions.
func delegationTarget(call *ast.CallExpr) string {
	fun := call.Fun
	if idx, ok := fun.(*ast.IndexExpr); ok {
		fun = idx.X
	}
	if idx, ok := fun.(*ast.IndexListExpr); ok {
		fun = idx.X
	}
	switch f := fun.(type) {
	case *ast.Ident:
		return f.Name
	case *ast.SelectorExpr:
		return types.ExprString(f)
	case *ast.ParenExpr:
		if sel, ok := ast.Unparen(f).(*ast.SelectorExpr); ok {
			return "_." + sel.Sel.Name
		}
	}
	return "unknown"
}

// countParams counts declared parameters. Unnamed parameters count
// once each.
func countParams(fl *ast.FieldList) int {
	if fl == nil {
		return 0
	}
	n := 0
	for _, f := range fl.List {
		if len(f.Names) == 0 {
			n++
			continue
		}
		n += len(f.Names)
	}
	return n
}

// funcName qualifies methods with their receiver type, as in
// "Client.Do".
func funcName(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return fn.Name.Name
	}
	return recvTypeName(fn.Recv.List[0].Type) + "." + fn.Name.Name
}

func recvTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return recvTypeName(t.X)
	case *ast.IndexExpr:
		return recvTypeName(t.X)
	case *ast.IndexListExpr:
		return recvTypeName(t.X)
	case *ast.Ident:
		return t.Name
	}
	return "?"
}
