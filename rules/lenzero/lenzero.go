// Package lenzero defines an Analyzer that flags comparisons of a
// string's length against zero.
package lenzero

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/constant"
	"go/printer"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

const Doc = `flag len(s) comparisons against zero on strings

len(s) == 0, len(s) != 0 and len(s) > 0 compare a string with the empty
string by way of its length. The suggested fix compares the string
directly.`

var Analyzer = &analysis.Analyzer{
	Name:     "lenzero",
	Doc:      Doc,
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (any, error) {
	ins := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{(*ast.BinaryExpr)(nil)}
	ins.Preorder(nodeFilter, func(n ast.Node) {
		be := n.(*ast.BinaryExpr)

		call, equal, ok := match(pass, be)
		if !ok {
			return
		}
		arg := call.Args[0]
		if !isString(pass, arg) {
			return
		}
		text := render(pass.Fset, arg)
		if text == "" {
			return
		}

		op := "!="
		if equal {
			op = "=="
		}
		msg := fmt.Sprintf(`simplify to %s %s ""`, text, op)

		// Two edits keep the argument in place: one removes everything
		// before it, the other rewrites everything after it.
		pass.Report(analysis.Diagnostic{
			Pos:      be.Pos(),
			End:      be.End(),
			Category: "simplify",
			Message:  msg,
			SuggestedFixes: []analysis.SuggestedFix{{
				Message: msg,
				TextEdits: []analysis.TextEdit{
					{Pos: be.Pos(), End: arg.Pos()},
					{Pos: arg.End(), End: be.End(), NewText: []byte(` ` + op + ` ""`)},
				},
			}},
		})
	})
	return nil, nil
}

// match recognizes len(x) compared against zero in either orientation.
// equal reports whether the comparison means "is empty".
func match(pass *analysis.Pass, be *ast.BinaryExpr) (call *ast.CallExpr, equal, ok bool) {
	if call = lenCall(pass, be.X); call != nil && isZero(pass, be.Y) {
		switch be.Op {
		case token.EQL:
			return call, true, true
		case token.NEQ, token.GTR:
			return call, false, true
		}
		return nil, false, false
	}
	if call = lenCall(pass, be.Y); call != nil && isZero(pass, be.X) {
		switch be.Op {
		case token.EQL:
			return call, true, true
		case token.NEQ, token.LSS:
			return call, false, true
		}
	}
	return nil, false, false
}

func lenCall(pass *analysis.Pass, e ast.Expr) *ast.CallExpr {
	call, ok := ast.Unparen(e).(*ast.CallExpr)
	if !ok || len(call.Args) != 1 {
		return nil
	}
	id, ok := call.Fun.(*ast.Ident)
	if !ok || id.Name != "len" {
		return nil
	}
	if pass.TypesInfo.Uses[id] != types.Universe.Lookup("len") {
		return nil
	}
	return call
}

func isZero(pass *analysis.Pass, e ast.Expr) bool {
	tv, ok := pass.TypesInfo.Types[e]
	if !ok || tv.Value == nil {
		return false
	}
	v, exact := constant.Int64Val(constant.ToInt(tv.Value))
	return exact && v == 0
}

func isString(pass *analysis.Pass, e ast.Expr) bool {
	t := pass.TypesInfo.TypeOf(e)
	if t == nil {
		return false
	}
	basic, ok := t.Underlying().(*types.Basic)
	return ok && basic.Info()&types.IsString != 0
}

func render(fset *token.FileSet, e ast.Expr) string {
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, fset, e); err != nil {
		return ""
	}
	return buf.String()
}
