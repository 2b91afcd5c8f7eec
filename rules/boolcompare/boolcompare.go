// Package boolcompare defines an Analyzer that flags comparisons of a
// boolean expression against the constants true and false.
package boolcompare

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/printer"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

const Doc = `flag comparisons against the boolean constants true and false

A comparison like x == true or x != false says nothing the operand does
not already say. The suggested fix rewrites the comparison to the operand
itself, negating it where needed.`

var Analyzer = &analysis.Analyzer{
	Name:     "boolcompare",
	Doc:      Doc,
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (any, error) {
	ins := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{(*ast.BinaryExpr)(nil)}
	ins.Preorder(nodeFilter, func(n ast.Node) {
		be := n.(*ast.BinaryExpr)
		if be.Op != token.EQL && be.Op != token.NEQ {
			return
		}

		lit, operand := boolConst(pass, be.X), be.Y
		if lit == "" {
			lit, operand = boolConst(pass, be.Y), be.X
		}
		if lit == "" || boolConst(pass, operand) != "" {
			return
		}
		// x == true on an interface operand is a real comparison, not a
		// redundancy.
		if !isBoolean(pass, operand) {
			return
		}

		text := render(pass.Fset, operand)
		if text == "" {
			return
		}
		if negated(be.Op, lit) {
			text = negate(operand, text)
		}

		msg := fmt.Sprintf("simplify to %s", text)
		pass.Report(analysis.Diagnostic{
			Pos:      be.Pos(),
			End:      be.End(),
			Category: "simplify",
			Message:  msg,
			SuggestedFixes: []analysis.SuggestedFix{{
				Message:   msg,
				TextEdits: []analysis.TextEdit{{Pos: be.Pos(), End: be.End(), NewText: []byte(text)}},
			}},
		})
	})
	return nil, nil
}

// boolConst reports "true" or "false" when e is a use of the predeclared
// constant, and "" otherwise. A shadowed true or false does not count.
func boolConst(pass *analysis.Pass, e ast.Expr) string {
	id, ok := ast.Unparen(e).(*ast.Ident)
	if !ok {
		return ""
	}
	if id.Name != "true" && id.Name != "false" {
		return ""
	}
	if pass.TypesInfo.Uses[id] != types.Universe.Lookup(id.Name) {
		return ""
	}
	return id.Name
}

func isBoolean(pass *analysis.Pass, e ast.Expr) bool {
	t := pass.TypesInfo.TypeOf(e)
	if t == nil {
		return false
	}
	basic, ok := t.Underlying().(*types.Basic)
	return ok && basic.Info()&types.IsBoolean != 0
}

func negated(op token.Token, lit string) bool {
	if op == token.EQL {
		return lit == "false"
	}
	return lit == "true"
}

func negate(operand ast.Expr, text string) string {
	switch operand.(type) {
	case *ast.Ident, *ast.SelectorExpr, *ast.CallExpr, *ast.IndexExpr, *ast.ParenExpr, *ast.TypeAssertExpr:
		return "!" + text
	}
	return "!(" + text + ")"
}

func render(fset *token.FileSet, e ast.Expr) string {
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, fset, e); err != nil {
		return ""
	}
	return buf.String()
}
