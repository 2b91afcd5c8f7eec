// Package deferloop defines an Analyzer that flags defer statements
// inside loop bodies.
package deferloop

import (
	"go/ast"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

const Doc = `flag defer statements inside loops

A defer inside a loop body does not run at the end of the iteration, it
runs when the surrounding function returns. Across many iterations that
piles up open resources. There is no mechanical rewrite, so this
analyzer reports without a suggested fix.`

var Analyzer = &analysis.Analyzer{
	Name:     "deferloop",
	Doc:      Doc,
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (any, error) {
	ins := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{(*ast.DeferStmt)(nil)}
	ins.WithStack(nodeFilter, func(n ast.Node, push bool, stack []ast.Node) bool {
		if !push {
			return false
		}
		// Walk outward until a function boundary clears the defer or a
		// loop convicts it.
		for i := len(stack) - 2; i >= 0; i-- {
			switch stack[i].(type) {
			case *ast.FuncLit, *ast.FuncDecl:
				return true
			case *ast.ForStmt, *ast.RangeStmt:
				pass.Report(analysis.Diagnostic{
					Pos:      n.Pos(),
					End:      n.End(),
					Category: "defer",
					Message:  "defer inside a loop runs only when the surrounding function returns",
				})
				return true
			}
		}
		return true
	})
	return nil, nil
}
