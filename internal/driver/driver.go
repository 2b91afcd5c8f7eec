// Package driver executes go/analysis analyzers over in-memory units.
// It resolves the Requires graph, threads results and facts between
// analyzers, and collects the diagnostics of the analyzer under test.
package driver

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"

	"golang.org/x/tools/go/analysis"

	"github.com/SergeiSkv/FixProof/internal/compile"
	"github.com/SergeiSkv/FixProof/models"
)

var (
	ErrNoAnalyzer = errors.New("no analyzer")
	ErrTypeErrors = errors.New("package has type errors")
)

// Run executes the analyzer and its Requires closure against the unit.
// Dependency units are analyzed first, in dependency order, so facts
// exported on their objects are visible when the target is processed.
// Only diagnostics reported by the root analyzer are returned, ordered
// by file, position and message, with exact duplicates removed.
func Run(unit *compile.Unit, a *analysis.Analyzer) ([]analysis.Diagnostic, error) {
	if a == nil {
		return nil, ErrNoAnalyzer
	}
	if err := analysis.Validate([]*analysis.Analyzer{a}); err != nil {
		return nil, fmt.Errorf("invalid analyzer %q: %w", a.Name, err)
	}

	facts := newFactStore()

	for _, dep := range unit.Deps {
		ex := newExecution(dep, facts, nil)
		if _, err := ex.run(a); err != nil {
			return nil, fmt.Errorf("analyzing dependency %s: %w", dep.Pkg.Path(), err)
		}
	}

	var diags []analysis.Diagnostic
	collect := func(d analysis.Diagnostic) { diags = append(diags, d) }

	ex := newExecution(unit, facts, collect)
	ex.root = a
	if _, err := ex.run(a); err != nil {
		return nil, err
	}

	sortRaw(unit, diags)
	return dedupe(unit, diags), nil
}

// ToModels converts raw diagnostics into the serializable report form.
func ToModels(unit *compile.Unit, a *analysis.Analyzer, diags []analysis.Diagnostic) []models.Diagnostic {
	out := make([]models.Diagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, ToModel(unit, a, d))
	}
	return out
}

// ToModel converts one raw diagnostic. Severity defaults to warning;
// callers with configuration apply their overrides afterwards.
func ToModel(unit *compile.Unit, a *analysis.Analyzer, d analysis.Diagnostic) models.Diagnostic {
	pos := unit.Fset.Position(d.Pos)
	md := models.Diagnostic{
		File:     pos.Filename,
		Line:     pos.Line,
		Column:   pos.Column,
		Rule:     a.Name,
		Category: d.Category,
		Message:  d.Message,
		Severity: models.SeverityLevelWarning,
		Fixable:  len(d.SuggestedFixes) > 0,
	}
	if d.End.IsValid() {
		end := unit.Fset.Position(d.End)
		md.EndLine = end.Line
		md.EndColumn = end.Column
	}
	if len(d.SuggestedFixes) > 0 {
		md.FixTitle = d.SuggestedFixes[0].Message
	}
	return md
}

// execution runs one analyzer graph over one unit, memoizing results.
type execution struct {
	unit    *compile.Unit
	facts   *factStore
	report  func(analysis.Diagnostic)
	root    *analysis.Analyzer
	results map[*analysis.Analyzer]any
}

func newExecution(unit *compile.Unit, facts *factStore, report func(analysis.Diagnostic)) *execution {
	return &execution{
		unit:    unit,
		facts:   facts,
		report:  report,
		results: make(map[*analysis.Analyzer]any),
	}
}

func (e *execution) run(a *analysis.Analyzer) (any, error) {
	if res, done := e.results[a]; done {
		return res, nil
	}

	resultOf := make(map[*analysis.Analyzer]any, len(a.Requires))
	for _, req := range a.Requires {
		res, err := e.run(req)
		if err != nil {
			return nil, err
		}
		resultOf[req] = res
	}

	if len(e.unit.TypeErrors) > 0 && !a.RunDespiteErrors {
		return nil, fmt.Errorf("analyzer %q: %w in %s", a.Name, ErrTypeErrors, e.unit.Pkg.Path())
	}

	pass := e.newPass(a, resultOf)
	res, err := a.Run(pass)
	if err != nil {
		return nil, fmt.Errorf("analyzer %q: %w", a.Name, err)
	}
	if err := checkResultType(a, res); err != nil {
		return nil, err
	}

	e.results[a] = res
	return res, nil
}

func (e *execution) newPass(a *analysis.Analyzer, resultOf map[*analysis.Analyzer]any) *analysis.Pass {
	report := func(analysis.Diagnostic) {}
	if e.report != nil && a == e.root {
		report = e.report
	}

	return &analysis.Pass{
		Analyzer:          a,
		Fset:              e.unit.Fset,
		Files:             e.unit.Files,
		OtherFiles:        []string{},
		IgnoredFiles:      []string{},
		Pkg:               e.unit.Pkg,
		TypesInfo:         e.unit.Info,
		TypesSizes:        e.unit.Sizes,
		TypeErrors:        e.unit.TypeErrors,
		ResultOf:          resultOf,
		Report:            report,
		ReadFile:          e.readFile,
		ImportObjectFact:  e.facts.importObjectFact,
		ExportObjectFact:  e.exportObjectFact(a),
		ImportPackageFact: e.facts.importPackageFact,
		ExportPackageFact: e.exportPackageFact(a),
		AllObjectFacts:    e.facts.allObjectFacts,
		AllPackageFacts:   e.facts.allPackageFacts,
	}
}

func (e *execution) readFile(filename string) ([]byte, error) {
	if data, ok := e.unit.Content(filename); ok {
		return data, nil
	}
	return nil, fmt.Errorf("open %s: %w", filename, os.ErrNotExist)
}

func checkResultType(a *analysis.Analyzer, res any) error {
	switch {
	case a.ResultType == nil:
		if res != nil {
			return fmt.Errorf("analyzer %q returned a result but declares no ResultType", a.Name)
		}
	case res == nil:
		return fmt.Errorf("analyzer %q returned nil, want %s", a.Name, a.ResultType)
	case reflect.TypeOf(res) != a.ResultType:
		return fmt.Errorf("analyzer %q returned %T, want %s", a.Name, res, a.ResultType)
	}
	return nil
}

func sortRaw(unit *compile.Unit, diags []analysis.Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		pi := unit.Fset.Position(diags[i].Pos)
		pj := unit.Fset.Position(diags[j].Pos)
		switch {
		case pi.Filename != pj.Filename:
			return pi.Filename < pj.Filename
		case pi.Offset != pj.Offset:
			return pi.Offset < pj.Offset
		default:
			return diags[i].Message < diags[j].Message
		}
	})
}

func dedupe(unit *compile.Unit, diags []analysis.Diagnostic) []analysis.Diagnostic {
	if len(diags) < 2 {
		return diags
	}

	type key struct {
		file    string
		offset  int
		message string
	}
	seen := make(map[key]bool, len(diags))
	out := diags[:0]
	for _, d := range diags {
		pos := unit.Fset.Position(d.Pos)
		k := key{pos.Filename, pos.Offset, d.Message}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, d)
	}
	return out
}
