// Package analyzertest asserts the behavior of go/analysis analyzers and
// their suggested fixes from plain source strings, without testdata
// directories or a GOPATH layout.
//
// A test names the analyzer under test and supplies one or more snippets.
// Expected diagnostics are declared inline with want comments:
//
//	analyzertest.Run(t, boolcompare.Analyzer, `package a
//
//	func f(ok bool) bool {
//		return ok == true // want "simplify to ok"
//	}
//	`)
//
// Suggested fixes are verified by applying every fix iteratively until
// the analyzer is silent and comparing the result against the expected
// source text:
//
//	analyzertest.Fix(t, boolcompare.Analyzer, src, fixed)
package analyzertest

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/txtar"

	"github.com/SergeiSkv/FixProof/internal/compile"
	"github.com/SergeiSkv/FixProof/internal/driver"
	"github.com/SergeiSkv/FixProof/internal/expect"
	"github.com/SergeiSkv/FixProof/models"
)

// Result is the outcome of one analyzer execution.
type Result struct {
	// Diagnostics are the analyzer's reports in file and position order.
	Diagnostics []models.Diagnostic

	unit *compile.Unit
	raw  []analysis.Diagnostic
}

// Run analyzes a single source file and checks its diagnostics against
// the want comments in src. A diagnostic without a matching want comment
// or a want comment without a matching diagnostic fails the test.
func Run(t testing.TB, a *analysis.Analyzer, src string, opts ...Option) *Result {
	t.Helper()
	s := newSettings(opts)
	return runChecked(t, a, map[string]string{s.filename: src}, s)
}

// RunFiles is Run for a package made of several files.
func RunFiles(t testing.TB, a *analysis.Analyzer, files map[string]string, opts ...Option) *Result {
	t.Helper()
	return runChecked(t, a, files, newSettings(opts))
}

// RunTxtar is Run for a package given as a txtar archive. Entries with a
// .golden suffix are reserved for FixTxtar and ignored here.
func RunTxtar(t testing.TB, a *analysis.Analyzer, archive string, opts ...Option) *Result {
	t.Helper()
	files, _ := splitArchive(archive)
	if len(files) == 0 {
		t.Fatalf("txtar archive contains no source files")
	}
	return runChecked(t, a, files, newSettings(opts))
}

// Expect runs the analyzer and asserts its diagnostics match the want
// comments in src. It is Run with the result discarded.
func Expect(t testing.TB, a *analysis.Analyzer, src string, opts ...Option) {
	t.Helper()
	Run(t, a, src, opts...)
}

// NoDiagnostics asserts that the analyzer stays silent on src.
func NoDiagnostics(t testing.TB, a *analysis.Analyzer, src string, opts ...Option) {
	t.Helper()
	s := newSettings(opts)

	unit := assemble(t, map[string]string{s.filename: src}, s)
	raw := runAnalyzer(t, unit, a)
	for _, md := range driver.ToModels(unit, a, raw) {
		t.Errorf("%s: unexpected diagnostic: %s", md.Position(), md.Message)
	}
}

func runChecked(t testing.TB, a *analysis.Analyzer, files map[string]string, s *settings) *Result {
	t.Helper()

	unit := assemble(t, files, s)
	raw := runAnalyzer(t, unit, a)

	res := &Result{
		Diagnostics: driver.ToModels(unit, a, raw),
		unit:        unit,
		raw:         raw,
	}

	exps, err := expect.Parse(unit)
	if err != nil {
		t.Fatalf("parsing want comments: %v", err)
	}
	for _, problem := range expect.Check(exps, res.Diagnostics) {
		t.Errorf("%s", problem)
	}
	return res
}

func assemble(t testing.TB, files map[string]string, s *settings) *compile.Unit {
	t.Helper()

	unit, err := compile.Assemble(fileList(files), compile.Options{
		Deps:            s.deps,
		AllowTypeErrors: s.allowTypeErrors,
	})
	if err != nil {
		t.Fatalf("assembling test sources: %v", err)
	}
	return unit
}

func runAnalyzer(t testing.TB, unit *compile.Unit, a *analysis.Analyzer) []analysis.Diagnostic {
	t.Helper()

	raw, err := driver.Run(unit, a)
	if err != nil {
		t.Fatalf("running analyzer: %v", err)
	}
	return raw
}

func fileList(files map[string]string) []compile.File {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	list := make([]compile.File, 0, len(names))
	for _, name := range names {
		list = append(list, compile.File{Name: name, Content: []byte(files[name])})
	}
	return list
}

// splitArchive separates source entries from .golden expectations.
func splitArchive(archive string) (files, golden map[string]string) {
	files = make(map[string]string)
	golden = make(map[string]string)

	ar := txtar.Parse([]byte(archive))
	for _, f := range ar.Files {
		if name, ok := strings.CutSuffix(f.Name, ".golden"); ok {
			golden[name] = string(f.Data)
			continue
		}
		files[f.Name] = string(f.Data)
	}
	return files, golden
}
