package analyzertest

import (
	"go/format"
	"regexp"
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/analysis"

	"github.com/SergeiSkv/FixProof/internal/compile"
	"github.com/SergeiSkv/FixProof/internal/diff"
	"github.com/SergeiSkv/FixProof/internal/driver"
	"github.com/SergeiSkv/FixProof/internal/textedit"
)

// defaultMaxPasses bounds the analyze-fix-reanalyze loop. Fix chains
// longer than this almost always mean two fixes keep undoing each other.
const defaultMaxPasses = 5

// Fix analyzes src, applies every suggested fix until the analyzer has
// nothing left to fix, and compares the result against want. Fixes are
// applied atomically per diagnostic; fixes whose edits overlap an
// already accepted fix are retried on the next pass.
func Fix(t testing.TB, a *analysis.Analyzer, src, want string, opts ...Option) {
	t.Helper()
	s := newSettings(opts)
	fixAll(t, a,
		map[string]string{s.filename: src},
		map[string]string{s.filename: want},
		s)
}

// FixFiles is Fix for a package made of several files. Files without an
// entry in want must come out of the fix loop unchanged.
func FixFiles(t testing.TB, a *analysis.Analyzer, files, want map[string]string, opts ...Option) {
	t.Helper()
	fixAll(t, a, files, want, newSettings(opts))
}

// FixTxtar is Fix for a package given as a txtar archive. For every file
// the fixes are expected to change, the archive declares the expected
// text in a sibling entry named <file>.golden.
func FixTxtar(t testing.TB, a *analysis.Analyzer, archive string, opts ...Option) {
	t.Helper()

	files, golden := splitArchive(archive)
	if len(files) == 0 {
		t.Fatalf("txtar archive contains no source files")
	}
	if len(golden) == 0 {
		t.Fatalf("txtar archive declares no .golden entries")
	}
	fixAll(t, a, files, golden, newSettings(opts))
}

func fixAll(t testing.TB, a *analysis.Analyzer, files, want map[string]string, s *settings) {
	t.Helper()

	pattern := compilePattern(t, s)
	contents := make(map[string][]byte, len(files))
	for name, src := range files {
		contents[name] = []byte(src)
	}

	applied := 0
	changed := make(map[string]bool)
	for pass := 0; ; pass++ {
		unit, err := compile.Assemble(byteFileList(contents), compile.Options{
			Deps:            s.deps,
			AllowTypeErrors: s.allowTypeErrors,
		})
		if err != nil {
			if applied == 0 {
				t.Fatalf("assembling test sources: %v", err)
			}
			t.Fatalf("sources no longer compile after %d fix passes: %v\n%s", pass, err, dump(contents))
		}

		raw, err := driver.Run(unit, a)
		if err != nil {
			if applied == 0 {
				t.Fatalf("running analyzer: %v", err)
			}
			t.Fatalf("running analyzer after %d fix passes: %v", pass, err)
		}

		cands, err := textedit.Select(unit, raw, textedit.Options{Pattern: pattern})
		if err != nil {
			t.Fatalf("selecting fixes: %v", err)
		}
		if len(cands) == 0 {
			if applied == 0 {
				switch {
				case len(raw) == 0:
					t.Errorf("analyzer reported no diagnostics, nothing to fix")
				case s.fixPattern != "":
					t.Errorf("analyzer reported %d diagnostics but no fix matches %q", len(raw), s.fixPattern)
				default:
					t.Errorf("analyzer reported %d diagnostics but none carry an applicable fix", len(raw))
				}
				return
			}
			break
		}
		if pass == s.maxPasses {
			t.Errorf("fixes did not settle after %d passes, %d still applicable", pass, len(cands))
			return
		}

		out, err := textedit.Apply(contents, cands)
		if err != nil {
			t.Fatalf("applying fixes: %v", err)
		}
		for name, data := range out {
			contents[name] = data
			changed[name] = true
		}
		applied += len(cands)
	}

	for _, name := range sortedKeys(want) {
		data, ok := contents[name]
		if !ok {
			t.Errorf("expected output for %s, but no such file was analyzed", name)
			continue
		}
		got, wantText := string(data), want[name]
		if !s.exact {
			g, err := format.Source(data)
			if err != nil {
				t.Errorf("fixed output of %s is not valid Go: %v\n%s", name, err, data)
				continue
			}
			w, err := format.Source([]byte(wantText))
			if err != nil {
				t.Fatalf("expected output for %s is not valid Go: %v", name, err)
			}
			got, wantText = string(g), string(w)
		}
		if got != wantText {
			t.Errorf("fixed output of %s does not match (-want +got):\n%s", name, diff.Lines(wantText, got))
		}
	}
	for _, name := range sortedKeys(changed) {
		if _, ok := want[name]; !ok {
			t.Errorf("fixes modified %s, which has no expected content", name)
		}
	}
}

func compilePattern(t testing.TB, s *settings) *regexp.Regexp {
	t.Helper()

	if s.fixPattern == "" {
		return nil
	}
	rx, err := regexp.Compile(s.fixPattern)
	if err != nil {
		t.Fatalf("invalid fix pattern %q: %v", s.fixPattern, err)
	}
	return rx
}

func byteFileList(contents map[string][]byte) []compile.File {
	list := make([]compile.File, 0, len(contents))
	for _, name := range sortedKeys(contents) {
		list = append(list, compile.File{Name: name, Content: contents[name]})
	}
	return list
}

// dump renders the current fix-loop contents for failure messages.
func dump(contents map[string][]byte) string {
	var sb strings.Builder
	for _, name := range sortedKeys(contents) {
		sb.WriteString("-- ")
		sb.WriteString(name)
		sb.WriteString(" --\n")
		sb.Write(contents[name])
		if data := contents[name]; len(data) > 0 && data[len(data)-1] != '\n' {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
