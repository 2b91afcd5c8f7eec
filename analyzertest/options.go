package analyzertest

import (
	"path"
	"sort"

	"github.com/SergeiSkv/FixProof/internal/compile"
)

const defaultFilename = "src.go"

// Option adjusts how test sources are assembled and analyzed.
type Option func(*settings)

type settings struct {
	filename        string
	deps            []compile.Package
	allowTypeErrors bool
	fixPattern      string
	maxPasses       int
	exact           bool
}

func newSettings(opts []Option) *settings {
	s := &settings{
		filename:  defaultFilename,
		maxPasses: defaultMaxPasses,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithFilename sets the file name used for single-source entry points
// such as Run and Fix. The default is src.go.
func WithFilename(name string) Option {
	return func(s *settings) {
		s.filename = name
	}
}

// WithDependency makes a single-file package importable by the sources
// under test without touching the module cache or the filesystem.
func WithDependency(importPath, src string) Option {
	return func(s *settings) {
		s.deps = append(s.deps, compile.Package{
			Path:  importPath,
			Files: []compile.File{{Name: path.Base(importPath) + ".go", Content: []byte(src)}},
		})
	}
}

// WithDependencyFiles is WithDependency for a package made of several files.
func WithDependencyFiles(importPath string, files map[string]string) Option {
	return func(s *settings) {
		names := make([]string, 0, len(files))
		for name := range files {
			names = append(names, name)
		}
		sort.Strings(names)

		pkg := compile.Package{Path: importPath}
		for _, name := range names {
			pkg.Files = append(pkg.Files, compile.File{Name: name, Content: []byte(files[name])})
		}
		s.deps = append(s.deps, pkg)
	}
}

// AllowTypeErrors lets the analysis proceed when the sources do not type
// check. Analyzers that do not declare RunDespiteErrors still refuse to
// run on broken sources.
func AllowTypeErrors() Option {
	return func(s *settings) {
		s.allowTypeErrors = true
	}
}

// WithFixPattern restricts Fix to suggested fixes whose message matches
// the regular expression. Diagnostics whose fixes all fall outside the
// pattern are left unfixed.
func WithFixPattern(pattern string) Option {
	return func(s *settings) {
		s.fixPattern = pattern
	}
}

// WithMaxPasses caps how often Fix re-runs the analyzer while fixes keep
// being applied. The default is 5.
func WithMaxPasses(n int) Option {
	return func(s *settings) {
		if n < 1 {
			n = 1
		}
		s.maxPasses = n
	}
}

// ExactOutput compares the fixed sources byte for byte. By default both
// the fixed output and the expected text are gofmt-formatted first, so
// tests do not break on whitespace produced while splicing edits.
func ExactOutput() Option {
	return func(s *settings) {
		s.exact = true
	}
}
