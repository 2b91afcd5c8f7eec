// Package compile assembles type-checked compilation units from in-memory
// source, without touching the file system. Units are the common currency
// for analyzer execution: they can be built from raw strings or adapted
// from a go/packages load.
package compile

import (
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"os"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"
)

var (
	ErrNoFiles       = errors.New("no source files")
	ErrDuplicateFile = errors.New("duplicate file name")
	ErrMixedPackages = errors.New("files declare different packages")
	ErrImportCycle   = errors.New("import cycle between dependency packages")
)

// File is a named source snippet.
type File struct {
	Name    string
	Content []byte
}

// Package groups files under an import path so the type checker can
// resolve imports of in-memory dependencies.
type Package struct {
	Path  string
	Files []File
}

// Options control unit assembly.
type Options struct {
	// Deps are additional in-memory packages resolvable by import path.
	Deps []Package
	// AllowTypeErrors keeps a unit usable when type checking fails;
	// the errors are retained on the unit instead of aborting.
	AllowTypeErrors bool
}

// Unit is a parsed and type-checked compilation unit together with the
// source bytes it was built from.
type Unit struct {
	Fset       *token.FileSet
	Files      []*ast.File
	Pkg        *types.Package
	Info       *types.Info
	Sizes      types.Sizes
	TypeErrors []types.Error

	// Deps holds in-memory dependency units in dependency order,
	// every unit after the units it imports.
	Deps []*Unit

	contents map[string][]byte
	names    []string
}

// Assemble parses and type-checks files as a single package. Imports are
// resolved against opts.Deps first and the installed standard library
// second, the same chain for every dependency package.
func Assemble(files []File, opts Options) (*Unit, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	fset := token.NewFileSet()
	res := newResolver(fset, opts.Deps)

	unit, err := res.assemble("", files, opts.AllowTypeErrors)
	if err != nil {
		return nil, err
	}
	unit.Deps = res.order
	return unit, nil
}

// Content returns the source bytes of the named file.
func (u *Unit) Content(name string) ([]byte, bool) {
	data, ok := u.contents[name]
	return data, ok
}

// Contents returns a copy of all file contents keyed by file name.
func (u *Unit) Contents() map[string][]byte {
	out := make(map[string][]byte, len(u.contents))
	for name, data := range u.contents {
		out[name] = data
	}
	return out
}

// Filenames returns the unit's file names in sorted order.
func (u *Unit) Filenames() []string {
	return u.names
}

// Span resolves a position range into a file name and half-open byte
// offsets. An invalid end position means an empty span at pos.
func (u *Unit) Span(pos, end token.Pos) (name string, start, stop int, err error) {
	if !pos.IsValid() {
		return "", 0, 0, errors.New("invalid position")
	}
	tf := u.Fset.File(pos)
	if tf == nil {
		return "", 0, 0, fmt.Errorf("position %d outside unit", pos)
	}
	if !end.IsValid() {
		end = pos
	}
	if ef := u.Fset.File(end); ef != tf {
		return "", 0, 0, fmt.Errorf("range %d-%d spans files", pos, end)
	}
	base := token.Pos(tf.Base())
	limit := base + token.Pos(tf.Size())
	if pos < base || pos > limit || end < base || end > limit {
		return "", 0, 0, fmt.Errorf("range %d-%d outside file %s", pos, end, tf.Name())
	}
	if end < pos {
		return "", 0, 0, fmt.Errorf("range %d-%d is inverted", pos, end)
	}
	return tf.Name(), tf.Offset(pos), tf.Offset(end), nil
}

// FromPackage adapts a loaded go/packages package into a Unit so on-disk
// code flows through the same analysis path as in-memory snippets.
func FromPackage(p *packages.Package) (*Unit, error) {
	if p.TypesInfo == nil || p.Types == nil {
		return nil, fmt.Errorf("package %s loaded without type information", p.PkgPath)
	}

	contents := make(map[string][]byte, len(p.CompiledGoFiles))
	names := make([]string, 0, len(p.CompiledGoFiles))
	for _, filename := range p.CompiledGoFiles {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", filename, err)
		}
		contents[filename] = data
		names = append(names, filename)
	}
	sort.Strings(names)

	sizes := p.TypesSizes
	if sizes == nil {
		sizes = defaultSizes()
	}

	return &Unit{
		Fset:       p.Fset,
		Files:      p.Syntax,
		Pkg:        p.Types,
		Info:       p.TypesInfo,
		Sizes:      sizes,
		TypeErrors: p.TypeErrors,
		contents:   contents,
		names:      names,
	}, nil
}

func defaultSizes() types.Sizes {
	if sizes := types.SizesFor("gc", runtime.GOARCH); sizes != nil {
		return sizes
	}
	return &types.StdSizes{WordSize: 8, MaxAlign: 8}
}

func formatTypeErrors(errs []types.Error) string {
	const maxShown = 5

	var sb strings.Builder
	for i, te := range errs {
		if i == maxShown {
			fmt.Fprintf(&sb, "\n\t... and %d more", len(errs)-maxShown)
			break
		}
		if i > 0 {
			sb.WriteString("\n\t")
		}
		fmt.Fprintf(&sb, "%s: %s", te.Fset.Position(te.Pos), te.Msg)
	}
	return sb.String()
}
