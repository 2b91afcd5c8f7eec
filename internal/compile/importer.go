package compile

import (
	"errors"
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"sort"
)

// resolver type-checks in-memory packages on demand. It satisfies
// types.Importer: declared dependency paths resolve to in-memory units,
// everything else falls through to the installed standard library.
type resolver struct {
	fset     *token.FileSet
	deps     map[string][]File
	units    map[string]*Unit
	building map[string]bool
	order    []*Unit
	std      types.Importer

	// importErr keeps the first in-memory import failure. The type
	// checker flattens importer errors into plain messages, so the
	// original error is preserved here for callers.
	importErr error
}

func newResolver(fset *token.FileSet, deps []Package) *resolver {
	index := make(map[string][]File, len(deps))
	for _, dep := range deps {
		index[dep.Path] = dep.Files
	}
	return &resolver{
		fset:     fset,
		deps:     index,
		units:    make(map[string]*Unit),
		building: make(map[string]bool),
		std:      importer.Default(),
	}
}

// Import implements types.Importer.
func (r *resolver) Import(path string) (*types.Package, error) {
	files, ok := r.deps[path]
	if !ok {
		return r.std.Import(path)
	}

	if unit, done := r.units[path]; done {
		return unit.Pkg, nil
	}
	if r.building[path] {
		err := fmt.Errorf("%w: %q imports itself transitively", ErrImportCycle, path)
		r.recordImportErr(err)
		return nil, err
	}

	r.building[path] = true
	defer delete(r.building, path)

	unit, err := r.assemble(path, files, false)
	if err != nil {
		err = fmt.Errorf("dependency %q: %w", path, err)
		r.recordImportErr(err)
		return nil, err
	}
	r.units[path] = unit
	r.order = append(r.order, unit)
	return unit.Pkg, nil
}

func (r *resolver) recordImportErr(err error) {
	if r.importErr == nil {
		r.importErr = err
	}
}

// assemble parses and type-checks one package. An empty path means the
// target package, whose path defaults to its package name.
func (r *resolver) assemble(path string, files []File, allowTypeErrors bool) (*Unit, error) {
	parsed, contents, names, err := r.parse(files)
	if err != nil {
		return nil, err
	}

	info := &types.Info{
		Types:      make(map[ast.Expr]types.TypeAndValue),
		Instances:  make(map[*ast.Ident]types.Instance),
		Defs:       make(map[*ast.Ident]types.Object),
		Uses:       make(map[*ast.Ident]types.Object),
		Implicits:  make(map[ast.Node]types.Object),
		Selections: make(map[*ast.SelectorExpr]*types.Selection),
		Scopes:     make(map[ast.Node]*types.Scope),
	}

	var typeErrors []types.Error
	conf := types.Config{
		FakeImportC: true,
		Importer:    r,
		Error: func(err error) {
			if te, ok := err.(types.Error); ok {
				typeErrors = append(typeErrors, te)
			}
		},
	}

	pkgPath := path
	if pkgPath == "" {
		pkgPath = parsed[0].Name.Name
	}

	pkg, checkErr := conf.Check(pkgPath, r.fset, parsed, info)
	if r.importErr != nil {
		return nil, r.importErr
	}
	if checkErr != nil && len(typeErrors) == 0 {
		return nil, fmt.Errorf("type checking %s: %w", pkgPath, checkErr)
	}
	if len(typeErrors) > 0 && !allowTypeErrors {
		return nil, fmt.Errorf("type checking %s failed:\n\t%s", pkgPath, formatTypeErrors(typeErrors))
	}

	return &Unit{
		Fset:       r.fset,
		Files:      parsed,
		Pkg:        pkg,
		Info:       info,
		Sizes:      defaultSizes(),
		TypeErrors: typeErrors,
		contents:   contents,
		names:      names,
	}, nil
}

func (r *resolver) parse(files []File) ([]*ast.File, map[string][]byte, []string, error) {
	parsed := make([]*ast.File, 0, len(files))
	contents := make(map[string][]byte, len(files))
	names := make([]string, 0, len(files))

	pkgName := ""
	for _, file := range files {
		if file.Name == "" {
			return nil, nil, nil, errors.New("file with empty name")
		}
		if _, dup := contents[file.Name]; dup {
			return nil, nil, nil, fmt.Errorf("%w: %s", ErrDuplicateFile, file.Name)
		}

		f, err := parser.ParseFile(r.fset, file.Name, file.Content, parser.ParseComments)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("parsing %s: %w", file.Name, err)
		}

		switch {
		case pkgName == "":
			pkgName = f.Name.Name
		case pkgName != f.Name.Name:
			return nil, nil, nil, fmt.Errorf("%w: %s declares %q, %s declares %q",
				ErrMixedPackages, files[0].Name, pkgName, file.Name, f.Name.Name)
		}

		parsed = append(parsed, f)
		contents[file.Name] = file.Content
		names = append(names, file.Name)
	}
	sort.Strings(names)

	return parsed, contents, names, nil
}
