package driver

import (
	"fmt"
	"go/types"
	"reflect"
	"sort"

	"golang.org/x/tools/go/analysis"
)

type objectFactKey struct {
	obj types.Object
	typ reflect.Type
}

type packageFactKey struct {
	pkg *types.Package
	typ reflect.Type
}

// factStore holds facts exported during one driver invocation. Facts are
// namespaced by their concrete type, which belongs to the declaring
// analyzer, and shared between the target unit and its dependencies.
type factStore struct {
	objects  map[objectFactKey]analysis.Fact
	packages map[packageFactKey]analysis.Fact
}

func newFactStore() *factStore {
	return &factStore{
		objects:  make(map[objectFactKey]analysis.Fact),
		packages: make(map[packageFactKey]analysis.Fact),
	}
}

func (s *factStore) importObjectFact(obj types.Object, ptr analysis.Fact) bool {
	if obj == nil {
		panic("ImportObjectFact: nil object")
	}
	fact, ok := s.objects[objectFactKey{obj, factType(ptr)}]
	if !ok {
		return false
	}
	reflect.ValueOf(ptr).Elem().Set(reflect.ValueOf(fact).Elem())
	return true
}

func (s *factStore) setObjectFact(obj types.Object, fact analysis.Fact) {
	s.objects[objectFactKey{obj, factType(fact)}] = fact
}

func (s *factStore) importPackageFact(pkg *types.Package, ptr analysis.Fact) bool {
	if pkg == nil {
		panic("ImportPackageFact: nil package")
	}
	fact, ok := s.packages[packageFactKey{pkg, factType(ptr)}]
	if !ok {
		return false
	}
	reflect.ValueOf(ptr).Elem().Set(reflect.ValueOf(fact).Elem())
	return true
}

func (s *factStore) setPackageFact(pkg *types.Package, fact analysis.Fact) {
	s.packages[packageFactKey{pkg, factType(fact)}] = fact
}

func (s *factStore) allObjectFacts() []analysis.ObjectFact {
	out := make([]analysis.ObjectFact, 0, len(s.objects))
	for key, fact := range s.objects {
		out = append(out, analysis.ObjectFact{Object: key.obj, Fact: fact})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Object.Pos() != out[j].Object.Pos() {
			return out[i].Object.Pos() < out[j].Object.Pos()
		}
		return out[i].Object.Name() < out[j].Object.Name()
	})
	return out
}

func (s *factStore) allPackageFacts() []analysis.PackageFact {
	out := make([]analysis.PackageFact, 0, len(s.packages))
	for key, fact := range s.packages {
		out = append(out, analysis.PackageFact{Package: key.pkg, Fact: fact})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Package.Path() < out[j].Package.Path()
	})
	return out
}

// exportObjectFact validates ownership and fact registration the way the
// platform drivers do: misuse is a programmer error and panics.
func (e *execution) exportObjectFact(a *analysis.Analyzer) func(types.Object, analysis.Fact) {
	return func(obj types.Object, fact analysis.Fact) {
		if obj == nil {
			panic(fmt.Sprintf("analyzer %q: ExportObjectFact with nil object", a.Name))
		}
		if obj.Pkg() != e.unit.Pkg {
			panic(fmt.Sprintf("analyzer %q: cannot export fact %T on object %s of another package",
				a.Name, fact, obj.Name()))
		}
		mustDeclareFactType(a, fact)
		e.facts.setObjectFact(obj, fact)
	}
}

func (e *execution) exportPackageFact(a *analysis.Analyzer) func(analysis.Fact) {
	return func(fact analysis.Fact) {
		mustDeclareFactType(a, fact)
		e.facts.setPackageFact(e.unit.Pkg, fact)
	}
}

func mustDeclareFactType(a *analysis.Analyzer, fact analysis.Fact) {
	t := reflect.TypeOf(fact)
	for _, declared := range a.FactTypes {
		if reflect.TypeOf(declared) == t {
			return
		}
	}
	panic(fmt.Sprintf("analyzer %q: fact type %T not declared in FactTypes", a.Name, fact))
}

func factType(fact analysis.Fact) reflect.Type {
	t := reflect.TypeOf(fact)
	if t == nil || t.Kind() != reflect.Pointer {
		panic(fmt.Sprintf("invalid fact type %T, want pointer", fact))
	}
	return t
}
