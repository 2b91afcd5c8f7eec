// Package registry resolves rule names to go/analysis analyzers. It
// knows the bundled rules, a few vet passes, and the staticcheck.io
// analyzer groups.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/shadow"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"honnef.co/go/tools/analysis/lint"
	"honnef.co/go/tools/quickfix"
	"honnef.co/go/tools/simple"
	"honnef.co/go/tools/staticcheck"
	"honnef.co/go/tools/stylecheck"

	"github.com/SergeiSkv/FixProof/rules/boolcompare"
	"github.com/SergeiSkv/FixProof/rules/deferloop"
	"github.com/SergeiSkv/FixProof/rules/lenzero"
)

// Bundled returns the analyzers this module ships itself.
func Bundled() []*analysis.Analyzer {
	return []*analysis.Analyzer{
		boolcompare.Analyzer,
		deferloop.Analyzer,
		lenzero.Analyzer,
	}
}

// Default returns the set used when no rules are configured: the
// bundled rules plus a few vet passes.
func Default() []*analysis.Analyzer {
	return append(Bundled(), vetPasses()...)
}

// All returns every known analyzer keyed by rule name.
func All() map[string]*analysis.Analyzer {
	m := make(map[string]*analysis.Analyzer, 256)
	for _, list := range groups() {
		for _, a := range list {
			m[a.Name] = a
		}
	}
	return m
}

// Select resolves rule names to analyzers. A name is either a single
// rule ("boolcompare", "SA4006") or a whole group ("staticcheck",
// "vet", "bundled"). The result is sorted by name and free of
// duplicates.
func Select(names []string) ([]*analysis.Analyzer, error) {
	catalog := All()
	byGroup := groups()

	seen := make(map[string]bool)
	var out []*analysis.Analyzer
	add := func(a *analysis.Analyzer) {
		if !seen[a.Name] {
			seen[a.Name] = true
			out = append(out, a)
		}
	}

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if list, ok := byGroup[name]; ok {
			for _, a := range list {
				add(a)
			}
			continue
		}
		a, ok := catalog[name]
		if !ok {
			return nil, fmt.Errorf("unknown rule %q", name)
		}
		add(a)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func groups() map[string][]*analysis.Analyzer {
	return map[string][]*analysis.Analyzer{
		"bundled":     Bundled(),
		"vet":         vetPasses(),
		"staticcheck": unwrapLint(staticcheck.Analyzers),
		"simple":      unwrapLint(simple.Analyzers),
		"stylecheck":  unwrapLint(stylecheck.Analyzers),
		"quickfix":    unwrapLint(quickfix.Analyzers),
	}
}

func vetPasses() []*analysis.Analyzer {
	return []*analysis.Analyzer{
		printf.Analyzer,
		shadow.Analyzer,
		structtag.Analyzer,
	}
}

func unwrapLint(list []*lint.Analyzer) []*analysis.Analyzer {
	out := make([]*analysis.Analyzer, 0, len(list))
	for _, v := range list {
		out = append(out, v.Analyzer)
	}
	return out
}
