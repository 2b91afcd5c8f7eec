package textedit

import (
	"bytes"
	"go/token"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/analysis"

	"github.com/SergeiSkv/FixProof/internal/compile"
)

func assembleOne(t *testing.T, name, src string) *compile.Unit {
	t.Helper()
	unit, err := compile.Assemble([]compile.File{{Name: name, Content: []byte(src)}}, compile.Options{})
	require.NoError(t, err)
	return unit
}

// posAt returns the position of the first occurrence of substr.
func posAt(t *testing.T, unit *compile.Unit, name, substr string) token.Pos {
	t.Helper()
	content, ok := unit.Content(name)
	require.True(t, ok)
	idx := bytes.Index(content, []byte(substr))
	require.GreaterOrEqual(t, idx, 0, "substring %q not found", substr)

	tf := unit.Fset.File(unit.Files[0].Pos())
	require.Equal(t, name, tf.Name())
	return tf.Pos(idx)
}

func replacement(t *testing.T, unit *compile.Unit, name, old, new string) analysis.SuggestedFix {
	t.Helper()
	pos := posAt(t, unit, name, old)
	return analysis.SuggestedFix{
		Message: "replace " + old,
		TextEdits: []analysis.TextEdit{{
			Pos:     pos,
			End:     pos + token.Pos(len(old)),
			NewText: []byte(new),
		}},
	}
}

func TestSelectAndApplyReplacement(t *testing.T) {
	src := "package p\n\nvar value = 1\n"
	unit := assembleOne(t, "a.go", src)

	diag := analysis.Diagnostic{
		Pos:            posAt(t, unit, "a.go", "value"),
		Message:        "rename",
		SuggestedFixes: []analysis.SuggestedFix{replacement(t, unit, "a.go", "value", "answer")},
	}

	cands, err := Select(unit, []analysis.Diagnostic{diag}, Options{})
	require.NoError(t, err)
	require.Len(t, cands, 1)

	out, err := Apply(unit.Contents(), cands)
	require.NoError(t, err)
	assert.Equal(t, "package p\n\nvar answer = 1\n", string(out["a.go"]))
}

func TestSelectSkipsConflicting(t *testing.T) {
	src := "package p\n\nvar value = 1\n"
	unit := assembleOne(t, "a.go", src)

	pos := posAt(t, unit, "a.go", "value")
	first := analysis.Diagnostic{
		Pos:            pos,
		Message:        "first",
		SuggestedFixes: []analysis.SuggestedFix{replacement(t, unit, "a.go", "value", "answer")},
	}
	second := analysis.Diagnostic{
		Pos:            pos,
		Message:        "second",
		SuggestedFixes: []analysis.SuggestedFix{replacement(t, unit, "a.go", "value", "result")},
	}

	cands, err := Select(unit, []analysis.Diagnostic{first, second}, Options{})
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "replace value", cands[0].Message)

	out, err := Apply(unit.Contents(), cands)
	require.NoError(t, err)
	assert.Contains(t, string(out["a.go"]), "answer")
}

func TestSelectAtomicFixes(t *testing.T) {
	src := "package p\n\nvar one = 1\n\nvar two = 2\n"
	unit := assembleOne(t, "a.go", src)

	// The second fix edits both names; its "two" edit is fine but the
	// "one" edit collides, so the whole fix must be dropped.
	solo := analysis.Diagnostic{
		Pos:            posAt(t, unit, "a.go", "one"),
		Message:        "solo",
		SuggestedFixes: []analysis.SuggestedFix{replacement(t, unit, "a.go", "one", "first")},
	}

	onePos := posAt(t, unit, "a.go", "one")
	twoPos := posAt(t, unit, "a.go", "two")
	double := analysis.Diagnostic{
		Pos:     onePos,
		Message: "double",
		SuggestedFixes: []analysis.SuggestedFix{{
			Message: "rename both",
			TextEdits: []analysis.TextEdit{
				{Pos: onePos, End: onePos + 3, NewText: []byte("uno")},
				{Pos: twoPos, End: twoPos + 3, NewText: []byte("dos")},
			},
		}},
	}

	cands, err := Select(unit, []analysis.Diagnostic{solo, double}, Options{})
	require.NoError(t, err)
	require.Len(t, cands, 1)

	out, err := Apply(unit.Contents(), cands)
	require.NoError(t, err)
	got := string(out["a.go"])
	assert.Contains(t, got, "first")
	assert.Contains(t, got, "two")
	assert.NotContains(t, got, "dos")
}

func TestSelectMultiEditFix(t *testing.T) {
	src := "package p\n\nvar a = len(\"x\") + 0\n"
	unit := assembleOne(t, "a.go", src)

	lenPos := posAt(t, unit, "a.go", "len(\"x\")")
	plusPos := posAt(t, unit, "a.go", " + 0")
	diag := analysis.Diagnostic{
		Pos:     lenPos,
		Message: "simplify",
		SuggestedFixes: []analysis.SuggestedFix{{
			Message: "drop the addition",
			TextEdits: []analysis.TextEdit{
				{Pos: lenPos, End: lenPos + 4, NewText: []byte("size(")},
				{Pos: plusPos, End: plusPos + 4, NewText: nil},
			},
		}},
	}

	cands, err := Select(unit, []analysis.Diagnostic{diag}, Options{})
	require.NoError(t, err)
	require.Len(t, cands, 1)

	out, err := Apply(unit.Contents(), cands)
	require.NoError(t, err)
	assert.Equal(t, "package p\n\nvar a = size(\"x\")\n", string(out["a.go"]))
}

func TestSelectInsertion(t *testing.T) {
	src := "package p\n"
	unit := assembleOne(t, "a.go", src)

	end := posAt(t, unit, "a.go", "package p\n") + token.Pos(len(src))
	diag := analysis.Diagnostic{
		Pos:     unit.Files[0].Name.Pos(),
		Message: "append",
		SuggestedFixes: []analysis.SuggestedFix{{
			Message: "add a marker",
			TextEdits: []analysis.TextEdit{{
				Pos:     end,
				End:     token.NoPos,
				NewText: []byte("\nvar marker = true\n"),
			}},
		}},
	}

	cands, err := Select(unit, []analysis.Diagnostic{diag}, Options{})
	require.NoError(t, err)

	out, err := Apply(unit.Contents(), cands)
	require.NoError(t, err)
	assert.Equal(t, "package p\n\nvar marker = true\n", string(out["a.go"]))
}

func TestSelectPattern(t *testing.T) {
	src := "package p\n\nvar value = 1\n"
	unit := assembleOne(t, "a.go", src)

	diag := analysis.Diagnostic{
		Pos:     posAt(t, unit, "a.go", "value"),
		Message: "rename",
		SuggestedFixes: []analysis.SuggestedFix{
			replacement(t, unit, "a.go", "value", "skipped"),
			{
				Message: "chosen rewrite",
				TextEdits: []analysis.TextEdit{{
					Pos:     posAt(t, unit, "a.go", "1"),
					End:     posAt(t, unit, "a.go", "1") + 1,
					NewText: []byte("2"),
				}},
			},
		},
	}

	cands, err := Select(unit, []analysis.Diagnostic{diag}, Options{Pattern: regexp.MustCompile(`^chosen`)})
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "chosen rewrite", cands[0].Message)
}

func TestSelectMalformedFix(t *testing.T) {
	src := "package p\n\nvar value = 1\n"
	unit := assembleOne(t, "a.go", src)

	pos := posAt(t, unit, "a.go", "value")
	tests := []struct {
		name string
		fix  analysis.SuggestedFix
	}{
		{
			name: "no edits",
			fix:  analysis.SuggestedFix{Message: "empty"},
		},
		{
			name: "inverted span",
			fix: analysis.SuggestedFix{
				Message:   "backwards",
				TextEdits: []analysis.TextEdit{{Pos: pos + 5, End: pos, NewText: []byte("x")}},
			},
		},
		{
			name: "overlapping edits in one fix",
			fix: analysis.SuggestedFix{
				Message: "self overlap",
				TextEdits: []analysis.TextEdit{
					{Pos: pos, End: pos + 4, NewText: []byte("a")},
					{Pos: pos + 2, End: pos + 5, NewText: []byte("b")},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diag := analysis.Diagnostic{Pos: pos, Message: "m", SuggestedFixes: []analysis.SuggestedFix{tt.fix}}
			_, err := Select(unit, []analysis.Diagnostic{diag}, Options{})
			require.Error(t, err)
		})
	}
}

func TestApplyMissingContent(t *testing.T) {
	cands := []Candidate{{Message: "m", Edits: []Edit{{File: "gone.go", Start: 0, End: 1}}}}
	_, err := Apply(map[string][]byte{}, cands)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoContent)
}
