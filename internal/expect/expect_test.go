package expect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SergeiSkv/FixProof/internal/compile"
	"github.com/SergeiSkv/FixProof/models"
)

func parseSource(t *testing.T, src string) ([]*Expectation, error) {
	t.Helper()
	unit, err := compile.Assemble([]compile.File{{Name: "a.go", Content: []byte(src)}}, compile.Options{})
	require.NoError(t, err)
	return Parse(unit)
}

func TestParse(t *testing.T) {
	exps, err := parseSource(t, `package p

var a = 1 // want "first"
var b = 2 // want "second" `+"`third [0-9]+`"+`
var c = 3 // plain comment
`)
	require.NoError(t, err)
	require.Len(t, exps, 3)

	assert.Equal(t, "a.go", exps[0].File)
	assert.Equal(t, 3, exps[0].Line)
	assert.True(t, exps[0].Pattern.MatchString("first thing"))

	assert.Equal(t, 4, exps[1].Line)
	assert.Equal(t, 4, exps[2].Line)
	assert.True(t, exps[2].Pattern.MatchString("third 42"))
	assert.False(t, exps[2].Pattern.MatchString("third x"))
}

func TestParseBlockComment(t *testing.T) {
	exps, err := parseSource(t, `package p

var a = 1 /* want "boxed" */
`)
	require.NoError(t, err)
	require.Len(t, exps, 1)
	assert.Equal(t, 3, exps[0].Line)
}

func TestParseIgnoresNonDirectives(t *testing.T) {
	exps, err := parseSource(t, `package p

// wanted: not a directive
// wanting more is fine too
var a = 1
`)
	require.NoError(t, err)
	assert.Empty(t, exps)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing pattern", "package p\n\nvar a = 1 // want\n"},
		{"unquoted pattern", "package p\n\nvar a = 1 // want first\n"},
		{"invalid regexp", "package p\n\nvar a = 1 // want \"[\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSource(t, tt.src)
			require.Error(t, err)
		})
	}
}

func TestCheck(t *testing.T) {
	exps, err := parseSource(t, `package p

var a = 1 // want "on line three"
var b = 2 // want "on line four"
`)
	require.NoError(t, err)

	diags := []models.Diagnostic{
		{File: "a.go", Line: 3, Message: "on line three"},
		{File: "a.go", Line: 4, Message: "on line four"},
	}
	assert.Empty(t, Check(exps, diags))
}

func TestCheckUnexpectedDiagnostic(t *testing.T) {
	exps, err := parseSource(t, "package p\n\nvar a = 1\n")
	require.NoError(t, err)

	problems := Check(exps, []models.Diagnostic{
		{File: "a.go", Line: 3, Column: 5, Message: "surprise"},
	})
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "unexpected diagnostic: surprise")
	assert.Contains(t, problems[0], "a.go:3:5")
}

func TestCheckUnsatisfiedWant(t *testing.T) {
	exps, err := parseSource(t, `package p

var a = 1 // want "never happens"
`)
	require.NoError(t, err)

	problems := Check(exps, nil)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "a.go:3")
	assert.Contains(t, problems[0], "never happens")
}

func TestCheckDuplicatesConsumeSeparately(t *testing.T) {
	exps, err := parseSource(t, `package p

var a, b = 1, 1 // want "dup" "dup"
`)
	require.NoError(t, err)
	require.Len(t, exps, 2)

	// One diagnostic satisfies one expectation, the other stays open.
	problems := Check(exps, []models.Diagnostic{{File: "a.go", Line: 3, Message: "dup"}})
	require.Len(t, problems, 1)

	// Two diagnostics satisfy both.
	for _, exp := range exps {
		exp.matched = false
	}
	problems = Check(exps, []models.Diagnostic{
		{File: "a.go", Line: 3, Message: "dup"},
		{File: "a.go", Line: 3, Message: "dup"},
	})
	assert.Empty(t, problems)
}
