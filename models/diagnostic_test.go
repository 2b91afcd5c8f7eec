package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSortDiagnostics(t *testing.T) {
	diags := []Diagnostic{
		{File: "b.go", Line: 1, Column: 1, Rule: "lenzero", Message: "z"},
		{File: "a.go", Line: 10, Column: 2, Rule: "boolcompare", Message: "m"},
		{File: "a.go", Line: 2, Column: 8, Rule: "boolcompare", Message: "m"},
		{File: "a.go", Line: 2, Column: 1, Rule: "deferloop", Message: "m"},
		{File: "a.go", Line: 2, Column: 1, Rule: "boolcompare", Message: "m"},
	}

	SortDiagnostics(diags)

	require.Equal(t, "a.go", diags[0].File)
	require.Equal(t, 2, diags[0].Line)
	require.Equal(t, 1, diags[0].Column)
	require.Equal(t, "boolcompare", diags[0].Rule)
	require.Equal(t, "deferloop", diags[1].Rule)
	require.Equal(t, 8, diags[2].Column)
	require.Equal(t, 10, diags[3].Line)
	require.Equal(t, "b.go", diags[4].File)
}

func TestComparePosition(t *testing.T) {
	tests := []struct {
		name string
		a, b Diagnostic
		want int
	}{
		{"equal", Diagnostic{File: "a.go", Line: 1, Column: 1}, Diagnostic{File: "a.go", Line: 1, Column: 1}, 0},
		{"file wins", Diagnostic{File: "a.go", Line: 9}, Diagnostic{File: "b.go", Line: 1}, -1},
		{"line wins", Diagnostic{File: "a.go", Line: 1, Column: 9}, Diagnostic{File: "a.go", Line: 2}, -1},
		{"message breaks ties", Diagnostic{File: "a.go", Message: "a"}, Diagnostic{File: "a.go", Message: "b"}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compare(tt.a, tt.b)
			switch {
			case tt.want < 0:
				require.Negative(t, got)
			case tt.want > 0:
				require.Positive(t, got)
			default:
				require.Zero(t, got)
			}
		})
	}
}

func TestCountBySeverity(t *testing.T) {
	diags := []Diagnostic{
		{Severity: SeverityLevelError},
		{Severity: SeverityLevelWarning},
		{Severity: SeverityLevelWarning},
		{Severity: SeverityLevelInfo},
	}

	errors, warnings, infos := CountBySeverity(diags)
	require.Equal(t, 1, errors)
	require.Equal(t, 2, warnings)
	require.Equal(t, 1, infos)
}

func TestDiagnosticPosition(t *testing.T) {
	d := Diagnostic{File: "pkg/main.go", Line: 42, Column: 7}
	require.Equal(t, "pkg/main.go:42:7", d.Position())
}
