package models

import (
	"fmt"
	"sort"
)

// Diagnostic represents a single finding reported by an analyzer
type Diagnostic struct {
	File      string        `json:"file" msgpack:"file"`
	Line      int           `json:"line" msgpack:"line"`
	Column    int           `json:"column" msgpack:"column"`
	EndLine   int           `json:"end_line,omitempty" msgpack:"end_line,omitempty"`
	EndColumn int           `json:"end_column,omitempty" msgpack:"end_column,omitempty"`
	Rule      string        `json:"rule" msgpack:"rule"`
	Category  string        `json:"category,omitempty" msgpack:"category,omitempty"`
	Message   string        `json:"message" msgpack:"message"`
	Severity  SeverityLevel `json:"severity" msgpack:"severity"`
	Fixable   bool          `json:"fixable,omitempty" msgpack:"fixable,omitempty"`
	FixTitle  string        `json:"fix_title,omitempty" msgpack:"fix_title,omitempty"`
}

// Position renders the file:line:column prefix understood by editors.
func (d Diagnostic) Position() string {
	return fmt.Sprintf("%s:%d:%d", d.File, d.Line, d.Column)
}

// Compare orders diagnostics by file, position, rule and message.
func Compare(a, b Diagnostic) int {
	switch {
	case a.File != b.File:
		return compareStrings(a.File, b.File)
	case a.Line != b.Line:
		return a.Line - b.Line
	case a.Column != b.Column:
		return a.Column - b.Column
	case a.Rule != b.Rule:
		return compareStrings(a.Rule, b.Rule)
	default:
		return compareStrings(a.Message, b.Message)
	}
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// SortDiagnostics sorts diagnostics in place into the stable report order.
func SortDiagnostics(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		return Compare(diags[i], diags[j]) < 0
	})
}

// CountBySeverity tallies diagnostics per severity level.
func CountBySeverity(diags []Diagnostic) (errors, warnings, infos int) {
	for _, d := range diags {
		switch d.Severity {
		case SeverityLevelError:
			errors++
		case SeverityLevelWarning:
			warnings++
		case SeverityLevelInfo:
			infos++
		}
	}
	return
}
