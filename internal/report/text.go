package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/SergeiSkv/FixProof/models"
)

var severityColors = map[models.SeverityLevel]*color.Color{
	models.SeverityLevelError:   color.New(color.FgRed, color.Bold),
	models.SeverityLevelWarning: color.New(color.FgYellow),
	models.SeverityLevelInfo:    color.New(color.FgCyan),
}

var severityMarks = map[models.SeverityLevel]string{
	models.SeverityLevelError:   "✗",
	models.SeverityLevelWarning: "!",
	models.SeverityLevelInfo:    "•",
}

// WriteText renders the report for humans, grouped by severity with
// errors first.
func WriteText(w io.Writer, r *Report) error {
	if len(r.Diagnostics) == 0 {
		_, err := fmt.Fprintln(w, "no issues found")
		return err
	}

	var sb strings.Builder
	sb.Grow(len(r.Diagnostics) * 120)

	levels := []models.SeverityLevel{
		models.SeverityLevelError,
		models.SeverityLevelWarning,
		models.SeverityLevelInfo,
	}
	for _, level := range levels {
		group := filterSeverity(r.Diagnostics, level)
		if len(group) == 0 {
			continue
		}
		addGroupHeader(&sb, level, len(group))
		addGroupDiagnostics(&sb, group)
		sb.WriteString("\n")
	}

	addSummary(&sb, r.Summary)

	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteCompact renders one line per diagnostic in the compiler error
// format editors turn into links.
func WriteCompact(w io.Writer, r *Report) error {
	if len(r.Diagnostics) == 0 {
		_, err := fmt.Fprintln(w, "no issues found")
		return err
	}

	var sb strings.Builder
	sb.Grow(len(r.Diagnostics) * 120)

	for _, d := range r.Diagnostics {
		c := severityColors[d.Severity]
		sb.WriteString(fmt.Sprintf("%s: %s [%s] %s", d.Position(), c.Sprint(severityMarks[d.Severity]), d.Rule, d.Message))
		if d.Fixable && d.FixTitle != "" {
			sb.WriteString(" - ")
			sb.WriteString(d.FixTitle)
		}
		sb.WriteString("\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func filterSeverity(diags []models.Diagnostic, level models.SeverityLevel) []models.Diagnostic {
	out := make([]models.Diagnostic, 0, len(diags))
	for _, d := range diags {
		if d.Severity == level {
			out = append(out, d)
		}
	}
	return out
}

func addGroupHeader(sb *strings.Builder, level models.SeverityLevel, count int) {
	c := severityColors[level]
	sb.WriteString(c.Sprintf("%s %ss (%d):", severityMarks[level], level, count))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", 50))
	sb.WriteString("\n")
}

func addGroupDiagnostics(sb *strings.Builder, diags []models.Diagnostic) {
	for _, d := range diags {
		c := severityColors[d.Severity]
		sb.WriteString("\t")
		sb.WriteString(c.Sprint(severityMarks[d.Severity]))
		sb.WriteString(" ")
		sb.WriteString(d.Position())
		sb.WriteString(" [")
		sb.WriteString(d.Rule)
		sb.WriteString("]\n")
		sb.WriteString("\t\t")
		sb.WriteString(d.Message)
		sb.WriteString("\n")
		if d.Fixable && d.FixTitle != "" {
			sb.WriteString("\t\tfix: ")
			sb.WriteString(d.FixTitle)
			sb.WriteString("\n")
		}
	}
}

func addSummary(sb *strings.Builder, s Summary) {
	sb.WriteString("Summary: ")
	sb.WriteString(strconv.Itoa(s.Errors))
	sb.WriteString(" errors, ")
	sb.WriteString(strconv.Itoa(s.Warnings))
	sb.WriteString(" warnings, ")
	sb.WriteString(strconv.Itoa(s.Infos))
	sb.WriteString(" infos")
	if s.Fixable > 0 {
		sb.WriteString(fmt.Sprintf(" (%d fixable)", s.Fixable))
	}
	if s.CacheHits > 0 || s.CacheMisses > 0 {
		sb.WriteString(fmt.Sprintf(", cache %d/%d", s.CacheHits, s.CacheHits+s.CacheMisses))
	}
	if s.DurationMS > 0 {
		sb.WriteString(fmt.Sprintf(" in %dms", s.DurationMS))
	}
	sb.WriteString("\n")
}
