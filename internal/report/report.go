// Package report renders analysis results as text, JSON or SARIF.
package report

import (
	"github.com/SergeiSkv/FixProof/models"
)

// Report is one analysis run ready for rendering.
type Report struct {
	Tool        string              `json:"tool"`
	Version     string              `json:"version"`
	Target      string              `json:"target"`
	Diagnostics []models.Diagnostic `json:"diagnostics"`
	Summary     Summary             `json:"summary"`
}

// Summary contains overall statistics.
type Summary struct {
	Files       int   `json:"files"`
	Diagnostics int   `json:"diagnostics"`
	Errors      int   `json:"errors"`
	Warnings    int   `json:"warnings"`
	Infos       int   `json:"infos"`
	Fixable     int   `json:"fixable"`
	CacheHits   int   `json:"cache_hits"`
	CacheMisses int   `json:"cache_misses"`
	DurationMS  int64 `json:"duration_ms"`
}

// New builds a report over sorted diagnostics. Cache and timing fields
// of the summary are left for the caller to fill in.
func New(target, version string, diags []models.Diagnostic) *Report {
	models.SortDiagnostics(diags)

	summary := Summary{Diagnostics: len(diags)}
	summary.Errors, summary.Warnings, summary.Infos = models.CountBySeverity(diags)

	files := make(map[string]bool)
	for _, d := range diags {
		files[d.File] = true
		if d.Fixable {
			summary.Fixable++
		}
	}
	summary.Files = len(files)

	return &Report{
		Tool:        "fixproof",
		Version:     version,
		Target:      target,
		Diagnostics: diags,
		Summary:     summary,
	}
}
