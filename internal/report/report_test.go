package report_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SergeiSkv/FixProof/internal/report"
	"github.com/SergeiSkv/FixProof/models"
)

func sampleReport() *report.Report {
	return report.New("./...", "1.2.3", []models.Diagnostic{
		{
			File:     "pkg/b.go",
			Line:     4,
			Column:   2,
			Rule:     "deferloop",
			Message:  "defer inside a loop runs only when the surrounding function returns",
			Severity: models.SeverityLevelError,
		},
		{
			File:      "main.go",
			Line:      10,
			Column:    3,
			EndLine:   10,
			EndColumn: 13,
			Rule:      "boolcompare",
			Category:  "simplify",
			Message:   "simplify to ok",
			Severity:  models.SeverityLevelWarning,
			Fixable:   true,
			FixTitle:  "simplify to ok",
		},
	})
}

func TestNewComputesSummary(t *testing.T) {
	r := sampleReport()

	assert.Equal(t, 2, r.Summary.Diagnostics)
	assert.Equal(t, 2, r.Summary.Files)
	assert.Equal(t, 1, r.Summary.Errors)
	assert.Equal(t, 1, r.Summary.Warnings)
	assert.Equal(t, 0, r.Summary.Infos)
	assert.Equal(t, 1, r.Summary.Fixable)

	// Sorted by file, not by input order.
	assert.Equal(t, "main.go", r.Diagnostics[0].File)
}

func TestWriteText(t *testing.T) {
	old := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = old }()

	var buf bytes.Buffer
	r := sampleReport()
	r.Summary.CacheHits = 1
	r.Summary.CacheMisses = 1
	require.NoError(t, report.WriteText(&buf, r))

	out := buf.String()
	assert.Contains(t, out, "errors (1):")
	assert.Contains(t, out, "warnings (1):")
	assert.Contains(t, out, "pkg/b.go:4:2 [deferloop]")
	assert.Contains(t, out, "main.go:10:3 [boolcompare]")
	assert.Contains(t, out, "fix: simplify to ok")
	assert.Contains(t, out, "Summary: 1 errors, 1 warnings, 0 infos (1 fixable), cache 1/2")
}

func TestWriteTextEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.WriteText(&buf, report.New(".", "dev", nil)))
	assert.Equal(t, "no issues found\n", buf.String())
}

func TestWriteCompact(t *testing.T) {
	old := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = old }()

	var buf bytes.Buffer
	require.NoError(t, report.WriteCompact(&buf, sampleReport()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "main.go:10:3: ! [boolcompare] simplify to ok - simplify to ok", lines[0])
	assert.Equal(t, "pkg/b.go:4:2: ✗ [deferloop] defer inside a loop runs only when the surrounding function returns", lines[1])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.WriteJSON(&buf, sampleReport()))

	var decoded struct {
		Tool        string `json:"tool"`
		Version     string `json:"version"`
		Diagnostics []struct {
			File     string `json:"file"`
			Rule     string `json:"rule"`
			Severity string `json:"severity"`
		} `json:"diagnostics"`
		Summary struct {
			Errors  int `json:"errors"`
			Fixable int `json:"fixable"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, "fixproof", decoded.Tool)
	assert.Equal(t, "1.2.3", decoded.Version)
	require.Len(t, decoded.Diagnostics, 2)
	assert.Equal(t, "warning", decoded.Diagnostics[0].Severity)
	assert.Equal(t, 1, decoded.Summary.Errors)
	assert.Equal(t, 1, decoded.Summary.Fixable)
}

// The JSON document is a machine interface; decoding it must give back
// the report unchanged.
func TestWriteJSONRoundTrip(t *testing.T) {
	want := sampleReport()

	var buf bytes.Buffer
	require.NoError(t, report.WriteJSON(&buf, want))

	var got report.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	if diff := cmp.Diff(*want, got); diff != "" {
		t.Errorf("report changed across the JSON round trip (-want +got):\n%s", diff)
	}
}

func TestWriteSARIF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.WriteSARIF(&buf, sampleReport()))

	var decoded struct {
		Schema  string `json:"$schema"`
		Version string `json:"version"`
		Runs    []struct {
			Tool struct {
				Driver struct {
					Name  string `json:"name"`
					Rules []struct {
						ID string `json:"id"`
					} `json:"rules"`
				} `json:"driver"`
			} `json:"tool"`
			Results []struct {
				RuleID    string `json:"ruleId"`
				Level     string `json:"level"`
				Locations []struct {
					PhysicalLocation struct {
						ArtifactLocation struct {
							URI string `json:"uri"`
						} `json:"artifactLocation"`
						Region struct {
							StartLine int `json:"startLine"`
						} `json:"region"`
					} `json:"physicalLocation"`
				} `json:"locations"`
			} `json:"results"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, "2.1.0", decoded.Version)
	require.Len(t, decoded.Runs, 1)
	run := decoded.Runs[0]
	assert.Equal(t, "fixproof", run.Tool.Driver.Name)
	require.Len(t, run.Tool.Driver.Rules, 2)
	assert.Equal(t, "boolcompare", run.Tool.Driver.Rules[0].ID)

	require.Len(t, run.Results, 2)
	assert.Equal(t, "boolcompare", run.Results[0].RuleID)
	assert.Equal(t, "warning", run.Results[0].Level)
	assert.Equal(t, "deferloop", run.Results[1].RuleID)
	assert.Equal(t, "error", run.Results[1].Level)
	assert.Equal(t, "main.go", run.Results[0].Locations[0].PhysicalLocation.ArtifactLocation.URI)
	assert.Equal(t, 10, run.Results[0].Locations[0].PhysicalLocation.Region.StartLine)
}
