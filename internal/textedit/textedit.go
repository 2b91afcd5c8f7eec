// Package textedit turns suggested fixes into byte-offset edits and
// applies them to source buffers. Fixes are atomic: either every edit of
// a fix is applied or the whole fix is skipped. Candidates are processed
// in diagnostic order and a candidate whose edits would overlap an
// already accepted edit is dropped; iterative callers pick it up on a
// later round against fresh source.
package textedit

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"golang.org/x/tools/go/analysis"

	"github.com/SergeiSkv/FixProof/internal/compile"
)

var ErrNoContent = errors.New("no content for file")

// Edit is one replacement of the half-open byte range [Start, End).
type Edit struct {
	File    string
	Start   int
	End     int
	NewText []byte
}

// Candidate is one suggested fix resolved to concrete edits.
type Candidate struct {
	Message string
	Edits   []Edit
}

// Options narrow which suggested fixes become candidates.
type Options struct {
	// Pattern keeps only fixes whose message matches. Nil keeps all.
	Pattern *regexp.Regexp
}

// Select resolves the suggested fixes of the given diagnostics into
// accepted candidates. Malformed fixes are errors; conflicting fixes are
// skipped in favor of earlier ones.
func Select(unit *compile.Unit, diags []analysis.Diagnostic, opts Options) ([]Candidate, error) {
	var accepted []Candidate
	taken := make(map[string][]Edit)

	for _, diag := range diags {
		for _, fix := range diag.SuggestedFixes {
			if opts.Pattern != nil && !opts.Pattern.MatchString(fix.Message) {
				continue
			}

			cand, err := resolve(unit, fix)
			if err != nil {
				return nil, fmt.Errorf("fix %q: %w", fix.Message, err)
			}
			if conflicts(taken, cand.Edits) {
				continue
			}

			for _, edit := range cand.Edits {
				taken[edit.File] = append(taken[edit.File], edit)
			}
			accepted = append(accepted, cand)
		}
	}
	return accepted, nil
}

// Apply rewrites contents with the edits of every candidate and returns
// the changed files. Unchanged files are absent from the result.
func Apply(contents map[string][]byte, candidates []Candidate) (map[string][]byte, error) {
	perFile := make(map[string][]Edit)
	for _, cand := range candidates {
		for _, edit := range cand.Edits {
			perFile[edit.File] = append(perFile[edit.File], edit)
		}
	}

	out := make(map[string][]byte, len(perFile))
	for file, edits := range perFile {
		content, ok := contents[file]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoContent, file)
		}

		// Descending start order keeps earlier offsets valid while
		// rewriting. Starts are unique across accepted candidates.
		sort.Slice(edits, func(i, j int) bool { return edits[i].Start > edits[j].Start })

		for _, edit := range edits {
			if edit.Start < 0 || edit.End > len(content) || edit.Start > edit.End {
				return nil, fmt.Errorf("edit %d-%d out of range for %s (%d bytes)",
					edit.Start, edit.End, file, len(content))
			}
			patched := make([]byte, 0, len(content)-(edit.End-edit.Start)+len(edit.NewText))
			patched = append(patched, content[:edit.Start]...)
			patched = append(patched, edit.NewText...)
			patched = append(patched, content[edit.End:]...)
			content = patched
		}
		out[file] = content
	}
	return out, nil
}

func resolve(unit *compile.Unit, fix analysis.SuggestedFix) (Candidate, error) {
	if len(fix.TextEdits) == 0 {
		return Candidate{}, errors.New("fix has no edits")
	}

	edits := make([]Edit, 0, len(fix.TextEdits))
	for _, te := range fix.TextEdits {
		file, start, stop, err := unit.Span(te.Pos, te.End)
		if err != nil {
			return Candidate{}, err
		}
		edits = append(edits, Edit{File: file, Start: start, End: stop, NewText: te.NewText})
	}

	sort.Slice(edits, func(i, j int) bool {
		if edits[i].File != edits[j].File {
			return edits[i].File < edits[j].File
		}
		return edits[i].Start < edits[j].Start
	})

	for i := 1; i < len(edits); i++ {
		prev, cur := edits[i-1], edits[i]
		if prev.File == cur.File && (cur.Start < prev.End || cur.Start == prev.Start) {
			return Candidate{}, fmt.Errorf("edits %d-%d and %d-%d overlap",
				prev.Start, prev.End, cur.Start, cur.End)
		}
	}

	return Candidate{Message: fix.Message, Edits: edits}, nil
}

// conflicts reports whether any edit would collide with an already taken
// span. Touching spans are fine, shared start offsets are not: two
// insertions at one point have no meaningful order.
func conflicts(taken map[string][]Edit, edits []Edit) bool {
	for _, edit := range edits {
		for _, prev := range taken[edit.File] {
			if edit.Start == prev.Start {
				return true
			}
			if edit.Start < prev.End && prev.Start < edit.End {
				return true
			}
		}
	}
	return false
}
