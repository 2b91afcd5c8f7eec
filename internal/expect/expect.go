// Package expect parses inline "want" comments and matches them against
// reported diagnostics. A comment of the form
//
//	// want "pattern" `other pattern`
//
// declares that each pattern matches the message of a distinct diagnostic
// reported on that comment's line.
package expect

import (
	"fmt"
	"go/ast"
	"go/token"
	"regexp"
	"strconv"
	"strings"

	"github.com/SergeiSkv/FixProof/internal/compile"
	"github.com/SergeiSkv/FixProof/models"
)

// Expectation is one diagnostic predicted by a want comment.
type Expectation struct {
	File    string
	Line    int
	Pattern *regexp.Regexp

	matched bool
}

// Parse collects the expectations declared in the unit's comments.
// A malformed want payload is an error, never a silent skip.
func Parse(unit *compile.Unit) ([]*Expectation, error) {
	var exps []*Expectation
	for _, file := range unit.Files {
		for _, group := range file.Comments {
			for _, comment := range group.List {
				found, err := parseComment(unit.Fset, comment)
				if err != nil {
					return nil, err
				}
				exps = append(exps, found...)
			}
		}
	}
	return exps, nil
}

// Check matches diagnostics against expectations. Every diagnostic must
// match an unconsumed expectation on its file and line, and every
// expectation must be consumed. Each violation becomes one message.
func Check(exps []*Expectation, diags []models.Diagnostic) []string {
	var problems []string
	for _, d := range diags {
		if !consume(exps, d) {
			problems = append(problems, fmt.Sprintf("%s: unexpected diagnostic: %s", d.Position(), d.Message))
		}
	}
	for _, exp := range exps {
		if !exp.matched {
			problems = append(problems, fmt.Sprintf("%s:%d: no diagnostic matching %q", exp.File, exp.Line, exp.Pattern))
		}
	}
	return problems
}

func consume(exps []*Expectation, d models.Diagnostic) bool {
	for _, exp := range exps {
		if exp.matched || exp.File != d.File || exp.Line != d.Line {
			continue
		}
		if exp.Pattern.MatchString(d.Message) {
			exp.matched = true
			return true
		}
	}
	return false
}

func parseComment(fset *token.FileSet, comment *ast.Comment) ([]*Expectation, error) {
	text := comment.Text
	switch {
	case strings.HasPrefix(text, "//"):
		text = text[2:]
	case strings.HasPrefix(text, "/*"):
		text = strings.TrimSuffix(text[2:], "*/")
	}
	text = strings.TrimSpace(text)

	rest, ok := strings.CutPrefix(text, "want")
	if !ok {
		return nil, nil
	}
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		// Some other word, e.g. "wanted".
		return nil, nil
	}

	pos := fset.Position(comment.Pos())
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return nil, fmt.Errorf("%s: want comment without a pattern", pos)
	}

	var exps []*Expectation
	for rest != "" {
		lit, remainder, err := cutPattern(rest)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", pos, err)
		}
		rx, err := regexp.Compile(lit)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid pattern %q: %v", pos, lit, err)
		}
		exps = append(exps, &Expectation{File: pos.Filename, Line: pos.Line, Pattern: rx})
		rest = strings.TrimSpace(remainder)
	}
	return exps, nil
}

// cutPattern splits one leading Go string literal off s.
func cutPattern(s string) (string, string, error) {
	prefix, err := strconv.QuotedPrefix(s)
	if err != nil {
		return "", "", fmt.Errorf("expected quoted pattern, found %q", s)
	}
	lit, err := strconv.Unquote(prefix)
	if err != nil {
		return "", "", fmt.Errorf("cannot unquote pattern %s", prefix)
	}
	return lit, s[len(prefix):], nil
}
