// Package diff renders line diffs for test failure output.
package diff

import "strings"

// Lines returns a line diff between want and got, or the empty string
// when they are equal. Lines only in want are prefixed with "-", lines
// only in got with "+", shared lines with a space.
func Lines(want, got string) string {
	if want == got {
		return ""
	}

	a := splitLines(want)
	b := splitLines(got)

	m, n := len(a), len(b)
	lcs := make([][]int, m+1)
	for i := range lcs {
		lcs[i] = make([]int, n+1)
	}
	for i := m - 1; i >= 0; i-- {
		for j := n - 1; j >= 0; j-- {
			switch {
			case a[i] == b[j]:
				lcs[i][j] = lcs[i+1][j+1] + 1
			case lcs[i+1][j] >= lcs[i][j+1]:
				lcs[i][j] = lcs[i+1][j]
			default:
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	var sb strings.Builder
	sb.WriteString("--- want\n+++ got\n")

	i, j := 0, 0
	for i < m && j < n {
		switch {
		case a[i] == b[j]:
			writeLine(&sb, ' ', a[i])
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			writeLine(&sb, '-', a[i])
			i++
		default:
			writeLine(&sb, '+', b[j])
			j++
		}
	}
	for ; i < m; i++ {
		writeLine(&sb, '-', a[i])
	}
	for ; j < n; j++ {
		writeLine(&sb, '+', b[j])
	}

	if strings.HasSuffix(want, "\n") != strings.HasSuffix(got, "\n") {
		if strings.HasSuffix(want, "\n") {
			sb.WriteString("\\ no newline at end of got\n")
		} else {
			sb.WriteString("\\ no newline at end of want\n")
		}
	}
	return sb.String()
}

func writeLine(sb *strings.Builder, marker byte, line string) {
	sb.WriteByte(marker)
	sb.WriteString(line)
	sb.WriteByte('\n')
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
