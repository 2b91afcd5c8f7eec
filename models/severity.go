package models

import (
	"fmt"
	"strings"
)

// SeverityLevel represents the severity of a diagnostic
type SeverityLevel uint8

const (
	SeverityLevelInfo    SeverityLevel = iota // informational findings
	SeverityLevelWarning                      // default level for analyzer reports
	SeverityLevelError                        // fails the run
)

var severityNames = [...]string{"info", "warning", "error"}

func (s SeverityLevel) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return fmt.Sprintf("severity(%d)", uint8(s))
}

// MarshalText renders the level as its lowercase name for JSON and YAML output.
func (s SeverityLevel) MarshalText() ([]byte, error) {
	if int(s) >= len(severityNames) {
		return nil, fmt.Errorf("unknown severity level %d", uint8(s))
	}
	return []byte(severityNames[s]), nil
}

// UnmarshalText parses a severity name produced by MarshalText.
func (s *SeverityLevel) UnmarshalText(text []byte) error {
	level, err := ParseSeverityLevel(string(text))
	if err != nil {
		return err
	}
	*s = level
	return nil
}

// ParseSeverityLevel converts a name such as "warning" into a SeverityLevel.
// It accepts the alias "warn" and is case-insensitive.
func ParseSeverityLevel(name string) (SeverityLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "info":
		return SeverityLevelInfo, nil
	case "warning", "warn":
		return SeverityLevelWarning, nil
	case "error":
		return SeverityLevelError, nil
	default:
		return 0, fmt.Errorf("unknown severity level %q", name)
	}
}
