package detection

import (
	"fmt"
	"strings"
)

// Severity is the ordered threat level used for every verdict comparison.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// Severities lists all levels in ascending order.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Valid reports whether s is one of the four defined levels.
func (s Severity) Valid() bool {
	return s >= SeverityLow && s <= SeverityCritical
}

// ParseSeverity converts "low", "HIGH", ... into a Severity.
func ParseSeverity(value string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "LOW":
		return SeverityLow, nil
	case "MEDIUM":
		return SeverityMedium, nil
	case "HIGH":
		return SeverityHigh, nil
	case "CRITICAL":
		return SeverityCritical, nil
	default:
		return SeverityLow, fmt.Errorf("unknown severity %q", value)
	}
}

// MaxSeverity returns the most severe of the given levels, LOW when empty.
func MaxSeverity(levels ...Severity) Severity {
	max := SeverityLow
	for _, s := range levels {
		if s > max {
			max = s
		}
	}
	return max
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
