package alert

import (
	"encoding/json"
	"strings"

	"optix/pkg/errors"
)

// Severity is ordered: Info < Low < Medium < High < Critical
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = [...]string{"INFO", "LOW", "MEDIUM", "HIGH", "CRITICAL"}

func (s Severity) String() string {
	if s < SeverityInfo || s > SeverityCritical {
		return "UNKNOWN"
	}
	return severityNames[s]
}

// AtLeast reports whether s is at or above min
func (s Severity) AtLeast(min Severity) bool {
	return s >= min
}

// ParseSeverity accepts names case-insensitively
func ParseSeverity(v string) (Severity, error) {
	name := strings.ToUpper(strings.TrimSpace(v))
	for i, n := range severityNames {
		if n == name {
			return Severity(i), nil
		}
	}
	return SeverityInfo, errors.NewValidationError("severity", "unknown severity", v)
}

// Decode implements envconfig.Decoder
func (s *Severity) Decode(v string) error {
	parsed, err := ParseSeverity(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	return s.Decode(name)
}
