package types

import (
	"fmt"
	"strings"
)

// Severity ranks how serious a finding is.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "ERROR"
	case SeverityWarning:
		return "WARNING"
	case SeverityInfo:
		return "INFO"
	default:
		return "UNKNOWN"
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

// UnmarshalText accepts the severity names in any case. An empty value
// means SeverityError.
func (s *Severity) UnmarshalText(text []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(text))) {
	case "", "ERROR":
		*s = SeverityError
	case "WARNING", "WARN":
		*s = SeverityWarning
	case "INFO":
		*s = SeverityInfo
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

// RuleKind tells which engine produced a finding.
type RuleKind string

const (
	KindQuery   RuleKind = "query"
	KindPattern RuleKind = "pattern"
)

// Finding is a span of a document selected by a rule. Start and End are
// token offsets, End exclusive.
type Finding struct {
	Rule     string
	Kind     RuleKind
	Severity Severity
	Filename string
	Start    int
	End      int
	Value    string
	Message  string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s:[%d,%d): %s: %s", f.Filename, f.Start, f.End, f.Rule, f.Message)
}
