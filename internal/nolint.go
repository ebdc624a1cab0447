package internal

import (
	"github.com/gnoswap-labs/gpath/document"
)

// NolintType is the annotation type that suppresses findings inside its
// span. A document attribute of the same name suppresses findings in the
// whole document.
const NolintType = "nolint"

// NolintRulesAttribute lists, comma separated, the rules a nolint
// annotation suppresses. An empty or missing list suppresses every rule.
const NolintRulesAttribute = "rules"

// nolintScope represents a token range where nolint applies.
type nolintScope struct {
	start int
	end   int
	rules map[string]struct{} // empty, null => apply to all rules
}

// NolintManager tells whether a finding is suppressed.
type NolintManager struct {
	scopes []nolintScope
}

// ParseNolint collects the nolint scopes of doc.
func ParseNolint(doc document.Document) *NolintManager {
	manager := &NolintManager{}

	if rules, ok := doc.Attribute(NolintType); ok {
		manager.scopes = append(manager.scopes, nolintScope{
			start: 0,
			end:   doc.Size(),
			rules: parseNolintRules(rules),
		})
	}
	for _, a := range doc.Annotations(NolintType) {
		rules, _ := a.Attribute(NolintRulesAttribute)
		manager.scopes = append(manager.scopes, nolintScope{
			start: a.Start(),
			end:   a.End(),
			rules: parseNolintRules(rules),
		})
	}
	return manager
}

// parseNolintRules parses a comma separated rule list in one pass.
func parseNolintRules(text string) map[string]struct{} {
	rulesMap := make(map[string]struct{})

	start := 0
	n := len(text)
	for i := 0; i <= n; i++ {
		// if we reach a comma or the end of the string, process the rule
		if i == n || text[i] == ',' {
			// trim leading and trailing spaces
			end := i
			for start < end && text[start] == ' ' {
				start++
			}
			for end > start && text[end-1] == ' ' {
				end--
			}
			if start < end {
				rulesMap[text[start:end]] = struct{}{}
			}
			start = i + 1
		}
	}
	return rulesMap
}

// Len returns the number of scopes.
func (m *NolintManager) Len() int { return len(m.scopes) }

// IsNolint reports whether a finding of rule over [start, end) lies within a
// scope suppressing that rule.
func (m *NolintManager) IsNolint(start, end int, ruleName string) bool {
	for _, scope := range m.scopes {
		if start < scope.start || end > scope.end {
			continue
		}
		if len(scope.rules) == 0 {
			return true
		}
		if _, exists := scope.rules[ruleName]; exists {
			return true
		}
	}
	return false
}
