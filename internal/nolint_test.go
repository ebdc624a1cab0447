package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/gpath/document"
)

func TestParseNolintRules(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input    string
		expected map[string]struct{}
	}{
		{"rule1,rule2,rule3", map[string]struct{}{"rule1": {}, "rule2": {}, "rule3": {}}},
		{" rule1 , ,rule2 ", map[string]struct{}{"rule1": {}, "rule2": {}}},
		{"", map[string]struct{}{}},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.expected, parseNolintRules(tc.input), tc.input)
	}
}

func TestParseNolint(t *testing.T) {
	t.Parallel()
	doc := document.FromTokens([]string{"a", "b", "c", "d", "e"})
	_, _, err := doc.Annotate(NolintType, 1, 3, map[string]string{NolintRulesAttribute: "rule1, rule2"})
	require.NoError(t, err)
	_, _, err = doc.Annotate(NolintType, 4, 5, nil)
	require.NoError(t, err)

	manager := ParseNolint(doc)
	assert.Equal(t, 2, manager.Len())

	tests := []struct {
		name       string
		start, end int
		rule       string
		expected   bool
	}{
		{"inside listed rule", 1, 2, "rule1", true},
		{"whole scope", 1, 3, "rule2", true},
		{"rule not listed", 1, 2, "rule3", false},
		{"crosses the scope", 0, 2, "rule1", false},
		{"any rule", 4, 5, "anything", true},
		{"outside", 3, 4, "rule1", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.expected, manager.IsNolint(tc.start, tc.end, tc.rule), tc.name)
	}
}

func TestParseNolintDocumentAttribute(t *testing.T) {
	t.Parallel()
	doc := document.FromTokens([]string{"a", "b"})
	_, err := doc.SetAttribute(doc, NolintType, "noisy")
	require.NoError(t, err)

	manager := ParseNolint(doc)
	assert.True(t, manager.IsNolint(0, 2, "noisy"))
	assert.False(t, manager.IsNolint(0, 2, "other"))
}
