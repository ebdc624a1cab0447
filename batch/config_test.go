package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/gnoswap-labs/gpath"
	"github.com/gnoswap-labs/gpath/document"
	tt "github.com/gnoswap-labs/gpath/internal/types"
)

func TestLoadConfigFormats(t *testing.T) {
	t.Parallel()

	yamlConfig := `name: people
cache:
  parse: 16
variables:
  kind: ln
queries:
  - name: last-names
    expression: //*[name() = $kind]
    severity: warning
patterns:
  - name: person
    pattern: "<fn> <ln>"
    type: person
`
	tomlConfig := `name = "people"
[cache]
parse = 16
[variables]
kind = "ln"
[[queries]]
name = "last-names"
expression = "//*[name() = $kind]"
severity = "warning"
[[patterns]]
name = "person"
pattern = "<fn> <ln>"
type = "person"
`
	want := Config{
		Name:      "people",
		Cache:     CacheConfig{Parse: 16},
		Variables: map[string]string{"kind": "ln"},
		Queries: []gpath.QueryRule{{
			Name:       "last-names",
			Expression: "//*[name() = $kind]",
			Severity:   tt.SeverityWarning,
		}},
		Patterns: []gpath.PatternRule{{Name: "person", Pattern: "<fn> <ln>", Type: "person"}},
	}

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "yaml", file: "config.yaml", content: yamlConfig},
		{name: "toml", file: "config.toml", content: tomlConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			config, err := LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, want, config)
			assert.NoError(t, config.Validate())
		})
	}
}

func TestLoadConfigErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("queries:\n  - name: x\n    severity: fatal\n"), 0o644))
	_, err = LoadConfig(bad)
	assert.ErrorContains(t, err, "unknown severity")
}

func TestWriteDefaultConfig(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	require.NoError(t, WriteConfig(path, DefaultConfig()))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
	assert.NoError(t, config.Validate())
}

func TestValidateCollectsEveryError(t *testing.T) {
	t.Parallel()
	config := Config{
		Queries: []gpath.QueryRule{
			{Name: "ok", Expression: "//a"},
			{Name: "broken", Expression: "1 +"},
			{Expression: "//b"},
		},
		Patterns: []gpath.PatternRule{
			{Name: "ok", Pattern: "<a>"},
			{Name: "unclosed", Pattern: "(<a>"},
		},
	}

	err := config.Validate()
	require.Error(t, err)
	errs := multierr.Errors(err)
	require.Len(t, errs, 4)
	assert.Contains(t, errs[0].Error(), "query broken")
	assert.Contains(t, errs[1].Error(), "rule without a name")
	assert.Contains(t, errs[2].Error(), "duplicate rule ok")
	assert.Contains(t, errs[3].Error(), "pattern unclosed")
}

func TestConfigBuildsEngine(t *testing.T) {
	t.Parallel()
	config := Config{
		Variables: map[string]string{"kind": "ln"},
		Queries:   []gpath.QueryRule{{Name: "last-names", Expression: "//*[name() = $kind]"}},
		Patterns:  []gpath.PatternRule{{Name: "person", Pattern: "<fn> <ln>", Type: "person"}},
	}

	doc := document.FromTokens([]string{"John", "Kennedy"})
	_, _, err := doc.Annotate("fn", 0, 1, nil)
	require.NoError(t, err)
	_, _, err = doc.Annotate("ln", 1, 2, nil)
	require.NoError(t, err)

	findings, err := config.NewEngine(nil).RunDocument("doc", doc)
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.Equal(t, "person", findings[0].Rule)
	assert.Equal(t, "John Kennedy", findings[0].Value)
	assert.Equal(t, "last-names", findings[1].Rule)
	assert.Equal(t, "Kennedy", findings[1].Value)
}

func TestConfigFingerprint(t *testing.T) {
	t.Parallel()
	base := DefaultConfig()
	fingerprint := func(c Config, ignored ...string) string {
		t.Helper()
		f, err := c.Fingerprint(ignored...)
		require.NoError(t, err)
		return f
	}
	want := fingerprint(base)

	renamed := DefaultConfig()
	renamed.Name = "other"
	renamed.Cache.Parse = 1
	assert.Equal(t, want, fingerprint(renamed), "names and cache sizes do not change findings")

	assert.Equal(t, fingerprint(base, "a", "b"), fingerprint(base, "b", "a"))
	assert.NotEqual(t, want, fingerprint(base, "person"))

	edited := DefaultConfig()
	edited.Queries[0].Message = "changed"
	assert.NotEqual(t, want, fingerprint(edited))

	withVars := DefaultConfig()
	withVars.Variables = map[string]string{"kind": "ln"}
	assert.NotEqual(t, want, fingerprint(withVars))
}
