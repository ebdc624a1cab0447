package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/gpath/query"
	tt "github.com/gnoswap-labs/gpath/internal/types"
)

const testDocument = `tokens: [Mr, ., John, Kennedy]
annotations:
  - {type: fn, start: 2, end: 3}
  - {type: ln, start: 3, end: 4}
`

const testConfig = `name: people
variables:
  kind: ln
queries:
  - name: last-names
    expression: //*[name() = $kind]
    message: last name
patterns:
  - name: person
    pattern: "<fn> <ln>"
    type: person
`

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// resetFlags restores every flag to its default. Commands keep their flag
// values between executions.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestInitAndCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".gpath.yaml")

	out, _, err := execute(t, "init", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "Configuration file created/updated: "+path+"\n", out)
	assert.FileExists(t, path)

	_, stderr, err := execute(t, "init", "--config", path)
	assert.ErrorContains(t, err, "already exists")
	assert.Contains(t, stderr, "error: ")

	_, _, err = execute(t, "init", "--config", path, "--force")
	require.NoError(t, err)

	out, _, err = execute(t, "check", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "gpath: 1 queries and 1 patterns are valid\n", out)
}

func TestCheckReportsEveryInvalidRule(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", `queries:
  - name: broken
    expression: "//a["
patterns:
  - name: unclosed
    pattern: "(<a>"
`)

	_, stderr, err := execute(t, "check", "--config", path)
	assert.ErrorIs(t, err, errFindings)
	assert.Contains(t, stderr, "query broken")
	assert.Contains(t, stderr, "unclosed group")
}

func TestQuery(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "gpath.yaml", testConfig)
	doc := writeFile(t, dir, "doc.yaml", testDocument)

	out, _, err := execute(t, "query", "--config", cfg, "//ln", doc)
	require.NoError(t, err)
	assert.Equal(t, doc+":[3,4) ln: Kennedy\n", out)

	out, _, err = execute(t, "query", "--config", cfg, "count(//*[name() = $kind])", doc)
	require.NoError(t, err)
	assert.Equal(t, doc+": 1\n", out)

	out, _, err = execute(t, "query", "--config", cfg, "--var", "kind=fn", "--json", "//*[name() = $kind]", doc)
	require.NoError(t, err)
	var results []queryResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	assert.Equal(t, []queryResult{{File: doc, Type: "fn", Start: 2, End: 3, Value: "John"}}, results)

	_, _, err = execute(t, "query", "--config", cfg, "--var", "kind", "//a", doc)
	assert.ErrorContains(t, err, "name=value")
}

func TestQuerySyntaxError(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "gpath.yaml", testConfig)
	doc := writeFile(t, dir, "doc.yaml", testDocument)

	_, stderr, err := execute(t, "query", "--config", cfg, "//a[", doc)
	var serr *query.SyntaxError
	require.True(t, errors.As(err, &serr))
	assert.Contains(t, stderr, "  | //a[\n")
	assert.Contains(t, stderr, "^")
}

func TestMatch(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "gpath.yaml", testConfig)
	doc := writeFile(t, dir, "doc.yaml", testDocument)

	out, _, err := execute(t, "match", "--config", cfg, "--spans", "'Mr.'? <fn> <ln>", doc)
	require.NoError(t, err)
	assert.Equal(t, doc+":[0,4) Mr . John Kennedy\n"+doc+":[2,4) John Kennedy\n", out)

	out, _, err = execute(t, "match", "--config", cfg, "<fn> <ln>", doc)
	require.NoError(t, err)
	assert.Equal(t, doc+":[2,4)\nmatch [2,4) John Kennedy\n  fn [2,3) John\n  ln [3,4) Kennedy\n\n", out)

	_, stderr, err := execute(t, "match", "--config", cfg, "(<fn>", doc)
	assert.Error(t, err)
	assert.Contains(t, stderr, "unclosed group")
}

func TestExplain(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "expression", args: []string{"explain", "//a[2]"}, want: "/descendant-or-self::*/child::a[2]\n"},
		{name: "pattern", args: []string{"explain", "--pattern", "(<a>|<b>)  <c>"}, want: "(<a> | <b>) <c>\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, _, err := execute(t, tc.args...)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "gpath.yaml", testConfig)
	docs := filepath.Join(dir, "docs")
	require.NoError(t, os.Mkdir(docs, 0o755))
	doc := writeFile(t, docs, "doc.yaml", testDocument)

	out, _, err := execute(t, "run", "--config", cfg, "--no-cache", "--quiet", "--json", docs)
	assert.ErrorIs(t, err, errFindings)

	var byFile map[string][]tt.Finding
	require.NoError(t, json.Unmarshal([]byte(out), &byFile))
	require.Len(t, byFile[doc], 2)
	assert.Equal(t, "person", byFile[doc][0].Rule)
	assert.Equal(t, "last-names", byFile[doc][1].Rule)

	out, _, err = execute(t, "run", "--config", cfg, "--no-cache", "--quiet", "--ignore", "person, last-names", docs)
	require.NoError(t, err)
	assert.Empty(t, out)

	cacheDir := filepath.Join(dir, "cache")
	out, _, err = execute(t, "run", "--config", cfg, "--cache-dir", cacheDir, "--quiet", "--ignore", "person", docs)
	assert.ErrorIs(t, err, errFindings)
	assert.Contains(t, out, "error: last-names\n")
	assert.Contains(t, out, "= last name\n")
	assert.FileExists(t, filepath.Join(cacheDir, "findings.gob"))

	// the cached run skipped person; a run with every rule must not reuse it
	out, _, err = execute(t, "run", "--config", cfg, "--cache-dir", cacheDir, "--quiet", "--json", docs)
	assert.ErrorIs(t, err, errFindings)
	byFile = nil
	require.NoError(t, json.Unmarshal([]byte(out), &byFile))
	assert.Len(t, byFile[doc], 2)
}
