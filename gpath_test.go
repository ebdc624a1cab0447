package gpath

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/gpath/document"
	"github.com/gnoswap-labs/gpath/eval"
	tt "github.com/gnoswap-labs/gpath/internal/types"
	"github.com/gnoswap-labs/gpath/pattern"
	"github.com/gnoswap-labs/gpath/query"
)

func wordDoc(t *testing.T, tokens string) *document.Doc {
	t.Helper()
	doc := document.FromTokens(strings.Fields(tokens))
	for i := 0; i < doc.Size(); i++ {
		_, _, err := doc.Annotate("w", i, i+1, nil)
		require.NoError(t, err)
	}
	return doc
}

func TestEvaluatePathReturnsDocumentAnnotations(t *testing.T) {
	t.Parallel()
	doc := document.New("A B C D E F G")
	a, _, err := doc.Annotate("a", 0, 3, nil)
	require.NoError(t, err)

	e := New()
	anns, err := e.EvaluatePath(doc, "//a", nil)
	require.NoError(t, err)
	require.Len(t, anns, 1)
	assert.Same(t, a, anns[0])

	v, err := e.EvaluateExpression(doc, "count(//a)", nil)
	require.NoError(t, err)
	assert.Equal(t, eval.Number(1), v)
}

func TestUpperCaseWordScenario(t *testing.T) {
	t.Parallel()
	doc := wordDoc(t, "A B C D E F G")

	anns, err := New().EvaluatePath(doc, "//w[isUpperCaseWord(.)]", nil)
	require.NoError(t, err)
	assert.Len(t, anns, 7)
}

func TestGetMatches(t *testing.T) {
	t.Parallel()
	doc := document.FromTokens(strings.Fields("Mr . John F . Kennedy , Jr ."))
	for _, s := range []struct {
		typ        string
		start, end int
	}{{"fn", 2, 3}, {"in", 3, 5}, {"ln", 5, 6}, {"a", 7, 9}} {
		_, _, err := doc.Annotate(s.typ, s.start, s.end, nil)
		require.NoError(t, err)
	}

	e := New()
	matches, err := e.GetMatches(doc, "'Mr.'? (<fn>|<in>)+ (<i>* <ln>)+ (','? <a>)?", "person")
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, Match{Type: "person", Start: 0, End: 9, Tree: matches[0].Tree}, matches[0])
	assert.Equal(t, pattern.LabelMatch, matches[0].Tree.Root.Label)

	trees, err := e.GetMatchTrees(doc, "<ln>")
	require.NoError(t, err)
	require.Len(t, trees, 1)
	assert.Equal(t, 5, trees[0].Start)
}

func TestCustomFunctionsAndFallback(t *testing.T) {
	t.Parallel()
	doc := document.New("x")
	double := eval.FunctionFunc(func(_ eval.Context, args []eval.Object) (eval.Object, error) {
		if len(args) != 1 {
			return nil, errors.New("double takes one argument")
		}
		return eval.Number(2 * args[0].AsNumber()), nil
	})

	parent := New(WithFunction("double", double))
	child := New(WithFallback(parent))

	v, err := child.EvaluateExpression(doc, "double(21)", nil)
	require.NoError(t, err)
	assert.Equal(t, eval.Number(42), v)

	_, err = New().EvaluateExpression(doc, "double(21)", nil)
	assert.True(t, errors.Is(err, eval.ErrUndefinedFunction))
}

func TestEngineVariables(t *testing.T) {
	t.Parallel()
	doc := document.New("x")
	e := New(WithVariables(map[string]string{"kind": "a"}))

	v, err := e.EvaluateExpression(doc, "$kind = 'a'", nil)
	require.NoError(t, err)
	assert.Equal(t, eval.Boolean(true), v)

	v, err = e.EvaluateExpression(doc, "$kind", eval.Bindings{"kind": eval.String("b")})
	require.NoError(t, err)
	assert.Equal(t, eval.String("b"), v)

	_, err = New().EvaluateExpression(doc, "$kind", nil)
	assert.True(t, errors.Is(err, eval.ErrUnboundVariable))
}

func TestSyntaxErrorsSurface(t *testing.T) {
	t.Parallel()
	doc := document.New("x")
	e := New()

	_, err := e.EvaluateExpression(doc, "1 +", nil)
	var serr *query.SyntaxError
	require.True(t, errors.As(err, &serr))

	_, err = e.EvaluatePath(doc, "1 + 2", nil)
	require.True(t, errors.As(err, &serr))
	assert.Contains(t, serr.Message, "not a location path")

	_, err = e.GetMatches(doc, "<a", "t")
	var perr *pattern.ParseError
	assert.True(t, errors.As(err, &perr))
}

func TestRunDocument(t *testing.T) {
	t.Parallel()
	doc := wordDoc(t, "A b C")

	e := New(
		WithQueryRules(
			QueryRule{Name: "caps", Expression: "//w[isUpperCaseWord(.)]", Message: "capitalized"},
			QueryRule{Name: "long", Expression: "count(//w) > 2", Severity: tt.SeverityInfo},
		),
		WithPatternRules(PatternRule{Name: "pair", Pattern: "<w> <w>", Type: "pair"}),
	)
	assert.Equal(t, []string{"caps", "long", "pair"}, e.Rules())

	findings, err := e.RunDocument("doc.yaml", doc)
	require.NoError(t, err)

	var got []string
	for _, f := range findings {
		got = append(got, f.String())
	}
	assert.Equal(t, []string{
		"doc.yaml:[0,3): long: long",
		"doc.yaml:[0,2): pair: pair",
		"doc.yaml:[0,1): caps: capitalized",
		"doc.yaml:[1,3): pair: pair",
		"doc.yaml:[2,3): caps: capitalized",
	}, got)
	assert.Equal(t, tt.SeverityInfo, findings[0].Severity)
	assert.Equal(t, tt.KindPattern, findings[1].Kind)
	assert.Equal(t, "A b", findings[1].Value)

	e.IgnoreRule("long")
	e.IgnoreRule("pair")
	findings, err = e.RunDocument("doc.yaml", doc)
	require.NoError(t, err)
	assert.Len(t, findings, 2)
}

func TestRunDocumentNolint(t *testing.T) {
	t.Parallel()
	doc := wordDoc(t, "A b C")
	_, _, err := doc.Annotate("nolint", 1, 3, map[string]string{"rules": "pair"})
	require.NoError(t, err)

	e := New(
		WithQueryRules(QueryRule{Name: "caps", Expression: "//w[isUpperCaseWord(.)]"}),
		WithPatternRules(PatternRule{Name: "pair", Pattern: "<w> <w>"}),
	)
	findings, err := e.RunDocument("doc.yaml", doc)
	require.NoError(t, err)

	var got []string
	for _, f := range findings {
		got = append(got, f.String())
	}
	assert.Equal(t, []string{
		"doc.yaml:[0,2): pair: pair",
		"doc.yaml:[0,1): caps: caps",
		"doc.yaml:[2,3): caps: caps",
	}, got)

	_, err = doc.SetAttribute(doc, "nolint", "")
	require.NoError(t, err)
	findings, err = e.RunDocument("doc.yaml", doc)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestRunLoadsDocumentFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.yaml")
	content := `tokens: [Hello, world]
annotations:
  - {type: w, start: 0, end: 1}
  - {type: w, start: 1, end: 2}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	e := New(WithQueryRules(QueryRule{Name: "caps", Expression: "//w[isCapitalizedWord(.)]"}))
	findings, err := e.Run(path)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "Hello", findings[0].Value)
	assert.Equal(t, path, findings[0].Filename)

	_, err = e.Run(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestRuleErrorsNameTheRule(t *testing.T) {
	t.Parallel()
	e := New(WithQueryRules(QueryRule{Name: "broken", Expression: "nosuch()"}))
	_, err := e.RunDocument("d", document.New("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rule broken")
	assert.True(t, errors.Is(err, eval.ErrUndefinedFunction))
}
