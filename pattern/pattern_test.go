package pattern

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/gpath/document"
	"github.com/gnoswap-labs/gpath/eval"
	"github.com/gnoswap-labs/gpath/query"
)

type span struct {
	typ        string
	start, end int
	attrs      map[string]string
}

func newDoc(t *testing.T, tokens string, spans ...span) *document.Doc {
	t.Helper()
	doc := document.FromTokens(strings.Fields(tokens))
	for _, s := range spans {
		_, _, err := doc.Annotate(s.typ, s.start, s.end, s.attrs)
		require.NoError(t, err)
	}
	return doc
}

func match(t *testing.T, doc document.Document, src string) []*MatchTree {
	t.Helper()
	p, err := NewCompiler(CompilerOptions{}).Compile(src)
	require.NoError(t, err)
	trees, err := NewMatcher(Options{}).Match(doc, nil, p)
	require.NoError(t, err)
	return trees
}

func spans(trees []*MatchTree) []string {
	out := make([]string, len(trees))
	for i, t := range trees {
		out[i] = fmt.Sprintf("[%d,%d)", t.Start, t.End)
	}
	return out
}

func TestMatchHonorificName(t *testing.T) {
	t.Parallel()
	doc := newDoc(t, "Mr . John F . Kennedy , Jr .",
		span{typ: "fn", start: 2, end: 3},
		span{typ: "in", start: 3, end: 5},
		span{typ: "ln", start: 5, end: 6},
		span{typ: "a", start: 7, end: 9},
	)

	trees := match(t, doc, "'Mr.'? (<fn>|<in>)+ (<i>* <ln>)+ (','? <a>)?")
	assert.Equal(t, []string{"[0,9)", "[0,6)", "[2,9)", "[2,6)", "[3,9)", "[3,6)"}, spans(trees))
	for _, tree := range trees {
		assert.NotEqual(t, 5, tree.Start, "a bare last name must not match")
	}
}

func TestQuantifierBounds(t *testing.T) {
	t.Parallel()
	doc := newDoc(t, "x x x x",
		span{typ: "a", start: 0, end: 1},
		span{typ: "a", start: 1, end: 2},
		span{typ: "a", start: 2, end: 3},
		span{typ: "a", start: 3, end: 4},
	)

	tests := []struct {
		pattern string
		want    []string
	}{
		{"<a>{2,3}", []string{"[0,3)", "[0,2)", "[1,4)", "[1,3)", "[2,4)"}},
		{"<a>{2}", []string{"[0,2)", "[1,3)", "[2,4)"}},
		{"<a>{3,}", []string{"[0,4)", "[0,3)", "[1,4)"}},
		{"<a>+", []string{"[0,4)", "[0,3)", "[0,2)", "[0,1)", "[1,4)", "[1,3)", "[1,2)", "[2,4)", "[2,3)", "[3,4)"}},
		{"<a>?", []string{"[0,1)", "[1,2)", "[2,3)", "[3,4)"}},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, spans(match(t, doc, tt.pattern)))
		})
	}
}

func TestZeroWidthRepetition(t *testing.T) {
	t.Parallel()

	plain := newDoc(t, "x y")
	assert.Equal(t, []string{"[0,2)"}, spans(match(t, plain, "'x' <a>* 'y'")))

	annotated := newDoc(t, "x z z y",
		span{typ: "a", start: 1, end: 2},
		span{typ: "a", start: 2, end: 3},
	)
	assert.Equal(t, []string{"[0,4)"}, spans(match(t, annotated, "'x' <a>* 'y'")))

	// nested stars over nothing must terminate
	assert.Equal(t, []string{"[0,2)"}, spans(match(t, plain, "'x' (<a>*)* 'y'")))
}

func TestRegexLiterals(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		tokens  string
		pattern string
		want    []string
	}{
		{"single token", "on 21st May", `"[0-9]+st" 'May'`, []string{"[1,3)"}},
		{"spans tokens", "the U . S . army", `"U \. S \."`, []string{"[1,5)"}},
		{"longest run", "a a a b", `"a( a)*"`, []string{"[0,3)", "[1,3)", "[2,3)"}},
		{"partial token never matches", "abc", `"ab"`, []string{}},
		{"end anchor mid document", "on 21st May 2024", `"[0-9]+st$"`, []string{"[1,2)"}},
		{"both anchors mid document", "on 21st May 2024", `"^[0-9]+st$"`, []string{"[1,2)"}},
		{"end anchor across tokens", "on 21st May 2024", `"[0-9]+st May$"`, []string{"[1,3)"}},
		{"word boundary", "on 21st May", `"\bMay\b"`, []string{"[2,3)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newDoc(t, tt.tokens)
			assert.Equal(t, tt.want, spans(match(t, doc, tt.pattern)))
		})
	}
}

func TestAnnotationConstraints(t *testing.T) {
	t.Parallel()
	doc := newDoc(t, "Jo Al Jo",
		span{typ: "name", start: 0, end: 1, attrs: map[string]string{"gender": "f"}},
		span{typ: "name", start: 1, end: 2, attrs: map[string]string{"gender": "m"}},
		span{typ: "name", start: 2, end: 3, attrs: map[string]string{"gender": "f"}},
	)

	assert.Equal(t, []string{"[0,1)", "[2,3)"}, spans(match(t, doc, `<name gender="f">`)))
	assert.Equal(t, []string{"[1,2)"}, spans(match(t, doc, `<name test="(. = 'Al')">`)))
	assert.Equal(t, []string{"[0,3)"}, spans(match(t, doc, `<name gender='f'> <name> <name test="(@gender = 'f')">`)))
}

func TestTestErrorsAbortMatching(t *testing.T) {
	t.Parallel()
	doc := newDoc(t, "Jo", span{typ: "name", start: 0, end: 1})

	p, err := Compile(`<name test="(nosuch(.))">`)
	require.NoError(t, err)
	_, err = NewMatcher(Options{}).Match(doc, nil, p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, eval.ErrUndefinedFunction))
}

func TestMatchTreeShape(t *testing.T) {
	t.Parallel()
	doc := newDoc(t, "Mr . John Kennedy",
		span{typ: "fn", start: 2, end: 3},
		span{typ: "ln", start: 3, end: 4},
	)

	trees := match(t, doc, "'Mr.' (<fn> | <in>) <ln>")
	require.Len(t, trees, 1)
	want := strings.Join([]string{
		"match [0,4)",
		"  literal [0,2) 'Mr.'",
		"  alternative [2,3)",
		"    fn [2,3)",
		"  ln [3,4)",
		"",
	}, "\n")
	assert.Equal(t, want, trees[0].String())

	var anns []string
	trees[0].Root.Walk(func(n *MatchNode) {
		if n.Annotation != nil {
			anns = append(anns, n.Annotation.Type())
		}
	})
	assert.Equal(t, []string{"fn", "ln"}, anns)
}

func TestCanonicalForm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		want string
	}{
		{"'Mr.'? (<fn>|<in>)+ (<i>* <ln>)+ (','? <a>)?", "'Mr.'? (<fn> | <in>)+ (<i>* <ln>)+ (','? <a>)?"},
		{"<a   x = 'v' >", `<a x="v">`},
		{"(<a>)", "<a>"},
		{"<a>|<b> <c>", "<a> | <b> <c>"},
		{"(<a> <b>)", "<a> <b>"},
		{"(<a> <b>)*", "(<a> <b>)*"},
		{`"a\"b"`, `"a\"b"`},
		{`"\d+"`, `"\d+"`},
		{`'it\'s'`, `'it\'s'`},
		{"<a>{2} <b>{2,} <c>{1,3} <d>{0,1} <e>{1,}", "<a>{2} <b>{2,} <c>{1,3} <d>? <e>+"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			p, err := Compile(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.String())
		})
	}
}

func TestRecompileIsFixedPoint(t *testing.T) {
	t.Parallel()
	sources := []string{
		"'Mr.'? (<fn>|<in>)+ (<i>* <ln>)+ (','? <a>)?",
		`<name gender="f" test="(@gender = 'f' and string-length(.) > 1)">+`,
		`((<a> <b>) | <c>)* "x\"y"`,
		`<a test='(. != "q")'>`,
	}

	c := NewCompiler(CompilerOptions{})
	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			p, err := c.Compile(src)
			require.NoError(t, err)
			again, err := c.Compile(p.String())
			require.NoError(t, err)
			assert.Equal(t, p.String(), again.String())
		})
	}
}

func TestCompilerMemoizes(t *testing.T) {
	t.Parallel()
	c := NewCompiler(CompilerOptions{CacheSize: 8})

	first, err := c.Compile("<a>+")
	require.NoError(t, err)
	second, err := c.Compile("<a>+")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, uint64(1), c.Stats().Hits)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src     string
		message string
		pos     int
	}{
		{"", "empty pattern", 0},
		{"(<a>", "unclosed group", 0},
		{"<a> ()", "empty group", 4},
		{"<a> |", "empty alternative", 5},
		{"| <a>", "empty alternative", 0},
		{"'abc", "unterminated literal", 0},
		{`<a> "(["`, "invalid regular expression", 4},
		{"<a>{3,1}", "malformed quantifier", 3},
		{"<a>{x}", "malformed quantifier", 3},
		{"<a>{2", "unclosed quantifier", 3},
		{`<a test="(1 +)">`, "invalid test expression", 8},
		{"<>", "missing annotation type", 1},
		{"<a x>", "missing '='", 4},
		{"<a x=v>", "needs a quoted value", 5},
		{"x", "unexpected", 0},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := NewCompiler(CompilerOptions{}).Compile(tt.src)
			require.Error(t, err)
			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Contains(t, perr.Message, tt.message)
			assert.Equal(t, tt.pos, perr.Pos)
		})
	}
}

func TestInvalidTestWrapsSyntaxError(t *testing.T) {
	t.Parallel()
	_, err := Compile(`<a test="(1 +)">`)
	var serr *query.SyntaxError
	assert.True(t, errors.As(err, &serr))
}

func TestObservingIndex(t *testing.T) {
	t.Parallel()
	doc := newDoc(t, "a b c d", span{typ: "x", start: 2, end: 3})
	idx := NewObservingIndex(doc, nil)
	require.Len(t, idx.Lookup("x", 2), 1)

	edit, err := doc.InsertTokens(0, "z")
	require.NoError(t, err)
	idx.Apply(edit)
	assert.Empty(t, idx.Lookup("x", 2))
	assert.Len(t, idx.Lookup("x", 3), 1)

	_, edit, err = doc.Annotate("x", 0, 1, nil)
	require.NoError(t, err)
	idx.Apply(edit)
	assert.Len(t, idx.Lookup("x", 0), 1)

	edit, err = doc.RemoveTokens(3, 4)
	require.NoError(t, err)
	idx.Apply(edit)
	assert.Empty(t, idx.Lookup("x", 3))
}

func TestIndexFallback(t *testing.T) {
	t.Parallel()
	doc := newDoc(t, "a b c",
		span{typ: "x", start: 0, end: 1},
		span{typ: "y", start: 1, end: 3},
	)
	anns := doc.Annotations()

	base := NewIndex(nil)
	base.Add(anns[1])
	idx := NewIndex(base)
	idx.Add(anns[0])

	assert.Len(t, idx.Lookup("x", 0), 1)
	assert.Len(t, idx.Lookup("y", 1), 1)
	assert.Empty(t, base.Lookup("x", 0))

	idx.Apply(document.Edit{Kind: document.EditInsert, Offset: 0, Length: 1})
	assert.Empty(t, idx.Lookup("x", 0))
	assert.Len(t, idx.Lookup("y", 1), 1, "the fallback keeps its own entries")

	// a hand built index drives the matcher
	trees, err := NewMatcher(Options{}).Match(doc, idx, &Pattern{Root: &AnnotationMatcher{Type: "y", Quant: Once}})
	require.NoError(t, err)
	assert.Equal(t, []string{"[1,3)"}, spans(trees))
}
