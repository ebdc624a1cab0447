package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func tokenValues(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Value
	}
	return out
}

func TestTokenize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "absolute path with descendant",
			input: "/document//a[1]",
			want:  []string{"/", "document", "//", "a", "[", "1", "]"},
		},
		{
			name:  "function and comparison",
			input: "count(//a) = 1",
			want:  []string{"count", "(", "//", "a", ")", "=", "1"},
		},
		{
			name:  "two character operators",
			input: "@x != 'y z' and b<=c",
			want:  []string{"@", "x", "!=", "'y z'", "and", "b", "<=", "c"},
		},
		{
			name:  "dash inside names",
			input: "a-b - 3",
			want:  []string{"a-b", "-", "3"},
		},
		{
			name:  "dash after number is an operator",
			input: "last()-1",
			want:  []string{"last", "(", ")", "-", "1"},
		},
		{
			name:  "dot versus decimal",
			input: ". = 1.5",
			want:  []string{".", "=", "1.5"},
		},
		{
			name:  "parent step",
			input: "../x",
			want:  []string{"..", "/", "x"},
		},
		{
			name:  "variable and leading decimal",
			input: "$var+.5",
			want:  []string{"$var", "+", ".5"},
		},
		{
			name:  "control characters are spaces",
			input: "a\tand\nb",
			want:  []string{"a", "and", "b"},
		},
		{
			name:  "slash runs collapse",
			input: "a///b",
			want:  []string{"a", "//", "b"},
		},
		{
			name:  "axis",
			input: "preceding-sibling::*",
			want:  []string{"preceding-sibling", "::", "*"},
		},
		{
			name:  "empty",
			input: "  ",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tokenValues(Tokenize(tt.input)))
		})
	}
}

func TestTokenizePositions(t *testing.T) {
	t.Parallel()
	tokens := Tokenize("a = 'b c'")
	assert.Equal(t, []Token{{"a", 0}, {"=", 2}, {"'b c'", 4}}, tokens)
}

func TestTokenizeBackslashIsLiteral(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{`'it\'`, "s", "'"}, tokenValues(Tokenize(`'it\'s'`)))
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		input     string
		wantErr   bool
		wantIndex int
	}{
		{name: "simple path", input: "/a/b[1]"},
		{name: "unary minus", input: "-1"},
		{name: "unary minus after operator", input: "a * -b"},
		{name: "star as name", input: "a/*"},
		{name: "bare token axis", input: "count(#)"},
		{name: "token wildcard", input: "#*"},
		{name: "operator word as name", input: "a/and"},
		{name: "unclosed paren", input: "(a", wantErr: true, wantIndex: 0},
		{name: "extra closer", input: "a)", wantErr: true, wantIndex: 1},
		{name: "mismatched brackets", input: "(a]", wantErr: true, wantIndex: 2},
		{name: "operator at start", input: "= a", wantErr: true, wantIndex: 0},
		{name: "operator at end", input: "a =", wantErr: true, wantIndex: 1},
		{name: "adjacent operators", input: "a < > b", wantErr: true, wantIndex: 2},
		{name: "operator before closer", input: "f(a +)", wantErr: true, wantIndex: 4},
		{name: "operator after open bracket", input: "a[= 1]", wantErr: true, wantIndex: 2},
		{name: "unterminated literal", input: "'abc", wantErr: true, wantIndex: 0},
		{name: "lone bang", input: "a ! b", wantErr: true, wantIndex: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(Tokenize(tt.input))
			if !tt.wantErr {
				assert.Nil(t, err)
				return
			}
			if assert.NotNil(t, err) {
				assert.Equal(t, tt.wantIndex, err.Index)
			}
		})
	}
}
