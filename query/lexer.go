package query

import (
	"strings"
)

// Token is a single lexical unit of a GPath expression together with its
// byte offset in the whitespace-normalized input.
type Token struct {
	Value string
	Pos   int
}

func (t Token) String() string { return t.Value }

var twoCharOperators = []string{"::", "..", "!=", "<=", ">="}

// single-character tokens that always stand alone
const punctuation = "()[]@#,|=<>+*"

// Tokenize splits a GPath expression into tokens.
func Tokenize(src string) []Token {
	return newLexer(src).tokenize()
}

// Normalize maps every control character and space to a plain space.
func Normalize(src string) string {
	b := []byte(src)
	for i, c := range b {
		if c < 33 {
			b[i] = ' '
		}
	}
	return string(b)
}

type lexer struct {
	input    string
	position int
	tokens   []Token

	run      strings.Builder
	runStart int
}

func newLexer(src string) *lexer {
	return &lexer{
		input:  Normalize(src),
		tokens: make([]Token, 0),
	}
}

func (l *lexer) tokenize() []Token {
	for l.position < len(l.input) {
		c := l.input[l.position]
		switch {
		case c == ' ':
			l.flush()
			l.position++

		case c == '\'' || c == '"':
			l.flush()
			l.lexQuoted(c)

		case c == '/':
			l.flush()
			start := l.position
			for l.position < len(l.input) && l.input[l.position] == '/' {
				l.position++
			}
			if l.position-start == 1 {
				l.addToken("/", start)
			} else {
				l.addToken("//", start)
			}

		case l.matchTwoCharOperator():
			// position already advanced

		case c == '.':
			l.lexDot()

		case c == '-':
			if l.run.Len() > 0 && isNameStart(l.run.String()[0]) {
				l.run.WriteByte(c)
			} else {
				l.flush()
				l.addToken("-", l.position)
			}
			l.position++

		case c == '$':
			l.flush()
			l.extendRun(c)

		case strings.IndexByte(punctuation, c) >= 0:
			l.flush()
			l.addToken(string(c), l.position)
			l.position++

		case c == '!':
			// a lone '!' is not an operator; keep it visible to the validator
			l.flush()
			l.addToken("!", l.position)
			l.position++

		default:
			l.extendRun(c)
		}
	}
	l.flush()
	return l.tokens
}

func (l *lexer) matchTwoCharOperator() bool {
	if l.position+1 >= len(l.input) {
		return false
	}
	pair := l.input[l.position : l.position+2]
	for _, op := range twoCharOperators {
		if pair != op {
			continue
		}
		l.flush()
		l.addToken(op, l.position)
		l.position += 2
		return true
	}
	return false
}

// lexDot decides whether '.' is a decimal point (adjacent to a digit inside a
// numeric run) or the self step token.
func (l *lexer) lexDot() {
	nextIsDigit := l.position+1 < len(l.input) && isDigit(l.input[l.position+1])
	run := l.run.String()
	switch {
	case run != "" && isDigits(run) && !strings.Contains(run, "."):
		l.run.WriteByte('.')
	case run == "" && nextIsDigit:
		l.extendRun('.')
		return
	case run != "" && nextIsDigit:
		l.run.WriteByte('.')
	default:
		l.flush()
		l.addToken(".", l.position)
	}
	l.position++
}

func (l *lexer) lexQuoted(quote byte) {
	start := l.position
	i := start + 1
	for i < len(l.input) && l.input[i] != quote {
		i++
	}
	if i < len(l.input) {
		i++ // closing quote
	}
	l.addToken(l.input[start:i], start)
	l.position = i
}

func (l *lexer) extendRun(c byte) {
	if l.run.Len() == 0 {
		l.runStart = l.position
	}
	l.run.WriteByte(c)
	l.position++
}

func (l *lexer) flush() {
	if l.run.Len() == 0 {
		return
	}
	l.addToken(l.run.String(), l.runStart)
	l.run.Reset()
}

func (l *lexer) addToken(value string, pos int) {
	l.tokens = append(l.tokens, Token{Value: value, Pos: pos})
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) && s[i] != '.' {
			return false
		}
	}
	return s != ""
}

func isNameStart(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
