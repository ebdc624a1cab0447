package document

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Classifier answers lexical questions about single tokens.
type Classifier interface {
	IsWord(s string) bool
	IsNumber(s string) bool
	IsPunctuation(s string) bool
	IsBracket(s string) bool
	IsOpeningBracket(s string) bool
	IsClosingBracket(s string) bool
	// Opens reports whether open is the opening bracket matching close.
	Opens(open, close string) bool
	// Closes reports whether close is the closing bracket matching open.
	Closes(close, open string) bool
	IsSentenceEnd(s string) bool
}

// Tokenizer splits arbitrary strings into tokens and classifies them.
type Tokenizer interface {
	Classifier
	Tokenize(s string) []Token
}

var bracketPairs = map[string]string{
	"(": ")",
	"[": "]",
	"{": "}",
	"<": ">",
}

var sentenceEnds = map[string]bool{
	".": true,
	"!": true,
	"?": true,
}

// DefaultTokenizer splits text into words, numbers and single punctuation marks.
type DefaultTokenizer struct{}

var _ Tokenizer = DefaultTokenizer{}

// Tokenize scans s into tokens. Letter runs (with embedded digits and
// apostrophes) form words, digit runs with single inner '.' or ',' form
// numbers, and every other non-space rune is its own token.
func (DefaultTokenizer) Tokenize(s string) []Token {
	var tokens []Token
	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if unicode.IsSpace(r) {
			if n := len(tokens); n > 0 {
				tokens[n-1].Space += string(r)
			}
			i += size
			continue
		}

		start := i
		switch {
		case unicode.IsLetter(r):
			i = scanWord(s, i)
		case unicode.IsDigit(r):
			i = scanNumber(s, i)
		default:
			i += size
		}
		tokens = append(tokens, Token{Value: s[start:i]})
	}
	return tokens
}

func scanWord(s string, i int) int {
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) {
			i += size
			continue
		}
		if r == '\'' && i+size < len(s) {
			next, _ := utf8.DecodeRuneInString(s[i+size:])
			if unicode.IsLetter(next) {
				i += size
				continue
			}
		}
		break
	}
	return i
}

func scanNumber(s string, i int) int {
	for i < len(s) {
		c := s[i]
		if c >= '0' && c <= '9' {
			i++
			continue
		}
		if (c == '.' || c == ',') && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9' {
			i++
			continue
		}
		break
	}
	return i
}

func (DefaultTokenizer) IsWord(s string) bool {
	if s == "" {
		return false
	}
	hasLetter := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r), unicode.Is(unicode.Mn, r), r == '\'', r == '-':
		default:
			return false
		}
	}
	return hasLetter
}

func (DefaultTokenizer) IsNumber(s string) bool {
	if s == "" {
		return false
	}
	digits := 0
	for i, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case (r == '.' || r == ',') && i > 0 && i < len(s)-1:
		case (r == '-' || r == '+') && i == 0 && len(s) > 1:
		default:
			return false
		}
	}
	return digits > 0
}

func (DefaultTokenizer) IsPunctuation(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return true
}

func (t DefaultTokenizer) IsBracket(s string) bool {
	return t.IsOpeningBracket(s) || t.IsClosingBracket(s)
}

func (DefaultTokenizer) IsOpeningBracket(s string) bool {
	_, ok := bracketPairs[s]
	return ok
}

func (DefaultTokenizer) IsClosingBracket(s string) bool {
	for _, c := range bracketPairs {
		if c == s {
			return true
		}
	}
	return false
}

func (DefaultTokenizer) Opens(open, close string) bool {
	c, ok := bracketPairs[open]
	return ok && c == close
}

func (t DefaultTokenizer) Closes(close, open string) bool {
	return t.Opens(open, close)
}

func (DefaultTokenizer) IsSentenceEnd(s string) bool {
	return sentenceEnds[s]
}

// IsUpperCaseWord reports whether s is a word with no lower case letters.
func IsUpperCaseWord(c Classifier, s string) bool {
	return c.IsWord(s) && s == strings.ToUpper(s) && s != strings.ToLower(s)
}

// IsLowerCaseWord reports whether s is a word with no upper case letters.
func IsLowerCaseWord(c Classifier, s string) bool {
	return c.IsWord(s) && s == strings.ToLower(s) && s != strings.ToUpper(s)
}

// IsFirstLetterUpWord reports whether s is a word starting with an upper case letter.
func IsFirstLetterUpWord(c Classifier, s string) bool {
	if !c.IsWord(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

// IsCapitalizedWord reports whether s starts upper case and continues lower case.
func IsCapitalizedWord(c Classifier, s string) bool {
	if !IsFirstLetterUpWord(c, s) {
		return false
	}
	_, size := utf8.DecodeRuneInString(s)
	rest := s[size:]
	return rest == strings.ToLower(rest)
}

// Values returns the token values.
func Values(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Value
	}
	return out
}
