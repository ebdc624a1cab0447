package query

import (
	"fmt"
)

// SyntaxError reports a malformed expression. Index is the offending token
// index (-1 when the error is not tied to a token) and Pos its byte offset.
type SyntaxError struct {
	Message string
	Index   int
	Pos     int
	Near    string
	Source  string
}

func (e *SyntaxError) Error() string {
	if e.Near == "" {
		return fmt.Sprintf("syntax error at offset %d: %s", e.Pos, e.Message)
	}
	return fmt.Sprintf("syntax error at offset %d near %q: %s", e.Pos, e.Near, e.Message)
}

func newSyntaxError(tokens []Token, index int, format string, args ...any) *SyntaxError {
	err := &SyntaxError{
		Message: fmt.Sprintf(format, args...),
		Index:   index,
		Pos:     -1,
	}
	switch {
	case index >= 0 && index < len(tokens):
		err.Pos = tokens[index].Pos
		err.Near = tokens[index].Value
	case len(tokens) > 0:
		last := tokens[len(tokens)-1]
		err.Pos = last.Pos + len(last.Value)
	default:
		err.Pos = 0
	}
	return err
}

var (
	// operators that are never names
	symbolOperators = map[string]bool{
		"=": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
		"+": true, "|": true,
	}
	// operators that are names unless they follow a complete operand
	wordOperators = map[string]bool{
		"*": true, "and": true, "or": true, "mod": true, "div": true,
	}
	nonOperandEnders = map[string]bool{
		"(": true, "[": true, ",": true, "@": true, "/": true, "//": true,
		"::": true, "-": true, "!": true,
	}
)

// operatorPositions marks, for each token, whether it acts as a binary
// operator. A '*' or operator word is an operator only right after a token
// that completes an operand.
func operatorPositions(tokens []Token) []bool {
	ops := make([]bool, len(tokens))
	for i, tok := range tokens {
		v := tok.Value
		switch {
		case symbolOperators[v]:
			ops[i] = true
		case wordOperators[v] || v == "-":
			ops[i] = i > 0 && endsOperand(tokens, ops, i-1)
		}
	}
	return ops
}

func endsOperand(tokens []Token, ops []bool, i int) bool {
	v := tokens[i].Value
	if ops[i] || symbolOperators[v] || nonOperandEnders[v] {
		return false
	}
	// "#*" is the token axis with a wildcard, never a multiplication
	if v == "#" && i+1 < len(tokens) && tokens[i+1].Value == "*" {
		return false
	}
	return true
}

func isQuoted(v string) bool {
	return v != "" && (v[0] == '\'' || v[0] == '"')
}

// Validate checks bracket balance and operator placement. It returns nil
// when the token sequence is well formed.
func Validate(tokens []Token) *SyntaxError {
	ops := operatorPositions(tokens)
	var stack []int

	for i, tok := range tokens {
		v := tok.Value
		switch v {
		case "(", "[":
			stack = append(stack, i)
		case ")", "]":
			if len(stack) == 0 {
				return newSyntaxError(tokens, i, "unbalanced %q", v)
			}
			open := tokens[stack[len(stack)-1]].Value
			if (v == ")" && open != "(") || (v == "]" && open != "[") {
				return newSyntaxError(tokens, i, "mismatched %q", v)
			}
			stack = stack[:len(stack)-1]
		case "!":
			return newSyntaxError(tokens, i, "unexpected '!'")
		}

		if isQuoted(v) && (len(v) < 2 || v[len(v)-1] != v[0]) {
			return newSyntaxError(tokens, i, "unterminated literal")
		}

		if !ops[i] {
			if v == "-" && i == len(tokens)-1 {
				return newSyntaxError(tokens, i, "missing operand after '-'")
			}
			continue
		}

		if i == 0 {
			return newSyntaxError(tokens, i, "operator %q at start of expression", v)
		}
		prev := tokens[i-1].Value
		if ops[i-1] || prev == "::" || prev == "(" || prev == "[" || prev == "," || prev == "-" {
			return newSyntaxError(tokens, i, "operator %q not allowed after %q", v, prev)
		}
		if i == len(tokens)-1 {
			return newSyntaxError(tokens, i, "operator %q at end of expression", v)
		}
		next := tokens[i+1].Value
		if next == ")" || next == "]" || next == "," || symbolOperators[next] {
			return newSyntaxError(tokens, i+1, "unexpected %q after operator %q", next, v)
		}
	}

	if len(stack) > 0 {
		open := stack[len(stack)-1]
		return newSyntaxError(tokens, open, "unclosed %q", tokens[open].Value)
	}
	return nil
}
