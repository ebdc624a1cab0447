package pattern

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gnoswap-labs/gpath/query"
)

// Unbounded is the Max of a quantifier without an upper limit.
const Unbounded = -1

// Quantifier bounds how often an element repeats.
type Quantifier struct {
	Min int
	Max int
}

// Once is the quantifier of an element written without one.
var Once = Quantifier{Min: 1, Max: 1}

func (q Quantifier) String() string {
	switch {
	case q == Once:
		return ""
	case q.Min == 0 && q.Max == 1:
		return "?"
	case q.Min == 0 && q.Max == Unbounded:
		return "*"
	case q.Min == 1 && q.Max == Unbounded:
		return "+"
	case q.Min == q.Max:
		return "{" + strconv.Itoa(q.Min) + "}"
	case q.Max == Unbounded:
		return "{" + strconv.Itoa(q.Min) + ",}"
	default:
		return "{" + strconv.Itoa(q.Min) + "," + strconv.Itoa(q.Max) + "}"
	}
}

// Element is a node of a compiled pattern.
type Element interface {
	String() string
	Quantifier() Quantifier
	element()
}

var (
	_ Element = (*TokenLiteral)(nil)
	_ Element = (*RegexLiteral)(nil)
	_ Element = (*AnnotationMatcher)(nil)
	_ Element = (*Sequence)(nil)
	_ Element = (*Alternation)(nil)
)

// TokenLiteral matches the tokens its text splits into, in order.
type TokenLiteral struct {
	Text  string
	Quant Quantifier
}

// RegexLiteral matches the longest run of whole tokens whose text the
// expression matches completely.
type RegexLiteral struct {
	Source string
	Regexp *regexp.Regexp
	Quant  Quantifier
}

// Attr is a required attribute value of an AnnotationMatcher.
type Attr struct {
	Name  string
	Value string
}

// AnnotationMatcher matches one annotation of Type starting at the current
// token, with the given attribute values, for which Test holds.
type AnnotationMatcher struct {
	Type  string
	Attrs []Attr
	Test  query.Expr
	Quant Quantifier
}

type Sequence struct {
	Elements []Element
	Quant    Quantifier
}

type Alternation struct {
	Alternatives []Element
	Quant        Quantifier
}

func (*TokenLiteral) element()      {}
func (*RegexLiteral) element()      {}
func (*AnnotationMatcher) element() {}
func (*Sequence) element()          {}
func (*Alternation) element()       {}

func (e *TokenLiteral) Quantifier() Quantifier      { return e.Quant }
func (e *RegexLiteral) Quantifier() Quantifier      { return e.Quant }
func (e *AnnotationMatcher) Quantifier() Quantifier { return e.Quant }
func (e *Sequence) Quantifier() Quantifier          { return e.Quant }
func (e *Alternation) Quantifier() Quantifier       { return e.Quant }

var (
	literalEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	valueEscaper   = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	regexEscaper   = strings.NewReplacer(`"`, `\"`)
)

func (e *TokenLiteral) String() string {
	return "'" + literalEscaper.Replace(e.Text) + "'" + e.Quant.String()
}

func (e *RegexLiteral) String() string {
	return `"` + regexEscaper.Replace(e.Source) + `"` + e.Quant.String()
}

func (e *AnnotationMatcher) String() string {
	var sb strings.Builder
	sb.WriteString("<")
	sb.WriteString(e.Type)
	for _, a := range e.Attrs {
		sb.WriteString(" ")
		sb.WriteString(a.Name)
		sb.WriteString(`="`)
		sb.WriteString(valueEscaper.Replace(a.Value))
		sb.WriteString(`"`)
	}
	if e.Test != nil {
		sb.WriteString(` test="`)
		sb.WriteString(valueEscaper.Replace(e.Test.String()))
		sb.WriteString(`"`)
	}
	sb.WriteString(">")
	sb.WriteString(e.Quant.String())
	return sb.String()
}

func (e *Sequence) String() string {
	return "(" + e.body() + ")" + e.Quant.String()
}

func (e *Sequence) body() string {
	parts := make([]string, len(e.Elements))
	for i, el := range e.Elements {
		parts[i] = el.String()
	}
	return strings.Join(parts, " ")
}

func (e *Alternation) String() string {
	return "(" + e.body() + ")" + e.Quant.String()
}

func (e *Alternation) body() string {
	parts := make([]string, len(e.Alternatives))
	for i, el := range e.Alternatives {
		if seq, ok := el.(*Sequence); ok && seq.Quant == Once {
			parts[i] = seq.body()
			continue
		}
		parts[i] = el.String()
	}
	return strings.Join(parts, " | ")
}

// Pattern is a compiled pattern.
type Pattern struct {
	Source string
	Root   Element
}

// String prints the pattern in canonical form. A top level sequence or
// alternation without a quantifier is printed without parentheses.
func (p *Pattern) String() string {
	switch root := p.Root.(type) {
	case *Sequence:
		if root.Quant == Once {
			return root.body()
		}
	case *Alternation:
		if root.Quant == Once {
			return root.body()
		}
	}
	return p.Root.String()
}
