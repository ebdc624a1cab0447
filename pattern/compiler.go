package pattern

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/gnoswap-labs/gpath/internal/lru"
	"github.com/gnoswap-labs/gpath/query"
)

// ParseError reports a malformed pattern at a byte offset.
type ParseError struct {
	Message string
	Pos     int
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pattern error at offset %d: %s: %v", e.Pos, e.Message, e.Err)
	}
	return fmt.Sprintf("pattern error at offset %d: %s", e.Pos, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

// CompilerOptions configure a Compiler.
type CompilerOptions struct {
	CacheSize int
	// Parser parses test expressions; a private parser is used when nil.
	Parser *query.Parser
	Logger *zap.Logger
}

// Compiler turns pattern source into a Pattern, memoizing by source string.
type Compiler struct {
	cache  *lru.Cache[string, *Pattern]
	parser *query.Parser
	logger *zap.Logger
}

func NewCompiler(opts CompilerOptions) *Compiler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	parser := opts.Parser
	if parser == nil {
		parser = query.NewParser(query.Options{Logger: logger})
	}
	return &Compiler{
		cache:  lru.New[string, *Pattern]("gpath-patterns", opts.CacheSize, logger),
		parser: parser,
		logger: logger,
	}
}

var defaultCompiler = NewCompiler(CompilerOptions{})

// Compile compiles src with the package default compiler.
func Compile(src string) (*Pattern, error) {
	return defaultCompiler.Compile(src)
}

func (c *Compiler) Compile(src string) (*Pattern, error) {
	if p, ok := c.cache.Get(src); ok {
		return p, nil
	}
	ps := &parser{src: src, queries: c.parser}
	root, err := ps.parseTop()
	if err != nil {
		c.logger.Debug("pattern compile failed", zap.String("pattern", src), zap.Error(err))
		return nil, err
	}
	p := &Pattern{Source: src, Root: root}
	c.cache.Add(src, p)
	return p, nil
}

func (c *Compiler) Stats() lru.Stats {
	return c.cache.Stats()
}

type parser struct {
	src     string
	pos     int
	queries *query.Parser
}

func (p *parser) errorf(pos int, format string, args ...any) *ParseError {
	return &ParseError{Message: fmt.Sprintf(format, args...), Pos: pos}
}

func (p *parser) atEnd() bool { return p.pos >= len(p.src) }

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] <= ' ' {
		p.pos++
	}
}

func (p *parser) parseTop() (Element, error) {
	p.skipSpace()
	if p.atEnd() {
		return nil, p.errorf(0, "empty pattern")
	}
	el, err := p.parseGroupBody(0, 0)
	if err != nil {
		return nil, err
	}
	if seq, ok := el.(*Sequence); ok && len(seq.Elements) == 1 {
		return seq.Elements[0], nil
	}
	return el, nil
}

// parseGroupBody reads elements up to closing (0 for end of input). A
// top-level '|' turns the body into an alternation.
func (p *parser) parseGroupBody(closing byte, open int) (Element, error) {
	var alts [][]Element
	var cur []Element
	for {
		p.skipSpace()
		if p.atEnd() {
			if closing != 0 {
				return nil, p.errorf(open, "unclosed group")
			}
			break
		}
		c := p.src[p.pos]
		if closing != 0 && c == closing {
			p.pos++
			break
		}
		if c == '|' {
			if len(cur) == 0 {
				return nil, p.errorf(p.pos, "empty alternative")
			}
			alts = append(alts, cur)
			cur = nil
			p.pos++
			continue
		}
		el, err := p.parseElement()
		if err != nil {
			return nil, err
		}
		cur = append(cur, el)
	}
	if len(cur) == 0 {
		if len(alts) > 0 {
			return nil, p.errorf(p.pos, "empty alternative")
		}
		return nil, p.errorf(open, "empty group")
	}
	alts = append(alts, cur)

	if len(alts) == 1 {
		return &Sequence{Elements: cur, Quant: Once}, nil
	}
	alt := &Alternation{Quant: Once}
	for _, elems := range alts {
		if len(elems) == 1 {
			alt.Alternatives = append(alt.Alternatives, elems[0])
		} else {
			alt.Alternatives = append(alt.Alternatives, &Sequence{Elements: elems, Quant: Once})
		}
	}
	return alt, nil
}

func (p *parser) parseElement() (Element, error) {
	start := p.pos
	var el Element
	switch p.src[p.pos] {
	case '\'':
		text, err := p.readQuoted('\'', true)
		if err != nil {
			return nil, err
		}
		el = &TokenLiteral{Text: text}

	case '"':
		src, err := p.readQuoted('"', false)
		if err != nil {
			return nil, err
		}
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, &ParseError{Message: "invalid regular expression", Pos: start, Err: err}
		}
		el = &RegexLiteral{Source: src, Regexp: re}

	case '<':
		m, err := p.parseAnnotation()
		if err != nil {
			return nil, err
		}
		el = m

	case '(':
		p.pos++
		body, err := p.parseGroupBody(')', start)
		if err != nil {
			return nil, err
		}
		el = body

	default:
		return nil, p.errorf(start, "unexpected %q", p.src[p.pos])
	}

	q, err := p.parseQuantifier()
	if err != nil {
		return nil, err
	}
	switch e := el.(type) {
	case *TokenLiteral:
		e.Quant = q
	case *RegexLiteral:
		e.Quant = q
	case *AnnotationMatcher:
		e.Quant = q
	case *Sequence:
		e.Quant = q
	case *Alternation:
		e.Quant = q
	}
	return el, nil
}

// readQuoted reads a quoted span starting at the opening quote. With
// unescape set every backslash escapes the next character; otherwise only
// an escaped quote is unescaped and other backslashes are kept.
func (p *parser) readQuoted(quote byte, unescape bool) (string, error) {
	start := p.pos
	p.pos++
	var sb strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '\\' && p.pos+1 < len(p.src):
			next := p.src[p.pos+1]
			if !unescape && next != quote {
				sb.WriteByte(c)
			}
			sb.WriteByte(next)
			p.pos += 2
		case c == quote:
			p.pos++
			return sb.String(), nil
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
	return "", p.errorf(start, "unterminated literal")
}

func (p *parser) parseAnnotation() (*AnnotationMatcher, error) {
	start := p.pos
	p.pos++ // '<'
	p.skipSpace()
	typ := p.readName()
	if typ == "" {
		return nil, p.errorf(p.pos, "missing annotation type")
	}
	m := &AnnotationMatcher{Type: typ}

	for {
		p.skipSpace()
		if p.atEnd() {
			return nil, p.errorf(start, "unclosed annotation matcher")
		}
		if p.src[p.pos] == '>' {
			p.pos++
			return m, nil
		}

		namePos := p.pos
		name := p.readName()
		if name == "" {
			return nil, p.errorf(p.pos, "unexpected %q in annotation matcher", p.src[p.pos])
		}
		p.skipSpace()
		if p.atEnd() || p.src[p.pos] != '=' {
			return nil, p.errorf(p.pos, "missing '=' after attribute %q", name)
		}
		p.pos++
		p.skipSpace()
		if p.atEnd() || (p.src[p.pos] != '"' && p.src[p.pos] != '\'') {
			return nil, p.errorf(p.pos, "attribute %q needs a quoted value", name)
		}
		valuePos := p.pos
		value, err := p.readQuoted(p.src[p.pos], true)
		if err != nil {
			return nil, err
		}

		if name != "test" {
			m.Attrs = append(m.Attrs, Attr{Name: name, Value: value})
			continue
		}
		if m.Test != nil {
			return nil, p.errorf(namePos, "duplicate test")
		}
		expr, err := p.queries.ParseExpression(value)
		if err != nil {
			return nil, &ParseError{Message: "invalid test expression", Pos: valuePos, Err: err}
		}
		m.Test = expr
	}
}

func (p *parser) readName() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c <= ' ' || c == '>' || c == '=' || c == '<' || c == '"' || c == '\'' {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) parseQuantifier() (Quantifier, error) {
	if p.atEnd() {
		return Once, nil
	}
	switch p.src[p.pos] {
	case '?':
		p.pos++
		return Quantifier{Min: 0, Max: 1}, nil
	case '*':
		p.pos++
		return Quantifier{Min: 0, Max: Unbounded}, nil
	case '+':
		p.pos++
		return Quantifier{Min: 1, Max: Unbounded}, nil
	case '{':
	default:
		return Once, nil
	}

	start := p.pos
	end := strings.IndexByte(p.src[start:], '}')
	if end < 0 {
		return Quantifier{}, p.errorf(start, "unclosed quantifier")
	}
	body := p.src[start+1 : start+end]
	p.pos = start + end + 1

	lo, hi, hasComma := strings.Cut(body, ",")
	min, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil || min < 0 {
		return Quantifier{}, p.errorf(start, "malformed quantifier {%s}", body)
	}
	if !hasComma {
		if min == 0 {
			return Quantifier{}, p.errorf(start, "quantifier {0} matches nothing")
		}
		return Quantifier{Min: min, Max: min}, nil
	}
	if strings.TrimSpace(hi) == "" {
		return Quantifier{Min: min, Max: Unbounded}, nil
	}
	max, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil || max < min || max == 0 {
		return Quantifier{}, p.errorf(start, "malformed quantifier {%s}", body)
	}
	return Quantifier{Min: min, Max: max}, nil
}
