package query

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/gnoswap-labs/gpath/internal/lru"
)

// Operator is a binary operator.
type Operator int

const (
	OpOr Operator = iota
	OpAnd
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAdd
	OpSub
	OpMul
	OpMod
	OpDiv
)

const (
	precOr = iota + 1
	precAnd
	precEquality
	precRelational
	precAdditive
	precMultiplicative
	precUnary
	precUnion
	precPrimary
)

var operatorSymbols = [...]string{
	OpOr: "or", OpAnd: "and", OpEq: "=", OpNe: "!=",
	OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpAdd: "+", OpSub: "-", OpMul: "*", OpMod: "mod", OpDiv: "div",
}

func (o Operator) String() string {
	if int(o) < len(operatorSymbols) {
		return operatorSymbols[o]
	}
	return "?"
}

func (o Operator) Precedence() int {
	switch o {
	case OpOr:
		return precOr
	case OpAnd:
		return precAnd
	case OpEq, OpNe:
		return precEquality
	case OpLt, OpLe, OpGt, OpGe:
		return precRelational
	case OpAdd, OpSub:
		return precAdditive
	default:
		return precMultiplicative
	}
}

func lookupOperator(symbol string) (Operator, bool) {
	for i, s := range operatorSymbols {
		if s == symbol {
			return Operator(i), true
		}
	}
	return 0, false
}

// ParseExpression parses src with the package default parser.
func ParseExpression(src string) (Expr, error) {
	return defaultParser.ParseExpression(src)
}

// ParsePath parses src, which must be a location path, with the package
// default parser.
func ParsePath(src string) (*Path, error) {
	return defaultParser.ParsePath(src)
}

var defaultParser = NewParser(Options{})

// Options configure a Parser.
type Options struct {
	// CacheSize bounds the number of memoized parse results.
	CacheSize int
	Logger    *zap.Logger
}

// Parser turns GPath source into an AST. Results are memoized by exact source
// string, so parsing the same string twice returns the same tree. A Parser is
// not safe for concurrent use.
type Parser struct {
	cache  *lru.Cache[string, Expr]
	logger *zap.Logger
}

func NewParser(opts Options) *Parser {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{
		cache:  lru.New[string, Expr]("gpath-parse", opts.CacheSize, logger),
		logger: logger,
	}
}

// ParseExpression parses any GPath expression.
func (p *Parser) ParseExpression(src string) (Expr, error) {
	if e, ok := p.cache.Get(src); ok {
		return e, nil
	}
	e, err := Parse(src)
	if err != nil {
		p.logger.Debug("parse failed", zap.String("source", src), zap.Error(err))
		return nil, err
	}
	p.cache.Add(src, e)
	return e, nil
}

// ParsePath parses a location path.
func (p *Parser) ParsePath(src string) (*Path, error) {
	e, err := p.ParseExpression(src)
	if err != nil {
		return nil, err
	}
	pe, ok := e.(*PathExpr)
	if !ok {
		return nil, &SyntaxError{Message: "expression is not a location path", Index: -1, Source: src}
	}
	return pe.Path, nil
}

func (p *Parser) Stats() lru.Stats {
	return p.cache.Stats()
}

// Parse parses src without memoization.
func Parse(src string) (Expr, error) {
	tokens := Tokenize(src)
	if len(tokens) == 0 {
		return nil, &SyntaxError{Message: "empty expression", Index: -1, Source: src}
	}
	if err := Validate(tokens); err != nil {
		err.Source = src
		return nil, err
	}

	ps := &exprParser{
		tokens: tokens,
		ops:    operatorPositions(tokens),
	}
	e, err := ps.parseExpr(precOr)
	if err == nil && !ps.atEnd() {
		err = ps.errorf("unexpected token %q", ps.peek())
	}
	if err != nil {
		if se, ok := err.(*SyntaxError); ok {
			se.Source = src
		}
		return nil, err
	}
	return e, nil
}

type exprParser struct {
	tokens []Token
	ops    []bool
	pos    int
}

func (p *exprParser) atEnd() bool { return p.pos >= len(p.tokens) }

func (p *exprParser) peek() string {
	if p.atEnd() {
		return ""
	}
	return p.tokens[p.pos].Value
}

func (p *exprParser) peekAt(offset int) string {
	if p.pos+offset >= len(p.tokens) {
		return ""
	}
	return p.tokens[p.pos+offset].Value
}

func (p *exprParser) isOperator() bool {
	return !p.atEnd() && p.ops[p.pos]
}

func (p *exprParser) errorf(format string, args ...any) *SyntaxError {
	return newSyntaxError(p.tokens, p.pos, format, args...)
}

func (p *exprParser) expect(v string) error {
	if p.peek() != v {
		if p.atEnd() {
			return p.errorf("expected %q at end of expression", v)
		}
		return p.errorf("expected %q, found %q", v, p.peek())
	}
	p.pos++
	return nil
}

// parseExpr is a precedence climbing loop over the binary operators; unary
// minus and union bind tighter than all of them.
func (p *exprParser) parseExpr(minPrec int) (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isOperator() {
		op, ok := lookupOperator(p.peek())
		if !ok {
			break // union is handled below the binary levels
		}
		prec := op.Precedence()
		if prec < minPrec {
			break
		}
		p.pos++
		right, err := p.parseExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Left: left, Op: op, Right: right}
	}
	return left, nil
}

func (p *exprParser) parseUnary() (Expr, error) {
	if p.peek() == "-" && !p.isOperator() {
		p.pos++
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Negation{Operand: operand}, nil
	}
	return p.parseUnion()
}

func (p *exprParser) parseUnion() (Expr, error) {
	first, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.peek() != "|" {
		return first, nil
	}
	union := &Union{Items: []Expr{first}}
	for p.peek() == "|" {
		p.pos++
		item, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		union.Items = append(union.Items, item)
	}
	return union, nil
}

func (p *exprParser) parsePrimary() (Expr, error) {
	if p.atEnd() {
		return nil, p.errorf("unexpected end of expression")
	}
	tok := p.peek()
	switch {
	case isQuoted(tok):
		p.pos++
		return &Literal{Value: tok[1 : len(tok)-1]}, nil

	case isNumberToken(tok):
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, p.errorf("invalid number %q", tok)
		}
		p.pos++
		return &Number{Value: v}, nil

	case strings.HasPrefix(tok, "$"):
		if len(tok) == 1 {
			return nil, p.errorf("missing variable name")
		}
		p.pos++
		return &VariableRef{Name: tok[1:]}, nil

	case tok == "(":
		p.pos++
		inner, err := p.parseExpr(precOr)
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		e := &Enclosed{Inner: inner}
		e.Predicates, e.Suffix, err = p.parseFilterTail()
		if err != nil {
			return nil, err
		}
		return e, nil

	case isName(tok) && p.peekAt(1) == "(":
		return p.parseFunctionCall()

	default:
		path, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		return &PathExpr{Path: path}, nil
	}
}

func (p *exprParser) parseFunctionCall() (Expr, error) {
	call := &FunctionCall{Name: p.peek()}
	p.pos += 2
	if p.peek() != ")" {
		for {
			arg, err := p.parseExpr(precOr)
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			if p.peek() != "," {
				break
			}
			p.pos++
		}
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	var err error
	call.Predicates, call.Suffix, err = p.parseFilterTail()
	if err != nil {
		return nil, err
	}
	return call, nil
}

// parseFilterTail reads the predicates and relative path that may follow a
// parenthesized expression or a function call.
func (p *exprParser) parseFilterTail() ([]Expr, *Path, error) {
	preds, err := p.parsePredicates()
	if err != nil {
		return nil, nil, err
	}
	if p.peek() != "/" && p.peek() != "//" {
		return preds, nil, nil
	}
	suffix := &Path{}
	if err := p.parseSteps(suffix); err != nil {
		return nil, nil, err
	}
	return preds, suffix, nil
}

func (p *exprParser) parsePredicates() ([]Expr, error) {
	var preds []Expr
	for p.peek() == "[" {
		p.pos++
		e, err := p.parseExpr(precOr)
		if err != nil {
			return nil, err
		}
		if err := p.expect("]"); err != nil {
			return nil, err
		}
		preds = append(preds, e)
	}
	return preds, nil
}

func (p *exprParser) parsePath() (*Path, error) {
	path := &Path{}
	switch p.peek() {
	case "/":
		path.Absolute = true
		if !p.atStepStart(1) {
			p.pos++
			return path, nil
		}
	case "//":
		path.Absolute = true
	default:
		if !p.atStepStart(0) {
			return nil, p.errorf("unexpected token %q", p.peek())
		}
		step, err := p.parseStep()
		if err != nil {
			return nil, err
		}
		path.Steps = append(path.Steps, step)
	}
	if err := p.parseSteps(path); err != nil {
		return nil, err
	}
	return path, nil
}

// parseSteps consumes a run of "/step" and "//step" continuations.
func (p *exprParser) parseSteps(path *Path) error {
	for {
		sep := p.peek()
		if sep != "/" && sep != "//" {
			return nil
		}
		p.pos++
		if sep == "//" {
			path.Steps = append(path.Steps, &Step{Axis: AxisDescendantOrSelf, Test: TypeTest{Kind: TestAny}})
		}
		if !p.atStepStart(0) {
			if p.atEnd() {
				return p.errorf("missing step after %q", sep)
			}
			return p.errorf("unexpected token %q after %q", p.peek(), sep)
		}
		step, err := p.parseStep()
		if err != nil {
			return err
		}
		path.Steps = append(path.Steps, step)
	}
}

func (p *exprParser) atStepStart(offset int) bool {
	i := p.pos + offset
	if i >= len(p.tokens) {
		return false
	}
	v := p.tokens[i].Value
	switch v {
	case ".", "..", "@", "#":
		return true
	case "*":
		return !p.ops[i]
	}
	return isName(v) && !p.ops[i]
}

func (p *exprParser) parseStep() (*Step, error) {
	tok := p.peek()
	var step *Step

	switch {
	case tok == ".":
		p.pos++
		step = &Step{Axis: AxisSelf, Test: TypeTest{Kind: TestAny}}

	case tok == "..":
		p.pos++
		step = &Step{Axis: AxisParent, Test: TypeTest{Kind: TestAny}}

	case tok == "@":
		p.pos++
		test, err := p.parseTypeTest(AxisAttribute, true)
		if err != nil {
			return nil, err
		}
		step = &Step{Axis: AxisAttribute, Test: test}

	case tok == "#":
		p.pos++
		test, err := p.parseTypeTest(AxisToken, false)
		if err != nil {
			return nil, err
		}
		step = &Step{Axis: AxisToken, Test: test}

	case p.peekAt(1) == "::":
		axis, ok := AxisByName(tok)
		if !ok {
			return nil, p.errorf("unknown axis %q", tok)
		}
		p.pos += 2
		test, err := p.parseTypeTest(axis, true)
		if err != nil {
			return nil, err
		}
		step = &Step{Axis: axis, Test: test}

	default:
		test, err := p.parseTypeTest(AxisChild, true)
		if err != nil {
			return nil, err
		}
		step = &Step{Axis: AxisChild, Test: test}
	}

	preds, err := p.parsePredicates()
	if err != nil {
		return nil, err
	}
	step.Predicates = preds
	return step, nil
}

// parseTypeTest reads the name or '*' after an axis. The token axis accepts
// only filter keywords, and "#" may stand alone.
func (p *exprParser) parseTypeTest(axis Axis, required bool) (TypeTest, error) {
	tok := p.peek()
	if tok == "*" && !p.isOperator() {
		p.pos++
		return TypeTest{Kind: TestAny}, nil
	}
	if !isName(tok) || p.isOperator() || p.peekAt(1) == "(" || p.peekAt(1) == "::" {
		if required {
			return TypeTest{}, p.errorf("expected a name or '*' after %s axis", axis)
		}
		return TypeTest{Kind: TestAny}, nil
	}
	p.pos++
	if axis == AxisToken {
		if !isTokenFilter(tok) {
			return TypeTest{}, newSyntaxError(p.tokens, p.pos-1, "unknown token filter %q", tok)
		}
		return TypeTest{Kind: TestTokenFilter, Name: tok}, nil
	}
	return TypeTest{Kind: TestExact, Name: tok}, nil
}

func isNumberToken(v string) bool {
	if v == "" || v == "." {
		return false
	}
	dots := 0
	for i := 0; i < len(v); i++ {
		switch {
		case v[i] == '.':
			dots++
		case !isDigit(v[i]):
			return false
		}
	}
	return dots <= 1
}

// isName reports whether v can name a type, an attribute, or a function.
func isName(v string) bool {
	if v == "" || isQuoted(v) || isNumberToken(v) || strings.HasPrefix(v, "$") {
		return false
	}
	switch v {
	case "(", ")", "[", "]", "@", "#", ",", "|", "=", "!=", "<", "<=", ">", ">=",
		"+", "-", "*", "/", "//", "::", ".", "..", "!":
		return false
	}
	return true
}
