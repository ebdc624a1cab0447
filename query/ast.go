package query

import (
	"strconv"
	"strings"
)

// Axis selects which annotations a step navigates to.
type Axis int

const (
	AxisChild Axis = iota
	AxisDescendant
	AxisDescendantOrSelf
	AxisParent
	AxisSelf
	AxisAttribute
	AxisToken
	AxisPrecedingSibling
	AxisFollowingSibling
	AxisInterleavingSibling
	AxisInterleavingSiblingLeft
	AxisInterleavingSiblingRight
)

var axisNames = [...]string{
	AxisChild:                    "child",
	AxisDescendant:               "descendant",
	AxisDescendantOrSelf:         "descendant-or-self",
	AxisParent:                   "parent",
	AxisSelf:                     "self",
	AxisAttribute:                "attribute",
	AxisToken:                    "token",
	AxisPrecedingSibling:         "preceding-sibling",
	AxisFollowingSibling:         "following-sibling",
	AxisInterleavingSibling:      "interleaving-sibling",
	AxisInterleavingSiblingLeft:  "interleaving-sibling-left",
	AxisInterleavingSiblingRight: "interleaving-sibling-right",
}

func (a Axis) String() string {
	if int(a) < len(axisNames) {
		return axisNames[a]
	}
	return "unknown"
}

// Reverse reports whether the axis yields nodes in reverse document order.
func (a Axis) Reverse() bool {
	return a == AxisPrecedingSibling
}

// AxisByName resolves an axis name as written before "::".
func AxisByName(name string) (Axis, bool) {
	for i, n := range axisNames {
		if n == name {
			return Axis(i), true
		}
	}
	return 0, false
}

// TokenFilters are the keywords accepted after "#" or "token::".
var TokenFilters = []string{
	"first", "last", "text", "word", "number", "punctuation",
	"sentenceEnd", "bracket", "openingBracket", "closingBracket",
}

func isTokenFilter(name string) bool {
	for _, f := range TokenFilters {
		if f == name {
			return true
		}
	}
	return false
}

type TestKind int

const (
	TestAny TestKind = iota
	TestExact
	TestTokenFilter
)

// TypeTest restricts a step to annotations of one type, or for the token
// axis to one class of tokens.
type TypeTest struct {
	Kind TestKind
	Name string
}

func (t TypeTest) String() string {
	if t.Kind == TestAny {
		return "*"
	}
	return t.Name
}

// Step is one location step of a path.
type Step struct {
	Axis       Axis
	Test       TypeTest
	Predicates []Expr
}

func (s *Step) String() string {
	var sb strings.Builder
	sb.WriteString(s.Axis.String())
	sb.WriteString("::")
	sb.WriteString(s.Test.String())
	writePredicates(&sb, s.Predicates)
	return sb.String()
}

// Path is a sequence of steps, optionally anchored at the document root.
type Path struct {
	Absolute bool
	Steps    []*Step
}

func (p *Path) String() string {
	parts := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		parts[i] = s.String()
	}
	joined := strings.Join(parts, "/")
	if p.Absolute {
		return "/" + joined
	}
	return joined
}

// HasVariables reports whether any predicate of the path refers to a variable.
func (p *Path) HasVariables() bool {
	for _, s := range p.Steps {
		for _, pred := range s.Predicates {
			if HasVariables(pred) {
				return true
			}
		}
	}
	return false
}

// Expr is a GPath expression node. The concrete types are Literal, Number,
// VariableRef, Enclosed, FunctionCall, PathExpr, Union, BinaryOp and Negation.
type Expr interface {
	String() string
	exprNode()
}

type Literal struct {
	Value string
}

type Number struct {
	Value float64
}

type VariableRef struct {
	Name string
}

// Enclosed is a parenthesized expression with optional filter predicates and
// a trailing relative path.
type Enclosed struct {
	Inner      Expr
	Predicates []Expr
	Suffix     *Path
}

type FunctionCall struct {
	Name       string
	Args       []Expr
	Predicates []Expr
	Suffix     *Path
}

type PathExpr struct {
	Path *Path
}

type Union struct {
	Items []Expr
}

type BinaryOp struct {
	Left  Expr
	Op    Operator
	Right Expr
}

type Negation struct {
	Operand Expr
}

func (*Literal) exprNode()      {}
func (*Number) exprNode()       {}
func (*VariableRef) exprNode()  {}
func (*Enclosed) exprNode()     {}
func (*FunctionCall) exprNode() {}
func (*PathExpr) exprNode()     {}
func (*Union) exprNode()        {}
func (*BinaryOp) exprNode()     {}
func (*Negation) exprNode()     {}

func (e *Literal) String() string {
	if strings.Contains(e.Value, "'") {
		return `"` + e.Value + `"`
	}
	return "'" + e.Value + "'"
}

func (e *Number) String() string {
	return strconv.FormatFloat(e.Value, 'f', -1, 64)
}

func (e *VariableRef) String() string { return "$" + e.Name }

func (e *Enclosed) String() string {
	var sb strings.Builder
	sb.WriteString("(")
	sb.WriteString(e.Inner.String())
	sb.WriteString(")")
	writePredicates(&sb, e.Predicates)
	writeSuffix(&sb, e.Suffix)
	return sb.String()
}

func (e *FunctionCall) String() string {
	var sb strings.Builder
	sb.WriteString(e.Name)
	sb.WriteString("(")
	for i, a := range e.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.String())
	}
	sb.WriteString(")")
	writePredicates(&sb, e.Predicates)
	writeSuffix(&sb, e.Suffix)
	return sb.String()
}

func (e *PathExpr) String() string { return e.Path.String() }

func (e *Union) String() string {
	parts := make([]string, len(e.Items))
	for i, item := range e.Items {
		parts[i] = wrapLower(item, precUnion)
	}
	return strings.Join(parts, " | ")
}

func (e *BinaryOp) String() string {
	prec := e.Op.Precedence()
	return wrapLower(e.Left, prec) + " " + e.Op.String() + " " + wrapLower(e.Right, prec+1)
}

func (e *Negation) String() string {
	return "-" + wrapLower(e.Operand, precUnary)
}

// wrapLower parenthesizes e when it binds looser than min.
func wrapLower(e Expr, min int) string {
	if precedenceOf(e) < min {
		return "(" + e.String() + ")"
	}
	return e.String()
}

func precedenceOf(e Expr) int {
	switch n := e.(type) {
	case *BinaryOp:
		return n.Op.Precedence()
	case *Negation:
		return precUnary
	case *Union:
		return precUnion
	default:
		return precPrimary
	}
}

func writePredicates(sb *strings.Builder, preds []Expr) {
	for _, p := range preds {
		sb.WriteString("[")
		sb.WriteString(p.String())
		sb.WriteString("]")
	}
}

func writeSuffix(sb *strings.Builder, suffix *Path) {
	if suffix == nil || len(suffix.Steps) == 0 {
		return
	}
	sb.WriteString("/")
	sb.WriteString(suffix.String())
}

// HasVariables reports whether e refers to a variable anywhere.
func HasVariables(e Expr) bool {
	found := false
	Walk(e, func(n Expr) bool {
		if _, ok := n.(*VariableRef); ok {
			found = true
		}
		return !found
	})
	return found
}

// Walk visits e and its sub-expressions depth first, including predicates of
// path steps. Returning false from fn stops descent below that node.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	walkPath := func(p *Path) {
		if p == nil {
			return
		}
		for _, s := range p.Steps {
			for _, pred := range s.Predicates {
				Walk(pred, fn)
			}
		}
	}
	switch n := e.(type) {
	case *Enclosed:
		Walk(n.Inner, fn)
		for _, p := range n.Predicates {
			Walk(p, fn)
		}
		walkPath(n.Suffix)
	case *FunctionCall:
		for _, a := range n.Args {
			Walk(a, fn)
		}
		for _, p := range n.Predicates {
			Walk(p, fn)
		}
		walkPath(n.Suffix)
	case *PathExpr:
		walkPath(n.Path)
	case *Union:
		for _, item := range n.Items {
			Walk(item, fn)
		}
	case *BinaryOp:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *Negation:
		Walk(n.Operand, fn)
	}
}
