package eval

import (
	"math"
	"strconv"
	"strings"

	"github.com/gnoswap-labs/gpath/document"
)

// ObjectType names the four kinds of values an expression can produce.
type ObjectType int

const (
	TypeNodeSet ObjectType = iota
	TypeBoolean
	TypeNumber
	TypeString
)

func (t ObjectType) String() string {
	switch t {
	case TypeNodeSet:
		return "node-set"
	case TypeBoolean:
		return "boolean"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	default:
		return "unknown"
	}
}

// Object is the result of evaluating an expression. The concrete types are
// *NodeSet, Boolean, Number and String.
type Object interface {
	Type() ObjectType
	AsBoolean() bool
	// AsNumber returns NaN when the value has no numeric reading.
	AsNumber() float64
	AsString() string
}

var (
	_ Object = (*NodeSet)(nil)
	_ Object = Boolean(false)
	_ Object = Number(0)
	_ Object = String("")
)

type Boolean bool

func (b Boolean) Type() ObjectType { return TypeBoolean }
func (b Boolean) AsBoolean() bool  { return bool(b) }

func (b Boolean) AsNumber() float64 {
	if b {
		return 1
	}
	return 0
}

func (b Boolean) AsString() string {
	if b {
		return "true"
	}
	return "false"
}

type Number float64

func (n Number) Type() ObjectType { return TypeNumber }

func (n Number) AsBoolean() bool {
	f := float64(n)
	return f != 0 && !math.IsNaN(f)
}

func (n Number) AsNumber() float64 { return float64(n) }
func (n Number) AsString() string  { return formatNumber(float64(n)) }

type String string

func (s String) Type() ObjectType  { return TypeString }
func (s String) AsBoolean() bool   { return s != "" }
func (s String) AsNumber() float64 { return parseNumber(string(s)) }
func (s String) AsString() string  { return string(s) }

// NodeSet is an ordered collection of nodes without duplicate IDs.
type NodeSet struct {
	Nodes []*Node
}

func (s *NodeSet) Type() ObjectType { return TypeNodeSet }
func (s *NodeSet) AsBoolean() bool  { return s.Len() > 0 }

// AsString returns the string value of the first node.
func (s *NodeSet) AsString() string {
	if s.Len() == 0 {
		return ""
	}
	return s.Nodes[0].Value()
}

func (s *NodeSet) AsNumber() float64 { return parseNumber(s.AsString()) }

func (s *NodeSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Nodes)
}

// Values returns the string value of every node.
func (s *NodeSet) Values() []string {
	out := make([]string, s.Len())
	for i, n := range s.Nodes {
		out[i] = n.Value()
	}
	return out
}

// Annotations unwraps the nodes. Real annotations are returned as the
// document's own values; attribute and token nodes are returned as is.
func (s *NodeSet) Annotations() []document.Annotation {
	out := make([]document.Annotation, s.Len())
	for i, n := range s.Nodes {
		out[i] = n.Unwrap()
	}
	return out
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == math.Trunc(f) && math.Abs(f) < 1e15:
		return strconv.FormatInt(int64(f), 10)
	default:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
}

func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}
