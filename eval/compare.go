package eval

import (
	"math"

	"github.com/gnoswap-labs/gpath/query"
)

func (e *Evaluator) binary(b *query.BinaryOp, ctx *evalContext) (Object, error) {
	left, err := e.eval(b.Left, ctx)
	if err != nil {
		return nil, err
	}

	// short circuit
	switch b.Op {
	case query.OpOr:
		if left.AsBoolean() {
			return Boolean(true), nil
		}
	case query.OpAnd:
		if !left.AsBoolean() {
			return Boolean(false), nil
		}
	}

	right, err := e.eval(b.Right, ctx)
	if err != nil {
		return nil, err
	}

	switch b.Op {
	case query.OpOr, query.OpAnd:
		return Boolean(right.AsBoolean()), nil
	case query.OpEq:
		return Boolean(equals(left, right)), nil
	case query.OpNe:
		return Boolean(notEquals(left, right)), nil
	case query.OpLt, query.OpLe, query.OpGt, query.OpGe:
		return Boolean(relational(b.Op, left, right)), nil
	case query.OpAdd:
		return Number(left.AsNumber() + right.AsNumber()), nil
	case query.OpSub:
		return Number(left.AsNumber() - right.AsNumber()), nil
	case query.OpMul:
		return Number(left.AsNumber() * right.AsNumber()), nil
	case query.OpDiv:
		return Number(left.AsNumber() / right.AsNumber()), nil
	case query.OpMod:
		return Number(math.Mod(left.AsNumber(), right.AsNumber())), nil
	default:
		return nil, newError(KindUndefinedOperator, b.String(), "unknown operator %d", int(b.Op))
	}
}

// Equals compares two objects the way the = operator does.
func Equals(a, b Object) bool { return equals(a, b) }

// equals is existential when a node-set is involved: it holds when some
// member compares equal to the other side.
func equals(a, b Object) bool {
	as, aSet := a.(*NodeSet)
	bs, bSet := b.(*NodeSet)
	switch {
	case aSet && bSet:
		values := make(map[string]bool, bs.Len())
		for _, v := range bs.Values() {
			values[v] = true
		}
		for _, v := range as.Values() {
			if values[v] {
				return true
			}
		}
		return false
	case aSet:
		return setEquals(as, b)
	case bSet:
		return setEquals(bs, a)
	}
	return scalarEquals(a, b)
}

func setEquals(set *NodeSet, v Object) bool {
	switch v := v.(type) {
	case Boolean:
		return set.AsBoolean() == bool(v)
	case Number:
		for _, s := range set.Values() {
			if parseNumber(s) == float64(v) {
				return true
			}
		}
	default:
		want := v.AsString()
		for _, s := range set.Values() {
			if s == want {
				return true
			}
		}
	}
	return false
}

func scalarEquals(a, b Object) bool {
	switch {
	case a.Type() == TypeBoolean || b.Type() == TypeBoolean:
		return a.AsBoolean() == b.AsBoolean()
	case a.Type() == TypeNumber || b.Type() == TypeNumber:
		return a.AsNumber() == b.AsNumber()
	default:
		return a.AsString() == b.AsString()
	}
}

// notEquals keeps the set semantics of earlier releases: two sets differ when
// both are non-empty and either their sizes differ or some left value is
// missing from the right.
func notEquals(a, b Object) bool {
	as, aSet := a.(*NodeSet)
	bs, bSet := b.(*NodeSet)
	switch {
	case aSet && bSet:
		if as.Len() == 0 || bs.Len() == 0 {
			return false
		}
		if as.Len() != bs.Len() {
			return true
		}
		values := make(map[string]bool, bs.Len())
		for _, v := range bs.Values() {
			values[v] = true
		}
		for _, v := range as.Values() {
			if !values[v] {
				return true
			}
		}
		return false
	case aSet:
		return setNotEquals(as, b)
	case bSet:
		return setNotEquals(bs, a)
	}
	return !scalarEquals(a, b)
}

func setNotEquals(set *NodeSet, v Object) bool {
	switch v := v.(type) {
	case Boolean:
		return set.AsBoolean() != bool(v)
	case Number:
		for _, s := range set.Values() {
			if parseNumber(s) != float64(v) {
				return true
			}
		}
	default:
		want := v.AsString()
		for _, s := range set.Values() {
			if s != want {
				return true
			}
		}
	}
	return false
}

// relational reduces a node-set operand to the member number that makes the
// comparison most likely to hold, which gives existential semantics.
func relational(op query.Operator, a, b Object) bool {
	lowLeft := op == query.OpLt || op == query.OpLe
	x := reduce(a, lowLeft)
	y := reduce(b, !lowLeft)
	switch op {
	case query.OpLt:
		return x < y
	case query.OpLe:
		return x <= y
	case query.OpGt:
		return x > y
	default:
		return x >= y
	}
}

func reduce(v Object, min bool) float64 {
	set, ok := v.(*NodeSet)
	if !ok {
		return v.AsNumber()
	}
	result := math.NaN()
	for _, s := range set.Values() {
		f := parseNumber(s)
		if math.IsNaN(f) {
			continue
		}
		if math.IsNaN(result) || (min && f < result) || (!min && f > result) {
			result = f
		}
	}
	return result
}
