package eval

import (
	"github.com/gnoswap-labs/gpath/document"
	"github.com/gnoswap-labs/gpath/query"
)

// axis returns the nodes reachable from n along a, filtered by the type
// test, in axis order.
func (dc *docContext) axis(a query.Axis, test query.TypeTest, n *Node) []*Node {
	var nodes []*Node
	switch a {
	case query.AxisSelf:
		nodes = []*Node{n}
	case query.AxisParent:
		nodes = []*Node{dc.parent(n)}
	case query.AxisChild:
		if n.kind == kindSuperRoot {
			nodes = []*Node{dc.root}
		} else {
			nodes = dc.contained(n)
		}
	case query.AxisDescendant:
		nodes = dc.contained(n)
	case query.AxisDescendantOrSelf:
		contained := dc.contained(n)
		nodes = make([]*Node, 0, len(contained)+1)
		nodes = append(nodes, n)
		nodes = append(nodes, contained...)
	case query.AxisAttribute:
		nodes = dc.attributes(n)
	case query.AxisToken:
		return dc.filterTokens(dc.tokens(n), test)
	default:
		return dc.siblings(a, test, n)
	}
	return filterType(nodes, test)
}

func filterType(nodes []*Node, test query.TypeTest) []*Node {
	if test.Kind == query.TestAny {
		return nodes
	}
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if n.Type() == test.Name {
			out = append(out, n)
		}
	}
	return out
}

// siblings compares the span of n with every other annotation nested in the
// parent of n. Attribute and token nodes, the root and the super-root have
// no siblings.
func (dc *docContext) siblings(a query.Axis, test query.TypeTest, n *Node) []*Node {
	if n.kind != kindAnnotation || n.isRoot() {
		return nil
	}
	candidates := filterType(dc.contained(dc.parent(n)), test)

	var out []*Node
	for _, s := range candidates {
		if s.ID() == n.ID() {
			continue
		}
		if siblingMatches(a, n, s) {
			out = append(out, s)
		}
	}
	if a.Reverse() {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

func siblingMatches(a query.Axis, n, s *Node) bool {
	interleaving := s.Start() < n.End() && n.Start() < s.End() &&
		!document.Contains(s, n) && !document.Contains(n, s)

	switch a {
	case query.AxisPrecedingSibling:
		return s.End() <= n.Start()
	case query.AxisFollowingSibling:
		return s.Start() >= n.End()
	case query.AxisInterleavingSibling:
		return interleaving
	case query.AxisInterleavingSiblingLeft:
		return interleaving && s.Start() < n.Start()
	case query.AxisInterleavingSiblingRight:
		return interleaving && s.Start() > n.Start()
	default:
		return false
	}
}

func (dc *docContext) filterTokens(tokens []*Node, test query.TypeTest) []*Node {
	if test.Kind != query.TestTokenFilter || len(tokens) == 0 {
		return tokens
	}
	switch test.Name {
	case "first":
		return tokens[:1]
	case "last":
		return tokens[len(tokens)-1:]
	}

	c := dc.tokenizer
	var keep func(string) bool
	switch test.Name {
	case "text":
		keep = func(v string) bool { return !c.IsPunctuation(v) }
	case "word":
		keep = c.IsWord
	case "number":
		keep = c.IsNumber
	case "punctuation":
		keep = c.IsPunctuation
	case "sentenceEnd":
		keep = c.IsSentenceEnd
	case "bracket":
		keep = c.IsBracket
	case "openingBracket":
		keep = c.IsOpeningBracket
	case "closingBracket":
		keep = c.IsClosingBracket
	default:
		return nil
	}

	out := make([]*Node, 0, len(tokens))
	for _, t := range tokens {
		if keep(t.value) {
			out = append(out, t)
		}
	}
	return out
}
