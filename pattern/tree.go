package pattern

import (
	"fmt"
	"strings"

	"github.com/gnoswap-labs/gpath/document"
)

// Labels of synthetic match nodes.
const (
	LabelMatch       = "match"
	LabelLiteral     = "literal"
	LabelRegex       = "regex"
	LabelSequence    = "sequence"
	LabelAlternative = "alternative"
)

// MatchTree records how a pattern matched the tokens in [Start, End).
type MatchTree struct {
	Start int
	End   int
	Root  *MatchNode
}

// MatchNode is one matched element. Annotation is set for nodes produced by
// an annotation matcher, whose Label is the annotation type.
type MatchNode struct {
	Label      string
	Element    Element
	Start      int
	End        int
	Annotation document.Annotation
	Children   []*MatchNode
}

// String renders the tree one node per line, children indented.
func (t *MatchTree) String() string {
	var sb strings.Builder
	t.Root.write(&sb, 0)
	return sb.String()
}

func (n *MatchNode) write(sb *strings.Builder, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(sb, "%s [%d,%d)", n.Label, n.Start, n.End)
	switch n.Label {
	case LabelLiteral, LabelRegex:
		sb.WriteString(" ")
		sb.WriteString(n.Element.String())
	}
	sb.WriteString("\n")
	for _, c := range n.Children {
		c.write(sb, depth+1)
	}
}

// Walk calls fn for n and its descendants in depth-first order.
func (n *MatchNode) Walk(fn func(*MatchNode)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}
