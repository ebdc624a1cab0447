package formatter

import (
	"strings"

	"github.com/gnoswap-labs/gpath/document"
	"github.com/gnoswap-labs/gpath/pattern"
)

// FormatMatchTree renders tree one node per line with the text each node
// covers. doc must be the document the tree was matched against.
func FormatMatchTree(tree *pattern.MatchTree, doc document.Document) string {
	var sb strings.Builder
	writeNode(&sb, tree.Root, doc, 0)
	return sb.String()
}

func writeNode(sb *strings.Builder, n *pattern.MatchNode, doc document.Document, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(ruleStyle.Sprint(n.Label))
	if n.Label == pattern.LabelLiteral || n.Label == pattern.LabelRegex {
		sb.WriteString(" " + suggestionStyle.Sprint(n.Element.String()))
	}
	sb.WriteString(lineStyle.Sprintf(" [%d,%d)", n.Start, n.End))
	if n.End > n.Start {
		sb.WriteString(" " + noStyle.Sprint(document.Value(doc, n.Start, n.End)))
	}
	sb.WriteString("\n")
	for _, c := range n.Children {
		writeNode(sb, c, doc, depth+1)
	}
}

// FormatMatches renders every tree under a header naming its span.
func FormatMatches(filename string, trees []*pattern.MatchTree, doc document.Document) string {
	var sb strings.Builder
	for _, t := range trees {
		sb.WriteString(fileStyle.Sprintf("%s:[%d,%d)", filename, t.Start, t.End))
		sb.WriteString("\n")
		sb.WriteString(FormatMatchTree(t, doc))
		sb.WriteString("\n")
	}
	return sb.String()
}
