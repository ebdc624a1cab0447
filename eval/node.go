package eval

import (
	"sort"
	"strconv"

	"github.com/gnoswap-labs/gpath/document"
)

type nodeKind int

const (
	kindAnnotation nodeKind = iota
	kindAttribute
	kindToken
	kindSuperRoot
)

// Node is the view of an annotation the evaluator navigates. Besides real
// document annotations it represents attributes and tokens as annotations,
// and the virtual node above the document root that absolute paths start at.
type Node struct {
	kind  nodeKind
	ann   document.Annotation // the annotation itself, or the owner of an attribute
	owner *Node               // for attribute and token nodes
	name  string              // attribute name
	value string              // attribute or token value
	index int                 // token index

	tokens []document.Token // re-tokenized attribute value
	dc     *docContext
}

var _ document.Annotation = (*Node)(nil)

func (n *Node) ID() string {
	switch n.kind {
	case kindAttribute:
		return n.owner.ID() + "@" + n.name
	case kindToken:
		if n.owner.kind == kindAttribute {
			return n.owner.ID() + "#" + strconv.Itoa(n.index)
		}
		return n.dc.doc.ID() + "#" + strconv.Itoa(n.index)
	case kindSuperRoot:
		return "/"
	default:
		return n.ann.ID()
	}
}

// Type is the annotation type, the attribute name for attribute nodes, and
// "token" for token nodes.
func (n *Node) Type() string {
	switch n.kind {
	case kindAttribute:
		return n.name
	case kindToken:
		return "token"
	case kindSuperRoot:
		return ""
	default:
		return n.ann.Type()
	}
}

func (n *Node) Start() int {
	switch n.kind {
	case kindAttribute:
		return n.owner.Start()
	case kindToken:
		if n.owner.kind == kindAttribute {
			return n.owner.Start()
		}
		return n.index
	case kindSuperRoot:
		return 0
	default:
		return n.ann.Start()
	}
}

func (n *Node) End() int {
	switch n.kind {
	case kindAttribute:
		return n.owner.End()
	case kindToken:
		if n.owner.kind == kindAttribute {
			return n.owner.End()
		}
		return n.index + 1
	case kindSuperRoot:
		return n.dc.doc.End()
	default:
		return n.ann.End()
	}
}

func (n *Node) Attribute(name string) (string, bool) {
	if n.kind != kindAnnotation {
		return "", false
	}
	return n.ann.Attribute(name)
}

func (n *Node) AttributeNames() []string {
	if n.kind != kindAnnotation {
		return nil
	}
	return n.ann.AttributeNames()
}

// Value is the string value of the node: the covered text for annotations,
// the value for attributes and tokens.
func (n *Node) Value() string {
	switch n.kind {
	case kindAttribute, kindToken:
		return n.value
	default:
		return document.Value(n.dc.doc, n.Start(), n.End())
	}
}

// Unwrap returns the document's own annotation for real annotations and the
// node itself otherwise.
func (n *Node) Unwrap() document.Annotation {
	if n.kind == kindAnnotation {
		return n.ann
	}
	return n
}

// IsPseudo reports whether the node stands for an attribute or a token.
func (n *Node) IsPseudo() bool {
	return n.kind == kindAttribute || n.kind == kindToken
}

func (n *Node) isRoot() bool {
	return n.kind == kindAnnotation && n.ann.ID() == n.dc.doc.ID()
}

func (n *Node) String() string {
	return n.Type() + "[" + strconv.Itoa(n.Start()) + "," + strconv.Itoa(n.End()) + ")"
}

// docContext wraps every annotation of one document revision once and keeps
// the derived structure the axes need.
type docContext struct {
	doc       document.Document
	tokenizer document.Tokenizer
	root      *Node
	super     *Node
	nodes     []*Node // document order, root excluded
	byID      map[string]int
	parents   []*Node // lazily computed, parallel to nodes
}

func newDocContext(doc document.Document) *docContext {
	dc := &docContext{
		doc:       doc,
		tokenizer: doc.Tokenizer(),
	}
	if dc.tokenizer == nil {
		dc.tokenizer = document.DefaultTokenizer{}
	}
	dc.root = &Node{kind: kindAnnotation, ann: doc, dc: dc}
	dc.super = &Node{kind: kindSuperRoot, dc: dc}

	anns := doc.Annotations()
	dc.nodes = make([]*Node, len(anns))
	dc.byID = make(map[string]int, len(anns))
	for i, a := range anns {
		dc.nodes[i] = &Node{kind: kindAnnotation, ann: a, dc: dc}
		dc.byID[a.ID()] = i
	}
	return dc
}

// nodeFor returns the node wrapping a. Annotations that are not part of the
// document are wrapped on the fly.
func (dc *docContext) nodeFor(a document.Annotation) *Node {
	if n, ok := a.(*Node); ok {
		return n
	}
	if a.ID() == dc.doc.ID() {
		return dc.root
	}
	if i, ok := dc.byID[a.ID()]; ok {
		return dc.nodes[i]
	}
	return &Node{kind: kindAnnotation, ann: a, dc: dc}
}

func (dc *docContext) position(n *Node) (int, bool) {
	if n.kind != kindAnnotation || n.isRoot() {
		return -1, false
	}
	i, ok := dc.byID[n.ann.ID()]
	return i, ok
}

// contained returns the annotations nested in n, excluding n, in document
// order. An annotation with the same span nests inside the one added first.
func (dc *docContext) contained(n *Node) []*Node {
	switch {
	case n.kind == kindSuperRoot:
		out := make([]*Node, 0, len(dc.nodes)+1)
		out = append(out, dc.root)
		return append(out, dc.nodes...)
	case n.isRoot():
		return dc.nodes
	case n.IsPseudo():
		return nil
	}

	i, ok := dc.position(n)
	if !ok {
		var out []*Node
		for _, c := range dc.nodes {
			if document.Contains(n, c) && (c.Start() != n.Start() || c.End() != n.End()) {
				out = append(out, c)
			}
		}
		return out
	}

	var out []*Node
	for j := i + 1; j < len(dc.nodes) && dc.nodes[j].Start() < n.End(); j++ {
		if document.Contains(n, dc.nodes[j]) {
			out = append(out, dc.nodes[j])
		}
	}
	return out
}

// parent returns the innermost annotation n nests in. The root and the
// super-root are their own parents.
func (dc *docContext) parent(n *Node) *Node {
	switch {
	case n.kind == kindSuperRoot:
		return n
	case n.IsPseudo():
		return n.owner
	case n.isRoot():
		return n
	}
	if dc.parents == nil {
		dc.computeParents()
	}
	if i, ok := dc.position(n); ok {
		return dc.parents[i]
	}

	parent := dc.root
	for _, c := range dc.nodes {
		if c.Start() > n.Start() {
			break
		}
		if document.Contains(c, n) && (c.Start() != n.Start() || c.End() != n.End()) {
			parent = c
		}
	}
	return parent
}

func (dc *docContext) computeParents() {
	dc.parents = make([]*Node, len(dc.nodes))
	var stack []*Node
	for i, n := range dc.nodes {
		for len(stack) > 0 && !document.Contains(stack[len(stack)-1], n) {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			dc.parents[i] = dc.root
		} else {
			dc.parents[i] = stack[len(stack)-1]
		}
		stack = append(stack, n)
	}
}

func (dc *docContext) attributes(n *Node) []*Node {
	if n.kind != kindAnnotation {
		return nil
	}
	names := n.ann.AttributeNames()
	out := make([]*Node, 0, len(names))
	for _, name := range names {
		v, _ := n.ann.Attribute(name)
		out = append(out, &Node{
			kind:   kindAttribute,
			ann:    n.ann,
			owner:  n,
			name:   name,
			value:  v,
			tokens: dc.tokenizer.Tokenize(v),
			dc:     dc,
		})
	}
	return out
}

// tokens returns one node per token covered by n. Attribute nodes expose
// the tokens of their value.
func (dc *docContext) tokens(n *Node) []*Node {
	switch n.kind {
	case kindSuperRoot:
		return dc.tokens(dc.root)
	case kindToken:
		return []*Node{n}
	case kindAttribute:
		out := make([]*Node, len(n.tokens))
		for i, t := range n.tokens {
			out[i] = &Node{kind: kindToken, owner: n, index: i, value: t.Value, dc: dc}
		}
		return out
	}
	start, end := n.Start(), n.End()
	if end > dc.doc.Size() {
		end = dc.doc.Size()
	}
	out := make([]*Node, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, &Node{kind: kindToken, owner: n, index: i, value: dc.doc.ValueAt(i), dc: dc})
	}
	return out
}

// compare orders nodes in document order.
func (dc *docContext) compare(a, b *Node) int {
	if a == b {
		return 0
	}
	if a.kind == kindSuperRoot || b.kind == kindSuperRoot {
		if a.kind == kindSuperRoot {
			return -1
		}
		return 1
	}
	if a.kind == kindAnnotation && b.kind == kindAnnotation {
		return dc.doc.Compare(a.ann, b.ann)
	}
	if a.Start() != b.Start() {
		return a.Start() - b.Start()
	}
	if a.End() != b.End() {
		return b.End() - a.End()
	}
	if a.kind != b.kind {
		return int(a.kind) - int(b.kind)
	}
	switch a.kind {
	case kindAttribute:
		if c := dc.compare(a.owner, b.owner); c != 0 {
			return c
		}
		if a.name < b.name {
			return -1
		}
		if a.name > b.name {
			return 1
		}
	case kindToken:
		if a.owner.kind == kindAttribute && b.owner.kind == kindAttribute {
			if c := dc.compare(a.owner, b.owner); c != 0 {
				return c
			}
		}
		return a.index - b.index
	}
	return 0
}

// merge unions node lists, drops duplicate IDs and sorts in document order.
func (dc *docContext) merge(lists ...[]*Node) []*Node {
	seen := make(map[string]bool)
	var out []*Node
	for _, list := range lists {
		for _, n := range list {
			id := n.ID()
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return dc.compare(out[i], out[j]) < 0
	})
	return out
}
