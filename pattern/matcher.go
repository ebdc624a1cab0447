package pattern

import (
	"regexp"
	"regexp/syntax"
	"sort"

	"go.uber.org/zap"

	"github.com/gnoswap-labs/gpath/document"
	"github.com/gnoswap-labs/gpath/eval"
)

// Options configure a Matcher.
type Options struct {
	// Evaluator runs annotation tests; a private one is used when nil.
	Evaluator *eval.Evaluator
	Variables eval.VariableResolver
	Logger    *zap.Logger
}

// Matcher finds every span of a document a pattern matches.
type Matcher struct {
	eval   *eval.Evaluator
	vars   eval.VariableResolver
	logger *zap.Logger
}

func NewMatcher(opts Options) *Matcher {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ev := opts.Evaluator
	if ev == nil {
		ev = eval.New(eval.Options{Logger: logger})
	}
	return &Matcher{eval: ev, vars: opts.Variables, logger: logger}
}

// Match returns one tree per distinct span that some walk of p over doc
// consumes, ordered by start and then by descending end. A nil index is
// replaced by one observing doc.
func (m *Matcher) Match(doc document.Document, index *Index, p *Pattern) ([]*MatchTree, error) {
	if index == nil {
		index = NewObservingIndex(doc, nil)
	}
	r := &run{
		m:          m,
		doc:        doc,
		index:      index,
		literals:   make(map[string][]string),
		regexEnds:  make(map[string]map[int]int),
		candidates: make(map[candidateKey][]document.Annotation),
		found:      make(map[[2]int]*MatchTree),
	}
	r.prescan(p.Root)

	for start := 0; start < doc.Size() && r.err == nil; start++ {
		r.repeat(p.Root, 0, start, nil, func(end int, nodes []*MatchNode) {
			if end == start {
				return
			}
			key := [2]int{start, end}
			if _, ok := r.found[key]; ok {
				return
			}
			r.found[key] = &MatchTree{
				Start: start,
				End:   end,
				Root:  &MatchNode{Label: LabelMatch, Element: p.Root, Start: start, End: end, Children: nodes},
			}
		})
	}
	if r.err != nil {
		return nil, r.err
	}

	trees := make([]*MatchTree, 0, len(r.found))
	for _, t := range r.found {
		trees = append(trees, t)
	}
	sort.Slice(trees, func(i, j int) bool {
		if trees[i].Start != trees[j].Start {
			return trees[i].Start < trees[j].Start
		}
		return trees[i].End > trees[j].End
	})
	m.logger.Debug("pattern matched",
		zap.String("pattern", p.String()),
		zap.Int("matches", len(trees)))
	return trees, nil
}

type candidateKey struct {
	el  *AnnotationMatcher
	pos int
}

// run holds the state of a single Match call.
type run struct {
	m     *Matcher
	doc   document.Document
	index *Index

	literals   map[string][]string
	regexEnds  map[string]map[int]int
	candidates map[candidateKey][]document.Annotation
	found      map[[2]int]*MatchTree
	err        error
}

type (
	// cont receives the position after a run of elements and their nodes.
	cont func(end int, nodes []*MatchNode)
	// nodeCont receives the position after one element and its node.
	nodeCont func(end int, node *MatchNode)
)

func appendNode(nodes []*MatchNode, n *MatchNode) []*MatchNode {
	return append(nodes[:len(nodes):len(nodes)], n)
}

// repeat matches el repeatedly from pos. Stopping is tried before another
// repetition, so shorter runs are found first.
func (r *run) repeat(el Element, count, pos int, acc []*MatchNode, k cont) {
	if r.err != nil {
		return
	}
	q := el.Quantifier()
	if count >= q.Min {
		k(pos, acc)
	}
	if q.Max != Unbounded && count >= q.Max {
		return
	}
	r.one(el, pos, func(end int, node *MatchNode) {
		// a zero width repetition past the minimum would loop forever
		if end == pos && count >= q.Min {
			return
		}
		r.repeat(el, count+1, end, appendNode(acc, node), k)
	})
}

func (r *run) seq(elems []Element, i, pos int, acc []*MatchNode, k cont) {
	if i == len(elems) {
		k(pos, acc)
		return
	}
	r.repeat(elems[i], 0, pos, acc, func(end int, nodes []*MatchNode) {
		r.seq(elems, i+1, end, nodes, k)
	})
}

func (r *run) one(el Element, pos int, k nodeCont) {
	if r.err != nil {
		return
	}
	switch e := el.(type) {
	case *TokenLiteral:
		toks := r.literal(e.Text)
		if pos+len(toks) > r.doc.Size() {
			return
		}
		for i, t := range toks {
			if r.doc.ValueAt(pos+i) != t {
				return
			}
		}
		end := pos + len(toks)
		k(end, &MatchNode{Label: LabelLiteral, Element: e, Start: pos, End: end})

	case *RegexLiteral:
		end, ok := r.regexEnds[e.Source][pos]
		if !ok {
			return
		}
		k(end, &MatchNode{Label: LabelRegex, Element: e, Start: pos, End: end})

	case *AnnotationMatcher:
		for _, ann := range r.annotations(e, pos) {
			k(ann.End(), &MatchNode{Label: e.Type, Element: e, Start: pos, End: ann.End(), Annotation: ann})
			if r.err != nil {
				return
			}
		}

	case *Sequence:
		r.seq(e.Elements, 0, pos, nil, func(end int, nodes []*MatchNode) {
			k(end, &MatchNode{Label: LabelSequence, Element: e, Start: pos, End: end, Children: nodes})
		})

	case *Alternation:
		for _, alt := range e.Alternatives {
			r.repeat(alt, 0, pos, nil, func(end int, nodes []*MatchNode) {
				k(end, &MatchNode{Label: LabelAlternative, Element: e, Start: pos, End: end, Children: nodes})
			})
			if r.err != nil {
				return
			}
		}
	}
}

func (r *run) literal(text string) []string {
	if toks, ok := r.literals[text]; ok {
		return toks
	}
	toks := document.Values(r.doc.Tokenizer().Tokenize(text))
	r.literals[text] = toks
	return toks
}

// annotations returns the candidates of e starting at pos that carry the
// required attribute values and pass the test, one per distinct end.
func (r *run) annotations(e *AnnotationMatcher, pos int) []document.Annotation {
	key := candidateKey{el: e, pos: pos}
	if anns, ok := r.candidates[key]; ok {
		return anns
	}

	var out []document.Annotation
	ends := make(map[int]bool)
	for _, ann := range r.index.Lookup(e.Type, pos) {
		if ends[ann.End()] || !hasAttrs(ann, e.Attrs) {
			continue
		}
		if e.Test != nil {
			ok, err := r.m.eval.Bool(e.Test, r.doc, ann, r.m.vars)
			if err != nil {
				r.err = err
				return nil
			}
			if !ok {
				continue
			}
		}
		ends[ann.End()] = true
		out = append(out, ann)
	}
	r.candidates[key] = out
	return out
}

func hasAttrs(ann document.Annotation, attrs []Attr) bool {
	for _, a := range attrs {
		if v, ok := ann.Attribute(a.Name); !ok || v != a.Value {
			return false
		}
	}
	return true
}

// prescan computes, once per distinct regex literal, the longest run of whole
// tokens matched from every start offset.
func (r *run) prescan(el Element) {
	switch e := el.(type) {
	case *RegexLiteral:
		if _, ok := r.regexEnds[e.Source]; !ok {
			r.regexEnds[e.Source] = r.scanRegex(e)
		}
	case *Sequence:
		for _, c := range e.Elements {
			r.prescan(c)
		}
	case *Alternation:
		for _, c := range e.Alternatives {
			r.prescan(c)
		}
	}
}

func (r *run) scanRegex(e *RegexLiteral) map[int]int {
	ends := make(map[int]int)
	n := r.doc.Size()
	if n == 0 {
		return ends
	}

	// byte offsets of every token inside the joined text
	text := document.Value(r.doc, 0, n)
	starts := make([]int, n)
	stops := make([]int, n)
	off := 0
	for i := 0; i < n; i++ {
		tok := r.doc.TokenAt(i)
		starts[i] = off
		off += len(tok.Value)
		stops[i] = off
		off += len(tok.Space)
	}

	whole := regexp.MustCompile(`\A(?:` + e.Source + `)\z`)
	var prefix *regexp.Regexp
	if !hasTrailingAssertion(e.Source) {
		prefix = regexp.MustCompile(`\A(?:` + e.Source + `)`)
		prefix.Longest()
	}

	for s := 0; s < n; s++ {
		limit := len(text)
		if prefix != nil {
			loc := prefix.FindStringIndex(text[starts[s]:])
			if loc == nil || loc[1] == 0 {
				continue
			}
			limit = starts[s] + loc[1]
		}
		for end := n; end > s; end-- {
			if stops[end-1] > limit {
				continue
			}
			if whole.MatchString(text[starts[s]:stops[end-1]]) {
				ends[s] = end
				break
			}
		}
	}
	return ends
}

// hasTrailingAssertion reports whether src holds an end-of-text or a word
// boundary assertion. Such a regex can match a run of tokens without
// matching a prefix of the rest of the text.
func hasTrailingAssertion(src string) bool {
	re, err := syntax.Parse(src, syntax.Perl)
	if err != nil {
		return true
	}
	var walk func(*syntax.Regexp) bool
	walk = func(re *syntax.Regexp) bool {
		switch re.Op {
		case syntax.OpEndText, syntax.OpEndLine, syntax.OpWordBoundary, syntax.OpNoWordBoundary:
			return true
		}
		for _, sub := range re.Sub {
			if walk(sub) {
				return true
			}
		}
		return false
	}
	return walk(re)
}
