package document

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Span is an annotation owned by a Doc.
type Span struct {
	id    string
	typ   string
	start int
	end   int
	attrs map[string]string
	names []string
	seq   int
}

var _ Annotation = (*Span)(nil)

func (s *Span) ID() string   { return s.id }
func (s *Span) Type() string { return s.typ }
func (s *Span) Start() int   { return s.start }
func (s *Span) End() int     { return s.end }

func (s *Span) Attribute(name string) (string, bool) {
	v, ok := s.attrs[name]
	return v, ok
}

// AttributeNames returns the attribute names in the order they were first set.
func (s *Span) AttributeNames() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s *Span) setAttribute(name, value string) {
	if s.attrs == nil {
		s.attrs = make(map[string]string)
	}
	if _, ok := s.attrs[name]; !ok {
		s.names = append(s.names, name)
	}
	s.attrs[name] = value
}

func (s *Span) String() string {
	return fmt.Sprintf("%s[%d,%d)", s.typ, s.start, s.end)
}

// Doc is an in-memory annotated document. It is not safe for concurrent
// mutation; readers must not run while a mutation is in progress.
type Doc struct {
	root      Span
	tokens    []Token
	spans     []*Span
	tokenizer Tokenizer
	seq       int
	revision  uint64
	sorted    bool
}

var (
	_ Document   = (*Doc)(nil)
	_ Revisioned = (*Doc)(nil)
)

// Option configures a Doc.
type Option func(*Doc)

// WithTokenizer replaces the default tokenizer.
func WithTokenizer(t Tokenizer) Option {
	return func(d *Doc) { d.tokenizer = t }
}

// New tokenizes text into a fresh document.
func New(text string, opts ...Option) *Doc {
	d := newDoc(opts...)
	d.tokens = d.tokenizer.Tokenize(text)
	d.root.end = len(d.tokens)
	return d
}

// FromTokens builds a document from pre-split token values separated by single spaces.
func FromTokens(values []string, opts ...Option) *Doc {
	d := newDoc(opts...)
	d.tokens = make([]Token, len(values))
	for i, v := range values {
		d.tokens[i] = Token{Value: v, Space: " "}
	}
	if n := len(d.tokens); n > 0 {
		d.tokens[n-1].Space = ""
	}
	d.root.end = len(d.tokens)
	return d
}

func newDoc(opts ...Option) *Doc {
	d := &Doc{
		root:      Span{id: uuid.NewString(), typ: DocumentType},
		tokenizer: DefaultTokenizer{},
		sorted:    true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Doc) ID() string                           { return d.root.id }
func (d *Doc) Type() string                         { return DocumentType }
func (d *Doc) Start() int                           { return 0 }
func (d *Doc) End() int                             { return len(d.tokens) }
func (d *Doc) Attribute(name string) (string, bool) { return d.root.Attribute(name) }
func (d *Doc) AttributeNames() []string             { return d.root.AttributeNames() }
func (d *Doc) Size() int                            { return len(d.tokens) }
func (d *Doc) TokenAt(i int) Token                  { return d.tokens[i] }
func (d *Doc) ValueAt(i int) string                 { return d.tokens[i].Value }
func (d *Doc) Tokenizer() Tokenizer                 { return d.tokenizer }
func (d *Doc) Revision() uint64                     { return d.revision }

// Text returns the full document text.
func (d *Doc) Text() string {
	return Value(d, 0, len(d.tokens))
}

func (d *Doc) Annotations(types ...string) []Annotation {
	d.sort()
	var filter map[string]bool
	if len(types) > 0 {
		filter = make(map[string]bool, len(types))
		for _, t := range types {
			filter[t] = true
		}
	}
	out := make([]Annotation, 0, len(d.spans))
	for _, s := range d.spans {
		if filter == nil || filter[s.typ] {
			out = append(out, s)
		}
	}
	return out
}

func (d *Doc) Compare(a, b Annotation) int {
	if a.Start() != b.Start() {
		return a.Start() - b.Start()
	}
	if a.End() != b.End() {
		return b.End() - a.End()
	}
	return d.order(a) - d.order(b)
}

// order places the root before everything and foreign annotations last.
func (d *Doc) order(a Annotation) int {
	switch s := a.(type) {
	case *Doc:
		return -1
	case *Span:
		return s.seq
	default:
		return int(^uint(0) >> 1)
	}
}

func (d *Doc) sort() {
	if d.sorted {
		return
	}
	sort.SliceStable(d.spans, func(i, j int) bool {
		return d.Compare(d.spans[i], d.spans[j]) < 0
	})
	d.sorted = true
}

// Annotate adds an annotation of the given type over [start, end).
func (d *Doc) Annotate(typ string, start, end int, attrs map[string]string) (*Span, Edit, error) {
	if typ == "" {
		return nil, Edit{}, fmt.Errorf("annotation type must not be empty")
	}
	if start < 0 || end > len(d.tokens) || start >= end {
		return nil, Edit{}, fmt.Errorf("invalid span [%d,%d) for %d tokens", start, end, len(d.tokens))
	}
	d.seq++
	s := &Span{id: uuid.NewString(), typ: typ, start: start, end: end, seq: d.seq}
	names := make([]string, 0, len(attrs))
	for k := range attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		s.setAttribute(k, attrs[k])
	}
	d.spans = append(d.spans, s)
	d.sorted = false
	d.revision++
	return s, Edit{Kind: EditAnnotate, Offset: start, Length: end - start, Type: typ}, nil
}

// SetAttribute sets an attribute on a span of this document or on the root.
func (d *Doc) SetAttribute(a Annotation, name, value string) (Edit, error) {
	switch s := a.(type) {
	case *Doc:
		if s != d {
			return Edit{}, fmt.Errorf("annotation belongs to another document")
		}
		d.root.setAttribute(name, value)
	case *Span:
		if !d.owns(s) {
			return Edit{}, fmt.Errorf("annotation %s belongs to another document", s.id)
		}
		s.setAttribute(name, value)
	default:
		return Edit{}, fmt.Errorf("unsupported annotation %T", a)
	}
	d.revision++
	return Edit{Kind: EditAttribute, Offset: a.Start(), Length: a.End() - a.Start(), Type: a.Type()}, nil
}

// RemoveAnnotation drops an annotation. It reports false if it was not found.
func (d *Doc) RemoveAnnotation(a Annotation) (Edit, bool) {
	for i, s := range d.spans {
		if s.id == a.ID() {
			d.spans = append(d.spans[:i], d.spans[i+1:]...)
			d.revision++
			return Edit{Kind: EditAnnotate, Offset: s.start, Length: s.end - s.start, Type: s.typ}, true
		}
	}
	return Edit{}, false
}

// InsertTokens inserts tokens at offset. Annotations starting at or after the
// offset move right; annotations spanning the offset grow.
func (d *Doc) InsertTokens(offset int, values ...string) (Edit, error) {
	if offset < 0 || offset > len(d.tokens) {
		return Edit{}, fmt.Errorf("offset %d out of range [0,%d]", offset, len(d.tokens))
	}
	n := len(values)
	if n == 0 {
		return Edit{Kind: EditInsert, Offset: offset}, nil
	}
	inserted := make([]Token, n)
	for i, v := range values {
		inserted[i] = Token{Value: v, Space: " "}
	}
	if offset == len(d.tokens) {
		if offset > 0 && d.tokens[offset-1].Space == "" {
			d.tokens[offset-1].Space = " "
		}
		inserted[n-1].Space = ""
	}
	tail := append(inserted, d.tokens[offset:]...)
	d.tokens = append(d.tokens[:offset:offset], tail...)

	for _, s := range d.spans {
		switch {
		case s.start >= offset:
			s.start += n
			s.end += n
		case s.end > offset:
			s.end += n
		}
	}
	d.root.end = len(d.tokens)
	d.sorted = false
	d.revision++
	return Edit{Kind: EditInsert, Offset: offset, Length: n}, nil
}

// RemoveTokens deletes the tokens in [start, end). Annotations left without
// tokens are removed, the others shrink or move left.
func (d *Doc) RemoveTokens(start, end int) (Edit, error) {
	if start < 0 || end > len(d.tokens) || start > end {
		return Edit{}, fmt.Errorf("invalid range [%d,%d) for %d tokens", start, end, len(d.tokens))
	}
	n := end - start
	if n == 0 {
		return Edit{Kind: EditRemove, Offset: start}, nil
	}
	d.tokens = append(d.tokens[:start], d.tokens[end:]...)

	kept := d.spans[:0]
	for _, s := range d.spans {
		s.start = shrink(s.start, start, end)
		s.end = shrink(s.end, start, end)
		if s.start < s.end {
			kept = append(kept, s)
		}
	}
	d.spans = kept
	d.root.end = len(d.tokens)
	d.sorted = false
	d.revision++
	return Edit{Kind: EditRemove, Offset: start, Length: n}, nil
}

func shrink(pos, start, end int) int {
	switch {
	case pos <= start:
		return pos
	case pos >= end:
		return pos - (end - start)
	default:
		return start
	}
}

func (d *Doc) owns(s *Span) bool {
	for _, own := range d.spans {
		if own == s {
			return true
		}
	}
	return false
}
