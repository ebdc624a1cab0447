package pattern

import (
	"math"

	"github.com/gnoswap-labs/gpath/document"
)

// Index maps annotation type and start offset to annotations. An index built
// with NewObservingIndex loads each type from its document on first use and
// reloads the part invalidated by Apply on the next lookup.
type Index struct {
	doc      document.Document
	fallback *Index
	types    map[string]*typeIndex
}

type typeIndex struct {
	// loaded from the document; entries at or after staleFrom must be
	// reloaded before use
	byStart   map[int][]document.Annotation
	staleFrom int
	added     map[int][]document.Annotation
}

// NewIndex returns an index that only knows what is added to it.
func NewIndex(fallback *Index) *Index {
	return &Index{fallback: fallback, types: make(map[string]*typeIndex)}
}

// NewObservingIndex returns an index backed by doc. Callers pass every Edit
// returned by the document's mutation methods to Apply.
func NewObservingIndex(doc document.Document, fallback *Index) *Index {
	idx := NewIndex(fallback)
	idx.doc = doc
	return idx
}

// Add records ann under its type and start offset.
func (x *Index) Add(ann document.Annotation) {
	ti := x.typ(ann.Type())
	ti.added[ann.Start()] = append(ti.added[ann.Start()], ann)
}

// Lookup returns the annotations of typ starting at start, followed by those
// of the fallback index.
func (x *Index) Lookup(typ string, start int) []document.Annotation {
	ti := x.typ(typ)
	if start >= ti.staleFrom {
		x.reload(typ, ti)
	}
	loaded, added := ti.byStart[start], ti.added[start]
	var more []document.Annotation
	if x.fallback != nil {
		more = x.fallback.Lookup(typ, start)
	}
	if len(added) == 0 && len(more) == 0 {
		return loaded
	}
	out := make([]document.Annotation, 0, len(loaded)+len(added)+len(more))
	out = append(out, loaded...)
	out = append(out, added...)
	return append(out, more...)
}

// Apply invalidates the entries an edit may have moved. Token edits affect
// every type; annotation edits only their own type.
func (x *Index) Apply(edit document.Edit) {
	switch edit.Kind {
	case document.EditInsert, document.EditRemove:
		for _, ti := range x.types {
			x.invalidate(ti, edit.Offset)
		}
	case document.EditAnnotate:
		if ti, ok := x.types[edit.Type]; ok {
			x.invalidate(ti, edit.Offset)
		}
	}
}

func (x *Index) invalidate(ti *typeIndex, offset int) {
	dropFrom(ti.added, offset)
	if x.doc != nil && offset < ti.staleFrom {
		ti.staleFrom = offset
	}
}

func (x *Index) typ(typ string) *typeIndex {
	ti, ok := x.types[typ]
	if ok {
		return ti
	}
	ti = &typeIndex{
		byStart:   make(map[int][]document.Annotation),
		staleFrom: math.MaxInt,
		added:     make(map[int][]document.Annotation),
	}
	if x.doc != nil {
		ti.staleFrom = 0
	}
	x.types[typ] = ti
	return ti
}

func (x *Index) reload(typ string, ti *typeIndex) {
	from := ti.staleFrom
	dropFrom(ti.byStart, from)
	for _, ann := range x.doc.Annotations(typ) {
		if ann.Start() >= from {
			ti.byStart[ann.Start()] = append(ti.byStart[ann.Start()], ann)
		}
	}
	ti.staleFrom = math.MaxInt
}

func dropFrom(m map[int][]document.Annotation, offset int) {
	for start := range m {
		if start >= offset {
			delete(m, start)
		}
	}
}
