package document

// DocumentType is the type reported by the root annotation of every document.
const DocumentType = "document"

// Annotation is a typed, attributed span over the token sequence of a document.
// Start is inclusive and End is exclusive, both measured in tokens.
type Annotation interface {
	ID() string
	Type() string
	Start() int
	End() int
	Attribute(name string) (string, bool)
	AttributeNames() []string
}

// Token is a single token with the whitespace that follows it.
type Token struct {
	Value string
	Space string
}

// Document is the read-only model the query and pattern engines work on.
// The document is itself an annotation of type DocumentType covering all tokens.
type Document interface {
	Annotation

	// Size returns the number of tokens.
	Size() int
	TokenAt(i int) Token
	ValueAt(i int) string

	// Annotations returns the annotations of the given types (all types when
	// none are given) in nesting order, excluding the document root.
	Annotations(types ...string) []Annotation

	// Compare orders annotations by nesting: earlier start first, then longer
	// span first, then the annotation added first is the outer one.
	Compare(a, b Annotation) int

	Tokenizer() Tokenizer
}

// Revisioned is implemented by documents that can change. The revision is
// bumped by every mutation so derived caches can detect stale entries.
type Revisioned interface {
	Revision() uint64
}

// EditKind tells what a mutation did to the token sequence.
type EditKind int

const (
	EditInsert EditKind = iota
	EditRemove
	EditAnnotate
	EditAttribute
)

func (k EditKind) String() string {
	switch k {
	case EditInsert:
		return "insert"
	case EditRemove:
		return "remove"
	case EditAnnotate:
		return "annotate"
	case EditAttribute:
		return "attribute"
	default:
		return "unknown"
	}
}

// Edit describes a single document mutation. It is returned by the mutation
// API and handed to anything that caches offsets, such as a pattern index.
type Edit struct {
	Kind   EditKind
	Offset int
	Length int
	Type   string // annotation type, for annotate and attribute edits
}

// Value joins the tokens in [start, end) keeping the original spacing.
func Value(doc Document, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > doc.Size() {
		end = doc.Size()
	}
	var out []byte
	for i := start; i < end; i++ {
		tok := doc.TokenAt(i)
		out = append(out, tok.Value...)
		if i+1 < end {
			out = append(out, tok.Space...)
		}
	}
	return string(out)
}

// Contains reports whether outer covers the whole span of inner.
func Contains(outer, inner Annotation) bool {
	return outer.Start() <= inner.Start() && inner.End() <= outer.End()
}
