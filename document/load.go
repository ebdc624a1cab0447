package document

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk form of a document. JSON documents decode through the
// same YAML decoder.
type File struct {
	Text        string            `yaml:"text,omitempty"`
	Tokens      []string          `yaml:"tokens,omitempty"`
	Attributes  map[string]string `yaml:"attributes,omitempty"`
	Annotations []AnnotationFile  `yaml:"annotations,omitempty"`
}

// AnnotationFile is the on-disk form of one annotation.
type AnnotationFile struct {
	Type       string            `yaml:"type"`
	Start      int               `yaml:"start"`
	End        int               `yaml:"end"`
	Attributes map[string]string `yaml:"attributes,omitempty"`
}

// Load reads a YAML or JSON document file.
func Load(path string) (*Doc, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return doc, nil
}

// Decode reads a document from r.
func Decode(r io.Reader, opts ...Option) (*Doc, error) {
	var file File
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return nil, err
	}
	return file.Build(opts...)
}

// Build creates the document described by the file.
func (f File) Build(opts ...Option) (*Doc, error) {
	if f.Text != "" && len(f.Tokens) > 0 {
		return nil, fmt.Errorf("text and tokens are mutually exclusive")
	}

	var doc *Doc
	if len(f.Tokens) > 0 {
		doc = FromTokens(f.Tokens, opts...)
	} else {
		doc = New(f.Text, opts...)
	}
	for k, v := range f.Attributes {
		if _, err := doc.SetAttribute(doc, k, v); err != nil {
			return nil, err
		}
	}
	for i, a := range f.Annotations {
		if _, _, err := doc.Annotate(a.Type, a.Start, a.End, a.Attributes); err != nil {
			return nil, fmt.Errorf("annotation %d: %w", i, err)
		}
	}
	return doc, nil
}

// Encode writes the document in its on-disk form.
func Encode(w io.Writer, doc Document) error {
	file := File{Tokens: make([]string, doc.Size())}
	for i := range file.Tokens {
		file.Tokens[i] = doc.ValueAt(i)
	}
	if names := doc.AttributeNames(); len(names) > 0 {
		file.Attributes = make(map[string]string, len(names))
		for _, n := range names {
			file.Attributes[n], _ = doc.Attribute(n)
		}
	}
	for _, a := range doc.Annotations() {
		af := AnnotationFile{Type: a.Type(), Start: a.Start(), End: a.End()}
		if names := a.AttributeNames(); len(names) > 0 {
			af.Attributes = make(map[string]string, len(names))
			for _, n := range names {
				af.Attributes[n], _ = a.Attribute(n)
			}
		}
		file.Annotations = append(file.Annotations, af)
	}

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(file)
}
