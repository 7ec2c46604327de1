package openapi

import (
	"errors"
	"slices"
)

// Source identifies where an OpenAPI document originated.
type Source interface {
	Kind() SourceKind
	Location() string
}

// SourceKind enumerates the loader modalities.
type SourceKind string

const (
	SourceKindFile SourceKind = "file"
	SourceKindFS   SourceKind = "fs"
	SourceKindURL  SourceKind = "url"
)

// Document wraps the raw OpenAPI payload and its origin.
type Document struct {
	source Source
	raw    []byte
}

// NewDocument constructs a Document wrapper while validating the inputs.
func NewDocument(src Source, raw []byte) (Document, error) {
	if src == nil {
		return Document{}, errors.New("openapi: source is required")
	}
	if len(raw) == 0 {
		return Document{}, errors.New("openapi: raw document is empty")
	}
	return Document{source: src, raw: slices.Clone(raw)}, nil
}

// MustNewDocument panics if the document cannot be created.
func MustNewDocument(src Source, raw []byte) Document {
	doc, err := NewDocument(src, raw)
	if err != nil {
		panic(err)
	}
	return doc
}

// Source returns the origin metadata for the document.
func (d Document) Source() Source {
	return d.source
}

// Raw returns a copy of the payload.
func (d Document) Raw() []byte {
	return slices.Clone(d.raw)
}

// Location returns the string identifier for the origin.
func (d Document) Location() string {
	if d.source == nil {
		return ""
	}
	return d.source.Location()
}

// Form media types. Operations with any other request body are not forms.
const (
	MediaURLEncoded = "application/x-www-form-urlencoded"
	MediaMultipart  = "multipart/form-data"
)

// Operation is the subset of an OpenAPI operation a form descriptor needs.
type Operation struct {
	ID      string
	Method  string
	Path    string
	Summary string
	// MediaType is the form media type of the request body, empty when the
	// operation takes no form body.
	MediaType string
	Body      Schema
	// Extensions holds the x-* keys of the operation that shape form
	// handling.
	Extensions map[string]any
}

// NewOperation validates core fields.
func NewOperation(id, method, path string) (Operation, error) {
	switch {
	case id == "":
		return Operation{}, errors.New("openapi: operation id is required")
	case method == "":
		return Operation{}, errors.New("openapi: operation method is required")
	case path == "":
		return Operation{}, errors.New("openapi: operation path is required")
	}
	return Operation{ID: id, Method: method, Path: path}, nil
}

// IsForm reports whether the operation posts a form body.
func (op Operation) IsForm() bool {
	return op.MediaType == MediaURLEncoded || op.MediaType == MediaMultipart
}

// Schema is a request body schema or one of its properties.
type Schema struct {
	Type       string
	Format     string
	Required   []string
	Properties map[string]Schema
	Items      *Schema
	Enum       []any
	Default    any
}

// Clone creates a deep copy of the schema tree.
func (s Schema) Clone() Schema {
	cloned := s
	cloned.Required = slices.Clone(s.Required)
	cloned.Enum = slices.Clone(s.Enum)
	if len(s.Properties) > 0 {
		cloned.Properties = make(map[string]Schema, len(s.Properties))
		for k, v := range s.Properties {
			cloned.Properties[k] = v.Clone()
		}
	}
	if s.Items != nil {
		items := s.Items.Clone()
		cloned.Items = &items
	}
	return cloned
}
