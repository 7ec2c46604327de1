// Package parser extracts form operations from OpenAPI documents using
// kin-openapi.
package parser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	pkgopenapi "github.com/goliatone/go-herdform/pkg/openapi"
)

// maxSchemaDepth stops recursive schemas.
const maxSchemaDepth = 8

// Parser implements pkgopenapi.Parser.
type Parser struct {
	options pkgopenapi.ParserOptions
}

var _ pkgopenapi.Parser = (*Parser)(nil)

// New constructs a Parser with the given options.
func New(options pkgopenapi.ParserOptions) *Parser {
	return &Parser{options: options}
}

// Operations converts a Document into operations keyed by operation id.
// Operations without an id get "<method>:<path>".
func (p *Parser) Operations(ctx context.Context, doc pkgopenapi.Document) (map[string]pkgopenapi.Operation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw := doc.Raw()
	if len(raw) == 0 {
		return nil, errors.New("openapi parser: document payload is empty")
	}

	loader := &openapi3.Loader{Context: ctx, IsExternalRefsAllowed: p.options.AllowExternalRefs}
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi parser: load document: %w", err)
	}
	if p.options.Validate {
		if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, fmt.Errorf("openapi parser: validate: %w", err)
		}
	}
	if spec.Paths == nil || spec.Paths.Len() == 0 {
		return nil, errors.New("openapi parser: document does not contain any paths")
	}

	operations := make(map[string]pkgopenapi.Operation)
	for path, item := range spec.Paths.Map() {
		if item == nil {
			continue
		}
		for method, operation := range item.Operations() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			op, err := convertOperation(strings.ToUpper(method), path, operation)
			if err != nil {
				return nil, err
			}
			if _, dup := operations[op.ID]; dup {
				return nil, fmt.Errorf("openapi parser: duplicate operation id %q", op.ID)
			}
			operations[op.ID] = op
		}
	}
	return operations, nil
}

func convertOperation(method, path string, operation *openapi3.Operation) (pkgopenapi.Operation, error) {
	id := operation.OperationID
	if id == "" {
		id = strings.ToLower(method) + ":" + path
	}
	op, err := pkgopenapi.NewOperation(id, method, path)
	if err != nil {
		return pkgopenapi.Operation{}, fmt.Errorf("openapi parser: %s %s: %w", method, path, err)
	}
	op.Summary = operation.Summary
	op.Extensions = formExtensions(operation.Extensions)

	if method == http.MethodGet || method == http.MethodHead {
		return op, nil
	}
	if body := operation.RequestBody; body != nil && body.Value != nil {
		for _, media := range []string{pkgopenapi.MediaURLEncoded, pkgopenapi.MediaMultipart} {
			if mt, ok := body.Value.Content[media]; ok && mt != nil {
				op.MediaType = media
				op.Body = convertSchema(mt.Schema, 0)
				break
			}
		}
	}
	return op, nil
}

func convertSchema(ref *openapi3.SchemaRef, depth int) pkgopenapi.Schema {
	if ref == nil || ref.Value == nil || depth > maxSchemaDepth {
		return pkgopenapi.Schema{}
	}
	src := ref.Value
	schema := pkgopenapi.Schema{
		Type:    firstSchemaType(src.Type),
		Format:  src.Format,
		Default: src.Default,
	}
	if len(src.Required) > 0 {
		schema.Required = append([]string(nil), src.Required...)
	}
	if len(src.Enum) > 0 {
		schema.Enum = append([]any(nil), src.Enum...)
	}
	if len(src.Properties) > 0 {
		schema.Properties = make(map[string]pkgopenapi.Schema, len(src.Properties))
		for name, property := range src.Properties {
			schema.Properties[name] = convertSchema(property, depth+1)
		}
	}
	if src.Items != nil {
		items := convertSchema(src.Items, depth+1)
		schema.Items = &items
	}
	for _, part := range src.AllOf {
		mergeSchema(&schema, convertSchema(part, depth+1))
	}
	return schema
}

// mergeSchema folds an allOf member into target; target wins on conflicts.
func mergeSchema(target *pkgopenapi.Schema, part pkgopenapi.Schema) {
	if target.Type == "" {
		target.Type = part.Type
	}
	if len(part.Properties) > 0 && target.Properties == nil {
		target.Properties = make(map[string]pkgopenapi.Schema, len(part.Properties))
	}
	for name, prop := range part.Properties {
		if _, exists := target.Properties[name]; !exists {
			target.Properties[name] = prop
		}
	}
	target.Required = append(target.Required, part.Required...)
}

func firstSchemaType(types *openapi3.Types) string {
	if types == nil {
		return ""
	}
	values := types.Slice()
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func formExtensions(raw map[string]any) map[string]any {
	keys := []string{
		pkgopenapi.ExtStatusElement,
		pkgopenapi.ExtOneShot,
		pkgopenapi.ExtNonJSON,
		pkgopenapi.ExtRefresh,
	}
	var out map[string]any
	for _, key := range keys {
		value, ok := raw[key]
		if !ok {
			continue
		}
		if out == nil {
			out = make(map[string]any, len(keys))
		}
		out[key] = value
	}
	return out
}
