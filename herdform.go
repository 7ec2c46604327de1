// Package herdform wires the form, list and rendering packages for callers
// that want the defaults.
package herdform

import (
	"context"
	"fmt"

	internalLoader "github.com/goliatone/go-herdform/internal/openapi/loader"
	internalParser "github.com/goliatone/go-herdform/internal/openapi/parser"
	pkgopenapi "github.com/goliatone/go-herdform/pkg/openapi"
	"github.com/goliatone/go-herdform/pkg/page"
)

// NewLoader constructs a loader using the internal implementation while keeping
// the concrete type hidden from consumers.
func NewLoader(options ...pkgopenapi.LoaderOption) pkgopenapi.Loader {
	return internalLoader.New(pkgopenapi.NewLoaderOptions(options...))
}

// NewParser constructs a parser backed by the internal implementation.
func NewParser(options ...pkgopenapi.ParserOption) pkgopenapi.Parser {
	return internalParser.New(pkgopenapi.NewParserOptions(options...))
}

// DiscoverForms loads the OpenAPI document at src and registers its form
// operations in a page. A nil loader or parser uses the defaults; the
// default loader accepts URL sources.
func DiscoverForms(ctx context.Context, loader pkgopenapi.Loader, parser pkgopenapi.Parser, src pkgopenapi.Source, options ...pkgopenapi.FormOption) (*page.Page, error) {
	if loader == nil {
		loader = NewLoader(pkgopenapi.WithHTTPFallback(0))
	}
	if parser == nil {
		parser = NewParser()
	}
	doc, err := loader.Load(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("herdform: %w", err)
	}
	ops, err := parser.Operations(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("herdform: %w", err)
	}
	pg, err := pkgopenapi.Page(ops, options...)
	if err != nil {
		return nil, fmt.Errorf("herdform: %w", err)
	}
	return pg, nil
}
