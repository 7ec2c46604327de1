// Package html renders status elements, list areas and alerts as HTML
// fragments the pages swap in place.
package html

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-herdform/pkg/render"
	rendertemplate "github.com/goliatone/go-herdform/pkg/render/template"
	"github.com/goliatone/go-herdform/pkg/render/template/gotemplate"
	"github.com/goliatone/go-herdform/pkg/submit"
)

//go:embed templates/*.tpl
var embeddedTemplates embed.FS

// TemplatesFS exposes the built-in fragment templates.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return embeddedTemplates
	}
	return sub
}

// sanitizeFilter is the template filter applied to rich messages.
const sanitizeFilter = "sanitize_message"

// Name is the registry name of the renderer.
const Name = "html"

// Option configures the renderer.
type Option func(*config)

type config struct {
	templateFS   fs.FS
	templatesDir string
	templates    rendertemplate.TemplateRenderer
}

// WithTemplatesFS replaces the template bundle.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk. Templates
// missing from the directory fall back to the built-in ones.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		cfg.templatesDir = path
	}
}

// WithTemplateRenderer injects a template engine.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templates = renderer
		}
	}
}

// Renderer implements render.Renderer for HTML fragments.
type Renderer struct {
	templates rendertemplate.TemplateRenderer
}

var _ render.Renderer = (*Renderer)(nil)

// New builds the renderer.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templateFS: TemplatesFS()}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	engine := cfg.templates
	if engine == nil {
		e, err := gotemplate.New(gotemplate.WithBaseDir(cfg.templatesDir), gotemplate.WithFS(cfg.templateFS))
		if err != nil {
			return nil, fmt.Errorf("html renderer: configure template renderer: %w", err)
		}
		engine = e
	}
	err := engine.RegisterFilter(sanitizeFilter, func(input any, _ any) (any, error) {
		if input == nil {
			return "", nil
		}
		return SanitizeMessage(fmt.Sprint(input)), nil
	})
	if err != nil && !errors.Is(err, gotemplate.ErrFilterExists) {
		return nil, fmt.Errorf("html renderer: %w", err)
	}
	return &Renderer{templates: engine}, nil
}

func (r *Renderer) Name() string {
	return Name
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// RenderStatus renders the status element. Silent forms render nothing. In
// rich mode the message goes through a UGC sanitiser; otherwise it is
// escaped.
func (r *Renderer) RenderStatus(_ context.Context, view render.StatusView, opts render.RenderOptions) ([]byte, error) {
	if view.ElementID == "" {
		return nil, nil
	}
	data := map[string]any{
		"status": view,
		"base":   opts.Token(render.TokenStatusBase),
		"tone":   toneClass(view.Tone, opts),
		"rich":   opts.Messages == render.MessageRich,
	}
	out, err := r.templates.RenderTemplate("status", data)
	if err != nil {
		return nil, fmt.Errorf("html renderer: status %q: %w", view.FormID, err)
	}
	return []byte(strings.TrimSpace(out)), nil
}

// RenderList renders a list area.
func (r *Renderer) RenderList(_ context.Context, view render.ListView, opts render.RenderOptions) ([]byte, error) {
	data := map[string]any{
		"view":  view,
		"empty": view.Empty(),
		"tokens": map[string]string{
			"table":  opts.Token(render.TokenTable),
			"action": opts.Token(render.TokenActionButton),
			"empty":  opts.Token(render.TokenEmpty),
			"error":  opts.Token(render.TokenError),
		},
	}
	out, err := r.templates.RenderTemplate("list", data)
	if err != nil {
		return nil, fmt.Errorf("html renderer: list %q: %w", view.Name, err)
	}
	return []byte(strings.TrimSpace(out)), nil
}

// RenderAlert renders a standalone alert.
func (r *Renderer) RenderAlert(_ context.Context, view render.AlertView, opts render.RenderOptions) ([]byte, error) {
	out, err := r.templates.RenderTemplate("alert", map[string]any{
		"base": opts.Token(render.TokenStatusBase),
		"tone": toneClass(view.Tone, opts),
		"text": view.Text,
	})
	if err != nil {
		return nil, fmt.Errorf("html renderer: alert: %w", err)
	}
	return []byte(strings.TrimSpace(out)), nil
}

func toneClass(tone submit.Tone, opts render.RenderOptions) string {
	switch tone {
	case submit.ToneSuccess:
		return opts.Token(render.TokenStatusSuccess)
	case submit.ToneFailure:
		return opts.Token(render.TokenStatusFailure)
	}
	return ""
}

var (
	messagePolicyOnce sync.Once
	messagePolicy     *bluemonday.Policy
)

// SanitizeMessage keeps the inline markup a server message may carry and
// drops scripts, handlers and unsafe URLs.
func SanitizeMessage(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(messageSanitizer().Sanitize(trimmed))
}

func messageSanitizer() *bluemonday.Policy {
	messagePolicyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.AllowAttrs("class").OnElements("span", "strong", "em")
		policy.RequireNoFollowOnLinks(true)
		messagePolicy = policy
	})
	return messagePolicy
}
