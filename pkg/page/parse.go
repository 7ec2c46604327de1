package page

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultFormClass designates forms whose submission is intercepted.
const DefaultFormClass = "ajax-form"

// ErrDuplicateForm is returned when two designated forms share an id.
var ErrDuplicateForm = errors.New("page: duplicate form id")

// StatusPolicy decides what a form without a status element means.
type StatusPolicy int

const (
	// StatusOptional registers the form as silent.
	StatusOptional StatusPolicy = iota
	// StatusRequired rejects the page.
	StatusRequired
)

// ParseStatusPolicy maps config values ("optional", "required").
func ParseStatusPolicy(raw string) (StatusPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "optional":
		return StatusOptional, nil
	case "required":
		return StatusRequired, nil
	default:
		return StatusOptional, fmt.Errorf("page: unknown status policy %q", raw)
	}
}

func (p StatusPolicy) String() string {
	if p == StatusRequired {
		return "required"
	}
	return "optional"
}

// MissingStatusError reports a form whose status element is absent under
// StatusRequired.
type MissingStatusError struct {
	FormID   string
	StatusID string
}

func (e *MissingStatusError) Error() string {
	return fmt.Sprintf("page: form %q has no status element %q", e.FormID, e.StatusID)
}

// Option configures Parse.
type Option func(*config)

type config struct {
	formClass string
	policy    StatusPolicy
	base      *url.URL
}

// WithFormClass overrides the class that designates ajax forms.
func WithFormClass(class string) Option {
	return func(cfg *config) {
		if trimmed := strings.TrimSpace(class); trimmed != "" {
			cfg.formClass = trimmed
		}
	}
}

// WithStatusPolicy sets how missing status elements are treated.
func WithStatusPolicy(policy StatusPolicy) Option {
	return func(cfg *config) {
		cfg.policy = policy
	}
}

// WithBaseURL resolves form actions against base.
func WithBaseURL(base *url.URL) Option {
	return func(cfg *config) {
		cfg.base = base
	}
}

// Page is the set of ajax forms declared by one document, in document order.
type Page struct {
	forms []FormDescriptor
	index map[string]int
}

// New builds a Page from already known descriptors (for example the ones
// derived from an OpenAPI document).
func New(descriptors ...FormDescriptor) (*Page, error) {
	p := &Page{index: make(map[string]int, len(descriptors))}
	for _, desc := range descriptors {
		if err := p.Add(desc); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Add registers a descriptor. Ids must be unique.
func (p *Page) Add(desc FormDescriptor) error {
	desc = desc.Normalize()
	if desc.ID == "" {
		return errors.New("page: form id is required")
	}
	if p.index == nil {
		p.index = make(map[string]int)
	}
	if _, exists := p.index[desc.ID]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateForm, desc.ID)
	}
	p.index[desc.ID] = len(p.forms)
	p.forms = append(p.forms, desc)
	return nil
}

// Forms returns a copy of the descriptors.
func (p *Page) Forms() []FormDescriptor {
	if p == nil {
		return nil
	}
	return append([]FormDescriptor(nil), p.forms...)
}

// Form looks a descriptor up by id.
func (p *Page) Form(id string) (FormDescriptor, bool) {
	if p == nil {
		return FormDescriptor{}, false
	}
	idx, ok := p.index[strings.TrimSpace(id)]
	if !ok {
		return FormDescriptor{}, false
	}
	return p.forms[idx], true
}

// Len returns the number of registered forms.
func (p *Page) Len() int {
	if p == nil {
		return 0
	}
	return len(p.forms)
}

// Parse reads an HTML document and registers every designated form.
func Parse(r io.Reader, options ...Option) (*Page, error) {
	cfg := config{formClass: DefaultFormClass}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("page: parse markup: %w", err)
	}

	ids := make(map[string]struct{})
	var forms []*html.Node
	walk(doc, func(n *html.Node) {
		if id := attr(n, "id"); id != "" {
			ids[id] = struct{}{}
		}
		if n.DataAtom == atom.Form && hasClass(n, cfg.formClass) {
			forms = append(forms, n)
		}
	})

	page := &Page{index: make(map[string]int, len(forms))}
	for i, node := range forms {
		desc := describe(node, cfg.base)
		if desc.ID == "" {
			desc.ID = "form-" + strconv.Itoa(i+1)
		} else {
			statusID := StatusIDFor(desc.ID)
			if _, ok := ids[statusID]; ok {
				desc.StatusID = statusID
			} else if cfg.policy == StatusRequired {
				return nil, &MissingStatusError{FormID: desc.ID, StatusID: statusID}
			}
		}
		if err := page.Add(desc); err != nil {
			return nil, err
		}
	}
	return page, nil
}

func describe(form *html.Node, base *url.URL) FormDescriptor {
	desc := FormDescriptor{
		ID:      attr(form, "id"),
		Action:  resolveAction(base, attr(form, "action")),
		Method:  attr(form, "method"),
		Enctype: attr(form, "enctype"),
		OneShot: hasAttr(form, "data-one-shot") || hasClass(form, "one-shot"),
		NonJSON: ParseNonJSONMode(attr(form, "data-non-json")),
		Refresh: splitList(attr(form, "data-refresh")),
	}

	walk(form, func(n *html.Node) {
		if n == form || n.Type != html.ElementNode || hasAttr(n, "disabled") {
			return
		}
		name := attr(n, "name")
		if name == "" {
			return
		}
		switch n.DataAtom {
		case atom.Input:
			if field, ok := inputField(n, name); ok {
				desc.Fields = append(desc.Fields, field)
			}
		case atom.Select:
			desc.Fields = append(desc.Fields, selectField(n, name))
		case atom.Textarea:
			desc.Fields = append(desc.Fields, Field{
				Name:   name,
				Type:   "textarea",
				Values: []string{textContent(n)},
			})
		}
	})

	return desc.Normalize()
}

func inputField(n *html.Node, name string) (Field, bool) {
	kind := strings.ToLower(attr(n, "type"))
	if kind == "" {
		kind = "text"
	}
	switch kind {
	case "submit", "button", "reset", "image", "file":
		return Field{}, false
	case "checkbox", "radio":
		if !hasAttr(n, "checked") {
			return Field{}, false
		}
		value := "on"
		if hasAttr(n, "value") {
			value = attr(n, "value")
		}
		return Field{Name: name, Type: kind, Values: []string{value}}, true
	}
	return Field{Name: name, Type: kind, Values: []string{attr(n, "value")}}, true
}

func selectField(n *html.Node, name string) Field {
	var options, selected []string
	walk(n, func(child *html.Node) {
		if child.DataAtom != atom.Option || hasAttr(child, "disabled") {
			return
		}
		value := textContent(child)
		if hasAttr(child, "value") {
			value = attr(child, "value")
		}
		options = append(options, value)
		if hasAttr(child, "selected") {
			selected = append(selected, value)
		}
	})

	field := Field{Name: name, Type: "select"}
	switch {
	case len(selected) > 0 && hasAttr(n, "multiple"):
		field.Values = selected
	case len(selected) > 0:
		field.Values = selected[len(selected)-1:]
	case len(options) > 0 && !hasAttr(n, "multiple"):
		field.Values = options[:1]
	}
	return field
}

func resolveAction(base *url.URL, action string) string {
	action = strings.TrimSpace(action)
	if base == nil {
		return action
	}
	if action == "" {
		return base.String()
	}
	ref, err := url.Parse(action)
	if err != nil {
		return action
	}
	return base.ResolveReference(ref).String()
}

func walk(n *html.Node, visit func(*html.Node)) {
	if n == nil {
		return
	}
	if n.Type == html.ElementNode {
		visit(n)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walk(child, visit)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return true
		}
	}
	return false
}

func hasClass(n *html.Node, class string) bool {
	for _, token := range strings.Fields(attr(n, "class")) {
		if token == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			collect(child)
		}
	}
	collect(n)
	return strings.TrimSpace(b.String())
}

func splitList(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' '
	})
	if len(parts) == 0 {
		return nil
	}
	return parts
}
