package openapi

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/goliatone/go-herdform/pkg/page"
)

// Operation extensions read by Forms.
const (
	// ExtStatusElement names the status element; false makes the form silent.
	ExtStatusElement = "x-status-element"
	// ExtOneShot removes the form after its first success.
	ExtOneShot = "x-one-shot"
	// ExtNonJSON selects the non-JSON response mode (download, redirect,
	// reject).
	ExtNonJSON = "x-non-json"
	// ExtRefresh lists the list sources reloaded after a success.
	ExtRefresh = "x-refresh"
)

// FormOption configures Forms.
type FormOption func(*formConfig)

type formConfig struct {
	base *url.URL
}

// WithBaseURL resolves operation paths against base.
func WithBaseURL(base *url.URL) FormOption {
	return func(cfg *formConfig) {
		cfg.base = base
	}
}

// Forms maps every form operation to a descriptor, sorted by id. Fields
// follow the body schema properties in name order and carry the schema
// defaults.
func Forms(ops map[string]Operation, options ...FormOption) ([]page.FormDescriptor, error) {
	cfg := formConfig{}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	var out []page.FormDescriptor
	for _, op := range ops {
		if !op.IsForm() {
			continue
		}
		desc, err := descriptor(op, cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, desc)
	}
	slices.SortFunc(out, func(a, b page.FormDescriptor) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Page registers the form operations in a page.
func Page(ops map[string]Operation, options ...FormOption) (*page.Page, error) {
	forms, err := Forms(ops, options...)
	if err != nil {
		return nil, err
	}
	return page.New(forms...)
}

func descriptor(op Operation, cfg formConfig) (page.FormDescriptor, error) {
	action := op.Path
	if cfg.base != nil {
		ref, err := url.Parse(op.Path)
		if err != nil {
			return page.FormDescriptor{}, fmt.Errorf("openapi: operation %q: invalid path: %w", op.ID, err)
		}
		action = cfg.base.ResolveReference(ref).String()
	}

	desc := page.FormDescriptor{
		ID:       op.ID,
		Action:   action,
		Method:   op.Method,
		Enctype:  op.MediaType,
		StatusID: page.StatusIDFor(op.ID),
		Fields:   fields(op.Body),
	}

	if raw, ok := op.Extensions[ExtStatusElement]; ok {
		switch v := raw.(type) {
		case bool:
			if !v {
				desc.StatusID = ""
			}
		case string:
			desc.StatusID = strings.TrimSpace(v)
		default:
			return page.FormDescriptor{}, fmt.Errorf("openapi: operation %q: %s must be a string or false", op.ID, ExtStatusElement)
		}
	}
	if v, ok := op.Extensions[ExtOneShot].(bool); ok {
		desc.OneShot = v
	}
	if v, ok := op.Extensions[ExtNonJSON].(string); ok {
		desc.NonJSON = page.ParseNonJSONMode(v)
	}
	desc.Refresh = stringList(op.Extensions[ExtRefresh])

	return desc.Normalize(), nil
}

func fields(body Schema) []page.Field {
	names := make([]string, 0, len(body.Properties))
	for name := range body.Properties {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]page.Field, 0, len(names))
	for _, name := range names {
		prop := body.Properties[name]
		field := page.Field{Name: name, Type: fieldType(prop)}
		if prop.Type == "boolean" {
			if v, _ := prop.Default.(bool); v {
				field.Values = []string{"on"}
			}
		} else {
			field.Values = defaultValues(prop.Default)
		}
		out = append(out, field)
	}
	return out
}

func fieldType(s Schema) string {
	switch {
	case len(s.Enum) > 0:
		return "select"
	case s.Type == "integer", s.Type == "number":
		return "number"
	case s.Type == "boolean":
		return "checkbox"
	case s.Type == "array":
		return "select"
	case s.Format == "date":
		return "date"
	case s.Format == "binary":
		return "file"
	case s.Format == "password", s.Format == "email":
		return s.Format
	default:
		return "text"
	}
}

func defaultValues(v any) []string {
	switch value := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			out = append(out, scalar(item))
		}
		return out
	default:
		return []string{scalar(value)}
	}
}

func scalar(v any) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func stringList(v any) []string {
	switch value := v.(type) {
	case string:
		return strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' })
	case []any:
		var out []string
		for _, item := range value {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case []string:
		return slices.Clone(value)
	}
	return nil
}
