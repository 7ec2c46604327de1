// Package page builds typed form descriptors from page markup. Each form
// designated as an ajax form is registered exactly once, together with the
// status element that displays the outcome of its last submission.
package page

import (
	"net/url"
	"strings"
)

// NonJSONMode selects how a non-JSON response to a form submission is handled.
type NonJSONMode string

const (
	// NonJSONDownload saves the body as a file (exports, prescriptions).
	NonJSONDownload NonJSONMode = "download"
	// NonJSONRedirect treats the body as a navigation (login success).
	NonJSONRedirect NonJSONMode = "redirect"
	// NonJSONReject reports the response as invalid.
	NonJSONReject NonJSONMode = "reject"
)

// ParseNonJSONMode maps attribute values to a mode, defaulting to download.
func ParseNonJSONMode(raw string) NonJSONMode {
	switch NonJSONMode(strings.ToLower(strings.TrimSpace(raw))) {
	case NonJSONRedirect:
		return NonJSONRedirect
	case NonJSONReject:
		return NonJSONReject
	default:
		return NonJSONDownload
	}
}

// Enctype values understood by the submitter.
const (
	EnctypeURLEncoded = "application/x-www-form-urlencoded"
	EnctypeMultipart  = "multipart/form-data"
)

// StatusPrefix is prepended to a form id to locate its status element.
const StatusPrefix = "message-"

// StatusIDFor returns the conventional status element id for a form.
func StatusIDFor(formID string) string {
	return StatusPrefix + formID
}

// Field is one named control of a form with its current value(s).
type Field struct {
	Name   string   `json:"name"`
	Type   string   `json:"type,omitempty"`
	Values []string `json:"values,omitempty"`
}

// Value returns the first value of the field.
func (f Field) Value() string {
	if len(f.Values) == 0 {
		return ""
	}
	return f.Values[0]
}

// FormDescriptor is the typed view of one ajax form.
//
// StatusID is empty for silent forms (no status element on the page).
// Refresh lists the list sources to reload after a JSON response.
type FormDescriptor struct {
	ID       string      `json:"id"`
	Action   string      `json:"action"`
	Method   string      `json:"method"`
	Enctype  string      `json:"enctype,omitempty"`
	Fields   []Field     `json:"fields,omitempty"`
	StatusID string      `json:"status_id,omitempty"`
	OneShot  bool        `json:"one_shot,omitempty"`
	NonJSON  NonJSONMode `json:"non_json,omitempty"`
	Refresh  []string    `json:"refresh,omitempty"`
}

// Silent reports whether the form has no status element.
func (d FormDescriptor) Silent() bool {
	return d.StatusID == ""
}

// Values returns the field defaults as url.Values, preserving multi-valued
// controls.
func (d FormDescriptor) Values() url.Values {
	values := make(url.Values, len(d.Fields))
	for _, field := range d.Fields {
		for _, v := range field.Values {
			values.Add(field.Name, v)
		}
		if len(field.Values) == 0 {
			if _, ok := values[field.Name]; !ok {
				values[field.Name] = nil
			}
		}
	}
	return values
}

// Merge overlays overrides on the field defaults. A key present in overrides
// replaces all default values for that key.
func (d FormDescriptor) Merge(overrides url.Values) url.Values {
	values := d.Values()
	for key, vals := range overrides {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = append([]string(nil), vals...)
	}
	for key, vals := range values {
		if len(vals) == 0 {
			values[key] = []string{""}
		}
	}
	return values
}

// Normalize fills defaults: upper-case method (POST when empty), enctype and
// non-JSON mode.
func (d FormDescriptor) Normalize() FormDescriptor {
	d.ID = strings.TrimSpace(d.ID)
	d.Action = strings.TrimSpace(d.Action)
	d.Method = strings.ToUpper(strings.TrimSpace(d.Method))
	if d.Method == "" {
		d.Method = "POST"
	}
	switch strings.ToLower(strings.TrimSpace(d.Enctype)) {
	case EnctypeMultipart:
		d.Enctype = EnctypeMultipart
	default:
		d.Enctype = EnctypeURLEncoded
	}
	if d.NonJSON == "" {
		d.NonJSON = NonJSONDownload
	}
	return d
}
