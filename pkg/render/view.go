package render

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-herdform/pkg/page"
	"github.com/goliatone/go-herdform/pkg/submit"
	"github.com/goliatone/go-herdform/pkg/table"
)

// MessageMode decides how server-provided message text reaches the page.
type MessageMode string

const (
	// MessageText escapes the message; markup shows up literally.
	MessageText MessageMode = "text"
	// MessageRich keeps a sanitised subset of markup.
	MessageRich MessageMode = "rich"
)

// ParseMessageMode accepts "text" and "rich"; empty means text.
func ParseMessageMode(raw string) (MessageMode, error) {
	switch MessageMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", MessageText:
		return MessageText, nil
	case MessageRich:
		return MessageRich, nil
	default:
		return "", fmt.Errorf("render: unknown message mode %q", raw)
	}
}

// StatusView is the status element of one form.
type StatusView struct {
	FormID    string      `json:"form_id"`
	ElementID string      `json:"element_id"`
	Visible   bool        `json:"visible"`
	Tone      submit.Tone `json:"tone,omitempty"`
	Text      string      `json:"text,omitempty"`
}

// StatusFor pairs a descriptor with a submission status. Silent forms yield a
// hidden view without element id.
func StatusFor(desc page.FormDescriptor, st submit.Status) StatusView {
	view := StatusView{FormID: desc.ID, ElementID: desc.StatusID}
	if desc.Silent() {
		return view
	}
	view.Visible = st.Visible
	view.Tone = st.Tone
	view.Text = st.Text
	return view
}

// ListView is a list area: a table, its empty text or a loading error.
type ListView struct {
	Name      string      `json:"name"`
	Title     string      `json:"title,omitempty"`
	Columns   []string    `json:"columns"`
	Rows      []table.Row `json:"rows"`
	EmptyText string      `json:"empty_text,omitempty"`
	// Error replaces the area content when loading failed.
	Error string `json:"error,omitempty"`
}

// Empty reports whether the area shows its empty text instead of a table.
func (v ListView) Empty() bool {
	return v.Error == "" && len(v.Rows) == 0
}

// AlertView is a one-off notice, such as the outcome of a row validation.
type AlertView struct {
	Tone submit.Tone `json:"tone"`
	Text string      `json:"text"`
}
