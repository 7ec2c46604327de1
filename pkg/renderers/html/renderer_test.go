package html_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	xhtml "golang.org/x/net/html"

	"github.com/goliatone/go-herdform/pkg/render"
	herdhtml "github.com/goliatone/go-herdform/pkg/renderers/html"
	"github.com/goliatone/go-herdform/pkg/submit"
	"github.com/goliatone/go-herdform/pkg/table"
	"github.com/goliatone/go-herdform/pkg/testsupport"
)

func newRenderer(t *testing.T) *herdhtml.Renderer {
	t.Helper()
	r, err := herdhtml.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func parse(t *testing.T, fragment []byte) *xhtml.Node {
	t.Helper()
	doc, err := xhtml.Parse(bytes.NewReader(fragment))
	if err != nil {
		t.Fatalf("parse fragment: %v", err)
	}
	return doc
}

func find(n *xhtml.Node, tag string) []*xhtml.Node {
	var out []*xhtml.Node
	var walk func(*xhtml.Node)
	walk = func(n *xhtml.Node) {
		if n.Type == xhtml.ElementNode && n.Data == tag {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func attr(n *xhtml.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *xhtml.Node) string {
	var b strings.Builder
	var walk func(*xhtml.Node)
	walk = func(n *xhtml.Node) {
		if n.Type == xhtml.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

func TestRenderStatus_Tones(t *testing.T) {
	r := newRenderer(t)
	cases := []struct {
		tone    submit.Tone
		text    string
		classes string
	}{
		{submit.ToneSuccess, "OK", "alert alert-success"},
		{submit.ToneFailure, "bad", "alert alert-danger"},
	}
	for _, tc := range cases {
		out, err := r.RenderStatus(context.Background(), render.StatusView{
			FormID: "add-cow", ElementID: "message-add-cow", Visible: true, Tone: tc.tone, Text: tc.text,
		}, render.RenderOptions{})
		if err != nil {
			t.Fatalf("RenderStatus: %v", err)
		}
		divs := find(parse(t, out), "div")
		if len(divs) != 1 {
			t.Fatalf("expected one div, got %s", out)
		}
		div := divs[0]
		if attr(div, "id") != "message-add-cow" || attr(div, "class") != tc.classes || text(div) != tc.text {
			t.Fatalf("unexpected status markup: %s", out)
		}
		if attr(div, "style") != "" {
			t.Fatalf("visible status must not be hidden: %s", out)
		}
	}
}

func TestRenderStatus_TextModeEscapes(t *testing.T) {
	out, err := newRenderer(t).RenderStatus(context.Background(), render.StatusView{
		FormID: "f", ElementID: "message-f", Visible: true, Tone: submit.ToneFailure,
		Text: `<img src=x onerror=alert(1)>`,
	}, render.RenderOptions{Messages: render.MessageText})
	if err != nil {
		t.Fatalf("RenderStatus: %v", err)
	}
	if len(find(parse(t, out), "img")) != 0 || !strings.Contains(string(out), "&lt;img") {
		t.Fatalf("markup must be escaped in text mode: %s", out)
	}
}

func TestRenderStatus_RichModeSanitises(t *testing.T) {
	out, err := newRenderer(t).RenderStatus(context.Background(), render.StatusView{
		FormID: "f", ElementID: "message-f", Visible: true, Tone: submit.ToneSuccess,
		Text: `<strong>12</strong> ajoutée<script>alert(1)</script>`,
	}, render.RenderOptions{Messages: render.MessageRich})
	if err != nil {
		t.Fatalf("RenderStatus: %v", err)
	}
	doc := parse(t, out)
	if len(find(doc, "strong")) != 1 || len(find(doc, "script")) != 0 {
		t.Fatalf("unexpected rich output: %s", out)
	}
}

func TestRenderStatus_SilentAndHidden(t *testing.T) {
	r := newRenderer(t)
	out, err := r.RenderStatus(context.Background(), render.StatusView{FormID: "g"}, render.RenderOptions{})
	if err != nil || len(out) != 0 {
		t.Fatalf("silent form should render nothing: %q %v", out, err)
	}

	out, err = r.RenderStatus(context.Background(), render.StatusView{FormID: "f", ElementID: "message-f"}, render.RenderOptions{})
	if err != nil {
		t.Fatalf("RenderStatus: %v", err)
	}
	if div := find(parse(t, out), "div")[0]; attr(div, "style") != "display: none" || attr(div, "class") != "alert" {
		t.Fatalf("idle status should be hidden and unstyled: %s", out)
	}
}

func TestRenderList_Table(t *testing.T) {
	action := &table.Action{Label: "Valider", Target: "/validate_dry"}
	view := render.ListView{
		Name:    "dry",
		Columns: []string{"Vache", "Tarissement", "Action"},
		Rows: []table.Row{
			{ID: "3", Cells: []string{"3", "15 janv. 2024"}, Action: action},
			{ID: "7", Cells: []string{"7", "01 mars 2024"}, Action: action},
		},
		EmptyText: "Aucun tarissement à prévoir.",
	}
	out, err := newRenderer(t).RenderList(context.Background(), view, render.RenderOptions{})
	if err != nil {
		t.Fatalf("RenderList: %v", err)
	}
	doc := parse(t, out)

	tables := find(doc, "table")
	if len(tables) != 1 || attr(tables[0], "class") != "table table-bordered" {
		t.Fatalf("expected one bordered table: %s", out)
	}
	var ids, dates, cows []string
	for _, tr := range find(doc, "tr") {
		if id := attr(tr, "data-id"); id != "" {
			ids = append(ids, id)
			dates = append(dates, text(find(tr, "td")[1]))
		}
	}
	for _, b := range find(doc, "button") {
		cows = append(cows, attr(b, "data-cow"))
	}
	if diff := cmp.Diff([]string{"3", "7"}, ids); diff != "" {
		t.Fatalf("row order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"15 janv. 2024", "01 mars 2024"}, dates); diff != "" {
		t.Fatalf("dates mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"3", "7"}, cows); diff != "" {
		t.Fatalf("buttons mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderList_EmptyShowsTextWithoutTable(t *testing.T) {
	view := render.ListView{Name: "stock", Columns: []string{"Médicament", "Quantité"}, EmptyText: "Aucun stock disponible pour l'année en cours."}
	out, err := newRenderer(t).RenderList(context.Background(), view, render.RenderOptions{})
	if err != nil {
		t.Fatalf("RenderList: %v", err)
	}
	doc := parse(t, out)
	if len(find(doc, "table")) != 0 {
		t.Fatalf("empty list must not create a table: %s", out)
	}
	if got := text(find(doc, "p")[0]); got != view.EmptyText {
		t.Fatalf("empty text = %q", got)
	}
}

func TestRenderList_Error(t *testing.T) {
	view := render.ListView{Name: "dry", Error: "Erreur : base indisponible", EmptyText: "x"}
	out, err := newRenderer(t).RenderList(context.Background(), view, render.RenderOptions{})
	if err != nil {
		t.Fatalf("RenderList: %v", err)
	}
	if ps := find(parse(t, out), "p"); len(ps) != 1 || text(ps[0]) != view.Error || attr(ps[0], "class") != "list-error" {
		t.Fatalf("unexpected error markup: %s", out)
	}
}

func TestRenderAlert_ThemeTokens(t *testing.T) {
	opts := render.RenderOptions{Theme: render.ThemeConfig(nil, "")}
	opts.Theme.Tokens[render.TokenStatusFailure] = "alert-warning"
	out, err := newRenderer(t).RenderAlert(context.Background(), render.AlertView{Tone: submit.ToneFailure, Text: "Erreur : refus"}, opts)
	if err != nil {
		t.Fatalf("RenderAlert: %v", err)
	}
	div := find(parse(t, out), "div")[0]
	if attr(div, "class") != "alert alert-warning" || attr(div, "role") != "alert" || text(div) != "Erreur : refus" {
		t.Fatalf("unexpected alert: %s", out)
	}
}

func TestRenderStatus_TrimsTextAndJoinsClasses(t *testing.T) {
	opts := render.RenderOptions{Theme: render.ThemeConfig(nil, "")}
	opts.Theme.Tokens[render.TokenStatusBase] = "  alert   shadow "
	opts.Theme.Tokens[render.TokenStatusSuccess] = " alert-success"
	out, err := newRenderer(t).RenderStatus(context.Background(), render.StatusView{
		FormID: "f", ElementID: "message-f", Visible: true, Tone: submit.ToneSuccess,
		Text: "  12 a été ajoutée \n",
	}, opts)
	if err != nil {
		t.Fatalf("RenderStatus: %v", err)
	}
	want := `<div id="message-f" class="alert shadow alert-success" role="status">12 a été ajoutée</div>`
	if diff := cmp.Diff(want, string(out)); diff != "" {
		t.Fatalf("status mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_TemplatesDirOverridesBuiltins(t *testing.T) {
	dir := t.TempDir()
	custom := []byte(`<p class="{{ base|join_classes:tone }}">{{ text|trim }}</p>`)
	if err := os.WriteFile(filepath.Join(dir, "alert.tpl"), custom, 0o600); err != nil {
		t.Fatalf("write template: %v", err)
	}
	r, err := herdhtml.New(herdhtml.WithTemplatesDir(dir))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	alert, err := r.RenderAlert(context.Background(), render.AlertView{Tone: submit.ToneFailure, Text: "refus"}, render.RenderOptions{})
	if err != nil {
		t.Fatalf("RenderAlert: %v", err)
	}
	if diff := cmp.Diff(`<p class="alert alert-danger">refus</p>`, string(alert)); diff != "" {
		t.Fatalf("alert mismatch (-want +got):\n%s", diff)
	}

	status, err := r.RenderStatus(context.Background(), render.StatusView{
		FormID: "f", ElementID: "message-f", Visible: true, Text: "ok",
	}, render.RenderOptions{})
	if err != nil {
		t.Fatalf("RenderStatus: %v", err)
	}
	if !strings.Contains(string(status), `role="status"`) {
		t.Fatalf("missing templates must fall back to built-ins: %s", status)
	}
}

func TestSanitizeMessage(t *testing.T) {
	got := herdhtml.SanitizeMessage(`<a href="javascript:alert(1)">x</a><em>ok</em>`)
	if strings.Contains(got, "javascript") || !strings.Contains(got, "<em>ok</em>") {
		t.Fatalf("unexpected sanitised output %q", got)
	}
}

func TestRenderStatus_Golden(t *testing.T) {
	view := render.StatusView{
		FormID:    "add-cow",
		ElementID: "message-add-cow",
		Visible:   true,
		Tone:      submit.ToneSuccess,
		Text:      "12 a été ajoutée avec succès !",
	}
	got, err := newRenderer(t).RenderStatus(context.Background(), view, render.RenderOptions{})
	if err != nil {
		t.Fatalf("RenderStatus: %v", err)
	}
	path := filepath.Join("testdata", "status_success.golden.html")
	if testsupport.WriteMaybeGolden(t, path, append(got, '\n')) {
		return
	}
	want := bytes.TrimSpace(testsupport.MustReadGolden(t, path))
	if diff := cmp.Diff(string(want), string(got)); diff != "" {
		t.Fatalf("golden mismatch (-want +got):\n%s", diff)
	}
}
