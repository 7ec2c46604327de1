package page_test

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-herdform/pkg/page"
)

const reproductionPage = `<!doctype html>
<html><body>
  <form id="insemination" class="ajax-form" action="/insemination" method="post">
    <input type="number" name="cow_id" value="12">
    <input type="date" name="date" value="2024-01-15">
    <select name="bull">
      <option value="b1">Bull one</option>
      <option value="b2" selected>Bull two</option>
    </select>
    <input type="checkbox" name="confirm" checked>
    <input type="checkbox" name="skipped" value="x">
    <input type="text" name="locked" value="no" disabled>
    <input type="submit" name="go" value="Envoyer">
    <textarea name="note">
      first heat
    </textarea>
  </form>
  <div id="message-insemination" class="alert" style="display:none"></div>

  <form id="download" class="ajax-form one-shot" action="download" method="POST" data-refresh="stock">
    <input type="hidden" name="year" value="2024">
  </form>

  <form id="login" class="ajax-form" action="/login" data-non-json="redirect">
    <input type="email" name="email">
    <input type="password" name="password">
  </form>

  <form id="plain" action="/not-ajax"></form>
</body></html>`

func TestParse_Descriptors(t *testing.T) {
	base, _ := url.Parse("https://herd.example/reproduction")
	p, err := page.Parse(strings.NewReader(reproductionPage), page.WithBaseURL(base))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := []page.FormDescriptor{
		{
			ID:      "insemination",
			Action:  "https://herd.example/insemination",
			Method:  "POST",
			Enctype: page.EnctypeURLEncoded,
			Fields: []page.Field{
				{Name: "cow_id", Type: "number", Values: []string{"12"}},
				{Name: "date", Type: "date", Values: []string{"2024-01-15"}},
				{Name: "bull", Type: "select", Values: []string{"b2"}},
				{Name: "confirm", Type: "checkbox", Values: []string{"on"}},
				{Name: "note", Type: "textarea", Values: []string{"first heat"}},
			},
			StatusID: "message-insemination",
			NonJSON:  page.NonJSONDownload,
		},
		{
			ID:      "download",
			Action:  "https://herd.example/download",
			Method:  "POST",
			Enctype: page.EnctypeURLEncoded,
			Fields: []page.Field{
				{Name: "year", Type: "hidden", Values: []string{"2024"}},
			},
			OneShot: true,
			NonJSON: page.NonJSONDownload,
			Refresh: []string{"stock"},
		},
		{
			ID:      "login",
			Action:  "https://herd.example/login",
			Method:  "POST",
			Enctype: page.EnctypeURLEncoded,
			Fields: []page.Field{
				{Name: "email", Type: "email", Values: []string{""}},
				{Name: "password", Type: "password", Values: []string{""}},
			},
			NonJSON: page.NonJSONRedirect,
		},
	}

	if diff := cmp.Diff(want, p.Forms()); diff != "" {
		t.Fatalf("descriptors mismatch (-want +got):\n%s", diff)
	}

	login, ok := p.Form("login")
	if !ok || !login.Silent() {
		t.Fatalf("expected login to be a silent form, got %+v (ok=%v)", login, ok)
	}
}

func TestParse_StatusRequired(t *testing.T) {
	_, err := page.Parse(strings.NewReader(reproductionPage), page.WithStatusPolicy(page.StatusRequired))
	var missing *page.MissingStatusError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingStatusError, got %v", err)
	}
	if missing.FormID != "download" || missing.StatusID != "message-download" {
		t.Fatalf("unexpected error payload: %+v", missing)
	}
}

func TestParse_DuplicateFormID(t *testing.T) {
	markup := `<form id="a" class="ajax-form"></form><form id="a" class="ajax-form"></form>`
	_, err := page.Parse(strings.NewReader(markup))
	if !errors.Is(err, page.ErrDuplicateForm) {
		t.Fatalf("expected ErrDuplicateForm, got %v", err)
	}
}

func TestParse_CustomClassAndAnonymousForms(t *testing.T) {
	markup := `<form class="js-async" action="/a"></form><form class="js-async" action="/b"></form>`
	p, err := page.Parse(strings.NewReader(markup), page.WithFormClass("js-async"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var ids []string
	for _, form := range p.Forms() {
		ids = append(ids, form.ID)
		if !form.Silent() {
			t.Fatalf("anonymous form %q should be silent", form.ID)
		}
	}
	if diff := cmp.Diff([]string{"form-1", "form-2"}, ids); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestFormDescriptor_Merge(t *testing.T) {
	desc := page.FormDescriptor{
		ID: "acquire",
		Fields: []page.Field{
			{Name: "cow_id", Values: []string{"1"}},
			{Name: "born_date"},
		},
	}

	got := desc.Merge(url.Values{"cow_id": {"42"}, " ": {"ignored"}})
	want := url.Values{"cow_id": {"42"}, "born_date": {""}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merged values mismatch (-want +got):\n%s", diff)
	}
}

func TestParseStatusPolicy(t *testing.T) {
	if policy, err := page.ParseStatusPolicy("Required"); err != nil || policy != page.StatusRequired {
		t.Fatalf("unexpected policy %v (err=%v)", policy, err)
	}
	if _, err := page.ParseStatusPolicy("sometimes"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}
