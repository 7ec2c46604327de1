package openapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-herdform"
	pkgopenapi "github.com/goliatone/go-herdform/pkg/openapi"
	"github.com/goliatone/go-herdform/pkg/page"
	"github.com/goliatone/go-herdform/pkg/testsupport"
)

var (
	fixture = filepath.Join("testdata", "herd.yaml")
	golden  = filepath.Join("testdata", "herd.forms.golden.json")
)

func wantForms(action func(string) string) []page.FormDescriptor {
	return []page.FormDescriptor{
		{
			ID:      "add-cow",
			Action:  action("/herd/acquire"),
			Method:  "POST",
			Enctype: page.EnctypeURLEncoded,
			Fields: []page.Field{
				{Name: "birth_date", Type: "date"},
				{Name: "id", Type: "number"},
			},
			StatusID: "message-add-cow",
			NonJSON:  page.NonJSONDownload,
			Refresh:  []string{"herd"},
		},
		{
			ID:      "export-stock",
			Action:  action("/download"),
			Method:  "POST",
			Enctype: page.EnctypeURLEncoded,
			Fields: []page.Field{
				{Name: "export_year", Type: "number", Values: []string{"2024"}},
			},
			StatusID: "message-export-stock",
			OneShot:  true,
			NonJSON:  page.NonJSONDownload,
		},
		{
			ID:      "login",
			Action:  action("/login"),
			Method:  "POST",
			Enctype: page.EnctypeURLEncoded,
			Fields: []page.Field{
				{Name: "email", Type: "email"},
				{Name: "password", Type: "password"},
				{Name: "remember", Type: "checkbox", Values: []string{"on"}},
			},
			StatusID: "message-login",
			NonJSON:  page.NonJSONRedirect,
		},
		{
			ID:      "remaining-care",
			Action:  action("/download_remaining_care"),
			Method:  "POST",
			Enctype: page.EnctypeMultipart,
			Fields: []page.Field{
				{Name: "format", Type: "select", Values: []string{"xlsx"}},
			},
			NonJSON: page.NonJSONDownload,
		},
	}
}

func TestDiscoverForms_File(t *testing.T) {
	pg, err := herdform.DiscoverForms(context.Background(), herdform.NewLoader(), nil, pkgopenapi.SourceFromFile(fixture))
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	want := wantForms(func(p string) string { return p })
	if diff := cmp.Diff(want, pg.Forms()); diff != "" {
		t.Fatalf("forms mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscoverForms_Golden(t *testing.T) {
	pg, err := herdform.DiscoverForms(context.Background(), herdform.NewLoader(), nil, pkgopenapi.SourceFromFile(fixture))
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	got := pg.Forms()
	testsupport.WriteGolden(t, golden, got)

	want := testsupport.MustLoadJSON[[]page.FormDescriptor](t, golden)
	if diff := testsupport.CompareGolden(want, got); diff != "" {
		t.Fatalf("golden mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscoverForms_HTTPWithBaseURL(t *testing.T) {
	data, err := os.ReadFile(fixture)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(data)
	}))
	defer server.Close()

	base, _ := url.Parse(server.URL)
	loader := herdform.NewLoader(pkgopenapi.WithHTTPClient(server.Client()))
	pg, err := herdform.DiscoverForms(context.Background(), loader, nil, pkgopenapi.SourceFromURL(server.URL+"/openapi.yaml"), pkgopenapi.WithBaseURL(base))
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	want := wantForms(func(p string) string { return server.URL + p })
	if diff := cmp.Diff(want, pg.Forms()); diff != "" {
		t.Fatalf("forms mismatch (-want +got):\n%s", diff)
	}
}

func TestParser_OperationsIncludeNonForms(t *testing.T) {
	data, err := os.ReadFile(fixture)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	loader := herdform.NewLoader(pkgopenapi.WithFileSystem(fstest.MapFS{"herd.yaml": {Data: data}}))
	doc, err := loader.Load(context.Background(), pkgopenapi.SourceFromFS("herd.yaml"))
	if err != nil {
		t.Fatalf("load fs: %v", err)
	}
	ops, err := herdform.NewParser().Operations(context.Background(), doc)
	if err != nil {
		t.Fatalf("operations: %v", err)
	}
	if len(ops) != 6 {
		t.Fatalf("expected 6 operations, got %d", len(ops))
	}
	if op := ops["validate-dry"]; op.IsForm() || op.Method != "POST" {
		t.Fatalf("json operation must not be a form: %+v", op)
	}
	if op := ops["show-dry"]; op.IsForm() || op.Method != "GET" {
		t.Fatalf("get operation must not be a form: %+v", op)
	}
}

func TestLoader_Errors(t *testing.T) {
	ctx := context.Background()
	if _, err := herdform.NewLoader().Load(ctx, pkgopenapi.SourceFromURL("https://herd.example/openapi.yaml")); err == nil {
		t.Fatalf("expected URL sources to be disabled without a client")
	}
	if _, err := herdform.NewLoader().Load(ctx, pkgopenapi.SourceFromFS("herd.yaml")); err == nil {
		t.Fatalf("expected fs source without filesystem to fail")
	}
	if _, err := pkgopenapi.ParseURLSource("ftp://herd.example/x"); err == nil {
		t.Fatalf("expected unsupported scheme error")
	}

	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()
	loader := herdform.NewLoader(pkgopenapi.WithHTTPClient(server.Client()))
	if _, err := loader.Load(ctx, pkgopenapi.SourceFromURL(server.URL)); err == nil {
		t.Fatalf("expected status error")
	}
}

func TestForms_RejectsBadStatusExtension(t *testing.T) {
	ops := map[string]pkgopenapi.Operation{
		"f": {
			ID: "f", Method: "POST", Path: "/f", MediaType: pkgopenapi.MediaURLEncoded,
			Extensions: map[string]any{pkgopenapi.ExtStatusElement: 3.0},
		},
	}
	if _, err := pkgopenapi.Forms(ops); err == nil {
		t.Fatalf("expected invalid extension error")
	}

	ops["f"] = pkgopenapi.Operation{
		ID: "f", Method: "POST", Path: "/f", MediaType: pkgopenapi.MediaURLEncoded,
		Extensions: map[string]any{pkgopenapi.ExtStatusElement: "flash", pkgopenapi.ExtRefresh: "dry, stock"},
	}
	forms, err := pkgopenapi.Forms(ops)
	if err != nil {
		t.Fatalf("forms: %v", err)
	}
	if forms[0].StatusID != "flash" || !cmp.Equal(forms[0].Refresh, []string{"dry", "stock"}) {
		t.Fatalf("unexpected descriptor %+v", forms[0])
	}
}
