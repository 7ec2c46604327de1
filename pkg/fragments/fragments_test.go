package fragments_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-herdform/pkg/dashboard"
	"github.com/goliatone/go-herdform/pkg/fragments"
	"github.com/goliatone/go-herdform/pkg/listing"
	"github.com/goliatone/go-herdform/pkg/page"
	"github.com/goliatone/go-herdform/pkg/submit"
	"github.com/goliatone/go-herdform/pkg/testsupport"
)

type fixture struct {
	herd *testsupport.HerdServer
	srv  *httptest.Server
	dash *dashboard.Dashboard
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	herd := testsupport.NewHerdServer(t)
	base, err := url.Parse(herd.URL)
	if err != nil {
		t.Fatalf("parse base: %v", err)
	}
	pg, err := page.Parse(strings.NewReader(testsupport.HomePage), page.WithBaseURL(base))
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}
	hc, err := submit.NewHTTPClient(0)
	if err != nil {
		t.Fatalf("http client: %v", err)
	}
	d, err := dashboard.New(pg, submit.New(submit.WithBaseURL(base), submit.WithHTTPClient(hc)), listing.NewFetcher(base, listing.WithHTTPClient(hc)))
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	h, err := fragments.NewHandler(d)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	srv := httptest.NewServer(fragments.NewRouter(h))
	t.Cleanup(srv.Close)
	return fixture{herd: herd, srv: srv, dash: d}
}

func noRedirect() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
}

func read(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if body := read(t, resp); resp.StatusCode != http.StatusOK || body != "ok" {
		t.Fatalf("unexpected health %d %q", resp.StatusCode, body)
	}
}

func TestAssets_ServesRuntime(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.srv.URL + "/assets/herdform.js")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body := read(t, resp)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "/forms/") {
		t.Fatalf("unexpected runtime asset %d", resp.StatusCode)
	}
	for _, want := range []string{
		`window.alert("Erreur lors de la validation.")`,
		`resp.status !== 502 && form.dataset.refresh`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("runtime asset missing %q", want)
		}
	}
}

func TestList_RendersRowsInDateOrder(t *testing.T) {
	f := newFixture(t)
	f.herd.SetList("dry", map[string]any{"7": "2024-03-01", "3": "2024-01-15"})

	resp, err := http.Get(f.srv.URL + "/lists/dry")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body := read(t, resp)
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("unexpected response %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	first, second := strings.Index(body, "15 janv. 2024"), strings.Index(body, "01 mars 2024")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("rows out of order:\n%s", body)
	}
}

func TestList_EmptyAndErrors(t *testing.T) {
	f := newFixture(t)

	resp, _ := http.Get(f.srv.URL + "/lists/stock")
	if body := read(t, resp); strings.Contains(body, "<table") || !strings.Contains(body, "Aucun stock disponible") {
		t.Fatalf("empty stock should show its empty text only:\n%s", body)
	}

	f.herd.FailList("calving", "base indisponible")
	resp, _ = http.Get(f.srv.URL + "/lists/calving")
	body := read(t, resp)
	if resp.StatusCode != http.StatusBadGateway || !strings.Contains(body, "Erreur : base indisponible") {
		t.Fatalf("unexpected error fragment %d:\n%s", resp.StatusCode, body)
	}

	resp, _ = http.Get(f.srv.URL + "/lists/nope")
	read(t, resp)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown list status %d", resp.StatusCode)
	}
}

func TestValidate_RemovesRow(t *testing.T) {
	f := newFixture(t)
	f.herd.SetList("dry", map[string]any{"3": "2024-01-15", "7": "2024-03-01"})
	if _, err := f.dash.Load(testsupport.Context(), listing.Dry); err != nil {
		t.Fatalf("load: %v", err)
	}

	resp, err := http.Post(f.srv.URL+"/lists/dry/rows/7/validate", "", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	var got map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	want := map[string]any{"success": true, "message": "Tarissement validé pour la vache 7"}
	if diff := cmp.Diff(want, got); diff != "" || resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d envelope mismatch (-want +got):\n%s", resp.StatusCode, diff)
	}

	view, _ := f.dash.List(listing.Dry)
	if len(view.Rows) != 1 || view.Rows[0].ID != "3" {
		t.Fatalf("expected only row 3 left, got %+v", view.Rows)
	}
	reqs := f.herd.RequestsTo("/validate_dry")
	if len(reqs) != 1 || reqs[0].JSON["cow_id"] != "7" {
		t.Fatalf("unexpected validate requests %+v", reqs)
	}
}

func TestValidate_FailureIsUnprocessable(t *testing.T) {
	f := newFixture(t)
	f.herd.SetList("dry", map[string]any{"7": "2024-03-01"})
	f.herd.FailValidate("7", "vache vendue")
	_, _ = f.dash.Load(testsupport.Context(), listing.Dry)

	resp, err := http.Post(f.srv.URL+"/lists/dry/rows/7/validate", "", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	body := read(t, resp)
	if resp.StatusCode != http.StatusUnprocessableEntity || !strings.Contains(body, "Erreur : vache vendue") {
		t.Fatalf("unexpected failure %d %s", resp.StatusCode, body)
	}
	if view, _ := f.dash.List(listing.Dry); len(view.Rows) != 1 {
		t.Fatalf("row must stay after failure")
	}

	resp, _ = http.Post(f.srv.URL+"/lists/stock/rows/x/validate", "", nil)
	read(t, resp)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("list without action should be 404, got %d", resp.StatusCode)
	}
}

func TestHerd_FilterQuery(t *testing.T) {
	f := newFixture(t)
	f.herd.SetHerd(testsupport.HerdCow{ID: 12, BornDate: "2021-04-03"}, testsupport.HerdCow{ID: 40})

	resp, _ := http.Get(f.srv.URL + "/herd?id_filter=abc")
	body := read(t, resp)
	if !strings.Contains(body, `data-id="12"`) || !strings.Contains(body, `data-id="40"`) || !strings.Contains(body, "Unknown") {
		t.Fatalf("non-numeric filter should list every cow:\n%s", body)
	}
	if reqs := f.herd.RequestsTo("/herd/list"); len(reqs) != 1 {
		t.Fatalf("expected full listing request, got %d", len(reqs))
	}

	resp, _ = http.Get(f.srv.URL + "/herd?id_filter=40")
	body = read(t, resp)
	if strings.Contains(body, `data-id="12"`) || !strings.Contains(body, `data-id="40"`) {
		t.Fatalf("filter should keep only cow 40:\n%s", body)
	}
	reqs := f.herd.RequestsTo("/herd/list/filter")
	if len(reqs) != 1 || reqs[0].Form["id_filter"][0] != "40" {
		t.Fatalf("unexpected filter requests %+v", reqs)
	}
}

func TestSubmit_JSONStatusAndRefresh(t *testing.T) {
	f := newFixture(t)

	resp, err := http.PostForm(f.srv.URL+"/forms/add-cow", url.Values{"id": {"12"}, "birth_date": {"2021-04-03"}})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	body := read(t, resp)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "12 a été ajoutée avec succès !") || !strings.Contains(body, "alert-success") {
		t.Fatalf("unexpected status fragment %d:\n%s", resp.StatusCode, body)
	}
	if ids := f.dash.HerdView().Rows; len(ids) != 1 || ids[0].ID != "12" {
		t.Fatalf("herd table not refreshed: %+v", ids)
	}

	resp, _ = http.Get(f.srv.URL + "/forms/add-cow/status")
	if again := read(t, resp); again != body {
		t.Fatalf("stored status differs:\n%s\n%s", body, again)
	}

	resp, _ = http.PostForm(f.srv.URL+"/forms/add-cow", url.Values{"id": {"12"}})
	body = read(t, resp)
	if !strings.Contains(body, "la vache 12 existe déjà") || !strings.Contains(body, "alert-danger") {
		t.Fatalf("expected failure fragment:\n%s", body)
	}
}

func TestSubmit_StreamsDownloadOnce(t *testing.T) {
	f := newFixture(t)
	f.herd.SetList("stock", map[string]any{"Ivomec": 3})

	resp, err := http.PostForm(f.srv.URL+"/forms/export-stock", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	body := read(t, resp)
	if body != "medicament;quantite\nIvomec;3\n" {
		t.Fatalf("unexpected download %q", body)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != "attachment; filename=pharmacie_2024.csv" {
		t.Fatalf("unexpected disposition %q", cd)
	}

	resp, _ = http.PostForm(f.srv.URL+"/forms/export-stock", nil)
	read(t, resp)
	if resp.StatusCode != http.StatusGone {
		t.Fatalf("one-shot form should be gone, got %d", resp.StatusCode)
	}
}

func TestSubmit_LoginRedirect(t *testing.T) {
	f := newFixture(t)

	resp, err := noRedirect().PostForm(f.srv.URL+"/forms/login", url.Values{"email": {testsupport.Email}, "password": {"wrong"}})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if body := read(t, resp); !strings.Contains(body, "Erreur : incorect password") {
		t.Fatalf("expected failure status:\n%s", body)
	}

	resp, err = noRedirect().PostForm(f.srv.URL+"/forms/login", url.Values{"email": {testsupport.Email}, "password": {testsupport.Password}})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	read(t, resp)
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != f.herd.URL+"/" {
		t.Fatalf("expected redirect to the herd home page, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestSubmit_UnknownForm(t *testing.T) {
	f := newFixture(t)
	resp, _ := http.PostForm(f.srv.URL+"/forms/missing", nil)
	read(t, resp)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown form status %d", resp.StatusCode)
	}
}
