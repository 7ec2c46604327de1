package testsupport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// HomePage is the dashboard document served at "/". Its forms mirror the
// herd application's pages.
const HomePage = `<!doctype html>
<html lang="fr"><body>
  <form id="add-cow" class="ajax-form" action="/herd/acquire" method="post" data-refresh="herd">
    <input type="number" name="id">
    <input type="date" name="birth_date">
  </form>
  <div id="message-add-cow" class="alert" style="display:none"></div>

  <form id="export-stock" class="ajax-form one-shot" action="/download" method="post">
    <input type="number" name="export_year" value="2024">
  </form>
  <div id="message-export-stock" class="alert" style="display:none"></div>

  <form id="remaining-care" class="ajax-form" action="/download_remaining_care" method="post"></form>

  <form id="login" class="ajax-form" action="/login" method="post" data-non-json="redirect">
    <input type="email" name="email">
    <input type="password" name="password">
  </form>
  <div id="message-login" class="alert" style="display:none"></div>
</body></html>`

// Credentials accepted by the fake login endpoint.
const (
	Email    = "eleveur@example.com"
	Password = "secret"
)

// SessionCookie is set by a successful login.
const SessionCookie = "session"

// HerdCow is one cow of the fake herd. An empty BornDate is sent as null.
type HerdCow struct {
	ID       int
	BornDate string
}

// RecordedRequest is a request the fake server received.
type RecordedRequest struct {
	Method      string
	Path        string
	ContentType string
	Form        map[string][]string
	JSON        map[string]any
}

// HerdServer fakes the herd application's JSON and download endpoints.
type HerdServer struct {
	*httptest.Server

	mu         sync.Mutex
	lists      map[string]map[string]any
	listErrors map[string]string
	failures   map[string]string
	cows       []HerdCow
	requests   []RecordedRequest
}

// listRoutes maps list endpoints to their payload keys.
var listRoutes = map[string]string{
	"/get_stock":                "stock",
	"/show_dry":                 "dry",
	"/show_calving_preparation": "calving_preparation",
	"/show_calving_date":        "calving",
}

// validateRoutes maps validate endpoints to the list they remove rows from.
var validateRoutes = map[string]string{
	"/validate_dry":                 "dry",
	"/validate_calving_preparation": "calving_preparation",
}

// NewHerdServer starts a fake herd application closed with the test.
func NewHerdServer(t testing.TB) *HerdServer {
	t.Helper()
	s := &HerdServer{
		lists:      make(map[string]map[string]any),
		listErrors: make(map[string]string),
		failures:   make(map[string]string),
	}
	for _, key := range listRoutes {
		s.lists[key] = map[string]any{}
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *HerdServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(HomePage))
	})
	for path, key := range listRoutes {
		r.Get(path, s.list(key))
	}
	for path, key := range validateRoutes {
		r.Post(path, s.validate(key))
	}
	r.Get("/herd/list", s.herd)
	r.Post("/herd/list/filter", s.herd)
	r.Post("/herd/acquire", s.acquire)
	r.Post("/download", s.download)
	r.Post("/download_remaining_care", s.remainingCare)
	r.Post("/login", s.login)
	return r
}

// SetList replaces the payload of a list key ("dry", "stock", ...).
func (s *HerdServer) SetList(key string, payload map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[key] = payload
}

// ListPayload returns a copy of a list payload.
func (s *HerdServer) ListPayload(key string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.lists[key]))
	for k, v := range s.lists[key] {
		out[k] = v
	}
	return out
}

// FailList makes a list endpoint answer with an application error.
func (s *HerdServer) FailList(key, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listErrors[key] = message
}

// FailValidate makes validating cowID fail with message.
func (s *HerdServer) FailValidate(cowID, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[cowID] = message
}

// SetHerd replaces the herd.
func (s *HerdServer) SetHerd(cows ...HerdCow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cows = append([]HerdCow(nil), cows...)
}

// Requests returns the recorded requests.
func (s *HerdServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// RequestsTo returns the recorded requests for path.
func (s *HerdServer) RequestsTo(path string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range s.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (s *HerdServer) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := RecordedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			ContentType: r.Header.Get("Content-Type"),
		}
		switch {
		case strings.HasPrefix(rec.ContentType, "application/json"):
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
				rec.JSON = body
			}
			r.Body = http.NoBody
			r = r.WithContext(context.WithValue(r.Context(), jsonBodyKey{}, body))
		case strings.HasPrefix(rec.ContentType, "multipart/form-data"):
			if err := r.ParseMultipartForm(1 << 20); err == nil {
				rec.Form = r.MultipartForm.Value
			}
		case r.Method == http.MethodPost:
			if err := r.ParseForm(); err == nil {
				rec.Form = r.PostForm
			}
		}
		s.mu.Lock()
		s.requests = append(s.requests, rec)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *HerdServer) list(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		msg, failed := s.listErrors[key]
		payload := s.lists[key]
		s.mu.Unlock()
		if failed {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": msg})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, key: payload})
	}
}

func (s *HerdServer) validate(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := jsonBody(r.Context())
		raw, ok := body["cow_id"]
		if !ok || raw == nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "cow_id manquant"})
			return
		}
		id := fmt.Sprint(raw)

		s.mu.Lock()
		msg, failed := s.failures[id]
		if !failed {
			delete(s.lists[key], id)
		}
		s.mu.Unlock()

		if failed {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": msg})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "validé"})
	}
}

func (s *HerdServer) herd(w http.ResponseWriter, r *http.Request) {
	filter := ""
	if r.Method == http.MethodPost {
		filter = r.PostFormValue("id_filter")
	}
	s.mu.Lock()
	cows := slices.Clone(s.cows)
	s.mu.Unlock()

	out := make([]map[string]any, 0, len(cows))
	for _, cow := range cows {
		if !strings.Contains(strconv.Itoa(cow.ID), filter) {
			continue
		}
		var born any
		if cow.BornDate != "" {
			born = cow.BornDate
		}
		out = append(out, map[string]any{"cow_id": cow.ID, "born_date": born})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *HerdServer) acquire(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PostFormValue("id"))
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Erreur : " + err.Error()})
		return
	}
	s.mu.Lock()
	for _, cow := range s.cows {
		if cow.ID == id {
			s.mu.Unlock()
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": fmt.Sprintf("Erreur : la vache %d existe déjà", id)})
			return
		}
	}
	s.cows = append(s.cows, HerdCow{ID: id, BornDate: r.PostFormValue("birth_date")})
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": fmt.Sprintf("%d a été ajoutée avec succès !", id)})
}

func (s *HerdServer) download(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.PostFormValue("export_year"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "année invalide"})
		return
	}
	s.mu.Lock()
	stock := s.lists["stock"]
	names := make([]string, 0, len(stock))
	for name := range stock {
		names = append(names, name)
	}
	slices.Sort(names)
	var b strings.Builder
	b.WriteString("medicament;quantite\n")
	for _, name := range names {
		fmt.Fprintf(&b, "%s;%v\n", name, stock[name])
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="pharmacie_%d.csv"`, year))
	_, _ = w.Write([]byte(b.String()))
}

func (s *HerdServer) remainingCare(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="traitement.xlsx"`)
	_, _ = w.Write([]byte("PK\x03\x04"))
}

func (s *HerdServer) login(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.PostFormValue("email") != Email:
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Erreur : mail inconnue"})
	case r.PostFormValue("password") != Password:
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Erreur : incorect password"})
	default:
		http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "ok", Path: "/"})
		http.Redirect(w, r, "/", http.StatusFound)
	}
}

type jsonBodyKey struct{}

func jsonBody(ctx context.Context) map[string]any {
	body, _ := ctx.Value(jsonBodyKey{}).(map[string]any)
	return body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
