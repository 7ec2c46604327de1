package fragments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/goliatone/go-herdform/pkg/dashboard"
	"github.com/goliatone/go-herdform/pkg/envelope"
	"github.com/goliatone/go-herdform/pkg/herdfilter"
	"github.com/goliatone/go-herdform/pkg/listing"
	"github.com/goliatone/go-herdform/pkg/render"
	"github.com/goliatone/go-herdform/pkg/renderers/html"
	"github.com/goliatone/go-herdform/pkg/submit"
)

// maxFormMemory bounds the multipart fields kept in memory per submission.
const maxFormMemory = 10 << 20

// Option configures a Handler.
type Option func(*Handler)

// WithRenderer replaces the html renderer.
func WithRenderer(r render.Renderer) Option {
	return func(h *Handler) {
		if r != nil {
			h.renderer = r
		}
	}
}

// WithRenderOptions sets the message mode and theme used for every fragment.
func WithRenderOptions(opts render.RenderOptions) Option {
	return func(h *Handler) {
		h.opts = opts
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// Handler serves the fragments of one dashboard.
type Handler struct {
	dash     *dashboard.Dashboard
	renderer render.Renderer
	opts     render.RenderOptions
	log      *zap.Logger
}

// NewHandler builds a handler. The html renderer is used unless another one
// is configured.
func NewHandler(d *dashboard.Dashboard, opts ...Option) (*Handler, error) {
	if d == nil {
		return nil, errors.New("fragments: dashboard is required")
	}
	h := &Handler{dash: d, log: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.renderer == nil {
		r, err := html.New()
		if err != nil {
			return nil, fmt.Errorf("fragments: %w", err)
		}
		h.renderer = r
	}
	return h, nil
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

// List refreshes a list and renders its area. Load failures still render
// the area, with the error text in place of the table.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	view, err := h.dash.Load(r.Context(), name)
	if errors.Is(err, dashboard.ErrUnknownList) {
		http.NotFound(w, r)
		return
	}
	status := http.StatusOK
	if err != nil {
		status = http.StatusBadGateway
	}
	h.write(w, r, status, func(ctx context.Context) ([]byte, error) {
		return h.renderer.RenderList(ctx, view, h.opts)
	})
}

// Validate runs a row's validate action and answers with an envelope: 200
// when the row was validated, 422 otherwise.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	name, id := chi.URLParam(r, "name"), chi.URLParam(r, "id")
	res, err := h.dash.Validate(r.Context(), name, id)
	switch {
	case errors.Is(err, dashboard.ErrUnknownList), errors.Is(err, dashboard.ErrNoAction):
		http.NotFound(w, r)
		return
	case err != nil:
		h.log.Warn("validate failed", zap.String("list", name), zap.String("id", id), zap.Error(err))
	}

	result := envelope.Fail(res.Alert.Text)
	status := http.StatusUnprocessableEntity
	if res.Alert.Tone == submit.ToneSuccess {
		result = envelope.OK(res.Alert.Text)
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

// Herd renders the herd table for the id_filter query value. Values that do
// not start with an integer list the whole herd.
func (h *Handler) Herd(w http.ResponseWriter, r *http.Request) {
	view, err := h.dash.Filter(r.Context(), r.URL.Query().Get(listing.FilterField))
	status := http.StatusOK
	if err != nil && !errors.Is(err, herdfilter.ErrSuperseded) {
		view.Error = dashboard.HerdErrorText
		status = http.StatusBadGateway
	}
	h.write(w, r, status, func(ctx context.Context) ([]byte, error) {
		return h.renderer.RenderList(ctx, view, h.opts)
	})
}

// Submit sends a form upstream with the posted values. File responses are
// streamed back as attachments; redirects are passed on; everything else
// answers with the form's status fragment.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "id")
	overrides, err := postedValues(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	streamed := false
	sink := submit.SinkFunc(func(_ context.Context, file submit.File, body io.Reader) (submit.Saved, error) {
		if file.ContentType != "" {
			w.Header().Set("Content-Type", file.ContentType)
		}
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
		if file.Size >= 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
		}
		streamed = true
		n, err := io.Copy(w, body)
		return submit.Saved{Name: file.Name, Size: n}, err
	})

	out, err := h.dash.Submit(r.Context(), formID, overrides, submit.ToSink(sink))
	switch {
	case errors.Is(err, dashboard.ErrUnknownForm):
		http.NotFound(w, r)
		return
	case errors.Is(err, dashboard.ErrFormRemoved):
		http.Error(w, err.Error(), http.StatusGone)
		return
	case streamed:
		if err != nil {
			h.log.Warn("download interrupted", zap.String("form", formID), zap.Error(err))
		}
		return
	case err == nil && out.Kind == submit.KindRedirect:
		http.Redirect(w, r, out.Location, http.StatusSeeOther)
		return
	}

	status := http.StatusOK
	if err != nil {
		h.log.Warn("submit failed", zap.String("form", formID), zap.Error(err))
		status = http.StatusBadGateway
	}
	h.renderStatus(w, r, status, formID)
}

// Status renders the last status of a form.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	h.renderStatus(w, r, http.StatusOK, chi.URLParam(r, "id"))
}

func (h *Handler) renderStatus(w http.ResponseWriter, r *http.Request, status int, formID string) {
	view, err := h.dash.Status(formID)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	h.write(w, r, status, func(ctx context.Context) ([]byte, error) {
		return h.renderer.RenderStatus(ctx, view, h.opts)
	})
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, status int, render func(context.Context) ([]byte, error)) {
	body, err := render(r.Context())
	if err != nil {
		h.log.Error("render failed", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", h.renderer.ContentType())
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func postedValues(r *http.Request) (url.Values, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return nil, fmt.Errorf("fragments: parse form: %w", err)
		}
		return url.Values(r.MultipartForm.Value), nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("fragments: parse form: %w", err)
	}
	return r.PostForm, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
