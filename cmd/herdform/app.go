package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"os"

	"go.uber.org/zap"

	"github.com/goliatone/go-herdform"
	"github.com/goliatone/go-herdform/internal/config"
	"github.com/goliatone/go-herdform/internal/prompt"
	"github.com/goliatone/go-herdform/pkg/dashboard"
	"github.com/goliatone/go-herdform/pkg/datefmt"
	"github.com/goliatone/go-herdform/pkg/herdfilter"
	"github.com/goliatone/go-herdform/pkg/listing"
	pkgopenapi "github.com/goliatone/go-herdform/pkg/openapi"
	"github.com/goliatone/go-herdform/pkg/page"
	"github.com/goliatone/go-herdform/pkg/render"
	"github.com/goliatone/go-herdform/pkg/renderers/html"
	"github.com/goliatone/go-herdform/pkg/renderers/text"
	"github.com/goliatone/go-herdform/pkg/submit"
)

// loginFormID is the form used by --login and the login command.
const loginFormID = "login"

// session is one connection to the herd application.
type session struct {
	cfg      *config.Config
	base     *url.URL
	client   *http.Client
	dash     *dashboard.Dashboard
	renderer render.Renderer
	registry *render.Registry
	opts     render.RenderOptions
	out      io.Writer
	log      *zap.Logger
}

// newSession loads the page forms and builds the dashboard. The alerts
// raised by the dashboard are written to out.
func newSession(ctx context.Context, out io.Writer) (*session, error) {
	base, err := cfg.BaseURL()
	if err != nil {
		return nil, err
	}
	hc, err := submit.NewHTTPClient(cfg.Server.Timeout)
	if err != nil {
		return nil, err
	}
	registry, err := renderers()
	if err != nil {
		return nil, err
	}
	r, err := registry.Get(rendererName)
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:      cfg,
		base:     base,
		client:   hc,
		renderer: r,
		registry: registry,
		opts:     renderOptions(cfg),
		out:      out,
		log:      logger,
	}

	pg, err := s.loadPage(ctx)
	if err != nil {
		return nil, err
	}

	submitter := submit.New(
		submit.WithBaseURL(base),
		submit.WithHTTPClient(hc),
		submit.WithSink(&submit.DirSink{Dir: cfg.Downloads.Dir}),
		submit.WithLogger(logger),
	)
	fetcher := listing.NewFetcher(base, listing.WithHTTPClient(hc), listing.WithLogger(logger))
	s.dash, err = dashboard.New(pg, submitter, fetcher,
		dashboard.WithSources(cfg.Sources()...),
		dashboard.WithFormatter(datefmt.New(cfg.Render.Locale)),
		dashboard.WithAlerter(dashboard.AlerterFunc(s.alert)),
		dashboard.WithLogger(logger),
		dashboard.WithFilterOptions(
			herdfilter.WithDebounce(cfg.Filter.Debounce),
			herdfilter.WithLogger(logger),
		),
	)
	if err != nil {
		return nil, err
	}

	if loginEmail != "" {
		if err := s.login(ctx, prompt.NewSurvey(), loginEmail); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func renderers() (*render.Registry, error) {
	h, err := html.New()
	if err != nil {
		return nil, err
	}
	return render.NewRegistry(text.New(), h)
}

func renderOptions(c *config.Config) render.RenderOptions {
	manifest := render.DefaultManifest()
	maps.Copy(manifest.Tokens, c.Render.Tokens)
	return render.RenderOptions{
		Messages: c.MessageMode(),
		Theme:    render.ThemeConfig(manifest, c.Render.Variant),
	}
}

// loadPage discovers the forms from the OpenAPI contract when one is
// configured, otherwise from the page markup.
func (s *session) loadPage(ctx context.Context) (*page.Page, error) {
	if loc := s.cfg.Server.OpenAPI; loc != "" {
		src, err := pkgopenapi.SourceFor(loc)
		if err != nil {
			return nil, err
		}
		loader := herdform.NewLoader(pkgopenapi.WithHTTPClient(s.client), pkgopenapi.WithHTTPFallback(s.cfg.Server.Timeout))
		return herdform.DiscoverForms(ctx, loader, nil, src, pkgopenapi.WithBaseURL(s.base))
	}

	ref, err := url.Parse(s.cfg.Forms.Page)
	if err != nil {
		return nil, fmt.Errorf("forms page: %w", err)
	}
	target := s.base.ResolveReference(ref)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch %s: HTTP %d", target, resp.StatusCode)
	}
	return page.Parse(resp.Body,
		page.WithBaseURL(target),
		page.WithFormClass(s.cfg.Forms.Class),
		page.WithStatusPolicy(s.cfg.StatusPolicy()),
	)
}

// login submits the login form. The session cookie stays in the client jar.
func (s *session) login(ctx context.Context, d prompt.Driver, email string) error {
	email, password, err := prompt.Credentials(ctx, d, email)
	if err != nil {
		return err
	}
	out, err := s.dash.Submit(ctx, loginFormID, url.Values{"email": {email}, "password": {password}})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if out.Kind != submit.KindRedirect {
		return fmt.Errorf("login: %s", out.Status.Text)
	}
	s.log.Debug("logged in", zap.String("email", email), zap.String("location", out.Location))
	return nil
}

func (s *session) alert(ctx context.Context, view render.AlertView) {
	body, err := s.renderer.RenderAlert(ctx, view, s.opts)
	if err != nil {
		s.log.Warn("render alert", zap.Error(err))
		return
	}
	s.write(body)
}

func (s *session) status(ctx context.Context, formID string) error {
	view, err := s.dash.Status(formID)
	if err != nil {
		return err
	}
	body, err := s.renderer.RenderStatus(ctx, view, s.opts)
	if err != nil {
		return err
	}
	s.write(body)
	return nil
}

func (s *session) list(ctx context.Context, view render.ListView) error {
	body, err := s.renderer.RenderList(ctx, view, s.opts)
	if err != nil {
		return err
	}
	s.write(body)
	return nil
}

func (s *session) write(body []byte) {
	if len(body) == 0 {
		return
	}
	out := s.out
	if out == nil {
		out = os.Stdout
	}
	_, _ = out.Write(body)
	if body[len(body)-1] != '\n' {
		_, _ = io.WriteString(out, "\n")
	}
}
