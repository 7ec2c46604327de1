// Package dashboard is the page controller: it owns the form bindings, list
// tables and herd table of one page, built once and reused for every
// interaction.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-herdform/pkg/datefmt"
	"github.com/goliatone/go-herdform/pkg/envelope"
	"github.com/goliatone/go-herdform/pkg/herdfilter"
	"github.com/goliatone/go-herdform/pkg/listing"
	"github.com/goliatone/go-herdform/pkg/page"
	"github.com/goliatone/go-herdform/pkg/render"
	"github.com/goliatone/go-herdform/pkg/submit"
	"github.com/goliatone/go-herdform/pkg/table"
)

// HerdList is the refresh target naming the herd table.
const HerdList = "herd"

// Fixed texts shown by the pages.
const (
	LoadErrorText     = "Erreur lors du chargement."
	ValidateErrorText = "Erreur lors de la validation."
	HerdErrorText     = "Impossible de récupérer la liste des vaches."
	errorPrefix       = "Erreur : "
)

var (
	ErrUnknownForm = errors.New("dashboard: unknown form")
	ErrFormRemoved = errors.New("dashboard: form already submitted")
	ErrUnknownList = errors.New("dashboard: unknown list")
	ErrNoAction    = errors.New("dashboard: list has no validate action")
)

// Submitter is implemented by *submit.Client.
type Submitter interface {
	Submit(ctx context.Context, desc page.FormDescriptor, overrides url.Values, opts ...submit.CallOption) (submit.Outcome, error)
}

// Lister is implemented by *listing.Fetcher.
type Lister interface {
	herdfilter.Querier
	Fetch(ctx context.Context, src listing.Source) (listing.Listing, error)
	Validate(ctx context.Context, action listing.Action, id string) (envelope.Result, error)
}

var (
	_ Submitter = (*submit.Client)(nil)
	_ Lister    = (*listing.Fetcher)(nil)
)

// Alerter shows one-off notices.
type Alerter interface {
	Alert(ctx context.Context, view render.AlertView)
}

// AlerterFunc adapts a function to Alerter.
type AlerterFunc func(ctx context.Context, view render.AlertView)

// Alert implements Alerter.
func (f AlerterFunc) Alert(ctx context.Context, view render.AlertView) {
	f(ctx, view)
}

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithSources replaces the built-in list sources.
func WithSources(sources ...listing.Source) Option {
	return func(d *Dashboard) {
		d.sources = sources
	}
}

// WithFormatter sets the date formatter.
func WithFormatter(f datefmt.Formatter) Option {
	return func(d *Dashboard) {
		d.formatter = f
	}
}

// WithAlerter sets where validation alerts go.
func WithAlerter(a Alerter) Option {
	return func(d *Dashboard) {
		if a != nil {
			d.alerter = a
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dashboard) {
		if l != nil {
			d.log = l
		}
	}
}

// WithFilterOptions configures the herd filter controller.
func WithFilterOptions(opts ...herdfilter.Option) Option {
	return func(d *Dashboard) {
		d.filterOpts = append(d.filterOpts, opts...)
	}
}

type listState struct {
	mu    sync.Mutex
	src   listing.Source
	table *table.Table
	err   string
}

// Dashboard holds the state of one page.
type Dashboard struct {
	page      *page.Page
	submitter Submitter
	lister    Lister
	formatter datefmt.Formatter
	alerter   Alerter
	log       *zap.Logger

	sources    []listing.Source
	filterOpts []herdfilter.Option
	order      []string
	lists      map[string]*listState
	filter     *herdfilter.Controller

	mu       sync.Mutex
	statuses map[string]submit.Status
	removed  map[string]bool

	herdMu sync.Mutex
	herd   *table.Table
}

// New builds the view-model for pg. List names must be unique and must not
// collide with HerdList.
func New(pg *page.Page, submitter Submitter, lister Lister, opts ...Option) (*Dashboard, error) {
	if lister == nil {
		return nil, errors.New("dashboard: lister is required")
	}
	if pg == nil {
		pg, _ = page.New()
	}
	d := &Dashboard{
		page:      pg,
		submitter: submitter,
		lister:    lister,
		formatter: datefmt.New(datefmt.DefaultLocale),
		alerter:   AlerterFunc(func(context.Context, render.AlertView) {}),
		log:       zap.NewNop(),
		sources:   listing.Builtins(),
		lists:     make(map[string]*listState),
		statuses:  make(map[string]submit.Status),
		removed:   make(map[string]bool),
		herd:      table.New(listing.HerdColumns...),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}

	registry, err := listing.NewRegistry(d.sources...)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	if _, clash := registry.Get(HerdList); clash {
		return nil, fmt.Errorf("dashboard: list name %q is reserved", HerdList)
	}
	for _, src := range d.sources {
		d.order = append(d.order, src.Name)
		d.lists[src.Name] = &listState{src: src, table: table.New(src.Columns...)}
	}
	d.filter = herdfilter.New(lister, append([]herdfilter.Option{herdfilter.WithLogger(d.log)}, d.filterOpts...)...)
	return d, nil
}

// Page returns the form descriptors the dashboard was built with.
func (d *Dashboard) Page() *page.Page {
	return d.page
}

// Lists returns list names in configuration order.
func (d *Dashboard) Lists() []string {
	return append([]string(nil), d.order...)
}

// Source returns the configuration of a list.
func (d *Dashboard) Source(name string) (listing.Source, bool) {
	st, ok := d.lists[name]
	if !ok {
		return listing.Source{}, false
	}
	return st.src, true
}

// Formatter returns the date formatter.
func (d *Dashboard) Formatter() datefmt.Formatter {
	return d.formatter
}

// FilterController exposes the herd filter controller and its generations.
func (d *Dashboard) FilterController() *herdfilter.Controller {
	return d.filter
}

// LoadAll loads every list concurrently. Each failure is kept in its list
// view; the joined failures are returned.
func (d *Dashboard) LoadAll(ctx context.Context) error {
	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range d.order {
		g.Go(func() error {
			if _, err := d.Load(gctx, name); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Load fetches one list and merges it into its table by identifier.
func (d *Dashboard) Load(ctx context.Context, name string) (render.ListView, error) {
	st, ok := d.lists[name]
	if !ok {
		return render.ListView{}, fmt.Errorf("%w: %q", ErrUnknownList, name)
	}

	listed, err := d.lister.Fetch(ctx, st.src)

	st.mu.Lock()
	defer st.mu.Unlock()
	if err != nil {
		var appErr *listing.AppError
		if errors.As(err, &appErr) {
			st.err = errorPrefix + appErr.Message
		} else {
			st.err = LoadErrorText
		}
		d.log.Warn("list load failed", zap.String("list", name), zap.Error(err))
		return st.view(), err
	}

	st.err = ""
	stats := st.table.Merge(listed.Rows(d.formatter))
	d.log.Debug("list loaded",
		zap.String("list", name),
		zap.Int("added", stats.Added),
		zap.Int("updated", stats.Updated),
		zap.Int("removed", stats.Removed),
	)
	return st.view(), nil
}

// List returns the current view of a list without fetching.
func (d *Dashboard) List(name string) (render.ListView, error) {
	st, ok := d.lists[name]
	if !ok {
		return render.ListView{}, fmt.Errorf("%w: %q", ErrUnknownList, name)
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.view(), nil
}

func (st *listState) view() render.ListView {
	return render.ListView{
		Name:      st.src.Name,
		Title:     st.src.Title,
		Columns:   append([]string(nil), st.table.Columns...),
		Rows:      st.table.Rows(),
		EmptyText: st.src.EmptyText,
		Error:     st.err,
	}
}

// ValidateResult reports what a row validation did.
type ValidateResult struct {
	Removed bool
	Alert   render.AlertView
	List    render.ListView
}

// Validate runs the list's validate action for row id. On success exactly
// that row is removed; on failure the row stays. Both outcomes raise an
// alert.
func (d *Dashboard) Validate(ctx context.Context, name, id string) (ValidateResult, error) {
	st, ok := d.lists[name]
	if !ok {
		return ValidateResult{}, fmt.Errorf("%w: %q", ErrUnknownList, name)
	}
	if st.src.Action == nil {
		return ValidateResult{}, fmt.Errorf("%w: %q", ErrNoAction, name)
	}

	res, err := d.lister.Validate(ctx, *st.src.Action, id)

	var out ValidateResult
	switch {
	case err != nil:
		out.Alert = render.AlertView{Tone: submit.ToneFailure, Text: ValidateErrorText}
	case !res.Success:
		out.Alert = render.AlertView{Tone: submit.ToneFailure, Text: errorPrefix + res.Message}
	default:
		text := st.src.Action.ConfirmText(id)
		if text == "" {
			text = res.Message
		}
		out.Alert = render.AlertView{Tone: submit.ToneSuccess, Text: text}
	}

	st.mu.Lock()
	if err == nil && res.Success {
		out.Removed = st.table.Remove(id)
	}
	out.List = st.view()
	st.mu.Unlock()

	d.alerter.Alert(ctx, out.Alert)
	if err != nil {
		d.log.Warn("validate failed", zap.String("list", name), zap.String("id", id), zap.Error(err))
		return out, fmt.Errorf("dashboard: validate %s/%s: %w", name, id, err)
	}
	return out, nil
}

// Forms returns the forms still on the page. One-shot forms disappear after
// their first success.
func (d *Dashboard) Forms() []page.FormDescriptor {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []page.FormDescriptor
	for _, f := range d.page.Forms() {
		if !d.removed[f.ID] {
			out = append(out, f)
		}
	}
	return out
}

// Status returns the status view of a form.
func (d *Dashboard) Status(formID string) (render.StatusView, error) {
	desc, ok := d.page.Form(formID)
	if !ok {
		return render.StatusView{}, fmt.Errorf("%w: %q", ErrUnknownForm, formID)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return render.StatusFor(desc, d.statuses[formID]), nil
}

// Submit sends a form and records its status. After any JSON reply, failed
// envelopes included, and after any other successful outcome, the lists named
// in the form's refresh targets are reloaded; refresh failures are logged and
// kept in the list views.
func (d *Dashboard) Submit(ctx context.Context, formID string, overrides url.Values, opts ...submit.CallOption) (submit.Outcome, error) {
	desc, ok := d.page.Form(formID)
	if !ok {
		return submit.Outcome{}, fmt.Errorf("%w: %q", ErrUnknownForm, formID)
	}
	if d.submitter == nil {
		return submit.Outcome{}, errors.New("dashboard: no submitter configured")
	}
	d.mu.Lock()
	gone := d.removed[formID]
	d.mu.Unlock()
	if gone {
		return submit.Outcome{}, fmt.Errorf("%w: %q", ErrFormRemoved, formID)
	}

	out, err := d.submitter.Submit(ctx, desc, overrides, opts...)

	d.mu.Lock()
	d.statuses[formID] = out.Status
	if out.RemoveForm {
		d.removed[formID] = true
	}
	d.mu.Unlock()

	if err == nil && (out.Kind == submit.KindResult || out.Status.Tone != submit.ToneFailure) {
		d.refresh(ctx, desc.Refresh)
	}
	return out, err
}

func (d *Dashboard) refresh(ctx context.Context, targets []string) {
	for _, target := range targets {
		var err error
		if target == HerdList {
			_, err = d.Herd(ctx)
		} else {
			_, err = d.Load(ctx, target)
		}
		if err != nil {
			d.log.Warn("refresh failed", zap.String("target", target), zap.Error(err))
		}
	}
}

// Herd reloads the full herd table.
func (d *Dashboard) Herd(ctx context.Context) (render.ListView, error) {
	return d.Filter(ctx, "")
}

// Filter applies a herd filter input. Inputs that do not start with an
// integer list the whole herd. A request overtaken by a newer input returns
// herdfilter.ErrSuperseded and leaves the table untouched.
func (d *Dashboard) Filter(ctx context.Context, input string) (render.ListView, error) {
	res, err := d.filter.Apply(ctx, input)
	if errors.Is(err, herdfilter.ErrSuperseded) {
		return d.HerdView(), err
	}
	if err != nil {
		d.alerter.Alert(ctx, render.AlertView{Tone: submit.ToneFailure, Text: HerdErrorText})
		return d.HerdView(), err
	}
	if !d.ApplyHerd(res) {
		return d.HerdView(), herdfilter.ErrSuperseded
	}
	return d.HerdView(), nil
}

// ApplyHerd merges a filter result into the herd table if it is still the
// latest generation, and reports whether it did. The generation check and the
// merge happen under the controller lock.
func (d *Dashboard) ApplyHerd(res herdfilter.Result) bool {
	if res.Err != nil {
		return false
	}
	return d.filter.ApplyIfCurrent(res, d.mergeHerd)
}

// RunFilter feeds inputs to the filter controller until the channel closes
// or ctx ends. Each delivered result is merged into the herd table before
// onResult sees it with the resulting view; failed results leave the table
// as is. onResult must not call back into the filter.
func (d *Dashboard) RunFilter(ctx context.Context, inputs <-chan string, onResult func(herdfilter.Result, render.ListView)) error {
	return d.filter.Run(ctx, inputs, func(res herdfilter.Result) {
		if res.Err == nil {
			d.mergeHerd(res)
		}
		if onResult != nil {
			onResult(res, d.HerdView())
		}
	})
}

func (d *Dashboard) mergeHerd(res herdfilter.Result) {
	d.herdMu.Lock()
	defer d.herdMu.Unlock()
	d.herd.Merge(listing.HerdRows(res.Cows, d.formatter))
}

// HerdView returns the herd table.
func (d *Dashboard) HerdView() render.ListView {
	d.herdMu.Lock()
	defer d.herdMu.Unlock()
	return render.ListView{
		Name:    HerdList,
		Title:   "Troupeau",
		Columns: append([]string(nil), d.herd.Columns...),
		Rows:    d.herd.Rows(),
	}
}
