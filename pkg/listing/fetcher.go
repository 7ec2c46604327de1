package listing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-herdform/pkg/envelope"
)

// AppError is a list or validate response whose envelope reported failure.
type AppError struct {
	Source  string
	Message string
}

func (e *AppError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("listing: %s: request failed", e.Source)
	}
	return fmt.Sprintf("listing: %s: %s", e.Source, e.Message)
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the HTTP client (share the submit client's cookie jar).
func WithHTTPClient(hc *http.Client) Option {
	return func(f *Fetcher) {
		if hc != nil {
			f.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.log = l
		}
	}
}

// WithHerdEndpoints overrides the herd list and filter paths.
func WithHerdEndpoints(list, filter string) Option {
	return func(f *Fetcher) {
		if list != "" {
			f.herdList = list
		}
		if filter != "" {
			f.herdFilter = filter
		}
	}
}

// Default herd endpoints.
const (
	DefaultHerdEndpoint   = "/herd/list"
	DefaultFilterEndpoint = "/herd/list/filter"
	// FilterField is the form field carrying the identifier fragment.
	FilterField = "id_filter"
)

// Fetcher reads list endpoints relative to a base URL.
type Fetcher struct {
	base       *url.URL
	http       *http.Client
	log        *zap.Logger
	herdList   string
	herdFilter string
}

// NewFetcher builds a Fetcher for base.
func NewFetcher(base *url.URL, opts ...Option) *Fetcher {
	f := &Fetcher{
		base:       base,
		http:       http.DefaultClient,
		log:        zap.NewNop(),
		herdList:   DefaultHerdEndpoint,
		herdFilter: DefaultFilterEndpoint,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Fetch loads src and returns its ordered entries. A response that is not
// JSON is a *envelope.ContentTypeError; an envelope with success false is an
// *AppError.
func (f *Fetcher) Fetch(ctx context.Context, src Source) (Listing, error) {
	req, err := f.request(ctx, http.MethodGet, src.Endpoint, nil, "")
	if err != nil {
		return Listing{}, fmt.Errorf("listing: %s: %w", src.Name, err)
	}

	result, err := f.envelope(req)
	if err != nil {
		f.log.Warn("list fetch failed", zap.String("list", src.Name), zap.Error(err))
		return Listing{}, fmt.Errorf("listing: %s: %w", src.Name, err)
	}
	if !result.Success {
		return Listing{}, &AppError{Source: src.Name, Message: result.Message}
	}

	payload := map[string]json.RawMessage{}
	if result.Has(src.Key) {
		if err := result.Decode(src.Key, &payload); err != nil {
			return Listing{}, fmt.Errorf("listing: %s: payload %q: %w", src.Name, src.Key, err)
		}
	}

	listing := Listing{Source: src, Entries: Entries(src.Kind, payload)}
	f.log.Debug("list fetched", zap.String("list", src.Name), zap.Int("entries", len(listing.Entries)))
	return listing, nil
}

// Validate posts {"cow_id": id} to the action endpoint. The envelope is
// returned as is; callers decide what success false means.
func (f *Fetcher) Validate(ctx context.Context, action Action, id string) (envelope.Result, error) {
	body, err := json.Marshal(map[string]string{"cow_id": id})
	if err != nil {
		return envelope.Result{}, fmt.Errorf("listing: validate: %w", err)
	}
	req, err := f.request(ctx, http.MethodPost, action.Endpoint, bytes.NewReader(body), "application/json")
	if err != nil {
		return envelope.Result{}, fmt.Errorf("listing: validate %s: %w", id, err)
	}
	result, err := f.envelope(req)
	if err != nil {
		f.log.Warn("validate failed", zap.String("endpoint", action.Endpoint), zap.String("id", id), zap.Error(err))
		return envelope.Result{}, fmt.Errorf("listing: validate %s: %w", id, err)
	}
	return result, nil
}

func (f *Fetcher) request(ctx context.Context, method, endpoint string, body io.Reader, contentType string) (*http.Request, error) {
	target, err := f.resolve(endpoint)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (f *Fetcher) resolve(endpoint string) (string, error) {
	ref, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if f.base == nil {
		if !ref.IsAbs() {
			return "", fmt.Errorf("relative endpoint %q without base URL", endpoint)
		}
		return ref.String(), nil
	}
	return f.base.ResolveReference(ref).String(), nil
}

func (f *Fetcher) do(req *http.Request) (*http.Response, error) {
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	if err := envelope.RequireJSON(resp.Header.Get("Content-Type")); err != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func (f *Fetcher) envelope(req *http.Request) (envelope.Result, error) {
	resp, err := f.do(req)
	if err != nil {
		return envelope.Result{}, err
	}
	defer resp.Body.Close()
	return envelope.Decode(resp.Body)
}

func formBody(values url.Values) io.Reader {
	return strings.NewReader(values.Encode())
}
