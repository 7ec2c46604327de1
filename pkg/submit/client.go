// Package submit posts form descriptors to the herd server and turns the
// response into a status view-model, a stored download, or a redirect.
package submit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/goliatone/go-herdform/pkg/envelope"
	"github.com/goliatone/go-herdform/pkg/page"
)

// RequestIDHeader carries the per-submission identifier.
const RequestIDHeader = "X-Request-ID"

// ErrRejected is returned when a form that only accepts JSON gets another
// content type.
var ErrRejected = errors.New("submit: response is not JSON")

// Kind classifies an Outcome.
type Kind string

const (
	KindResult   Kind = "result"
	KindDownload Kind = "download"
	KindRedirect Kind = "redirect"
	KindFailed   Kind = "failed"
)

// Outcome is the observable result of one submission.
type Outcome struct {
	FormID     string           `json:"form_id"`
	Kind       Kind             `json:"kind"`
	Status     Status           `json:"status"`
	HTTPStatus int              `json:"http_status,omitempty"`
	Result     *envelope.Result `json:"result,omitempty"`
	Download   *Saved           `json:"download,omitempty"`
	Location   string           `json:"location,omitempty"`
	// RemoveForm is set when a one-shot form succeeded and must go away.
	RemoveForm bool `json:"remove_form,omitempty"`
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL resolves relative form actions against base.
func WithBaseURL(base *url.URL) Option {
	return func(c *Client) {
		c.base = base
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithSink sets where file responses are stored.
func WithSink(s Sink) Option {
	return func(c *Client) {
		c.sink = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMessages overrides the fallback status texts. Empty entries keep their
// defaults.
func WithMessages(m Messages) Option {
	return func(c *Client) {
		c.messages = m.withDefaults()
	}
}

// WithTracker shares a Tracker between clients.
func WithTracker(t *Tracker) Option {
	return func(c *Client) {
		if t != nil {
			c.tracker = t
		}
	}
}

// Client submits forms.
type Client struct {
	base     *url.URL
	http     *http.Client
	sink     Sink
	log      *zap.Logger
	messages Messages
	tracker  *Tracker
}

// New builds a Client.
func New(opts ...Option) *Client {
	c := &Client{
		http:     http.DefaultClient,
		log:      zap.NewNop(),
		messages: DefaultMessages(),
		tracker:  &Tracker{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// NewHTTPClient returns an HTTP client with a cookie jar, so a login session
// survives across submissions.
func NewHTTPClient(timeout time.Duration) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("submit: cookie jar: %w", err)
	}
	return &http.Client{Jar: jar, Timeout: timeout}, nil
}

// Tracker exposes the per-form state tracker.
func (c *Client) Tracker() *Tracker {
	return c.tracker
}

// CallOption adjusts a single Submit call.
type CallOption func(*call)

type call struct {
	sink Sink
}

// ToSink stores a file response of this call in s instead of the client sink.
func ToSink(s Sink) CallOption {
	return func(c *call) {
		c.sink = s
	}
}

// Submit sends desc with its default values overlaid by overrides. The
// returned Outcome always carries the status to display, even when err is
// non-nil.
func (c *Client) Submit(ctx context.Context, desc page.FormDescriptor, overrides url.Values, opts ...CallOption) (Outcome, error) {
	desc = desc.Normalize()
	cfg := call{sink: c.sink}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	c.tracker.begin(desc.ID)
	defer c.tracker.end(desc.ID)

	requestID := uuid.NewString()
	log := c.log.With(
		zap.String("form", desc.ID),
		zap.String("method", desc.Method),
		zap.String("request_id", requestID),
	)

	req, err := c.newRequest(ctx, desc, desc.Merge(overrides))
	if err != nil {
		return c.failed(desc, 0, err), fmt.Errorf("submit: %s: %w", desc.ID, err)
	}
	req.Header.Set(RequestIDHeader, requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("submission failed", zap.Error(err))
		return c.failed(desc, 0, err), fmt.Errorf("submit: %s: %w", desc.ID, err)
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	log = log.With(zap.Int("status", resp.StatusCode), zap.String("content_type", contentType))

	if envelope.IsJSON(contentType) {
		return c.handleJSON(desc, resp, log)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		log.Warn("non JSON error response")
		out := c.outcome(desc, KindFailed, resp.StatusCode)
		out.Status = c.messages.httpFailure(resp.StatusCode)
		return out, fmt.Errorf("submit: %s: server returned %d", desc.ID, resp.StatusCode)
	}

	switch desc.NonJSON {
	case page.NonJSONRedirect:
		out := c.outcome(desc, KindRedirect, resp.StatusCode)
		out.Location = location(resp)
		log.Info("submission redirected", zap.String("location", out.Location))
		return out, nil
	case page.NonJSONReject:
		_, _ = io.Copy(io.Discard, resp.Body)
		out := c.outcome(desc, KindFailed, resp.StatusCode)
		out.Status = c.messages.failure(c.messages.NotJSON)
		return out, fmt.Errorf("submit: %s: %w: %w", desc.ID, ErrRejected, &envelope.ContentTypeError{Got: contentType, Want: "application/json"})
	default:
		return c.handleFile(ctx, desc, resp, cfg.sink, log)
	}
}

func (c *Client) handleJSON(desc page.FormDescriptor, resp *http.Response, log *zap.Logger) (Outcome, error) {
	result, err := envelope.Decode(resp.Body)
	if err != nil {
		log.Warn("invalid envelope", zap.Error(err))
		return c.failed(desc, resp.StatusCode, err), fmt.Errorf("submit: %s: %w", desc.ID, err)
	}

	out := c.outcome(desc, KindResult, resp.StatusCode)
	out.Result = &result
	if result.Success {
		out.Status = c.messages.success(result.Message)
		out.RemoveForm = desc.OneShot
	} else {
		out.Status = c.messages.failure(result.Message)
	}
	if desc.Silent() {
		out.Status.Visible = false
	}
	log.Debug("submission answered", zap.Bool("success", result.Success))
	return out, nil
}

func (c *Client) handleFile(ctx context.Context, desc page.FormDescriptor, resp *http.Response, sink Sink, log *zap.Logger) (Outcome, error) {
	if sink == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return c.failed(desc, resp.StatusCode, ErrNoSink), fmt.Errorf("submit: %s: %w", desc.ID, ErrNoSink)
	}

	file := File{
		Name:        envelope.Filename(resp.Header.Get("Content-Disposition")),
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
	}
	saved, err := sink.Save(ctx, file, resp.Body)
	if err != nil {
		log.Warn("download failed", zap.Error(err))
		return c.failed(desc, resp.StatusCode, err), fmt.Errorf("submit: %s: %w", desc.ID, err)
	}

	out := c.outcome(desc, KindDownload, resp.StatusCode)
	out.Download = &saved
	out.Status = c.messages.success(c.messages.Downloaded)
	out.RemoveForm = desc.OneShot
	if desc.Silent() {
		out.Status.Visible = false
	}
	log.Info("download stored", zap.String("file", saved.Name), zap.Int64("bytes", saved.Size))
	return out, nil
}

func (c *Client) outcome(desc page.FormDescriptor, kind Kind, code int) Outcome {
	return Outcome{FormID: desc.ID, Kind: kind, HTTPStatus: code}
}

func (c *Client) failed(desc page.FormDescriptor, code int, err error) Outcome {
	out := c.outcome(desc, KindFailed, code)
	out.Status = c.messages.failure(err.Error())
	if desc.Silent() {
		out.Status.Visible = false
	}
	return out
}

func (c *Client) newRequest(ctx context.Context, desc page.FormDescriptor, values url.Values) (*http.Request, error) {
	target, err := c.resolve(desc.Action)
	if err != nil {
		return nil, err
	}

	if desc.Method == http.MethodGet || desc.Method == http.MethodHead {
		q := target.Query()
		for key, vals := range values {
			for _, v := range vals {
				q.Add(key, v)
			}
		}
		target.RawQuery = q.Encode()
		return http.NewRequestWithContext(ctx, desc.Method, target.String(), nil)
	}

	var (
		body        io.Reader
		contentType string
	)
	if strings.EqualFold(desc.Enctype, page.EnctypeMultipart) {
		buf := &bytes.Buffer{}
		w := multipart.NewWriter(buf)
		for _, key := range slices.Sorted(maps.Keys(values)) {
			for _, v := range values[key] {
				if err := w.WriteField(key, v); err != nil {
					return nil, fmt.Errorf("encode multipart: %w", err)
				}
			}
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("encode multipart: %w", err)
		}
		body, contentType = buf, w.FormDataContentType()
	} else {
		body, contentType = strings.NewReader(values.Encode()), page.EnctypeURLEncoded
	}

	req, err := http.NewRequestWithContext(ctx, desc.Method, target.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json, */*;q=0.5")
	return req, nil
}

func (c *Client) resolve(action string) (*url.URL, error) {
	ref, err := url.Parse(action)
	if err != nil {
		return nil, fmt.Errorf("invalid action %q: %w", action, err)
	}
	if c.base != nil {
		return c.base.ResolveReference(ref), nil
	}
	if !ref.IsAbs() {
		return nil, fmt.Errorf("relative action %q without base URL", action)
	}
	return ref, nil
}

func location(resp *http.Response) string {
	if loc := resp.Header.Get("Location"); loc != "" {
		if resp.Request != nil && resp.Request.URL != nil {
			if ref, err := url.Parse(loc); err == nil {
				return resp.Request.URL.ResolveReference(ref).String()
			}
		}
		return loc
	}
	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.String()
	}
	return ""
}
