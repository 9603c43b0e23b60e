// Package fetch walks paginated provider collections. It hides the three
// pagination dialects the providers speak (Link headers, page-count
// envelopes, and continuation markers) behind a single pull-style pager,
// and absorbs rate limiting and transient failures so callers only see
// pages or a terminal error.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/0xDTC/0xGodaddy/internal/metrics"
	"github.com/0xDTC/0xGodaddy/internal/progress"
)

// ErrQuotaExhausted signals the provider refused further requests for the
// day. Unlike a momentary 429 it is not retried; the provider is abandoned.
var ErrQuotaExhausted = errors.New("provider quota exhausted")

const (
	defaultTimeout   = 30 * time.Second
	defaultRetries   = 4
	defaultRetryBase = 1 * time.Second
	defaultRatePause = 30 * time.Second
	defaultUserAgent = "dns-inventory/2.0"

	backoffFactor = 1.5

	// Responses are read through a cap so a misbehaving endpoint cannot
	// exhaust memory.
	maxResponseBytes = 16 << 20

	pageParam   = "page"
	markerParam = "marker"
)

type Httper interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options tune one provider's HTTP behavior. Zero values fall back to
// package defaults.
type Options struct {
	Timeout    time.Duration
	MaxRetries int
	RetryBase  time.Duration
	RatePause  time.Duration
	RateLimit  float64 // requests per second, 0 disables throttling
	UserAgent  string

	// QuotaMarkers are body substrings on error responses that mean the
	// daily quota is gone, not just the current window.
	QuotaMarkers []string
	// RateMarkers are body substrings that mean rate limiting even when
	// the status code is not 429.
	RateMarkers []string
}

type Client struct {
	provider string
	http     Httper
	limiter  *rate.Limiter
	spinner  *progress.Spinner
	metrics  *metrics.Metrics
	opts     Options
}

func New(provider string, opts Options, m *metrics.Metrics, spinner *progress.Spinner) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultRetries
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = defaultRetryBase
	}
	if opts.RatePause <= 0 {
		opts.RatePause = defaultRatePause
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if len(opts.QuotaMarkers) == 0 {
		opts.QuotaMarkers = []string{"QUOTA_EXCEEDED"}
	}
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return &Client{
		provider: provider,
		http:     &http.Client{},
		limiter:  limiter,
		spinner:  spinner,
		metrics:  m,
		opts:     opts,
	}
}

// Request describes one paged collection endpoint. Params carry the initial
// query; the pager mutates them as pages advance. Header carries
// authentication and is replayed on every page.
type Request struct {
	URL    string
	Header http.Header
	Params url.Values
	Label  string
}

// Page is one decoded response page. Items are the raw elements of the
// page's collection, left for the caller to interpret.
type Page struct {
	Number int
	Items  []json.RawMessage
}

// ShapeError reports a response body that matched no known page shape.
// Unknown shapes fail loudly so a provider API change cannot masquerade
// as an empty collection.
type ShapeError struct {
	Label string
	Err   error
}

func (e *ShapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unrecognized page shape for %s: %v", e.Label, e.Err)
	}
	return fmt.Sprintf("unrecognized page shape for %s", e.Label)
}

func (e *ShapeError) Unwrap() error {
	return e.Err
}

// rateLimitError is internal to the retry loop: the request must be
// replayed after pausing, without consuming transient-retry budget.
type rateLimitError struct {
	pause time.Duration
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("rate limited, pause=%s", e.pause)
}

// Get issues a single request through the retry pipeline and returns the
// raw body. Used for reachability probes and other unpaged endpoints.
func (c *Client) Get(ctx context.Context, req Request) ([]byte, error) {
	body, _, err := c.get(ctx, req.URL, req.Params, req.Header, req.Label)
	return body, err
}

// Pages returns a pager over the collection described by req.
//
//	pager := client.Pages(req)
//	for pager.Next(ctx) {
//		use(pager.Page())
//	}
//	if err := pager.Err(); err != nil { ... }
//
// A non-nil Err means the sequence ended early; pages already yielded
// remain valid and callers are expected to keep what they have.
func (c *Client) Pages(req Request) *Pager {
	return &Pager{
		client: c,
		url:    req.URL,
		params: cloneValues(req.Params),
		header: req.Header.Clone(),
		label:  req.Label,
	}
}

type Pager struct {
	client *Client
	url    string
	params url.Values
	header http.Header
	label  string

	page       Page
	pageNum    int
	lastMarker string
	done       bool
	err        error
}

// Next fetches the next page. It returns false when the collection is
// exhausted or the sequence was abandoned; Err distinguishes the two.
func (p *Pager) Next(ctx context.Context) bool {
	if p.done || p.err != nil {
		return false
	}
	body, header, err := p.client.get(ctx, p.url, p.params, p.header, p.label)
	if err != nil {
		p.err = err
		return false
	}
	env, err := decodeEnvelope(body)
	if err != nil {
		p.err = &ShapeError{Label: p.label, Err: err}
		return false
	}
	p.pageNum++
	p.page = Page{Number: p.pageNum, Items: env.items}
	slog.Debug("Fetched page",
		"provider", p.client.provider,
		"label", p.label,
		"page", p.pageNum,
		"items", len(env.items),
	)
	if err := p.prepare(header, env); err != nil {
		p.err = err
		p.done = true
	}
	return true
}

func (p *Pager) Page() Page {
	return p.page
}

func (p *Pager) Err() error {
	return p.err
}

// prepare decides how to reach the page after the one just fetched,
// trying strategies in fixed priority order: Link header, then total
// page count, then continuation marker. No match ends the sequence.
func (p *Pager) prepare(header http.Header, env envelope) error {
	if next := parseLinkNext(header.Get("Link")); next != "" {
		resolved, err := p.resolve(next)
		if err != nil {
			return fmt.Errorf("parse link header url, err=%w", err)
		}
		// The link target replaces the prior page's parameters outright.
		p.params = resolved.Query()
		resolved.RawQuery = ""
		resolved.Fragment = ""
		p.url = resolved.String()
		return nil
	}
	if env.totalPages > 0 {
		if p.pageNum >= env.totalPages {
			p.done = true
			return nil
		}
		if p.params == nil {
			p.params = url.Values{}
		}
		p.params.Set(pageParam, strconv.Itoa(p.pageNum+1))
		return nil
	}
	if env.nextMarker != "" {
		// A marker equal to the previous one would loop forever.
		if env.nextMarker == p.lastMarker {
			p.done = true
			return nil
		}
		p.lastMarker = env.nextMarker
		if p.params == nil {
			p.params = url.Values{}
		}
		p.params.Set(markerParam, env.nextMarker)
		return nil
	}
	p.done = true
	return nil
}

func (p *Pager) resolve(target string) (*url.URL, error) {
	ref, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	if ref.IsAbs() {
		return ref, nil
	}
	base, err := url.Parse(p.url)
	if err != nil {
		return nil, err
	}
	return base.ResolveReference(ref), nil
}

// envelope is the superset of page shapes the pager understands: a bare
// JSON array, or an object holding the collection under a known key plus
// optional pagination metadata.
type envelope struct {
	items      []json.RawMessage
	totalPages int
	nextMarker string
}

var collectionKeys = []string{"result", "domains", "records"}

func decodeEnvelope(body []byte) (envelope, error) {
	trimmed := strings.TrimLeft(string(body), " \t\r\n")
	if strings.HasPrefix(trimmed, "[") {
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return envelope{}, fmt.Errorf("parse page body, err=%w", err)
		}
		return envelope{items: items}, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return envelope{}, fmt.Errorf("parse page body, err=%w", err)
	}

	env := envelope{}
	found := false
	for _, key := range collectionKeys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		found = true
		if string(raw) == "null" {
			break
		}
		if err := json.Unmarshal(raw, &env.items); err != nil {
			return envelope{}, fmt.Errorf("parse %q collection, err=%w", key, err)
		}
		break
	}
	if !found {
		return envelope{}, errors.New("no item collection in response object")
	}

	if raw, ok := obj["result_info"]; ok {
		var info struct {
			TotalPages int `json:"total_pages"`
		}
		if err := json.Unmarshal(raw, &info); err == nil {
			env.totalPages = info.TotalPages
		}
	}
	if raw, ok := obj["_metadata"]; ok {
		var meta struct {
			NextMarker string `json:"nextMarker"`
		}
		if err := json.Unmarshal(raw, &meta); err == nil {
			env.nextMarker = meta.NextMarker
		}
	}
	return env, nil
}

// parseLinkNext extracts the rel="next" target from a Link header, if any.
func parseLinkNext(link string) string {
	for _, part := range strings.Split(link, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.Trim(strings.TrimSpace(segments[0]), "<>")
		for _, attr := range segments[1:] {
			if strings.EqualFold(strings.TrimSpace(attr), `rel="next"`) {
				return target
			}
		}
	}
	return ""
}

// get runs one logical request to completion: rate-limit pauses replay it,
// transient failures retry it with growing backoff, and quota exhaustion
// or cancellation abort it.
func (c *Client) get(ctx context.Context, rawURL string, params url.Values, header http.Header, label string) ([]byte, http.Header, error) {
	retries := 0
	pauses := 0
	for {
		body, respHeader, err := c.attempt(ctx, rawURL, params, header)
		if err == nil {
			return body, respHeader, nil
		}
		if errors.Is(err, ErrQuotaExhausted) {
			slog.Error("Provider quota exhausted, abandoning",
				"provider", c.provider,
				"label", label,
			)
			return nil, nil, err
		}
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}

		var limited *rateLimitError
		if errors.As(err, &limited) {
			pauses++
			if pauses > c.opts.MaxRetries {
				return nil, nil, fmt.Errorf("%s: still rate limited after %d pauses: %w", label, c.opts.MaxRetries, err)
			}
			c.metrics.IncRateLimitPause(c.provider)
			slog.Warn("Rate limited by provider, pausing",
				"provider", c.provider,
				"label", label,
				"pause", limited.pause,
			)
			if !c.sleep(ctx, limited.pause) {
				return nil, nil, ctx.Err()
			}
			continue
		}

		retries++
		if retries > c.opts.MaxRetries {
			return nil, nil, fmt.Errorf("%s: giving up after %d retries: %w", label, c.opts.MaxRetries, err)
		}
		delay := c.backoff(retries)
		c.metrics.IncProviderRetry(c.provider)
		slog.Warn("Request failed, retrying",
			"provider", c.provider,
			"label", label,
			"attempt", retries,
			"backoff", delay,
			"error", err,
		)
		if !c.sleep(ctx, delay) {
			return nil, nil, ctx.Err()
		}
	}
}

// attempt issues exactly one HTTP request and classifies the outcome.
func (c *Client) attempt(ctx context.Context, rawURL string, params url.Values, header http.Header) ([]byte, http.Header, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, err
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request, err=%w", err)
	}
	if len(params) > 0 {
		req.URL.RawQuery = params.Encode()
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")

	stop := c.spinner.Start()
	resp, err := c.http.Do(req)
	stop()
	if err != nil {
		c.metrics.IncProviderRequest(c.provider, false)
		return nil, nil, fmt.Errorf("provider api request, err=%w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.metrics.IncProviderRequest(c.provider, false)
		return nil, nil, fmt.Errorf("read response body, err=%w", err)
	}

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	c.metrics.IncProviderRequest(c.provider, success)
	if success {
		return body, resp.Header, nil
	}

	// Markers are only inspected on error responses so record data that
	// happens to contain them cannot trip the classifier.
	if containsAny(body, c.opts.QuotaMarkers) {
		return nil, nil, fmt.Errorf("status=%d: %w", resp.StatusCode, ErrQuotaExhausted)
	}
	if resp.StatusCode == http.StatusTooManyRequests || containsAny(body, c.opts.RateMarkers) {
		return nil, nil, &rateLimitError{pause: c.retryAfter(resp.Header)}
	}
	return nil, nil, fmt.Errorf("provider api request, status=%d", resp.StatusCode)
}

func (c *Client) retryAfter(header http.Header) time.Duration {
	if raw := header.Get("Retry-After"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return c.opts.RatePause
}

func (c *Client) backoff(attempt int) time.Duration {
	return time.Duration(float64(c.opts.RetryBase) * math.Pow(backoffFactor, float64(attempt-1)))
}

// sleep waits for d or until ctx is done, reporting whether the full
// duration elapsed.
func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func containsAny(body []byte, markers []string) bool {
	if len(markers) == 0 {
		return false
	}
	text := string(body)
	for _, marker := range markers {
		if marker != "" && strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

func cloneValues(values url.Values) url.Values {
	if values == nil {
		return nil
	}
	clone := make(url.Values, len(values))
	for key, vals := range values {
		clone[key] = append([]string(nil), vals...)
	}
	return clone
}
