package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/dailies/internal/game"
	"github.com/roach88/dailies/internal/progress"
	"github.com/roach88/dailies/internal/stats"
	"github.com/roach88/dailies/internal/strands"
	"github.com/roach88/dailies/internal/syncer"
)

// DefaultTimeout bounds each request made with the default HTTP client.
const DefaultTimeout = 10 * time.Second

// maxBody caps how much of a response body is read.
const maxBody = 1 << 20

type options struct {
	httpClient *http.Client
	logger     *slog.Logger
	token      string
}

// Option configures a Client or PuzzleSource.
type Option func(*options)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSessionToken sets the session credential sent as a cookie.
func WithSessionToken(token string) Option {
	return func(o *options) { o.token = token }
}

func buildOptions(opts []Option) options {
	o := options{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Client is an HTTP client for the Remote Result Service.
type Client struct {
	base *url.URL
	opts options
}

var (
	_ syncer.Remote      = (*Client)(nil)
	_ strands.Classifier = (*Client)(nil)
)

// NewClient returns a client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	return &Client{base: u, opts: buildOptions(opts)}, nil
}

// SaveProgress stores a snapshot for the signed-in player.
func (c *Client) SaveProgress(ctx context.Context, snap progress.Snapshot) error {
	body, err := progress.Encode(snap)
	if err != nil {
		return game.InputInvalid(snap.Game(), "encode snapshot: %v", err)
	}
	return c.do(ctx, snap.Game(), http.MethodPost, c.path(snap.Game(), "progress"), nil, body, nil, nil)
}

// LoadProgress reads the stored snapshot for kind and date.
func (c *Client) LoadProgress(ctx context.Context, kind game.Kind, date string) (progress.Snapshot, bool, error) {
	var resp ProgressResponse
	q := url.Values{"date": {date}}
	if err := c.do(ctx, kind, http.MethodGet, c.path(kind, "progress"), q, nil, nil, &resp); err != nil {
		return nil, false, err
	}
	if len(resp.Progress) == 0 || string(resp.Progress) == "null" {
		return nil, false, nil
	}
	snap, err := progress.Decode(kind, resp.Progress)
	if err != nil {
		return nil, false, game.Malformed(kind, "decode progress", err)
	}
	if snap.Day() != date {
		return nil, false, game.Malformed(kind, fmt.Sprintf("progress for %s returned for %s", snap.Day(), date), nil)
	}
	return snap, true, nil
}

// RecordResult posts a win or loss. The event id rides along as the
// idempotency key so a redelivered event is applied once.
func (c *Client) RecordResult(ctx context.Context, e progress.Event) error {
	body, err := json.Marshal(NewResultRequest(e.Result()))
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	h := http.Header{}
	if e.ID != "" {
		h.Set(IdempotencyHeader, e.ID)
	}
	return c.do(ctx, e.Kind, http.MethodPost, c.path(e.Kind, string(e.Type)), nil, body, h, nil)
}

// Stats fetches the signed-in player's summary for kind.
func (c *Client) Stats(ctx context.Context, kind game.Kind) (stats.Summary, error) {
	var s stats.Summary
	if err := c.do(ctx, kind, http.MethodGet, c.path(kind, "stats"), nil, nil, nil, &s); err != nil {
		return stats.Summary{}, err
	}
	if s.Kind == "" {
		s.Kind = kind
	}
	return s, nil
}

// Classify asks the service whether word is a theme word or the spangram
// of the Strands puzzle for date.
func (c *Client) Classify(ctx context.Context, date, word string) (strands.Classification, error) {
	body, err := json.Marshal(SubmitRequest{Date: date, Word: word})
	if err != nil {
		return strands.Classification{}, fmt.Errorf("encode submit: %w", err)
	}
	var out strands.Classification
	if err := c.do(ctx, game.Strands, http.MethodPost, c.path(game.Strands, "submit"), nil, body, nil, &out); err != nil {
		return strands.Classification{}, err
	}
	if !out.Kind.Valid() {
		return strands.Classification{}, game.Malformed(game.Strands, fmt.Sprintf("unknown verdict %q", out.Kind), nil)
	}
	return out, nil
}

// Me resolves the authentication flag. A 401 means signed out; any other
// failure leaves the state unknown and is returned.
func (c *Client) Me(ctx context.Context) (syncer.Auth, error) {
	if c.opts.token == "" {
		return syncer.SignedOut(), nil
	}
	var resp MeResponse
	err := c.do(ctx, "", http.MethodGet, "/api/auth/me", nil, nil, nil, &resp)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusUnauthorized {
		return syncer.SignedOut(), nil
	}
	if err != nil {
		return syncer.Unknown(), err
	}
	if resp.User == nil || resp.User.ID == "" {
		return syncer.SignedOut(), nil
	}
	return syncer.SignedIn(resp.User.ID), nil
}

func (c *Client) path(kind game.Kind, action string) string {
	return "/api/" + string(kind) + "/" + action
}

// StatusError is a non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

func (c *Client) do(ctx context.Context, kind game.Kind, method, path string, q url.Values, body []byte, h http.Header, out any) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if q != nil {
		u.RawQuery = q.Encode()
	}

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, vs := range h {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.opts.token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: c.opts.token})
	}

	start := time.Now()
	resp, err := c.opts.httpClient.Do(req)
	if err != nil {
		return game.Unavailable(kind, method+" "+path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return game.Unavailable(kind, "read "+path, err)
	}
	c.opts.logger.Debug("remote call", "method", method, "path", path,
		"status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Code: resp.StatusCode}
		var er ErrorResponse
		if json.Unmarshal(data, &er) == nil {
			se.Message = er.Error
		}
		return game.Unavailable(kind, method+" "+path, se)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return game.Malformed(kind, "decode "+path, err)
	}
	return nil
}
