// Package client talks to the TEA-TIME HTTP API. It is the remote side used by the
// feed and session packages.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/teatime/teatime/session"
)

// ErrNotSignedIn is returned for calls that need a session when there is none.
var ErrNotSignedIn = errors.New("client: not signed in")

// APIError is a non-success envelope returned by the API.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (http %d): %s", e.Code, e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type Option func(*Client)

// WithHTTPClient sets the base client; its transport is wrapped, not replaced.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.base = hc
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	base    *http.Client
	log     *zap.Logger

	anon   *http.Client
	authed *http.Client

	mu      sync.RWMutex
	session *session.Session
}

// New creates a client for the API rooted at baseURL (e.g. https://host/api/v1).
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		base:    &http.Client{Timeout: 15 * time.Second},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	rt := c.base.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	keyed := &apiKeyTransport{key: c.apiKey, base: rt}
	c.anon = &http.Client{Transport: keyed, Timeout: c.base.Timeout, Jar: c.base.Jar}
	c.authed = &http.Client{
		Transport: &oauth2.Transport{Source: tokenSource{c}, Base: keyed},
		Timeout:   c.base.Timeout,
		Jar:       c.base.Jar,
	}
	return c
}

// SetSession installs a stored session, nil to forget it.
func (c *Client) SetSession(s *session.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s == nil {
		c.session = nil
		return
	}
	cp := *s
	c.session = &cp
}

// Session returns the current session or nil.
func (c *Client) Session() *session.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

type tokenSource struct{ c *Client }

func (ts tokenSource) Token() (*oauth2.Token, error) {
	s := ts.c.Session()
	if s == nil || s.AccessToken == "" {
		return nil, ErrNotSignedIn
	}
	return &oauth2.Token{AccessToken: s.AccessToken, TokenType: "Bearer", Expiry: s.ExpiresAt}, nil
}

type apiKeyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.key == "" {
		return t.base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("apikey", t.key)
	return t.base.RoundTrip(r)
}

type call struct {
	method string
	path   string
	query  url.Values
	body   interface{}
	// token overrides the client's session for this request
	token string
	anon  bool
}

func (c *Client) do(ctx context.Context, cl call, out interface{}) error {
	u := c.baseURL + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", cl.method, cl.path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	hc := c.authed
	switch {
	case cl.token != "":
		req.Header.Set("Authorization", "Bearer "+cl.token)
		hc = c.anon
	case cl.anon:
		hc = c.anon
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		c.log.Warn("request failed", zap.String("method", cl.method), zap.String("path", cl.path), zap.Error(err))
		return err
	}
	defer resp.Body.Close()
	c.log.Debug("request done",
		zap.String("method", cl.method),
		zap.String("path", cl.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read %s %s: %w", cl.method, cl.path, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 400 {
			return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		}
		return fmt.Errorf("decode %s %s: %w", cl.method, cl.path, err)
	}
	if resp.StatusCode >= 400 || env.Code != 0 {
		return &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s data: %w", cl.method, cl.path, err)
	}
	return nil
}
