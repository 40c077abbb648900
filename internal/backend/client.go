package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/phuocduongts/storefront/internal/config"
	"github.com/phuocduongts/storefront/internal/logging"
	"github.com/phuocduongts/storefront/internal/metrics"
	"github.com/phuocduongts/storefront/internal/session"
)

const maxErrorBody = 4 * 1024

// Fields is a flat form payload. It is sent as JSON or multipart depending on
// the endpoint.
type Fields map[string]string

// Request describes one backend call relative to the base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is JSON encoded when set.
	Body any
	// Multipart, when set, is sent as multipart/form-data instead of Body.
	Multipart Fields
	// JSONPart sends Body as a single application/json part of that name.
	JSONPart string
	Header   http.Header
}

type Client struct {
	baseURL        *url.URL
	http           *http.Client
	onUnauthorized func(ctx context.Context)
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithUnauthorizedHook registers fn to run whenever the backend answers 401.
// The web layer uses it to drop the stored identity.
func WithUnauthorizedHook(fn func(ctx context.Context)) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

func NewClient(cfg config.BackendConfig, opts ...Option) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	c := &Client{
		baseURL: base,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Do sends req and decodes the unwrapped payload into out. out may be nil.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	start := time.Now()
	err := c.do(ctx, req, out)
	metrics.ObserveBackend(req.Method, outcome(err), time.Since(start))

	log := logging.FromCtx(ctx)
	if err != nil {
		log.Warn("backend call failed", "method", req.Method, "path", req.Path, "error", err)
	} else {
		log.Debug("backend call", "method", req.Method, "path", req.Path, "dur_ms", time.Since(start).Milliseconds())
	}
	return err
}

func (c *Client) do(ctx context.Context, req Request, out any) error {
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		return fmt.Errorf("%w: %s", ErrUnauthorized, errorMessage(body))
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", ErrNotFound, req.Method, req.Path)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &APIError{Status: resp.StatusCode, Message: errorMessage(body)}
	}

	payload, err := unwrap(resp.StatusCode, body)
	if err != nil {
		return err
	}
	return decode(payload, out)
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	u := c.baseURL.ResolveReference(&url.URL{Path: strings.TrimPrefix(req.Path, "/")})
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.Multipart != nil:
		buf, ct, err := encodeMultipart(req.Multipart)
		if err != nil {
			return nil, err
		}
		body, contentType = buf, ct
	case req.JSONPart != "":
		buf, ct, err := encodeJSONPart(req.JSONPart, req.Body)
		if err != nil {
			return nil, err
		}
		body, contentType = buf, ct
	case req.Body != nil:
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body, contentType = bytes.NewReader(raw), "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if id := session.FromContext(ctx); id != nil && id.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+id.Token)
	}
	return httpReq, nil
}

func encodeMultipart(fields Fields) (*bytes.Buffer, string, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

func encodeJSONPart(name string, v any) (*bytes.Buffer, string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, "", fmt.Errorf("encode %s part: %w", name, err)
	}

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"`, name))
	h.Set("Content-Type", "application/json")
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create %s part: %w", name, err)
	}
	if _, err := part.Write(raw); err != nil {
		return nil, "", fmt.Errorf("write %s part: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// unwrap strips the {success, message, data} envelope when present and returns
// the raw body otherwise.
func unwrap(status int, body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed, nil
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil || env.Success == nil {
		return trimmed, nil
	}
	if !*env.Success {
		return nil, &APIError{Status: status, Message: env.Message}
	}
	return env.Data, nil
}

func decode(payload []byte, out any) error {
	if out == nil || len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return nil
	}
	if s, ok := out.(*string); ok && !json.Valid(payload) {
		*s = string(payload)
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage extracts a human message from an error body.
func errorMessage(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	body = bytes.TrimSpace(body)

	var m struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &m); err == nil {
		if m.Message != "" {
			return m.Message
		}
		return m.Error
	}

	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return s
	}
	return string(body)
}

func outcome(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.As(err, &apiErr):
		return "api_error"
	default:
		return "client_error"
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

func (c *Client) put(ctx context.Context, path string, query url.Values, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Query: query, Body: body}, out)
}

func (c *Client) delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path}, out)
}
