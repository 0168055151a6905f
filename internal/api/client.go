// Package api is the typed REST client for the storefront backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/maison-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/maison-storefront/pkg/errors"
	"github.com/angelmondragon/maison-storefront/pkg/logger"
	"github.com/angelmondragon/maison-storefront/pkg/metrics"
)

const maxErrorBody = 64 << 10

// Client talks to the storefront REST API. It holds no session state; the
// bearer token is passed on every authenticated call.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	metrics    *metrics.ClientMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func WithMetrics(m *metrics.ClientMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.logg = l }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logg: logger.Nop(),
		now:  time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NewFromConfig builds a client for cfg; opts are applied after the config values.
func NewFromConfig(cfg config.APIConfig, opts ...Option) *Client {
	base := []Option{WithTimeout(cfg.Timeout), WithUserAgent(cfg.UserAgent)}
	return New(cfg.BaseURL, append(base, opts...)...)
}

// request describes one round trip. endpoint is the low-cardinality metric label.
type request struct {
	endpoint string
	method   string
	path     string
	token    string
	body     any
}

// errorBody covers the error envelopes the backend emits.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	var reader io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request body")
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(r.endpoint, 0, c.now().Sub(start))
		netErr := pkgerrors.Wrap(pkgerrors.CodeNetwork, err, "could not reach the store, check your connection")
		c.logg.Debug(c.logg.WithFields(ctx, map[string]any{
			"endpoint":   r.endpoint,
			"error_dump": pkgerrors.Dump(netErr),
		}), "api request failed")
		return netErr
	}
	defer resp.Body.Close()
	c.metrics.ObserveRequest(r.endpoint, resp.StatusCode, c.now().Sub(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := c.statusError(resp)
		c.logg.Debug(c.logg.WithFields(ctx, map[string]any{
			"endpoint": r.endpoint,
			"status":   resp.StatusCode,
			"code":     string(apiErr.Code()),
		}), "api request rejected")
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return pkgerrors.Wrap(pkgerrors.CodeServer, err, "unreadable response from the store").WithStatus(resp.StatusCode)
	}
	return nil
}

func (c *Client) statusError(resp *http.Response) *pkgerrors.Error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	message := serverMessage(raw)

	var code pkgerrors.Code
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		code = pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		code = pkgerrors.CodeForbidden
	case http.StatusNotFound:
		code = pkgerrors.CodeNotFound
	default:
		code = pkgerrors.CodeServer
	}
	if message == "" {
		message = pkgerrors.MetadataFor(code).PublicMessage
	}
	return pkgerrors.New(code, message).WithStatus(resp.StatusCode)
}

// serverMessage extracts detail, message or error from an error body. A
// detail list (field validation errors) is joined into one line.
func serverMessage(raw []byte) string {
	var body errorBody
	if len(raw) == 0 || json.Unmarshal(raw, &body) != nil {
		return ""
	}
	if len(body.Detail) > 0 {
		var detail string
		if json.Unmarshal(body.Detail, &detail) == nil && detail != "" {
			return detail
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if json.Unmarshal(body.Detail, &items) == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

// remap rewrites the code of an HTTP status error, keeping message and status.
func remap(err error, byStatus map[int]pkgerrors.Code) error {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Status() == 0 {
		return err
	}
	code, ok := byStatus[typed.Status()]
	if !ok {
		return err
	}
	message := typed.Message()
	if message == pkgerrors.MetadataFor(typed.Code()).PublicMessage {
		message = pkgerrors.MetadataFor(code).PublicMessage
	}
	return pkgerrors.Wrap(code, err, message).WithStatus(typed.Status())
}

func escape(id string) string {
	return url.PathEscape(id)
}
