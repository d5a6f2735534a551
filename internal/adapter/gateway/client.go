// Package gateway talks to the platform's REST backend.
package gateway

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
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/ong-collab/collabctl/internal/domain"
	"github.com/ong-collab/collabctl/internal/metrics"
)

const maxErrorBody = 64 << 10

// APIError is a non-2xx response from the backend. It unwraps to the domain
// sentinel matching its status. Transport failures never produce an APIError.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status=%d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: status=%d", e.Op, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Options configures a Client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second; <= 0 disables limiting
	Burst     int
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// Client is the shared JSON transport for the auth and resource clients.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	tokens     domain.TokenSource
	tracer     trace.Tracer
	logger     *slog.Logger
}

// NewClient validates the base URL and builds the transport.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimSpace(opts.BaseURL)
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid api base url: %q", opts.BaseURL)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	transport := opts.Transport
	if transport == nil {
		transport = &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: opts.Timeout, Transport: transport},
		limiter:    limiter,
		tracer:     otel.Tracer("collabctl/gateway"),
		logger:     opts.Logger,
	}, nil
}

// WithTokenSource returns a copy that attaches bearer tokens from ts.
func (c *Client) WithTokenSource(ts domain.TokenSource) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

// BaseURL returns the normalised backend URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doJSON sends body as JSON and decodes a 2xx response into out.
func (c *Client) doJSON(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	ctx, span := c.tracer.Start(ctx, op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	start := time.Now()
	status, err := c.send(ctx, op, method, path, query, body, out)
	metrics.RecordAPIRequest(op, status, time.Since(start).Seconds())

	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
		attribute.Int("http.response.status_code", status),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) send(ctx context.Context, op, method, path string, query url.Values, body, out any) (int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("%s: %w: %w", op, domain.ErrNetwork, err)
		}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	if c.tokens != nil {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %w", op, domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api request",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", req.Header.Get("X-Request-ID"))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, &APIError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw, resp.Status),
			Err:        statusError(resp.StatusCode),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return resp.StatusCode, nil
		}
		return resp.StatusCode, fmt.Errorf("%s: decode response: %w", op, err)
	}
	return resp.StatusCode, nil
}

// statusError maps an HTTP status to its domain sentinel.
func statusError(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case status == http.StatusForbidden:
		return domain.ErrForbidden
	case status == http.StatusNotFound:
		return domain.ErrNotFound
	case status == http.StatusConflict:
		return domain.ErrConflict
	case status >= 500:
		return domain.ErrServerError
	default:
		return domain.ErrBadRequest
	}
}

// errorPayload covers the backend's error shapes: message may be a string or
// a list of validation messages.
type errorPayload struct {
	Message json.RawMessage `json:"message"`
	Error   string          `json:"error"`
}

// errorMessage derives a human-readable message from an error body.
func errorMessage(raw []byte, fallback string) string {
	var p errorPayload
	if len(raw) == 0 || json.Unmarshal(raw, &p) != nil {
		text := strings.TrimSpace(string(raw))
		if text != "" && len(text) < 300 && !strings.HasPrefix(text, "<") {
			return text
		}
		return fallback
	}

	if len(p.Message) > 0 {
		var single string
		if json.Unmarshal(p.Message, &single) == nil && single != "" {
			return single
		}
		var many []string
		if json.Unmarshal(p.Message, &many) == nil && len(many) > 0 {
			return strings.Join(many, "; ")
		}
	}
	if p.Error != "" {
		return p.Error
	}
	return fallback
}

// escape builds a path from segments, escaping each one.
func escape(segments ...string) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// boolQuery renders a boolean query value.
func boolQuery(v bool) string {
	return strconv.FormatBool(v)
}
