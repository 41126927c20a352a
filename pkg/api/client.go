// Package api is the authenticated HTTP client for the workflow, run and schedule endpoints.
package api

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

	"github.com/birun/console/pkg/log"
	"github.com/birun/console/pkg/otelhelper"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultPreviewCount = 5
	MaxPreviewCount     = 10

	requestIDHeader = "X-Request-ID"
	maxErrorBody    = 64 << 10
)

var ErrMissingBaseURL = errors.New("api base URL is required")

type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Tracer     trace.Tracer
	Logger     *slog.Logger
}

type Client struct {
	base   *url.URL
	token  string
	http   *http.Client
	tracer trace.Tracer
	logger *slog.Logger
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrMissingBaseURL
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api base URL: %w", err)
	}

	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid api base URL %q: scheme must be http or https", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}

		httpClient = &http.Client{Timeout: timeout}
	}

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	return &Client{
		base:   base,
		token:  cfg.Token,
		http:   httpClient,
		tracer: tracer,
		logger: log.OrDefault(cfg.Logger, "api"),
	}, nil
}

// URL resolves an API path against the base URL.
func (c *Client) URL(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path

	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	return u.String()
}

// StreamURL resolves a websocket path against the base URL, switching http(s) to ws(s).
func (c *Client) StreamURL(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path

	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}

	return u.String()
}

// AuthHeader carries the bearer token for requests made outside the client, such as stream dials.
func (c *Client) AuthHeader() http.Header {
	h := http.Header{}
	if c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
	}

	return h
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	requestID := uuid.NewString()

	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "api."+op,
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.String(otelhelper.RequestIDKey, requestID),
	)
	defer span.End()

	var reader io.Reader

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}

		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path, query), reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	req.Header = c.AuthHeader()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		otelhelper.SetError(span, err)
		c.logger.Debug("Request failed", "op", op, "request_id", requestID, "error", err)

		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.logger.Debug("Request completed",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &Error{
			Op:         op,
			StatusCode: resp.StatusCode,
			Problem:    decodeProblem(resp.StatusCode, data),
			RequestID:  requestID,
		}
		otelhelper.SetError(span, apiErr)

		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		otelhelper.SetError(span, err)
		return fmt.Errorf("%s: decode response: %w", op, err)
	}

	return nil
}

func idPath(format string, id int64) string {
	return fmt.Sprintf(format, strconv.FormatInt(id, 10))
}

// Ping checks that the backend is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "Ping", http.MethodGet, "/api/health/ping", nil, nil, nil)
}
