package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/adamwoolhether/qstd/api/throttle"
	"github.com/adamwoolhether/qstd/internal/validate"
)

// Client issues REST calls against a base URL. It is built once with
// [Build], is read-only afterwards, and is safe for concurrent use.
type Client struct {
	hc     *http.Client
	logger *slog.Logger
	tracer trace.Tracer

	baseURL         string
	headers         HeaderSource
	requestIDHeader string

	onRequest  func(*http.Request)
	onResponse func(*http.Response)
	onError    func(error)
}

// Build creates a Client. Without options it sends requests with a
// fresh [http.Client] over [http.DefaultTransport], logs to
// [slog.Default] and traces with a no-op tracer.
func Build(optFns ...Option) (*Client, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	if err := validate.Check(opts); err != nil {
		return nil, fmt.Errorf("validating client options: %w", err)
	}

	client := &Client{
		hc:              &http.Client{},
		logger:          slog.Default(),
		tracer:          noop.NewTracerProvider().Tracer("qstd"),
		baseURL:         opts.BaseURL,
		headers:         opts.headers,
		requestIDHeader: opts.RequestIDHeader,
		onRequest:       opts.onRequest,
		onResponse:      opts.onResponse,
		onError:         opts.onError,
	}

	if opts.client != nil {
		cpy := *opts.client
		client.hc = &cpy
	}

	if opts.logger != nil {
		client.logger = opts.logger
	}

	if opts.tracer != nil {
		client.tracer = opts.tracer
	}

	if opts.timeout != nil {
		client.hc.Timeout = *opts.timeout
	}

	if opts.noFollowRedirects {
		client.hc.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var transport http.RoundTripper
	switch {
	case opts.rt != nil:
		transport = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		transport = opts.client.Transport
	default:
		transport = http.DefaultTransport
	}
	if opts.userAgent != "" {
		transport = userAgent{value: opts.userAgent, base: transport}
	}
	if opts.throttle != nil {
		rt, err := throttle.NewRoundTripper(*opts.throttle, func() *slog.Logger { return client.logger }, transport)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		transport = rt
	}
	client.hc.Transport = transport

	return client, nil
}

// BaseURL returns the URL relative paths are joined to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL builds the full URL for path the same way requests do.
func (c *Client) URL(path string, params Params) string {
	return BuildURL(path, c.baseURL, params)
}

// defaultHeaders resolves the configured headers for one request.
func (c *Client) defaultHeaders(ctx context.Context) (http.Header, error) {
	if c.headers == nil {
		return make(http.Header), nil
	}

	h, err := c.headers(ctx)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return make(http.Header), nil
	}

	return h.Clone(), nil
}

func (c *Client) notifyError(err error) {
	if c.onError != nil {
		c.onError(err)
	}
}
