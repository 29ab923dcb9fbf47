package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/qstd/api/throttle"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error

// options carries exported fields only where they are validated by tag.
type options struct {
	BaseURL         string `json:"baseURL" validate:"omitempty,http_url"`
	RequestIDHeader string `json:"requestIDHeader" validate:"omitempty,printascii,excludesall= :"`

	headers           HeaderSource
	onRequest         func(*http.Request)
	onResponse        func(*http.Response)
	onError           func(error)
	client            *http.Client
	rt                http.RoundTripper
	timeout           *time.Duration
	userAgent         string
	throttle          *throttle.Config
	noFollowRedirects bool
	logger            *slog.Logger
	tracer            trace.Tracer
}

// WithBaseURL sets the URL that relative request paths are joined to.
func WithBaseURL(baseURL string) Option {
	return func(o *options) error {
		o.BaseURL = baseURL
		return nil
	}
}

// WithDefaultHeaders sends h with every request to a relative path.
func WithDefaultHeaders(h http.Header) Option {
	return func(o *options) error {
		static := h.Clone()
		o.headers = func(context.Context) (http.Header, error) {
			return static.Clone(), nil
		}
		return nil
	}
}

// WithHeaderSource resolves default headers per request. It replaces
// any headers set with WithDefaultHeaders.
func WithHeaderSource(fn HeaderSource) Option {
	return func(o *options) error {
		if fn == nil {
			return errors.New("header source must not be nil")
		}
		o.headers = fn
		return nil
	}
}

// WithOnRequest registers a hook run just before each request is sent.
func WithOnRequest(fn func(*http.Request)) Option {
	return func(o *options) error {
		o.onRequest = fn
		return nil
	}
}

// WithOnResponse registers a hook run for every response received,
// whatever its status.
func WithOnResponse(fn func(*http.Response)) Option {
	return func(o *options) error {
		o.onResponse = fn
		return nil
	}
}

// WithOnError registers a hook run for every failed request. It observes
// errors; it cannot recover them. See [OnError] for per-call recovery.
func WithOnError(fn func(error)) Option {
	return func(o *options) error {
		o.onError = fn
		return nil
	}
}

// WithRequestID sets header to a fresh UUID on every request to a
// relative path, unless the header is already present.
func WithRequestID(header string) Option {
	return func(o *options) error {
		if header == "" {
			return errors.New("request id header must not be empty")
		}
		o.RequestIDHeader = header
		return nil
	}
}

// WithClient replaces the default [http.Client] used by the [Client].
// The given client is copied, never modified.
func WithClient(hc *http.Client) Option {
	return func(o *options) error {
		if hc == nil {
			return errors.New("client must not be nil")
		}
		o.client = hc
		return nil
	}
}

// WithTransport sets a custom [http.RoundTripper] as the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		o.rt = rt
		return nil
	}
}

// WithTimeout sets the overall request timeout on the underlying [http.Client].
func WithTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		o.timeout = &d
		return nil
	}
}

// WithUserAgent adds a persistent User-Agent header to all outgoing requests.
func WithUserAgent(header string) Option {
	return func(o *options) error {
		o.userAgent = header
		return nil
	}
}

// WithThrottle enables token-bucket rate limiting with the given requests per second and burst capacity.
func WithThrottle(rps, burst int) Option {
	return func(o *options) error {
		cfg := throttle.Config{RPS: rps, Burst: burst}
		if err := cfg.Validate(); err != nil {
			return err
		}
		o.throttle = &cfg
		return nil
	}
}

// WithNoFollowRedirects prevents the [Client] from following HTTP redirects.
func WithNoFollowRedirects() Option {
	return func(o *options) error {
		o.noFollowRedirects = true
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		o.logger = logger
		return nil
	}
}

// WithTracer records a client span per request with tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		if tracer == nil {
			return errors.New("tracer must not be nil")
		}
		o.tracer = tracer
		return nil
	}
}

// userAgent is an http.RoundTripper, enabling the persistent User-Agent header.
type userAgent struct {
	value string
	base  http.RoundTripper
}

func (ua userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	cpy.Header.Set("User-Agent", ua.value)
	return ua.base.RoundTrip(cpy)
}
