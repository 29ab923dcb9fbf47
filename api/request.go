package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/qstd/api/download"
	"github.com/adamwoolhether/qstd/api/progress"
)

// RequestOption is a functional option for a single request.
type RequestOption func(*requestSettings) error

type requestSettings struct {
	body         Body
	input        Input
	headers      HeaderOption
	params       Params
	output       Output
	useNumber    bool
	skipExisting bool
	onDownload   progress.Func
	onUpload     progress.Func
	onSuccess    func(any) (any, error)
	onError      func(*RestError) (any, error)
	download     []download.Option
}

func parseSettings(opts []RequestOption) (requestSettings, error) {
	var s requestSettings
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&s); err != nil {
			return requestSettings{}, fmt.Errorf("applying request option: %w", err)
		}
	}

	if s.onUpload != nil && (s.output == OutputStream || s.output == OutputSSE) {
		return requestSettings{}, fmt.Errorf("%w: got %s", ErrUploadProgressOutput, s.output)
	}

	return s, nil
}

// WithBody sets the request body.
func WithBody(body Body) RequestOption {
	return func(s *requestSettings) error {
		s.body = body
		return nil
	}
}

// WithInput forces the body encoding, overriding the verb's default
// and the kind implied by the body constructor.
func WithInput(input Input) RequestOption {
	return func(s *requestSettings) error {
		if input < InputNone || input > InputText {
			return fmt.Errorf("unknown input kind %d", int(input))
		}
		s.input = input
		return nil
	}
}

// WithHeaderOption sets the per-request header override.
func WithHeaderOption(opt HeaderOption) RequestOption {
	return func(s *requestSettings) error {
		s.headers = opt
		return nil
	}
}

// WithHeaders overlays h on the negotiated headers; keys in h win.
func WithHeaders(h http.Header) RequestOption {
	return WithHeaderOption(HeadersMerge(h))
}

// WithoutHeaders sends no negotiated headers, defaults included.
func WithoutHeaders() RequestOption {
	return WithHeaderOption(NoHeaders())
}

// WithHeaderFunc lets fn replace the negotiated headers.
func WithHeaderFunc(fn HeaderFunc) RequestOption {
	return func(s *requestSettings) error {
		if fn == nil {
			return errors.New("header func must not be nil")
		}
		s.headers = HeadersFunc(fn)
		return nil
	}
}

// WithParams appends params to the request URL's query.
func WithParams(params Params) RequestOption {
	return func(s *requestSettings) error {
		if s.params == nil {
			s.params = make(Params, len(params))
		}
		maps.Copy(s.params, params)
		return nil
	}
}

// WithOutput selects how the response body is decoded. JSON is the default.
func WithOutput(output Output) RequestOption {
	return func(s *requestSettings) error {
		if output < OutputJSON || output > OutputSSE {
			return fmt.Errorf("unknown output kind %d", int(output))
		}
		s.output = output
		return nil
	}
}

// WithJSONNumber decodes JSON numbers as [json.Number] instead of float64.
func WithJSONNumber() RequestOption {
	return func(s *requestSettings) error {
		s.useNumber = true
		return nil
	}
}

// WithDownloadProgress reports response body progress while it is read.
// It has no effect on stream and event-stream output.
func WithDownloadProgress(fn progress.Func) RequestOption {
	return func(s *requestSettings) error {
		if fn == nil {
			return errors.New("download progress func must not be nil")
		}
		s.onDownload = fn
		return nil
	}
}

// WithUploadProgress reports request body progress while it is sent.
// It cannot be combined with stream or event-stream output.
func WithUploadProgress(fn progress.Func) RequestOption {
	return func(s *requestSettings) error {
		if fn == nil {
			return errors.New("upload progress func must not be nil")
		}
		s.onUpload = fn
		return nil
	}
}

// OnSuccess transforms the decoded result before it is returned.
// T must match the result type of the verb it is passed to.
func OnSuccess[T any](fn func(T) (T, error)) RequestOption {
	return func(s *requestSettings) error {
		if fn == nil {
			return errors.New("success hook must not be nil")
		}
		s.onSuccess = func(v any) (any, error) {
			t, ok := v.(T)
			if !ok {
				return nil, fmt.Errorf("%w: success hook takes %T, got %T", ErrOutputType, *new(T), v)
			}
			return fn(t)
		}
		return nil
	}
}

// OnError recovers from a non-2xx response: the call returns fn's
// result instead of the RestError. Transport failures are not passed
// to fn.
func OnError[T any](fn func(*RestError) (T, error)) RequestOption {
	return func(s *requestSettings) error {
		if fn == nil {
			return errors.New("error hook must not be nil")
		}
		s.onError = func(err *RestError) (any, error) {
			return fn(err)
		}
		return nil
	}
}

// Request sends method to path and returns the decoded result. The
// input kind defaults to JSON for POST, PUT and PATCH, and for DELETE
// with a body. Hooks registered with [OnSuccess] and [OnError] must
// use [Result].
func (c *Client) Request(ctx context.Context, method, path string, opts ...RequestOption) (Result, error) {
	s, err := parseSettings(opts)
	if err != nil {
		return Result{}, err
	}

	out, err := c.execute(ctx, method, path, &s, func(r Result) (any, error) { return r, nil })
	if err != nil {
		return Result{}, err
	}

	res, ok := out.(Result)
	if !ok {
		return Result{}, fmt.Errorf("%w: expected %T, got %T", ErrOutputType, res, out)
	}

	return res, nil
}

// execute runs one request: build the URL, negotiate headers, encode the
// body, send, classify the status and decode. It never retries.
func (c *Client) execute(ctx context.Context, method, path string, s *requestSettings, convert func(Result) (any, error)) (any, error) {
	start := time.Now()
	method = strings.ToUpper(method)
	absolute := IsAbsolute(path)

	if !absolute && strings.Contains(path, "?") {
		c.logger.Debug("request path embeds a query string, prefer WithParams", "path", path)
	}

	reqURL := BuildURL(path, c.baseURL, s.params)
	input := effectiveInput(method, s)

	defaults := make(http.Header)
	if s.headers.mode != headersNone && !absolute {
		h, err := c.defaultHeaders(ctx)
		if err != nil {
			err = fmt.Errorf("resolving default headers: %w", err)
			c.notifyError(err)
			return nil, err
		}
		defaults = h

		if c.requestIDHeader != "" && defaults.Get(c.requestIDHeader) == "" {
			defaults.Set(c.requestIDHeader, uuid.NewString())
		}
	}

	headers, err := BuildHeaders(ctx, defaults, s.headers, input, s.body)
	if err != nil {
		err = fmt.Errorf("building headers: %w", err)
		c.notifyError(err)
		return nil, err
	}

	payload, err := EncodeBody(s.body, input)
	if err != nil {
		c.notifyError(err)
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "qstd.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", reqURL),
		),
	)
	defer span.End()

	fail := func(err error) (any, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.notifyError(err)
		return nil, err
	}

	req, err := newRequest(ctx, method, reqURL, headers, payload)
	if err != nil {
		return fail(err)
	}

	if !absolute && headers != nil {
		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	}

	if c.onRequest != nil {
		c.onRequest(req)
	}

	resp, err := c.transportFor(s).do(req)
	if err != nil {
		return fail(transportError(ctx, err))
	}

	keepBody := false
	defer func() {
		if keepBody {
			return
		}
		if _, err := io.Copy(io.Discard, resp.Body); err != nil {
			c.logger.Error("failed to discard unused body", "error", err)
		}
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "error", err)
		}
	}()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.logger.Debug("request completed", "method", method, "url", reqURL, "status", resp.StatusCode, "since", time.Since(start).String())

	if c.onResponse != nil {
		c.onResponse(resp)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrBodySize))
		if err != nil {
			b = []byte("unable to read body")
		}

		restErr := &RestError{
			StatusCode: resp.StatusCode,
			Body:       string(b),
			Err:        ErrUnexpectedStatus,
		}

		span.SetStatus(codes.Error, restErr.Err.Error())
		c.notifyError(restErr)

		if s.onError != nil {
			return s.onError(restErr)
		}
		return nil, restErr
	}

	result, err := DecodeResponse(resp, s.output, s.onDownload)
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", ErrAborted, err)
		}
		return fail(err)
	}
	keepBody = result.Kind == OutputStream || result.Kind == OutputSSE

	v, err := convert(result)
	if err != nil {
		_ = result.Close()
		return fail(err)
	}

	if s.onSuccess != nil {
		out, err := s.onSuccess(v)
		if err != nil {
			_ = result.Close()
			return fail(err)
		}
		return out, nil
	}

	return v, nil
}

// effectiveInput resolves the body encoding: an explicit WithInput wins,
// then the kind implied by the body constructor; form and binary bodies
// need none; otherwise the verb decides.
func effectiveInput(method string, s *requestSettings) Input {
	if s.input != InputNone {
		return s.input
	}
	if s.body == nil {
		return InputNone
	}
	if in := impliedInput(s.body); in != InputNone {
		return in
	}
	if isShape(s.body, shapeForm) || isShape(s.body, shapeBinary) {
		return InputNone
	}

	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return InputJSON
	default:
		return InputNone
	}
}

func newRequest(ctx context.Context, method, reqURL string, headers http.Header, payload *Payload) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		body = payload.Body
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	if payload != nil && payload.Length > 0 {
		req.ContentLength = payload.Length
	}

	maps.Copy(req.Header, headers)

	if payload != nil && payload.FormContentType != "" {
		req.Header.Set("Content-Type", payload.FormContentType)
	}

	return req, nil
}

// transportError marks failures caused by a cancelled context as aborted.
func transportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrAborted, err)
	}
	return fmt.Errorf("exec http do: %w", err)
}

// into converts a decoded result to T.
func into[T any](r Result, useNumber bool) (T, error) {
	var zero T

	if p, ok := any(&zero).(*Result); ok {
		*p = r
		return zero, nil
	}

	if r.Kind == OutputJSON {
		d := json.NewDecoder(bytes.NewReader(r.JSON))
		if useNumber {
			d.UseNumber()
		}

		var v T
		if err := d.Decode(&v); err != nil {
			return zero, fmt.Errorf("decoding body: %w", err)
		}
		return v, nil
	}

	var v any
	switch r.Kind {
	case OutputText:
		v = r.Text
	case OutputBlob:
		v = r.Blob
	case OutputBytes:
		v = r.Bytes
	case OutputStream:
		v = r.Stream
	case OutputSSE:
		v = r.Events
	}

	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: cannot use %s output as %T", ErrOutputType, r.Kind, zero)
	}

	return out, nil
}
