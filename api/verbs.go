package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
)

// Get sends a GET request and decodes the response into T.
//
// T selects the result: any JSON-decodable type for OutputJSON, string
// for OutputText, [Blob], []byte, [io.ReadCloser] for OutputStream,
// *EventStream[json.RawMessage] for OutputSSE, or [Result] for any kind.
func Get[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) (T, error) {
	return do[T](ctx, c, http.MethodGet, path, opts)
}

// Post sends body as a POST request, JSON encoded unless the body or
// options say otherwise, and decodes the response into T.
func Post[T any](ctx context.Context, c *Client, path string, body Body, opts ...RequestOption) (T, error) {
	return do[T](ctx, c, http.MethodPost, path, withBody(body, opts))
}

// Put sends body as a PUT request and decodes the response into T.
func Put[T any](ctx context.Context, c *Client, path string, body Body, opts ...RequestOption) (T, error) {
	return do[T](ctx, c, http.MethodPut, path, withBody(body, opts))
}

// Patch sends body as a PATCH request and decodes the response into T.
func Patch[T any](ctx context.Context, c *Client, path string, body Body, opts ...RequestOption) (T, error) {
	return do[T](ctx, c, http.MethodPatch, path, withBody(body, opts))
}

// Delete sends a DELETE request. body may be nil; when set it is JSON
// encoded by default.
func Delete[T any](ctx context.Context, c *Client, path string, body Body, opts ...RequestOption) (T, error) {
	return do[T](ctx, c, http.MethodDelete, path, withBody(body, opts))
}

// Events sends a request and returns its text/event-stream body as a
// stream of events whose data decodes into T. The caller must Close
// the stream, or range over [EventStream.All] which closes it.
func Events[T any](ctx context.Context, c *Client, method, path string, body Body, opts ...RequestOption) (*EventStream[T], error) {
	opts = append(slices.Clip(withBody(body, opts)), WithOutput(OutputSSE))

	raw, err := do[*EventStream[json.RawMessage]](ctx, c, method, path, opts)
	if err != nil {
		return nil, err
	}

	return retype[T](raw), nil
}

// withBody puts body first so an explicit WithBody in opts still wins.
func withBody(body Body, opts []RequestOption) []RequestOption {
	if body == nil {
		return opts
	}
	return append([]RequestOption{WithBody(body)}, opts...)
}

func do[T any](ctx context.Context, c *Client, method, path string, opts []RequestOption) (T, error) {
	var zero T

	s, err := parseSettings(opts)
	if err != nil {
		return zero, err
	}

	out, err := c.execute(ctx, method, path, &s, func(r Result) (any, error) {
		v, err := into[T](r, s.useNumber)
		if err != nil {
			_ = r.Close()
			return nil, err
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}

	if out == nil {
		return zero, nil
	}

	v, ok := out.(T)
	if !ok {
		return zero, fmt.Errorf("%w: expected %T, got %T", ErrOutputType, zero, out)
	}

	return v, nil
}
