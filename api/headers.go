package api

import (
	"context"
	"fmt"
	"net/http"
	"slices"
)

// HeaderSource resolves the client's default headers for a request,
// e.g. to attach a freshly minted bearer token.
type HeaderSource func(ctx context.Context) (http.Header, error)

// HeaderFunc replaces the negotiated headers of a single request. It
// receives the defaults plus inferred Content-Type and must return every
// header it wants sent.
type HeaderFunc func(ctx context.Context, negotiated http.Header) (http.Header, error)

type headerMode int

const (
	headersDefault headerMode = iota
	headersNone
	headersMerge
	headersFunc
)

// HeaderOption is a per-request header override. The zero value keeps
// the negotiated headers.
type HeaderOption struct {
	mode  headerMode
	merge http.Header
	fn    HeaderFunc
}

// HeadersDefault keeps the defaults plus the inferred Content-Type.
func HeadersDefault() HeaderOption { return HeaderOption{} }

// NoHeaders sends no negotiated headers at all, defaults included.
func NoHeaders() HeaderOption { return HeaderOption{mode: headersNone} }

// HeadersMerge overlays h on the negotiated headers; keys in h win.
func HeadersMerge(h http.Header) HeaderOption {
	return HeaderOption{mode: headersMerge, merge: h}
}

// HeadersFunc hands the negotiated headers to fn and sends its result.
func HeadersFunc(fn HeaderFunc) HeaderOption {
	return HeaderOption{mode: headersFunc, fn: fn}
}

// BuildHeaders merges defaults with the inferred Content-Type and the
// override opt. A nil result means no headers are sent. defaults is
// never mutated.
//
// Content-Type inference, first match wins: form bodies get none (the
// transport adds it with the boundary), binary bodies get their own
// type, then InputJSON and InputText map to their media types.
func BuildHeaders(ctx context.Context, defaults http.Header, opt HeaderOption, input Input, body Body) (http.Header, error) {
	if opt.mode == headersNone {
		return nil, nil
	}

	h := defaults.Clone()
	if h == nil {
		h = make(http.Header)
	}

	switch {
	case isShape(body, shapeForm):
		h.Del("Content-Type")
	case isShape(body, shapeBinary):
		if ct := body.(binaryBody).contentType; ct != "" {
			h.Set("Content-Type", ct)
		}
	case input == InputJSON:
		h.Set("Content-Type", "application/json")
	case input == InputText:
		h.Set("Content-Type", "text/plain")
	}

	switch opt.mode {
	case headersFunc:
		if opt.fn == nil {
			return h, nil
		}
		out, err := opt.fn(ctx, h)
		if err != nil {
			return nil, fmt.Errorf("header func: %w", err)
		}
		return out, nil

	case headersMerge:
		for k, vv := range opt.merge {
			h[http.CanonicalHeaderKey(k)] = slices.Clone(vv)
		}
	}

	return h, nil
}
