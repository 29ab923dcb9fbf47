package api

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// maxErrBodySize caps the amount of response body read when building
// a RestError, so an oversized error response cannot exhaust memory.
const maxErrBodySize = 1 << 20 // 1MB

// ssePreviewSize is how much of a malformed event payload is kept.
const ssePreviewSize = 100

var (
	// ErrUnexpectedStatus is the sentinel error wrapped by [RestError].
	ErrUnexpectedStatus = errors.New("unexpected status code")
	// ErrStreamUnavailable is returned when event-stream output is
	// requested but the response carries no body.
	ErrStreamUnavailable = errors.New("response has no body stream")
	// ErrAborted is joined with the context error when a request is
	// cancelled before it completes.
	ErrAborted = errors.New("request aborted")
	// ErrUploadProgressOutput is returned when upload progress is combined
	// with stream or event-stream output.
	ErrUploadProgressOutput = errors.New("upload progress supports json, text, blob and bytes output only")
	// ErrOutputType is returned when the decoded output cannot be
	// represented by the caller's result type.
	ErrOutputType = errors.New("output kind does not match result type")
	// ErrStreamClosed is returned by [EventStream.Next] after Close.
	ErrStreamClosed = errors.New("event stream closed")
)

// RestError is returned when the response status is outside 2xx.
type RestError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *RestError) Error() string {
	return fmt.Sprintf("%v: %d, body: %s", e.Err, e.StatusCode, e.Body)
}

func (e *RestError) Unwrap() error {
	return e.Err
}

// EncodingError is returned when a request body cannot be encoded
// for the requested input kind.
type EncodingError struct {
	Input  Input
	Detail string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding %s body: %s", e.Input, e.Detail)
}

// MalformedSSEPayloadError is returned when an event's data is not
// valid JSON. It ends the event stream.
type MalformedSSEPayloadError struct {
	Preview string
	Err     error
}

func (e *MalformedSSEPayloadError) Error() string {
	return fmt.Sprintf("malformed event payload %q: %v", e.Preview, e.Err)
}

func (e *MalformedSSEPayloadError) Unwrap() error {
	return e.Err
}

func preview(raw string) string {
	if utf8.RuneCountInString(raw) <= ssePreviewSize {
		return raw
	}

	runes := []rune(raw)
	return string(runes[:ssePreviewSize])
}
