package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
)

// Event is one decoded Server-Sent Event. Data is always decoded
// from JSON; a payload that is not JSON ends the stream with a
// [MalformedSSEPayloadError].
type Event[T any] struct {
	Data  T
	Event string
	ID    string
}

// EventStream decodes a text/event-stream body lazily. It is finite,
// ends when the body ends, and cannot be restarted. It is not safe for
// concurrent use.
type EventStream[T any] struct {
	body io.ReadCloser
	r    *bufio.Reader

	data  []string
	event string
	id    string

	err    error
	closed bool
}

// NewEventStream decodes events from body. The stream owns body and
// closes it once exhausted, on a decoding error, or on Close.
func NewEventStream[T any](body io.ReadCloser) *EventStream[T] {
	return &EventStream[T]{
		body: body,
		r:    bufio.NewReaderSize(body, 64*1024),
	}
}

// Next returns the next event, or io.EOF once the body is exhausted.
// An unterminated trailing event is still returned before io.EOF.
func (s *EventStream[T]) Next() (Event[T], error) {
	if s.err != nil {
		return Event[T]{}, s.err
	}

	for {
		line, err := s.r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return Event[T]{}, s.fail(fmt.Errorf("%w: reading event stream: %w", ErrAborted, err))
			}
			return Event[T]{}, s.fail(fmt.Errorf("reading event stream: %w", err))
		}
		atEOF := err != nil

		if line != "" {
			line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
			if line == "" {
				ev, ok, derr := s.dispatch()
				if derr != nil {
					return Event[T]{}, s.fail(derr)
				}
				if ok {
					return ev, nil
				}
			} else {
				s.field(line)
			}
		}

		if atEOF {
			ev, ok, derr := s.dispatch()
			if derr != nil {
				return Event[T]{}, s.fail(derr)
			}
			_ = s.fail(io.EOF)
			if ok {
				return ev, nil
			}
			return Event[T]{}, io.EOF
		}
	}
}

// All ranges over the remaining events. The body is closed when the
// loop ends, including on break. A decoding error is yielded once and
// ends the sequence.
func (s *EventStream[T]) All() iter.Seq2[Event[T], error] {
	return func(yield func(Event[T], error) bool) {
		defer func() { _ = s.Close() }()

		for {
			ev, err := s.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(ev, err) || err != nil {
				return
			}
		}
	}
}

// Close releases the underlying body. It is safe to call more than once.
func (s *EventStream[T]) Close() error {
	if s.err == nil {
		s.err = ErrStreamClosed
	}
	return s.closeBody()
}

func (s *EventStream[T]) closeBody() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}

func (s *EventStream[T]) fail(err error) error {
	s.err = err
	_ = s.closeBody()
	return err
}

// field applies one non-blank line. retry, comments and unknown
// fields are ignored.
func (s *EventStream[T]) field(line string) {
	switch {
	case strings.HasPrefix(line, ":"):
	case strings.HasPrefix(line, "data:"):
		s.data = append(s.data, fieldValue(line, "data:"))
	case strings.HasPrefix(line, "event:"):
		s.event = fieldValue(line, "event:")
	case strings.HasPrefix(line, "id:"):
		s.id = fieldValue(line, "id:")
	}
}

// dispatch flushes the pending event at a boundary. The pending
// fields are reset even when there was no data to emit.
func (s *EventStream[T]) dispatch() (Event[T], bool, error) {
	data, event, id := s.data, s.event, s.id
	s.data, s.event, s.id = nil, "", ""

	if len(data) == 0 {
		return Event[T]{}, false, nil
	}

	raw := strings.Join(data, "\n")

	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return Event[T]{}, false, &MalformedSSEPayloadError{Preview: preview(raw), Err: err}
	}

	return Event[T]{Data: v, Event: event, ID: id}, true, nil
}

func fieldValue(line, prefix string) string {
	return strings.TrimPrefix(line[len(prefix):], " ")
}

// retype re-targets a stream that has not been read from yet.
func retype[T any](s *EventStream[json.RawMessage]) *EventStream[T] {
	return &EventStream[T]{body: s.body, r: s.r}
}
