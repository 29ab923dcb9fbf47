package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/qstd/api"
)

type closeTracker struct {
	io.Reader
	closed int
}

func (c *closeTracker) Close() error {
	c.closed++
	return nil
}

type token struct {
	Text string `json:"text"`
}

func TestEventStream_Next(t *testing.T) {
	testCases := map[string]struct {
		raw string
		exp []api.Event[token]
	}{
		"single event": {
			raw: "data: {\"text\":\"hi\"}\n\n",
			exp: []api.Event[token]{{Data: token{Text: "hi"}}},
		},
		"event name and id": {
			raw: "event: delta\nid: 7\ndata: {\"text\":\"a\"}\n\n",
			exp: []api.Event[token]{{Data: token{Text: "a"}, Event: "delta", ID: "7"}},
		},
		"multi line data is joined": {
			raw: "data: {\"text\":\ndata: \"joined\"}\n\n",
			exp: []api.Event[token]{{Data: token{Text: "joined"}}},
		},
		"crlf line endings": {
			raw: "data: {\"text\":\"a\"}\r\n\r\ndata: {\"text\":\"b\"}\r\n\r\n",
			exp: []api.Event[token]{{Data: token{Text: "a"}}, {Data: token{Text: "b"}}},
		},
		"comments retry and unknown fields are ignored": {
			raw: ": keepalive\nretry: 1000\nfoo: bar\ndata: {\"text\":\"x\"}\n\n",
			exp: []api.Event[token]{{Data: token{Text: "x"}}},
		},
		"event without data is dropped and does not leak": {
			raw: "event: ping\n\ndata: {\"text\":\"y\"}\n\n",
			exp: []api.Event[token]{{Data: token{Text: "y"}}},
		},
		"unterminated trailing event is flushed": {
			raw: "data: {\"text\":\"a\"}\n\ndata: {\"text\":\"tail\"}",
			exp: []api.Event[token]{{Data: token{Text: "a"}}, {Data: token{Text: "tail"}}},
		},
		"no space after colon": {
			raw: "data:{\"text\":\"tight\"}\n\n",
			exp: []api.Event[token]{{Data: token{Text: "tight"}}},
		},
		"empty body": {
			raw: "",
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			body := &closeTracker{Reader: strings.NewReader(tc.raw)}
			stream := api.NewEventStream[token](body)

			var got []api.Event[token]
			for {
				ev, err := stream.Next()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				got = append(got, ev)
			}

			if diff := cmp.Diff(tc.exp, got); diff != "" {
				t.Errorf("events mismatch (-want +got):\n%s", diff)
			}
			if body.closed != 1 {
				t.Errorf("expected body closed once at EOF, got %d", body.closed)
			}
			if _, err := stream.Next(); !errors.Is(err, io.EOF) {
				t.Errorf("expected io.EOF to be sticky, got: %v", err)
			}
		})
	}
}

func TestEventStream_Malformed(t *testing.T) {
	payload := strings.Repeat("x", 150)
	body := &closeTracker{Reader: strings.NewReader("data: {\"text\":\"ok\"}\n\ndata: " + payload + "\n\ndata: {\"text\":\"never\"}\n\n")}
	stream := api.NewEventStream[token](body)

	if _, err := stream.Next(); err != nil {
		t.Fatalf("unexpected error on first event: %v", err)
	}

	_, err := stream.Next()

	var malformed *api.MalformedSSEPayloadError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected *MalformedSSEPayloadError, got: %v", err)
	}
	if malformed.Preview != strings.Repeat("x", 100) {
		t.Errorf("expected 100 rune preview, got %d runes", len(malformed.Preview))
	}
	if body.closed != 1 {
		t.Errorf("expected body closed after malformed payload, got %d", body.closed)
	}
	if _, err := stream.Next(); !errors.As(err, &malformed) {
		t.Errorf("expected the error to be sticky, got: %v", err)
	}
}

func TestEventStream_All(t *testing.T) {
	t.Run("ranges every event", func(t *testing.T) {
		body := &closeTracker{Reader: strings.NewReader("data: 1\n\ndata: 2\n\ndata: 3\n\n")}
		stream := api.NewEventStream[int](body)

		var got []int
		for ev, err := range stream.All() {
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got = append(got, ev.Data)
		}

		if diff := cmp.Diff([]int{1, 2, 3}, got); diff != "" {
			t.Errorf("data mismatch (-want +got):\n%s", diff)
		}
		if body.closed != 1 {
			t.Errorf("expected body closed once, got %d", body.closed)
		}
	})

	t.Run("break closes the body", func(t *testing.T) {
		body := &closeTracker{Reader: strings.NewReader("data: 1\n\ndata: 2\n\n")}
		stream := api.NewEventStream[int](body)

		for range stream.All() {
			break
		}

		if body.closed != 1 {
			t.Errorf("expected body closed on break, got %d", body.closed)
		}
		if _, err := stream.Next(); !errors.Is(err, api.ErrStreamClosed) {
			t.Errorf("expected ErrStreamClosed after break, got: %v", err)
		}
	})

	t.Run("raw messages", func(t *testing.T) {
		body := &closeTracker{Reader: strings.NewReader("data: {\"a\": 1}\n\n")}
		stream := api.NewEventStream[json.RawMessage](body)

		for ev, err := range stream.All() {
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(ev.Data) != `{"a": 1}` {
				t.Errorf("expected raw payload, got %s", ev.Data)
			}
		}
	})
}

func TestEventStream_CloseIsIdempotent(t *testing.T) {
	body := &closeTracker{Reader: strings.NewReader("data: 1\n\n")}
	stream := api.NewEventStream[int](body)

	for range 3 {
		if err := stream.Close(); err != nil {
			t.Fatalf("unexpected close error: %v", err)
		}
	}

	if body.closed != 1 {
		t.Errorf("expected one close of the body, got %d", body.closed)
	}
}

// chunkReader yields each chunk from a separate Read call.
type chunkReader struct {
	chunks []string
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	c.chunks[0] = c.chunks[0][n:]
	if c.chunks[0] == "" {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}

func TestEventStream_SplitChunks(t *testing.T) {
	body := io.NopCloser(&chunkReader{chunks: []string{"data: {\"a", "\":1}\n\n"}})
	stream := api.NewEventStream[map[string]int](body)

	var got []map[string]int
	for ev, err := range stream.All() {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, ev.Data)
	}

	if diff := cmp.Diff([]map[string]int{{"a": 1}}, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestEventStream_NonJSONPayload(t *testing.T) {
	stream := api.NewEventStream[any](io.NopCloser(strings.NewReader("data: Hello world\n\n")))

	_, err := stream.Next()

	var malformed *api.MalformedSSEPayloadError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected *MalformedSSEPayloadError, got: %v", err)
	}
	if malformed.Preview != "Hello world" {
		t.Errorf("expected preview of the raw text, got %q", malformed.Preview)
	}
}

type failingReader struct {
	err error
}

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestEventStream_ReadErrors(t *testing.T) {
	errReset := errors.New("connection reset")

	testCases := map[string]struct {
		err        error
		expAborted bool
	}{
		"cancelled":         {err: context.Canceled, expAborted: true},
		"deadline exceeded": {err: context.DeadlineExceeded, expAborted: true},
		"transport failure": {err: errReset},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			stream := api.NewEventStream[token](io.NopCloser(failingReader{err: tc.err}))

			_, err := stream.Next()
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected %v in chain, got: %v", tc.err, err)
			}
			if got := errors.Is(err, api.ErrAborted); got != tc.expAborted {
				t.Errorf("expected aborted=%v, got: %v", tc.expAborted, err)
			}
		})
	}
}
