package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/adamwoolhether/qstd/api/progress"
)

// Output selects how a response body is decoded.
type Output int

const (
	OutputJSON Output = iota
	OutputText
	OutputBlob
	OutputBytes
	OutputStream
	OutputSSE
)

func (o Output) String() string {
	switch o {
	case OutputJSON:
		return "json"
	case OutputText:
		return "text"
	case OutputBlob:
		return "blob"
	case OutputBytes:
		return "bytes"
	case OutputStream:
		return "stream"
	case OutputSSE:
		return "sse"
	default:
		return "output(" + strconv.Itoa(int(o)) + ")"
	}
}

// Result is a decoded response. Only the field matching Kind is set.
// For OutputStream and OutputSSE the caller owns, and must close, the
// Stream or Events.
type Result struct {
	Kind          Output
	StatusCode    int
	Header        http.Header
	ContentLength int64

	JSON   json.RawMessage
	Text   string
	Blob   Blob
	Bytes  []byte
	Stream io.ReadCloser
	Events *EventStream[json.RawMessage]
}

// Close releases the body held by stream and event-stream results.
func (r Result) Close() error {
	switch {
	case r.Events != nil:
		return r.Events.Close()
	case r.Stream != nil:
		return r.Stream.Close()
	}
	return nil
}

// DecodeResponse turns resp into the requested output. Stream and
// event-stream output hand over resp.Body without reading it; all other
// kinds read the body fully, reporting each chunk to onProgress when set.
// An empty body decodes to JSON null.
func DecodeResponse(resp *http.Response, output Output, onProgress progress.Func) (Result, error) {
	res := Result{
		Kind:          output,
		StatusCode:    resp.StatusCode,
		Header:        resp.Header,
		ContentLength: resp.ContentLength,
	}

	switch output {
	case OutputStream:
		res.Stream = resp.Body
		return res, nil

	case OutputSSE:
		if resp.Body == nil || resp.Body == http.NoBody {
			return Result{}, ErrStreamUnavailable
		}
		res.Events = NewEventStream[json.RawMessage](resp.Body)
		return res, nil

	case OutputJSON, OutputText, OutputBlob, OutputBytes:
	default:
		return Result{}, fmt.Errorf("unknown output kind %d", int(output))
	}

	var data []byte
	if resp.Body != nil {
		var body io.Reader = resp.Body
		if onProgress != nil {
			body = progress.NewReader(resp.Body, responseLength(resp), onProgress)
		}

		var err error
		if data, err = io.ReadAll(body); err != nil {
			return Result{}, fmt.Errorf("reading body: %w", err)
		}
	}

	switch output {
	case OutputText:
		res.Text = string(data)
	case OutputBlob:
		res.Blob = Blob{Data: data, ContentType: resp.Header.Get("Content-Type")}
	case OutputBytes:
		res.Bytes = data
	default:
		if len(bytes.TrimSpace(data)) == 0 {
			res.JSON = json.RawMessage("null")
			break
		}
		var raw json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return Result{}, fmt.Errorf("decoding body: %w", err)
		}
		res.JSON = raw
	}

	return res, nil
}

// responseLength is the advertised body size, or 0 when unknown.
func responseLength(resp *http.Response) int64 {
	if resp.ContentLength > 0 {
		return resp.ContentLength
	}

	n, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	if err != nil || n < 0 {
		return 0
	}

	return n
}
