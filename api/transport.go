package api

import (
	"io"
	"net/http"

	"github.com/adamwoolhether/qstd/api/progress"
)

// transport executes one prepared request.
type transport interface {
	do(req *http.Request) (*http.Response, error)
}

// standardTransport sends the request as-is. It has no view of how much
// of the request body has been written, so upload progress needs
// uploadTransport instead.
type standardTransport struct {
	hc *http.Client
}

func (t standardTransport) do(req *http.Request) (*http.Response, error) {
	return t.hc.Do(req)
}

// uploadTransport reports request body progress as the underlying
// transport consumes it. The callback may run on a transport goroutine.
type uploadTransport struct {
	hc       *http.Client
	onUpload progress.Func
}

func (t uploadTransport) do(req *http.Request) (*http.Response, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return t.hc.Do(req)
	}

	total := max(req.ContentLength, 0)
	req.Body = progress.NewReadCloser(req.Body, total, t.onUpload)

	if getBody := req.GetBody; getBody != nil {
		req.GetBody = func() (io.ReadCloser, error) {
			rc, err := getBody()
			if err != nil {
				return nil, err
			}
			return progress.NewReadCloser(rc, total, t.onUpload), nil
		}
	}

	return t.hc.Do(req)
}

func (c *Client) transportFor(s *requestSettings) transport {
	if s.onUpload != nil {
		return uploadTransport{hc: c.hc, onUpload: s.onUpload}
	}
	return standardTransport{hc: c.hc}
}
