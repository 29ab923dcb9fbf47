// Package progress reports transfer progress for request and
// response bodies as they are read or written.
package progress

import (
	"io"
	"math"
)

// Progress is a snapshot of a transfer. Total is 0 when the size
// is unknown, in which case Percent is always 0.
type Progress struct {
	Loaded  int64 `json:"loaded"`
	Total   int64 `json:"total"`
	Percent int   `json:"percent"`
}

// Func receives a Progress snapshot after every chunk.
type Func func(Progress)

// New computes a snapshot for loaded out of total bytes.
func New(loaded, total int64) Progress {
	if total < 0 {
		total = 0
	}

	p := Progress{Loaded: loaded, Total: total}
	if total > 0 {
		p.Percent = int(math.Round(float64(loaded) / float64(total) * 100))
	}

	return p
}

// Reader is an io.Reader, invoking fn after every non-empty read.
type Reader struct {
	r      io.Reader
	fn     Func
	loaded int64
	total  int64
}

// NewReader wraps r, reporting progress against total.
func NewReader(r io.Reader, total int64, fn Func) *Reader {
	return &Reader{r: r, fn: fn, total: total}
}

func (pr *Reader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 {
		pr.loaded += int64(n)
		pr.fn(New(pr.loaded, pr.total))
	}

	return n, err
}

// Loaded returns the number of bytes read so far.
func (pr *Reader) Loaded() int64 { return pr.loaded }

// ReadCloser pairs a Reader with the Close of the stream it wraps.
type ReadCloser struct {
	*Reader
	c io.Closer
}

// NewReadCloser wraps rc, reporting progress against total.
func NewReadCloser(rc io.ReadCloser, total int64, fn Func) *ReadCloser {
	return &ReadCloser{Reader: NewReader(rc, total, fn), c: rc}
}

func (prc *ReadCloser) Close() error {
	return prc.c.Close()
}
