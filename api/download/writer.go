package download

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/adamwoolhether/qstd/api/progress"
)

// progressWriter is an io.Writer, reporting every write to fn and
// logging at most once per second.
type progressWriter struct {
	w         io.Writer
	fn        progress.Func
	logger    *slog.Logger
	written   int64
	total     int64
	startTime time.Time
	lastLog   time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.w.Write(p)
	pw.written += int64(n)

	snapshot := progress.New(pw.written, pw.total)
	pw.fn(snapshot)

	if time.Since(pw.lastLog) >= time.Second {
		pw.lastLog = time.Now()
		pw.logger.Debug("downloading",
			"percent", snapshot.Percent,
			"written", pw.written,
			"total", pw.total,
			"elapsed", time.Since(pw.startTime).Round(time.Millisecond),
		)
	}

	return n, err
}

// contextReader stops a copy as soon as ctx ends, even when the
// underlying reader would keep producing data.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
