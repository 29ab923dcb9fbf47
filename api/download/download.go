package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Handle streams body to a temp file in the same directory as destPath,
// renaming it to destPath on success. On any error the temp file is
// removed. contentLength is the expected size, or -1 when unknown.
func Handle(ctx context.Context, body io.Reader, contentLength int64, destPath string, logger *slog.Logger, optFns ...Option) error {
	if destPath == "" {
		return errors.New("destPath must not be empty")
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return fmt.Errorf("applying option: %w", err)
		}
	}

	if logger == nil {
		logger = slog.Default()
	}

	if opts.skipExisting && exists(destPath) {
		logger.Info("skipping existing file", "path", destPath)
		return nil
	}

	tmp, err := newStaging(destPath, logger)
	if err != nil {
		return err
	}
	defer tmp.discard()

	n, err := io.Copy(opts.sink(tmp.file, contentLength, logger), &contextReader{ctx: ctx, r: body})
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrDownloadCancelled, err)
		}
		return fmt.Errorf("copying file body: %w", err)
	}

	if err := verify(n, contentLength, opts.checksum); err != nil {
		return err
	}

	if err := tmp.commit(); err != nil {
		return err
	}

	logger.Debug("download complete", "path", destPath, "bytes", n)

	return nil
}

// sink layers checksum and progress writers over w.
func (o options) sink(w io.Writer, total int64, logger *slog.Logger) io.Writer {
	if o.checksum != nil {
		w = io.MultiWriter(w, o.checksum)
	}
	if o.progress != nil {
		w = &progressWriter{w: w, fn: o.progress, logger: logger, total: total, startTime: time.Now()}
	}
	return w
}

// verify checks the written byte count against contentLength, when known,
// and then the checksum, when one was requested.
func verify(written, contentLength int64, checksum *checksumVerifier) error {
	if contentLength >= 0 && written != contentLength {
		return &Error{
			Err:    ErrContentLengthMismatch,
			Detail: fmt.Sprintf("expected %d bytes, got %d", contentLength, written),
		}
	}

	return checksum.Verify()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// staging is a temp file next to its destination. It is renamed into
// place by commit; discard removes it unless commit succeeded.
type staging struct {
	file      *os.File
	dest      string
	logger    *slog.Logger
	committed bool
}

func newStaging(dest string, logger *slog.Logger) (*staging, error) {
	f, err := os.CreateTemp(filepath.Dir(dest), ".qstd-dl-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}

	return &staging{file: f, dest: dest, logger: logger}, nil
}

func (s *staging) commit() error {
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(s.file.Name(), s.dest); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	s.committed = true
	return nil
}

func (s *staging) discard() {
	if s.committed {
		return
	}

	if err := s.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		s.logger.Error("closing temp file", "error", err)
	}
	if err := os.Remove(s.file.Name()); err != nil {
		s.logger.Error("removing temp file", "path", s.file.Name(), "error", err)
	}
}
