package api

import (
	"context"
	"errors"
	"hash"
	"net/http"
	"os"
	"slices"

	"github.com/adamwoolhether/qstd/api/download"
	"github.com/adamwoolhether/qstd/api/progress"
)

// Re-exported from [download] and [progress].
type (
	// Progress is a snapshot of an upload or download.
	Progress = progress.Progress

	// DownloadError wraps a sentinel error with additional detail.
	DownloadError = download.Error
)

var (
	// ErrContentLengthMismatch indicates the byte count did not match Content-Length.
	ErrContentLengthMismatch = download.ErrContentLengthMismatch

	// ErrChecksumMismatch indicates the file checksum did not match the expected value.
	ErrChecksumMismatch = download.ErrChecksumMismatch

	// ErrDownloadCancelled indicates the download was cancelled via context.
	ErrDownloadCancelled = download.ErrDownloadCancelled
)

// WithChecksum validates a file saved by [Client.Download]. h is a
// [hash.Hash] instance (e.g. sha256.New()), and expected is the
// hex-encoded checksum.
func WithChecksum(h hash.Hash, expected string) RequestOption {
	return func(s *requestSettings) error {
		if h == nil {
			return errors.New("hash must not be nil")
		}
		if expected == "" {
			return errors.New("expected checksum must not be empty")
		}
		s.download = append(s.download, download.WithChecksum(h, expected))
		return nil
	}
}

// WithSkipExisting makes [Client.Download] return nil without sending
// a request when the destination file already exists.
func WithSkipExisting() RequestOption {
	return func(s *requestSettings) error {
		s.skipExisting = true
		return nil
	}
}

// Download GETs path and saves the response body to destPath. The file
// appears only once it is complete and, with [WithChecksum], verified.
// Progress set with [WithDownloadProgress] is reported as the file is
// written.
func (c *Client) Download(ctx context.Context, path, destPath string, opts ...RequestOption) error {
	if destPath == "" {
		return errors.New("destPath must not be empty")
	}

	s, err := parseSettings(append(slices.Clip(opts), WithOutput(OutputStream)))
	if err != nil {
		return err
	}

	if s.skipExisting {
		if _, err := os.Stat(destPath); err == nil {
			c.logger.Info("skipping existing file", "path", destPath)
			return nil
		}
	}

	dlOpts := s.download
	if s.onDownload != nil {
		dlOpts = append(dlOpts, download.WithProgress(s.onDownload))
		s.onDownload = nil
	}

	out, err := c.execute(ctx, http.MethodGet, path, &s, func(r Result) (any, error) { return r, nil })
	if err != nil {
		return err
	}

	res, ok := out.(Result)
	if !ok || res.Stream == nil {
		return ErrOutputType
	}

	defer func() {
		if err := res.Stream.Close(); err != nil {
			c.logger.Error("failed to close download body", "error", err)
		}
	}()

	if err := download.Handle(ctx, res.Stream, res.ContentLength, destPath, c.logger, dlOpts...); err != nil {
		c.notifyError(err)
		return err
	}

	return nil
}
