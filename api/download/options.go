package download

import (
	"errors"
	"hash"

	"github.com/adamwoolhether/qstd/api/progress"
)

// Option defines optional settings for [Handle].
type Option func(*options) error

type options struct {
	checksum     *checksumVerifier
	progress     progress.Func
	skipExisting bool
}

// WithChecksum enables checksum validation of the downloaded file.
// h is a hash.Hash instance (e.g. sha256.New()), and expected is the
// hex-encoded expected checksum string.
func WithChecksum(h hash.Hash, expected string) Option {
	return func(opts *options) error {
		if h == nil {
			return errors.New("hash must not be nil")
		}

		if expected == "" {
			return errors.New("expected checksum must not be empty")
		}

		opts.checksum = &checksumVerifier{Hash: h, expected: expected}
		return nil
	}
}

// WithProgress reports progress to fn after every chunk written.
func WithProgress(fn progress.Func) Option {
	return func(opts *options) error {
		if fn == nil {
			return errors.New("progress func must not be nil")
		}
		opts.progress = fn
		return nil
	}
}

// WithSkipExisting makes Handle return nil immediately when the
// destination file already exists.
func WithSkipExisting() Option {
	return func(opts *options) error {
		opts.skipExisting = true
		return nil
	}
}
