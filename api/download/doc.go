// Package download streams REST response bodies to disk with optional
// checksum validation and progress reporting.
//
// [Handle] writes the body to a temporary file alongside the
// destination path, then renames it into place on success:
//
//	err := download.Handle(ctx, body, contentLength, destPath, logger,
//		download.WithChecksum(sha256.New(), expectedHex),
//	)
//
// Most callers should use api.Client.Download, which issues the request
// and invokes Handle with the response body.
package download
