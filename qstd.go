// Package qstd exposes the REST client builder.
package qstd

import (
	"github.com/adamwoolhether/qstd/api"
)

// NewClient instantiates a new *api.Client with the provided options.
// If not specified, a fresh http.Client over http.DefaultTransport is used.
func NewClient(opts ...api.Option) (*api.Client, error) {
	return api.Build(opts...)
}
