// Package throttle provides an [http.RoundTripper] that rate-limits
// outbound REST calls using a token-bucket algorithm from
// [golang.org/x/time/rate].
//
// # Usage
//
// Most callers enable it through api.WithThrottle. It can also wrap
// any transport directly:
//
//	rt, err := throttle.NewRoundTripper(
//		throttle.Config{RPS: 10, Burst: 5},
//		func() *slog.Logger { return slog.Default() },
//		http.DefaultTransport,
//	)
//	httpClient := &http.Client{Transport: rt}
//
// When the bucket is empty, requests block until a token becomes
// available or the request context ends.
package throttle
