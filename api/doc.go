// Package api provides a typed REST client built on [net/http].
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	c, err := api.Build(
//		api.WithBaseURL("https://api.example.com/v1"),
//		api.WithDefaultHeaders(http.Header{"Authorization": {"Bearer " + token}}),
//		api.WithRequestID("X-Request-ID"),
//	)
//
// # Making Requests
//
// The verb helpers join the path to the base URL, encode the body and
// decode the response into the type parameter:
//
//	user, err := api.Get[User](ctx, c, "/users/42")
//	created, err := api.Post[User](ctx, c, "/users", api.JSON(newUser))
//	_, err = api.Delete[api.Result](ctx, c, "/users/42", nil)
//
// Query parameters go through [WithParams]; nil values are dropped:
//
//	page, err := api.Get[[]User](ctx, c, "/users",
//		api.WithParams(api.Params{"limit": 10, "q": "a b"}),
//	)
//
// A non-2xx status returns a [*RestError] holding the status and body.
// [OnError] turns it into a value instead:
//
//	user, err := api.Get[*User](ctx, c, "/users/42",
//		api.OnError(func(e *api.RestError) (*User, error) {
//			if e.StatusCode == http.StatusNotFound {
//				return nil, nil
//			}
//			return nil, e
//		}),
//	)
//
// # Bodies
//
// [JSON], [Text], [Form], [Binary] and [Value] build request bodies.
// Form bodies are sent as multipart/form-data; [Blob] and [File] field
// values become file parts.
//
// # Event Streams
//
// [Events] decodes a text/event-stream response lazily:
//
//	stream, err := api.Events[Token](ctx, c, http.MethodPost, "/complete", api.JSON(prompt))
//	for ev, err := range stream.All() {
//		if err != nil { ... }
//		fmt.Print(ev.Data.Text)
//	}
//
// # Downloading Files
//
// [Client.Download] streams a response body to disk with optional checksum
// verification and progress reporting:
//
//	err = c.Download(ctx, "/files/report.pdf", "/tmp/report.pdf",
//		api.WithChecksum(sha256.New(), expectedHex),
//		api.WithDownloadProgress(func(p api.Progress) { ... }),
//	)
//
// For lower-level control see the
// [github.com/adamwoolhether/qstd/api/download] package.
package api
