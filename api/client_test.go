package api_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/adamwoolhether/qstd/api"
	"github.com/adamwoolhether/qstd/api/throttle"
	"github.com/adamwoolhether/qstd/internal/validate"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	return ts
}

func TestBuild_Validation(t *testing.T) {
	testCases := map[string]struct {
		opts      []api.Option
		expErr    error
		expFields []string
	}{
		"relative base url": {
			opts:      []api.Option{api.WithBaseURL("/v1")},
			expFields: []string{"baseURL"},
		},
		"non http base url": {
			opts:      []api.Option{api.WithBaseURL("ftp://example.com")},
			expFields: []string{"baseURL"},
		},
		"invalid request id header": {
			opts:      []api.Option{api.WithRequestID("X Request:ID")},
			expFields: []string{"requestIDHeader"},
		},
		"zero throttle": {
			opts:   []api.Option{api.WithThrottle(0, 1)},
			expErr: throttle.ErrMustNotBeZero,
		},
		"nil transport": {
			opts: []api.Option{api.WithTransport(nil)},
		},
		"nil client": {
			opts: []api.Option{api.WithClient(nil)},
		},
		"negative timeout": {
			opts: []api.Option{api.WithTimeout(-time.Second)},
		},
		"nil logger": {
			opts: []api.Option{api.WithLogger(nil)},
		},
		"nil tracer": {
			opts: []api.Option{api.WithTracer(nil)},
		},
		"empty request id header": {
			opts: []api.Option{api.WithRequestID("")},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := api.Build(tc.opts...)
			if err == nil {
				t.Fatal("expected an error")
			}

			if tc.expErr != nil && !errors.Is(err, tc.expErr) {
				t.Errorf("expected %v, got: %v", tc.expErr, err)
			}

			if tc.expFields != nil {
				var fe validate.FieldErrors
				if !errors.As(err, &fe) {
					t.Fatalf("expected field errors, got: %v", err)
				}
				if got := fe.Fields(); len(got) != 1 || got[0] != tc.expFields[0] {
					t.Errorf("expected fields %v, got %v", tc.expFields, got)
				}
			}
		})
	}
}

func TestBuild_BaseURL(t *testing.T) {
	c, err := api.Build(api.WithBaseURL("https://api.example.com/v1/"))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if c.BaseURL() != "https://api.example.com/v1/" {
		t.Errorf("unexpected base url %q", c.BaseURL())
	}
	if got, exp := c.URL("users", api.Params{"id": 1}), "https://api.example.com/v1/users?id=1"; got != exp {
		t.Errorf("expected %q, got %q", exp, got)
	}
}

func TestClient_WithUserAgent(t *testing.T) {
	expectedUA := "TestUserAgent/1.0"

	ts := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != expectedUA {
			t.Errorf("expected User-Agent %q, got %q", expectedUA, ua)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	c, err := api.Build(api.WithBaseURL(ts.URL), api.WithUserAgent(expectedUA))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if _, err := api.Get[api.Result](t.Context(), c, "/"); err != nil {
		t.Errorf("expected no error, got: %v", err)
	}
}

func TestClient_WithTransport(t *testing.T) {
	var called bool
	custom := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		called = true
		return http.DefaultTransport.RoundTrip(r)
	})

	ts := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	c, err := api.Build(api.WithBaseURL(ts.URL), api.WithTransport(custom))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if _, err := api.Get[api.Result](t.Context(), c, "/"); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if !called {
		t.Error("custom transport was not called")
	}
}

func TestClient_WithClient(t *testing.T) {
	custom := &http.Client{Timeout: 42 * time.Second}

	ts := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	c, err := api.Build(
		api.WithBaseURL(ts.URL),
		api.WithClient(custom),
		api.WithTimeout(time.Second),
		api.WithNoFollowRedirects(),
	)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if _, err := api.Get[api.Result](t.Context(), c, "/"); err != nil {
		t.Errorf("expected no error, got: %v", err)
	}

	if custom.Timeout != 42*time.Second {
		t.Errorf("expected provided client timeout preserved as 42s, got %v", custom.Timeout)
	}
	if custom.CheckRedirect != nil {
		t.Error("expected provided client redirect policy to be untouched")
	}
}

func TestClient_WithTimeout(t *testing.T) {
	ts := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	})

	c, err := api.Build(api.WithBaseURL(ts.URL), api.WithTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	_, err = api.Get[api.Result](t.Context(), c, "/slow")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if errors.Is(err, api.ErrAborted) {
		t.Errorf("client timeout should not be reported as an abort: %v", err)
	}
}

func TestClient_WithNoFollowRedirects(t *testing.T) {
	ts := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/redirect" {
			http.Redirect(w, r, "/target", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	c, err := api.Build(api.WithBaseURL(ts.URL), api.WithNoFollowRedirects())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	_, err = api.Get[api.Result](t.Context(), c, "/redirect")

	var restErr *api.RestError
	if !errors.As(err, &restErr) {
		t.Fatalf("expected *RestError, got: %v", err)
	}
	if restErr.StatusCode != http.StatusFound {
		t.Errorf("expected status %d, got %d", http.StatusFound, restErr.StatusCode)
	}
}

func TestClient_WithThrottle(t *testing.T) {
	ts := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	c, err := api.Build(api.WithBaseURL(ts.URL), api.WithThrottle(10, 1))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	start := time.Now()
	for range 3 {
		if _, err := api.Get[api.Result](t.Context(), c, "/"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("expected throttling to slow requests to >= 150ms, took %v", elapsed)
	}
}
