package api

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"
)

// Params holds query parameters. Nil values, including nil pointers,
// are skipped; everything else is formatted with fmt.Sprint.
type Params map[string]any

// IsAbsolute reports whether path targets an external http(s) URL.
// Absolute paths never receive the client's base URL or default headers.
func IsAbsolute(path string) bool {
	p := strings.ToLower(path)
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

// BuildURL joins baseURL and path with exactly one slash and appends
// params as an encoded query. Absolute paths ignore baseURL, and an
// empty baseURL leaves path untouched. A query already present in path
// is kept and extended.
func BuildURL(path, baseURL string, params Params) string {
	return appendQuery(joinURL(path, baseURL), params)
}

func joinURL(path, baseURL string) string {
	if IsAbsolute(path) || baseURL == "" {
		return path
	}

	base := strings.TrimRight(baseURL, "/")
	if strings.HasPrefix(path, "?") || strings.HasPrefix(path, "#") {
		return base + path
	}

	return base + "/" + strings.TrimLeft(path, "/")
}

func appendQuery(rawURL string, params Params) string {
	query := encodeParams(params)
	if query == "" {
		return rawURL
	}

	u, fragment, hasFragment := strings.Cut(rawURL, "#")

	switch {
	case strings.HasSuffix(u, "?"), strings.HasSuffix(u, "&"):
		u += query
	case strings.Contains(u, "?"):
		u += "&" + query
	default:
		u += "?" + query
	}

	if hasFragment {
		u += "#" + fragment
	}

	return u
}

func encodeParams(params Params) string {
	if len(params) == 0 {
		return ""
	}

	values := url.Values{}
	for k, v := range params {
		s, ok := paramString(v)
		if !ok {
			continue
		}
		values.Set(k, s)
	}

	return values.Encode()
}

func paramString(v any) (string, bool) {
	if v == nil {
		return "", false
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
	}

	return fmt.Sprint(rv.Interface()), true
}
