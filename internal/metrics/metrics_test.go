package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		// Known exact routes.
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/metrics", "/metrics"},
		{"/", "/"},
		{"/api/v1/location", "/api/v1/location"},
		{"/api/v1/constellation", "/api/v1/constellation"},
		{"/api/v1/satellites", "/api/v1/satellites"},
		{"/api/v1/health", "/api/v1/health"},
		{"/api/v1/passes", "/api/v1/passes"},
		{"/api/v1/stream/constellation", "/api/v1/stream/constellation"},

		// Per-satellite routes collapse to one label.
		{"/api/v1/satellites/1", "/api/v1/satellites/{prn}"},
		{"/api/v1/satellites/24", "/api/v1/satellites/{prn}"},
		{"/api/v1/satellites/notanumber", "/api/v1/satellites/{prn}"},

		// Unknown/bot paths collapse to "other".
		{"/wp-admin", "other"},
		{"/robots.txt", "other"},
		{"/.env", "other"},
		{"/api/v2/something", "other"},
		{"/favicon.ico", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := normalizeRoute(tt.path)
			if got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// TestMetricsCardinality verifies that many distinct PRN paths produce
// exactly 1 distinct path label.
func TestMetricsCardinality(t *testing.T) {
	seen := make(map[string]bool)
	for i := 1; i <= 32; i++ {
		label := normalizeRoute("/api/v1/satellites/" + string(rune('0'+i%10)) + string(rune('0'+i/10)))
		seen[label] = true
	}
	if len(seen) != 1 {
		t.Errorf("expected 1 unique label for per-satellite paths, got %d: %v", len(seen), seen)
	}
}

// TestMiddlewareStreamingPassthrough verifies the wrapped writer still
// supports flushing, so SSE handlers work behind the middleware.
func TestMiddlewareStreamingPassthrough(t *testing.T) {
	var sawFlusher bool
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawFlusher = w.(http.Flusher)

		type unwrapper interface {
			Unwrap() http.ResponseWriter
		}
		u, ok := w.(unwrapper)
		if !ok {
			t.Fatal("wrapped writer does not expose Unwrap")
		}
		if _, ok := u.Unwrap().(*httptest.ResponseRecorder); !ok {
			t.Errorf("Unwrap returned %T, want the underlying recorder", u.Unwrap())
		}
	}))

	req := httptest.NewRequest("GET", "/api/v1/stream/constellation", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !sawFlusher {
		t.Error("wrapped writer does not implement http.Flusher")
	}
}
