package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthMiddleware(t *testing.T) {
	cases := []struct {
		name   string
		apiKey string
		method string
		path   string
		header string
		want   int
	}{
		{"no key configured", "", http.MethodGet, "/v1/metrics/latest", "", http.StatusOK},
		{"health bypass", "secret123", http.MethodGet, "/health", "", http.StatusOK},
		{"preflight bypass", "secret123", http.MethodOptions, "/v1/metrics/latest", "", http.StatusOK},
		{"missing header", "secret123", http.MethodGet, "/v1/metrics/latest", "", http.StatusUnauthorized},
		{"wrong key", "secret123", http.MethodGet, "/v1/metrics/latest", "Bearer wrong_key", http.StatusUnauthorized},
		{"correct key", "secret123", http.MethodGet, "/v1/snapshots/ACME", "Bearer secret123", http.StatusOK},
		{"non-bearer scheme", "secret123", http.MethodGet, "/v1/metrics/latest", "Basic secret123", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &Server{apiKey: tc.apiKey}
			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			s.authMiddleware(inner).ServeHTTP(rr, req)

			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rr.Code)
			}
		})
	}
}

func TestValidateTicker(t *testing.T) {
	for _, s := range []string{"ACME", "brk.b", "RDS-A", "X"} {
		if !validateTicker(s) {
			t.Fatalf("expected %q to be valid", s)
		}
	}
	for _, s := range []string{"", "ACME CORP", "A/B", "'; DROP", "ABCDEFGHIJKLMNOPQ"} {
		if validateTicker(s) {
			t.Fatalf("expected %q to be invalid", s)
		}
	}
}

func TestParseLimit(t *testing.T) {
	cases := []struct {
		query    string
		deflt    int
		expected int
	}{
		{"", 20, 20},
		{"?limit=50", 20, 50},
		{"?limit=0", 20, 20},
		{"?limit=-5", 20, 20},
		{"?limit=abc", 20, 20},
		{"?limit=2000", 20, maxQueryLimit},
		{"?limit=1", 20, 1},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/v1/snapshots/ACME"+tc.query, nil)
		if got := parseLimit(req, tc.deflt); got != tc.expected {
			t.Fatalf("parseLimit(%q, %d) = %d, want %d", tc.query, tc.deflt, got, tc.expected)
		}
	}
}

func TestCorsMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			t.Fatal("inner handler should not be called for OPTIONS")
		}
		w.WriteHeader(http.StatusOK)
	})
	handler := corsMiddleware(inner, "https://dashboard.example.com")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/metrics/latest", nil))
	if origin := rr.Header().Get("Access-Control-Allow-Origin"); origin != "https://dashboard.example.com" {
		t.Fatalf("expected custom origin, got %q", origin)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/v1/metrics/latest", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for preflight, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Headers") == "" {
		t.Fatal("expected Allow-Headers on preflight")
	}
}
