package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tokenipsum/tokenipsum/internal/config"
	"github.com/tokenipsum/tokenipsum/internal/state"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(mutate func(*config.Config)) *Server {
	cfg := config.Default()
	cfg.Content.Deterministic = true
	if mutate != nil {
		mutate(cfg)
	}
	return New(state.New(cfg))
}

func do(t *testing.T, s *Server, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := do(t, newTestServer(nil), http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("health = %d %q, want 200 ok", w.Code, w.Body.String())
	}
}

func TestAllProvidersMounted(t *testing.T) {
	s := newTestServer(nil)

	tests := []struct {
		path string
		body string
	}{
		{"/v1/chat/completions", `{"model":"m","messages":[{"role":"user","content":"Hello"}]}`},
		{"/v1/messages", `{"model":"m","max_tokens":50,"messages":[{"role":"user","content":"Hello"}]}`},
		{"/v1beta/models/gemini-pro:generateContent", `{"contents":[{"role":"user","parts":[{"text":"Hello"}]}]}`},
		{"/v1/responses", `{"model":"m","input":"Hello"}`},
	}
	for _, tt := range tests {
		w := do(t, s, http.MethodPost, tt.path, tt.body, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, want 200: %s", tt.path, w.Code, w.Body.String())
		}
	}
}

func TestDisabledProviderNotMounted(t *testing.T) {
	s := newTestServer(func(cfg *config.Config) {
		cfg.Providers.Claude = false
	})

	w := do(t, s, http.MethodPost, "/v1/messages",
		`{"model":"m","max_tokens":50,"messages":[{"role":"user","content":"Hello"}]}`, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for a disabled provider", w.Code)
	}

	w = do(t, s, http.MethodPost, "/v1/responses", `{"model":"m","input":"Hello"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want other providers untouched", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(func(cfg *config.Config) {
		cfg.Auth.RequireAuth = true
		cfg.Auth.ValidKeys = []string{"k1"}
	})
	body := `{"model":"m","messages":[{"role":"user","content":"Hello"}]}`

	w := do(t, s, http.MethodPost, "/v1/chat/completions", body,
		map[string]string{"Authorization": "Bearer k1"})
	if w.Code != http.StatusOK {
		t.Fatalf("valid key: status = %d, want 200", w.Code)
	}

	w = do(t, s, http.MethodPost, "/v1/chat/completions", body,
		map[string]string{"Authorization": "Bearer nope"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key: status = %d, want 401", w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid_api_key") {
		t.Fatalf("wrong key body = %s, want provider-shaped 401", w.Body.String())
	}

	w = do(t, s, http.MethodPost, "/v1/chat/completions", body, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("missing header: status = %d, want 401", w.Code)
	}
}

func TestAuthErrorShapeFollowsPath(t *testing.T) {
	s := newTestServer(func(cfg *config.Config) {
		cfg.Auth.RequireAuth = true
		cfg.Auth.ValidKeys = []string{"k1"}
	})

	w := do(t, s, http.MethodPost, "/v1/messages",
		`{"model":"m","max_tokens":50,"messages":[{"role":"user","content":"Hello"}]}`,
		map[string]string{"Authorization": "Bearer nope"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if !strings.Contains(w.Body.String(), "authentication_error") {
		t.Fatalf("body = %s, want Anthropic-shaped error", w.Body.String())
	}

	w = do(t, s, http.MethodPost, "/v1beta/models/gemini-pro:generateContent",
		`{"contents":[{"role":"user","parts":[{"text":"Hello"}]}]}`,
		map[string]string{"Authorization": "Bearer nope"})
	if !strings.Contains(w.Body.String(), "UNAUTHENTICATED") {
		t.Fatalf("body = %s, want Google-shaped error", w.Body.String())
	}
}

func TestForcedErrorAppliesEverywhere(t *testing.T) {
	s := newTestServer(func(cfg *config.Config) {
		cfg.Errors.ForceError = config.ForceServerError
	})

	paths := []struct {
		method, path, body string
	}{
		{http.MethodGet, "/health", ""},
		{http.MethodPost, "/v1/chat/completions", `{"model":"m","messages":[]}`},
		{http.MethodPost, "/v1/messages", `{"model":"m","max_tokens":50,"messages":[]}`},
		{http.MethodPost, "/v1/responses", `{"model":"m","input":"Hello"}`},
	}
	for _, tt := range paths {
		w := do(t, s, tt.method, tt.path, tt.body, nil)
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("%s: status = %d, want forced 500", tt.path, w.Code)
		}
	}
}

func TestForcedTimeout(t *testing.T) {
	s := newTestServer(func(cfg *config.Config) {
		cfg.Errors.ForceError = config.ForceTimeout
	})

	w := do(t, s, http.MethodPost, "/v1/chat/completions", `{"model":"m","messages":[]}`, nil)
	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", w.Code)
	}
}

func TestFailAfterRequestsThreshold(t *testing.T) {
	s := newTestServer(func(cfg *config.Config) {
		cfg.RateLimit.FailAfterRequests = 3
	})
	body := `{"model":"m","messages":[{"role":"user","content":"Hello"}]}`

	for i := 1; i <= 6; i++ {
		w := do(t, s, http.MethodPost, "/v1/chat/completions", body, nil)
		if i < 3 {
			if w.Code != http.StatusOK {
				t.Fatalf("request %d: status = %d, want 200 before threshold", i, w.Code)
			}
			continue
		}
		if w.Code != http.StatusTooManyRequests {
			t.Fatalf("request %d: status = %d, want permanent 429", i, w.Code)
		}
		if got := w.Header().Get("retry-after"); got == "" {
			t.Fatalf("request %d: missing retry-after header", i)
		}
	}
}

func TestLatencyDelaysDispatch(t *testing.T) {
	s := newTestServer(func(cfg *config.Config) {
		cfg.Server.LatencyMS = 60
	})

	start := time.Now()
	w := do(t, s, http.MethodGet, "/health", "", nil)
	elapsed := time.Since(start)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if elapsed < 60*time.Millisecond {
		t.Fatalf("request returned after %v, want at least 60ms", elapsed)
	}
}

func TestStreamingThroughServer(t *testing.T) {
	s := newTestServer(nil)

	w := do(t, s, http.MethodPost, "/v1/chat/completions",
		`{"model":"m","messages":[{"role":"user","content":"Hello"}],"stream":true,"max_tokens":5}`, nil)
	if got := w.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("content-type = %q, want text/event-stream", got)
	}
	if !strings.HasSuffix(w.Body.String(), "data: [DONE]\n\n") {
		t.Fatalf("stream does not end with the done sentinel: %q", w.Body.String())
	}
}

func TestCORSHeaders(t *testing.T) {
	s := newTestServer(nil)

	req := httptest.NewRequest(http.MethodOptions, "/v1/chat/completions", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Fatal("missing Access-Control-Allow-Origin header")
	}
}
