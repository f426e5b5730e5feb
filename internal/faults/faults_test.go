package faults

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Provider
	}{
		{"/v1/chat/completions", Chat},
		{"/v1beta/models/gemini-pro:generateContent", Gemini},
		{"/v1/messages", Claude},
		{"/v1/responses", Responses},
		{"/health", Chat},
		{"/unknown", Chat},
	}
	for _, tt := range tests {
		if got := FromPath(tt.path); got != tt.want {
			t.Fatalf("FromPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func writeFault(t *testing.T, kind Kind, provider Provider) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	Write(c, kind, provider)
	if !c.IsAborted() {
		t.Fatal("context not aborted after fault write")
	}
	return w
}

func TestWriteStatusCodes(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{Unauthorized, http.StatusUnauthorized},
		{RateLimit, http.StatusTooManyRequests},
		{ServerError, http.StatusInternalServerError},
		{Timeout, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		for _, provider := range []Provider{Chat, Gemini, Claude, Responses} {
			w := writeFault(t, tt.kind, provider)
			if w.Code != tt.want {
				t.Fatalf("kind %v provider %v: status = %d, want %d", tt.kind, provider, w.Code, tt.want)
			}
		}
	}
}

func TestWriteOpenAIShape(t *testing.T) {
	w := writeFault(t, Unauthorized, Chat)

	var body struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Error.Type != "invalid_request_error" {
		t.Fatalf("type = %q, want invalid_request_error", body.Error.Type)
	}
	if body.Error.Code != "invalid_api_key" {
		t.Fatalf("code = %q, want invalid_api_key", body.Error.Code)
	}
}

func TestWriteOpenAIRateLimitHeaders(t *testing.T) {
	w := writeFault(t, RateLimit, Chat)

	if got := w.Header().Get("x-ratelimit-limit-requests"); got != "60" {
		t.Fatalf("x-ratelimit-limit-requests = %q, want 60", got)
	}
	if got := w.Header().Get("x-ratelimit-remaining-requests"); got != "0" {
		t.Fatalf("x-ratelimit-remaining-requests = %q, want 0", got)
	}
	if got := w.Header().Get("retry-after"); got != "1" {
		t.Fatalf("retry-after = %q, want 1", got)
	}
}

func TestWriteGeminiShape(t *testing.T) {
	w := writeFault(t, RateLimit, Gemini)

	if got := w.Header().Get("retry-after"); got != "60" {
		t.Fatalf("retry-after = %q, want 60", got)
	}
	body := w.Body.String()
	if !strings.Contains(body, "RESOURCE_EXHAUSTED") {
		t.Fatalf("body missing RESOURCE_EXHAUSTED status: %s", body)
	}
	if !strings.Contains(body, "google.rpc.QuotaFailure") {
		t.Fatalf("body missing QuotaFailure detail: %s", body)
	}
}

func TestWriteGeminiUnauthorized(t *testing.T) {
	w := writeFault(t, Unauthorized, Gemini)

	body := w.Body.String()
	if !strings.Contains(body, "UNAUTHENTICATED") || !strings.Contains(body, "API_KEY_INVALID") {
		t.Fatalf("body missing google error details: %s", body)
	}
}

func TestWriteClaudeShape(t *testing.T) {
	tests := []struct {
		kind     Kind
		wantType string
	}{
		{Unauthorized, "authentication_error"},
		{RateLimit, "rate_limit_error"},
		{ServerError, "api_error"},
		{Timeout, "timeout_error"},
	}
	for _, tt := range tests {
		w := writeFault(t, tt.kind, Claude)

		var body struct {
			Type  string `json:"type"`
			Error struct {
				Type string `json:"type"`
			} `json:"error"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if body.Type != "error" {
			t.Fatalf("envelope type = %q, want error", body.Type)
		}
		if body.Error.Type != tt.wantType {
			t.Fatalf("error type = %q, want %q", body.Error.Type, tt.wantType)
		}
	}
}
