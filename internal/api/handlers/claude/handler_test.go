package claude

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/v1/messages", NewHandler().Messages)
	return r
}

func post(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestMessageContentUnmarshal(t *testing.T) {
	var text MessageContent
	if err := json.Unmarshal([]byte(`"Hello"`), &text); err != nil {
		t.Fatalf("unmarshal string content: %v", err)
	}
	if !text.IsText || text.Text != "Hello" {
		t.Fatalf("content = %+v, want text Hello", text)
	}

	var blocks MessageContent
	if err := json.Unmarshal([]byte(`[{"type":"text","text":"Hi"},{"type":"tool_result","tool_use_id":"toolu_1","content":"ok"}]`), &blocks); err != nil {
		t.Fatalf("unmarshal block content: %v", err)
	}
	if blocks.IsText || len(blocks.Blocks) != 2 {
		t.Fatalf("content = %+v, want two blocks", blocks)
	}
	if blocks.Blocks[1].ToolUseID != "toolu_1" {
		t.Fatalf("tool_use_id = %q, want toolu_1", blocks.Blocks[1].ToolUseID)
	}
}

func TestMessagesNonStreaming(t *testing.T) {
	w := post(t, newRouter(), `{
		"model": "claude-haiku-4-5-20251001",
		"max_tokens": 100,
		"messages": [{"role": "user", "content": "Hello"}]
	}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp MessagesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !strings.HasPrefix(resp.ID, "msg_") {
		t.Fatalf("id = %q, want msg_ prefix", resp.ID)
	}
	if resp.Type != "message" || resp.Role != "assistant" {
		t.Fatalf("envelope = %s/%s, want message/assistant", resp.Type, resp.Role)
	}
	if resp.StopReason != "end_turn" {
		t.Fatalf("stop_reason = %q, want end_turn", resp.StopReason)
	}
	if resp.StopSequence != nil {
		t.Fatalf("stop_sequence = %v, want null", *resp.StopSequence)
	}
	if len(resp.Content) != 1 || resp.Content[0].Type != "text" || resp.Content[0].Text == "" {
		t.Fatalf("content = %+v, want one non-empty text block", resp.Content)
	}
	if resp.Usage.InputTokens != 2 {
		t.Fatalf("input_tokens = %d, want 2 for %q", resp.Usage.InputTokens, "Hello")
	}
	if resp.Usage.OutputTokens < 1 {
		t.Fatalf("output_tokens = %d, want at least 1", resp.Usage.OutputTokens)
	}
}

func TestMessagesCountsSystemPrompt(t *testing.T) {
	w := post(t, newRouter(), `{
		"model": "claude-haiku-4-5-20251001",
		"max_tokens": 100,
		"system": "You are terse.",
		"messages": [{"role": "user", "content": "Hello"}]
	}`)

	var resp MessagesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	// "You are terse." is 14 chars -> 4 tokens, plus 2 for "Hello".
	if resp.Usage.InputTokens != 6 {
		t.Fatalf("input_tokens = %d, want 6", resp.Usage.InputTokens)
	}
}

func TestMessagesToolUse(t *testing.T) {
	w := post(t, newRouter(), `{
		"model": "claude-haiku-4-5-20251001",
		"max_tokens": 100,
		"messages": [{"role": "user", "content": "What is the weather in Tokyo?"}],
		"tools": [{"name": "get_weather", "description": "Get weather"}]
	}`)

	var resp MessagesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.StopReason != "tool_use" {
		t.Fatalf("stop_reason = %q, want tool_use", resp.StopReason)
	}
	if len(resp.Content) != 1 {
		t.Fatalf("content blocks = %d, want 1", len(resp.Content))
	}
	block := resp.Content[0]
	if block.Type != "tool_use" || !strings.HasPrefix(block.ID, "toolu_") {
		t.Fatalf("block = %+v, want tool_use with toolu_ id", block)
	}
	if block.Name != "get_weather" || block.Input["location"] != "Tokyo" {
		t.Fatalf("block = %+v, want get_weather for Tokyo", block)
	}
	if resp.Usage.OutputTokens != 50 {
		t.Fatalf("output_tokens = %d, want flat 50 for a tool call", resp.Usage.OutputTokens)
	}
}

func TestMessagesThinking(t *testing.T) {
	w := post(t, newRouter(), `{
		"model": "claude-haiku-4-5-20251001",
		"max_tokens": 2000,
		"thinking": {"type": "enabled", "budget_tokens": 1024},
		"messages": [{"role": "user", "content": "Explain transformers"}]
	}`)

	var resp MessagesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(resp.Content) != 2 {
		t.Fatalf("content blocks = %d, want thinking then text", len(resp.Content))
	}
	thinking := resp.Content[0]
	if thinking.Type != "thinking" || thinking.Thinking == "" {
		t.Fatalf("first block = %+v, want non-empty thinking", thinking)
	}
	if !strings.HasPrefix(thinking.Signature, "EtUB") || !strings.HasSuffix(thinking.Signature, "==") {
		t.Fatalf("signature = %q, want EtUB prefix and == suffix", thinking.Signature)
	}
	if resp.Content[1].Type != "text" {
		t.Fatalf("second block = %+v, want text", resp.Content[1])
	}
}

func TestMessagesStreaming(t *testing.T) {
	w := post(t, newRouter(), `{
		"model": "claude-haiku-4-5-20251001",
		"max_tokens": 8,
		"stream": true,
		"messages": [{"role": "user", "content": "Hello"}]
	}`)

	if got := w.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("content-type = %q, want text/event-stream", got)
	}

	body := w.Body.String()
	for _, name := range []string{
		"event: message_start",
		"event: content_block_start",
		"event: content_block_delta",
		"event: content_block_stop",
		"event: message_delta",
		"event: message_stop",
	} {
		if !strings.Contains(body, name+"\n") {
			t.Fatalf("stream missing %q: %s", name, body)
		}
	}
	if strings.Contains(body, "[DONE]") {
		t.Fatalf("stream carries a done sentinel: %s", body)
	}
	if !strings.HasSuffix(body, "data: {\"type\":\"message_stop\"}\n\n") {
		t.Fatalf("stream does not end with message_stop: %q", body)
	}
	if !strings.Contains(body, `"text_delta"`) {
		t.Fatalf("stream missing text deltas: %s", body)
	}
}

func TestMessagesStreamingToolUse(t *testing.T) {
	w := post(t, newRouter(), `{
		"model": "claude-haiku-4-5-20251001",
		"max_tokens": 100,
		"stream": true,
		"messages": [{"role": "user", "content": "find Lisbon"}],
		"tools": [{"name": "lookup"}]
	}`)

	body := w.Body.String()
	if !strings.Contains(body, `"input_json_delta"`) {
		t.Fatalf("stream missing input_json_delta: %s", body)
	}
	if !strings.Contains(body, "Lisbon") {
		t.Fatalf("stream missing extracted argument: %s", body)
	}
	if !strings.Contains(body, `"stop_reason":"tool_use"`) {
		t.Fatalf("stream missing tool_use stop reason: %s", body)
	}
}

func TestMessagesStreamingThinkingBlocks(t *testing.T) {
	w := post(t, newRouter(), `{
		"model": "claude-haiku-4-5-20251001",
		"max_tokens": 8,
		"stream": true,
		"thinking": {"type": "enabled", "budget_tokens": 512},
		"messages": [{"role": "user", "content": "Hello"}]
	}`)

	body := w.Body.String()
	if !strings.Contains(body, `"thinking_delta"`) {
		t.Fatalf("stream missing thinking deltas: %s", body)
	}
	if !strings.Contains(body, `"signature_delta"`) {
		t.Fatalf("stream missing signature delta: %s", body)
	}
	// The thinking block occupies index 0, text follows at index 1.
	if !strings.Contains(body, `"index":1`) {
		t.Fatalf("stream missing second content block: %s", body)
	}
}
