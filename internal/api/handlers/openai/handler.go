// Package openai emulates the OpenAI-compatible chat completions surface at
// /v1/chat/completions, including its token-by-token streaming variant.
package openai

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/tokenipsum/tokenipsum/internal/api/handlers"
	"github.com/tokenipsum/tokenipsum/internal/generator"
	"github.com/tokenipsum/tokenipsum/internal/sse"
)

const (
	defaultMaxTokens       = 100
	defaultStreamMaxTokens = 50
)

// Handler serves the chat completions emulation.
type Handler struct{}

// NewHandler creates a chat completions handler.
func NewHandler() *Handler {
	return &Handler{}
}

// ChatCompletions handles POST /v1/chat/completions, dispatching on the
// stream flag before the body is fully parsed.
func (h *Handler) ChatCompletions(c *gin.Context) {
	rawJSON, err := c.GetRawData()
	if err != nil {
		handlers.WriteInvalidRequest(c, err)
		return
	}

	if gjson.GetBytes(rawJSON, "stream").Type == gjson.True {
		h.handleStreaming(c, rawJSON)
	} else {
		h.handleNonStreaming(c, rawJSON)
	}
}

func (h *Handler) handleNonStreaming(c *gin.Context, rawJSON []byte) {
	var req ChatCompletionRequest
	if err := json.Unmarshal(rawJSON, &req); err != nil {
		handlers.WriteInvalidRequest(c, err)
		return
	}
	log.Debugf("chat completion: model=%s messages=%d", req.Model, len(req.Messages))

	gen := generator.New()
	created := handlers.NowUnix()

	resp := ChatCompletionResponse{
		ID:                gen.CompletionID(),
		Object:            "chat.completion",
		Created:           created,
		Model:             req.Model,
		SystemFingerprint: gen.Fingerprint(),
		TimeInfo: TimeInfo{
			QueueTime:      0.025,
			PromptTime:     0.003,
			CompletionTime: 0.005,
			TotalTime:      0.035,
			Created:        float64(created),
		},
	}

	promptTokens := promptTokenCount(req.Messages)

	// Completion tokens are charged for generated content even when the
	// response carries a tool call instead of text.
	content := gen.Paragraph()
	maxTokens := defaultMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}
	completionTokens := generator.EstimateTokens(content)
	if completionTokens > maxTokens {
		completionTokens = maxTokens
	}

	if wantsToolCall(&req) {
		resp.Choices = []Choice{{
			Index: 0,
			Message: ResponseMessage{
				Role:    "assistant",
				Content: nil,
				ToolCalls: []ToolCall{{
					ID:   gen.ToolCallID(),
					Type: "function",
					Function: FunctionCall{
						Name:      req.Tools[0].Function.Name,
						Arguments: toolArguments(lastMessageText(req.Messages)),
					},
				}},
			},
			FinishReason: "tool_calls",
		}}
	} else {
		resp.Choices = []Choice{{
			Index: 0,
			Message: ResponseMessage{
				Role:    "assistant",
				Content: &content,
			},
			FinishReason: "stop",
		}}
	}

	resp.Usage = Usage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) handleStreaming(c *gin.Context, rawJSON []byte) {
	var req ChatCompletionRequest
	if err := json.Unmarshal(rawJSON, &req); err != nil {
		handlers.WriteInvalidRequest(c, err)
		return
	}
	log.Debugf("chat completion stream: model=%s messages=%d", req.Model, len(req.Messages))

	gen := generator.New()
	created := handlers.NowUnix()
	id := gen.CompletionID()
	fingerprint := gen.Fingerprint()

	chunk := func(delta gin.H, finishReason any) gin.H {
		return gin.H{
			"id":                 id,
			"object":             "chat.completion.chunk",
			"created":            created,
			"model":              req.Model,
			"system_fingerprint": fingerprint,
			"choices": []gin.H{{
				"index":         0,
				"delta":         delta,
				"finish_reason": finishReason,
			}},
		}
	}

	var events []sse.Event
	events = append(events, sse.Data(chunk(gin.H{"role": "assistant"}, nil)))

	completionTokens := 0
	finishReason := "stop"

	if wantsToolCall(&req) {
		finishReason = "tool_calls"
		completionTokens = 1
		events = append(events, sse.Data(chunk(gin.H{
			"tool_calls": []gin.H{{
				"index": 0,
				"id":    gen.ToolCallID(),
				"type":  "function",
				"function": gin.H{
					"name":      req.Tools[0].Function.Name,
					"arguments": toolArguments(lastMessageText(req.Messages)),
				},
			}},
		}, nil)))
	} else {
		maxTokens := defaultStreamMaxTokens
		if req.MaxTokens != nil {
			maxTokens = *req.MaxTokens
		}
		for i, text := range gen.StreamChunks(maxTokens) {
			if i > 0 {
				text = " " + text
			}
			completionTokens += generator.EstimateTokens(text)
			events = append(events, sse.Data(chunk(gin.H{"content": text}, nil)))
		}
		if completionTokens < 1 {
			completionTokens = 1
		}
	}

	final := sse.Data(chunk(gin.H{}, finishReason))
	if req.StreamOptions != nil && req.StreamOptions.IncludeUsage {
		final.Data = attachUsage(final.Data, promptTokenCount(req.Messages), completionTokens, created)
	}
	events = append(events, final)

	sse.Stream(c, events, sse.Options{SendDone: true})
}

// attachUsage patches the usage and time_info blocks onto an already
// serialized final chunk, keeping the base chunk shape in one place.
func attachUsage(data []byte, promptTokens, completionTokens int, created int64) []byte {
	patched, err := sjson.SetBytes(data, "usage", Usage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	})
	if err != nil {
		return data
	}
	patched, err = sjson.SetBytes(patched, "time_info", TimeInfo{
		QueueTime:      0.025,
		PromptTime:     0.003,
		CompletionTime: 0.005,
		TotalTime:      0.035,
		Created:        float64(created),
	})
	if err != nil {
		return data
	}
	return patched
}

// wantsToolCall reports whether the request both declares a tool and
// triggers the tool-intent heuristic on its most recent message.
func wantsToolCall(req *ChatCompletionRequest) bool {
	return len(req.Tools) > 0 && handlers.ShouldCallTool(lastMessageText(req.Messages))
}

func lastMessageText(messages []Message) string {
	if len(messages) == 0 {
		return ""
	}
	last := messages[len(messages)-1]
	if last.Content == nil {
		return ""
	}
	return *last.Content
}

func promptTokenCount(messages []Message) int {
	total := 0
	for _, m := range messages {
		if m.Content != nil {
			total += generator.EstimateTokens(*m.Content)
		}
	}
	return total
}

func toolArguments(text string) string {
	return fmt.Sprintf(`{"location":%q}`, handlers.ExtractArgument(text))
}
