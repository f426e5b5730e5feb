// Package responses emulates the OpenAI Responses surface at /v1/responses,
// including its semantic event stream.
package responses

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/tokenipsum/tokenipsum/internal/api/handlers"
	"github.com/tokenipsum/tokenipsum/internal/generator"
	"github.com/tokenipsum/tokenipsum/internal/sse"
)

const (
	defaultStreamMaxTokens = 50

	// toolCallTokens is the flat charge for a structured function call.
	toolCallTokens = 15

	// streamDelay paces this surface slightly faster than the others.
	streamDelay = 10 * time.Millisecond
)

// Handler serves the Responses emulation.
type Handler struct{}

// NewHandler creates a Responses handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Responses handles POST /v1/responses.
func (h *Handler) Responses(c *gin.Context) {
	rawJSON, err := c.GetRawData()
	if err != nil {
		handlers.WriteInvalidRequest(c, err)
		return
	}

	var req ResponsesRequest
	if err := json.Unmarshal(rawJSON, &req); err != nil {
		handlers.WriteInvalidRequest(c, err)
		return
	}
	log.Debugf("responses: model=%s stream=%v", req.Model, req.Stream)

	wantsTools := len(req.Tools) > 0 && handlers.ShouldCallTool(inputText(req.Input))

	if req.Stream {
		h.streamResponse(c, &req, wantsTools)
	} else {
		h.nonStreamResponse(c, &req, wantsTools)
	}
}

func (h *Handler) nonStreamResponse(c *gin.Context, req *ResponsesRequest, wantsTools bool) {
	gen := generator.New()
	createdAt := handlers.NowUnix()
	inputTokens := countInputTokens(req.Input)

	var output []OutputItem
	var outputTokens int

	if wantsTools {
		outputTokens = toolCallTokens
		output = []OutputItem{{
			ID:        "fc_" + gen.ToolCallID(),
			Type:      "function_call",
			Status:    "completed",
			Name:      req.Tools[0].Name,
			Arguments: toolArguments(inputText(req.Input)),
			CallID:    "call_" + gen.ToolCallID(),
		}}
	} else {
		content := gen.Paragraph()
		outputTokens = generator.EstimateTokens(content)
		output = []OutputItem{{
			ID:     "msg_" + gen.ToolCallID(),
			Type:   "message",
			Status: "completed",
			Content: []OutputContent{{
				Type:        "output_text",
				Annotations: []any{},
				Logprobs:    []any{},
				Text:        content,
			}},
			Role: "assistant",
		}}
	}

	store := true
	if req.Store != nil {
		store = *req.Store
	}
	temperature := 1.0
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	topP := 1.0
	if req.TopP != nil {
		topP = *req.TopP
	}
	var effort *string
	if req.Reasoning != nil {
		effort = req.Reasoning.Effort
	}

	c.JSON(http.StatusOK, ResponsesResponse{
		ID:         "resp_" + gen.ToolCallID(),
		Object:     "response",
		CreatedAt:  createdAt,
		Status:     "completed",
		Background: false,
		Model:      req.Model,
		Output:     output,
		Usage: Usage{
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
			TotalTokens:  inputTokens + outputTokens,
		},
		Billing:           Billing{Payer: "openai"},
		CompletedAt:       handlers.NowUnix(),
		Instructions:      req.Instructions,
		MaxOutputTokens:   req.MaxOutputTokens,
		ParallelToolCalls: true,
		Reasoning:         ReasoningOutput{Effort: effort},
		ServiceTier:       "default",
		Store:             store,
		Temperature:       temperature,
		Text: TextOutput{
			Format:    TextFormatOutput{Type: "text"},
			Verbosity: "medium",
		},
		ToolChoice: "auto",
		Tools:      []any{},
		TopP:       topP,
		Truncation: "disabled",
		Metadata:   map[string]any{},
	})
}

func (h *Handler) streamResponse(c *gin.Context, req *ResponsesRequest, wantsTools bool) {
	gen := generator.New()
	id := "resp_" + gen.ToolCallID()
	createdAt := handlers.NowUnix()
	inputTokens := countInputTokens(req.Input)

	var events []sse.Event
	seq := 0
	event := func(name string, fields gin.H) {
		fields["type"] = name
		fields["sequence_number"] = seq
		seq++
		events = append(events, sse.JSON(name, fields))
	}

	event("response.created", gin.H{
		"response": gin.H{
			"id":         id,
			"object":     "response",
			"created_at": createdAt,
			"status":     "in_progress",
			"model":      req.Model,
			"output":     []gin.H{},
			"usage":      nil,
		},
	})
	event("response.in_progress", gin.H{
		"response": gin.H{
			"id":         id,
			"object":     "response",
			"created_at": createdAt,
			"status":     "in_progress",
			"model":      req.Model,
			"output":     []gin.H{},
		},
	})

	var outputTokens int

	if wantsTools {
		fcID := "fc_" + gen.ToolCallID()
		callID := "call_" + gen.ToolCallID()
		name := req.Tools[0].Name
		args := toolArguments(inputText(req.Input))
		outputTokens = toolCallTokens

		event("response.output_item.added", gin.H{
			"output_index": 0,
			"item": gin.H{
				"id":        fcID,
				"type":      "function_call",
				"status":    "in_progress",
				"name":      name,
				"arguments": "",
				"call_id":   callID,
			},
		})
		event("response.function_call_arguments.delta", gin.H{
			"item_id":      fcID,
			"output_index": 0,
			"delta":        args,
		})
		event("response.function_call_arguments.done", gin.H{
			"item_id":      fcID,
			"output_index": 0,
			"arguments":    args,
		})
		event("response.output_item.done", gin.H{
			"output_index": 0,
			"item": gin.H{
				"id":        fcID,
				"type":      "function_call",
				"status":    "completed",
				"name":      name,
				"arguments": args,
				"call_id":   callID,
			},
		})
	} else {
		msgID := "msg_" + gen.ToolCallID()
		maxTokens := defaultStreamMaxTokens
		if req.MaxOutputTokens != nil {
			maxTokens = *req.MaxOutputTokens
		}
		chunks := gen.StreamChunks(maxTokens)

		outputTokens = 0
		for _, chunk := range chunks {
			outputTokens += generator.EstimateTokens(chunk)
		}
		if outputTokens < 1 {
			outputTokens = 1
		}

		event("response.output_item.added", gin.H{
			"output_index": 0,
			"item": gin.H{
				"id":      msgID,
				"type":    "message",
				"status":  "in_progress",
				"content": []gin.H{},
				"role":    "assistant",
			},
		})
		event("response.content_part.added", gin.H{
			"item_id":       msgID,
			"output_index":  0,
			"content_index": 0,
			"part": gin.H{
				"type":        "output_text",
				"annotations": []any{},
				"logprobs":    []any{},
				"text":        "",
			},
		})

		var fullText strings.Builder
		for i, chunk := range chunks {
			delta := chunk
			if i > 0 {
				delta = " " + chunk
			}
			fullText.WriteString(delta)
			event("response.output_text.delta", gin.H{
				"item_id":       msgID,
				"output_index":  0,
				"content_index": 0,
				"delta":         delta,
				"logprobs":      []any{},
			})
		}

		event("response.output_text.done", gin.H{
			"item_id":       msgID,
			"output_index":  0,
			"content_index": 0,
			"text":          fullText.String(),
			"logprobs":      []any{},
		})
		event("response.content_part.done", gin.H{
			"item_id":       msgID,
			"output_index":  0,
			"content_index": 0,
			"part": gin.H{
				"type":        "output_text",
				"annotations": []any{},
				"logprobs":    []any{},
				"text":        fullText.String(),
			},
		})
		event("response.output_item.done", gin.H{
			"output_index": 0,
			"item": gin.H{
				"id":     msgID,
				"type":   "message",
				"status": "completed",
				"content": []gin.H{{
					"type":        "output_text",
					"annotations": []any{},
					"logprobs":    []any{},
					"text":        fullText.String(),
				}},
				"role": "assistant",
			},
		})
	}

	event("response.completed", gin.H{
		"response": gin.H{
			"id":           id,
			"object":       "response",
			"created_at":   createdAt,
			"status":       "completed",
			"completed_at": handlers.NowUnix(),
			"model":        req.Model,
			"output":       []gin.H{},
			"usage": gin.H{
				"input_tokens":          inputTokens,
				"input_tokens_details":  gin.H{"cached_tokens": 0},
				"output_tokens":         outputTokens,
				"output_tokens_details": gin.H{"reasoning_tokens": 0},
				"total_tokens":          inputTokens + outputTokens,
			},
		},
	})

	sse.Stream(c, events, sse.Options{Delay: streamDelay})
}

// inputText returns the text to run the tool heuristic on: the plain input
// string, or the last message's text (first text part for structured
// bodies).
func inputText(input Input) string {
	if input.IsText {
		return input.Text
	}
	if len(input.Messages) == 0 {
		return ""
	}
	content := input.Messages[len(input.Messages)-1].Content
	if content.IsText {
		return content.Text
	}
	for _, part := range content.Parts {
		if part.Text != nil {
			return *part.Text
		}
	}
	return ""
}

// rawArgument picks the last word longer than two characters without
// stripping punctuation; this surface echoes the word verbatim.
func rawArgument(text string) string {
	fields := strings.Fields(text)
	for i := len(fields) - 1; i >= 0; i-- {
		if len(fields[i]) > 2 {
			return fields[i]
		}
	}
	return "unknown"
}

func toolArguments(text string) string {
	return fmt.Sprintf(`{"location":%q}`, rawArgument(text))
}

func countInputTokens(input Input) int {
	if input.IsText {
		return generator.EstimateTokens(input.Text)
	}
	total := 0
	for _, m := range input.Messages {
		if m.Content.IsText {
			total += generator.EstimateTokens(m.Content.Text)
			continue
		}
		for _, part := range m.Content.Parts {
			if part.Text != nil {
				total += generator.EstimateTokens(*part.Text)
			}
		}
	}
	return total
}
