// Package claude emulates the Anthropic Messages surface at /v1/messages,
// including extended thinking blocks and the typed SSE event grammar.
package claude

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/tokenipsum/tokenipsum/internal/api/handlers"
	"github.com/tokenipsum/tokenipsum/internal/generator"
	"github.com/tokenipsum/tokenipsum/internal/sse"
)

// streamMaxTokens caps how much text a streamed reply produces regardless of
// the requested budget.
const streamMaxTokens = 100

// thinkingDeltaWords is how many words each thinking_delta frame carries.
const thinkingDeltaWords = 3

// Handler serves the Messages emulation.
type Handler struct{}

// NewHandler creates a Messages handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Messages handles POST /v1/messages.
func (h *Handler) Messages(c *gin.Context) {
	rawJSON, err := c.GetRawData()
	if err != nil {
		handlers.WriteInvalidRequest(c, err)
		return
	}

	var req MessagesRequest
	if err := json.Unmarshal(rawJSON, &req); err != nil {
		handlers.WriteInvalidRequest(c, err)
		return
	}
	log.Debugf("messages: model=%s messages=%d thinking=%t", req.Model, len(req.Messages), req.Thinking != nil)

	wantsTools := len(req.Tools) > 0 && handlers.ShouldCallTool(lastTurnText(req.Messages))
	wantsThinking := req.Thinking != nil

	if req.Stream {
		h.streamResponse(c, &req, wantsTools, wantsThinking)
	} else {
		h.nonStreamResponse(c, &req, wantsTools, wantsThinking)
	}
}

func (h *Handler) nonStreamResponse(c *gin.Context, req *MessagesRequest, wantsTools, wantsThinking bool) {
	gen := generator.New()
	inputTokens := countInputTokens(req)

	var content []ResponseBlock
	outputTokens := 0

	if wantsThinking {
		thinking := gen.Paragraph()
		outputTokens += generator.EstimateTokens(thinking)
		content = append(content, ResponseBlock{
			Type:      "thinking",
			Thinking:  thinking,
			Signature: thinkingSignature(gen),
		})
	}

	stopReason := "end_turn"
	if wantsTools {
		stopReason = "tool_use"
		outputTokens += 50
		content = append(content, ResponseBlock{
			Type:  "tool_use",
			ID:    "toolu_" + gen.ToolCallID(),
			Name:  req.Tools[0].Name,
			Input: map[string]string{"location": handlers.ExtractArgument(lastTurnText(req.Messages))},
		})
	} else {
		text := gen.Paragraph()
		outputTokens += generator.EstimateTokens(text)
		content = append(content, ResponseBlock{Type: "text", Text: text})
	}

	c.JSON(http.StatusOK, MessagesResponse{
		ID:         "msg_" + gen.ToolCallID(),
		Type:       "message",
		Role:       "assistant",
		Model:      req.Model,
		Content:    content,
		StopReason: stopReason,
		Usage: Usage{
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
		},
	})
}

func (h *Handler) streamResponse(c *gin.Context, req *MessagesRequest, wantsTools, wantsThinking bool) {
	gen := generator.New()
	inputTokens := countInputTokens(req)

	var events []sse.Event
	outputTokens := 0
	blockIndex := 0

	events = append(events, sse.JSON("message_start", gin.H{
		"type": "message_start",
		"message": gin.H{
			"id":            "msg_" + gen.ToolCallID(),
			"type":          "message",
			"role":          "assistant",
			"model":         req.Model,
			"content":       []gin.H{},
			"stop_reason":   nil,
			"stop_sequence": nil,
			"usage": gin.H{
				"input_tokens":                inputTokens,
				"cache_creation_input_tokens": 0,
				"cache_read_input_tokens":     0,
				"output_tokens":               1,
			},
		},
	}))

	if wantsThinking {
		thinking := gen.Paragraph()
		outputTokens += generator.EstimateTokens(thinking)

		events = append(events, blockStart(blockIndex, gin.H{
			"type": "thinking", "thinking": "", "signature": "",
		}))
		words := strings.Fields(thinking)
		for i := 0; i < len(words); i += thinkingDeltaWords {
			end := i + thinkingDeltaWords
			if end > len(words) {
				end = len(words)
			}
			events = append(events, blockDelta(blockIndex, gin.H{
				"type":     "thinking_delta",
				"thinking": strings.Join(words[i:end], " ") + " ",
			}))
		}
		events = append(events, blockDelta(blockIndex, gin.H{
			"type":      "signature_delta",
			"signature": thinkingSignature(gen),
		}))
		events = append(events, blockStop(blockIndex))
		blockIndex++
	}

	stopReason := "end_turn"
	if wantsTools {
		stopReason = "tool_use"
		outputTokens += 50

		events = append(events, blockStart(blockIndex, gin.H{
			"type":  "tool_use",
			"id":    "toolu_" + gen.ToolCallID(),
			"name":  req.Tools[0].Name,
			"input": gin.H{},
		}))
		arg := handlers.ExtractArgument(lastTurnText(req.Messages))
		events = append(events, blockDelta(blockIndex, gin.H{
			"type":         "input_json_delta",
			"partial_json": fmt.Sprintf(`{"location":%q}`, arg),
		}))
		events = append(events, blockStop(blockIndex))
	} else {
		events = append(events, blockStart(blockIndex, gin.H{
			"type": "text", "text": "",
		}))
		maxTokens := req.MaxTokens
		if maxTokens > streamMaxTokens {
			maxTokens = streamMaxTokens
		}
		for i, chunk := range gen.StreamChunks(maxTokens) {
			if i > 0 {
				chunk = " " + chunk
			}
			outputTokens += generator.EstimateTokens(chunk)
			events = append(events, blockDelta(blockIndex, gin.H{
				"type": "text_delta",
				"text": chunk,
			}))
		}
		events = append(events, blockStop(blockIndex))
	}

	events = append(events, sse.JSON("message_delta", gin.H{
		"type":  "message_delta",
		"delta": gin.H{"stop_reason": stopReason, "stop_sequence": nil},
		"usage": gin.H{
			"input_tokens":                inputTokens,
			"cache_creation_input_tokens": 0,
			"cache_read_input_tokens":     0,
			"output_tokens":               outputTokens,
		},
	}))
	events = append(events, sse.JSON("message_stop", gin.H{"type": "message_stop"}))

	sse.Stream(c, events, sse.Options{})
}

func blockStart(index int, block gin.H) sse.Event {
	return sse.JSON("content_block_start", gin.H{
		"type":          "content_block_start",
		"index":         index,
		"content_block": block,
	})
}

func blockDelta(index int, delta gin.H) sse.Event {
	return sse.JSON("content_block_delta", gin.H{
		"type":  "content_block_delta",
		"index": index,
		"delta": delta,
	})
}

func blockStop(index int) sse.Event {
	return sse.JSON("content_block_stop", gin.H{
		"type":  "content_block_stop",
		"index": index,
	})
}

// thinkingSignature fabricates a base64-looking signature for thinking
// blocks.
func thinkingSignature(gen *generator.ContentGenerator) string {
	var sig strings.Builder
	sig.WriteString("EtUB")
	for i := 0; i < 40; i++ {
		id := gen.ToolCallID()
		b := byte('0')
		if len(id) > 0 {
			b = id[0]
		}
		fmt.Fprintf(&sig, "%02x", b)
	}
	sig.WriteString("==")
	return sig.String()
}

// lastTurnText returns the text of the most recent message: the string body,
// or the first text block of a structured body.
func lastTurnText(messages []Message) string {
	if len(messages) == 0 {
		return ""
	}
	content := messages[len(messages)-1].Content
	if content.IsText {
		return content.Text
	}
	for _, block := range content.Blocks {
		if block.Type == "text" {
			return block.Text
		}
	}
	return ""
}

// countInputTokens estimates prompt size: the system prompt plus every
// message body. Non-text blocks are charged a flat ten tokens.
func countInputTokens(req *MessagesRequest) int {
	total := generator.EstimateTokens(req.System)
	for _, m := range req.Messages {
		if m.Content.IsText {
			total += generator.EstimateTokens(m.Content.Text)
			continue
		}
		for _, block := range m.Content.Blocks {
			switch block.Type {
			case "text":
				total += generator.EstimateTokens(block.Text)
			case "thinking":
				total += generator.EstimateTokens(block.Thinking)
			default:
				total += 10
			}
		}
	}
	return total
}
