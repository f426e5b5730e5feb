// Package gemini emulates the Google Gemini surface at
// /v1beta/models/{model}:{action} for the generateContent and
// streamGenerateContent actions.
package gemini

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/tokenipsum/tokenipsum/internal/api/handlers"
	"github.com/tokenipsum/tokenipsum/internal/generator"
	"github.com/tokenipsum/tokenipsum/internal/sse"
)

const (
	defaultMaxTokens       = 100
	defaultStreamMaxTokens = 50

	// toolCallTokens is the flat charge for a structured function call.
	toolCallTokens = 12
)

// Handler serves the Gemini emulation.
type Handler struct{}

// NewHandler creates a Gemini handler.
func NewHandler() *Handler {
	return &Handler{}
}

// ModelAction handles POST /v1beta/models/*modelAction. The wildcard segment
// carries the combined "model:action" form; streaming is selected by the
// action name rather than a body flag.
func (h *Handler) ModelAction(c *gin.Context) {
	modelAction := strings.TrimPrefix(c.Param("modelAction"), "/")

	colon := strings.LastIndex(modelAction, ":")
	if colon < 0 {
		c.String(http.StatusBadRequest, "Invalid path: expected model:action format")
		return
	}
	model, action := modelAction[:colon], modelAction[colon+1:]

	rawJSON, err := c.GetRawData()
	if err != nil {
		handlers.WriteInvalidRequest(c, err)
		return
	}
	var req GenerateContentRequest
	if err := json.Unmarshal(rawJSON, &req); err != nil {
		handlers.WriteInvalidRequest(c, err)
		return
	}
	log.Debugf("gemini %s: model=%s contents=%d", action, model, len(req.Contents))

	wantsTools := len(req.Tools) > 0 && handlers.ShouldCallTool(lastContentText(req.Contents))

	switch action {
	case "generateContent":
		h.nonStreamResponse(c, model, &req, wantsTools)
	case "streamGenerateContent":
		h.streamResponse(c, model, &req, wantsTools)
	default:
		c.String(http.StatusNotFound, "Unknown action: %s", action)
	}
}

func (h *Handler) nonStreamResponse(c *gin.Context, model string, req *GenerateContentRequest, wantsTools bool) {
	gen := generator.New()
	promptTokens := promptTokenCount(req.Contents)

	var parts []ResponsePart
	var completionTokens int

	if wantsTools {
		completionTokens = toolCallTokens
		parts = []ResponsePart{{
			FunctionCall: &FunctionCall{
				Name: firstFunctionName(req.Tools),
				Args: map[string]string{"location": handlers.ExtractArgument(lastContentText(req.Contents))},
			},
		}}
	} else {
		content := gen.Paragraph()
		maxTokens := defaultMaxTokens
		if req.GenerationConfig != nil && req.GenerationConfig.MaxOutputTokens != nil {
			maxTokens = *req.GenerationConfig.MaxOutputTokens
		}
		completionTokens = generator.EstimateTokens(content)
		if completionTokens > maxTokens {
			completionTokens = maxTokens
		}
		parts = []ResponsePart{{Text: &content}}
	}

	c.JSON(http.StatusOK, GenerateContentResponse{
		Candidates: []Candidate{{
			Content:      ResponseContent{Parts: parts, Role: "model"},
			FinishReason: "STOP",
			Index:        0,
		}},
		UsageMetadata: UsageMetadata{
			PromptTokenCount:     promptTokens,
			CandidatesTokenCount: completionTokens,
			TotalTokenCount:      promptTokens + completionTokens,
		},
		ModelVersion: model,
	})
}

func (h *Handler) streamResponse(c *gin.Context, model string, req *GenerateContentRequest, wantsTools bool) {
	gen := generator.New()
	promptTokens := promptTokenCount(req.Contents)

	usage := func(completionTokens int) gin.H {
		return gin.H{
			"promptTokenCount":     promptTokens,
			"candidatesTokenCount": completionTokens,
			"totalTokenCount":      promptTokens + completionTokens,
		}
	}

	var events []sse.Event
	totalTokens := 0

	if wantsTools {
		totalTokens = toolCallTokens
		events = append(events, sse.Data(gin.H{
			"candidates": []gin.H{{
				"content": gin.H{
					"parts": []gin.H{{
						"functionCall": gin.H{
							"name": firstFunctionName(req.Tools),
							"args": gin.H{"location": handlers.ExtractArgument(lastContentText(req.Contents))},
						},
					}},
					"role": "model",
				},
				"index": 0,
			}},
			"usageMetadata": usage(totalTokens),
			"modelVersion":  model,
		}))
	} else {
		maxTokens := defaultStreamMaxTokens
		if req.GenerationConfig != nil && req.GenerationConfig.MaxOutputTokens != nil {
			maxTokens = *req.GenerationConfig.MaxOutputTokens
		}
		for i, chunk := range gen.StreamChunks(maxTokens) {
			if i > 0 {
				chunk = " " + chunk
			}
			totalTokens += generator.EstimateTokens(chunk)
			events = append(events, sse.Data(gin.H{
				"candidates": []gin.H{{
					"content": gin.H{
						"parts": []gin.H{{"text": chunk}},
						"role":  "model",
					},
					"index": 0,
				}},
				"usageMetadata": usage(totalTokens),
				"modelVersion":  model,
			}))
		}
	}

	events = append(events, sse.Data(gin.H{
		"candidates": []gin.H{{
			"content":      gin.H{"parts": []gin.H{}, "role": "model"},
			"finishReason": "STOP",
			"index":        0,
		}},
		"usageMetadata": usage(totalTokens),
		"modelVersion":  model,
	}))

	sse.Stream(c, events, sse.Options{})
}

func firstFunctionName(tools []ToolDeclaration) string {
	if len(tools) > 0 && len(tools[0].FunctionDeclarations) > 0 {
		return tools[0].FunctionDeclarations[0].Name
	}
	return "unknown_function"
}

// lastContentText returns the first text part of the most recent content
// entry.
func lastContentText(contents []Content) string {
	if len(contents) == 0 {
		return ""
	}
	for _, part := range contents[len(contents)-1].Parts {
		if part.Text != nil {
			return *part.Text
		}
	}
	return ""
}

func promptTokenCount(contents []Content) int {
	total := 0
	for _, content := range contents {
		for _, part := range content.Parts {
			if part.Text != nil {
				total += generator.EstimateTokens(*part.Text)
			}
		}
	}
	return total
}
