// Package handlers provides functionality shared by all provider handlers:
// the tool-intent heuristic, tool-argument extraction, and the common
// invalid-request error shape.
package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
)

// toolTriggers are the phrases that flip a request into a tool-call
// response when the request also declares at least one tool.
var toolTriggers = []string{"weather", "search", "calculate", "what is", "find"}

// ShouldCallTool reports whether text asks for something tool-shaped. The
// check is a case-insensitive substring match against a fixed trigger set,
// so the decision is deterministic for identical input text. Callers must
// additionally verify that the request declared a tool.
func ShouldCallTool(text string) bool {
	lower := strings.ToLower(text)
	for _, trigger := range toolTriggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}
	return false
}

// ExtractArgument derives a single tool argument from the triggering text:
// the last whitespace-separated word longer than two characters, stripped of
// leading and trailing non-alphanumeric characters. Falls back to "unknown"
// when no such word exists.
func ExtractArgument(text string) string {
	fields := strings.Fields(text)
	for i := len(fields) - 1; i >= 0; i-- {
		if len(fields[i]) > 2 {
			return strings.TrimFunc(fields[i], func(r rune) bool {
				return !unicode.IsLetter(r) && !unicode.IsDigit(r)
			})
		}
	}
	return "unknown"
}

// ErrorResponse is the generic client-error envelope used for malformed
// request bodies.
type ErrorResponse struct {
	// Error contains detailed information about the error that occurred.
	Error ErrorDetail `json:"error"`
}

// ErrorDetail provides specific information about an error that occurred.
type ErrorDetail struct {
	// Message is a human-readable message providing more details.
	Message string `json:"message"`

	// Type is the category of error that occurred.
	Type string `json:"type"`
}

// WriteInvalidRequest rejects a request whose body could not be read or
// parsed. Malformed bodies are a boundary concern, not a simulated fault,
// so the response is a plain 400 rather than a provider-shaped error.
func WriteInvalidRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{
			Message: fmt.Sprintf("Invalid request: %v", err),
			Type:    "invalid_request_error",
		},
	})
}

// NowUnix returns the current unix timestamp in seconds.
func NowUnix() int64 {
	return time.Now().Unix()
}
