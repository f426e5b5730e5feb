// Package faults renders injected simulation failures as HTTP responses
// shaped like each real provider's documented error envelope, so client
// retry and backoff logic can be exercised against realistic payloads.
package faults

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Kind identifies an injected fault. Every fault in this system is a
// deliberate simulation outcome; there is no organic error class.
type Kind int

const (
	// Unauthorized simulates an invalid or missing API key (HTTP 401).
	Unauthorized Kind = iota
	// RateLimit simulates quota exhaustion (HTTP 429 with retry headers).
	RateLimit
	// ServerError simulates an internal provider failure (HTTP 500).
	ServerError
	// Timeout simulates an upstream deadline expiry (HTTP 504).
	Timeout
)

// Provider selects which provider's error envelope shape to emit.
type Provider int

const (
	// Chat is the OpenAI-compatible chat completions surface.
	Chat Provider = iota
	// Gemini is the Google Gemini surface.
	Gemini
	// Claude is the Anthropic Messages surface.
	Claude
	// Responses is the OpenAI Responses surface.
	Responses
)

// FromPath maps a request path to the provider whose error shape applies.
// Unrecognized paths fall back to the OpenAI-compatible shape.
func FromPath(path string) Provider {
	switch {
	case strings.Contains(path, "/v1beta/models"):
		return Gemini
	case strings.Contains(path, "/v1/messages"):
		return Claude
	case strings.Contains(path, "/v1/responses"):
		return Responses
	default:
		return Chat
	}
}

// Write renders kind as a terminal HTTP response in provider's error shape
// and aborts the request.
func Write(c *gin.Context, kind Kind, provider Provider) {
	switch kind {
	case Unauthorized:
		writeUnauthorized(c, provider)
	case RateLimit:
		writeRateLimit(c, provider)
	case ServerError:
		writeServerError(c, provider)
	case Timeout:
		writeTimeout(c, provider)
	}
	c.Abort()
}

func writeUnauthorized(c *gin.Context, provider Provider) {
	switch provider {
	case Gemini:
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{
				"code":    401,
				"message": "API key not valid. Please pass a valid API key.",
				"status":  "UNAUTHENTICATED",
				"details": []gin.H{{
					"@type":  "type.googleapis.com/google.rpc.ErrorInfo",
					"reason": "API_KEY_INVALID",
					"domain": "googleapis.com",
				}},
			},
		})
	case Claude:
		c.JSON(http.StatusUnauthorized, gin.H{
			"type": "error",
			"error": gin.H{
				"type":    "authentication_error",
				"message": "Invalid API key provided.",
			},
		})
	default:
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{
				"message": "Invalid API key provided. You can find your API key at https://platform.example.com/account/api-keys.",
				"type":    "invalid_request_error",
				"param":   nil,
				"code":    "invalid_api_key",
			},
		})
	}
}

func writeRateLimit(c *gin.Context, provider Provider) {
	switch provider {
	case Gemini:
		c.Header("retry-after", "60")
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error": gin.H{
				"code":    429,
				"message": "Resource has been exhausted (e.g. check quota).",
				"status":  "RESOURCE_EXHAUSTED",
				"details": []gin.H{{
					"@type": "type.googleapis.com/google.rpc.QuotaFailure",
					"violations": []gin.H{{
						"subject":     "GenerateContentRequest",
						"description": "Quota exceeded",
					}},
				}},
			},
		})
	case Claude:
		c.Header("retry-after", "60")
		c.Header("x-ratelimit-limit-requests", "60")
		c.Header("x-ratelimit-remaining-requests", "0")
		c.JSON(http.StatusTooManyRequests, gin.H{
			"type": "error",
			"error": gin.H{
				"type":    "rate_limit_error",
				"message": "Rate limit exceeded. Please retry after 60 seconds.",
			},
		})
	default:
		c.Header("x-ratelimit-limit-requests", "60")
		c.Header("x-ratelimit-remaining-requests", "0")
		c.Header("x-ratelimit-reset-requests", "1s")
		c.Header("retry-after", "1")
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error": gin.H{
				"message": "Rate limit reached for requests. Please slow down.",
				"type":    "rate_limit_error",
				"param":   nil,
				"code":    "rate_limit_exceeded",
			},
		})
	}
}

func writeServerError(c *gin.Context, provider Provider) {
	switch provider {
	case Gemini:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    500,
				"message": "An internal error has occurred. Please retry or report in https://developers.generativeai.google/guide/troubleshooting",
				"status":  "INTERNAL",
			},
		})
	case Claude:
		c.JSON(http.StatusInternalServerError, gin.H{
			"type": "error",
			"error": gin.H{
				"type":    "api_error",
				"message": "An unexpected error occurred. Please try again later.",
			},
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"message": "The server had an error while processing your request. Sorry about that!",
				"type":    "server_error",
				"param":   nil,
				"code":    "internal_error",
			},
		})
	}
}

func writeTimeout(c *gin.Context, provider Provider) {
	switch provider {
	case Gemini:
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"error": gin.H{
				"code":    504,
				"message": "Deadline exceeded while waiting for response.",
				"status":  "DEADLINE_EXCEEDED",
			},
		})
	case Claude:
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"type": "error",
			"error": gin.H{
				"type":    "timeout_error",
				"message": "Request timed out.",
			},
		})
	default:
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"error": gin.H{
				"message": "Request timed out. Please try again.",
				"type":    "timeout_error",
				"param":   nil,
				"code":    "timeout",
			},
		})
	}
}
