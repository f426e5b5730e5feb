// TokenIpsum is a mock LLM API server. It generates fake but structurally
// accurate responses for the OpenAI-compatible chat completions, Anthropic
// Messages, Google Gemini, and OpenAI Responses surfaces, so client code can
// be exercised without real provider credentials or cost.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/tokenipsum/tokenipsum/internal/api"
	"github.com/tokenipsum/tokenipsum/internal/config"
	"github.com/tokenipsum/tokenipsum/internal/logging"
	"github.com/tokenipsum/tokenipsum/internal/state"
)

func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg := config.Load(configPath)
	logging.Setup(cfg.Logging)

	st := state.New(cfg)
	server := api.New(st)

	if cfg.Providers.Chat {
		log.Info("chat endpoint: POST /v1/chat/completions")
	}
	if cfg.Providers.Gemini {
		log.Info("gemini endpoint: POST /v1beta/models/{model}:generateContent")
		log.Info("gemini endpoint: POST /v1beta/models/{model}:streamGenerateContent")
	}
	if cfg.Providers.Claude {
		log.Info("claude endpoint: POST /v1/messages")
	}
	if cfg.Providers.Responses {
		log.Info("responses endpoint: POST /v1/responses")
	}

	if cfg.RateLimit.FailAfterRequests > 0 {
		log.Infof("rate limit: returning 429 after %d requests", cfg.RateLimit.FailAfterRequests)
	}
	if cfg.Errors.ErrorRate > 0 {
		log.Infof("random errors enabled: %.0f%% chance", cfg.Errors.ErrorRate*100)
	}
	if cfg.Errors.ForceError != config.ForceNone {
		log.Infof("forcing %s on every request", cfg.Errors.ForceError)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Infof("tokenipsum listening on http://0.0.0.0%s", addr)
	if err := server.Run(addr); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
