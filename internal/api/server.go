// Package api assembles the HTTP server: the simulation middleware pipeline,
// the provider routes, and the health probe.
package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/tokenipsum/tokenipsum/internal/api/handlers/claude"
	"github.com/tokenipsum/tokenipsum/internal/api/handlers/gemini"
	"github.com/tokenipsum/tokenipsum/internal/api/handlers/openai"
	"github.com/tokenipsum/tokenipsum/internal/api/handlers/responses"
	"github.com/tokenipsum/tokenipsum/internal/state"
)

// Server hosts the enabled provider emulations behind one gin engine.
type Server struct {
	state  *state.RuntimeState
	engine *gin.Engine
}

// New builds the server around st. Every route, the health probe included,
// runs behind the simulation pipeline so that counting, auth, faults, and
// latency apply uniformly.
func New(st *state.RuntimeState) *Server {
	if !st.Config().Logging.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.Default())
	engine.Use(requestLog())
	engine.Use(simulation(st))

	s := &Server{state: st, engine: engine}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	cfg := s.state.Config()

	s.engine.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	if cfg.Providers.Chat {
		s.engine.POST("/v1/chat/completions", openai.NewHandler().ChatCompletions)
	}
	if cfg.Providers.Gemini {
		s.engine.POST("/v1beta/models/*modelAction", gemini.NewHandler().ModelAction)
	}
	if cfg.Providers.Claude {
		s.engine.POST("/v1/messages", claude.NewHandler().Messages)
	}
	if cfg.Providers.Responses {
		s.engine.POST("/v1/responses", responses.NewHandler().Responses)
	}
}

// Handler exposes the engine as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on addr and serves until the listener fails.
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}
