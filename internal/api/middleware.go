package api

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/tokenipsum/tokenipsum/internal/faults"
	"github.com/tokenipsum/tokenipsum/internal/state"
)

// simulation is the per-request pipeline, evaluated in fixed order: count the
// request, check the bearer token, decide injected faults, then apply the
// artificial base latency. Fault bodies are shaped for the provider owning
// the request path.
func simulation(st *state.RuntimeState) gin.HandlerFunc {
	return func(c *gin.Context) {
		st.IncrementRequests()

		provider := faults.FromPath(c.Request.URL.Path)

		if !st.IsValidKey(bearerToken(c)) {
			faults.Write(c, faults.Unauthorized, provider)
			return
		}

		if kind, failed := st.ShouldError(); failed {
			faults.Write(c, kind, provider)
			return
		}

		if latency := st.Latency(); latency > 0 {
			select {
			case <-c.Request.Context().Done():
				c.Abort()
				return
			case <-time.After(latency):
			}
		}

		c.Next()
	}
}

// bearerToken extracts the token from the Authorization header, tolerating a
// missing Bearer prefix.
func bearerToken(c *gin.Context) string {
	return strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
}

// requestLog records one debug line per completed request.
func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debugf("%s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
