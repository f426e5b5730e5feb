// Package sse is the streaming engine shared by every provider emulation.
// A builder hands it an ordered list of event fragments; the engine writes
// them as Server-Sent-Event frames with an artificial inter-frame delay to
// emulate token-by-token arrival, stopping at the next frame boundary if the
// client disconnects.
package sse

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// DefaultDelay is the inter-frame pacing used by most providers.
const DefaultDelay = 15 * time.Millisecond

// doneSentinel tells clients of [DONE]-terminated streams to stop reading.
var doneSentinel = []byte("data: [DONE]\n\n")

// Event is one frame of a streamed response. An empty Name produces a bare
// data frame (the Gemini variant); otherwise an event: line precedes the
// data.
type Event struct {
	Name string
	Data []byte
}

// JSON builds an event by marshaling v. Marshal failures cannot occur for
// the map and struct payloads the builders produce; a defensive empty object
// is substituted anyway rather than emitting a torn frame.
func JSON(name string, v any) Event {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte("{}")
	}
	return Event{Name: name, Data: data}
}

// Data builds a bare data-only event from v.
func Data(v any) Event {
	return JSON("", v)
}

// Options controls stream framing and pacing.
type Options struct {
	// Delay is the suspension between frames. Zero means DefaultDelay; the
	// pacing is independent of the middleware latency stage and applies even
	// when that stage is disabled.
	Delay time.Duration

	// SendDone appends the literal data: [DONE] terminator after the last
	// event.
	SendDone bool
}

// Stream writes events in construction order as an SSE response. Each frame
// is preceded by the pacing delay and flushed individually; if the request
// context is canceled mid-stream, emission stops at the next frame boundary
// and nothing further is written.
func Stream(c *gin.Context, events []Event, opts Options) {
	delay := opts.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	for _, ev := range events {
		if !sleep(ctx, delay) {
			return
		}
		if ev.Name != "" {
			_, _ = c.Writer.WriteString("event: " + ev.Name + "\n")
		}
		_, _ = c.Writer.WriteString("data: ")
		_, _ = c.Writer.Write(ev.Data)
		_, _ = c.Writer.WriteString("\n\n")
		flusher.Flush()
	}

	if opts.SendDone {
		if ctx.Err() != nil {
			return
		}
		_, _ = c.Writer.Write(doneSentinel)
		flusher.Flush()
	}
}

// sleep suspends for d without blocking other requests, returning false when
// ctx is done first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
