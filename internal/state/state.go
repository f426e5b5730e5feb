// Package state holds the process-wide runtime state shared by every
// request: the monotonic request counter and the single seeded random
// generator behind fault-injection decisions.
package state

import (
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tokenipsum/tokenipsum/internal/config"
	"github.com/tokenipsum/tokenipsum/internal/faults"
)

// RuntimeState tracks request counts and makes fault-injection decisions.
// It is constructed once at startup and shared by every request handler;
// the counter is atomic and the generator is guarded by a mutex, so all
// methods are safe for concurrent use.
type RuntimeState struct {
	cfg          *config.Config
	requestCount atomic.Uint64

	mu  sync.Mutex
	rng *rand.Rand
}

// New builds runtime state around cfg. The generator is seeded from the
// configured seed in deterministic content mode and from system entropy
// otherwise.
func New(cfg *config.Config) *RuntimeState {
	seed := time.Now().UnixNano()
	if cfg.Content.Deterministic {
		seed = cfg.Content.Seed
	}
	return &RuntimeState{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Config returns the immutable configuration this state was built with.
func (s *RuntimeState) Config() *config.Config {
	return s.cfg
}

// IncrementRequests bumps the global request counter and returns the new
// value. The counter strictly increases by one per call and never resets.
func (s *RuntimeState) IncrementRequests() uint64 {
	return s.requestCount.Add(1)
}

// RequestCount returns the current counter value.
func (s *RuntimeState) RequestCount() uint64 {
	return s.requestCount.Load()
}

// ShouldError decides whether the current request must be failed, evaluated
// in fixed priority order: a configured forced fault always wins; then the
// fail-after-requests threshold (once the counter reaches it, every request
// fails forever); then a probabilistic draw against the configured error
// rate, with the fault kind picked uniformly by a second draw. The returned
// bool is false when the request may proceed.
func (s *RuntimeState) ShouldError() (faults.Kind, bool) {
	switch s.cfg.Errors.ForceError {
	case config.ForceUnauthorized:
		return faults.Unauthorized, true
	case config.ForceRateLimit:
		return faults.RateLimit, true
	case config.ForceServerError:
		return faults.ServerError, true
	case config.ForceTimeout:
		return faults.Timeout, true
	}

	if n := s.cfg.RateLimit.FailAfterRequests; n > 0 && s.requestCount.Load() >= n {
		return faults.RateLimit, true
	}

	if rate := s.cfg.Errors.ErrorRate; rate > 0 {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.rng.Float64() < rate {
			switch s.rng.Intn(3) {
			case 0:
				return faults.Unauthorized, true
			case 1:
				return faults.RateLimit, true
			default:
				return faults.ServerError, true
			}
		}
	}

	return 0, false
}

// IsValidKey reports whether key authenticates the request. It always passes
// when auth is not required; otherwise the key must match one of the
// configured accepted keys exactly.
func (s *RuntimeState) IsValidKey(key string) bool {
	if !s.cfg.Auth.RequireAuth {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	for _, valid := range s.cfg.Auth.ValidKeys {
		if key == valid {
			return true
		}
	}
	return false
}

// Latency returns the artificial base delay added before dispatch.
func (s *RuntimeState) Latency() time.Duration {
	return time.Duration(s.cfg.Server.LatencyMS) * time.Millisecond
}
