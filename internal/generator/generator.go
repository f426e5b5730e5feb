// Package generator produces the fake content embedded in mock responses:
// filler words, sentences, paragraphs, streaming chunk partitions, and the
// opaque identifiers (completion IDs, tool-call IDs, fingerprints) that the
// provider builders stamp onto every payload.
package generator

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

// words is the fixed vocabulary: common English filler plus ML-domain terms
// so generated text looks plausibly model-shaped at a glance.
var words = []string{
	"the", "be", "to", "of", "and", "a", "in", "that", "have", "I",
	"it", "for", "not", "on", "with", "he", "as", "you", "do", "at",
	"this", "but", "his", "by", "from", "they", "we", "say", "her", "she",
	"or", "an", "will", "my", "one", "all", "would", "there", "their", "what",
	"so", "up", "out", "if", "about", "who", "get", "which", "go", "me",
	"when", "make", "can", "like", "time", "no", "just", "him", "know", "take",
	"people", "into", "year", "your", "good", "some", "could", "them", "see", "other",
	"than", "then", "now", "look", "only", "come", "its", "over", "think", "also",
	"AI", "model", "neural", "network", "learning", "data", "training", "inference",
	"token", "embedding", "transformer", "attention", "layer", "output", "input",
	"parameter", "weight", "gradient", "optimization", "loss", "accuracy", "batch",
}

// ContentGenerator generates fake content from a private random source.
// Each instance owns its generator; instances are not safe for concurrent
// use, so every request builds its own.
type ContentGenerator struct {
	rng *rand.Rand

	// TokensPerChunk is the upper bound on words per streaming chunk.
	TokensPerChunk int
}

// New returns a generator seeded from the wall clock.
func New() *ContentGenerator {
	return newWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewWithSeed returns a generator with a fixed seed. Two generators built
// with the same seed produce identical sequences for identical call
// sequences, which is what the deterministic content mode and the tests
// rely on.
func NewWithSeed(seed int64) *ContentGenerator {
	return newWithSource(rand.NewSource(seed))
}

func newWithSource(src rand.Source) *ContentGenerator {
	return &ContentGenerator{
		rng:            rand.New(src),
		TokensPerChunk: 3,
	}
}

// Word draws one word uniformly from the vocabulary.
func (g *ContentGenerator) Word() string {
	return words[g.rng.Intn(len(words))]
}

// Words draws count words joined by single spaces.
func (g *ContentGenerator) Words(count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = g.Word()
	}
	return strings.Join(parts, " ")
}

// Sentence generates 5-14 words, capitalized and terminated with a period.
func (g *ContentGenerator) Sentence() string {
	count := 5 + g.rng.Intn(10)
	s := g.Words(count)
	if s != "" {
		s = strings.ToUpper(s[:1]) + s[1:]
	}
	return s + "."
}

// Paragraph joins 2-4 sentences with single spaces.
func (g *ContentGenerator) Paragraph() string {
	count := 2 + g.rng.Intn(3)
	sentences := make([]string, count)
	for i := range sentences {
		sentences[i] = g.Sentence()
	}
	return strings.Join(sentences, " ")
}

// StreamChunks partitions totalTokens into word chunks for streaming. Each
// chunk carries 1..TokensPerChunk words, capped so the cumulative count never
// exceeds the budget; the final chunk gets a period. A non-positive budget
// yields no chunks.
func (g *ContentGenerator) StreamChunks(totalTokens int) []string {
	if totalTokens <= 0 {
		return nil
	}
	perChunk := g.TokensPerChunk
	if perChunk < 1 {
		perChunk = 1
	}

	var chunks []string
	remaining := totalTokens
	for remaining > 0 {
		size := 1 + g.rng.Intn(perChunk)
		if size > remaining {
			size = remaining
		}
		chunks = append(chunks, g.Words(size))
		remaining -= size
	}
	chunks[len(chunks)-1] += "."
	return chunks
}

// ToolCallID returns an 11+ digit lowercase hex identifier.
func (g *ContentGenerator) ToolCallID() string {
	return fmt.Sprintf("%011x", g.rng.Uint64())
}

// CompletionID returns a chat-completion identifier in the real providers'
// chatcmpl-<uuid> shape.
func (g *ContentGenerator) CompletionID() string {
	return "chatcmpl-" + uuid.NewString()
}

// Fingerprint returns a system fingerprint in the fp_<16 hex> shape.
func (g *ContentGenerator) Fingerprint() string {
	return fmt.Sprintf("fp_%016x", g.rng.Uint64())
}

// EstimateTokens approximates a token count as ceil(len/4). Deliberately
// crude: the same heuristic is applied to prompts and completions so usage
// totals stay internally consistent without a real tokenizer.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
