package ai

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"time"

	"nodal/domain/core/entities"
)

// EchoProvider is an offline provider for development and tests. It
// streams a canned reply word by word and derives embeddings from word
// hashes, so identical texts get identical vectors.
type EchoProvider struct {
	delay      time.Duration
	dimensions int
}

// NewEchoProvider creates an echo provider. delay is the pause between
// streamed words.
func NewEchoProvider(delay time.Duration) *EchoProvider {
	return &EchoProvider{delay: delay, dimensions: 64}
}

// Name returns "echo"
func (p *EchoProvider) Name() string { return "echo" }

// Model returns "echo-hash"
func (p *EchoProvider) Model() string { return "echo-hash" }

// GenerateStream replies with the last user message
func (p *EchoProvider) GenerateStream(ctx context.Context, messages []entities.Message, onChunk func(string)) error {
	last := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == entities.RoleUser {
			last = messages[i].Content
			break
		}
	}
	reply := fmt.Sprintf("I received your message: %q", last)

	for i, word := range strings.Fields(reply) {
		if i > 0 {
			word = " " + word
		}
		if p.delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.delay):
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		onChunk(word)
	}
	return nil
}

// Embed hashes each lower-cased word into a bucket and normalizes the
// result
func (p *EchoProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float64, p.dimensions)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%uint32(p.dimensions)]++
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}
