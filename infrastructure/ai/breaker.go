package ai

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"nodal/application/ports"
	"nodal/domain/core/entities"
	pkgerrors "nodal/pkg/errors"
)

// BreakerConfig tunes the circuit breaker around a provider
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the provider breaker defaults
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

func newBreaker(name string, cfg BreakerConfig, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		// A caller giving up says nothing about the provider.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

func breakerError(service string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return pkgerrors.NewUnavailableError(service).WithCause(err)
	}
	return err
}

// BreakerChatProvider guards a chat provider with a circuit breaker
type BreakerChatProvider struct {
	next ports.ChatProvider
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerChatProvider wraps next
func NewBreakerChatProvider(next ports.ChatProvider, cfg BreakerConfig, logger *zap.Logger) *BreakerChatProvider {
	return &BreakerChatProvider{next: next, cb: newBreaker(next.Name()+"-chat", cfg, logger)}
}

// GenerateStream runs the wrapped stream unless the breaker is open
func (p *BreakerChatProvider) GenerateStream(ctx context.Context, messages []entities.Message, onChunk func(string)) error {
	_, err := p.cb.Execute(func() (interface{}, error) {
		return nil, p.next.GenerateStream(ctx, messages, onChunk)
	})
	return breakerError(p.next.Name(), err)
}

// Name returns the wrapped provider name
func (p *BreakerChatProvider) Name() string { return p.next.Name() }

// BreakerEmbedder guards an embedder with a circuit breaker
type BreakerEmbedder struct {
	next ports.Embedder
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerEmbedder wraps next
func NewBreakerEmbedder(next ports.Embedder, cfg BreakerConfig, logger *zap.Logger) *BreakerEmbedder {
	return &BreakerEmbedder{next: next, cb: newBreaker(next.Model()+"-embed", cfg, logger)}
}

// Embed runs the wrapped embedder unless the breaker is open
func (e *BreakerEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	out, err := e.cb.Execute(func() (interface{}, error) {
		return e.next.Embed(ctx, text)
	})
	if err != nil {
		return nil, breakerError(e.next.Model(), err)
	}
	return out.([]float64), nil
}

// Model returns the wrapped model name
func (e *BreakerEmbedder) Model() string { return e.next.Model() }
