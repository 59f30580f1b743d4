package ai

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"nodal/application/ports"
	pkgerrors "nodal/pkg/errors"
)

// Provider names accepted by NewProviders
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderEcho   = "echo"
	ProviderNone   = "none"
)

// Config selects and configures the AI provider
type Config struct {
	Provider   string
	BaseURL    string
	APIKey     string
	Model      string
	EmbedModel string
	Timeout    time.Duration
	Breaker    BreakerConfig
}

// NewProviders builds the chat provider and embedder for cfg, each behind a
// circuit breaker. Provider "none" returns nil for both.
func NewProviders(cfg Config, logger *zap.Logger) (ports.ChatProvider, ports.Embedder, error) {
	if cfg.Breaker == (BreakerConfig{}) {
		cfg.Breaker = DefaultBreakerConfig()
	}

	var chat ports.ChatProvider
	var embedder ports.Embedder
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOllama:
		client := NewOllamaClient(OllamaConfig{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			EmbedModel: cfg.EmbedModel,
			Timeout:    cfg.Timeout,
		}, logger)
		chat, embedder = client, client
	case ProviderOpenAI:
		client, err := NewOpenAIClient(OpenAIConfig{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			EmbedModel: cfg.EmbedModel,
			Timeout:    cfg.Timeout,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		chat, embedder = client, client
	case ProviderEcho:
		// The echo provider never fails, so it needs no breaker.
		p := NewEchoProvider(0)
		return p, p, nil
	case ProviderNone:
		return nil, nil, nil
	default:
		return nil, nil, pkgerrors.NewValidationError(fmt.Sprintf("unknown AI provider %q", cfg.Provider))
	}

	logger.Info("AI provider configured",
		zap.String("provider", chat.Name()),
		zap.String("embedModel", embedder.Model()))
	return NewBreakerChatProvider(chat, cfg.Breaker, logger), NewBreakerEmbedder(embedder, cfg.Breaker, logger), nil
}
