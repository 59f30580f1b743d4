package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"nodal/application/ports"
	"nodal/domain/core/entities"
	pkgerrors "nodal/pkg/errors"
)

var (
	_ ports.ChatProvider = (*OllamaClient)(nil)
	_ ports.Embedder     = (*OllamaClient)(nil)
)

const (
	DefaultOllamaURL        = "http://localhost:11434"
	DefaultOllamaModel      = "llama3"
	DefaultOllamaEmbedModel = "nomic-embed-text"
)

// OllamaConfig for the Ollama client
type OllamaConfig struct {
	BaseURL    string
	Model      string
	EmbedModel string
	Timeout    time.Duration
}

// OllamaClient talks to a local Ollama server
type OllamaClient struct {
	baseURL    string
	model      string
	embedModel string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewOllamaClient creates a new Ollama client, filling in defaults
func NewOllamaClient(cfg OllamaConfig, logger *zap.Logger) *OllamaClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = DefaultOllamaEmbedModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &OllamaClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		embedModel: cfg.EmbedModel,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type ollamaChatChunk struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Name returns "ollama"
func (c *OllamaClient) Name() string { return "ollama" }

// Model returns the embedding model
func (c *OllamaClient) Model() string { return c.embedModel }

// GenerateStream posts the conversation to /api/chat and reads the
// newline-delimited JSON reply until a chunk reports done
func (c *OllamaClient) GenerateStream(ctx context.Context, messages []entities.Message, onChunk func(string)) error {
	body, err := json.Marshal(ollamaChatRequest{
		Model:    c.model,
		Messages: toChatMessages(messages),
		Stream:   true,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.post(ctx, "/api/chat", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk ollamaChatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			c.logger.Warn("Skipping malformed Ollama chunk", zap.Error(err))
			continue
		}
		if chunk.Error != "" {
			return pkgerrors.NewExternalError("ollama", fmt.Errorf("%s", chunk.Error))
		}
		if chunk.Message.Content != "" {
			onChunk(chunk.Message.Content)
		}
		if chunk.Done {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return pkgerrors.NewExternalError("ollama", err)
	}
	return nil
}

// Embed returns the embedding of text from /api/embeddings
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: c.embedModel, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.post(ctx, "/api/embeddings", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, pkgerrors.NewExternalError("ollama", fmt.Errorf("empty embedding"))
	}
	return out.Embedding, nil
}

func (c *OllamaClient) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.NewExternalError("ollama", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, pkgerrors.NewExternalError("ollama",
			fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(respBody))))
	}
	return resp, nil
}
