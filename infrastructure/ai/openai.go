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
	_ ports.ChatProvider = (*OpenAIClient)(nil)
	_ ports.Embedder     = (*OpenAIClient)(nil)
)

const (
	DefaultOpenAIURL        = "https://api.openai.com"
	DefaultOpenAIModel      = "gpt-3.5-turbo"
	DefaultOpenAIEmbedModel = "text-embedding-3-small"
)

// OpenAIConfig for the OpenAI-compatible client
type OpenAIConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	EmbedModel string
	Timeout    time.Duration
}

// OpenAIClient talks to an OpenAI-compatible API
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	model      string
	embedModel string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewOpenAIClient creates a new client. An API key is required.
func NewOpenAIClient(cfg OpenAIConfig, logger *zap.Logger) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, pkgerrors.NewValidationError("openai provider requires an API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = DefaultOpenAIEmbedModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &OpenAIClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		embedModel: cfg.EmbedModel,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}, nil
}

type openAIChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type openAIStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

type openAIEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Name returns "openai"
func (c *OpenAIClient) Name() string { return "openai" }

// Model returns the embedding model
func (c *OpenAIClient) Model() string { return c.embedModel }

// GenerateStream posts to /v1/chat/completions and reads server-sent
// events until "data: [DONE]"
func (c *OpenAIClient) GenerateStream(ctx context.Context, messages []entities.Message, onChunk func(string)) error {
	body, err := json.Marshal(openAIChatRequest{
		Model:    c.model,
		Messages: toChatMessages(messages),
		Stream:   true,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.post(ctx, "/v1/chat/completions", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			return nil
		}
		var chunk openAIStreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			c.logger.Warn("Skipping malformed OpenAI chunk", zap.Error(err))
			continue
		}
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			onChunk(chunk.Choices[0].Delta.Content)
		}
	}
	if err := scanner.Err(); err != nil {
		return pkgerrors.NewExternalError("openai", err)
	}
	return nil
}

// Embed returns the embedding of text from /v1/embeddings
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(openAIEmbedRequest{Model: c.embedModel, Input: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.post(ctx, "/v1/embeddings", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, pkgerrors.NewExternalError("openai", fmt.Errorf("empty embedding"))
	}
	return out.Data[0].Embedding, nil
}

func (c *OpenAIClient) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.NewExternalError("openai", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := resp.Status
		var apiErr openAIErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return nil, pkgerrors.NewExternalError("openai", fmt.Errorf("%s", msg))
	}
	return resp, nil
}
