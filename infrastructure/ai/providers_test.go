package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nodal/domain/core/entities"
	pkgerrors "nodal/pkg/errors"
)

func conversation() []entities.Message {
	return []entities.Message{
		{Role: entities.RoleUser, Content: "hello"},
		{Role: entities.RoleAssistant, Content: "hi"},
		{Role: entities.RoleUser, Content: "tell me more"},
	}
}

func collect(t *testing.T, stream func(func(string)) error) (string, error) {
	t.Helper()
	var sb strings.Builder
	err := stream(func(chunk string) { sb.WriteString(chunk) })
	return sb.String(), err
}

func TestOllamaClient_GenerateStream(t *testing.T) {
	var got ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"Hel"},"done":false}`)
		fmt.Fprintln(w, ``)
		fmt.Fprintln(w, `not json`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"lo"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"ignored"},"done":false}`)
	}))
	defer server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL + "/"}, zap.NewNop())
	reply, err := collect(t, func(on func(string)) error {
		return client.GenerateStream(context.Background(), conversation(), on)
	})

	require.NoError(t, err)
	assert.Equal(t, "Hello", reply)
	assert.True(t, got.Stream)
	assert.Equal(t, DefaultOllamaModel, got.Model)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "user", got.Messages[2].Role)
}

func TestOllamaClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL}, zap.NewNop())
	err := client.GenerateStream(context.Background(), conversation(), func(string) {})

	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeExternal))
	assert.Contains(t, err.Error(), "model not found")
}

func TestOllamaClient_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)
		assert.Equal(t, "groceries", req.Prompt)
		fmt.Fprint(w, `{"embedding":[0.1,0.2,0.3]}`)
	}))
	defer server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL}, zap.NewNop())
	vec, err := client.Embed(context.Background(), "groceries")

	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "nomic-embed-text", client.Model())
}

func TestOpenAIClient_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIConfig{}, zap.NewNop())

	assert.True(t, pkgerrors.IsValidation(err))
}

func TestOpenAIClient_GenerateStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintln(w, `data: {"choices":[{"delta":{"role":"assistant"}}]}`)
		fmt.Fprintln(w, ``)
		fmt.Fprintln(w, `data: {"choices":[{"delta":{"content":"Good"}}]}`)
		fmt.Fprintln(w, `: keep-alive`)
		fmt.Fprintln(w, `data: {"choices":[{"delta":{"content":" morning"}}]}`)
		fmt.Fprintln(w, `data: [DONE]`)
		fmt.Fprintln(w, `data: {"choices":[{"delta":{"content":"late"}}]}`)
	}))
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{BaseURL: server.URL, APIKey: "sk-test"}, zap.NewNop())
	require.NoError(t, err)
	reply, err := collect(t, func(on func(string)) error {
		return client.GenerateStream(context.Background(), conversation(), on)
	})

	require.NoError(t, err)
	assert.Equal(t, "Good morning", reply)
}

func TestOpenAIClient_ErrorMessageFromBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided"}}`)
	}))
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{BaseURL: server.URL, APIKey: "bad"}, zap.NewNop())
	require.NoError(t, err)
	err = client.GenerateStream(context.Background(), conversation(), func(string) {})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect API key provided")
}

func TestOpenAIClient_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		fmt.Fprint(w, `{"data":[{"embedding":[1,0]}]}`)
	}))
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{BaseURL: server.URL, APIKey: "k"}, zap.NewNop())
	require.NoError(t, err)
	vec, err := client.Embed(context.Background(), "x")

	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, vec)
}

func TestEchoProvider(t *testing.T) {
	p := NewEchoProvider(0)

	reply, err := collect(t, func(on func(string)) error {
		return p.GenerateStream(context.Background(), conversation(), on)
	})
	require.NoError(t, err)
	assert.Equal(t, `I received your message: "tell me more"`, reply)

	a, err := p.Embed(context.Background(), "Buy Milk")
	require.NoError(t, err)
	b, err := p.Embed(context.Background(), "buy milk")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

type failingChat struct{ calls int }

func (f *failingChat) Name() string { return "flaky" }
func (f *failingChat) GenerateStream(ctx context.Context, messages []entities.Message, onChunk func(string)) error {
	f.calls++
	return errors.New("connection refused")
}

func TestBreakerChatProvider_OpensAfterFailures(t *testing.T) {
	next := &failingChat{}
	cfg := DefaultBreakerConfig()
	cfg.MinRequests = 2
	cfg.FailureThreshold = 0.5
	p := NewBreakerChatProvider(next, cfg, zap.NewNop())

	for i := 0; i < 2; i++ {
		err := p.GenerateStream(context.Background(), nil, func(string) {})
		require.Error(t, err)
	}
	err := p.GenerateStream(context.Background(), nil, func(string) {})

	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeUnavailable))
	assert.Equal(t, 2, next.calls)
	assert.Equal(t, "flaky", p.Name())
}

func TestNewProviders(t *testing.T) {
	chat, embedder, err := NewProviders(Config{Provider: "none"}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, chat)
	assert.Nil(t, embedder)

	chat, embedder, err = NewProviders(Config{Provider: "ollama"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "ollama", chat.Name())
	assert.Equal(t, DefaultOllamaEmbedModel, embedder.Model())

	_, _, err = NewProviders(Config{Provider: "openai"}, zap.NewNop())
	assert.True(t, pkgerrors.IsValidation(err))

	_, _, err = NewProviders(Config{Provider: "bard"}, zap.NewNop())
	assert.True(t, pkgerrors.IsValidation(err))
}
