package ports

import (
	"context"

	"nodal/domain/core/aggregates"
	"nodal/domain/core/entities"
	"nodal/domain/core/valueobjects"
	"nodal/domain/events"
)

// DocumentRepository defines the interface for canvas persistence
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type DocumentRepository interface {
	// Load returns the stored document for a workspace, upgraded to the
	// current schema. A workspace that was never saved yields a fresh
	// document, not an error.
	Load(ctx context.Context, workspaceID valueobjects.WorkspaceID) (*aggregates.Document, error)

	// Save replaces the stored document for a workspace
	Save(ctx context.Context, workspaceID valueobjects.WorkspaceID, doc *aggregates.Document) error
}

// HealthChecker is implemented by adapters that can report readiness
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// ChatProvider streams an assistant reply for a conversation
type ChatProvider interface {
	// GenerateStream calls onChunk with each piece of the reply as it
	// arrives and returns once the reply is complete.
	GenerateStream(ctx context.Context, messages []entities.Message, onChunk func(string)) error

	// Name identifies the provider in logs and metrics
	Name() string
}

// Embedder turns note text into a vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)

	// Model names the embedding model; vectors from different models are
	// not comparable.
	Model() string
}

// EmbeddingCache stores vectors keyed by model and text
type EmbeddingCache interface {
	// Get returns the cached vector and whether it was found
	Get(ctx context.Context, model, text string) ([]float64, bool, error)

	// Set stores a vector
	Set(ctx context.Context, model, text string, vector []float64) error
}

// WorkspaceLister is implemented by stores that can enumerate workspaces
type WorkspaceLister interface {
	List(ctx context.Context) ([]valueobjects.WorkspaceID, error)
}

// EventReader is implemented by publishers that keep a readable event log
type EventReader interface {
	Recent(ctx context.Context, workspaceID valueobjects.WorkspaceID, limit int) ([]StoredEvent, error)
}

// StoredEvent is a domain event as kept in an event log
type StoredEvent struct {
	EventType string                 `json:"eventType"`
	Timestamp string                 `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}
