package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"nodal/domain/core/aggregates"
	"nodal/domain/core/valueobjects"
	"nodal/infrastructure/persistence/schema"
)

// DocumentRepository keeps encoded canvas documents in process memory.
// Documents go through the same codec as the durable stores, so a loaded
// document never aliases a saved one.
type DocumentRepository struct {
	mu     sync.RWMutex
	docs   map[valueobjects.WorkspaceID][]byte
	codec  *schema.Codec
	logger *zap.Logger
}

// NewDocumentRepository creates an empty in-memory store
func NewDocumentRepository(codec *schema.Codec, logger *zap.Logger) *DocumentRepository {
	if codec == nil {
		codec = schema.NewCodec(nil)
	}
	return &DocumentRepository{
		docs:   make(map[valueobjects.WorkspaceID][]byte),
		codec:  codec,
		logger: logger,
	}
}

// Load returns the stored document or a fresh one
func (r *DocumentRepository) Load(ctx context.Context, workspaceID valueobjects.WorkspaceID) (*aggregates.Document, error) {
	r.mu.RLock()
	data, ok := r.docs[workspaceID]
	r.mu.RUnlock()
	if !ok {
		return aggregates.NewDocument(), nil
	}

	doc, changed, err := r.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode workspace %s: %w", workspaceID, err)
	}
	if changed {
		r.logger.Info("Stored canvas document was normalized", zap.String("workspaceID", workspaceID.String()))
	}
	return doc, nil
}

// Save replaces the stored document
func (r *DocumentRepository) Save(ctx context.Context, workspaceID valueobjects.WorkspaceID, doc *aggregates.Document) error {
	data, err := r.codec.Encode(doc)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.docs[workspaceID] = data
	r.mu.Unlock()
	return nil
}

// Import stores raw document bytes as they are, as if written by an older
// build. Load upgrades them.
func (r *DocumentRepository) Import(workspaceID valueobjects.WorkspaceID, data []byte) {
	r.mu.Lock()
	r.docs[workspaceID] = append([]byte(nil), data...)
	r.mu.Unlock()
}

// List returns the stored workspace ids in order
func (r *DocumentRepository) List(ctx context.Context) ([]valueobjects.WorkspaceID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]valueobjects.WorkspaceID, 0, len(r.docs))
	for id := range r.docs {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Ping always succeeds
func (r *DocumentRepository) Ping(ctx context.Context) error {
	return nil
}
