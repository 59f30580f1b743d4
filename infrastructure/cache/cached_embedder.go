package cache

import (
	"context"

	"go.uber.org/zap"

	"nodal/application/ports"
	"nodal/pkg/observability"
)

var _ ports.Embedder = (*CachedEmbedder)(nil)

// CachedEmbedder consults a cache before calling the wrapped embedder.
// Cache errors are logged and treated as misses.
type CachedEmbedder struct {
	next    ports.Embedder
	cache   ports.EmbeddingCache
	logger  *zap.Logger
	metrics *observability.Collector
}

// NewCachedEmbedder wraps next with cache
func NewCachedEmbedder(next ports.Embedder, cache ports.EmbeddingCache, logger *zap.Logger, metrics *observability.Collector) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: cache, logger: logger, metrics: metrics}
}

// Embed returns the cached vector for text or fetches and caches it
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	model := e.next.Model()

	vector, ok, err := e.cache.Get(ctx, model, text)
	if err != nil {
		e.logger.Warn("Embedding cache read failed", zap.Error(err))
	}
	if ok && len(vector) > 0 {
		e.metrics.RecordCache(true)
		return vector, nil
	}
	e.metrics.RecordCache(false)

	vector, err = e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := e.cache.Set(ctx, model, text, vector); err != nil {
		e.logger.Warn("Embedding cache write failed", zap.Error(err))
	}
	return vector, nil
}

// Model returns the wrapped model name
func (e *CachedEmbedder) Model() string {
	return e.next.Model()
}
