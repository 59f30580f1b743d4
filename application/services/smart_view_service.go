package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nodal/application/ports"
	"nodal/domain/core/aggregates"
	"nodal/domain/core/valueobjects"
	domainservices "nodal/domain/services"
	pkgerrors "nodal/pkg/errors"
	"nodal/pkg/observability"
)

// SmartViewOptions tunes one Smart View run
type SmartViewOptions struct {
	// Refresh re-embeds notes that already carry a vector
	Refresh bool
}

// SmartViewResult is the clustering plus bookkeeping about embeddings
type SmartViewResult struct {
	*domainservices.ClusterResult
	Embedded []valueobjects.NoteID `json:"embedded"`
	Failed   []valueobjects.NoteID `json:"failed"`
}

// SmartViewService groups the notes of a workspace into virtual zones
type SmartViewService struct {
	workspaces *WorkspaceService
	embedder   ports.Embedder
	logger     *zap.Logger
	metrics    *observability.Collector
}

// NewSmartViewService creates a new Smart View service. embedder may be nil,
// in which case only stored vectors are used.
func NewSmartViewService(
	workspaces *WorkspaceService,
	embedder ports.Embedder,
	logger *zap.Logger,
	metrics *observability.Collector,
) *SmartViewService {
	return &SmartViewService{
		workspaces: workspaces,
		embedder:   embedder,
		logger:     logger,
		metrics:    metrics,
	}
}

// Generate embeds the workspace notes, stores the new vectors on them and
// clusters the canvas. A note whose embedding fails is still clustered
// through its hard links.
func (s *SmartViewService) Generate(ctx context.Context, workspaceID valueobjects.WorkspaceID, opts SmartViewOptions) (*SmartViewResult, error) {
	start := time.Now()

	doc, err := s.workspaces.Snapshot(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if len(doc.Notes) < 2 {
		return nil, pkgerrors.ErrNotEnoughNotes
	}
	cfg := s.workspaces.Config()

	embedder := NewNoteEmbedder(s.embedder, cfg.EmbedConcurrency, cfg.EmbedTextLimit, s.logger, s.metrics)
	vectors, fresh, failed := embedder.EmbedDocument(ctx, doc, opts.Refresh)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(fresh) > 0 {
		err := s.workspaces.Mutate(ctx, workspaceID, "set_embeddings", func(c *aggregates.Canvas) error {
			c.SetNoteEmbeddings(fresh)
			return nil
		})
		if err != nil {
			s.logger.Warn("Failed to store embeddings", zap.Error(err))
		}
	}

	clustered, err := domainservices.NewClusterer(cfg).Cluster(doc.Notes, doc.Zones, doc.Connections, vectors)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordSmartView(time.Since(start), len(clustered.Zones))

	s.logger.Info("Smart View generated",
		zap.String("workspaceID", workspaceID.String()),
		zap.Int("notes", len(doc.Notes)),
		zap.Int("clusters", len(clustered.Zones)),
		zap.Int("embedded", len(fresh)),
		zap.Int("failed", len(failed)),
		zap.Duration("duration", time.Since(start)))

	result := &SmartViewResult{ClusterResult: clustered, Failed: failed}
	for id := range fresh {
		result.Embedded = append(result.Embedded, id)
	}
	sort.Slice(result.Embedded, func(i, j int) bool { return result.Embedded[i] < result.Embedded[j] })
	return result, nil
}

// NoteEmbedder fetches note vectors concurrently
type NoteEmbedder struct {
	embedder    ports.Embedder
	concurrency int
	textLimit   int
	logger      *zap.Logger
	metrics     *observability.Collector
}

// NewNoteEmbedder creates an embedder fan-out. embedder may be nil.
func NewNoteEmbedder(embedder ports.Embedder, concurrency, textLimit int, logger *zap.Logger, metrics *observability.Collector) *NoteEmbedder {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &NoteEmbedder{
		embedder:    embedder,
		concurrency: concurrency,
		textLimit:   textLimit,
		logger:      logger,
		metrics:     metrics,
	}
}

// EmbedDocument returns a vector for every note it could get one for.
// fresh holds only the vectors fetched by this call; failed lists notes
// whose fetch errored. Stored vectors are reused unless refresh is set.
func (e *NoteEmbedder) EmbedDocument(
	ctx context.Context,
	doc *aggregates.Document,
	refresh bool,
) (all, fresh map[valueobjects.NoteID][]float64, failed []valueobjects.NoteID) {
	all = make(map[valueobjects.NoteID][]float64, len(doc.Notes))
	fresh = make(map[valueobjects.NoteID][]float64)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, note := range doc.Notes {
		if len(note.Embedding) > 0 && (!refresh || e.embedder == nil) {
			all[note.ID] = note.Embedding
			continue
		}
		if e.embedder == nil {
			continue
		}

		id := note.ID
		stored := note.Embedding
		text := domainservices.EmbeddingText(note, e.textLimit)
		g.Go(func() error {
			vec, err := e.embedder.Embed(gctx, text)
			e.metrics.RecordEmbedding(e.embedder.Model(), err)

			mu.Lock()
			defer mu.Unlock()
			if err != nil || len(vec) == 0 {
				// One note failing must not cancel the others.
				e.logger.Warn("Embedding failed", zap.String("noteID", id.String()), zap.Error(err))
				failed = append(failed, id)
				if len(stored) > 0 {
					all[id] = stored
				}
				return nil
			}
			all[id] = vec
			fresh[id] = vec
			return nil
		})
	}
	_ = g.Wait()
	sort.Slice(failed, func(i, j int) bool { return failed[i] < failed[j] })
	return all, fresh, failed
}
