package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"nodal/application/ports"
	"nodal/domain/config"
	"nodal/domain/core/aggregates"
	"nodal/domain/core/valueobjects"
	"nodal/pkg/observability"
)

// DefaultWorkspaceID is used when a caller does not name a workspace
const DefaultWorkspaceID valueobjects.WorkspaceID = "default"

// WorkspaceService owns the in-memory canvas of every open workspace. All
// mutations of one workspace are serialised; reads see a consistent
// snapshot.
type WorkspaceService struct {
	repo      ports.DocumentRepository
	publisher ports.EventPublisher
	persister *Persister
	logger    *zap.Logger
	metrics   *observability.Collector
	now       func() time.Time

	mu       sync.Mutex
	cfg      *config.DomainConfig
	sessions map[valueobjects.WorkspaceID]*workspaceSession
}

type workspaceSession struct {
	mu     sync.Mutex
	canvas *aggregates.Canvas
}

// NewWorkspaceService creates a new workspace service
func NewWorkspaceService(
	repo ports.DocumentRepository,
	publisher ports.EventPublisher,
	persister *Persister,
	cfg *config.DomainConfig,
	logger *zap.Logger,
	metrics *observability.Collector,
) *WorkspaceService {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &WorkspaceService{
		repo:      repo,
		publisher: publisher,
		persister: persister,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
		cfg:       cfg,
		sessions:  make(map[valueobjects.WorkspaceID]*workspaceSession),
	}
}

// WithClock replaces the time source handed to every canvas
func (s *WorkspaceService) WithClock(now func() time.Time) *WorkspaceService {
	s.now = now
	return s
}

// Config returns the rules new mutations run under
func (s *WorkspaceService) Config() *config.DomainConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// UpdateConfig swaps the canvas rules. Open workspaces pick them up on
// their next mutation.
func (s *WorkspaceService) UpdateConfig(cfg *config.DomainConfig) {
	if cfg == nil {
		return
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	s.logger.Info("Canvas configuration updated",
		zap.Float64("cardWidth", cfg.CardWidth),
		zap.Float64("similarityThreshold", cfg.SimilarityThreshold))
}

// Mutate runs fn against the workspace canvas under its lock. When fn
// succeeds the new state is queued for saving and its events are
// published; when it fails the canvas is rolled back to the state before
// the call.
func (s *WorkspaceService) Mutate(
	ctx context.Context,
	workspaceID valueobjects.WorkspaceID,
	operation string,
	fn func(c *aggregates.Canvas) error,
) error {
	session, err := s.session(ctx, workspaceID)
	if err != nil {
		return err
	}

	session.mu.Lock()
	s.refresh(session)
	workspaceID = session.canvas.WorkspaceID()
	before := session.canvas.Snapshot()
	err = apply(session.canvas, fn)
	if err != nil {
		session.canvas = s.newCanvas(workspaceID, before)
		session.mu.Unlock()
		s.metrics.RecordMutation(operation, err)
		return err
	}
	pending := session.canvas.GetUncommittedEvents()
	session.canvas.MarkEventsAsCommitted()
	snapshot := session.canvas.Snapshot()
	session.mu.Unlock()

	s.metrics.RecordMutation(operation, nil)
	if s.persister != nil {
		s.persister.Enqueue(workspaceID, snapshot)
	}
	if s.publisher != nil && len(pending) > 0 {
		if err := s.publisher.PublishBatch(ctx, pending); err != nil {
			s.logger.Warn("Failed to publish canvas events",
				zap.String("workspaceID", workspaceID.String()),
				zap.String("operation", operation),
				zap.Int("events", len(pending)),
				zap.Error(err))
		}
	}
	return nil
}

// Read runs fn against the live document under the workspace lock. fn must
// not retain or modify doc.
func (s *WorkspaceService) Read(
	ctx context.Context,
	workspaceID valueobjects.WorkspaceID,
	fn func(c *aggregates.Canvas) error,
) error {
	session, err := s.session(ctx, workspaceID)
	if err != nil {
		return err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	s.refresh(session)
	return fn(session.canvas)
}

// Snapshot returns a deep copy of the workspace document
func (s *WorkspaceService) Snapshot(ctx context.Context, workspaceID valueobjects.WorkspaceID) (*aggregates.Document, error) {
	var doc *aggregates.Document
	err := s.Read(ctx, workspaceID, func(c *aggregates.Canvas) error {
		doc = c.Snapshot()
		return nil
	})
	return doc, err
}

// Workspaces lists the workspaces held in memory
func (s *WorkspaceService) Workspaces() []valueobjects.WorkspaceID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]valueobjects.WorkspaceID, 0, len(s.sessions))
	for id := range s.sessions {
		out = append(out, id)
	}
	return out
}

// Health reports background persistence health
func (s *WorkspaceService) Health() PersistenceHealth {
	if s.persister == nil {
		return PersistenceHealth{Healthy: true}
	}
	return s.persister.Health()
}

// Flush waits for queued saves to finish
func (s *WorkspaceService) Flush(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	return s.persister.Flush(ctx)
}

// session returns the open session for a workspace, loading it on first use
func (s *WorkspaceService) session(ctx context.Context, workspaceID valueobjects.WorkspaceID) (*workspaceSession, error) {
	if workspaceID.IsZero() {
		workspaceID = DefaultWorkspaceID
	}

	s.mu.Lock()
	if existing, ok := s.sessions[workspaceID]; ok {
		s.mu.Unlock()
		return existing, nil
	}
	s.mu.Unlock()

	// Load outside the service lock so a slow store only blocks callers of
	// this workspace.
	doc, err := s.repo.Load(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("load workspace %s: %w", workspaceID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[workspaceID]; ok {
		return existing, nil
	}
	canvas := s.newCanvasLocked(workspaceID, doc)
	if s.persister != nil {
		s.persister.MarkSaved(workspaceID, doc)
	}
	session := &workspaceSession{canvas: canvas}
	s.sessions[workspaceID] = session
	s.metrics.SetActiveWorkspaces(len(s.sessions))

	s.logger.Debug("Workspace opened",
		zap.String("workspaceID", workspaceID.String()),
		zap.Int("notes", len(doc.Notes)),
		zap.Int("zones", len(doc.Zones)))
	return session, nil
}

// refresh rebinds the session canvas when the rules changed. Caller holds
// session.mu.
func (s *WorkspaceService) refresh(session *workspaceSession) {
	cfg := s.Config()
	if session.canvas.Config() == cfg {
		return
	}
	session.canvas = s.newCanvas(session.canvas.WorkspaceID(), session.canvas.Document())
}

func (s *WorkspaceService) newCanvas(workspaceID valueobjects.WorkspaceID, doc *aggregates.Document) *aggregates.Canvas {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newCanvasLocked(workspaceID, doc)
}

func (s *WorkspaceService) newCanvasLocked(workspaceID valueobjects.WorkspaceID, doc *aggregates.Document) *aggregates.Canvas {
	// workspaceID is never zero here, so NewCanvas cannot fail.
	canvas, _ := aggregates.NewCanvas(workspaceID, doc, s.cfg)
	return canvas.WithClock(s.now)
}

// apply runs fn and reports a panic as an error so the caller can roll the
// canvas back and release its lock
func apply(c *aggregates.Canvas, fn func(c *aggregates.Canvas) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mutation panicked: %v", r)
		}
	}()
	return fn(c)
}
