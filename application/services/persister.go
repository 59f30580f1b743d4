package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"nodal/application/ports"
	"nodal/domain/core/aggregates"
	"nodal/domain/core/valueobjects"
	"nodal/domain/versioning"
	"nodal/pkg/observability"
)

// PersistenceHealth reports the state of background saves
type PersistenceHealth struct {
	Healthy             bool      `json:"healthy"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	LastError           string    `json:"lastError,omitempty"`
	LastSuccess         time.Time `json:"lastSuccess,omitempty"`
}

// Persister saves document snapshots in the background. Each workspace has
// at most one save in flight; snapshots enqueued meanwhile replace each other
// so only the newest is written.
type Persister struct {
	repo      ports.DocumentRepository
	backend   string
	logger    *zap.Logger
	metrics   *observability.Collector
	threshold int
	timeout   time.Duration

	mu sync.Mutex

	// idle is closed once no workspace has a save in flight
	idle        chan struct{}
	pending     map[valueobjects.WorkspaceID]*aggregates.Document
	inflight    map[valueobjects.WorkspaceID]bool
	saved       map[valueobjects.WorkspaceID]string
	failures    int
	lastErr     error
	lastSuccess time.Time
}

// NewPersister creates a persister writing to repo. threshold is the number
// of consecutive failures after which the persister reports unhealthy.
func NewPersister(
	repo ports.DocumentRepository,
	backend string,
	threshold int,
	logger *zap.Logger,
	metrics *observability.Collector,
) *Persister {
	if threshold <= 0 {
		threshold = 3
	}
	p := &Persister{
		repo:      repo,
		backend:   backend,
		logger:    logger,
		metrics:   metrics,
		threshold: threshold,
		timeout:   10 * time.Second,
		pending:   make(map[valueobjects.WorkspaceID]*aggregates.Document),
		inflight:  make(map[valueobjects.WorkspaceID]bool),
		saved:     make(map[valueobjects.WorkspaceID]string),
		idle:      make(chan struct{}),
	}
	close(p.idle)
	return p
}

// Enqueue schedules a save of snapshot. The caller must not touch snapshot
// afterwards.
func (p *Persister) Enqueue(workspaceID valueobjects.WorkspaceID, snapshot *aggregates.Document) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pending[workspaceID] = snapshot
	if !p.inflight[workspaceID] {
		if len(p.inflight) == 0 {
			p.idle = make(chan struct{})
		}
		p.inflight[workspaceID] = true
		go p.drain(workspaceID)
	}
}

// MarkSaved records doc as the stored state of a workspace so an identical
// snapshot is not written again.
func (p *Persister) MarkSaved(workspaceID valueobjects.WorkspaceID, doc *aggregates.Document) {
	sum, err := versioning.Checksum(doc)
	if err != nil {
		return
	}
	p.mu.Lock()
	p.saved[workspaceID] = sum
	p.mu.Unlock()
}

func (p *Persister) drain(workspaceID valueobjects.WorkspaceID) {
	for {
		p.mu.Lock()
		doc, ok := p.pending[workspaceID]
		if !ok {
			delete(p.inflight, workspaceID)
			if len(p.inflight) == 0 {
				close(p.idle)
			}
			p.mu.Unlock()
			return
		}
		delete(p.pending, workspaceID)
		previous := p.saved[workspaceID]
		p.mu.Unlock()

		sum, err := versioning.Checksum(doc)
		if err == nil && sum == previous {
			continue
		}
		p.save(workspaceID, doc, sum)
	}
}

func (p *Persister) save(workspaceID valueobjects.WorkspaceID, doc *aggregates.Document, sum string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	start := time.Now()
	err := p.repo.Save(ctx, workspaceID, doc)
	p.metrics.RecordPersist(p.backend, time.Since(start), err)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.failures++
		p.lastErr = err
		fields := []zap.Field{
			zap.String("workspaceID", workspaceID.String()),
			zap.Int("consecutiveFailures", p.failures),
			zap.Error(err),
		}
		if p.failures >= p.threshold {
			p.logger.Error("Canvas persistence is failing", fields...)
		} else {
			p.logger.Warn("Failed to save canvas document", fields...)
		}
		return
	}

	if p.failures >= p.threshold {
		p.logger.Info("Canvas persistence recovered", zap.Int("failures", p.failures))
	}
	p.failures = 0
	p.lastErr = nil
	p.lastSuccess = time.Now()
	if sum != "" {
		p.saved[workspaceID] = sum
	}
}

// Flush waits until every enqueued snapshot has been handled or ctx ends
func (p *Persister) Flush(ctx context.Context) error {
	p.mu.Lock()
	idle := p.idle
	p.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health returns the current persistence health
func (p *Persister) Health() PersistenceHealth {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := PersistenceHealth{
		Healthy:             p.failures < p.threshold,
		ConsecutiveFailures: p.failures,
		LastSuccess:         p.lastSuccess,
	}
	if p.lastErr != nil {
		h.LastError = p.lastErr.Error()
	}
	return h
}
