package services

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"nodal/domain/core/aggregates"
	"nodal/domain/core/entities"
	"nodal/domain/core/valueobjects"
	domainservices "nodal/domain/services"
	pkgerrors "nodal/pkg/errors"
)

// Suggestion is a note similar to another one
type Suggestion struct {
	NoteID     valueobjects.NoteID `json:"noteId"`
	Similarity float64             `json:"similarity"`
}

// ConnectionService links notes, either directly or by dropping a connector
// on a note, and proposes links between semantically close notes.
type ConnectionService struct {
	workspaces *WorkspaceService
	logger     *zap.Logger
}

// NewConnectionService creates a new connection service
func NewConnectionService(workspaces *WorkspaceService, logger *zap.Logger) *ConnectionService {
	return &ConnectionService{workspaces: workspaces, logger: logger}
}

// Connect links two notes. Linking an already linked pair returns the
// existing connection with created == false.
func (s *ConnectionService) Connect(
	ctx context.Context,
	workspaceID valueobjects.WorkspaceID,
	from, to valueobjects.NoteID,
) (conn *entities.Connection, created bool, err error) {
	err = s.workspaces.Mutate(ctx, workspaceID, "add_connection", func(c *aggregates.Canvas) error {
		got, isNew, err := c.AddConnection(valueobjects.NewConnectionID(), from, to)
		if err != nil {
			return err
		}
		copied := *got
		conn, created = &copied, isNew
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.logger.Debug("Created connection",
			zap.String("connectionID", conn.ID.String()),
			zap.String("from", from.String()),
			zap.String("to", to.String()))
	}
	return conn, created, nil
}

// ConnectAtPoint links from to the topmost other note under a world point.
// Dropping on empty canvas is not an error and returns a nil connection.
func (s *ConnectionService) ConnectAtPoint(
	ctx context.Context,
	workspaceID valueobjects.WorkspaceID,
	from valueobjects.NoteID,
	point valueobjects.Point,
) (*entities.Connection, error) {
	if !point.IsFinite() {
		return nil, fmt.Errorf("%w: drop point", pkgerrors.ErrInvalidGeometry)
	}

	var conn *entities.Connection
	err := s.workspaces.Mutate(ctx, workspaceID, "add_connection", func(c *aggregates.Canvas) error {
		target, ok := c.Containment().NoteAtPoint(c.Document().Notes, point, from)
		if !ok {
			return nil
		}
		got, _, err := c.AddConnection(valueobjects.NewConnectionID(), from, target.ID)
		if err != nil {
			return err
		}
		copied := *got
		conn = &copied
		return nil
	})
	return conn, err
}

// Disconnect removes a connection
func (s *ConnectionService) Disconnect(ctx context.Context, workspaceID valueobjects.WorkspaceID, id valueobjects.ConnectionID) error {
	return s.workspaces.Mutate(ctx, workspaceID, "delete_connection", func(c *aggregates.Canvas) error {
		return c.DeleteConnection(id)
	})
}

// Suggest ranks unlinked notes by cosine similarity to noteID using stored
// embeddings. Only notes at or above the Smart View threshold are returned,
// at most limit of them.
func (s *ConnectionService) Suggest(
	ctx context.Context,
	workspaceID valueobjects.WorkspaceID,
	noteID valueobjects.NoteID,
	limit int,
) ([]Suggestion, error) {
	var out []Suggestion
	err := s.workspaces.Read(ctx, workspaceID, func(c *aggregates.Canvas) error {
		doc := c.Document()
		source, ok := doc.Note(noteID)
		if !ok {
			return fmt.Errorf("%w: %s", pkgerrors.ErrNoteNotFound, noteID)
		}
		if len(source.Embedding) == 0 {
			return nil
		}

		linked := make(map[valueobjects.NoteID]bool)
		for _, conn := range doc.Connections {
			switch {
			case conn.FromID == noteID:
				linked[conn.ToID] = true
			case conn.ToID == noteID:
				linked[conn.FromID] = true
			}
		}

		threshold := c.Config().SimilarityThreshold
		for _, n := range doc.Notes {
			if n.ID == noteID || linked[n.ID] || len(n.Embedding) == 0 {
				continue
			}
			sim := domainservices.CosineSimilarity(source.Embedding, n.Embedding)
			if sim >= threshold {
				out = append(out, Suggestion{NoteID: n.ID, Similarity: sim})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
