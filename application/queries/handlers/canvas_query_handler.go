package handlers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"nodal/application/queries"
	"nodal/application/queries/bus"
	"nodal/application/services"
	"nodal/domain/core/aggregates"
	"nodal/domain/core/valueobjects"
	domainservices "nodal/domain/services"
	"nodal/domain/versioning"
)

// CanvasQueryHandler answers read queries against open workspaces
type CanvasQueryHandler struct {
	workspaces *services.WorkspaceService
	logger     *zap.Logger
	now        func() time.Time
}

// NewCanvasQueryHandler creates a new canvas query handler
func NewCanvasQueryHandler(workspaces *services.WorkspaceService, logger *zap.Logger) *CanvasQueryHandler {
	return &CanvasQueryHandler{workspaces: workspaces, logger: logger, now: time.Now}
}

// Register binds every canvas query to this handler
func (h *CanvasQueryHandler) Register(b *bus.QueryBus) error {
	for _, q := range []bus.Query{
		queries.GetCanvasQuery{},
		queries.GetHoverZoneQuery{},
		queries.GetConnectionSegmentsQuery{},
		queries.GetZoneTreeQuery{},
		queries.GetVersionQuery{},
	} {
		if err := b.Register(q, h); err != nil {
			return err
		}
	}
	return nil
}

// Handle executes a canvas query
func (h *CanvasQueryHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	switch q := query.(type) {
	case queries.GetCanvasQuery:
		return h.workspaces.Snapshot(ctx, valueobjects.WorkspaceID(q.WorkspaceID))

	case queries.GetHoverZoneQuery:
		var result queries.HoverZoneResult
		err := h.workspaces.Read(ctx, valueobjects.WorkspaceID(q.WorkspaceID), func(c *aggregates.Canvas) error {
			result.ZoneID = c.Containment().PickHoverZoneID(c.Document().Zones, valueobjects.Point{X: q.X, Y: q.Y})
			return nil
		})
		return result, err

	case queries.GetConnectionSegmentsQuery:
		var result []domainservices.Segment
		err := h.workspaces.Read(ctx, valueobjects.WorkspaceID(q.WorkspaceID), func(c *aggregates.Canvas) error {
			doc := c.Document()
			result = c.Containment().ConnectionSegments(doc.Notes, doc.Connections)
			return nil
		})
		return result, err

	case queries.GetZoneTreeQuery:
		var tree *queries.ZoneTree
		err := h.workspaces.Read(ctx, valueobjects.WorkspaceID(q.WorkspaceID), func(c *aggregates.Canvas) error {
			tree = queries.BuildZoneTree(c.Document())
			return nil
		})
		return tree, err

	case queries.GetVersionQuery:
		var version *versioning.DocumentVersion
		err := h.workspaces.Read(ctx, valueobjects.WorkspaceID(q.WorkspaceID), func(c *aggregates.Canvas) error {
			v, err := versioning.NewDocumentVersion(c.WorkspaceID(), c.Document(), h.now())
			version = v
			return err
		})
		return version, err

	default:
		return nil, fmt.Errorf("canvas query handler cannot handle %T", query)
	}
}
