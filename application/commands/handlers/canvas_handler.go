package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"nodal/application/commands"
	"nodal/application/commands/bus"
	"nodal/application/services"
	"nodal/domain/core/aggregates"
	"nodal/domain/core/valueobjects"
)

// CanvasHandler handles connection and view commands
type CanvasHandler struct {
	workspaces *services.WorkspaceService
	logger     *zap.Logger
}

// NewCanvasHandler creates a new canvas handler
func NewCanvasHandler(workspaces *services.WorkspaceService, logger *zap.Logger) *CanvasHandler {
	return &CanvasHandler{workspaces: workspaces, logger: logger}
}

// Register binds the connection and view commands to this handler
func (h *CanvasHandler) Register(b *bus.CommandBus) error {
	for _, cmd := range []bus.Command{
		&commands.CreateConnectionCommand{},
		&commands.DeleteConnectionCommand{},
		&commands.UpdateViewportCommand{},
		&commands.UpdateBackgroundTransformCommand{},
		&commands.SetBackgroundImageCommand{},
	} {
		if err := b.Register(cmd, h); err != nil {
			return err
		}
	}
	return nil
}

// Handle executes a connection or view command
func (h *CanvasHandler) Handle(ctx context.Context, cmd bus.Command) error {
	switch c := cmd.(type) {
	case *commands.CreateConnectionCommand:
		return h.workspaces.Mutate(ctx, valueobjects.WorkspaceID(c.WorkspaceID), "add_connection", func(cv *aggregates.Canvas) error {
			_, created, err := cv.AddConnection(
				valueobjects.ConnectionID(c.ConnectionID),
				valueobjects.NoteID(c.FromID),
				valueobjects.NoteID(c.ToID),
			)
			if err == nil && !created {
				h.logger.Debug("Connection already exists",
					zap.String("from", c.FromID),
					zap.String("to", c.ToID))
			}
			return err
		})

	case *commands.DeleteConnectionCommand:
		return h.workspaces.Mutate(ctx, valueobjects.WorkspaceID(c.WorkspaceID), "delete_connection", func(cv *aggregates.Canvas) error {
			return cv.DeleteConnection(valueobjects.ConnectionID(c.ConnectionID))
		})

	case *commands.UpdateViewportCommand:
		return h.workspaces.Mutate(ctx, valueobjects.WorkspaceID(c.WorkspaceID), "update_viewport", func(cv *aggregates.Canvas) error {
			return cv.UpdateViewport(aggregates.ViewportPatch{X: c.X, Y: c.Y, Zoom: c.Zoom})
		})

	case *commands.UpdateBackgroundTransformCommand:
		return h.workspaces.Mutate(ctx, valueobjects.WorkspaceID(c.WorkspaceID), "update_background", func(cv *aggregates.Canvas) error {
			return cv.UpdateBackgroundTransform(aggregates.BackgroundPatch{X: c.X, Y: c.Y, Scale: c.Scale})
		})

	case *commands.SetBackgroundImageCommand:
		return h.workspaces.Mutate(ctx, valueobjects.WorkspaceID(c.WorkspaceID), "set_background_image", func(cv *aggregates.Canvas) error {
			return cv.SetBackgroundImage(c.Image)
		})

	default:
		return fmt.Errorf("canvas handler cannot handle %T", cmd)
	}
}
