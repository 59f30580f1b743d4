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

// ZoneHandler handles zone commands
type ZoneHandler struct {
	workspaces *services.WorkspaceService
	logger     *zap.Logger
}

// NewZoneHandler creates a new zone handler
func NewZoneHandler(workspaces *services.WorkspaceService, logger *zap.Logger) *ZoneHandler {
	return &ZoneHandler{workspaces: workspaces, logger: logger}
}

// Register binds every zone command to this handler
func (h *ZoneHandler) Register(b *bus.CommandBus) error {
	for _, cmd := range []bus.Command{
		&commands.CreateZoneCommand{},
		&commands.UpdateZoneCommand{},
		&commands.DeleteZoneCommand{},
		&commands.MoveZoneCommand{},
		&commands.ResizeZoneCommand{},
	} {
		if err := b.Register(cmd, h); err != nil {
			return err
		}
	}
	return nil
}

// Handle executes a zone command
func (h *ZoneHandler) Handle(ctx context.Context, cmd bus.Command) error {
	switch c := cmd.(type) {
	case *commands.CreateZoneCommand:
		return h.workspaces.Mutate(ctx, valueobjects.WorkspaceID(c.WorkspaceID), "create_zone", func(cv *aggregates.Canvas) error {
			_, err := cv.CreateZone(
				valueobjects.ZoneID(c.ZoneID),
				c.Title,
				valueobjects.ZoneID(c.ParentZoneID),
				valueobjects.Point{X: c.CenterX, Y: c.CenterY},
			)
			return err
		})

	case *commands.UpdateZoneCommand:
		patch := aggregates.ZonePatch{Title: c.Title}
		return h.workspaces.Mutate(ctx, valueobjects.WorkspaceID(c.WorkspaceID), "update_zone", func(cv *aggregates.Canvas) error {
			return cv.UpdateZone(valueobjects.ZoneID(c.ZoneID), patch)
		})

	case *commands.DeleteZoneCommand:
		return h.workspaces.Mutate(ctx, valueobjects.WorkspaceID(c.WorkspaceID), "delete_zone", func(cv *aggregates.Canvas) error {
			return cv.DeleteZone(valueobjects.ZoneID(c.ZoneID))
		})

	case *commands.MoveZoneCommand:
		return h.workspaces.Mutate(ctx, valueobjects.WorkspaceID(c.WorkspaceID), "move_zone", func(cv *aggregates.Canvas) error {
			return cv.MoveZone(valueobjects.ZoneID(c.ZoneID), valueobjects.Point{X: c.DX, Y: c.DY})
		})

	case *commands.ResizeZoneCommand:
		return h.workspaces.Mutate(ctx, valueobjects.WorkspaceID(c.WorkspaceID), "resize_zone", func(cv *aggregates.Canvas) error {
			return cv.ResizeZone(valueobjects.ZoneID(c.ZoneID), valueobjects.Rect{X: c.X, Y: c.Y, Width: c.Width, Height: c.Height})
		})

	default:
		return fmt.Errorf("zone handler cannot handle %T", cmd)
	}
}
