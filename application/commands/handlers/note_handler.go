package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"nodal/application/commands"
	"nodal/application/commands/bus"
	"nodal/application/services"
	"nodal/domain/core/aggregates"
	"nodal/domain/core/entities"
	"nodal/domain/core/valueobjects"
)

// NoteHandler handles note commands
type NoteHandler struct {
	workspaces *services.WorkspaceService
	logger     *zap.Logger
}

// NewNoteHandler creates a new note handler
func NewNoteHandler(workspaces *services.WorkspaceService, logger *zap.Logger) *NoteHandler {
	return &NoteHandler{workspaces: workspaces, logger: logger}
}

// Register binds every note command to this handler
func (h *NoteHandler) Register(b *bus.CommandBus) error {
	for _, cmd := range []bus.Command{
		&commands.CreateNoteCommand{},
		&commands.UpdateNoteCommand{},
		&commands.DeleteNoteCommand{},
		&commands.ForkNoteCommand{},
	} {
		if err := b.Register(cmd, h); err != nil {
			return err
		}
	}
	return nil
}

// Handle executes a note command
func (h *NoteHandler) Handle(ctx context.Context, cmd bus.Command) error {
	switch c := cmd.(type) {
	case *commands.CreateNoteCommand:
		return h.create(ctx, c)
	case *commands.UpdateNoteCommand:
		return h.update(ctx, c)
	case *commands.DeleteNoteCommand:
		return h.workspaces.Mutate(ctx, valueobjects.WorkspaceID(c.WorkspaceID), "delete_note", func(cv *aggregates.Canvas) error {
			return cv.DeleteNote(valueobjects.NoteID(c.NoteID))
		})
	case *commands.ForkNoteCommand:
		return h.workspaces.Mutate(ctx, valueobjects.WorkspaceID(c.WorkspaceID), "fork_note", func(cv *aggregates.Canvas) error {
			_, err := cv.ForkNote(valueobjects.NoteID(c.NewNoteID), valueobjects.NoteID(c.SourceNoteID), c.MessageIndex)
			return err
		})
	default:
		return fmt.Errorf("note handler cannot handle %T", cmd)
	}
}

func (h *NoteHandler) create(ctx context.Context, c *commands.CreateNoteCommand) error {
	return h.workspaces.Mutate(ctx, valueobjects.WorkspaceID(c.WorkspaceID), "create_note", func(cv *aggregates.Canvas) error {
		return cv.AddNote(&entities.Note{
			ID:       valueobjects.NoteID(c.NoteID),
			Position: valueobjects.Point{X: c.X, Y: c.Y},
			Title:    c.Title,
			Color:    c.Color,
		})
	})
}

func (h *NoteHandler) update(ctx context.Context, c *commands.UpdateNoteCommand) error {
	patch := aggregates.NotePatch{
		Title:    c.Title,
		Summary:  c.Summary,
		Color:    c.Color,
		Messages: c.Messages,
	}

	return h.workspaces.Mutate(ctx, valueobjects.WorkspaceID(c.WorkspaceID), "update_note", func(cv *aggregates.Canvas) error {
		note, ok := cv.Document().Note(valueobjects.NoteID(c.NoteID))
		if ok {
			// Partial coordinates keep the other axis of the current value.
			if c.X != nil || c.Y != nil {
				pos := note.Position
				if c.X != nil {
					pos.X = *c.X
				}
				if c.Y != nil {
					pos.Y = *c.Y
				}
				patch.Position = &pos
			}
			if c.Width != nil || c.Height != nil {
				size := note.Dimensions
				if c.Width != nil {
					size.Width = *c.Width
				}
				if c.Height != nil {
					size.Height = *c.Height
				}
				patch.Dimensions = &size
			}
		}
		return cv.UpdateNote(valueobjects.NoteID(c.NoteID), patch)
	})
}
