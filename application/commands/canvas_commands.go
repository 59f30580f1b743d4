package commands

import (
	"nodal/domain/core/entities"
	"nodal/pkg/utils"
)

// Note commands

// CreateNoteCommand places an empty note with its top-left corner at (X, Y)
type CreateNoteCommand struct {
	WorkspaceID string  `json:"workspace_id" validate:"required"`
	NoteID      string  `json:"note_id" validate:"required"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Title       string  `json:"title" validate:"max=200"`
	Color       string  `json:"color" validate:"max=32"`
}

// Validate validates the command
func (c *CreateNoteCommand) Validate() error { return utils.ValidateStruct(c) }

// UpdateNoteCommand changes the non-nil fields of a note
type UpdateNoteCommand struct {
	WorkspaceID string             `json:"workspace_id" validate:"required"`
	NoteID      string             `json:"note_id" validate:"required"`
	X           *float64           `json:"x"`
	Y           *float64           `json:"y"`
	Width       *float64           `json:"width" validate:"omitempty,gt=0"`
	Height      *float64           `json:"height" validate:"omitempty,gt=0"`
	Title       *string            `json:"title" validate:"omitempty,max=200"`
	Summary     *string            `json:"summary"`
	Color       *string            `json:"color" validate:"omitempty,max=32"`
	Messages    []entities.Message `json:"messages" validate:"omitempty,dive"`
}

// Validate validates the command
func (c *UpdateNoteCommand) Validate() error { return utils.ValidateStruct(c) }

// DeleteNoteCommand removes a note and its connections
type DeleteNoteCommand struct {
	WorkspaceID string `json:"workspace_id" validate:"required"`
	NoteID      string `json:"note_id" validate:"required"`
}

// Validate validates the command
func (c *DeleteNoteCommand) Validate() error { return utils.ValidateStruct(c) }

// ForkNoteCommand starts a new note from one message of another
type ForkNoteCommand struct {
	WorkspaceID  string `json:"workspace_id" validate:"required"`
	SourceNoteID string `json:"source_note_id" validate:"required"`
	NewNoteID    string `json:"new_note_id" validate:"required"`
	MessageIndex int    `json:"message_index" validate:"gte=0"`
}

// Validate validates the command
func (c *ForkNoteCommand) Validate() error { return utils.ValidateStruct(c) }

// Zone commands

// CreateZoneCommand adds a minimum-size zone centered on (CenterX, CenterY),
// or inset into its parent when ParentZoneID is set
type CreateZoneCommand struct {
	WorkspaceID  string  `json:"workspace_id" validate:"required"`
	ZoneID       string  `json:"zone_id" validate:"required"`
	Title        string  `json:"title" validate:"max=200"`
	ParentZoneID string  `json:"parent_zone_id"`
	CenterX      float64 `json:"center_x"`
	CenterY      float64 `json:"center_y"`
}

// Validate validates the command
func (c *CreateZoneCommand) Validate() error { return utils.ValidateStruct(c) }

// UpdateZoneCommand renames a zone
type UpdateZoneCommand struct {
	WorkspaceID string  `json:"workspace_id" validate:"required"`
	ZoneID      string  `json:"zone_id" validate:"required"`
	Title       *string `json:"title" validate:"omitempty,max=200"`
}

// Validate validates the command
func (c *UpdateZoneCommand) Validate() error { return utils.ValidateStruct(c) }

// DeleteZoneCommand removes a zone subtree, detaching its notes
type DeleteZoneCommand struct {
	WorkspaceID string `json:"workspace_id" validate:"required"`
	ZoneID      string `json:"zone_id" validate:"required"`
}

// Validate validates the command
func (c *DeleteZoneCommand) Validate() error { return utils.ValidateStruct(c) }

// MoveZoneCommand translates a zone subtree in world units
type MoveZoneCommand struct {
	WorkspaceID string  `json:"workspace_id" validate:"required"`
	ZoneID      string  `json:"zone_id" validate:"required"`
	DX          float64 `json:"dx"`
	DY          float64 `json:"dy"`
}

// Validate validates the command
func (c *MoveZoneCommand) Validate() error { return utils.ValidateStruct(c) }

// ResizeZoneCommand sets a zone's manual bounds
type ResizeZoneCommand struct {
	WorkspaceID string  `json:"workspace_id" validate:"required"`
	ZoneID      string  `json:"zone_id" validate:"required"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width" validate:"gt=0"`
	Height      float64 `json:"height" validate:"gt=0"`
}

// Validate validates the command
func (c *ResizeZoneCommand) Validate() error { return utils.ValidateStruct(c) }

// Connection commands

// CreateConnectionCommand links two notes
type CreateConnectionCommand struct {
	WorkspaceID  string `json:"workspace_id" validate:"required"`
	ConnectionID string `json:"connection_id" validate:"required"`
	FromID       string `json:"from_id" validate:"required"`
	ToID         string `json:"to_id" validate:"required,nefield=FromID"`
}

// Validate validates the command
func (c *CreateConnectionCommand) Validate() error { return utils.ValidateStruct(c) }

// DeleteConnectionCommand removes a connection
type DeleteConnectionCommand struct {
	WorkspaceID  string `json:"workspace_id" validate:"required"`
	ConnectionID string `json:"connection_id" validate:"required"`
}

// Validate validates the command
func (c *DeleteConnectionCommand) Validate() error { return utils.ValidateStruct(c) }

// View commands

// UpdateViewportCommand merges the non-nil fields into the viewport
type UpdateViewportCommand struct {
	WorkspaceID string   `json:"workspace_id" validate:"required"`
	X           *float64 `json:"x"`
	Y           *float64 `json:"y"`
	Zoom        *float64 `json:"zoom" validate:"omitempty,gt=0"`
}

// Validate validates the command
func (c *UpdateViewportCommand) Validate() error { return utils.ValidateStruct(c) }

// UpdateBackgroundTransformCommand merges the non-nil fields into the
// background transform
type UpdateBackgroundTransformCommand struct {
	WorkspaceID string   `json:"workspace_id" validate:"required"`
	X           *float64 `json:"x"`
	Y           *float64 `json:"y"`
	Scale       *float64 `json:"scale" validate:"omitempty,gt=0"`
}

// Validate validates the command
func (c *UpdateBackgroundTransformCommand) Validate() error { return utils.ValidateStruct(c) }

// SetBackgroundImageCommand replaces the background image; a nil image
// removes it
type SetBackgroundImageCommand struct {
	WorkspaceID string                    `json:"workspace_id" validate:"required"`
	Image       *entities.BackgroundImage `json:"image"`
}

// Validate validates the command
func (c *SetBackgroundImageCommand) Validate() error { return utils.ValidateStruct(c) }
