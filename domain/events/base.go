package events

import (
	"time"

	"nodal/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields. The aggregate of every canvas
// event is the workspace.
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

func newBase(workspaceID valueobjects.WorkspaceID, eventType string, timestamp time.Time) BaseEvent {
	return BaseEvent{
		AggregateID: workspaceID.String(),
		EventType:   eventType,
		Timestamp:   timestamp,
		Version:     1,
	}
}

// Note Events

// NoteAdded is raised when a note is placed on the canvas
type NoteAdded struct {
	BaseEvent
	NoteID valueobjects.NoteID `json:"note_id"`
	ZoneID valueobjects.ZoneID `json:"zone_id"`
}

// NewNoteAdded creates a NoteAdded event
func NewNoteAdded(ws valueobjects.WorkspaceID, noteID valueobjects.NoteID, zoneID valueobjects.ZoneID, timestamp time.Time) NoteAdded {
	return NoteAdded{
		BaseEvent: newBase(ws, "note.added", timestamp),
		NoteID:    noteID,
		ZoneID:    zoneID,
	}
}

// NoteUpdated is raised when note fields change. Fields lists what changed.
type NoteUpdated struct {
	BaseEvent
	NoteID valueobjects.NoteID `json:"note_id"`
	Fields []string            `json:"fields"`
}

// NewNoteUpdated creates a NoteUpdated event
func NewNoteUpdated(ws valueobjects.WorkspaceID, noteID valueobjects.NoteID, fields []string, timestamp time.Time) NoteUpdated {
	return NoteUpdated{
		BaseEvent: newBase(ws, "note.updated", timestamp),
		NoteID:    noteID,
		Fields:    fields,
	}
}

// NoteMovedBetweenZones is raised when a position change reassigns a note
type NoteMovedBetweenZones struct {
	BaseEvent
	NoteID   valueobjects.NoteID `json:"note_id"`
	FromZone valueobjects.ZoneID `json:"from_zone"`
	ToZone   valueobjects.ZoneID `json:"to_zone"`
}

// NewNoteMovedBetweenZones creates a NoteMovedBetweenZones event
func NewNoteMovedBetweenZones(ws valueobjects.WorkspaceID, noteID valueobjects.NoteID, from, to valueobjects.ZoneID, timestamp time.Time) NoteMovedBetweenZones {
	return NoteMovedBetweenZones{
		BaseEvent: newBase(ws, "note.zone_changed", timestamp),
		NoteID:    noteID,
		FromZone:  from,
		ToZone:    to,
	}
}

// NoteDeleted is raised when a note and its connections are removed
type NoteDeleted struct {
	BaseEvent
	NoteID             valueobjects.NoteID         `json:"note_id"`
	RemovedConnections []valueobjects.ConnectionID `json:"removed_connections"`
}

// NewNoteDeleted creates a NoteDeleted event
func NewNoteDeleted(ws valueobjects.WorkspaceID, noteID valueobjects.NoteID, removed []valueobjects.ConnectionID, timestamp time.Time) NoteDeleted {
	return NoteDeleted{
		BaseEvent:          newBase(ws, "note.deleted", timestamp),
		NoteID:             noteID,
		RemovedConnections: removed,
	}
}

// MessageAppended is raised when a chat turn is added to a note
type MessageAppended struct {
	BaseEvent
	NoteID valueobjects.NoteID `json:"note_id"`
	Role   string              `json:"role"`
}

// NewMessageAppended creates a MessageAppended event
func NewMessageAppended(ws valueobjects.WorkspaceID, noteID valueobjects.NoteID, role string, timestamp time.Time) MessageAppended {
	return MessageAppended{
		BaseEvent: newBase(ws, "note.message_appended", timestamp),
		NoteID:    noteID,
		Role:      role,
	}
}

// EmbeddingsUpdated is raised when Smart View writes vectors back to notes
type EmbeddingsUpdated struct {
	BaseEvent
	NoteIDs []valueobjects.NoteID `json:"note_ids"`
}

// NewEmbeddingsUpdated creates an EmbeddingsUpdated event
func NewEmbeddingsUpdated(ws valueobjects.WorkspaceID, ids []valueobjects.NoteID, timestamp time.Time) EmbeddingsUpdated {
	return EmbeddingsUpdated{
		BaseEvent: newBase(ws, "note.embeddings_updated", timestamp),
		NoteIDs:   ids,
	}
}

// Connection Events

// NotesConnected is raised when two notes are linked
type NotesConnected struct {
	BaseEvent
	ConnectionID valueobjects.ConnectionID `json:"connection_id"`
	FromID       valueobjects.NoteID       `json:"from_id"`
	ToID         valueobjects.NoteID       `json:"to_id"`
}

// NewNotesConnected creates a NotesConnected event
func NewNotesConnected(ws valueobjects.WorkspaceID, id valueobjects.ConnectionID, from, to valueobjects.NoteID, timestamp time.Time) NotesConnected {
	return NotesConnected{
		BaseEvent:    newBase(ws, "connection.added", timestamp),
		ConnectionID: id,
		FromID:       from,
		ToID:         to,
	}
}

// ConnectionDeleted is raised when a link is removed
type ConnectionDeleted struct {
	BaseEvent
	ConnectionID valueobjects.ConnectionID `json:"connection_id"`
}

// NewConnectionDeleted creates a ConnectionDeleted event
func NewConnectionDeleted(ws valueobjects.WorkspaceID, id valueobjects.ConnectionID, timestamp time.Time) ConnectionDeleted {
	return ConnectionDeleted{
		BaseEvent:    newBase(ws, "connection.deleted", timestamp),
		ConnectionID: id,
	}
}

// Zone Events

// ZoneAdded is raised when a zone is created
type ZoneAdded struct {
	BaseEvent
	ZoneID       valueobjects.ZoneID `json:"zone_id"`
	ParentZoneID valueobjects.ZoneID `json:"parent_zone_id"`
}

// NewZoneAdded creates a ZoneAdded event
func NewZoneAdded(ws valueobjects.WorkspaceID, id, parent valueobjects.ZoneID, timestamp time.Time) ZoneAdded {
	return ZoneAdded{
		BaseEvent:    newBase(ws, "zone.added", timestamp),
		ZoneID:       id,
		ParentZoneID: parent,
	}
}

// ZoneUpdated is raised when zone metadata changes
type ZoneUpdated struct {
	BaseEvent
	ZoneID valueobjects.ZoneID `json:"zone_id"`
	Fields []string            `json:"fields"`
}

// NewZoneUpdated creates a ZoneUpdated event
func NewZoneUpdated(ws valueobjects.WorkspaceID, id valueobjects.ZoneID, fields []string, timestamp time.Time) ZoneUpdated {
	return ZoneUpdated{
		BaseEvent: newBase(ws, "zone.updated", timestamp),
		ZoneID:    id,
		Fields:    fields,
	}
}

// ZoneDeleted is raised when a zone subtree is removed
type ZoneDeleted struct {
	BaseEvent
	ZoneIDs       []valueobjects.ZoneID `json:"zone_ids"`
	DetachedNotes []valueobjects.NoteID `json:"detached_notes"`
}

// NewZoneDeleted creates a ZoneDeleted event
func NewZoneDeleted(ws valueobjects.WorkspaceID, ids []valueobjects.ZoneID, detached []valueobjects.NoteID, timestamp time.Time) ZoneDeleted {
	return ZoneDeleted{
		BaseEvent:     newBase(ws, "zone.deleted", timestamp),
		ZoneIDs:       ids,
		DetachedNotes: detached,
	}
}

// ZoneMoved is raised when a zone subtree is translated
type ZoneMoved struct {
	BaseEvent
	ZoneID valueobjects.ZoneID `json:"zone_id"`
	Delta  valueobjects.Point  `json:"delta"`
}

// NewZoneMoved creates a ZoneMoved event
func NewZoneMoved(ws valueobjects.WorkspaceID, id valueobjects.ZoneID, delta valueobjects.Point, timestamp time.Time) ZoneMoved {
	return ZoneMoved{
		BaseEvent: newBase(ws, "zone.moved", timestamp),
		ZoneID:    id,
		Delta:     delta,
	}
}

// ZoneResized is raised when a zone gets new manual bounds
type ZoneResized struct {
	BaseEvent
	ZoneID valueobjects.ZoneID `json:"zone_id"`
	Bounds valueobjects.Rect   `json:"bounds"`
}

// NewZoneResized creates a ZoneResized event
func NewZoneResized(ws valueobjects.WorkspaceID, id valueobjects.ZoneID, bounds valueobjects.Rect, timestamp time.Time) ZoneResized {
	return ZoneResized{
		BaseEvent: newBase(ws, "zone.resized", timestamp),
		ZoneID:    id,
		Bounds:    bounds,
	}
}

// Canvas Events

// ViewportChanged is raised when the pan or zoom changes
type ViewportChanged struct {
	BaseEvent
	Viewport valueobjects.Viewport `json:"viewport"`
}

// NewViewportChanged creates a ViewportChanged event
func NewViewportChanged(ws valueobjects.WorkspaceID, v valueobjects.Viewport, timestamp time.Time) ViewportChanged {
	return ViewportChanged{
		BaseEvent: newBase(ws, "canvas.viewport_changed", timestamp),
		Viewport:  v,
	}
}

// BackgroundChanged is raised when the background image or its transform changes
type BackgroundChanged struct {
	BaseEvent
	Transform valueobjects.BackgroundTransform `json:"transform"`
	HasImage  bool                             `json:"has_image"`
}

// NewBackgroundChanged creates a BackgroundChanged event
func NewBackgroundChanged(ws valueobjects.WorkspaceID, t valueobjects.BackgroundTransform, hasImage bool, timestamp time.Time) BackgroundChanged {
	return BackgroundChanged{
		BaseEvent: newBase(ws, "canvas.background_changed", timestamp),
		Transform: t,
		HasImage:  hasImage,
	}
}
