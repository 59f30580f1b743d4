package valueobjects

import (
	"encoding/json"

	"github.com/google/uuid"
)

// NoteID identifies a note inside a canvas document
type NoteID string

// NewNoteID creates a new random NoteID
func NewNoteID() NoteID {
	return NoteID(uuid.New().String())
}

// String returns the string representation
func (id NoteID) String() string {
	return string(id)
}

// IsZero checks if the NoteID is the zero value
func (id NoteID) IsZero() bool {
	return id == ""
}

// ZoneID identifies a zone. The empty ZoneID means "no zone" and is
// serialised as JSON null.
type ZoneID string

// NewZoneID creates a new random ZoneID
func NewZoneID() ZoneID {
	return ZoneID(uuid.New().String())
}

// String returns the string representation
func (id ZoneID) String() string {
	return string(id)
}

// IsZero checks if the ZoneID is the zero value
func (id ZoneID) IsZero() bool {
	return id == ""
}

// MarshalJSON implements json.Marshaler
func (id ZoneID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON implements json.Unmarshaler
func (id *ZoneID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*id = ZoneID(s)
	return nil
}

// ConnectionID identifies a connection between two notes
type ConnectionID string

// NewConnectionID creates a new random ConnectionID
func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.New().String())
}

// String returns the string representation
func (id ConnectionID) String() string {
	return string(id)
}

// WorkspaceID identifies the workspace a canvas document belongs to
type WorkspaceID string

// String returns the string representation
func (id WorkspaceID) String() string {
	return string(id)
}

// IsZero checks if the WorkspaceID is the zero value
func (id WorkspaceID) IsZero() bool {
	return id == ""
}
