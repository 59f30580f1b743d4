package entities

import (
	"nodal/domain/core/valueobjects"
)

// Connection is a manual link between two notes. The pair is unordered:
// (a, b) and (b, a) are the same connection.
type Connection struct {
	ID        valueobjects.ConnectionID `json:"id"`
	FromID    valueobjects.NoteID       `json:"fromId"`
	ToID      valueobjects.NoteID       `json:"toId"`
	CreatedAt int64                     `json:"createdAt,omitempty"`
}

// Links reports whether the connection joins a and b in either direction
func (c *Connection) Links(a, b valueobjects.NoteID) bool {
	return (c.FromID == a && c.ToID == b) || (c.FromID == b && c.ToID == a)
}

// Touches reports whether id is one of the endpoints
func (c *Connection) Touches(id valueobjects.NoteID) bool {
	return c.FromID == id || c.ToID == id
}
