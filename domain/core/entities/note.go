package entities

import (
	"nodal/domain/core/valueobjects"
)

// Role identifies the author of a chat message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one turn of the conversation held by a note
type Message struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// Note is a card on the canvas holding a chat conversation.
// CreatedAt and message timestamps are unix milliseconds.
type Note struct {
	ID         valueobjects.NoteID `json:"id"`
	Position   valueobjects.Point  `json:"position"`
	Dimensions valueobjects.Size   `json:"dimensions"`
	ZoneID     valueobjects.ZoneID `json:"zoneId"`
	Title      string              `json:"title"`
	Summary    string              `json:"summary"`
	Messages   []Message           `json:"messages"`
	Color      string              `json:"color,omitempty"`
	CreatedAt  int64               `json:"createdAt"`
	Embedding  []float64           `json:"embedding,omitempty"`
}

// Footprint returns the rectangle the note occupies for geometry purposes
func (n *Note) Footprint(card valueobjects.Size) valueobjects.Rect {
	return valueobjects.RectAt(n.Position, card)
}

// Center returns the center of the note's footprint
func (n *Note) Center(card valueobjects.Size) valueobjects.Point {
	return n.Footprint(card).Center()
}

// LastMessage returns the final message and false when there is none
func (n *Note) LastMessage() (Message, bool) {
	if len(n.Messages) == 0 {
		return Message{}, false
	}
	return n.Messages[len(n.Messages)-1], true
}

// Clone returns a deep copy of the note
func (n *Note) Clone() *Note {
	c := *n
	if n.Messages != nil {
		c.Messages = make([]Message, len(n.Messages))
		copy(c.Messages, n.Messages)
	}
	if n.Embedding != nil {
		c.Embedding = make([]float64, len(n.Embedding))
		copy(c.Embedding, n.Embedding)
	}
	return &c
}
