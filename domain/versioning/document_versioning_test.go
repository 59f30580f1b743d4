package versioning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nodal/domain/core/aggregates"
	"nodal/domain/core/entities"
	vo "nodal/domain/core/valueobjects"
)

func sampleDocument() *aggregates.Document {
	doc := aggregates.NewDocument()
	doc.Notes = []*entities.Note{
		{ID: "a", Title: "Alpha", Messages: []entities.Message{}},
		{ID: "b", Title: "Beta", Messages: []entities.Message{}},
	}
	doc.Zones = []*entities.Zone{{ID: "z", Bounds: vo.Rect{Width: 310, Height: 230}}}
	doc.Connections = []*entities.Connection{{ID: "c", FromID: "a", ToID: "b"}}
	return doc
}

func TestChecksum_StableAndSensitive(t *testing.T) {
	doc := sampleDocument()

	first, err := Checksum(doc)
	require.NoError(t, err)
	second, err := Checksum(doc.Clone())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)

	doc.Notes[0].Title = "Changed"
	third, err := Checksum(doc)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestNewDocumentVersion(t *testing.T) {
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	v, err := NewDocumentVersion("ws", sampleDocument(), at)
	require.NoError(t, err)

	assert.Equal(t, "ws", v.WorkspaceID)
	assert.Equal(t, aggregates.CurrentSchemaVersion, v.SchemaVersion)
	assert.Equal(t, 2, v.NoteCount)
	assert.Equal(t, 1, v.ZoneCount)
	assert.Equal(t, 1, v.ConnectionCount)
	assert.Equal(t, at, v.CreatedAt)

	_, err = NewDocumentVersion("ws", nil, at)
	assert.Error(t, err)
}

func TestDiff(t *testing.T) {
	// Arrange
	before := sampleDocument()
	after := before.Clone()
	after.Notes[1].Position = vo.Point{X: 10, Y: 10}
	after.Notes = append(after.Notes[:0], after.Notes[1], &entities.Note{ID: "c"})
	after.Connections = nil
	after.Viewport.Zoom = 2

	// Act
	diff, err := Diff(before, after)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, []string{"c"}, diff.Notes.Added)
	assert.Equal(t, []string{"a"}, diff.Notes.Removed)
	assert.Equal(t, []string{"b"}, diff.Notes.Updated)
	assert.True(t, diff.Zones.Empty())
	assert.Equal(t, []string{"c"}, diff.Connections.Removed)
	assert.True(t, diff.ViewportChanged)
	assert.False(t, diff.BackgroundChanged)
	assert.False(t, diff.Empty())
}

func TestDiff_IdenticalDocuments(t *testing.T) {
	doc := sampleDocument()
	diff, err := Diff(doc, doc.Clone())
	require.NoError(t, err)
	assert.True(t, diff.Empty())
}
