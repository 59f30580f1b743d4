package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nodal/domain/core/aggregates"
	"nodal/domain/core/entities"
	vo "nodal/domain/core/valueobjects"
	"nodal/pkg/errors"
)

func zone(id, parent string) *entities.Zone {
	r := vo.Rect{Width: 400, Height: 300}
	return &entities.Zone{ID: vo.ZoneID(id), ParentZoneID: vo.ZoneID(parent), Bounds: r, ManualBounds: r}
}

func TestValidate_CleanDocument(t *testing.T) {
	doc := aggregates.NewDocument()
	doc.Zones = []*entities.Zone{zone("a", ""), zone("b", "a")}
	doc.Notes = []*entities.Note{{ID: "n1", ZoneID: "b"}, {ID: "n2"}}
	doc.Connections = []*entities.Connection{{ID: "c", FromID: "n1", ToID: "n2"}}

	assert.NoError(t, NewDocumentValidator(nil).Validate(doc))
}

func TestValidate_ReportsBrokenReferences(t *testing.T) {
	// Arrange
	doc := aggregates.NewDocument()
	doc.Zones = []*entities.Zone{zone("a", "b"), zone("b", "a"), zone("tiny", "")}
	doc.Zones[2].Bounds.Width = 10
	doc.Notes = []*entities.Note{{ID: "n1", ZoneID: "ghost"}, {ID: "n1"}}
	doc.Connections = []*entities.Connection{{ID: "c1", FromID: "n1", ToID: "missing"}, {ID: "c2", FromID: "n1", ToID: "n1"}}

	// Act
	err := NewDocumentValidator(nil).Validate(doc)

	// Assert
	require.Error(t, err)
	var verrs *errors.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	fields := verrs.ToMap()
	assert.Contains(t, fields, "zones[a].parentZoneId")
	assert.Contains(t, fields, "zones[tiny]")
	assert.Contains(t, fields, "notes[n1].zoneId")
	assert.Contains(t, fields, "connections[c1]")
	assert.Contains(t, fields, "connections[c2]")
}

func TestValidate_DoesNotMutateSentinels(t *testing.T) {
	doc := aggregates.NewDocument()
	doc.Notes = []*entities.Note{{ID: "n"}, {ID: "n"}}

	require.Error(t, NewDocumentValidator(nil).Validate(doc))
	assert.Empty(t, errors.ErrDuplicateNote.Details)
}

func TestRepair(t *testing.T) {
	// Arrange
	doc := aggregates.NewDocument()
	doc.Zones = []*entities.Zone{zone("a", "b"), zone("b", "a"), zone("a", ""), zone("orphan", "gone")}
	doc.Zones[3].Bounds.Height = 50
	doc.Notes = []*entities.Note{{ID: "n1", ZoneID: "gone"}, {ID: "n2", ZoneID: "b"}, {ID: "n1"}}
	doc.Connections = []*entities.Connection{
		{ID: "ok", FromID: "n1", ToID: "n2"},
		{ID: "dup", FromID: "n2", ToID: "n1"},
		{ID: "self", FromID: "n2", ToID: "n2"},
		{ID: "dangling", FromID: "n1", ToID: "x"},
	}
	v := NewDocumentValidator(nil)

	// Act
	report := v.Repair(doc)

	// Assert
	assert.True(t, report.Changed())
	assert.Equal(t, 1, report.DroppedZones)
	assert.Equal(t, 1, report.DroppedNotes)
	assert.Equal(t, 3, report.DroppedConnections)
	assert.Equal(t, 1, report.DetachedNotes)
	assert.Equal(t, 2, report.DetachedZones)
	assert.Equal(t, 1, report.ResizedZones)

	a, _ := doc.Zone("a")
	b, _ := doc.Zone("b")
	assert.True(t, a.IsRoot())
	assert.Equal(t, vo.ZoneID("a"), b.ParentZoneID)
	require.Len(t, doc.Connections, 1)
	assert.Equal(t, vo.ConnectionID("ok"), doc.Connections[0].ID)
	assert.NoError(t, v.Validate(doc))

	assert.False(t, v.Repair(doc).Changed())
}
