package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nodal/domain/config"
	"nodal/domain/core/entities"
	vo "nodal/domain/core/valueobjects"
)

func zone(id, parent string, x, y, w, h float64) *entities.Zone {
	r := vo.Rect{X: x, Y: y, Width: w, Height: h}
	return &entities.Zone{ID: vo.ZoneID(id), ParentZoneID: vo.ZoneID(parent), Bounds: r, ManualBounds: r}
}

func TestPickZoneIDForNotePosition_DeepestWins(t *testing.T) {
	// Arrange
	c := NewContainment(config.DefaultDomainConfig())
	parent := zone("parent", "", 0, 0, 2000, 2000)
	child := zone("child", "parent", 100, 100, 600, 600)
	// child first in enumeration must not matter
	zones := []*entities.Zone{parent, child}

	// Act
	id := c.PickZoneIDForNotePosition(zones, vo.Point{X: 150, Y: 150})

	// Assert
	assert.Equal(t, vo.ZoneID("child"), id)

	reversed := c.PickZoneIDForNotePosition([]*entities.Zone{child, parent}, vo.Point{X: 150, Y: 150})
	assert.Equal(t, vo.ZoneID("child"), reversed)
}

func TestPickZoneIDForNotePosition_RequiresCenter(t *testing.T) {
	c := NewContainment(config.DefaultDomainConfig())
	z := zone("z", "", 0, 0, 400, 400)

	// card 280x200 at (200,200): center (340,300) is inside
	assert.Equal(t, vo.ZoneID("z"), c.PickZoneIDForNotePosition([]*entities.Zone{z}, vo.Point{X: 200, Y: 200}))

	// center (400,300) sits on the right edge, still inside
	assert.Equal(t, vo.ZoneID("z"), c.PickZoneIDForNotePosition([]*entities.Zone{z}, vo.Point{X: 260, Y: 200}))

	// overlapping but center outside
	assert.True(t, c.PickZoneIDForNotePosition([]*entities.Zone{z}, vo.Point{X: 261, Y: 200}).IsZero())
}

func TestPickZoneIDForNotePosition_OverlapBreaksDepthTie(t *testing.T) {
	c := NewContainment(config.DefaultDomainConfig())
	// Two sibling roots; the note center is in both, the second covers more of the card
	a := zone("a", "", 0, 0, 300, 300)
	b := zone("b", "", 100, 0, 1000, 1000)
	pos := vo.Point{X: 100, Y: 50} // card spans 100..380 x 50..250, center (240,150)

	id := c.PickZoneIDForNotePosition([]*entities.Zone{a, b}, pos)

	assert.Equal(t, vo.ZoneID("b"), id)
}

func TestPickZoneIDForNotePosition_NoZones(t *testing.T) {
	c := NewContainment(nil)
	assert.True(t, c.PickZoneIDForNotePosition(nil, vo.Point{}).IsZero())
}

func TestPickHoverZoneID(t *testing.T) {
	c := NewContainment(config.DefaultDomainConfig())
	parent := zone("parent", "", 0, 0, 2000, 2000)
	child := zone("child", "parent", 500, 500, 600, 600)
	zones := []*entities.Zone{parent, child}

	assert.Equal(t, vo.ZoneID("child"), c.PickHoverZoneID(zones, vo.Point{X: 600, Y: 600}))
	assert.Equal(t, vo.ZoneID("parent"), c.PickHoverZoneID(zones, vo.Point{X: 10, Y: 10}))
	assert.True(t, c.PickHoverZoneID(zones, vo.Point{X: 5000, Y: 10}).IsZero())
}

func TestDepthIndex(t *testing.T) {
	zones := []*entities.Zone{
		zone("root", "", 0, 0, 10, 10),
		zone("mid", "root", 0, 0, 10, 10),
		zone("leaf", "mid", 0, 0, 10, 10),
		zone("dangling", "deleted", 0, 0, 10, 10),
		zone("loop-a", "loop-b", 0, 0, 10, 10),
		zone("loop-b", "loop-a", 0, 0, 10, 10),
	}
	d := NewDepthIndex(zones)

	assert.Equal(t, 0, d.Depth("root"))
	assert.Equal(t, 1, d.Depth("mid"))
	assert.Equal(t, 2, d.Depth("leaf"))
	assert.Equal(t, 0, d.Depth("dangling"))
	// a cycle terminates
	assert.LessOrEqual(t, d.Depth("loop-a"), len(zones))
}

func TestRectIntersection(t *testing.T) {
	center := vo.Point{X: 0, Y: 0}
	size := vo.Size{Width: 200, Height: 100}

	tests := []struct {
		name   string
		target vo.Point
		want   vo.Point
	}{
		{name: "same point", target: vo.Point{X: 0, Y: 0}, want: vo.Point{X: 0, Y: 0}},
		{name: "right", target: vo.Point{X: 500, Y: 0}, want: vo.Point{X: 100, Y: 0}},
		{name: "left", target: vo.Point{X: -500, Y: 0}, want: vo.Point{X: -100, Y: 0}},
		{name: "straight down", target: vo.Point{X: 0, Y: 300}, want: vo.Point{X: 0, Y: 50}},
		{name: "straight up", target: vo.Point{X: 0, Y: -300}, want: vo.Point{X: 0, Y: -50}},
		{name: "shallow right", target: vo.Point{X: 400, Y: 100}, want: vo.Point{X: 100, Y: 25}},
		{name: "steep down left", target: vo.Point{X: -100, Y: 200}, want: vo.Point{X: -25, Y: 50}},
		{name: "exact corner", target: vo.Point{X: 200, Y: 100}, want: vo.Point{X: 100, Y: 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RectIntersection(center, size, tt.target)
			assert.InDelta(t, tt.want.X, got.X, 1e-9)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
		})
	}
}

func TestConnectionSegments_SkipsDangling(t *testing.T) {
	c := NewContainment(config.DefaultDomainConfig())
	notes := []*entities.Note{
		{ID: "a", Position: vo.Point{X: 0, Y: 0}},
		{ID: "b", Position: vo.Point{X: 1000, Y: 0}},
	}
	conns := []*entities.Connection{
		{ID: "c1", FromID: "a", ToID: "b"},
		{ID: "c2", FromID: "a", ToID: "gone"},
	}

	segments := c.ConnectionSegments(notes, conns)

	require.Len(t, segments, 1)
	assert.Equal(t, vo.ConnectionID("c1"), segments[0].ConnectionID)
	assert.Equal(t, vo.Point{X: 280, Y: 100}, segments[0].Start)
	assert.Equal(t, vo.Point{X: 1000, Y: 100}, segments[0].End)
}

func TestNoteAtPoint(t *testing.T) {
	c := NewContainment(config.DefaultDomainConfig())
	notes := []*entities.Note{
		{ID: "below", Position: vo.Point{X: 0, Y: 0}},
		{ID: "above", Position: vo.Point{X: 100, Y: 100}},
	}

	n, ok := c.NoteAtPoint(notes, vo.Point{X: 150, Y: 150}, "")
	require.True(t, ok)
	assert.Equal(t, vo.NoteID("above"), n.ID)

	n, ok = c.NoteAtPoint(notes, vo.Point{X: 150, Y: 150}, "above")
	require.True(t, ok)
	assert.Equal(t, vo.NoteID("below"), n.ID)

	_, ok = c.NoteAtPoint(notes, vo.Point{X: -10, Y: -10}, "")
	assert.False(t, ok)
}
