package gesture

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nodal/domain/config"
	"nodal/domain/core/aggregates"
	"nodal/domain/core/entities"
	vo "nodal/domain/core/valueobjects"
	pkgerrors "nodal/pkg/errors"
)

func testDocument() *aggregates.Document {
	doc := aggregates.NewDocument()
	doc.Zones = append(doc.Zones,
		&entities.Zone{ID: "parent", Bounds: vo.Rect{X: 0, Y: 0, Width: 1000, Height: 1000}, ManualBounds: vo.Rect{X: 0, Y: 0, Width: 1000, Height: 1000}},
		&entities.Zone{ID: "child", ParentZoneID: "parent", Bounds: vo.Rect{X: 100, Y: 100, Width: 400, Height: 300}, ManualBounds: vo.Rect{X: 100, Y: 100, Width: 400, Height: 300}},
		&entities.Zone{ID: "other", Bounds: vo.Rect{X: 3000, Y: 0, Width: 400, Height: 300}, ManualBounds: vo.Rect{X: 3000, Y: 0, Width: 400, Height: 300}},
	)
	doc.Notes = append(doc.Notes,
		&entities.Note{ID: "in-parent", Position: vo.Point{X: 600, Y: 600}, ZoneID: "parent"},
		&entities.Note{ID: "in-child", Position: vo.Point{X: 120, Y: 120}, ZoneID: "child"},
		&entities.Note{ID: "in-other", Position: vo.Point{X: 3050, Y: 50}, ZoneID: "other"},
		&entities.Note{ID: "loose", Position: vo.Point{X: 5000, Y: 5000}},
	)
	return doc
}

func withBackground(doc *aggregates.Document) *aggregates.Document {
	doc.BackgroundImage = &entities.BackgroundImage{DataURL: "data:image/png;base64,AAAA", OriginalWidth: 1000, OriginalHeight: 500}
	return doc
}

func TestClassify_Priority(t *testing.T) {
	cfg := config.DefaultDomainConfig()

	tests := []struct {
		name   string
		target Target
		doc    *aggregates.Document
		want   Mode
	}{
		{"note is skipped", Target{Kind: TargetNote, BackgroundSelected: true}, withBackground(testDocument()), ModeSkip},
		{"backdrop is skipped", Target{Kind: TargetBackdrop}, testDocument(), ModeSkip},
		{"background handle when selected", Target{Kind: TargetBackgroundHandle, Handle: "br", BackgroundSelected: true}, withBackground(testDocument()), ModeBackgroundResize},
		{"background handle without image pans", Target{Kind: TargetBackgroundHandle, Handle: "br", BackgroundSelected: true}, testDocument(), ModePan},
		{"zone handle", Target{Kind: TargetZoneHandle, ZoneID: "child", Handle: "tl"}, testDocument(), ModeZoneResize},
		{"zone handle wins over selected background", Target{Kind: TargetZoneHandle, ZoneID: "child", Handle: "tl", BackgroundSelected: true}, withBackground(testDocument()), ModeZoneResize},
		{"zone body", Target{Kind: TargetZone, ZoneID: "parent"}, testDocument(), ModeZoneMove},
		{"unknown zone pans", Target{Kind: TargetZone, ZoneID: "ghost"}, testDocument(), ModePan},
		{"selected background body", Target{Kind: TargetBackground, BackgroundSelected: true}, withBackground(testDocument()), ModeBackgroundMove},
		{"unselected background pans", Target{Kind: TargetBackground}, withBackground(testDocument()), ModePan},
		{"empty canvas pans", Target{Kind: TargetCanvas}, testDocument(), ModePan},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := Classify(tt.target, tt.doc, cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, state.Mode())
		})
	}
}

func TestClassify_RejectsInvalidViewport(t *testing.T) {
	doc := testDocument()
	doc.Viewport.Zoom = 0

	_, err := Classify(Target{Kind: TargetCanvas}, doc, nil)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidGeometry)
}

func TestPan_UsesRawScreenOffset(t *testing.T) {
	doc := testDocument()
	doc.Viewport = vo.Viewport{X: 10, Y: 20, Zoom: 2}

	s, err := Begin(Target{Kind: TargetCanvas}, doc, nil)
	require.NoError(t, err)

	p, err := s.Move(vo.Point{X: 5, Y: -5})
	require.NoError(t, err)
	require.NotNil(t, p.Viewport)
	assert.Equal(t, vo.Viewport{X: 15, Y: 15, Zoom: 2}, *p.Viewport)
}

func TestZoneMove_CapturesSubtree(t *testing.T) {
	// Arrange
	doc := testDocument()
	doc.Viewport.Zoom = 2
	s, err := Begin(Target{Kind: TargetZone, ZoneID: "parent"}, doc, nil)
	require.NoError(t, err)

	// Act
	p, err := s.Move(vo.Point{X: 200, Y: 100})
	require.NoError(t, err)

	// Assert
	assert.Equal(t, vo.Point{X: 100, Y: 50}, p.Delta)
	assert.Len(t, p.ZoneBounds, 2)
	assert.Equal(t, vo.Rect{X: 200, Y: 150, Width: 400, Height: 300}, p.ZoneBounds["child"])
	assert.Equal(t, vo.Point{X: 700, Y: 650}, p.NotePositions["in-parent"])
	assert.Equal(t, vo.Point{X: 220, Y: 170}, p.NotePositions["in-child"])
	assert.NotContains(t, p.NotePositions, vo.NoteID("in-other"))
	assert.NotContains(t, p.NotePositions, vo.NoteID("loose"))
}

func TestZoneResize_MinimumKeepsOppositeEdge(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	doc := testDocument()
	doc.Viewport.Zoom = 2

	s, err := Begin(Target{Kind: TargetZoneHandle, ZoneID: "child", Handle: "tl"}, doc, cfg)
	require.NoError(t, err)

	// 400x200 screen px at zoom 2 collapses the zone past its minimum
	p, err := s.Move(vo.Point{X: 400, Y: 200})
	require.NoError(t, err)

	b := p.ZoneBounds["child"]
	assert.Equal(t, vo.Rect{X: 190, Y: 170, Width: 310, Height: 230}, b)
	assert.Equal(t, 500.0, b.Right())
	assert.Equal(t, 400.0, b.Bottom())
}

func TestZoneResize_Edges(t *testing.T) {
	state := ZoneResizeState{
		InitialBounds: vo.Rect{X: 100, Y: 100, Width: 400, Height: 300},
		Zoom:          1,
		MinWidth:      310,
		MinHeight:     230,
	}

	tests := []struct {
		handle   string
		movement vo.Point
		want     vo.Rect
	}{
		{"br", vo.Point{X: 50, Y: 20}, vo.Rect{X: 100, Y: 100, Width: 450, Height: 320}},
		{"br", vo.Point{X: -1000, Y: -1000}, vo.Rect{X: 100, Y: 100, Width: 310, Height: 230}},
		{"tr", vo.Point{X: 10, Y: 10}, vo.Rect{X: 100, Y: 110, Width: 410, Height: 290}},
		{"bl", vo.Point{X: -30, Y: 0}, vo.Rect{X: 70, Y: 100, Width: 430, Height: 300}},
		{"tl", vo.Point{X: -10, Y: -10}, vo.Rect{X: 90, Y: 90, Width: 410, Height: 310}},
	}

	for _, tt := range tests {
		t.Run(tt.handle, func(t *testing.T) {
			s := state
			s.Edges = EdgesForHandle(tt.handle)
			assert.Equal(t, tt.want, s.Bounds(tt.movement))
		})
	}
}

func TestZoneResize_ClampsOwnNotes(t *testing.T) {
	doc := testDocument()
	s, err := Begin(Target{Kind: TargetZoneHandle, ZoneID: "parent", Handle: "br"}, doc, nil)
	require.NoError(t, err)

	p, err := s.Move(vo.Point{X: -2000, Y: -2000})
	require.NoError(t, err)

	assert.Equal(t, vo.Point{X: 15, Y: 15}, p.NotePositions["in-parent"])
	assert.NotContains(t, p.NotePositions, vo.NoteID("in-child"))
}

func TestBackgroundResize(t *testing.T) {
	doc := withBackground(testDocument())
	target := func(handle string) Target {
		return Target{Kind: TargetBackgroundHandle, Handle: handle, BackgroundSelected: true}
	}

	tests := []struct {
		name     string
		handle   string
		movement vo.Point
		want     vo.BackgroundTransform
	}{
		{"bottom right grows from origin", "br", vo.Point{X: 500, Y: 100}, vo.BackgroundTransform{X: 0, Y: 0, Scale: 1.5}},
		{"top left keeps bottom right corner", "tl", vo.Point{X: -500, Y: 0}, vo.BackgroundTransform{X: -500, Y: -250, Scale: 1.5}},
		{"scale is clamped", "br", vo.Point{X: -5000, Y: -5000}, vo.BackgroundTransform{X: 0, Y: 0, Scale: 0.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Begin(target(tt.handle), doc, nil)
			require.NoError(t, err)
			p, err := s.Move(tt.movement)
			require.NoError(t, err)
			require.NotNil(t, p.Background)
			assert.InDelta(t, tt.want.X, p.Background.X, 1e-9)
			assert.InDelta(t, tt.want.Y, p.Background.Y, 1e-9)
			assert.InDelta(t, tt.want.Scale, p.Background.Scale, 1e-9)
		})
	}
}

func TestBackgroundMove(t *testing.T) {
	doc := withBackground(testDocument())
	doc.BackgroundTransform = vo.BackgroundTransform{X: 10, Y: 10, Scale: 2}

	s, err := Begin(Target{Kind: TargetCanvas, BackgroundSelected: true}, doc, nil)
	require.NoError(t, err)
	p, err := s.End(vo.Point{X: 30, Y: -10})
	require.NoError(t, err)

	assert.Equal(t, vo.BackgroundTransform{X: 40, Y: 0, Scale: 2}, *p.Background)
}

func TestSession_RejectsNonFiniteAndLateFrames(t *testing.T) {
	s, err := Begin(Target{Kind: TargetCanvas}, testDocument(), nil)
	require.NoError(t, err)

	_, err = s.Move(vo.Point{X: math.Inf(1)})
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidGeometry)

	_, err = s.End(vo.Point{X: 1})
	require.NoError(t, err)
	_, err = s.Move(vo.Point{X: 2})
	assert.ErrorIs(t, err, ErrSessionEnded)
}

func TestCommit_ZoneMoveGoesThroughCanvas(t *testing.T) {
	// Arrange
	canvas, err := aggregates.NewCanvas("ws", nil, config.DefaultDomainConfig())
	require.NoError(t, err)
	require.NoError(t, canvas.AddZone(&entities.Zone{ID: "z", Bounds: vo.Rect{Width: 400, Height: 300}}))
	_, err = canvas.CreateNoteAt("n", vo.Point{X: 20, Y: 20})
	require.NoError(t, err)

	s, err := Begin(Target{Kind: TargetZone, ZoneID: "z"}, canvas.Document(), canvas.Config())
	require.NoError(t, err)
	_, err = s.Move(vo.Point{X: 40, Y: 10})
	require.NoError(t, err)
	final, err := s.End(vo.Point{X: 100, Y: 50})
	require.NoError(t, err)

	// Act
	require.NoError(t, Commit(canvas, final))

	// Assert
	n, _ := canvas.Document().Note("n")
	z, _ := canvas.Document().Zone("z")
	assert.Equal(t, vo.Point{X: 120, Y: 70}, n.Position)
	assert.Equal(t, 100.0, z.Bounds.X)
	assert.Equal(t, 50.0, z.Bounds.Y)
}

func TestCommit_SkipLeavesDocumentAlone(t *testing.T) {
	canvas, err := aggregates.NewCanvas("ws", nil, nil)
	require.NoError(t, err)

	require.NoError(t, Commit(canvas, Proposal{Mode: ModeSkip}))
	assert.Empty(t, canvas.GetUncommittedEvents())
}

func TestCommit_PanClampsThroughCanvas(t *testing.T) {
	canvas, err := aggregates.NewCanvas("ws", nil, nil)
	require.NoError(t, err)

	v := vo.Viewport{X: 5, Y: 6, Zoom: 50}
	require.NoError(t, Commit(canvas, Proposal{Mode: ModeZoom, Viewport: &v}))

	assert.Equal(t, vo.Viewport{X: 5, Y: 6, Zoom: 5}, canvas.Document().Viewport)
}

func TestDoubleTapDetector(t *testing.T) {
	d := NewDoubleTapDetector(300 * time.Millisecond)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.False(t, d.Tap(t0))
	assert.True(t, d.Tap(t0.Add(200*time.Millisecond)))
	// third click after a double tap starts a new sequence
	assert.False(t, d.Tap(t0.Add(250*time.Millisecond)))
	assert.False(t, d.Tap(t0.Add(600*time.Millisecond)))
	// same timestamp is not a double tap
	assert.False(t, d.Tap(t0.Add(600*time.Millisecond)))

	d.Reset()
	assert.False(t, d.Tap(t0.Add(700*time.Millisecond)))
}

func TestWheel(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	v := vo.Viewport{X: 0, Y: 0, Zoom: 1}

	t.Run("plain wheel pans", func(t *testing.T) {
		p, err := Wheel(v, WheelEvent{Delta: vo.Point{X: 10, Y: 20}}, cfg)
		require.NoError(t, err)
		assert.Equal(t, vo.Viewport{X: -10, Y: -20, Zoom: 1}, *p.Viewport)
	})

	t.Run("ctrl wheel zooms toward pointer", func(t *testing.T) {
		p, err := Wheel(v, WheelEvent{Delta: vo.Point{Y: -50}, Pointer: vo.Point{X: 100, Y: 100}, Ctrl: true}, cfg)
		require.NoError(t, err)
		assert.InDelta(t, 1.5, p.Viewport.Zoom, 1e-9)
		assert.InDelta(t, -50, p.Viewport.X, 1e-9)
		assert.InDelta(t, -50, p.Viewport.Y, 1e-9)

		world := v.ScreenToWorld(vo.Point{X: 100, Y: 100})
		after := p.Viewport.WorldToScreen(world)
		assert.InDelta(t, 100, after.X, 1e-9)
		assert.InDelta(t, 100, after.Y, 1e-9)
	})

	t.Run("zoom is clamped", func(t *testing.T) {
		p, err := Wheel(v, WheelEvent{Delta: vo.Point{Y: 1000}, Ctrl: true}, cfg)
		require.NoError(t, err)
		assert.Equal(t, 0.1, p.Viewport.Zoom)
	})

	t.Run("backdrop is ignored", func(t *testing.T) {
		p, err := Wheel(v, WheelEvent{Delta: vo.Point{Y: 10}, OnBackdrop: true}, cfg)
		require.NoError(t, err)
		assert.Equal(t, ModeSkip, p.Mode)
		assert.Nil(t, p.Viewport)
	})
}

func TestPinch(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	v := vo.Viewport{Zoom: 1}
	bg := vo.BackgroundTransform{X: 3, Y: 4, Scale: 1}

	p, err := Pinch(v, bg, PinchEvent{Scale: 2, Origin: vo.Point{X: 50, Y: 50}}, cfg)
	require.NoError(t, err)
	assert.Equal(t, vo.Viewport{X: -50, Y: -50, Zoom: 2}, *p.Viewport)

	p, err = Pinch(v, bg, PinchEvent{Scale: 10, BackgroundSelected: true}, cfg)
	require.NoError(t, err)
	assert.Nil(t, p.Viewport)
	assert.Equal(t, vo.BackgroundTransform{X: 3, Y: 4, Scale: 5}, *p.Background)

	_, err = Pinch(v, bg, PinchEvent{Scale: 0}, cfg)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidGeometry)
}
