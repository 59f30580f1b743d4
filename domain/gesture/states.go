package gesture

import (
	"fmt"
	"math"

	"nodal/domain/core/valueobjects"
	"nodal/domain/services"
	pkgerrors "nodal/pkg/errors"
)

// Proposal is the document change a gesture frame would make. Nothing is
// applied until Commit.
type Proposal struct {
	Mode   Mode                `json:"mode"`
	ZoneID valueobjects.ZoneID `json:"zoneId,omitempty"`

	// Delta is the cumulative world-space translation of a zone move
	Delta valueobjects.Point `json:"delta"`

	ZoneBounds    map[valueobjects.ZoneID]valueobjects.Rect  `json:"zoneBounds,omitempty"`
	NotePositions map[valueobjects.NoteID]valueobjects.Point `json:"notePositions,omitempty"`

	Viewport   *valueobjects.Viewport            `json:"viewport,omitempty"`
	Background *valueobjects.BackgroundTransform `json:"background,omitempty"`
}

// SkipState ignores the whole gesture
type SkipState struct{}

func (SkipState) Mode() Mode { return ModeSkip }

func (SkipState) Update(valueobjects.Point) (Proposal, error) {
	return Proposal{Mode: ModeSkip}, nil
}

// PanState translates the viewport by the raw screen movement
type PanState struct {
	Start valueobjects.Viewport
}

func (PanState) Mode() Mode { return ModePan }

func (s PanState) Update(movement valueobjects.Point) (Proposal, error) {
	if err := checkMovement(movement); err != nil {
		return Proposal{}, err
	}
	v := s.Start.Translate(movement)
	return Proposal{Mode: ModePan, Viewport: &v}, nil
}

// BackgroundMoveState translates the background by the raw screen movement
type BackgroundMoveState struct {
	Start valueobjects.BackgroundTransform
}

func (BackgroundMoveState) Mode() Mode { return ModeBackgroundMove }

func (s BackgroundMoveState) Update(movement valueobjects.Point) (Proposal, error) {
	if err := checkMovement(movement); err != nil {
		return Proposal{}, err
	}
	t := s.Start
	t.X += movement.X
	t.Y += movement.Y
	return Proposal{Mode: ModeBackgroundMove, Background: &t}, nil
}

// BackgroundResizeState scales the background around the corner opposite
// the dragged handle.
type BackgroundResizeState struct {
	Handle     string
	BaseWidth  float64
	BaseHeight float64
	Start      valueobjects.BackgroundTransform
	Zoom       float64
	MinScale   float64
	MaxScale   float64
}

func (BackgroundResizeState) Mode() Mode { return ModeBackgroundResize }

func (s BackgroundResizeState) Update(movement valueobjects.Point) (Proposal, error) {
	if err := checkMovement(movement); err != nil {
		return Proposal{}, err
	}

	startW := s.BaseWidth * s.Start.Scale
	startH := s.BaseHeight * s.Start.Scale
	anchor, flipX, flipY := s.anchor(startW, startH)

	dx := movement.X / s.Zoom
	dy := movement.Y / s.Zoom
	if flipX {
		dx = -dx
	}
	if flipY {
		dy = -dy
	}

	factor := math.Max((startW+dx)/startW, (startH+dy)/startH)
	scale := valueobjects.Clamp(s.Start.Scale*factor, s.MinScale, s.MaxScale)
	w := s.BaseWidth * scale
	h := s.BaseHeight * scale

	t := valueobjects.BackgroundTransform{X: anchor.X, Y: anchor.Y, Scale: scale}
	if flipX {
		t.X = anchor.X - w
	}
	if flipY {
		t.Y = anchor.Y - h
	}
	return Proposal{Mode: ModeBackgroundResize, Background: &t}, nil
}

// anchor returns the fixed corner and whether the dragged corner sits to
// its left (flipX) or above it (flipY). Unknown handles behave like "br".
func (s BackgroundResizeState) anchor(w, h float64) (valueobjects.Point, bool, bool) {
	x, y := s.Start.X, s.Start.Y
	switch s.Handle {
	case "tl":
		return valueobjects.Point{X: x + w, Y: y + h}, true, true
	case "tr":
		return valueobjects.Point{X: x, Y: y + h}, false, true
	case "bl":
		return valueobjects.Point{X: x + w, Y: y}, true, false
	default:
		return valueobjects.Point{X: x, Y: y}, false, false
	}
}

// ZoneResizeState moves the dragged edges of a zone. The notes of the zone
// are clamped into the new interior.
type ZoneResizeState struct {
	ZoneID        valueobjects.ZoneID
	Edges         Edges
	InitialBounds valueobjects.Rect
	Zoom          float64
	MinWidth      float64
	MinHeight     float64
	NoteStarts    map[valueobjects.NoteID]valueobjects.Point

	autofit *services.AutoFit
}

func (ZoneResizeState) Mode() Mode { return ModeZoneResize }

func (s ZoneResizeState) Update(movement valueobjects.Point) (Proposal, error) {
	if err := checkMovement(movement); err != nil {
		return Proposal{}, err
	}
	bounds := s.Bounds(movement)

	notes := make(map[valueobjects.NoteID]valueobjects.Point, len(s.NoteStarts))
	for id, p := range s.NoteStarts {
		if s.autofit != nil {
			p = s.autofit.ClampNote(p, bounds)
		}
		notes[id] = p
	}

	return Proposal{
		Mode:          ModeZoneResize,
		ZoneID:        s.ZoneID,
		ZoneBounds:    map[valueobjects.ZoneID]valueobjects.Rect{s.ZoneID: bounds},
		NotePositions: notes,
	}, nil
}

// Bounds computes the resized rectangle. When a minimum is hit the edge
// opposite the dragged one stays where it was.
func (s ZoneResizeState) Bounds(movement valueobjects.Point) valueobjects.Rect {
	dx := movement.X / s.Zoom
	dy := movement.Y / s.Zoom
	r := s.InitialBounds
	e := s.Edges

	x, y, w, h := r.X, r.Y, r.Width, r.Height
	if e.Left {
		x += dx
		w -= dx
	} else if e.Right {
		w += dx
	}
	if e.Top {
		y += dy
		h -= dy
	} else if e.Bottom {
		h += dy
	}

	if w < s.MinWidth {
		w = s.MinWidth
		if e.Left {
			x = r.X + r.Width - s.MinWidth
		}
	}
	if h < s.MinHeight {
		h = s.MinHeight
		if e.Top {
			y = r.Y + r.Height - s.MinHeight
		}
	}
	return valueobjects.Rect{X: x, Y: y, Width: w, Height: h}
}

// ZoneMoveState translates a zone subtree and its notes rigidly
type ZoneMoveState struct {
	ZoneID     valueobjects.ZoneID
	Zoom       float64
	ZoneStarts map[valueobjects.ZoneID]valueobjects.Rect
	NoteStarts map[valueobjects.NoteID]valueobjects.Point
}

func (ZoneMoveState) Mode() Mode { return ModeZoneMove }

func (s ZoneMoveState) Update(movement valueobjects.Point) (Proposal, error) {
	if err := checkMovement(movement); err != nil {
		return Proposal{}, err
	}
	delta := valueobjects.Point{X: movement.X / s.Zoom, Y: movement.Y / s.Zoom}

	zones := make(map[valueobjects.ZoneID]valueobjects.Rect, len(s.ZoneStarts))
	for id, r := range s.ZoneStarts {
		zones[id] = r.Translate(delta)
	}
	notes := make(map[valueobjects.NoteID]valueobjects.Point, len(s.NoteStarts))
	for id, p := range s.NoteStarts {
		notes[id] = p.Add(delta)
	}

	return Proposal{
		Mode:          ModeZoneMove,
		ZoneID:        s.ZoneID,
		Delta:         delta,
		ZoneBounds:    zones,
		NotePositions: notes,
	}, nil
}

func checkMovement(m valueobjects.Point) error {
	if !m.IsFinite() {
		return fmt.Errorf("%w: gesture movement", pkgerrors.ErrInvalidGeometry)
	}
	return nil
}
