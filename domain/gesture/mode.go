// Package gesture turns pointer drags, wheel and pinch input into proposed
// canvas changes. A drag is classified once when it starts; every later
// frame is pure math over the memo captured at that point, and the last
// proposal is committed through the canvas aggregate.
package gesture

import (
	"fmt"
	"strings"

	"nodal/domain/config"
	"nodal/domain/core/aggregates"
	"nodal/domain/core/valueobjects"
	"nodal/domain/services"
	pkgerrors "nodal/pkg/errors"
)

// Mode identifies what a gesture manipulates
type Mode string

const (
	ModeSkip             Mode = "SKIP"
	ModeBackgroundResize Mode = "BG_RESIZE"
	ModeZoneResize       Mode = "ZONE_RESIZE"
	ModeZoneMove         Mode = "ZONE_MOVE"
	ModeBackgroundMove   Mode = "BG_MOVE"
	ModePan              Mode = "PAN"

	// ModeZoom is produced by wheel and pinch input, never by a drag
	ModeZoom Mode = "ZOOM"
)

// TargetKind describes the element a pointer went down on
type TargetKind string

const (
	TargetCanvas           TargetKind = "canvas"
	TargetNote             TargetKind = "note"
	TargetBackdrop         TargetKind = "backdrop"
	TargetZone             TargetKind = "zone"
	TargetZoneHandle       TargetKind = "zone_handle"
	TargetBackground       TargetKind = "background"
	TargetBackgroundHandle TargetKind = "background_handle"
)

// Target is the hit-test result at gesture start
type Target struct {
	Kind   TargetKind          `json:"kind" validate:"required,oneof=canvas note backdrop zone zone_handle background background_handle"`
	ZoneID valueobjects.ZoneID `json:"zoneId,omitempty"`
	// Handle is one of tl, tr, bl, br for zone and background handles
	Handle string `json:"handle,omitempty" validate:"omitempty,oneof=tl tr bl br"`
	// BackgroundSelected reports whether the background is in edit mode
	BackgroundSelected bool `json:"backgroundSelected"`
}

// State is the immutable memo of a classified gesture. Update maps the
// cumulative screen-space movement since the gesture started to a proposal.
type State interface {
	Mode() Mode
	Update(movement valueobjects.Point) (Proposal, error)
}

// Classify picks the gesture mode for target against the document as it is
// when the gesture starts. Priority: SKIP, BG_RESIZE, ZONE_RESIZE,
// ZONE_MOVE, BG_MOVE, PAN.
func Classify(target Target, doc *aggregates.Document, cfg *config.DomainConfig) (State, error) {
	if doc == nil {
		return nil, fmt.Errorf("classify gesture: nil document")
	}
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if !doc.Viewport.IsValid() {
		return nil, fmt.Errorf("%w: viewport", pkgerrors.ErrInvalidGeometry)
	}

	if target.Kind == TargetNote || target.Kind == TargetBackdrop {
		return SkipState{}, nil
	}

	backgroundEditable := target.BackgroundSelected && doc.BackgroundImage != nil

	if backgroundEditable && target.Kind == TargetBackgroundHandle {
		return newBackgroundResize(target.Handle, doc, cfg), nil
	}

	if target.Kind == TargetZoneHandle {
		if zone, ok := doc.Zone(target.ZoneID); ok {
			return newZoneResize(zone.ID, target.Handle, zone.Bounds, doc, cfg), nil
		}
	}

	if target.Kind == TargetZone || target.Kind == TargetZoneHandle {
		if zone, ok := doc.Zone(target.ZoneID); ok {
			return newZoneMove(zone.ID, doc), nil
		}
	}

	if backgroundEditable {
		return BackgroundMoveState{Start: doc.BackgroundTransform}, nil
	}

	return PanState{Start: doc.Viewport}, nil
}

// Edges reports which sides of a rectangle a corner handle drags
type Edges struct {
	Left   bool
	Right  bool
	Top    bool
	Bottom bool
}

// EdgesForHandle derives the moving edges from a handle name such as "tl"
func EdgesForHandle(handle string) Edges {
	return Edges{
		Left:   strings.Contains(handle, "l"),
		Right:  strings.Contains(handle, "r"),
		Top:    strings.Contains(handle, "t"),
		Bottom: strings.Contains(handle, "b"),
	}
}

func newZoneResize(id valueobjects.ZoneID, handle string, bounds valueobjects.Rect, doc *aggregates.Document, cfg *config.DomainConfig) ZoneResizeState {
	notes := make(map[valueobjects.NoteID]valueobjects.Point)
	for _, n := range doc.Notes {
		if n.ZoneID == id {
			notes[n.ID] = n.Position
		}
	}
	return ZoneResizeState{
		ZoneID:        id,
		Edges:         EdgesForHandle(handle),
		InitialBounds: bounds,
		Zoom:          doc.Viewport.Zoom,
		MinWidth:      cfg.MinZoneWidth(),
		MinHeight:     cfg.MinZoneHeight(),
		NoteStarts:    notes,
		autofit:       services.NewAutoFit(cfg),
	}
}

func newZoneMove(id valueobjects.ZoneID, doc *aggregates.Document) ZoneMoveState {
	ids := doc.Descendants(id)
	moving := make(map[valueobjects.ZoneID]bool, len(ids))
	for _, zid := range ids {
		moving[zid] = true
	}

	zones := make(map[valueobjects.ZoneID]valueobjects.Rect, len(ids))
	for _, z := range doc.Zones {
		if moving[z.ID] {
			zones[z.ID] = z.Bounds
		}
	}
	notes := make(map[valueobjects.NoteID]valueobjects.Point)
	for _, n := range doc.Notes {
		if moving[n.ZoneID] {
			notes[n.ID] = n.Position
		}
	}

	return ZoneMoveState{
		ZoneID:     id,
		Zoom:       doc.Viewport.Zoom,
		ZoneStarts: zones,
		NoteStarts: notes,
	}
}

func newBackgroundResize(handle string, doc *aggregates.Document, cfg *config.DomainConfig) BackgroundResizeState {
	baseW, baseH := doc.BackgroundImage.BaseSize(cfg.DefaultBackgroundWidth, cfg.DefaultBackgroundHeight)
	start := doc.BackgroundTransform
	if start.Scale <= 0 {
		start.Scale = 1
	}
	return BackgroundResizeState{
		Handle:     handle,
		BaseWidth:  baseW,
		BaseHeight: baseH,
		Start:      start,
		Zoom:       doc.Viewport.Zoom,
		MinScale:   cfg.MinBackgroundScale,
		MaxScale:   cfg.MaxBackgroundScale,
	}
}
