package gesture

import (
	"fmt"
	"time"

	"nodal/domain/config"
	"nodal/domain/core/valueobjects"
	pkgerrors "nodal/pkg/errors"
)

// DoubleTapDetector turns a stream of click timestamps into double taps.
// Not safe for concurrent use.
type DoubleTapDetector struct {
	window time.Duration
	last   time.Time
}

// NewDoubleTapDetector creates a detector with the given window
func NewDoubleTapDetector(window time.Duration) *DoubleTapDetector {
	return &DoubleTapDetector{window: window}
}

// Tap records a click at t and reports whether it completes a double tap.
// A completed double tap resets the detector so a third click starts over.
func (d *DoubleTapDetector) Tap(t time.Time) bool {
	if !d.last.IsZero() {
		dt := t.Sub(d.last)
		if dt > 0 && dt < d.window {
			d.last = time.Time{}
			return true
		}
	}
	d.last = t
	return false
}

// Reset forgets the pending first click
func (d *DoubleTapDetector) Reset() {
	d.last = time.Time{}
}

// WheelEvent is one wheel tick in screen space
type WheelEvent struct {
	Delta      valueobjects.Point `json:"delta"`
	Pointer    valueobjects.Point `json:"pointer"`
	Ctrl       bool               `json:"ctrl"`
	OnBackdrop bool               `json:"onBackdrop"`
}

// Wheel zooms toward the pointer when ctrl is held and pans otherwise.
// Events over the modal backdrop produce a skip proposal.
func Wheel(v valueobjects.Viewport, ev WheelEvent, cfg *config.DomainConfig) (Proposal, error) {
	if ev.OnBackdrop {
		return Proposal{Mode: ModeSkip}, nil
	}
	if !v.IsValid() || !ev.Delta.IsFinite() || !ev.Pointer.IsFinite() {
		return Proposal{}, fmt.Errorf("%w: wheel input", pkgerrors.ErrInvalidGeometry)
	}

	if !ev.Ctrl {
		next := v.Translate(ev.Delta.Scale(-1))
		return Proposal{Mode: ModePan, Viewport: &next}, nil
	}

	zoom := valueobjects.Clamp(v.Zoom-ev.Delta.Y*cfg.WheelZoomStep, cfg.MinZoom, cfg.MaxZoom)
	next := v.ZoomAround(ev.Pointer, zoom)
	return Proposal{Mode: ModeZoom, Viewport: &next}, nil
}

// PinchEvent carries the absolute pinch scale and its centre on screen
type PinchEvent struct {
	Scale              float64            `json:"scale"`
	Origin             valueobjects.Point `json:"origin"`
	OnBackdrop         bool               `json:"onBackdrop"`
	BackgroundSelected bool               `json:"backgroundSelected"`
}

// Pinch sets the zoom around the pinch centre, or the background scale when
// the background is selected.
func Pinch(v valueobjects.Viewport, bg valueobjects.BackgroundTransform, ev PinchEvent, cfg *config.DomainConfig) (Proposal, error) {
	if ev.OnBackdrop {
		return Proposal{Mode: ModeSkip}, nil
	}
	if !valueobjects.IsFinite(ev.Scale) || ev.Scale <= 0 || !ev.Origin.IsFinite() || !v.IsValid() {
		return Proposal{}, fmt.Errorf("%w: pinch input", pkgerrors.ErrInvalidGeometry)
	}

	if ev.BackgroundSelected {
		t := bg
		t.Scale = valueobjects.Clamp(ev.Scale, cfg.MinBackgroundScale, cfg.MaxBackgroundScale)
		return Proposal{Mode: ModeZoom, Background: &t}, nil
	}

	zoom := valueobjects.Clamp(ev.Scale, cfg.MinZoom, cfg.MaxZoom)
	next := v.ZoomAround(ev.Origin, zoom)
	return Proposal{Mode: ModeZoom, Viewport: &next}, nil
}
