package valueobjects

import (
	pkgerrors "nodal/pkg/errors"
)

// Viewport maps world coordinates to screen coordinates:
// screen = world*Zoom + (X, Y).
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// DefaultViewport is the identity transform
func DefaultViewport() Viewport {
	return Viewport{Zoom: 1}
}

// NewViewport creates a viewport with validation. The zoom is not clamped here.
func NewViewport(x, y, zoom float64) (Viewport, error) {
	if !IsFinite(x) || !IsFinite(y) || !IsFinite(zoom) {
		return Viewport{}, pkgerrors.NewValidationError("invalid viewport: must be finite numbers")
	}
	if zoom <= 0 {
		return Viewport{}, pkgerrors.NewValidationError("invalid viewport: zoom must be positive")
	}
	return Viewport{X: x, Y: y, Zoom: zoom}, nil
}

// WorldToScreen converts a world point to screen space
func (v Viewport) WorldToScreen(p Point) Point {
	return Point{X: p.X*v.Zoom + v.X, Y: p.Y*v.Zoom + v.Y}
}

// ScreenToWorld converts a screen point to world space
func (v Viewport) ScreenToWorld(p Point) Point {
	return Point{X: (p.X - v.X) / v.Zoom, Y: (p.Y - v.Y) / v.Zoom}
}

// ScreenDeltaToWorld converts a pointer movement to a world displacement
func (v Viewport) ScreenDeltaToWorld(d Point) Point {
	return Point{X: d.X / v.Zoom, Y: d.Y / v.Zoom}
}

// ZoomAround changes the zoom while keeping the world point under the
// screen-space anchor fixed.
func (v Viewport) ZoomAround(anchor Point, newZoom float64) Viewport {
	return Viewport{
		X:    anchor.X - (anchor.X-v.X)/v.Zoom*newZoom,
		Y:    anchor.Y - (anchor.Y-v.Y)/v.Zoom*newZoom,
		Zoom: newZoom,
	}
}

// Translate pans the viewport by a screen-space delta
func (v Viewport) Translate(d Point) Viewport {
	return Viewport{X: v.X + d.X, Y: v.Y + d.Y, Zoom: v.Zoom}
}

// WithClampedZoom returns v with its zoom limited to [min, max]
func (v Viewport) WithClampedZoom(min, max float64) Viewport {
	v.Zoom = Clamp(v.Zoom, min, max)
	return v
}

// IsValid reports whether the viewport is finite with a positive zoom
func (v Viewport) IsValid() bool {
	return IsFinite(v.X) && IsFinite(v.Y) && IsFinite(v.Zoom) && v.Zoom > 0
}

// BackgroundTransform places the background image in world space
type BackgroundTransform struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale"`
}

// DefaultBackgroundTransform is the unscaled transform at the origin
func DefaultBackgroundTransform() BackgroundTransform {
	return BackgroundTransform{Scale: 1}
}

// Position returns the top-left corner of the image
func (t BackgroundTransform) Position() Point {
	return Point{X: t.X, Y: t.Y}
}

// IsValid reports whether the transform is finite with a positive scale
func (t BackgroundTransform) IsValid() bool {
	return IsFinite(t.X) && IsFinite(t.Y) && IsFinite(t.Scale) && t.Scale > 0
}
