package valueobjects

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewport_RoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		viewport Viewport
		point    Point
	}{
		{name: "identity", viewport: Viewport{Zoom: 1}, point: Point{X: 12, Y: -7}},
		{name: "panned", viewport: Viewport{X: 100, Y: 50, Zoom: 1}, point: Point{X: 3, Y: 4}},
		{name: "zoomed in", viewport: Viewport{X: -40, Y: 25, Zoom: 2.5}, point: Point{X: 1000, Y: -300}},
		{name: "zoomed out", viewport: Viewport{X: 7, Y: 9, Zoom: 0.1}, point: Point{X: -5, Y: 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			screen := tt.viewport.WorldToScreen(tt.point)
			back := tt.viewport.ScreenToWorld(screen)
			assert.InDelta(t, tt.point.X, back.X, 1e-9)
			assert.InDelta(t, tt.point.Y, back.Y, 1e-9)
		})
	}
}

func TestViewport_WorldToScreen(t *testing.T) {
	v := Viewport{X: 100, Y: 50, Zoom: 2}

	screen := v.WorldToScreen(Point{X: 10, Y: 20})

	assert.Equal(t, Point{X: 120, Y: 90}, screen)
}

func TestViewport_ScreenDeltaToWorld(t *testing.T) {
	v := Viewport{X: 999, Y: -999, Zoom: 2}

	d := v.ScreenDeltaToWorld(Point{X: 100, Y: -40})

	// pan does not affect deltas
	assert.Equal(t, Point{X: 50, Y: -20}, d)
}

func TestViewport_ZoomAroundKeepsAnchorFixed(t *testing.T) {
	v := Viewport{X: 30, Y: -10, Zoom: 1.5}
	anchor := Point{X: 400, Y: 300}
	worldBefore := v.ScreenToWorld(anchor)

	zoomed := v.ZoomAround(anchor, 3)

	worldAfter := zoomed.ScreenToWorld(anchor)
	assert.Equal(t, 3.0, zoomed.Zoom)
	assert.InDelta(t, worldBefore.X, worldAfter.X, 1e-9)
	assert.InDelta(t, worldBefore.Y, worldAfter.Y, 1e-9)
}

func TestNewViewport(t *testing.T) {
	tests := []struct {
		name    string
		x, y    float64
		zoom    float64
		wantErr bool
	}{
		{name: "valid", x: 1, y: 2, zoom: 1},
		{name: "zero zoom", zoom: 0, wantErr: true},
		{name: "negative zoom", zoom: -1, wantErr: true},
		{name: "NaN pan", x: math.NaN(), zoom: 1, wantErr: true},
		{name: "infinite zoom", zoom: math.Inf(1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewViewport(tt.x, tt.y, tt.zoom)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid viewport")
				return
			}
			require.NoError(t, err)
			assert.True(t, v.IsValid())
		})
	}
}

func TestViewport_WithClampedZoom(t *testing.T) {
	assert.Equal(t, 5.0, Viewport{Zoom: 12}.WithClampedZoom(0.1, 5).Zoom)
	assert.Equal(t, 0.1, Viewport{Zoom: 0.01}.WithClampedZoom(0.1, 5).Zoom)
	assert.Equal(t, 2.0, Viewport{Zoom: 2}.WithClampedZoom(0.1, 5).Zoom)
}
