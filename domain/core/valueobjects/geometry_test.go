package valueobjects

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRect_ContainsIncludesEdges(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 100, Height: 50}

	assert.True(t, r.Contains(Point{X: 0, Y: 0}))
	assert.True(t, r.Contains(Point{X: 100, Y: 50}))
	assert.True(t, r.Contains(Point{X: 50, Y: 25}))
	assert.False(t, r.Contains(Point{X: 100.01, Y: 25}))
	assert.False(t, r.Contains(Point{X: 50, Y: -0.01}))
}

func TestRect_IntersectionArea(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 100, Height: 100}

	assert.Equal(t, 2500.0, a.IntersectionArea(Rect{X: 50, Y: 50, Width: 100, Height: 100}))
	assert.Equal(t, 0.0, a.IntersectionArea(Rect{X: 100, Y: 0, Width: 10, Height: 10}))
	assert.Equal(t, 0.0, a.IntersectionArea(Rect{X: 300, Y: 300, Width: 10, Height: 10}))
}

func TestRect_Union(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: -5, Y: 20, Width: 10, Height: 10}

	u := a.Union(b)

	assert.Equal(t, Rect{X: -5, Y: 0, Width: 15, Height: 30}, u)
}

func TestBoundingBox(t *testing.T) {
	_, ok := BoundingBox(nil)
	assert.False(t, ok)

	box, ok := BoundingBox([]Rect{
		{X: 10, Y: 10, Width: 5, Height: 5},
		{X: 0, Y: 30, Width: 1, Height: 1},
	})
	require.True(t, ok)
	assert.Equal(t, Rect{X: 0, Y: 10, Width: 15, Height: 21}, box)
}

func TestNewPoint_RejectsNonFinite(t *testing.T) {
	_, err := NewPoint(math.NaN(), 0)
	require.Error(t, err)

	_, err = NewPoint(0, math.Inf(-1))
	require.Error(t, err)

	p, err := NewPoint(1, 2)
	require.NoError(t, err)
	assert.Equal(t, Point{X: 1, Y: 2}, p)
}

func TestZoneID_JSONNull(t *testing.T) {
	type holder struct {
		ZoneID ZoneID `json:"zoneId"`
	}

	data, err := json.Marshal(holder{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"zoneId":null}`, string(data))

	var h holder
	require.NoError(t, json.Unmarshal([]byte(`{"zoneId":"z-1"}`), &h))
	assert.Equal(t, ZoneID("z-1"), h.ZoneID)

	require.NoError(t, json.Unmarshal([]byte(`{"zoneId":null}`), &h))
	assert.True(t, h.ZoneID.IsZero())
}
