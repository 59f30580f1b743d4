package services

import (
	"math"
	"sort"

	"nodal/domain/config"
	"nodal/domain/core/entities"
	"nodal/domain/core/valueobjects"
)

// AutoFit grows zones so they enclose their notes and child zones without
// ever shrinking below the user-set manual bounds.
type AutoFit struct {
	card    valueobjects.Size
	padding float64
	minW    float64
	minH    float64
}

// NewAutoFit creates an auto-fit engine for the given configuration
func NewAutoFit(cfg *config.DomainConfig) *AutoFit {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &AutoFit{
		card:    valueobjects.Size{Width: cfg.CardWidth, Height: cfg.CardHeight},
		padding: cfg.ZonePadding,
		minW:    cfg.MinZoneWidth(),
		minH:    cfg.MinZoneHeight(),
	}
}

// Compute returns the effective bounds of every zone. Zones are processed
// deepest first so a parent sees the already grown bounds of its children.
// The result depends only on current positions and manual bounds, so
// applying it twice changes nothing.
func (a *AutoFit) Compute(zones []*entities.Zone, notes []*entities.Note) map[valueobjects.ZoneID]valueobjects.Rect {
	depths := NewDepthIndex(zones)
	byID := make(map[valueobjects.ZoneID]bool, len(zones))
	for _, z := range zones {
		byID[z.ID] = true
	}

	notesByZone := make(map[valueobjects.ZoneID][]valueobjects.Rect)
	for _, n := range notes {
		if n.ZoneID.IsZero() || !byID[n.ZoneID] {
			continue
		}
		notesByZone[n.ZoneID] = append(notesByZone[n.ZoneID], valueobjects.RectAt(n.Position, a.card))
	}

	children := make(map[valueobjects.ZoneID][]valueobjects.ZoneID)
	for _, z := range zones {
		if !z.ParentZoneID.IsZero() && byID[z.ParentZoneID] && z.ParentZoneID != z.ID {
			children[z.ParentZoneID] = append(children[z.ParentZoneID], z.ID)
		}
	}

	order := make([]*entities.Zone, len(zones))
	copy(order, zones)
	sort.SliceStable(order, func(i, j int) bool {
		return depths.Depth(order[i].ID) > depths.Depth(order[j].ID)
	})

	result := make(map[valueobjects.ZoneID]valueobjects.Rect, len(zones))
	for _, z := range order {
		content := append([]valueobjects.Rect(nil), notesByZone[z.ID]...)
		for _, childID := range children[z.ID] {
			if b, ok := result[childID]; ok {
				content = append(content, b)
			}
		}

		box, ok := valueobjects.BoundingBox(content)
		if !ok {
			result[z.ID] = z.ManualBounds
			continue
		}
		result[z.ID] = a.floor(z.ManualBounds.Union(box.Outset(a.padding)))
	}
	return result
}

// Apply writes the computed bounds into the zones and returns the ids of
// zones whose bounds changed.
func (a *AutoFit) Apply(zones []*entities.Zone, notes []*entities.Note) []valueobjects.ZoneID {
	computed := a.Compute(zones, notes)
	var changed []valueobjects.ZoneID
	for _, z := range zones {
		b := computed[z.ID]
		if b != z.Bounds {
			z.Bounds = b
			changed = append(changed, z.ID)
		}
	}
	return changed
}

// InnerRect is the region a note's top-left corner may occupy inside a zone
// so the whole card stays within the padded interior.
func (a *AutoFit) InnerRect(bounds valueobjects.Rect) valueobjects.Rect {
	return valueobjects.Rect{
		X:      bounds.X + a.padding,
		Y:      bounds.Y + a.padding,
		Width:  math.Max(0, bounds.Width-2*a.padding-a.card.Width),
		Height: math.Max(0, bounds.Height-2*a.padding-a.card.Height),
	}
}

// ClampNote moves pos into the inner rectangle of bounds
func (a *AutoFit) ClampNote(pos valueobjects.Point, bounds valueobjects.Rect) valueobjects.Point {
	inner := a.InnerRect(bounds)
	return valueobjects.Point{
		X: valueobjects.Clamp(pos.X, inner.X, inner.Right()),
		Y: valueobjects.Clamp(pos.Y, inner.Y, inner.Bottom()),
	}
}

// FloorSize enforces the minimum zone size, keeping the top-left corner
func (a *AutoFit) FloorSize(r valueobjects.Rect) valueobjects.Rect {
	return a.floor(r)
}

func (a *AutoFit) floor(r valueobjects.Rect) valueobjects.Rect {
	r.Width = math.Max(r.Width, a.minW)
	r.Height = math.Max(r.Height, a.minH)
	return r
}
