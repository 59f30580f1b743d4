package services

import (
	"math"

	"nodal/domain/config"
	"nodal/domain/core/entities"
	"nodal/domain/core/valueobjects"
)

// Containment answers which zone a note belongs to and where connection
// lines meet note borders. Every note is treated as a card of the
// configured footprint.
type Containment struct {
	card valueobjects.Size
}

// NewContainment creates a containment engine for the given configuration
func NewContainment(cfg *config.DomainConfig) *Containment {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &Containment{card: valueobjects.Size{Width: cfg.CardWidth, Height: cfg.CardHeight}}
}

// CardSize returns the footprint used for every note
func (c *Containment) CardSize() valueobjects.Size {
	return c.card
}

// NoteRect returns the footprint of a note placed at pos
func (c *Containment) NoteRect(pos valueobjects.Point) valueobjects.Rect {
	return valueobjects.RectAt(pos, c.card)
}

// IsNoteCenterInZone reports whether the center of a note at pos lies inside
// the zone bounds, edges inclusive.
func (c *Containment) IsNoteCenterInZone(pos valueobjects.Point, zone *entities.Zone) bool {
	return zone.Bounds.Contains(c.NoteRect(pos).Center())
}

// OverlapRatio is the share of the note footprint covered by the zone
func (c *Containment) OverlapRatio(pos valueobjects.Point, zone *entities.Zone) float64 {
	note := c.NoteRect(pos)
	area := note.Area()
	if area == 0 {
		return 0
	}
	return note.IntersectionArea(zone.Bounds) / area
}

// PickZoneIDForNotePosition returns the zone a note at pos belongs to. Only
// zones containing the note center qualify; the deepest wins, then the one
// covering more of the card, then the first in enumeration order.
func (c *Containment) PickZoneIDForNotePosition(zones []*entities.Zone, pos valueobjects.Point) valueobjects.ZoneID {
	depths := NewDepthIndex(zones)

	var best valueobjects.ZoneID
	bestDepth, bestRatio := -1, -1.0
	for _, z := range zones {
		if !c.IsNoteCenterInZone(pos, z) {
			continue
		}
		depth := depths.Depth(z.ID)
		ratio := c.OverlapRatio(pos, z)
		if depth > bestDepth || (depth == bestDepth && ratio > bestRatio) {
			best, bestDepth, bestRatio = z.ID, depth, ratio
		}
	}
	return best
}

// PickHoverZoneID returns the zone highlighted while a note is dragged over
// it: the deepest zone containing the note center.
func (c *Containment) PickHoverZoneID(zones []*entities.Zone, pos valueobjects.Point) valueobjects.ZoneID {
	depths := NewDepthIndex(zones)

	var best valueobjects.ZoneID
	bestDepth := -1
	for _, z := range zones {
		if !c.IsNoteCenterInZone(pos, z) {
			continue
		}
		if depth := depths.Depth(z.ID); depth > bestDepth {
			best, bestDepth = z.ID, depth
		}
	}
	return best
}

// NoteAtPoint returns the last note (topmost) whose footprint contains p,
// skipping the excluded id.
func (c *Containment) NoteAtPoint(notes []*entities.Note, p valueobjects.Point, exclude valueobjects.NoteID) (*entities.Note, bool) {
	for i := len(notes) - 1; i >= 0; i-- {
		n := notes[i]
		if n.ID == exclude {
			continue
		}
		if c.NoteRect(n.Position).Contains(p) {
			return n, true
		}
	}
	return nil, false
}

// Segment is a drawable line between two note borders
type Segment struct {
	ConnectionID valueobjects.ConnectionID `json:"connectionId"`
	Start        valueobjects.Point        `json:"start"`
	End          valueobjects.Point        `json:"end"`
}

// ConnectionSegments computes render geometry for every connection whose
// endpoints both exist. Dangling connections are skipped.
func (c *Containment) ConnectionSegments(notes []*entities.Note, connections []*entities.Connection) []Segment {
	byID := make(map[valueobjects.NoteID]*entities.Note, len(notes))
	for _, n := range notes {
		byID[n.ID] = n
	}

	segments := make([]Segment, 0, len(connections))
	for _, conn := range connections {
		from, ok1 := byID[conn.FromID]
		to, ok2 := byID[conn.ToID]
		if !ok1 || !ok2 {
			continue
		}
		a := c.NoteRect(from.Position).Center()
		b := c.NoteRect(to.Position).Center()
		segments = append(segments, Segment{
			ConnectionID: conn.ID,
			Start:        RectIntersection(a, c.card, b),
			End:          RectIntersection(b, c.card, a),
		})
	}
	return segments
}

// RectIntersection returns where the ray from center toward target leaves a
// rectangle of the given size centered on center. A target equal to the
// center yields the center.
func RectIntersection(center valueobjects.Point, size valueobjects.Size, target valueobjects.Point) valueobjects.Point {
	dx := target.X - center.X
	dy := target.Y - center.Y
	if dx == 0 && dy == 0 {
		return center
	}

	hw := size.Width / 2
	hh := size.Height / 2

	// |dy/dx| <= hh/hw without dividing by a zero dx
	if math.Abs(dy)*hw <= math.Abs(dx)*hh {
		side := hw
		if dx < 0 {
			side = -hw
		}
		return valueobjects.Point{X: center.X + side, Y: center.Y + side*(dy/dx)}
	}

	side := hh
	if dy < 0 {
		side = -hh
	}
	return valueobjects.Point{X: center.X + side*(dx/dy), Y: center.Y + side}
}

// DepthIndex memoises zone nesting depth. A root zone has depth 0; a zone
// whose parent is missing is treated as a root.
type DepthIndex struct {
	byID   map[valueobjects.ZoneID]*entities.Zone
	depths map[valueobjects.ZoneID]int
}

// NewDepthIndex indexes zones for depth lookups
func NewDepthIndex(zones []*entities.Zone) *DepthIndex {
	byID := make(map[valueobjects.ZoneID]*entities.Zone, len(zones))
	for _, z := range zones {
		byID[z.ID] = z
	}
	return &DepthIndex{byID: byID, depths: make(map[valueobjects.ZoneID]int, len(zones))}
}

// Depth returns the number of ancestors of the zone
func (d *DepthIndex) Depth(id valueobjects.ZoneID) int {
	if depth, ok := d.depths[id]; ok {
		return depth
	}

	depth := 0
	cur := d.byID[id]
	// bounded walk so a corrupted parent cycle cannot loop forever
	for steps := 0; cur != nil && !cur.ParentZoneID.IsZero() && steps < len(d.byID); steps++ {
		parent, ok := d.byID[cur.ParentZoneID]
		if !ok {
			break
		}
		depth++
		cur = parent
	}
	d.depths[id] = depth
	return depth
}
