package aggregates

import (
	"nodal/domain/core/entities"
	"nodal/domain/core/valueobjects"
)

// CurrentSchemaVersion is the document shape this build reads and writes
const CurrentSchemaVersion = 2

// Document is the persisted state of one workspace canvas. It is always
// stored and loaded as a whole.
type Document struct {
	SchemaVersion       int                              `json:"schemaVersion"`
	Viewport            valueobjects.Viewport            `json:"viewport"`
	BackgroundImage     *entities.BackgroundImage        `json:"backgroundImage"`
	BackgroundTransform valueobjects.BackgroundTransform `json:"backgroundTransform"`
	Notes               []*entities.Note                 `json:"notes"`
	Zones               []*entities.Zone                 `json:"zones"`
	Connections         []*entities.Connection           `json:"connections"`
}

// NewDocument returns an empty canvas at the current schema version
func NewDocument() *Document {
	return &Document{
		SchemaVersion:       CurrentSchemaVersion,
		Viewport:            valueobjects.DefaultViewport(),
		BackgroundTransform: valueobjects.DefaultBackgroundTransform(),
		Notes:               []*entities.Note{},
		Zones:               []*entities.Zone{},
		Connections:         []*entities.Connection{},
	}
}

// Clone returns a deep copy safe to hand to another goroutine
func (d *Document) Clone() *Document {
	c := &Document{
		SchemaVersion:       d.SchemaVersion,
		Viewport:            d.Viewport,
		BackgroundTransform: d.BackgroundTransform,
		Notes:               make([]*entities.Note, len(d.Notes)),
		Zones:               make([]*entities.Zone, len(d.Zones)),
		Connections:         make([]*entities.Connection, len(d.Connections)),
	}
	if d.BackgroundImage != nil {
		img := *d.BackgroundImage
		c.BackgroundImage = &img
	}
	for i, n := range d.Notes {
		c.Notes[i] = n.Clone()
	}
	for i, z := range d.Zones {
		c.Zones[i] = z.Clone()
	}
	for i, conn := range d.Connections {
		cp := *conn
		c.Connections[i] = &cp
	}
	return c
}

// Note returns the note with the given id
func (d *Document) Note(id valueobjects.NoteID) (*entities.Note, bool) {
	for _, n := range d.Notes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// Zone returns the zone with the given id
func (d *Document) Zone(id valueobjects.ZoneID) (*entities.Zone, bool) {
	for _, z := range d.Zones {
		if z.ID == id {
			return z, true
		}
	}
	return nil, false
}

// Descendants returns id and every zone nested below it, breadth first
func (d *Document) Descendants(id valueobjects.ZoneID) []valueobjects.ZoneID {
	children := make(map[valueobjects.ZoneID][]valueobjects.ZoneID)
	for _, z := range d.Zones {
		if !z.ParentZoneID.IsZero() {
			children[z.ParentZoneID] = append(children[z.ParentZoneID], z.ID)
		}
	}

	seen := map[valueobjects.ZoneID]bool{id: true}
	queue := []valueobjects.ZoneID{id}
	for i := 0; i < len(queue); i++ {
		for _, child := range children[queue[i]] {
			if !seen[child] {
				seen[child] = true
				queue = append(queue, child)
			}
		}
	}
	return queue
}
