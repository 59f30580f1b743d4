package validators

import (
	"fmt"

	"nodal/domain/config"
	"nodal/domain/core/aggregates"
	"nodal/domain/core/entities"
	"nodal/domain/core/valueobjects"
	"nodal/pkg/errors"
)

// DocumentValidator checks the cross-entity rules of a canvas document that
// arrives from outside the aggregate (storage, imports, the CLI).
type DocumentValidator struct {
	minZoneWidth  float64
	minZoneHeight float64
}

// NewDocumentValidator creates a validator for the given canvas rules
func NewDocumentValidator(cfg *config.DomainConfig) *DocumentValidator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &DocumentValidator{
		minZoneWidth:  cfg.MinZoneWidth(),
		minZoneHeight: cfg.MinZoneHeight(),
	}
}

// Validate reports every rule the document breaks
func (v *DocumentValidator) Validate(doc *aggregates.Document) error {
	validationErrors := errors.NewValidationErrors()
	if doc == nil {
		validationErrors.Add("document", "document is required")
		return validationErrors
	}

	if !doc.Viewport.IsValid() {
		validationErrors.Add("viewport", "viewport must be finite with a positive zoom")
	}
	if !doc.BackgroundTransform.IsValid() {
		validationErrors.Add("backgroundTransform", "background transform must be finite with a positive scale")
	}

	zones := make(map[valueobjects.ZoneID]*entities.Zone, len(doc.Zones))
	for _, z := range doc.Zones {
		field := fmt.Sprintf("zones[%s]", z.ID)
		if z.ID.IsZero() {
			validationErrors.Add("zones", "zone id is required")
			continue
		}
		if _, dup := zones[z.ID]; dup {
			validationErrors.AddError(errors.ErrDuplicateZone.Copy().WithDetail("field", field))
			continue
		}
		zones[z.ID] = z
		if !z.Bounds.IsFinite() || !z.ManualBounds.IsFinite() {
			validationErrors.Add(field, "zone bounds must be finite")
		}
		if z.Bounds.Width < v.minZoneWidth || z.Bounds.Height < v.minZoneHeight {
			validationErrors.Add(field, fmt.Sprintf("zone is smaller than %vx%v", v.minZoneWidth, v.minZoneHeight))
		}
	}
	for _, z := range doc.Zones {
		if z.ParentZoneID.IsZero() {
			continue
		}
		if _, ok := zones[z.ParentZoneID]; !ok {
			validationErrors.Add(fmt.Sprintf("zones[%s].parentZoneId", z.ID), "parent zone does not exist")
		} else if inCycle(z.ID, zones) {
			validationErrors.AddError(errors.ErrZoneCycle.Copy().WithDetail("field", fmt.Sprintf("zones[%s].parentZoneId", z.ID)))
		}
	}

	notes := make(map[valueobjects.NoteID]bool, len(doc.Notes))
	for _, n := range doc.Notes {
		field := fmt.Sprintf("notes[%s]", n.ID)
		if n.ID.IsZero() {
			validationErrors.Add("notes", "note id is required")
			continue
		}
		if notes[n.ID] {
			validationErrors.AddError(errors.ErrDuplicateNote.Copy().WithDetail("field", field))
			continue
		}
		notes[n.ID] = true
		if !n.Position.IsFinite() {
			validationErrors.Add(field+".position", "position must be finite")
		}
		if !n.ZoneID.IsZero() {
			if _, ok := zones[n.ZoneID]; !ok {
				validationErrors.Add(field+".zoneId", "zone does not exist")
			}
		}
		for _, m := range n.Messages {
			if m.Role != entities.RoleUser && m.Role != entities.RoleAssistant {
				validationErrors.Add(field+".messages", fmt.Sprintf("unknown role %q", m.Role))
				break
			}
		}
	}

	for _, c := range doc.Connections {
		field := fmt.Sprintf("connections[%s]", c.ID)
		if !notes[c.FromID] || !notes[c.ToID] {
			validationErrors.Add(field, "connection endpoint does not exist")
		}
		if c.FromID == c.ToID {
			validationErrors.AddError(errors.ErrSelfConnection.Copy().WithDetail("field", field))
		}
	}

	if validationErrors.HasErrors() {
		return validationErrors
	}
	return nil
}

// RepairReport counts what Repair changed
type RepairReport struct {
	DroppedNotes       int `json:"droppedNotes"`
	DroppedZones       int `json:"droppedZones"`
	DroppedConnections int `json:"droppedConnections"`
	DetachedNotes      int `json:"detachedNotes"`
	DetachedZones      int `json:"detachedZones"`
	ResizedZones       int `json:"resizedZones"`
}

// Changed reports whether Repair touched the document
func (r RepairReport) Changed() bool {
	return r != RepairReport{}
}

// Repair rewrites dangling references as "no relationship" in place:
// duplicate ids are dropped keeping the first, unknown zone references and
// cyclic parents are cleared, undersized zones are floored and connections
// with missing, equal or already-linked endpoints are removed.
func (v *DocumentValidator) Repair(doc *aggregates.Document) RepairReport {
	var report RepairReport
	if doc == nil {
		return report
	}

	zones := make(map[valueobjects.ZoneID]*entities.Zone, len(doc.Zones))
	keptZones := doc.Zones[:0]
	for _, z := range doc.Zones {
		if z == nil || z.ID.IsZero() || zones[z.ID] != nil {
			report.DroppedZones++
			continue
		}
		zones[z.ID] = z
		keptZones = append(keptZones, z)
	}
	doc.Zones = keptZones

	for _, z := range doc.Zones {
		if z.ParentZoneID.IsZero() {
			continue
		}
		if _, ok := zones[z.ParentZoneID]; !ok || inCycle(z.ID, zones) {
			z.ParentZoneID = ""
			report.DetachedZones++
		}
	}
	for _, z := range doc.Zones {
		if z.Bounds.Width < v.minZoneWidth || z.Bounds.Height < v.minZoneHeight {
			z.Bounds.Width = max(z.Bounds.Width, v.minZoneWidth)
			z.Bounds.Height = max(z.Bounds.Height, v.minZoneHeight)
			report.ResizedZones++
		}
		if z.ManualBounds.Width < v.minZoneWidth || z.ManualBounds.Height < v.minZoneHeight {
			z.ManualBounds.Width = max(z.ManualBounds.Width, v.minZoneWidth)
			z.ManualBounds.Height = max(z.ManualBounds.Height, v.minZoneHeight)
		}
	}

	notes := make(map[valueobjects.NoteID]bool, len(doc.Notes))
	keptNotes := doc.Notes[:0]
	for _, n := range doc.Notes {
		if n == nil || n.ID.IsZero() || notes[n.ID] {
			report.DroppedNotes++
			continue
		}
		notes[n.ID] = true
		if !n.ZoneID.IsZero() {
			if _, ok := zones[n.ZoneID]; !ok {
				n.ZoneID = ""
				report.DetachedNotes++
			}
		}
		keptNotes = append(keptNotes, n)
	}
	doc.Notes = keptNotes

	keptConnections := doc.Connections[:0]
	for _, c := range doc.Connections {
		if c == nil || !notes[c.FromID] || !notes[c.ToID] || c.FromID == c.ToID || linked(keptConnections, c) {
			report.DroppedConnections++
			continue
		}
		keptConnections = append(keptConnections, c)
	}
	doc.Connections = keptConnections

	return report
}

func linked(existing []*entities.Connection, c *entities.Connection) bool {
	for _, e := range existing {
		if e.Links(c.FromID, c.ToID) {
			return true
		}
	}
	return false
}

// inCycle walks parents from id and reports whether it returns to id.
// Loops further up that do not include id are reported for their members.
func inCycle(id valueobjects.ZoneID, zones map[valueobjects.ZoneID]*entities.Zone) bool {
	current := zones[id]
	for steps := 0; current != nil && steps <= len(zones); steps++ {
		if current.ParentZoneID.IsZero() {
			return false
		}
		if current.ParentZoneID == id {
			return true
		}
		current = zones[current.ParentZoneID]
	}
	return false
}
