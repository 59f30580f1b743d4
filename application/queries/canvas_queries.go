package queries

import (
	"fmt"
	"math"
	"sort"

	"nodal/domain/core/aggregates"
	"nodal/domain/core/valueobjects"
	pkgerrors "nodal/pkg/errors"
)

var errWorkspaceRequired = pkgerrors.ErrWorkspaceRequired

// GetCanvasQuery returns the whole document of a workspace
type GetCanvasQuery struct {
	WorkspaceID string
}

// Validate validates the GetCanvasQuery
func (q GetCanvasQuery) Validate() error {
	if q.WorkspaceID == "" {
		return errWorkspaceRequired
	}
	return nil
}

// GetHoverZoneQuery asks which zone a note would land in if dropped with
// its top-left corner at (X, Y)
type GetHoverZoneQuery struct {
	WorkspaceID string
	X           float64
	Y           float64
}

// Validate validates the GetHoverZoneQuery
func (q GetHoverZoneQuery) Validate() error {
	if q.WorkspaceID == "" {
		return errWorkspaceRequired
	}
	if math.IsNaN(q.X) || math.IsInf(q.X, 0) || math.IsNaN(q.Y) || math.IsInf(q.Y, 0) {
		return fmt.Errorf("%w: hover position", pkgerrors.ErrInvalidGeometry)
	}
	return nil
}

// HoverZoneResult names the zone under a dragged note; ZoneID is null when
// the note is over empty canvas
type HoverZoneResult struct {
	ZoneID valueobjects.ZoneID `json:"zoneId"`
}

// GetConnectionSegmentsQuery returns the drawable line of every connection
type GetConnectionSegmentsQuery struct {
	WorkspaceID string
}

// Validate validates the GetConnectionSegmentsQuery
func (q GetConnectionSegmentsQuery) Validate() error {
	if q.WorkspaceID == "" {
		return errWorkspaceRequired
	}
	return nil
}

// GetZoneTreeQuery returns the zone hierarchy with note counts
type GetZoneTreeQuery struct {
	WorkspaceID string
}

// Validate validates the GetZoneTreeQuery
func (q GetZoneTreeQuery) Validate() error {
	if q.WorkspaceID == "" {
		return errWorkspaceRequired
	}
	return nil
}

// GetVersionQuery returns the checksum and counts of the current document
type GetVersionQuery struct {
	WorkspaceID string
}

// Validate validates the GetVersionQuery
func (q GetVersionQuery) Validate() error {
	if q.WorkspaceID == "" {
		return errWorkspaceRequired
	}
	return nil
}

// ZoneTree is the zone hierarchy of a document
type ZoneTree struct {
	Roots         []*ZoneNode `json:"roots"`
	FreeNotes     int         `json:"freeNotes"`
	TotalNotes    int         `json:"totalNotes"`
	TotalZones    int         `json:"totalZones"`
	Connections   int         `json:"connections"`
	SchemaVersion int         `json:"schemaVersion"`
}

// ZoneNode is one zone with its direct notes and child zones
type ZoneNode struct {
	ID       valueobjects.ZoneID `json:"id"`
	Title    string              `json:"title"`
	Bounds   valueobjects.Rect   `json:"bounds"`
	Notes    int                 `json:"notes"`
	Children []*ZoneNode         `json:"children,omitempty"`
}

// BuildZoneTree arranges the zones of doc by parent. Zones whose parent is
// missing are treated as roots. Siblings are ordered by title, then id.
func BuildZoneTree(doc *aggregates.Document) *ZoneTree {
	tree := &ZoneTree{
		TotalNotes:    len(doc.Notes),
		TotalZones:    len(doc.Zones),
		Connections:   len(doc.Connections),
		SchemaVersion: doc.SchemaVersion,
	}

	nodes := make(map[valueobjects.ZoneID]*ZoneNode, len(doc.Zones))
	for _, z := range doc.Zones {
		nodes[z.ID] = &ZoneNode{ID: z.ID, Title: z.Title, Bounds: z.Bounds}
	}
	for _, n := range doc.Notes {
		if node, ok := nodes[n.ZoneID]; ok {
			node.Notes++
		} else {
			tree.FreeNotes++
		}
	}
	for _, z := range doc.Zones {
		node := nodes[z.ID]
		if parent, ok := nodes[z.ParentZoneID]; ok && z.ParentZoneID != z.ID {
			parent.Children = append(parent.Children, node)
			continue
		}
		tree.Roots = append(tree.Roots, node)
	}

	sortZoneNodes(tree.Roots)
	return tree
}

func sortZoneNodes(nodes []*ZoneNode) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Title != nodes[j].Title {
			return nodes[i].Title < nodes[j].Title
		}
		return nodes[i].ID < nodes[j].ID
	})
	for _, n := range nodes {
		sortZoneNodes(n.Children)
	}
}
