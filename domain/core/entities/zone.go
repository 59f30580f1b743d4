package entities

import (
	"nodal/domain/core/valueobjects"
)

// Zone is a titled rectangular region that groups notes. Zones nest through
// ParentZoneID. ManualBounds is the user-set extent; Bounds is the effective
// extent after auto-fit and is never smaller than ManualBounds.
type Zone struct {
	ID           valueobjects.ZoneID `json:"id"`
	Title        string              `json:"title"`
	Bounds       valueobjects.Rect   `json:"bounds"`
	ManualBounds valueobjects.Rect   `json:"manualBounds"`
	ParentZoneID valueobjects.ZoneID `json:"parentZoneId"`
	CreatedAt    int64               `json:"createdAt"`
}

// IsRoot reports whether the zone has no parent
func (z *Zone) IsRoot() bool {
	return z.ParentZoneID.IsZero()
}

// Clone returns a copy of the zone
func (z *Zone) Clone() *Zone {
	c := *z
	return &c
}
