package versioning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"nodal/domain/core/aggregates"
	"nodal/domain/core/entities"
	"nodal/domain/core/valueobjects"
)

// DocumentVersion summarises one persisted state of a workspace canvas
type DocumentVersion struct {
	WorkspaceID     string    `json:"workspace_id"`
	SchemaVersion   int       `json:"schema_version"`
	Checksum        string    `json:"checksum"`
	NoteCount       int       `json:"note_count"`
	ZoneCount       int       `json:"zone_count"`
	ConnectionCount int       `json:"connection_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewDocumentVersion fingerprints doc
func NewDocumentVersion(workspaceID valueobjects.WorkspaceID, doc *aggregates.Document, at time.Time) (*DocumentVersion, error) {
	if doc == nil {
		return nil, fmt.Errorf("document cannot be nil")
	}

	checksum, err := Checksum(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate checksum: %w", err)
	}

	return &DocumentVersion{
		WorkspaceID:     workspaceID.String(),
		SchemaVersion:   doc.SchemaVersion,
		Checksum:        checksum,
		NoteCount:       len(doc.Notes),
		ZoneCount:       len(doc.Zones),
		ConnectionCount: len(doc.Connections),
		CreatedAt:       at,
	}, nil
}

// Checksum is the SHA-256 of the document's JSON encoding. Field order is
// fixed by the struct so equal documents hash equally.
func Checksum(doc *aggregates.Document) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

// ChangeSet lists entity ids that differ between two documents
type ChangeSet struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
	Updated []string `json:"updated,omitempty"`
}

// Empty reports whether nothing changed
func (c ChangeSet) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Updated) == 0
}

// DocumentDiff describes how one document differs from another
type DocumentDiff struct {
	Notes             ChangeSet `json:"notes"`
	Zones             ChangeSet `json:"zones"`
	Connections       ChangeSet `json:"connections"`
	ViewportChanged   bool      `json:"viewport_changed"`
	BackgroundChanged bool      `json:"background_changed"`
}

// Empty reports whether the documents are equivalent
func (d DocumentDiff) Empty() bool {
	return d.Notes.Empty() && d.Zones.Empty() && d.Connections.Empty() &&
		!d.ViewportChanged && !d.BackgroundChanged
}

// Diff compares two documents entity by entity. Ids are reported in the
// order they appear in to, removed ids in the order they appear in from.
func Diff(from, to *aggregates.Document) (*DocumentDiff, error) {
	if from == nil || to == nil {
		return nil, fmt.Errorf("documents cannot be nil")
	}

	diff := &DocumentDiff{
		ViewportChanged: from.Viewport != to.Viewport,
		BackgroundChanged: from.BackgroundTransform != to.BackgroundTransform ||
			!sameJSON(from.BackgroundImage, to.BackgroundImage),
	}

	var err error
	if diff.Notes, err = diffEntities(keyed(from.Notes, noteKey), keyed(to.Notes, noteKey)); err != nil {
		return nil, err
	}
	if diff.Zones, err = diffEntities(keyed(from.Zones, zoneKey), keyed(to.Zones, zoneKey)); err != nil {
		return nil, err
	}
	if diff.Connections, err = diffEntities(keyed(from.Connections, connectionKey), keyed(to.Connections, connectionKey)); err != nil {
		return nil, err
	}
	return diff, nil
}

type entry struct {
	id    string
	value interface{}
}

func keyed[T any](items []T, key func(T) string) []entry {
	out := make([]entry, len(items))
	for i, item := range items {
		out[i] = entry{id: key(item), value: item}
	}
	return out
}

func diffEntities(from, to []entry) (ChangeSet, error) {
	var cs ChangeSet
	before := make(map[string][]byte, len(from))
	for _, e := range from {
		data, err := json.Marshal(e.value)
		if err != nil {
			return cs, err
		}
		before[e.id] = data
	}

	seen := make(map[string]bool, len(to))
	for _, e := range to {
		seen[e.id] = true
		prev, ok := before[e.id]
		if !ok {
			cs.Added = append(cs.Added, e.id)
			continue
		}
		data, err := json.Marshal(e.value)
		if err != nil {
			return cs, err
		}
		if string(data) != string(prev) {
			cs.Updated = append(cs.Updated, e.id)
		}
	}
	for _, e := range from {
		if !seen[e.id] {
			cs.Removed = append(cs.Removed, e.id)
		}
	}
	return cs, nil
}

func sameJSON(a, b interface{}) bool {
	x, errA := json.Marshal(a)
	y, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(x) == string(y)
}

func noteKey(n *entities.Note) string             { return n.ID.String() }
func zoneKey(z *entities.Zone) string             { return z.ID.String() }
func connectionKey(c *entities.Connection) string { return c.ID.String() }
