package schema

import (
	"fmt"
	"sort"
	"time"
)

// RawDocument is a canvas document decoded into generic JSON values so
// migrations can reshape it before it is bound to the typed model.
type RawDocument map[string]interface{}

// SchemaVersion records one applied migration step
type SchemaVersion struct {
	Version     int       `json:"version"`
	Description string    `json:"description"`
	AppliedAt   time.Time `json:"applied_at"`
}

// Migration upgrades a raw document by exactly one version
type Migration struct {
	FromVersion int
	ToVersion   int
	Description string
	Up          MigrationFunc
}

// MigrationFunc reshapes raw in place
type MigrationFunc func(raw RawDocument) error

// SchemaEvolution holds the upgrade chain for canvas documents
type SchemaEvolution struct {
	latest     int
	migrations []Migration
}

// NewSchemaEvolution creates an empty chain ending at latest
func NewSchemaEvolution(latest int) *SchemaEvolution {
	return &SchemaEvolution{latest: latest}
}

// NewDocumentEvolution returns the chain for the current document shape
func NewDocumentEvolution() *SchemaEvolution {
	s := NewSchemaEvolution(2)
	// The built-in chain is well formed, so registration cannot fail.
	_ = s.RegisterMigration(Migration{
		FromVersion: 0,
		ToVersion:   1,
		Description: "canvas defaults, drop drawing layers",
		Up:          upgradeV0ToV1,
	})
	_ = s.RegisterMigration(Migration{
		FromVersion: 1,
		ToVersion:   2,
		Description: "connections list and zone manual bounds",
		Up:          upgradeV1ToV2,
	})
	return s
}

// RegisterMigration registers a new migration
func (s *SchemaEvolution) RegisterMigration(migration Migration) error {
	if migration.ToVersion != migration.FromVersion+1 {
		return fmt.Errorf("invalid migration: %d->%d must advance one version", migration.FromVersion, migration.ToVersion)
	}
	if migration.Up == nil {
		return fmt.Errorf("invalid migration: %d->%d has no upgrade function", migration.FromVersion, migration.ToVersion)
	}
	for _, existing := range s.migrations {
		if existing.FromVersion == migration.FromVersion {
			return fmt.Errorf("migration from %d to %d already exists",
				migration.FromVersion, migration.ToVersion)
		}
	}

	s.migrations = append(s.migrations, migration)
	sort.Slice(s.migrations, func(i, j int) bool {
		return s.migrations[i].FromVersion < s.migrations[j].FromVersion
	})
	return nil
}

// Latest is the version Upgrade brings documents to
func (s *SchemaEvolution) Latest() int {
	return s.latest
}

// Upgrade runs every migration from the document's version to the latest
// and returns the steps it applied.
func (s *SchemaEvolution) Upgrade(raw RawDocument) ([]SchemaVersion, error) {
	current := VersionOf(raw)
	if current > s.latest {
		return nil, fmt.Errorf("document schema version %d is newer than supported version %d", current, s.latest)
	}

	var history []SchemaVersion
	for current < s.latest {
		migration := s.findMigration(current)
		if migration == nil {
			return history, fmt.Errorf("no migration found from version %d to %d", current, current+1)
		}
		if err := migration.Up(raw); err != nil {
			return history, fmt.Errorf("migration %d->%d failed: %w",
				migration.FromVersion, migration.ToVersion, err)
		}
		raw["schemaVersion"] = float64(migration.ToVersion)
		history = append(history, SchemaVersion{
			Version:     migration.ToVersion,
			Description: migration.Description,
			AppliedAt:   time.Now(),
		})
		current = migration.ToVersion
	}
	return history, nil
}

func (s *SchemaEvolution) findMigration(from int) *Migration {
	for i := range s.migrations {
		if s.migrations[i].FromVersion == from {
			return &s.migrations[i]
		}
	}
	return nil
}

// VersionOf reads schemaVersion; anything that is not a non-negative whole
// number counts as the unversioned shape 0.
func VersionOf(raw RawDocument) int {
	v, ok := raw["schemaVersion"].(float64)
	if !ok || v < 0 || v != float64(int(v)) {
		return 0
	}
	return int(v)
}

// legacyFields were written by drawing layers that no longer exist
var legacyFields = []string{"drawings", "excalidrawElements", "sceneGraph"}

func upgradeV0ToV1(raw RawDocument) error {
	for _, f := range legacyFields {
		delete(raw, f)
	}

	if _, ok := raw["viewport"].(map[string]interface{}); !ok {
		raw["viewport"] = map[string]interface{}{"x": 0.0, "y": 0.0, "zoom": 1.0}
	}
	if _, ok := raw["backgroundTransform"].(map[string]interface{}); !ok {
		raw["backgroundTransform"] = map[string]interface{}{"x": 0.0, "y": 0.0, "scale": 1.0}
	}
	if _, ok := raw["backgroundImage"].(map[string]interface{}); !ok {
		raw["backgroundImage"] = nil
	}

	raw["notes"] = objects(raw["notes"])
	for _, n := range raw["notes"].([]interface{}) {
		note := n.(map[string]interface{})
		if _, ok := note["zoneId"]; !ok {
			note["zoneId"] = nil
		}
		if _, ok := note["messages"].([]interface{}); !ok {
			note["messages"] = []interface{}{}
		}
	}
	raw["zones"] = objects(raw["zones"])
	return nil
}

func upgradeV1ToV2(raw RawDocument) error {
	raw["connections"] = objects(raw["connections"])
	raw["zones"] = objects(raw["zones"])
	for _, z := range raw["zones"].([]interface{}) {
		zone := z.(map[string]interface{})
		if _, ok := zone["manualBounds"].(map[string]interface{}); !ok {
			if bounds, ok := zone["bounds"].(map[string]interface{}); ok {
				cp := make(map[string]interface{}, len(bounds))
				for k, v := range bounds {
					cp[k] = v
				}
				zone["manualBounds"] = cp
			}
		}
	}
	return nil
}

// objects returns the JSON objects of an array value, dropping anything
// else; a missing or non-array value becomes an empty array.
func objects(v interface{}) []interface{} {
	items, _ := v.([]interface{})
	out := make([]interface{}, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]interface{}); ok {
			out = append(out, obj)
		}
	}
	return out
}
