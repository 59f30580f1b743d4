package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nodal/domain/core/aggregates"
	"nodal/domain/core/entities"
	"nodal/domain/core/valueobjects"
	"nodal/infrastructure/persistence/schema"
	"nodal/pkg/auth"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeDocument(t *testing.T, titles ...string) string {
	t.Helper()
	doc := aggregates.NewDocument()
	for i, title := range titles {
		doc.Notes = append(doc.Notes, &entities.Note{
			ID:         valueobjects.NoteID(string(rune('a' + i))),
			Position:   valueobjects.Point{X: float64(i) * 400},
			Dimensions: valueobjects.Size{Width: 280, Height: 200},
			Title:      title,
		})
	}
	data, err := schema.NewCodec(nil).Encode(doc)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "canvas.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestInspect(t *testing.T) {
	path := writeDocument(t, "one", "two")

	out, err := run(t, "inspect", path, "-o", "json")
	require.NoError(t, err)

	var got struct {
		Version struct {
			NoteCount int    `json:"note_count"`
			Checksum  string `json:"checksum"`
		} `json:"version"`
		Tree struct {
			FreeNotes int `json:"freeNotes"`
		} `json:"tree"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)
	assert.Equal(t, 2, got.Version.NoteCount)
	assert.NotEmpty(t, got.Version.Checksum)
	assert.Equal(t, 2, got.Tree.FreeNotes)

	out, err = run(t, "inspect", path, "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "note_count: 2")
}

func TestDiff(t *testing.T) {
	before := writeDocument(t, "one", "two")
	after := writeDocument(t, "one")

	out, err := run(t, "diff", before, after, "-o", "json")
	require.NoError(t, err)

	var got struct {
		Notes struct {
			Removed []string `json:"removed"`
			Updated []string `json:"updated"`
		} `json:"notes"`
		ViewportChanged bool `json:"viewport_changed"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)
	assert.Equal(t, []string{"b"}, got.Notes.Removed)
	assert.Empty(t, got.Notes.Updated)
	assert.False(t, got.ViewportChanged)
}

func TestNormalizeWritesFile(t *testing.T) {
	path := writeDocument(t, "one")
	target := filepath.Join(t.TempDir(), "out.json")

	_, err := run(t, "normalize", path, "-w", target)
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	doc, _, err := schema.NewCodec(nil).Decode(data)
	require.NoError(t, err)
	assert.Len(t, doc.Notes, 1)
}

func TestSmartViewWithEcho(t *testing.T) {
	path := writeDocument(t, "alpha beta", "alpha beta", "gamma delta")

	out, err := run(t, "smart-view", path, "-o", "json", "--provider", "echo")
	require.NoError(t, err)

	var got struct {
		Zones    []json.RawMessage `json:"zones"`
		Embedded []string          `json:"embedded"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)
	assert.Len(t, got.Embedded, 3)
	assert.NotEmpty(t, got.Zones)
}

func TestToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	out, err := run(t, "token", "alice", "--workspace", "ws-1")
	require.NoError(t, err)

	validator, err := auth.NewJWTValidator(auth.JWTConfig{SecretKey: "test-secret", Issuer: "nodal"})
	require.NoError(t, err)
	claims, err := validator.ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserID)
	assert.True(t, claims.CanAccess("ws-1"))
	assert.False(t, claims.CanAccess("ws-2"))

	t.Setenv("JWT_SECRET", "")
	_, err = run(t, "token", "bob")
	assert.Error(t, err)
}
