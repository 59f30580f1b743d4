package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nodal/domain/core/aggregates"
	"nodal/domain/core/entities"
	vo "nodal/domain/core/valueobjects"
)

func TestDocumentRepository_LoadedDocumentDoesNotAliasSaved(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository(nil, zap.NewNop())

	doc := aggregates.NewDocument()
	doc.Notes = append(doc.Notes, &entities.Note{ID: "n1", Title: "one", Messages: []entities.Message{}})
	require.NoError(t, repo.Save(ctx, "ws", doc))
	doc.Notes[0].Title = "changed after save"

	loaded, err := repo.Load(ctx, "ws")
	require.NoError(t, err)
	require.Len(t, loaded.Notes, 1)
	assert.Equal(t, "one", loaded.Notes[0].Title)
}

func TestDocumentRepository_ImportUpgradesLegacyData(t *testing.T) {
	repo := NewDocumentRepository(nil, zap.NewNop())
	repo.Import("old", []byte(`{"notes":[{"id":"a","position":{"x":1,"y":2}}],"drawings":[]}`))

	doc, err := repo.Load(context.Background(), "old")

	require.NoError(t, err)
	assert.Equal(t, aggregates.CurrentSchemaVersion, doc.SchemaVersion)
	require.Len(t, doc.Notes, 1)
	assert.Equal(t, vo.NoteID("a"), doc.Notes[0].ID)
}

func TestDocumentRepository_ImportRejectsGarbage(t *testing.T) {
	repo := NewDocumentRepository(nil, zap.NewNop())
	repo.Import("bad", []byte(`not json`))

	_, err := repo.Load(context.Background(), "bad")

	assert.Error(t, err)
}

func TestDocumentRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository(nil, zap.NewNop())
	require.NoError(t, repo.Save(ctx, "b", aggregates.NewDocument()))
	require.NoError(t, repo.Save(ctx, "a", aggregates.NewDocument()))

	ids, err := repo.List(ctx)

	require.NoError(t, err)
	assert.Equal(t, []vo.WorkspaceID{"a", "b"}, ids)
}
