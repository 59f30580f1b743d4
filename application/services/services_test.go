package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nodal/application/ports"
	"nodal/domain/config"
	"nodal/domain/core/aggregates"
	"nodal/domain/core/entities"
	"nodal/domain/core/valueobjects"
	"nodal/domain/events"
	"nodal/domain/gesture"
	pkgerrors "nodal/pkg/errors"
)

// Mocks

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Load(ctx context.Context, workspaceID valueobjects.WorkspaceID) (*aggregates.Document, error) {
	args := m.Called(ctx, workspaceID)
	doc, _ := args.Get(0).(*aggregates.Document)
	return doc, args.Error(1)
}

func (m *MockRepository) Save(ctx context.Context, workspaceID valueobjects.WorkspaceID, doc *aggregates.Document) error {
	return m.Called(ctx, workspaceID, doc).Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockPublisher) PublishBatch(ctx context.Context, evs []events.DomainEvent) error {
	return m.Called(ctx, evs).Error(0)
}

type MockChatProvider struct {
	mock.Mock
}

func (m *MockChatProvider) GenerateStream(ctx context.Context, messages []entities.Message, onChunk func(string)) error {
	args := m.Called(ctx, messages, onChunk)
	for _, chunk := range args.Get(0).([]string) {
		onChunk(chunk)
	}
	return args.Error(1)
}

func (m *MockChatProvider) Name() string { return "mock" }

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	args := m.Called(ctx, text)
	vec, _ := args.Get(0).([]float64)
	return vec, args.Error(1)
}

func (m *MockEmbedder) Model() string { return "mock-embed" }

// memoryRepo is a minimal in-package store so these tests do not depend on
// the infrastructure layer
type memoryRepo struct {
	docs map[valueobjects.WorkspaceID]*aggregates.Document
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{docs: make(map[valueobjects.WorkspaceID]*aggregates.Document)}
}

func (r *memoryRepo) Load(_ context.Context, id valueobjects.WorkspaceID) (*aggregates.Document, error) {
	if doc, ok := r.docs[id]; ok {
		return doc.Clone(), nil
	}
	return aggregates.NewDocument(), nil
}

func (r *memoryRepo) Save(_ context.Context, id valueobjects.WorkspaceID, doc *aggregates.Document) error {
	r.docs[id] = doc.Clone()
	return nil
}

const ws = valueobjects.WorkspaceID("ws-1")

func newService(t *testing.T, repo *MockRepository, publisher *MockPublisher) (*WorkspaceService, *Persister) {
	t.Helper()
	logger := zap.NewNop()
	persister := NewPersister(repo, "mock", 3, logger, nil)
	var pub ports.EventPublisher
	if publisher != nil {
		pub = publisher
	}
	return NewWorkspaceService(repo, pub, persister, config.DefaultDomainConfig(), logger, nil), persister
}

func flush(t *testing.T, p *Persister) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Flush(ctx))
}

func addNote(t *testing.T, svc *WorkspaceService, id string, x float64) {
	t.Helper()
	err := svc.Mutate(context.Background(), ws, "create_note", func(c *aggregates.Canvas) error {
		_, err := c.CreateNoteAt(valueobjects.NoteID(id), valueobjects.Point{X: x, Y: 0})
		return err
	})
	require.NoError(t, err)
}

// WorkspaceService

func TestMutate_PersistsAndPublishes(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Load", mock.Anything, ws).Return(aggregates.NewDocument(), nil).Once()
	repo.On("Save", mock.Anything, ws, mock.MatchedBy(func(doc *aggregates.Document) bool {
		return len(doc.Notes) == 1 && doc.Notes[0].ID == "n1"
	})).Return(nil).Once()

	publisher := new(MockPublisher)
	publisher.On("PublishBatch", mock.Anything, mock.MatchedBy(func(evs []events.DomainEvent) bool {
		return len(evs) >= 1 && evs[0].GetEventType() == "note.added"
	})).Return(nil).Once()

	svc, persister := newService(t, repo, publisher)
	addNote(t, svc, "n1", 0)
	flush(t, persister)

	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
	assert.Equal(t, []valueobjects.WorkspaceID{ws}, svc.Workspaces())
}

func TestMutate_RollsBackFailedMutation(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Load", mock.Anything, ws).Return(aggregates.NewDocument(), nil)
	publisher := new(MockPublisher)

	svc, persister := newService(t, repo, publisher)
	boom := errors.New("boom")
	err := svc.Mutate(context.Background(), ws, "create_note", func(c *aggregates.Canvas) error {
		if _, err := c.CreateNoteAt("n1", valueobjects.Point{}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	flush(t, persister)

	doc, err := svc.Snapshot(context.Background(), ws)
	require.NoError(t, err)
	assert.Empty(t, doc.Notes)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
	publisher.AssertNotCalled(t, "PublishBatch", mock.Anything, mock.Anything)
}

func TestMutate_PanicReleasesWorkspace(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Load", mock.Anything, ws).Return(aggregates.NewDocument(), nil)
	repo.On("Save", mock.Anything, ws, mock.Anything).Return(nil)

	svc, persister := newService(t, repo, nil)
	err := svc.Mutate(context.Background(), ws, "create_note", func(c *aggregates.Canvas) error {
		_, _ = c.CreateNoteAt("n1", valueobjects.Point{})
		panic("nil zone")
	})
	require.ErrorContains(t, err, "nil zone")

	addNote(t, svc, "n2", 0)
	flush(t, persister)

	doc, err := svc.Snapshot(context.Background(), ws)
	require.NoError(t, err)
	require.Len(t, doc.Notes, 1)
	assert.Equal(t, valueobjects.NoteID("n2"), doc.Notes[0].ID)
}

func TestMutate_PublishFailureDoesNotFailMutation(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Load", mock.Anything, ws).Return(aggregates.NewDocument(), nil)
	repo.On("Save", mock.Anything, ws, mock.Anything).Return(nil)
	publisher := new(MockPublisher)
	publisher.On("PublishBatch", mock.Anything, mock.Anything).Return(errors.New("bus down"))

	svc, persister := newService(t, repo, publisher)
	addNote(t, svc, "n1", 0)
	flush(t, persister)

	doc, err := svc.Snapshot(context.Background(), ws)
	require.NoError(t, err)
	assert.Len(t, doc.Notes, 1)
}

func TestSession_LoadFailure(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Load", mock.Anything, ws).Return(nil, pkgerrors.ErrUnsupportedSchema)

	svc, _ := newService(t, repo, nil)
	_, err := svc.Snapshot(context.Background(), ws)
	assert.ErrorIs(t, err, pkgerrors.ErrUnsupportedSchema)
	assert.Empty(t, svc.Workspaces())
}

func TestUpdateConfig_RebindsCanvas(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Load", mock.Anything, ws).Return(aggregates.NewDocument(), nil)
	repo.On("Save", mock.Anything, ws, mock.Anything).Return(nil)
	svc, persister := newService(t, repo, nil)
	addNote(t, svc, "n1", 0)

	cfg := config.DefaultDomainConfig()
	cfg.CardWidth = 400
	svc.UpdateConfig(cfg)

	var width float64
	require.NoError(t, svc.Read(context.Background(), ws, func(c *aggregates.Canvas) error {
		width = c.CardSize().Width
		return nil
	}))
	assert.Equal(t, 400.0, width)
	flush(t, persister)
}

// Persister

func TestPersister_FlushHonoursContext(t *testing.T) {
	release := make(chan struct{})
	repo := new(MockRepository)
	repo.On("Save", mock.Anything, ws, mock.Anything).Run(func(mock.Arguments) { <-release }).Return(nil).Once()
	p := NewPersister(repo, "mock", 3, zap.NewNop(), nil)
	require.NoError(t, p.Flush(context.Background()), "nothing queued")

	p.Enqueue(ws, aggregates.NewDocument())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Flush(ctx), context.DeadlineExceeded)

	close(release)
	flush(t, p)
	repo.AssertExpectations(t)
}

func TestPersister_ReportsUnhealthyAfterRepeatedFailures(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Load", mock.Anything, ws).Return(aggregates.NewDocument(), nil)
	saveCall := repo.On("Save", mock.Anything, ws, mock.Anything).Return(errors.New("disk full"))

	svc, persister := newService(t, repo, nil)
	for i, id := range []string{"a", "b", "c"} {
		addNote(t, svc, id, float64(i*500))
		flush(t, persister)
	}

	health := svc.Health()
	assert.False(t, health.Healthy)
	assert.Equal(t, 3, health.ConsecutiveFailures)
	assert.Equal(t, "disk full", health.LastError)

	saveCall.Unset()
	repo.On("Save", mock.Anything, ws, mock.Anything).Return(nil)
	addNote(t, svc, "d", 2000)
	flush(t, persister)

	health = svc.Health()
	assert.True(t, health.Healthy)
	assert.Zero(t, health.ConsecutiveFailures)
}

func TestPersister_SkipsUnchangedSnapshots(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Load", mock.Anything, ws).Return(aggregates.NewDocument(), nil)

	svc, persister := newService(t, repo, nil)
	require.NoError(t, svc.Mutate(context.Background(), ws, "noop", func(c *aggregates.Canvas) error { return nil }))
	flush(t, persister)

	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestPersister_CoalescesQueuedSnapshots(t *testing.T) {
	repo := newMemoryRepo()
	persister := NewPersister(repo, "memory", 3, zap.NewNop(), nil)

	docs := make([]*aggregates.Document, 5)
	for i := range docs {
		doc := aggregates.NewDocument()
		doc.Viewport.X = float64(i)
		docs[i] = doc
	}
	for _, doc := range docs {
		persister.Enqueue(ws, doc)
	}
	flush(t, persister)

	saved, err := repo.Load(context.Background(), ws)
	require.NoError(t, err)
	assert.Equal(t, 4.0, saved.Viewport.X, "the newest snapshot wins")
}

// ChatService

func newMemoryService(t *testing.T) (*WorkspaceService, *Persister) {
	t.Helper()
	logger := zap.NewNop()
	repo := newMemoryRepo()
	persister := NewPersister(repo, "memory", 3, logger, nil)
	return NewWorkspaceService(repo, nil, persister, config.DefaultDomainConfig(), logger, nil), persister
}

func noteMessages(t *testing.T, svc *WorkspaceService, id valueobjects.NoteID) *entities.Note {
	t.Helper()
	doc, err := svc.Snapshot(context.Background(), ws)
	require.NoError(t, err)
	note, ok := doc.Note(id)
	require.True(t, ok)
	return note
}

func TestChatService_StreamsReplyAndSummarizesFirstExchange(t *testing.T) {
	svc, persister := newMemoryService(t)
	addNote(t, svc, "n1", 0)

	provider := new(MockChatProvider)
	provider.On("GenerateStream", mock.Anything, mock.MatchedBy(func(msgs []entities.Message) bool {
		return len(msgs) == 1 && msgs[0].Content == "hi"
	}), mock.Anything).Return([]string{"Hel", "lo"}, nil).Once()
	provider.On("GenerateStream", mock.Anything, mock.MatchedBy(func(msgs []entities.Message) bool {
		return len(msgs) == 2 && msgs[0].Role == entities.RoleSystem
	}), mock.Anything).Return([]string{"  A greeting.  "}, nil).Once()

	chat := NewChatService(svc, provider, zap.NewNop(), nil)
	var updates []string
	reply, err := chat.Send(context.Background(), ws, "n1", "  hi ", func(s string) { updates = append(updates, s) })
	require.NoError(t, err)
	flush(t, persister)

	assert.Equal(t, []string{"Hel", "Hello"}, updates)
	assert.Equal(t, "Hello", reply.Content)
	assert.Equal(t, "A greeting.", reply.Summary)
	assert.False(t, reply.Failed)

	note := noteMessages(t, svc, "n1")
	require.Len(t, note.Messages, 2)
	assert.Equal(t, entities.RoleUser, note.Messages[0].Role)
	assert.Equal(t, "Hello", note.Messages[1].Content)
	assert.Equal(t, "A greeting.", note.Summary)
	provider.AssertExpectations(t)
}

func TestChatService_ProviderErrorBecomesReply(t *testing.T) {
	svc, _ := newMemoryService(t)
	addNote(t, svc, "n1", 0)

	provider := new(MockChatProvider)
	provider.On("GenerateStream", mock.Anything, mock.Anything, mock.Anything).Return([]string{}, errors.New("connection refused")).Once()

	chat := NewChatService(svc, provider, zap.NewNop(), nil)
	reply, err := chat.Send(context.Background(), ws, "n1", "hi", nil)
	require.NoError(t, err)
	assert.True(t, reply.Failed)
	assert.Equal(t, "Error: connection refused", reply.Content)
	assert.Empty(t, reply.Summary)

	note := noteMessages(t, svc, "n1")
	require.Len(t, note.Messages, 2)
	assert.Equal(t, "Error: connection refused", note.Messages[1].Content)
	provider.AssertExpectations(t)
}

func TestChatService_Rejections(t *testing.T) {
	svc, _ := newMemoryService(t)
	chat := NewChatService(svc, new(MockChatProvider), zap.NewNop(), nil)

	_, err := chat.Send(context.Background(), ws, "n1", "   ", nil)
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = chat.Send(context.Background(), ws, "missing", "hi", nil)
	assert.ErrorIs(t, err, pkgerrors.ErrNoteNotFound)

	addNote(t, svc, "n1", 0)
	_, err = chat.Summarize(context.Background(), ws, "n1")
	assert.True(t, pkgerrors.IsValidation(err))
}

// SmartViewService

func storeEmbeddings(t *testing.T, svc *WorkspaceService, vectors map[valueobjects.NoteID][]float64) {
	t.Helper()
	require.NoError(t, svc.Mutate(context.Background(), ws, "set_embeddings", func(c *aggregates.Canvas) error {
		c.SetNoteEmbeddings(vectors)
		return nil
	}))
}

func TestSmartView_FallsBackToStoredVectors(t *testing.T) {
	svc, _ := newMemoryService(t)
	addNote(t, svc, "a", 0)
	addNote(t, svc, "b", 1000)
	storeEmbeddings(t, svc, map[valueobjects.NoteID][]float64{"a": {1, 0}, "b": {1, 0}})

	embedder := new(MockEmbedder)
	embedder.On("Embed", mock.Anything, mock.Anything).Return(nil, errors.New("provider down"))

	result, err := NewSmartViewService(svc, embedder, zap.NewNop(), nil).Generate(context.Background(), ws, SmartViewOptions{Refresh: true})
	require.NoError(t, err)
	assert.Equal(t, []valueobjects.NoteID{"a", "b"}, result.Failed)
	assert.Empty(t, result.Embedded)
	require.Len(t, result.Zones, 1, "identical stored vectors cluster together")
	embedder.AssertNumberOfCalls(t, "Embed", 2)
}

func TestSmartView_StoresFreshVectors(t *testing.T) {
	svc, _ := newMemoryService(t)
	addNote(t, svc, "a", 0)
	addNote(t, svc, "b", 1000)

	embedder := new(MockEmbedder)
	embedder.On("Embed", mock.Anything, mock.Anything).Return([]float64{0, 1}, nil)

	result, err := NewSmartViewService(svc, embedder, zap.NewNop(), nil).Generate(context.Background(), ws, SmartViewOptions{})
	require.NoError(t, err)
	assert.Equal(t, []valueobjects.NoteID{"a", "b"}, result.Embedded)

	note := noteMessages(t, svc, "a")
	assert.Equal(t, []float64{0, 1}, note.Embedding)

	// Stored vectors are reused without a refresh.
	_, err = NewSmartViewService(svc, embedder, zap.NewNop(), nil).Generate(context.Background(), ws, SmartViewOptions{})
	require.NoError(t, err)
	embedder.AssertNumberOfCalls(t, "Embed", 2)
}

func TestSmartView_NeedsTwoNotes(t *testing.T) {
	svc, _ := newMemoryService(t)
	addNote(t, svc, "a", 0)
	embedder := new(MockEmbedder)

	_, err := NewSmartViewService(svc, embedder, zap.NewNop(), nil).Generate(context.Background(), ws, SmartViewOptions{Refresh: true})

	assert.ErrorIs(t, err, pkgerrors.ErrNotEnoughNotes)
	embedder.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
}

// GestureService

func TestGestureService_DoubleTapCreatesNote(t *testing.T) {
	svc, _ := newMemoryService(t)
	gestures := NewGestureService(svc, zap.NewNop())
	start := time.Unix(100, 0)

	first, err := gestures.Tap(context.Background(), ws, start, valueobjects.Point{X: 10, Y: 20})
	require.NoError(t, err)
	assert.False(t, first.DoubleTap)

	second, err := gestures.Tap(context.Background(), ws, start.Add(100*time.Millisecond), valueobjects.Point{X: 10, Y: 20})
	require.NoError(t, err)
	require.True(t, second.DoubleTap)
	assert.Equal(t, valueobjects.Point{X: 10, Y: 20}, second.Note.Position, "identity viewport maps screen to world 1:1")

	late, err := gestures.Tap(context.Background(), ws, start.Add(5*time.Second), valueobjects.Point{})
	require.NoError(t, err)
	assert.False(t, late.DoubleTap)

	gestures.CancelTap(ws)
	afterCancel, err := gestures.Tap(context.Background(), ws, start.Add(5100*time.Millisecond), valueobjects.Point{})
	require.NoError(t, err)
	assert.False(t, afterCancel.DoubleTap)
}

func TestGestureService_DragPansViewport(t *testing.T) {
	svc, _ := newMemoryService(t)
	gestures := NewGestureService(svc, zap.NewNop())

	result, err := gestures.Drag(context.Background(), ws, gesture.Target{Kind: gesture.TargetCanvas},
		[]valueobjects.Point{{X: 5, Y: 5}, {X: 30, Y: -10}})
	require.NoError(t, err)
	assert.Equal(t, gesture.ModePan, result.Mode)

	doc, err := svc.Snapshot(context.Background(), ws)
	require.NoError(t, err)
	assert.Equal(t, 30.0, doc.Viewport.X)
	assert.Equal(t, -10.0, doc.Viewport.Y)

	_, err = gestures.Drag(context.Background(), ws, gesture.Target{Kind: gesture.TargetCanvas}, nil)
	assert.True(t, pkgerrors.IsValidation(err))
}

// ConnectionService

func TestConnectionService_ConnectIsIdempotent(t *testing.T) {
	svc, _ := newMemoryService(t)
	addNote(t, svc, "a", 0)
	addNote(t, svc, "b", 1000)
	connections := NewConnectionService(svc, zap.NewNop())

	first, created, err := connections.Connect(context.Background(), ws, "a", "b")
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := connections.Connect(context.Background(), ws, "b", "a")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	require.NoError(t, connections.Disconnect(context.Background(), ws, first.ID))
	assert.ErrorIs(t, connections.Disconnect(context.Background(), ws, first.ID), pkgerrors.ErrConnectionNotFound)
}

func TestConnectionService_ConnectAtPoint(t *testing.T) {
	svc, _ := newMemoryService(t)
	addNote(t, svc, "a", 0)
	addNote(t, svc, "b", 1000)
	connections := NewConnectionService(svc, zap.NewNop())

	conn, err := connections.ConnectAtPoint(context.Background(), ws, "a", valueobjects.Point{X: 1010, Y: 10})
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Equal(t, valueobjects.NoteID("b"), conn.ToID)

	conn, err = connections.ConnectAtPoint(context.Background(), ws, "a", valueobjects.Point{X: -500, Y: -500})
	require.NoError(t, err)
	assert.Nil(t, conn)
}

func TestConnectionService_Suggest(t *testing.T) {
	svc, _ := newMemoryService(t)
	for i, id := range []string{"a", "b", "c", "d"} {
		addNote(t, svc, id, float64(i*1000))
	}
	storeEmbeddings(t, svc, map[valueobjects.NoteID][]float64{
		"a": {1, 0},
		"b": {1, 0.1},
		"c": {0, 1},
		"d": {1, 0},
	})
	connections := NewConnectionService(svc, zap.NewNop())
	_, _, err := connections.Connect(context.Background(), ws, "a", "d")
	require.NoError(t, err)

	suggestions, err := connections.Suggest(context.Background(), ws, "a", 5)
	require.NoError(t, err)
	require.Len(t, suggestions, 1, "linked and dissimilar notes are skipped")
	assert.Equal(t, valueobjects.NoteID("b"), suggestions[0].NoteID)
	assert.Greater(t, suggestions[0].Similarity, 0.99)
}
