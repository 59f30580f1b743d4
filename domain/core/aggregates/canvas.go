package aggregates

import (
	"fmt"
	"time"

	"nodal/domain/config"
	"nodal/domain/core/entities"
	"nodal/domain/core/valueobjects"
	"nodal/domain/events"
	"nodal/domain/services"
	pkgerrors "nodal/pkg/errors"
)

// Canvas is the aggregate root for one workspace's document. Every mutation
// keeps the cross-entity invariants: no stale zone ids, no dangling
// connections, zones never below their minimum size. A Canvas is not safe for
// concurrent use; callers serialise access.
type Canvas struct {
	workspaceID valueobjects.WorkspaceID
	doc         *Document
	cfg         *config.DomainConfig
	containment *services.Containment
	autofit     *services.AutoFit
	events      []events.DomainEvent
	now         func() time.Time
}

// NewCanvas wraps doc for mutation. A nil doc starts an empty canvas.
func NewCanvas(workspaceID valueobjects.WorkspaceID, doc *Document, cfg *config.DomainConfig) (*Canvas, error) {
	if workspaceID.IsZero() {
		return nil, pkgerrors.ErrWorkspaceRequired
	}
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if doc == nil {
		doc = NewDocument()
	}
	return &Canvas{
		workspaceID: workspaceID,
		doc:         doc,
		cfg:         cfg,
		containment: services.NewContainment(cfg),
		autofit:     services.NewAutoFit(cfg),
		events:      []events.DomainEvent{},
		now:         time.Now,
	}, nil
}

// WithClock replaces the time source used for createdAt and events
func (c *Canvas) WithClock(now func() time.Time) *Canvas {
	c.now = now
	return c
}

// WorkspaceID returns the owning workspace
func (c *Canvas) WorkspaceID() valueobjects.WorkspaceID {
	return c.workspaceID
}

// Document returns the live document. Callers must not mutate it directly.
func (c *Canvas) Document() *Document {
	return c.doc
}

// Snapshot returns a deep copy of the document
func (c *Canvas) Snapshot() *Document {
	return c.doc.Clone()
}

// Config returns the rules the canvas enforces
func (c *Canvas) Config() *config.DomainConfig {
	return c.cfg
}

// Containment returns the containment engine bound to this canvas' config
func (c *Canvas) Containment() *services.Containment {
	return c.containment
}

// CardSize returns the note footprint
func (c *Canvas) CardSize() valueobjects.Size {
	return valueobjects.Size{Width: c.cfg.CardWidth, Height: c.cfg.CardHeight}
}

// Notes

// AddNote places a note on the canvas. Its zone is derived from its position.
func (c *Canvas) AddNote(note *entities.Note) error {
	if note == nil || note.ID.IsZero() {
		return pkgerrors.NewValidationError("note id is required")
	}
	if _, exists := c.doc.Note(note.ID); exists {
		return fmt.Errorf("%w: %s", pkgerrors.ErrDuplicateNote, note.ID)
	}
	if !note.Position.IsFinite() {
		return fmt.Errorf("%w: note position", pkgerrors.ErrInvalidGeometry)
	}
	if note.Dimensions.Width <= 0 || note.Dimensions.Height <= 0 {
		note.Dimensions = c.CardSize()
	}
	if note.CreatedAt == 0 {
		note.CreatedAt = c.nowMillis()
	}
	if note.Messages == nil {
		note.Messages = []entities.Message{}
	}
	note.ZoneID = c.containment.PickZoneIDForNotePosition(c.doc.Zones, note.Position)

	c.doc.Notes = append(c.doc.Notes, note)
	c.addEvent(events.NewNoteAdded(c.workspaceID, note.ID, note.ZoneID, c.now()))
	c.fit()
	return nil
}

// CreateNoteAt adds an empty note with its top-left corner at pos
func (c *Canvas) CreateNoteAt(id valueobjects.NoteID, pos valueobjects.Point) (*entities.Note, error) {
	note := &entities.Note{
		ID:         id,
		Position:   pos,
		Dimensions: c.CardSize(),
		Messages:   []entities.Message{},
	}
	if err := c.AddNote(note); err != nil {
		return nil, err
	}
	return note, nil
}

// NotePatch lists the note fields to change; nil fields are left alone
type NotePatch struct {
	Position   *valueobjects.Point
	Dimensions *valueobjects.Size
	Title      *string
	Summary    *string
	Color      *string
	Messages   []entities.Message
}

// UpdateNote applies patch. A new position recomputes the note's zone in
// the same mutation.
func (c *Canvas) UpdateNote(id valueobjects.NoteID, patch NotePatch) error {
	note, ok := c.doc.Note(id)
	if !ok {
		return fmt.Errorf("%w: %s", pkgerrors.ErrNoteNotFound, id)
	}
	if patch.Position != nil && !patch.Position.IsFinite() {
		return fmt.Errorf("%w: note position", pkgerrors.ErrInvalidGeometry)
	}
	if patch.Dimensions != nil && (patch.Dimensions.Width <= 0 || patch.Dimensions.Height <= 0 ||
		!valueobjects.IsFinite(patch.Dimensions.Width) || !valueobjects.IsFinite(patch.Dimensions.Height)) {
		return fmt.Errorf("%w: note dimensions", pkgerrors.ErrInvalidGeometry)
	}

	var fields []string
	if patch.Title != nil {
		note.Title = *patch.Title
		fields = append(fields, "title")
	}
	if patch.Summary != nil {
		note.Summary = *patch.Summary
		fields = append(fields, "summary")
	}
	if patch.Color != nil {
		note.Color = *patch.Color
		fields = append(fields, "color")
	}
	if patch.Messages != nil {
		note.Messages = append([]entities.Message(nil), patch.Messages...)
		fields = append(fields, "messages")
	}
	if patch.Dimensions != nil {
		note.Dimensions = *patch.Dimensions
		fields = append(fields, "dimensions")
	}
	if patch.Position != nil {
		note.Position = *patch.Position
		fields = append(fields, "position")
		c.reassignZone(note)
	}

	c.addEvent(events.NewNoteUpdated(c.workspaceID, id, fields, c.now()))
	if patch.Position != nil {
		c.fit()
	}
	return nil
}

// MoveNote is UpdateNote with only a position
func (c *Canvas) MoveNote(id valueobjects.NoteID, pos valueobjects.Point) error {
	return c.UpdateNote(id, NotePatch{Position: &pos})
}

// DeleteNote removes the note and every connection touching it
func (c *Canvas) DeleteNote(id valueobjects.NoteID) error {
	idx := c.noteIndex(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", pkgerrors.ErrNoteNotFound, id)
	}
	c.doc.Notes = append(c.doc.Notes[:idx], c.doc.Notes[idx+1:]...)

	var removed []valueobjects.ConnectionID
	kept := c.doc.Connections[:0]
	for _, conn := range c.doc.Connections {
		if conn.Touches(id) {
			removed = append(removed, conn.ID)
			continue
		}
		kept = append(kept, conn)
	}
	c.doc.Connections = kept

	c.addEvent(events.NewNoteDeleted(c.workspaceID, id, removed, c.now()))
	c.fit()
	return nil
}

// ForkNote starts a new conversation from one message of an existing note.
// The fork is offset from its source and carries only that message.
func (c *Canvas) ForkNote(newID, sourceID valueobjects.NoteID, messageIndex int) (*entities.Note, error) {
	source, ok := c.doc.Note(sourceID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", pkgerrors.ErrNoteNotFound, sourceID)
	}
	if messageIndex < 0 || messageIndex >= len(source.Messages) {
		return nil, fmt.Errorf("%w: %d", pkgerrors.ErrMessageIndexOutOfRange, messageIndex)
	}

	title := source.Title
	if title == "" {
		title = "Note"
	}
	fork := &entities.Note{
		ID:         newID,
		Position:   source.Position.Add(valueobjects.Point{X: c.cfg.ForkOffset, Y: c.cfg.ForkOffset}),
		Dimensions: c.CardSize(),
		Title:      "Fork: " + title,
		Messages:   []entities.Message{source.Messages[messageIndex]},
	}
	if err := c.AddNote(fork); err != nil {
		return nil, err
	}
	return fork, nil
}

// AppendMessage adds a chat turn to a note
func (c *Canvas) AppendMessage(id valueobjects.NoteID, msg entities.Message) error {
	note, ok := c.doc.Note(id)
	if !ok {
		return fmt.Errorf("%w: %s", pkgerrors.ErrNoteNotFound, id)
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = c.nowMillis()
	}
	note.Messages = append(note.Messages, msg)
	c.addEvent(events.NewMessageAppended(c.workspaceID, id, string(msg.Role), c.now()))
	return nil
}

// ReplaceLastAssistantContent sets the content of the trailing assistant
// message, appending one when the conversation does not end with one. Used
// while a reply streams in.
func (c *Canvas) ReplaceLastAssistantContent(id valueobjects.NoteID, content string) error {
	note, ok := c.doc.Note(id)
	if !ok {
		return fmt.Errorf("%w: %s", pkgerrors.ErrNoteNotFound, id)
	}
	if last, ok := note.LastMessage(); ok && last.Role == entities.RoleAssistant {
		note.Messages[len(note.Messages)-1].Content = content
		return nil
	}
	return c.AppendMessage(id, entities.Message{Role: entities.RoleAssistant, Content: content})
}

// SetNoteEmbeddings stores vectors on notes. Unknown ids are skipped.
func (c *Canvas) SetNoteEmbeddings(vectors map[valueobjects.NoteID][]float64) []valueobjects.NoteID {
	var updated []valueobjects.NoteID
	for _, note := range c.doc.Notes {
		vec, ok := vectors[note.ID]
		if !ok || len(vec) == 0 {
			continue
		}
		note.Embedding = append([]float64(nil), vec...)
		updated = append(updated, note.ID)
	}
	if len(updated) > 0 {
		c.addEvent(events.NewEmbeddingsUpdated(c.workspaceID, updated, c.now()))
	}
	return updated
}

// Connections

// AddConnection links two notes. An existing link in either direction makes
// this a no-op; created reports whether a new connection was stored.
func (c *Canvas) AddConnection(id valueobjects.ConnectionID, from, to valueobjects.NoteID) (conn *entities.Connection, created bool, err error) {
	if from == to {
		return nil, false, pkgerrors.ErrSelfConnection
	}
	if _, ok := c.doc.Note(from); !ok {
		return nil, false, fmt.Errorf("%w: %s", pkgerrors.ErrNoteNotFound, from)
	}
	if _, ok := c.doc.Note(to); !ok {
		return nil, false, fmt.Errorf("%w: %s", pkgerrors.ErrNoteNotFound, to)
	}
	for _, existing := range c.doc.Connections {
		if existing.Links(from, to) {
			return existing, false, nil
		}
	}

	if id == "" {
		id = valueobjects.NewConnectionID()
	}
	conn = &entities.Connection{ID: id, FromID: from, ToID: to, CreatedAt: c.nowMillis()}
	c.doc.Connections = append(c.doc.Connections, conn)
	c.addEvent(events.NewNotesConnected(c.workspaceID, id, from, to, c.now()))
	return conn, true, nil
}

// DeleteConnection removes one connection
func (c *Canvas) DeleteConnection(id valueobjects.ConnectionID) error {
	for i, conn := range c.doc.Connections {
		if conn.ID == id {
			c.doc.Connections = append(c.doc.Connections[:i], c.doc.Connections[i+1:]...)
			c.addEvent(events.NewConnectionDeleted(c.workspaceID, id, c.now()))
			return nil
		}
	}
	return fmt.Errorf("%w: %s", pkgerrors.ErrConnectionNotFound, id)
}

// Zones

// AddZone inserts a zone. Bounds are floored at the minimum size and the
// manual bounds default to the bounds.
func (c *Canvas) AddZone(zone *entities.Zone) error {
	if zone == nil || zone.ID.IsZero() {
		return pkgerrors.NewValidationError("zone id is required")
	}
	if _, exists := c.doc.Zone(zone.ID); exists {
		return fmt.Errorf("%w: %s", pkgerrors.ErrDuplicateZone, zone.ID)
	}
	if !zone.Bounds.IsFinite() || !zone.ManualBounds.IsFinite() {
		return fmt.Errorf("%w: zone bounds", pkgerrors.ErrInvalidGeometry)
	}
	if !zone.ParentZoneID.IsZero() {
		if _, ok := c.doc.Zone(zone.ParentZoneID); !ok {
			return fmt.Errorf("%w: %s", pkgerrors.ErrParentZoneNotFound, zone.ParentZoneID)
		}
	}

	zone.Bounds = c.autofit.FloorSize(zone.Bounds)
	if zone.ManualBounds == (valueobjects.Rect{}) {
		zone.ManualBounds = zone.Bounds
	}
	zone.ManualBounds = c.autofit.FloorSize(zone.ManualBounds)
	if zone.CreatedAt == 0 {
		zone.CreatedAt = c.nowMillis()
	}

	c.doc.Zones = append(c.doc.Zones, zone)
	c.addEvent(events.NewZoneAdded(c.workspaceID, zone.ID, zone.ParentZoneID, c.now()))
	c.fit()
	return nil
}

// CreateZone adds a minimum-size zone. Inside a parent it is inset from the
// parent's top-left corner, kept within the parent when possible; at the
// root it is centered on center.
func (c *Canvas) CreateZone(id valueobjects.ZoneID, title string, parentID valueobjects.ZoneID, center valueobjects.Point) (*entities.Zone, error) {
	minW, minH := c.cfg.MinZoneWidth(), c.cfg.MinZoneHeight()
	bounds := valueobjects.Rect{X: center.X - minW/2, Y: center.Y - minH/2, Width: minW, Height: minH}

	if !parentID.IsZero() {
		parent, ok := c.doc.Zone(parentID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", pkgerrors.ErrParentZoneNotFound, parentID)
		}
		pb := parent.Bounds
		inset := c.cfg.NestedZoneInset
		bounds.X = max(pb.X, min(pb.X+inset, pb.Right()-minW))
		bounds.Y = max(pb.Y, min(pb.Y+inset, pb.Bottom()-minH))
	}

	zone := &entities.Zone{
		ID:           id,
		Title:        title,
		Bounds:       bounds,
		ManualBounds: bounds,
		ParentZoneID: parentID,
	}
	if err := c.AddZone(zone); err != nil {
		return nil, err
	}
	return zone, nil
}

// ZonePatch lists the zone fields to change; nil fields are left alone.
// A zone's parent is fixed at creation.
type ZonePatch struct {
	Title *string
}

// UpdateZone edits zone metadata
func (c *Canvas) UpdateZone(id valueobjects.ZoneID, patch ZonePatch) error {
	zone, ok := c.doc.Zone(id)
	if !ok {
		return fmt.Errorf("%w: %s", pkgerrors.ErrZoneNotFound, id)
	}

	var fields []string
	if patch.Title != nil {
		zone.Title = *patch.Title
		fields = append(fields, "title")
	}

	c.addEvent(events.NewZoneUpdated(c.workspaceID, id, fields, c.now()))
	return nil
}

// DeleteZone removes the zone with all of its descendants. Notes that
// belonged to any removed zone are detached, not deleted.
func (c *Canvas) DeleteZone(id valueobjects.ZoneID) error {
	if _, ok := c.doc.Zone(id); !ok {
		return fmt.Errorf("%w: %s", pkgerrors.ErrZoneNotFound, id)
	}

	removed := c.doc.Descendants(id)
	removing := make(map[valueobjects.ZoneID]bool, len(removed))
	for _, zid := range removed {
		removing[zid] = true
	}

	kept := c.doc.Zones[:0]
	for _, z := range c.doc.Zones {
		if !removing[z.ID] {
			kept = append(kept, z)
		}
	}
	c.doc.Zones = kept

	var detached []valueobjects.NoteID
	for _, n := range c.doc.Notes {
		if removing[n.ZoneID] {
			n.ZoneID = ""
			detached = append(detached, n.ID)
		}
	}

	c.addEvent(events.NewZoneDeleted(c.workspaceID, removed, detached, c.now()))
	c.fit()
	return nil
}

// MoveZone translates the zone, its descendants and all of their notes by
// delta, keeping relative positions.
func (c *Canvas) MoveZone(id valueobjects.ZoneID, delta valueobjects.Point) error {
	if _, ok := c.doc.Zone(id); !ok {
		return fmt.Errorf("%w: %s", pkgerrors.ErrZoneNotFound, id)
	}
	if !delta.IsFinite() {
		return fmt.Errorf("%w: zone delta", pkgerrors.ErrInvalidGeometry)
	}

	moving := make(map[valueobjects.ZoneID]bool)
	for _, zid := range c.doc.Descendants(id) {
		moving[zid] = true
	}
	for _, z := range c.doc.Zones {
		if moving[z.ID] {
			z.Bounds = z.Bounds.Translate(delta)
			z.ManualBounds = z.ManualBounds.Translate(delta)
		}
	}
	for _, n := range c.doc.Notes {
		if moving[n.ZoneID] {
			n.Position = n.Position.Add(delta)
		}
	}

	c.addEvent(events.NewZoneMoved(c.workspaceID, id, delta, c.now()))
	c.fit()
	return nil
}

// ResizeZone sets new manual bounds, floored at the minimum size, and clamps
// the zone's own notes into the new interior.
func (c *Canvas) ResizeZone(id valueobjects.ZoneID, bounds valueobjects.Rect) error {
	zone, ok := c.doc.Zone(id)
	if !ok {
		return fmt.Errorf("%w: %s", pkgerrors.ErrZoneNotFound, id)
	}
	if !bounds.IsFinite() {
		return fmt.Errorf("%w: zone bounds", pkgerrors.ErrInvalidGeometry)
	}

	bounds = c.autofit.FloorSize(bounds)
	zone.Bounds = bounds
	zone.ManualBounds = bounds
	for _, n := range c.doc.Notes {
		if n.ZoneID == id {
			n.Position = c.autofit.ClampNote(n.Position, bounds)
		}
	}

	c.addEvent(events.NewZoneResized(c.workspaceID, id, bounds, c.now()))
	c.fit()
	return nil
}

// Viewport and background

// ViewportPatch shallow-merges into the viewport
type ViewportPatch struct {
	X    *float64
	Y    *float64
	Zoom *float64
}

// UpdateViewport merges patch. Non-finite values and non-positive zoom are
// rejected; zoom is clamped to the configured range.
func (c *Canvas) UpdateViewport(patch ViewportPatch) error {
	v := c.doc.Viewport
	if patch.X != nil {
		v.X = *patch.X
	}
	if patch.Y != nil {
		v.Y = *patch.Y
	}
	if patch.Zoom != nil {
		v.Zoom = *patch.Zoom
	}
	if !v.IsValid() {
		return fmt.Errorf("%w: viewport", pkgerrors.ErrInvalidGeometry)
	}
	c.doc.Viewport = v.WithClampedZoom(c.cfg.MinZoom, c.cfg.MaxZoom)
	c.addEvent(events.NewViewportChanged(c.workspaceID, c.doc.Viewport, c.now()))
	return nil
}

// SetViewport replaces the whole viewport
func (c *Canvas) SetViewport(v valueobjects.Viewport) error {
	return c.UpdateViewport(ViewportPatch{X: &v.X, Y: &v.Y, Zoom: &v.Zoom})
}

// BackgroundPatch shallow-merges into the background transform
type BackgroundPatch struct {
	X     *float64
	Y     *float64
	Scale *float64
}

// UpdateBackgroundTransform merges patch, clamping the scale
func (c *Canvas) UpdateBackgroundTransform(patch BackgroundPatch) error {
	t := c.doc.BackgroundTransform
	if patch.X != nil {
		t.X = *patch.X
	}
	if patch.Y != nil {
		t.Y = *patch.Y
	}
	if patch.Scale != nil {
		t.Scale = *patch.Scale
	}
	if !t.IsValid() {
		return fmt.Errorf("%w: background transform", pkgerrors.ErrInvalidGeometry)
	}
	t.Scale = valueobjects.Clamp(t.Scale, c.cfg.MinBackgroundScale, c.cfg.MaxBackgroundScale)
	c.doc.BackgroundTransform = t
	c.addEvent(events.NewBackgroundChanged(c.workspaceID, t, c.doc.BackgroundImage != nil, c.now()))
	return nil
}

// SetBackgroundImage replaces the background image; nil removes it
func (c *Canvas) SetBackgroundImage(img *entities.BackgroundImage) error {
	if img != nil && img.DataURL == "" {
		return pkgerrors.NewValidationError("background image data url is required")
	}
	c.doc.BackgroundImage = img
	c.addEvent(events.NewBackgroundChanged(c.workspaceID, c.doc.BackgroundTransform, img != nil, c.now()))
	return nil
}

// BackgroundSize returns the displayed size of the background image
func (c *Canvas) BackgroundSize() valueobjects.Size {
	w, h := c.doc.BackgroundImage.BaseSize(c.cfg.DefaultBackgroundWidth, c.cfg.DefaultBackgroundHeight)
	s := c.doc.BackgroundTransform.Scale
	return valueobjects.Size{Width: w * s, Height: h * s}
}

// Events

// GetUncommittedEvents returns all uncommitted domain events
func (c *Canvas) GetUncommittedEvents() []events.DomainEvent {
	out := make([]events.DomainEvent, len(c.events))
	copy(out, c.events)
	return out
}

// MarkEventsAsCommitted clears all uncommitted events
func (c *Canvas) MarkEventsAsCommitted() {
	c.events = []events.DomainEvent{}
}

// Private helper methods

func (c *Canvas) addEvent(event events.DomainEvent) {
	c.events = append(c.events, event)
}

func (c *Canvas) nowMillis() int64 {
	return c.now().UnixMilli()
}

func (c *Canvas) noteIndex(id valueobjects.NoteID) int {
	for i, n := range c.doc.Notes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func (c *Canvas) reassignZone(note *entities.Note) {
	next := c.containment.PickZoneIDForNotePosition(c.doc.Zones, note.Position)
	if next != note.ZoneID {
		c.addEvent(events.NewNoteMovedBetweenZones(c.workspaceID, note.ID, note.ZoneID, next, c.now()))
		note.ZoneID = next
	}
}

// fit recomputes effective zone bounds after a geometry change
func (c *Canvas) fit() {
	if c.cfg.AutoFit {
		c.autofit.Apply(c.doc.Zones, c.doc.Notes)
	}
}
