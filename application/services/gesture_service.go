package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"nodal/domain/core/aggregates"
	"nodal/domain/core/entities"
	"nodal/domain/core/valueobjects"
	"nodal/domain/gesture"
	pkgerrors "nodal/pkg/errors"
)

// DragResult is the committed outcome of a drag
type DragResult struct {
	Mode     gesture.Mode     `json:"mode"`
	Proposal gesture.Proposal `json:"proposal"`
	Frames   int              `json:"frames"`
}

// TapResult reports a click and, on a double tap, the note it created
type TapResult struct {
	DoubleTap bool           `json:"doubleTap"`
	Note      *entities.Note `json:"note,omitempty"`
}

// PinchResult is the view state after a pinch
type PinchResult struct {
	Viewport            valueobjects.Viewport            `json:"viewport"`
	BackgroundTransform valueobjects.BackgroundTransform `json:"backgroundTransform"`
}

// GestureService applies pointer input to workspace canvases
type GestureService struct {
	workspaces *WorkspaceService
	logger     *zap.Logger

	mu   sync.Mutex
	taps map[valueobjects.WorkspaceID]*gesture.DoubleTapDetector
}

// NewGestureService creates a new gesture service
func NewGestureService(workspaces *WorkspaceService, logger *zap.Logger) *GestureService {
	return &GestureService{
		workspaces: workspaces,
		logger:     logger,
		taps:       make(map[valueobjects.WorkspaceID]*gesture.DoubleTapDetector),
	}
}

// Drag replays a whole drag: the gesture is classified against the current
// canvas, every frame is evaluated and the last proposal is committed. Each
// frame carries the cumulative screen movement since the drag began.
func (s *GestureService) Drag(
	ctx context.Context,
	workspaceID valueobjects.WorkspaceID,
	target gesture.Target,
	frames []valueobjects.Point,
) (*DragResult, error) {
	if len(frames) == 0 {
		return nil, pkgerrors.NewValidationError("a drag needs at least one frame")
	}

	result := &DragResult{Frames: len(frames)}
	err := s.workspaces.Mutate(ctx, workspaceID, "gesture_drag", func(c *aggregates.Canvas) error {
		session, err := gesture.Begin(target, c.Document(), c.Config())
		if err != nil {
			return err
		}
		for _, movement := range frames[:len(frames)-1] {
			if _, err := session.Move(movement); err != nil {
				return err
			}
		}
		final, err := session.End(frames[len(frames)-1])
		if err != nil {
			return err
		}
		result.Mode = session.Mode()
		result.Proposal = final
		return gesture.Commit(c, final)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Drag committed",
		zap.String("workspaceID", workspaceID.String()),
		zap.String("mode", string(result.Mode)),
		zap.Int("frames", result.Frames))
	return result, nil
}

// Wheel applies one wheel tick to the viewport
func (s *GestureService) Wheel(ctx context.Context, workspaceID valueobjects.WorkspaceID, ev gesture.WheelEvent) (valueobjects.Viewport, error) {
	var out valueobjects.Viewport
	err := s.workspaces.Mutate(ctx, workspaceID, "gesture_wheel", func(c *aggregates.Canvas) error {
		p, err := gesture.Wheel(c.Document().Viewport, ev, c.Config())
		if err != nil {
			return err
		}
		if err := gesture.Commit(c, p); err != nil {
			return err
		}
		out = c.Document().Viewport
		return nil
	})
	return out, err
}

// Pinch applies a pinch to the viewport, or to the background when it is
// selected.
func (s *GestureService) Pinch(ctx context.Context, workspaceID valueobjects.WorkspaceID, ev gesture.PinchEvent) (*PinchResult, error) {
	var out *PinchResult
	err := s.workspaces.Mutate(ctx, workspaceID, "gesture_pinch", func(c *aggregates.Canvas) error {
		doc := c.Document()
		p, err := gesture.Pinch(doc.Viewport, doc.BackgroundTransform, ev, c.Config())
		if err != nil {
			return err
		}
		if err := gesture.Commit(c, p); err != nil {
			return err
		}
		out = &PinchResult{Viewport: doc.Viewport, BackgroundTransform: doc.BackgroundTransform}
		return nil
	})
	return out, err
}

// Tap records a click on empty canvas at a screen point. The second click
// inside the double tap window creates a note at the matching world point.
func (s *GestureService) Tap(ctx context.Context, workspaceID valueobjects.WorkspaceID, at time.Time, screen valueobjects.Point) (*TapResult, error) {
	if !screen.IsFinite() {
		return nil, pkgerrors.ErrInvalidGeometry
	}
	if !s.tap(workspaceID, at) {
		return &TapResult{}, nil
	}
	note, err := s.CreateNoteAtScreen(ctx, workspaceID, screen)
	if err != nil {
		return nil, err
	}
	return &TapResult{DoubleTap: true, Note: note}, nil
}

// CreateNoteAtScreen creates an empty note whose top-left corner is under
// the given screen point
func (s *GestureService) CreateNoteAtScreen(ctx context.Context, workspaceID valueobjects.WorkspaceID, screen valueobjects.Point) (*entities.Note, error) {
	var note *entities.Note
	err := s.workspaces.Mutate(ctx, workspaceID, "create_note", func(c *aggregates.Canvas) error {
		world := c.Document().Viewport.ScreenToWorld(screen)
		created, err := c.CreateNoteAt(valueobjects.NewNoteID(), world)
		if err != nil {
			return err
		}
		note = created.Clone()
		return nil
	})
	return note, err
}

// CancelTap drops a pending first click, e.g. when the next click lands on
// a note or while a modal is open
func (s *GestureService) CancelTap(workspaceID valueobjects.WorkspaceID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.taps[workspaceID]; ok {
		d.Reset()
	}
}

func (s *GestureService) tap(workspaceID valueobjects.WorkspaceID, at time.Time) bool {
	window := s.workspaces.Config().DoubleTapWindow

	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.taps[workspaceID]
	if !ok {
		d = gesture.NewDoubleTapDetector(window)
		s.taps[workspaceID] = d
	}
	return d.Tap(at)
}
