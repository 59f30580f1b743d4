package gesture

import (
	"errors"

	"nodal/domain/config"
	"nodal/domain/core/aggregates"
	"nodal/domain/core/valueobjects"
)

// ErrSessionEnded is returned when a frame arrives after the gesture ended
var ErrSessionEnded = errors.New("gesture session already ended")

// Session drives one drag from first to last frame
type Session struct {
	state State
	last  Proposal
	ended bool
}

// Begin classifies the gesture and returns a session for its frames
func Begin(target Target, doc *aggregates.Document, cfg *config.DomainConfig) (*Session, error) {
	state, err := Classify(target, doc, cfg)
	if err != nil {
		return nil, err
	}
	return &Session{state: state, last: Proposal{Mode: state.Mode()}}, nil
}

// Mode returns the classification made at Begin
func (s *Session) Mode() Mode {
	return s.state.Mode()
}

// State exposes the gesture memo
func (s *Session) State() State {
	return s.state
}

// Move handles an intermediate frame. movement is cumulative since Begin.
func (s *Session) Move(movement valueobjects.Point) (Proposal, error) {
	if s.ended {
		return Proposal{}, ErrSessionEnded
	}
	p, err := s.state.Update(movement)
	if err != nil {
		return Proposal{}, err
	}
	s.last = p
	return p, nil
}

// End handles the final frame and returns the proposal to commit
func (s *Session) End(movement valueobjects.Point) (Proposal, error) {
	p, err := s.Move(movement)
	if err != nil {
		return Proposal{}, err
	}
	s.ended = true
	return p, nil
}

// Commit applies a proposal through the canvas operations so every
// invariant of the store is enforced on the final state.
func Commit(c *aggregates.Canvas, p Proposal) error {
	switch p.Mode {
	case ModeSkip:
		return nil
	case ModeZoneMove:
		if p.Delta == (valueobjects.Point{}) {
			return nil
		}
		return c.MoveZone(p.ZoneID, p.Delta)
	case ModeZoneResize:
		bounds, ok := p.ZoneBounds[p.ZoneID]
		if !ok {
			return nil
		}
		return c.ResizeZone(p.ZoneID, bounds)
	}

	if p.Viewport != nil {
		if err := c.SetViewport(*p.Viewport); err != nil {
			return err
		}
	}
	if p.Background != nil {
		t := *p.Background
		return c.UpdateBackgroundTransform(aggregates.BackgroundPatch{X: &t.X, Y: &t.Y, Scale: &t.Scale})
	}
	return nil
}
