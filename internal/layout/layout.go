package layout

import (
	"errors"
	"fmt"
)

// Mode selects how many panes each screen half shows.
type Mode string

const (
	ModeSplit Mode = "split"
	ModeQuad  Mode = "quad"
)

// Side is one screen half.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Lane is one of the four sub-panes of the quad layout.
type Lane string

const (
	LaneNone              Lane = "none"
	LaneSourceEditor      Lane = "source-editor"
	LaneSourcePreview     Lane = "source-preview"
	LaneTranslatedEditor  Lane = "translated-editor"
	LaneTranslatedPreview Lane = "translated-preview"
)

// ErrLaneSide is returned when a lane is addressed on the wrong half.
var ErrLaneSide = errors.New("lane does not belong to side")

// Lanes returns the two lanes of side, top first.
func Lanes(side Side) [2]Lane {
	if side == SideLeft {
		return [2]Lane{LaneSourceEditor, LaneSourcePreview}
	}
	return [2]Lane{LaneTranslatedEditor, LaneTranslatedPreview}
}

// SideOf returns the half a lane lives on.
func SideOf(lane Lane) (Side, bool) {
	switch lane {
	case LaneSourceEditor, LaneSourcePreview:
		return SideLeft, true
	case LaneTranslatedEditor, LaneTranslatedPreview:
		return SideRight, true
	default:
		return "", false
	}
}

// State tracks the layout mode and the expanded lane of each half.
type State struct {
	mode          Mode
	expandedLeft  Lane
	expandedRight Lane
}

// New returns the initial layout: split mode, nothing expanded.
func New() *State {
	s := &State{}
	s.Reset()
	return s
}

// Reset returns to split mode and collapses both halves.
func (s *State) Reset() {
	s.mode = ModeSplit
	s.expandedLeft = LaneNone
	s.expandedRight = LaneNone
}

func (s *State) Mode() Mode { return s.mode }

// SetMode switches modes. Expansions are kept so re-entering quad restores them.
func (s *State) SetMode(mode Mode) {
	if mode != ModeQuad {
		mode = ModeSplit
	}
	s.mode = mode
}

// EnterQuad switches to quad mode with both halves collapsed.
func (s *State) EnterQuad() {
	s.mode = ModeQuad
	s.expandedLeft = LaneNone
	s.expandedRight = LaneNone
}

// Expanded returns the expanded lane of side. Split mode always reports LaneNone.
func (s *State) Expanded(side Side) Lane {
	if s.mode != ModeQuad {
		return LaneNone
	}
	return s.stored(side)
}

// Toggle collapses lane if it is the expanded one on side, otherwise expands it.
// The other half is never touched.
func (s *State) Toggle(lane Lane, side Side) error {
	if err := checkLane(lane, side); err != nil {
		return err
	}
	if s.stored(side) == lane {
		s.set(side, LaneNone)
		return nil
	}
	s.set(side, lane)
	return nil
}

// Expand unconditionally expands lane on side.
func (s *State) Expand(lane Lane, side Side) error {
	if err := checkLane(lane, side); err != nil {
		return err
	}
	s.set(side, lane)
	return nil
}

// Collapse clears the expansion of side.
func (s *State) Collapse(side Side) {
	s.set(side, LaneNone)
}

// Snapshot captures the full state so it can be restored later.
func (s *State) Snapshot() State {
	return *s
}

// Restore replaces the state with a snapshot.
func (s *State) Restore(snapshot State) {
	*s = snapshot
}

func (s *State) String() string {
	return fmt.Sprintf("%s left=%s right=%s", s.mode, s.Expanded(SideLeft), s.Expanded(SideRight))
}

func (s *State) stored(side Side) Lane {
	if side == SideLeft {
		return s.expandedLeft
	}
	return s.expandedRight
}

func (s *State) set(side Side, lane Lane) {
	if side == SideLeft {
		s.expandedLeft = lane
		return
	}
	s.expandedRight = lane
}

func checkLane(lane Lane, side Side) error {
	owner, ok := SideOf(lane)
	if !ok || owner != side {
		return fmt.Errorf("%w: %s on %s", ErrLaneSide, lane, side)
	}
	return nil
}
