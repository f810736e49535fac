package layout

// Size describes how a pane is drawn inside its half.
type Size int

const (
	SizeNormal Size = iota
	SizeFull
	SizeStrip
)

// Pane is one visible region of a screen half.
type Pane struct {
	Lane Lane
	Size Size
}

// Panes applies the rendering rule to side. In split mode each half shows one
// fixed pane. In quad mode both lanes share the half unless one is expanded,
// in which case the other collapses to a strip.
func (s *State) Panes(side Side) []Pane {
	if s.mode != ModeQuad {
		if side == SideLeft {
			return []Pane{{Lane: LaneSourceEditor, Size: SizeFull}}
		}
		return []Pane{{Lane: LaneTranslatedPreview, Size: SizeFull}}
	}
	lanes := Lanes(side)
	expanded := s.stored(side)
	if expanded == LaneNone {
		return []Pane{{Lane: lanes[0], Size: SizeNormal}, {Lane: lanes[1], Size: SizeNormal}}
	}
	panes := make([]Pane, 0, 2)
	for _, lane := range lanes {
		size := SizeStrip
		if lane == expanded {
			size = SizeFull
		}
		panes = append(panes, Pane{Lane: lane, Size: size})
	}
	return panes
}

// Allocate splits total rows among panes. Strips get one row, full panes take
// the remainder and normal panes share it equally.
func Allocate(total int, panes []Pane) []int {
	heights := make([]int, len(panes))
	if len(panes) == 0 || total <= 0 {
		return heights
	}
	remaining := total
	growable := 0
	for i, p := range panes {
		if p.Size == SizeStrip {
			heights[i] = 1
			remaining--
			continue
		}
		growable++
	}
	if remaining < 0 {
		remaining = 0
	}
	if growable == 0 {
		return heights
	}
	share := remaining / growable
	extra := remaining % growable
	for i, p := range panes {
		if p.Size == SizeStrip {
			continue
		}
		heights[i] = share
		if extra > 0 {
			heights[i]++
			extra--
		}
	}
	return heights
}
