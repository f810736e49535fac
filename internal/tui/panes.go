package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/mdtranslate/internal/chunk"
	"github.com/csheth/mdtranslate/internal/layout"
)

// paneBox is one pane placed on screen. width and height include the border.
type paneBox struct {
	lane   layout.Lane
	size   layout.Size
	width  int
	height int
}

// innerWidth is the text width inside the border.
func (p paneBox) innerWidth() int {
	return max(p.width-2, 1)
}

// innerHeight is the number of content rows below the pane title.
func (p paneBox) innerHeight() int {
	return max(p.height-3, 1)
}

// arrangePanes places the panes of both halves in a body of width x height.
func arrangePanes(state *layout.State, width, height int) (left, right []paneBox) {
	leftWidth := max(width/2, minPaneWidth)
	rightWidth := max(width-width/2, minPaneWidth)
	height = max(height, minPaneHeight)
	return arrangeSide(state, layout.SideLeft, leftWidth, height), arrangeSide(state, layout.SideRight, rightWidth, height)
}

func arrangeSide(state *layout.State, side layout.Side, width, height int) []paneBox {
	panes := state.Panes(side)
	heights := layout.Allocate(height, panes)
	boxes := make([]paneBox, len(panes))
	for i, p := range panes {
		boxes[i] = paneBox{lane: p.Lane, size: p.Size, width: width, height: heights[i]}
	}
	return boxes
}

// laneCache holds the last text rendered for a lane so glamour only runs when
// the content or width changed.
type laneCache struct {
	content  string
	width    int
	rendered string
}

func isPreview(lane layout.Lane) bool {
	return lane == layout.LaneSourcePreview || lane == layout.LaneTranslatedPreview
}

// laneText renders the content of lane at width.
func (m *model) laneText(lane layout.Lane, width int) string {
	content := m.snapshot.SourceContent
	if lane == layout.LaneTranslatedEditor || lane == layout.LaneTranslatedPreview {
		content = m.snapshot.TranslatedContent
	}
	cached := m.laneCache[lane]
	if cached.content == content && cached.width == width && cached.rendered != "" {
		return cached.rendered
	}
	var rendered string
	switch {
	case strings.TrimSpace(content) == "":
		rendered = helperStyle.Render(m.emptyLaneHint(lane))
	case isPreview(lane):
		rendered = m.markdown.Render(content, width)
	default:
		rendered = wordwrap.String(content, width)
	}
	m.laneCache[lane] = laneCache{content: content, width: width, rendered: rendered}
	return rendered
}

func (m *model) emptyLaneHint(lane layout.Lane) string {
	switch lane {
	case layout.LaneSourceEditor, layout.LaneSourcePreview:
		return "Press o to open a Markdown, text or PDF file."
	default:
		if m.snapshot.IsTranslating {
			return "Waiting for the first chunk…"
		}
		return "Press t to translate."
	}
}

// syncViewports resizes the lane viewports to the current arrangement and
// refreshes their content.
func (m *model) syncViewports() {
	left, right := arrangePanes(&m.layout, m.width, m.bodyHeight())
	for _, box := range append(left, right...) {
		vp, ok := m.lanes[box.lane]
		if !ok {
			fresh := viewport.New(box.innerWidth(), box.innerHeight())
			vp = &fresh
			m.lanes[box.lane] = vp
		}
		if box.size == layout.SizeStrip {
			continue
		}
		vp.Width = box.innerWidth()
		vp.Height = box.innerHeight()
		vp.SetContent(m.laneText(box.lane, box.innerWidth()))
	}
	if !m.laneVisible(m.focused) {
		m.focused = m.visibleLanes()[0]
	}
}

// visibleLanes lists the lanes drawn at full or normal size, in focus order.
func (m *model) visibleLanes() []layout.Lane {
	left, right := arrangePanes(&m.layout, m.width, m.bodyHeight())
	visible := map[layout.Lane]bool{}
	for _, box := range append(left, right...) {
		if box.size != layout.SizeStrip {
			visible[box.lane] = true
		}
	}
	lanes := make([]layout.Lane, 0, len(visible))
	for _, lane := range laneOrder {
		if visible[lane] {
			lanes = append(lanes, lane)
		}
	}
	return lanes
}

func (m *model) laneVisible(lane layout.Lane) bool {
	for _, candidate := range m.visibleLanes() {
		if candidate == lane {
			return true
		}
	}
	return false
}

func (m *model) focusNext() {
	lanes := m.visibleLanes()
	for i, lane := range lanes {
		if lane == m.focused {
			m.focused = lanes[(i+1)%len(lanes)]
			return
		}
	}
	m.focused = lanes[0]
}

func (m *model) renderWorkspace() string {
	left, right := arrangePanes(&m.layout, m.width, m.bodyHeight())
	return lipgloss.JoinHorizontal(lipgloss.Top, m.renderSide(left), m.renderSide(right))
}

func (m *model) renderSide(boxes []paneBox) string {
	parts := make([]string, 0, len(boxes))
	for _, box := range boxes {
		if box.size == layout.SizeStrip {
			parts = append(parts, m.renderStrip(box))
			continue
		}
		parts = append(parts, m.renderPane(box))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *model) renderPane(box paneBox) string {
	style := paneStyle
	if box.lane == m.focused {
		style = focusedPaneStyle
	}
	title := paneTitleStyle.Render(truncate.StringWithTail(m.paneTitle(box.lane), uint(box.innerWidth()), "…"))
	body := ""
	if vp, ok := m.lanes[box.lane]; ok {
		body = vp.View()
	}
	return style.
		Width(box.innerWidth()).
		Height(box.height - 2).
		MaxHeight(box.height).
		Render(title + "\n" + body)
}

// renderStrip draws a collapsed lane as a single row naming the lane and the
// key that expands it.
func (m *model) renderStrip(box paneBox) string {
	label := fmt.Sprintf("%s %s", laneKeyFor(box.lane), laneTitles[box.lane])
	return stripStyle.Width(box.width).MaxHeight(1).Render(truncate.StringWithTail(label, uint(max(box.width-2, 1)), "…"))
}

func (m *model) paneTitle(lane layout.Lane) string {
	title := fmt.Sprintf("%s %s", laneKeyFor(lane), laneTitles[lane])
	if lane == layout.LaneTranslatedEditor || lane == layout.LaneTranslatedPreview {
		if p := m.progress(); p.Total > 0 {
			title += " " + p.String()
		}
	}
	if m.layout.Expanded(sideOf(lane)) == lane {
		title += " (expanded)"
	}
	return title
}

func (m *model) progress() chunk.Progress {
	var p chunk.Progress
	for _, c := range m.snapshot.Chunks {
		p.Total++
		if c.Status == chunk.StatusCompleted {
			p.Completed++
		}
	}
	return p
}

func laneKeyFor(lane layout.Lane) string {
	for k, l := range laneKeys {
		if l == lane {
			return "[" + k + "]"
		}
	}
	return ""
}

func sideOf(lane layout.Lane) layout.Side {
	side, _ := layout.SideOf(lane)
	return side
}
