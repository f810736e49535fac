package tui

import "github.com/csheth/mdtranslate/internal/layout"

type stage int

const (
	stageUpload stage = iota
	stageWorkspace
	stageHistory
	stageSettings
	stageExport
)

func (s stage) String() string {
	switch s {
	case stageUpload:
		return "upload"
	case stageWorkspace:
		return "workspace"
	case stageHistory:
		return "history"
	case stageSettings:
		return "settings"
	case stageExport:
		return "export"
	default:
		return "unknown"
	}
}

const heroTagline = "Chunked Markdown translation, side by side."

const (
	minPaneWidth  = 20
	minPaneHeight = 3
	// rows taken by the header, progress line, status line and help.
	workspaceChrome = 6
)

// laneKeys maps the number keys to the lane they toggle.
var laneKeys = map[string]layout.Lane{
	"1": layout.LaneSourceEditor,
	"2": layout.LaneSourcePreview,
	"3": layout.LaneTranslatedEditor,
	"4": layout.LaneTranslatedPreview,
}

var laneTitles = map[layout.Lane]string{
	layout.LaneSourceEditor:      "Source",
	layout.LaneSourcePreview:     "Source preview",
	layout.LaneTranslatedEditor:  "Translation",
	layout.LaneTranslatedPreview: "Translation preview",
}

// laneOrder is the focus cycle order.
var laneOrder = []layout.Lane{
	layout.LaneSourceEditor,
	layout.LaneSourcePreview,
	layout.LaneTranslatedEditor,
	layout.LaneTranslatedPreview,
}
