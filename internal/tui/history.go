package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/csheth/mdtranslate/internal/api"
)

type historyItem struct {
	summary api.DocumentSummary
}

func (i historyItem) Title() string {
	if i.summary.Title == "" {
		return i.summary.ID
	}
	return i.summary.Title
}

func (i historyItem) Description() string {
	state := "not translated"
	if i.summary.IsTranslated {
		state = "translated"
	}
	updated := "unknown"
	if !i.summary.UpdatedAt.IsZero() {
		updated = i.summary.UpdatedAt.Local().Format("2006-01-02 15:04")
	}
	return fmt.Sprintf("%s • %s • %s", i.summary.Status, state, updated)
}

func (i historyItem) FilterValue() string { return i.summary.Title }

func newHistoryList() list.Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "History"
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	return l
}

func historyItems(documents []api.DocumentSummary) []list.Item {
	items := make([]list.Item, len(documents))
	for i, doc := range documents {
		items[i] = historyItem{summary: doc}
	}
	return items
}

func (m *model) selectedHistoryID() (string, bool) {
	item, ok := m.history.SelectedItem().(historyItem)
	if !ok {
		return "", false
	}
	return item.summary.ID, true
}
