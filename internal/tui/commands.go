package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/mdtranslate/internal/api"
	"github.com/csheth/mdtranslate/internal/document"
	"github.com/csheth/mdtranslate/internal/orchestrator"
)

// SettingsStore reads and writes the service settings.
type SettingsStore interface {
	GetSettings(ctx context.Context) (api.Settings, error)
	SaveSettings(ctx context.Context, settings api.Settings) error
}

type changeMsg struct{}

type openResultMsg struct {
	source document.Source
	err    error
}

type translateResultMsg struct {
	title string
	err   error
}

type historyResultMsg struct {
	documents []api.DocumentSummary
	err       error
}

type restoreResultMsg struct {
	id  string
	err error
}

type deleteResultMsg struct {
	id  string
	err error
}

type settingsResultMsg struct {
	settings api.Settings
	saved    bool
	err      error
}

type exportResultMsg struct {
	kind   document.Kind
	path   string
	copied bool
	err    error
}

// waitForChange blocks until the orchestrator reports a change. The model
// re-arms it after every delivery.
func waitForChange(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return changeMsg{}
	}
}

func openSourceJob(location string) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		source, err := document.Load(ctx, location)
		return openResultMsg{source: source, err: err}, err
	}
}

func translateJob(o *orchestrator.Orchestrator, source string, direction api.Direction, title string) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		err := o.Start(ctx, source, direction, title)
		return translateResultMsg{title: title, err: err}, err
	}
}

func historyJob(o *orchestrator.Orchestrator) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		documents, err := o.ListDocuments(ctx)
		return historyResultMsg{documents: documents, err: err}, err
	}
}

func restoreJob(o *orchestrator.Orchestrator, id string) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		err := o.LoadDocument(ctx, id)
		return restoreResultMsg{id: id, err: err}, err
	}
}

func deleteJob(o *orchestrator.Orchestrator, id string) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		err := o.DeleteDocument(ctx, id)
		return deleteResultMsg{id: id, err: err}, err
	}
}

func loadSettingsJob(store SettingsStore) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		settings, err := store.GetSettings(ctx)
		return settingsResultMsg{settings: settings, err: err}, err
	}
}

func saveSettingsJob(store SettingsStore, settings api.Settings) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		err := store.SaveSettings(ctx, settings)
		return settingsResultMsg{settings: settings, saved: err == nil, err: err}, err
	}
}

func exportJob(dir string, kind document.Kind, source, translated string) jobRunner {
	return func(context.Context) (tea.Msg, error) {
		path, err := document.Write(dir, kind, source, translated)
		return exportResultMsg{kind: kind, path: path, err: err}, err
	}
}

func copyJob(kind document.Kind, source, translated string) jobRunner {
	return func(context.Context) (tea.Msg, error) {
		err := document.Copy(kind, source, translated)
		return exportResultMsg{kind: kind, copied: err == nil, err: err}, err
	}
}
