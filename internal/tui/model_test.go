package tui

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/mdtranslate/internal/api"
	"github.com/csheth/mdtranslate/internal/document"
	"github.com/csheth/mdtranslate/internal/layout"
	"github.com/csheth/mdtranslate/internal/orchestrator"
	"github.com/csheth/mdtranslate/internal/stream"
)

type idleConn struct {
	closed chan struct{}
	once   sync.Once
}

func (c *idleConn) ReadMessage() ([]byte, error) {
	<-c.closed
	return nil, net.ErrClosed
}

func (c *idleConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

type idleDialer struct{}

func (idleDialer) Dial(ctx context.Context, documentID, connectionID string) (stream.Conn, error) {
	return &idleConn{closed: make(chan struct{})}, nil
}

type eofConn struct{}

func (eofConn) ReadMessage() ([]byte, error) { return nil, io.EOF }
func (eofConn) Close() error                 { return nil }

type eofDialer struct{}

func (eofDialer) Dial(ctx context.Context, documentID, connectionID string) (stream.Conn, error) {
	return eofConn{}, nil
}

type fakeSubmitter struct {
	err error
}

func (f fakeSubmitter) Submit(ctx context.Context, req api.SubmitRequest) (api.Manifest, error) {
	if f.err != nil {
		return api.Manifest{}, f.err
	}
	return api.Manifest{DocumentID: "doc-1", Chunks: []api.WireChunk{
		{Index: 0, SourceText: "Hello\n", Status: "pending"},
		{Index: 1, SourceText: "World", Status: "pending"},
	}}, nil
}

func newTestModel(t *testing.T, cfg orchestrator.Config) *model {
	t.Helper()
	if cfg.Submitter == nil {
		cfg.Submitter = fakeSubmitter{}
	}
	if cfg.Dialer == nil {
		cfg.Dialer = idleDialer{}
	}
	o := orchestrator.New(cfg)
	t.Cleanup(func() { _ = o.Close() })
	teaModel, ok := New(Config{Orchestrator: o, Theme: "notty", ExportDir: t.TempDir()}).(*model)
	if !ok {
		t.Fatalf("expected *model, got %T", teaModel)
	}
	teaModel.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return teaModel
}

func keyPress(value string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(value)}
}

func openSource(t *testing.T, m *model, content string) {
	t.Helper()
	m.Update(openResultMsg{source: document.Source{Title: "greeting", Content: content, Location: "greeting.md"}})
	if m.stage != stageWorkspace {
		t.Fatalf("stage = %s after open", m.stage)
	}
}

func TestOpenFileMovesToWorkspace(t *testing.T) {
	m := newTestModel(t, orchestrator.Config{})
	if m.stage != stageUpload {
		t.Fatalf("initial stage = %s", m.stage)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.errMessage == "" {
		t.Fatal("empty path should be rejected")
	}

	path := filepath.Join(t.TempDir(), "notes.md")
	if err := os.WriteFile(path, []byte("# Notes\r\n\r\nHello\r\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m.pathInput.SetValue(path)
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd == nil {
		t.Fatal("enter should start the open job")
	}
	msg, err := openSourceJob(path)(context.Background())
	if err != nil {
		t.Fatalf("open job: %v", err)
	}
	m.Update(msg)

	if m.stage != stageWorkspace {
		t.Fatalf("stage = %s", m.stage)
	}
	if m.snapshot.SourceContent != "# Notes\n\nHello\n" {
		t.Fatalf("source = %q", m.snapshot.SourceContent)
	}
	if m.title != "notes" {
		t.Fatalf("title = %q", m.title)
	}
	if !strings.Contains(m.View(), "Hello") {
		t.Fatal("source lane should show the document")
	}
}

func TestOpenFailureShowsError(t *testing.T) {
	m := newTestModel(t, orchestrator.Config{})
	msg, err := openSourceJob(filepath.Join(t.TempDir(), "missing.md"))(context.Background())
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	m.Update(msg)
	if m.stage != stageUpload || !strings.Contains(m.errMessage, "Could not open document") {
		t.Fatalf("stage=%s err=%q", m.stage, m.errMessage)
	}
}

func TestTranslateEntersQuadAndTracksProgress(t *testing.T) {
	m := newTestModel(t, orchestrator.Config{})

	m.stage = stageWorkspace
	m.Update(keyPress("t"))
	if m.errMessage == "" {
		t.Fatal("translate without a source should be refused")
	}

	openSource(t, m, "Hello\nWorld")
	if _, cmd := m.Update(keyPress("t")); cmd == nil {
		t.Fatal("translate should start a job")
	}
	msg, err := translateJob(m.config.Orchestrator, m.snapshot.SourceContent, m.direction, m.title)(context.Background())
	if err != nil {
		t.Fatalf("translate job: %v", err)
	}
	m.Update(msg)

	if m.layout.Mode() != layout.ModeQuad {
		t.Fatalf("layout = %s", m.layout.String())
	}
	if !m.snapshot.IsTranslating {
		t.Fatal("session should be translating")
	}
	if p := m.progress(); p.Total != 2 || p.Completed != 0 {
		t.Fatalf("progress = %+v", p)
	}
	if !strings.Contains(m.View(), "0/2 chunks") {
		t.Fatal("progress line missing")
	}
}

func TestSubmissionFailureIsShown(t *testing.T) {
	failure := &api.SubmissionError{}
	failure.Err = errors.New("connection refused")
	m := newTestModel(t, orchestrator.Config{Submitter: fakeSubmitter{err: failure}})
	openSource(t, m, "Hello")

	msg, _ := translateJob(m.config.Orchestrator, "Hello", m.direction, "")(context.Background())
	m.Update(msg)
	if !strings.Contains(m.errMessage, "Translation request failed") {
		t.Fatalf("err = %q", m.errMessage)
	}
	if m.layout.Mode() != layout.ModeSplit {
		t.Fatalf("layout should roll back, got %s", m.layout.String())
	}
	if m.snapshot.SourceContent != "Hello" {
		t.Fatalf("source = %q", m.snapshot.SourceContent)
	}
}

func TestInterruptedRunIsNotReportedAsSuccess(t *testing.T) {
	m := newTestModel(t, orchestrator.Config{Dialer: eofDialer{}})
	openSource(t, m, "Hello\nWorld")
	m.Update(keyPress("t"))
	msg, err := translateJob(m.config.Orchestrator, "Hello\nWorld", m.direction, "")(context.Background())
	if err != nil {
		t.Fatalf("translate job: %v", err)
	}
	m.Update(msg)
	m.config.Orchestrator.Close()
	m.Update(changeMsg{})

	if m.snapshot.IsTranslating {
		t.Fatal("run should have ended")
	}
	if !strings.HasPrefix(m.errMessage, "Translation ended before completion") {
		t.Fatalf("err = %q", m.errMessage)
	}
	if m.info == "Translation complete." {
		t.Fatal("interrupted run reported as complete")
	}
}

func TestLaneKeysFollowLayoutRules(t *testing.T) {
	m := newTestModel(t, orchestrator.Config{})
	openSource(t, m, "# Title\n\nBody")

	m.Update(keyPress("1"))
	if m.layout.Expanded(layout.SideLeft) != layout.LaneNone {
		t.Fatal("lanes should not expand in split mode")
	}

	m.Update(keyPress("m"))
	if m.layout.Mode() != layout.ModeQuad {
		t.Fatalf("mode = %s", m.layout.Mode())
	}
	m.Update(keyPress("2"))
	m.Update(keyPress("3"))
	if m.layout.Expanded(layout.SideLeft) != layout.LaneSourcePreview || m.layout.Expanded(layout.SideRight) != layout.LaneTranslatedEditor {
		t.Fatalf("layout = %s", m.layout.String())
	}
	m.Update(keyPress("2"))
	if m.layout.Expanded(layout.SideLeft) != layout.LaneNone || m.layout.Expanded(layout.SideRight) != layout.LaneTranslatedEditor {
		t.Fatalf("toggle touched the other half: %s", m.layout.String())
	}

	m.Update(keyPress("m"))
	m.Update(keyPress("m"))
	if m.layout.Expanded(layout.SideRight) != layout.LaneTranslatedEditor {
		t.Fatalf("mode switch lost the expansion: %s", m.layout.String())
	}

	m.Update(keyPress("r"))
	if m.layout.Mode() != layout.ModeSplit || m.snapshot.SourceContent != "" {
		t.Fatalf("reset left %s with source %q", m.layout.String(), m.snapshot.SourceContent)
	}
}

func TestFocusCyclesVisibleLanes(t *testing.T) {
	m := newTestModel(t, orchestrator.Config{})
	openSource(t, m, "text")
	if m.focused != layout.LaneSourceEditor {
		t.Fatalf("focused = %s", m.focused)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.focused != layout.LaneTranslatedPreview {
		t.Fatalf("split focus should jump to the translated preview, got %s", m.focused)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.focused != layout.LaneSourceEditor {
		t.Fatalf("focus should wrap, got %s", m.focused)
	}
}

func TestArrangePanes(t *testing.T) {
	state := layout.New()
	left, right := arrangePanes(state, 100, 30)
	if len(left) != 1 || left[0].lane != layout.LaneSourceEditor || left[0].height != 30 || left[0].width != 50 {
		t.Fatalf("split left = %+v", left)
	}
	if len(right) != 1 || right[0].lane != layout.LaneTranslatedPreview {
		t.Fatalf("split right = %+v", right)
	}

	state.EnterQuad()
	if err := state.Expand(layout.LaneSourcePreview, layout.SideLeft); err != nil {
		t.Fatalf("Expand: %v", err)
	}
	left, right = arrangePanes(state, 101, 30)
	if left[0].size != layout.SizeStrip || left[0].height != 1 || left[1].height != 29 {
		t.Fatalf("expanded left = %+v", left)
	}
	if right[0].height != 15 || right[1].height != 15 || right[0].width != 51 {
		t.Fatalf("quad right = %+v", right)
	}
}

func TestSettingsForm(t *testing.T) {
	form := newSettingsForm()
	got, err := form.value()
	if err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if got != api.DefaultSettings() {
		t.Fatalf("defaults = %+v", got)
	}

	form.inputs[fieldTemperature].SetValue("1.5")
	if _, err := form.value(); err == nil {
		t.Fatal("temperature above 1 should be rejected")
	}
	form.inputs[fieldTemperature].SetValue("0.3")
	form.inputs[fieldChunks].SetValue("many")
	if _, err := form.value(); err == nil {
		t.Fatal("non-numeric chunk count should be rejected")
	}
	form.inputs[fieldChunks].SetValue("5")
	form.focus(fieldAutoSave)
	form.Update(keyPress(" "))
	got, err = form.value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if got.Temperature != 0.3 || got.ChunkCount != 5 || got.AutoSaveHistory {
		t.Fatalf("settings = %+v", got)
	}
}

type memorySettings struct {
	saved api.Settings
}

func (s *memorySettings) GetSettings(ctx context.Context) (api.Settings, error) {
	return api.DefaultSettings(), nil
}

func (s *memorySettings) SaveSettings(ctx context.Context, settings api.Settings) error {
	s.saved = settings
	return nil
}

func TestSettingsScreenSaves(t *testing.T) {
	m := newTestModel(t, orchestrator.Config{})
	store := &memorySettings{}
	m.config.Settings = store
	m.stage = stageWorkspace

	if _, cmd := m.Update(keyPress("s")); cmd == nil {
		t.Fatal("settings key should load settings")
	}
	msg, _ := loadSettingsJob(store)(context.Background())
	m.Update(msg)
	if m.stage != stageSettings {
		t.Fatalf("stage = %s", m.stage)
	}

	m.settings.inputs[fieldChunks].SetValue("0")
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil || m.errMessage == "" {
		t.Fatal("invalid settings should not be saved")
	}
	m.settings.inputs[fieldChunks].SetValue("4")
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd == nil {
		t.Fatal("valid settings should be saved")
	}
	settings, _ := m.settings.value()
	msg, _ = saveSettingsJob(store, settings)(context.Background())
	m.Update(msg)
	if store.saved.ChunkCount != 4 || m.stage != stageWorkspace {
		t.Fatalf("saved = %+v stage = %s", store.saved, m.stage)
	}
}

type stubHistory struct {
	docs map[string]api.Document
}

func (h stubHistory) ListDocuments(ctx context.Context) ([]api.DocumentSummary, error) {
	var out []api.DocumentSummary
	for _, d := range h.docs {
		out = append(out, api.DocumentSummary{ID: d.ID, Title: d.Title, IsTranslated: d.HasTranslation()})
	}
	return out, nil
}

func (h stubHistory) GetDocument(ctx context.Context, id string) (api.Document, error) {
	d, ok := h.docs[id]
	if !ok {
		return api.Document{}, &api.HistoryLoadError{ID: id}
	}
	return d, nil
}

func (h stubHistory) DeleteDocument(ctx context.Context, id string) error {
	return nil
}

func TestHistoryRestore(t *testing.T) {
	history := stubHistory{docs: map[string]api.Document{
		"doc-9": {ID: "doc-9", Title: "saved", SourceContent: "Hello", TranslatedContent: "你好", IsTranslated: true},
	}}
	m := newTestModel(t, orchestrator.Config{History: history})
	m.stage = stageWorkspace

	msg, err := historyJob(m.config.Orchestrator)(context.Background())
	if err != nil {
		t.Fatalf("history job: %v", err)
	}
	m.Update(msg)
	if m.stage != stageHistory {
		t.Fatalf("stage = %s", m.stage)
	}
	id, ok := m.selectedHistoryID()
	if !ok || id != "doc-9" {
		t.Fatalf("selected = %q %v", id, ok)
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd == nil {
		t.Fatal("enter should restore the document")
	}
	msg, err = restoreJob(m.config.Orchestrator, id)(context.Background())
	if err != nil {
		t.Fatalf("restore job: %v", err)
	}
	m.Update(msg)
	if m.stage != stageWorkspace || m.snapshot.TranslatedContent != "你好" || m.layout.Mode() != layout.ModeQuad {
		t.Fatalf("stage=%s translated=%q layout=%s", m.stage, m.snapshot.TranslatedContent, m.layout.String())
	}
}

func TestExportWritesFile(t *testing.T) {
	m := newTestModel(t, orchestrator.Config{})
	openSource(t, m, "Hello")

	m.Update(keyPress("e"))
	if m.stage != stageExport {
		t.Fatalf("stage = %s", m.stage)
	}
	m.Update(keyPress("j"))
	if document.Kinds[m.exportCursor] != document.KindBilingual {
		t.Fatalf("cursor on %s", document.Kinds[m.exportCursor])
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd == nil {
		t.Fatal("enter should start the export")
	}
	msg, err := exportJob(m.config.ExportDir, document.KindBilingual, "Hello", "你好")(context.Background())
	if err != nil {
		t.Fatalf("export job: %v", err)
	}
	m.Update(msg)
	data, err := os.ReadFile(filepath.Join(m.config.ExportDir, "bilingual.md"))
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(data), "# 译文 (Translated)\n\n你好") {
		t.Fatalf("export = %q", data)
	}
	if !strings.HasPrefix(m.info, "Wrote ") {
		t.Fatalf("info = %q", m.info)
	}
}

func TestDirectionFlip(t *testing.T) {
	m := newTestModel(t, orchestrator.Config{})
	openSource(t, m, "Hello")
	m.Update(keyPress("d"))
	if m.direction != api.DirectionZhToEn {
		t.Fatalf("direction = %s", m.direction)
	}
	if !strings.Contains(m.headerView(), "Chinese → English") {
		t.Fatal("header should show the new direction")
	}
}
