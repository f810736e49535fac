// Package orchestrator drives a translation run end to end: it submits the
// source, seeds the session from the manifest, keeps the update channel open
// and restores or clears documents on request.
package orchestrator

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/csheth/mdtranslate/internal/api"
	"github.com/csheth/mdtranslate/internal/chunk"
	"github.com/csheth/mdtranslate/internal/layout"
	"github.com/csheth/mdtranslate/internal/session"
	"github.com/csheth/mdtranslate/internal/stream"
)

// Submitter sends a document to the split/translate service.
type Submitter interface {
	Submit(ctx context.Context, req api.SubmitRequest) (api.Manifest, error)
}

// History reads and deletes persisted runs.
type History interface {
	ListDocuments(ctx context.Context) ([]api.DocumentSummary, error)
	GetDocument(ctx context.Context, id string) (api.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

// Config wires the orchestrator to its collaborators. Session and Layout are
// created when nil.
type Config struct {
	Submitter Submitter
	Dialer    stream.Dialer
	History   History
	Session   *session.Session
	Layout    *layout.State
	Now       func() time.Time
}

// Orchestrator owns one session, its layout and at most one update channel.
type Orchestrator struct {
	submitter    Submitter
	history      History
	session      *session.Session
	adapter      *stream.Adapter
	connectionID string
	now          func() time.Time
	changes      chan struct{}

	// runMu makes run starts, resets and loads atomic across session,
	// channel and layout. It is never held across network calls.
	runMu sync.Mutex

	layoutMu sync.Mutex
	layout   *layout.State
}

// New builds an orchestrator. The connection id is generated once and reused
// for every channel this instance opens.
func New(cfg Config) *Orchestrator {
	if cfg.Session == nil {
		cfg.Session = session.New()
	}
	if cfg.Layout == nil {
		cfg.Layout = layout.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	o := &Orchestrator{
		submitter:    cfg.Submitter,
		history:      cfg.History,
		session:      cfg.Session,
		layout:       cfg.Layout,
		connectionID: uuid.NewString(),
		now:          cfg.Now,
		changes:      make(chan struct{}, 1),
	}
	o.adapter = stream.NewAdapter(cfg.Dialer, cfg.Session, o.notify)
	return o
}

// Start runs a translation of source. It returns once the channel is open;
// updates keep arriving in the background until the run completes or the
// channel ends. A submission failure rolls the session and layout back and is
// returned as *api.SubmissionError. A manifest that arrives after a reset or a
// newer run is dropped with session.ErrStaleRun.
func (o *Orchestrator) Start(ctx context.Context, source string, direction api.Direction, title string) error {
	if strings.TrimSpace(title) == "" {
		title = "Document " + o.now().Format("2006-01-02 15:04:05")
	}

	o.runMu.Lock()
	o.adapter.Close()
	tok := o.session.StartRun(source)
	o.layoutMu.Lock()
	before := o.layout.Snapshot()
	o.layout.EnterQuad()
	o.layoutMu.Unlock()
	o.runMu.Unlock()
	o.notify()

	manifest, err := o.submitter.Submit(ctx, api.SubmitRequest{Content: source, Title: title, Direction: direction})
	if err != nil {
		o.runMu.Lock()
		if o.session.Fail(tok, err) {
			o.layoutMu.Lock()
			o.layout.Restore(before)
			o.layoutMu.Unlock()
			o.notify()
		}
		o.runMu.Unlock()
		log.Printf("[orchestrator] submit %q: %v", title, err)
		return err
	}

	if err := o.session.ApplyManifest(tok, manifest.DocumentID, api.ToChunks(manifest.Chunks)); err != nil {
		log.Printf("[orchestrator] dropping manifest for %s: %v", manifest.DocumentID, err)
		return err
	}
	o.notify()
	log.Printf("[orchestrator] %s: %d chunks", manifest.DocumentID, len(manifest.Chunks))

	if err := o.adapter.Open(ctx, tok, manifest.DocumentID, o.connectionID); err != nil {
		if errors.Is(err, stream.ErrSuperseded) {
			return session.ErrStaleRun
		}
		if o.session.Finish(tok, session.OutcomeInterrupted, err) {
			o.notify()
		}
		return err
	}
	return nil
}

// SetSource replaces the source of an idle session, for instance after a file
// was opened. It fails with session.ErrRunActive while a run is in flight.
func (o *Orchestrator) SetSource(content string) error {
	if err := o.session.SetSource(content); err != nil {
		return err
	}
	o.notify()
	return nil
}

// Progress reports completed chunks of the current document.
func (o *Orchestrator) Progress() chunk.Progress {
	return o.session.Progress()
}

// ListDocuments returns the persisted runs.
func (o *Orchestrator) ListDocuments(ctx context.Context) ([]api.DocumentSummary, error) {
	if o.history == nil {
		return nil, errNoHistory
	}
	return o.history.ListDocuments(ctx)
}

// LoadDocument replaces the current document with a persisted run. On failure
// the session is left untouched.
func (o *Orchestrator) LoadDocument(ctx context.Context, id string) error {
	if o.history == nil {
		return errNoHistory
	}
	doc, err := o.history.GetDocument(ctx, id)
	if err != nil {
		log.Printf("[orchestrator] load %s: %v", id, err)
		return err
	}

	o.runMu.Lock()
	o.session.LoadSnapshot(doc.ID, doc.SourceContent, doc.TranslatedContent, api.ToChunks(doc.Chunks))
	o.adapter.Close()
	o.layoutMu.Lock()
	if doc.HasTranslation() {
		o.layout.SetMode(layout.ModeQuad)
	} else {
		o.layout.SetMode(layout.ModeSplit)
	}
	o.layoutMu.Unlock()
	o.runMu.Unlock()
	o.notify()
	return nil
}

// DeleteDocument removes a persisted run. The current document is not touched,
// even when it is the one being deleted.
func (o *Orchestrator) DeleteDocument(ctx context.Context, id string) error {
	if o.history == nil {
		return errNoHistory
	}
	return o.history.DeleteDocument(ctx, id)
}

// Reset closes the channel and returns session and layout to their initial
// state.
func (o *Orchestrator) Reset() {
	o.runMu.Lock()
	o.session.Reset()
	o.adapter.Close()
	o.layoutMu.Lock()
	o.layout.Reset()
	o.layoutMu.Unlock()
	o.runMu.Unlock()
	o.notify()
}

// Close shuts the update channel down. The session keeps its content.
func (o *Orchestrator) Close() error {
	o.runMu.Lock()
	defer o.runMu.Unlock()
	o.adapter.Close()
	return nil
}

// Changes fires after the session or layout changed. Signals coalesce, so a
// reader should re-read the full state on every receive.
func (o *Orchestrator) Changes() <-chan struct{} { return o.changes }

// Layout returns a copy of the current layout.
func (o *Orchestrator) Layout() layout.State {
	o.layoutMu.Lock()
	defer o.layoutMu.Unlock()
	return o.layout.Snapshot()
}

// UpdateLayout applies fn to the layout. A failed transition leaves the
// layout as it was.
func (o *Orchestrator) UpdateLayout(fn func(*layout.State) error) error {
	o.layoutMu.Lock()
	before := o.layout.Snapshot()
	if err := fn(o.layout); err != nil {
		o.layout.Restore(before)
		o.layoutMu.Unlock()
		return err
	}
	o.layoutMu.Unlock()
	o.notify()
	return nil
}

func (o *Orchestrator) Session() *session.Session { return o.session }

func (o *Orchestrator) ConnectionID() string { return o.connectionID }

// Outcome reports how the last run ended.
func (o *Orchestrator) Outcome() session.Outcome { return o.session.State().Outcome }

// Err is the failure that ended the last run, if any.
func (o *Orchestrator) Err() error { return o.session.State().Err }

// Streaming reports whether an update channel is open.
func (o *Orchestrator) Streaming() bool { return o.adapter.Active() }

func (o *Orchestrator) notify() {
	select {
	case o.changes <- struct{}{}:
	default:
	}
}

var errNoHistory = errors.New("history service not configured")
