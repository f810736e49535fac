package session

import (
	"errors"
	"sync"

	"github.com/csheth/mdtranslate/internal/chunk"
)

// Outcome records how the most recent run ended.
type Outcome string

const (
	OutcomeNone        Outcome = ""
	OutcomeCompleted   Outcome = "completed"
	OutcomeInterrupted Outcome = "interrupted"
	OutcomeFailed      Outcome = "failed"
)

// RunToken identifies one translation run. Effects carrying an older token
// than the session's current one are dropped.
type RunToken uint64

var (
	// ErrStaleRun is returned when an effect belongs to a run that was reset or replaced.
	ErrStaleRun = errors.New("translation run is no longer active")
	// ErrRunActive is returned when the source is edited while a run is in flight.
	ErrRunActive = errors.New("translation run in progress")
)

// State is a point-in-time copy of the session.
type State struct {
	DocumentID        string
	SourceContent     string
	TranslatedContent string
	IsTranslating     bool
	Outcome           Outcome
	Err               error
	Chunks            []chunk.Chunk
}

// Session holds the current document. The zero value is not usable; call New.
type Session struct {
	mu          sync.RWMutex
	token       RunToken
	documentID  string
	source      string
	translated  string
	translating bool
	outcome     Outcome
	err         error
	store       *chunk.Store
}

// New returns an empty session.
func New() *Session {
	return &Session{store: chunk.NewStore()}
}

// StartRun begins a new run for source and returns its token. Chunks from any
// previous run are dropped and the document id stays empty until the manifest
// arrives.
func (s *Session) StartRun(source string) RunToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token++
	s.documentID = ""
	s.source = source
	s.translated = ""
	s.translating = true
	s.outcome = OutcomeNone
	s.err = nil
	s.store.ReplaceAll(nil)
	return s.token
}

// ApplyManifest seeds the chunk collection returned by the remote service.
func (s *Session) ApplyManifest(tok RunToken, documentID string, chunks []chunk.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok != s.token {
		return ErrStaleRun
	}
	s.documentID = documentID
	s.store.ReplaceAll(chunks)
	s.translated = s.store.Assemble()
	return nil
}

// ApplyChunkUpdate merges an update into the chunk at index and recomputes the
// assembled translation under the same lock, so readers never observe content
// assembled from a stale chunk set.
func (s *Session) ApplyChunkUpdate(tok RunToken, index int, patch chunk.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok != s.token {
		return ErrStaleRun
	}
	if err := s.store.Upsert(index, patch); err != nil {
		return err
	}
	s.translated = s.store.Assemble()
	return nil
}

// Finish marks the run as no longer translating. Chunk data is kept. It
// returns false when tok is stale or the run already finished.
func (s *Session) Finish(tok RunToken, outcome Outcome, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok != s.token || !s.translating {
		return false
	}
	s.translating = false
	s.outcome = outcome
	s.err = err
	return true
}

// Fail rolls back a run whose submission never succeeded. No partial document
// state survives; the source content is kept.
func (s *Session) Fail(tok RunToken, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok != s.token {
		return false
	}
	s.documentID = ""
	s.translated = ""
	s.translating = false
	s.store.ReplaceAll(nil)
	s.outcome = OutcomeFailed
	s.err = err
	return true
}

// LoadSnapshot restores a previously persisted document. The persisted
// translation is trusted as-is rather than reassembled. Any in-flight run is
// invalidated.
func (s *Session) LoadSnapshot(documentID, source, translated string, chunks []chunk.Chunk) RunToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token++
	s.documentID = documentID
	s.source = source
	s.translated = translated
	s.translating = false
	s.outcome = OutcomeNone
	s.err = nil
	s.store.ReplaceAll(chunks)
	return s.token
}

// Reset clears every field and invalidates any in-flight run.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token++
	s.documentID = ""
	s.source = ""
	s.translated = ""
	s.translating = false
	s.outcome = OutcomeNone
	s.err = nil
	s.store.ReplaceAll(nil)
}

// SetSource replaces the source content outside of a run.
func (s *Session) SetSource(content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.translating {
		return ErrRunActive
	}
	s.source = content
	return nil
}

// State returns a consistent copy of the session for rendering.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		DocumentID:        s.documentID,
		SourceContent:     s.source,
		TranslatedContent: s.translated,
		IsTranslating:     s.translating,
		Outcome:           s.outcome,
		Err:               s.err,
		Chunks:            s.store.Chunks(),
	}
}

// Token identifies the current run.
func (s *Session) Token() RunToken {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// DocumentID is empty until a manifest has been applied.
func (s *Session) DocumentID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.documentID
}

// SourceContent returns the text being translated.
func (s *Session) SourceContent() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// TranslatedContent returns the assembled translation.
func (s *Session) TranslatedContent() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.translated
}

// IsTranslating reports whether a run is in flight.
func (s *Session) IsTranslating() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.translating
}

// Progress counts completed chunks of the current collection.
func (s *Session) Progress() chunk.Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Progress()
}
