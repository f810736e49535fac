package stream

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/csheth/mdtranslate/internal/chunk"
	"github.com/csheth/mdtranslate/internal/session"
)

const eventBuffer = 64

var (
	// ErrChannel matches every *ChannelError.
	ErrChannel = errors.New("update channel failure")
	// ErrSuperseded is returned by Open when Close, a newer Open or a newer
	// run got in while the dial was in flight.
	ErrSuperseded = errors.New("update channel closed before it opened")
)

// ChannelError reports a transport-level failure of the update channel.
type ChannelError struct {
	DocumentID string
	Op         string
	Err        error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("update channel %s for %s: %v", e.Op, e.DocumentID, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }

func (e *ChannelError) Is(target error) bool { return target == ErrChannel }

// Conn is one open streaming connection.
type Conn interface {
	ReadMessage() ([]byte, error)
	Close() error
}

// Dialer opens the update channel of a document for one viewer.
type Dialer interface {
	Dial(ctx context.Context, documentID, connectionID string) (Conn, error)
}

// Sink receives decoded events. *session.Session satisfies it.
type Sink interface {
	Token() session.RunToken
	ApplyChunkUpdate(tok session.RunToken, index int, patch chunk.Patch) error
	Finish(tok session.RunToken, outcome session.Outcome, err error) bool
}

// Adapter owns at most one update channel at a time and feeds its events into
// the sink strictly in arrival order.
type Adapter struct {
	dialer Dialer
	sink   Sink
	notify func()

	mu   sync.Mutex
	link *link
	// gen changes on every Open and Close; a dial only installs its link
	// when gen is still the value it started with.
	gen        uint64
	cancelDial context.CancelFunc
}

type link struct {
	conn       Conn
	tok        session.RunToken
	documentID string
	stop       chan struct{}
	done       chan struct{}
	once       sync.Once
}

func (l *link) shutdown() {
	l.once.Do(func() {
		close(l.stop)
		if err := l.conn.Close(); err != nil {
			log.Printf("[stream] close %s: %v", l.documentID, err)
		}
	})
}

// NewAdapter wires a dialer to a sink. notify, when set, is called after every
// event that changed the sink.
func NewAdapter(dialer Dialer, sink Sink, notify func()) *Adapter {
	if notify == nil {
		notify = func() {}
	}
	return &Adapter{dialer: dialer, sink: sink, notify: notify}
}

// Open closes any open channel and connects to documentID. Events are applied
// to the sink under tok; a dial failure is returned as a *ChannelError. The
// dial runs without the adapter lock, so Close never waits for a handshake:
// it cancels the dial and Open returns ErrSuperseded.
func (a *Adapter) Open(ctx context.Context, tok session.RunToken, documentID, connectionID string) error {
	a.mu.Lock()
	a.closeLocked()
	dialCtx, cancel := context.WithCancel(ctx)
	a.cancelDial = cancel
	gen := a.gen
	a.mu.Unlock()
	defer cancel()

	conn, err := a.dialer.Dial(dialCtx, documentID, connectionID)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.gen != gen || a.sink.Token() != tok {
		if err == nil {
			_ = conn.Close()
		}
		log.Printf("[stream] %s: dropping channel opened for a replaced run", documentID)
		return ErrSuperseded
	}
	a.cancelDial = nil
	if err != nil {
		return &ChannelError{DocumentID: documentID, Op: "dial", Err: err}
	}
	l := &link{
		conn:       conn,
		tok:        tok,
		documentID: documentID,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	a.link = l
	events, errc := readEvents(l)
	go a.dispatch(l, events, errc)
	log.Printf("[stream] opened %s (connection=%s)", documentID, connectionID)
	return nil
}

// Close terminates the open channel, if any, and waits for its dispatcher.
// It is safe to call repeatedly.
func (a *Adapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closeLocked()
}

// Active reports whether a channel is open and still dispatching.
func (a *Adapter) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.link == nil {
		return false
	}
	select {
	case <-a.link.done:
		return false
	default:
		return true
	}
}

func (a *Adapter) closeLocked() {
	a.gen++
	if a.cancelDial != nil {
		a.cancelDial()
		a.cancelDial = nil
	}
	if a.link == nil {
		return
	}
	l := a.link
	a.link = nil
	l.shutdown()
	<-l.done
}

func readEvents(l *link) (<-chan Event, <-chan error) {
	events := make(chan Event, eventBuffer)
	errc := make(chan error, 1)
	go func() {
		defer close(events)
		for {
			raw, err := l.conn.ReadMessage()
			if err != nil {
				errc <- err
				return
			}
			ev, err := Decode(raw)
			if err != nil {
				log.Printf("[stream] %s: dropping frame: %v", l.documentID, err)
				continue
			}
			select {
			case events <- ev:
			case <-l.stop:
				return
			}
		}
	}()
	return events, errc
}

func (a *Adapter) dispatch(l *link, events <-chan Event, errc <-chan error) {
	defer close(l.done)
	for ev := range events {
		switch ev.Kind {
		case KindChunkUpdate:
			err := a.sink.ApplyChunkUpdate(l.tok, ev.Index, ev.Patch())
			switch {
			case err == nil:
				a.notify()
			case errors.Is(err, chunk.ErrUnknownIndex):
				log.Printf("[stream] %s: ignoring update: %v", l.documentID, err)
			case errors.Is(err, session.ErrStaleRun):
				log.Printf("[stream] %s: run replaced, dropping channel", l.documentID)
				l.shutdown()
				return
			default:
				log.Printf("[stream] %s: apply update %d: %v", l.documentID, ev.Index, err)
			}
		case KindComplete:
			if a.sink.Finish(l.tok, session.OutcomeCompleted, nil) {
				a.notify()
			}
			log.Printf("[stream] %s: complete", l.documentID)
			l.shutdown()
			return
		}
	}

	var cause error
	select {
	case cause = <-errc:
	default:
	}
	if cause == nil {
		cause = errors.New("connection closed")
	}
	chErr := &ChannelError{DocumentID: l.documentID, Op: "read", Err: cause}
	if a.sink.Finish(l.tok, session.OutcomeInterrupted, chErr) {
		log.Printf("[stream] %s: ended before completion: %v", l.documentID, cause)
		a.notify()
	}
	l.shutdown()
}
