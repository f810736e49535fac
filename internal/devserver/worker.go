package devserver

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/csheth/mdtranslate/internal/api"
	"github.com/csheth/mdtranslate/internal/chunk"
	"github.com/csheth/mdtranslate/internal/llm"
	"github.com/csheth/mdtranslate/internal/stream"
)

// worker translates the open chunks of a document and streams progress to
// the hub. At most one run per document is active at a time.
type worker struct {
	store        *Store
	hub          *hub
	translator   llm.Translator
	concurrency  int
	contextChars int
	defaults     api.Settings

	mu      sync.Mutex
	running map[string]bool
	wg      sync.WaitGroup
}

// start launches a run for documentID unless one is already active. The
// returned bool reports whether a new run was started.
func (w *worker) start(ctx context.Context, documentID string) bool {
	w.mu.Lock()
	if w.running[documentID] {
		w.mu.Unlock()
		return false
	}
	w.running[documentID] = true
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		defer w.release(documentID)
		started := time.Now()
		err := w.run(ctx, documentID)
		log.Printf("[worker] %s finished (duration=%s, err=%v)", documentID, time.Since(started), err)
	}()
	return true
}

func (w *worker) wait() {
	w.wg.Wait()
}

func (w *worker) run(ctx context.Context, documentID string) error {
	doc, err := w.store.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	settings, _, err := w.store.EffectiveSettings(ctx, w.defaults)
	if err != nil {
		settings = w.defaults
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(w.concurrency)
	chunks := doc.Chunks
	pending := 0
	for i := range chunks {
		// processing chunks belong to a run that died with the server.
		status := chunk.Status(chunks[i].Status)
		if status != chunk.StatusPending && status != chunk.StatusProcessing {
			continue
		}
		pending++
		req := llm.Request{
			Text:        chunks[i].SourceText,
			Direction:   string(doc.Direction),
			Temperature: settings.Temperature,
		}
		if i > 0 {
			req.PreContext = llm.Tail(chunks[i-1].SourceText, w.contextChars)
		}
		if i < len(chunks)-1 {
			req.PostContext = llm.Head(chunks[i+1].SourceText, w.contextChars)
		}
		index := chunks[i].Index
		group.Go(func() error {
			w.translateChunk(groupCtx, documentID, index, req)
			return nil
		})
	}
	log.Printf("[worker] %s: %d of %d chunks to translate with %s", documentID, pending, len(chunks), w.translator.Name())
	if err := group.Wait(); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if err := w.store.SetStatus(ctx, documentID, "completed"); err != nil {
		log.Printf("[worker] %s: set status: %v", documentID, err)
	}
	// A viewer that joins after this point starts a fresh run, which has
	// nothing left to translate and completes at once.
	w.release(documentID)
	w.hub.broadcast(documentID, stream.Complete())
	return nil
}

func (w *worker) release(documentID string) {
	w.mu.Lock()
	delete(w.running, documentID)
	w.mu.Unlock()
}

// translateChunk never fails the group: a failed chunk is reported as an
// error update and the remaining chunks carry on.
func (w *worker) translateChunk(ctx context.Context, documentID string, index int, req llm.Request) {
	if ctx.Err() != nil {
		return
	}
	w.hub.broadcast(documentID, stream.ChunkUpdate(index, "", chunk.StatusProcessing))

	text, err := w.translator.Translate(ctx, req, func(partial string) error {
		w.hub.broadcast(documentID, stream.ChunkUpdate(index, partial, ""))
		return nil
	})
	if err != nil {
		log.Printf("[worker] %s: chunk %d: %v", documentID, index, err)
		w.hub.broadcast(documentID, stream.ChunkUpdate(index, "", chunk.StatusError))
		if ctx.Err() == nil {
			w.persist(documentID, index, "", chunk.StatusError)
		}
		return
	}
	w.hub.broadcast(documentID, stream.ChunkUpdate(index, text, chunk.StatusCompleted))
	w.persist(documentID, index, text, chunk.StatusCompleted)
}

func (w *worker) persist(documentID string, index int, text string, status chunk.Status) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := w.store.UpdateChunk(ctx, documentID, index, text, status); err != nil {
		log.Printf("[worker] %s: store chunk %d: %v", documentID, index, err)
	}
}
