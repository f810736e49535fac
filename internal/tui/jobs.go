package tui

import (
	"context"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type jobKind string

const (
	jobKindOpen      jobKind = "open"
	jobKindTranslate jobKind = "translate"
	jobKindHistory   jobKind = "history"
	jobKindRestore   jobKind = "restore"
	jobKindDelete    jobKind = "delete"
	jobKindSettings  jobKind = "settings"
	jobKindSave      jobKind = "save-settings"
	jobKindExport    jobKind = "export"
	jobKindCopy      jobKind = "copy"
)

// Network jobs get a deadline; local file and clipboard work does not.
var jobTimeouts = map[jobKind]time.Duration{
	jobKindOpen:      45 * time.Second,
	jobKindTranslate: 45 * time.Second,
	jobKindHistory:   20 * time.Second,
	jobKindRestore:   20 * time.Second,
	jobKindDelete:    20 * time.Second,
	jobKindSettings:  20 * time.Second,
	jobKindSave:      20 * time.Second,
}

// jobStartedMsg is delivered before the runner starts so the spinner can
// account for it.
type jobStartedMsg struct {
	kind jobKind
}

// jobDoneMsg carries the runner's result message back to the event loop.
type jobDoneMsg struct {
	kind    jobKind
	elapsed time.Duration
	err     error
	result  tea.Msg
}

type jobRunner func(context.Context) (tea.Msg, error)

// jobBus runs jobs off the event loop. Stopping it cancels every job still
// in flight.
type jobBus struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func newJobBus() *jobBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &jobBus{ctx: ctx, cancel: cancel}
}

func (b *jobBus) stop() { b.cancel() }

func (b *jobBus) Start(kind jobKind, runner jobRunner) tea.Cmd {
	announce := func() tea.Msg { return jobStartedMsg{kind: kind} }
	work := func() tea.Msg {
		ctx := b.ctx
		if limit, ok := jobTimeouts[kind]; ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, limit)
			defer cancel()
		}
		started := time.Now()
		result, err := runner(ctx)
		done := jobDoneMsg{kind: kind, elapsed: time.Since(started), err: err, result: result}
		if err != nil {
			log.Printf("[jobs] %s failed after %s: %v", kind, done.elapsed, err)
		} else {
			log.Printf("[jobs] %s done in %s", kind, done.elapsed)
		}
		return done
	}
	return tea.Sequence(announce, work)
}
