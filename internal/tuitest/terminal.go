// Package tuitest runs a terminal program inside a pseudo terminal so tests
// can type into it and assert on what it draws.
package tuitest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
)

const (
	defaultWidth   = 120
	defaultHeight  = 32
	defaultTimeout = 20 * time.Second
)

// Keys understood by bubbletea programs.
var (
	KeyEnter = []byte{'\r'}
	KeyTab   = []byte{'\t'}
	KeyEsc   = []byte{27}
	KeyCtrlC = []byte{3}
)

// Config describes the program to start.
type Config struct {
	Command []string
	Dir     string
	Env     []string
	Width   int
	Height  int
	// Timeout bounds the whole session, including Finish.
	Timeout time.Duration
}

// Terminal is a running program attached to a pseudo terminal.
type Terminal struct {
	cmd     *exec.Cmd
	ptmx    *os.File
	cancel  context.CancelFunc
	ctx     context.Context
	started time.Time

	mu      sync.Mutex
	output  bytes.Buffer
	updated chan struct{}

	readDone chan struct{}
	exited   chan struct{}
	exitErr  error
}

// Start launches cfg.Command in a PTY of the configured size. The program is
// killed when the timeout expires.
func Start(ctx context.Context, cfg Config) (*Terminal, error) {
	if len(cfg.Command) == 0 {
		return nil, errors.New("tuitest: command is required")
	}
	width, height, timeout := cfg.Width, cfg.Height, cfg.Timeout
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)

	cmd := exec.CommandContext(ctx, cfg.Command[0], cfg.Command[1:]...)
	cmd.Dir = cfg.Dir
	cmd.Env = withTerm(append(os.Environ(), cfg.Env...))

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(height), Cols: uint16(width)})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("tuitest: start program: %w", err)
	}
	term := &Terminal{
		cmd:      cmd,
		ptmx:     ptmx,
		cancel:   cancel,
		ctx:      ctx,
		started:  time.Now(),
		updated:  make(chan struct{}, 1),
		readDone: make(chan struct{}),
		exited:   make(chan struct{}),
	}
	go term.read()
	go func() {
		term.exitErr = cmd.Wait()
		close(term.exited)
	}()
	return term, nil
}

func (t *Terminal) read() {
	defer close(t.readDone)
	replies := newResponder(t.ptmx)
	buf := make([]byte, 4096)
	for {
		n, err := t.ptmx.Read(buf)
		if n > 0 {
			replies.observe(buf[:n])
			t.mu.Lock()
			t.output.Write(buf[:n])
			t.mu.Unlock()
			select {
			case t.updated <- struct{}{}:
			default:
			}
		}
		if err != nil {
			return
		}
	}
}

// Type writes input to the program as if it was typed.
func (t *Terminal) Type(input []byte) error {
	if _, err := t.ptmx.Write(input); err != nil {
		return fmt.Errorf("tuitest: write input: %w", err)
	}
	return nil
}

// WaitFor blocks until text appears anywhere in the plain output and returns
// the latest frame.
func (t *Terminal) WaitFor(text string) (Frame, error) {
	for {
		raw := t.Output()
		if strings.Contains(plain(raw), text) {
			frames := splitFrames(raw)
			if len(frames) == 0 {
				return Frame{}, nil
			}
			return frames[len(frames)-1], nil
		}
		select {
		case <-t.updated:
		case <-t.exited:
			if !strings.Contains(plain(t.Output()), text) {
				return Frame{}, fmt.Errorf("tuitest: program exited before %q appeared", text)
			}
		case <-t.ctx.Done():
			return Frame{}, fmt.Errorf("tuitest: waiting for %q: %w", text, t.ctx.Err())
		}
	}
}

// Output returns every byte the program wrote so far.
func (t *Terminal) Output() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]byte(nil), t.output.Bytes()...)
}

// Finish optionally types input, then waits for the program to exit and
// returns what it drew. Exit codes other than zero are errors unless listed
// in allowed.
func (t *Terminal) Finish(input []byte, allowed ...int) (*Recording, error) {
	defer t.cancel()
	if len(input) > 0 {
		if err := t.Type(input); err != nil {
			return nil, err
		}
	}
	select {
	case <-t.exited:
	case <-t.ctx.Done():
		return nil, fmt.Errorf("tuitest: timeout waiting for program exit: %w", t.ctx.Err())
	}
	_ = t.ptmx.Close()
	<-t.readDone

	if err := t.exitErr; err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || !contains(allowed, exitErr.ExitCode()) {
			return nil, fmt.Errorf("tuitest: program exited with error: %w", err)
		}
	}
	raw := t.Output()
	return &Recording{Raw: raw, Frames: splitFrames(raw), Duration: time.Since(t.started)}, nil
}

// Kill stops the program without waiting for a clean exit.
func (t *Terminal) Kill() {
	t.cancel()
	<-t.exited
	_ = t.ptmx.Close()
	<-t.readDone
}

func withTerm(env []string) []string {
	for _, entry := range env {
		if strings.HasPrefix(entry, "TERM=") {
			return env
		}
	}
	return append(env, "TERM=xterm-256color")
}

func contains(values []int, v int) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
