package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/csheth/mdtranslate/internal/document"
	"github.com/csheth/mdtranslate/internal/orchestrator"
	"github.com/csheth/mdtranslate/internal/session"
)

type TranslateCmd struct {
	Path    string        `arg:"" help:"Markdown, text or PDF file (or http(s) URL) to translate"`
	Title   string        `help:"Title stored with the document (default: file name)"`
	Kind    string        `help:"What to output: original, translated or bilingual" default:"translated" enum:"original,translated,bilingual"`
	Out     string        `help:"Directory the result is written to (default: export_dir)" type:"path"`
	Stdout  bool          `help:"Print the result instead of writing a file"`
	Quiet   bool          `help:"Hide the progress bar"`
	Timeout time.Duration `help:"Give up after this long" default:"10m"`
}

func (c *TranslateCmd) Run(a *app) error {
	kind, err := document.ParseKind(c.Kind)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	source, err := document.Load(ctx, c.Path)
	if err != nil {
		return err
	}
	title := c.Title
	if title == "" {
		title = source.Title
	}

	o := a.orchestrator()
	defer o.Close()
	if err := o.Start(ctx, source.Content, a.direction(), title); err != nil {
		return fmt.Errorf("start translation: %w", err)
	}

	progressOut := a.errOut
	if c.Quiet {
		progressOut = io.Discard
	}
	if err := waitForRun(ctx, o, newProgressBar(progressOut, o.Progress().Total)); err != nil {
		return err
	}

	state := o.Session().State()
	if state.Outcome != session.OutcomeCompleted {
		cause := state.Err
		if cause == nil {
			cause = errors.New(string(state.Outcome))
		}
		return fmt.Errorf("translation ended before completion: %w", cause)
	}

	if c.Stdout {
		content, err := document.Render(kind, state.SourceContent, state.TranslatedContent)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(a.out, content)
		return err
	}
	dir := c.Out
	if dir == "" {
		dir = a.cfg.ExportDir
	}
	path, err := document.Write(dir, kind, state.SourceContent, state.TranslatedContent)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.out, "%s: wrote %s\n", state.DocumentID, path)
	return err
}

func newProgressBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("translating"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
	)
}

// waitForRun follows the session until the run ends, moving bar along with
// the completed chunk count.
func waitForRun(ctx context.Context, o *orchestrator.Orchestrator, bar *progressbar.ProgressBar) error {
	for o.Session().IsTranslating() {
		select {
		case <-o.Changes():
		case <-ctx.Done():
			_ = o.Close()
			return fmt.Errorf("translation timed out: %w", ctx.Err())
		}
		_ = bar.Set(o.Progress().Completed)
	}
	_ = bar.Set(o.Progress().Completed)
	return bar.Finish()
}
