package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/mdtranslate/internal/document"
	"github.com/csheth/mdtranslate/internal/tui"
)

type TuiCmd struct {
	Path        string `arg:"" optional:"" help:"Markdown, text or PDF file (or http(s) URL) to open"`
	NoAltScreen bool   `help:"Disable the alternate screen buffer"`
}

func (c *TuiCmd) Run(a *app) error {
	if err := os.MkdirAll(filepath.Dir(a.cfg.LogFile), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	logFile, err := tea.LogToFile(a.cfg.LogFile, "mdtranslate")
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logFile.Close()

	var source *document.Source
	if c.Path != "" {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		loaded, err := document.Load(ctx, c.Path)
		cancel()
		if err != nil {
			return err
		}
		source = &loaded
	}

	o := a.orchestrator()
	defer o.Close()

	opts := []tea.ProgramOption{}
	if !c.NoAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(
		tui.New(tui.Config{
			Orchestrator: o,
			Settings:     a.client,
			Direction:    a.direction(),
			Theme:        a.cfg.Theme,
			ExportDir:    a.cfg.ExportDir,
			Source:       source,
		}),
		opts...,
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("program error: %w", err)
	}
	return nil
}
