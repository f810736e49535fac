package main

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/csheth/mdtranslate/internal/tuitest"
)

func TestWorkspaceTranslatesInTerminal(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the binary and drives it through a pty")
	}
	cmdDir := moduleDir(t)
	binary := buildBinary(t, cmdDir)
	server := startServer(t)
	fixture := writeFixture(t, "# Intro\nHello\n# Usage\nWorld\n")
	home := t.TempDir()

	term, err := tuitest.Start(context.Background(), tuitest.Config{
		Command: []string{binary, "--server", server, "tui", "--no-alt-screen", fixture},
		Dir:     cmdDir,
		Env: []string{
			"HOME=" + home,
			"MDTRANSLATE_CONFIG=" + filepath.Join(home, "config.yaml"),
			"MDTRANSLATE_LOG=" + filepath.Join(home, "mdtranslate.log"),
		},
		Width:   120,
		Height:  36,
		Timeout: 15 * time.Second,
	})
	if err != nil {
		t.Fatalf("start CLI: %v", err)
	}
	defer term.Kill()

	if _, err := term.WaitFor("guide"); err != nil {
		t.Fatalf("workspace never showed the document: %v", err)
	}
	if err := term.Type([]byte("t")); err != nil {
		t.Fatalf("type: %v", err)
	}
	if _, err := term.WaitFor("Translation complete."); err != nil {
		t.Fatalf("translation did not finish: %v\n%s", err, term.Output())
	}
	if _, err := term.WaitFor("2/2 chunks"); err != nil {
		t.Fatalf("progress never reached the end: %v", err)
	}
	rec, err := term.Finish([]byte("q"))
	if err != nil {
		t.Fatalf("quit: %v", err)
	}
	if _, ok := rec.FinalFrame(); !ok {
		t.Fatalf("no frames captured")
	}
	if _, err := os.Stat(filepath.Join(home, "mdtranslate.log")); err != nil {
		t.Fatalf("log file not written: %v", err)
	}
}

func moduleDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller unavailable")
	}
	return filepath.Dir(file)
}

func buildBinary(t *testing.T, cmdDir string) string {
	t.Helper()
	name := "mdtranslate-integration"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	binPath := filepath.Join(t.TempDir(), name)
	cmd := exec.Command("go", "build", "-o", binPath, ".")
	cmd.Dir = cmdDir
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build CLI: %v\n%s", err, output)
	}
	return binPath
}
