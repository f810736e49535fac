package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/csheth/mdtranslate/internal/devserver"
	"github.com/csheth/mdtranslate/internal/llm"
)

func startServer(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store, err := devserver.OpenStore(t.TempDir())
	require.NoError(t, err)
	srv := devserver.New(devserver.Config{Store: store, Translator: llm.NewMock(0)})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
		_ = store.Close()
	})
	return ts.URL
}

// runCLI runs the command line with an isolated configuration.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, key := range []string{"MDTRANSLATE_SERVER", "MDTRANSLATE_WS", "MDTRANSLATE_DIRECTION"} {
		t.Setenv(key, "")
	}
	t.Setenv("MDTRANSLATE_PROVIDER", "")
	t.Setenv("QWEN_API_KEY", "")
	t.Setenv("OLLAMA_HOST", "")
	args = append([]string{"--config", filepath.Join(t.TempDir(), "config.yaml")}, args...)
	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr, kong.Exit(func(int) {}))
	return stdout.String(), err
}

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guide.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestKongParsing(t *testing.T) {
	cases := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{name: "default tui", args: nil},
		{name: "tui with file", args: []string{"notes.md"}},
		{name: "translate", args: []string{"translate", "notes.md", "--kind", "bilingual", "--stdout"}},
		{name: "translate bad kind", args: []string{"translate", "notes.md", "--kind", "pdf"}, wantErr: true},
		{name: "translate needs a path", args: []string{"translate"}, wantErr: true},
		{name: "history default", args: []string{"history"}},
		{name: "history show", args: []string{"history", "show", "abc", "--kind", "original"}},
		{name: "history delete needs id", args: []string{"history", "delete"}, wantErr: true},
		{name: "settings set", args: []string{"settings", "set", "--temperature", "0.5", "--no-auto-save"}},
		{name: "serve", args: []string{"serve", "--addr", ":9000", "--provider", "mock"}},
		{name: "config", args: []string{"config", "--write"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var cli CLI
			parser, err := kong.New(&cli, kong.Exit(func(int) {}))
			require.NoError(t, err)
			_, err = parser.Parse(tc.args)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTranslateHistoryAndSettings(t *testing.T) {
	server := startServer(t)
	fixture := writeFixture(t, "# Intro\nHello\n# Usage\nWorld\n")

	out, err := runCLI(t, "--server", server, "translate", fixture, "--stdout", "--quiet")
	require.NoError(t, err)
	require.Contains(t, out, "[模拟翻译] # Intro\nHello\n")
	require.Contains(t, out, "[模拟翻译] # Usage\nWorld\n")

	exportDir := t.TempDir()
	out, err = runCLI(t, "--server", server, "translate", fixture, "--kind", "bilingual", "--out", exportDir, "--quiet", "--title", "second")
	require.NoError(t, err)
	require.Contains(t, out, "wrote "+filepath.Join(exportDir, "bilingual.md"))
	data, err := os.ReadFile(filepath.Join(exportDir, "bilingual.md"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "# 原文 (Original)\n\n# Intro\nHello\n"))

	out, err = runCLI(t, "--server", server, "history")
	require.NoError(t, err)
	require.Contains(t, out, "guide")
	require.Contains(t, out, "second")
	id := strings.Fields(strings.Split(out, "\n")[1])[0]

	out, err = runCLI(t, "--server", server, "history", "show", id, "--kind", "original")
	require.NoError(t, err)
	require.Contains(t, out, "# Usage\nWorld")

	out, err = runCLI(t, "--server", server, "history", "delete", id)
	require.NoError(t, err)
	require.Equal(t, "deleted "+id+"\n", out)
	_, err = runCLI(t, "--server", server, "history", "show", id)
	require.Error(t, err)

	_, err = runCLI(t, "--server", server, "settings", "set", "--chunks", "1", "--temperature", "0.4")
	require.NoError(t, err)
	out, err = runCLI(t, "--server", server, "settings")
	require.NoError(t, err)
	require.Contains(t, out, "chunks:      1")
	require.Contains(t, out, "temperature: 0.4")

	_, err = runCLI(t, "--server", server, "settings", "set", "--temperature", "3")
	require.Error(t, err)
}

func TestTranslateReportsUnreachableServer(t *testing.T) {
	fixture := writeFixture(t, "Hello")
	_, err := runCLI(t, "--server", "http://127.0.0.1:1", "translate", fixture, "--quiet")
	require.Error(t, err)
	require.Contains(t, err.Error(), "start translation")
}

func TestConfigCommand(t *testing.T) {
	out, err := runCLI(t, "--direction", "zh2en", "config")
	require.NoError(t, err)
	require.Contains(t, out, "direction: zh2en")

	_, err = runCLI(t, "--direction", "fr2de", "config")
	require.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	require.Equal(t, "mdtranslate "+Version+"\n", out)
}
