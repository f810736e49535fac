package document

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadLocalText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guide.md")
	if err := os.WriteFile(path, []byte("# Title\r\n\r\nBody\r\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	src, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if src.Title != "guide" {
		t.Fatalf("Title = %q", src.Title)
	}
	if src.Content != "# Title\n\nBody\n" {
		t.Fatalf("Content = %q", src.Content)
	}
}

func TestLoadRejectsUnsupported(t *testing.T) {
	dir := t.TempDir()
	cases := map[string][]byte{
		"image.png": []byte("\x89PNG"),
		"bad.txt":   {0xff, 0xfe, 0xfd},
	}
	for name, data := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := Load(context.Background(), path); !errors.Is(err, ErrUnsupported) {
			t.Fatalf("%s: err = %v, want ErrUnsupported", name, err)
		}
	}
	if _, err := Load(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for empty location")
	}
}

func TestLoadRemoteUsesCache(t *testing.T) {
	t.Setenv(cacheEnvVar, t.TempDir())
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Etag", `"v1"`)
		_, _ = w.Write([]byte("Hello\nWorld"))
	}))
	t.Cleanup(server.Close)

	for i := 0; i < 2; i++ {
		src, err := Load(context.Background(), server.URL+"/docs/readme.md")
		if err != nil {
			t.Fatalf("Load %d: %v", i, err)
		}
		if src.Content != "Hello\nWorld" || src.Title != "readme" {
			t.Fatalf("source = %+v", src)
		}
	}
	if hits != 1 {
		t.Fatalf("expected one download, got %d", hits)
	}
}

func TestSourceCacheRevalidatesStaleEntry(t *testing.T) {
	t.Setenv(cacheEnvVar, t.TempDir())
	var conditional bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			conditional = true
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Etag", `"v1"`)
		_, _ = w.Write([]byte("cached body"))
	}))
	t.Cleanup(server.Close)

	cache, err := newSourceCache(server.Client())
	if err != nil {
		t.Fatalf("newSourceCache: %v", err)
	}
	ctx := context.Background()
	path, err := cache.Fetch(ctx, server.URL+"/a.md")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	old := time.Now().Add(-(cacheTTL + time.Hour))
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	again, err := cache.Fetch(ctx, server.URL+"/a.md")
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if again != path || !conditional {
		t.Fatalf("expected conditional revalidation of %s (got %s, conditional=%v)", path, again, conditional)
	}
	data, _ := os.ReadFile(again)
	if string(data) != "cached body" {
		t.Fatalf("body = %q", data)
	}
}

func TestSourceCacheResumesPartialDownload(t *testing.T) {
	t.Setenv(cacheEnvVar, t.TempDir())
	var rangeHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rangeHeader = r.Header.Get("Range")
		w.Header().Set("Etag", `"resume"`)
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte("world"))
	}))
	t.Cleanup(server.Close)

	cache, err := newSourceCache(server.Client())
	if err != nil {
		t.Fatalf("newSourceCache: %v", err)
	}
	rawURL := server.URL + "/paper.pdf"
	paths := cache.pathsFor(rawURL)
	if !strings.HasSuffix(paths.body, ".pdf") {
		t.Fatalf("cache path lost extension: %s", paths.body)
	}
	if err := os.WriteFile(paths.partial, []byte("hello "), 0o644); err != nil {
		t.Fatalf("write partial: %v", err)
	}
	if err := writeMeta(paths.meta, cacheMeta{ETag: `"resume"`}); err != nil {
		t.Fatalf("write meta: %v", err)
	}

	got, err := cache.Fetch(context.Background(), rawURL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	data, err := os.ReadFile(got)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello world" {
		t.Fatalf("resume failed, got %q", data)
	}
	if rangeHeader != fmt.Sprintf("bytes=%d-", len("hello ")) {
		t.Fatalf("Range = %q", rangeHeader)
	}
	if _, err := os.Stat(paths.partial); !os.IsNotExist(err) {
		t.Fatalf("partial file should be gone, err=%v", err)
	}
}

func TestNormalizeExtracted(t *testing.T) {
	in := "Intro   text\t here\n\n\n\nNext    para  \r\n"
	if got := normalizeExtracted(in); got != "Intro text here\n\nNext para" {
		t.Fatalf("normalizeExtracted = %q", got)
	}
}

func TestRenderKinds(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindOriginal, "Hello"},
		{KindTranslated, "你好"},
		{KindBilingual, "# 原文 (Original)\n\nHello\n\n---\n\n# 译文 (Translated)\n\n你好"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got, err := Render(tt.kind, "Hello", "你好")
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Render = %q, want %q", got, tt.want)
			}
		})
	}
	if _, err := Render(Kind("pdf"), "a", "b"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestWriteAndCopy(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := Write(dir, KindBilingual, "Hello", "你好")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if filepath.Base(path) != "bilingual.md" {
		t.Fatalf("path = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || !strings.Contains(string(data), "# 译文 (Translated)") {
		t.Fatalf("written content = %q err=%v", data, err)
	}

	var copied string
	orig := writeClipboard
	writeClipboard = func(text string) error {
		copied = text
		return nil
	}
	t.Cleanup(func() { writeClipboard = orig })
	if err := Copy(KindTranslated, "Hello", "你好"); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if copied != "你好" {
		t.Fatalf("copied = %q", copied)
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind(" Bilingual "); err != nil || k != KindBilingual {
		t.Fatalf("ParseKind = %q, %v", k, err)
	}
	if _, err := ParseKind("html"); err == nil {
		t.Fatalf("expected error")
	}
}
