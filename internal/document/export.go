package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
)

// Kind selects what an export contains.
type Kind string

const (
	KindOriginal   Kind = "original"
	KindTranslated Kind = "translated"
	KindBilingual  Kind = "bilingual"
)

// Kinds lists the export kinds in menu order.
var Kinds = []Kind{KindTranslated, KindBilingual, KindOriginal}

// ParseKind accepts a kind name.
func ParseKind(value string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(value))); k {
	case KindOriginal, KindTranslated, KindBilingual:
		return k, nil
	default:
		return "", fmt.Errorf("unknown export kind %q (want original, translated or bilingual)", value)
	}
}

// FileName is the default file an export kind is written to.
func (k Kind) FileName() string {
	return string(k) + ".md"
}

// Render builds the exported text for kind.
func Render(kind Kind, source, translated string) (string, error) {
	switch kind {
	case KindOriginal:
		return source, nil
	case KindTranslated:
		return translated, nil
	case KindBilingual:
		return "# 原文 (Original)\n\n" + source + "\n\n---\n\n# 译文 (Translated)\n\n" + translated, nil
	default:
		return "", fmt.Errorf("unknown export kind %q", kind)
	}
}

// Write renders kind into dir/<kind>.md and returns the written path.
func Write(dir string, kind Kind, source, translated string) (string, error) {
	content, err := Render(kind, source, translated)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, kind.FileName())
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

var writeClipboard = clipboard.WriteAll

// Copy renders kind onto the system clipboard.
func Copy(kind Kind, source, translated string) error {
	content, err := Render(kind, source, translated)
	if err != nil {
		return err
	}
	if err := writeClipboard(content); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}
