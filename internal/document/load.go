// Package document loads source documents and exports translation results.
package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupported is returned for files that are neither text nor PDF.
var ErrUnsupported = errors.New("unsupported document type")

// Source is a document ready to be translated.
type Source struct {
	Title   string
	Content string
	// Location is the path or URL the document was read from.
	Location string
}

var textExtensions = map[string]bool{
	"":          true,
	".md":       true,
	".markdown": true,
	".txt":      true,
}

var (
	inlineSpace = regexp.MustCompile(`[ \t\f\v]+`)
	blankLines  = regexp.MustCompile(`\n{3,}`)
)

// Load reads a local path or an http(s) URL. Remote documents are cached on
// disk and revalidated with conditional requests.
func Load(ctx context.Context, location string) (Source, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return Source{}, errors.New("no document given")
	}
	path := location
	if isRemote(location) {
		cache, err := newSourceCache(nil)
		if err != nil {
			return Source{}, err
		}
		path, err = cache.Fetch(ctx, location)
		if err != nil {
			return Source{}, fmt.Errorf("download %s: %w", location, err)
		}
	}

	content, err := readContent(path)
	if err != nil {
		return Source{}, err
	}
	return Source{Title: titleFor(location), Content: content, Location: location}, nil
}

func readContent(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".pdf":
		return pdfText(path)
	case textExtensions[ext]:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%s: %w: not UTF-8 text", path, ErrUnsupported)
		}
		return strings.ReplaceAll(string(data), "\r\n", "\n"), nil
	default:
		return "", fmt.Errorf("%s: %w (%s)", path, ErrUnsupported, ext)
	}
}

func pdfText(path string) (string, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer file.Close()

	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}
	var builder strings.Builder
	if _, err := io.Copy(&builder, content); err != nil {
		return "", err
	}
	return normalizeExtracted(builder.String()), nil
}

// normalizeExtracted keeps paragraph breaks but collapses the runs of spaces
// PDF extraction leaves between glyphs.
func normalizeExtracted(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(inlineSpace.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}

func isRemote(location string) bool {
	u, err := url.Parse(location)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func titleFor(location string) string {
	base := location
	if isRemote(location) {
		if u, err := url.Parse(location); err == nil {
			base = u.Path
		}
	}
	base = filepath.Base(base)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	if title == "" || title == "." || title == "/" {
		return ""
	}
	return title
}
