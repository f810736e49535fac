package document

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const (
	cacheEnvVar     = "MDTRANSLATE_CACHE_DIR"
	cacheSubdir     = "mdtranslate/sources"
	cacheTTL        = 24 * time.Hour
	partialSuffix   = ".part"
	metaSuffix      = ".meta"
	downloadTimeout = 90 * time.Second
)

// sourceCache keeps downloaded documents so repeated loads of the same URL
// revalidate instead of downloading again.
type sourceCache struct {
	dir    string
	client *http.Client
}

type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"lastModified"`
	CachedAt     time.Time `json:"cachedAt"`
	Size         int64     `json:"size"`
}

type cachePaths struct {
	body    string
	meta    string
	partial string
}

func newSourceCache(client *http.Client) (*sourceCache, error) {
	dir := os.Getenv(cacheEnvVar)
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = filepath.Join(os.TempDir(), "mdtranslate-cache")
		}
		dir = filepath.Join(base, cacheSubdir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: downloadTimeout}
	}
	return &sourceCache{dir: dir, client: client}, nil
}

// Fetch returns a local path holding the document at rawURL. A stale copy is
// still returned when revalidation fails.
func (c *sourceCache) Fetch(ctx context.Context, rawURL string) (string, error) {
	paths := c.pathsFor(rawURL)
	info, statErr := os.Stat(paths.body)
	if statErr == nil && info.Size() > 0 && time.Since(info.ModTime()) < cacheTTL {
		return paths.body, nil
	}
	if statErr != nil {
		info = nil
	}

	meta, _ := readMeta(paths.meta)
	got, err := c.download(ctx, rawURL, paths, meta, info)
	if err == nil {
		return got, nil
	}
	if info != nil && info.Size() > 0 {
		return paths.body, nil
	}
	return "", err
}

func (c *sourceCache) download(ctx context.Context, rawURL string, paths cachePaths, meta cacheMeta, current os.FileInfo) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	haveBody := current != nil && current.Size() > 0
	if haveBody {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	var resumeFrom int64
	if info, err := os.Stat(paths.partial); err == nil && info.Size() > 0 {
		resumeFrom = info.Size()
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", resumeFrom))
		switch {
		case meta.ETag != "":
			req.Header.Set("If-Range", meta.ETag)
		case meta.LastModified != "":
			req.Header.Set("If-Range", meta.LastModified)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		if !haveBody {
			return c.download(ctx, rawURL, paths, cacheMeta{}, nil)
		}
		meta.CachedAt = time.Now().UTC()
		now := time.Now()
		_ = os.Chtimes(paths.body, now, now)
		if err := writeMeta(paths.meta, meta); err != nil {
			return "", err
		}
		return paths.body, nil
	case http.StatusOK:
		return c.store(resp, paths, false)
	case http.StatusPartialContent:
		return c.store(resp, paths, resumeFrom > 0)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("download failed: %s (%s)", resp.Status, strings.TrimSpace(string(body)))
	}
}

func (c *sourceCache) store(resp *http.Response, paths cachePaths, appendPartial bool) (string, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if appendPartial {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(paths.partial, flags, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(paths.partial, paths.body); err != nil {
		return "", err
	}

	meta := cacheMeta{
		URL:          resp.Request.URL.String(),
		ETag:         resp.Header.Get("Etag"),
		LastModified: resp.Header.Get("Last-Modified"),
		CachedAt:     time.Now().UTC(),
	}
	if info, err := os.Stat(paths.body); err == nil {
		meta.Size = info.Size()
	}
	if err := writeMeta(paths.meta, meta); err != nil {
		return "", err
	}
	return paths.body, nil
}

// pathsFor keys entries by URL hash and keeps the URL's extension so the
// loader can pick a reader for the cached file.
func (c *sourceCache) pathsFor(rawURL string) cachePaths {
	sum := sha1.Sum([]byte(rawURL))
	key := hex.EncodeToString(sum[:])
	ext := ".md"
	if u, err := url.Parse(rawURL); err == nil {
		if e := strings.ToLower(path.Ext(u.Path)); e == ".pdf" || (e != "" && textExtensions[e]) {
			ext = e
		}
	}
	base := filepath.Join(c.dir, key)
	return cachePaths{body: base + ext, meta: base + metaSuffix, partial: base + partialSuffix}
}

func readMeta(path string) (cacheMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cacheMeta{}, err
	}
	var meta cacheMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheMeta{}, err
	}
	return meta, nil
}

func writeMeta(path string, meta cacheMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
