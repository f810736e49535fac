package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	errorBodyLimit     = 512
)

// Client talks to the translation service's REST endpoints.
type Client struct {
	base string
	http *http.Client
}

// New builds a client for baseURL. A nil httpClient gets a 30s timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// BaseURL returns the service root the client was built with.
func (c *Client) BaseURL() string { return c.base }

// Submit sends a document for splitting and translation and returns its manifest.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (Manifest, error) {
	var manifest Manifest
	if err := c.do(ctx, http.MethodPost, "/api/translate", req, &manifest); err != nil {
		return Manifest{}, &SubmissionError{requestError: *err}
	}
	if manifest.DocumentID == "" {
		return Manifest{}, &SubmissionError{requestError: requestError{Status: http.StatusOK, Err: fmt.Errorf("manifest without docId")}}
	}
	return manifest, nil
}

// ListDocuments returns the saved translation runs, most recent first.
func (c *Client) ListDocuments(ctx context.Context) ([]DocumentSummary, error) {
	var payload struct {
		Documents []DocumentSummary `json:"documents"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/documents", nil, &payload); err != nil {
		return nil, &HistoryLoadError{requestError: *err}
	}
	return payload.Documents, nil
}

// GetDocument fetches one saved run with its content and chunks.
func (c *Client) GetDocument(ctx context.Context, id string) (Document, error) {
	var doc Document
	if err := c.do(ctx, http.MethodGet, "/api/documents/"+url.PathEscape(id), nil, &doc); err != nil {
		return Document{}, &HistoryLoadError{requestError: *err, ID: id}
	}
	return doc, nil
}

// DeleteDocument removes a saved run.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/documents/"+url.PathEscape(id), nil, nil); err != nil {
		return &HistoryDeleteError{requestError: *err, ID: id}
	}
	return nil
}

// GetSettings returns the stored settings merged over the defaults.
func (c *Client) GetSettings(ctx context.Context) (Settings, error) {
	settings := DefaultSettings()
	if err := c.do(ctx, http.MethodGet, "/api/settings", nil, &settings); err != nil {
		return DefaultSettings(), &SettingsError{requestError: *err, Op: "load"}
	}
	return settings, nil
}

// SaveSettings validates and stores settings.
func (c *Client) SaveSettings(ctx context.Context, settings Settings) error {
	if err := settings.Validate(); err != nil {
		return &SettingsError{requestError: requestError{Err: err}, Op: "validate"}
	}
	body := struct {
		Settings Settings `json:"settings"`
	}{Settings: settings}
	if err := c.do(ctx, http.MethodPost, "/api/settings", body, nil); err != nil {
		return &SettingsError{requestError: *err, Op: "save"}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) *requestError {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return &requestError{Err: err}
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return &requestError{Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &requestError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return &requestError{
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(excerpt)),
			Err:    fmt.Errorf("%s %s: %s", method, path, resp.Status),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &requestError{Status: resp.StatusCode, Err: fmt.Errorf("decode %s response: %w", path, err)}
	}
	return nil
}
