package devserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/csheth/mdtranslate/internal/api"
	"github.com/csheth/mdtranslate/internal/chunk"
)

// ErrNotFound is returned for unknown document ids.
var ErrNotFound = errors.New("document not found")

// timeLayout is fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Store persists documents and settings in SQLite.
type Store struct {
	db   *sql.DB
	path string
	// chunkMu serializes the read-modify-write of chunks_data.
	chunkMu sync.Mutex
	now     func() time.Time
}

// OpenStore opens (and migrates) the database at dir/mdtranslate.db.
func OpenStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(dir, "mdtranslate.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps SQLite writers from tripping over each other.
	db.SetMaxOpenConns(1)
	if err := migrateStore(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, path: path, now: time.Now}, nil
}

func migrateStore(db *sql.DB) error {
	statements := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			title TEXT,
			original_content TEXT,
			translated_content TEXT NOT NULL DEFAULT '',
			chunks_data TEXT NOT NULL DEFAULT '[]',
			direction TEXT NOT NULL DEFAULT 'en2zh',
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TEXT,
			updated_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_updated_at ON documents(updated_at DESC);`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) stamp() string {
	return s.now().UTC().Format(timeLayout)
}

// CreateDocument inserts a new document in the processing state.
func (s *Store) CreateDocument(ctx context.Context, id, title, content string, direction api.Direction, chunks []api.WireChunk) (api.Document, error) {
	if chunks == nil {
		chunks = []api.WireChunk{}
	}
	encoded, err := json.Marshal(chunks)
	if err != nil {
		return api.Document{}, err
	}
	now := s.stamp()
	_, err = s.db.ExecContext(ctx, `INSERT INTO documents
		(id, title, original_content, translated_content, chunks_data, direction, status, created_at, updated_at)
		VALUES (?, ?, ?, '', ?, ?, 'processing', ?, ?)`,
		id, title, content, string(encoded), string(direction), now, now)
	if err != nil {
		return api.Document{}, fmt.Errorf("insert document: %w", err)
	}
	return s.GetDocument(ctx, id)
}

// GetDocument returns the full document.
func (s *Store) GetDocument(ctx context.Context, id string) (api.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, COALESCE(title, ''), COALESCE(original_content, ''),
		translated_content, chunks_data, direction, status, COALESCE(created_at, ''), COALESCE(updated_at, '')
		FROM documents WHERE id = ?`, id)
	var (
		doc                   api.Document
		chunksJSON, direction string
		createdAt, updatedAt  string
	)
	err := row.Scan(&doc.ID, &doc.Title, &doc.SourceContent, &doc.TranslatedContent, &chunksJSON,
		&direction, &doc.Status, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return api.Document{}, ErrNotFound
	}
	if err != nil {
		return api.Document{}, err
	}
	if err := json.Unmarshal([]byte(chunksJSON), &doc.Chunks); err != nil {
		return api.Document{}, fmt.Errorf("decode chunks of %s: %w", id, err)
	}
	doc.Direction = api.Direction(direction)
	doc.IsTranslated = doc.TranslatedContent != ""
	doc.CreatedAt = parseStamp(createdAt)
	doc.UpdatedAt = parseStamp(updatedAt)
	return doc, nil
}

// ListDocuments returns every document, most recently updated first.
func (s *Store) ListDocuments(ctx context.Context) ([]api.DocumentSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, COALESCE(title, ''), status,
		COALESCE(created_at, ''), COALESCE(updated_at, ''), translated_content != ''
		FROM documents ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []api.DocumentSummary{}
	for rows.Next() {
		var (
			summary              api.DocumentSummary
			createdAt, updatedAt string
		)
		if err := rows.Scan(&summary.ID, &summary.Title, &summary.Status, &createdAt, &updatedAt, &summary.IsTranslated); err != nil {
			return nil, err
		}
		summary.CreatedAt = parseStamp(createdAt)
		summary.UpdatedAt = parseStamp(updatedAt)
		docs = append(docs, summary)
	}
	return docs, rows.Err()
}

// UpdateChunk stores one chunk's translation and rebuilds the document's
// translated content from all chunks.
func (s *Store) UpdateChunk(ctx context.Context, id string, index int, text string, status chunk.Status) error {
	s.chunkMu.Lock()
	defer s.chunkMu.Unlock()

	var chunksJSON string
	err := s.db.QueryRowContext(ctx, `SELECT chunks_data FROM documents WHERE id = ?`, id).Scan(&chunksJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	var wire []api.WireChunk
	if err := json.Unmarshal([]byte(chunksJSON), &wire); err != nil {
		return fmt.Errorf("decode chunks of %s: %w", id, err)
	}
	found := false
	for i := range wire {
		if wire[i].Index == index {
			t := text
			wire[i].TranslatedText = &t
			wire[i].Status = string(status)
			found = true
			break
		}
	}
	if !found {
		return &chunk.UnknownIndexError{Index: index}
	}
	encoded, err := json.Marshal(wire)
	if err != nil {
		return err
	}
	translated := chunk.Assemble(api.ToChunks(wire))
	_, err = s.db.ExecContext(ctx, `UPDATE documents SET chunks_data = ?, translated_content = ?, updated_at = ? WHERE id = ?`,
		string(encoded), translated, s.stamp(), id)
	return err
}

// SetStatus updates the document-level status.
func (s *Store) SetStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET status = ?, updated_at = ? WHERE id = ?`, status, s.stamp(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteDocument removes a document.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Settings returns the stored settings as raw JSON values keyed by name.
func (s *Store) Settings(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]json.RawMessage{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		if !json.Valid([]byte(value)) {
			continue
		}
		out[key] = json.RawMessage(value)
	}
	return out, rows.Err()
}

// SaveSettings upserts every key of values.
func (s *Store) SaveSettings(ctx context.Context, values map[string]json.RawMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for key, value := range values {
		if _, err := tx.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, string(value)); err != nil {
			return fmt.Errorf("save setting %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// EffectiveSettings overlays the stored settings on defaults.
func (s *Store) EffectiveSettings(ctx context.Context, defaults api.Settings) (api.Settings, map[string]json.RawMessage, error) {
	merged := map[string]json.RawMessage{}
	base, err := json.Marshal(defaults)
	if err != nil {
		return defaults, nil, err
	}
	if err := json.Unmarshal(base, &merged); err != nil {
		return defaults, nil, err
	}
	stored, err := s.Settings(ctx)
	if err != nil {
		return defaults, nil, err
	}
	for k, v := range stored {
		merged[k] = v
	}
	raw, err := json.Marshal(merged)
	if err != nil {
		return defaults, nil, err
	}
	settings := defaults
	if err := json.Unmarshal(raw, &settings); err != nil {
		// A stored value of the wrong type falls back to the default for
		// the typed view; the raw map still reports what is stored.
		settings = defaults
	}
	return settings, merged, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func parseStamp(value string) api.Timestamp {
	if value == "" {
		return api.Timestamp{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return api.Timestamp{}
	}
	return api.Timestamp{Time: t}
}
