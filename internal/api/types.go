package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/csheth/mdtranslate/internal/chunk"
)

// Direction tells the translation service which way to translate. The client
// passes it through untouched.
type Direction string

const (
	DirectionEnToZh Direction = "en2zh"
	DirectionZhToEn Direction = "zh2en"
)

// Flip returns the opposite direction.
func (d Direction) Flip() Direction {
	if d == DirectionZhToEn {
		return DirectionEnToZh
	}
	return DirectionZhToEn
}

// Labels returns the source and target language names shown in the UI.
func (d Direction) Labels() (string, string) {
	if d == DirectionZhToEn {
		return "Chinese", "English"
	}
	return "English", "Chinese"
}

// ParseDirection accepts en2zh / zh2en and falls back to en2zh.
func ParseDirection(value string) Direction {
	if Direction(strings.ToLower(strings.TrimSpace(value))) == DirectionZhToEn {
		return DirectionZhToEn
	}
	return DirectionEnToZh
}

// Timestamp decodes RFC 3339 times as well as the zone-less ISO 8601 form
// some services emit.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05"}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + t.Format(time.RFC3339Nano) + `"`), nil
}

// SubmitRequest is the body of the split/translate call.
type SubmitRequest struct {
	Content   string    `json:"content"`
	Title     string    `json:"title"`
	Direction Direction `json:"direction"`
}

// WireChunk is a chunk as the translation service serializes it.
type WireChunk struct {
	Index          int     `json:"chunk_index"`
	SourceText     string  `json:"raw_text"`
	TranslatedText *string `json:"translated_text"`
	Status         string  `json:"status"`
	StartLine      int     `json:"start_line,omitempty"`
	EndLine        int     `json:"end_line,omitempty"`
}

// Manifest is the service's initial chunk decomposition of a document.
type Manifest struct {
	DocumentID string      `json:"docId"`
	Chunks     []WireChunk `json:"chunks"`
}

// DocumentSummary is one history entry.
type DocumentSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Status       string    `json:"status"`
	CreatedAt    Timestamp `json:"created_at"`
	UpdatedAt    Timestamp `json:"updated_at"`
	IsTranslated bool      `json:"is_translated"`
}

// Document is a persisted translation run.
type Document struct {
	ID                string      `json:"id"`
	Title             string      `json:"title"`
	Status            string      `json:"status"`
	SourceContent     string      `json:"original_content"`
	TranslatedContent string      `json:"translated_content"`
	Chunks            []WireChunk `json:"chunks_data"`
	Direction         Direction   `json:"direction,omitempty"`
	IsTranslated      bool        `json:"is_translated"`
	CreatedAt         Timestamp   `json:"created_at"`
	UpdatedAt         Timestamp   `json:"updated_at"`
}

// HasTranslation reports whether the document has anything to show on the
// translated side.
func (d Document) HasTranslation() bool {
	return d.IsTranslated || d.TranslatedContent != ""
}

// Settings are the user preferences stored by the service.
type Settings struct {
	ModelProvider   string  `json:"llm_provider"`
	ModelName       string  `json:"llm_model"`
	Temperature     float64 `json:"temperature"`
	ChunkCount      int     `json:"num_chunks"`
	AutoSaveHistory bool    `json:"auto_save"`
}

// DefaultSettings mirrors the service defaults.
func DefaultSettings() Settings {
	return Settings{
		ModelProvider:   "qwen",
		ModelName:       "qwen-flash",
		Temperature:     0.1,
		ChunkCount:      3,
		AutoSaveHistory: true,
	}
}

// Validate checks the documented ranges.
func (s Settings) Validate() error {
	if s.Temperature < 0 || s.Temperature > 1 {
		return fmt.Errorf("temperature %.2f outside 0.0-1.0", s.Temperature)
	}
	if s.ChunkCount < 1 {
		return fmt.Errorf("chunk count %d must be at least 1", s.ChunkCount)
	}
	return nil
}

// ToChunks converts wire chunks into store chunks. A missing translation
// becomes an empty string and a missing status becomes pending.
func ToChunks(wire []WireChunk) []chunk.Chunk {
	out := make([]chunk.Chunk, 0, len(wire))
	for _, w := range wire {
		c := chunk.Chunk{Index: w.Index, SourceText: w.SourceText, Status: chunk.Status(w.Status)}
		if w.TranslatedText != nil {
			c.TranslatedText = *w.TranslatedText
		}
		if !c.Status.Valid() {
			c.Status = chunk.StatusPending
		}
		out = append(out, c)
	}
	return out
}

// FromChunks converts store chunks into their wire form.
func FromChunks(chunks []chunk.Chunk) []WireChunk {
	out := make([]WireChunk, 0, len(chunks))
	for _, c := range chunks {
		w := WireChunk{Index: c.Index, SourceText: c.SourceText, Status: string(c.Status)}
		if c.TranslatedText != "" {
			text := c.TranslatedText
			w.TranslatedText = &text
		}
		out = append(out, w)
	}
	return out
}
