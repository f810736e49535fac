package chunk

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Status reports how far the remote worker got with a chunk.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusError:
		return true
	default:
		return false
	}
}

// Chunk is an indexed slice of the source document translated independently.
type Chunk struct {
	Index          int
	SourceText     string
	TranslatedText string
	Status         Status
}

// Patch carries the fields an update wants to overwrite. Nil fields are left alone.
type Patch struct {
	TranslatedText *string
	Status         *Status
}

// Update builds a patch that overwrites both the translated text and the status.
func Update(text string, status Status) Patch {
	return Patch{TranslatedText: &text, Status: &status}
}

// Progress counts completed chunks against the manifest size.
type Progress struct {
	Completed int
	Total     int
}

// Done reports whether every chunk in a non-empty collection completed.
func (p Progress) Done() bool {
	return p.Total > 0 && p.Completed == p.Total
}

func (p Progress) String() string {
	return fmt.Sprintf("%d/%d", p.Completed, p.Total)
}

// ErrUnknownIndex matches updates that target an index absent from the manifest.
var ErrUnknownIndex = errors.New("unknown chunk index")

// UnknownIndexError is returned by Upsert when no chunk carries the index.
type UnknownIndexError struct {
	Index int
}

func (e *UnknownIndexError) Error() string {
	return fmt.Sprintf("chunk %d: %v", e.Index, ErrUnknownIndex)
}

func (e *UnknownIndexError) Is(target error) bool {
	return target == ErrUnknownIndex
}

// Store is the ordered chunk collection of one document. It is not safe for
// concurrent use; the owning session serializes access.
type Store struct {
	byIndex map[int]*Chunk
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{byIndex: map[int]*Chunk{}}
}

// ReplaceAll drops the current collection and seeds it with chunks. When the
// input repeats an index the later entry wins.
func (s *Store) ReplaceAll(chunks []Chunk) {
	s.byIndex = make(map[int]*Chunk, len(chunks))
	for _, c := range chunks {
		c := c
		if c.Status == "" {
			c.Status = StatusPending
		}
		s.byIndex[c.Index] = &c
	}
}

// Upsert merges patch into the chunk at index. Updates for indices outside the
// manifest leave the store untouched and return an *UnknownIndexError.
func (s *Store) Upsert(index int, patch Patch) error {
	c, ok := s.byIndex[index]
	if !ok {
		return &UnknownIndexError{Index: index}
	}
	if patch.TranslatedText != nil {
		c.TranslatedText = *patch.TranslatedText
	}
	if patch.Status != nil {
		c.Status = *patch.Status
	}
	return nil
}

// Get returns a copy of the chunk at index.
func (s *Store) Get(index int) (Chunk, bool) {
	c, ok := s.byIndex[index]
	if !ok {
		return Chunk{}, false
	}
	return *c, true
}

// Len returns the number of chunks.
func (s *Store) Len() int {
	return len(s.byIndex)
}

// Chunks returns a copy of the collection sorted by index.
func (s *Store) Chunks() []Chunk {
	out := make([]Chunk, 0, len(s.byIndex))
	for _, c := range s.byIndex {
		out = append(out, *c)
	}
	sortByIndex(out)
	return out
}

// Assemble concatenates the translated text of every chunk in index order.
func (s *Store) Assemble() string {
	return Assemble(s.Chunks())
}

// Progress counts completed chunks. It is recomputed on every call.
func (s *Store) Progress() Progress {
	p := Progress{Total: len(s.byIndex)}
	for _, c := range s.byIndex {
		if c.Status == StatusCompleted {
			p.Completed++
		}
	}
	return p
}

// Assemble joins translated text in ascending index order with no separator;
// chunk boundaries already carry their own whitespace.
func Assemble(chunks []Chunk) string {
	ordered := append([]Chunk(nil), chunks...)
	sortByIndex(ordered)
	var b strings.Builder
	for _, c := range ordered {
		b.WriteString(c.TranslatedText)
	}
	return b.String()
}

func sortByIndex(chunks []Chunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Index < chunks[j].Index
	})
}
