package stream

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/csheth/mdtranslate/internal/chunk"
)

// Kind tags inbound channel events.
type Kind string

const (
	KindChunkUpdate Kind = "chunk_update"
	KindComplete    Kind = "complete"
)

// Event is one decoded message from the update channel.
type Event struct {
	Kind           Kind
	Index          int
	TranslatedText string
	Status         chunk.Status
}

// ChunkUpdate builds a chunk_update event.
func ChunkUpdate(index int, text string, status chunk.Status) Event {
	return Event{Kind: KindChunkUpdate, Index: index, TranslatedText: text, Status: status}
}

// Complete builds the terminal event of a run.
func Complete() Event {
	return Event{Kind: KindComplete}
}

// Patch converts a chunk_update into a store patch. The translated text is
// always overwritten, even when the frame carried none.
func (e Event) Patch() chunk.Patch {
	return chunk.Update(e.TranslatedText, e.Status)
}

type wirePayload struct {
	TranslatedText *string `json:"translatedText,omitempty"`
	Status         string  `json:"status,omitempty"`
}

type wireMessage struct {
	Type           string       `json:"type"`
	ChunkIndex     *int         `json:"chunkIndex,omitempty"`
	Index          *int         `json:"index,omitempty"`
	TranslatedText *string      `json:"translatedText,omitempty"`
	Status         string       `json:"status,omitempty"`
	Data           *wirePayload `json:"data,omitempty"`
}

var errMalformed = errors.New("malformed stream message")

// Decode parses one frame. chunk_update frames use the nested data object of
// the translation service; flat index/translatedText/status fields are also
// accepted. A missing status decodes as processing.
func Decode(raw []byte) (Event, error) {
	var msg wireMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Event{}, fmt.Errorf("%w: %v", errMalformed, err)
	}
	switch Kind(msg.Type) {
	case KindComplete:
		return Complete(), nil
	case KindChunkUpdate:
	default:
		return Event{}, fmt.Errorf("%w: unknown type %q", errMalformed, msg.Type)
	}

	index := msg.ChunkIndex
	if index == nil {
		index = msg.Index
	}
	if index == nil {
		return Event{}, fmt.Errorf("%w: chunk_update without index", errMalformed)
	}
	text := msg.TranslatedText
	status := msg.Status
	if msg.Data != nil {
		if msg.Data.TranslatedText != nil {
			text = msg.Data.TranslatedText
		}
		if msg.Data.Status != "" {
			status = msg.Data.Status
		}
	}
	ev := Event{Kind: KindChunkUpdate, Index: *index, Status: chunk.StatusProcessing}
	if text != nil {
		ev.TranslatedText = *text
	}
	if status != "" {
		ev.Status = chunk.Status(status)
		if !ev.Status.Valid() {
			return Event{}, fmt.Errorf("%w: unknown status %q", errMalformed, status)
		}
	}
	return ev, nil
}

// Encode renders an event in the translation service's wire format.
func Encode(ev Event) ([]byte, error) {
	switch ev.Kind {
	case KindComplete:
		return json.Marshal(wireMessage{Type: string(KindComplete)})
	case KindChunkUpdate:
		index := ev.Index
		text := ev.TranslatedText
		return json.Marshal(wireMessage{
			Type:       string(KindChunkUpdate),
			ChunkIndex: &index,
			Data:       &wirePayload{TranslatedText: &text, Status: string(ev.Status)},
		})
	default:
		return nil, fmt.Errorf("cannot encode event kind %q", ev.Kind)
	}
}
