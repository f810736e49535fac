package devserver

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/csheth/mdtranslate/internal/stream"
)

const (
	viewerBuffer = 256
	writeWait    = 10 * time.Second
)

// hub fans document events out to every connected viewer. Viewers are keyed
// by document and connection id, so one client reconnecting replaces its old
// socket instead of receiving events twice.
type hub struct {
	mu      sync.Mutex
	viewers map[string]map[string]*viewer
}

type viewer struct {
	documentID   string
	connectionID string
	conn         *websocket.Conn
	send         chan []byte
	done         chan struct{}
	once         sync.Once
}

func newHub() *hub {
	return &hub{viewers: map[string]map[string]*viewer{}}
}

// join registers conn as a viewer of documentID and starts its writer.
func (h *hub) join(documentID, connectionID string, conn *websocket.Conn) *viewer {
	v := &viewer{
		documentID:   documentID,
		connectionID: connectionID,
		conn:         conn,
		send:         make(chan []byte, viewerBuffer),
		done:         make(chan struct{}),
	}
	h.mu.Lock()
	byConn := h.viewers[documentID]
	if byConn == nil {
		byConn = map[string]*viewer{}
		h.viewers[documentID] = byConn
	}
	previous := byConn[connectionID]
	byConn[connectionID] = v
	h.mu.Unlock()

	if previous != nil {
		log.Printf("[hub] %s: connection %s replaced", documentID, connectionID)
		previous.close()
	}
	go v.writeLoop()
	return v
}

// leave unregisters v if it is still the current viewer for its key.
func (h *hub) leave(v *viewer) {
	h.mu.Lock()
	if byConn := h.viewers[v.documentID]; byConn != nil && byConn[v.connectionID] == v {
		delete(byConn, v.connectionID)
		if len(byConn) == 0 {
			delete(h.viewers, v.documentID)
		}
	}
	h.mu.Unlock()
	v.close()
}

// broadcast sends ev to every viewer of documentID. A viewer that cannot keep
// up is dropped.
func (h *hub) broadcast(documentID string, ev stream.Event) {
	raw, err := stream.Encode(ev)
	if err != nil {
		log.Printf("[hub] %s: encode: %v", documentID, err)
		return
	}
	h.mu.Lock()
	targets := make([]*viewer, 0, len(h.viewers[documentID]))
	for _, v := range h.viewers[documentID] {
		targets = append(targets, v)
	}
	h.mu.Unlock()

	for _, v := range targets {
		select {
		case v.send <- raw:
		case <-v.done:
		default:
			log.Printf("[hub] %s: viewer %s too slow, dropping", documentID, v.connectionID)
			h.leave(v)
		}
	}
}

// viewerCount reports how many sockets are watching documentID.
func (h *hub) viewerCount(documentID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.viewers[documentID])
}

// closeAll disconnects every viewer.
func (h *hub) closeAll() {
	h.mu.Lock()
	var all []*viewer
	for _, byConn := range h.viewers {
		for _, v := range byConn {
			all = append(all, v)
		}
	}
	h.viewers = map[string]map[string]*viewer{}
	h.mu.Unlock()
	for _, v := range all {
		v.close()
	}
}

func (v *viewer) close() {
	v.once.Do(func() {
		close(v.done)
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
		_ = v.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = v.conn.Close()
	})
}

func (v *viewer) writeLoop() {
	for {
		select {
		case <-v.done:
			return
		case raw := <-v.send:
			_ = v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				log.Printf("[hub] %s: write to %s: %v", v.documentID, v.connectionID, err)
				v.close()
				return
			}
		}
	}
}
