package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const closeGrace = time.Second

// WebSocketDialer opens update channels against {BaseURL}/ws/translate/{documentID}.
type WebSocketDialer struct {
	BaseURL string
	Dialer  *websocket.Dialer
	Header  http.Header
}

func (d WebSocketDialer) Dial(ctx context.Context, documentID, connectionID string) (Conn, error) {
	target, err := StreamURL(d.BaseURL, documentID, connectionID)
	if err != nil {
		return nil, err
	}
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, target, d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake failed: %s: %w", resp.Status, err)
		}
		return nil, err
	}
	return &wsConn{conn: conn}, nil
}

// StreamURL builds the channel address for a document. http and https base
// URLs are mapped to ws and wss.
func StreamURL(base, documentID, connectionID string) (string, error) {
	if strings.TrimSpace(documentID) == "" {
		return "", fmt.Errorf("stream url: document id is required")
	}
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("stream url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("stream url: unsupported scheme %q", u.Scheme)
	}
	u.Path = u.Path + "/ws/translate/" + url.PathEscape(documentID)
	if connectionID != "" {
		q := u.Query()
		q.Set("connection_id", connectionID)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
	return c.conn.Close()
}
