package editor

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/inkwell-editor/inkwell/logging"
	"github.com/sirupsen/logrus"
)

// Frame types spoken over the websocket.
const (
	frameSetContent     = "setContent"
	frameContentChanged = "contentChanged"
)

type wsFrame struct {
	Type         string `json:"type"`
	HTML         string `json:"html,omitempty"`
	ResetHistory bool   `json:"reset_history,omitempty"`
}

// WSBridge implements Surface over a websocket connection to a browser-side
// editor. One client at a time; a new connection displaces the old one.
type WSBridge struct {
	upgrader websocket.Upgrader
	log      *logrus.Entry
	changes  chan string

	mu      sync.Mutex
	conn    *websocket.Conn
	content string
	closed  bool
}

var _ Surface = (*WSBridge)(nil)

// NewWSBridge creates a bridge with no client attached yet.
func NewWSBridge() *WSBridge {
	return &WSBridge{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		log:     logging.NewLogger("wsbridge"),
		changes: make(chan string, 16),
	}
}

// Handler returns the HTTP handler that upgrades the editor connection.
func (b *WSBridge) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := b.upgrader.Upgrade(w, r, nil)
		if err != nil {
			b.log.WithError(err).Warn("Websocket upgrade failed")
			return
		}

		b.mu.Lock()
		if b.conn != nil {
			b.conn.Close()
		}
		b.conn = conn
		b.mu.Unlock()

		b.log.WithField("remote", conn.RemoteAddr().String()).Info("Editor connected")
		go b.readLoop(conn)
	})
}

func (b *WSBridge) readLoop(conn *websocket.Conn) {
	for {
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			b.mu.Lock()
			if b.conn == conn {
				b.conn = nil
			}
			b.mu.Unlock()
			b.log.WithError(err).Debug("Editor disconnected")
			return
		}

		if frame.Type != frameContentChanged {
			continue
		}

		b.mu.Lock()
		b.content = frame.HTML
		if b.closed {
			b.mu.Unlock()
			return
		}
		// Drop the oldest pending notification rather than block the read
		// loop; each frame carries the full current content.
		select {
		case b.changes <- frame.HTML:
		default:
			select {
			case <-b.changes:
			default:
			}
			b.changes <- frame.HTML
		}
		b.mu.Unlock()
	}
}

// GetContent implements Surface. Change notifications carry the full
// document, so the last received frame is the current content.
func (b *WSBridge) GetContent(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.content, nil
}

// SetContent implements Surface.
func (b *WSBridge) SetContent(ctx context.Context, html string, resetHistory bool) error {
	b.mu.Lock()
	conn := b.conn
	b.content = html
	b.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.WriteJSON(wsFrame{Type: frameSetContent, HTML: html, ResetHistory: resetHistory})
}

// Changes implements Surface.
func (b *WSBridge) Changes() <-chan string {
	return b.changes
}

// Close implements Surface.
func (b *WSBridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	close(b.changes)
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
	return nil
}
