// Package transport wraps a gorilla/websocket connection behind the minimal
// blocking interface the client pipeline consumes: Connect, Send, Read,
// Close. Failures never cross the boundary as panics; Send logs and returns
// the error while Read maps stream end and read errors to a nil frame.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
)

// WebSocket is a single client connection to the exchange endpoint.
type WebSocket struct {
	url string
	id  string
	log *slog.Logger

	mu     sync.Mutex // guards conn writes and the closed flag
	conn   *websocket.Conn
	closed bool
}

// NewWebSocket prepares a connection to url. Nothing is dialed until Connect.
func NewWebSocket(url string, log *slog.Logger) *WebSocket {
	if log == nil {
		log = slog.Default()
	}
	id := uuid.New().String()
	return &WebSocket{
		url: url,
		id:  id,
		log: log.With("conn_id", id, "url", url),
	}
}

// ID returns the connection's identifier used in log records.
func (w *WebSocket) ID() string { return w.id }

// Connect dials the WebSocket endpoint, performing the TLS and WebSocket
// handshakes.
func (w *WebSocket) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}

	w.log.Info("connecting")
	conn, _, err := dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("transport: dial %s: %w", w.url, err)
	}

	w.mu.Lock()
	w.conn = conn
	w.closed = false
	w.mu.Unlock()

	w.log.Info("connected")
	return nil
}

// Send writes one text frame. Errors are logged and returned; the caller is
// expected to continue rather than retry.
func (w *WebSocket) Send(msg []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.conn == nil {
		return fmt.Errorf("transport: send on closed connection")
	}

	w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := w.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		w.log.Error("send failed", "err", err)
		return fmt.Errorf("transport: send: %w", err)
	}
	return nil
}

// Read blocks until the next text frame arrives. It returns nil on stream
// end or read error; Close unblocks an in-flight Read the same way.
func (w *WebSocket) Read() []byte {
	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()
	if conn == nil {
		return nil
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			w.log.Warn("read failed", "err", err)
		} else {
			w.log.Debug("stream ended", "err", err)
		}
		return nil
	}
	return data
}

// Close sends a close frame on a best-effort basis and tears the connection
// down, unblocking any goroutine parked in Read. Idempotent.
func (w *WebSocket) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.conn == nil {
		return nil
	}
	w.closed = true

	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	w.conn.WriteControl(websocket.CloseMessage, msg, deadline)

	err := w.conn.Close()
	w.log.Info("closed")
	return err
}
