// Package server bridges WebSocket clients into the chat hub. A bridged
// client is a full participant: one text WebSocket message carries exactly
// one chat line, mirroring one length-prefixed frame on the TCP side.
package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// NewWebSocketHandler returns the upgrade handler for the /ws endpoint. It
// validates the request method and origin, upgrades the connection, and hands
// the resulting session to the hub like any TCP accept would.
func NewWebSocketHandler(hub *Hub, cfg Config) http.HandlerFunc {
	cfg = cfg.Sanitize()
	policy := newOriginPolicy(cfg.AllowedOrigins)
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     policy.check,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			return
		}
		conn.SetReadLimit(cfg.MaxMessageSize)

		session := newSession(newWSTransport(conn, cfg), hub, cfg)
		select {
		case hub.register <- session:
		case <-hub.ctx.Done():
			_ = conn.Close()
		}
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Chat server is running!")
}

// newWSMux wires the bridge routes: health check at the root and the
// WebSocket upgrade endpoint at /ws.
func newWSMux(hub *Hub, cfg Config) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/ws", NewWebSocketHandler(hub, cfg))
	return mux
}

// createWSServer builds the bridge HTTP server with conservative timeouts.
// The timeouts govern the upgrade handshake only; once hijacked, a WebSocket
// connection is paced by the session's own write deadline.
func createWSServer(cfg Config, hub *Hub) *http.Server {
	return &http.Server{
		Addr:         cfg.WSPort,
		Handler:      newWSMux(hub, cfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// wsTransport adapts a WebSocket connection to the framed transport
// interface. Non-text frames are skipped; gorilla handles control frames
// internally.
type wsTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func newWSTransport(conn *websocket.Conn, cfg Config) *wsTransport {
	return &wsTransport{
		conn:         conn,
		writeTimeout: cfg.WriteTimeout,
	}
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	for {
		messageType, payload, err := t.conn.ReadMessage()
		if err != nil {
			// An orderly WebSocket close is the bridge's equivalent of EOF on
			// the TCP side, so the session layer sees one shape of goodbye.
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			if errors.Is(err, websocket.ErrReadLimit) {
				return nil, fmt.Errorf("websocket read limit exceeded: %w", err)
			}
			return nil, err
		}

		if messageType != websocket.TextMessage {
			continue
		}
		return payload, nil
	}
}

func (t *wsTransport) WriteMessage(payload []byte) error {
	if t.writeTimeout > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
			return err
		}
	}
	return t.conn.WriteMessage(websocket.TextMessage, payload)
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

func (t *wsTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}
