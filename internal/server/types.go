// Package server defines the shared transport abstraction, hub event types,
// and utility helpers that are reused across session and hub logic.
package server

import "strings"

// transport abstracts one framed, bidirectional message stream so the hub can
// treat raw TCP connections and bridged WebSocket connections alike. One call
// to ReadMessage yields exactly one chat line; one call to WriteMessage sends
// exactly one.
type transport interface {
	ReadMessage() ([]byte, error)
	WriteMessage(payload []byte) error
	Close() error
	RemoteAddr() string
}

// inboundMessage is one decoded line from a session, handed to the hub for
// interpretation.
type inboundMessage struct {
	session *Session
	text    string
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "connection reset by peer")
}
