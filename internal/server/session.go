// Package server manages individual chat sessions, handling the read/write
// pumps, rate limiting, and lifecycle signalling for each connection.
package server

import (
	"errors"
	"io"
	"log"
)

// Session is one live client connection's server-side state: a stable
// connection id, the mutable nickname and room, the framed transport, and the
// buffered send queue drained by the write pump.
//
// nickname, room, and closed are owned by the hub goroutine. The pumps never
// touch them; they identify the session in logs by id only.
type Session struct {
	id        string
	nickname  string
	room      string
	transport transport
	send      chan []byte
	hub       *Hub
	closed    bool
	limiter   *rateLimiter
}

func newSession(t transport, hub *Hub, cfg Config) *Session {
	return &Session{
		id:        t.RemoteAddr(),
		transport: t,
		send:      make(chan []byte, cfg.SendQueueSize),
		hub:       hub,
		limiter:   newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
	}
}

// readPump decodes framed messages until the transport fails and forwards each
// line to the hub. It drains frames as fast as they arrive, so a burst of
// queued messages is processed in arrival order rather than one per tick.
//
// Any read error ends the session: an orderly peer close surfaces as io.EOF
// from the frame decoder, which replaces the zero-byte liveness peek of a
// polling design. Malformed framing is confined to this session and never
// reaches the hub loop.
func (s *Session) readPump() {
	defer s.notifyDisconnect()

	for {
		payload, err := s.transport.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Printf("Session %s closed by peer", s.id)
			} else if !isExpectedCloseError(err) {
				log.Printf("Read error from %s: %v", s.id, err)
			}
			return
		}

		if !s.limiter.allow() {
			log.Printf("Rate limit exceeded for %s; discarding message", s.id)
			continue
		}

		select {
		case s.hub.inbound <- inboundMessage{session: s, text: string(payload)}:
		case <-s.hub.ctx.Done():
			return
		}
	}
}

// writePump drains the send queue into the transport. It owns the single
// transport.Close call: the hub ends the pump by closing the send channel, and
// a write failure ends it directly after flagging the session for removal.
func (s *Session) writePump() {
	defer func() {
		if err := s.transport.Close(); err != nil && !isExpectedCloseError(err) {
			log.Printf("Error closing transport for %s: %v", s.id, err)
		}
	}()

	for message := range s.send {
		if err := s.transport.WriteMessage(message); err != nil {
			if !isExpectedCloseError(err) {
				log.Printf("Write error to %s: %v", s.id, err)
			}
			s.notifyDisconnect()
			return
		}
	}
}

// notifyDisconnect queues the session for removal without blocking a shutdown
// in progress. Both pumps may report the same session; removal is idempotent.
func (s *Session) notifyDisconnect() {
	select {
	case s.hub.unregister <- s:
	case <-s.hub.ctx.Done():
	}
}
