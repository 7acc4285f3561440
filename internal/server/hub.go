// Package server coordinates session registration, command dispatch, message
// broadcast, and connection cleanup for the chat system via the Hub type.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// Hub owns the session registry and is its only mutator. Listeners hand new
// sessions to the register channel, pumps report lines and disconnects, and
// the Run loop serializes every mutation and every broadcast on one goroutine.
// That serialization is the whole concurrency model: nothing else reads or
// writes the registry, nicknames, or rooms.
type Hub struct {
	registry   *registry
	cfg        Config
	register   chan *Session
	unregister chan *Session
	inbound    chan inboundMessage
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a hub ready to manage sessions under the given configuration.
func NewHub(cfg Config) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		registry:   newRegistry(),
		cfg:        cfg.Sanitize(),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		inbound:    make(chan inboundMessage),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop, handling session registration, inbound
// chat lines, and disconnects. It should be called in its own goroutine and
// runs until Shutdown. A single misbehaving session never terminates the
// loop: session-level failures end that session only.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownSessions()
			return

		case s := <-h.register:
			h.handleRegister(s)

		case s := <-h.unregister:
			h.dropSession(s, true)

		case msg := <-h.inbound:
			h.handleInbound(msg.session, msg.text)
		}
	}
}

// Shutdown initiates graceful shutdown and waits for all session goroutines
// to finish, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	h.cancel()
	<-h.done

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		log.Println("Hub shutdown completed")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}

// handleRegister admits a new session: registry insert, pump start, private
// welcome, and a join announcement to everyone else. The announcement is
// deliberately global rather than room-scoped.
func (h *Hub) handleRegister(s *Session) {
	h.registry.register(s)
	log.Printf("Session %s registered as %s. Total sessions: %d", s.id, s.nickname, h.registry.count())

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		s.writePump()
	}()
	go func() {
		defer h.wg.Done()
		s.readPump()
	}()

	h.sendTo(s, fmt.Sprintf("You joined as %s!", s.nickname))
	h.broadcastAll(fmt.Sprintf("%s joined the chat", s.nickname), s)
}

// handleInbound acknowledges, parses, and dispatches one decoded line.
func (h *Hub) handleInbound(s *Session, line string) {
	// Receipt acknowledgement, sent before any dispatch happens.
	h.sendTo(s, ">> "+line)

	switch cmd := parseCommand(line).(type) {
	case setNameCmd:
		h.handleSetName(s, cmd)

	case listCmd:
		h.sendTo(s, strings.Join(h.registry.nicknames(), ", "))

	case helpCmd:
		h.sendTo(s, helpText)

	case whisperCmd:
		h.handleWhisper(s, cmd)

	case joinCmd:
		h.handleJoin(s, cmd)

	case listRoomsCmd:
		h.sendTo(s, strings.Join(h.registry.roomNames(), ", "))

	case listRoomCmd:
		h.sendTo(s, strings.Join(h.registry.roomNicknames(s.room), ", "))

	case chatCmd:
		stamped := fmt.Sprintf("[%s] %s: %s", time.Now().Format("15:04:05"), s.nickname, cmd.Text)
		h.broadcastRoom(s.room, stamped, s)
	}
}

func (h *Hub) handleSetName(s *Session, cmd setNameCmd) {
	old := s.nickname
	err := h.registry.rename(s, cmd.Name)
	switch {
	case errors.Is(err, ErrNameEmpty):
		h.sendTo(s, "Name cannot be empty.")
	case errors.Is(err, ErrNameTaken):
		h.sendTo(s, fmt.Sprintf("Name %s is already taken.", strings.TrimSpace(cmd.Name)))
	default:
		h.sendTo(s, fmt.Sprintf("Your nickname is now %s.", s.nickname))
		h.broadcastRoom(s.room, fmt.Sprintf("%s changed name to %s", old, s.nickname), s)
	}
}

func (h *Hub) handleWhisper(s *Session, cmd whisperCmd) {
	if cmd.Target == "" || cmd.Message == "" {
		h.sendTo(s, "Usage: /whisper <nickname> <message>")
		return
	}

	target := h.registry.findByNickname(cmd.Target)
	if target == nil {
		h.sendTo(s, fmt.Sprintf("User %s not found.", cmd.Target))
		return
	}

	h.sendTo(target, fmt.Sprintf("[Whisper] from %s: %s", s.nickname, cmd.Message))
	h.sendTo(s, fmt.Sprintf("[Whisper] to %s: %s", target.nickname, cmd.Message))
}

func (h *Hub) handleJoin(s *Session, cmd joinCmd) {
	room := cmd.Room
	if room == "" {
		room = DefaultRoom
	}

	s.room = room
	h.sendTo(s, fmt.Sprintf("You joined room %s.", room))
	h.broadcastRoom(room, fmt.Sprintf("%s joined room %s", s.nickname, room), s)
}

// broadcastAll delivers a message to every live session, minus the exclusion.
func (h *Hub) broadcastAll(message string, exclude *Session) {
	h.deliver(h.registry.snapshot(), message, exclude)
}

// broadcastRoom delivers a message to the sessions in one room, minus the
// exclusion.
func (h *Hub) broadcastRoom(room, message string, exclude *Session) {
	h.deliver(h.registry.roomSnapshot(room), message, exclude)
}

// deliver attempts each recipient independently: one full send queue neither
// aborts delivery to the others nor surfaces to the dispatcher. Failed
// recipients are collected during the loop and reaped after it, so the
// snapshot being iterated is never mutated mid-delivery.
func (h *Hub) deliver(recipients []*Session, message string, exclude *Session) {
	var faulty []*Session
	for _, s := range recipients {
		if s == exclude {
			continue
		}
		if !h.safeSend(s, message) {
			faulty = append(faulty, s)
		}
	}

	for _, s := range faulty {
		log.Printf("Session %s (%s) dropped: send queue full", s.id, s.nickname)
		h.dropSession(s, true)
	}
}

// sendTo unicasts to one session, dropping the session if its queue is full.
func (h *Hub) sendTo(s *Session, message string) {
	if !h.safeSend(s, message) {
		log.Printf("Session %s (%s) dropped: send queue full", s.id, s.nickname)
		h.dropSession(s, true)
	}
}

func (h *Hub) safeSend(s *Session, message string) bool {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in safeSend: %v", r)
		}
	}()

	if s.closed {
		return false
	}

	select {
	case s.send <- []byte(message):
		return true
	default:
		return false
	}
}

// dropSession removes a session and closes its send queue, which ends the
// write pump and closes the transport. Removal is idempotent: the departure
// announcement fires only when the session was still registered, so a session
// reaped from several paths is announced exactly once.
func (h *Hub) dropSession(s *Session, announce bool) {
	if !h.registry.remove(s) {
		return
	}

	s.closed = true
	close(s.send)
	log.Printf("Session %s (%s) removed. Total sessions: %d", s.id, s.nickname, h.registry.count())

	if announce {
		h.broadcastAll(fmt.Sprintf("%s left the chat", s.nickname), nil)
	}
}

// shutdownSessions closes every remaining session without departure
// announcements; the process is going away with them.
func (h *Hub) shutdownSessions() {
	sessions := h.registry.snapshot()
	log.Printf("Shutting down %d client sessions...", len(sessions))

	for _, s := range sessions {
		h.registry.remove(s)
		s.closed = true
		close(s.send)
	}
}
