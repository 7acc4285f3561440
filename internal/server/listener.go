// Package server constructs and starts the chat service: the TCP accept loop
// that feeds the hub, and the optional WebSocket bridge alongside it.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"tcpchat/internal/protocol"
)

// Server ties one hub to its listeners: the framed TCP listener that is the
// primary surface, and the WebSocket bridge when configured.
type Server struct {
	cfg      Config
	hub      *Hub
	listener net.Listener
	wsServer *http.Server
}

// NewServer creates a server with a fresh hub for the given configuration.
func NewServer(cfg Config) *Server {
	cfg = cfg.Sanitize()
	return &Server{
		cfg: cfg,
		hub: NewHub(cfg),
	}
}

// Start binds the listeners and begins accepting connections. It returns as
// soon as the TCP listener is bound; accepting runs in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.Port)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Port, err)
	}
	s.listener = listener

	go s.hub.Run()
	go s.acceptLoop()
	log.Printf("Chat server listening on %s", listener.Addr())

	if s.cfg.WSPort != "" {
		s.wsServer = createWSServer(s.cfg, s.hub)
		go func() {
			log.Printf("WebSocket bridge listening on %s", s.cfg.WSPort)
			if err := s.wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("WebSocket bridge error: %v", err)
			}
		}()
	}

	return nil
}

// Addr returns the bound TCP address. Useful when the configured port was
// ":0" and the kernel picked one.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// acceptLoop drains pending connections for as long as the listener lives.
// An accept error on one connection never stops the loop.
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("Accept error: %v", err)
			continue
		}

		session := newSession(newTCPTransport(conn, s.cfg), s.hub, s.cfg)
		select {
		case s.hub.register <- session:
		case <-s.hub.ctx.Done():
			_ = conn.Close()
			return
		}
	}
}

// Shutdown stops accepting, shuts the WebSocket bridge down, and drains the
// hub within the timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	if err := s.listener.Close(); err != nil && !isExpectedCloseError(err) {
		log.Printf("Error closing listener: %v", err)
	}

	if s.wsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := s.wsServer.Shutdown(ctx); err != nil {
			log.Printf("WebSocket bridge shutdown error: %v", err)
		}
	}

	return s.hub.Shutdown(timeout)
}

// tcpTransport adapts a raw TCP connection to the framed transport interface
// using the shared length-prefix codec.
type tcpTransport struct {
	conn         net.Conn
	reader       *bufio.Reader
	maxFrameSize uint32
	writeTimeout time.Duration
}

func newTCPTransport(conn net.Conn, cfg Config) *tcpTransport {
	return &tcpTransport{
		conn:         conn,
		reader:       bufio.NewReader(conn),
		maxFrameSize: uint32(cfg.MaxMessageSize),
		writeTimeout: cfg.WriteTimeout,
	}
}

func (t *tcpTransport) ReadMessage() ([]byte, error) {
	return protocol.ReadFrame(t.reader, t.maxFrameSize)
}

// WriteMessage frames the payload onto the wire under an explicit deadline so
// a stuck peer cannot wedge the write pump.
func (t *tcpTransport) WriteMessage(payload []byte) error {
	if t.writeTimeout > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
			return err
		}
	}
	return protocol.WriteFrame(t.conn, payload)
}

func (t *tcpTransport) Close() error {
	return t.conn.Close()
}

func (t *tcpTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}
