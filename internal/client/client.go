// Package client implements the interactive chat client: a background
// receive goroutine that decodes framed messages into a buffered inbox, a
// single display consumer that renders them, and a foreground input loop
// with fail-fast reconnect on send failure.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"tcpchat/internal/protocol"
)

// ReconnectConfig paces the dial retries after a connection failure.
type ReconnectConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	MaxAttempts  int
}

// Config holds the client settings.
type Config struct {
	Addr           string
	DialTimeout    time.Duration
	MaxMessageSize int64
	InboxSize      int
	Reconnect      ReconnectConfig
}

// DefaultConfig returns the settings for a local server on the default port.
func DefaultConfig() Config {
	return Config{
		Addr:           "localhost:55555",
		DialTimeout:    5 * time.Second,
		MaxMessageSize: 4096,
		InboxSize:      64,
		Reconnect: ReconnectConfig{
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
			MaxAttempts:  5,
		},
	}
}

// Sanitize replaces invalid or missing values with defaults and returns the
// cleaned configuration.
func (c Config) Sanitize() Config {
	def := DefaultConfig()

	if c.Addr == "" {
		c.Addr = def.Addr
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = def.DialTimeout
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
	if c.InboxSize <= 0 {
		c.InboxSize = def.InboxSize
	}
	if c.Reconnect.InitialDelay <= 0 {
		c.Reconnect.InitialDelay = def.Reconnect.InitialDelay
	}
	if c.Reconnect.MaxDelay <= 0 {
		c.Reconnect.MaxDelay = def.Reconnect.MaxDelay
	}
	if c.Reconnect.Multiplier <= 0 {
		c.Reconnect.Multiplier = def.Reconnect.Multiplier
	}
	if c.Reconnect.MaxAttempts < 0 {
		c.Reconnect.MaxAttempts = def.Reconnect.MaxAttempts
	}

	return c
}

// Client is one chat client. Inbound messages are buffered in the inbox as
// they arrive off the network and rendered only by the display consumer, so
// no output is ever written from the network-reading goroutine.
type Client struct {
	cfg         Config
	input       io.Reader
	output      io.Writer
	inbox       chan string
	interactive bool
}

// New creates a client reading user input from input and rendering chat
// output to output. A prompt is shown only when input is a real terminal.
func New(cfg Config, input io.Reader, output io.Writer) *Client {
	cfg = cfg.Sanitize()

	interactive := false
	if f, ok := input.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}

	return &Client{
		cfg:         cfg,
		input:       input,
		output:      output,
		inbox:       make(chan string, cfg.InboxSize),
		interactive: interactive,
	}
}

// Run connects and processes input until the input stream ends or the
// context is cancelled. A failed send closes the connection and reconnects
// with backoff; the failed message is not replayed, matching the best-effort
// delivery model of the protocol.
func (c *Client) Run(ctx context.Context) error {
	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}

	displayDone := make(chan struct{})
	var displayWG sync.WaitGroup
	displayWG.Add(1)
	go func() {
		defer displayWG.Done()
		c.displayLoop(displayDone)
	}()

	go c.receiveLoop(ctx, conn)

	scanner := bufio.NewScanner(c.input)
	for {
		c.printPrompt()
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := protocol.WriteFrame(conn, []byte(line)); err != nil {
			c.enqueue(fmt.Sprintf("Error > %v", err))
			_ = conn.Close()

			conn, err = c.connect(ctx)
			if err != nil {
				close(displayDone)
				displayWG.Wait()
				return err
			}
			go c.receiveLoop(ctx, conn)
		}
	}

	_ = conn.Close()
	close(displayDone)
	displayWG.Wait()
	return scanner.Err()
}

// connect dials the server, retrying with exponential backoff.
func (c *Client) connect(ctx context.Context) (net.Conn, error) {
	retry := &backoff{
		initial:    c.cfg.Reconnect.InitialDelay,
		max:        c.cfg.Reconnect.MaxDelay,
		multiplier: c.cfg.Reconnect.Multiplier,
		attempts:   c.cfg.Reconnect.MaxAttempts,
	}

	var conn net.Conn
	err := retry.do(ctx, func(attempt int) error {
		dialer := net.Dialer{Timeout: c.cfg.DialTimeout}
		dialed, dialErr := dialer.DialContext(ctx, "tcp", c.cfg.Addr)
		if dialErr != nil {
			c.enqueue(fmt.Sprintf("Could not connect to server: %v", dialErr))
			return dialErr
		}
		conn = dialed
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.enqueue("Connected to server.")
	return conn, nil
}

// receiveLoop decodes framed messages off one connection into the inbox until
// the connection dies. Each reconnect starts a fresh loop for the new
// connection; the loop for the dead one drains out on its read error.
func (c *Client) receiveLoop(ctx context.Context, conn net.Conn) {
	reader := bufio.NewReader(conn)
	for {
		payload, err := protocol.ReadFrame(reader, uint32(c.cfg.MaxMessageSize))
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) && !isExpectedCloseError(err) {
				c.enqueue(fmt.Sprintf("Error > %v", err))
			}
			return
		}
		c.enqueue(string(payload))
	}
}

// displayLoop is the single consumer of the inbox: the only goroutine that
// renders chat output.
func (c *Client) displayLoop(done <-chan struct{}) {
	for {
		select {
		case message := <-c.inbox:
			fmt.Fprintln(c.output, message)
		case <-done:
			// Flush whatever is still buffered, then stop.
			for {
				select {
				case message := <-c.inbox:
					fmt.Fprintln(c.output, message)
				default:
					return
				}
			}
		}
	}
}

// enqueue hands a message to the display consumer without ever blocking a
// network goroutine; when the inbox is full the message is dropped.
func (c *Client) enqueue(message string) {
	select {
	case c.inbox <- message:
	default:
	}
}

func (c *Client) printPrompt() {
	if c.interactive {
		fmt.Fprint(c.output, "> ")
	}
}

func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "connection reset by peer") ||
		strings.Contains(errStr, "broken pipe")
}
