package server_test

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tcpchat/internal/protocol"
	"tcpchat/internal/server"
)

// startServer boots a full server on a loopback ephemeral port. The rate
// limit is raised so tests can send without pacing.
func startServer(t *testing.T) string {
	t.Helper()

	cfg := server.DefaultConfig()
	cfg.Port = "127.0.0.1:0"
	cfg.RateLimit.Burst = 1000

	srv := server.NewServer(cfg)
	require.NoError(t, srv.Start())
	t.Cleanup(func() {
		_ = srv.Shutdown(2 * time.Second)
	})

	return srv.Addr().String()
}

// testClient is a raw framed TCP client for driving the server in tests.
type testClient struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

func dial(t *testing.T, addr string) *testClient {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})

	return &testClient{t: t, conn: conn, reader: bufio.NewReader(conn)}
}

func (c *testClient) send(message string) {
	c.t.Helper()
	require.NoError(c.t, protocol.WriteFrame(c.conn, []byte(message)))
}

func (c *testClient) recv() string {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	payload, err := protocol.ReadFrame(c.reader, 0)
	require.NoError(c.t, err)
	return string(payload)
}

func (c *testClient) expect(want string) {
	c.t.Helper()
	assert.Equal(c.t, want, c.recv())
}

// expectSilence asserts that no message arrives within a short window.
func (c *testClient) expectSilence() {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	payload, err := protocol.ReadFrame(c.reader, 0)
	if err == nil {
		c.t.Fatalf("expected no message, got %q", string(payload))
	}
	var netErr net.Error
	require.ErrorAs(c.t, err, &netErr)
	require.True(c.t, netErr.Timeout(), "expected read timeout, got %v", err)
}

func TestWelcomeAndJoinAnnouncement(t *testing.T) {
	addr := startServer(t)

	a := dial(t, addr)
	a.expect("You joined as guest0!")

	b := dial(t, addr)
	b.expect("You joined as guest1!")
	a.expect("guest1 joined the chat")
}

func TestEchoAckAndRoomChat(t *testing.T) {
	addr := startServer(t)
	a := dial(t, addr)
	a.expect("You joined as guest0!")
	b := dial(t, addr)
	b.expect("You joined as guest1!")
	a.expect("guest1 joined the chat")

	a.send("hello")
	a.expect(">> hello")
	assert.Regexp(t, `^\[\d{2}:\d{2}:\d{2}\] guest0: hello$`, b.recv())

	// The sender's next inbound message is the /list ack, proving the chat
	// line was never delivered back to its sender.
	a.send("/list")
	a.expect(">> /list")
	a.expect("guest0, guest1")
}

func TestSetName(t *testing.T) {
	addr := startServer(t)
	a := dial(t, addr)
	a.expect("You joined as guest0!")
	b := dial(t, addr)
	b.expect("You joined as guest1!")
	a.expect("guest1 joined the chat")

	b.send("/setname alice")
	b.expect(">> /setname alice")
	b.expect("Your nickname is now alice.")
	a.expect("guest1 changed name to alice")

	// Case-insensitive collision leaves both nicknames untouched.
	a.send("/setname ALICE")
	a.expect(">> /setname ALICE")
	a.expect("Name ALICE is already taken.")

	a.send("/setname   ")
	a.expect(">> /setname   ")
	a.expect("Name cannot be empty.")

	a.send("/list")
	a.expect(">> /list")
	a.expect("alice, guest0")
}

func TestWhisper(t *testing.T) {
	addr := startServer(t)
	a := dial(t, addr)
	a.expect("You joined as guest0!")
	b := dial(t, addr)
	b.expect("You joined as guest1!")
	a.expect("guest1 joined the chat")

	b.send("/setname alice")
	b.expect(">> /setname alice")
	b.expect("Your nickname is now alice.")
	a.expect("guest1 changed name to alice")

	// Target lookup is case-insensitive.
	a.send("/whisper ALICE hello there")
	a.expect(">> /whisper ALICE hello there")
	a.expect("[Whisper] to alice: hello there")
	b.expect("[Whisper] from guest0: hello there")

	a.send("/w nobody hi")
	a.expect(">> /w nobody hi")
	a.expect("User nobody not found.")
	b.expectSilence()

	a.send("/whisper alice")
	a.expect(">> /whisper alice")
	a.expect("Usage: /whisper <nickname> <message>")
	b.expectSilence()
}

func TestRoomsScopeBroadcasts(t *testing.T) {
	addr := startServer(t)
	a := dial(t, addr)
	a.expect("You joined as guest0!")
	b := dial(t, addr)
	b.expect("You joined as guest1!")
	a.expect("guest1 joined the chat")
	c := dial(t, addr)
	c.expect("You joined as guest2!")
	a.expect("guest2 joined the chat")
	b.expect("guest2 joined the chat")

	c.send("/join dev")
	c.expect(">> /join dev")
	c.expect("You joined room dev.")

	b.send("/join dev")
	b.expect(">> /join dev")
	b.expect("You joined room dev.")
	c.expect("guest1 joined room dev")

	// A chat line from the general room stays there.
	a.send("secret")
	a.expect(">> secret")
	b.expectSilence()
	c.expectSilence()

	// A chat line inside dev reaches the other dev member only.
	b.send("status update")
	b.expect(">> status update")
	assert.Regexp(t, `^\[\d{2}:\d{2}:\d{2}\] guest1: status update$`, c.recv())
	a.expectSilence()

	// Listing commands: global /list, distinct rooms, and room membership.
	a.send("/list")
	a.expect(">> /list")
	a.expect("guest0, guest1, guest2")

	c.send("/listrooms")
	c.expect(">> /listrooms")
	c.expect("dev, general")

	c.send("/listroom")
	c.expect(">> /listroom")
	c.expect("guest1, guest2")

	// An empty room argument resolves to the default room.
	b.send("/join")
	b.expect(">> /join")
	b.expect("You joined room general.")
	a.expect("guest1 joined room general")
	c.expectSilence()
}

func TestDisconnectAnnouncedExactlyOnce(t *testing.T) {
	addr := startServer(t)
	a := dial(t, addr)
	a.expect("You joined as guest0!")
	b := dial(t, addr)
	b.expect("You joined as guest1!")
	a.expect("guest1 joined the chat")

	require.NoError(t, b.conn.Close())
	a.expect("guest1 left the chat")
	a.expectSilence()

	a.send("/list")
	a.expect(">> /list")
	a.expect("guest0")
}

func TestHelp(t *testing.T) {
	addr := startServer(t)
	a := dial(t, addr)
	a.expect("You joined as guest0!")

	a.send("/help")
	a.expect(">> /help")
	assert.Contains(t, a.recv(), "/whisper <nick> <message>")
}

func TestUnknownSlashInputFallsThroughToChat(t *testing.T) {
	addr := startServer(t)
	a := dial(t, addr)
	a.expect("You joined as guest0!")
	b := dial(t, addr)
	b.expect("You joined as guest1!")
	a.expect("guest1 joined the chat")

	a.send("/dance")
	a.expect(">> /dance")
	assert.Regexp(t, `^\[\d{2}:\d{2}:\d{2}\] guest0: /dance$`, b.recv())
}

func TestServerShutdownClosesClients(t *testing.T) {
	cfg := server.DefaultConfig()
	cfg.Port = "127.0.0.1:0"

	srv := server.NewServer(cfg)
	require.NoError(t, srv.Start())

	a := dial(t, srv.Addr().String())
	a.expect("You joined as guest0!")

	require.NoError(t, srv.Shutdown(2*time.Second))

	require.NoError(t, a.conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, err := protocol.ReadFrame(a.reader, 0)
	assert.Error(t, err, "connection should be closed after shutdown")
}
