package protocol_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tcpchat/internal/protocol"
)

func TestFrameRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "plain text", payload: "hello"},
		{name: "empty payload", payload: ""},
		{name: "utf-8 payload", payload: "héllo wörld ✓"},
		{name: "payload with newlines", payload: "line one\nline two"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, protocol.WriteFrame(&buf, []byte(tt.payload)))

			got, err := protocol.ReadFrame(&buf, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.payload, string(got))
		})
	}
}

func TestReadFrameSequential(t *testing.T) {
	var buf bytes.Buffer
	messages := []string{"first", "second", "third"}
	for _, m := range messages {
		require.NoError(t, protocol.WriteFrame(&buf, []byte(m)))
	}

	for _, want := range messages {
		got, err := protocol.ReadFrame(&buf, 0)
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}

	_, err := protocol.ReadFrame(&buf, 0)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFrameHeaderLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, protocol.WriteFrame(&buf, []byte("hi")))

	// 2-byte payload must produce a big-endian 4-byte header.
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x02, 'h', 'i'}, buf.Bytes())
}

func TestReadFrameTruncatedHeader(t *testing.T) {
	buf := bytes.NewReader([]byte{0x00, 0x00})

	_, err := protocol.ReadFrame(buf, 0)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadFrameTruncatedPayload(t *testing.T) {
	// Header promises 10 bytes but only 3 arrive.
	buf := bytes.NewReader([]byte{0x00, 0x00, 0x00, 0x0a, 'a', 'b', 'c'})

	_, err := protocol.ReadFrame(buf, 0)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadFrameRejectsOversizedFrame(t *testing.T) {
	buf := bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff})

	_, err := protocol.ReadFrame(buf, 1024)
	assert.ErrorIs(t, err, protocol.ErrFrameTooLarge)
}

func TestReadFrameAppliesDefaultLimit(t *testing.T) {
	var header [4]byte
	header[0] = 0x7f // far beyond DefaultMaxFrameSize

	_, err := protocol.ReadFrame(bytes.NewReader(header[:]), 0)
	assert.ErrorIs(t, err, protocol.ErrFrameTooLarge)
}
