// Package protocol implements the length-prefixed framing shared by the chat
// server and client. Every message travels in both directions as a 4-byte
// big-endian length header followed by exactly that many bytes of UTF-8
// payload. The byte order is fixed; any foreign peer must match it.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxFrameSize is the payload cap applied when a caller passes 0 to
// ReadFrame. It keeps a misbehaving peer from forcing a huge allocation with
// a bogus length header.
const DefaultMaxFrameSize = 64 * 1024

// ErrFrameTooLarge indicates a length header above the configured cap. The
// stream is unusable afterwards because the oversized payload was not consumed.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

const headerSize = 4

// ReadFrame reads one complete framed message from r. It returns io.EOF when
// the peer closed the stream cleanly before a header, and io.ErrUnexpectedEOF
// when the stream ended mid-frame. maxSize bounds the accepted payload length;
// 0 selects DefaultMaxFrameSize.
func ReadFrame(r io.Reader, maxSize uint32) ([]byte, error) {
	if maxSize == 0 {
		maxSize = DefaultMaxFrameSize
	}

	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > maxSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrFrameTooLarge, length, maxSize)
	}
	if length == 0 {
		return []byte{}, nil
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}

// WriteFrame writes one complete framed message to w. Header and payload are
// written with a single Write call so a frame is never split across writes at
// this layer.
func WriteFrame(w io.Writer, payload []byte) error {
	buf := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint32(buf[:headerSize], uint32(len(payload)))
	copy(buf[headerSize:], payload)

	if _, err := w.Write(buf); err != nil {
		return err
	}
	return nil
}
