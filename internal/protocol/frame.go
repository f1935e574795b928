package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

const headerLen = 8

// MaxFrameSize bounds a frame body so a corrupt or hostile header cannot
// force an arbitrary allocation.
const MaxFrameSize = 16 << 20

// WriteFrame writes an 8-byte little-endian length header followed by the
// UTF-8 text of one command line.
func WriteFrame(w io.Writer, text string) error {
	if len(text) > MaxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds limit of %d", len(text), MaxFrameSize)
	}
	var header [headerLen]byte
	binary.LittleEndian.PutUint64(header[:], uint64(len(text)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := io.WriteString(w, text); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed command line.
func ReadFrame(r io.Reader) (string, error) {
	var header [headerLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return "", fmt.Errorf("read frame header: %w", err)
	}
	n := binary.LittleEndian.Uint64(header[:])
	if n > MaxFrameSize {
		return "", fmt.Errorf("frame of %d bytes exceeds limit of %d", n, MaxFrameSize)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return "", fmt.Errorf("read frame body: %w", err)
	}
	return string(body), nil
}
