// Package protocol implements the Xen wire protocol: the ASCII frame header
// used to delimit messages on a byte transport, and the CATEGORY:SERIAL:TEXT
// envelope carried inside a frame's payload when the channel is in text mode.
package protocol

import (
	"bufio"
	"fmt"
	"io"
)

// maxHeaderDigits bounds how many digit bytes ReadFrame will consider before giving up on a header, so a peer that never sends the
// trailing ':' cannot make the reader scan forever on a bounded buffer.
const maxHeaderDigits = 20

// WriteFrame writes one framed message to w: the ASCII header "@<size>:"
// followed by payload, then flushes if w supports it. Fails with a wrapped
// TransportError if any write fails.
func WriteFrame(w io.Writer, payload []byte) error {
	header := fmt.Sprintf("@%d:", len(payload))
	if _, err := io.WriteString(w, header); err != nil {
		return fmt.Errorf("xen: write frame header: %w", NewTransportError(err))
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("xen: write frame payload: %w", NewTransportError(err))
		}
	}
	if f, ok := w.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("xen: flush frame: %w", NewTransportError(err))
		}
	}
	return nil
}

// ReadFrame reads one complete framed message from a buffered, blocking
// reader. It is provided for synchronous callers (tests, pipe-based
// collaborators); the incremental, non-blocking path is receiver.Receiver.
func ReadFrame(r *bufio.Reader) ([]byte, error) {
	b, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if b != '@' {
		return nil, NewProtocolError("missing begin marker")
	}
	size := 0
	digits := 0
	for {
		b, err = r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("xen: read frame header: %w", NewTransportError(err))
		}
		if b >= '0' && b <= '9' {
			digits++
			if digits > maxHeaderDigits || size > MaxFrameSize {
				return nil, NewProtocolError("oversized frame")
			}
			size = 10*size + int(b-'0')
			continue
		}
		if b == ':' {
			if digits == 0 {
				return nil, NewProtocolError("no size specified")
			}
			break
		}
		return nil, NewProtocolError("unexpected byte in header")
	}
	if size > MaxFrameSize {
		return nil, NewProtocolError("oversized frame")
	}
	payload := make([]byte, size)
	if size > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("xen: read frame payload: %w", NewTransportError(err))
		}
	}
	return payload, nil
}

// MaxFrameSize is the transport-wide default cap on a single frame's declared
// payload size, defending against truncation bugs producing an absurd size.
// receiver.Receiver accepts its own override; this one backs the synchronous
// ReadFrame helper.
const MaxFrameSize = 64 << 20
