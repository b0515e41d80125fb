// Package receiver implements a transport-agnostic byte-stream parser that
// tolerates arbitrary chunking and yields fully-framed payloads as they
// complete.
package receiver

import (
	"github.com/emmt/xen/pkg/protocol"
)

// DefaultMaxFrame is the default cap on a declared frame size, defending
// against a truncated or malicious header announcing an absurd length.
const DefaultMaxFrame = 64 << 20

// compactThreshold is how many already-consumed bytes must accumulate at the
// front of the buffer before Receiver bothers to slice them away. Below this,
// paying the cost of entering "awaiting-header" with a small offset is
// cheaper than the copy a compaction requires.
const compactThreshold = 4096

// maxHeaderDigits bounds how many digit bytes a header may contain before a
// peer that never sends the trailing ':' is treated as oversized rather than
// scanned forever / overflowed into a negative size.
const maxHeaderDigits = 20

// state is the Receiver's parse state: either awaiting a "@<size>:" header,
// or awaiting n more bytes of a known body.
type state int

const (
	awaitingHeader state = iota
	awaitingBody
)

// Receiver incrementally parses a frame stream of "@<size>:" headers
// followed by opaque bodies. It is not safe for concurrent Feed calls;
// callers serialize access to a Receiver under their own lock (pkg/channel
// does this).
type Receiver struct {
	maxFrame int

	buf   []byte
	off   int // consumed-prefix offset / parse cursor
	state state
	size  int // remaining body size once state == awaitingBody

	// header accumulator, reset each time we (re)enter awaitingHeader
	headerStarted bool // '@' already consumed this header cycle
	headerSize    int
	headerDigits  int
}

// New returns a Receiver that rejects any declared frame size over maxFrame.
func New(maxFrame int) *Receiver {
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrame
	}
	return &Receiver{maxFrame: maxFrame, state: awaitingHeader}
}

// Feed appends chunk to the Receiver's buffer and returns every payload that
// became complete as a result, in arrival order. Feed is atomic: for any
// stream S split into chunks S1..Sk, feeding the chunks in order yields the
// same payload sequence as feeding S whole — chunk boundaries never affect
// the result.
//
// A malformed header or an oversized declared frame returns a wrapped
// ErrProtocol; once Feed has returned an error the Receiver must not be fed
// again (the caller closes the channel).
func (r *Receiver) Feed(chunk []byte) ([][]byte, error) {
	if len(chunk) > 0 {
		r.buf = append(r.buf, chunk...)
	}

	var out [][]byte
	for {
		if r.state == awaitingHeader {
			advanced, done, err := r.scanHeader()
			if err != nil {
				return out, err
			}
			if !advanced {
				break // need more data
			}
			if !done {
				continue
			}
		}
		if r.state == awaitingBody {
			if len(r.buf)-r.off < r.size {
				break // need more data
			}
			payload := r.buf[r.off : r.off+r.size]
			// Copy out: r.buf is reused/compacted underneath the caller.
			got := make([]byte, len(payload))
			copy(got, payload)
			out = append(out, got)
			r.off += r.size
			r.size = 0
			r.state = awaitingHeader
			r.headerStarted = false
			r.headerSize = 0
			r.headerDigits = 0
		}
	}
	r.compact()
	return out, nil
}

// scanHeader advances the parse cursor through as much of a "@<digits>:"
// header as is currently available. advanced reports whether any header
// bytes were consumed (false means the buffer held nothing new to look at);
// done reports whether a full header was parsed and the Receiver transitioned
// to awaitingBody.
func (r *Receiver) scanHeader() (advanced, done bool, err error) {
	if r.off >= len(r.buf) {
		return false, false, nil
	}
	if !r.headerStarted {
		if r.buf[r.off] != '@' {
			return false, false, protocol.NewProtocolError("missing begin marker")
		}
		r.off++
		r.headerStarted = true
		advanced = true
	}
	for r.off < len(r.buf) {
		b := r.buf[r.off]
		switch {
		case b >= '0' && b <= '9':
			r.headerDigits++
			if r.headerDigits > maxHeaderDigits || r.headerSize > r.maxFrame {
				return advanced, false, protocol.NewProtocolError("oversized frame")
			}
			r.headerSize = 10*r.headerSize + int(b-'0')
			r.off++
			advanced = true
		case b == ':':
			if r.headerDigits == 0 {
				return advanced, false, protocol.NewProtocolError("no size specified")
			}
			r.off++
			if r.headerSize > r.maxFrame {
				return advanced, false, protocol.NewProtocolError("oversized frame")
			}
			r.size = r.headerSize
			r.state = awaitingBody
			return true, true, nil
		default:
			return advanced, false, protocol.NewProtocolError("unexpected byte in header")
		}
	}
	return advanced, false, nil // header not yet complete; need more data
}

// compact discards the already-consumed prefix once it exceeds
// compactThreshold, capping buffer growth.
func (r *Receiver) compact() {
	if r.off < compactThreshold {
		return
	}
	remaining := len(r.buf) - r.off
	copy(r.buf, r.buf[r.off:])
	r.buf = r.buf[:remaining]
	r.off = 0
}
