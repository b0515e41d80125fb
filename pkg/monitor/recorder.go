// Package monitor records live Server activity — connected peers and recent
// traffic — for presentation by a polling front end such as the dashboard
// TUI. It has no dependency on how that front end renders; Recorder only
// keeps a thread-safe snapshot.
package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/emmt/xen/pkg/channel"
	"github.com/emmt/xen/pkg/endpoint"
	"github.com/emmt/xen/pkg/protocol"
)

// Event describes one dispatched or sent message, recorded for display.
type Event struct {
	When      time.Time
	Direction string // "recv" or "send"
	Category  string
	Serial    uint64
	Text      string
}

const maxEvents = 200

// Recorder accumulates peer lifecycle and message events behind a mutex.
type Recorder struct {
	mu     sync.Mutex
	peers  map[string]struct{}
	events []Event
}

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{peers: make(map[string]struct{})}
}

// ServerOptions returns the endpoint.ServerOption values that wire r into a
// Server's peer lifecycle hooks.
func (r *Recorder) ServerOptions() []endpoint.ServerOption {
	return []endpoint.ServerOption{
		endpoint.WithPeerAdded(r.addPeer),
		endpoint.WithPeerRemoved(r.removePeer),
	}
}

func (r *Recorder) addPeer(ch *channel.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[peerKey(ch)] = struct{}{}
}

func (r *Recorder) removePeer(ch *channel.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.peers, peerKey(ch))
}

func peerKey(ch *channel.Channel) string {
	return fmt.Sprintf("%p", ch)
}

// RecordDispatch wraps a Dispatcher, recording every message it sees before
// forwarding to next. A nil next only records — useful when a front end
// like the dashboard replaces the default diagnostic logging entirely.
func (r *Recorder) RecordDispatch(next channel.Dispatcher) channel.Dispatcher {
	return func(ch *channel.Channel, msg *protocol.Message) {
		r.record("recv", msg)
		if next != nil {
			next(ch, msg)
		}
	}
}

// RecordSend records an outbound message. Callers invoke it alongside
// SendCommand/SendEvent/SendResult/SendError since Channel itself has no
// send-side hook.
func (r *Recorder) RecordSend(cat protocol.Category, serial uint64, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.push(Event{When: time.Now(), Direction: "send", Category: string(cat), Serial: serial, Text: text})
}

func (r *Recorder) record(direction string, msg *protocol.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.push(Event{
		When:      time.Now(),
		Direction: direction,
		Category:  string(msg.Category),
		Serial:    msg.Serial,
		Text:      msg.Text,
	})
}

func (r *Recorder) push(e Event) {
	r.events = append(r.events, e)
	if len(r.events) > maxEvents {
		r.events = r.events[len(r.events)-maxEvents:]
	}
}

// Snapshot returns the current peer count and a copy of recent events, most
// recent last.
func (r *Recorder) Snapshot() (peerCount int, events []Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	events = make([]Event, len(r.events))
	copy(events, r.events)
	return len(r.peers), events
}
