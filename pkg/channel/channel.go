// Package channel implements Channel: it composes the text codec, the
// incremental Receiver, the FIFO queue, and a dispatch callback over a
// single transport, and exposes SendCommand/SendEvent/SendResult/SendError.
//
// Go has no single-threaded event loop by default, so dispatch runs on its
// own goroutine instead of an idle callback: a read goroutine feeds the
// Receiver and pushes decoded messages onto the FIFO; a drain goroutine is
// the single consumer that calls the dispatch callback, woken by a buffered
// "run soon" signal rather than a 0-delay timer. A mutex guards the
// Receiver, the FIFO, and the send counter.
package channel

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/emmt/xen/pkg/evaluator"
	"github.com/emmt/xen/pkg/fifo"
	"github.com/emmt/xen/pkg/protocol"
	"github.com/emmt/xen/pkg/protocol/textcodec"
	"github.com/emmt/xen/pkg/receiver"
)

// Dispatcher is called once for every decoded message, in arrival order.
// It must not block the drain loop for long — command evaluation that may
// itself enqueue sends runs here, independent of how fast bytes keep
// arriving on the read side.
type Dispatcher func(ch *Channel, msg *protocol.Message)

// Option configures a Channel at construction.
type Option func(*Channel)

// WithEncoding sets the text encoding label (default textcodec.DefaultEncoding).
// The literal "binary" disables envelope parsing entirely: payloads are
// delivered to the dispatcher as Category=CategoryUnknown, Raw=payload.
func WithEncoding(encoding string) Option {
	return func(c *Channel) { c.encoding = encoding }
}

// WithDispatcher sets the initial dispatch callback.
func WithDispatcher(d Dispatcher) Option {
	return func(c *Channel) { c.dispatcher = d }
}

// WithMaxFrame overrides the Receiver's declared-size cap.
func WithMaxFrame(n int) Option {
	return func(c *Channel) { c.maxFrame = n }
}

// WithEvaluator registers the Evaluator Port used to answer CMD messages.
// Without one, a received CMD gets an ERR reply reporting "no evaluator
// registered" — the Channel never blocks waiting for one to show up.
func WithEvaluator(e evaluator.Evaluator) Option {
	return func(c *Channel) { c.evaluator = e }
}

// EventHandler is invoked for each dispatched EVT message.
type EventHandler func(serial uint64, text string)

// ResponseHandler is invoked for each dispatched OK/ERR message.
type ResponseHandler func(ok bool, serial uint64, text string)

// WithEventHandler overrides the default diagnostic EVT handler.
func WithEventHandler(h EventHandler) Option {
	return func(c *Channel) { c.onEvent = h }
}

// WithResponseHandler overrides the default diagnostic OK/ERR handler.
func WithResponseHandler(h ResponseHandler) Option {
	return func(c *Channel) { c.onResponse = h }
}

// Channel is a framed, bidirectional message connection wrapping a single
// transport. The zero value is not usable; construct with New.
type Channel struct {
	transport io.ReadWriteCloser
	encoding  string
	maxFrame  int
	evaluator evaluator.Evaluator

	onEvent    EventHandler
	onResponse ResponseHandler

	mu         sync.Mutex
	recv       *receiver.Receiver
	queue      *fifo.Queue
	counter    uint64
	dispatcher Dispatcher
	closed     bool
	closeErr   error

	signal    chan struct{} // "run soon" wakeup for the drain goroutine
	readDone  chan struct{}
	drainDone chan struct{}
}

// New wraps transport in a Channel, configures its defaults, and starts the
// read and drain goroutines. The Channel owns transport: Close closes it
// exactly once.
func New(transport io.ReadWriteCloser, opts ...Option) *Channel {
	c := &Channel{
		transport: transport,
		encoding:  textcodec.DefaultEncoding,
		queue:     fifo.New(8),
		signal:    make(chan struct{}, 1),
		readDone:  make(chan struct{}),
		drainDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.recv = receiver.New(c.maxFrame)
	if c.dispatcher == nil {
		c.dispatcher = defaultDispatcher
	}
	if c.onEvent == nil {
		c.onEvent = defaultEventHandler
	}
	if c.onResponse == nil {
		c.onResponse = defaultResponseHandler
	}
	go c.readLoop()
	go c.drainLoop()
	return c
}

// DefaultDispatcher is the dispatch behavior a Channel uses unless
// overridden: CMD runs through the registered Evaluator, EVT/OK/ERR go to
// the event/response handlers, anything else is logged. Exported so a
// caller that wraps the dispatcher (for recording, metrics, tracing) can
// still fall back to it instead of reimplementing the switch.
func DefaultDispatcher(ch *Channel, msg *protocol.Message) {
	defaultDispatcher(ch, msg)
}

func defaultDispatcher(ch *Channel, msg *protocol.Message) {
	switch msg.Category {
	case protocol.CategoryCMD:
		ch.handleCommand(msg)
	case protocol.CategoryEVT:
		ch.onEvent(msg.Serial, msg.Text)
	case protocol.CategoryOK:
		ch.onResponse(true, msg.Serial, msg.Text)
	case protocol.CategoryERR:
		ch.onResponse(false, msg.Serial, msg.Text)
	default:
		log.Printf("xen: channel: unknown category %q for serial %d, text %q", msg.Category, msg.Serial, msg.Text)
	}
}

func defaultEventHandler(serial uint64, text string) {
	log.Printf("xen: channel: event %d: %s", serial, text)
}

func defaultResponseHandler(ok bool, serial uint64, text string) {
	if ok {
		log.Printf("xen: channel: result %d: %s", serial, text)
	} else {
		log.Printf("xen: channel: error %d: %s", serial, text)
	}
}

// handleCommand runs a dispatched CMD through the registered Evaluator and
// replies OK or ERR. Evaluation failures never close the channel.
func (c *Channel) handleCommand(msg *protocol.Message) {
	if c.evaluator == nil {
		_ = c.SendError(msg.Serial, "no evaluator registered")
		return
	}
	value, err := c.evaluator.Evaluate(msg.Text)
	if err != nil {
		_ = c.SendError(msg.Serial, err.Error())
		return
	}
	_ = c.SendResult(msg.Serial, c.evaluator.Stringify(value))
}

// SetDispatcher replaces the dispatch callback; nil restores the default
// diagnostic dispatcher.
func (c *Channel) SetDispatcher(d Dispatcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d == nil {
		c.dispatcher = defaultDispatcher
		return
	}
	c.dispatcher = d
}

// SendCommand increments the serial counter, frames CMD:<serial>:<text>, and
// writes it. Returns the assigned serial.
func (c *Channel) SendCommand(text string) (uint64, error) {
	return c.sendSerial(protocol.CategoryCMD, text)
}

// SendEvent increments the serial counter, frames EVT:<serial>:<text>, and
// writes it. Returns the assigned serial.
func (c *Channel) SendEvent(text string) (uint64, error) {
	return c.sendSerial(protocol.CategoryEVT, text)
}

// SendResult frames OK:<id>:<text> and writes it, without consuming a new
// serial — id is the serial of the CMD being answered.
func (c *Channel) SendResult(id uint64, text string) error {
	return c.sendFormat(protocol.CategoryOK, id, text)
}

// SendError frames ERR:<id>:<text> and writes it. id == 0 denotes an error
// not tied to a specific command.
func (c *Channel) SendError(id uint64, text string) error {
	return c.sendFormat(protocol.CategoryERR, id, text)
}

func (c *Channel) sendSerial(cat protocol.Category, text string) (uint64, error) {
	// The lock is held from increment through write so that serials reach
	// the wire in the order they were assigned, even with concurrent senders.
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, protocol.ErrClosed
	}
	c.counter++
	serial := c.counter
	payload, err := textcodec.Encode(protocol.FormatEnvelope(cat, serial, text), c.encoding)
	if err != nil {
		return 0, err
	}
	if err := protocol.WriteFrame(c.transport, payload); err != nil {
		c.closeLocked(err)
		return 0, err
	}
	return serial, nil
}

func (c *Channel) sendFormat(cat protocol.Category, id uint64, text string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return protocol.ErrClosed
	}
	c.mu.Unlock()
	return c.writeEnvelope(cat, id, text)
}

func (c *Channel) writeEnvelope(cat protocol.Category, serial uint64, text string) error {
	envelope := protocol.FormatEnvelope(cat, serial, text)
	payload, err := textcodec.Encode(envelope, c.encoding)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return protocol.ErrClosed
	}
	if err := protocol.WriteFrame(c.transport, payload); err != nil {
		c.closeLocked(err)
		return err
	}
	return nil
}

// Close closes the transport, which unblocks the read and drain goroutines
// so they can exit on their own. It is idempotent and does not wait for
// either goroutine to actually exit — call Wait for that. A Dispatcher,
// EventHandler, or ResponseHandler runs on the drain goroutine and may call
// Close on its own Channel (e.g. "close after this command"); if Close
// waited here, that call would deadlock waiting on the very goroutine frame
// invoking it.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked(nil)
}

// Wait blocks until the Channel's read and drain goroutines have both
// exited — which happens once the transport closes, whether that was
// triggered locally (Close) or by the peer (EOF, reset, protocol error). It
// does not itself close anything; an Endpoint uses it to reap a peer whose
// transport died without anyone calling Close explicitly. Do not call Wait
// from within a Dispatcher/EventHandler/ResponseHandler: it blocks on the
// drain goroutine's own exit and will never return from inside it.
func (c *Channel) Wait() {
	<-c.readDone
	<-c.drainDone
}

// Err returns the error that caused the channel to close, or nil if it
// closed cleanly (explicit Close, or a clean peer EOF).
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeErr
}

// closeLocked must be called with c.mu held. cause, if non-nil, is recorded
// as the reason the channel closed (a protocol/transport error observed on
// the read side); it does not override an earlier recorded reason.
func (c *Channel) closeLocked(cause error) error {
	if c.closed {
		return c.closeErr
	}
	c.closed = true
	c.closeErr = cause
	err := c.transport.Close()
	if c.closeErr == nil {
		c.closeErr = err
	}
	c.wake()
	return err
}

// wake signals the drain goroutine to run soon, without blocking if a
// wakeup is already pending.
func (c *Channel) wake() {
	select {
	case c.signal <- struct{}{}:
	default:
	}
}

func (c *Channel) readLoop() {
	defer close(c.readDone)
	buf := make([]byte, 4096)
	for {
		n, err := c.transport.Read(buf)
		if n > 0 {
			if derr := c.feed(buf[:n]); derr != nil {
				c.mu.Lock()
				c.closeLocked(derr)
				c.mu.Unlock()
				return
			}
		}
		if err != nil {
			c.mu.Lock()
			if !c.closed {
				var cause error
				if errors.Is(err, io.EOF) {
					cause = nil // clean peer close, not an error condition
				} else {
					cause = fmt.Errorf("xen: channel read: %w", protocol.NewTransportError(err))
				}
				c.closeLocked(cause)
			}
			c.mu.Unlock()
			return
		}
	}
}

// feed runs newly-read bytes through the Receiver and pushes every decoded
// message onto the FIFO.
func (c *Channel) feed(chunk []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	payloads, err := c.recv.Feed(chunk)
	for _, payload := range payloads {
		msg, perr := c.decode(payload)
		if perr != nil {
			return perr
		}
		c.queue.Push(msg)
	}
	if len(payloads) > 0 {
		c.wake()
	}
	if err != nil {
		return err
	}
	return nil
}

func (c *Channel) decode(payload []byte) (*protocol.Message, error) {
	if c.encoding == textcodec.Binary {
		return &protocol.Message{Category: protocol.CategoryUnknown, Raw: payload}, nil
	}
	text, err := textcodec.Decode(payload, c.encoding)
	if err != nil {
		return nil, err
	}
	cat, serial, body, err := protocol.ParseEnvelope(text)
	if err != nil {
		// A FormatError on envelope parse is treated as a protocol error
		// because the peer is malfunctioning.
		return nil, fmt.Errorf("xen: channel: %w", err)
	}
	return &protocol.Message{Category: protocol.ParseCategory(string(cat)), Serial: serial, Text: body, Raw: payload}, nil
}

// drainLoop is the single consumer of the FIFO: it pops and dispatches one
// message at a time, looping while the queue stays non-empty and waiting
// on the next wakeup once it drains.
func (c *Channel) drainLoop() {
	defer close(c.drainDone)
	for {
		<-c.signal
		for {
			c.mu.Lock()
			if c.queue.Empty() {
				closed := c.closed
				c.mu.Unlock()
				if closed {
					return
				}
				break
			}
			msg := c.queue.Pop().(*protocol.Message)
			dispatcher := c.dispatcher
			c.mu.Unlock()

			dispatcher(c, msg)

			c.mu.Lock()
			more := !c.queue.Empty()
			closed := c.closed
			c.mu.Unlock()
			if closed && !more {
				return
			}
			if !more {
				break
			}
		}
	}
}
