package protocol

import "errors"

// Sentinel error kinds callers can match with errors.Is; the concrete errors
// returned by the package wrap one of them with context via
// fmt.Errorf("...: %w", ...).
var (
	// ErrProtocol marks a malformed header, stray bytes, or an oversized
	// frame. The channel that observes it closes.
	ErrProtocol = errors.New("xen: protocol error")

	// ErrTransport marks a failed read or write on the underlying transport.
	// The channel that observes it closes.
	ErrTransport = errors.New("xen: transport error")

	// ErrEncoding marks an unmappable character or unknown encoding label on
	// send. The call fails; the channel stays open.
	ErrEncoding = errors.New("xen: encoding error")

	// ErrFormat marks a malformed CATEGORY:SERIAL:TEXT envelope. A channel
	// treats it the same as ErrProtocol (the peer is malfunctioning), but it
	// is reported as its own kind so callers that parse envelopes directly
	// (outside a Channel) can distinguish it.
	ErrFormat = errors.New("xen: format error")

	// ErrClosed is returned by any send on a channel that has already
	// closed its transport.
	ErrClosed = errors.New("xen: channel closed")

	// ErrCapacity marks a server-side accept rejected because max_clients
	// was reached.
	ErrCapacity = errors.New("xen: capacity exhausted")
)

// NewProtocolError wraps reason as an ErrProtocol.
func NewProtocolError(reason string) error {
	return &wrappedError{kind: ErrProtocol, reason: reason}
}

// NewTransportError wraps an underlying transport failure as an ErrTransport.
func NewTransportError(cause error) error {
	return &wrappedError{kind: ErrTransport, reason: cause.Error(), cause: cause}
}

// NewFormatError wraps reason as an ErrFormat.
func NewFormatError(reason string) error {
	return &wrappedError{kind: ErrFormat, reason: reason}
}

// NewEncodingError wraps reason as an ErrEncoding.
func NewEncodingError(reason string) error {
	return &wrappedError{kind: ErrEncoding, reason: reason}
}

type wrappedError struct {
	kind   error
	reason string
	cause  error
}

func (e *wrappedError) Error() string {
	if e.reason == "" {
		return e.kind.Error()
	}
	return e.kind.Error() + ": " + e.reason
}

func (e *wrappedError) Unwrap() error {
	if e.cause != nil {
		return e.cause
	}
	return e.kind
}

func (e *wrappedError) Is(target error) bool {
	return target == e.kind
}
