// Package endpoint implements the listening acceptor and outbound connector,
// Server and Client, the two endpoints that produce Channels. Both share the
// same Channel type; the wire protocol is fully symmetric.
package endpoint

import (
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/emmt/xen/pkg/channel"
	"github.com/emmt/xen/pkg/protocol"
)

// DefaultAddress and DefaultPort are the defaults used when Listen is given
// no address: loopback, OS-assigned port.
const (
	DefaultAddress = "127.0.0.1"
	DefaultPort    = 0
	// Unlimited is the max_clients sentinel meaning "no cap".
	Unlimited = -1
)

// ServerOption configures a Server at construction.
type ServerOption func(*Server)

// WithMaxClients caps the number of simultaneously live peers. Unlimited
// (-1) is the default.
func WithMaxClients(n int) ServerOption {
	return func(s *Server) { s.maxClients = n }
}

// WithChannelOptions forwards options to every Channel the server creates
// for an accepted peer.
func WithChannelOptions(opts ...channel.Option) ServerOption {
	return func(s *Server) { s.channelOpts = append(s.channelOpts, opts...) }
}

// WithPeerAdded/WithPeerRemoved register lifecycle hooks, e.g. for the demo
// dashboard to track live peers.
func WithPeerAdded(fn func(*channel.Channel)) ServerOption {
	return func(s *Server) { s.onPeerAdded = fn }
}

func WithPeerRemoved(fn func(*channel.Channel)) ServerOption {
	return func(s *Server) { s.onPeerRemoved = fn }
}

// Server is a listening Endpoint: it accepts connections, caps the number of
// simultaneously live peers at maxClients (Unlimited meaning no cap), and
// wraps each accepted transport in a Channel.
type Server struct {
	listener    net.Listener
	maxClients  int
	channelOpts []channel.Option

	onPeerAdded   func(*channel.Channel)
	onPeerRemoved func(*channel.Channel)

	mu     sync.Mutex
	peers  map[*channel.Channel]struct{}
	closed bool
	done   chan struct{}
}

// Listen starts a Server bound to addr (host:port, "" host means
// DefaultAddress, "" or "0" port means DefaultPort/OS-assigned).
func Listen(addr string, opts ...ServerOption) (*Server, error) {
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", DefaultAddress, DefaultPort)
	} else if host, port, err := net.SplitHostPort(addr); err == nil && host == "" {
		addr = net.JoinHostPort(DefaultAddress, port)
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("xen: endpoint: listen %s: %w", addr, err)
	}
	s := &Server{
		listener:   ln,
		maxClients: Unlimited,
		peers:      make(map[*channel.Channel]struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Addr returns the listener's actual local address, useful when Listen was
// given an OS-assigned port.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until the Server is closed, wrapping each one in
// a Channel. It blocks; run it in its own goroutine. Returns nil on a clean
// shutdown (Close called) and a wrapped error otherwise.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
				return fmt.Errorf("xen: endpoint: accept: %w", err)
			}
		}
		s.handleAccept(conn)
	}
}

func (s *Server) handleAccept(conn net.Conn) {
	s.mu.Lock()
	if s.maxClients >= 0 && len(s.peers) >= s.maxClients {
		s.mu.Unlock()
		s.rejectForCapacity(conn)
		return
	}
	s.mu.Unlock()

	ch := channel.New(conn, s.channelOpts...)

	s.mu.Lock()
	s.peers[ch] = struct{}{}
	s.mu.Unlock()
	if s.onPeerAdded != nil {
		s.onPeerAdded(ch)
	}

	go s.watchPeer(ch)
}

// rejectForCapacity handles an accept over max_clients: the new transport is
// sent a best-effort ERR:0:capacity-exhausted, then closed immediately,
// without ever becoming a peer Channel.
func (s *Server) rejectForCapacity(conn net.Conn) {
	envelope := protocol.FormatEnvelope(protocol.CategoryERR, 0, "capacity-exhausted")
	_ = protocol.WriteFrame(conn, []byte(envelope)) // best-effort; conn is closing either way
	if err := conn.Close(); err != nil {
		log.Printf("xen: endpoint: close rejected connection: %v", err)
	}
}

// watchPeer removes ch from the peer set once its transport closes, whether
// that closure was triggered locally or by the peer (EOF, reset, protocol
// error).
func (s *Server) watchPeer(ch *channel.Channel) {
	ch.Wait()
	s.mu.Lock()
	delete(s.peers, ch)
	s.mu.Unlock()
	if s.onPeerRemoved != nil {
		s.onPeerRemoved(ch)
	}
}

// Peers returns a snapshot of the currently live peer Channels.
func (s *Server) Peers() []*channel.Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*channel.Channel, 0, len(s.peers))
	for ch := range s.peers {
		out = append(out, ch)
	}
	return out
}

// Close destroys all peer Channels, then closes the listener.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	peers := make([]*channel.Channel, 0, len(s.peers))
	for ch := range s.peers {
		peers = append(peers, ch)
	}
	s.mu.Unlock()

	for _, ch := range peers {
		_ = ch.Close()
	}
	return s.listener.Close()
}
