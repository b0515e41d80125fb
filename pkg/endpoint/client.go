package endpoint

import (
	"fmt"
	"net"

	"github.com/emmt/xen/pkg/channel"
)

// Dial connects to a peer's Server at addr (host:port) and wraps the
// resulting transport in a Channel.
func Dial(addr string, opts ...channel.Option) (*channel.Channel, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("xen: endpoint: dial %s: %w", addr, err)
	}
	return channel.New(conn, opts...), nil
}
