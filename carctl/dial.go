package carctl

import (
	"context"
	"fmt"
	"net"
	"time"
)

// TCPDialer returns a Dialer that connects to addr, trying an IPv4 dial
// first and falling back to IPv6 if that fails. This folds in the "IPv6
// fallback" revision the design notes in spec.md §9 call out as part of the
// union of controller behaviors to keep.
func TCPDialer(addr string, timeout time.Duration) Dialer {
	return func(ctx context.Context) (net.Conn, error) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		var d net.Dialer
		conn, err4 := d.DialContext(ctx, "tcp4", addr)
		if err4 == nil {
			return conn, nil
		}
		conn, err6 := d.DialContext(ctx, "tcp6", addr)
		if err6 == nil {
			return conn, nil
		}
		return nil, fmt.Errorf("carctl: dial %s failed over both tcp4 (%v) and tcp6 (%v)", addr, err4, err6)
	}
}
