package scanning

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"strconv"
	"syscall"
	"time"
)

// dialFunc matches net.Dialer.DialContext.
type dialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// TCPProber performs a full TCP connect.
type TCPProber struct {
	dial dialFunc
}

// NewTCPProber creates a TCP connect prober.
func NewTCPProber() *TCPProber {
	var d net.Dialer
	return &TCPProber{dial: d.DialContext}
}

// Probe connects to addr:port. A completed handshake is open and the
// connection is handed back in the outcome; a refusal is closed; a timeout or
// an unreachable route is filtered. Any other socket error is returned.
func (p *TCPProber) Probe(ctx context.Context, addr netip.Addr, port uint16, timeout time.Duration) (Outcome, error) {
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	conn, err := p.dial(dialCtx, "tcp", net.JoinHostPort(addr.String(), strconv.Itoa(int(port))))
	latency := time.Since(start)

	if err == nil {
		return Outcome{Status: StatusOpen, Latency: latency, Conn: conn}, nil
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return Outcome{Status: StatusClosed, Latency: latency}, nil
	case isTimeout(err), errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH):
		return Outcome{Status: StatusFiltered, Latency: latency}, nil
	default:
		return Outcome{Latency: latency}, err
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
