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

const udpReadBuffer = 512

// UDPProber sends an empty datagram and waits for any reply.
//
// Any reply, including the port-unreachable signal the OS surfaces as a
// refused read, counts as open. Silence until the deadline is filtered.
type UDPProber struct {
	dialer net.Dialer
}

// NewUDPProber creates a UDP prober.
func NewUDPProber() *UDPProber {
	return &UDPProber{}
}

// Probe sends one empty datagram to addr:port.
func (p *UDPProber) Probe(ctx context.Context, addr netip.Addr, port uint16, timeout time.Duration) (Outcome, error) {
	start := time.Now()
	deadline := start.Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	conn, err := p.dialer.DialContext(ctx, "udp", net.JoinHostPort(addr.String(), strconv.Itoa(int(port))))
	if err != nil {
		return Outcome{Latency: time.Since(start)}, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(deadline); err != nil {
		return Outcome{Latency: time.Since(start)}, err
	}

	if _, err := conn.Write([]byte{}); err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return Outcome{Status: StatusOpen, Latency: time.Since(start)}, nil
		}
		return Outcome{Latency: time.Since(start)}, err
	}

	buf := make([]byte, udpReadBuffer)
	_, err = conn.Read(buf)
	latency := time.Since(start)

	switch {
	case err == nil:
		return Outcome{Status: StatusOpen, Latency: latency}, nil
	case errors.Is(err, syscall.ECONNREFUSED):
		return Outcome{Status: StatusOpen, Latency: latency}, nil
	case isTimeout(err):
		return Outcome{Status: StatusFiltered, Latency: latency}, nil
	default:
		return Outcome{Latency: latency}, err
	}
}
