package scanning

import (
	"context"
	"fmt"
	"net/netip"
	"time"
)

//go:generate mockgen -destination=mocks/prober_mock.go -package=mocks github.com/anstrom/portscout/internal/scanning Prober

// Prober probes a single port with one technique. Implementations must honour
// timeout and ctx and must not retry.
type Prober interface {
	Probe(ctx context.Context, addr netip.Addr, port uint16, timeout time.Duration) (Outcome, error)
}

// Preflighter is implemented by probers that depend on something outside the
// process and can verify it before any job is dispatched.
type Preflighter interface {
	Preflight(ctx context.Context) error
}

// Registry maps scan types to probers.
type Registry map[ScanType]Prober

// DefaultRegistry returns the built-in prober for every scan type.
func DefaultRegistry() Registry {
	return Registry{
		ScanTCP:      NewTCPProber(),
		ScanUDP:      NewUDPProber(),
		ScanSemiOpen: NewSemiOpenProber(),
	}
}

// Prober returns the prober for t.
func (r Registry) Prober(t ScanType) (Prober, error) {
	p, ok := r[t]
	if !ok || p == nil {
		return nil, fmt.Errorf("no prober registered for scan type %q", t)
	}
	return p, nil
}
