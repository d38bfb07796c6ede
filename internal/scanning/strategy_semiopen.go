package scanning

import (
	"context"
	"errors"
	"net/netip"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/Ullaakut/nmap/v3"

	scanerrors "github.com/anstrom/portscout/internal/errors"
	"github.com/anstrom/portscout/internal/logging"
)

const (
	nmapBinary = "nmap"
	// nmapStartupAllowance covers process start and teardown on top of the
	// per-host timeout nmap itself enforces.
	nmapStartupAllowance = 5 * time.Second
)

// SemiOpenProber sends a SYN probe by delegating to the nmap binary. It never
// falls back to a full connect.
type SemiOpenProber struct {
	binaryPath string
	lookPath   func(string) (string, error)
	geteuid    func() int
}

// SemiOpenOption configures a SemiOpenProber.
type SemiOpenOption func(*SemiOpenProber)

// WithNmapBinary uses the nmap binary at path instead of searching PATH.
func WithNmapBinary(path string) SemiOpenOption {
	return func(p *SemiOpenProber) {
		p.binaryPath = path
	}
}

// NewSemiOpenProber creates a semi-open prober.
func NewSemiOpenProber(opts ...SemiOpenOption) *SemiOpenProber {
	p := &SemiOpenProber{lookPath: exec.LookPath, geteuid: os.Geteuid}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Preflight checks that the nmap binary can be found.
func (p *SemiOpenProber) Preflight(_ context.Context) error {
	name := nmapBinary
	if p.binaryPath != "" {
		name = p.binaryPath
	}
	if _, err := p.lookPath(name); err != nil {
		return scanerrors.ErrCapabilityUnavailable(nmapBinary, err)
	}
	return nil
}

// Probe runs a single-port SYN scan through nmap.
func (p *SemiOpenProber) Probe(ctx context.Context, addr netip.Addr, port uint16, timeout time.Duration) (Outcome, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout+nmapStartupAllowance)
	defer cancel()

	options := []nmap.Option{
		nmap.WithTargets(addr.String()),
		nmap.WithPorts(strconv.Itoa(int(port))),
		nmap.WithSYNScan(),
		nmap.WithSkipHostDiscovery(), // Skip ping and go straight to port scan
		nmap.WithDisabledDNSResolution(),
		nmap.WithMaxRetries(0),
		nmap.WithHostTimeout(timeout),
	}
	if addr.Is6() {
		options = append(options, nmap.WithIPv6Scanning())
	}
	if p.binaryPath != "" {
		options = append(options, nmap.WithBinaryPath(p.binaryPath))
	}
	// Without --privileged nmap refuses -sS for any non-root user, even one
	// holding CAP_NET_RAW.
	if p.geteuid() != 0 {
		options = append(options, nmap.WithPrivileged())
	}

	start := time.Now()
	scanner, err := nmap.NewScanner(runCtx, options...)
	if err != nil {
		if errors.Is(err, nmap.ErrNmapNotInstalled) {
			return Outcome{}, scanerrors.ErrCapabilityUnavailable(nmapBinary, err)
		}
		return Outcome{}, err
	}

	result, warnings, err := scanner.Run()
	latency := time.Since(start)
	if warnings != nil && len(*warnings) > 0 {
		logging.Debug("nmap reported warnings",
			"port", port,
			"warnings", *warnings)
	}
	if err != nil {
		if errors.Is(err, nmap.ErrRequiresRoot) {
			return Outcome{Latency: latency}, scanerrors.ErrPermissionDenied(string(ScanSemiOpen))
		}
		return Outcome{Latency: latency}, err
	}

	return Outcome{Status: nmapPortStatus(result, port), Latency: latency}, nil
}

// nmapPortStatus extracts the state nmap reported for port. A port missing
// from the output (for example after a host timeout) counts as filtered.
func nmapPortStatus(result *nmap.Run, port uint16) Status {
	if result == nil {
		return StatusFiltered
	}
	for i := range result.Hosts {
		for _, p := range result.Hosts[i].Ports {
			if p.ID != port {
				continue
			}
			switch p.State.State {
			case "open":
				return StatusOpen
			case "closed":
				return StatusClosed
			default:
				return StatusFiltered
			}
		}
	}
	return StatusFiltered
}
