package scanning

import (
	"fmt"
	"net"
	"slices"
	"strings"
	"time"
)

// ScanType selects the probing technique. Each value maps to exactly one
// Prober.
type ScanType string

const (
	// ScanTCP is a full TCP connect.
	ScanTCP ScanType = "tcp"
	// ScanUDP sends an empty datagram and waits for any reply.
	ScanUDP ScanType = "udp"
	// ScanSemiOpen is a SYN probe delegated to nmap.
	ScanSemiOpen ScanType = "semi-open"
)

// ScanTypes lists every supported scan type.
var ScanTypes = []ScanType{ScanTCP, ScanUDP, ScanSemiOpen}

// ParseScanType converts a user-supplied name to a ScanType.
func ParseScanType(s string) (ScanType, error) {
	switch st := ScanType(strings.ToLower(strings.TrimSpace(s))); st {
	case ScanTCP, ScanUDP, ScanSemiOpen:
		return st, nil
	case "syn":
		return ScanSemiOpen, nil
	default:
		return "", fmt.Errorf("unknown scan type %q (want tcp, udp or semi-open)", s)
	}
}

// Protocol returns the transport protocol the scan type probes.
func (t ScanType) Protocol() string {
	if t == ScanUDP {
		return "udp"
	}
	return "tcp"
}

// RequiresPrivilege reports whether the scan type needs raw socket rights.
func (t ScanType) RequiresPrivilege() bool {
	return t == ScanUDP || t == ScanSemiOpen
}

// Status is the observed state of a port.
type Status string

const (
	StatusOpen     Status = "open"
	StatusClosed   Status = "closed"
	StatusFiltered Status = "filtered"
)

// Job is one port to probe. Jobs are values and are never shared.
type Job struct {
	Port     uint16
	ScanType ScanType
}

// Outcome is what a Prober observed for one port.
type Outcome struct {
	Status  Status
	Latency time.Duration
	// Conn is the established connection for an open TCP port, left open
	// for banner grabbing. The caller closes it.
	Conn net.Conn
}

// Result is the record for one scanned port. It is written once by the
// worker that ran the job.
type Result struct {
	// Port is the port number (1-65535)
	Port uint16 `json:"port" xml:"port,attr"`
	// Protocol is the transport protocol ("tcp" or "udp")
	Protocol string `json:"protocol" xml:"protocol,attr"`
	// Status is "open", "closed", or "filtered"
	Status Status `json:"status" xml:"status,attr"`
	// Service is the detected service label, if detection ran
	Service string `json:"service,omitempty" xml:"service,omitempty"`
	// Banner is the first line the service sent, at most 256 bytes
	Banner string `json:"banner,omitempty" xml:"banner,omitempty"`
	// Latency is how long the probe took
	Latency time.Duration `json:"latency_ns" xml:"latency_ns,attr"`
}

// Report contains the complete results of a port scan.
type Report struct {
	// ScanID uniquely identifies this scan
	ScanID string `json:"scan_id"`
	// Target is the host as given and the address probed
	Target string `json:"target"`
	// Address is the resolved address probes were sent to
	Address string `json:"address"`
	// ScanType is the technique used
	ScanType ScanType `json:"scan_type"`
	// TotalPorts is the number of ports probed
	TotalPorts int `json:"total_ports"`
	// OpenPorts is the number of ports found open
	OpenPorts int `json:"open_ports"`
	// Verbose is true when closed and filtered ports are listed
	Verbose bool `json:"verbose"`
	// Interrupted is true when cancellation left ports unprobed
	Interrupted bool `json:"interrupted,omitempty"`
	// Results is sorted ascending by port
	Results []Result `json:"results"`
	// StartTime is when the scan started
	StartTime time.Time `json:"start_time"`
	// EndTime is when the scan completed
	EndTime time.Time `json:"end_time"`
	// Duration is how long the scan took
	Duration time.Duration `json:"duration_ns"`
}

// String renders a one-line summary of the report.
func (r *Report) String() string {
	return fmt.Sprintf("%s: %d/%d open (%s, %s)",
		r.Target, r.OpenPorts, r.TotalPorts, r.ScanType, r.Duration.Round(time.Millisecond))
}

// Options controls a single scan.
type Options struct {
	// ScanType selects the Prober
	ScanType ScanType
	// Timeout bounds each probe, including any banner read
	Timeout time.Duration
	// Workers is the requested concurrency; the engine clamps it
	Workers int
	// GrabBanner reads a banner from open TCP ports
	GrabBanner bool
	// DetectService labels open ports
	DetectService bool
	// Verbose keeps non-open results in the report
	Verbose bool
	// RateLimit caps probe starts per second (0 = unlimited)
	RateLimit float64
}

// DefaultOptions returns options for a plain TCP scan.
func DefaultOptions() Options {
	return Options{
		ScanType: ScanTCP,
		Timeout:  time.Second,
		Workers:  50,
	}
}

// Validate checks option values before any work starts.
func (o Options) Validate() error {
	if !slices.Contains(ScanTypes, o.ScanType) {
		return fmt.Errorf("unknown scan type %q", o.ScanType)
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", o.Timeout)
	}
	if o.Workers <= 0 {
		return fmt.Errorf("worker count must be positive, got %d", o.Workers)
	}
	if o.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative, got %v", o.RateLimit)
	}
	return nil
}
