// Package target validates and resolves the host a scan runs against.
// Resolution happens once, before any socket is opened to the target.
package target

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/anstrom/portscout/internal/errors"
)

const (
	defaultDNSPort    = "53"
	defaultDNSTimeout = 3 * time.Second
)

// Target is a resolved scan target. It is immutable once returned by Resolve.
type Target struct {
	// Raw is the host string as the caller supplied it.
	Raw string
	// Address is the address probes are sent to.
	Address netip.Addr
}

// String returns the address in a form suitable for log lines and reports.
func (t Target) String() string {
	if t.Raw == "" || t.Raw == t.Address.String() {
		return t.Address.String()
	}
	return fmt.Sprintf("%s (%s)", t.Raw, t.Address)
}

// LookupFunc resolves a host name to its addresses.
type LookupFunc func(ctx context.Context, host string) ([]netip.Addr, error)

// Resolver turns host strings into Targets.
type Resolver struct {
	lookup     LookupFunc
	nameserver string
	timeout    time.Duration
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithNameserver sends queries straight to the given DNS server instead of
// using the platform resolver. A missing port defaults to 53.
func WithNameserver(server string) Option {
	return func(r *Resolver) {
		if server == "" {
			return
		}
		if _, _, err := net.SplitHostPort(server); err != nil {
			server = net.JoinHostPort(strings.Trim(server, "[]"), defaultDNSPort)
		}
		r.nameserver = server
		r.lookup = r.lookupDNS
	}
}

// WithTimeout bounds each DNS exchange on the nameserver path.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLookupFunc replaces the name lookup entirely.
func WithLookupFunc(fn LookupFunc) Option {
	return func(r *Resolver) {
		r.lookup = fn
	}
}

// NewResolver creates a Resolver backed by the platform resolver unless an
// option says otherwise.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		lookup:  lookupPlatform,
		timeout: defaultDNSTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve validates host. Literal addresses are accepted as-is; names are
// looked up and the first IPv4 address is preferred over IPv6.
func (r *Resolver) Resolve(ctx context.Context, host string) (Target, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return Target{}, errors.ErrUnresolvableHost(host, fmt.Errorf("empty host"))
	}

	if addr, err := netip.ParseAddr(strings.Trim(host, "[]")); err == nil {
		return Target{Raw: host, Address: addr.Unmap()}, nil
	}

	addrs, err := r.lookup(ctx, host)
	if err != nil {
		return Target{}, errors.ErrUnresolvableHost(host, err)
	}
	addr, ok := pickAddress(addrs)
	if !ok {
		return Target{}, errors.ErrUnresolvableHost(host, fmt.Errorf("no addresses found"))
	}
	return Target{Raw: host, Address: addr}, nil
}

func pickAddress(addrs []netip.Addr) (netip.Addr, bool) {
	var fallback netip.Addr
	for _, a := range addrs {
		a = a.Unmap()
		if !a.IsValid() {
			continue
		}
		if a.Is4() {
			return a, true
		}
		if !fallback.IsValid() {
			fallback = a
		}
	}
	return fallback, fallback.IsValid()
}

func lookupPlatform(ctx context.Context, host string) ([]netip.Addr, error) {
	return net.DefaultResolver.LookupNetIP(ctx, "ip", host)
}

// lookupDNS queries the configured nameserver for A records, then AAAA.
func (r *Resolver) lookupDNS(ctx context.Context, host string) ([]netip.Addr, error) {
	client := &dns.Client{Timeout: r.timeout}

	var addrs []netip.Addr
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg := new(dns.Msg)
		msg.SetQuestion(dns.Fqdn(host), qtype)
		msg.RecursionDesired = true

		resp, _, err := client.ExchangeContext(ctx, msg, r.nameserver)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", r.nameserver, err)
		}
		if resp.Rcode == dns.RcodeNameError {
			return nil, fmt.Errorf("%s: %s", host, dns.RcodeToString[resp.Rcode])
		}
		if resp.Rcode != dns.RcodeSuccess {
			continue
		}

		for _, rr := range resp.Answer {
			switch rec := rr.(type) {
			case *dns.A:
				if a, ok := netip.AddrFromSlice(rec.A); ok {
					addrs = append(addrs, a.Unmap())
				}
			case *dns.AAAA:
				if a, ok := netip.AddrFromSlice(rec.AAAA); ok {
					addrs = append(addrs, a)
				}
			}
		}
		if len(addrs) > 0 {
			break
		}
	}
	return addrs, nil
}
