// Package services labels open ports with a service name. Banner evidence is
// tried first against an ordered signature table, then the port number against
// a static well-known table, and anything left is Unknown.
package services

import "regexp"

// Unknown is the label for a port neither table recognises.
const Unknown = "Unknown"

// Classifier holds the signature and port tables. The zero value is not
// usable; construct with NewClassifier.
type Classifier struct {
	signatures []Signature
	ports      map[uint16]string
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithSignature appends a banner signature after the built-in ones.
func WithSignature(service string, pattern *regexp.Regexp) Option {
	return func(c *Classifier) {
		c.signatures = append(c.signatures, Signature{Service: service, Pattern: pattern})
	}
}

// WithPort adds or overrides a port fallback entry.
func WithPort(port uint16, service string) Option {
	return func(c *Classifier) {
		c.ports[port] = service
	}
}

// NewClassifier returns a classifier seeded with the built-in tables.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		signatures: append([]Signature(nil), defaultSignatures...),
		ports:      make(map[uint16]string, len(wellKnownPorts)),
	}
	for p, s := range wellKnownPorts {
		c.ports[p] = s
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Identify matches banner against the signature table.
func (c *Classifier) Identify(banner string) (string, bool) {
	if banner == "" {
		return "", false
	}
	for _, sig := range c.signatures {
		if sig.Matches(banner) {
			return sig.Service, true
		}
	}
	return "", false
}

// ByPort looks the port up in the well-known table.
func (c *Classifier) ByPort(port uint16) (string, bool) {
	s, ok := c.ports[port]
	return s, ok
}

// Classify returns the service label for an open port. A matching banner
// always wins over the port table.
func (c *Classifier) Classify(port uint16, banner string) string {
	if s, ok := c.Identify(banner); ok {
		return s
	}
	if s, ok := c.ByPort(port); ok {
		return s
	}
	return Unknown
}
