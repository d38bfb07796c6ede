// Package ports turns user-facing port expressions into concrete port sets.
//
// Supported forms:
//   - single: "22"
//   - list:   "22,80,443" (duplicates dropped, given order kept)
//   - range:  "1-1024" (inclusive, upper bound clamped to 65535)
//   - named:  "common", "top-N", "all"
package ports

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/anstrom/portscout/internal/errors"
)

const (
	MinPort = 1
	MaxPort = 65535

	expectedRangeParts = 2
)

// Kind tags the variant held by a Spec.
type Kind int

const (
	KindSingle Kind = iota
	KindRange
	KindList
	KindNamed
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindRange:
		return "range"
	case KindList:
		return "list"
	case KindNamed:
		return "named"
	default:
		return "unknown"
	}
}

// Named sets.
const (
	NameAll    = "all"
	NameCommon = "common"
	NameTop    = "top"
)

var topPattern = regexp.MustCompile(`^top-(\d+)$`)

// Spec is a parsed port expression. Only the fields relevant to Kind are set.
type Spec struct {
	Kind Kind
	// Ports holds the value for KindSingle and KindList.
	Ports []uint16
	// Lo and Hi bound a KindRange, inclusive.
	Lo, Hi uint16
	// Name and TopN describe a KindNamed set. TopN is only set for "top".
	Name string
	TopN int

	raw string
}

// Parse parses a port expression. Any expression matching none of the
// supported forms yields an INVALID_PORT_SPEC error.
func Parse(expr string) (Spec, error) {
	raw := expr
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Spec{}, errors.ErrInvalidPortSpec(raw, "empty port specification")
	}

	lower := strings.ToLower(expr)
	switch lower {
	case NameAll:
		return Spec{Kind: KindNamed, Name: NameAll, raw: raw}, nil
	case NameCommon:
		return Spec{Kind: KindNamed, Name: NameCommon, raw: raw}, nil
	}
	if m := topPattern.FindStringSubmatch(lower); m != nil {
		n, err := atoiSaturating(m[1])
		if err != nil || n < 1 {
			return Spec{}, errors.ErrInvalidPortSpec(raw, "top-N requires N >= 1")
		}
		return Spec{Kind: KindNamed, Name: NameTop, TopN: min(n, len(rankedPorts)), raw: raw}, nil
	}

	if strings.Contains(expr, "-") {
		return parseRange(raw, expr)
	}
	if strings.Contains(expr, ",") {
		return parseList(raw, expr)
	}

	p, err := parsePort(expr)
	if err != nil {
		return Spec{}, errors.ErrInvalidPortSpec(raw, err.Error())
	}
	return Spec{Kind: KindSingle, Ports: []uint16{p}, raw: raw}, nil
}

func parseRange(raw, expr string) (Spec, error) {
	bounds := strings.Split(expr, "-")
	if len(bounds) != expectedRangeParts {
		return Spec{}, errors.ErrInvalidPortSpec(raw, "invalid range format")
	}

	lo, err := atoiSaturating(strings.TrimSpace(bounds[0]))
	if err != nil {
		return Spec{}, errors.ErrInvalidPortSpec(raw, "invalid range start")
	}
	hi, err := atoiSaturating(strings.TrimSpace(bounds[1]))
	if err != nil {
		return Spec{}, errors.ErrInvalidPortSpec(raw, "invalid range end")
	}

	hi = min(hi, MaxPort)
	if lo < MinPort {
		return Spec{}, errors.ErrInvalidPortSpec(raw, fmt.Sprintf("range start must be >= %d", MinPort))
	}
	if lo > hi {
		return Spec{}, errors.ErrInvalidPortSpec(raw, "range start greater than end")
	}
	return Spec{Kind: KindRange, Lo: uint16(lo), Hi: uint16(hi), raw: raw}, nil
}

// atoiSaturating is strconv.Atoi, except that an unsigned decimal too large
// for an int saturates to math.MaxInt so callers can clamp it.
func atoiSaturating(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange &&
		s != "" && strings.Trim(s, "0123456789") == "" {
		return math.MaxInt, nil
	}
	return n, err
}

func parseList(raw, expr string) (Spec, error) {
	parts := strings.Split(expr, ",")
	seen := make(map[uint16]struct{}, len(parts))
	out := make([]uint16, 0, len(parts))

	for _, part := range parts {
		p, err := parsePort(strings.TrimSpace(part))
		if err != nil {
			return Spec{}, errors.ErrInvalidPortSpec(raw, err.Error())
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return Spec{Kind: KindList, Ports: out, raw: raw}, nil
}

func parsePort(s string) (uint16, error) {
	if s == "" {
		return 0, fmt.Errorf("empty port token")
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	if v < MinPort || v > MaxPort {
		return 0, fmt.Errorf("port %d out of range %d-%d", v, MinPort, MaxPort)
	}
	return uint16(v), nil
}

// Resolve returns the concrete, duplicate-free port sequence. Named sets and
// ranges come out ascending; lists keep the order they were given in.
func (s Spec) Resolve() []uint16 {
	switch s.Kind {
	case KindSingle, KindList:
		return slices.Clone(s.Ports)
	case KindRange:
		out := make([]uint16, 0, int(s.Hi)-int(s.Lo)+1)
		for p := int(s.Lo); p <= int(s.Hi); p++ {
			out = append(out, uint16(p))
		}
		return out
	case KindNamed:
		switch s.Name {
		case NameAll:
			return Spec{Kind: KindRange, Lo: MinPort, Hi: MaxPort}.Resolve()
		case NameCommon:
			out := slices.Clone(commonPorts)
			slices.Sort(out)
			return out
		case NameTop:
			out := slices.Clone(rankedPorts[:s.TopN])
			slices.Sort(out)
			return out
		}
	}
	return nil
}

// Count returns the number of ports Resolve would yield without allocating them.
func (s Spec) Count() int {
	switch s.Kind {
	case KindSingle, KindList:
		return len(s.Ports)
	case KindRange:
		return int(s.Hi) - int(s.Lo) + 1
	case KindNamed:
		switch s.Name {
		case NameAll:
			return MaxPort
		case NameCommon:
			return len(commonPorts)
		case NameTop:
			return s.TopN
		}
	}
	return 0
}

// String returns the expression the spec was parsed from.
func (s Spec) String() string {
	return strings.TrimSpace(s.raw)
}

// Resolve parses expr and resolves it in one step.
func Resolve(expr string) ([]uint16, error) {
	spec, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	return spec.Resolve(), nil
}
