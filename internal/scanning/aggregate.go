package scanning

import (
	"slices"
	"sync"
)

// Aggregator collects results from concurrent workers. Writes are append-only
// and guarded by a mutex; the counters are kept alongside the results.
type Aggregator struct {
	mu       sync.Mutex
	results  []Result
	recorded map[uint16]struct{}

	open     int
	closed   int
	filtered int
}

// NewAggregator creates an aggregator sized for expected results.
func NewAggregator(expected int) *Aggregator {
	return &Aggregator{
		results:  make([]Result, 0, expected),
		recorded: make(map[uint16]struct{}, expected),
	}
}

// Record appends r unless a result for the same port is already present.
// It reports whether r was kept.
func (a *Aggregator) Record(r Result) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, dup := a.recorded[r.Port]; dup {
		return false
	}
	a.recorded[r.Port] = struct{}{}
	a.results = append(a.results, r)

	switch r.Status {
	case StatusOpen:
		a.open++
	case StatusFiltered:
		a.filtered++
	default:
		a.closed++
	}
	return true
}

// Counts returns the open, closed and filtered tallies.
func (a *Aggregator) Counts() (open, closed, filtered int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.open, a.closed, a.filtered
}

// Results returns a port-ascending copy of the recorded results. Outside
// verbose mode only open ports are returned; in verbose mode filtered and
// closed are kept distinct.
func (a *Aggregator) Results(verbose bool) []Result {
	a.mu.Lock()
	out := make([]Result, 0, len(a.results))
	for _, r := range a.results {
		if !verbose && r.Status != StatusOpen {
			continue
		}
		out = append(out, r)
	}
	a.mu.Unlock()

	slices.SortFunc(out, func(x, y Result) int {
		return int(x.Port) - int(y.Port)
	})
	return out
}

// StatusCounts returns per-status tallies. Outside verbose mode filtered is
// folded into closed.
func (a *Aggregator) StatusCounts(verbose bool) map[Status]int {
	open, closed, filtered := a.Counts()
	if !verbose {
		return map[Status]int{StatusOpen: open, StatusClosed: closed + filtered}
	}
	return map[Status]int{StatusOpen: open, StatusClosed: closed, StatusFiltered: filtered}
}
