package loadgen

import (
	"sync"

	"github.com/juststeveking/readycheck/internal/probe"
)

// collector is the one shared structure of a load run. Workers only append.
type collector struct {
	mu      sync.Mutex
	samples []probe.Sample

	abortAfter  int
	reached     bool
	unreachable int
	aborted     bool
}

func newCollector(abortAfter int) *collector {
	return &collector{abortAfter: abortAfter}
}

// add appends a sample and reports whether the run should stop because the
// target has been unreachable from the very first probe.
func (c *collector) add(s probe.Sample) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.samples = append(c.samples, s)
	if c.reached || c.abortAfter <= 0 {
		return false
	}
	if s.Outcome != probe.OutcomeUnreachable {
		c.reached = true
		return false
	}
	c.unreachable++
	if c.unreachable >= c.abortAfter && !c.aborted {
		c.aborted = true
		return true
	}
	return false
}

func (c *collector) snapshot() ([]probe.Sample, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]probe.Sample, len(c.samples))
	copy(out, c.samples)
	return out, c.aborted
}
