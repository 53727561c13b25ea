// Package metrics provides the counter-only sink every protocol layer
// reports through, satisfying the "no I/O from core" rule in spec §6. It is
// built on sim.Hookable so the same counters can additionally be observed
// by a Hook (e.g. a tracer in package tracing) without the core knowing
// tracing exists.
package metrics

import (
	"sort"
	"sync"

	"github.com/haidar-88/Capstone/sim"
)

// HookPosCounterIncremented is the hook position invoked every time a
// counter is bumped, with the counter name and new total as Item/Detail.
var HookPosCounterIncremented = &sim.HookPos{Name: "CounterIncremented"}

// Counters is a concurrency-safe set of named monotonic counters. It
// implements ctxt.Metrics.
type Counters struct {
	sim.HookableBase

	mu     sync.Mutex
	values map[string]int64
}

// New returns an empty Counters sink.
func New() *Counters {
	return &Counters{values: make(map[string]int64)}
}

// Inc increments the named counter by one and invokes any registered hooks.
func (c *Counters) Inc(name string) {
	c.Add(name, 1)
}

// Add increments the named counter by delta.
func (c *Counters) Add(name string, delta int64) {
	c.mu.Lock()
	c.values[name] += delta
	total := c.values[name]
	c.mu.Unlock()

	if c.NumHooks() > 0 {
		c.InvokeHook(sim.HookCtx{Domain: c, Pos: HookPosCounterIncremented, Item: name, Detail: total})
	}
}

// Value returns the current total for name.
func (c *Counters) Value(name string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[name]
}

// Snapshot returns a copy of every counter's current value, as a map with
// no defined order; use Names for a sorted list of counter names.
func (c *Counters) Snapshot() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Names returns the sorted list of counters that have been touched.
func (c *Counters) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.values))
	for k := range c.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
