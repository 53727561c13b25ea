// Package ctxt provides the Context every protocol layer is built against:
// the simulation clock, the immutable ProtocolConfig, the local NodeState,
// and handles to the per-layer tables. It is named ctxt rather than context
// to stay clear of the standard library package of that name.
package ctxt

import (
	"errors"

	"github.com/haidar-88/Capstone/sim"
)

// ErrTimeRegression is returned by UpdateTime when called with a timestamp
// earlier than the clock's current value. Per spec §7 this is fatal: it
// indicates a defect in the external orchestrator, not a condition the core
// can recover from.
var ErrTimeRegression = errors.New("ctxt: time regression")

// Clock is the core's only notion of time: a monotonic simulation-seconds
// value advanced exclusively through UpdateTime.
type Clock struct {
	now sim.VTimeInSec
}

// Now returns the clock's current simulation time.
func (c *Clock) Now() sim.VTimeInSec {
	return c.now
}

// Advance moves the clock forward to t. It is the only way simulation time
// changes; every entry point (Tick, Receive) must call it first with the
// event's own timestamp.
func (c *Clock) Advance(t sim.VTimeInSec) error {
	if t < c.now {
		return ErrTimeRegression
	}
	c.now = t
	return nil
}
