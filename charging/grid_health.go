package charging

import (
	"github.com/haidar-88/Capstone/ctxt"
	"github.com/haidar-88/Capstone/sim"
	"github.com/haidar-88/Capstone/wire"
)

// GridHealth tracks an RREH's operational-state classification and emits
// a GRID_STATUS the instant it changes, per spec §4.5's "transitions to
// CONGESTED/LIMITED/OFFLINE trigger immediate GRID_STATUS emission."
// Thresholds are fractions of starting capacity: NORMAL at or above 20%
// energy with an empty queue, CONGESTED once consumers are queuing, LIMITED
// below 20% energy remaining, OFFLINE at zero slots or zero energy.
type GridHealth struct {
	State wire.GridState
	first bool
	seq   uint32
}

// Evaluate reclassifies health against the current capacity and queue
// depth. It always returns a frame on the first call (the initial
// GRID_STATUS) and on every subsequent state transition.
func (h *GridHealth) Evaluate(c *ctxt.Context, now sim.VTimeInSec, capacity, start ProviderCapacity, queueLen int) (wire.Frame, bool) {
	next := classifyGridState(capacity, start, queueLen)
	changed := !h.first || next != h.State
	h.State = next
	h.first = true
	if !changed {
		return wire.Frame{}, false
	}

	h.seq++
	frame := wire.BuildGridStatus(wire.GridStatusReport{
		SeqNum:            h.seq,
		SenderID:          c.Self().ID,
		HubID:             c.Self().ID,
		RenewableFraction: 1.0,
		AvailablePowerKW:  capacity.AvailableEnergyKWh,
		MaxSessions:       uint16(start.AvailableSlots),
		QueueTimeSec:      float64(queueLen) * float64(c.Config().OfferWindow),
		State:             next,
		PreviousHop:       c.Self().ID,
	}, c.Config().ComputeTTL(c.Neighbors().OneHopCount()))
	return frame, true
}

func classifyGridState(capacity, start ProviderCapacity, queueLen int) wire.GridState {
	if capacity.AvailableSlots <= 0 || capacity.AvailableEnergyKWh <= 0 {
		return wire.GridOffline
	}
	energyFraction := 1.0
	if start.AvailableEnergyKWh > 0 {
		energyFraction = capacity.AvailableEnergyKWh / start.AvailableEnergyKWh
	}
	if energyFraction < 0.20 {
		return wire.GridLimited
	}
	if queueLen > 0 {
		return wire.GridCongested
	}
	return wire.GridNormal
}
