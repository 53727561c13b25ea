// Package neighbor implements Layer A: HELLO emission and processing, the
// one-hop/two-hop topology view, and QoS-weighted OLSR MPR selection.
package neighbor

import (
	"github.com/haidar-88/Capstone/geo"
	"github.com/haidar-88/Capstone/identity"
	"github.com/haidar-88/Capstone/sim"
	"github.com/haidar-88/Capstone/wire"
)

// Entry is one NeighborEntry: everything known about a one-hop neighbor
// from its most recent HELLO.
type Entry struct {
	ID              identity.NodeID
	LastHelloTime   sim.VTimeInSec
	Position        geo.Vec2
	Velocity        geo.Vec2
	Advertised      []wire.NeighborAdvert
	Metrics         wire.QoSMetrics
	ProviderFlag    bool
	ShareableKWh    float64
	Direction       [2]float64
	SelectedUsAsMPR bool

	// lastIntervalSec is the gap between this entry's two most recent
	// HELLOs, kept only to let the next Upsert derive a jitter estimate
	// from the change in inter-arrival time.
	lastIntervalSec sim.VTimeInSec
}

// advertisedIDs returns the neighbor ids this entry's sender advertised in
// its own HELLO, used for two-hop set computation.
func (e Entry) advertisedIDs() []identity.NodeID {
	ids := make([]identity.NodeID, 0, len(e.Advertised))
	for _, a := range e.Advertised {
		ids = append(ids, a.ID)
	}
	return ids
}

// qosRank computes the deterministic tie-break value used by MPR selection
// step 3: higher is better. It combines the components spec §4.3 step 4
// lists, in descending priority, each scaled by its configured weight.
func qosRank(e Entry, w mprWeights) float64 {
	return w.Willingness*e.Metrics.Willingness +
		w.Battery*e.Metrics.BatteryPercent -
		w.ETX*e.Metrics.ETX -
		w.Delay*e.Metrics.JitterMs -
		w.Mobility*e.Metrics.RelativeSpeed -
		w.Congestion*e.Metrics.LaneWeight +
		w.Stability*e.Metrics.Stability
}

type mprWeights struct {
	Battery     float64
	ETX         float64
	Delay       float64
	Mobility    float64
	Willingness float64
	Congestion  float64
	Stability   float64
}
