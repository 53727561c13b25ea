package neighbor

import (
	"github.com/haidar-88/Capstone/ctxt"
	"github.com/haidar-88/Capstone/sim"
	"github.com/haidar-88/Capstone/wire"
)

// Layer is Layer A's entry point: periodic HELLO emission and HELLO
// dispatch, wired into a Context's NeighborView through its Table.
type Layer struct {
	Table *Table

	lastHelloTime sim.VTimeInSec
	haveSentHello bool
	seq           uint32
}

// NewLayer builds a Layer A instance for c.Self().ID, ranking MPR ties with
// the weights in c.Config().MprRank.
func NewLayer(c *ctxt.Context) *Layer {
	return &Layer{Table: New(c.Self().ID, c.Config().MprRank)}
}

// Tick runs HELLO origination (if due) and NeighborTable pruning. It
// returns the frames to hand to the PHY sink, if any.
func (l *Layer) Tick(c *ctxt.Context, now sim.VTimeInSec) []wire.Frame {
	cfg := c.Config()

	removed := l.Table.Prune(now, cfg.NeighborTimeout)
	for range removed {
		c.Metrics().Inc("neighbor_pruned")
	}

	var frames []wire.Frame
	if !l.haveSentHello || now-l.lastHelloTime >= cfg.HelloInterval {
		frames = append(frames, l.buildHello(c, now))
		l.lastHelloTime = now
		l.haveSentHello = true
	}
	return frames
}

// Receive processes a decoded HELLO frame: upserts the sender's entry and
// recomputes the two-hop and MPR sets. It also returns the parsed Hello and
// whether parsing succeeded, so the caller can feed Layer B's ProviderTable
// when the sender advertises provider capability, since a HELLO's provider
// flag is Layer B's other source of provider entries besides a received PA.
func (l *Layer) Receive(c *ctxt.Context, f wire.Frame, now sim.VTimeInSec) (wire.Hello, bool) {
	h, err := wire.ParseHello(f)
	if err != nil {
		c.Metrics().Inc("hello_malformed")
		return wire.Hello{}, false
	}
	l.Table.Upsert(h, now, c.Self().Velocity)
	c.Metrics().Inc("hello_processed")
	return h, true
}

func (l *Layer) buildHello(c *ctxt.Context, now sim.VTimeInSec) wire.Frame {
	self := c.Self()
	l.seq++

	advert := make([]wire.NeighborAdvert, 0, len(l.Table.OneHopIDs()))
	for _, id := range l.Table.OneHopIDs() {
		var status wire.LinkStatus = wire.LinkSymmetric
		if l.Table.IsMPR(id) {
			status |= wire.LinkMPR
		}
		advert = append(advert, wire.NeighborAdvert{ID: id, Status: status})
	}

	h := wire.Hello{
		SeqNum:       l.seq,
		SenderID:     self.ID,
		Position:     self.Position,
		Velocity:     self.Velocity,
		NeighborList: advert,
		Metrics: wire.QoSMetrics{
			BatteryPercent: self.BatteryPercent(),
			Willingness:    float64(self.Willingness),
			ETX:            defaultIfZero(self.ETX, 1.0),
			LaneWeight:     defaultIfZero(self.LaneWeight, 0.5),
			Stability:      defaultIfZero(self.Stability, 1.0),
		},
		ProviderFlag: self.ProviderCapable,
	}
	if self.ProviderCapable {
		h.ShareableEnergyKWh = self.ShareableEnergy()
		h.Direction = [2]float64{self.Direction.X, self.Direction.Y}
	}

	return wire.BuildHello(h)
}

// defaultIfZero substitutes def for an unset (zero-value) self-reported QoS
// field, matching the original implementation's own attribute defaults.
func defaultIfZero(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
