// Package node wires the four protocol layers (neighbor, announce,
// charging, platoon) into a single per-vehicle dispatcher built on a
// shared ctxt.Context, exposing the three external entry points spec
// §6 defines: Tick, Receive, and ApplyMobilityAndEnergy.
package node

import (
	"errors"

	"github.com/haidar-88/Capstone/announce"
	"github.com/haidar-88/Capstone/charging"
	"github.com/haidar-88/Capstone/config"
	"github.com/haidar-88/Capstone/ctxt"
	"github.com/haidar-88/Capstone/geo"
	"github.com/haidar-88/Capstone/identity"
	"github.com/haidar-88/Capstone/neighbor"
	"github.com/haidar-88/Capstone/platoon"
	"github.com/haidar-88/Capstone/sim"
	"github.com/haidar-88/Capstone/wire"
)

// HookPosFrameSent and HookPosFrameReceived mark the two points a tracer
// can observe a Node moving frames across the wire boundary, mirroring the
// teacher's convention of exposing hook positions as package-level vars
// next to the type that invokes them.
var (
	HookPosFrameSent     = &sim.HookPos{Name: "NodeFrameSent"}
	HookPosFrameReceived = &sim.HookPos{Name: "NodeFrameReceived"}
	HookPosTimeRegressed = &sim.HookPos{Name: "NodeTimeRegressed"}
)

// PhySink is the outbound boundary a Node hands its encoded frames to. A
// concrete implementation (e.g. internal/transport.Medium's per-node Sink)
// owns delivery, loss, and multi-hop timing; the core never depends on it
// directly.
type PhySink interface {
	Send(frame []byte)
}

// ErrStopped is returned by every entry point once a Node has been halted
// by a fatal condition (currently: a time regression). A stopped Node
// refuses further work rather than risk operating on stale state.
var ErrStopped = errors.New("node: stopped after fatal error")

// Node is the per-vehicle dispatch object: a Context plus the four Layer
// instances built against it, and the PHY sink frames go out through.
type Node struct {
	sim.HookableBase

	ctx *ctxt.Context
	sink PhySink

	neighbor *neighbor.Layer
	announce *announce.Layer
	charging *charging.Layer
	platoon  *platoon.Layer

	dedup      *announce.DedupCache
	stopped    bool
	platoonSeq uint32
}

// New builds a Node for self, wiring every layer's table into ctx per
// package ctxt's two-step construction contract, and gives charging's
// provider-shaped machine capacity to allocate from.
func New(cfg *config.ProtocolConfig, self *identity.State, capacity charging.ProviderCapacity, metrics ctxt.Metrics, sink PhySink) *Node {
	c := ctxt.New(cfg, self)
	if metrics != nil {
		c.SetMetrics(metrics)
	}

	n := &Node{
		ctx:  c,
		sink: sink,
	}

	n.neighbor = neighbor.NewLayer(c)
	n.announce = announce.NewLayer(c)
	n.charging = charging.NewLayer(c, capacity)
	n.platoon = platoon.NewLayer(c)
	n.dedup = announce.NewDedupCache(cfg.DedupCacheSize)

	c.SetNeighbors(n.neighbor.Table)
	c.SetProviders(n.announce.Providers)
	c.SetPlatoons(n.platoon.Table)
	c.SetDedup(n.announce.Dedup)
	n.charging.SetRoster(n.platoon)

	return n
}

// Context returns the Node's shared Context, for use by test harnesses and
// cmd/mvccpctl that need to inspect table state directly.
func (n *Node) Context() *ctxt.Context { return n.ctx }

// Position satisfies transport.PositionSource, letting a Medium place this
// Node in space for range checks without importing package node.
func (n *Node) Position() geo.Vec2 { return n.ctx.Self().Position }

// Tick advances the Node's clock to t and drives every layer's periodic
// behavior in fixed order: neighbor discovery (A), provider announcement
// (B), the charging handshake and role evaluation (C), and platoon
// formation/beaconing (D). Layer D's head status feeds back into Layer C's
// RoleManager before C runs, so a node that became a platoon head on a
// prior tick is evaluated as PLATOON_HEAD this tick.
func (n *Node) Tick(t sim.VTimeInSec) error {
	if n.stopped {
		return ErrStopped
	}
	if err := n.ctx.UpdateTime(t); err != nil {
		return n.stopFatal(err)
	}

	n.charging.SetPlatoonHead(n.platoon.IsHead() && n.platoon.Platoon() != nil && n.platoon.Platoon().Size() > 0)
	n.charging.SetPlatoonMember(n.platoon.IsMember())

	var frames []wire.Frame
	frames = append(frames, n.neighbor.Tick(n.ctx, t)...)
	frames = append(frames, n.announce.Tick(n.ctx, t)...)

	chargingFrames, newlyCharging := n.charging.Tick(n.ctx, t)
	frames = append(frames, chargingFrames...)

	n.bootstrapPlatoonHead()
	n.admitToPlatoon(newlyCharging)

	frames = append(frames, n.platoon.Tick(n.ctx, t)...)

	n.sendAll(frames)
	return nil
}

// bootstrapPlatoonHead starts this node's platoon the instant RoleManager
// promotes it to PLATOON_HEAD, per spec §4.5's literal rule and the
// original's _initialize_platoon_head, which forms a Platoon the moment
// apply_role transitions into PLATOON_HEAD — not once some later handshake
// happens to complete. RoleManager.Evaluate (run inside charging.Layer.Tick,
// just above) already wrote this tick's role onto n.ctx.Self().Role.
func (n *Node) bootstrapPlatoonHead() {
	if n.ctx.Self().Role != identity.RolePlatoonHead || n.platoon.IsHead() {
		return
	}
	self := n.ctx.Self()
	n.platoonSeq++
	n.platoon.StartPlatoon(platoonID(self.ID, n.platoonSeq), self.ID, n.ctx.Config().PlatoonMaxSize)
}

// admitToPlatoon rosters every consumer this node, acting as a platoon
// head's provider machine, just finished ACKACK with. By the time this
// runs, bootstrapPlatoonHead has already ensured a platoon exists for any
// non-empty newlyCharging (ACKACK only comes from the provider machine,
// which only runs under RolePlatoonHead or RoleRREH, and RREH never returns
// newlyCharging).
func (n *Node) admitToPlatoon(newlyCharging []identity.NodeID) {
	if len(newlyCharging) == 0 || !n.platoon.IsHead() {
		return
	}
	roster := n.platoon.Platoon()
	for _, id := range newlyCharging {
		if !roster.HasCapacity() {
			n.ctx.Metrics().Inc("platoon_admit_full")
			continue
		}
		roster.AddMember(platoon.RosterMember{ID: id})
	}
}

// platoonID derives a platoon identifier from the founding head and a
// per-node sequence counter, the same FNV-1a-over-fields construction
// charging.sessionID uses to turn identifiers into an opaque uint32.
func platoonID(head identity.NodeID, seq uint32) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	h := uint32(offset32)
	for _, b := range []byte{
		byte(head >> 40), byte(head >> 32), byte(head >> 24), byte(head >> 16), byte(head >> 8), byte(head),
		byte(seq >> 24), byte(seq >> 16), byte(seq >> 8), byte(seq),
	} {
		h ^= uint32(b)
		h *= prime32
	}
	return h
}

// Receive decodes a wire frame and dispatches it to whichever layer owns
// its message kind, transmitting anything that layer returns for
// forwarding. A malformed frame or a header that fails Decode's semantic
// validation is dropped and counted, never propagated, per spec §7 — the
// only errors Receive itself returns are ErrTimeRegression, which turns the
// Node permanently inert, and ErrStopped once it is inert.
func (n *Node) Receive(frame []byte, eventTime sim.VTimeInSec) error {
	if n.stopped {
		return ErrStopped
	}
	if err := n.ctx.UpdateTime(eventTime); err != nil {
		return n.stopFatal(err)
	}

	f, err := wire.Decode(frame, n.ctx.Config())
	if err != nil {
		n.ctx.Metrics().Inc("frame_malformed")
		return nil
	}
	n.InvokeHook(sim.HookCtx{Domain: n, Pos: HookPosFrameReceived, Item: f.Header.MsgType})

	var out []wire.Frame
	switch f.Header.MsgType {
	case wire.HELLO:
		if h, ok := n.neighbor.Receive(n.ctx, f, eventTime); ok && h.ProviderFlag {
			n.announce.Providers.UpsertFromHello(f.Header.SenderID, h, h.Position, eventTime)
		}

	case wire.PA:
		out = n.announce.Receive(n.ctx, f, eventTime)

	case wire.MsgJoinOffer, wire.MsgJoinAccept, wire.MsgAck, wire.MsgAckAck:
		n.charging.Receive(n.ctx, f, eventTime)

	case wire.MsgPlatoonBeacon, wire.MsgPlatoonStatus, wire.MsgPlatoonAnnounce:
		out = n.platoon.Receive(n.ctx, f, eventTime)

	case wire.GridStatus:
		out = n.forwardGridStatus(f)

	default:
		n.ctx.Metrics().Inc("frame_unknown_type")
	}

	n.sendAll(out)
	return nil
}

// forwardGridStatus dedups and TTL-decrements a GRID_STATUS broadcast.
// No layer owns a received-side table for grid health (a consumer reacts
// to RREH availability through ProviderTable, populated by PA, not by
// GRID_STATUS directly), so the dispatcher itself carries the
// dedup-and-relay responsibility spec §4.1 assigns to every forwardable
// kind.
func (n *Node) forwardGridStatus(f wire.Frame) []wire.Frame {
	g, err := wire.ParseGridStatus(f)
	if err != nil {
		n.ctx.Metrics().Inc("grid_status_malformed")
		return nil
	}
	if n.dedup.Seen(f.Header.SenderID, f.Header.SeqNum) {
		n.ctx.Metrics().Inc("grid_status_duplicate")
		return nil
	}
	n.dedup.Mark(f.Header.SenderID, f.Header.SeqNum)
	n.ctx.Metrics().Inc("grid_status_processed")

	self := n.ctx.Self()
	if f.Header.TTL == 0 || g.PreviousHop == self.ID {
		return nil
	}
	fwd := g
	fwd.PreviousHop = self.ID
	frame := wire.BuildGridStatus(fwd, f.Header.TTL-1)
	if frame.Header.TTL == 0 {
		return nil
	}
	n.ctx.Metrics().Inc("grid_status_forwarded")
	return []wire.Frame{frame}
}

// ApplyMobilityAndEnergy is the external collaborator's hook for feeding a
// mobility/energy simulator's output into this Node's identity.State
// ahead of the next Tick, per spec §6. It does not itself advance the
// clock; the caller's next Tick or Receive call does that.
func (n *Node) ApplyMobilityAndEnergy(t sim.VTimeInSec, pos geo.Vec2, vel geo.Vec2, batteryKWh float64) error {
	if n.stopped {
		return ErrStopped
	}
	self := n.ctx.Self()
	self.Position = pos
	self.Velocity = vel
	if batteryKWh < 0 {
		batteryKWh = 0
	}
	if batteryKWh > self.BatteryCapacityKWh {
		batteryKWh = self.BatteryCapacityKWh
	}
	self.BatteryEnergyKWh = batteryKWh
	return nil
}

func (n *Node) stopFatal(err error) error {
	n.stopped = true
	n.ctx.Metrics().Inc("time_regression")
	n.InvokeHook(sim.HookCtx{Domain: n, Pos: HookPosTimeRegressed, Item: err})
	return err
}

func (n *Node) sendAll(frames []wire.Frame) {
	if n.sink == nil {
		return
	}
	for _, f := range frames {
		b, err := wire.Encode(f)
		if err != nil {
			n.ctx.Metrics().Inc("frame_encode_failed")
			continue
		}
		n.InvokeHook(sim.HookCtx{Domain: n, Pos: HookPosFrameSent, Item: f.Header.MsgType})
		n.sink.Send(b)
	}
}
