// Package platoon implements Layer D: platoon formation and the energy
// transfer edge graph, the head-side beaconing that disseminates
// formation targets and collects member status, PH handoff, and the
// consumer-side PlatoonTable used for inter-platoon discovery.
package platoon

import (
	"github.com/haidar-88/Capstone/announce"
	"github.com/haidar-88/Capstone/ctxt"
	"github.com/haidar-88/Capstone/geo"
	"github.com/haidar-88/Capstone/identity"
	"github.com/haidar-88/Capstone/sim"
	"github.com/haidar-88/Capstone/wire"
)

// Layer is Layer D's entry point. A node runs exactly one of the
// head-side or member-side state at a time; the consumer-side Table is
// always maintained regardless of role, since any node may be shopping
// for a platoon to join.
type Layer struct {
	Table *Table
	dedup *announce.DedupCache

	platoon        *Platoon
	beaconSeq      uint32
	announceSeq    uint32
	lastBeaconTime sim.VTimeInSec
	lastAnnounceAt sim.VTimeInSec
	haveBeaconOnce bool
	haveAnnOnce    bool

	memberPlatoonID  uint32
	memberHeadID     identity.NodeID
	inPlatoon        bool
	lastBeaconSeen   sim.VTimeInSec
	haveBeaconSeen   bool
	statusSeq        uint32
	lastStatusAt     sim.VTimeInSec
	haveStatusOnce   bool
	formationTarget  geo.Vec2
	haveFormation    bool
}

// NewLayer builds a Layer D instance sized from c.Config().DedupCacheSize.
func NewLayer(c *ctxt.Context) *Layer {
	return &Layer{
		Table: NewTable(),
		dedup: announce.NewDedupCache(c.Config().DedupCacheSize),
	}
}

// IsHead reports whether this node currently leads a platoon.
func (l *Layer) IsHead() bool { return l.platoon != nil }

// IsMember reports whether this node currently follows a platoon head.
func (l *Layer) IsMember() bool { return l.inPlatoon }

// StartPlatoon makes this node the head of a brand new platoon with the
// given id and member capacity. Any member-side membership is cleared,
// since a node cannot be both head and member at once.
func (l *Layer) StartPlatoon(id uint32, selfID identity.NodeID, capacity int) {
	l.platoon = NewPlatoon(id, selfID, capacity)
	l.inPlatoon = false
	l.memberPlatoonID = 0
}

// Platoon returns the roster this node leads, if it is a head.
func (l *Layer) Platoon() *Platoon { return l.platoon }

// MemberIDs returns this node's platoon roster as ids, satisfying
// charging.PlatoonRoster; empty if this node is not a head.
func (l *Layer) MemberIDs() []identity.NodeID {
	if l.platoon == nil {
		return nil
	}
	members := l.platoon.Members()
	ids := make([]identity.NodeID, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	return ids
}

// Invite directly admits a known consumer without waiting for it to
// discover this platoon through PLATOON_ANNOUNCE or PLATOON_STATUS: it
// reserves consumer's roster slot immediately and returns the directed
// PLATOON_BEACON naming it, which the recipient's receiveBeacon joins on
// sight regardless of what it currently follows. It reports false if this
// node is not a head or the platoon has no free slot.
func (l *Layer) Invite(c *ctxt.Context, consumer identity.NodeID) (wire.Frame, bool) {
	if !l.IsHead() || !l.platoon.HasCapacity() {
		return wire.Frame{}, false
	}
	self := c.Self()

	l.platoon.AddMember(RosterMember{ID: consumer})

	l.beaconSeq++
	return wire.BuildPlatoonBeacon(wire.PlatoonBeacon{
		SeqNum:         l.beaconSeq,
		SenderID:       self.ID,
		PlatoonID:      l.platoon.ID,
		HeadID:         self.ID,
		HeadPosition:   self.Position,
		Velocity:       self.Velocity,
		AvailableSlots: l.platoon.AvailableSlots(),
		InvitedID:      consumer,
		HasInvite:      true,
	}), true
}

// FormationTarget returns the 2D target position the head last assigned
// this node within the platoon, if any, for the mobility collaborator
// to steer toward.
func (l *Layer) FormationTarget() (geo.Vec2, bool) { return l.formationTarget, l.haveFormation }

// Tick runs origination for whichever role this node currently holds
// (head or member), plus Table pruning. It returns the frames to hand
// to the PHY sink, if any.
func (l *Layer) Tick(c *ctxt.Context, now sim.VTimeInSec) []wire.Frame {
	cfg := c.Config()

	for range l.Table.Prune(now, cfg.PlatoonEntryTimeout) {
		c.Metrics().Inc("platoon_entry_pruned")
	}

	var frames []wire.Frame
	switch {
	case l.IsHead():
		frames = l.tickHead(c, now)
	case l.IsMember():
		frames = l.tickMember(c, now)
	}
	return frames
}

func (l *Layer) tickHead(c *ctxt.Context, now sim.VTimeInSec) []wire.Frame {
	cfg := c.Config()
	self := c.Self()

	for range l.platoon.PruneUnresponsive(now, float64(cfg.BeaconInterval), cfg.NMissedBeacons) {
		c.Metrics().Inc("platoon_member_lost")
	}

	if candidate, ok := l.platoon.ShouldHandoff(cfg, self.ShareableEnergy(), self.BatteryCapacityKWh); ok {
		frame := l.buildHandoffBeacon(self, candidate.ID)
		c.Metrics().Inc("platoon_handoff")
		l.platoon = nil
		return []wire.Frame{frame}
	}

	var frames []wire.Frame
	if !l.haveBeaconOnce || now-l.lastBeaconTime >= cfg.BeaconInterval {
		l.lastBeaconTime = now
		l.haveBeaconOnce = true
		frames = append(frames, l.buildBeacon(c, now))
	}
	if !l.haveAnnOnce || now-l.lastAnnounceAt >= cfg.PlatoonAnnounceInterval {
		l.lastAnnounceAt = now
		l.haveAnnOnce = true
		frames = append(frames, l.buildAnnounce(c))
	}
	return frames
}

func (l *Layer) buildBeacon(c *ctxt.Context, now sim.VTimeInSec) wire.Frame {
	cfg := c.Config()
	self := c.Self()

	members := l.platoon.Members()
	headMember := Member{ID: self.ID, Position: self.Position, BatteryPercent: self.BatteryPercent(), ShareableEnergyKWh: self.ShareableEnergy(), IsHead: true}
	formation := l.platoon.ComputeFormation(cfg, headMember, now, DefaultConstraints())

	positions := make([]wire.FormationSlot, 0, len(formation))
	for _, m := range members {
		if target, ok := formation[m.ID]; ok {
			positions = append(positions, wire.FormationSlot{NodeID: m.ID, Target: target})
		}
	}

	l.beaconSeq++
	return wire.BuildPlatoonBeacon(wire.PlatoonBeacon{
		SeqNum:             l.beaconSeq,
		SenderID:           self.ID,
		PlatoonID:          l.platoon.ID,
		HeadID:             self.ID,
		Timestamp:          float64(now),
		HeadPosition:       self.Position,
		Velocity:           self.Velocity,
		AvailableSlots:     l.platoon.AvailableSlots(),
		FormationPositions: positions,
	})
}

// buildHandoffBeacon renders the distinguished PLATOON_BEACON that
// transfers leadership: HeadID names the elected successor rather than
// the sender, which every current member interprets as a handoff.
func (l *Layer) buildHandoffBeacon(self *identity.State, newHeadID identity.NodeID) wire.Frame {
	l.beaconSeq++
	return wire.BuildPlatoonBeacon(wire.PlatoonBeacon{
		SeqNum:         l.beaconSeq,
		SenderID:       self.ID,
		PlatoonID:      l.platoon.ID,
		HeadID:         newHeadID,
		Timestamp:      0,
		HeadPosition:   self.Position,
		Velocity:       self.Velocity,
		AvailableSlots: l.platoon.AvailableSlots(),
	})
}

func (l *Layer) buildAnnounce(c *ctxt.Context) wire.Frame {
	cfg := c.Config()
	self := c.Self()
	ttl := cfg.ComputeTTL(c.Neighbors().OneHopCount())

	var surplus float64
	for _, m := range l.platoon.Members() {
		if m.ShareableEnergyKWh > 0 {
			surplus += m.ShareableEnergyKWh
		}
	}

	l.announceSeq++
	return wire.BuildPlatoonAnnounce(wire.PlatoonAnnounce{
		SeqNum:              l.announceSeq,
		SenderID:            self.ID,
		PlatoonID:           l.platoon.ID,
		HeadID:              self.ID,
		Position:            self.Position,
		AvailableSlots:      l.platoon.AvailableSlots(),
		SurplusEnergyKWh:    surplus,
		DirectionVector:     self.Direction,
		FormationEfficiency: 1.0,
		PreviousHop:         self.ID,
	}, ttl)
}

func (l *Layer) tickMember(c *ctxt.Context, now sim.VTimeInSec) []wire.Frame {
	cfg := c.Config()
	self := c.Self()

	lossTimeout := sim.VTimeInSec(float64(cfg.NMissedBeacons)) * cfg.BeaconInterval
	if l.haveBeaconSeen && now-l.lastBeaconSeen > lossTimeout {
		c.Metrics().Inc("platoon_beacon_lost")
		l.leavePlatoon()
		return nil
	}

	if !l.haveStatusOnce || now-l.lastStatusAt >= cfg.BeaconInterval {
		l.lastStatusAt = now
		l.haveStatusOnce = true
		l.statusSeq++
		return []wire.Frame{wire.BuildPlatoonStatus(wire.PlatoonStatus{
			SeqNum:         l.statusSeq,
			SenderID:       self.ID,
			PlatoonID:      l.memberPlatoonID,
			VehicleID:      self.ID,
			BatteryPercent: self.BatteryPercent(),
		})}
	}
	return nil
}

func (l *Layer) leavePlatoon() {
	l.inPlatoon = false
	l.memberPlatoonID = 0
	l.memberHeadID = 0
	l.haveBeaconSeen = false
	l.haveFormation = false
}

// Receive dispatches a decoded platoon-family frame per its MsgType.
func (l *Layer) Receive(c *ctxt.Context, f wire.Frame, now sim.VTimeInSec) []wire.Frame {
	switch f.Header.MsgType {
	case wire.MsgPlatoonBeacon:
		l.receiveBeacon(c, f, now)
		return nil
	case wire.MsgPlatoonStatus:
		l.receiveStatus(c, f, now)
		return nil
	case wire.MsgPlatoonAnnounce:
		return l.receiveAnnounce(c, f, now)
	default:
		return nil
	}
}

func (l *Layer) receiveBeacon(c *ctxt.Context, f wire.Frame, now sim.VTimeInSec) {
	b, err := wire.ParsePlatoonBeacon(f)
	if err != nil {
		c.Metrics().Inc("platoon_beacon_malformed")
		return
	}
	self := c.Self()
	if b.SenderID == self.ID {
		return
	}

	if b.HeadID == self.ID && !l.IsHead() {
		l.StartPlatoon(b.PlatoonID, self.ID, c.Config().PlatoonMaxSize)
		l.leavePlatoon()
		c.Metrics().Inc("platoon_head_elected")
		return
	}

	if l.IsHead() {
		return
	}

	if b.HasInvite && b.InvitedID == self.ID {
		c.Metrics().Inc("platoon_invite_received")
	}

	l.inPlatoon = true
	l.memberPlatoonID = b.PlatoonID
	l.memberHeadID = b.HeadID
	l.lastBeaconSeen = now
	l.haveBeaconSeen = true

	for _, slot := range b.FormationPositions {
		if slot.NodeID == self.ID {
			l.formationTarget = slot.Target
			l.haveFormation = true
			break
		}
	}
	c.Metrics().Inc("platoon_beacon_received")
}

func (l *Layer) receiveStatus(c *ctxt.Context, f wire.Frame, now sim.VTimeInSec) {
	if !l.IsHead() {
		return
	}
	s, err := wire.ParsePlatoonStatus(f)
	if err != nil {
		c.Metrics().Inc("platoon_status_malformed")
		return
	}
	if s.PlatoonID != l.platoon.ID {
		return
	}
	if _, known := l.platoon.Member(s.VehicleID); !known {
		l.platoon.AddMember(RosterMember{ID: s.VehicleID, BatteryPercent: s.BatteryPercent, LastStatusAt: now})
	}
	l.platoon.UpdateFromStatus(s.VehicleID, s.BatteryPercent, now)
	c.Metrics().Inc("platoon_status_received")
}

func (l *Layer) receiveAnnounce(c *ctxt.Context, f wire.Frame, now sim.VTimeInSec) []wire.Frame {
	a, err := wire.ParsePlatoonAnnounce(f)
	if err != nil {
		c.Metrics().Inc("platoon_announce_malformed")
		return nil
	}

	if l.dedup.Seen(f.Header.SenderID, f.Header.SeqNum) {
		c.Metrics().Inc("platoon_announce_duplicate")
		return nil
	}
	l.dedup.Mark(f.Header.SenderID, f.Header.SeqNum)

	self := c.Self()
	if l.IsHead() && a.PlatoonID == l.platoon.ID {
		return nil
	}
	if l.IsMember() && a.PlatoonID == l.memberPlatoonID {
		return nil
	}

	l.Table.Upsert(a, now)
	c.Metrics().Inc("platoon_announce_processed")

	if f.Header.TTL == 0 || !c.Neighbors().MPRActive() || a.PreviousHop == self.ID {
		return nil
	}

	fwd := a
	fwd.PreviousHop = self.ID
	fwd.SeqNum = f.Header.SeqNum
	fwd.SenderID = f.Header.SenderID
	frame := wire.BuildPlatoonAnnounce(fwd, f.Header.TTL-1)
	if frame.Header.TTL == 0 {
		return nil
	}
	c.Metrics().Inc("platoon_announce_forwarded")
	return []wire.Frame{frame}
}
