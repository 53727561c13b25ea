package platoon

import (
	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/haidar-88/Capstone/config"
	"github.com/haidar-88/Capstone/ctxt"
	"github.com/haidar-88/Capstone/geo"
	"github.com/haidar-88/Capstone/identity"
	"github.com/haidar-88/Capstone/sim"
	"github.com/haidar-88/Capstone/wire"
)

type fakeNeighbors struct {
	oneHopCount int
	mprActive   bool
}

func (f fakeNeighbors) OneHopIDs() []identity.NodeID              { return nil }
func (f fakeNeighbors) OneHopCount() int                          { return f.oneHopCount }
func (f fakeNeighbors) MPRIDs() []identity.NodeID                 { return nil }
func (f fakeNeighbors) MPRActive() bool                           { return f.mprActive }
func (f fakeNeighbors) ProviderNeighbors() []ctxt.ProviderNeighbor { return nil }

func newTestContext(id identity.NodeID, mprActive bool) *ctxt.Context {
	self := &identity.State{ID: id, BatteryCapacityKWh: 50, BatteryEnergyKWh: 45, ShareableEnergyKWh: 10}
	c := ctxt.New(config.Default(), self)
	c.SetNeighbors(fakeNeighbors{mprActive: mprActive, oneHopCount: 2})
	return c
}

var _ = ginkgo.Describe("Layer", func() {
	ginkgo.It("does nothing when the node is neither head nor member", func() {
		c := newTestContext(identity.NodeID(1), true)
		l := NewLayer(c)
		Expect(l.Tick(c, 0)).To(BeEmpty())
	})

	ginkgo.Describe("head-side origination", func() {
		ginkgo.It("emits a PLATOON_BEACON and PLATOON_ANNOUNCE on their intervals", func() {
			c := newTestContext(identity.NodeID(1), true)
			l := NewLayer(c)
			l.StartPlatoon(42, identity.NodeID(1), 4)
			l.Platoon().AddMember(RosterMember{ID: identity.NodeID(2), BatteryPercent: 0.8})

			frames := l.Tick(c, 0)
			Expect(frames).To(HaveLen(2))

			kinds := []wire.MsgType{frames[0].Header.MsgType, frames[1].Header.MsgType}
			Expect(kinds).To(ConsistOf(wire.MsgPlatoonBeacon, wire.MsgPlatoonAnnounce))
		})

		ginkgo.It("does not re-originate before the interval elapses", func() {
			c := newTestContext(identity.NodeID(1), true)
			l := NewLayer(c)
			l.StartPlatoon(42, identity.NodeID(1), 4)

			l.Tick(c, 0)
			Expect(l.Tick(c, 0.5)).To(BeEmpty())
		})

		ginkgo.It("hands off leadership once its own share drops and a member offers far more", func() {
			c := newTestContext(identity.NodeID(1), true)
			c.Self().ShareableEnergyKWh = 1
			cfg := c.Config()
			cfg.PHEnergyThresholdPercent = 0.6

			l := NewLayer(c)
			l.StartPlatoon(42, identity.NodeID(1), 4)
			l.Platoon().AddMember(RosterMember{ID: identity.NodeID(2), ShareableEnergyKWh: 30})

			frames := l.Tick(c, 0)
			Expect(frames).To(HaveLen(1))
			Expect(frames[0].Header.MsgType).To(Equal(wire.MsgPlatoonBeacon))

			beacon, err := wire.ParsePlatoonBeacon(frames[0])
			Expect(err).NotTo(HaveOccurred())
			Expect(beacon.HeadID).To(Equal(identity.NodeID(2)))
			Expect(l.IsHead()).To(BeFalse())
		})
	})

	ginkgo.Describe("member-side beaconing and loss detection", func() {
		ginkgo.It("tracks the head and assigned formation target from a received beacon", func() {
			c := newTestContext(identity.NodeID(2), true)
			l := NewLayer(c)

			beacon := wire.BuildPlatoonBeacon(wire.PlatoonBeacon{
				SenderID:  identity.NodeID(1),
				PlatoonID: 42,
				HeadID:    identity.NodeID(1),
				FormationPositions: []wire.FormationSlot{
					{NodeID: identity.NodeID(2), Target: geo.Vec2{X: 1, Y: 2}},
				},
			})

			Expect(l.Receive(c, beacon, 0)).To(BeEmpty())
			Expect(l.IsMember()).To(BeTrue())

			target, ok := l.FormationTarget()
			Expect(ok).To(BeTrue())
			Expect(target).To(Equal(geo.Vec2{X: 1, Y: 2}))
		})

		ginkgo.It("becomes the new head when elected via a handoff beacon", func() {
			c := newTestContext(identity.NodeID(2), true)
			l := NewLayer(c)

			handoff := wire.BuildPlatoonBeacon(wire.PlatoonBeacon{
				SenderID:  identity.NodeID(1),
				PlatoonID: 42,
				HeadID:    identity.NodeID(2),
			})

			l.Receive(c, handoff, 0)
			Expect(l.IsHead()).To(BeTrue())
			Expect(l.Platoon().ID).To(Equal(uint32(42)))
		})

		ginkgo.It("leaves the platoon after missing N_MISSED_BEACONS intervals", func() {
			c := newTestContext(identity.NodeID(2), true)
			l := NewLayer(c)

			beacon := wire.BuildPlatoonBeacon(wire.PlatoonBeacon{SenderID: identity.NodeID(1), PlatoonID: 42, HeadID: identity.NodeID(1)})
			l.Receive(c, beacon, 0)
			Expect(l.IsMember()).To(BeTrue())

			cfg := c.Config()
			lossDeadline := sim.VTimeInSec(float64(cfg.NMissedBeacons) * float64(cfg.BeaconInterval))

			l.Tick(c, lossDeadline-0.1)
			Expect(l.IsMember()).To(BeTrue())

			l.Tick(c, lossDeadline+0.1)
			Expect(l.IsMember()).To(BeFalse())
		})
	})

	ginkgo.Describe("direct invitation", func() {
		ginkgo.It("reserves the invitee's roster slot and names it on the beacon", func() {
			c := newTestContext(identity.NodeID(1), true)
			l := NewLayer(c)
			l.StartPlatoon(7, identity.NodeID(1), 4)

			frame, ok := l.Invite(c, identity.NodeID(9))
			Expect(ok).To(BeTrue())
			Expect(l.MemberIDs()).To(ContainElement(identity.NodeID(9)))

			beacon, err := wire.ParsePlatoonBeacon(frame)
			Expect(err).NotTo(HaveOccurred())
			Expect(beacon.HasInvite).To(BeTrue())
			Expect(beacon.InvitedID).To(Equal(identity.NodeID(9)))
		})

		ginkgo.It("refuses to invite when not a head", func() {
			c := newTestContext(identity.NodeID(1), true)
			l := NewLayer(c)

			_, ok := l.Invite(c, identity.NodeID(9))
			Expect(ok).To(BeFalse())
		})

		ginkgo.It("refuses to invite once the platoon is full", func() {
			c := newTestContext(identity.NodeID(1), true)
			l := NewLayer(c)
			l.StartPlatoon(7, identity.NodeID(1), 1)
			l.Platoon().AddMember(RosterMember{ID: identity.NodeID(2)})

			_, ok := l.Invite(c, identity.NodeID(9))
			Expect(ok).To(BeFalse())
		})
	})

	ginkgo.Describe("PLATOON_ANNOUNCE discovery and forwarding", func() {
		ginkgo.It("records a discovered platoon and forwards it once, dropping replays", func() {
			c := newTestContext(identity.NodeID(3), true)
			l := NewLayer(c)

			announce := wire.BuildPlatoonAnnounce(wire.PlatoonAnnounce{
				SeqNum:      1,
				SenderID:    identity.NodeID(1),
				PlatoonID:   99,
				HeadID:      identity.NodeID(1),
				PreviousHop: identity.NodeID(1),
			}, 3)

			fwd := l.Receive(c, announce, 0)
			Expect(fwd).To(HaveLen(1))
			Expect(fwd[0].Header.TTL).To(Equal(uint8(2)))
			Expect(l.Table.PlatoonIDs()).To(ConsistOf(uint32(99)))

			Expect(l.Receive(c, announce, 0.1)).To(BeEmpty())
		})

		ginkgo.It("does not record or forward an announce for its own platoon", func() {
			c := newTestContext(identity.NodeID(1), true)
			l := NewLayer(c)
			l.StartPlatoon(99, identity.NodeID(1), 4)

			announce := wire.BuildPlatoonAnnounce(wire.PlatoonAnnounce{
				SeqNum:      1,
				SenderID:    identity.NodeID(1),
				PlatoonID:   99,
				HeadID:      identity.NodeID(1),
				PreviousHop: identity.NodeID(1),
			}, 3)

			Expect(l.Receive(c, announce, 0)).To(BeEmpty())
			Expect(l.Table.PlatoonIDs()).To(BeEmpty())
		})
	})
})
