package announce

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/haidar-88/Capstone/config"
	"github.com/haidar-88/Capstone/ctxt"
	"github.com/haidar-88/Capstone/geo"
	"github.com/haidar-88/Capstone/identity"
	"github.com/haidar-88/Capstone/wire"
)

type fakeNeighbors struct {
	oneHopCount int
	mprActive   bool
	providers   []ctxt.ProviderNeighbor
}

func (f fakeNeighbors) OneHopIDs() []identity.NodeID              { return nil }
func (f fakeNeighbors) OneHopCount() int                          { return f.oneHopCount }
func (f fakeNeighbors) MPRIDs() []identity.NodeID                 { return nil }
func (f fakeNeighbors) MPRActive() bool                           { return f.mprActive }
func (f fakeNeighbors) ProviderNeighbors() []ctxt.ProviderNeighbor { return f.providers }

func newTestContext(id identity.NodeID, providerCapable bool, mprActive bool) *ctxt.Context {
	self := &identity.State{ID: id, ProviderCapable: providerCapable, ShareableEnergyKWh: 10}
	c := ctxt.New(config.Default(), self)
	c.SetNeighbors(fakeNeighbors{mprActive: mprActive, oneHopCount: 1})
	return c
}

var _ = Describe("Layer", func() {
	It("does not originate a PA when not MPR-active", func() {
		c := newTestContext(identity.NodeID(1), true, false)
		l := NewLayer(c)
		Expect(l.Tick(c, 0)).To(BeEmpty())
	})

	It("originates a PA for itself when MPR-active and provider-capable", func() {
		c := newTestContext(identity.NodeID(1), true, true)
		l := NewLayer(c)
		frames := l.Tick(c, 0)
		Expect(frames).To(HaveLen(1))
		Expect(frames[0].Header.MsgType).To(Equal(wire.PA))
	})

	It("does not re-originate before PA_INTERVAL elapses", func() {
		c := newTestContext(identity.NodeID(1), true, true)
		l := NewLayer(c)
		l.Tick(c, 0)
		Expect(l.Tick(c, 1.0)).To(BeEmpty())
	})

	Describe("PA forwarding with dedup (spec scenario 3)", func() {
		It("forwards a fresh PA once and drops the replay", func() {
			c := newTestContext(identity.NodeID(2), false, true)
			l := NewLayer(c)

			pa := wire.BuildPA(wire.ProviderAnnouncement{
				SeqNum:      7,
				SenderID:    identity.NodeID(1),
				ProviderID:  identity.NodeID(1),
				Position:    geo.Vec2{X: 0, Y: 0},
				PreviousHop: identity.NodeID(1),
			}, 4)

			fwd := l.Receive(c, pa, 0)
			Expect(fwd).To(HaveLen(1))
			Expect(fwd[0].Header.TTL).To(Equal(uint8(3)))

			replay := l.Receive(c, pa, 0.1)
			Expect(replay).To(BeEmpty())
		})

		It("does not forward once ttl would reach zero", func() {
			c := newTestContext(identity.NodeID(4), false, true)
			l := NewLayer(c)

			pa := wire.BuildPA(wire.ProviderAnnouncement{
				SeqNum:      1,
				SenderID:    identity.NodeID(1),
				ProviderID:  identity.NodeID(1),
				PreviousHop: identity.NodeID(3),
			}, 1)

			Expect(l.Receive(c, pa, 0)).To(BeEmpty())
		})

		It("does not forward a PA that arrived from itself as previous hop", func() {
			c := newTestContext(identity.NodeID(1), false, true)
			l := NewLayer(c)

			pa := wire.BuildPA(wire.ProviderAnnouncement{
				SeqNum:      1,
				SenderID:    identity.NodeID(9),
				ProviderID:  identity.NodeID(9),
				PreviousHop: identity.NodeID(1),
			}, 4)

			Expect(l.Receive(c, pa, 0)).To(BeEmpty())
		})
	})
})
