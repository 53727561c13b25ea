package node

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/haidar-88/Capstone/charging"
	"github.com/haidar-88/Capstone/config"
	"github.com/haidar-88/Capstone/geo"
	"github.com/haidar-88/Capstone/identity"
	"github.com/haidar-88/Capstone/wire"
)

type fakeSink struct {
	sent [][]byte
}

func (s *fakeSink) Send(f []byte) { s.sent = append(s.sent, f) }

func newTestNode(id identity.NodeID) (*Node, *fakeSink) {
	self := &identity.State{
		ID:                 id,
		BatteryCapacityKWh: 50,
		BatteryEnergyKWh:   40,
		Willingness:        5,
	}
	cfg := config.Default()
	sink := &fakeSink{}
	n := New(cfg, self, charging.ProviderCapacity{AvailableSlots: 2, AvailableEnergyKWh: 20}, nil, sink)
	return n, sink
}

var _ = Describe("Node", func() {
	It("advances its clock and originates a HELLO on the first tick", func() {
		n, sink := newTestNode(1)
		Expect(n.Tick(0)).To(Succeed())
		Expect(sink.sent).NotTo(BeEmpty())

		f, err := wire.Decode(sink.sent[0], n.Context().Config())
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Header.MsgType).To(Equal(wire.HELLO))
	})

	It("refuses to run further once the clock regresses", func() {
		n, _ := newTestNode(1)
		Expect(n.Tick(5)).To(Succeed())

		err := n.Tick(1)
		Expect(err).To(HaveOccurred())

		Expect(n.Tick(6)).To(MatchError(ErrStopped))
		Expect(n.Receive([]byte{}, 6)).To(MatchError(ErrStopped))
	})

	It("drops a malformed frame instead of propagating an error", func() {
		n, _ := newTestNode(1)
		Expect(n.Receive([]byte{0x01, 0x02}, 0)).To(Succeed())
	})

	It("processes a HELLO from a neighbor and reflects it in the neighbor table", func() {
		n, _ := newTestNode(1)
		hello := wire.BuildHello(wire.Hello{SeqNum: 1, SenderID: identity.NodeID(2)})
		frame, err := wire.Encode(hello)
		Expect(err).NotTo(HaveOccurred())

		Expect(n.Receive(frame, 0)).To(Succeed())
		Expect(n.Context().Neighbors().OneHopIDs()).To(ConsistOf(identity.NodeID(2)))
	})

	It("forwards a GRID_STATUS broadcast with a decremented TTL and drops replays", func() {
		n, sink := newTestNode(3)
		report := wire.GridStatusReport{
			SeqNum:      1,
			SenderID:    identity.NodeID(9),
			HubID:       identity.NodeID(9),
			PreviousHop: identity.NodeID(9),
		}
		frame, err := wire.Encode(wire.BuildGridStatus(report, 2))
		Expect(err).NotTo(HaveOccurred())

		Expect(n.Receive(frame, 0)).To(Succeed())
		Expect(sink.sent).To(HaveLen(1))

		fwd, err := wire.Decode(sink.sent[0], n.Context().Config())
		Expect(err).NotTo(HaveOccurred())
		Expect(fwd.Header.TTL).To(Equal(uint8(1)))

		sink.sent = nil
		Expect(n.Receive(frame, 0.1)).To(Succeed())
		Expect(sink.sent).To(BeEmpty())
	})

	It("applies mobility and energy updates to self state without advancing the clock", func() {
		n, _ := newTestNode(1)
		Expect(n.ApplyMobilityAndEnergy(0, geo.Vec2{X: 10, Y: 5}, geo.Vec2{X: 1}, 999)).To(Succeed())

		self := n.Context().Self()
		Expect(self.Position).To(Equal(geo.Vec2{X: 10, Y: 5}))
		Expect(self.BatteryEnergyKWh).To(Equal(self.BatteryCapacityKWh))
	})
})
