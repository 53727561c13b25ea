package neighbor

import (
	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/haidar-88/Capstone/config"
	"github.com/haidar-88/Capstone/ctxt"
	"github.com/haidar-88/Capstone/geo"
	"github.com/haidar-88/Capstone/identity"
	"github.com/haidar-88/Capstone/wire"
)

func newTestContext(id identity.NodeID) *ctxt.Context {
	self := &identity.State{ID: id, Position: geo.Vec2{}, BatteryEnergyKWh: 50, BatteryCapacityKWh: 100, Willingness: 4}
	return ctxt.New(config.Default(), self)
}

var _ = ginkgo.Describe("Layer", func() {
	var (
		a, b *ctxt.Context
		la   *Layer
	)

	ginkgo.BeforeEach(func() {
		a = newTestContext(identity.NodeID(1))
		b = newTestContext(identity.NodeID(2))
		la = NewLayer(a)
	})

	ginkgo.It("emits a HELLO on the first tick", func() {
		frames := la.Tick(a, 0)
		Expect(frames).To(HaveLen(1))
		Expect(frames[0].Header.MsgType).To(Equal(wire.HELLO))
	})

	ginkgo.It("does not re-emit before HELLO_INTERVAL elapses", func() {
		la.Tick(a, 0)
		frames := la.Tick(a, 0.5)
		Expect(frames).To(BeEmpty())
	})

	ginkgo.It("re-emits once HELLO_INTERVAL elapses", func() {
		la.Tick(a, 0)
		frames := la.Tick(a, 1.0)
		Expect(frames).To(HaveLen(1))
	})

	ginkgo.Describe("two-node HELLO exchange (spec scenario 1)", func() {
		ginkgo.It("adds the peer to NeighborTable after exchanging HELLOs", func() {
			lb := NewLayer(b)

			fa := la.Tick(a, 0)
			fb := lb.Tick(b, 0)

			_, ok := la.Receive(a, fb[0], 0)
			Expect(ok).To(BeTrue())
			_, ok = lb.Receive(b, fa[0], 0)
			Expect(ok).To(BeTrue())

			la.Tick(a, 1.0)
			lb.Tick(b, 1.0)

			entry, ok := la.Table.Get(identity.NodeID(2))
			Expect(ok).To(BeTrue())
			Expect(entry.LastHelloTime).To(BeNumerically("==", 0))
		})

		ginkgo.It("prunes a silent neighbor after NEIGHBOR_TIMEOUT", func() {
			lb := NewLayer(b)
			fb := lb.Tick(b, 0)
			_, ok := la.Receive(a, fb[0], 1.0)
			Expect(ok).To(BeTrue())

			_, ok = la.Table.Get(identity.NodeID(2))
			Expect(ok).To(BeTrue())

			la.Tick(a, 7.0)

			_, ok = la.Table.Get(identity.NodeID(2))
			Expect(ok).To(BeFalse())
		})
	})

	ginkgo.It("drops a malformed HELLO without erroring", func() {
		bad := wire.Frame{
			Header: wire.Header{MsgType: wire.HELLO, SenderID: identity.NodeID(2)},
			TLVs:   []wire.TLV{{Type: wire.TLVMetrics, Value: []byte{1, 2, 3}}},
		}
		_, ok := la.Receive(a, bad, 0)
		Expect(ok).To(BeFalse())
		_, ok = la.Table.Get(identity.NodeID(2))
		Expect(ok).To(BeFalse())
	})
})
