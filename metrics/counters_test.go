package metrics

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/haidar-88/Capstone/sim"
)

type recordingHook struct {
	items []interface{}
}

func (h *recordingHook) Func(ctx sim.HookCtx) {
	h.items = append(h.items, ctx.Item)
}

var _ = Describe("Counters", func() {
	It("starts every counter at zero", func() {
		c := New()
		Expect(c.Value("frame_dropped")).To(Equal(int64(0)))
	})

	It("increments by one per Inc call", func() {
		c := New()
		c.Inc("frame_dropped")
		c.Inc("frame_dropped")
		c.Inc("ack_timeout")
		Expect(c.Value("frame_dropped")).To(Equal(int64(2)))
		Expect(c.Value("ack_timeout")).To(Equal(int64(1)))
	})

	It("notifies hooks with the counter name", func() {
		c := New()
		h := &recordingHook{}
		c.AcceptHook(h)
		c.Inc("mpr_recomputed")
		Expect(h.items).To(ConsistOf("mpr_recomputed"))
	})

	It("reports sorted counter names", func() {
		c := New()
		c.Inc("zeta")
		c.Inc("alpha")
		Expect(c.Names()).To(Equal([]string{"alpha", "zeta"}))
	})
})
