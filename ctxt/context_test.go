package ctxt

import (
	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/haidar-88/Capstone/config"
	"github.com/haidar-88/Capstone/identity"
	"github.com/haidar-88/Capstone/sim"
)

var _ = ginkgo.Describe("Context", func() {
	var c *Context

	ginkgo.BeforeEach(func() {
		c = New(config.Default(), &identity.State{ID: identity.NodeID(1)})
	})

	ginkgo.It("starts at simulation time zero", func() {
		Expect(c.CurrentTime()).To(Equal(sim0))
	})

	ginkgo.It("advances monotonically", func() {
		Expect(c.UpdateTime(1.0)).To(Succeed())
		Expect(c.UpdateTime(2.5)).To(Succeed())
		Expect(c.CurrentTime()).To(BeNumerically("==", 2.5))
	})

	ginkgo.It("rejects a time regression", func() {
		Expect(c.UpdateTime(5.0)).To(Succeed())
		err := c.UpdateTime(4.0)
		Expect(err).To(MatchError(ErrTimeRegression))
		Expect(c.CurrentTime()).To(BeNumerically("==", 5.0))
	})

	ginkgo.It("exposes the local node state", func() {
		Expect(c.Self().ID).To(Equal(identity.NodeID(1)))
	})

	ginkgo.It("defaults to a no-op metrics sink that never panics", func() {
		Expect(func() { c.Metrics().Inc("frame_dropped") }).NotTo(Panic())
	})
})

const sim0 sim.VTimeInSec = 0.0
