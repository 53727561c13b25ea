package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordingHook struct {
	seen []HookCtx
}

func (h *recordingHook) Func(ctx HookCtx) {
	h.seen = append(h.seen, ctx)
}

var _ = Describe("HookableBase", func() {
	It("invokes every registered hook in order", func() {
		base := NewHookableBase()
		a := &recordingHook{}
		b := &recordingHook{}
		base.AcceptHook(a)
		base.AcceptHook(b)

		Expect(base.NumHooks()).To(Equal(2))

		pos := &HookPos{Name: "Test"}
		base.InvokeHook(HookCtx{Pos: pos, Item: "payload"})

		Expect(a.seen).To(HaveLen(1))
		Expect(b.seen).To(HaveLen(1))
		Expect(a.seen[0].Item).To(Equal("payload"))
	})

	It("reports zero hooks when none are registered", func() {
		base := NewHookableBase()
		Expect(base.NumHooks()).To(Equal(0))
	})
})
