package tracing

import (
	"fmt"
	"sync/atomic"

	"github.com/haidar-88/Capstone/metrics"
	"github.com/haidar-88/Capstone/node"
	"github.com/haidar-88/Capstone/sim"
)

// NodeFrameHook adapts a Node's wire-level hook events into the Task
// records a Tracer consumes. A frame send or receive is traced as an
// atomic (zero-duration) task, since a broadcast frame has no round trip to
// pair a start against an end the way a request/response message would; a
// time regression is traced the same way, with the error text as What.
// Attach it directly with node.Node.AcceptHook so the core stays unaware
// tracing exists.
type NodeFrameHook struct {
	NodeName string
	Tracer   Tracer

	seq uint64
}

// NewNodeFrameHook returns a NodeFrameHook forwarding to tracer, labeling
// every task's Where field with nodeName.
func NewNodeFrameHook(nodeName string, tracer Tracer) *NodeFrameHook {
	return &NodeFrameHook{NodeName: nodeName, Tracer: tracer}
}

func (h *NodeFrameHook) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case node.HookPosFrameSent:
		h.traceAtomic("frame_sent", fmt.Sprint(ctx.Item))
	case node.HookPosFrameReceived:
		h.traceAtomic("frame_received", fmt.Sprint(ctx.Item))
	case node.HookPosTimeRegressed:
		h.traceAtomic("time_regressed", fmt.Sprint(ctx.Item))
	}
}

func (h *NodeFrameHook) traceAtomic(kind, what string) {
	id := fmt.Sprintf("%s-%s-%d", h.NodeName, kind, atomic.AddUint64(&h.seq, 1))
	h.Tracer.StartTask(Task{ID: id, Kind: kind, What: what, Where: h.NodeName})
	h.Tracer.EndTask(Task{ID: id})
}

// CounterHook adapts a metrics.Counters sink's increments into StepTask
// events on an in-flight task named after the domain, letting a Tracer
// observe counter activity (frame_malformed, grid_status_duplicate, ...)
// alongside frame-level tasks without the metrics package importing
// tracing.
type CounterHook struct {
	DomainName string
	Tracer     Tracer

	taskID string
}

// NewCounterHook returns a CounterHook forwarding to tracer, opening one
// long-lived task per domain that every counter increment is stepped
// against.
func NewCounterHook(domainName string, tracer Tracer) *CounterHook {
	h := &CounterHook{DomainName: domainName, Tracer: tracer, taskID: domainName + "-counters"}
	tracer.StartTask(Task{ID: h.taskID, Kind: "counters", What: "counters", Where: domainName})
	return h
}

func (h *CounterHook) Func(ctx sim.HookCtx) {
	if ctx.Pos != metrics.HookPosCounterIncremented {
		return
	}

	name, _ := ctx.Item.(string)
	total, _ := ctx.Detail.(int64)
	h.Tracer.StepTask(Task{
		ID:    h.taskID,
		Steps: []TaskStep{{What: fmt.Sprintf("%s=%d", name, total)}},
	})
}
