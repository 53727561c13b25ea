// Package transport provides the in-memory lossy broadcast medium used to
// drive an end-to-end multi-node scenario in cmd/mvccpctl. It is
// deliberately outside the protocol core: nothing in package wire, ctxt,
// node, or any Layer package imports it.
//
// The event queue is grounded on the teacher's own sim.EventQueueImpl: a
// container/heap ordered by delivery time, popped one event at a time by
// AdvanceTo on a single goroutine.
package transport

import (
	"container/heap"
	"math/rand"
	"sort"
	"sync"

	"github.com/haidar-88/Capstone/geo"
	"github.com/haidar-88/Capstone/identity"
	"github.com/haidar-88/Capstone/sim"
)

// PositionSource is the subset of node.Node a Medium needs to place a
// vehicle in space for range and propagation-delay computation, without
// importing package node (which itself may want to import transport in
// cmd/mvccpctl wiring — keeping the dependency one-directional).
type PositionSource interface {
	Position() geo.Vec2
}

// Receiver is the subset of node.Node a Medium delivers frames into.
type Receiver interface {
	Receive(frame []byte, eventTime sim.VTimeInSec) error
}

// Params bounds the medium's physical model: a flat-disc range cutoff, a
// per-delivery loss probability applied independently to each receiver
// (mirroring a real broadcast medium, where one neighbor's fade doesn't
// imply another's), and the propagation speed used to turn distance into
// delay. None of this is in original_source, which broadcasts synchronously
// to every registered vehicle with no loss or delay (network/network.py);
// it is added here because driving a believable multi-hop scenario needs a
// medium that can actually drop and delay frames.
type Params struct {
	RangeM          float64
	LossProbability float64
	PropagationMPerSec float64
	MinDelaySec     sim.VTimeInSec
}

// DefaultParams returns a reasonable V2V physical-layer stand-in: 300m
// range, 5% independent per-receiver loss, and propagation at a fraction of
// light speed dominated by MAC/processing delay rather than true radio
// propagation.
func DefaultParams() Params {
	return Params{
		RangeM:             300.0,
		LossProbability:    0.05,
		PropagationMPerSec: 3.0e6,
		MinDelaySec:        0.001,
	}
}

type registrant struct {
	id  identity.NodeID
	pos PositionSource
	rx  Receiver
}

type deliveryEvent struct {
	time sim.VTimeInSec
	to   identity.NodeID
	data []byte
}

type deliveryHeap []deliveryEvent

func (h deliveryHeap) Len() int            { return len(h) }
func (h deliveryHeap) Less(i, j int) bool  { return h[i].time < h[j].time }
func (h deliveryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *deliveryHeap) Push(x interface{}) { *h = append(*h, x.(deliveryEvent)) }
func (h *deliveryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Medium is a broadcast domain: every registered node hears every frame any
// other registered node sends, subject to range, delay, and independent
// per-receiver loss. It is not safe for concurrent Send calls interleaved
// with AdvanceTo; cmd/mvccpctl and this package's tests drive it from a
// single goroutine.
type Medium struct {
	params Params
	rng    *rand.Rand

	mu     sync.Mutex
	nodes  map[identity.NodeID]registrant
	queue  deliveryHeap
	now    sim.VTimeInSec
}

// NewMedium returns a Medium under params, seeded for reproducible loss and
// propagation-delay decisions across runs.
func NewMedium(params Params, seed int64) *Medium {
	m := &Medium{
		params: params,
		rng:    rand.New(rand.NewSource(seed)),
		nodes:  make(map[identity.NodeID]registrant),
	}
	heap.Init(&m.queue)
	return m
}

// Register adds a node to the medium's broadcast domain. pos supplies the
// node's current position for every future range check; rx is where
// delivered frames land.
func (m *Medium) Register(id identity.NodeID, pos PositionSource, rx Receiver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[id] = registrant{id: id, pos: pos, rx: rx}
}

// Unregister removes a node from the broadcast domain, e.g. once it leaves
// the simulated area.
func (m *Medium) Unregister(id identity.NodeID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.nodes, id)
}

// Sink returns a PhySink-shaped handle bound to sender: every frame Send
// gets called with is scheduled for one-hop delivery to every other
// currently-registered node within range.
func (m *Medium) Sink(sender identity.NodeID) *nodeSink {
	return &nodeSink{medium: m, sender: sender}
}

type nodeSink struct {
	medium *Medium
	sender identity.NodeID
}

func (s *nodeSink) Send(frame []byte) { s.medium.send(s.sender, frame) }

func (m *Medium) send(sender identity.NodeID, frame []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	from, ok := m.nodes[sender]
	if !ok {
		return
	}
	fromPos := from.pos.Position()

	for id, r := range m.nodes {
		if id == sender {
			continue
		}
		d := fromPos.Dist(r.pos.Position())
		if d > m.params.RangeM {
			continue
		}
		if m.rng.Float64() < m.params.LossProbability {
			continue
		}

		delay := sim.VTimeInSec(d / m.params.PropagationMPerSec)
		if delay < m.params.MinDelaySec {
			delay = m.params.MinDelaySec
		}
		heap.Push(&m.queue, deliveryEvent{time: m.now + delay, to: id, data: frame})
	}
}

// AdvanceTo delivers every pending event scheduled at or before t, in
// nondecreasing time order, and moves the medium's clock to t. Events
// delivered to a node whose Receive returns an error (a fatal time
// regression at that node) are simply dropped for that node; the medium
// itself keeps running for every other node.
func (m *Medium) AdvanceTo(t sim.VTimeInSec) {
	for {
		m.mu.Lock()
		if m.queue.Len() == 0 || m.queue[0].time > t {
			m.now = t
			m.mu.Unlock()
			return
		}
		evt := heap.Pop(&m.queue).(deliveryEvent)
		r, ok := m.nodes[evt.to]
		m.mu.Unlock()

		if !ok {
			continue
		}
		_ = r.rx.Receive(evt.data, evt.time)
	}
}

// PendingCount returns the number of deliveries not yet processed, mostly
// useful for tests asserting a scenario has quiesced.
func (m *Medium) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Len()
}

// NodeIDs returns every currently registered node id, sorted, for use by a
// CLI driver iterating the fleet each tick.
func (m *Medium) NodeIDs() []identity.NodeID {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]identity.NodeID, 0, len(m.nodes))
	for id := range m.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// LineOfSightRange reports whether two positions are within RangeM of each
// other, exposed for scenario setup code that wants to sanity-check
// placement before registering nodes.
func (m *Medium) LineOfSightRange(a, b geo.Vec2) bool {
	return a.Dist(b) <= m.params.RangeM
}
