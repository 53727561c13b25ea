package neighbor

import (
	"math"
	"sort"
	"sync"

	"github.com/haidar-88/Capstone/config"
	"github.com/haidar-88/Capstone/ctxt"
	"github.com/haidar-88/Capstone/geo"
	"github.com/haidar-88/Capstone/identity"
	"github.com/haidar-88/Capstone/sim"
	"github.com/haidar-88/Capstone/wire"
)

// Table is Layer A's NeighborTable: the one-hop neighbor set, the derived
// two-hop set, and the derived MPR set. All mutation happens through
// Upsert/Prune; every other access is read-only, taking the table's shared
// lock per spec §5's locking discipline.
type Table struct {
	self identity.NodeID
	cfg  *config.MprWeights

	mu        sync.RWMutex
	neighbors map[identity.NodeID]Entry
	twoHop    map[identity.NodeID]map[identity.NodeID]struct{} // two-hop id -> covering one-hop ids
	mprSet    map[identity.NodeID]struct{}
	mprActive bool
}

// New returns an empty Table for self, ranking MPR ties with weights.
func New(self identity.NodeID, weights config.MprWeights) *Table {
	w := weights
	return &Table{
		self:      self,
		cfg:       &w,
		neighbors: make(map[identity.NodeID]Entry),
		twoHop:    make(map[identity.NodeID]map[identity.NodeID]struct{}),
		mprSet:    make(map[identity.NodeID]struct{}),
	}
}

// Upsert records a received HELLO's contents against the sender's entry,
// recomputes the two-hop set and MPR set, and updates whether this node
// is MPR-active (appears with LinkMPR set in the sender's advert of
// self), which MPRActive reports. selfVelocity is this node's own current velocity, needed to derive
// the per-link RelativeSpeed QoS input; it is never carried over the wire.
func (t *Table) Upsert(h wire.Hello, now sim.VTimeInSec, selfVelocity geo.Vec2) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, hadPrev := t.neighbors[h.SenderID]

	metrics := h.Metrics
	metrics.RelativeSpeed = selfVelocity.Sub(h.Velocity).Norm()

	var interval sim.VTimeInSec
	if hadPrev {
		interval = now - prev.LastHelloTime
		if prev.lastIntervalSec != 0 {
			metrics.JitterMs = math.Abs(float64(interval-prev.lastIntervalSec)) * 1000
		}
	}

	e := Entry{
		ID:              h.SenderID,
		LastHelloTime:   now,
		Position:        h.Position,
		Velocity:        h.Velocity,
		Advertised:      h.NeighborList,
		Metrics:         metrics,
		ProviderFlag:    h.ProviderFlag,
		ShareableKWh:    h.ShareableEnergyKWh,
		Direction:       h.Direction,
		lastIntervalSec: interval,
	}
	for _, a := range h.NeighborList {
		if a.ID == t.self && a.Status&wire.LinkMPR != 0 {
			e.SelectedUsAsMPR = true
			break
		}
	}

	t.neighbors[h.SenderID] = e
	t.recomputeLocked()
}

// Prune removes every neighbor whose last HELLO is older than timeout and
// recomputes the two-hop and MPR sets. It returns the ids removed.
func (t *Table) Prune(now sim.VTimeInSec, timeout sim.VTimeInSec) []identity.NodeID {
	t.mu.Lock()
	defer t.mu.Unlock()

	var removed []identity.NodeID
	for id, e := range t.neighbors {
		if now-e.LastHelloTime > timeout {
			delete(t.neighbors, id)
			removed = append(removed, id)
		}
	}
	if len(removed) > 0 {
		t.recomputeLocked()
	}
	return removed
}

// Get returns the entry for id, if present.
func (t *Table) Get(id identity.NodeID) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.neighbors[id]
	return e, ok
}

// OneHopIDs returns every current one-hop neighbor id.
func (t *Table) OneHopIDs() []identity.NodeID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]identity.NodeID, 0, len(t.neighbors))
	for id := range t.neighbors {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// OneHopCount returns the number of current one-hop neighbors, used by
// Layer B's DENSITY_BASED TTL computation.
func (t *Table) OneHopCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.neighbors)
}

// ProviderNeighborEntries returns the one-hop neighbors currently
// advertising themselves as provider-capable, as full Entry records.
func (t *Table) ProviderNeighborEntries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []Entry
	for _, e := range t.neighbors {
		if e.ProviderFlag {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ProviderNeighbors returns the same set as ProviderNeighborEntries, shaped
// as ctxt.ProviderNeighbor to satisfy ctxt.NeighborView without neighbor
// importing ctxt's sibling packages.
func (t *Table) ProviderNeighbors() []ctxt.ProviderNeighbor {
	entries := t.ProviderNeighborEntries()
	out := make([]ctxt.ProviderNeighbor, 0, len(entries))
	for _, e := range entries {
		out = append(out, ctxt.ProviderNeighbor{
			ID:                 e.ID,
			Position:           e.Position,
			Direction:          geo.Vec2{X: e.Direction[0], Y: e.Direction[1]},
			ShareableEnergyKWh: e.ShareableKWh,
			Willingness:        e.Metrics.Willingness,
		})
	}
	return out
}

// TwoHopIDs returns every current two-hop id (reachable through exactly one
// or more one-hop neighbors, excluding self and one-hop neighbors).
func (t *Table) TwoHopIDs() []identity.NodeID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]identity.NodeID, 0, len(t.twoHop))
	for id := range t.twoHop {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// MPRIDs returns the currently selected MPR set, sorted.
func (t *Table) MPRIDs() []identity.NodeID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]identity.NodeID, 0, len(t.mprSet))
	for id := range t.mprSet {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// IsMPR reports whether id is currently in this node's MPR set.
func (t *Table) IsMPR(id identity.NodeID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.mprSet[id]
	return ok
}

// MPRActive reports whether this node has been selected as an MPR by any
// of its one-hop neighbors (spec §4.4).
func (t *Table) MPRActive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mprActive
}

// recomputeLocked rebuilds the two-hop set, the MPR set, and the
// MPR-active flag from the current neighbor map. Caller holds t.mu.
func (t *Table) recomputeLocked() {
	t.twoHop = computeTwoHop(t.self, t.neighbors)
	t.mprSet = selectMPRs(t.neighbors, t.twoHop, *t.cfg)

	t.mprActive = false
	for _, e := range t.neighbors {
		if e.SelectedUsAsMPR {
			t.mprActive = true
			break
		}
	}
}

func computeTwoHop(self identity.NodeID, neighbors map[identity.NodeID]Entry) map[identity.NodeID]map[identity.NodeID]struct{} {
	twoHop := make(map[identity.NodeID]map[identity.NodeID]struct{})
	for oneHopID, e := range neighbors {
		for _, adv := range e.advertisedIDs() {
			if adv == self {
				continue
			}
			if _, isOneHop := neighbors[adv]; isOneHop {
				continue
			}
			if twoHop[adv] == nil {
				twoHop[adv] = make(map[identity.NodeID]struct{})
			}
			twoHop[adv][oneHopID] = struct{}{}
		}
	}
	return twoHop
}

func sortIDs(ids []identity.NodeID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
