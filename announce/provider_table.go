package announce

import (
	"sort"
	"sync"

	"github.com/haidar-88/Capstone/ctxt"
	"github.com/haidar-88/Capstone/geo"
	"github.com/haidar-88/Capstone/identity"
	"github.com/haidar-88/Capstone/sim"
	"github.com/haidar-88/Capstone/wire"
)

// ProviderEntry is one ProviderTable row: everything known about a
// provider from its most recently received PA.
type ProviderEntry struct {
	ID                 identity.NodeID
	Type               wire.ProviderKind
	Position           geo.Vec2
	Destination        geo.Vec2
	HasDestination     bool
	Direction          geo.Vec2
	PlatoonSize        uint16
	ShareableEnergyKWh float64
	RenewableFraction  float64
	HasRenewable       bool
	LastSeen           sim.VTimeInSec
}

// ProviderTable is Layer B's ProviderTable: providers learned from PAs
// (multi-hop) and from one-hop HELLO adverts, pruned after PROVIDER_TIMEOUT.
type ProviderTable struct {
	mu      sync.RWMutex
	entries map[identity.NodeID]ProviderEntry
}

// NewProviderTable returns an empty ProviderTable.
func NewProviderTable() *ProviderTable {
	return &ProviderTable{entries: make(map[identity.NodeID]ProviderEntry)}
}

// Upsert records pa's contents against its provider_id, refreshing
// LastSeen to now.
func (t *ProviderTable) Upsert(pa wire.ProviderAnnouncement, now sim.VTimeInSec) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[pa.ProviderID] = ProviderEntry{
		ID:                 pa.ProviderID,
		Type:               pa.ProviderType,
		Position:           pa.Position,
		Destination:        pa.Destination,
		HasDestination:     pa.HasDestination,
		Direction:          pa.Direction,
		PlatoonSize:        pa.PlatoonSize,
		ShareableEnergyKWh: pa.EnergyAvailableKWh,
		RenewableFraction:  pa.RenewableFraction,
		HasRenewable:       pa.HasRenewable,
		LastSeen:           now,
	}
}

// UpsertFromHello records a one-hop neighbor's HELLO-advertised provider
// capability, the other way providers enter a PA before any PA has been
// originated for them.
func (t *ProviderTable) UpsertFromHello(id identity.NodeID, h wire.Hello, pos geo.Vec2, now sim.VTimeInSec) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[id] = ProviderEntry{
		ID:                 id,
		Type:               wire.ProviderMobile,
		Position:           pos,
		Direction:          geo.Vec2{X: h.Direction[0], Y: h.Direction[1]},
		ShareableEnergyKWh: h.ShareableEnergyKWh,
		LastSeen:           now,
	}
}

// Remove deletes id from the table, used when a consumer's offer to a
// stale provider times out (ErrAcceptTimeout).
func (t *ProviderTable) Remove(id identity.NodeID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, id)
}

// RemoveStale deletes id from the table. It is the same operation as
// Remove, exposed under the name ctxt.ProviderView's consumer-facing
// mutation seam uses.
func (t *ProviderTable) RemoveStale(id identity.NodeID) { t.Remove(id) }

// Get returns the entry for id, if present.
func (t *ProviderTable) Get(id identity.NodeID) (ProviderEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[id]
	return e, ok
}

// Lookup adapts Get to ctxt.ProviderView's pared-down ProviderInfo, so
// Layer C's ranking can read position/direction/energy without importing
// package announce.
func (t *ProviderTable) Lookup(id identity.NodeID) (ctxt.ProviderInfo, bool) {
	e, ok := t.Get(id)
	if !ok {
		return ctxt.ProviderInfo{}, false
	}
	return ctxt.ProviderInfo{
		Position:           e.Position,
		Direction:          e.Direction,
		ShareableEnergyKWh: e.ShareableEnergyKWh,
		RenewableFraction:  e.RenewableFraction,
		HasRenewable:       e.HasRenewable,
	}, true
}

// All returns every current entry, sorted by provider id.
func (t *ProviderTable) All() []ProviderEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]ProviderEntry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ProviderIDs returns every current provider id, sorted. Satisfies
// ctxt.ProviderView.
func (t *ProviderTable) ProviderIDs() []identity.NodeID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]identity.NodeID, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Prune removes every entry whose LastSeen is older than timeout, and
// returns the ids removed.
func (t *ProviderTable) Prune(now sim.VTimeInSec, timeout sim.VTimeInSec) []identity.NodeID {
	t.mu.Lock()
	defer t.mu.Unlock()
	var removed []identity.NodeID
	for id, e := range t.entries {
		if now-e.LastSeen > timeout {
			delete(t.entries, id)
			removed = append(removed, id)
		}
	}
	return removed
}
