package platoon

import (
	"sort"
	"sync"

	"github.com/haidar-88/Capstone/config"
	"github.com/haidar-88/Capstone/geo"
	"github.com/haidar-88/Capstone/identity"
	"github.com/haidar-88/Capstone/sim"
	"github.com/haidar-88/Capstone/wire"
)

// Entry is one PlatoonTable row: everything a consumer knows about a
// discovered platoon from its most recently received PLATOON_ANNOUNCE.
type Entry struct {
	PlatoonID           uint32
	HeadID              identity.NodeID
	Position            geo.Vec2
	Direction           geo.Vec2
	Destination         geo.Vec2
	HasDestination      bool
	SurplusEnergyKWh    float64
	AvailableSlots      uint16
	FormationEfficiency float64
	LastSeen            sim.VTimeInSec

	// Score is filled in on the entry FindBest returns, kept for callers
	// that want to inspect it afterward. The Score function and the
	// table's stored entries leave it unset.
	Score float64
}

// HasCapacity reports whether the platoon has an open slot.
func (e Entry) HasCapacity() bool { return e.AvailableSlots > 0 }

// Table is the consumer-side registry of known platoons, populated from
// received PLATOON_ANNOUNCE frames and used to rank candidates for
// inter-platoon discovery.
type Table struct {
	mu      sync.RWMutex
	entries map[uint32]Entry
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{entries: make(map[uint32]Entry)}
}

// Upsert records pa's contents against its platoon_id, refreshing
// LastSeen to now.
func (t *Table) Upsert(pa wire.PlatoonAnnounce, now sim.VTimeInSec) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[pa.PlatoonID] = Entry{
		PlatoonID:           pa.PlatoonID,
		HeadID:              pa.HeadID,
		Position:            pa.Position,
		Direction:           pa.DirectionVector,
		Destination:         pa.Destination,
		HasDestination:      pa.HasDestination,
		SurplusEnergyKWh:    pa.SurplusEnergyKWh,
		AvailableSlots:      pa.AvailableSlots,
		FormationEfficiency: pa.FormationEfficiency,
		LastSeen:            now,
	}
}

// Remove deletes platoonID from the table.
func (t *Table) Remove(platoonID uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, platoonID)
}

// RemoveStale is Remove, exposed under the name ctxt.PlatoonView's
// consumer-facing mutation seam would use if it grows one.
func (t *Table) RemoveStale(platoonID uint32) { t.Remove(platoonID) }

// Get returns the entry for platoonID, if present.
func (t *Table) Get(platoonID uint32) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[platoonID]
	return e, ok
}

// All returns every current entry, sorted by platoon id.
func (t *Table) All() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlatoonID < out[j].PlatoonID })
	return out
}

// PlatoonIDs returns every current platoon id, sorted. Satisfies
// ctxt.PlatoonView.
func (t *Table) PlatoonIDs() []uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]uint32, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Prune removes every entry whose LastSeen is older than timeout, and
// returns the ids removed.
func (t *Table) Prune(now sim.VTimeInSec, timeout sim.VTimeInSec) []uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var removed []uint32
	for id, e := range t.entries {
		if now-e.LastSeen > timeout {
			delete(t.entries, id)
			removed = append(removed, id)
		}
	}
	return removed
}

// Score computes how well entry matches a consumer at position, heading
// direction, and needing energyNeededKWh, per spec §4.6's weighted sum
// of direction/distance/energy match plus a formation-efficiency bonus,
// scaled to a tenth if the platoon has no open slot.
func Score(cfg *config.ProtocolConfig, entry Entry, position, direction geo.Vec2, energyNeededKWh float64) float64 {
	directionScore := (direction.Dot(entry.Direction) + 1.0) / 2.0

	distance := position.Dist(entry.Position)
	distanceScore := 1.0 / (1.0 + distance/10.0)

	var energyScore float64
	if energyNeededKWh > 1e-9 {
		energyScore = entry.SurplusEnergyKWh / energyNeededKWh
		if energyScore > 1.0 {
			energyScore = 1.0
		}
	} else if entry.SurplusEnergyKWh > 0 {
		energyScore = 1.0
	}

	efficiencyBonus := entry.FormationEfficiency * 0.1

	score := cfg.PlatoonScore.Direction*directionScore +
		cfg.PlatoonScore.Distance*distanceScore +
		cfg.PlatoonScore.Energy*energyScore +
		efficiencyBonus

	if !entry.HasCapacity() {
		score *= 0.1
	}
	return score
}

// FindBest returns the highest-scoring platoon for a consumer at
// position, heading direction, needing energyNeededKWh, excluding
// excludeID (e.g. the consumer's current platoon, 0 to exclude none).
// Platoons without capacity are skipped outright, not merely penalized.
// Ties are broken by lowest platoon id.
func (t *Table) FindBest(cfg *config.ProtocolConfig, position, direction geo.Vec2, energyNeededKWh float64, excludeID uint32) (Entry, bool) {
	candidates := t.All()

	var best Entry
	bestScore := 0.0
	found := false
	for _, e := range candidates {
		if excludeID != 0 && e.PlatoonID == excludeID {
			continue
		}
		if !e.HasCapacity() {
			continue
		}
		score := Score(cfg, e, position, direction, energyNeededKWh)
		if !found || score > bestScore {
			best, bestScore, found = e, score, true
		}
	}
	if found {
		best.Score = bestScore
	}
	return best, found
}
