package platoon

import (
	"sort"
	"sync"

	"github.com/haidar-88/Capstone/config"
	"github.com/haidar-88/Capstone/geo"
	"github.com/haidar-88/Capstone/identity"
	"github.com/haidar-88/Capstone/sim"
)

// RosterMember is one head-side record of a joined member, enough to
// drive beaconing, the edge graph, and PH handoff candidate selection.
type RosterMember struct {
	ID                 identity.NodeID
	Position           geo.Vec2
	Velocity           geo.Vec2
	BatteryPercent     float64
	ShareableEnergyKWh float64
	Willingness        int
	RelativeIndex      uint16
	LastStatusAt       sim.VTimeInSec
	LastBeaconAt       sim.VTimeInSec
	MissedBeacons      int
}

// Platoon is the head-side roster for one platoon: its members, the
// head's own id, and the target formation the planner last computed.
type Platoon struct {
	mu sync.RWMutex

	ID       uint32
	HeadID   identity.NodeID
	Capacity int

	members map[identity.NodeID]*RosterMember

	planner *FormationPlanner
}

// NewPlatoon returns an empty platoon led by headID with the given
// member capacity (spec's PlatoonMaxSize).
func NewPlatoon(id uint32, headID identity.NodeID, capacity int) *Platoon {
	return &Platoon{
		ID:       id,
		HeadID:   headID,
		Capacity: capacity,
		members:  make(map[identity.NodeID]*RosterMember),
		planner:  NewFormationPlanner(),
	}
}

// Size returns the current member count, not counting the head.
func (p *Platoon) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.members)
}

// HasCapacity reports whether the platoon has an open slot.
func (p *Platoon) HasCapacity() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.members) < p.Capacity
}

// AvailableSlots returns the number of open member slots.
func (p *Platoon) AvailableSlots() uint16 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	free := p.Capacity - len(p.members)
	if free < 0 {
		free = 0
	}
	return uint16(free)
}

// AddMember adds or replaces m's roster entry, assigning it the next
// free relative index.
func (p *Platoon) AddMember(m RosterMember) {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := uint16(1)
	for id, existing := range p.members {
		if id != m.ID && existing.RelativeIndex >= next {
			next = existing.RelativeIndex + 1
		}
	}
	m.RelativeIndex = next
	p.members[m.ID] = &m
}

// RemoveMember deletes id from the roster.
func (p *Platoon) RemoveMember(id identity.NodeID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.members, id)
}

// Member returns id's roster entry, if present.
func (p *Platoon) Member(id identity.NodeID) (RosterMember, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	m, ok := p.members[id]
	if !ok {
		return RosterMember{}, false
	}
	return *m, true
}

// Members returns every roster entry, sorted by relative index.
func (p *Platoon) Members() []RosterMember {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]RosterMember, 0, len(p.members))
	for _, m := range p.members {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RelativeIndex < out[j].RelativeIndex })
	return out
}

// UpdateFromStatus records a member's self-reported battery and the time
// of the report (LastStatusAt), in response to a received PLATOON_STATUS.
func (p *Platoon) UpdateFromStatus(id identity.NodeID, batteryPercent float64, now sim.VTimeInSec) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.members[id]; ok {
		m.BatteryPercent = batteryPercent
		m.LastStatusAt = now
	}
}

// MarkBeaconSent records in a member's LastBeaconAt the time a beacon
// was emitted; it does not touch MissedBeacons.
func (p *Platoon) MarkBeaconSent(id identity.NodeID, now sim.VTimeInSec) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.members[id]; ok {
		m.LastBeaconAt = now
	}
}

// PruneUnresponsive drops members whose last status report is older
// than nMissed*beaconInterval and returns their ids, per spec §4.6's
// beacon-loss rule: N_MISSED_BEACONS missed intervals ejects a member.
func (p *Platoon) PruneUnresponsive(now sim.VTimeInSec, beaconInterval float64, nMissed int) []identity.NodeID {
	p.mu.Lock()
	defer p.mu.Unlock()
	timeout := sim.VTimeInSec(beaconInterval * float64(nMissed))
	var stale []identity.NodeID
	for id, m := range p.members {
		if now-m.LastStatusAt > timeout {
			stale = append(stale, id)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i] < stale[j] })
	for _, id := range stale {
		delete(p.members, id)
	}
	return stale
}

// ComputeFormation delegates to the platoon's FormationPlanner with its
// current roster plus the head's own record.
func (p *Platoon) ComputeFormation(cfg *config.ProtocolConfig, headMember Member, now sim.VTimeInSec, c Constraints) map[identity.NodeID]geo.Vec2 {
	p.mu.RLock()
	members := make([]Member, 0, len(p.members)+1)
	members = append(members, headMember)
	for _, m := range p.members {
		members = append(members, Member{
			ID:                 m.ID,
			Position:           m.Position,
			BatteryPercent:     m.BatteryPercent,
			ShareableEnergyKWh: m.ShareableEnergyKWh,
			RelativeIndex:      m.RelativeIndex,
		})
	}
	p.mu.RUnlock()
	return p.planner.ComputeOptimalFormation(cfg, members, now, c)
}

// BestHandoffCandidate returns the member with the highest shareable
// energy, the original implementation's sole handoff-selection
// criterion, or false if the platoon has no members.
func (p *Platoon) BestHandoffCandidate() (RosterMember, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var best RosterMember
	bestEnergy := 0.0
	found := false
	ids := make([]identity.NodeID, 0, len(p.members))
	for id := range p.members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		m := p.members[id]
		if m.ShareableEnergyKWh > bestEnergy {
			bestEnergy = m.ShareableEnergyKWh
			best, found = *m, true
		}
	}
	return best, found
}

// ShouldHandoff reports whether the head, with headShareableKWh
// shareable energy against headCapacityKWh, should transfer leadership:
// its own share has dropped below half the PH eligibility threshold,
// and a member can offer at least 1.5x as much.
func (p *Platoon) ShouldHandoff(cfg *config.ProtocolConfig, headShareableKWh, headCapacityKWh float64) (RosterMember, bool) {
	threshold := cfg.PHEnergyThresholdPercent * headCapacityKWh
	if headShareableKWh >= threshold*0.5 {
		return RosterMember{}, false
	}
	candidate, ok := p.BestHandoffCandidate()
	if !ok || candidate.ShareableEnergyKWh <= headShareableKWh*1.5 {
		return RosterMember{}, false
	}
	return candidate, true
}
