package platoon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haidar-88/Capstone/config"
	"github.com/haidar-88/Capstone/geo"
	"github.com/haidar-88/Capstone/identity"
)

func TestPlatoonAddAndRemoveMember(t *testing.T) {
	p := NewPlatoon(1, identity.NodeID(100), 3)
	assert.True(t, p.HasCapacity())
	assert.Equal(t, uint16(3), p.AvailableSlots())

	p.AddMember(RosterMember{ID: 1})
	p.AddMember(RosterMember{ID: 2})
	assert.Equal(t, 2, p.Size())
	assert.Equal(t, uint16(1), p.AvailableSlots())

	p.RemoveMember(1)
	assert.Equal(t, 1, p.Size())
	_, ok := p.Member(1)
	assert.False(t, ok)
}

func TestPlatoonPruneUnresponsiveEjectsStaleMembers(t *testing.T) {
	p := NewPlatoon(1, identity.NodeID(100), 3)
	p.AddMember(RosterMember{ID: 1, LastStatusAt: 0})
	p.AddMember(RosterMember{ID: 2, LastStatusAt: 9})

	stale := p.PruneUnresponsive(10, 2.0, 3)
	assert.Equal(t, []identity.NodeID{1}, stale)
	assert.Equal(t, 1, p.Size())
}

func TestPlatoonBestHandoffCandidatePicksHighestShareableEnergy(t *testing.T) {
	p := NewPlatoon(1, identity.NodeID(100), 3)
	p.AddMember(RosterMember{ID: 1, ShareableEnergyKWh: 5})
	p.AddMember(RosterMember{ID: 2, ShareableEnergyKWh: 20})
	p.AddMember(RosterMember{ID: 3, ShareableEnergyKWh: 10})

	best, ok := p.BestHandoffCandidate()
	require.True(t, ok)
	assert.Equal(t, identity.NodeID(2), best.ID)
}

func TestShouldHandoffRequiresLowHeadShareAndBetterCandidate(t *testing.T) {
	cfg := config.Default()
	cfg.PHEnergyThresholdPercent = 0.6
	p := NewPlatoon(1, identity.NodeID(100), 3)
	p.AddMember(RosterMember{ID: 1, ShareableEnergyKWh: 20})

	// Head still above half the eligibility threshold: no handoff.
	_, ok := p.ShouldHandoff(cfg, 20, 50)
	assert.False(t, ok)

	// Head well below half threshold, candidate offers far more: handoff.
	candidate, ok := p.ShouldHandoff(cfg, 1, 50)
	assert.True(t, ok)
	assert.Equal(t, identity.NodeID(1), candidate.ID)
}

func TestShouldHandoffDeclinesWithoutAStrongerCandidate(t *testing.T) {
	cfg := config.Default()
	cfg.PHEnergyThresholdPercent = 0.6
	p := NewPlatoon(1, identity.NodeID(100), 3)
	p.AddMember(RosterMember{ID: 1, ShareableEnergyKWh: 1})

	_, ok := p.ShouldHandoff(cfg, 1, 50)
	assert.False(t, ok)
}

func TestComputeFormationPlacesDeficitMemberNearSurplusSource(t *testing.T) {
	cfg := config.Default()
	p := NewPlatoon(1, identity.NodeID(100), 3)
	p.AddMember(RosterMember{ID: 1, Position: geo.Vec2{X: 0, Y: 3}, ShareableEnergyKWh: 10, BatteryPercent: 0.9})
	p.AddMember(RosterMember{ID: 2, Position: geo.Vec2{X: 0, Y: 6}, ShareableEnergyKWh: 0, BatteryPercent: 0.1})

	head := Member{ID: identity.NodeID(100), IsHead: true}
	formation := p.ComputeFormation(cfg, head, 10, DefaultConstraints())

	_, headPlaced := formation[identity.NodeID(100)]
	assert.True(t, headPlaced)
	assert.Len(t, formation, 3)
}
