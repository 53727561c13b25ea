package platoon

import (
	"sort"

	"github.com/haidar-88/Capstone/config"
	"github.com/haidar-88/Capstone/geo"
	"github.com/haidar-88/Capstone/identity"
	"github.com/haidar-88/Capstone/sim"
)

// Constraints bounds the grid search and relaxation pass
// ComputeOptimalFormation runs, in meters.
type Constraints struct {
	MinDistance      float64
	MaxLateral       float64
	MaxLongitudinal  float64
}

// DefaultConstraints mirrors the defaults applied when a head has not
// been configured with its own values.
func DefaultConstraints() Constraints {
	return Constraints{MinDistance: 2.0, MaxLateral: 3.5, MaxLongitudinal: 20.0}
}

// FormationPlanner holds the rate-limiting and last-computed-target
// state compute_optimal_formation needs across calls.
type FormationPlanner struct {
	lastUpdate sim.VTimeInSec
	target     map[identity.NodeID]geo.Vec2
}

// NewFormationPlanner returns a planner with no formation computed yet.
func NewFormationPlanner() *FormationPlanner {
	return &FormationPlanner{target: make(map[identity.NodeID]geo.Vec2)}
}

// ComputeOptimalFormation positions members to bring energy-deficit
// members close to their best surplus source, per spec §4.6. It is
// rate-limited to FormationUpdateInterval: calls inside the interval
// return the previously computed target unchanged.
func (p *FormationPlanner) ComputeOptimalFormation(cfg *config.ProtocolConfig, members []Member, now sim.VTimeInSec, constraints Constraints) map[identity.NodeID]geo.Vec2 {
	if now-p.lastUpdate < sim.VTimeInSec(cfg.FormationUpdateInterval) {
		return p.target
	}
	p.lastUpdate = now

	surplus, deficit := splitBySurplusDeficit(cfg, members)
	if len(surplus) == 0 || len(deficit) == 0 {
		return p.target
	}

	formation := make(map[identity.NodeID]geo.Vec2)
	var head *Member
	for i := range members {
		if members[i].IsHead {
			head = &members[i]
			break
		}
	}
	if head != nil {
		formation[head.ID] = geo.Vec2{}
	}

	sort.Slice(surplus, func(i, j int) bool { return surplus[i].ShareableEnergyKWh > surplus[j].ShareableEnergyKWh })
	sort.Slice(deficit, func(i, j int) bool { return deficit[i].BatteryPercent < deficit[j].BatteryPercent })

	for idx, s := range surplus {
		if head != nil && s.ID == head.ID {
			continue
		}
		yOffset := float64(idx+1) * 3.0
		xOffset := 1.0
		if idx%2 != 0 {
			xOffset = -1.0
		}
		formation[s.ID] = geo.Vec2{X: xOffset, Y: yOffset}
	}

	var bestSourceID identity.NodeID
	var bestSourceEnergy float64
	for _, s := range surplus {
		if s.ShareableEnergyKWh > bestSourceEnergy {
			bestSourceEnergy = s.ShareableEnergyKWh
			bestSourceID = s.ID
		}
	}

	for _, d := range deficit {
		if _, already := formation[d.ID]; already {
			continue
		}
		if sourcePos, ok := formation[bestSourceID]; ok && bestSourceEnergy > 0 {
			formation[d.ID] = findOptimalPositionNear(sourcePos, formation, constraints)
		} else {
			formation[d.ID] = geo.Vec2{X: 0, Y: float64(len(formation)) * 3.0}
		}
	}

	formation = adjustForConstraints(formation, constraints)
	p.target = formation
	return formation
}

// splitBySurplusDeficit classifies members against the protocol's
// shareable-energy surplus threshold and low-battery deficit threshold.
func splitBySurplusDeficit(cfg *config.ProtocolConfig, members []Member) (surplus, deficit []Member) {
	for _, m := range members {
		if m.ShareableEnergyKWh > 0 {
			surplus = append(surplus, m)
		}
		if m.BatteryPercent < cfg.PHEnergyThresholdPercent {
			deficit = append(deficit, m)
		}
	}
	return surplus, deficit
}

// findOptimalPositionNear grid-searches positions around sourcePos,
// preferring the candidate closest to the source that clears the
// lateral bound and every existing member's minimum separation.
func findOptimalPositionNear(sourcePos geo.Vec2, existing map[identity.NodeID]geo.Vec2, c Constraints) geo.Vec2 {
	var best geo.Vec2
	bestScore := -1.0
	found := false

	for _, dy := range []float64{c.MinDistance, c.MinDistance * 1.5, c.MinDistance * 2.0} {
		for _, dx := range []float64{0.0, c.MinDistance, -c.MinDistance} {
			candidate := geo.Vec2{X: sourcePos.X + dx, Y: sourcePos.Y + dy}
			if absf(candidate.X) > c.MaxLateral {
				continue
			}

			valid := true
			for _, ePos := range existing {
				if candidate.Dist(ePos) < c.MinDistance {
					valid = false
					break
				}
			}
			if !valid {
				continue
			}

			distToSource := candidate.Dist(sourcePos)
			if !found || distToSource < bestScore {
				best, bestScore, found = candidate, distToSource, true
			}
		}
	}

	if !found {
		return geo.Vec2{X: sourcePos.X, Y: sourcePos.Y + c.MinDistance*2}
	}
	return best
}

// adjustForConstraints clamps every position to the lateral/longitudinal
// bounds, then resolves minimum-distance violations by iteratively
// pushing conflicting pairs apart, up to 10 relaxation rounds.
func adjustForConstraints(formation map[identity.NodeID]geo.Vec2, c Constraints) map[identity.NodeID]geo.Vec2 {
	ids := make([]identity.NodeID, 0, len(formation))
	for id := range formation {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	adjusted := make(map[identity.NodeID]geo.Vec2, len(formation))
	for _, id := range ids {
		pos := formation[id]
		pos.X = clamp(pos.X, -c.MaxLateral, c.MaxLateral)
		pos.Y = clamp(pos.Y, 0, c.MaxLongitudinal)
		adjusted[id] = pos
	}

	for iter := 0; iter < 10; iter++ {
		violations := 0
		for i, id1 := range ids {
			for _, id2 := range ids[i+1:] {
				pos1, pos2 := adjusted[id1], adjusted[id2]
				dist := pos1.Dist(pos2)
				if dist < c.MinDistance && dist > 1e-9 {
					violations++
					overlap := c.MinDistance - dist
					dx, dy := pos2.X-pos1.X, pos2.Y-pos1.Y
					pushX := (dx / dist) * overlap * 0.5
					pushY := (dy / dist) * overlap * 0.5
					adjusted[id1] = geo.Vec2{X: pos1.X - pushX, Y: pos1.Y - pushY}
					adjusted[id2] = geo.Vec2{X: pos2.X + pushX, Y: pos2.Y + pushY}
				}
			}
		}
		if violations == 0 {
			break
		}
	}
	return adjusted
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
