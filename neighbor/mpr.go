package neighbor

import (
	"github.com/haidar-88/Capstone/config"
	"github.com/haidar-88/Capstone/identity"
)

// selectMPRs runs the deterministic QoS-weighted OLSR MPR selection
// described in spec §4.3. twoHop maps each two-hop id to the set of
// one-hop ids that cover it.
func selectMPRs(neighbors map[identity.NodeID]Entry, twoHop map[identity.NodeID]map[identity.NodeID]struct{}, weights config.MprWeights) map[identity.NodeID]struct{} {
	mpr := make(map[identity.NodeID]struct{})
	if len(twoHop) == 0 {
		return mpr
	}

	uncovered := make(map[identity.NodeID]struct{}, len(twoHop))
	for id := range twoHop {
		uncovered[id] = struct{}{}
	}

	w := mprWeights{
		Battery: weights.Battery, ETX: weights.ETX, Delay: weights.Delay,
		Mobility: weights.Mobility, Willingness: weights.Willingness,
		Congestion: weights.Congestion, Stability: weights.Stability,
	}

	// Step 2: a two-hop id reachable through exactly one one-hop neighbor
	// forces that neighbor into the MPR set.
	for twoHopID, coverers := range twoHop {
		if len(coverers) != 1 {
			continue
		}
		for n := range coverers {
			mpr[n] = struct{}{}
			delete(uncovered, twoHopID)
		}
	}
	removeCoveredBy(mpr, twoHop, uncovered)

	// Step 3: greedily pick the neighbor covering the most remaining
	// uncovered two-hop ids, tie-broken by QoS rank then NodeIdentity.
	for len(uncovered) > 0 {
		best, ok := pickBestCoverer(neighbors, twoHop, uncovered, mpr, w)
		if !ok {
			break
		}
		mpr[best] = struct{}{}
		for twoHopID, coverers := range twoHop {
			if _, covers := coverers[best]; covers {
				delete(uncovered, twoHopID)
			}
		}
	}

	return mpr
}

func removeCoveredBy(mpr map[identity.NodeID]struct{}, twoHop map[identity.NodeID]map[identity.NodeID]struct{}, uncovered map[identity.NodeID]struct{}) {
	for twoHopID, coverers := range twoHop {
		for n := range coverers {
			if _, isMPR := mpr[n]; isMPR {
				delete(uncovered, twoHopID)
				break
			}
		}
	}
}

func pickBestCoverer(neighbors map[identity.NodeID]Entry, twoHop map[identity.NodeID]map[identity.NodeID]struct{}, uncovered map[identity.NodeID]struct{}, mpr map[identity.NodeID]struct{}, w mprWeights) (identity.NodeID, bool) {
	coverCount := make(map[identity.NodeID]int)
	for twoHopID := range uncovered {
		for n := range twoHop[twoHopID] {
			if _, isMPR := mpr[n]; isMPR {
				continue
			}
			coverCount[n]++
		}
	}

	var best identity.NodeID
	var bestCount int
	var bestRank float64
	found := false

	for n, count := range coverCount {
		if count == 0 {
			continue
		}
		e := neighbors[n]
		rank := qosRank(e, w)

		switch {
		case !found:
			best, bestCount, bestRank, found = n, count, rank, true
		case count > bestCount:
			best, bestCount, bestRank = n, count, rank
		case count == bestCount && rank > bestRank:
			best, bestRank = n, rank
		case count == bestCount && rank == bestRank && n < best:
			best = n
		}
	}

	return best, found
}
