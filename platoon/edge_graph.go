// Package platoon implements Layer D: platoon formation, the member edge
// graph used for energy-transfer routing, beaconing, and the consumer-side
// PlatoonTable used for inter-platoon discovery.
package platoon

import (
	"container/heap"
	"sort"

	"github.com/haidar-88/Capstone/config"
	"github.com/haidar-88/Capstone/geo"
	"github.com/haidar-88/Capstone/identity"
)

// Member is one platoon roster entry the head tracks.
type Member struct {
	ID                 identity.NodeID
	Position           geo.Vec2
	BatteryPercent     float64
	ShareableEnergyKWh float64
	RelativeIndex      uint16
	IsHead             bool
}

// Edge is one directed edge of the platoon's energy-transfer graph.
type Edge struct {
	To         identity.NodeID
	Distance   float64
	Efficiency float64
	Weight     float64
}

// EdgeGraph is the adjacency list over platoon members used for
// Dijkstra energy-path routing, per spec §4.6.
type EdgeGraph struct {
	adj map[identity.NodeID][]Edge
}

// BuildEdgeGraph constructs the graph from the current member roster: an
// edge (u,v) exists iff their distance is within EdgeMaxRangeM and the
// resulting efficiency clears EdgeMinEfficiency.
func BuildEdgeGraph(members []Member, cfg *config.ProtocolConfig) *EdgeGraph {
	g := &EdgeGraph{adj: make(map[identity.NodeID][]Edge, len(members))}
	for _, u := range members {
		g.adj[u.ID] = nil
	}
	for _, u := range members {
		for _, v := range members {
			if u.ID == v.ID {
				continue
			}
			d := u.Position.Dist(v.Position)
			if d > cfg.EdgeMaxRangeM {
				continue
			}
			efficiency := 1.0 / (1.0 + cfg.EdgeEfficiencyScale*d*d)
			if efficiency < cfg.EdgeMinEfficiency {
				continue
			}
			// The time term is left at zero here: it only becomes
			// meaningful once an actual transfer amount is scheduled
			// along the edge, at which point the head recomputes cost
			// with TransferCost before committing a route.
			weight := cfg.EdgeWeightDistance*(d/cfg.EdgeMaxRangeM) +
				cfg.EdgeWeightLoss*(1-efficiency)
			g.adj[u.ID] = append(g.adj[u.ID], Edge{To: v.ID, Distance: d, Efficiency: efficiency, Weight: weight})
		}
		sort.Slice(g.adj[u.ID], func(i, j int) bool { return g.adj[u.ID][i].To < g.adj[u.ID][j].To })
	}
	return g
}

// TransferCost recomputes e's weight including a time penalty for moving
// amountKWh across it at transferRateKWPerSec, for use once the head has
// picked a path and is about to commit a specific transfer along it.
func TransferCost(cfg *config.ProtocolConfig, e Edge, amountKWh, transferRateKWPerSec float64) float64 {
	if transferRateKWPerSec <= 0 {
		transferRateKWPerSec = 1
	}
	transferTime := amountKWh / transferRateKWPerSec
	return cfg.EdgeWeightDistance*(e.Distance/cfg.EdgeMaxRangeM) +
		cfg.EdgeWeightLoss*(1-e.Efficiency) +
		cfg.EdgeWeightTime*transferTime
}

// EnergyPath is one min-weight route the head can schedule a transfer
// along, from a surplus member to a deficit member.
type EnergyPath struct {
	Source               identity.NodeID
	Sink                 identity.NodeID
	Path                 []identity.NodeID
	CumulativeEfficiency float64
}

type pqItem struct {
	id   identity.NodeID
	dist float64
}

type priorityQueue []pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].dist < pq[j].dist }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x interface{}) { *pq = append(*pq, x.(pqItem)) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// shortestPath runs Dijkstra from source over g, returning the min-weight
// path to every reachable node plus that path's cumulative efficiency
// (product of each traversed edge's efficiency).
func (g *EdgeGraph) shortestPath(source identity.NodeID) (map[identity.NodeID][]identity.NodeID, map[identity.NodeID]float64) {
	dist := map[identity.NodeID]float64{source: 0}
	prev := map[identity.NodeID]identity.NodeID{}
	efficiency := map[identity.NodeID]float64{source: 1}
	visited := map[identity.NodeID]bool{}

	pq := &priorityQueue{{id: source, dist: 0}}
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pqItem)
		if visited[cur.id] {
			continue
		}
		visited[cur.id] = true

		for _, e := range g.adj[cur.id] {
			nd := dist[cur.id] + e.Weight
			if d, ok := dist[e.To]; !ok || nd < d {
				dist[e.To] = nd
				prev[e.To] = cur.id
				efficiency[e.To] = efficiency[cur.id] * e.Efficiency
				heap.Push(pq, pqItem{id: e.To, dist: nd})
			}
		}
	}

	paths := make(map[identity.NodeID][]identity.NodeID)
	for node := range dist {
		if node == source {
			paths[node] = []identity.NodeID{source}
			continue
		}
		path := []identity.NodeID{node}
		at := node
		for at != source {
			p, ok := prev[at]
			if !ok {
				path = nil
				break
			}
			path = append(path, p)
			at = p
		}
		if path != nil {
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			paths[node] = path
		}
	}
	return paths, efficiency
}

// DijkstraEnergyPaths computes min-weight paths from every surplus member
// (battery_pct at or above surplusThreshold) to every deficit member (below
// deficitThreshold), per spec §4.6. Results are sorted by (source, sink)
// for determinism.
func (g *EdgeGraph) DijkstraEnergyPaths(members []Member, surplusThreshold, deficitThreshold float64) []EnergyPath {
	var surplus, deficit []Member
	for _, m := range members {
		switch {
		case m.BatteryPercent >= surplusThreshold:
			surplus = append(surplus, m)
		case m.BatteryPercent < deficitThreshold:
			deficit = append(deficit, m)
		}
	}
	sort.Slice(surplus, func(i, j int) bool { return surplus[i].ID < surplus[j].ID })
	sort.Slice(deficit, func(i, j int) bool { return deficit[i].ID < deficit[j].ID })

	var out []EnergyPath
	for _, s := range surplus {
		paths, efficiency := g.shortestPath(s.ID)
		for _, d := range deficit {
			path, ok := paths[d.ID]
			if !ok || len(path) < 2 {
				continue
			}
			out = append(out, EnergyPath{
				Source:               s.ID,
				Sink:                 d.ID,
				Path:                 path,
				CumulativeEfficiency: efficiency[d.ID],
			})
		}
	}
	return out
}
