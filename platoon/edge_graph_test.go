package platoon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haidar-88/Capstone/config"
	"github.com/haidar-88/Capstone/geo"
	"github.com/haidar-88/Capstone/identity"
)

func TestBuildEdgeGraphDropsOutOfRangeAndLowEfficiencyPairs(t *testing.T) {
	cfg := config.Default()
	cfg.EdgeMaxRangeM = 5.0
	cfg.EdgeMinEfficiency = 0.5

	members := []Member{
		{ID: 1, Position: geo.Vec2{X: 0, Y: 0}},
		{ID: 2, Position: geo.Vec2{X: 3, Y: 0}},  // within range, high efficiency
		{ID: 3, Position: geo.Vec2{X: 20, Y: 0}}, // out of range
	}

	g := BuildEdgeGraph(members, cfg)

	edges1 := g.adj[identity.NodeID(1)]
	require.Len(t, edges1, 1)
	assert.Equal(t, identity.NodeID(2), edges1[0].To)
}

// TestDijkstraPrefersMultiHopWhenDirectLinkExceedsRange reproduces the
// qualitative property spec §8's platoon-edge-routing scenario is
// gesturing at: a direct source-to-sink edge that exceeds EDGE_MAX_RANGE_M
// is unusable, so Dijkstra must route around it through an intermediate
// member even though that detour is longer on paper.
func TestDijkstraPrefersMultiHopWhenDirectLinkExceedsRange(t *testing.T) {
	cfg := config.Default()
	cfg.EdgeMaxRangeM = 10.0
	cfg.EdgeMinEfficiency = 0.0

	members := []Member{
		{ID: 1, Position: geo.Vec2{X: 0, Y: 0}, BatteryPercent: 0.9},
		{ID: 2, Position: geo.Vec2{X: 8, Y: 0}, BatteryPercent: 0.5},
		{ID: 3, Position: geo.Vec2{X: 16, Y: 0}, BatteryPercent: 0.2},
	}

	g := BuildEdgeGraph(members, cfg)
	paths := g.DijkstraEnergyPaths(members, 0.8, 0.3)

	require.Len(t, paths, 1)
	p := paths[0]
	assert.Equal(t, identity.NodeID(1), p.Source)
	assert.Equal(t, identity.NodeID(3), p.Sink)
	assert.Equal(t, []identity.NodeID{1, 2, 3}, p.Path)
	assert.Greater(t, p.CumulativeEfficiency, 0.0)
	assert.LessOrEqual(t, p.CumulativeEfficiency, 1.0)
}

func TestDijkstraEnergyPathsSkipsMembersWithoutSurplusOrDeficit(t *testing.T) {
	cfg := config.Default()
	members := []Member{
		{ID: 1, Position: geo.Vec2{X: 0, Y: 0}, BatteryPercent: 0.55},
		{ID: 2, Position: geo.Vec2{X: 1, Y: 0}, BatteryPercent: 0.5},
	}
	g := BuildEdgeGraph(members, cfg)

	paths := g.DijkstraEnergyPaths(members, 0.8, 0.3)
	assert.Empty(t, paths)
}
