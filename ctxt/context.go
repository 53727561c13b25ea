package ctxt

import (
	"github.com/haidar-88/Capstone/config"
	"github.com/haidar-88/Capstone/geo"
	"github.com/haidar-88/Capstone/identity"
	"github.com/haidar-88/Capstone/sim"
)

// ProviderNeighbor is a one-hop neighbor currently advertising provider
// capability, as learned from its HELLO — the seed Layer B aggregates into
// a PA before any PA has been originated for that provider.
type ProviderNeighbor struct {
	ID                 identity.NodeID
	Position           geo.Vec2
	Direction          geo.Vec2
	ShareableEnergyKWh float64
	Willingness        float64
}

// NeighborView is the read-only surface Layer A's NeighborTable exposes to
// every other layer, satisfying the "tables expose read-only views" design
// note: nothing outside neighbor can mutate the table through this seam.
type NeighborView interface {
	OneHopIDs() []identity.NodeID
	OneHopCount() int
	MPRIDs() []identity.NodeID
	MPRActive() bool
	ProviderNeighbors() []ProviderNeighbor
}

// ProviderInfo is the subset of a ProviderTable row Layer C's EVALUATE
// ranking needs: enough to score green fraction, detour, and direction
// alignment without Layer C importing package announce.
type ProviderInfo struct {
	Position           geo.Vec2
	Direction          geo.Vec2
	ShareableEnergyKWh float64
	RenewableFraction  float64
	HasRenewable       bool
}

// ProviderView is the surface Layer B's ProviderTable exposes to other
// layers. RemoveStale is the one mutation a non-owning layer is allowed to
// request: spec §4.5 has a consumer evict a provider from ProviderTable
// once its JOIN_ACCEPT deadline lapses.
type ProviderView interface {
	ProviderIDs() []identity.NodeID
	Lookup(id identity.NodeID) (ProviderInfo, bool)
	RemoveStale(id identity.NodeID)
}

// PlatoonView is the read-only surface Layer D's PlatoonTable/Platoon
// exposes to Layer C (a consumer ranking candidate platoons, a head
// reporting its own roster).
type PlatoonView interface {
	PlatoonIDs() []uint32
}

// Dedup is the read-only-plus-mark surface Layer B's DedupCache exposes.
// Marking is exposed here (rather than kept strictly read-only) because
// dedup insertion has no other owner layer to route through.
type Dedup interface {
	Seen(originator identity.NodeID, seq uint32) bool
	Mark(originator identity.NodeID, seq uint32)
}

// Metrics is the counter-only hook surface every layer reports through. No
// I/O happens behind this interface inside the core; a concrete sink lives
// in package metrics.
type Metrics interface {
	Inc(counter string)
	Add(counter string, delta int64)
}

type noopMetrics struct{}

func (noopMetrics) Inc(string)           {}
func (noopMetrics) Add(string, int64) {}

// Context is the shared state every protocol layer is built against:
// simulation time, immutable configuration, the local node's mutable
// state, and read-only handles to the other layers' tables. Cross-layer
// access is only ever through a Context — no layer holds a direct
// reference to another layer's table.
type Context struct {
	clock  Clock
	cfg    *config.ProtocolConfig
	self   *identity.State

	neighbors NeighborView
	providers ProviderView
	platoons  PlatoonView
	dedup     Dedup
	metrics   Metrics
}

// New builds a Context for self, under cfg. The per-layer table views are
// wired in afterward via the Set* setters once those layers exist — they
// are constructed with a reference to this same Context, so the wiring is
// necessarily a two-step process owned by package node.
func New(cfg *config.ProtocolConfig, self *identity.State) *Context {
	return &Context{cfg: cfg, self: self, metrics: noopMetrics{}}
}

// CurrentTime returns the simulation-seconds value of the context's clock.
func (c *Context) CurrentTime() sim.VTimeInSec { return c.clock.Now() }

// UpdateTime advances the context's clock. It is the only way simulation
// time changes and MUST be the first call made by every entry point.
func (c *Context) UpdateTime(t sim.VTimeInSec) error { return c.clock.Advance(t) }

// Config returns the immutable ProtocolConfig this context runs under.
func (c *Context) Config() *config.ProtocolConfig { return c.cfg }

// Self returns the local node's mutable state. RoleManager and the external
// mobility/energy collaborator are the only writers; everything else reads.
func (c *Context) Self() *identity.State { return c.self }

// Neighbors returns Layer A's read-only neighbor-table view.
func (c *Context) Neighbors() NeighborView { return c.neighbors }

// Providers returns Layer B's read-only provider-table view.
func (c *Context) Providers() ProviderView { return c.providers }

// Platoons returns Layer D's read-only platoon-table view.
func (c *Context) Platoons() PlatoonView { return c.platoons }

// Dedup returns Layer B's dedup-cache handle.
func (c *Context) Dedup() Dedup { return c.dedup }

// Metrics returns the counter-only metrics sink.
func (c *Context) Metrics() Metrics { return c.metrics }

// SetNeighbors wires Layer A's table into the context. Called once, by
// package node, during node construction.
func (c *Context) SetNeighbors(v NeighborView) { c.neighbors = v }

// SetProviders wires Layer B's table into the context.
func (c *Context) SetProviders(v ProviderView) { c.providers = v }

// SetPlatoons wires Layer D's table into the context.
func (c *Context) SetPlatoons(v PlatoonView) { c.platoons = v }

// SetDedup wires Layer B's dedup cache into the context.
func (c *Context) SetDedup(d Dedup) { c.dedup = d }

// SetMetrics replaces the no-op metrics sink with a real one.
func (c *Context) SetMetrics(m Metrics) { c.metrics = m }
