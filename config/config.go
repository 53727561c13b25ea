// Package config defines the immutable ProtocolConfig every layer reads its
// tunables from. It is built once, before a Context starts, through a
// chained-option Builder in the same style the teacher uses for its
// connection and component builders (e.g. directconnection.MakeBuilder()).
package config

import (
	"math"

	"github.com/haidar-88/Capstone/sim"
)

// TTLMode selects how Layer B computes the TTL of an originated PA.
type TTLMode int

const (
	// TTLFixed always uses PATTLDefault.
	TTLFixed TTLMode = iota
	// TTLDensityBased scales the TTL down as the local neighbor count grows.
	TTLDensityBased
)

// MprWeights are the relative priorities the QoS rank combines, in
// descending importance, when Layer A breaks MPR-selection ties. The
// original implementation calls these OLSR_WEIGHTS and requires they sum to
// 1.0; New and Default do not check that the configured weights sum to 1.0.
type MprWeights struct {
	Battery     float64
	ETX         float64
	Delay       float64
	Mobility    float64
	Willingness float64
	Congestion  float64
	Stability   float64
}

// Sum returns the total of all weight components.
func (w MprWeights) Sum() float64 {
	return w.Battery + w.ETX + w.Delay + w.Mobility + w.Willingness + w.Congestion + w.Stability
}

// PlatoonScoreWeights are the weights PlatoonTable.Score combines when a
// consumer ranks discovered platoons.
type PlatoonScoreWeights struct {
	Direction float64
	Distance  float64
	Energy    float64
}

// ProviderScoreWeights are the weights a consumer's EVALUATE step combines
// when ranking candidate providers, per spec §4.5: green fraction, detour
// distance, deadline feasibility, expected cost, and direction alignment.
type ProviderScoreWeights struct {
	GreenFraction       float64
	Detour              float64
	DeadlineFeasibility float64
	Cost                float64
	Direction           float64
}

// ProtocolConfig is the immutable configuration surface described in spec
// §6. Every field has a default matching the original implementation's
// ProtocolConfig constants; callers override through With* options passed
// to New.
type ProtocolConfig struct {
	HelloInterval           sim.VTimeInSec
	PAInterval              sim.VTimeInSec
	BeaconInterval          sim.VTimeInSec
	PlatoonAnnounceInterval sim.VTimeInSec
	GridStatusInterval      sim.VTimeInSec
	FormationUpdateInterval sim.VTimeInSec

	NeighborTimeout      sim.VTimeInSec
	ProviderTimeout      sim.VTimeInSec
	PlatoonEntryTimeout  sim.VTimeInSec
	PlatoonMemberTimeout sim.VTimeInSec

	PATTLDefault int
	PATTLMin     int
	PATTLMax     int
	TTLMode      TTLMode
	PAMaxEntriesPerFrame int

	JoinAcceptTimeout sim.VTimeInSec
	AckTimeout        sim.VTimeInSec
	AckAckTimeout     sim.VTimeInSec
	OfferWindow       sim.VTimeInSec

	PlatoonMaxSize int
	NMissedBeacons int

	PHEnergyThresholdPercent float64
	PHWillingnessThreshold   int

	ChargeRateKW                  float64
	EnergyConsumptionRateKWhPerKm float64

	EdgeEfficiencyScale float64
	EdgeMaxRangeM       float64
	EdgeMinEfficiency   float64
	EdgeWeightDistance  float64
	EdgeWeightLoss      float64
	EdgeWeightTime      float64

	PlatoonScore PlatoonScoreWeights
	MprRank      MprWeights
	ProviderRank ProviderScoreWeights

	DedupCacheSize int
}

// Option mutates a ProtocolConfig under construction.
type Option func(*ProtocolConfig)

// Default returns the spec-default configuration, matching the constants in
// the original implementation's ProtocolConfig.
func Default() *ProtocolConfig {
	return &ProtocolConfig{
		HelloInterval:           1.0,
		PAInterval:              5.0,
		BeaconInterval:          2.0,
		PlatoonAnnounceInterval: 5.0,
		GridStatusInterval:      10.0,
		FormationUpdateInterval: 2.0,

		NeighborTimeout:      5.0,
		ProviderTimeout:      10.0,
		PlatoonEntryTimeout:  15.0,
		PlatoonMemberTimeout: 10.0,

		PATTLDefault:         4,
		PATTLMin:             2,
		PATTLMax:             6,
		TTLMode:              TTLFixed,
		PAMaxEntriesPerFrame: 12,

		JoinAcceptTimeout: 5.0,
		AckTimeout:        3.0,
		AckAckTimeout:     3.0,
		OfferWindow:       5.0,

		PlatoonMaxSize: 6,
		NMissedBeacons: 3,

		PHEnergyThresholdPercent: 0.60,
		PHWillingnessThreshold:   4,

		ChargeRateKW:                  50.0,
		EnergyConsumptionRateKWhPerKm: 0.15,

		EdgeEfficiencyScale: 0.1,
		EdgeMaxRangeM:       10.0,
		EdgeMinEfficiency:   0.1,
		EdgeWeightDistance:  0.4,
		EdgeWeightLoss:      0.3,
		EdgeWeightTime:      0.3,

		PlatoonScore: PlatoonScoreWeights{Direction: 0.4, Distance: 0.3, Energy: 0.3},
		MprRank: MprWeights{
			Battery: 0.20, ETX: 0.20, Delay: 0.15, Mobility: 0.15,
			Willingness: 0.10, Congestion: 0.10, Stability: 0.10,
		},
		ProviderRank: ProviderScoreWeights{
			GreenFraction: 0.25, Detour: 0.25, DeadlineFeasibility: 0.20, Cost: 0.15, Direction: 0.15,
		},

		DedupCacheSize: 10000,
	}
}

// New builds a ProtocolConfig starting from Default() and applying opts in
// order.
func New(opts ...Option) *ProtocolConfig {
	cfg := Default()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithHelloInterval overrides HelloInterval.
func WithHelloInterval(v sim.VTimeInSec) Option {
	return func(c *ProtocolConfig) { c.HelloInterval = v }
}

// WithPAInterval overrides PAInterval.
func WithPAInterval(v sim.VTimeInSec) Option {
	return func(c *ProtocolConfig) { c.PAInterval = v }
}

// WithTTLMode overrides TTLMode.
func WithTTLMode(m TTLMode) Option {
	return func(c *ProtocolConfig) { c.TTLMode = m }
}

// WithPlatoonMaxSize overrides PlatoonMaxSize.
func WithPlatoonMaxSize(n int) Option {
	return func(c *ProtocolConfig) { c.PlatoonMaxSize = n }
}

// WithDedupCacheSize overrides DedupCacheSize.
func WithDedupCacheSize(n int) Option {
	return func(c *ProtocolConfig) { c.DedupCacheSize = n }
}

// WithJoinAcceptTimeout overrides JoinAcceptTimeout.
func WithJoinAcceptTimeout(v sim.VTimeInSec) Option {
	return func(c *ProtocolConfig) { c.JoinAcceptTimeout = v }
}

// ComputeTTL derives the TTL a forwardable frame should originate with,
// per spec §4.4: PATTLDefault under TTLFixed, or under TTLDensityBased a
// value that falls as the local one-hop neighbor count grows, clamped to
// [PATTLMin, PATTLMax]. Shared by every layer that originates a
// forwardable frame (PA, GRID_STATUS, PLATOON_ANNOUNCE).
func (c *ProtocolConfig) ComputeTTL(oneHopCount int) uint8 {
	if c.TTLMode == TTLFixed {
		return uint8(c.PATTLDefault)
	}
	n := oneHopCount
	if n < 1 {
		n = 1
	}
	ttl := 8 - int(math.Floor(math.Log2(float64(n))))
	if ttl < c.PATTLMin {
		ttl = c.PATTLMin
	}
	if ttl > c.PATTLMax {
		ttl = c.PATTLMax
	}
	return uint8(ttl)
}
