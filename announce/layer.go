package announce

import (
	"sort"

	"github.com/haidar-88/Capstone/ctxt"
	"github.com/haidar-88/Capstone/sim"
	"github.com/haidar-88/Capstone/wire"
)

// Layer is Layer B's entry point: PA origination at MPR-active nodes,
// forwarding with dedup, and ProviderTable maintenance.
type Layer struct {
	Providers *ProviderTable
	Dedup     *DedupCache

	lastPATime   sim.VTimeInSec
	havePAOnce   bool
	seq          uint32
}

// NewLayer builds a Layer B instance sized from c.Config().DedupCacheSize.
func NewLayer(c *ctxt.Context) *Layer {
	return &Layer{
		Providers: NewProviderTable(),
		Dedup:     NewDedupCache(c.Config().DedupCacheSize),
	}
}

// Tick runs PA origination (if due and MPR-active) and ProviderTable
// pruning. It returns the frames to hand to the PHY sink, if any.
func (l *Layer) Tick(c *ctxt.Context, now sim.VTimeInSec) []wire.Frame {
	cfg := c.Config()

	removed := l.Providers.Prune(now, cfg.ProviderTimeout)
	for range removed {
		c.Metrics().Inc("provider_pruned")
	}

	if !l.shouldOriginate(c, now) {
		return nil
	}
	l.lastPATime = now
	l.havePAOnce = true

	return l.originate(c, now)
}

func (l *Layer) shouldOriginate(c *ctxt.Context, now sim.VTimeInSec) bool {
	if !c.Neighbors().MPRActive() {
		return false
	}
	cfg := c.Config()
	return !l.havePAOnce || now-l.lastPATime >= cfg.PAInterval
}

// originate aggregates every currently known provider (self, plus
// neighbors advertising provider capability over HELLO) into a single PA
// frame carrying one PROVIDER_ENTRY TLV per provider, built by buildPA —
// the willingness-weighted aggregation SPEC_FULL.md §4 describes.
func (l *Layer) originate(c *ctxt.Context, now sim.VTimeInSec) []wire.Frame {
	self := c.Self()

	var candidates []rankedEntry
	if self.ProviderCapable {
		candidates = append(candidates, rankedEntry{
			willingness: float64(self.Willingness),
			entry: wire.ProviderAnnouncement{
				ProviderID:         self.ID,
				ProviderType:       wire.ProviderMobile,
				Position:           self.Position,
				Direction:          self.Direction,
				EnergyAvailableKWh: self.ShareableEnergy(),
			},
		})
	}
	for _, p := range c.Neighbors().ProviderNeighbors() {
		candidates = append(candidates, rankedEntry{
			willingness: p.Willingness,
			entry: wire.ProviderAnnouncement{
				ProviderID:         p.ID,
				ProviderType:       wire.ProviderMobile,
				Position:           p.Position,
				Direction:          p.Direction,
				EnergyAvailableKWh: p.ShareableEnergyKWh,
			},
		})
	}
	if len(candidates) == 0 {
		return nil
	}

	frame := l.buildPA(c, now, candidates)
	return []wire.Frame{frame}
}

// rankedEntry pairs a candidate PROVIDER_ENTRY with the willingness value
// buildPA sorts by; willingness itself never travels on the wire.
type rankedEntry struct {
	willingness float64
	entry       wire.ProviderAnnouncement
}

// buildPA sorts candidates by willingness descending, provider id ascending
// as the tie-break, caps the result at PAMaxEntriesPerFrame, and renders
// the survivors into one aggregated PA frame.
func (l *Layer) buildPA(c *ctxt.Context, now sim.VTimeInSec, candidates []rankedEntry) wire.Frame {
	cfg := c.Config()
	self := c.Self()
	ttl := cfg.ComputeTTL(c.Neighbors().OneHopCount())

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].willingness != candidates[j].willingness {
			return candidates[i].willingness > candidates[j].willingness
		}
		return candidates[i].entry.ProviderID < candidates[j].entry.ProviderID
	})

	if len(candidates) > cfg.PAMaxEntriesPerFrame {
		c.Metrics().Add("pa_entries_dropped", int64(len(candidates)-cfg.PAMaxEntriesPerFrame))
		candidates = candidates[:cfg.PAMaxEntriesPerFrame]
	}

	l.seq++
	entries := make([]wire.ProviderAnnouncement, len(candidates))
	for i, cand := range candidates {
		entries[i] = cand.entry
		l.Providers.Upsert(cand.entry, now)
	}

	l.Dedup.Mark(self.ID, l.seq)
	return wire.BuildPASet(wire.ProviderAnnouncementSet{
		SeqNum:      l.seq,
		SenderID:    self.ID,
		PreviousHop: self.ID,
		Entries:     entries,
	}, ttl)
}

// Receive processes a decoded PA frame per spec §4.4: dedup on the
// aggregating sender, upsert every carried entry into ProviderTable, and
// conditional re-forwarding of the whole frame unchanged but for TTL and
// PREVIOUS_HOP.
func (l *Layer) Receive(c *ctxt.Context, f wire.Frame, now sim.VTimeInSec) []wire.Frame {
	set, err := wire.ParsePASet(f)
	if err != nil {
		c.Metrics().Inc("pa_malformed")
		return nil
	}

	if l.Dedup.Seen(f.Header.SenderID, f.Header.SeqNum) {
		c.Metrics().Inc("pa_duplicate")
		return nil
	}
	l.Dedup.Mark(f.Header.SenderID, f.Header.SeqNum)

	for _, e := range set.Entries {
		l.Providers.Upsert(e, now)
	}
	c.Metrics().Inc("pa_processed")

	self := c.Self()
	if f.Header.TTL == 0 || !c.Neighbors().MPRActive() || set.PreviousHop == self.ID {
		return nil
	}

	frame := wire.BuildPASet(wire.ProviderAnnouncementSet{
		SeqNum:      set.SeqNum,
		SenderID:    set.SenderID,
		PreviousHop: self.ID,
		Entries:     set.Entries,
	}, f.Header.TTL-1)
	if frame.Header.TTL == 0 {
		return nil
	}
	c.Metrics().Inc("pa_forwarded")
	return []wire.Frame{frame}
}
