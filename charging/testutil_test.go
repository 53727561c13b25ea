package charging_test

import (
	"sort"

	"github.com/haidar-88/Capstone/config"
	"github.com/haidar-88/Capstone/ctxt"
	"github.com/haidar-88/Capstone/identity"
)

type fakeNeighbors struct {
	oneHopCount int
	mprActive   bool
}

func (f fakeNeighbors) OneHopIDs() []identity.NodeID         { return nil }
func (f fakeNeighbors) OneHopCount() int                     { return f.oneHopCount }
func (f fakeNeighbors) MPRIDs() []identity.NodeID            { return nil }
func (f fakeNeighbors) MPRActive() bool                      { return f.mprActive }
func (f fakeNeighbors) ProviderNeighbors() []ctxt.ProviderNeighbor { return nil }

type fakeProviders struct {
	entries map[identity.NodeID]ctxt.ProviderInfo
}

func newFakeProviders() *fakeProviders {
	return &fakeProviders{entries: make(map[identity.NodeID]ctxt.ProviderInfo)}
}

func (f *fakeProviders) add(id identity.NodeID, info ctxt.ProviderInfo) {
	f.entries[id] = info
}

func (f *fakeProviders) ProviderIDs() []identity.NodeID {
	ids := make([]identity.NodeID, 0, len(f.entries))
	for id := range f.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (f *fakeProviders) Lookup(id identity.NodeID) (ctxt.ProviderInfo, bool) {
	info, ok := f.entries[id]
	return info, ok
}

func (f *fakeProviders) RemoveStale(id identity.NodeID) {
	delete(f.entries, id)
}

func newTestContext(id identity.NodeID, providers ctxt.ProviderView) *ctxt.Context {
	cfg := config.Default()
	c := ctxt.New(cfg, &identity.State{ID: id, BatteryCapacityKWh: 100, BatteryEnergyKWh: 80, Willingness: 4})
	c.SetNeighbors(fakeNeighbors{oneHopCount: 2, mprActive: true})
	if providers != nil {
		c.SetProviders(providers)
	}
	return c
}
