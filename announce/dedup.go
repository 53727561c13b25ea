// Package announce implements Layer B: PA origination at MPR-active nodes,
// TTL-bounded multi-hop forwarding with duplicate suppression, and the
// ProviderTable consumers and platoon heads query in Layer C.
package announce

import (
	"container/list"
	"sync"

	"github.com/haidar-88/Capstone/identity"
)

type dedupKey struct {
	Originator identity.NodeID
	Seq        uint32
}

// DedupCache is an LRU-bounded set of (originator_id, seq_num) pairs used
// to ensure a forwardable frame is processed into ProviderTable, and
// forwarded, at most once per node (spec §4.4 invariants ii-iii).
type DedupCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	index    map[dedupKey]*list.Element
}

// NewDedupCache returns a DedupCache holding at most capacity entries,
// evicting the least-recently-marked entry once full.
func NewDedupCache(capacity int) *DedupCache {
	return &DedupCache{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[dedupKey]*list.Element),
	}
}

// Seen reports whether (originator, seq) has already been marked.
func (d *DedupCache) Seen(originator identity.NodeID, seq uint32) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.index[dedupKey{originator, seq}]
	return ok
}

// Mark records (originator, seq) as seen, evicting the oldest entry if the
// cache is at capacity.
func (d *DedupCache) Mark(originator identity.NodeID, seq uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := dedupKey{originator, seq}
	if el, ok := d.index[key]; ok {
		d.order.MoveToBack(el)
		return
	}

	el := d.order.PushBack(key)
	d.index[key] = el

	if d.capacity > 0 {
		for d.order.Len() > d.capacity {
			oldest := d.order.Front()
			if oldest == nil {
				break
			}
			d.order.Remove(oldest)
			delete(d.index, oldest.Value.(dedupKey))
		}
	}
}

// Len returns the number of entries currently held.
func (d *DedupCache) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.order.Len()
}
