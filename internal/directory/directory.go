// Package directory implements the fixed-cardinality stripe collection
// described in the striped-vector design: indexed access for geometry
// rebuilds plus predicate-free opportunistic selection for cursors. The
// "atomic deque" multiplexing primitive the design treats as an external
// collaborator (its contract specified, internals not) is realised here as
// an availability-bit hint array plus a condition variable notified on
// every stripe release, per the design's own implementation hint.
package directory

import (
	"sync"
	"sync/atomic"

	"github.com/nbtaylor/stripevec/internal/stripelock"
)

// Mode selects which discipline a selection attempt uses.
type Mode int

const (
	Shared Mode = iota
	Exclusive
)

// Directory holds exactly S stripe locks and multiplexes cursor access to
// them. Its own bookkeeping (the availability hints, the notification
// condvar) uses only short critical sections; the actual per-stripe
// exclusion is delegated entirely to each stripe's own RWMutex.
type Directory struct {
	stripes []*stripelock.RWMutex
	avail   []atomic.Bool

	mu   sync.Mutex
	cond *sync.Cond
}

// New builds a directory over exactly S stripes. Geometry is assigned by
// the caller (the container) either at construction or on the first
// structural rebuild.
func New(count int) *Directory {
	d := &Directory{
		stripes: make([]*stripelock.RWMutex, count),
		avail:   make([]atomic.Bool, count),
	}
	for i := range d.stripes {
		d.stripes[i] = stripelock.New(0, 0)
		d.avail[i].Store(true)
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Len returns the stripe count, S.
func (d *Directory) Len() int { return len(d.stripes) }

// At returns the stripe lock for indexed access, used when rebuilding
// geometry under an exclusive gate hold.
func (d *Directory) At(id int) *stripelock.RWMutex { return d.stripes[id] }

// tryAcquire, in exclusive mode, consults the availability hint to decide
// whether it is worth paying for the real TryLock call; shared mode always
// makes the TryRLock call. The hint itself is never authoritative, since a
// release can race a concurrent acquire.
func (d *Directory) tryAcquire(id int, mode Mode) bool {
	if mode == Exclusive && !d.avail[id].Load() {
		return false
	}
	var ok bool
	if mode == Shared {
		ok = d.stripes[id].TryRLock()
	} else {
		ok = d.stripes[id].TryLock()
	}
	if ok {
		d.avail[id].Store(false)
	}
	return ok
}

// Release gives back a stripe previously won from TrySelect/Select, and
// wakes any cursor blocked in Select waiting on this or any other stripe.
func (d *Directory) Release(id int, mode Mode) {
	d.avail[id].Store(true)
	if mode == Shared {
		d.stripes[id].RUnlock()
	} else {
		d.stripes[id].Unlock()
	}
	d.mu.Lock()
	d.cond.Broadcast()
	d.mu.Unlock()
}

// TrySelect performs one non-blocking sweep over ids (candidates should
// already be filtered to a cursor's own unvisited set) in the order given
// — cursors pass reverse registration order so they can pop from the tail
// of their own unvisited slice in O(1) on a hit. Returns the id won, or
// false if every candidate was busy.
func (d *Directory) TrySelect(ids []int, mode Mode) (int, bool) {
	for _, id := range ids {
		if d.tryAcquire(id, mode) {
			return id, true
		}
	}
	return 0, false
}

// Select blocks until one of ids can be acquired. ids must be non-empty;
// an empty unvisited set is the cursor's own "exhausted" condition and
// should never reach here. Select re-sweeps ids every time some stripe,
// anywhere in the directory, is released, so it wakes promptly even though
// it does not know in advance which stripe will free up next.
func (d *Directory) Select(ids []int, mode Mode) int {
	d.mu.Lock()
	for {
		if id, ok := d.TrySelect(ids, mode); ok {
			d.mu.Unlock()
			return id
		}
		d.cond.Wait()
	}
}
