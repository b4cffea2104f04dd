// Package gate implements the container-wide reader/writer lock described
// in the striped-vector design, plus the writer-intent signalling channel
// that keeps a pending structural writer from starving behind an unbounded
// stream of readers. The underlying shared/exclusive discipline reuses
// internal/stripelock.RWMutex (the gate is, mechanically, one more
// reader/writer lock with zero-length geometry); the intent channel is the
// named, testable version of the flag-plus-condvar pattern the source
// system (candy_cane's `is_waiting_mut` / `waiting_mut_wakeup`) used ad hoc.
package gate

import (
	"sync"

	"github.com/nbtaylor/stripevec/internal/stripelock"
)

// Gate is the container-wide lock. Readers acquire it in two steps: wait
// out any pending writer intent, then take the underlying lock in shared
// mode. A writer announces intent, drains existing readers by taking the
// lock exclusively, then clears intent on release.
type Gate struct {
	lock *stripelock.RWMutex

	intentMu sync.Mutex
	intentCV *sync.Cond
	pending  bool
}

// New returns an unheld gate.
func New() *Gate {
	g := &Gate{lock: stripelock.New(0, 0)}
	g.intentCV = sync.NewCond(&g.intentMu)
	return g
}

// RLock acquires the gate in shared mode. It first waits for any pending
// writer intent to clear, so a writer that has announced intent but not
// yet taken the gate cannot be overrun by a continuous stream of new
// readers.
func (g *Gate) RLock() {
	g.intentMu.Lock()
	for g.pending {
		g.intentCV.Wait()
	}
	g.intentMu.Unlock()
	g.lock.RLock()
}

// RUnlock releases a shared hold taken by RLock.
func (g *Gate) RUnlock() {
	g.lock.RUnlock()
}

// BeginWriterIntent sets the pending-writer flag. Call this before Lock.
func (g *Gate) BeginWriterIntent() {
	g.intentMu.Lock()
	g.pending = true
	g.intentMu.Unlock()
}

// Lock acquires the gate exclusively, blocking until all existing shared
// holders have released.
func (g *Gate) Lock() {
	g.lock.Lock()
}

// BroadcastIntent wakes every reader waiting on the intent condition
// variable without necessarily clearing the flag. Called immediately after
// a writer wins the exclusive hold (per the design's documented ordering,
// this is a broadcast readers will simply re-wait on, since pending is
// still true at that point) and again, with the flag cleared, on release.
func (g *Gate) BroadcastIntent() {
	g.intentMu.Lock()
	g.intentCV.Broadcast()
	g.intentMu.Unlock()
}

// ClearWriterIntent clears the pending-writer flag and wakes waiting
// readers. Call this before Unlock on every writer exit path, including
// panic unwinds.
func (g *Gate) ClearWriterIntent() {
	g.intentMu.Lock()
	g.pending = false
	g.intentCV.Broadcast()
	g.intentMu.Unlock()
}

// Unlock releases an exclusive hold taken by Lock.
func (g *Gate) Unlock() {
	g.lock.Unlock()
}

// TryLock attempts to take the gate exclusively without blocking and
// without touching writer-intent signalling. Used by operations (such as
// consuming the container into a plain slice) that must observe "no
// cursors and no session are live" as a one-shot check rather than a
// queued acquisition.
func (g *Gate) TryLock() bool {
	return g.lock.TryLock()
}
