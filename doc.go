// Package stripevec implements a concurrent, chunked sequence container —
// the "striped vector" — that exposes parallel iteration over a fixed-size
// contiguous buffer by partitioning it into a number of stripes fixed at
// construction, equal-sized except that the last one also absorbs the
// remainder, each guarded by its own reader/writer lock.
//
// Multiple goroutines may traverse the same logical sequence simultaneously
// via independent Cursors; each cursor opportunistically acquires whichever
// stripe it can, so goroutines fan out across stripes with minimal
// contention while still observing the per-element exclusion guarantees of
// a conventional reader/writer lock. Structural mutation (anything that
// changes the element count, hence the stripe geometry) goes through a
// scoped WriteSession instead, which takes the container's gate
// exclusively, drains any live cursors first, and rebuilds stripe
// boundaries on release.
//
// Ordering across stripes within a single cursor is non-deterministic by
// design: stripes are visited in whatever order contention happens to
// allow, exactly once each. Within a stripe, elements are always yielded
// in ascending index order.
//
// The locking discipline is two-tiered: a container-wide gate (internal/gate)
// coordinates structural mutation against iteration, using a writer-intent
// signal to keep a pending structural writer from starving behind an
// unbounded stream of readers; per-stripe locks (internal/stripelock)
// serialize element access within a stripe. A cursor never holds more than
// one stripe lock at a time, and the lock order is always gate before
// stripe, one level deep, so no lock-ordering cycle is possible.
package stripevec
