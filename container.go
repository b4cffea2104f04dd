package stripevec

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/nbtaylor/stripevec/internal/directory"
	"github.com/nbtaylor/stripevec/internal/gate"
)

// Container is the striped vector: a fixed-size contiguous buffer of
// element type T, partitioned into a number of stripes S fixed at
// construction, each guarded by its own reader/writer lock, plus a container-wide gate
// coordinating structural mutation against iteration.
type Container[T any] struct {
	gate *gate.Gate
	dir  *directory.Directory
	data []T

	stripeCount int
	base        atomic.Int64 // floor(len(data) / stripeCount); release/acquire

	logger *zap.Logger
}

// New returns an empty container with S stripes (default 8; override with
// WithStripeCount). Panics if S < 1.
func New[T any](opts ...Option) *Container[T] {
	return build[T](nil, opts)
}

// FromSlice returns a container taking ownership of items: the geometry is
// computed immediately from len(items). Callers must not retain or mutate
// items after this call -- this is a move, not a copy, mirroring
// candy_cane's from_vec.
func FromSlice[T any](items []T, opts ...Option) *Container[T] {
	return build[T](items, opts)
}

func build[T any](items []T, opts []Option) *Container[T] {
	cfg := newConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.stripeCount <= 0 {
		panic(newViolation(ErrZeroStripes, "stripe count must be >= 1, got %d", cfg.stripeCount))
	}

	c := &Container[T]{
		gate:        gate.New(),
		dir:         directory.New(cfg.stripeCount),
		data:        items,
		stripeCount: cfg.stripeCount,
		logger:      cfg.logger,
	}
	c.rebuildGeometryLocked()
	c.logger.Debug("container constructed",
		zap.Int("stripes", cfg.stripeCount),
		zap.Int("length", len(items)))
	return c
}

// Len returns the current element count. Acquires the gate in shared mode
// and releases it before returning; infallible.
func (c *Container[T]) Len() int {
	c.gate.RLock()
	n := len(c.data)
	c.gate.RUnlock()
	return n
}

// ReadCursor returns a cursor over r that takes each stripe it visits in
// shared mode.
func (c *Container[T]) ReadCursor(r Range) *Cursor[T] {
	return c.newCursor(r, directory.Shared)
}

// WriteCursor returns a cursor over r that takes each stripe it visits
// exclusively, for striped in-place element mutation. It never changes the
// element count; only StructuralWrite does that.
func (c *Container[T]) WriteCursor(r Range) *Cursor[T] {
	return c.newCursor(r, directory.Exclusive)
}

// StructuralWrite returns a scoped exclusive handle for mutations that
// change the buffer's length (append, truncate, replace-in-place is also
// available but doesn't strictly need a structural write -- it is offered
// here anyway since a session already holds the whole buffer exclusively).
// It signals writer intent, blocks until the gate can be taken exclusively
// (draining any live cursors), and returns once it holds the gate.
func (c *Container[T]) StructuralWrite() *WriteSession[T] {
	c.gate.BeginWriterIntent()
	c.gate.Lock()
	c.gate.BroadcastIntent()
	c.logger.Debug("structural write begin", zap.Int("length", len(c.data)))
	return &WriteSession[T]{c: c}
}

// IntoSlice consumes the container and returns its backing storage. It
// panics if any cursor or write session is currently live -- there is no
// borrow checker to enforce this at compile time in Go, so it is enforced
// here by a non-blocking exclusive gate acquisition that must succeed.
func (c *Container[T]) IntoSlice() []T {
	if !c.gate.TryLock() {
		panic(newViolation(ErrLiveBorrow, "IntoSlice called while a cursor or write session is live"))
	}
	defer c.gate.Unlock()
	return c.data
}

// rebuildGeometryLocked recomputes stripe offsets/lengths and publishes
// base from the current buffer length. Callers must already hold the gate
// exclusively (construction, and WriteSession.Close).
func (c *Container[T]) rebuildGeometryLocked() {
	n := len(c.data)
	s := c.stripeCount
	base := n / s
	for k := 0; k < s; k++ {
		length := base
		if k == s-1 {
			length += n % s
		}
		c.dir.At(k).Reset(k*base, length)
	}
	c.base.Store(int64(base))
}

// stripeOf maps an element index to its owning stripe, clamping to the
// last stripe the same way the last stripe absorbs the length remainder --
// without this clamp, an index inside the last stripe's absorbed remainder
// would divide out to a stripe id >= S, one past the directory's bounds.
func (c *Container[T]) stripeOf(base, i int) int {
	if base == 0 {
		return c.stripeCount - 1
	}
	k := i / base
	if k > c.stripeCount-1 {
		k = c.stripeCount - 1
	}
	return k
}

// resolveRangeLocked maps a Range to the ordered set of per-stripe visits
// a cursor must make. Callers must hold the gate (shared is sufficient;
// length and geometry cannot change while any gate hold, shared or
// exclusive, is live).
func (c *Container[T]) resolveRangeLocked(r Range) []visit {
	n := len(c.data)
	s, e := r.resolve(n)
	if s < 0 || e > n || s > e {
		panic(newViolation(ErrRangeOutOfBounds, "range [%d, %d) out of bounds for length %d", s, e, n))
	}
	if s == e {
		return nil
	}

	base := int(c.base.Load())
	startStripe := c.stripeOf(base, s)
	endStripe := c.stripeOf(base, e-1) // stripe containing the last included index

	visits := make([]visit, 0, endStripe-startStripe+1)
	for k := startStripe; k <= endStripe; k++ {
		stripeStart := k * base
		lenK := c.dir.At(k).Length

		var lo, hi int
		switch {
		case k == startStripe && k == endStripe:
			lo, hi = s-stripeStart, e-stripeStart
		case k == startStripe:
			lo, hi = s-stripeStart, lenK
		case k == endStripe:
			lo, hi = 0, e-stripeStart
		default:
			lo, hi = 0, lenK
		}
		visits = append(visits, visit{stripe: k, start: lo, end: hi})
	}
	return visits
}

func (c *Container[T]) newCursor(r Range, mode directory.Mode) (cur *Cursor[T]) {
	c.gate.RLock()
	committed := false
	defer func() {
		if !committed {
			c.gate.RUnlock()
		}
	}()

	visits := c.resolveRangeLocked(r)
	committed = true
	return &Cursor[T]{c: c, mode: mode, unvisited: visits, state: curIdle, gateHeld: true}
}
