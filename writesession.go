package stripevec

import (
	"iter"

	"go.uber.org/zap"
)

// WriteSession is the scoped exclusive structural handle returned by
// Container.StructuralWrite. While live, the stripe directory is logically
// undefined -- callers mutate the buffer as a flat sequence through the
// methods below, never through a Cursor. Close (typically deferred)
// recomputes stripe geometry from the post-mutation length and releases
// the gate; it runs on every exit path, including a panicking mutation,
// because geometry is derived purely from the buffer's length at the time
// Close runs and is therefore always consistent regardless of how the
// session got there.
type WriteSession[T any] struct {
	c        *Container[T]
	released bool
}

// Len returns the session's current element count.
func (w *WriteSession[T]) Len() int { return len(w.c.data) }

// At returns a pointer to the element at i for in-place mutation.
func (w *WriteSession[T]) At(i int) *T { return &w.c.data[i] }

// Append adds items to the end of the buffer.
func (w *WriteSession[T]) Append(items ...T) {
	w.c.data = append(w.c.data, items...)
}

// Truncate shortens the buffer to n elements. n must be in [0, Len()].
func (w *WriteSession[T]) Truncate(n int) {
	if n < 0 || n > len(w.c.data) {
		panic(newViolation(ErrRangeOutOfBounds, "truncate length %d out of bounds for length %d", n, len(w.c.data)))
	}
	w.c.data = w.c.data[:n]
}

// Replace overwrites the element at i.
func (w *WriteSession[T]) Replace(i int, v T) {
	w.c.data[i] = v
}

// All ranges over every (index, value) pair currently in the buffer, in
// order -- the Go expression of candy_cane's flat Deref<Target = Vec<T>>
// view of the buffer for the duration of a write session.
func (w *WriteSession[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, v := range w.c.data {
			if !yield(i, v) {
				return
			}
		}
	}
}

// Close ends the session: stripe geometry is recomputed from the
// post-mutation buffer length and published, writer intent is cleared, and
// the gate is released exclusively -- in that order. Idempotent.
//
// Close never swallows a panic -- a mutation that panics still must give up
// the gate, since geometry is derived purely from the buffer's length at
// the time Close runs. If Close is itself running because a deferred call
// is unwinding a panic, it recovers just long enough to log the panic value
// at Error and release the gate, then re-panics with the original value so
// the panic still reaches the caller.
func (w *WriteSession[T]) Close() {
	if w.released {
		return
	}
	w.released = true

	if r := recover(); r != nil {
		w.c.rebuildGeometryLocked()
		w.c.gate.ClearWriterIntent()
		w.c.logger.Error("structural write panicked",
			zap.Any("panic", r), zap.Int("length", len(w.c.data)))
		w.c.gate.Unlock()
		panic(r)
	}

	w.c.rebuildGeometryLocked()
	w.c.gate.ClearWriterIntent()
	w.c.logger.Debug("structural write end", zap.Int("length", len(w.c.data)))
	w.c.gate.Unlock()
}
