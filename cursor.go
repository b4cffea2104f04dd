package stripevec

import "github.com/nbtaylor/stripevec/internal/directory"

type cursorState int

const (
	curIdle cursorState = iota
	curInStripe
	curExhausted
)

// visit is one stripe a cursor still owes a walk of, paired with the local
// sub-range (relative to the stripe's own offset) the cursor must traverse
// within it.
type visit struct {
	stripe     int
	start, end int
}

// Cursor is the streaming traversal state over a range: at any instant it
// is idle, holding exactly one stripe lock with a linear position inside
// it, or exhausted. It holds a shared hold on the container's gate for its
// entire lifetime, released automatically on exhaustion or explicit Close.
//
// References returned by Advance borrow from the container and remain
// valid only until the next Advance call or until the cursor is closed --
// this is the streaming contract: do not retain a returned pointer across
// calls.
type Cursor[T any] struct {
	c         *Container[T]
	mode      directory.Mode
	unvisited []visit
	state     cursorState

	curStripe   int
	curLocalPos int
	curLocalEnd int

	gateHeld bool
}

// Advance yields the next element, or (nil, false) once the cursor is
// exhausted. Reaching the end is a normal "done" result, never an error.
func (cur *Cursor[T]) Advance() (*T, bool) {
	for {
		switch cur.state {
		case curExhausted:
			return nil, false

		case curInStripe:
			if cur.curLocalPos < cur.curLocalEnd {
				offset := cur.c.dir.At(cur.curStripe).Offset
				idx := offset + cur.curLocalPos
				cur.curLocalPos++
				return &cur.c.data[idx], true
			}
			cur.c.dir.Release(cur.curStripe, cur.mode)
			cur.state = curIdle

		case curIdle:
			cur.advanceIdle()
		}
	}
}

// advanceIdle runs exactly one selection attempt -- a non-blocking sweep
// over the unvisited set first, in reverse registration order, falling
// back to a blocking wait on any remaining stripe if that sweep comes up
// empty. It always makes some progress: either the cursor enters a stripe,
// or a zero-length sub-range is discarded (not counted as a commit) and
// the unvisited set shrinks by one, or the set was already empty and the
// cursor becomes exhausted.
func (cur *Cursor[T]) advanceIdle() {
	if len(cur.unvisited) == 0 {
		cur.finish()
		return
	}

	// Reverse registration order: lets a hit pop from the tail of the
	// cursor's own unvisited slice in O(1).
	ids := make([]int, len(cur.unvisited))
	for i, v := range cur.unvisited {
		ids[len(ids)-1-i] = v.stripe
	}

	if id, ok := cur.c.dir.TrySelect(ids, cur.mode); ok {
		cur.enterStripe(cur.popVisit(id))
		return
	}
	id := cur.c.dir.Select(ids, cur.mode)
	cur.enterStripe(cur.popVisit(id))
}

func (cur *Cursor[T]) popVisit(id int) visit {
	for i := len(cur.unvisited) - 1; i >= 0; i-- {
		v := cur.unvisited[i]
		if v.stripe == id {
			last := len(cur.unvisited) - 1
			cur.unvisited[i] = cur.unvisited[last]
			cur.unvisited = cur.unvisited[:last]
			return v
		}
	}
	panic("stripevec: selected stripe was not in the cursor's unvisited set")
}

func (cur *Cursor[T]) enterStripe(v visit) {
	if v.start == v.end {
		// Zero-length skip: the stripe's current length was zero for this
		// sub-range. Release without ever having yielded from it, and
		// without counting it as committed; the caller's loop retries
		// selection against the now-smaller unvisited set.
		cur.c.dir.Release(v.stripe, cur.mode)
		return
	}
	cur.curStripe = v.stripe
	cur.curLocalPos = v.start
	cur.curLocalEnd = v.end
	cur.state = curInStripe
}

func (cur *Cursor[T]) finish() {
	cur.state = curExhausted
	if cur.gateHeld {
		cur.c.gate.RUnlock()
		cur.gateHeld = false
	}
}

// Close releases whatever stripe lock the cursor currently holds, plus its
// gate hold, and marks the cursor exhausted. Idempotent, and a no-op on an
// already-exhausted cursor. Go has no destructors to run this implicitly on
// scope exit, so callers that abandon a cursor before draining it to
// exhaustion must call Close themselves (typically via defer).
func (cur *Cursor[T]) Close() {
	if cur.state == curInStripe {
		cur.c.dir.Release(cur.curStripe, cur.mode)
	}
	cur.finish()
}
