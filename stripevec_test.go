package stripevec_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbtaylor/stripevec"
)

func seq(n int) []int {
	v := make([]int, n)
	for i := range v {
		v[i] = i
	}
	return v
}

func drain(cur *stripevec.Cursor[int]) (count int, sum int64) {
	for {
		v, ok := cur.Advance()
		if !ok {
			return
		}
		count++
		sum += int64(*v)
	}
}

// Scenario 1 (spec.md §8): N=4000, S=1, single-threaded full scan.
func TestSingleThreadedFullScanSumAndCount(t *testing.T) {
	c := stripevec.FromSlice(seq(4000), stripevec.WithStripeCount(1))
	cur := c.ReadCursor(stripevec.FullRange())
	count, sum := drain(cur)
	assert.Equal(t, 4000, count)
	assert.EqualValues(t, 3999*4000/2, sum)
}

// Scenario 2: N=4000, S=3, four concurrent readers each walking the full
// range concurrently. Every reader must independently observe the full
// multiset regardless of how the other three interleave against it.
func TestConcurrentReadersEachObserveFullMultiset(t *testing.T) {
	c := stripevec.FromSlice(seq(4000), stripevec.WithStripeCount(3))

	const readers = 4
	barrier := make(chan bool, readers)
	for i := 0; i < readers; i++ {
		go func() {
			cur := c.ReadCursor(stripevec.FullRange())
			count, sum := drain(cur)
			assert.Equal(t, 4000, count)
			assert.EqualValues(t, 3999*4000/2, sum)
			barrier <- true
		}()
	}
	for i := 0; i < readers; i++ {
		<-barrier
	}
}

// Scenario 3: N=4000, S=3, seven concurrent write cursors over the full
// range, each incrementing every element it visits by one. No element
// count changes, and every writer's traversal must still account for
// every element exactly once -- mutual exclusion at the stripe level is
// what keeps increments from being lost.
func TestConcurrentWriteCursorsIncrementEveryElementOnce(t *testing.T) {
	const writers = 7
	c := stripevec.FromSlice(seq(4000), stripevec.WithStripeCount(3))

	barrier := make(chan bool, writers)
	for i := 0; i < writers; i++ {
		go func() {
			cur := c.WriteCursor(stripevec.FullRange())
			for {
				v, ok := cur.Advance()
				if !ok {
					break
				}
				*v++
			}
			barrier <- true
		}()
	}
	for i := 0; i < writers; i++ {
		<-barrier
	}

	got := c.IntoSlice()
	require.Len(t, got, 4000)
	for i, v := range got {
		assert.Equal(t, i+writers, v, "element %d should have been incremented by every writer exactly once", i)
	}
}

// Scenario 6: a live read cursor must block a concurrent StructuralWrite
// until the cursor is closed, after which the write proceeds and a fresh
// cursor observes the new length.
func TestStructuralWriteWaitsForLiveReadCursor(t *testing.T) {
	c := stripevec.FromSlice(seq(100), stripevec.WithStripeCount(4))

	cur := c.ReadCursor(stripevec.FullRange())
	v, ok := cur.Advance()
	require.True(t, ok)
	_ = v

	writeStarted := make(chan struct{})
	writeDone := make(chan struct{})
	go func() {
		close(writeStarted)
		ws := c.StructuralWrite()
		ws.Truncate(50)
		ws.Close()
		close(writeDone)
	}()
	<-writeStarted

	select {
	case <-writeDone:
		t.Fatal("structural write completed while a read cursor was still live")
	default:
	}

	cur.Close()
	<-writeDone

	fresh := c.ReadCursor(stripevec.FullRange())
	count, _ := drain(fresh)
	assert.Equal(t, 50, count)
}

func TestFromSliceIntoSliceRoundTrip(t *testing.T) {
	want := seq(123)
	input := append([]int(nil), want...)
	c := stripevec.FromSlice(input, stripevec.WithStripeCount(5))
	assert.Equal(t, want, c.IntoSlice())
}

// Two sequential full-range read cursors over an unmodified container must
// yield the same multiset both times.
func TestSequentialReadCursorsAreIdempotent(t *testing.T) {
	c := stripevec.FromSlice(seq(777), stripevec.WithStripeCount(6))

	first := c.ReadCursor(stripevec.FullRange())
	c1, s1 := drain(first)

	second := c.ReadCursor(stripevec.FullRange())
	c2, s2 := drain(second)

	assert.Equal(t, c1, c2)
	assert.Equal(t, s1, s2)
}

func TestWriteCursorDoesNotChangeLength(t *testing.T) {
	c := stripevec.FromSlice(seq(40), stripevec.WithStripeCount(4))
	cur := c.WriteCursor(stripevec.Between(10, 20))
	for {
		v, ok := cur.Advance()
		if !ok {
			break
		}
		*v *= 2
	}
	assert.Equal(t, 40, c.Len())
}

func TestCloseIsIdempotent(t *testing.T) {
	c := stripevec.FromSlice(seq(10), stripevec.WithStripeCount(2))
	cur := c.ReadCursor(stripevec.FullRange())
	cur.Close()
	assert.NotPanics(t, func() {
		cur.Close()
	})
}

func TestConcurrentStructuralWritesSerialize(t *testing.T) {
	c := stripevec.FromSlice(seq(200), stripevec.WithStripeCount(8))

	var wg sync.WaitGroup
	const writers = 5
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			ws := c.StructuralWrite()
			ws.Append(0)
			ws.Close()
		}()
	}
	wg.Wait()

	assert.Equal(t, 205, c.Len())
}
