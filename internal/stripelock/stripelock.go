// Copyright 2020 Nathan Taylor (nbtaylor@gmail.com)
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package stripelock implements the per-stripe reader/writer lock described
// in the striped-vector design: a shared/exclusive mutex whose state is a
// single packed word, tested and registered with a CAS loop and woken via a
// condition variable. The packing and registration scheme mirrors
// github.com/dijkstracula/go-ilock's Mutex, collapsed from that package's
// four intention-lock states (IS/IX/S/X) down to the two this module
// actually needs (shared/exclusive), plus a non-blocking TryLock/TryRLock
// pair the stripe directory's opportunistic selection requires.
package stripelock

import (
	"sync"
	"sync/atomic"
)

const (
	sMask = (1 << 32) - 1
	xMask = ^uint64(sMask)
	xShift = 32
)

func extractS(state uint64) uint64 { return state & sMask }
func setS(state, val uint64) uint64 {
	return (state &^ uint64(sMask)) | (val & sMask)
}

func extractX(state uint64) uint64 { return (state & xMask) >> xShift }
func setX(state, val uint64) uint64 {
	return (state &^ xMask) | ((val & sMask) << xShift)
}

func compatibleWithS(state uint64) bool { return extractX(state) == 0 }
func compatibleWithX(state uint64) bool { return state == 0 }

// RWMutex is the per-stripe lock, plus the geometry it guards (the offset
// and length of the stripe's slice of the container's backing buffer).
// Geometry fields are mutated only while the owning container's gate is
// held exclusively (see internal/gate); readers of the geometry always
// hold at least a shared gate hold, so RWMutex itself does not need to
// separately guard them.
type RWMutex struct {
	mu    sync.Mutex
	cond  *sync.Cond
	state uint64

	Offset int
	Length int
}

// New returns a stripe lock with the given initial geometry.
func New(offset, length int) *RWMutex {
	m := &RWMutex{Offset: offset, Length: length}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// registerS attempts to add one shared holder and reports whether doing so
// was compatible with the state it observed immediately beforehand.
func (m *RWMutex) registerS() bool {
	for {
		state := atomic.LoadUint64(&m.state)
		newState := setS(state, extractS(state)+1)
		if atomic.CompareAndSwapUint64(&m.state, state, newState) {
			return compatibleWithS(state)
		}
	}
}

func (m *RWMutex) registerX() bool {
	for {
		state := atomic.LoadUint64(&m.state)
		newState := setX(state, extractX(state)+1)
		if atomic.CompareAndSwapUint64(&m.state, state, newState) {
			return compatibleWithX(state)
		}
	}
}

// RLock blocks until the stripe can be taken for shared (read) access.
func (m *RWMutex) RLock() {
	m.mu.Lock()
	for !compatibleWithS(atomic.LoadUint64(&m.state)) {
		m.cond.Wait()
	}
	m.registerS()
	m.mu.Unlock()
}

// TryRLock attempts to take the stripe for shared access without blocking.
func (m *RWMutex) TryRLock() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !compatibleWithS(atomic.LoadUint64(&m.state)) {
		return false
	}
	m.registerS()
	return true
}

// RUnlock releases a shared hold taken by RLock/TryRLock.
func (m *RWMutex) RUnlock() {
	var val uint64
	for {
		state := atomic.LoadUint64(&m.state)
		val = extractS(state) - 1
		newState := setS(state, val)
		if atomic.CompareAndSwapUint64(&m.state, state, newState) {
			break
		}
	}
	if val == 0 {
		m.mu.Lock()
		m.cond.Broadcast()
		m.mu.Unlock()
	}
}

// Lock blocks until the stripe can be taken for exclusive (write) access.
func (m *RWMutex) Lock() {
	m.mu.Lock()
	for !compatibleWithX(atomic.LoadUint64(&m.state)) {
		m.cond.Wait()
	}
	m.registerX()
	m.mu.Unlock()
}

// TryLock attempts to take the stripe for exclusive access without blocking.
func (m *RWMutex) TryLock() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !compatibleWithX(atomic.LoadUint64(&m.state)) {
		return false
	}
	m.registerX()
	return true
}

// Unlock releases an exclusive hold taken by Lock/TryLock.
func (m *RWMutex) Unlock() {
	var val uint64
	for {
		state := atomic.LoadUint64(&m.state)
		val = extractX(state) - 1
		newState := setX(state, val)
		if atomic.CompareAndSwapUint64(&m.state, state, newState) {
			break
		}
	}
	if val == 0 {
		m.mu.Lock()
		m.cond.Broadcast()
		m.mu.Unlock()
	}
}

// Reset reassigns geometry. Callers must hold the owning container's gate
// exclusively and must not have this stripe locked by any cursor when they
// call it; it does not itself synchronize against RLock/Lock.
func (m *RWMutex) Reset(offset, length int) {
	m.Offset = offset
	m.Length = length
}
