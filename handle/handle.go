// Package handle provides generational slot-map tables for long-lived
// GPU resources.
//
// A Table hands out a Handle for every inserted value. Handles stay valid
// across insertion and removal of other entries, and a removed handle never
// resolves again, even after its slot has been reused. Values are stored
// densely so iteration touches only live entries.
//
// Handle types are parameterised by the stored value type, so a
// Handle[Image] cannot be passed where a Handle[Pipeline] is expected.
package handle

import (
	"fmt"
	"iter"
	"math"
)

// Handle is an opaque, generation-checked reference into a Table[T].
//
// The zero Handle is never issued by a table and never resolves.
type Handle[T any] struct {
	index uint32
	gen   uint32
}

// IsZero reports whether h is the zero handle.
func (h Handle[T]) IsZero() bool { return h.gen == 0 }

// String formats the handle as index and generation, e.g. "3v2".
func (h Handle[T]) String() string {
	if h.IsZero() {
		return "null"
	}
	return fmt.Sprintf("%dv%d", h.index, h.gen)
}

// slot is an entry in the sparse index. When occupied, dense points into
// the dense arrays; when free, next links to the next free slot.
type slot struct {
	gen   uint32 // odd: occupied, even: free
	dense uint32
	next  uint32
}

const noSlot = math.MaxUint32

// Table is a dense slot map. The zero value is ready to use.
//
// Table is not safe for concurrent use.
type Table[T any] struct {
	slots    []slot
	values   []T
	owners   []uint32 // owners[i] is the slot index of values[i]
	freeHead uint32
	freeLen  int
}

// Insert stores v and returns a fresh handle for it.
func (t *Table[T]) Insert(v T) Handle[T] {
	if t.freeLen == 0 {
		t.freeHead = noSlot
	}

	var idx uint32
	if t.freeHead != noSlot {
		idx = t.freeHead
		t.freeHead = t.slots[idx].next
		t.freeLen--
	} else {
		idx = uint32(len(t.slots))
		t.slots = append(t.slots, slot{})
	}

	s := &t.slots[idx]
	s.gen++ // free (even) -> occupied (odd)
	s.dense = uint32(len(t.values))
	s.next = noSlot

	t.values = append(t.values, v)
	t.owners = append(t.owners, idx)

	return Handle[T]{index: idx, gen: s.gen}
}

// lookup returns the dense index for h, or false if h is stale.
func (t *Table[T]) lookup(h Handle[T]) (uint32, bool) {
	if h.IsZero() || int(h.index) >= len(t.slots) {
		return 0, false
	}
	s := t.slots[h.index]
	if s.gen != h.gen {
		return 0, false
	}
	return s.dense, true
}

// Get returns the value referenced by h.
func (t *Table[T]) Get(h Handle[T]) (T, bool) {
	d, ok := t.lookup(h)
	if !ok {
		var zero T
		return zero, false
	}
	return t.values[d], true
}

// Ptr returns a pointer to the value referenced by h, or nil if h is stale.
// The pointer is invalidated by the next Insert, Remove or Drain.
func (t *Table[T]) Ptr(h Handle[T]) *T {
	d, ok := t.lookup(h)
	if !ok {
		return nil
	}
	return &t.values[d]
}

// Contains reports whether h resolves to a live entry.
func (t *Table[T]) Contains(h Handle[T]) bool {
	_, ok := t.lookup(h)
	return ok
}

// Len returns the number of live entries.
func (t *Table[T]) Len() int { return len(t.values) }

// Remove deletes the entry referenced by h and returns its value.
// Removing a stale handle is a no-op that reports false.
func (t *Table[T]) Remove(h Handle[T]) (T, bool) {
	d, ok := t.lookup(h)
	if !ok {
		var zero T
		return zero, false
	}

	v := t.values[d]

	// Swap-remove from the dense arrays and patch the moved entry's slot.
	last := uint32(len(t.values) - 1)
	if d != last {
		t.values[d] = t.values[last]
		t.owners[d] = t.owners[last]
		t.slots[t.owners[d]].dense = d
	}
	var zero T
	t.values[last] = zero
	t.values = t.values[:last]
	t.owners = t.owners[:last]

	t.release(h.index)
	return v, true
}

// release marks slot idx free. A slot whose generation would wrap is
// retired rather than recycled, so old handles can never match it again.
func (t *Table[T]) release(idx uint32) {
	s := &t.slots[idx]
	if s.gen >= math.MaxUint32-1 {
		s.gen = math.MaxUint32 - 1
		return
	}
	s.gen++ // occupied (odd) -> free (even)
	if t.freeLen == 0 {
		s.next = noSlot
	} else {
		s.next = t.freeHead
	}
	t.freeHead = idx
	t.freeLen++
}

// All iterates over every live entry exactly once, in dense order.
// The table must not be modified during iteration.
func (t *Table[T]) All() iter.Seq2[Handle[T], T] {
	return func(yield func(Handle[T], T) bool) {
		for d, v := range t.values {
			idx := t.owners[d]
			if !yield(Handle[T]{index: idx, gen: t.slots[idx].gen}, v) {
				return
			}
		}
	}
}

// Values iterates over pointers to every live value, allowing in-place
// updates. The table must not be modified structurally during iteration.
func (t *Table[T]) Values() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for d := range t.values {
			if !yield(&t.values[d]) {
				return
			}
		}
	}
}

// Drain removes every entry from the table, yielding each one. Entries not
// yet yielded when the loop stops early are still removed.
func (t *Table[T]) Drain() iter.Seq2[Handle[T], T] {
	return func(yield func(Handle[T], T) bool) {
		for t.Len() > 0 {
			last := len(t.values) - 1
			idx := t.owners[last]
			h := Handle[T]{index: idx, gen: t.slots[idx].gen}
			v, _ := t.Remove(h)
			if !yield(h, v) {
				t.Clear()
				return
			}
		}
	}
}

// Clear removes every entry without yielding them. Outstanding handles
// become stale.
func (t *Table[T]) Clear() {
	for t.Len() > 0 {
		idx := t.owners[len(t.owners)-1]
		t.Remove(Handle[T]{index: idx, gen: t.slots[idx].gen})
	}
}
