package bridge

import "sync"

// Slot is a one-shot handoff cell: a background task Puts a value, the poll
// loop Takes it exactly once.
//
// The slot relies on call-once discipline rather than enforcing it: a second
// Put before the value is taken replaces the first (last write wins).
// Neither side ever blocks.
type Slot[T any] struct {
	mu     sync.Mutex
	value  T
	filled bool
}

// NewSlot creates an empty slot.
func NewSlot[T any]() *Slot[T] {
	return &Slot[T]{}
}

// Put stores v. Called only by the owning background task.
func (s *Slot[T]) Put(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
	s.filled = true
}

// Take returns the stored value and empties the slot.
// Returns false if nothing has been put since the last Take.
func (s *Slot[T]) Take() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	if !s.filled {
		return zero, false
	}
	v := s.value
	s.value = zero
	s.filled = false
	return v, true
}

// Filled reports whether a value is waiting to be taken.
func (s *Slot[T]) Filled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filled
}
