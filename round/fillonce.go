package round

// FillOnce is a slot that can be written at most once, the write-once
// discipline spec §9 recommends in place of the source's raw owning
// pointers with explicit destructor sweeps: a zero FillOnce is the empty
// state, and Set reports whether the write actually happened.
type FillOnce[T any] struct {
	value T
	set   bool
}

// Set stores v if the slot is empty. It reports false, leaving the slot
// unchanged, if the slot was already written — the "each slot written at
// most once" invariant of spec §3.
func (f *FillOnce[T]) Set(v T) bool {
	if f.set {
		return false
	}
	f.value = v
	f.set = true
	return true
}

// Get returns the stored value and whether one has been set.
func (f *FillOnce[T]) Get() (T, bool) {
	return f.value, f.set
}

// IsSet reports whether the slot has been written.
func (f *FillOnce[T]) IsSet() bool {
	return f.set
}
