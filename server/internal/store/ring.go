package store

// Ring is a fixed-capacity FIFO buffer. Pushing onto a full ring evicts the
// oldest element. The zero value is unusable; use NewRing.
type Ring[T any] struct {
	buf   []T
	start int // index of the oldest element
	n     int
}

// NewRing returns an empty ring holding at most capacity elements.
// It panics if capacity is not positive.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("store: ring capacity must be positive")
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v, evicting the oldest element when the ring is full.
// It reports whether an element was evicted.
func (r *Ring[T]) Push(v T) bool {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = v
		r.n++
		return false
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
	return true
}

// Len returns the number of elements held.
func (r *Ring[T]) Len() int { return r.n }

// Cap returns the maximum number of elements.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Slice returns a copy of the elements, oldest first.
func (r *Ring[T]) Slice() []T {
	out := make([]T, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Update calls fn with a pointer to each element, oldest first, until fn
// returns true. It reports whether fn stopped the walk.
func (r *Ring[T]) Update(fn func(*T) bool) bool {
	for i := 0; i < r.n; i++ {
		if fn(&r.buf[(r.start+i)%len(r.buf)]) {
			return true
		}
	}
	return false
}
