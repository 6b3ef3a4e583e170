package buffer

// ring is a growable FIFO over a circular slice. It is not safe for
// concurrent use; the buffers guard it with their own lock.
type ring[T any] struct {
	buf   []T
	head  int
	count int
}

func newRing[T any](hint int) ring[T] {
	if hint < 1 {
		hint = 1
	}
	if hint > 1024 {
		hint = 1024
	}
	return ring[T]{buf: make([]T, hint)}
}

func (r *ring[T]) len() int { return r.count }

func (r *ring[T]) pushBack(item T) {
	if r.count == len(r.buf) {
		r.grow()
	}
	r.buf[(r.head+r.count)%len(r.buf)] = item
	r.count++
}

func (r *ring[T]) popFront() T {
	var zero T
	item := r.buf[r.head]
	r.buf[r.head] = zero
	r.head = (r.head + 1) % len(r.buf)
	r.count--
	return item
}

// dropFront discards the n oldest items and returns how many were dropped.
func (r *ring[T]) dropFront(n int) int {
	if n > r.count {
		n = r.count
	}
	for i := 0; i < n; i++ {
		r.popFront()
	}
	return n
}

func (r *ring[T]) clear() int {
	return r.dropFront(r.count)
}

// snapshot copies the items oldest first.
func (r *ring[T]) snapshot() []T {
	out := make([]T, r.count)
	for i := range out {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}

func (r *ring[T]) grow() {
	next := make([]T, len(r.buf)*2)
	for i := 0; i < r.count; i++ {
		next[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	r.buf = next
	r.head = 0
}
