package buffer

import (
	"sync"
	"time"
)

// Evicting is a bounded FIFO safe for concurrent use by any number of
// producers and consumers. All operations share one lock.
type Evicting[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	items    ring[T]
	capacity int
	stats    counters
}

// New creates an Evicting buffer holding at most capacity items.
func New[T any](capacity int) (*Evicting[T], error) {
	if err := checkCapacity(capacity); err != nil {
		return nil, err
	}
	b := &Evicting[T]{
		items:    newRing[T](capacity),
		capacity: capacity,
	}
	b.notEmpty = sync.NewCond(&b.mu)
	b.notFull = sync.NewCond(&b.mu)
	return b, nil
}

// SetCapacity changes the capacity. Shrinking evicts the oldest items that
// no longer fit; growing wakes goroutines blocked in Put.
func (b *Evicting[T]) SetCapacity(n int) error {
	if err := checkCapacity(n); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if n < b.capacity {
		if excess := b.items.len() - n; excess > 0 {
			b.stats.evicted.Add(uint64(b.items.dropFront(excess)))
		}
	} else if n > b.capacity {
		b.notFull.Broadcast()
	}
	b.capacity = n
	return nil
}

// Capacity returns the current capacity.
func (b *Evicting[T]) Capacity() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.capacity
}

// Push appends item, evicting the oldest item first when the buffer is full.
// It never blocks.
func (b *Evicting[T]) Push(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.items.len() >= b.capacity {
		b.items.popFront()
		b.stats.evicted.Add(1)
	}
	b.items.pushBack(item)
	b.stats.pushed.Add(1)
	b.notEmpty.Broadcast()
}

// Put appends item once a slot is free, waiting up to timeout. It returns
// ErrFull if no slot frees before the timeout expires.
func (b *Evicting[T]) Put(item T, timeout time.Duration) error {
	if err := checkTimeout(timeout); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.wait(b.notFull, func() bool { return b.items.len() < b.capacity }, timeout) {
		return ErrFull
	}
	b.items.pushBack(item)
	b.stats.put.Add(1)
	b.notEmpty.Broadcast()
	return nil
}

// Get removes and returns the oldest item, waiting up to timeout for one to
// arrive. It returns ErrEmpty if the buffer stays empty until the timeout
// expires.
func (b *Evicting[T]) Get(timeout time.Duration) (T, error) {
	var zero T
	if err := checkTimeout(timeout); err != nil {
		return zero, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.wait(b.notEmpty, func() bool { return b.items.len() > 0 }, timeout) {
		return zero, ErrEmpty
	}
	item := b.items.popFront()
	b.stats.got.Add(1)
	b.notFull.Broadcast()
	return item, nil
}

// wait blocks on cond until ready reports true or timeout expires. It must
// be called with b.mu held and returns with b.mu held.
func (b *Evicting[T]) wait(cond *sync.Cond, ready func() bool, timeout time.Duration) bool {
	if ready() {
		return true
	}
	if timeout == 0 {
		return false
	}
	if timeout == Forever {
		for !ready() {
			cond.Wait()
		}
		return true
	}

	expired := false
	timer := time.AfterFunc(timeout, func() {
		b.mu.Lock()
		expired = true
		b.mu.Unlock()
		cond.Broadcast()
	})
	defer timer.Stop()

	for !ready() {
		if expired {
			return false
		}
		cond.Wait()
	}
	return true
}

// IsFull reports whether the buffer is at capacity. The result is a snapshot.
func (b *Evicting[T]) IsFull() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.items.len() >= b.capacity
}

// IsEmpty reports whether the buffer holds no items. The result is a snapshot.
func (b *Evicting[T]) IsEmpty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.items.len() == 0
}

// Size returns the number of buffered items. The result is a snapshot.
func (b *Evicting[T]) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.items.len()
}

// Flush removes every item and returns how many were removed.
func (b *Evicting[T]) Flush() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.items.clear()
	b.stats.flushed.Add(uint64(n))
	return n
}

// Items returns a copy of the buffered items, oldest first.
func (b *Evicting[T]) Items() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.items.snapshot()
}

// Stats returns a snapshot of the buffer's counters.
func (b *Evicting[T]) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats.snapshot(b.capacity, b.items.len())
}
