package buffer

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Async is the context-aware counterpart of Evicting. Waiting callers park
// on a channel that is closed and replaced on every notify, so a single
// mutation wakes the whole complementary waiter set: Push and Put wake Get
// waiters, Get and capacity growth wake Put waiters. Woken callers re-check
// under the lock.
type Async[T any] struct {
	lock     *semaphore.Weighted
	items    ring[T]
	capacity atomic.Int64
	size     atomic.Int64
	notEmpty chan struct{}
	notFull  chan struct{}
	stats    counters
}

// NewAsync creates an Async buffer holding at most capacity items.
func NewAsync[T any](capacity int) (*Async[T], error) {
	if err := checkCapacity(capacity); err != nil {
		return nil, err
	}
	b := &Async[T]{
		lock:     semaphore.NewWeighted(1),
		items:    newRing[T](capacity),
		notEmpty: make(chan struct{}),
		notFull:  make(chan struct{}),
	}
	b.capacity.Store(int64(capacity))
	return b, nil
}

func (b *Async[T]) acquire(ctx context.Context) error {
	return b.lock.Acquire(ctx, 1)
}

func (b *Async[T]) release() {
	b.size.Store(int64(b.items.len()))
	b.lock.Release(1)
}

// wakeGetters and wakePutters must be called with the lock held.
func (b *Async[T]) wakeGetters() {
	close(b.notEmpty)
	b.notEmpty = make(chan struct{})
}

func (b *Async[T]) wakePutters() {
	close(b.notFull)
	b.notFull = make(chan struct{})
}

func (b *Async[T]) limit() int { return int(b.capacity.Load()) }

// SetCapacity changes the capacity. Shrinking evicts the oldest items that
// no longer fit; growing wakes callers waiting in Put.
func (b *Async[T]) SetCapacity(ctx context.Context, n int) error {
	if err := checkCapacity(n); err != nil {
		return err
	}
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer b.release()

	current := b.limit()
	if n < current {
		if excess := b.items.len() - n; excess > 0 {
			b.stats.evicted.Add(uint64(b.items.dropFront(excess)))
		}
	}
	b.capacity.Store(int64(n))
	if n > current {
		b.wakePutters()
	}
	return nil
}

// Capacity returns the current capacity.
func (b *Async[T]) Capacity() int { return b.limit() }

// Push appends item, evicting the oldest item when the buffer is full. It
// only fails when ctx is done before the lock is acquired.
func (b *Async[T]) Push(ctx context.Context, item T) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer b.release()

	if b.items.len() >= b.limit() {
		b.items.popFront()
		b.stats.evicted.Add(1)
	}
	b.items.pushBack(item)
	b.stats.pushed.Add(1)
	b.wakeGetters()
	return nil
}

// Put appends item once a slot is free, waiting up to timeout. It returns
// ErrFull on expiry and ctx.Err() if ctx is done first.
func (b *Async[T]) Put(ctx context.Context, item T, timeout time.Duration) error {
	if err := checkTimeout(timeout); err != nil {
		return err
	}
	deadline, stop := deadlineChan(timeout)
	defer stop()

	for {
		if err := b.acquire(ctx); err != nil {
			return err
		}
		if b.items.len() < b.limit() {
			b.items.pushBack(item)
			b.stats.put.Add(1)
			b.wakeGetters()
			b.release()
			return nil
		}
		if timeout == 0 {
			b.release()
			return ErrFull
		}
		wait := b.notFull
		b.release()

		select {
		case <-wait:
		case <-deadline:
			return ErrFull
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Get removes and returns the oldest item, waiting up to timeout. It returns
// ErrEmpty on expiry and ctx.Err() if ctx is done first.
func (b *Async[T]) Get(ctx context.Context, timeout time.Duration) (T, error) {
	var zero T
	if err := checkTimeout(timeout); err != nil {
		return zero, err
	}
	deadline, stop := deadlineChan(timeout)
	defer stop()

	for {
		if err := b.acquire(ctx); err != nil {
			return zero, err
		}
		if b.items.len() > 0 {
			item := b.items.popFront()
			b.stats.got.Add(1)
			b.wakePutters()
			b.release()
			return item, nil
		}
		if timeout == 0 {
			b.release()
			return zero, ErrEmpty
		}
		wait := b.notEmpty
		b.release()

		select {
		case <-wait:
		case <-deadline:
			return zero, ErrEmpty
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// IsFull reports whether the buffer is at capacity.
func (b *Async[T]) IsFull(ctx context.Context) (bool, error) {
	if err := b.acquire(ctx); err != nil {
		return false, err
	}
	defer b.release()
	return b.items.len() >= b.limit(), nil
}

// IsEmpty reports whether the buffer holds no items.
func (b *Async[T]) IsEmpty(ctx context.Context) (bool, error) {
	if err := b.acquire(ctx); err != nil {
		return false, err
	}
	defer b.release()
	return b.items.len() == 0, nil
}

// Size returns the number of buffered items.
func (b *Async[T]) Size(ctx context.Context) (int, error) {
	if err := b.acquire(ctx); err != nil {
		return 0, err
	}
	defer b.release()
	return b.items.len(), nil
}

// Flush removes every item and returns how many were removed.
func (b *Async[T]) Flush(ctx context.Context) (int, error) {
	if err := b.acquire(ctx); err != nil {
		return 0, err
	}
	defer b.release()
	n := b.items.clear()
	b.stats.flushed.Add(uint64(n))
	return n, nil
}

// Items returns a copy of the buffered items, oldest first.
func (b *Async[T]) Items(ctx context.Context) ([]T, error) {
	if err := b.acquire(ctx); err != nil {
		return nil, err
	}
	defer b.release()
	return b.items.snapshot(), nil
}

// Stats returns a snapshot of the buffer's counters without taking the lock.
func (b *Async[T]) Stats() Stats {
	return b.stats.snapshot(b.limit(), int(b.size.Load()))
}

// deadlineChan returns a channel that fires after timeout, or nil when the
// wait is immediate or unbounded.
func deadlineChan(timeout time.Duration) (<-chan time.Time, func()) {
	if timeout == 0 || timeout == Forever {
		return nil, func() {}
	}
	t := time.NewTimer(timeout)
	return t.C, func() { t.Stop() }
}
