// Package buffer provides bounded FIFO buffers that sit on every stage
// boundary of a pipeline.
//
// A buffer has two insertion modes. Push never blocks: when the buffer is
// full the oldest item is evicted to make room. Put waits for a free slot
// and fails with ErrFull when its timeout expires. Get removes the oldest
// item and fails with ErrEmpty on expiry.
//
// Timeouts follow one convention across the package: Forever waits
// indefinitely, zero tests once without waiting, and a negative duration
// is rejected with ErrInvalidTimeout.
//
// Evicting is the goroutine-blocking form built on condition variables.
// Async is the context-aware form whose waits, including lock acquisition,
// abort when the caller's context is done.
package buffer
