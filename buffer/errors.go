package buffer

import (
	"math"
	"net/http"
	"time"

	"github.com/kbukum/edgecam/errors"
)

// Forever is the timeout that waits without a deadline.
const Forever = time.Duration(math.MaxInt64)

var (
	// ErrInvalidCapacity is returned for a capacity that is not positive.
	ErrInvalidCapacity = errors.New(errors.ErrCodeInvalidCapacity, "capacity must be a positive integer", http.StatusBadRequest)
	// ErrInvalidTimeout is returned for a negative timeout.
	ErrInvalidTimeout = errors.New(errors.ErrCodeInvalidTimeout, "timeout must be non-negative", http.StatusBadRequest)
	// ErrEmpty is returned when Get expires on an empty buffer.
	ErrEmpty = errors.New(errors.ErrCodeBufferEmpty, "buffer is empty", http.StatusServiceUnavailable)
	// ErrFull is returned when Put expires on a full buffer.
	ErrFull = errors.New(errors.ErrCodeBufferFull, "buffer is full", http.StatusServiceUnavailable)
)

func checkCapacity(n int) error {
	if n <= 0 {
		return errors.InvalidCapacity(n)
	}
	return nil
}

func checkTimeout(d time.Duration) error {
	if d < 0 {
		return errors.InvalidTimeout(d)
	}
	return nil
}
